package advisor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreakerStaysClosedOnSuccess(t *testing.T) {
	b := NewBreaker(3, time.Minute)

	for i := 0; i < 10; i++ {
		assert.True(t, b.Allow())
		b.Record(true)
	}
	assert.Equal(t, "closed", b.State())
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	b := NewBreaker(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, b.Allow())
		b.Record(false)
	}
	assert.Equal(t, "open", b.State())
	assert.False(t, b.Allow())
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(3, time.Minute)

	b.Record(false)
	b.Record(false)
	b.Record(true)
	b.Record(false)
	b.Record(false)
	assert.Equal(t, "closed", b.State())
}

func TestBreakerProbesAfterCooldown(t *testing.T) {
	now := time.Now()
	b := NewBreaker(1, time.Minute)
	b.now = func() time.Time { return now }

	b.Record(false)
	assert.False(t, b.Allow())

	// one probe after the cooldown, concurrent calls stay blocked
	now = now.Add(2 * time.Minute)
	assert.True(t, b.Allow())
	assert.False(t, b.Allow())

	b.Record(true)
	assert.Equal(t, "closed", b.State())
	assert.True(t, b.Allow())
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	now := time.Now()
	b := NewBreaker(1, time.Minute)
	b.now = func() time.Time { return now }

	b.Record(false)
	now = now.Add(2 * time.Minute)
	assert.True(t, b.Allow())
	b.Record(false)

	assert.Equal(t, "open", b.State())
	assert.False(t, b.Allow())
}
