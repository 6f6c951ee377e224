package monitoring

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotTracksRequests(t *testing.T) {
	m := NewMetrics()
	defer m.Close()

	m.RecordHTTPRequest("GET", "/health", "200", 10*time.Millisecond)
	m.RecordHTTPRequest("POST", "/chat/query", "500", 30*time.Millisecond)

	snap := m.GetSnapshot()
	assert.Equal(t, int64(2), snap.TotalRequests)
	assert.Equal(t, int64(1), snap.TotalErrors)
	assert.InDelta(t, 20.0, snap.AvgDurationMS, 1.0)
}

func TestSnapshotTracksConnections(t *testing.T) {
	m := NewMetrics()
	defer m.Close()

	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed()

	assert.Equal(t, int64(1), m.GetSnapshot().ActiveConnections)
}

func TestCloseStopsUptimeTicker(t *testing.T) {
	before := runtime.NumGoroutine()

	for i := 0; i < 5; i++ {
		m := NewMetrics()
		m.Close()
		m.Close() // idempotent
	}

	// the uptime goroutines must wind down once closed
	require.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before+1
	}, 2*time.Second, 10*time.Millisecond)
}
