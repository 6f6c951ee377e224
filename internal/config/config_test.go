package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Server config
	assert.Equal(t, "8090", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)

	// Advisor config
	assert.Equal(t, "http://localhost:8091", cfg.Advisor.URL)
	assert.Equal(t, 60*time.Second, cfg.Advisor.Timeout)
	assert.False(t, cfg.Advisor.Mock)

	// Stream config
	assert.Equal(t, 30, cfg.Stream.DelayMS)
	assert.Equal(t, 30*time.Millisecond, cfg.Stream.StreamDelay())

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	// Rate limit config
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 200, cfg.RateLimit.Burst)
	assert.True(t, cfg.RateLimit.Enabled)
}

func TestLoadOrDefault(t *testing.T) {
	// Should return default when no env vars set
	cfg := LoadOrDefault()

	assert.NotNil(t, cfg)
	assert.Equal(t, "8090", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestEffectiveDir(t *testing.T) {
	assert.Equal(t, "/custom/state", StoreConfig{Dir: "/custom/state"}.EffectiveDir())
	assert.Contains(t, StoreConfig{}.EffectiveDir(), "droidsweep")
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":            "9000",
		"HOST":            "0.0.0.0",
		"ADVISOR_URL":     "http://localhost:9999",
		"ADVISOR_TIMEOUT": "10s",
		"ADVISOR_MOCK":    "true",
		"STATE_DIR":       "/tmp/droidsweep-test",
		"STREAM_DELAY_MS": "0",
		"LOG_LEVEL":       "debug",
		"LOG_DEV":         "true",
		"RATE_LIMIT_RPS":  "500",
	}

	for key, value := range envVars {
		err := os.Setenv(key, value)
		require.NoError(t, err)
		defer os.Unsetenv(key)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)

	assert.Equal(t, "http://localhost:9999", cfg.Advisor.URL)
	assert.Equal(t, 10*time.Second, cfg.Advisor.Timeout)
	assert.True(t, cfg.Advisor.Mock)

	assert.Equal(t, "/tmp/droidsweep-test", cfg.Store.Dir)
	assert.Equal(t, 0, cfg.Stream.DelayMS)
	assert.Equal(t, time.Duration(0), cfg.Stream.StreamDelay())

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)

	assert.Equal(t, 500, cfg.RateLimit.RequestsPerSecond)
}
