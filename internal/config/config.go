package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Advisor   AdvisorConfig
	Store     StoreConfig
	Stream    StreamConfig
	Suggest   SuggestConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8090"`
	Host string `envconfig:"HOST" default:"127.0.0.1"`
}

// AdvisorConfig holds device-management backend configuration.
type AdvisorConfig struct {
	URL     string        `envconfig:"ADVISOR_URL" default:"http://localhost:8091"`
	Timeout time.Duration `envconfig:"ADVISOR_TIMEOUT" default:"60s"`
	Mock    bool          `envconfig:"ADVISOR_MOCK" default:"false"`
}

// StoreConfig holds durable state configuration.
type StoreConfig struct {
	Dir string `envconfig:"STATE_DIR" default:""`
}

// StreamConfig holds progressive reveal configuration.
type StreamConfig struct {
	DelayMS int `envconfig:"STREAM_DELAY_MS" default:"30"`
}

// SuggestConfig holds suggestion generator configuration.
type SuggestConfig struct {
	RulesFile string `envconfig:"SUGGEST_RULES_FILE" default:""`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// EffectiveDir resolves the state directory, preferring the configured
// path over the per-user config directory.
func (c StoreConfig) EffectiveDir() string {
	if c.Dir != "" {
		return c.Dir
	}
	if base, err := os.UserConfigDir(); err == nil {
		return filepath.Join(base, "droidsweep")
	}
	return filepath.Join(os.TempDir(), "droidsweep")
}

// StreamDelay returns the inter-token delay as a duration.
func (c StreamConfig) StreamDelay() time.Duration {
	return time.Duration(c.DelayMS) * time.Millisecond
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8090",
			Host: "127.0.0.1",
		},
		Advisor: AdvisorConfig{
			URL:     "http://localhost:8091",
			Timeout: 60 * time.Second,
		},
		Stream: StreamConfig{
			DelayMS: 30,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
