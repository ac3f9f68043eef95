package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN     string `env:"DATABASE_DSN,required=true"`
	PollIntervalMS  int    `env:"POLL_INTERVAL_MS,default=30000"`
	BatchSize       int    `env:"BATCH_SIZE,default=25"`
	VAPIDPublicKey  string `env:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `env:"VAPID_PRIVATE_KEY"`
	VAPIDSubject    string `env:"VAPID_SUBJECT"`
	RedisURL        string `env:"REDIS_URL"`
	RateLimitPerSec int    `env:"RATE_LIMIT_PER_SEC,default=100"`
	APIPort         int    `env:"API_PORT,default=8080"`
	LogLevel        string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.PollIntervalMS < 1 {
		return nil, fmt.Errorf("POLL_INTERVAL_MS must be positive, got %d", cfg.PollIntervalMS)
	}
	if cfg.BatchSize < 1 {
		return nil, fmt.Errorf("BATCH_SIZE must be at least 1, got %d", cfg.BatchSize)
	}

	return &cfg, nil
}

// PollInterval returns the dispatcher poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// VAPIDConfigured reports whether all three transport credentials are present.
// The push transport is usable only when this holds.
func (c *Config) VAPIDConfigured() bool {
	return strings.TrimSpace(c.VAPIDPublicKey) != "" &&
		strings.TrimSpace(c.VAPIDPrivateKey) != "" &&
		strings.TrimSpace(c.VAPIDSubject) != ""
}
