// Package config loads and validates relay.yml, the declarative
// configuration for a relay instance: Redis connection, topic names,
// worker tuning, rate-limit parameters, and the channel adapter feed.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// RelayConfig represents the top-level relay.yml configuration.
type RelayConfig struct {
	Version   string          `yaml:"version"`
	Instance  string          `yaml:"instance"`
	RedisURL  string          `yaml:"redis_url,omitempty"`
	Topics    TopicsConfig    `yaml:"topics"`
	Worker    WorkerConfig    `yaml:"worker"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Adapter   *AdapterConfig  `yaml:"adapter,omitempty"`
}

// TopicsConfig names the logical channels on the bus.
type TopicsConfig struct {
	Inbound  string `yaml:"inbound"`
	Outbound string `yaml:"outbound"`
}

// WorkerConfig tunes the inbound consumer. Intervals are in
// milliseconds.
type WorkerConfig struct {
	Group              string `yaml:"group"`
	BatchSize          int64  `yaml:"batch_size,omitempty"`
	PollIntervalMs     int    `yaml:"poll_interval_ms,omitempty"`
	RetryMs            int    `yaml:"retry_ms,omitempty"`
	MaxPublishAttempts int    `yaml:"max_publish_attempts,omitempty"`
	ReclaimIdleMs      int    `yaml:"reclaim_idle_ms,omitempty"`
	MaxDeliveries      int64  `yaml:"max_deliveries,omitempty"`
}

// RateLimitConfig holds the token-bucket parameters: requests per
// second and burst capacity, both positive integers with a floor of 1.
type RateLimitConfig struct {
	RPS   int `yaml:"rps,omitempty"`
	Burst int `yaml:"burst,omitempty"`
}

// AdapterConfig describes a channel adapter feed.
type AdapterConfig struct {
	Channel string `yaml:"channel"`
	URL     string `yaml:"url"`
}

// Defaults applied by Load when relay.yml leaves fields unset.
const (
	DefaultBatchSize          = 10
	DefaultPollIntervalMs     = 2000
	DefaultRetryMs            = 500
	DefaultMaxPublishAttempts = 5
	DefaultReclaimIdleMs      = 30000
	DefaultMaxDeliveries      = 5
	DefaultRPS                = 5
	DefaultBurst              = 10
)

// Load reads and parses a relay.yml file, applies defaults, and
// validates the result.
func Load(path string) (*RelayConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg RelayConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return &cfg, nil
}

// applyDefaults fills unset fields with their defaults and clamps the
// rate-limit parameters to their floor of 1.
func (c *RelayConfig) applyDefaults() {
	if c.Topics.Inbound == "" {
		c.Topics.Inbound = "inbound"
	}
	if c.Topics.Outbound == "" {
		c.Topics.Outbound = "outbound"
	}
	if c.Worker.Group == "" {
		c.Worker.Group = "relay-workers"
	}
	if c.Worker.BatchSize == 0 {
		c.Worker.BatchSize = DefaultBatchSize
	}
	if c.Worker.PollIntervalMs == 0 {
		c.Worker.PollIntervalMs = DefaultPollIntervalMs
	}
	if c.Worker.RetryMs == 0 {
		c.Worker.RetryMs = DefaultRetryMs
	}
	if c.Worker.MaxPublishAttempts == 0 {
		c.Worker.MaxPublishAttempts = DefaultMaxPublishAttempts
	}
	if c.Worker.ReclaimIdleMs == 0 {
		c.Worker.ReclaimIdleMs = DefaultReclaimIdleMs
	}
	if c.Worker.MaxDeliveries == 0 {
		c.Worker.MaxDeliveries = DefaultMaxDeliveries
	}
	if c.RateLimit.RPS == 0 {
		c.RateLimit.RPS = DefaultRPS
	}
	if c.RateLimit.RPS < 1 {
		c.RateLimit.RPS = 1
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = DefaultBurst
	}
	if c.RateLimit.Burst < 1 {
		c.RateLimit.Burst = 1
	}
}

// Validate checks the configuration for problems defaults cannot fix.
func (c *RelayConfig) Validate() error {
	if c.Instance == "" {
		return fmt.Errorf("instance name is required")
	}
	if c.Worker.BatchSize < 1 {
		return fmt.Errorf("worker batch_size must be at least 1, got %d", c.Worker.BatchSize)
	}
	if c.Worker.PollIntervalMs < 1 {
		return fmt.Errorf("worker poll_interval_ms must be positive, got %d", c.Worker.PollIntervalMs)
	}
	if c.Worker.RetryMs < 1 {
		return fmt.Errorf("worker retry_ms must be positive, got %d", c.Worker.RetryMs)
	}
	if c.Worker.MaxPublishAttempts < 1 {
		return fmt.Errorf("worker max_publish_attempts must be at least 1, got %d", c.Worker.MaxPublishAttempts)
	}
	if c.Worker.ReclaimIdleMs < 1 {
		return fmt.Errorf("worker reclaim_idle_ms must be positive, got %d", c.Worker.ReclaimIdleMs)
	}
	if c.Adapter != nil {
		if c.Adapter.Channel == "" {
			return fmt.Errorf("adapter channel is required")
		}
		if c.Adapter.URL == "" {
			return fmt.Errorf("adapter url is required")
		}
	}
	return nil
}

// PollInterval returns the worker poll interval as a duration.
func (c *WorkerConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// RetryInterval returns the publish-retry delay as a duration.
func (c *WorkerConfig) RetryInterval() time.Duration {
	return time.Duration(c.RetryMs) * time.Millisecond
}

// ReclaimIdle returns the pending-entry idle threshold as a duration.
func (c *WorkerConfig) ReclaimIdle() time.Duration {
	return time.Duration(c.ReclaimIdleMs) * time.Millisecond
}
