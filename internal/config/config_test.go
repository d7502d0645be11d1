package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relay.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
version: "1.0"
instance: test
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "inbound", cfg.Topics.Inbound)
	assert.Equal(t, "outbound", cfg.Topics.Outbound)
	assert.Equal(t, "relay-workers", cfg.Worker.Group)
	assert.Equal(t, int64(DefaultBatchSize), cfg.Worker.BatchSize)
	assert.Equal(t, DefaultPollIntervalMs, cfg.Worker.PollIntervalMs)
	assert.Equal(t, DefaultRetryMs, cfg.Worker.RetryMs)
	assert.Equal(t, DefaultMaxPublishAttempts, cfg.Worker.MaxPublishAttempts)
	assert.Equal(t, DefaultReclaimIdleMs, cfg.Worker.ReclaimIdleMs)
	assert.Equal(t, int64(DefaultMaxDeliveries), cfg.Worker.MaxDeliveries)
	assert.Equal(t, DefaultRPS, cfg.RateLimit.RPS)
	assert.Equal(t, DefaultBurst, cfg.RateLimit.Burst)
}

func TestLoadParsesFullConfig(t *testing.T) {
	path := writeConfig(t, `
version: "1.0"
instance: prod
redis_url: redis://redis:6379
topics:
  inbound: msgs-in
  outbound: msgs-out
worker:
  group: routers
  batch_size: 25
  poll_interval_ms: 1000
  retry_ms: 250
  max_publish_attempts: 3
  reclaim_idle_ms: 60000
  max_deliveries: 8
rate_limit:
  rps: 20
  burst: 40
adapter:
  channel: chat-app
  url: wss://vendor.example.com/feed
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Instance)
	assert.Equal(t, "msgs-in", cfg.Topics.Inbound)
	assert.Equal(t, time.Second, cfg.Worker.PollInterval())
	assert.Equal(t, 250*time.Millisecond, cfg.Worker.RetryInterval())
	assert.Equal(t, time.Minute, cfg.Worker.ReclaimIdle())
	assert.Equal(t, 20, cfg.RateLimit.RPS)
	require.NotNil(t, cfg.Adapter)
	assert.Equal(t, "chat-app", cfg.Adapter.Channel)
}

func TestLoadClampsRateLimitFloor(t *testing.T) {
	path := writeConfig(t, `
version: "1.0"
instance: test
rate_limit:
  rps: -3
  burst: -1
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.RateLimit.RPS)
	assert.Equal(t, 1, cfg.RateLimit.Burst)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Run("missing instance", func(t *testing.T) {
		path := writeConfig(t, `version: "1.0"`)
		_, err := Load(path)
		assert.ErrorContains(t, err, "instance name is required")
	})

	t.Run("negative poll interval", func(t *testing.T) {
		path := writeConfig(t, `
version: "1.0"
instance: test
worker:
  poll_interval_ms: -5
`)
		_, err := Load(path)
		assert.ErrorContains(t, err, "poll_interval_ms")
	})

	t.Run("adapter without url", func(t *testing.T) {
		path := writeConfig(t, `
version: "1.0"
instance: test
adapter:
  channel: chat-app
`)
		_, err := Load(path)
		assert.ErrorContains(t, err, "adapter url is required")
	})

	t.Run("unparseable yaml", func(t *testing.T) {
		path := writeConfig(t, "{{nope")
		_, err := Load(path)
		assert.ErrorContains(t, err, "failed to parse config file")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
		assert.ErrorContains(t, err, "failed to read config file")
	})
}
