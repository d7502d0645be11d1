package stream

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestClient creates a test client connected to a miniredis instance
func setupTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	mr := miniredis.NewMiniRedis()
	err := mr.Start()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := NewClient(&redis.Options{Addr: mr.Addr()}, "test-instance")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client, mr
}

func TestNewClient(t *testing.T) {
	t.Run("creates client successfully", func(t *testing.T) {
		client, _ := setupTestClient(t)
		assert.NotNil(t, client)
		assert.Equal(t, "test-instance", client.InstanceName())
	})

	t.Run("rejects empty instance name", func(t *testing.T) {
		_, err := NewClient(&redis.Options{Addr: "localhost:6379"}, "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "instance name cannot be empty")
	})
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "relay:prod:stream:inbound", TopicKey("prod", "inbound"))
	assert.Equal(t, "relay:prod:stream:inbound:dead", DeadLetterKey("prod", "inbound"))
	assert.Equal(t, "relay:prod:ratelimit:chat:u1", RateLimitKey("prod", "chat:u1"))
}

func TestAppendAndRange(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	id1, err := client.Append(ctx, "inbound", []byte(`{"n":1}`))
	require.NoError(t, err)
	id2, err := client.Append(ctx, "inbound", []byte(`{"n":2}`))
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	entries, err := client.Range(ctx, "inbound", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// The bus preserves append order.
	assert.Equal(t, id1, entries[0].ID)
	assert.Equal(t, []byte(`{"n":1}`), entries[0].Payload)
	assert.Equal(t, id2, entries[1].ID)

	n, err := client.Length(ctx, "inbound")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestEnsureGroupIsIdempotent(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.EnsureGroup(ctx, "inbound", "workers"))

	// A second call on an existing group is a no-op, not an error.
	require.NoError(t, client.EnsureGroup(ctx, "inbound", "workers"))
}

func TestReadGroup(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.EnsureGroup(ctx, "inbound", "workers"))
	_, err := client.Append(ctx, "inbound", []byte("a"))
	require.NoError(t, err)
	_, err = client.Append(ctx, "inbound", []byte("b"))
	require.NoError(t, err)

	entries, err := client.ReadGroup(ctx, "inbound", "workers", "w1", 10, 10*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Delivered entries are now claimed: a second read gets nothing new.
	entries2, err := client.ReadGroup(ctx, "inbound", "workers", "w1", 10, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, entries2)

	pending, err := client.PendingCount(ctx, "inbound", "workers")
	require.NoError(t, err)
	assert.Equal(t, int64(2), pending)
}

func TestAckIsIdempotent(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.EnsureGroup(ctx, "inbound", "workers"))
	_, err := client.Append(ctx, "inbound", []byte("a"))
	require.NoError(t, err)

	entries, err := client.ReadGroup(ctx, "inbound", "workers", "w1", 1, 10*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	already, err := client.Ack(ctx, "inbound", "workers", entries[0].ID)
	require.NoError(t, err)
	assert.False(t, already)

	// Acking twice reports "already acked" rather than erroring.
	already, err = client.Ack(ctx, "inbound", "workers", entries[0].ID)
	require.NoError(t, err)
	assert.True(t, already)

	pending, err := client.PendingCount(ctx, "inbound", "workers")
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending)
}

func TestReclaimStaleRecoversCrashedConsumer(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.EnsureGroup(ctx, "inbound", "workers"))
	_, err := client.Append(ctx, "inbound", []byte("orphaned"))
	require.NoError(t, err)

	// w1 reads the entry and "crashes" before acking.
	read, err := client.ReadGroup(ctx, "inbound", "workers", "w1", 1, 10*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, read, 1)

	// w2 reclaims claims idle beyond the threshold (zero here, so
	// immediately eligible) and can reprocess the entry.
	reclaimed, err := client.ReclaimStale(ctx, "inbound", "workers", "w2", 0, 10)
	require.NoError(t, err)
	require.Len(t, reclaimed, 1)
	assert.Equal(t, read[0].ID, reclaimed[0].ID)
	assert.Equal(t, []byte("orphaned"), reclaimed[0].Payload)

	// Nothing stale is left after the reclaim-and-ack cycle completes.
	_, err = client.Ack(ctx, "inbound", "workers", reclaimed[0].ID)
	require.NoError(t, err)
	reclaimed, err = client.ReclaimStale(ctx, "inbound", "workers", "w2", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, reclaimed)
}

func TestDeliveryCount(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.EnsureGroup(ctx, "inbound", "workers"))
	_, err := client.Append(ctx, "inbound", []byte("x"))
	require.NoError(t, err)

	entries, err := client.ReadGroup(ctx, "inbound", "workers", "w1", 1, 10*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	n, err := client.DeliveryCount(ctx, "inbound", "workers", entries[0].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// Each reclaim bumps the delivery count.
	_, err = client.ReclaimStale(ctx, "inbound", "workers", "w2", 0, 10)
	require.NoError(t, err)
	n, err = client.DeliveryCount(ctx, "inbound", "workers", entries[0].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestDeadLetter(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	e := Entry{ID: "1-0", Payload: []byte(`{"bad":true}`)}
	_, err := client.DeadLetter(ctx, "inbound", e, "max deliveries exceeded", 6)
	require.NoError(t, err)

	dead, err := client.Range(ctx, "inbound:dead", 10)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, []byte(`{"bad":true}`), dead[0].Payload)
}
