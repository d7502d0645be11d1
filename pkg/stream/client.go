package stream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// payloadField is the single hash field carrying the serialized message
// inside each stream entry. The bus treats the payload as opaque bytes.
const payloadField = "payload"

// Entry is one bus entry: a bus-assigned monotonic id plus the opaque
// payload appended by the producer. The bus owns entry ids and ordering;
// consumers never re-order entries within a stream.
type Entry struct {
	ID      string
	Payload []byte
}

// Client provides instance-scoped bus operations over Redis Streams.
// All keys are automatically namespaced with the instance name. The
// client is thread-safe and can be used concurrently from multiple
// goroutines.
type Client struct {
	rdb          *redis.Client
	instanceName string
}

// NewClient creates a new bus client for the specified instance.
//
// Parameters:
//   - redisOpts: Redis connection options (address, password, DB, etc.)
//   - instanceName: relay instance identifier (must not be empty)
//
// Returns an error if instanceName is empty.
func NewClient(redisOpts *redis.Options, instanceName string) (*Client, error) {
	if instanceName == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}

	return &Client{
		rdb:          redis.NewClient(redisOpts),
		instanceName: instanceName,
	}, nil
}

// Close closes the Redis connection. Implements io.Closer.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Redis returns the underlying Redis client, shared with collaborators
// that need the same connection (e.g., the rate limiter backend).
func (c *Client) Redis() *redis.Client {
	return c.rdb
}

// InstanceName returns the namespace this client operates in.
func (c *Client) InstanceName() string {
	return c.instanceName
}

// Append durably appends a payload to a topic and returns the
// bus-assigned entry id. Appends are ordered; they never fail silently.
func (c *Client) Append(ctx context.Context, topic string, payload []byte) (string, error) {
	key := TopicKey(c.instanceName, topic)
	id, err := c.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: key,
		Values: map[string]interface{}{payloadField: payload},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("failed to append to topic %s: %w", topic, err)
	}
	return id, nil
}

// EnsureGroup idempotently creates a consumer group on a topic, creating
// the stream itself if it does not exist yet. Calling it on an existing
// group is a no-op, not an error.
func (c *Client) EnsureGroup(ctx context.Context, topic, groupName string) error {
	key := TopicKey(c.instanceName, topic)
	err := c.rdb.XGroupCreateMkStream(ctx, key, groupName, "0").Err()
	if err != nil && !isBusyGroup(err) {
		return fmt.Errorf("failed to create consumer group %s on topic %s: %w", groupName, topic, err)
	}
	return nil
}

// ReadGroup reads up to count entries not yet delivered to any consumer
// in the group, blocking for at most block. Each returned entry gets a
// pending claim owned by consumerName; the claim stays until Ack or a
// reclaim by another consumer. Returns an empty slice when the block
// interval elapses with nothing to deliver.
func (c *Client) ReadGroup(ctx context.Context, topic, groupName, consumerName string, count int64, block time.Duration) ([]Entry, error) {
	key := TopicKey(c.instanceName, topic)
	streams, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    groupName,
		Consumer: consumerName,
		Streams:  []string{key, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if err != nil {
		// redis.Nil means the block interval elapsed with no entries.
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read group %s on topic %s: %w", groupName, topic, err)
	}

	var entries []Entry
	for _, s := range streams {
		for _, msg := range s.Messages {
			entries = append(entries, messageToEntry(msg))
		}
	}
	return entries, nil
}

// ReclaimStale atomically reassigns pending claims idle for longer than
// minIdle to consumerName and returns the reclaimed entries so the
// caller can reprocess them. This is the crash-recovery mechanism: a
// consumer that read entries and died without acking leaves them
// claimable here.
func (c *Client) ReclaimStale(ctx context.Context, topic, groupName, consumerName string, minIdle time.Duration, count int64) ([]Entry, error) {
	key := TopicKey(c.instanceName, topic)
	msgs, _, err := c.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   key,
		Group:    groupName,
		Consumer: consumerName,
		MinIdle:  minIdle,
		Start:    "0-0",
		Count:    count,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to reclaim stale entries on topic %s: %w", topic, err)
	}

	entries := make([]Entry, 0, len(msgs))
	for _, msg := range msgs {
		entries = append(entries, messageToEntry(msg))
	}
	return entries, nil
}

// Ack clears the pending claim for an entry. Idempotent: acking an
// already-acked entry reports alreadyAcked=true rather than erroring.
func (c *Client) Ack(ctx context.Context, topic, groupName, entryID string) (alreadyAcked bool, err error) {
	key := TopicKey(c.instanceName, topic)
	n, err := c.rdb.XAck(ctx, key, groupName, entryID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to ack entry %s on topic %s: %w", entryID, topic, err)
	}
	return n == 0, nil
}

// DeliveryCount reports how many times an entry has been delivered to
// consumers in the group, from the pending-entry list. Returns 0 for
// entries with no pending claim (never delivered, or already acked).
func (c *Client) DeliveryCount(ctx context.Context, topic, groupName, entryID string) (int64, error) {
	key := TopicKey(c.instanceName, topic)
	pending, err := c.rdb.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: key,
		Group:  groupName,
		Start:  entryID,
		End:    entryID,
		Count:  1,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to query pending entry %s on topic %s: %w", entryID, topic, err)
	}
	if len(pending) == 0 {
		return 0, nil
	}
	return pending[0].RetryCount, nil
}

// PendingCount reports the total number of unacked entries in a group.
func (c *Client) PendingCount(ctx context.Context, topic, groupName string) (int64, error) {
	key := TopicKey(c.instanceName, topic)
	summary, err := c.rdb.XPending(ctx, key, groupName).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to query pending summary on topic %s: %w", topic, err)
	}
	return summary.Count, nil
}

// Length reports the number of entries in a topic's stream.
func (c *Client) Length(ctx context.Context, topic string) (int64, error) {
	key := TopicKey(c.instanceName, topic)
	n, err := c.rdb.XLen(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to query length of topic %s: %w", topic, err)
	}
	return n, nil
}

// Range reads entries from a topic without consuming them, oldest first.
// Useful for inspection tooling; workers use ReadGroup.
func (c *Client) Range(ctx context.Context, topic string, count int64) ([]Entry, error) {
	key := TopicKey(c.instanceName, topic)
	msgs, err := c.rdb.XRangeN(ctx, key, "-", "+", count).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to range topic %s: %w", topic, err)
	}
	entries := make([]Entry, 0, len(msgs))
	for _, msg := range msgs {
		entries = append(entries, messageToEntry(msg))
	}
	return entries, nil
}

// isBusyGroup reports whether the error is Redis's BUSYGROUP response,
// returned when the consumer group already exists.
func isBusyGroup(err error) bool {
	return err != nil && strings.Contains(err.Error(), "BUSYGROUP")
}

func messageToEntry(msg redis.XMessage) Entry {
	var payload []byte
	if raw, ok := msg.Values[payloadField]; ok {
		if s, ok := raw.(string); ok {
			payload = []byte(s)
		}
	}
	return Entry{ID: msg.ID, Payload: payload}
}
