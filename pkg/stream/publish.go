package stream

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// PublishWithRetry appends a payload to a topic, retrying transport
// failures with a fixed delay between attempts, bounded by maxAttempts.
// Returns the entry id of the successful append, or the last error once
// attempts are exhausted. Respects context cancellation between
// attempts.
//
// The caller decides what exhaustion means; the worker leaves the source
// entry un-acked so it becomes reclaimable instead of silently dropped.
func (c *Client) PublishWithRetry(ctx context.Context, topic string, payload []byte, maxAttempts int, retryDelay time.Duration) (string, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		id, err := c.Append(ctx, topic, payload)
		if err == nil {
			return id, nil
		}
		lastErr = err
		log.Printf("[Bus] Publish attempt %d/%d to topic %s failed: %v", attempt, maxAttempts, topic, err)

		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("publish to topic %s cancelled: %w", topic, ctx.Err())
		case <-time.After(retryDelay):
		}
	}
	return "", fmt.Errorf("publish to topic %s exhausted %d attempts: %w", topic, maxAttempts, lastErr)
}

// DeadLetter appends an entry's payload to the topic's dead-letter
// stream along with failure metadata, so poisoned or repeatedly failing
// entries can be inspected and replayed by an operator.
func (c *Client) DeadLetter(ctx context.Context, topic string, e Entry, reason string, deliveries int64) (string, error) {
	key := DeadLetterKey(c.instanceName, topic)
	id, err := c.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: key,
		Values: map[string]interface{}{
			payloadField: e.Payload,
			"source_id":  e.ID,
			"reason":     reason,
			"deliveries": deliveries,
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("failed to dead-letter entry %s from topic %s: %w", e.ID, topic, err)
	}
	return id, nil
}
