// Package worker implements the inbound consumer: the orchestrator of
// the relay pipeline. Each consumer polls the inbound topic as a named
// member of a consumer group, reclaims entries abandoned by crashed
// peers, routes each message through the routing agent under admission
// control, republishes the reply to the outbound topic with retries, and
// acknowledges the inbound entry only after the hand-off succeeded.
package worker

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/dyluth/relay/internal/ratelimit"
	"github.com/dyluth/relay/internal/router"
	"github.com/dyluth/relay/pkg/envelope"
	"github.com/dyluth/relay/pkg/stream"
)

// Bus is the slice of the bus client the consumer depends on.
// *stream.Client satisfies it.
type Bus interface {
	EnsureGroup(ctx context.Context, topic, groupName string) error
	ReadGroup(ctx context.Context, topic, groupName, consumerName string, count int64, block time.Duration) ([]stream.Entry, error)
	ReclaimStale(ctx context.Context, topic, groupName, consumerName string, minIdle time.Duration, count int64) ([]stream.Entry, error)
	Ack(ctx context.Context, topic, groupName, entryID string) (bool, error)
	DeliveryCount(ctx context.Context, topic, groupName, entryID string) (int64, error)
	PublishWithRetry(ctx context.Context, topic string, payload []byte, maxAttempts int, retryDelay time.Duration) (string, error)
	DeadLetter(ctx context.Context, topic string, e stream.Entry, reason string, deliveries int64) (string, error)
}

// Consumer is one inbound-consumer instance. Multiple instances may run
// concurrently against the same group; the bus's per-group delivery
// semantics are the only coordination between them.
type Consumer struct {
	cfg     Config
	bus     Bus
	limiter ratelimit.Limiter
}

// New creates a consumer. The configuration must already be validated.
func New(cfg Config, bus Bus, limiter ratelimit.Limiter) *Consumer {
	return &Consumer{
		cfg:     cfg,
		bus:     bus,
		limiter: limiter,
	}
}

// Run executes poll cycles until the context is cancelled. The consumer
// group is created idempotently on entry. Shutdown need not be graceful
// for correctness: in-flight claims are recovered by a peer's reclaim
// after the idle threshold.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.bus.EnsureGroup(ctx, c.cfg.InboundTopic, c.cfg.GroupName); err != nil {
		return err
	}

	log.Printf("[Worker] Consumer %s starting in group %s (topic %s)",
		c.cfg.ConsumerName, c.cfg.GroupName, c.cfg.InboundTopic)

	for {
		select {
		case <-ctx.Done():
			log.Printf("[Worker] Consumer %s shutting down", c.cfg.ConsumerName)
			return nil
		default:
		}

		if err := c.cycle(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Printf("[Worker] Poll cycle failed: %v", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.cfg.RetryInterval):
			}
		}
	}
}

// cycle runs one reclaim-then-poll pass. Per-entry failures are handled
// inside processEntry and never abort the cycle; only transport failures
// reach the caller.
func (c *Consumer) cycle(ctx context.Context) error {
	reclaimed, err := c.bus.ReclaimStale(ctx, c.cfg.InboundTopic, c.cfg.GroupName,
		c.cfg.ConsumerName, c.cfg.ReclaimIdle, c.cfg.BatchSize)
	if err != nil {
		return err
	}
	for _, e := range reclaimed {
		c.logEvent("entry_reclaimed", map[string]interface{}{"entry_id": e.ID})
		c.handleReclaimed(ctx, e)
	}

	entries, err := c.bus.ReadGroup(ctx, c.cfg.InboundTopic, c.cfg.GroupName,
		c.cfg.ConsumerName, c.cfg.BatchSize, c.cfg.PollInterval)
	if err != nil {
		return err
	}
	for _, e := range entries {
		c.processEntry(ctx, e)
	}
	return nil
}

// handleReclaimed reprocesses a reclaimed entry unless its delivery
// count exceeds the configured bound, in which case it goes to the
// dead-letter stream and is acked on the source topic.
func (c *Consumer) handleReclaimed(ctx context.Context, e stream.Entry) {
	if c.cfg.MaxDeliveries > 0 {
		deliveries, err := c.bus.DeliveryCount(ctx, c.cfg.InboundTopic, c.cfg.GroupName, e.ID)
		if err != nil {
			log.Printf("[Worker] Failed to query deliveries for entry %s: %v", e.ID, err)
		} else if deliveries > c.cfg.MaxDeliveries {
			if _, err := c.bus.DeadLetter(ctx, c.cfg.InboundTopic, e, "max deliveries exceeded", deliveries); err != nil {
				// Leave the claim in place; the next reclaim retries the hand-off.
				log.Printf("[Worker] Failed to dead-letter entry %s: %v", e.ID, err)
				return
			}
			if _, err := c.bus.Ack(ctx, c.cfg.InboundTopic, c.cfg.GroupName, e.ID); err != nil {
				log.Printf("[Worker] Failed to ack dead-lettered entry %s: %v", e.ID, err)
				return
			}
			c.logEvent("entry_dead_lettered", map[string]interface{}{
				"entry_id":   e.ID,
				"deliveries": deliveries,
			})
			return
		}
	}
	c.processEntry(ctx, e)
}

// processEntry runs one entry through the pipeline: decode, route,
// publish the reply, then ack. The safety property is that ack only ever
// follows a successful outbound publish; on publish exhaustion the entry
// stays pending and becomes reclaimable.
//
// Malformed payloads are the one exception: they are acked immediately
// (reprocessing cannot fix them) and surfaced to the log.
func (c *Consumer) processEntry(ctx context.Context, e stream.Entry) {
	msg, err := envelope.Decode(e.Payload)
	if err != nil {
		c.logEvent("entry_malformed", map[string]interface{}{
			"entry_id": e.ID,
			"error":    err.Error(),
		})
		if _, ackErr := c.bus.Ack(ctx, c.cfg.InboundTopic, c.cfg.GroupName, e.ID); ackErr != nil {
			log.Printf("[Worker] Failed to ack malformed entry %s: %v", e.ID, ackErr)
		}
		return
	}

	decision := c.route(ctx, msg)

	reply := envelope.DeriveReply(msg, decision.Reply)
	payload, err := reply.Encode()
	if err != nil {
		log.Printf("[Worker] Failed to encode reply for message %s: %v", msg.ID, err)
		return
	}

	outID, err := c.bus.PublishWithRetry(ctx, c.cfg.OutboundTopic, payload,
		c.cfg.MaxPublishAttempts, c.cfg.RetryInterval)
	if err != nil {
		// Un-acked on purpose: the entry becomes reclaimable rather
		// than silently dropped.
		c.logEvent("publish_exhausted", map[string]interface{}{
			"entry_id":   e.ID,
			"message_id": msg.ID,
			"error":      err.Error(),
		})
		return
	}

	if _, err := c.bus.Ack(ctx, c.cfg.InboundTopic, c.cfg.GroupName, e.ID); err != nil {
		// The reply is already published; redelivery is deduped
		// downstream via the derived reply id.
		log.Printf("[Worker] Failed to ack entry %s after publish: %v", e.ID, err)
		return
	}

	c.logEvent("entry_processed", map[string]interface{}{
		"entry_id":    e.ID,
		"message_id":  msg.ID,
		"intent":      string(decision.Intent),
		"next_agent":  string(decision.NextAgent),
		"outbound_id": outID,
	})
}

// route runs the admission check and the routing agent. A rate-limited
// sender is expressed to the router as an exhausted quota, which yields
// the friendly rejection with NextAgent=self. A limiter transport error
// admits the message: admission control degrades, it never fails the
// pipeline.
func (c *Consumer) route(ctx context.Context, msg *envelope.Message) router.Decision {
	host := router.HostContext{
		PersonaMode: c.cfg.persona(msg.From),
		UsedToday:   0,
		DailyLimit:  1,
	}

	decision, err := c.limiter.Check(ctx, msg.Channel+":"+msg.From, 1)
	if err != nil {
		log.Printf("[Worker] Rate limit check failed for message %s, admitting: %v", msg.ID, err)
	} else if !decision.OK {
		c.logEvent("admission_rejected", map[string]interface{}{
			"message_id":  msg.ID,
			"from":        msg.From,
			"retry_after": decision.RetryAfterSeconds,
		})
		host.UsedToday = host.DailyLimit
	}

	return router.Route(msg.Text, host)
}

// logEvent emits a structured JSON log line for machine-significant
// pipeline events.
func (c *Consumer) logEvent(eventType string, data map[string]interface{}) {
	data["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	data["level"] = "info"
	data["component"] = "worker"
	data["event_type"] = eventType
	data["consumer"] = c.cfg.ConsumerName

	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("[Worker] Failed to marshal log event: %v", err)
		return
	}

	log.Println(string(jsonData))
}
