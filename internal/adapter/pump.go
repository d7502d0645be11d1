package adapter

import (
	"context"
	"log"
	"time"

	"github.com/dyluth/relay/pkg/stream"
)

// Pump forwards an adapter's normalized messages onto the bus inbound
// topic. It decouples the adapter from downstream processing: the
// adapter only ever writes to its own channel, the pump owns the bus
// hand-off (and its retries).
type Pump struct {
	adapter Adapter
	bus     *stream.Client
	topic   string

	maxAttempts int
	retryDelay  time.Duration
}

// NewPump wires an adapter to an inbound topic.
func NewPump(a Adapter, bus *stream.Client, topic string, maxAttempts int, retryDelay time.Duration) *Pump {
	return &Pump{
		adapter:     a,
		bus:         bus,
		topic:       topic,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
	}
}

// Run consumes the adapter's message channel until it closes or the
// context is cancelled. A message that cannot be published after retries
// is logged and dropped here - the adapter boundary has no pending-entry
// list to lean on, durability starts at the bus.
func (p *Pump) Run(ctx context.Context) error {
	log.Printf("[Pump] Forwarding to topic %s", p.topic)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-p.adapter.Messages():
			if !ok {
				log.Printf("[Pump] Adapter channel closed")
				return nil
			}

			payload, err := msg.Encode()
			if err != nil {
				log.Printf("[Pump] Dropping unencodable message %s: %v", msg.ID, err)
				continue
			}

			entryID, err := p.bus.PublishWithRetry(ctx, p.topic, payload, p.maxAttempts, p.retryDelay)
			if err != nil {
				log.Printf("[Pump] Failed to publish message %s: %v", msg.ID, err)
				continue
			}
			log.Printf("[Pump] Published message %s as entry %s", msg.ID, entryID)
		}
	}
}
