package worker

import (
	"fmt"
	"time"

	"github.com/dyluth/relay/internal/router"
)

// Config holds the inbound consumer's runtime parameters.
type Config struct {
	// GroupName is the consumer group sharing delivery of the inbound
	// topic. All worker instances use the same group for horizontal
	// scaling.
	GroupName string

	// ConsumerName uniquely identifies this worker within the group.
	ConsumerName string

	// InboundTopic carries Canonical Messages from channel adapters.
	InboundTopic string

	// OutboundTopic receives routed replies for delivery back to the
	// originating channel.
	OutboundTopic string

	// BatchSize caps how many new entries one poll delivers.
	BatchSize int64

	// PollInterval bounds the blocking wait of each poll.
	PollInterval time.Duration

	// RetryInterval is the delay between publish attempts.
	RetryInterval time.Duration

	// MaxPublishAttempts bounds publish-with-retry. On exhaustion the
	// inbound entry is left un-acked so another consumer can reclaim it.
	MaxPublishAttempts int

	// ReclaimIdle is how long a pending claim may sit idle before this
	// consumer reclaims it from a crashed peer.
	ReclaimIdle time.Duration

	// MaxDeliveries bounds reprocessing of a single entry. Entries
	// reclaimed with more deliveries than this are routed to the
	// dead-letter stream instead of reprocessed. Zero disables the
	// bound.
	MaxDeliveries int64

	// ResolvePersona maps a sender identity to a persona mode. Identity
	// records live with external collaborators; the default treats every
	// sender as a guest.
	ResolvePersona func(identity string) router.PersonaMode
}

// Validate checks the worker parameters. Durations must be positive and
// the group, consumer, and topic names non-empty.
func (c *Config) Validate() error {
	if c.GroupName == "" {
		return fmt.Errorf("worker group name cannot be empty")
	}
	if c.ConsumerName == "" {
		return fmt.Errorf("worker consumer name cannot be empty")
	}
	if c.InboundTopic == "" || c.OutboundTopic == "" {
		return fmt.Errorf("worker topics cannot be empty")
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("worker batch size must be at least 1, got %d", c.BatchSize)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("worker poll interval must be positive, got %v", c.PollInterval)
	}
	if c.RetryInterval <= 0 {
		return fmt.Errorf("worker retry interval must be positive, got %v", c.RetryInterval)
	}
	if c.MaxPublishAttempts < 1 {
		return fmt.Errorf("worker max publish attempts must be at least 1, got %d", c.MaxPublishAttempts)
	}
	if c.ReclaimIdle <= 0 {
		return fmt.Errorf("worker reclaim idle threshold must be positive, got %v", c.ReclaimIdle)
	}
	return nil
}

// persona applies the ResolvePersona hook with its guest default.
func (c *Config) persona(identity string) router.PersonaMode {
	if c.ResolvePersona == nil {
		return router.PersonaGuest
	}
	return c.ResolvePersona(identity)
}
