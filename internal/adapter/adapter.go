// Package adapter defines the channel adapter boundary: each adapter
// converts one vendor's wire events into Canonical Messages and emits
// them on an explicit channel. Adapters never block on downstream
// processing; the Pump forwards their output onto the bus.
package adapter

import (
	"context"
	"fmt"

	"github.com/dyluth/relay/pkg/envelope"
)

// Adapter is the contract every channel adapter implements.
//
// Connect establishes the live feed and fails with a *ConnectionError if
// the transport is unavailable. Messages is the stream of normalized
// inbound messages (direction=in, id always assigned); it is closed when
// the adapter shuts down. Close releases the transport.
type Adapter interface {
	Connect(ctx context.Context) error
	Messages() <-chan *envelope.Message
	Close() error
}

// ConnectionError reports that an adapter's transport could not be
// established or was lost.
type ConnectionError struct {
	Channel string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("channel %s: connection failed: %v", e.Channel, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
