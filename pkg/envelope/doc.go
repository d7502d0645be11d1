// Package envelope defines the Canonical Message: the channel-agnostic
// representation of one conversational event flowing through the relay
// pipeline. Channel adapters normalize vendor events into this envelope,
// the bus carries it as an opaque JSON payload, and the worker routes it.
//
// A Canonical Message is immutable once published. Any transformation
// (such as a reply) produces a new message with a derived ID and the
// direction flipped; the original is never mutated.
package envelope
