// Package stream implements the relay message bus on top of Redis
// Streams. A topic is a single stream; consumer groups share delivery of
// its entries with an at-least-once contract backed by the pending-entry
// list: an entry delivered to a consumer stays claimed by it until acked,
// and claims idle beyond a threshold can be atomically reassigned to a
// live consumer (crash recovery).
//
// All keys are namespaced by instance name so multiple relay instances
// can safely share one Redis server.
package stream
