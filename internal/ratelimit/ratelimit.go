// Package ratelimit provides per-key admission control for the relay
// pipeline as a continuous token bucket: capacity `burst` tokens,
// refilled at `rate` tokens per second, keyed by an arbitrary string
// (typically identity + scope).
//
// Two interchangeable backends implement the Limiter contract: a durable
// Redis backend whose refill-then-consume runs as a single atomic Lua
// script (consistent across processes), and an in-process fallback used
// when Redis is unreachable. Admission control degrades, it never
// becomes a hard dependency that takes the pipeline down.
package ratelimit

import (
	"context"
	"fmt"
)

// Decision is the outcome of a rate-limit check.
//
// Remaining is floored and RetryAfterSeconds is ceiling-rounded, so a
// caller that waits RetryAfterSeconds never retries too early.
type Decision struct {
	OK                bool
	Remaining         int
	RetryAfterSeconds int
}

// Limiter is the admission-control contract. Check atomically reserves
// cost tokens for key if available; on a false OK no tokens are consumed
// and RetryAfterSeconds is the minimum wait until cost tokens would be
// available.
type Limiter interface {
	Check(ctx context.Context, key string, cost float64) (Decision, error)
}

// Config holds the bucket parameters. Rate and Burst are positive
// integers with a floor of 1, applied by Sanitize.
type Config struct {
	Rate  int // tokens refilled per second
	Burst int // bucket capacity
}

// Sanitize clamps the parameters to their floors.
func (c Config) Sanitize() Config {
	if c.Rate < 1 {
		c.Rate = 1
	}
	if c.Burst < 1 {
		c.Burst = 1
	}
	return c
}

// Validate returns an error if the parameters are not positive.
func (c Config) Validate() error {
	if c.Rate < 1 {
		return fmt.Errorf("rate limit rps must be at least 1, got %d", c.Rate)
	}
	if c.Burst < 1 {
		return fmt.Errorf("rate limit burst must be at least 1, got %d", c.Burst)
	}
	return nil
}
