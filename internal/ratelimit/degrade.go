package ratelimit

import (
	"context"
	"log"
)

// DegradingLimiter prefers the durable backend and falls back to the
// in-process one when the durable check fails with a transport error.
// This is a deliberate degrade-not-fail policy: a Redis outage must not
// turn admission control into a pipeline outage.
type DegradingLimiter struct {
	durable  Limiter
	fallback Limiter
}

// NewDegradingLimiter wraps a durable backend with an in-process
// fallback built from the same bucket parameters.
func NewDegradingLimiter(durable Limiter, cfg Config) *DegradingLimiter {
	return &DegradingLimiter{
		durable:  durable,
		fallback: NewMemoryLimiter(cfg),
	}
}

// Check implements Limiter. A durable-backend failure is logged and the
// request is re-checked against the process-local bucket; the combined
// check never returns an error.
func (l *DegradingLimiter) Check(ctx context.Context, key string, cost float64) (Decision, error) {
	decision, err := l.durable.Check(ctx, key, cost)
	if err == nil {
		return decision, nil
	}

	log.Printf("[RateLimit] Durable backend unavailable, using in-process fallback for key %s: %v", key, err)
	return l.fallback.Check(ctx, key, cost)
}
