package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"
)

// bucket is the per-key state of the in-process limiter.
// Invariant: 0 <= tokens <= capacity.
type bucket struct {
	tokens    float64
	updatedAt time.Time
}

// MemoryLimiter is the in-process fallback backend: a mutex-guarded map
// of buckets private to this process. It trades cross-process
// consistency for availability - each process sees its own bucket - and
// must never be treated as authoritative while the durable backend is
// reachable.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	cfg     Config

	now func() time.Time // injectable for tests
}

// NewMemoryLimiter creates the in-process backend.
func NewMemoryLimiter(cfg Config) *MemoryLimiter {
	return &MemoryLimiter{
		buckets: make(map[string]*bucket),
		cfg:     cfg.Sanitize(),
		now:     time.Now,
	}
}

// Check implements Limiter against process-local state. It never
// returns an error; the error slot exists to satisfy the contract.
func (l *MemoryLimiter) Check(_ context.Context, key string, cost float64) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	capacity := float64(l.cfg.Burst)
	rate := float64(l.cfg.Rate)

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: capacity, updatedAt: now}
		l.buckets[key] = b
	}

	// Continuous refill, proportional to elapsed time.
	elapsed := now.Sub(b.updatedAt).Seconds()
	if elapsed > 0 {
		b.tokens = math.Min(capacity, b.tokens+elapsed*rate)
	}
	b.updatedAt = now

	if b.tokens >= cost {
		b.tokens -= cost
		return Decision{
			OK:        true,
			Remaining: int(math.Floor(b.tokens)),
		}, nil
	}

	return Decision{
		OK:                false,
		Remaining:         int(math.Floor(b.tokens)),
		RetryAfterSeconds: int(math.Ceil((cost - b.tokens) / rate)),
	}, nil
}
