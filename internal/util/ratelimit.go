package util

import (
	"context"
	"sync"
	"time"
)

// RateLimiter spaces operations at a fixed minimum interval. The kline
// endpoint throttles by requests per minute, so the limiter converts a
// per-minute budget into an even gap between calls instead of allowing
// bursts that would trip the server-side limit.
type RateLimiter struct {
	interval time.Duration

	mu   sync.Mutex
	next time.Time // earliest start of the next operation
}

// NewRateLimiter creates a RateLimiter allowing perMinute operations per
// minute, evenly spaced.
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	return &RateLimiter{interval: time.Minute / time.Duration(perMinute)}
}

// Wait blocks until the caller's slot arrives or ctx is cancelled. The
// first call never blocks. Concurrent callers are granted distinct slots
// in arrival order.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	rl.mu.Lock()
	now := time.Now()
	slot := rl.next
	if slot.Before(now) {
		slot = now
	}
	rl.next = slot.Add(rl.interval)
	rl.mu.Unlock()

	wait := time.Until(slot)
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
