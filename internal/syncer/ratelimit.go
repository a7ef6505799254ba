package syncer

import (
	"sync"
	"time"
)

// RateLimiter enforces a minimum interval between attempts for the same
// scope key (e.g. "push:2026-01-06"). Each coordinator owns its own
// instance, so throttle state has the coordinator's lifecycle instead
// of living in process-wide maps.
type RateLimiter struct {
	mu       sync.Mutex
	cooldown time.Duration
	last     map[string]time.Time
	now      func() time.Time
}

// NewRateLimiter creates a limiter with the given cooldown. A nil now
// defaults to time.Now; tests inject a fixed clock.
func NewRateLimiter(cooldown time.Duration, now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{
		cooldown: cooldown,
		last:     make(map[string]time.Time),
		now:      now,
	}
}

// Allow reports whether an attempt for scope may proceed, and records
// the attempt time when it may. Suppression is not an error; callers
// simply return without action.
func (r *RateLimiter) Allow(scope string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if last, ok := r.last[scope]; ok && now.Sub(last) < r.cooldown {
		return false
	}
	r.last[scope] = now
	return true
}

// Reset forgets the scope's last attempt, so the next Allow succeeds.
// Used after a failed attempt that should be retryable immediately.
func (r *RateLimiter) Reset(scope string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.last, scope)
}
