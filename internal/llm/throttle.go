package llm

import (
	"sync"
	"time"
)

// DefaultMinRequestInterval is the minimum elapsed time enforced between
// consecutive accepted upstream calls.
const DefaultMinRequestInterval = 2 * time.Second

// Throttle enforces a minimum interval between accepted upstream calls.
// One Throttle is shared by every concurrent client invocation; the mutex
// protects only the timestamp check and update, never the upstream call.
type Throttle struct {
	mu       sync.Mutex
	last     time.Time
	interval time.Duration
	now      func() time.Time
}

// NewThrottle creates a Throttle with the given minimum interval.
// A non-positive interval falls back to DefaultMinRequestInterval.
func NewThrottle(interval time.Duration) *Throttle {
	if interval <= 0 {
		interval = DefaultMinRequestInterval
	}
	return &Throttle{
		interval: interval,
		now:      time.Now,
	}
}

// Allow reports whether an upstream call may be issued now, as measured at
// lock acquisition. When allowed it advances the window; when denied it
// leaves the window untouched, since no upstream call will be attempted.
func (t *Throttle) Allow() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if now.Sub(t.last) < t.interval {
		return false
	}
	t.last = now
	return true
}

// Interval returns the configured minimum request interval.
func (t *Throttle) Interval() time.Duration {
	return t.interval
}
