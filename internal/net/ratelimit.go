package net

import (
	"sync"
	"time"
)

// AttemptLimiter tracks a bounded history of attempt timestamps per client
// identifier over a rolling window. It is independent of the state lock and
// safe under concurrent access.
type AttemptLimiter struct {
	mu       sync.Mutex
	max      int
	window   time.Duration
	attempts map[string][]time.Time
	now      func() time.Time
}

// NewAttemptLimiter allows max attempts per client within window.
func NewAttemptLimiter(max int, window time.Duration) *AttemptLimiter {
	return &AttemptLimiter{
		max:      max,
		window:   window,
		attempts: make(map[string][]time.Time),
		now:      time.Now,
	}
}

// Allow records an attempt for id and reports whether it is still inside the
// budget. The rejected attempt itself stays in the history, so a client
// hammering the endpoint keeps being refused until the window drains.
func (l *AttemptLimiter) Allow(id string) bool {
	return l.allowAt(id, l.now())
}

func (l *AttemptLimiter) allowAt(id string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.window)
	kept := l.attempts[id][:0]
	for _, t := range l.attempts[id] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	kept = append(kept, now)
	l.attempts[id] = kept
	return len(kept) <= l.max
}
