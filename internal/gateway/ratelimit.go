package gateway

import (
	"sync"
	"time"
)

// slidingWindowLimiter tracks request timestamps per (clientID, path)
// key. Entries older than the window are pruned before each check; the
// request is denied when the remaining count has reached the limit.
//
// Windows live in process memory only and are lost on restart.
type slidingWindowLimiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time

	// now is swappable for tests.
	now func() time.Time
}

func newSlidingWindowLimiter() *slidingWindowLimiter {
	return &slidingWindowLimiter{
		windows: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Allow records the request when it fits in the window and reports
// whether it was admitted.
func (l *slidingWindowLimiter) Allow(clientID, path string, limit int, window time.Duration) bool {
	key := clientID + "|" + path
	now := l.now()
	cutoff := now.Add(-window)

	l.mu.Lock()
	defer l.mu.Unlock()

	timestamps := l.windows[key]

	// Prune expired entries in place.
	kept := timestamps[:0]
	for _, ts := range timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= limit {
		l.windows[key] = kept
		return false
	}

	l.windows[key] = append(kept, now)
	return true
}

// Reset clears all tracked windows.
func (l *slidingWindowLimiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.windows = make(map[string][]time.Time)
}
