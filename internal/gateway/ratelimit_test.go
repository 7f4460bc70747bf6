package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSlidingWindowLimit(t *testing.T) {
	l := newSlidingWindowLimiter()
	clock := time.Now()
	l.now = func() time.Time { return clock }

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("c1", "/ping", 3, time.Minute), "request %d should pass", i+1)
	}
	assert.False(t, l.Allow("c1", "/ping", 3, time.Minute), "4th request must be denied")
	assert.False(t, l.Allow("c1", "/ping", 3, time.Minute), "5th request must be denied")
}

func TestSlidingWindowExpiry(t *testing.T) {
	l := newSlidingWindowLimiter()
	clock := time.Now()
	l.now = func() time.Time { return clock }

	assert.True(t, l.Allow("c1", "/ping", 1, time.Minute))
	assert.False(t, l.Allow("c1", "/ping", 1, time.Minute))

	// After the window elapses the slot frees up.
	clock = clock.Add(61 * time.Second)
	assert.True(t, l.Allow("c1", "/ping", 1, time.Minute))
}

func TestSlidingWindowKeysAreIndependent(t *testing.T) {
	l := newSlidingWindowLimiter()

	assert.True(t, l.Allow("c1", "/a", 1, time.Minute))
	assert.True(t, l.Allow("c2", "/a", 1, time.Minute), "different client, own window")
	assert.True(t, l.Allow("c1", "/b", 1, time.Minute), "different path, own window")
	assert.False(t, l.Allow("c1", "/a", 1, time.Minute))
}

func TestReset(t *testing.T) {
	l := newSlidingWindowLimiter()
	assert.True(t, l.Allow("c1", "/a", 1, time.Minute))
	assert.False(t, l.Allow("c1", "/a", 1, time.Minute))
	l.Reset()
	assert.True(t, l.Allow("c1", "/a", 1, time.Minute))
}
