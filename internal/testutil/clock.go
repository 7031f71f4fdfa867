package testutil

import (
	"sync"
	"time"
)

// Epoch is the default starting instant for ManualClock: 2023-11-14T22:13:20Z.
var Epoch = time.UnixMilli(1700000000000).UTC()

// ManualClock is a wall clock that only moves when told to.
//
// Unlike clock.System, ManualClock makes TTL expiry and updatedAt stamps
// reproducible, so the same scenario produces byte-identical traces.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock creates a clock reading start. A zero start means Epoch.
func NewManualClock(start time.Time) *ManualClock {
	if start.IsZero() {
		start = Epoch
	}
	return &ManualClock{now: start.UTC()}
}

// Now returns the current reading.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d and returns the new reading.
// Negative durations move it backward.
func (c *ManualClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// Set jumps the clock to t.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t.UTC()
}
