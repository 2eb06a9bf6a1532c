// internal/host/clock.go

package host

import (
	"sync/atomic"
	"time"
)

// Clock reports milliseconds elapsed since it was created and counts the
// turns run against it.
type Clock struct {
	anchor time.Time // carries the monotonic reading
	count  atomic.Int64
}

// NewClock creates a clock anchored at the current instant.
func NewClock() *Clock {
	return &Clock{anchor: time.Now()}
}

// Now returns the elapsed milliseconds, never going backwards.
func (c *Clock) Now() int64 {
	return time.Since(c.anchor).Milliseconds()
}

// Count returns the number of turns run so far.
func (c *Clock) Count() int64 {
	return c.count.Load()
}

func (c *Clock) tick() {
	c.count.Add(1)
}
