package ledger

import "sync/atomic"

// Clock is the ledger's monotonic logical clock.
//
// Every transaction entry is stamped with the next seq. Ordering never uses
// wall time, so replaying the same transactions yields the same log.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock whose first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock resuming after start, used when reopening a
// durable backend.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next increments and returns the seq.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued seq.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
