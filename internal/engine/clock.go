package engine

import "sync/atomic"

// Clock is the monotonic logical clock that stamps commits.
//
// Every committed state change takes the next value, so commit seq numbers
// expose the total order of writes. Wall-clock time is never used for
// ordering.
//
// Thread-safety: Clock is safe for concurrent use. In practice Next is only
// called inside the state cell's write lock.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0. The first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// Next increments the clock and returns the new value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last value handed out without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
