package database

import "sync/atomic"

// VersionSource hands out entity version stamps.
type VersionSource interface {
	// Next returns a value greater than every value returned before.
	Next() int64

	// Current returns the last value handed out.
	Current() int64
}

// Clock is a monotonic version counter.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
// Every transaction takes exactly one value from it.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock whose first Next returns start+1.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next version and advances the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last version without advancing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
