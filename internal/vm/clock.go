package vm

import "sync/atomic"

// Clock is the monotonic logical clock that stamps trace records and
// ownership lifetimes.
//
// Seeds are loaded at tick 0; the first executed step is tick 1.
// The atomic counter lets Stats and Current be read from other
// goroutines while a run is in flight.
type Clock struct {
	tick atomic.Int64
}

// NewClock creates a clock at tick 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock positioned at start.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.tick.Store(start)
	return c
}

// Next advances the clock and returns the new tick.
func (c *Clock) Next() int64 {
	return c.tick.Add(1)
}

// Current returns the current tick without advancing.
func (c *Clock) Current() int64 {
	return c.tick.Load()
}

// Reset moves the clock back to tick 0.
func (c *Clock) Reset() {
	c.tick.Store(0)
}
