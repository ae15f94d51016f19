package testutil

import "sync"

// TickClock is a resettable logical tick source for tests.
//
// It satisfies ownership.TickSource, so checker tests can drive lifetimes
// without an engine. The first call to Next() returns 1.
type TickClock struct {
	mu   sync.Mutex
	tick int64
}

// NewTickClock creates a clock at tick 0.
func NewTickClock() *TickClock {
	return &TickClock{}
}

// NewTickClockAt creates a clock positioned at start.
func NewTickClockAt(start int64) *TickClock {
	return &TickClock{tick: start}
}

// Next advances the clock by one and returns the new tick.
func (c *TickClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tick++
	return c.tick
}

// Current returns the current tick without advancing.
func (c *TickClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tick
}

// Advance moves the clock forward n ticks and returns the new tick.
func (c *TickClock) Advance(n int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tick += n
	return c.tick
}

// Reset puts the clock back at tick 0.
func (c *TickClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tick = 0
}
