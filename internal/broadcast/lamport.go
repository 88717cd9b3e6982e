package broadcast

import "sync"

// LamportClock orders cache writes across instances without relying on wall time
type LamportClock struct {
	mu  sync.Mutex
	seq uint64
}

// NewLamportClock creates a clock starting at zero
func NewLamportClock() *LamportClock {
	return &LamportClock{}
}

// Tick advances the clock for a local event and returns the new value
func (c *LamportClock) Tick() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Observe merges a remote value so later local ticks order after it
func (c *LamportClock) Observe(seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq > c.seq {
		c.seq = seq
	}
}

// Current returns the clock value without advancing it
func (c *LamportClock) Current() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}
