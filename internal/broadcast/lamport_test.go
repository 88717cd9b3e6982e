package broadcast

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLamportClock_TickAndObserve(t *testing.T) {
	c := NewLamportClock()

	assert.Equal(t, uint64(1), c.Tick())
	assert.Equal(t, uint64(2), c.Tick())

	c.Observe(10)
	assert.Equal(t, uint64(10), c.Current())
	assert.Equal(t, uint64(11), c.Tick())

	// Observing an older value never moves the clock back
	c.Observe(3)
	assert.Equal(t, uint64(11), c.Current())
}

func TestLamportClock_Concurrent(t *testing.T) {
	c := NewLamportClock()
	var wg sync.WaitGroup
	seen := make(chan uint64, 1000)

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				seen <- c.Tick()
			}
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[uint64]struct{})
	for v := range seen {
		unique[v] = struct{}{}
	}
	assert.Len(t, unique, 1000)
	assert.Equal(t, uint64(1000), c.Current())
}
