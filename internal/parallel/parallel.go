// Package parallel fans CPU kernel loops out over goroutines.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled    bool // Whether parallel execution is enabled.
	NumWorkers int  // Number of worker goroutines to use.
	MinWork    int  // Minimum total work (items * cost) before fanning out.
}

// DefaultConfig returns defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:    n > 1,
		NumWorkers: n,
		MinWork:    1 << 15,
	}
}

// Sequential returns a config that never spawns goroutines.
func Sequential() Config {
	return Config{Enabled: false, NumWorkers: 1}
}

// For executes f(i) for i in [0, n).
//
// itemCost is a rough per-item operation count; the loop runs sequentially when
// n*itemCost is below MinWork, when n < 2, or when parallelism is disabled.
// Each index is visited exactly once; f must be safe to call concurrently for
// distinct indices.
func (c Config) For(n, itemCost int, f func(i int)) {
	if !c.Enabled || n < 2 || c.NumWorkers < 2 || n*max(itemCost, 1) < c.MinWork {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	workers := min(c.NumWorkers, n)
	chunk := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				f(i)
			}
		}(start, end)
	}
	wg.Wait()
}

// ForBatch iterates the batch*channels grid common in convolution kernels.
func (c Config) ForBatch(batch, channels, itemCost int, f func(b, ch int)) {
	c.For(batch*channels, itemCost, func(k int) {
		f(k/channels, k%channels)
	})
}
