// Package parallel splits batched kernels across goroutines.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls how a batch loop is split.
type Config struct {
	Workers  int // Upper bound on goroutines per loop. Values < 2 run inline.
	MinItems int // Loops shorter than this run inline.
}

// DefaultConfig uses one worker per schedulable CPU.
func DefaultConfig() Config {
	return Config{Workers: runtime.GOMAXPROCS(0), MinItems: 2}
}

// Serial is a Config that never starts goroutines.
var Serial = Config{}

// Batches calls f(n) for every n in [0, size) and returns when all calls
// are done. Calls for different n may run concurrently, so f must only
// write state owned by its batch item.
func (c Config) Batches(size int, f func(n int)) {
	if c.Workers < 2 || size < max(c.MinItems, 2) {
		for n := range size {
			f(n)
		}
		return
	}

	chunk := (size + c.Workers - 1) / c.Workers
	var wg sync.WaitGroup
	for start := 0; start < size; start += chunk {
		end := min(start+chunk, size)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := start; n < end; n++ {
				f(n)
			}
		}()
	}
	wg.Wait()
}
