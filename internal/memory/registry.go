package memory

import "sync"

// registry tracks which pools are still alive.
//
// Handles may outlive the pool that issued them. Their release callback looks
// the pool up here instead of holding a reference to it, so that a closed pool
// is never touched again.
var registry = struct {
	mu     sync.Mutex
	nextID uint64
	pools  map[uint64]*Pool
}{pools: make(map[uint64]*Pool)}

func register(p *Pool) uint64 {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.nextID++
	registry.pools[registry.nextID] = p
	return registry.nextID
}

func unregister(id uint64) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	delete(registry.pools, id)
}

// withLivePool runs fn with the pool registered under id and reports whether
// it was found. The registry lock is held while fn runs.
func withLivePool(id uint64, fn func(p *Pool)) bool {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	p, ok := registry.pools[id]
	if !ok {
		return false
	}
	fn(p)
	return true
}

// LivePools returns the number of pools that have not been closed.
func LivePools() int {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	return len(registry.pools)
}
