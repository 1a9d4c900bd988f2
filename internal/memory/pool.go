package memory

import (
	"fmt"
	"log/slog"
	"math/bits"

	"github.com/emirpasic/gods/v2/stacks/arraystack"
)

// MaxClass is the largest supported size class (blocks of 1<<MaxClass bytes).
const MaxClass = 62

// Stats tracks pool usage.
type Stats struct {
	Hits          int // Allocations served from a free-list
	Misses        int // Allocations forwarded to the allocator
	Reclaims      int // Times cached blocks were released to retry a failed allocation
	Reserved      int // Cached blocks waiting for reuse
	ReservedBytes int
	Supplied      int // Blocks currently handed out
	SuppliedBytes int
}

// Pool is a caching allocator keyed by power-of-two size classes.
//
// A Pool is not safe for concurrent use. Handles it returns may be released
// after the pool is closed; their memory then goes straight back to the
// allocator.
type Pool struct {
	id       uint64
	alloc    Allocator
	reserved [MaxClass + 1]*arraystack.Stack[*byte]
	supplied map[*byte]int
	stats    Stats
	closed   bool
}

// NewPool creates a pool on top of alloc and registers it as live.
func NewPool(alloc Allocator) *Pool {
	p := &Pool{
		alloc:    alloc,
		supplied: make(map[*byte]int),
	}
	for i := range p.reserved {
		p.reserved[i] = arraystack.New[*byte]()
	}
	p.id = register(p)
	return p
}

// ID returns the registry id of the pool.
func (p *Pool) ID() uint64 { return p.id }

// SizeClass returns the class used for a request of size bytes.
// Sizes 0 and 1 map to class 0.
func SizeClass(size int) (int, error) {
	if size < 0 {
		return 0, fmt.Errorf("%w: negative size %d", ErrAllocation, size)
	}
	if size <= 1 {
		return 0, nil
	}
	class := bits.Len64(uint64(size - 1))
	if class > MaxClass {
		return 0, fmt.Errorf("%w: %d bytes exceeds the largest size class", ErrAllocation, size)
	}
	return class, nil
}

// Allocate returns a handle to a block of at least size bytes.
//
// When the allocator fails, every cached block is returned to it and the
// request is retried once.
func (p *Pool) Allocate(size int) (*Handle, error) {
	if p.closed {
		return nil, ErrPoolClosed
	}
	class, err := SizeClass(size)
	if err != nil {
		return nil, err
	}

	ptr, ok := p.reserved[class].Pop()
	if ok {
		p.stats.Hits++
	} else {
		p.stats.Misses++
		ptr, err = p.alloc.Allocate(1 << class)
		if err != nil {
			slog.Debug("memory pool reclaiming cached blocks", "pool", p.id, "class", class, "error", err)
			p.stats.Reclaims++
			p.releaseReserved()
			ptr, err = p.alloc.Allocate(1 << class)
			if err != nil {
				return nil, fmt.Errorf("%w: %d bytes (class %d): %w", ErrAllocation, size, class, err)
			}
		}
	}
	p.supplied[ptr] = class

	id, alloc := p.id, p.alloc
	return newHandle(ptr, size, func(ptr *byte) {
		if !withLivePool(id, func(live *Pool) { live.free(ptr) }) {
			alloc.Free(ptr, 1<<class)
		}
	}), nil
}

// free moves a supplied block onto its class free-list.
func (p *Pool) free(ptr *byte) {
	class, ok := p.supplied[ptr]
	if !ok {
		panic(fmt.Sprintf("memory: pool %d released unknown block %p", p.id, ptr))
	}
	delete(p.supplied, ptr)
	p.reserved[class].Push(ptr)
}

// releaseReserved returns every cached block to the allocator.
func (p *Pool) releaseReserved() {
	for class, stack := range p.reserved {
		for {
			ptr, ok := stack.Pop()
			if !ok {
				break
			}
			p.alloc.Free(ptr, 1<<class)
		}
	}
}

// Release returns every cached block to the allocator without closing the pool.
func (p *Pool) Release() {
	p.releaseReserved()
}

// Close unregisters the pool and returns cached blocks to the allocator.
// Outstanding handles stay valid and free their blocks directly when released.
func (p *Pool) Close() {
	if p.closed {
		return
	}
	unregister(p.id)
	p.closed = true
	p.releaseReserved()
	// Ownership of outstanding blocks passes to the handles' release callbacks.
	clear(p.supplied)
}

// Closed reports whether Close has been called.
func (p *Pool) Closed() bool { return p.closed }

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	s := p.stats
	s.Reserved, s.ReservedBytes = 0, 0
	for class, stack := range p.reserved {
		n := stack.Size()
		s.Reserved += n
		s.ReservedBytes += n << class
	}
	s.Supplied, s.SuppliedBytes = len(p.supplied), 0
	for _, class := range p.supplied {
		s.SuppliedBytes += 1 << class
	}
	return s
}
