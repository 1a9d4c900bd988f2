package memory

import "errors"

// Sentinel errors for the memory package.
var (
	// ErrAllocation is returned when the allocator cannot satisfy a request
	// even after the pool has returned every cached block.
	ErrAllocation = errors.New("memory: allocation failed")

	// ErrOutOfMemory is returned by allocators that hit their configured limit.
	ErrOutOfMemory = errors.New("memory: out of memory")

	// ErrPoolClosed is returned when allocating from a closed pool.
	ErrPoolClosed = errors.New("memory: pool closed")
)
