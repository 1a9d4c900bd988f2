package memory

import (
	"fmt"
	"math"
	"unsafe"
)

// MaxHeapBlock is the largest block a HeapAllocator hands out. Larger
// requests fail with ErrOutOfMemory instead of reaching the runtime.
const MaxHeapBlock = min(math.MaxInt/2, 1<<46)

// Allocator is the device-side primitive a Pool caches on top of.
//
// Allocate returns a pointer to at least size bytes. Free receives the same
// pointer and size that Allocate produced.
type Allocator interface {
	Allocate(size int) (*byte, error)
	Free(ptr *byte, size int)
}

// HeapAllocator allocates blocks on the Go heap.
//
// Limit, when positive, caps the number of bytes that may be outstanding at
// once. It exists so that exhaustion can be exercised without a real device.
type HeapAllocator struct {
	Limit int

	blocks map[*byte][]byte
	inUse  int
	allocs int
	frees  int
}

// NewHeapAllocator creates a heap allocator with the given byte limit (0 = unlimited).
func NewHeapAllocator(limit int) *HeapAllocator {
	return &HeapAllocator{
		Limit:  limit,
		blocks: make(map[*byte][]byte),
	}
}

// Allocate implements Allocator.
func (h *HeapAllocator) Allocate(size int) (*byte, error) {
	if size <= 0 {
		size = 1
	}
	if size > MaxHeapBlock {
		return nil, fmt.Errorf("%w: requested %d bytes, heap blocks are limited to %d", ErrOutOfMemory, size, MaxHeapBlock)
	}
	if h.Limit > 0 && h.inUse+size > h.Limit {
		return nil, fmt.Errorf("%w: requested %d bytes, %d of %d in use", ErrOutOfMemory, size, h.inUse, h.Limit)
	}
	// Backed by float32 words so that tensors can view the block as []float32.
	words := make([]float32, (size+3)/4)
	buf := unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(words))), size)
	ptr := unsafe.SliceData(buf)
	h.blocks[ptr] = buf
	h.inUse += size
	h.allocs++
	return ptr, nil
}

// Free implements Allocator.
func (h *HeapAllocator) Free(ptr *byte, size int) {
	if _, ok := h.blocks[ptr]; !ok {
		return
	}
	delete(h.blocks, ptr)
	if size <= 0 {
		size = 1
	}
	h.inUse -= size
	h.frees++
}

// InUse returns the number of bytes currently held by callers.
func (h *HeapAllocator) InUse() int { return h.inUse }

// Allocs returns the number of successful Allocate calls.
func (h *HeapAllocator) Allocs() int { return h.allocs }

// Frees returns the number of Free calls that released a block.
func (h *HeapAllocator) Frees() int { return h.frees }
