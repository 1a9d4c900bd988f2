package memory

import (
	"sync/atomic"
	"unsafe"
)

// Handle is a reference-counted block of device memory.
//
// The first owner receives the Handle with a count of one. Retain adds an
// owner and Release drops one; when the count reaches zero the release
// callback runs exactly once. A Handle with a single owner is unique, which
// lets tensors update their storage in place instead of copying.
type Handle struct {
	ptr     *byte
	size    int
	refs    atomic.Int32
	release func(ptr *byte)
}

func newHandle(ptr *byte, size int, release func(ptr *byte)) *Handle {
	h := &Handle{ptr: ptr, size: size, release: release}
	h.refs.Store(1)
	return h
}

// Ptr returns the address of the first byte of the block.
func (h *Handle) Ptr() *byte { return h.ptr }

// Size returns the number of usable bytes, which is the size originally requested.
func (h *Handle) Size() int { return h.size }

// Bytes returns the block as a byte slice of length Size.
func (h *Handle) Bytes() []byte {
	return unsafe.Slice(h.ptr, h.size)
}

// Retain adds an owner and returns the same handle.
func (h *Handle) Retain() *Handle {
	h.refs.Add(1)
	return h
}

// Release drops an owner. The block is returned when the last owner releases it.
func (h *Handle) Release() {
	if h.refs.Add(-1) == 0 && h.release != nil {
		h.release(h.ptr)
	}
}

// Unique reports whether the handle has exactly one owner.
func (h *Handle) Unique() bool {
	return h.refs.Load() == 1
}

// Refs returns the current owner count.
func (h *Handle) Refs() int {
	return int(h.refs.Load())
}
