// Package memory implements the caching allocator that backs device tensors.
//
// A Pool rounds every request up to a power-of-two size class and keeps
// released blocks on per-class free-lists so that repeated allocations of the
// same size are served without touching the underlying Allocator. Blocks are
// handed out as reference-counted Handles; when the last owner releases a
// Handle its block goes back to the pool, or straight to the allocator when
// the pool has already been closed.
package memory
