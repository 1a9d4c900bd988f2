// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/dagrad/internal/memory"
)

// Allocator supplies raw device memory to a pool.
type Allocator = memory.Allocator

// HeapAllocator allocates from the Go heap with an optional byte limit.
type HeapAllocator = memory.HeapAllocator

// PoolStats reports the state of a device memory pool.
type PoolStats = memory.Stats

// NewHeapAllocator creates a heap allocator. A limit of 0 is unlimited.
func NewHeapAllocator(limit int) *HeapAllocator {
	return memory.NewHeapAllocator(limit)
}

// LivePools returns the number of memory pools that are not closed.
func LivePools() int {
	return memory.LivePools()
}
