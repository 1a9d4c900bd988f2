// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package naive

import (
	internalnaive "github.com/born-ml/dagrad/internal/backend/naive"
	"github.com/born-ml/dagrad/internal/parallel"
	"github.com/born-ml/dagrad/tensor"
)

// Backend represents the naive kernel set.
type Backend = internalnaive.Backend

// Config holds the device options.
type Config = internalnaive.Config

// ParallelConfig controls how batched matrix products are split across goroutines.
type ParallelConfig = parallel.Config

// Serial never splits kernels across goroutines.
var Serial = parallel.Serial

// DefaultParallel uses one worker per schedulable CPU.
func DefaultParallel() ParallelConfig {
	return parallel.DefaultConfig()
}

// Compile-time check that Backend implements tensor.Kernels.
var _ tensor.Kernels = (*Backend)(nil)

// New creates a device backed by naive kernels and the Go heap.
//
// Example:
//
//	dev := naive.New(naive.Config{Seed: 42, MemoryLimit: 1 << 30})
//	defer dev.Close()
func New(cfg Config) *tensor.Device {
	return internalnaive.New(cfg)
}

// NewBackend creates the kernels alone, for use with tensor.NewDevice.
func NewBackend(seed uint64) *Backend {
	return internalnaive.NewBackend(seed)
}

// DefaultConfig reads the options from the environment.
func DefaultConfig() Config {
	return internalnaive.DefaultConfig()
}
