// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package naive provides the portable CPU backend.
//
// # Overview
//
// This package implements tensor kernels with:
//   - Pure Go loops over float32 slices (no CGO)
//   - gonum BLAS for matrix products
//   - A seeded PCG generator for random tensors
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/dagrad/backend/naive"
//	    "github.com/born-ml/dagrad/tensor"
//	)
//
//	func main() {
//	    dev := naive.New(naive.DefaultConfig())
//	    defer dev.Close()
//	    x, _ := dev.NewTensorBy(tensor.Dims(2, 3), 1)
//	    defer x.Release()
//	}
//
// # Configuration
//
// DefaultConfig reads DAGRAD_SEED and DAGRAD_MEMORY_LIMIT. A memory limit makes
// allocations fail with tensor.ErrAllocation once the device holds that many
// bytes, after cached blocks have been released.
package naive
