// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public tensor and device types of dagrad.
//
// # Overview
//
// A Tensor is a float32 array with a Shape, living on a Device. This package provides:
//   - Shape: dimensions plus a batch size, with the shape rules of every operator
//   - Device: memory pool and kernel dispatch for one backend
//   - Tensor: reference-counted view of device memory, copied on write
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/dagrad/backend/naive"
//	    "github.com/born-ml/dagrad/tensor"
//	)
//
//	func main() {
//	    dev := naive.New(naive.Config{Seed: 1})
//	    defer dev.Close()
//
//	    x, _ := dev.NewTensorByVector(tensor.Dims(2, 2), []float32{1, 2, 3, 4})
//	    y, _ := dev.Sum(x, 0) // [3, 7]
//	}
//
// # Memory Layout
//
// Elements are stored column-major: dimension 0 varies fastest and batch items
// follow each other. A shape with batch size 1 is broadcast against any batch
// size by elementwise operations.
//
// # Memory Management
//
// Tensor memory comes from the device pool. Tensors sharing memory keep it
// alive through a reference count; Release returns it to the pool once the
// last reference is dropped. Mutating methods copy shared memory first.
//
// # Errors
//
// Operations return errors wrapping ErrShape, ErrInvalidReference,
// ErrDeviceMismatch or ErrAllocation. Use errors.Is to test for them.
package tensor
