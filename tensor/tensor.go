// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/dagrad/internal/tensor"
)

// Shape represents dimensions plus a batch size.
// Example: Dims(2, 3) is a 2×3 matrix; MustShape([]int{2, 3}, 4) is four of them.
type Shape = tensor.Shape

// Tensor is a reference-counted view of device memory.
type Tensor = tensor.Tensor

// Device owns a memory pool and dispatches to one set of kernels.
type Device = tensor.Device

// Kernels is implemented by backends.
type Kernels = tensor.Kernels

// Elementwise function selectors.
type (
	UnaryOp  = tensor.UnaryOp
	ConstOp  = tensor.ConstOp
	BinaryOp = tensor.BinaryOp
)

// Unary functions.
const (
	Negate   = tensor.Negate
	Sqrt     = tensor.Sqrt
	Exp      = tensor.Exp
	Log      = tensor.Log
	Tanh     = tensor.Tanh
	Sigmoid  = tensor.Sigmoid
	Softplus = tensor.Softplus
	Sin      = tensor.Sin
	Cos      = tensor.Cos
	Tan      = tensor.Tan
)

// Functions of a tensor and a constant.
const (
	AddConst       = tensor.AddConst
	SubtractConstR = tensor.SubtractConstR
	SubtractConstL = tensor.SubtractConstL
	MultiplyConst  = tensor.MultiplyConst
	DivideConstR   = tensor.DivideConstR
	DivideConstL   = tensor.DivideConstL
	PReLU          = tensor.PReLU
	ELU            = tensor.ELU
)

// Functions of two tensors.
const (
	Add      = tensor.Add
	Subtract = tensor.Subtract
	Multiply = tensor.Multiply
	Divide   = tensor.Divide
)

// Errors.
var (
	ErrShape            = tensor.ErrShape
	ErrInvalidReference = tensor.ErrInvalidReference
	ErrDeviceMismatch   = tensor.ErrDeviceMismatch
	ErrAllocation       = tensor.ErrAllocation
)

// NewShape creates a shape from dimensions and a batch size.
// Trailing dimensions of size 1 are dropped.
func NewShape(dims []int, batch int) (Shape, error) {
	return tensor.NewShape(dims, batch)
}

// MustShape is NewShape that panics on invalid input.
func MustShape(dims []int, batch int) Shape {
	return tensor.MustShape(dims, batch)
}

// Dims creates a shape with batch size 1.
func Dims(dims ...int) Shape {
	return tensor.Dims(dims...)
}

// NewDevice creates a device from kernels and an allocator.
func NewDevice(k Kernels, alloc Allocator) *Device {
	return tensor.NewDevice(k, alloc)
}

// SetDefaultDevice selects the device used by default scopes. nil clears it.
func SetDefaultDevice(d *Device) {
	tensor.SetDefaultDevice(d)
}

// DefaultDevice returns the default device.
func DefaultDevice() (*Device, error) {
	return tensor.DefaultDevice()
}
