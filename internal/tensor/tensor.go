package tensor

import (
	"fmt"
	"unsafe"

	"github.com/born-ml/dagrad/internal/memory"
	"github.com/x448/float16"
)

// Tensor is a shape-typed view over device memory.
//
// Memory is shared between tensors through a reference-counted handle:
// Retain creates another owner and Release drops the receiver's ownership.
// In-place updates copy the storage first when it is shared, so a tensor
// never changes the contents seen by another owner.
//
// The zero value, a nil pointer and a released tensor are invalid; every
// operation on them fails with ErrInvalidReference.
type Tensor struct {
	shape  Shape
	device *Device
	handle *memory.Handle
}

// Valid reports whether the tensor is backed by memory.
func (t *Tensor) Valid() bool {
	return t != nil && t.handle != nil
}

func (t *Tensor) check() error {
	if !t.Valid() {
		return fmt.Errorf("%w: tensor is not backed by memory", ErrInvalidReference)
	}
	return nil
}

// Shape returns the shape of the tensor.
func (t *Tensor) Shape() Shape {
	if t == nil {
		return Shape{}
	}
	return t.shape
}

// Device returns the device holding the tensor memory, or nil if invalid.
func (t *Tensor) Device() *Device {
	if !t.Valid() {
		return nil
	}
	return t.device
}

// Data returns the elements as a float32 slice aliasing device memory.
// Callers that write through it must own the tensor exclusively.
// Returns nil for invalid tensors.
func (t *Tensor) Data() []float32 {
	if !t.Valid() {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(t.handle.Ptr())), t.shape.Size())
}

// Unique reports whether no other tensor shares this tensor's memory.
func (t *Tensor) Unique() bool {
	return t.Valid() && t.handle.Unique()
}

// Retain returns a new tensor sharing the same memory.
func (t *Tensor) Retain() *Tensor {
	if !t.Valid() {
		return &Tensor{}
	}
	return &Tensor{shape: t.shape, device: t.device, handle: t.handle.Retain()}
}

// Release drops the tensor's ownership of its memory and invalidates it.
// Releasing an invalid tensor is a no-op.
func (t *Tensor) Release() {
	if !t.Valid() {
		return
	}
	t.handle.Release()
	t.handle = nil
	t.device = nil
}

// String returns a short description of the tensor.
func (t *Tensor) String() string {
	if !t.Valid() {
		return "Tensor(invalid)"
	}
	return fmt.Sprintf("Tensor(%s, %s)", t.shape, t.device)
}

// ToVector returns a copy of the elements.
func (t *Tensor) ToVector() ([]float32, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	return append([]float32(nil), t.Data()...), nil
}

// ToFloat returns the only element of a tensor of size 1.
func (t *Tensor) ToFloat() (float32, error) {
	if err := t.check(); err != nil {
		return 0, err
	}
	if t.shape.Size() != 1 {
		return 0, fmt.Errorf("%w: ToFloat on tensor of shape %s", ErrShape, t.shape)
	}
	return t.Data()[0], nil
}

// ToFloat16 returns the elements converted to IEEE 754 half precision.
func (t *Tensor) ToFloat16() ([]float16.Float16, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	data := t.Data()
	out := make([]float16.Float16, len(data))
	for i, v := range data {
		out[i] = float16.Fromfloat32(v)
	}
	return out, nil
}

// ArgMax returns, for every position outside dim, the index of the largest element along dim.
func (t *Tensor) ArgMax(dim int) ([]int, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	return t.device.ArgMax(t, dim)
}

// ArgMin returns, for every position outside dim, the index of the smallest element along dim.
func (t *Tensor) ArgMin(dim int) ([]int, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	return t.device.ArgMin(t, dim)
}

// Reshape returns a view of the tensor with another shape sharing the same memory.
func (t *Tensor) Reshape(shape Shape) (*Tensor, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	s, err := Reshape(t.shape, shape)
	if err != nil {
		return nil, err
	}
	return &Tensor{shape: s, device: t.device, handle: t.handle.Retain()}, nil
}

// Flatten returns a column-vector view of the tensor.
func (t *Tensor) Flatten() (*Tensor, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	s, err := Flatten(t.shape)
	if err != nil {
		return nil, err
	}
	return t.Reshape(s)
}

// Reset sets every element to k.
func (t *Tensor) Reset(k float32) error {
	if err := t.makeUnique(); err != nil {
		return err
	}
	t.device.kernels.Fill(t, k)
	return nil
}

// ResetByVector overwrites the elements with values.
func (t *Tensor) ResetByVector(values []float32) error {
	if err := t.check(); err != nil {
		return err
	}
	if len(values) != t.shape.Size() {
		return fmt.Errorf("%w: %d values for tensor of shape %s", ErrShape, len(values), t.shape)
	}
	if err := t.makeUnique(); err != nil {
		return err
	}
	t.device.kernels.Load(t, values)
	return nil
}

// InplaceMultiplyConst multiplies every element by k.
func (t *Tensor) InplaceMultiplyConst(k float32) error {
	if err := t.check(); err != nil {
		return err
	}
	return t.device.InplaceMultiplyConst(k, t)
}

// InplaceAdd adds x to the tensor. A batch of 1 on either side is broadcast or summed.
func (t *Tensor) InplaceAdd(x *Tensor) error {
	if err := t.check(); err != nil {
		return err
	}
	return t.device.InplaceAdd(x, t)
}

// InplaceSubtract subtracts x from the tensor.
func (t *Tensor) InplaceSubtract(x *Tensor) error {
	if err := t.check(); err != nil {
		return err
	}
	return t.device.InplaceSubtract(x, t)
}

// makeUnique gives the tensor its own copy of the memory when it is shared.
func (t *Tensor) makeUnique() error {
	if err := t.check(); err != nil {
		return err
	}
	if t.handle.Unique() {
		return nil
	}
	fresh, err := t.device.pool.Allocate(4 * t.shape.Size())
	if err != nil {
		return err
	}
	copy(unsafe.Slice((*float32)(unsafe.Pointer(fresh.Ptr())), t.shape.Size()), t.Data())
	t.handle.Release()
	t.handle = fresh
	return nil
}
