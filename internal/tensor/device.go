package tensor

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/born-ml/dagrad/internal/memory"
	"github.com/google/uuid"
)

// Device owns a memory pool and dispatches numeric primitives to its kernels.
//
// Devices compare by identity: two devices built from the same configuration
// are still different devices, and tensors from one cannot be combined with
// tensors from the other except through Copy.
//
// Every public method validates its operands and infers the output shape
// before calling a kernel, so kernels never see invalid input. A Device is
// not safe for concurrent use.
type Device struct {
	id      uuid.UUID
	kernels Kernels
	pool    *memory.Pool
	closed  bool
}

// NewDevice creates a device dispatching to k and allocating through alloc.
func NewDevice(k Kernels, alloc memory.Allocator) *Device {
	return &Device{
		id:      uuid.New(),
		kernels: k,
		pool:    memory.NewPool(alloc),
	}
}

// ID returns the unique identifier of the device.
func (d *Device) ID() uuid.UUID { return d.id }

// Name returns the name of the kernel implementation.
func (d *Device) Name() string { return d.kernels.Name() }

// String returns "name(id-prefix)".
func (d *Device) String() string {
	if d == nil {
		return "<nil device>"
	}
	return fmt.Sprintf("%s(%s)", d.kernels.Name(), d.id.String()[:8])
}

// PoolStats returns the counters of the device memory pool.
func (d *Device) PoolStats() memory.Stats { return d.pool.Stats() }

// Close releases cached memory and clears the default device if it is d.
// Tensors still alive keep their memory until they are released.
func (d *Device) Close() {
	if d.closed {
		return
	}
	d.closed = true
	d.pool.Close()
	defaultDevice.CompareAndSwap(d, nil)
}

var defaultDevice atomic.Pointer[Device]

// SetDefaultDevice selects the ambient device used by convenience front ends.
// Passing nil clears the selection.
func SetDefaultDevice(d *Device) {
	defaultDevice.Store(d)
}

// DefaultDevice returns the ambient device, or an error if none is selected.
func DefaultDevice() (*Device, error) {
	d := defaultDevice.Load()
	if d == nil {
		return nil, fmt.Errorf("%w: default device is not set", ErrInvalidReference)
	}
	return d, nil
}

// check validates that every tensor is backed by memory and lives on d.
func (d *Device) check(op string, xs ...*Tensor) error {
	for i, x := range xs {
		if !x.Valid() {
			return fmt.Errorf("%s: %w: argument %d is invalid", op, ErrInvalidReference, i)
		}
		if x.device != d {
			return fmt.Errorf("%s: %w: argument %d lives on %s, not %s", op, ErrDeviceMismatch, i, x.device, d)
		}
	}
	return nil
}

// NewTensor allocates a tensor with unspecified contents.
func (d *Device) NewTensor(shape Shape) (*Tensor, error) {
	h, err := d.pool.Allocate(4 * shape.Size())
	if err != nil {
		return nil, fmt.Errorf("new tensor %s on %s: %w", shape, d, err)
	}
	return &Tensor{shape: shape, device: d, handle: h}, nil
}

// NewTensorBy allocates a tensor with every element set to k.
func (d *Device) NewTensorBy(shape Shape, k float32) (*Tensor, error) {
	y, err := d.NewTensor(shape)
	if err != nil {
		return nil, err
	}
	d.kernels.Fill(y, k)
	return y, nil
}

// NewTensorByVector allocates a tensor holding values.
func (d *Device) NewTensorByVector(shape Shape, values []float32) (*Tensor, error) {
	if len(values) != shape.Size() {
		return nil, fmt.Errorf("%w: %d values for shape %s", ErrShape, len(values), shape)
	}
	y, err := d.NewTensor(shape)
	if err != nil {
		return nil, err
	}
	d.kernels.Load(y, values)
	return y, nil
}

// Copy returns a copy of x on d. x may live on any device.
func (d *Device) Copy(x *Tensor) (*Tensor, error) {
	if !x.Valid() {
		return nil, fmt.Errorf("copy: %w: argument is invalid", ErrInvalidReference)
	}
	y, err := d.NewTensor(x.shape)
	if err != nil {
		return nil, err
	}
	if x.device == d {
		d.kernels.Copy(x, y)
	} else {
		d.kernels.Load(y, unsafe.Slice((*float32)(unsafe.Pointer(x.handle.Ptr())), x.shape.Size()))
	}
	return y, nil
}

// Identity returns a size x size identity matrix.
func (d *Device) Identity(size int) (*Tensor, error) {
	if size <= 0 {
		return nil, fmt.Errorf("identity: %w: invalid size %d", ErrShape, size)
	}
	y, err := d.NewTensor(Dims(size, size))
	if err != nil {
		return nil, err
	}
	d.kernels.Identity(y)
	return y, nil
}

// RandomBernoulli samples each element from Bernoulli(p).
func (d *Device) RandomBernoulli(shape Shape, p float32) (*Tensor, error) {
	if p < 0 || p > 1 {
		return nil, fmt.Errorf("random bernoulli: invalid probability %v", p)
	}
	y, err := d.NewTensor(shape)
	if err != nil {
		return nil, err
	}
	d.kernels.RandomBernoulli(y, p)
	return y, nil
}

// RandomUniform samples each element from the uniform distribution on (lower, upper].
func (d *Device) RandomUniform(shape Shape, lower, upper float32) (*Tensor, error) {
	if lower >= upper {
		return nil, fmt.Errorf("random uniform: invalid range [%v, %v]", lower, upper)
	}
	y, err := d.NewTensor(shape)
	if err != nil {
		return nil, err
	}
	d.kernels.RandomUniform(y, lower, upper)
	return y, nil
}

// RandomNormal samples each element from N(mean, sd^2).
func (d *Device) RandomNormal(shape Shape, mean, sd float32) (*Tensor, error) {
	if sd <= 0 {
		return nil, fmt.Errorf("random normal: invalid standard deviation %v", sd)
	}
	y, err := d.NewTensor(shape)
	if err != nil {
		return nil, err
	}
	d.kernels.RandomNormal(y, mean, sd)
	return y, nil
}

// RandomLogNormal samples each element from a log-normal distribution.
func (d *Device) RandomLogNormal(shape Shape, mean, sd float32) (*Tensor, error) {
	if sd <= 0 {
		return nil, fmt.Errorf("random log-normal: invalid standard deviation %v", sd)
	}
	y, err := d.NewTensor(shape)
	if err != nil {
		return nil, err
	}
	d.kernels.RandomLogNormal(y, mean, sd)
	return y, nil
}

// Pick selects ids along dim.
func (d *Device) Pick(x *Tensor, ids []int, dim int) (*Tensor, error) {
	if err := d.check("pick", x); err != nil {
		return nil, err
	}
	s, err := Pick(x.shape, ids, dim)
	if err != nil {
		return nil, err
	}
	y, err := d.NewTensor(s)
	if err != nil {
		return nil, err
	}
	d.kernels.PickForward(x, ids, dim, y)
	return y, nil
}

// PickBackward adds gy into the rows of gx selected by ids.
func (d *Device) PickBackward(gy *Tensor, ids []int, dim int, gx *Tensor) error {
	if err := d.check("pick backward", gy, gx); err != nil {
		return err
	}
	s, err := Pick(gx.shape, ids, dim)
	if err != nil {
		return err
	}
	if !s.Equal(gy.shape) {
		return fmt.Errorf("pick backward: %w: gy %s vs expected %s", ErrShape, gy.shape, s)
	}
	if err := gx.makeUnique(); err != nil {
		return err
	}
	d.kernels.PickBackward(gy, ids, dim, gx)
	return nil
}

// Slice extracts [lower, upper) along dim.
func (d *Device) Slice(x *Tensor, dim, lower, upper int) (*Tensor, error) {
	if err := d.check("slice", x); err != nil {
		return nil, err
	}
	s, err := Slice(x.shape, dim, lower, upper)
	if err != nil {
		return nil, err
	}
	y, err := d.NewTensor(s)
	if err != nil {
		return nil, err
	}
	d.kernels.SliceForward(x, dim, lower, y)
	return y, nil
}

// SliceBackward adds gy into gx starting at offset along dim.
func (d *Device) SliceBackward(gy *Tensor, dim, offset int, gx *Tensor) error {
	if err := d.check("slice backward", gy, gx); err != nil {
		return err
	}
	s, err := Slice(gx.shape, dim, offset, offset+gy.shape.Dim(dim))
	if err != nil {
		return err
	}
	if !s.HasSameDims(gy.shape) || !gx.shape.HasCompatibleBatch(gy.shape) {
		return fmt.Errorf("slice backward: %w: gy %s vs gx %s", ErrShape, gy.shape, gx.shape)
	}
	if err := gx.makeUnique(); err != nil {
		return err
	}
	d.kernels.SliceBackward(gy, dim, offset, gx)
	return nil
}

// Concat joins xs along dim.
func (d *Device) Concat(xs []*Tensor, dim int) (*Tensor, error) {
	if err := d.check("concat", xs...); err != nil {
		return nil, err
	}
	shapes := make([]Shape, len(xs))
	for i, x := range xs {
		shapes[i] = x.shape
	}
	s, err := Concat(shapes, dim)
	if err != nil {
		return nil, err
	}
	y, err := d.NewTensor(s)
	if err != nil {
		return nil, err
	}
	d.kernels.ConcatForward(xs, dim, y)
	return y, nil
}

// Unary applies op to every element of x.
func (d *Device) Unary(op UnaryOp, x *Tensor) (*Tensor, error) {
	if err := d.check(op.String(), x); err != nil {
		return nil, err
	}
	y, err := d.NewTensor(x.shape)
	if err != nil {
		return nil, err
	}
	d.kernels.UnaryForward(op, x, y)
	return y, nil
}

// UnaryBackward adds the gradient of op into gx.
func (d *Device) UnaryBackward(op UnaryOp, x, y, gy, gx *Tensor) error {
	name := op.String() + " backward"
	if err := d.check(name, x, y, gy, gx); err != nil {
		return err
	}
	if err := sameShapes(name, x, y, gy, gx); err != nil {
		return err
	}
	if err := gx.makeUnique(); err != nil {
		return err
	}
	d.kernels.UnaryBackward(op, x, y, gy, gx)
	return nil
}

// Const applies op with constant k to every element of x.
func (d *Device) Const(op ConstOp, k float32, x *Tensor) (*Tensor, error) {
	if err := d.check(op.String(), x); err != nil {
		return nil, err
	}
	y, err := d.NewTensor(x.shape)
	if err != nil {
		return nil, err
	}
	d.kernels.ConstForward(op, k, x, y)
	return y, nil
}

// ConstBackward adds the gradient of op into gx.
func (d *Device) ConstBackward(op ConstOp, k float32, x, y, gy, gx *Tensor) error {
	name := op.String() + " backward"
	if err := d.check(name, x, y, gy, gx); err != nil {
		return err
	}
	if err := sameShapes(name, x, y, gy, gx); err != nil {
		return err
	}
	if err := gx.makeUnique(); err != nil {
		return err
	}
	d.kernels.ConstBackward(op, k, x, y, gy, gx)
	return nil
}

// BinaryShape returns the result shape of a binary operation on a and b.
// Operands must be elementwise compatible, or one of them must be a scalar
// per batch item.
func BinaryShape(a, b Shape) (Shape, error) {
	s, err := Elementwise(a, b)
	if err == nil {
		return s, nil
	}
	switch {
	case b.IsScalar():
		return ScalarOp(a, b)
	case a.IsScalar():
		return ScalarOp(b, a)
	}
	return Shape{}, err
}

// Binary applies op elementwise to a and b.
func (d *Device) Binary(op BinaryOp, a, b *Tensor) (*Tensor, error) {
	if err := d.check(op.String(), a, b); err != nil {
		return nil, err
	}
	s, err := BinaryShape(a.shape, b.shape)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	y, err := d.NewTensor(s)
	if err != nil {
		return nil, err
	}
	d.kernels.BinaryForward(op, a, b, y)
	return y, nil
}

// BinaryBackward adds the gradients of op into ga and gb.
func (d *Device) BinaryBackward(op BinaryOp, a, b, y, gy, ga, gb *Tensor) error {
	name := op.String() + " backward"
	if err := d.check(name, a, b, y, gy, ga, gb); err != nil {
		return err
	}
	s, err := BinaryShape(a.shape, b.shape)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if !s.Equal(y.shape) || !y.shape.Equal(gy.shape) || !a.shape.Equal(ga.shape) || !b.shape.Equal(gb.shape) {
		return fmt.Errorf("%s: %w: inconsistent gradient shapes", name, ErrShape)
	}
	if err := ga.makeUnique(); err != nil {
		return err
	}
	if err := gb.makeUnique(); err != nil {
		return err
	}
	d.kernels.BinaryBackward(op, a, b, y, gy, ga, gb)
	return nil
}

// Transpose returns the transpose of a matrix.
func (d *Device) Transpose(x *Tensor) (*Tensor, error) {
	if err := d.check("transpose", x); err != nil {
		return nil, err
	}
	s, err := Transpose(x.shape)
	if err != nil {
		return nil, err
	}
	y, err := d.NewTensor(s)
	if err != nil {
		return nil, err
	}
	d.kernels.TransposeForward(x, y)
	return y, nil
}

// TransposeBackward adds the transpose of gy into gx.
func (d *Device) TransposeBackward(gy, gx *Tensor) error {
	if err := d.check("transpose backward", gy, gx); err != nil {
		return err
	}
	s, err := Transpose(gx.shape)
	if err != nil {
		return err
	}
	if !s.Equal(gy.shape) {
		return fmt.Errorf("transpose backward: %w: gy %s vs gx %s", ErrShape, gy.shape, gx.shape)
	}
	if err := gx.makeUnique(); err != nil {
		return err
	}
	d.kernels.TransposeBackward(gy, gx)
	return nil
}

// MatMul returns the matrix product a*b.
func (d *Device) MatMul(a, b *Tensor) (*Tensor, error) {
	if err := d.check("matmul", a, b); err != nil {
		return nil, err
	}
	s, err := MatMul(a.shape, b.shape)
	if err != nil {
		return nil, err
	}
	y, err := d.NewTensor(s)
	if err != nil {
		return nil, err
	}
	d.kernels.MatMulForward(a, b, y)
	return y, nil
}

// MatMulBackward adds the gradients of a*b into ga and gb.
func (d *Device) MatMulBackward(a, b, gy, ga, gb *Tensor) error {
	if err := d.check("matmul backward", a, b, gy, ga, gb); err != nil {
		return err
	}
	s, err := MatMul(a.shape, b.shape)
	if err != nil {
		return err
	}
	if !s.Equal(gy.shape) || !a.shape.Equal(ga.shape) || !b.shape.Equal(gb.shape) {
		return fmt.Errorf("matmul backward: %w: inconsistent gradient shapes", ErrShape)
	}
	if err := ga.makeUnique(); err != nil {
		return err
	}
	if err := gb.makeUnique(); err != nil {
		return err
	}
	d.kernels.MatMulBackward(a, b, gy, ga, gb)
	return nil
}

func (d *Device) reduce(name string, x *Tensor, dim int, kernel func(x *Tensor, dim int, y *Tensor)) (*Tensor, error) {
	if err := d.check(name, x); err != nil {
		return nil, err
	}
	s, err := Reduce(x.shape, dim)
	if err != nil {
		return nil, err
	}
	y, err := d.NewTensor(s)
	if err != nil {
		return nil, err
	}
	kernel(x, dim, y)
	return y, nil
}

// Sum adds the elements of x along dim.
func (d *Device) Sum(x *Tensor, dim int) (*Tensor, error) {
	return d.reduce("sum", x, dim, d.kernels.SumForward)
}

// LogSumExp computes log(sum(exp(x))) along dim.
func (d *Device) LogSumExp(x *Tensor, dim int) (*Tensor, error) {
	return d.reduce("logsumexp", x, dim, d.kernels.LogSumExpForward)
}

// Broadcast repeats x size times along dim, which must have size 1.
func (d *Device) Broadcast(x *Tensor, dim, size int) (*Tensor, error) {
	if err := d.check("broadcast", x); err != nil {
		return nil, err
	}
	s, err := Broadcast(x.shape, dim, size)
	if err != nil {
		return nil, err
	}
	y, err := d.NewTensor(s)
	if err != nil {
		return nil, err
	}
	d.kernels.BroadcastForward(x, dim, size, y)
	return y, nil
}

// BatchSum adds the batch items of x together.
func (d *Device) BatchSum(x *Tensor) (*Tensor, error) {
	if err := d.check("batch sum", x); err != nil {
		return nil, err
	}
	s, err := BatchReduce(x.shape)
	if err != nil {
		return nil, err
	}
	y, err := d.NewTensor(s)
	if err != nil {
		return nil, err
	}
	d.kernels.BatchSumForward(x, y)
	return y, nil
}

// ArgMax returns the index of the largest element along dim for every other position.
func (d *Device) ArgMax(x *Tensor, dim int) ([]int, error) {
	if err := d.check("argmax", x); err != nil {
		return nil, err
	}
	if dim < 0 {
		return nil, fmt.Errorf("argmax: %w: dim=%d", ErrShape, dim)
	}
	return d.kernels.ArgMax(x, dim), nil
}

// ArgMin returns the index of the smallest element along dim for every other position.
func (d *Device) ArgMin(x *Tensor, dim int) ([]int, error) {
	if err := d.check("argmin", x); err != nil {
		return nil, err
	}
	if dim < 0 {
		return nil, fmt.Errorf("argmin: %w: dim=%d", ErrShape, dim)
	}
	return d.kernels.ArgMin(x, dim), nil
}

// InplaceMultiplyConst multiplies x by k in place.
func (d *Device) InplaceMultiplyConst(k float32, x *Tensor) error {
	if err := d.check("inplace multiply", x); err != nil {
		return err
	}
	if err := x.makeUnique(); err != nil {
		return err
	}
	d.kernels.InplaceMultiplyConst(k, x)
	return nil
}

// InplaceAdd adds x into y.
func (d *Device) InplaceAdd(x, y *Tensor) error {
	if err := d.checkInplace("inplace add", x, y); err != nil {
		return err
	}
	d.kernels.InplaceAdd(x, y)
	return nil
}

// InplaceSubtract subtracts x from y.
func (d *Device) InplaceSubtract(x, y *Tensor) error {
	if err := d.checkInplace("inplace subtract", x, y); err != nil {
		return err
	}
	d.kernels.InplaceSubtract(x, y)
	return nil
}

func (d *Device) checkInplace(name string, x, y *Tensor) error {
	if err := d.check(name, x, y); err != nil {
		return err
	}
	if !x.shape.HasSameDims(y.shape) || !x.shape.HasCompatibleBatch(y.shape) {
		return fmt.Errorf("%s: %w: %s into %s", name, ErrShape, x.shape, y.shape)
	}
	return y.makeUnique()
}

func sameShapes(name string, xs ...*Tensor) error {
	for _, x := range xs[1:] {
		if !x.shape.Equal(xs[0].shape) {
			return fmt.Errorf("%s: %w: %s vs %s", name, ErrShape, xs[0].shape, x.shape)
		}
	}
	return nil
}
