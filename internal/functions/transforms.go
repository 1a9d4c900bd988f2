package functions

import (
	"fmt"

	"github.com/born-ml/dagrad/internal/tensor"
)

// Copy moves a value to Device.
//
// Backward pass: the gradient is copied back to the device of the argument.
type Copy struct {
	Device *tensor.Device
}

// Name returns the label of the copy.
func (f *Copy) Name() string { return "copy" }

// ForwardShapes validates the arguments and returns the shape of the copy.
func (f *Copy) ForwardShapes(args []tensor.Shape) ([]tensor.Shape, error) {
	if err := arity(f.Name(), args, 1); err != nil {
		return nil, err
	}
	if f.Device == nil {
		return nil, fmt.Errorf("copy: %w: nil device", tensor.ErrInvalidReference)
	}
	return args, nil
}

// Forward computes the copy.
func (f *Copy) Forward(args []*tensor.Tensor) ([]*tensor.Tensor, error) {
	return single(f.Device.Copy(args[0]))
}

// Backward accumulates the argument gradients of the copy.
func (f *Copy) Backward(_, _, gys, gargs []*tensor.Tensor) error {
	tmp, err := gargs[0].Device().Copy(gys[0])
	return addInto(gargs[0], tmp, err)
}

// Pick selects IDs along Dim. Several IDs select one per batch item.
type Pick struct {
	IDs []int
	Dim int
}

// Name returns the label of the pick.
func (f *Pick) Name() string { return fmt.Sprintf("pick(%v,%d)", f.IDs, f.Dim) }

// ForwardShapes validates the arguments and returns the shape of the pick.
func (f *Pick) ForwardShapes(args []tensor.Shape) ([]tensor.Shape, error) {
	if err := arity(f.Name(), args, 1); err != nil {
		return nil, err
	}
	return one(tensor.Pick(args[0], f.IDs, f.Dim))
}

// Forward computes the pick.
func (f *Pick) Forward(args []*tensor.Tensor) ([]*tensor.Tensor, error) {
	return single(args[0].Device().Pick(args[0], f.IDs, f.Dim))
}

// Backward accumulates the argument gradients of the pick.
func (f *Pick) Backward(args, _, gys, gargs []*tensor.Tensor) error {
	return args[0].Device().PickBackward(gys[0], f.IDs, f.Dim, gargs[0])
}

// Slice extracts [Lower, Upper) along Dim.
type Slice struct {
	Dim, Lower, Upper int
}

// Name returns the label of the slice.
func (f *Slice) Name() string { return fmt.Sprintf("slice(%d,%d:%d)", f.Dim, f.Lower, f.Upper) }

// ForwardShapes validates the arguments and returns the shape of the slice.
func (f *Slice) ForwardShapes(args []tensor.Shape) ([]tensor.Shape, error) {
	if err := arity(f.Name(), args, 1); err != nil {
		return nil, err
	}
	return one(tensor.Slice(args[0], f.Dim, f.Lower, f.Upper))
}

// Forward computes the slice.
func (f *Slice) Forward(args []*tensor.Tensor) ([]*tensor.Tensor, error) {
	return single(args[0].Device().Slice(args[0], f.Dim, f.Lower, f.Upper))
}

// Backward accumulates the argument gradients of the slice.
func (f *Slice) Backward(args, _, gys, gargs []*tensor.Tensor) error {
	return args[0].Device().SliceBackward(gys[0], f.Dim, f.Lower, gargs[0])
}

// Concat joins its arguments along Dim.
//
// Backward pass: each argument receives the matching slice of the gradient.
type Concat struct {
	Dim int
}

// Name returns the label of the concatenation.
func (f *Concat) Name() string { return fmt.Sprintf("concat(%d)", f.Dim) }

// ForwardShapes validates the arguments and returns the shape of the concatenation.
func (f *Concat) ForwardShapes(args []tensor.Shape) ([]tensor.Shape, error) {
	return one(tensor.Concat(args, f.Dim))
}

// Forward computes the concatenation.
func (f *Concat) Forward(args []*tensor.Tensor) ([]*tensor.Tensor, error) {
	return single(args[0].Device().Concat(args, f.Dim))
}

// Backward accumulates the argument gradients of the concatenation.
func (f *Concat) Backward(args, _, gys, gargs []*tensor.Tensor) error {
	gy := gys[0]
	offset := 0
	for i, x := range args {
		n := x.Shape().Dim(f.Dim)
		tmp, err := gy.Device().Slice(gy, f.Dim, offset, offset+n)
		if err = addInto(gargs[i], tmp, err); err != nil {
			return err
		}
		offset += n
	}
	return nil
}

// Split divides its argument into N equal pieces along Dim.
// It is the only function here with several outputs.
type Split struct {
	Dim, N int
}

// Name returns the label of the split.
func (f *Split) Name() string { return fmt.Sprintf("split(%d,%d)", f.Dim, f.N) }

// ForwardShapes validates the arguments and returns the shape of the split.
func (f *Split) ForwardShapes(args []tensor.Shape) ([]tensor.Shape, error) {
	if err := arity(f.Name(), args, 1); err != nil {
		return nil, err
	}
	s, err := tensor.Split(args[0], f.Dim, f.N)
	if err != nil {
		return nil, err
	}
	shapes := make([]tensor.Shape, f.N)
	for i := range shapes {
		shapes[i] = s
	}
	return shapes, nil
}

// Forward computes the split.
func (f *Split) Forward(args []*tensor.Tensor) ([]*tensor.Tensor, error) {
	x := args[0]
	size := x.Shape().Dim(f.Dim) / f.N
	ys := make([]*tensor.Tensor, 0, f.N)
	for i := range f.N {
		y, err := x.Device().Slice(x, f.Dim, i*size, (i+1)*size)
		if err != nil {
			release(ys...)
			return nil, err
		}
		ys = append(ys, y)
	}
	return ys, nil
}

// Backward accumulates the argument gradients of the split.
func (f *Split) Backward(args, _, gys, gargs []*tensor.Tensor) error {
	size := args[0].Shape().Dim(f.Dim) / f.N
	for i, gy := range gys {
		if err := args[0].Device().SliceBackward(gy, f.Dim, i*size, gargs[0]); err != nil {
			return err
		}
	}
	return nil
}

// Reshape changes the dimensions without moving data. The output shares
// memory with the argument.
type Reshape struct {
	Shape tensor.Shape
}

// Name returns the label of the reshape.
func (f *Reshape) Name() string { return fmt.Sprintf("reshape(%s)", f.Shape) }

// ForwardShapes validates the arguments and returns the shape of the reshape.
func (f *Reshape) ForwardShapes(args []tensor.Shape) ([]tensor.Shape, error) {
	if err := arity(f.Name(), args, 1); err != nil {
		return nil, err
	}
	return one(tensor.Reshape(args[0], f.Shape))
}

// Forward computes the reshape.
func (f *Reshape) Forward(args []*tensor.Tensor) ([]*tensor.Tensor, error) {
	return single(args[0].Reshape(f.Shape))
}

// Backward accumulates the argument gradients of the reshape.
func (f *Reshape) Backward(args, _, gys, gargs []*tensor.Tensor) error {
	tmp, err := gys[0].Reshape(args[0].Shape())
	return addInto(gargs[0], tmp, err)
}

// Flatten reshapes its argument into a column vector.
type Flatten struct{}

// Name returns the label of the flatten.
func (f *Flatten) Name() string { return "flatten" }

// ForwardShapes validates the arguments and returns the shape of the flatten.
func (f *Flatten) ForwardShapes(args []tensor.Shape) ([]tensor.Shape, error) {
	if err := arity(f.Name(), args, 1); err != nil {
		return nil, err
	}
	return one(tensor.Flatten(args[0]))
}

// Forward computes the flatten.
func (f *Flatten) Forward(args []*tensor.Tensor) ([]*tensor.Tensor, error) {
	return single(args[0].Flatten())
}

// Backward accumulates the argument gradients of the flatten.
func (f *Flatten) Backward(args, _, gys, gargs []*tensor.Tensor) error {
	tmp, err := gys[0].Reshape(args[0].Shape())
	return addInto(gargs[0], tmp, err)
}

// Transpose swaps the two dimensions of a matrix.
type Transpose struct{}

// Name returns the label of the transpose.
func (f *Transpose) Name() string { return "transpose" }

// ForwardShapes validates the arguments and returns the shape of the transpose.
func (f *Transpose) ForwardShapes(args []tensor.Shape) ([]tensor.Shape, error) {
	if err := arity(f.Name(), args, 1); err != nil {
		return nil, err
	}
	return one(tensor.Transpose(args[0]))
}

// Forward computes the transpose.
func (f *Transpose) Forward(args []*tensor.Tensor) ([]*tensor.Tensor, error) {
	return single(args[0].Device().Transpose(args[0]))
}

// Backward accumulates the argument gradients of the transpose.
func (f *Transpose) Backward(args, _, gys, gargs []*tensor.Tensor) error {
	return args[0].Device().TransposeBackward(gys[0], gargs[0])
}

// MatMul computes the matrix product of its two arguments.
//
// Backward pass:
//   - grad_a = gy * b^T
//   - grad_b = a^T * gy
type MatMul struct{}

// Name returns the label of the matrix product.
func (f *MatMul) Name() string { return "matmul" }

// ForwardShapes validates the arguments and returns the shape of the matrix product.
func (f *MatMul) ForwardShapes(args []tensor.Shape) ([]tensor.Shape, error) {
	if err := arity(f.Name(), args, 2); err != nil {
		return nil, err
	}
	return one(tensor.MatMul(args[0], args[1]))
}

// Forward computes the matrix product.
func (f *MatMul) Forward(args []*tensor.Tensor) ([]*tensor.Tensor, error) {
	return single(args[0].Device().MatMul(args[0], args[1]))
}

// Backward accumulates the argument gradients of the matrix product.
func (f *MatMul) Backward(args, _, gys, gargs []*tensor.Tensor) error {
	return args[0].Device().MatMulBackward(args[0], args[1], gys[0], gargs[0], gargs[1])
}

// StopGradient passes its argument through and blocks gradients.
type StopGradient struct{}

// Name returns the label of the pass-through value.
func (f *StopGradient) Name() string { return "stop_gradient" }

// ForwardShapes validates the arguments and returns the shape of the pass-through value.
func (f *StopGradient) ForwardShapes(args []tensor.Shape) ([]tensor.Shape, error) {
	if err := arity(f.Name(), args, 1); err != nil {
		return nil, err
	}
	return args, nil
}

// Forward computes the pass-through value.
func (f *StopGradient) Forward(args []*tensor.Tensor) ([]*tensor.Tensor, error) {
	return []*tensor.Tensor{args[0].Retain()}, nil
}

// Backward does nothing; no gradient flows through it.
func (f *StopGradient) Backward(_, _, _, _ []*tensor.Tensor) error { return nil }
