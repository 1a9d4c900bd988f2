package functions

import (
	"fmt"

	"github.com/born-ml/dagrad/internal/tensor"
)

// Unary applies an elementwise function of one argument.
type Unary struct {
	Op tensor.UnaryOp
}

// Name returns the operation label, e.g. "exp".
func (f *Unary) Name() string { return f.Op.String() }

// ForwardShapes validates the arguments and returns the shape of the unary function.
func (f *Unary) ForwardShapes(args []tensor.Shape) ([]tensor.Shape, error) {
	if err := arity(f.Name(), args, 1); err != nil {
		return nil, err
	}
	return args, nil
}

// Forward computes the unary function.
func (f *Unary) Forward(args []*tensor.Tensor) ([]*tensor.Tensor, error) {
	return single(args[0].Device().Unary(f.Op, args[0]))
}

// Backward accumulates the argument gradients of the unary function.
func (f *Unary) Backward(args, ys, gys, gargs []*tensor.Tensor) error {
	return args[0].Device().UnaryBackward(f.Op, args[0], ys[0], gys[0], gargs[0])
}

// WithConst applies an elementwise function of one argument and the constant K.
type WithConst struct {
	Op tensor.ConstOp
	K  float32
}

// Name returns the operation label with its constant.
func (f *WithConst) Name() string { return fmt.Sprintf("%s(%g)", f.Op, f.K) }

// ForwardShapes validates the arguments and returns the shape of the function with a constant.
func (f *WithConst) ForwardShapes(args []tensor.Shape) ([]tensor.Shape, error) {
	if err := arity(f.Name(), args, 1); err != nil {
		return nil, err
	}
	return args, nil
}

// Forward computes the function with a constant.
func (f *WithConst) Forward(args []*tensor.Tensor) ([]*tensor.Tensor, error) {
	return single(args[0].Device().Const(f.Op, f.K, args[0]))
}

// Backward accumulates the argument gradients of the function with a constant.
func (f *WithConst) Backward(args, ys, gys, gargs []*tensor.Tensor) error {
	return args[0].Device().ConstBackward(f.Op, f.K, args[0], ys[0], gys[0], gargs[0])
}

// Binary applies an elementwise function of two arguments.
//
// Either argument may have batch size 1 or be a scalar per batch item; its
// gradient then receives the sum of the contributions it fed.
//
// Backward pass:
//   - add:      grad_a = gy,   grad_b = gy
//   - subtract: grad_a = gy,   grad_b = -gy
//   - multiply: grad_a = gy*b, grad_b = gy*a
//   - divide:   grad_a = gy/b, grad_b = -gy*y/b
type Binary struct {
	Op tensor.BinaryOp
}

// Name returns the operation label, e.g. "add".
func (f *Binary) Name() string { return f.Op.String() }

// ForwardShapes validates the arguments and returns the shape of the binary function.
func (f *Binary) ForwardShapes(args []tensor.Shape) ([]tensor.Shape, error) {
	if err := arity(f.Name(), args, 2); err != nil {
		return nil, err
	}
	return one(tensor.BinaryShape(args[0], args[1]))
}

// Forward computes the binary function.
func (f *Binary) Forward(args []*tensor.Tensor) ([]*tensor.Tensor, error) {
	return single(args[0].Device().Binary(f.Op, args[0], args[1]))
}

// Backward accumulates the argument gradients of the binary function.
func (f *Binary) Backward(args, ys, gys, gargs []*tensor.Tensor) error {
	return args[0].Device().BinaryBackward(f.Op, args[0], args[1], ys[0], gys[0], gargs[0], gargs[1])
}
