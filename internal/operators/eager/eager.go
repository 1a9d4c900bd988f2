// Package eager applies functions to tensors immediately.
//
// It shares every function definition with the graph front end: a call runs
// shape inference and then Forward on the given tensors. The caller owns the
// returned tensors and releases them when done. No gradients are recorded.
package eager

import (
	"fmt"

	"github.com/born-ml/dagrad/internal/functions"
	"github.com/born-ml/dagrad/internal/graph"
	"github.com/born-ml/dagrad/internal/tensor"
)

// Apply runs fn on xs and returns every output.
func Apply(fn graph.Function, xs ...*tensor.Tensor) ([]*tensor.Tensor, error) {
	shapes := make([]tensor.Shape, len(xs))
	for i, x := range xs {
		if !x.Valid() {
			return nil, fmt.Errorf("%s: %w: argument %d is invalid", fn.Name(), tensor.ErrInvalidReference, i)
		}
		shapes[i] = x.Shape()
	}
	want, err := fn.ForwardShapes(shapes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn.Name(), err)
	}
	ys, err := fn.Forward(xs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn.Name(), err)
	}
	for i, y := range ys {
		if !y.Shape().Equal(want[i]) {
			for _, y := range ys {
				y.Release()
			}
			return nil, fmt.Errorf("%s: %w: output %d has shape %s, want %s", fn.Name(), tensor.ErrShape, i, y.Shape(), want[i])
		}
	}
	return ys, nil
}

func apply1(fn graph.Function, xs ...*tensor.Tensor) (*tensor.Tensor, error) {
	ys, err := Apply(fn, xs...)
	if err != nil {
		return nil, err
	}
	return ys[0], nil
}

// Input creates a tensor holding data.
func Input(dev *tensor.Device, shape tensor.Shape, data []float32) (*tensor.Tensor, error) {
	return apply1(functions.NewInput(shape, dev, data))
}

// Constant creates a tensor filled with k.
func Constant(dev *tensor.Device, shape tensor.Shape, k float32) (*tensor.Tensor, error) {
	return apply1(functions.NewConstant(shape, dev, k))
}

// Zeros creates a tensor filled with 0.
func Zeros(dev *tensor.Device, shape tensor.Shape) (*tensor.Tensor, error) {
	return Constant(dev, shape, 0)
}

// Ones creates a tensor filled with 1.
func Ones(dev *tensor.Device, shape tensor.Shape) (*tensor.Tensor, error) {
	return Constant(dev, shape, 1)
}

// Identity creates an identity matrix.
func Identity(dev *tensor.Device, size int) (*tensor.Tensor, error) {
	return apply1(&functions.IdentityMatrix{Size: size, Device: dev})
}

// RandomBernoulli samples from Bernoulli(p).
func RandomBernoulli(dev *tensor.Device, shape tensor.Shape, p float32) (*tensor.Tensor, error) {
	return apply1(functions.NewRandomBernoulli(shape, dev, p))
}

// RandomUniform samples from (lower, upper].
func RandomUniform(dev *tensor.Device, shape tensor.Shape, lower, upper float32) (*tensor.Tensor, error) {
	return apply1(functions.NewRandomUniform(shape, dev, lower, upper))
}

// RandomNormal samples from N(mean, sd^2).
func RandomNormal(dev *tensor.Device, shape tensor.Shape, mean, sd float32) (*tensor.Tensor, error) {
	return apply1(functions.NewRandomNormal(shape, dev, mean, sd))
}

// RandomLogNormal samples from exp(N(mean, sd^2)).
func RandomLogNormal(dev *tensor.Device, shape tensor.Shape, mean, sd float32) (*tensor.Tensor, error) {
	return apply1(functions.NewRandomLogNormal(shape, dev, mean, sd))
}

// Copy moves x to dev.
func Copy(x *tensor.Tensor, dev *tensor.Device) (*tensor.Tensor, error) {
	return apply1(&functions.Copy{Device: dev}, x)
}

// Pick selects ids along dim.
func Pick(x *tensor.Tensor, ids []int, dim int) (*tensor.Tensor, error) {
	return apply1(&functions.Pick{IDs: ids, Dim: dim}, x)
}

// Slice extracts [lower, upper) along dim.
func Slice(x *tensor.Tensor, dim, lower, upper int) (*tensor.Tensor, error) {
	return apply1(&functions.Slice{Dim: dim, Lower: lower, Upper: upper}, x)
}

// Concat joins xs along dim.
func Concat(xs []*tensor.Tensor, dim int) (*tensor.Tensor, error) {
	if len(xs) == 0 {
		return nil, fmt.Errorf("concat: %w: no arguments", tensor.ErrShape)
	}
	return apply1(&functions.Concat{Dim: dim}, xs...)
}

// Split divides x into n equal pieces along dim.
func Split(x *tensor.Tensor, dim, n int) ([]*tensor.Tensor, error) {
	return Apply(&functions.Split{Dim: dim, N: n}, x)
}

// Reshape returns a view of x with another shape.
func Reshape(x *tensor.Tensor, shape tensor.Shape) (*tensor.Tensor, error) {
	return apply1(&functions.Reshape{Shape: shape}, x)
}

// Flatten returns a column-vector view of x.
func Flatten(x *tensor.Tensor) (*tensor.Tensor, error) {
	return apply1(&functions.Flatten{}, x)
}

// Transpose swaps the dimensions of a matrix.
func Transpose(x *tensor.Tensor) (*tensor.Tensor, error) {
	return apply1(&functions.Transpose{}, x)
}

// MatMul multiplies two matrices.
func MatMul(a, b *tensor.Tensor) (*tensor.Tensor, error) {
	return apply1(&functions.MatMul{}, a, b)
}

// Unary applies an elementwise function.
func Unary(op tensor.UnaryOp, x *tensor.Tensor) (*tensor.Tensor, error) {
	return apply1(&functions.Unary{Op: op}, x)
}

// Negate computes -x.
func Negate(x *tensor.Tensor) (*tensor.Tensor, error) { return Unary(tensor.Negate, x) }

// Exp computes exp(x).
func Exp(x *tensor.Tensor) (*tensor.Tensor, error) { return Unary(tensor.Exp, x) }

// Log computes log(x).
func Log(x *tensor.Tensor) (*tensor.Tensor, error) { return Unary(tensor.Log, x) }

// Tanh computes tanh(x).
func Tanh(x *tensor.Tensor) (*tensor.Tensor, error) { return Unary(tensor.Tanh, x) }

// Sigmoid computes 1/(1+exp(-x)).
func Sigmoid(x *tensor.Tensor) (*tensor.Tensor, error) { return Unary(tensor.Sigmoid, x) }

// WithConst applies an elementwise function with constant k.
func WithConst(op tensor.ConstOp, k float32, x *tensor.Tensor) (*tensor.Tensor, error) {
	return apply1(&functions.WithConst{Op: op, K: k}, x)
}

// AddConst computes x + k.
func AddConst(x *tensor.Tensor, k float32) (*tensor.Tensor, error) {
	return WithConst(tensor.AddConst, k, x)
}

// MultiplyConst computes x * k.
func MultiplyConst(x *tensor.Tensor, k float32) (*tensor.Tensor, error) {
	return WithConst(tensor.MultiplyConst, k, x)
}

// ReLU computes max(x, 0).
func ReLU(x *tensor.Tensor) (*tensor.Tensor, error) {
	return WithConst(tensor.PReLU, 0, x)
}

// Binary applies an elementwise function of two tensors.
func Binary(op tensor.BinaryOp, a, b *tensor.Tensor) (*tensor.Tensor, error) {
	return apply1(&functions.Binary{Op: op}, a, b)
}

// Add computes a + b.
func Add(a, b *tensor.Tensor) (*tensor.Tensor, error) { return Binary(tensor.Add, a, b) }

// Subtract computes a - b.
func Subtract(a, b *tensor.Tensor) (*tensor.Tensor, error) { return Binary(tensor.Subtract, a, b) }

// Multiply computes a * b elementwise.
func Multiply(a, b *tensor.Tensor) (*tensor.Tensor, error) { return Binary(tensor.Multiply, a, b) }

// Divide computes a / b elementwise.
func Divide(a, b *tensor.Tensor) (*tensor.Tensor, error) { return Binary(tensor.Divide, a, b) }

// Sum adds the elements of x along dim.
func Sum(x *tensor.Tensor, dim int) (*tensor.Tensor, error) {
	return apply1(&functions.Sum{Dim: dim}, x)
}

// LogSumExp computes log(sum(exp(x))) along dim.
func LogSumExp(x *tensor.Tensor, dim int) (*tensor.Tensor, error) {
	return apply1(&functions.LogSumExp{Dim: dim}, x)
}

// Broadcast repeats x size times along dim.
func Broadcast(x *tensor.Tensor, dim, size int) (*tensor.Tensor, error) {
	return apply1(&functions.Broadcast{Dim: dim, Size: size}, x)
}

// BatchSum adds the batch items of x.
func BatchSum(x *tensor.Tensor) (*tensor.Tensor, error) {
	return apply1(&functions.BatchSum{}, x)
}

// SumAll adds every element of each batch item.
func SumAll(x *tensor.Tensor) (*tensor.Tensor, error) {
	f, err := Flatten(x)
	if err != nil {
		return nil, err
	}
	defer f.Release()
	return Sum(f, 0)
}

// Softmax normalizes exp(x) along dim.
func Softmax(x *tensor.Tensor, dim int) (*tensor.Tensor, error) {
	lse, err := LogSumExp(x, dim)
	if err != nil {
		return nil, err
	}
	defer lse.Release()
	b, err := Broadcast(lse, dim, x.Shape().Dim(dim))
	if err != nil {
		return nil, err
	}
	defer b.Release()
	d, err := Subtract(x, b)
	if err != nil {
		return nil, err
	}
	defer d.Release()
	return Exp(d)
}
