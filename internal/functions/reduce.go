package functions

import (
	"fmt"

	"github.com/born-ml/dagrad/internal/tensor"
)

// Sum adds the elements along Dim.
//
// Backward pass: gy is broadcast back along Dim.
type Sum struct {
	Dim int
}

// Name returns the label of the sum.
func (f *Sum) Name() string { return fmt.Sprintf("sum(%d)", f.Dim) }

// ForwardShapes validates the arguments and returns the shape of the sum.
func (f *Sum) ForwardShapes(args []tensor.Shape) ([]tensor.Shape, error) {
	if err := arity(f.Name(), args, 1); err != nil {
		return nil, err
	}
	return one(tensor.Reduce(args[0], f.Dim))
}

// Forward computes the sum.
func (f *Sum) Forward(args []*tensor.Tensor) ([]*tensor.Tensor, error) {
	return single(args[0].Device().Sum(args[0], f.Dim))
}

// Backward accumulates the argument gradients of the sum.
func (f *Sum) Backward(args, _, gys, gargs []*tensor.Tensor) error {
	gy := gys[0]
	tmp, err := gy.Device().Broadcast(gy, f.Dim, args[0].Shape().Dim(f.Dim))
	return addInto(gargs[0], tmp, err)
}

// LogSumExp computes log(sum(exp(x))) along Dim.
//
// Backward pass: grad_x = gy * exp(x - y), broadcast along Dim.
type LogSumExp struct {
	Dim int
}

// Name returns the label of log-sum-exp.
func (f *LogSumExp) Name() string { return fmt.Sprintf("logsumexp(%d)", f.Dim) }

// ForwardShapes validates the arguments and returns the shape of log-sum-exp.
func (f *LogSumExp) ForwardShapes(args []tensor.Shape) ([]tensor.Shape, error) {
	if err := arity(f.Name(), args, 1); err != nil {
		return nil, err
	}
	return one(tensor.Reduce(args[0], f.Dim))
}

// Forward computes log-sum-exp.
func (f *LogSumExp) Forward(args []*tensor.Tensor) ([]*tensor.Tensor, error) {
	return single(args[0].Device().LogSumExp(args[0], f.Dim))
}

// Backward accumulates the argument gradients of log-sum-exp.
func (f *LogSumExp) Backward(args, ys, gys, gargs []*tensor.Tensor) error {
	x := args[0]
	d := x.Device()
	n := x.Shape().Dim(f.Dim)

	by, err := d.Broadcast(ys[0], f.Dim, n)
	if err != nil {
		return err
	}
	defer by.Release()
	bgy, err := d.Broadcast(gys[0], f.Dim, n)
	if err != nil {
		return err
	}
	defer bgy.Release()
	diff, err := d.Binary(tensor.Subtract, x, by)
	if err != nil {
		return err
	}
	defer diff.Release()
	e, err := d.Unary(tensor.Exp, diff)
	if err != nil {
		return err
	}
	defer e.Release()
	tmp, err := d.Binary(tensor.Multiply, e, bgy)
	return addInto(gargs[0], tmp, err)
}

// Broadcast repeats its argument Size times along Dim.
//
// Backward pass: gy is summed along Dim.
type Broadcast struct {
	Dim, Size int
}

// Name returns the label of the broadcast.
func (f *Broadcast) Name() string { return fmt.Sprintf("broadcast(%d,%d)", f.Dim, f.Size) }

// ForwardShapes validates the arguments and returns the shape of the broadcast.
func (f *Broadcast) ForwardShapes(args []tensor.Shape) ([]tensor.Shape, error) {
	if err := arity(f.Name(), args, 1); err != nil {
		return nil, err
	}
	return one(tensor.Broadcast(args[0], f.Dim, f.Size))
}

// Forward computes the broadcast.
func (f *Broadcast) Forward(args []*tensor.Tensor) ([]*tensor.Tensor, error) {
	return single(args[0].Device().Broadcast(args[0], f.Dim, f.Size))
}

// Backward accumulates the argument gradients of the broadcast.
func (f *Broadcast) Backward(_, _, gys, gargs []*tensor.Tensor) error {
	gy := gys[0]
	tmp, err := gy.Device().Sum(gy, f.Dim)
	return addInto(gargs[0], tmp, err)
}

// BatchSum adds the batch items of its argument together.
//
// Backward pass: gy is added to every batch item.
type BatchSum struct{}

// Name returns the label of the batch sum.
func (f *BatchSum) Name() string { return "batch_sum" }

// ForwardShapes validates the arguments and returns the shape of the batch sum.
func (f *BatchSum) ForwardShapes(args []tensor.Shape) ([]tensor.Shape, error) {
	if err := arity(f.Name(), args, 1); err != nil {
		return nil, err
	}
	return one(tensor.BatchReduce(args[0]))
}

// Forward computes the batch sum.
func (f *BatchSum) Forward(args []*tensor.Tensor) ([]*tensor.Tensor, error) {
	return single(args[0].Device().BatchSum(args[0]))
}

// Backward accumulates the argument gradients of the batch sum.
func (f *BatchSum) Backward(_, _, gys, gargs []*tensor.Tensor) error {
	return gargs[0].InplaceAdd(gys[0])
}
