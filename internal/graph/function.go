package graph

import "github.com/born-ml/dagrad/internal/tensor"

// Function is one mathematical operation that can be recorded in a Graph.
//
// ForwardShapes is pure shape inference and runs when the function is added.
// Forward computes the outputs from the argument values without modifying
// them; the graph takes ownership of the returned tensors. Backward adds the
// chain-rule contribution of gys into gargs and must never overwrite them;
// functions without a gradient path simply return nil.
//
// A function may produce several outputs. Shapes, values and gradients are
// indexed by output slot.
type Function interface {
	Name() string
	ForwardShapes(args []tensor.Shape) ([]tensor.Shape, error)
	Forward(args []*tensor.Tensor) ([]*tensor.Tensor, error)
	Backward(args, ys, gys, gargs []*tensor.Tensor) error
}
