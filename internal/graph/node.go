package graph

import (
	"fmt"

	"github.com/born-ml/dagrad/internal/tensor"
)

// Node refers to one output of one function recorded in a Graph.
//
// Nodes are small values and may be copied freely. The zero Node is invalid.
// A Node also becomes invalid when its graph is cleared; using it afterwards
// fails with tensor.ErrInvalidReference.
type Node struct {
	g   *Graph
	gen uint64
	fid int
	vid int
}

// Valid reports whether the node still refers to a live record.
func (n Node) Valid() bool {
	return n.g != nil && n.g.gen == n.gen && n.fid < len(n.g.funcs)
}

// Graph returns the graph the node belongs to, or nil for the zero Node.
func (n Node) Graph() *Graph { return n.g }

// FunctionID returns the position of the producing function in the graph.
func (n Node) FunctionID() int { return n.fid }

// ValueID returns the output slot of the producing function.
func (n Node) ValueID() int { return n.vid }

// String returns "#fid.vid".
func (n Node) String() string {
	if n.g == nil {
		return "Node(invalid)"
	}
	return fmt.Sprintf("#%d.%d", n.fid, n.vid)
}

// Shape returns the inferred shape of the node.
func (n Node) Shape() (tensor.Shape, error) {
	if n.g == nil {
		return tensor.Shape{}, errInvalidNode(n)
	}
	return n.g.Shape(n)
}

// Forward computes the node's value if necessary and returns a view the
// caller owns.
func (n Node) Forward() (*tensor.Tensor, error) {
	if n.g == nil {
		return nil, errInvalidNode(n)
	}
	return n.g.Forward(n)
}

// Value returns the computed value, or an invalid tensor if not computed yet.
func (n Node) Value() (*tensor.Tensor, error) {
	if n.g == nil {
		return nil, errInvalidNode(n)
	}
	return n.g.Value(n)
}

// Gradient returns the computed gradient, or an invalid tensor if not computed yet.
func (n Node) Gradient() (*tensor.Tensor, error) {
	if n.g == nil {
		return nil, errInvalidNode(n)
	}
	return n.g.Gradient(n)
}

// Backward runs back-propagation from the node.
func (n Node) Backward() error {
	if n.g == nil {
		return errInvalidNode(n)
	}
	return n.g.Backward(n)
}

// ToVector computes the node and returns a copy of its elements.
func (n Node) ToVector() ([]float32, error) {
	v, err := n.Forward()
	if err != nil {
		return nil, err
	}
	defer v.Release()
	return v.ToVector()
}

// ToFloat computes the node and returns its only element.
func (n Node) ToFloat() (float32, error) {
	v, err := n.Forward()
	if err != nil {
		return 0, err
	}
	defer v.Release()
	return v.ToFloat()
}

func errInvalidNode(n Node) error {
	return fmt.Errorf("%w: node %s does not belong to a live graph", tensor.ErrInvalidReference, n)
}
