package operators

import (
	"github.com/born-ml/dagrad/internal/graph"
	"github.com/born-ml/dagrad/internal/parameter"
	"github.com/born-ml/dagrad/internal/tensor"
)

// Scope pairs a graph with the device used by source nodes.
type Scope struct {
	Graph  *graph.Graph
	Device *tensor.Device
}

// DefaultScope returns a scope built from the default graph and device.
func DefaultScope() (Scope, error) {
	g, err := graph.Default()
	if err != nil {
		return Scope{}, err
	}
	d, err := tensor.DefaultDevice()
	if err != nil {
		return Scope{}, err
	}
	return Scope{Graph: g, Device: d}, nil
}

// Input records user data.
func (s Scope) Input(shape tensor.Shape, data []float32) (graph.Node, error) {
	return Input(s.Graph, s.Device, shape, data)
}

// Parameter records a node reading p.
func (s Scope) Parameter(p *parameter.Parameter) (graph.Node, error) {
	return Parameter(s.Graph, p)
}

// Constant records a tensor filled with k.
func (s Scope) Constant(shape tensor.Shape, k float32) (graph.Node, error) {
	return Constant(s.Graph, s.Device, shape, k)
}

// Zeros records a tensor filled with 0.
func (s Scope) Zeros(shape tensor.Shape) (graph.Node, error) {
	return Zeros(s.Graph, s.Device, shape)
}

// Ones records a tensor filled with 1.
func (s Scope) Ones(shape tensor.Shape) (graph.Node, error) {
	return Ones(s.Graph, s.Device, shape)
}

// Identity records an identity matrix.
func (s Scope) Identity(size int) (graph.Node, error) {
	return Identity(s.Graph, s.Device, size)
}

// RandomBernoulli records Bernoulli samples.
func (s Scope) RandomBernoulli(shape tensor.Shape, p float32) (graph.Node, error) {
	return RandomBernoulli(s.Graph, s.Device, shape, p)
}

// RandomUniform records uniform samples.
func (s Scope) RandomUniform(shape tensor.Shape, lower, upper float32) (graph.Node, error) {
	return RandomUniform(s.Graph, s.Device, shape, lower, upper)
}

// RandomNormal records normal samples.
func (s Scope) RandomNormal(shape tensor.Shape, mean, sd float32) (graph.Node, error) {
	return RandomNormal(s.Graph, s.Device, shape, mean, sd)
}

// RandomLogNormal records log-normal samples.
func (s Scope) RandomLogNormal(shape tensor.Shape, mean, sd float32) (graph.Node, error) {
	return RandomLogNormal(s.Graph, s.Device, shape, mean, sd)
}

// Copy moves x to the scope device.
func (s Scope) Copy(x graph.Node) (graph.Node, error) {
	return Copy(x, s.Device)
}

// Dropout zeroes elements of x with probability rate and rescales the rest.
// It returns x unchanged when train is false or rate is 0.
func (s Scope) Dropout(x graph.Node, rate float32, train bool) (graph.Node, error) {
	if !train || rate == 0 {
		return x, nil
	}
	if rate >= 1 {
		return MultiplyConst(x, 0)
	}
	shape, err := x.Shape()
	if err != nil {
		return graph.Node{}, err
	}
	mask, err := s.RandomBernoulli(shape, 1-rate)
	if err != nil {
		return graph.Node{}, err
	}
	y, err := Multiply(x, mask)
	if err != nil {
		return graph.Node{}, err
	}
	return MultiplyConst(y, 1/(1-rate))
}
