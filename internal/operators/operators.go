// Package operators is the graph-building front end.
//
// Every function records a graph.Function in the graph of its first node
// argument and returns the new node. Values are not computed until a node is
// forwarded. Sources, which have no node arguments, take the graph and device
// explicitly; Scope bundles the two and DefaultScope resolves the ambient
// defaults.
package operators

import (
	"fmt"

	"github.com/born-ml/dagrad/internal/functions"
	"github.com/born-ml/dagrad/internal/graph"
	"github.com/born-ml/dagrad/internal/parameter"
	"github.com/born-ml/dagrad/internal/tensor"
)

func apply(fn graph.Function, args ...graph.Node) (graph.Node, error) {
	if len(args) == 0 || args[0].Graph() == nil {
		return graph.Node{}, fmt.Errorf("%s: %w: invalid node", fn.Name(), tensor.ErrInvalidReference)
	}
	return args[0].Graph().AddFunction1(fn, args...)
}

// Input records user data with the given shape.
func Input(g *graph.Graph, dev *tensor.Device, shape tensor.Shape, data []float32) (graph.Node, error) {
	return g.AddFunction1(functions.NewInput(shape, dev, data))
}

// Parameter records a node reading p.
func Parameter(g *graph.Graph, p *parameter.Parameter) (graph.Node, error) {
	return g.AddFunction1(&functions.ParameterInput{Param: p})
}

// Constant records a tensor filled with k.
func Constant(g *graph.Graph, dev *tensor.Device, shape tensor.Shape, k float32) (graph.Node, error) {
	return g.AddFunction1(functions.NewConstant(shape, dev, k))
}

// Zeros records a tensor filled with 0.
func Zeros(g *graph.Graph, dev *tensor.Device, shape tensor.Shape) (graph.Node, error) {
	return Constant(g, dev, shape, 0)
}

// Ones records a tensor filled with 1.
func Ones(g *graph.Graph, dev *tensor.Device, shape tensor.Shape) (graph.Node, error) {
	return Constant(g, dev, shape, 1)
}

// Identity records a size x size identity matrix.
func Identity(g *graph.Graph, dev *tensor.Device, size int) (graph.Node, error) {
	return g.AddFunction1(&functions.IdentityMatrix{Size: size, Device: dev})
}

// RandomBernoulli records samples from Bernoulli(p).
func RandomBernoulli(g *graph.Graph, dev *tensor.Device, shape tensor.Shape, p float32) (graph.Node, error) {
	return g.AddFunction1(functions.NewRandomBernoulli(shape, dev, p))
}

// RandomUniform records samples from (lower, upper].
func RandomUniform(g *graph.Graph, dev *tensor.Device, shape tensor.Shape, lower, upper float32) (graph.Node, error) {
	return g.AddFunction1(functions.NewRandomUniform(shape, dev, lower, upper))
}

// RandomNormal records samples from N(mean, sd^2).
func RandomNormal(g *graph.Graph, dev *tensor.Device, shape tensor.Shape, mean, sd float32) (graph.Node, error) {
	return g.AddFunction1(functions.NewRandomNormal(shape, dev, mean, sd))
}

// RandomLogNormal records samples from exp(N(mean, sd^2)).
func RandomLogNormal(g *graph.Graph, dev *tensor.Device, shape tensor.Shape, mean, sd float32) (graph.Node, error) {
	return g.AddFunction1(functions.NewRandomLogNormal(shape, dev, mean, sd))
}

// Copy moves x to dev.
func Copy(x graph.Node, dev *tensor.Device) (graph.Node, error) {
	return apply(&functions.Copy{Device: dev}, x)
}

// Pick selects ids along dim.
func Pick(x graph.Node, ids []int, dim int) (graph.Node, error) {
	return apply(&functions.Pick{IDs: append([]int(nil), ids...), Dim: dim}, x)
}

// Slice extracts [lower, upper) along dim.
func Slice(x graph.Node, dim, lower, upper int) (graph.Node, error) {
	return apply(&functions.Slice{Dim: dim, Lower: lower, Upper: upper}, x)
}

// Concat joins xs along dim.
func Concat(xs []graph.Node, dim int) (graph.Node, error) {
	return apply(&functions.Concat{Dim: dim}, xs...)
}

// Split divides x into n equal pieces along dim.
func Split(x graph.Node, dim, n int) ([]graph.Node, error) {
	fn := &functions.Split{Dim: dim, N: n}
	if x.Graph() == nil {
		return nil, fmt.Errorf("%s: %w: invalid node", fn.Name(), tensor.ErrInvalidReference)
	}
	return x.Graph().AddFunction(fn, x)
}

// Reshape changes the dimensions of x.
func Reshape(x graph.Node, shape tensor.Shape) (graph.Node, error) {
	return apply(&functions.Reshape{Shape: shape}, x)
}

// Flatten reshapes x into a column vector.
func Flatten(x graph.Node) (graph.Node, error) {
	return apply(&functions.Flatten{}, x)
}

// Transpose swaps the dimensions of a matrix.
func Transpose(x graph.Node) (graph.Node, error) {
	return apply(&functions.Transpose{}, x)
}

// MatMul multiplies two matrices.
func MatMul(a, b graph.Node) (graph.Node, error) {
	return apply(&functions.MatMul{}, a, b)
}

func unary(op tensor.UnaryOp, x graph.Node) (graph.Node, error) {
	return apply(&functions.Unary{Op: op}, x)
}

// Negate computes -x.
func Negate(x graph.Node) (graph.Node, error) { return unary(tensor.Negate, x) }

// Sqrt computes sqrt(x).
func Sqrt(x graph.Node) (graph.Node, error) { return unary(tensor.Sqrt, x) }

// Exp computes exp(x).
func Exp(x graph.Node) (graph.Node, error) { return unary(tensor.Exp, x) }

// Log computes log(x).
func Log(x graph.Node) (graph.Node, error) { return unary(tensor.Log, x) }

// Tanh computes tanh(x).
func Tanh(x graph.Node) (graph.Node, error) { return unary(tensor.Tanh, x) }

// Sigmoid computes 1/(1+exp(-x)).
func Sigmoid(x graph.Node) (graph.Node, error) { return unary(tensor.Sigmoid, x) }

// Softplus computes log(1+exp(x)).
func Softplus(x graph.Node) (graph.Node, error) { return unary(tensor.Softplus, x) }

// Sin computes sin(x).
func Sin(x graph.Node) (graph.Node, error) { return unary(tensor.Sin, x) }

// Cos computes cos(x).
func Cos(x graph.Node) (graph.Node, error) { return unary(tensor.Cos, x) }

// Tan computes tan(x).
func Tan(x graph.Node) (graph.Node, error) { return unary(tensor.Tan, x) }

func withConst(op tensor.ConstOp, k float32, x graph.Node) (graph.Node, error) {
	return apply(&functions.WithConst{Op: op, K: k}, x)
}

// AddConst computes x + k.
func AddConst(x graph.Node, k float32) (graph.Node, error) {
	return withConst(tensor.AddConst, k, x)
}

// SubtractConst computes x - k.
func SubtractConst(x graph.Node, k float32) (graph.Node, error) {
	return withConst(tensor.SubtractConstR, k, x)
}

// SubtractFromConst computes k - x.
func SubtractFromConst(k float32, x graph.Node) (graph.Node, error) {
	return withConst(tensor.SubtractConstL, k, x)
}

// MultiplyConst computes x * k.
func MultiplyConst(x graph.Node, k float32) (graph.Node, error) {
	return withConst(tensor.MultiplyConst, k, x)
}

// DivideConst computes x / k.
func DivideConst(x graph.Node, k float32) (graph.Node, error) {
	return withConst(tensor.DivideConstR, k, x)
}

// DivideFromConst computes k / x.
func DivideFromConst(k float32, x graph.Node) (graph.Node, error) {
	return withConst(tensor.DivideConstL, k, x)
}

// PReLU computes x for positive x and a*x otherwise.
func PReLU(x graph.Node, a float32) (graph.Node, error) {
	return withConst(tensor.PReLU, a, x)
}

// ReLU computes max(x, 0).
func ReLU(x graph.Node) (graph.Node, error) {
	return withConst(tensor.PReLU, 0, x)
}

// ELU computes x for positive x and a*(exp(x)-1) otherwise.
func ELU(x graph.Node, a float32) (graph.Node, error) {
	return withConst(tensor.ELU, a, x)
}

func binary(op tensor.BinaryOp, a, b graph.Node) (graph.Node, error) {
	return apply(&functions.Binary{Op: op}, a, b)
}

// Add computes a + b.
func Add(a, b graph.Node) (graph.Node, error) { return binary(tensor.Add, a, b) }

// Subtract computes a - b.
func Subtract(a, b graph.Node) (graph.Node, error) { return binary(tensor.Subtract, a, b) }

// Multiply computes a * b elementwise.
func Multiply(a, b graph.Node) (graph.Node, error) { return binary(tensor.Multiply, a, b) }

// Divide computes a / b elementwise.
func Divide(a, b graph.Node) (graph.Node, error) { return binary(tensor.Divide, a, b) }

// Sum adds the elements of x along dim.
func Sum(x graph.Node, dim int) (graph.Node, error) {
	return apply(&functions.Sum{Dim: dim}, x)
}

// LogSumExp computes log(sum(exp(x))) along dim.
func LogSumExp(x graph.Node, dim int) (graph.Node, error) {
	return apply(&functions.LogSumExp{Dim: dim}, x)
}

// Broadcast repeats x size times along dim.
func Broadcast(x graph.Node, dim, size int) (graph.Node, error) {
	return apply(&functions.Broadcast{Dim: dim, Size: size}, x)
}

// BatchSum adds the batch items of x.
func BatchSum(x graph.Node) (graph.Node, error) {
	return apply(&functions.BatchSum{}, x)
}

// StopGradient passes x through without propagating gradients.
func StopGradient(x graph.Node) (graph.Node, error) {
	return apply(&functions.StopGradient{}, x)
}
