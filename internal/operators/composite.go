package operators

import (
	"github.com/born-ml/dagrad/internal/graph"
)

// SumAll adds every element of each batch item.
func SumAll(x graph.Node) (graph.Node, error) {
	f, err := Flatten(x)
	if err != nil {
		return graph.Node{}, err
	}
	return Sum(f, 0)
}

// Mean averages x along dim.
func Mean(x graph.Node, dim int) (graph.Node, error) {
	s, err := x.Shape()
	if err != nil {
		return graph.Node{}, err
	}
	sum, err := Sum(x, dim)
	if err != nil {
		return graph.Node{}, err
	}
	return MultiplyConst(sum, 1/float32(s.Dim(dim)))
}

// BatchMean averages the batch items of x.
func BatchMean(x graph.Node) (graph.Node, error) {
	s, err := x.Shape()
	if err != nil {
		return graph.Node{}, err
	}
	sum, err := BatchSum(x)
	if err != nil {
		return graph.Node{}, err
	}
	return MultiplyConst(sum, 1/float32(s.Batch()))
}

// LogSoftmax computes x - logsumexp(x) along dim.
func LogSoftmax(x graph.Node, dim int) (graph.Node, error) {
	s, err := x.Shape()
	if err != nil {
		return graph.Node{}, err
	}
	lse, err := LogSumExp(x, dim)
	if err != nil {
		return graph.Node{}, err
	}
	b, err := Broadcast(lse, dim, s.Dim(dim))
	if err != nil {
		return graph.Node{}, err
	}
	return Subtract(x, b)
}

// Softmax normalizes exp(x) along dim.
func Softmax(x graph.Node, dim int) (graph.Node, error) {
	ls, err := LogSoftmax(x, dim)
	if err != nil {
		return graph.Node{}, err
	}
	return Exp(ls)
}

// SoftmaxCrossEntropy computes -log(softmax(x)) at ids along dim.
func SoftmaxCrossEntropy(x graph.Node, ids []int, dim int) (graph.Node, error) {
	ls, err := LogSoftmax(x, dim)
	if err != nil {
		return graph.Node{}, err
	}
	p, err := Pick(ls, ids, dim)
	if err != nil {
		return graph.Node{}, err
	}
	return Negate(p)
}
