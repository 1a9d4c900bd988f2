package naive

import (
	"math"

	"github.com/born-ml/dagrad/internal/tensor"
)

// reduceIndex calls fn with the start of every run along dim and the run stride.
func reduceIndex(x tensor.Shape, dim int, fn func(out, base, skip, n int)) {
	n := x.Dim(dim)
	skip := x.LowerVolume(dim)
	for i := range x.Size() / n {
		fn(i, (i/skip)*skip*n+i%skip, skip, n)
	}
}

// SumForward adds the elements of x along dim.
func (be *Backend) SumForward(x *tensor.Tensor, dim int, y *tensor.Tensor) {
	px, py := x.Data(), y.Data()
	reduceIndex(x.Shape(), dim, func(out, base, skip, n int) {
		var sum float32
		for j := range n {
			sum += px[base+j*skip]
		}
		py[out] = sum
	})
}

// LogSumExpForward computes log(sum(exp(x))) along dim.
func (be *Backend) LogSumExpForward(x *tensor.Tensor, dim int, y *tensor.Tensor) {
	px, py := x.Data(), y.Data()
	reduceIndex(x.Shape(), dim, func(out, base, skip, n int) {
		// Shift by the maximum to keep exp in range.
		m := px[base]
		for j := 1; j < n; j++ {
			m = max(m, px[base+j*skip])
		}
		var sum float64
		for j := range n {
			sum += math.Exp(float64(px[base+j*skip] - m))
		}
		py[out] = m + float32(math.Log(sum))
	})
}

// BatchSumForward adds the batch items of x together.
func (be *Backend) BatchSumForward(x, y *tensor.Tensor) {
	s := x.Shape()
	vol := s.Volume()
	px, py := x.Data(), y.Data()
	clear(py)
	for n := range s.Batch() {
		for i := range vol {
			py[i] += px[n*vol+i]
		}
	}
}

func argBest(x *tensor.Tensor, dim int, better func(a, b float32) bool) []int {
	px := x.Data()
	s := x.Shape()
	ids := make([]int, 0, s.Size()/s.Dim(dim))
	reduceIndex(s, dim, func(_, base, skip, n int) {
		best := 0
		for j := 1; j < n; j++ {
			if better(px[base+j*skip], px[base+best*skip]) {
				best = j
			}
		}
		ids = append(ids, best)
	})
	return ids
}

// ArgMax returns the position of the largest element along dim. Ties pick the first.
func (be *Backend) ArgMax(x *tensor.Tensor, dim int) []int {
	return argBest(x, dim, func(a, b float32) bool { return a > b })
}

// ArgMin returns the position of the smallest element along dim. Ties pick the first.
func (be *Backend) ArgMin(x *tensor.Tensor, dim int) []int {
	return argBest(x, dim, func(a, b float32) bool { return a < b })
}
