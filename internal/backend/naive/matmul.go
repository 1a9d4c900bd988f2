package naive

import (
	"github.com/born-ml/dagrad/internal/parallel"
	"github.com/born-ml/dagrad/internal/tensor"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

// Tensors are column-major, so a d1 x d2 matrix is handed to BLAS as its
// row-major d2 x d1 transpose and every product is computed transposed.

// general returns batch item n of x as a row-major transposed matrix.
func general(x *tensor.Tensor, n int) blas32.General {
	s := x.Shape()
	rows, cols := s.Dim(1), s.Dim(0)
	off := n * batchSkip(s)
	return blas32.General{
		Rows:   rows,
		Cols:   cols,
		Stride: cols,
		Data:   x.Data()[off : off+rows*cols],
	}
}

// MatMulForward computes y = a * b for every batch item.
func (be *Backend) MatMulForward(a, b, y *tensor.Tensor) {
	be.par.Batches(y.Shape().Batch(), func(n int) {
		// y^T = b^T * a^T
		blas32.Gemm(blas.NoTrans, blas.NoTrans, 1, general(b, n), general(a, n), 0, general(y, n))
	})
}

// MatMulBackward computes ga += gy * b^T and gb += a^T * gy for every batch item.
func (be *Backend) MatMulBackward(a, b, gy, ga, gb *tensor.Tensor) {
	par := be.par
	if !ga.Shape().HasBatch() || !gb.Shape().HasBatch() {
		// A broadcast operand accumulates every batch item into one gradient.
		par = parallel.Serial
	}
	par.Batches(gy.Shape().Batch(), func(n int) {
		at, bt, gyt := general(a, n), general(b, n), general(gy, n)
		// ga^T += b * gy^T
		blas32.Gemm(blas.Trans, blas.NoTrans, 1, bt, gyt, 1, general(ga, n))
		// gb^T += gy^T * a
		blas32.Gemm(blas.NoTrans, blas.Trans, 1, gyt, at, 1, general(gb, n))
	})
}
