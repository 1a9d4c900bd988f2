package tensor

import "fmt"

// Shape inference helpers. Every helper is pure and reports violations
// with an error wrapping ErrShape.

// Elementwise returns the result shape of a binary elementwise operation.
// Dimensions must match; a batch of 1 broadcasts against any batch size.
func Elementwise(a, b Shape) (Shape, error) {
	if !a.HasSameDims(b) || !a.HasCompatibleBatch(b) {
		return Shape{}, fmt.Errorf("%w: elementwise %s vs %s", ErrShape, a, b)
	}
	return a.ResizeBatch(max(a.Batch(), b.Batch()))
}

// ScalarOp returns the result shape of combining x with per-batch scalars k.
func ScalarOp(x, k Shape) (Shape, error) {
	if !k.IsScalar() || !x.HasCompatibleBatch(k) {
		return Shape{}, fmt.Errorf("%w: scalar operation %s vs %s", ErrShape, x, k)
	}
	return x.ResizeBatch(max(x.Batch(), k.Batch()))
}

// Slice returns the shape of x restricted to [lower, upper) along dim.
func Slice(x Shape, dim, lower, upper int) (Shape, error) {
	if dim < 0 || lower < 0 || lower >= upper || upper > x.Dim(dim) {
		return Shape{}, fmt.Errorf("%w: slice %s dim=%d range=[%d,%d)", ErrShape, x, dim, lower, upper)
	}
	return x.ResizeDim(dim, upper-lower)
}

// Concat returns the shape of xs joined along dim.
func Concat(xs []Shape, dim int) (Shape, error) {
	if len(xs) == 0 {
		return Shape{}, fmt.Errorf("%w: concat of no shapes", ErrShape)
	}
	if dim < 0 {
		return Shape{}, fmt.Errorf("%w: concat dim=%d", ErrShape, dim)
	}
	first := xs[0]
	batch, sum := first.Batch(), 0
	for _, x := range xs {
		if !first.HasSameLooDims(x, dim) || !first.HasCompatibleBatch(x) || (batch > 1 && x.Batch() > 1 && x.Batch() != batch) {
			return Shape{}, fmt.Errorf("%w: concat dim=%d %s vs %s", ErrShape, dim, first, x)
		}
		batch = max(batch, x.Batch())
		sum += x.Dim(dim)
	}
	r, err := first.ResizeDim(dim, sum)
	if err != nil {
		return Shape{}, err
	}
	return r.ResizeBatch(batch)
}

// Broadcast returns the shape of x repeated size times along dim.
// The source dimension must be 1.
func Broadcast(x Shape, dim, size int) (Shape, error) {
	if dim < 0 || x.Dim(dim) != 1 || size <= 0 {
		return Shape{}, fmt.Errorf("%w: broadcast %s dim=%d size=%d", ErrShape, x, dim, size)
	}
	return x.ResizeDim(dim, size)
}

// Pick returns the shape of selecting ids along dim.
// A single id applies to every batch item; otherwise len(ids) acts as a batch size.
func Pick(x Shape, ids []int, dim int) (Shape, error) {
	n := len(ids)
	if dim < 0 || n == 0 || (n > 1 && x.HasBatch() && n != x.Batch()) {
		return Shape{}, fmt.Errorf("%w: pick %s dim=%d ids=%v", ErrShape, x, dim, ids)
	}
	limit := x.Dim(dim)
	for _, id := range ids {
		if id < 0 || id >= limit {
			return Shape{}, fmt.Errorf("%w: pick %s dim=%d id %d out of range", ErrShape, x, dim, id)
		}
	}
	r, err := x.ResizeDim(dim, 1)
	if err != nil {
		return Shape{}, err
	}
	return r.ResizeBatch(max(x.Batch(), n))
}

// Transpose returns the shape of a transposed matrix.
func Transpose(x Shape) (Shape, error) {
	if !x.IsMatrix() {
		return Shape{}, fmt.Errorf("%w: transpose of non-matrix %s", ErrShape, x)
	}
	return NewShape([]int{x.Dim(1), x.Dim(0)}, x.Batch())
}

// MatMul returns the shape of the matrix product l*r.
func MatMul(l, r Shape) (Shape, error) {
	if !l.IsMatrix() || !r.IsMatrix() || l.Dim(1) != r.Dim(0) || !l.HasCompatibleBatch(r) {
		return Shape{}, fmt.Errorf("%w: matmul %s vs %s", ErrShape, l, r)
	}
	return NewShape([]int{l.Dim(0), r.Dim(1)}, max(l.Batch(), r.Batch()))
}

// Reshape returns target with the batch size of x.
// Volumes must match and target may only carry a batch equal to that of x.
func Reshape(x, target Shape) (Shape, error) {
	if x.Volume() != target.Volume() || (target.HasBatch() && target.Batch() != x.Batch()) {
		return Shape{}, fmt.Errorf("%w: reshape %s to %s", ErrShape, x, target)
	}
	return target.ResizeBatch(x.Batch())
}

// Flatten returns x as a column vector.
func Flatten(x Shape) (Shape, error) {
	return NewShape([]int{x.Volume()}, x.Batch())
}

// Reduce returns the shape of reducing x along dim, such as sum or logsumexp.
func Reduce(x Shape, dim int) (Shape, error) {
	if dim < 0 {
		return Shape{}, fmt.Errorf("%w: reduce %s dim=%d", ErrShape, x, dim)
	}
	return x.ResizeDim(dim, 1)
}

// BatchReduce returns the shape of reducing x across its batch.
func BatchReduce(x Shape) (Shape, error) {
	return x.ResizeBatch(1)
}

// Split returns the shape of each of n equal pieces of x along dim.
func Split(x Shape, dim, n int) (Shape, error) {
	if dim < 0 || n <= 0 || x.Dim(dim)%n != 0 {
		return Shape{}, fmt.Errorf("%w: split %s dim=%d into %d", ErrShape, x, dim, n)
	}
	return x.ResizeDim(dim, x.Dim(dim)/n)
}
