package tensor

import (
	"fmt"
	"math"
	"math/bits"
	"slices"
	"strconv"
	"strings"
)

// MaxSize is the largest number of elements a shape may describe, so that
// the float32 storage of any tensor has a byte size representable as int.
const MaxSize = math.MaxInt / 4

// Shape describes the logical layout of a tensor: a list of dimension sizes
// plus a batch size.
//
// Trailing dimensions of size 1 are insignificant and never stored, so
// Shape{2,1} and Shape{2} compare equal. Elements are stored with dimension 0
// varying fastest; LowerVolume gives the stride of a dimension.
//
// The zero value is a scalar with batch size 1.
type Shape struct {
	dims  []int
	batch int
}

// NewShape creates a shape from a dimension list and a batch size.
// Every dimension and the batch size must be positive.
func NewShape(dims []int, batch int) (Shape, error) {
	if batch <= 0 {
		return Shape{}, fmt.Errorf("%w: invalid batch size %d", ErrShape, batch)
	}
	for i, d := range dims {
		if d <= 0 {
			return Shape{}, fmt.Errorf("%w: invalid dimension at index %d: %d (must be > 0)", ErrShape, i, d)
		}
	}
	if err := checkSize(dims, batch); err != nil {
		return Shape{}, err
	}
	n := len(dims)
	for n > 0 && dims[n-1] == 1 {
		n--
	}
	return Shape{dims: slices.Clone(dims[:n]), batch: batch}, nil
}

// MustShape is like NewShape but panics on invalid input. Intended for literals.
func MustShape(dims []int, batch int) Shape {
	s, err := NewShape(dims, batch)
	if err != nil {
		panic(err)
	}
	return s
}

// Dims creates a shape with batch size 1. Panics on invalid input.
func Dims(dims ...int) Shape {
	return MustShape(dims, 1)
}

// Depth returns the number of significant dimensions.
func (s Shape) Depth() int { return len(s.dims) }

// Dim returns the size of dimension i. Dimensions past Depth are 1.
func (s Shape) Dim(i int) int {
	if i < len(s.dims) {
		return s.dims[i]
	}
	return 1
}

// Dims returns a copy of the significant dimensions.
func (s Shape) Dims() []int { return slices.Clone(s.dims) }

// Batch returns the batch size.
func (s Shape) Batch() int {
	if s.batch == 0 {
		return 1
	}
	return s.batch
}

// HasBatch reports whether the batch size is greater than 1.
func (s Shape) HasBatch() bool { return s.Batch() > 1 }

// Volume returns the number of elements in one batch item.
func (s Shape) Volume() int {
	v := 1
	for _, d := range s.dims {
		v *= d
	}
	return v
}

// LowerVolume returns the product of dimensions below dim.
func (s Shape) LowerVolume(dim int) int {
	v := 1
	for i := 0; i < dim && i < len(s.dims); i++ {
		v *= s.dims[i]
	}
	return v
}

// Size returns the total number of elements across all batch items.
func (s Shape) Size() int { return s.Volume() * s.Batch() }

// IsScalar reports whether every dimension is 1.
func (s Shape) IsScalar() bool { return len(s.dims) == 0 }

// IsColumnVector reports whether the shape has at most one significant dimension.
func (s Shape) IsColumnVector() bool { return len(s.dims) <= 1 }

// IsMatrix reports whether the shape has at most two significant dimensions.
func (s Shape) IsMatrix() bool { return len(s.dims) <= 2 }

// HasSameDims reports whether both shapes have identical dimensions, ignoring batch.
func (s Shape) HasSameDims(o Shape) bool { return slices.Equal(s.dims, o.dims) }

// HasSameLooDims reports whether the dimensions match everywhere except dim.
func (s Shape) HasSameLooDims(o Shape, dim int) bool {
	n := max(len(s.dims), len(o.dims), dim+1)
	for i := range n {
		if i != dim && s.Dim(i) != o.Dim(i) {
			return false
		}
	}
	return true
}

// HasCompatibleBatch reports whether the batch sizes are equal or one of them is 1.
func (s Shape) HasCompatibleBatch(o Shape) bool {
	return s.Batch() == o.Batch() || s.Batch() == 1 || o.Batch() == 1
}

// Equal reports whether both dimensions and batch size match.
func (s Shape) Equal(o Shape) bool {
	return s.Batch() == o.Batch() && s.HasSameDims(o)
}

// ResizeDim returns a copy of s with dimension dim set to m.
func (s Shape) ResizeDim(dim, m int) (Shape, error) {
	r := s.clone()
	if err := r.UpdateDim(dim, m); err != nil {
		return Shape{}, err
	}
	return r, nil
}

// ResizeBatch returns a copy of s with batch size b.
func (s Shape) ResizeBatch(b int) (Shape, error) {
	r := s.clone()
	if err := r.UpdateBatch(b); err != nil {
		return Shape{}, err
	}
	return r, nil
}

// UpdateDim sets dimension dim to m in place.
// Only for shape propagation; never call it on the shape of a live tensor.
func (s *Shape) UpdateDim(dim, m int) error {
	if dim < 0 {
		return fmt.Errorf("%w: invalid dimension index %d", ErrShape, dim)
	}
	if m <= 0 {
		return fmt.Errorf("%w: invalid size %d for dimension %d", ErrShape, m, dim)
	}
	if dim >= len(s.dims) && m == 1 {
		return nil
	}
	// Shape values share their dims slice, so always write to a fresh one.
	dims := make([]int, max(len(s.dims), dim+1))
	for i := range dims {
		dims[i] = s.Dim(i)
	}
	dims[dim] = m
	if err := checkSize(dims, s.Batch()); err != nil {
		return err
	}
	s.dims = dims
	s.trim()
	return nil
}

// UpdateBatch sets the batch size in place.
func (s *Shape) UpdateBatch(b int) error {
	if b <= 0 {
		return fmt.Errorf("%w: invalid batch size %d", ErrShape, b)
	}
	if err := checkSize(s.dims, b); err != nil {
		return err
	}
	s.batch = b
	return nil
}

// String formats the shape as "[d0,d1,...]xB".
func (s Shape) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, d := range s.dims {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(d))
	}
	b.WriteString("]x")
	b.WriteString(strconv.Itoa(s.Batch()))
	return b.String()
}

// checkSize fails when the element count of dims times batch exceeds MaxSize.
func checkSize(dims []int, batch int) error {
	n := uint64(batch)
	for _, d := range dims {
		hi, lo := bits.Mul64(n, uint64(d))
		if hi != 0 || lo > MaxSize {
			return fmt.Errorf("%w: %v x %d exceeds %d elements", ErrShape, dims, batch, MaxSize)
		}
		n = lo
	}
	if n > MaxSize {
		return fmt.Errorf("%w: %v x %d exceeds %d elements", ErrShape, dims, batch, MaxSize)
	}
	return nil
}

func (s Shape) clone() Shape {
	return Shape{dims: slices.Clone(s.dims), batch: s.Batch()}
}

func (s *Shape) trim() {
	n := len(s.dims)
	for n > 0 && s.dims[n-1] == 1 {
		n--
	}
	s.dims = s.dims[:n]
}
