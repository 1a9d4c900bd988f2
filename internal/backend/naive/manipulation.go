package naive

import (
	"github.com/born-ml/dagrad/internal/tensor"
)

func batchSkip(s tensor.Shape) int {
	if s.HasBatch() {
		return s.Volume()
	}
	return 0
}

// pickIndex iterates over the element pairs linking x and y for a pick along dim.
func pickIndex(x, y tensor.Shape, ids []int, dim int, fn func(ix, iy int)) {
	wy := y.LowerVolume(dim)
	wx := wy * x.Dim(dim)
	sx := batchSkip(x)
	si := 0
	if len(ids) > 1 {
		si = 1
	}
	sy := y.Volume()
	for n := range y.Batch() {
		ox := n*sx + wy*ids[n*si]
		oy := n * sy
		for r := 0; r*wy < sy; r++ {
			for j := range wy {
				fn(ox+r*wx+j, oy+r*wy+j)
			}
		}
	}
}

// PickForward copies the slices of x selected by ids into y.
func (be *Backend) PickForward(x *tensor.Tensor, ids []int, dim int, y *tensor.Tensor) {
	px, py := x.Data(), y.Data()
	pickIndex(x.Shape(), y.Shape(), ids, dim, func(ix, iy int) {
		py[iy] = px[ix]
	})
}

// PickBackward adds gy into the slices of gx selected by ids.
func (be *Backend) PickBackward(gy *tensor.Tensor, ids []int, dim int, gx *tensor.Tensor) {
	pgx, pgy := gx.Data(), gy.Data()
	pickIndex(gx.Shape(), gy.Shape(), ids, dim, func(ix, iy int) {
		pgx[ix] += pgy[iy]
	})
}

// sliceIndex iterates over contiguous runs linking x and y for a slice along dim.
func sliceIndex(x, y tensor.Shape, dim, offset int, fn func(ix, iy, n int)) {
	base := y.LowerVolume(dim)
	span := base * y.Dim(dim)
	skip := base * x.Dim(dim)
	repeat := y.Volume() / span
	sx, sy := batchSkip(x), batchSkip(y)
	for n := range max(x.Batch(), y.Batch()) {
		for r := range repeat {
			fn(n*sx+r*skip+base*offset, n*sy+r*span, span)
		}
	}
}

// SliceForward copies the range of x starting at offset along dim into y.
func (be *Backend) SliceForward(x *tensor.Tensor, dim, offset int, y *tensor.Tensor) {
	px, py := x.Data(), y.Data()
	sliceIndex(x.Shape(), y.Shape(), dim, offset, func(ix, iy, n int) {
		copy(py[iy:iy+n], px[ix:ix+n])
	})
}

// SliceBackward adds gy into gx starting at offset along dim.
func (be *Backend) SliceBackward(gy *tensor.Tensor, dim, offset int, gx *tensor.Tensor) {
	pgx, pgy := gx.Data(), gy.Data()
	sliceIndex(gx.Shape(), gy.Shape(), dim, offset, func(ix, iy, n int) {
		for k := range n {
			pgx[ix+k] += pgy[iy+k]
		}
	})
}

// ConcatForward writes xs one after another along dim into y.
func (be *Backend) ConcatForward(xs []*tensor.Tensor, dim int, y *tensor.Tensor) {
	sy := y.Shape()
	base := sy.LowerVolume(dim)
	ySpan := base * sy.Dim(dim)
	repeat := sy.Volume() / ySpan
	py := y.Data()
	offset := 0
	for _, x := range xs {
		s := x.Shape()
		span := base * s.Dim(dim)
		sx := batchSkip(s)
		px := x.Data()
		for n := range sy.Batch() {
			for r := range repeat {
				iy := n*sy.Volume() + r*ySpan + offset
				ix := n*sx + r*span
				copy(py[iy:iy+span], px[ix:ix+span])
			}
		}
		offset += span
	}
}

// TransposeForward writes the transpose of every batch item of x into y.
func (be *Backend) TransposeForward(x, y *tensor.Tensor) {
	s := x.Shape()
	d1, d2 := s.Dim(0), s.Dim(1)
	px, py := x.Data(), y.Data()
	for n := range s.Batch() {
		o := n * d1 * d2
		for j := range d2 {
			for i := range d1 {
				py[o+j+i*d2] = px[o+i+j*d1]
			}
		}
	}
}

// TransposeBackward adds the transpose of gy into gx.
func (be *Backend) TransposeBackward(gy, gx *tensor.Tensor) {
	s := gx.Shape()
	d1, d2 := s.Dim(0), s.Dim(1)
	pgx, pgy := gx.Data(), gy.Data()
	for n := range s.Batch() {
		o := n * d1 * d2
		for j := range d2 {
			for i := range d1 {
				pgx[o+i+j*d1] += pgy[o+j+i*d2]
			}
		}
	}
}

// BroadcastForward repeats x size times along dim.
func (be *Backend) BroadcastForward(x *tensor.Tensor, dim, size int, y *tensor.Tensor) {
	sy := y.Shape()
	skip1 := sy.LowerVolume(dim)
	skip2 := skip1 * size
	px, py := x.Data(), y.Data()
	for i := range py {
		py[i] = px[i%skip1+(i/skip2)*skip1]
	}
}
