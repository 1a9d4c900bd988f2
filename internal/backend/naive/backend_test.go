package naive

import (
	"math"
	"testing"

	"github.com/born-ml/dagrad/internal/parallel"
	"github.com/born-ml/dagrad/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDevice(t *testing.T) *tensor.Device {
	t.Helper()
	d := New(Config{Seed: 42})
	t.Cleanup(d.Close)
	return d
}

func vec(t *testing.T, d *tensor.Device, s tensor.Shape, values ...float32) *tensor.Tensor {
	t.Helper()
	x, err := d.NewTensorByVector(s, values)
	require.NoError(t, err)
	return x
}

func values(t *testing.T, x *tensor.Tensor) []float32 {
	t.Helper()
	v, err := x.ToVector()
	require.NoError(t, err)
	return v
}

func TestBackend_Identity(t *testing.T) {
	d := newTestDevice(t)
	y, err := d.Identity(3)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0, 0, 1, 0, 0, 0, 1}, values(t, y))
}

func TestBackend_Binary(t *testing.T) {
	d := newTestDevice(t)
	a := vec(t, d, tensor.MustShape([]int{2}, 2), 1, 2, 3, 4)
	b := vec(t, d, tensor.Dims(2), 10, 20)
	k := vec(t, d, tensor.MustShape(nil, 2), 2, 3)

	tests := []struct {
		name string
		op   tensor.BinaryOp
		x, y *tensor.Tensor
		want []float32
	}{
		{"add broadcast batch", tensor.Add, a, b, []float32{11, 22, 13, 24}},
		{"subtract", tensor.Subtract, b, a, []float32{9, 18, 7, 16}},
		{"multiply scalar", tensor.Multiply, a, k, []float32{2, 4, 9, 12}},
		{"divide scalar left", tensor.Divide, k, a, []float32{2, 1, 1, 0.75}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			y, err := d.Binary(tt.op, tt.x, tt.y)
			require.NoError(t, err)
			assert.InDeltaSlice(t, tt.want, values(t, y), 1e-6)
		})
	}
}

func TestBackend_BinaryBackwardAccumulates(t *testing.T) {
	d := newTestDevice(t)
	a := vec(t, d, tensor.MustShape([]int{2}, 2), 1, 2, 3, 4)
	b := vec(t, d, tensor.Dims(2), 10, 20)
	y, err := d.Binary(tensor.Multiply, a, b)
	require.NoError(t, err)
	gy := vec(t, d, y.Shape(), 1, 1, 1, 1)
	ga := vec(t, d, a.Shape(), 1, 1, 1, 1)
	gb := vec(t, d, b.Shape(), 0, 0)

	require.NoError(t, d.BinaryBackward(tensor.Multiply, a, b, y, gy, ga, gb))
	assert.Equal(t, []float32{11, 21, 11, 21}, values(t, ga), "existing gradient is kept")
	assert.Equal(t, []float32{4, 6}, values(t, gb), "shared operand sums over batch")
}

func TestBackend_Unary(t *testing.T) {
	d := newTestDevice(t)
	x := vec(t, d, tensor.Dims(3), -1, 0.5, 2)
	for _, op := range []tensor.UnaryOp{tensor.Negate, tensor.Exp, tensor.Tanh, tensor.Sigmoid, tensor.Softplus, tensor.Sin, tensor.Cos} {
		t.Run(op.String(), func(t *testing.T) {
			y, err := d.Unary(op, x)
			require.NoError(t, err)
			gy := vec(t, d, x.Shape(), 1, 1, 1)
			gx := vec(t, d, x.Shape(), 0, 0, 0)
			require.NoError(t, d.UnaryBackward(op, x, y, gy, gx))

			// Compare with a central difference.
			f := unaryFunc(op)
			for i, xv := range values(t, x) {
				const h = 1e-3
				num := (f(xv+h) - f(xv-h)) / (2 * h)
				assert.InDelta(t, num, values(t, gx)[i], 1e-2, "x=%v", xv)
			}
		})
	}
}

func TestBackend_Const(t *testing.T) {
	d := newTestDevice(t)
	x := vec(t, d, tensor.Dims(2), -2, 4)
	tests := []struct {
		op   tensor.ConstOp
		k    float32
		want []float32
		grad []float32
	}{
		{tensor.AddConst, 1, []float32{-1, 5}, []float32{1, 1}},
		{tensor.SubtractConstL, 1, []float32{3, -3}, []float32{-1, -1}},
		{tensor.MultiplyConst, 3, []float32{-6, 12}, []float32{3, 3}},
		{tensor.DivideConstR, 2, []float32{-1, 2}, []float32{0.5, 0.5}},
		{tensor.DivideConstL, 8, []float32{-4, 2}, []float32{-2, -0.5}},
		{tensor.PReLU, 0.1, []float32{-0.2, 4}, []float32{0.1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			y, err := d.Const(tt.op, tt.k, x)
			require.NoError(t, err)
			assert.InDeltaSlice(t, tt.want, values(t, y), 1e-6)

			gy := vec(t, d, x.Shape(), 1, 1)
			gx := vec(t, d, x.Shape(), 0, 0)
			require.NoError(t, d.ConstBackward(tt.op, tt.k, x, y, gy, gx))
			assert.InDeltaSlice(t, tt.grad, values(t, gx), 1e-6)
		})
	}
}

func TestBackend_MatMul(t *testing.T) {
	d := newTestDevice(t)
	// a = [[1,3],[2,4]] and b = [[5,7],[6,8]] stored column-major.
	a := vec(t, d, tensor.Dims(2, 2), 1, 2, 3, 4)
	b := vec(t, d, tensor.Dims(2, 2), 5, 6, 7, 8)
	y, err := d.MatMul(a, b)
	require.NoError(t, err)
	// a*b = [[23,31],[34,46]]
	assert.Equal(t, []float32{23, 34, 31, 46}, values(t, y))

	gy := vec(t, d, y.Shape(), 1, 1, 1, 1)
	ga := vec(t, d, a.Shape(), 0, 0, 0, 0)
	gb := vec(t, d, b.Shape(), 0, 0, 0, 0)
	require.NoError(t, d.MatMulBackward(a, b, gy, ga, gb))
	// ga = gy*b^T, gb = a^T*gy
	assert.Equal(t, []float32{12, 12, 14, 14}, values(t, ga))
	assert.Equal(t, []float32{3, 7, 3, 7}, values(t, gb))
}

func TestBackend_MatMulBatch(t *testing.T) {
	d := newTestDevice(t)
	a := vec(t, d, tensor.MustShape([]int{1, 2}, 2), 1, 2, 3, 4)
	b := vec(t, d, tensor.Dims(2), 1, 1)
	y, err := d.MatMul(a, b)
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 7}, values(t, y))

	gy := vec(t, d, y.Shape(), 1, 1)
	ga := vec(t, d, a.Shape(), 0, 0, 0, 0)
	gb := vec(t, d, b.Shape(), 0, 0)
	require.NoError(t, d.MatMulBackward(a, b, gy, ga, gb))
	assert.Equal(t, []float32{1, 1, 1, 1}, values(t, ga))
	assert.Equal(t, []float32{4, 6}, values(t, gb))

	_, err = d.MatMul(a, a)
	assert.ErrorIs(t, err, tensor.ErrShape)
}

func TestBackend_MatMulParallel(t *testing.T) {
	serial := newTestDevice(t)
	par := New(Config{Seed: 42, Parallel: parallel.Config{Workers: 4, MinItems: 2}})
	t.Cleanup(par.Close)

	const batch = 8
	data := make([]float32, 2*3*batch)
	for i := range data {
		data[i] = float32(i%7) - 3
	}
	shape := tensor.MustShape([]int{2, 3}, batch)
	run := func(d *tensor.Device, bBatch int) ([]float32, []float32, []float32) {
		a := vec(t, d, shape, data...)
		b := vec(t, d, tensor.MustShape([]int{3, 2}, bBatch), data[:6*bBatch]...)
		y, err := d.MatMul(a, b)
		require.NoError(t, err)
		ga, err := d.NewTensorBy(a.Shape(), 0)
		require.NoError(t, err)
		gb, err := d.NewTensorBy(b.Shape(), 0)
		require.NoError(t, err)
		require.NoError(t, d.MatMulBackward(a, b, y, ga, gb))
		return values(t, y), values(t, ga), values(t, gb)
	}
	for _, bBatch := range []int{1, batch} {
		wy, wga, wgb := run(serial, bBatch)
		gy, gga, ggb := run(par, bBatch)
		assert.Equal(t, wy, gy, "batch %d", bBatch)
		assert.Equal(t, wga, gga, "batch %d", bBatch)
		assert.Equal(t, wgb, ggb, "batch %d", bBatch)
	}
}

func TestBackend_Manipulation(t *testing.T) {
	d := newTestDevice(t)
	x := vec(t, d, tensor.Dims(3, 2), 1, 2, 3, 4, 5, 6)

	y, err := d.Slice(x, 0, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 3, 5, 6}, values(t, y))

	gx := vec(t, d, x.Shape(), 0, 0, 0, 0, 0, 0)
	require.NoError(t, d.SliceBackward(y, 0, 1, gx))
	assert.Equal(t, []float32{0, 2, 3, 0, 5, 6}, values(t, gx))

	p, err := d.Pick(x, []int{2, 0}, 0)
	require.NoError(t, err)
	assert.Equal(t, "[1,2]x2", p.Shape().String())
	assert.Equal(t, []float32{3, 6, 1, 4}, values(t, p))

	gx = vec(t, d, x.Shape(), 0, 0, 0, 0, 0, 0)
	require.NoError(t, d.PickBackward(p, []int{2, 0}, 0, gx))
	assert.Equal(t, []float32{1, 0, 3, 4, 0, 6}, values(t, gx))

	c, err := d.Concat([]*tensor.Tensor{y, x}, 0)
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 3, 1, 2, 3, 5, 6, 4, 5, 6}, values(t, c))

	tr, err := d.Transpose(x)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 4, 2, 5, 3, 6}, values(t, tr))

	s, err := d.Sum(x, 0)
	require.NoError(t, err)
	assert.Equal(t, []float32{6, 15}, values(t, s))
	s, err = d.Sum(x, 1)
	require.NoError(t, err)
	assert.Equal(t, []float32{5, 7, 9}, values(t, s))

	bc, err := d.Broadcast(s, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []float32{5, 7, 9, 5, 7, 9}, values(t, bc))

	lse, err := d.LogSumExp(vec(t, d, tensor.Dims(2), 0, 0), 0)
	require.NoError(t, err)
	assert.InDelta(t, math.Log(2), values(t, lse)[0], 1e-6)

	bs, err := d.BatchSum(vec(t, d, tensor.MustShape([]int{2}, 3), 1, 2, 3, 4, 5, 6))
	require.NoError(t, err)
	assert.Equal(t, []float32{9, 12}, values(t, bs))
}

func TestBackend_RandomIsSeeded(t *testing.T) {
	d1, d2 := New(Config{Seed: 7}), New(Config{Seed: 7})
	defer d1.Close()
	defer d2.Close()

	x1, err := d1.RandomNormal(tensor.Dims(16), 0, 1)
	require.NoError(t, err)
	x2, err := d2.RandomNormal(tensor.Dims(16), 0, 1)
	require.NoError(t, err)
	assert.Equal(t, values(t, x1), values(t, x2))

	u, err := d1.RandomUniform(tensor.Dims(100), -1, 1)
	require.NoError(t, err)
	for _, v := range values(t, u) {
		assert.True(t, v > -1 && v <= 1, "uniform sample %v outside (-1, 1]", v)
	}

	bern, err := d1.RandomBernoulli(tensor.Dims(100), 0.5)
	require.NoError(t, err)
	for _, v := range values(t, bern) {
		assert.True(t, v == 0 || v == 1)
	}

	ln, err := d1.RandomLogNormal(tensor.Dims(10), 0, 1)
	require.NoError(t, err)
	for _, v := range values(t, ln) {
		assert.Greater(t, v, float32(0))
	}

	_, err = d1.RandomNormal(tensor.Dims(2), 0, 0)
	assert.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	t.Setenv("DAGRAD_SEED", "9")
	t.Setenv("DAGRAD_MEMORY_LIMIT", "1K")
	cfg := DefaultConfig()
	assert.Equal(t, uint64(9), cfg.Seed)
	assert.Equal(t, 1024, cfg.MemoryLimit)
	assert.Equal(t, parallel.DefaultConfig(), cfg.Parallel)

	d := New(cfg)
	defer d.Close()
	_, err := d.NewTensor(tensor.Dims(512))
	assert.ErrorIs(t, err, tensor.ErrAllocation)
}
