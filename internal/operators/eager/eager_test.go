package eager_test

import (
	"math"
	"testing"

	"github.com/born-ml/dagrad/internal/backend/naive"
	"github.com/born-ml/dagrad/internal/functions"
	"github.com/born-ml/dagrad/internal/operators/eager"
	"github.com/born-ml/dagrad/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checker struct{ t *testing.T }

func (c checker) tensor(x *tensor.Tensor, err error) *tensor.Tensor {
	c.t.Helper()
	require.NoError(c.t, err)
	c.t.Cleanup(x.Release)
	return x
}

func (c checker) vec(x *tensor.Tensor, err error) []float32 {
	c.t.Helper()
	v, err := c.tensor(x, err).ToVector()
	require.NoError(c.t, err)
	return v
}

func newDevice(t *testing.T) *tensor.Device {
	dev := naive.New(naive.Config{Seed: 7})
	t.Cleanup(dev.Close)
	return dev
}

func TestEager_SumOfAdd(t *testing.T) {
	c := checker{t}
	dev := newDevice(t)

	x := c.tensor(eager.Input(dev, tensor.Dims(2, 2), []float32{1, 2, 3, 4}))
	y := c.tensor(eager.Ones(dev, tensor.Dims(2, 2)))
	z := c.tensor(eager.Add(x, y))
	assert.Equal(t, []float32{5, 9}, c.vec(eager.Sum(z, 0)))
	assert.Equal(t, []float32{14}, c.vec(eager.SumAll(z)))
}

func TestEager_DeviceMismatch(t *testing.T) {
	c := checker{t}
	devA := newDevice(t)
	devB := newDevice(t)

	a := c.tensor(eager.Ones(devA, tensor.Dims(2)))
	b := c.tensor(eager.Ones(devB, tensor.Dims(2)))

	_, err := eager.Add(a, b)
	assert.ErrorIs(t, err, tensor.ErrDeviceMismatch)
	_, err = eager.Add(b, a)
	assert.ErrorIs(t, err, tensor.ErrDeviceMismatch)

	moved := c.tensor(eager.Copy(b, devA))
	assert.Same(t, devA, moved.Device())
	assert.Equal(t, []float32{2, 2}, c.vec(eager.Add(a, moved)))
}

func TestEager_Errors(t *testing.T) {
	c := checker{t}
	dev := newDevice(t)

	a := c.tensor(eager.Ones(dev, tensor.Dims(2, 3)))
	_, err := eager.MatMul(a, a)
	assert.ErrorIs(t, err, tensor.ErrShape)
	_, err = eager.Input(dev, tensor.Dims(2), []float32{1, 2, 3})
	assert.ErrorIs(t, err, tensor.ErrShape)
	_, err = eager.Exp(&tensor.Tensor{})
	assert.ErrorIs(t, err, tensor.ErrInvalidReference)
	_, err = eager.Concat(nil, 0)
	assert.ErrorIs(t, err, tensor.ErrShape)
}

func TestEager_Apply(t *testing.T) {
	c := checker{t}
	dev := newDevice(t)

	x := c.tensor(eager.Input(dev, tensor.Dims(4), []float32{1, 2, 3, 4}))
	ys, err := eager.Apply(&functions.Split{Dim: 0, N: 2}, x)
	require.NoError(t, err)
	require.Len(t, ys, 2)
	for _, y := range ys {
		t.Cleanup(y.Release)
	}
	v0, err := ys[0].ToVector()
	require.NoError(t, err)
	v1, err := ys[1].ToVector()
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, v0)
	assert.Equal(t, []float32{3, 4}, v1)

	parts, err := eager.Split(x, 0, 4)
	require.NoError(t, err)
	assert.Len(t, parts, 4)
	for _, p := range parts {
		p.Release()
	}
}

func TestEager_Softmax(t *testing.T) {
	c := checker{t}
	dev := newDevice(t)

	x := c.tensor(eager.Input(dev, tensor.MustShape([]int{2}, 2), []float32{0, 0, 0, math.Ln2}))
	got := c.vec(eager.Softmax(x, 0))
	assert.InDeltaSlice(t, []float32{0.5, 0.5, 1.0 / 3, 2.0 / 3}, got, 1e-5)
}

func TestEager_Manipulation(t *testing.T) {
	c := checker{t}
	dev := newDevice(t)

	x := c.tensor(eager.Input(dev, tensor.Dims(2, 3), []float32{1, 2, 3, 4, 5, 6}))
	assert.Equal(t, []float32{1, 3, 5, 2, 4, 6}, c.vec(eager.Transpose(x)))
	assert.Equal(t, []float32{2, 4, 6}, c.vec(eager.Pick(x, []int{1}, 0)))

	s := c.tensor(eager.Slice(x, 1, 0, 2))
	joined := c.tensor(eager.Concat([]*tensor.Tensor{s, s}, 1))
	assert.True(t, joined.Shape().Equal(tensor.Dims(2, 4)))

	flat := c.tensor(eager.Flatten(x))
	assert.True(t, flat.Shape().Equal(tensor.Dims(6)))
	r := c.tensor(eager.Reshape(x, tensor.Dims(3, 2)))
	assert.True(t, r.Shape().Equal(tensor.Dims(3, 2)))
	assert.Equal(t, []float32{1, 0, 0, 1}, c.vec(eager.Identity(dev, 2)))
	assert.Equal(t, []float32{2, 3, 4, 5}, c.vec(eager.AddConst(s, 1)))
}
