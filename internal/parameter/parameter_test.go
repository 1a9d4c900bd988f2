package parameter_test

import (
	"math"
	"testing"

	"github.com/born-ml/dagrad/internal/backend/naive"
	"github.com/born-ml/dagrad/internal/parameter"
	"github.com/born-ml/dagrad/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDevice(t *testing.T) *tensor.Device {
	dev := naive.New(naive.Config{Seed: 3})
	t.Cleanup(dev.Close)
	return dev
}

func toVector(t *testing.T, x *tensor.Tensor) []float32 {
	t.Helper()
	v, err := x.ToVector()
	require.NoError(t, err)
	return v
}

func TestParameter_Lifecycle(t *testing.T) {
	dev := newDevice(t)
	p, err := parameter.NewByVector(tensor.Dims(2, 2), dev, []float32{1, 2, 3, 4})
	require.NoError(t, err)
	defer p.Release()

	assert.True(t, p.Valid())
	assert.Same(t, dev, p.Device())
	assert.True(t, p.Shape().Equal(tensor.Dims(2, 2)))
	assert.Equal(t, []float32{0, 0, 0, 0}, toVector(t, p.Gradient()))

	diff, err := dev.NewTensorByVector(tensor.MustShape([]int{2, 2}, 2), []float32{1, 1, 1, 1, 2, 2, 2, 2})
	require.NoError(t, err)
	defer diff.Release()

	require.NoError(t, p.AddGradient(diff))
	assert.Equal(t, []float32{3, 3, 3, 3}, toVector(t, p.Gradient()), "batched gradients are summed")
	require.NoError(t, p.ResetGradient())
	assert.Equal(t, []float32{0, 0, 0, 0}, toVector(t, p.Gradient()))

	step, err := dev.NewTensorBy(tensor.Dims(2, 2), -1)
	require.NoError(t, err)
	defer step.Release()
	require.NoError(t, p.AddValue(step))
	assert.Equal(t, []float32{0, 1, 2, 3}, toVector(t, p.Value()))

	require.NoError(t, p.ResetValue([]float32{9, 9, 9, 9}))
	assert.Equal(t, []float32{9, 9, 9, 9}, toVector(t, p.Value()))
	assert.ErrorIs(t, p.ResetValue([]float32{1}), tensor.ErrShape)
}

func TestParameter_SharedValueIsCopiedOnWrite(t *testing.T) {
	dev := newDevice(t)
	p, err := parameter.NewByVector(tensor.Dims(2), dev, []float32{1, 2})
	require.NoError(t, err)
	defer p.Release()

	snapshot := p.Value().Retain()
	defer snapshot.Release()

	require.NoError(t, p.ResetValue([]float32{5, 6}))
	assert.Equal(t, []float32{1, 2}, toVector(t, snapshot))
	assert.Equal(t, []float32{5, 6}, toVector(t, p.Value()))
}

func TestParameter_Errors(t *testing.T) {
	dev := newDevice(t)

	_, err := parameter.New(tensor.MustShape([]int{2}, 3), dev, parameter.Constant{K: 1})
	assert.ErrorIs(t, err, tensor.ErrShape)
	_, err = parameter.New(tensor.Dims(2), nil, parameter.Constant{K: 1})
	assert.ErrorIs(t, err, tensor.ErrInvalidReference)
	_, err = parameter.New(tensor.Dims(2, 3), dev, parameter.Identity{})
	assert.ErrorIs(t, err, tensor.ErrShape)
	_, err = parameter.New(tensor.Dims(2, 2, 2), dev, parameter.XavierUniform{Scale: 1})
	assert.ErrorIs(t, err, tensor.ErrShape)

	var p parameter.Parameter
	assert.False(t, p.Valid())
	assert.ErrorIs(t, p.ResetGradient(), tensor.ErrInvalidReference)
}

func TestInitializers(t *testing.T) {
	dev := newDevice(t)

	tests := []struct {
		name  string
		shape tensor.Shape
		init  parameter.Initializer
		check func(t *testing.T, v []float32)
	}{
		{
			name:  "constant",
			shape: tensor.Dims(3),
			init:  parameter.Constant{K: 0.5},
			check: func(t *testing.T, v []float32) {
				assert.Equal(t, []float32{0.5, 0.5, 0.5}, v)
			},
		},
		{
			name:  "identity",
			shape: tensor.Dims(3, 3),
			init:  parameter.Identity{},
			check: func(t *testing.T, v []float32) {
				assert.Equal(t, []float32{1, 0, 0, 0, 1, 0, 0, 0, 1}, v)
			},
		},
		{
			name:  "uniform",
			shape: tensor.Dims(200),
			init:  parameter.Uniform{Lower: 2, Upper: 3},
			check: func(t *testing.T, v []float32) {
				for _, x := range v {
					assert.True(t, x > 2 && x <= 3, "%v out of range", x)
				}
			},
		},
		{
			name:  "xavier uniform",
			shape: tensor.Dims(10, 20),
			init:  parameter.XavierUniform{Scale: 1},
			check: func(t *testing.T, v []float32) {
				bound := float32(math.Sqrt(6.0 / 30))
				for _, x := range v {
					assert.LessOrEqual(t, float32(math.Abs(float64(x))), bound)
				}
			},
		},
		{
			name:  "normal",
			shape: tensor.Dims(4000),
			init:  parameter.Normal{Mean: 1, SD: 0.1},
			check: func(t *testing.T, v []float32) {
				var sum float64
				for _, x := range v {
					sum += float64(x)
				}
				assert.InDelta(t, 1, sum/float64(len(v)), 0.02)
			},
		},
		{
			name:  "xavier normal",
			shape: tensor.Dims(50, 50),
			init:  parameter.XavierNormal{Scale: 1},
			check: func(t *testing.T, v []float32) {
				var sq float64
				for _, x := range v {
					sq += float64(x) * float64(x)
				}
				assert.InDelta(t, math.Sqrt(2.0/100), math.Sqrt(sq/float64(len(v))), 0.02)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := parameter.New(tt.shape, dev, tt.init)
			require.NoError(t, err)
			defer p.Release()
			tt.check(t, toVector(t, p.Value()))
		})
	}
}
