// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor_test

import (
	"testing"

	"github.com/born-ml/dagrad/backend/naive"
	"github.com/born-ml/dagrad/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestKernelsInterface verifies that the naive backend implements tensor.Kernels.
func TestKernelsInterface(_ *testing.T) {
	var _ tensor.Kernels = (*naive.Backend)(nil)
}

func TestShapeAPI(t *testing.T) {
	s := tensor.MustShape([]int{2, 3, 1}, 4)
	assert.Equal(t, "[2,3]x4", s.String())
	assert.Equal(t, 6, s.Volume())
	assert.Equal(t, 24, s.Size())

	_, err := tensor.NewShape([]int{0}, 1)
	assert.ErrorIs(t, err, tensor.ErrShape)
}

func TestDeviceAPI(t *testing.T) {
	dev := tensor.NewDevice(naive.NewBackend(1), tensor.NewHeapAllocator(0))
	before := tensor.LivePools()

	x, err := dev.NewTensorByVector(tensor.Dims(2, 2), []float32{1, 2, 3, 4})
	require.NoError(t, err)
	y, err := dev.Sum(x, 0)
	require.NoError(t, err)
	v, err := y.ToVector()
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 7}, v)

	z, err := dev.Const(tensor.MultiplyConst, 2, x)
	require.NoError(t, err)
	v, err = z.ToVector()
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 4, 6, 8}, v)

	x.Release()
	y.Release()
	z.Release()
	var stats tensor.PoolStats = dev.PoolStats()
	assert.Equal(t, 3, stats.Reserved)

	dev.Close()
	assert.Equal(t, before-1, tensor.LivePools())
}
