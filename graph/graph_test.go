// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package graph_test

import (
	"testing"

	"github.com/born-ml/dagrad/backend/naive"
	"github.com/born-ml/dagrad/graph"
	"github.com/born-ml/dagrad/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicAPI(t *testing.T) {
	dev := naive.New(naive.Config{Seed: 1})
	defer dev.Close()
	g := graph.New()
	defer g.Clear()
	s := graph.Scope{Graph: g, Device: dev}

	w, err := graph.NewParameter(tensor.Dims(2, 2), dev, graph.Identity{})
	require.NoError(t, err)
	defer w.Release()

	x, err := s.Input(tensor.Dims(2, 2), []float32{1, 2, 3, 4})
	require.NoError(t, err)
	wn, err := s.Parameter(w)
	require.NoError(t, err)
	y, err := graph.MatMul(wn, x)
	require.NoError(t, err)
	sq, err := graph.Multiply(y, y)
	require.NoError(t, err)
	loss, err := graph.SumAll(sq)
	require.NoError(t, err)

	v, err := loss.ToFloat()
	require.NoError(t, err)
	assert.Equal(t, float32(30), v)

	require.NoError(t, loss.Backward())
	gx, err := x.Gradient()
	require.NoError(t, err)
	got, err := gx.ToVector()
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 4, 6, 8}, got)

	// d/dW sum((W X)^2) = 2 W X X^T with W = I.
	gw, err := w.Gradient().ToVector()
	require.NoError(t, err)
	assert.Equal(t, []float32{20, 28, 28, 40}, gw)
}
