package graph_test

import (
	"bytes"
	"testing"

	"github.com/born-ml/dagrad/internal/backend/naive"
	"github.com/born-ml/dagrad/internal/functions"
	"github.com/born-ml/dagrad/internal/graph"
	ops "github.com/born-ml/dagrad/internal/operators"
	"github.com/born-ml/dagrad/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingFunction counts Forward calls of the wrapped function.
type countingFunction struct {
	graph.Function
	calls int
}

func (c *countingFunction) Forward(args []*tensor.Tensor) ([]*tensor.Tensor, error) {
	c.calls++
	return c.Function.Forward(args)
}

func setup(t *testing.T) (*graph.Graph, *tensor.Device) {
	t.Helper()
	dev := naive.New(naive.Config{Seed: 1})
	g := graph.New()
	t.Cleanup(func() {
		g.Clear()
		dev.Close()
	})
	return g, dev
}

// checker unwraps (value, error) pairs inside assertions.
type checker struct{ t *testing.T }

func (c checker) node(n graph.Node, err error) graph.Node {
	c.t.Helper()
	require.NoError(c.t, err)
	return n
}

func (c checker) vec(x *tensor.Tensor, err error) []float32 {
	c.t.Helper()
	require.NoError(c.t, err)
	v, err := x.ToVector()
	require.NoError(c.t, err)
	return v
}

// TestGraph_ScenarioA checks sum(x + ones, 0).
func TestGraph_ScenarioA(t *testing.T) {
	c := checker{t}
	g, dev := setup(t)
	s := tensor.Dims(2, 2)

	x := c.node(ops.Input(g, dev, s, []float32{1, 2, 3, 4}))
	y := c.node(ops.Ones(g, dev, s))
	z := c.node(ops.Add(x, y))
	w := c.node(ops.Sum(z, 0))

	got, err := w.ToVector()
	require.NoError(t, err)
	assert.Equal(t, []float32{5, 9}, got)
}

// TestGraph_ScenarioB checks the gradient of sum(x*x).
func TestGraph_ScenarioB(t *testing.T) {
	c := checker{t}
	g, dev := setup(t)

	x := c.node(ops.Input(g, dev, tensor.Dims(2, 2), []float32{1, 2, 3, 4}))
	sq := c.node(ops.Multiply(x, x))
	loss := c.node(ops.SumAll(sq))

	require.NoError(t, loss.Backward())
	assert.Equal(t, []float32{2, 4, 6, 8}, c.vec(x.Gradient()))
	assert.Equal(t, []float32{30}, c.vec(loss.Value()))
}

// TestGraph_ScenarioC checks that mixing devices fails at evaluation.
func TestGraph_ScenarioC(t *testing.T) {
	c := checker{t}
	g, devA := setup(t)
	devB := naive.New(naive.Config{})
	defer devB.Close()

	a := c.node(ops.Ones(g, devA, tensor.Dims(2)))
	b := c.node(ops.Ones(g, devB, tensor.Dims(2)))

	ab := c.node(ops.Add(a, b))
	_, err := ab.Forward()
	assert.ErrorIs(t, err, tensor.ErrDeviceMismatch)

	ba := c.node(ops.Add(b, a))
	_, err = ba.Forward()
	assert.ErrorIs(t, err, tensor.ErrDeviceMismatch)

	// Ancestors computed before the failure stay valid.
	v, err := a.Value()
	require.NoError(t, err)
	assert.True(t, v.Valid())

	moved := c.node(ops.Copy(b, devA))
	ok := c.node(ops.Add(a, moved))
	assert.Equal(t, []float32{2, 2}, c.vec(ok.Forward()))
}

// TestGraph_Memoization checks that each record is computed once.
func TestGraph_Memoization(t *testing.T) {
	c := checker{t}
	g, dev := setup(t)

	counter := &countingFunction{Function: functions.NewInput(tensor.Dims(2), dev, []float32{1, 2})}
	x := c.node(g.AddFunction1(counter))
	a := c.node(ops.Exp(x))
	b := c.node(ops.Tanh(x))

	v1, err := a.Forward()
	require.NoError(t, err)
	v2, err := a.Forward()
	require.NoError(t, err)
	assert.Same(t, &v1.Data()[0], &v2.Data()[0], "both views share the stored value")

	_, err = b.Forward()
	require.NoError(t, err)
	require.NoError(t, b.Backward())
	assert.Equal(t, 1, counter.calls, "shared ancestor is computed once")
}

// TestGraph_ReturnedTensorsAreViews checks that callers cannot disturb stored values.
func TestGraph_ReturnedTensorsAreViews(t *testing.T) {
	c := checker{t}
	g, dev := setup(t)

	x := c.node(ops.Input(g, dev, tensor.Dims(2), []float32{1, 2}))
	v, err := x.Forward()
	require.NoError(t, err)
	require.NoError(t, v.InplaceMultiplyConst(0))
	assert.Equal(t, []float32{0, 0}, c.vec(v, nil))
	assert.Equal(t, []float32{11, 12}, c.vec(c.node(ops.AddConst(x, 10)).Forward()))

	v.Release()
	assert.Equal(t, []float32{1, 2}, c.vec(x.Value()))
	e := c.node(ops.Exp(x))
	_, err = e.Forward()
	require.NoError(t, err)

	y := c.node(ops.Multiply(x, x))
	require.NoError(t, y.Backward())
	gx, err := x.Gradient()
	require.NoError(t, err)
	require.NoError(t, gx.InplaceMultiplyConst(2))
	assert.Equal(t, []float32{2, 4}, c.vec(x.Gradient()))

	held, err := y.Value()
	require.NoError(t, err)
	g.Clear()
	assert.Equal(t, []float32{1, 4}, c.vec(held, nil))
	assert.Equal(t, []float32{4, 8}, c.vec(gx, nil))
	held.Release()
	gx.Release()
}

func TestGraph_Value(t *testing.T) {
	c := checker{t}
	g, dev := setup(t)
	x := c.node(ops.Input(g, dev, tensor.Dims(2), []float32{1, 2}))
	y := c.node(ops.MultiplyConst(x, 3))

	v, err := y.Value()
	require.NoError(t, err)
	assert.False(t, v.Valid(), "value is not computed before forward")
	gr, err := y.Gradient()
	require.NoError(t, err)
	assert.False(t, gr.Valid())

	s, err := y.Shape()
	require.NoError(t, err)
	assert.True(t, s.Equal(tensor.Dims(2)))
	assert.Equal(t, []float32{3, 6}, c.vec(y.Forward()))

	f, err := g.Function(y)
	require.NoError(t, err)
	assert.Equal(t, "multiply_const(3)", f.Name())
}

// TestGraph_MultiConsumer checks that gradients from several consumers add up.
func TestGraph_MultiConsumer(t *testing.T) {
	c := checker{t}
	g, dev := setup(t)

	src := c.node(ops.Input(g, dev, tensor.Dims(3), []float32{1, 2, 3}))
	p := c.node(ops.MultiplyConst(src, 2))
	q := c.node(ops.MultiplyConst(src, 3))
	d := c.node(ops.Add(p, q))
	loss := c.node(ops.SumAll(d))

	require.NoError(t, loss.Backward())
	assert.Equal(t, []float32{5, 5, 5}, c.vec(src.Gradient()))

	// A second backward starts from fresh gradients.
	require.NoError(t, loss.Backward())
	assert.Equal(t, []float32{5, 5, 5}, c.vec(src.Gradient()))
}

// TestGraph_BackwardSkipsDescendants checks that nodes after the target get no gradient.
func TestGraph_BackwardSkipsDescendants(t *testing.T) {
	c := checker{t}
	g, dev := setup(t)

	x := c.node(ops.Input(g, dev, tensor.Dims(2, 2), []float32{1, 2, 3, 4}))
	y := c.node(ops.MultiplyConst(x, 2))
	z := c.node(ops.MultiplyConst(y, 3))
	other := c.node(ops.Input(g, dev, tensor.Dims(2), []float32{1, 1}))

	_, err := z.Forward()
	require.NoError(t, err)
	require.NoError(t, y.Backward())

	// Non-scalar target: every element is seeded with 1.
	assert.Equal(t, []float32{1, 1, 1, 1}, c.vec(y.Gradient()))
	assert.Equal(t, []float32{2, 2, 2, 2}, c.vec(x.Gradient()))

	gz, err := z.Gradient()
	require.NoError(t, err)
	assert.False(t, gz.Valid())
	gOther, err := other.Gradient()
	require.NoError(t, err)
	assert.False(t, gOther.Valid())
}

func TestGraph_StopGradient(t *testing.T) {
	c := checker{t}
	g, dev := setup(t)

	x := c.node(ops.Input(g, dev, tensor.Dims(2), []float32{1, 2}))
	s := c.node(ops.StopGradient(x))
	y := c.node(ops.Multiply(s, x))
	loss := c.node(ops.SumAll(y))

	require.NoError(t, loss.Backward())
	assert.Equal(t, []float32{1, 2}, c.vec(x.Gradient()), "only the direct path contributes")
}

func TestGraph_Split(t *testing.T) {
	c := checker{t}
	g, dev := setup(t)

	x := c.node(ops.Input(g, dev, tensor.Dims(4), []float32{1, 2, 3, 4}))
	parts, err := ops.Split(x, 0, 2)
	require.NoError(t, err)
	require.Len(t, parts, 2)
	assert.Equal(t, 1, parts[1].ValueID())

	a := c.node(ops.MultiplyConst(parts[0], 3))
	y := c.node(ops.Add(a, parts[1]))
	loss := c.node(ops.SumAll(y))

	assert.Equal(t, []float32{6, 10}, c.vec(y.Forward()))
	require.NoError(t, loss.Backward())
	assert.Equal(t, []float32{3, 3, 1, 1}, c.vec(x.Gradient()))
}

// TestGraph_OnlyOneSplitOutputUsed checks that unused outputs get a zero gradient.
func TestGraph_OnlyOneSplitOutputUsed(t *testing.T) {
	c := checker{t}
	g, dev := setup(t)

	x := c.node(ops.Input(g, dev, tensor.Dims(4), []float32{1, 2, 3, 4}))
	parts, err := ops.Split(x, 0, 2)
	require.NoError(t, err)
	loss := c.node(ops.SumAll(parts[1]))

	require.NoError(t, loss.Backward())
	assert.Equal(t, []float32{0, 0, 1, 1}, c.vec(x.Gradient()))
	assert.Equal(t, []float32{0, 0}, c.vec(parts[0].Gradient()))
}

// TestGraph_Clear checks that nodes issued before Clear are rejected.
func TestGraph_Clear(t *testing.T) {
	c := checker{t}
	g, dev := setup(t)

	x := c.node(ops.Input(g, dev, tensor.Dims(2), []float32{1, 2}))
	y := c.node(ops.Exp(x))
	_, err := y.Forward()
	require.NoError(t, err)

	g.Clear()
	assert.Equal(t, 0, g.NumFunctions())
	assert.False(t, x.Valid())

	_, err = y.Forward()
	assert.ErrorIs(t, err, tensor.ErrInvalidReference)
	_, err = y.Value()
	assert.ErrorIs(t, err, tensor.ErrInvalidReference)
	_, err = y.Gradient()
	assert.ErrorIs(t, err, tensor.ErrInvalidReference)
	assert.ErrorIs(t, y.Backward(), tensor.ErrInvalidReference)
	_, err = ops.Exp(x)
	assert.ErrorIs(t, err, tensor.ErrInvalidReference)

	// Rebuilding reuses ids but old nodes stay invalid.
	z := c.node(ops.Input(g, dev, tensor.Dims(2), []float32{3, 4}))
	assert.Equal(t, x.FunctionID(), z.FunctionID())
	_, err = x.Forward()
	assert.ErrorIs(t, err, tensor.ErrInvalidReference)
	assert.Equal(t, []float32{3, 4}, c.vec(z.Forward()))
}

func TestGraph_InvalidNodes(t *testing.T) {
	c := checker{t}
	g, dev := setup(t)
	other := graph.New()

	x := c.node(ops.Input(other, dev, tensor.Dims(2), []float32{1, 2}))
	_, err := g.AddFunction(&functions.Unary{Op: tensor.Exp}, x)
	assert.ErrorIs(t, err, tensor.ErrInvalidReference)
	_, err = g.Forward(x)
	assert.ErrorIs(t, err, tensor.ErrInvalidReference)

	var zero graph.Node
	assert.False(t, zero.Valid())
	_, err = zero.Forward()
	assert.ErrorIs(t, err, tensor.ErrInvalidReference)
	_, err = ops.Exp(zero)
	assert.ErrorIs(t, err, tensor.ErrInvalidReference)

	var nilGraph *graph.Graph
	_, err = ops.Input(nilGraph, dev, tensor.Dims(2), []float32{1, 2})
	assert.ErrorIs(t, err, tensor.ErrInvalidReference)
	_, err = ops.Constant(nilGraph, dev, tensor.Dims(2), 1)
	assert.ErrorIs(t, err, tensor.ErrInvalidReference)
	_, err = ops.RandomNormal(nilGraph, dev, tensor.Dims(2), 0, 1)
	assert.ErrorIs(t, err, tensor.ErrInvalidReference)
	_, err = nilGraph.Forward(x)
	assert.ErrorIs(t, err, tensor.ErrInvalidReference)
	assert.Zero(t, nilGraph.NumFunctions())
}

// TestGraph_ShapeErrorLeavesGraphUnchanged checks that failed additions are not recorded.
func TestGraph_ShapeErrorLeavesGraphUnchanged(t *testing.T) {
	c := checker{t}
	g, dev := setup(t)

	a := c.node(ops.Ones(g, dev, tensor.Dims(2, 3)))
	b := c.node(ops.Ones(g, dev, tensor.Dims(3, 2)))
	n := g.NumFunctions()

	_, err := ops.Add(a, b)
	assert.ErrorIs(t, err, tensor.ErrShape)
	_, err = ops.MatMul(a, a)
	assert.ErrorIs(t, err, tensor.ErrShape)
	_, err = ops.Input(g, dev, tensor.Dims(2), []float32{1})
	assert.ErrorIs(t, err, tensor.ErrShape)
	assert.Equal(t, n, g.NumFunctions())

	m := c.node(ops.MatMul(a, b))
	assert.Equal(t, []float32{3, 3, 3, 3}, c.vec(m.Forward()))
}

// TestGraph_BatchedChain reproduces a batched forward/backward chain with shared operands.
func TestGraph_BatchedChain(t *testing.T) {
	c := checker{t}
	g, dev := setup(t)
	s1 := tensor.MustShape([]int{2, 2}, 3)

	n1 := c.node(ops.Input(g, dev, s1, []float32{1, 2, 3, 4, 1, 2, 3, 4, 1, 2, 3, 4}))
	n2 := c.node(ops.Ones(g, dev, tensor.Dims(2, 2)))
	n3 := c.node(ops.Input(g, dev, s1, []float32{0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2}))
	n4 := c.node(ops.Add(n1, n2))
	n5 := c.node(ops.Subtract(n2, n3))
	n6 := c.node(ops.Multiply(n4, n5))
	n7 := c.node(ops.AddConst(n6, 1))
	n8 := c.node(ops.Sum(n7, 0))
	n9 := c.node(ops.Sum(n8, 1))
	n10 := c.node(ops.BatchSum(n9))
	assert.Equal(t, 10, g.NumFunctions())

	wantShapes := []tensor.Shape{
		s1, tensor.Dims(2, 2), s1, s1, s1, s1, s1,
		tensor.MustShape([]int{1, 2}, 3), tensor.MustShape(nil, 3), tensor.Dims(),
	}
	nodes := []graph.Node{n1, n2, n3, n4, n5, n6, n7, n8, n9, n10}
	for i, n := range nodes {
		s, err := n.Shape()
		require.NoError(t, err)
		assert.True(t, wantShapes[i].Equal(s), "node %d: want %s, got %s", i, wantShapes[i], s)
	}

	_, err := n10.Forward()
	require.NoError(t, err)
	wantValues := [][]float32{
		{1, 2, 3, 4, 1, 2, 3, 4, 1, 2, 3, 4},
		{1, 1, 1, 1},
		{0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2},
		{2, 3, 4, 5, 2, 3, 4, 5, 2, 3, 4, 5},
		{1, 1, 1, 1, 0, 0, 0, 0, -1, -1, -1, -1},
		{2, 3, 4, 5, 0, 0, 0, 0, -2, -3, -4, -5},
		{3, 4, 5, 6, 1, 1, 1, 1, -1, -2, -3, -4},
		{7, 11, 2, 2, -3, -7},
		{18, 4, -10},
		{12},
	}
	for i, n := range nodes {
		assert.Equal(t, wantValues[i], c.vec(n.Value()), "node %d", i)
	}

	require.NoError(t, n10.Backward())
	assert.Equal(t, []float32{1, 1, 1, 1, 0, 0, 0, 0, -1, -1, -1, -1}, c.vec(n1.Gradient()))
	assert.Equal(t, []float32{6, 9, 12, 15}, c.vec(n2.Gradient()))
	assert.Equal(t, []float32{-2, -3, -4, -5, -2, -3, -4, -5, -2, -3, -4, -5}, c.vec(n3.Gradient()))

	var buf bytes.Buffer
	require.NoError(t, g.Dump(&buf, "dot"))
	assert.Contains(t, buf.String(), "digraph")
	assert.Contains(t, buf.String(), "f3 -> f5;")
	assert.Error(t, g.Dump(&buf, "json"))
}

func TestGraph_Default(t *testing.T) {
	graph.SetDefault(nil)
	_, err := graph.Default()
	assert.ErrorIs(t, err, tensor.ErrInvalidReference)

	g := graph.New()
	graph.SetDefault(g)
	got, err := graph.Default()
	require.NoError(t, err)
	assert.Same(t, g, got)

	g.Close()
	_, err = graph.Default()
	assert.ErrorIs(t, err, tensor.ErrInvalidReference)
}
