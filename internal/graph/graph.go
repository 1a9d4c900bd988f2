// Package graph records computations as a DAG of functions and evaluates it.
//
// Functions are appended to a Graph together with the nodes they consume.
// Values are computed lazily, at most once per record, when a node is
// forwarded; Backward propagates gradients from a target node to every
// record it depends on.
package graph

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/born-ml/dagrad/internal/tensor"
)

// address locates one output of one record.
type address struct {
	fid int
	vid int
}

// slot holds the state of one output.
type slot struct {
	shape tensor.Shape
	value *tensor.Tensor
	grad  *tensor.Tensor
}

// record is one function invocation.
type record struct {
	fn    Function
	args  []address
	rets  []slot
	sinks []int // ids of later records consuming an output, ascending
}

func (r *record) computed() bool {
	return r.rets[0].value != nil
}

// Graph is an append-only DAG of function invocations.
//
// Arguments always refer to records with lower ids, so the graph is acyclic
// by construction. A Graph is not safe for concurrent use.
type Graph struct {
	funcs []*record
	gen   uint64
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{}
}

// NumFunctions returns the number of recorded functions.
func (g *Graph) NumFunctions() int {
	if g == nil {
		return 0
	}
	return len(g.funcs)
}

func (g *Graph) check(n Node) error {
	if g == nil {
		return errNilGraph
	}
	if n.g != g || n.gen != g.gen || n.fid < 0 || n.fid >= len(g.funcs) || n.vid < 0 || n.vid >= len(g.funcs[n.fid].rets) {
		return fmt.Errorf("%w: node %s is not valid in this graph", tensor.ErrInvalidReference, n)
	}
	return nil
}

var errNilGraph = fmt.Errorf("%w: nil graph", tensor.ErrInvalidReference)

// AddFunction records fn applied to args and returns one node per output.
// On error the graph is left unchanged.
func (g *Graph) AddFunction(fn Function, args ...Node) ([]Node, error) {
	if g == nil {
		return nil, fmt.Errorf("add %s: %w", fn.Name(), errNilGraph)
	}
	addrs := make([]address, len(args))
	shapes := make([]tensor.Shape, len(args))
	for i, arg := range args {
		if err := g.check(arg); err != nil {
			return nil, fmt.Errorf("add %s: argument %d: %w", fn.Name(), i, err)
		}
		addrs[i] = address{fid: arg.fid, vid: arg.vid}
		shapes[i] = g.funcs[arg.fid].rets[arg.vid].shape
	}

	retShapes, err := fn.ForwardShapes(shapes)
	if err != nil {
		return nil, fmt.Errorf("add %s: %w", fn.Name(), err)
	}
	if len(retShapes) == 0 {
		return nil, fmt.Errorf("add %s: function has no outputs", fn.Name())
	}

	fid := len(g.funcs)
	rec := &record{fn: fn, args: addrs, rets: make([]slot, len(retShapes))}
	for i, s := range retShapes {
		rec.rets[i].shape = s
	}
	for _, a := range addrs {
		arg := g.funcs[a.fid]
		if n := len(arg.sinks); n == 0 || arg.sinks[n-1] != fid {
			arg.sinks = append(arg.sinks, fid)
		}
	}
	g.funcs = append(g.funcs, rec)

	nodes := make([]Node, len(retShapes))
	for i := range nodes {
		nodes[i] = Node{g: g, gen: g.gen, fid: fid, vid: i}
	}
	return nodes, nil
}

// AddFunction1 is AddFunction for functions with a single output.
func (g *Graph) AddFunction1(fn Function, args ...Node) (Node, error) {
	nodes, err := g.AddFunction(fn, args...)
	if err != nil {
		return Node{}, err
	}
	return nodes[0], nil
}

// Shape returns the inferred shape of n.
func (g *Graph) Shape(n Node) (tensor.Shape, error) {
	if err := g.check(n); err != nil {
		return tensor.Shape{}, err
	}
	return g.funcs[n.fid].rets[n.vid].shape, nil
}

// Function returns the function that produces n.
func (g *Graph) Function(n Node) (Function, error) {
	if err := g.check(n); err != nil {
		return nil, err
	}
	return g.funcs[n.fid].fn, nil
}

// Forward computes the value of n and of every record it depends on that is
// not computed yet. Each record is computed at most once.
//
// The result is a caller-owned view of the stored value: in-place updates on
// it copy first, and releasing it or clearing the graph leaves the other side
// intact. Callers release it when done.
func (g *Graph) Forward(n Node) (*tensor.Tensor, error) {
	if err := g.check(n); err != nil {
		return nil, err
	}
	if err := g.forward(n.fid); err != nil {
		return nil, err
	}
	return g.funcs[n.fid].rets[n.vid].value.Retain(), nil
}

func (g *Graph) forward(fid int) error {
	rec := g.funcs[fid]
	if rec.computed() {
		return nil
	}

	args := make([]*tensor.Tensor, len(rec.args))
	for i, a := range rec.args {
		if err := g.forward(a.fid); err != nil {
			return err
		}
		args[i] = g.funcs[a.fid].rets[a.vid].value
	}

	ys, err := rec.fn.Forward(args)
	if err != nil {
		return fmt.Errorf("forward %s (#%d): %w", rec.fn.Name(), fid, err)
	}
	if len(ys) != len(rec.rets) {
		releaseAll(ys)
		return fmt.Errorf("forward %s (#%d): returned %d values, want %d", rec.fn.Name(), fid, len(ys), len(rec.rets))
	}
	for i, y := range ys {
		if !y.Valid() || !y.Shape().Equal(rec.rets[i].shape) {
			releaseAll(ys)
			return fmt.Errorf("forward %s (#%d): %w: value %d has shape %s, want %s",
				rec.fn.Name(), fid, tensor.ErrShape, i, y.Shape(), rec.rets[i].shape)
		}
	}
	for i, y := range ys {
		rec.rets[i].value = y
	}
	return nil
}

// Value returns a caller-owned view of the value of n, or an invalid tensor
// if it is not computed.
func (g *Graph) Value(n Node) (*tensor.Tensor, error) {
	if err := g.check(n); err != nil {
		return nil, err
	}
	return g.funcs[n.fid].rets[n.vid].value.Retain(), nil
}

// Gradient returns a caller-owned view of the gradient of n, or an invalid
// tensor if it is not computed.
func (g *Graph) Gradient(n Node) (*tensor.Tensor, error) {
	if err := g.check(n); err != nil {
		return nil, err
	}
	return g.funcs[n.fid].rets[n.vid].grad.Retain(), nil
}

// Clear discards every record. Nodes issued before the call become invalid.
func (g *Graph) Clear() {
	for _, rec := range g.funcs {
		for i := range rec.rets {
			rec.rets[i].value.Release()
			rec.rets[i].grad.Release()
		}
	}
	slog.Debug("graph cleared", "functions", len(g.funcs), "generation", g.gen)
	g.funcs = nil
	g.gen++
}

// Close clears the graph and unsets it as the default graph.
func (g *Graph) Close() {
	g.Clear()
	defaultGraph.CompareAndSwap(g, nil)
}

func releaseAll(xs []*tensor.Tensor) {
	for _, x := range xs {
		x.Release()
	}
}

var defaultGraph atomic.Pointer[Graph]

// SetDefault selects the ambient graph used by convenience front ends.
// Passing nil clears the selection.
func SetDefault(g *Graph) {
	defaultGraph.Store(g)
}

// Default returns the ambient graph, or an error if none is selected.
func Default() (*Graph, error) {
	g := defaultGraph.Load()
	if g == nil {
		return nil, fmt.Errorf("%w: default graph is not set", tensor.ErrInvalidReference)
	}
	return g, nil
}
