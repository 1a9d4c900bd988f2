// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package graph

import (
	"github.com/born-ml/dagrad/internal/graph"
	"github.com/born-ml/dagrad/internal/operators"
	"github.com/born-ml/dagrad/internal/parameter"
)

// Graph is an append-only DAG of function invocations.
type Graph = graph.Graph

// Node refers to one output of a recorded function.
type Node = graph.Node

// Function is the contract of every recorded operation.
type Function = graph.Function

// Scope pairs a graph with the device used by source nodes.
type Scope = operators.Scope

// Parameter is a trainable value with a gradient accumulator.
type Parameter = parameter.Parameter

// Initializer fills a parameter value.
type Initializer = parameter.Initializer

// New creates an empty graph.
func New() *Graph {
	return graph.New()
}

// SetDefault selects the graph used by DefaultScope. nil clears it.
func SetDefault(g *Graph) {
	graph.SetDefault(g)
}

// Default returns the default graph.
func Default() (*Graph, error) {
	return graph.Default()
}

// DefaultScope combines the default graph and the default device.
func DefaultScope() (Scope, error) {
	return operators.DefaultScope()
}
