// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package graph provides computation graphs with reverse-mode differentiation.
//
// # Overview
//
// A Graph records functions applied to nodes. Nothing is computed until a
// node is forwarded; each recorded function then runs at most once.
// Backward computes gradients from a target node to every node it depends on.
//
// # Basic Usage
//
//	dev := naive.New(naive.Config{Seed: 1})
//	g := graph.New()
//	s := graph.Scope{Graph: g, Device: dev}
//
//	x, _ := s.Input(tensor.Dims(2, 2), []float32{1, 2, 3, 4})
//	y, _ := graph.Multiply(x, x)
//	loss, _ := graph.SumAll(y)
//	_ = loss.Backward()
//	gx, _ := x.Gradient() // [2, 4, 6, 8]
//
// # Lifetime
//
// Clear discards every record and invalidates the nodes issued so far. Using
// an invalidated node fails with tensor.ErrInvalidReference.
package graph
