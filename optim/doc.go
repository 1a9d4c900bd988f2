// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides optimization algorithms for graph parameters.
//
// # Overview
//
// This package contains:
//   - SGD: Stochastic Gradient Descent with momentum
//   - Adam: Adaptive Moment Estimation with bias correction
//   - Optimizer interface for custom optimizers
//
// Every optimizer also supports learning rate scaling, weight decay and
// gradient clipping by global norm, and exports its scalar state through
// Configs for persistence.
//
// # Basic Usage
//
//	opt := optim.NewSGD(optim.SGDConfig{LR: 0.1, Momentum: 0.9})
//	defer opt.Close()
//	_ = opt.Add(w, b)
//
//	for range epochs {
//	    _ = opt.ResetGradients()
//	    g.Clear()
//	    loss := buildLoss(g)
//	    _ = loss.Backward()
//	    _ = opt.Update()
//	}
package optim
