// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package graph

import (
	"github.com/born-ml/dagrad/internal/operators"
	"github.com/born-ml/dagrad/internal/parameter"
)

// Operators. Each records a function in the graph of its first argument.
var (
	Copy          = operators.Copy
	Pick          = operators.Pick
	Slice         = operators.Slice
	Concat        = operators.Concat
	Split         = operators.Split
	Reshape       = operators.Reshape
	Flatten       = operators.Flatten
	Transpose     = operators.Transpose
	MatMul        = operators.MatMul
	Negate        = operators.Negate
	Sqrt          = operators.Sqrt
	Exp           = operators.Exp
	Log           = operators.Log
	Tanh          = operators.Tanh
	Sigmoid       = operators.Sigmoid
	Softplus      = operators.Softplus
	ReLU          = operators.ReLU
	AddConst      = operators.AddConst
	MultiplyConst = operators.MultiplyConst
	Add           = operators.Add
	Subtract      = operators.Subtract
	Multiply      = operators.Multiply
	Divide        = operators.Divide
	Sum           = operators.Sum
	SumAll        = operators.SumAll
	Mean          = operators.Mean
	BatchSum      = operators.BatchSum
	BatchMean     = operators.BatchMean
	LogSumExp     = operators.LogSumExp
	Broadcast     = operators.Broadcast
	Softmax       = operators.Softmax
	LogSoftmax    = operators.LogSoftmax
	StopGradient  = operators.StopGradient

	SoftmaxCrossEntropy = operators.SoftmaxCrossEntropy
)

// Parameter constructors and initializers.
var (
	NewParameter         = parameter.New
	NewParameterByVector = parameter.NewByVector
)

type (
	Constant      = parameter.Constant
	Uniform       = parameter.Uniform
	Normal        = parameter.Normal
	Identity      = parameter.Identity
	XavierUniform = parameter.XavierUniform
	XavierNormal  = parameter.XavierNormal
)
