// Package functions implements graph.Function for the supported operations.
//
// Every function validates shapes in ForwardShapes, computes outputs through
// the device of its first argument in Forward and adds gradient contributions
// in Backward. The same values are used by the graph front end and the eager
// front end.
package functions

import (
	"fmt"

	"github.com/born-ml/dagrad/internal/tensor"
)

func one(s tensor.Shape, err error) ([]tensor.Shape, error) {
	if err != nil {
		return nil, err
	}
	return []tensor.Shape{s}, nil
}

func single(y *tensor.Tensor, err error) ([]*tensor.Tensor, error) {
	if err != nil {
		return nil, err
	}
	return []*tensor.Tensor{y}, nil
}

func arity(name string, args []tensor.Shape, n int) error {
	if len(args) != n {
		return fmt.Errorf("%s: expected %d arguments, got %d", name, n, len(args))
	}
	return nil
}

// addInto adds a temporary tensor into gx and releases it.
func addInto(gx, tmp *tensor.Tensor, err error) error {
	if err != nil {
		return err
	}
	defer tmp.Release()
	return gx.InplaceAdd(tmp)
}

func release(xs ...*tensor.Tensor) {
	for _, x := range xs {
		x.Release()
	}
}
