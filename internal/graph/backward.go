package graph

import (
	"fmt"
	"log/slog"

	"github.com/born-ml/dagrad/internal/tensor"
)

// Backward computes the gradient of n with respect to every record it depends on.
//
// The target is forwarded first. All gradients from earlier calls are
// discarded, then the target gradient is seeded with ones (for every element
// when the target is not a scalar). Records are visited in decreasing id
// order, and a record takes part only when the target is reachable from it
// through recorded consumers. Contributions from several consumers add up.
func (g *Graph) Backward(n Node) error {
	if err := g.check(n); err != nil {
		return err
	}
	if err := g.forward(n.fid); err != nil {
		return err
	}

	for _, rec := range g.funcs {
		for i := range rec.rets {
			rec.rets[i].grad.Release()
			rec.rets[i].grad = nil
		}
	}

	target := g.funcs[n.fid].rets[n.vid]
	seed, err := target.value.Device().NewTensorBy(target.shape, 1)
	if err != nil {
		return fmt.Errorf("backward: seed gradient: %w", err)
	}
	g.funcs[n.fid].rets[n.vid].grad = seed

	reachable := make([]bool, n.fid+1)
	reachable[n.fid] = true
	visited := 0
	for fid := n.fid; fid >= 0; fid-- {
		rec := g.funcs[fid]
		if !reachable[fid] {
			for _, s := range rec.sinks {
				if s > n.fid {
					break
				}
				if reachable[s] {
					reachable[fid] = true
					break
				}
			}
			if !reachable[fid] {
				continue
			}
		}
		ok, err := g.backwardRecord(fid)
		if err != nil {
			return err
		}
		if ok {
			visited++
		}
	}
	slog.Debug("backward finished", "target", n.String(), "visited", visited, "functions", len(g.funcs))
	return nil
}

// backwardRecord propagates the gradients of record fid into its arguments.
// It reports false when the record holds no gradient.
func (g *Graph) backwardRecord(fid int) (bool, error) {
	rec := g.funcs[fid]
	has := false
	for _, r := range rec.rets {
		if r.grad != nil {
			has = true
			break
		}
	}
	if !has {
		return false, nil
	}

	ys := make([]*tensor.Tensor, len(rec.rets))
	gys := make([]*tensor.Tensor, len(rec.rets))
	for i := range rec.rets {
		r := &rec.rets[i]
		if r.grad == nil {
			zero, err := r.value.Device().NewTensorBy(r.shape, 0)
			if err != nil {
				return false, fmt.Errorf("backward %s (#%d): %w", rec.fn.Name(), fid, err)
			}
			r.grad = zero
		}
		ys[i], gys[i] = r.value, r.grad
	}

	args := make([]*tensor.Tensor, len(rec.args))
	gargs := make([]*tensor.Tensor, len(rec.args))
	for i, a := range rec.args {
		r := &g.funcs[a.fid].rets[a.vid]
		if r.grad == nil {
			zero, err := r.value.Device().NewTensorBy(r.shape, 0)
			if err != nil {
				return false, fmt.Errorf("backward %s (#%d): %w", rec.fn.Name(), fid, err)
			}
			r.grad = zero
		}
		args[i], gargs[i] = r.value, r.grad
	}

	if err := rec.fn.Backward(args, ys, gys, gargs); err != nil {
		return false, fmt.Errorf("backward %s (#%d): %w", rec.fn.Name(), fid, err)
	}
	return true, nil
}
