package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/born-ml/dagrad/internal/backend/naive"
	"github.com/born-ml/dagrad/internal/graph"
	"github.com/born-ml/dagrad/internal/memory"
	ops "github.com/born-ml/dagrad/internal/operators"
	"github.com/born-ml/dagrad/internal/operators/eager"
	"github.com/born-ml/dagrad/internal/optim"
	"github.com/born-ml/dagrad/internal/parallel"
	"github.com/born-ml/dagrad/internal/parameter"
	"github.com/born-ml/dagrad/internal/tensor"
)

// fitOptions configures a fit run.
type fitOptions struct {
	Replicas  int
	Epochs    int
	Batch     int
	LR        float32
	Optimizer string
	Seed      uint64
	Memory    int
}

// fitResult is the outcome of one replica.
type fitResult struct {
	Loss  float32
	W, B  float32
	Stats memory.Stats
}

func newFitCmd() *cobra.Command {
	cfg := naive.DefaultConfig()
	opts := fitOptions{Seed: cfg.Seed, Memory: cfg.MemoryLimit}

	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit y = 2x + 1 by gradient descent on independent replicas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			results, err := runFit(cmd.Context(), opts)
			if err != nil {
				return err
			}
			var data [][]string
			for i, r := range results {
				data = append(data, []string{
					strconv.Itoa(i),
					fmt.Sprintf("%.6f", r.Loss),
					fmt.Sprintf("%.4f", r.W),
					fmt.Sprintf("%.4f", r.B),
					strconv.Itoa(r.Stats.Hits),
					strconv.Itoa(r.Stats.Misses),
					strconv.Itoa(r.Stats.ReservedBytes),
				})
			}
			renderTable(cmd.OutOrStdout(), []string{"REPLICA", "LOSS", "W", "B", "POOL HITS", "POOL MISSES", "RESERVED BYTES"}, data)
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.Replicas, "replicas", 2, "Number of independent replicas to train concurrently")
	cmd.Flags().IntVar(&opts.Epochs, "epochs", 200, "Number of updates per replica")
	cmd.Flags().IntVar(&opts.Batch, "batch", 16, "Number of samples")
	cmd.Flags().Float32Var(&opts.LR, "lr", 0.1, "Learning rate")
	cmd.Flags().StringVar(&opts.Optimizer, "optimizer", "sgd", "Update rule (sgd, adam)")
	return cmd
}

// runFit trains every replica on its own device and graph.
func runFit(ctx context.Context, opts fitOptions) ([]fitResult, error) {
	if opts.Replicas <= 0 || opts.Epochs <= 0 || opts.Batch <= 0 {
		return nil, fmt.Errorf("fit: replicas, epochs and batch must be positive")
	}
	results := make([]fitResult, opts.Replicas)
	g, ctx := errgroup.WithContext(ctx)
	for i := range opts.Replicas {
		g.Go(func() error {
			seed := opts.Seed
			if seed != 0 {
				seed += uint64(i)
			}
			r, err := fitReplica(ctx, opts, seed)
			if err != nil {
				return fmt.Errorf("replica %d: %w", i, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func newOptimizer(name string, lr float32) (interface {
	optim.Optimizer
	Close()
}, error) {
	switch name {
	case "sgd":
		return optim.NewSGD(optim.SGDConfig{LR: lr, Momentum: 0.5}), nil
	case "adam":
		return optim.NewAdam(optim.AdamConfig{LR: lr}), nil
	default:
		return nil, fmt.Errorf("unknown optimizer %q", name)
	}
}

func fitReplica(ctx context.Context, opts fitOptions, seed uint64) (fitResult, error) {
	dev := naive.New(naive.Config{Seed: seed, MemoryLimit: opts.Memory, Parallel: parallel.DefaultConfig()})
	defer dev.Close()

	xs, ys, err := sampleLine(dev, opts.Batch)
	if err != nil {
		return fitResult{}, err
	}

	w, err := parameter.New(tensor.Dims(), dev, parameter.Constant{K: 0})
	if err != nil {
		return fitResult{}, err
	}
	defer w.Release()
	b, err := parameter.New(tensor.Dims(), dev, parameter.Constant{K: 0})
	if err != nil {
		return fitResult{}, err
	}
	defer b.Release()

	opt, err := newOptimizer(opts.Optimizer, opts.LR)
	if err != nil {
		return fitResult{}, err
	}
	defer opt.Close()
	if err := opt.Add(w, b); err != nil {
		return fitResult{}, err
	}

	g := graph.New()
	defer g.Clear()
	shape := tensor.MustShape(nil, opts.Batch)

	var last float32
	for epoch := range opts.Epochs {
		if err := ctx.Err(); err != nil {
			return fitResult{}, err
		}
		if err := opt.ResetGradients(); err != nil {
			return fitResult{}, err
		}
		g.Clear()

		loss, err := buildLoss(ops.Scope{Graph: g, Device: dev}, shape, xs, ys, w, b)
		if err != nil {
			return fitResult{}, err
		}
		if last, err = loss.ToFloat(); err != nil {
			return fitResult{}, err
		}
		if err := loss.Backward(); err != nil {
			return fitResult{}, err
		}
		if err := opt.Update(); err != nil {
			return fitResult{}, err
		}
		if epoch%50 == 0 {
			slog.Debug("fit", "seed", seed, "epoch", epoch, "loss", last)
		}
	}

	wv, err := w.Value().ToFloat()
	if err != nil {
		return fitResult{}, err
	}
	bv, err := b.Value().ToFloat()
	if err != nil {
		return fitResult{}, err
	}
	return fitResult{Loss: last, W: wv, B: bv, Stats: dev.PoolStats()}, nil
}

// sampleLine draws x from U(-1, 1] and returns y = 2x + 1 with small noise.
func sampleLine(dev *tensor.Device, n int) (xs, ys []float32, err error) {
	shape := tensor.MustShape(nil, n)
	x, err := eager.RandomUniform(dev, shape, -1, 1)
	if err != nil {
		return nil, nil, err
	}
	defer x.Release()
	noise, err := eager.RandomNormal(dev, shape, 0, 0.01)
	if err != nil {
		return nil, nil, err
	}
	defer noise.Release()

	scaled, err := eager.MultiplyConst(x, 2)
	if err != nil {
		return nil, nil, err
	}
	defer scaled.Release()
	shifted, err := eager.AddConst(scaled, 1)
	if err != nil {
		return nil, nil, err
	}
	defer shifted.Release()
	y, err := eager.Add(shifted, noise)
	if err != nil {
		return nil, nil, err
	}
	defer y.Release()

	if xs, err = x.ToVector(); err != nil {
		return nil, nil, err
	}
	if ys, err = y.ToVector(); err != nil {
		return nil, nil, err
	}
	return xs, ys, nil
}

// buildLoss records mean((w*x + b - y)^2) over the batch.
func buildLoss(s ops.Scope, shape tensor.Shape, xs, ys []float32, w, b *parameter.Parameter) (graph.Node, error) {
	x, err := s.Input(shape, xs)
	if err != nil {
		return graph.Node{}, err
	}
	y, err := s.Input(shape, ys)
	if err != nil {
		return graph.Node{}, err
	}
	wn, err := s.Parameter(w)
	if err != nil {
		return graph.Node{}, err
	}
	bn, err := s.Parameter(b)
	if err != nil {
		return graph.Node{}, err
	}
	wx, err := ops.Multiply(wn, x)
	if err != nil {
		return graph.Node{}, err
	}
	pred, err := ops.Add(wx, bn)
	if err != nil {
		return graph.Node{}, err
	}
	diff, err := ops.Subtract(pred, y)
	if err != nil {
		return graph.Node{}, err
	}
	sq, err := ops.Multiply(diff, diff)
	if err != nil {
		return graph.Node{}, err
	}
	return ops.BatchMean(sq)
}
