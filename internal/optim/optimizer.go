// Package optim updates parameters from their accumulated gradients.
//
// This package provides:
//   - Trainer: shared state of every optimizer (parameters, epoch, learning
//     rate scaling, weight decay, gradient clipping)
//   - SGD: stochastic gradient descent with optional momentum
//   - Adam: adaptive moment estimation
//
// Example usage:
//
//	opt := optim.NewSGD(optim.SGDConfig{LR: 0.1})
//	_ = opt.Add(w, b)
//
//	for epoch := range epochs {
//	    _ = opt.ResetGradients()
//	    g.Clear()
//	    loss := buildLoss(g, w, b)
//	    _ = loss.Backward()
//	    _ = opt.Update()
//	}
package optim

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/born-ml/dagrad/internal/parameter"
	"github.com/born-ml/dagrad/internal/tensor"
)

// ErrConfig is returned when a configuration map lacks a key or holds an invalid value.
var ErrConfig = errors.New("invalid optimizer config")

// Optimizer is the interface shared by all update rules.
type Optimizer interface {
	// Add registers parameters. A parameter may be registered once.
	Add(params ...*parameter.Parameter) error

	// ResetGradients sets the gradient of every registered parameter to zero.
	ResetGradients() error

	// Update applies one step to every registered parameter and advances the epoch.
	Update() error

	// Configs exports the scalar state as integer and float maps.
	Configs() (map[string]uint32, map[string]float32)

	// SetConfigs restores state exported by Configs.
	SetConfigs(uints map[string]uint32, floats map[string]float32) error
}

// Config keys of the shared trainer state.
const (
	KeyEpoch         = "Optimizer.epoch"
	KeyLRScale       = "Optimizer.lr_scale"
	KeyWeightDecay   = "Optimizer.l2_strength"
	KeyClipThreshold = "Optimizer.clip_threshold"
)

// Trainer holds the state every optimizer shares. It is embedded by the
// concrete optimizers and is not useful on its own.
type Trainer struct {
	params  []*parameter.Parameter
	epoch   uint32
	lrScale float32
	l2      float32
	clip    float32
}

func newTrainer() Trainer {
	return Trainer{lrScale: 1}
}

// Add registers parameters.
func (t *Trainer) Add(params ...*parameter.Parameter) error {
	for _, p := range params {
		if !p.Valid() {
			return fmt.Errorf("optim: %w: invalid parameter", tensor.ErrInvalidReference)
		}
		if slices.Contains(t.params, p) {
			return fmt.Errorf("optim: parameter %s is already registered", p.Shape())
		}
		t.params = append(t.params, p)
	}
	return nil
}

// Parameters returns the registered parameters in registration order.
func (t *Trainer) Parameters() []*parameter.Parameter {
	return slices.Clone(t.params)
}

// Epoch returns the number of updates applied so far.
func (t *Trainer) Epoch() uint32 { return t.epoch }

// SetEpoch overrides the update counter.
func (t *Trainer) SetEpoch(epoch uint32) { t.epoch = epoch }

// LearningRateScaling returns the factor applied to the learning rate.
func (t *Trainer) LearningRateScaling() float32 { return t.lrScale }

// SetLearningRateScaling sets the factor applied to the learning rate.
func (t *Trainer) SetLearningRateScaling(scale float32) error {
	if scale < 0 {
		return fmt.Errorf("optim: %w: negative learning rate scaling %g", ErrConfig, scale)
	}
	t.lrScale = scale
	return nil
}

// WeightDecay returns the L2 regularization strength.
func (t *Trainer) WeightDecay() float32 { return t.l2 }

// SetWeightDecay sets the L2 regularization strength. 0 disables it.
func (t *Trainer) SetWeightDecay(strength float32) error {
	if strength < 0 {
		return fmt.Errorf("optim: %w: negative weight decay %g", ErrConfig, strength)
	}
	t.l2 = strength
	return nil
}

// GradientClipping returns the threshold of the global gradient norm.
func (t *Trainer) GradientClipping() float32 { return t.clip }

// SetGradientClipping sets the threshold of the global gradient norm. 0 disables it.
func (t *Trainer) SetGradientClipping(threshold float32) error {
	if threshold < 0 {
		return fmt.Errorf("optim: %w: negative clipping threshold %g", ErrConfig, threshold)
	}
	t.clip = threshold
	return nil
}

// ResetGradients sets every registered gradient to zero.
func (t *Trainer) ResetGradients() error {
	for _, p := range t.params {
		if err := p.ResetGradient(); err != nil {
			return err
		}
	}
	return nil
}

// update applies weight decay and clipping to the gradients, then calls step
// for every parameter and advances the epoch.
func (t *Trainer) update(step func(scale float32, p *parameter.Parameter) error) error {
	if t.l2 > 0 {
		for _, p := range t.params {
			decay, err := p.Device().Const(tensor.MultiplyConst, t.l2, p.Value())
			if err != nil {
				return fmt.Errorf("optim: weight decay: %w", err)
			}
			err = p.AddGradient(decay)
			decay.Release()
			if err != nil {
				return fmt.Errorf("optim: weight decay: %w", err)
			}
		}
	}

	if t.clip > 0 {
		var sq float64
		for _, p := range t.params {
			for _, g := range p.Gradient().Data() {
				sq += float64(g) * float64(g)
			}
		}
		if norm := math.Sqrt(sq); norm > float64(t.clip) {
			factor := float32(float64(t.clip) / norm)
			for _, p := range t.params {
				if err := p.Gradient().InplaceMultiplyConst(factor); err != nil {
					return fmt.Errorf("optim: clipping: %w", err)
				}
			}
		}
	}

	for _, p := range t.params {
		if err := step(t.lrScale, p); err != nil {
			return fmt.Errorf("optim: update %s: %w", p.Shape(), err)
		}
	}
	t.epoch++
	return nil
}

func (t *Trainer) configs(uints map[string]uint32, floats map[string]float32) {
	uints[KeyEpoch] = t.epoch
	floats[KeyLRScale] = t.lrScale
	floats[KeyWeightDecay] = t.l2
	floats[KeyClipThreshold] = t.clip
}

func (t *Trainer) setConfigs(uints map[string]uint32, floats map[string]float32) error {
	epoch, err := lookup(uints, KeyEpoch)
	if err != nil {
		return err
	}
	scale, err := lookup(floats, KeyLRScale)
	if err != nil {
		return err
	}
	l2, err := lookup(floats, KeyWeightDecay)
	if err != nil {
		return err
	}
	clip, err := lookup(floats, KeyClipThreshold)
	if err != nil {
		return err
	}
	if scale < 0 || l2 < 0 || clip < 0 {
		return fmt.Errorf("optim: %w: negative value in %v", ErrConfig, floats)
	}
	t.epoch, t.lrScale, t.l2, t.clip = epoch, scale, l2, clip
	return nil
}

func lookup[V uint32 | float32](m map[string]V, key string) (V, error) {
	v, ok := m[key]
	if !ok {
		return 0, fmt.Errorf("optim: %w: missing key %q", ErrConfig, key)
	}
	return v, nil
}

// scaled returns k*x on x's device.
func scaled(k float32, x *tensor.Tensor) (*tensor.Tensor, error) {
	return x.Device().Const(tensor.MultiplyConst, k, x)
}

// zerosLike allocates a zero tensor matching p.
func zerosLike(p *parameter.Parameter) (*tensor.Tensor, error) {
	return p.Device().NewTensorBy(p.Shape(), 0)
}

func releaseState(m map[*parameter.Parameter]*tensor.Tensor) {
	for p, x := range m {
		x.Release()
		delete(m, p)
	}
}
