package optim

import (
	"github.com/born-ml/dagrad/internal/parameter"
	"github.com/born-ml/dagrad/internal/tensor"
)

// Config keys of SGD.
const (
	KeySGDLR       = "SGD.lr"
	KeySGDMomentum = "SGD.momentum"
)

// SGD implements stochastic gradient descent with optional momentum.
//
// Update rule without momentum:
//
//	param = param - scale * lr * gradient
//
// Update rule with momentum:
//
//	velocity = momentum * velocity + gradient
//	param = param - scale * lr * velocity
type SGD struct {
	Trainer
	lr         float32
	momentum   float32
	velocities map[*parameter.Parameter]*tensor.Tensor
}

// SGDConfig holds configuration for SGD.
type SGDConfig struct {
	LR       float32 // Learning rate (default: 0.01)
	Momentum float32 // Momentum factor (default: 0.0, range: [0, 1))
}

// NewSGD creates an SGD optimizer with no registered parameters.
func NewSGD(config SGDConfig) *SGD {
	if config.LR == 0 {
		config.LR = 0.01
	}
	return &SGD{
		Trainer:    newTrainer(),
		lr:         config.LR,
		momentum:   config.Momentum,
		velocities: make(map[*parameter.Parameter]*tensor.Tensor),
	}
}

// LR returns the base learning rate.
func (s *SGD) LR() float32 { return s.lr }

// SetLR updates the base learning rate.
func (s *SGD) SetLR(lr float32) { s.lr = lr }

// Update performs a single optimization step.
func (s *SGD) Update() error {
	return s.update(s.updateParameter)
}

func (s *SGD) updateParameter(scale float32, p *parameter.Parameter) error {
	g := p.Gradient()
	if s.momentum != 0 {
		v, ok := s.velocities[p]
		if !ok {
			var err error
			if v, err = zerosLike(p); err != nil {
				return err
			}
			s.velocities[p] = v
		}
		if err := v.InplaceMultiplyConst(s.momentum); err != nil {
			return err
		}
		if err := v.InplaceAdd(g); err != nil {
			return err
		}
		g = v
	}

	step, err := scaled(-scale*s.lr, g)
	if err != nil {
		return err
	}
	defer step.Release()
	return p.AddValue(step)
}

// Configs exports the trainer state and the SGD hyperparameters.
func (s *SGD) Configs() (map[string]uint32, map[string]float32) {
	uints, floats := map[string]uint32{}, map[string]float32{}
	s.configs(uints, floats)
	floats[KeySGDLR] = s.lr
	floats[KeySGDMomentum] = s.momentum
	return uints, floats
}

// SetConfigs restores state exported by Configs.
func (s *SGD) SetConfigs(uints map[string]uint32, floats map[string]float32) error {
	lr, err := lookup(floats, KeySGDLR)
	if err != nil {
		return err
	}
	momentum, err := lookup(floats, KeySGDMomentum)
	if err != nil {
		return err
	}
	if err := s.setConfigs(uints, floats); err != nil {
		return err
	}
	s.lr, s.momentum = lr, momentum
	return nil
}

// Close releases the velocity buffers.
func (s *SGD) Close() {
	releaseState(s.velocities)
}

var _ Optimizer = (*SGD)(nil)
