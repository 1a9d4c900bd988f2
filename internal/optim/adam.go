package optim

import (
	"math"

	"github.com/born-ml/dagrad/internal/parameter"
	"github.com/born-ml/dagrad/internal/tensor"
)

// Config keys of Adam.
const (
	KeyAdamLR    = "Adam.lr"
	KeyAdamBeta1 = "Adam.beta1"
	KeyAdamBeta2 = "Adam.beta2"
	KeyAdamEps   = "Adam.eps"
)

// Adam implements the Adam (Adaptive Moment Estimation) optimizer.
//
// Update rule, with t = epoch + 1:
//
//	m_t = beta1 * m_{t-1} + (1-beta1) * gradient
//	v_t = beta2 * v_{t-1} + (1-beta2) * gradient²
//	m_hat = m_t / (1 - beta1^t)
//	v_hat = v_t / (1 - beta2^t)
//	param = param - scale * lr * m_hat / (sqrt(v_hat) + eps)
//
// Reference: "Adam: A Method for Stochastic Optimization" (Kingma & Ba, 2014)
type Adam struct {
	Trainer
	lr    float32
	beta1 float32
	beta2 float32
	eps   float32
	m     map[*parameter.Parameter]*tensor.Tensor // First moment estimates
	v     map[*parameter.Parameter]*tensor.Tensor // Second moment estimates
}

// AdamConfig holds configuration for Adam.
type AdamConfig struct {
	LR    float32    // Learning rate (default: 0.001)
	Betas [2]float32 // Coefficients for computing running averages (default: [0.9, 0.999])
	Eps   float32    // Term for numerical stability (default: 1e-8)
}

// NewAdam creates an Adam optimizer with no registered parameters.
func NewAdam(config AdamConfig) *Adam {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Betas[0] == 0 {
		config.Betas[0] = 0.9
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}
	return &Adam{
		Trainer: newTrainer(),
		lr:      config.LR,
		beta1:   config.Betas[0],
		beta2:   config.Betas[1],
		eps:     config.Eps,
		m:       make(map[*parameter.Parameter]*tensor.Tensor),
		v:       make(map[*parameter.Parameter]*tensor.Tensor),
	}
}

// Update performs a single optimization step.
func (a *Adam) Update() error {
	t := float64(a.epoch) + 1
	bc1 := float32(1 - math.Pow(float64(a.beta1), t))
	bc2 := float32(1 - math.Pow(float64(a.beta2), t))
	return a.update(func(scale float32, p *parameter.Parameter) error {
		return a.updateParameter(scale, p, bc1, bc2)
	})
}

func (a *Adam) state(p *parameter.Parameter) (m, v *tensor.Tensor, err error) {
	m, ok := a.m[p]
	if !ok {
		if m, err = zerosLike(p); err != nil {
			return nil, nil, err
		}
		a.m[p] = m
	}
	v, ok = a.v[p]
	if !ok {
		if v, err = zerosLike(p); err != nil {
			return nil, nil, err
		}
		a.v[p] = v
	}
	return m, v, nil
}

func (a *Adam) updateParameter(scale float32, p *parameter.Parameter, bc1, bc2 float32) error {
	m, v, err := a.state(p)
	if err != nil {
		return err
	}
	step, err := p.Device().NewTensor(p.Shape())
	if err != nil {
		return err
	}
	defer step.Release()

	// Moment buffers are private to the optimizer and written in place.
	gData, mData, vData, sData := p.Gradient().Data(), m.Data(), v.Data(), step.Data()
	lr := scale * a.lr
	for i, g := range gData {
		mData[i] = a.beta1*mData[i] + (1-a.beta1)*g
		vData[i] = a.beta2*vData[i] + (1-a.beta2)*g*g
		mHat := mData[i] / bc1
		vHat := vData[i] / bc2
		sData[i] = -lr * mHat / (float32(math.Sqrt(float64(vHat))) + a.eps)
	}
	return p.AddValue(step)
}

// Configs exports the trainer state and the Adam hyperparameters.
func (a *Adam) Configs() (map[string]uint32, map[string]float32) {
	uints, floats := map[string]uint32{}, map[string]float32{}
	a.configs(uints, floats)
	floats[KeyAdamLR] = a.lr
	floats[KeyAdamBeta1] = a.beta1
	floats[KeyAdamBeta2] = a.beta2
	floats[KeyAdamEps] = a.eps
	return uints, floats
}

// SetConfigs restores state exported by Configs.
func (a *Adam) SetConfigs(uints map[string]uint32, floats map[string]float32) error {
	var vals [4]float32
	for i, key := range []string{KeyAdamLR, KeyAdamBeta1, KeyAdamBeta2, KeyAdamEps} {
		v, err := lookup(floats, key)
		if err != nil {
			return err
		}
		vals[i] = v
	}
	if err := a.setConfigs(uints, floats); err != nil {
		return err
	}
	a.lr, a.beta1, a.beta2, a.eps = vals[0], vals[1], vals[2], vals[3]
	return nil
}

// Close releases the moment buffers.
func (a *Adam) Close() {
	releaseState(a.m)
	releaseState(a.v)
}

var _ Optimizer = (*Adam)(nil)
