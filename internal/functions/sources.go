package functions

import (
	"fmt"

	"github.com/born-ml/dagrad/internal/parameter"
	"github.com/born-ml/dagrad/internal/tensor"
)

// source is the part shared by functions without arguments or gradients.
type source struct {
	Shape  tensor.Shape
	Device *tensor.Device
}

func (s source) shapes(name string, args []tensor.Shape) ([]tensor.Shape, error) {
	if err := arity(name, args, 0); err != nil {
		return nil, err
	}
	if s.Device == nil {
		return nil, fmt.Errorf("%s: %w: nil device", name, tensor.ErrInvalidReference)
	}
	return []tensor.Shape{s.Shape}, nil
}

// Backward does nothing; sources have no arguments.
func (source) Backward(_, _, _, _ []*tensor.Tensor) error { return nil }

// Input holds user data.
type Input struct {
	Shape  tensor.Shape
	Device *tensor.Device
	Data   []float32
}

// NewInput copies data so later changes by the caller are not observed.
func NewInput(shape tensor.Shape, device *tensor.Device, data []float32) *Input {
	return &Input{Shape: shape, Device: device, Data: append([]float32(nil), data...)}
}

// Name returns the label of the input.
func (f *Input) Name() string { return "input" }

// ForwardShapes validates the arguments and returns the shape of the input.
func (f *Input) ForwardShapes(args []tensor.Shape) ([]tensor.Shape, error) {
	if len(f.Data) != f.Shape.Size() {
		return nil, fmt.Errorf("input: %w: %d values for shape %s", tensor.ErrShape, len(f.Data), f.Shape)
	}
	return source{f.Shape, f.Device}.shapes(f.Name(), args)
}

// Forward computes the input.
func (f *Input) Forward(_ []*tensor.Tensor) ([]*tensor.Tensor, error) {
	return single(f.Device.NewTensorByVector(f.Shape, f.Data))
}

// Backward does nothing; no gradient flows through it.
func (f *Input) Backward(_, _, _, _ []*tensor.Tensor) error { return nil }

// ParameterInput reads a parameter value and sends gradients back to it.
type ParameterInput struct {
	Param *parameter.Parameter
}

// Name returns the label of the parameter value.
func (f *ParameterInput) Name() string { return "parameter" }

// ForwardShapes validates the arguments and returns the shape of the parameter value.
func (f *ParameterInput) ForwardShapes(args []tensor.Shape) ([]tensor.Shape, error) {
	if err := arity(f.Name(), args, 0); err != nil {
		return nil, err
	}
	if !f.Param.Valid() {
		return nil, fmt.Errorf("parameter: %w: invalid parameter", tensor.ErrInvalidReference)
	}
	return []tensor.Shape{f.Param.Shape()}, nil
}

// Forward computes the parameter value.
func (f *ParameterInput) Forward(_ []*tensor.Tensor) ([]*tensor.Tensor, error) {
	return []*tensor.Tensor{f.Param.Value().Retain()}, nil
}

// Backward adds the output gradient to the parameter.
func (f *ParameterInput) Backward(_, _, gys, _ []*tensor.Tensor) error {
	return f.Param.AddGradient(gys[0])
}

// Constant fills a tensor with K.
type Constant struct {
	source
	K float32
}

// NewConstant creates a constant source.
func NewConstant(shape tensor.Shape, device *tensor.Device, k float32) *Constant {
	return &Constant{source: source{shape, device}, K: k}
}

// Name returns the label of the constant fill.
func (f *Constant) Name() string { return fmt.Sprintf("constant(%g)", f.K) }

// ForwardShapes validates the arguments and returns the shape of the constant fill.
func (f *Constant) ForwardShapes(args []tensor.Shape) ([]tensor.Shape, error) {
	return f.shapes(f.Name(), args)
}

// Forward computes the constant fill.
func (f *Constant) Forward(_ []*tensor.Tensor) ([]*tensor.Tensor, error) {
	return single(f.Device.NewTensorBy(f.Shape, f.K))
}

// IdentityMatrix produces a Size x Size identity matrix.
type IdentityMatrix struct {
	Size   int
	Device *tensor.Device
}

// Name returns the label of the identity matrix.
func (f *IdentityMatrix) Name() string { return "identity" }

// ForwardShapes validates the arguments and returns the shape of the identity matrix.
func (f *IdentityMatrix) ForwardShapes(args []tensor.Shape) ([]tensor.Shape, error) {
	if f.Size <= 0 {
		return nil, fmt.Errorf("identity: %w: invalid size %d", tensor.ErrShape, f.Size)
	}
	return source{tensor.Dims(f.Size, f.Size), f.Device}.shapes(f.Name(), args)
}

// Forward computes the identity matrix.
func (f *IdentityMatrix) Forward(_ []*tensor.Tensor) ([]*tensor.Tensor, error) {
	return single(f.Device.Identity(f.Size))
}

// Backward does nothing; no gradient flows through it.
func (f *IdentityMatrix) Backward(_, _, _, _ []*tensor.Tensor) error { return nil }

// RandomBernoulli samples from Bernoulli(P).
type RandomBernoulli struct {
	source
	P float32
}

// NewRandomBernoulli creates a Bernoulli sampling source.
func NewRandomBernoulli(shape tensor.Shape, device *tensor.Device, p float32) *RandomBernoulli {
	return &RandomBernoulli{source: source{shape, device}, P: p}
}

// Name returns the label of Bernoulli samples.
func (f *RandomBernoulli) Name() string { return "random_bernoulli" }

// ForwardShapes validates the arguments and returns the shape of Bernoulli samples.
func (f *RandomBernoulli) ForwardShapes(args []tensor.Shape) ([]tensor.Shape, error) {
	return f.shapes(f.Name(), args)
}

// Forward computes Bernoulli samples.
func (f *RandomBernoulli) Forward(_ []*tensor.Tensor) ([]*tensor.Tensor, error) {
	return single(f.Device.RandomBernoulli(f.Shape, f.P))
}

// RandomUniform samples from the interval (Lower, Upper].
type RandomUniform struct {
	source
	Lower, Upper float32
}

// NewRandomUniform creates a uniform sampling source.
func NewRandomUniform(shape tensor.Shape, device *tensor.Device, lower, upper float32) *RandomUniform {
	return &RandomUniform{source: source{shape, device}, Lower: lower, Upper: upper}
}

// Name returns the label of uniform samples.
func (f *RandomUniform) Name() string { return "random_uniform" }

// ForwardShapes validates the arguments and returns the shape of uniform samples.
func (f *RandomUniform) ForwardShapes(args []tensor.Shape) ([]tensor.Shape, error) {
	return f.shapes(f.Name(), args)
}

// Forward computes uniform samples.
func (f *RandomUniform) Forward(_ []*tensor.Tensor) ([]*tensor.Tensor, error) {
	return single(f.Device.RandomUniform(f.Shape, f.Lower, f.Upper))
}

// RandomNormal samples from N(Mean, SD^2).
type RandomNormal struct {
	source
	Mean, SD float32
}

// NewRandomNormal creates a normal sampling source.
func NewRandomNormal(shape tensor.Shape, device *tensor.Device, mean, sd float32) *RandomNormal {
	return &RandomNormal{source: source{shape, device}, Mean: mean, SD: sd}
}

// Name returns the label of normal samples.
func (f *RandomNormal) Name() string { return "random_normal" }

// ForwardShapes validates the arguments and returns the shape of normal samples.
func (f *RandomNormal) ForwardShapes(args []tensor.Shape) ([]tensor.Shape, error) {
	return f.shapes(f.Name(), args)
}

// Forward computes normal samples.
func (f *RandomNormal) Forward(_ []*tensor.Tensor) ([]*tensor.Tensor, error) {
	return single(f.Device.RandomNormal(f.Shape, f.Mean, f.SD))
}

// RandomLogNormal samples from exp(N(Mean, SD^2)).
type RandomLogNormal struct {
	source
	Mean, SD float32
}

// NewRandomLogNormal creates a log-normal sampling source.
func NewRandomLogNormal(shape tensor.Shape, device *tensor.Device, mean, sd float32) *RandomLogNormal {
	return &RandomLogNormal{source: source{shape, device}, Mean: mean, SD: sd}
}

// Name returns the label of log-normal samples.
func (f *RandomLogNormal) Name() string { return "random_log_normal" }

// ForwardShapes validates the arguments and returns the shape of log-normal samples.
func (f *RandomLogNormal) ForwardShapes(args []tensor.Shape) ([]tensor.Shape, error) {
	return f.shapes(f.Name(), args)
}

// Forward computes log-normal samples.
func (f *RandomLogNormal) Forward(_ []*tensor.Tensor) ([]*tensor.Tensor, error) {
	return single(f.Device.RandomLogNormal(f.Shape, f.Mean, f.SD))
}
