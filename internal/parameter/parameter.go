// Package parameter holds trainable values and their gradients.
package parameter

import (
	"fmt"

	"github.com/born-ml/dagrad/internal/tensor"
)

// Parameter is a trainable tensor paired with its gradient accumulator.
//
// Parameters live outside any graph. A graph reads the value through a
// parameter input node and adds gradients back with AddGradient; optimizers
// then update the value with AddValue.
//
// Example:
//
//	w, _ := parameter.New(tensor.Dims(4, 2), dev, parameter.XavierUniform{Scale: 1})
//	x := ops.Parameter(g, w)
//	// ... build loss, call loss.Backward() ...
//	_ = w.AddValue(step)
type Parameter struct {
	shape  tensor.Shape
	device *tensor.Device
	value  *tensor.Tensor
	grad   *tensor.Tensor
}

// New creates a parameter initialized by init.
//
// Parameters:
//   - shape: Shape of the parameter; the batch size must be 1
//   - device: Device holding value and gradient
//   - init: Initializer for the value
//
// The gradient starts at zero.
func New(shape tensor.Shape, device *tensor.Device, init Initializer) (*Parameter, error) {
	p, err := alloc(shape, device)
	if err != nil {
		return nil, err
	}
	if err := p.Initialize(init); err != nil {
		p.Release()
		return nil, err
	}
	return p, nil
}

// NewByVector creates a parameter holding values.
func NewByVector(shape tensor.Shape, device *tensor.Device, values []float32) (*Parameter, error) {
	p, err := alloc(shape, device)
	if err != nil {
		return nil, err
	}
	if err := p.ResetValue(values); err != nil {
		p.Release()
		return nil, err
	}
	return p, nil
}

func alloc(shape tensor.Shape, device *tensor.Device) (*Parameter, error) {
	if shape.HasBatch() {
		return nil, fmt.Errorf("parameter: %w: batched shape %s", tensor.ErrShape, shape)
	}
	if device == nil {
		return nil, fmt.Errorf("parameter: %w: nil device", tensor.ErrInvalidReference)
	}
	value, err := device.NewTensor(shape)
	if err != nil {
		return nil, err
	}
	grad, err := device.NewTensorBy(shape, 0)
	if err != nil {
		value.Release()
		return nil, err
	}
	return &Parameter{shape: shape, device: device, value: value, grad: grad}, nil
}

// Valid reports whether the parameter holds memory.
func (p *Parameter) Valid() bool {
	return p != nil && p.value.Valid()
}

func (p *Parameter) check() error {
	if !p.Valid() {
		return fmt.Errorf("parameter: %w: parameter is not initialized", tensor.ErrInvalidReference)
	}
	return nil
}

// Shape returns the shape of the parameter.
func (p *Parameter) Shape() tensor.Shape { return p.shape }

// Device returns the device holding the parameter.
func (p *Parameter) Device() *tensor.Device { return p.device }

// Value returns the current value. Callers must not release it.
func (p *Parameter) Value() *tensor.Tensor { return p.value }

// Gradient returns the accumulated gradient. Callers must not release it.
func (p *Parameter) Gradient() *tensor.Tensor { return p.grad }

// ResetValue overwrites the value with values.
func (p *Parameter) ResetValue(values []float32) error {
	if err := p.check(); err != nil {
		return err
	}
	return p.value.ResetByVector(values)
}

// Initialize overwrites the value using init.
func (p *Parameter) Initialize(init Initializer) error {
	if err := p.check(); err != nil {
		return err
	}
	return init.Apply(p.value)
}

// ResetGradient sets the gradient to zero.
func (p *Parameter) ResetGradient() error {
	if err := p.check(); err != nil {
		return err
	}
	return p.grad.Reset(0)
}

// AddValue adds diff to the value.
func (p *Parameter) AddValue(diff *tensor.Tensor) error {
	if err := p.check(); err != nil {
		return err
	}
	return p.value.InplaceAdd(diff)
}

// AddGradient adds diff to the gradient. A batched diff is summed over its batch.
func (p *Parameter) AddGradient(diff *tensor.Tensor) error {
	if err := p.check(); err != nil {
		return err
	}
	return p.grad.InplaceAdd(diff)
}

// Release frees the value and gradient memory.
func (p *Parameter) Release() {
	p.value.Release()
	p.grad.Release()
}
