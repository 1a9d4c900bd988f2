package parameter

import (
	"fmt"
	"math"

	"github.com/born-ml/dagrad/internal/tensor"
)

// Initializer fills a tensor with initial values.
type Initializer interface {
	Apply(x *tensor.Tensor) error
}

// Constant sets every element to K.
type Constant struct {
	K float32
}

// Apply implements Initializer.
func (c Constant) Apply(x *tensor.Tensor) error {
	return x.Reset(c.K)
}

// Uniform samples from the uniform distribution on (Lower, Upper].
type Uniform struct {
	Lower, Upper float32
}

// Apply implements Initializer.
func (u Uniform) Apply(x *tensor.Tensor) error {
	return fill(x, func(d *tensor.Device, s tensor.Shape) (*tensor.Tensor, error) {
		return d.RandomUniform(s, u.Lower, u.Upper)
	})
}

// Normal samples from N(Mean, SD^2).
type Normal struct {
	Mean, SD float32
}

// Apply implements Initializer.
func (n Normal) Apply(x *tensor.Tensor) error {
	return fill(x, func(d *tensor.Device, s tensor.Shape) (*tensor.Tensor, error) {
		return d.RandomNormal(s, n.Mean, n.SD)
	})
}

// Identity sets a square matrix to the identity.
type Identity struct{}

// Apply implements Initializer.
func (Identity) Apply(x *tensor.Tensor) error {
	s := x.Shape()
	if !s.IsMatrix() || s.Dim(0) != s.Dim(1) {
		return fmt.Errorf("identity initializer: %w: %s is not a square matrix", tensor.ErrShape, s)
	}
	return fill(x, func(d *tensor.Device, s tensor.Shape) (*tensor.Tensor, error) {
		return d.Identity(s.Dim(0))
	})
}

// XavierUniform (Glorot) samples from U(-b, b) with b = Scale*sqrt(6/(fan_in+fan_out)).
//
// Only matrices are supported; fan_out is dimension 0 and fan_in dimension 1.
type XavierUniform struct {
	Scale float32
}

// Apply implements Initializer.
func (xu XavierUniform) Apply(x *tensor.Tensor) error {
	s := x.Shape()
	if !s.IsMatrix() {
		return fmt.Errorf("xavier uniform: %w: %s is not a matrix", tensor.ErrShape, s)
	}
	bound := xu.Scale * float32(math.Sqrt(6/float64(s.Dim(0)+s.Dim(1))))
	return Uniform{Lower: -bound, Upper: bound}.Apply(x)
}

// XavierNormal (Glorot) samples from N(0, sd^2) with sd = Scale*sqrt(2/(fan_in+fan_out)).
type XavierNormal struct {
	Scale float32
}

// Apply implements Initializer.
func (xn XavierNormal) Apply(x *tensor.Tensor) error {
	s := x.Shape()
	if !s.IsMatrix() {
		return fmt.Errorf("xavier normal: %w: %s is not a matrix", tensor.ErrShape, s)
	}
	sd := xn.Scale * float32(math.Sqrt(2/float64(s.Dim(0)+s.Dim(1))))
	return Normal{Mean: 0, SD: sd}.Apply(x)
}

// fill overwrites x with a tensor produced on x's device.
func fill(x *tensor.Tensor, produce func(d *tensor.Device, s tensor.Shape) (*tensor.Tensor, error)) error {
	if !x.Valid() {
		return fmt.Errorf("initializer: %w: invalid tensor", tensor.ErrInvalidReference)
	}
	tmp, err := produce(x.Device(), x.Shape())
	if err != nil {
		return err
	}
	defer tmp.Release()
	return x.ResetByVector(tmp.Data())
}
