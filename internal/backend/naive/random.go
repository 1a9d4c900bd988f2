package naive

import (
	"github.com/born-ml/dagrad/internal/tensor"
	"gonum.org/v1/gonum/stat/distuv"
)

// RandomBernoulli samples each element of y from Bernoulli(p).
func (be *Backend) RandomBernoulli(y *tensor.Tensor, p float32) {
	dist := distuv.Bernoulli{P: float64(p), Src: be.src}
	data := y.Data()
	for i := range data {
		data[i] = float32(dist.Rand())
	}
}

// RandomUniform samples each element of y from the interval (lower, upper].
func (be *Backend) RandomUniform(y *tensor.Tensor, lower, upper float32) {
	dist := distuv.Uniform{Min: float64(lower), Max: float64(upper), Src: be.src}
	data := y.Data()
	for i := range data {
		v := float32(dist.Rand())
		// The lower bound is excluded; it maps onto the upper bound.
		if v == lower {
			v = upper
		}
		data[i] = v
	}
}

// RandomNormal samples each element of y from N(mean, sd^2).
func (be *Backend) RandomNormal(y *tensor.Tensor, mean, sd float32) {
	dist := distuv.Normal{Mu: float64(mean), Sigma: float64(sd), Src: be.src}
	data := y.Data()
	for i := range data {
		data[i] = float32(dist.Rand())
	}
}

// RandomLogNormal samples each element of y from exp(N(mean, sd^2)).
func (be *Backend) RandomLogNormal(y *tensor.Tensor, mean, sd float32) {
	dist := distuv.LogNormal{Mu: float64(mean), Sigma: float64(sd), Src: be.src}
	data := y.Data()
	for i := range data {
		data[i] = float32(dist.Rand())
	}
}
