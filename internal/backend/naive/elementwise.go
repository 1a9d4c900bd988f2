package naive

import (
	"fmt"
	"math"

	"github.com/born-ml/dagrad/internal/tensor"
)

func exp32(x float32) float32  { return float32(math.Exp(float64(x))) }
func log32(x float32) float32  { return float32(math.Log(float64(x))) }
func tanh32(x float32) float32 { return float32(math.Tanh(float64(x))) }

func sigmoid32(x float32) float32 {
	return .5 + .5*tanh32(.5*x)
}

func softplus32(x float32) float32 {
	// max(x, 0) + log(1 + exp(-|x|)) avoids overflow for large |x|.
	ax := float32(math.Abs(float64(x)))
	return max(x, 0) + float32(math.Log1p(math.Exp(float64(-ax))))
}

func unaryFunc(op tensor.UnaryOp) func(x float32) float32 {
	switch op {
	case tensor.Negate:
		return func(x float32) float32 { return -x }
	case tensor.Sqrt:
		return func(x float32) float32 { return float32(math.Sqrt(float64(x))) }
	case tensor.Exp:
		return exp32
	case tensor.Log:
		return log32
	case tensor.Tanh:
		return tanh32
	case tensor.Sigmoid:
		return sigmoid32
	case tensor.Softplus:
		return softplus32
	case tensor.Sin:
		return func(x float32) float32 { return float32(math.Sin(float64(x))) }
	case tensor.Cos:
		return func(x float32) float32 { return float32(math.Cos(float64(x))) }
	case tensor.Tan:
		return func(x float32) float32 { return float32(math.Tan(float64(x))) }
	}
	panic(fmt.Sprintf("naive: unsupported unary op %d", op))
}

// unaryGrad returns dy/dx given x and y.
func unaryGrad(op tensor.UnaryOp) func(x, y float32) float32 {
	switch op {
	case tensor.Negate:
		return func(_, _ float32) float32 { return -1 }
	case tensor.Sqrt:
		return func(_, y float32) float32 { return .5 / y }
	case tensor.Exp:
		return func(_, y float32) float32 { return y }
	case tensor.Log:
		return func(x, _ float32) float32 { return 1 / x }
	case tensor.Tanh:
		return func(_, y float32) float32 { return 1 - y*y }
	case tensor.Sigmoid:
		return func(_, y float32) float32 { return y * (1 - y) }
	case tensor.Softplus:
		return func(x, _ float32) float32 { return sigmoid32(x) }
	case tensor.Sin:
		return func(x, _ float32) float32 { return float32(math.Cos(float64(x))) }
	case tensor.Cos:
		return func(x, _ float32) float32 { return -float32(math.Sin(float64(x))) }
	case tensor.Tan:
		return func(_, y float32) float32 { return 1 + y*y }
	}
	panic(fmt.Sprintf("naive: unsupported unary op %d", op))
}

// UnaryForward computes y = op(x).
func (be *Backend) UnaryForward(op tensor.UnaryOp, x, y *tensor.Tensor) {
	f := unaryFunc(op)
	src, dst := x.Data(), y.Data()
	for i, v := range src {
		dst[i] = f(v)
	}
}

// UnaryBackward computes gx += gy * op'(x).
func (be *Backend) UnaryBackward(op tensor.UnaryOp, x, y, gy, gx *tensor.Tensor) {
	df := unaryGrad(op)
	px, py, pgy, pgx := x.Data(), y.Data(), gy.Data(), gx.Data()
	for i := range pgx {
		pgx[i] += pgy[i] * df(px[i], py[i])
	}
}

func constFunc(op tensor.ConstOp, k float32) func(x float32) float32 {
	switch op {
	case tensor.AddConst:
		return func(x float32) float32 { return x + k }
	case tensor.SubtractConstR:
		return func(x float32) float32 { return x - k }
	case tensor.SubtractConstL:
		return func(x float32) float32 { return k - x }
	case tensor.MultiplyConst:
		return func(x float32) float32 { return x * k }
	case tensor.DivideConstR:
		return func(x float32) float32 { return x / k }
	case tensor.DivideConstL:
		return func(x float32) float32 { return k / x }
	case tensor.PReLU:
		return func(x float32) float32 {
			if x > 0 {
				return x
			}
			return k * x
		}
	case tensor.ELU:
		return func(x float32) float32 {
			if x > 0 {
				return x
			}
			return k * (exp32(x) - 1)
		}
	}
	panic(fmt.Sprintf("naive: unsupported const op %d", op))
}

func constGrad(op tensor.ConstOp, k float32) func(x, y float32) float32 {
	switch op {
	case tensor.AddConst, tensor.SubtractConstR:
		return func(_, _ float32) float32 { return 1 }
	case tensor.SubtractConstL:
		return func(_, _ float32) float32 { return -1 }
	case tensor.MultiplyConst:
		return func(_, _ float32) float32 { return k }
	case tensor.DivideConstR:
		return func(_, _ float32) float32 { return 1 / k }
	case tensor.DivideConstL:
		return func(x, y float32) float32 { return -y / x }
	case tensor.PReLU:
		return func(x, _ float32) float32 {
			if x > 0 {
				return 1
			}
			return k
		}
	case tensor.ELU:
		return func(x, y float32) float32 {
			if x > 0 {
				return 1
			}
			return y + k
		}
	}
	panic(fmt.Sprintf("naive: unsupported const op %d", op))
}

// ConstForward computes y = op(x, k).
func (be *Backend) ConstForward(op tensor.ConstOp, k float32, x, y *tensor.Tensor) {
	f := constFunc(op, k)
	src, dst := x.Data(), y.Data()
	for i, v := range src {
		dst[i] = f(v)
	}
}

// ConstBackward computes gx += gy * d op(x, k)/dx.
func (be *Backend) ConstBackward(op tensor.ConstOp, k float32, x, y, gy, gx *tensor.Tensor) {
	df := constGrad(op, k)
	px, py, pgy, pgx := x.Data(), y.Data(), gy.Data(), gx.Data()
	for i := range pgx {
		pgx[i] += pgy[i] * df(px[i], py[i])
	}
}

// operand describes how an argument of a binary kernel maps onto the output.
type operand struct {
	data   []float32
	skip   int // offset between batch items, 0 when shared by all items
	stride int // 1 for full tensors, 0 for per-batch scalars
}

func newOperand(x *tensor.Tensor, outVolume int) operand {
	s := x.Shape()
	o := operand{data: x.Data(), stride: 1}
	if s.Volume() != outVolume {
		o.stride = 0
	}
	if s.HasBatch() {
		o.skip = s.Volume()
	}
	return o
}

func (o operand) at(n, i int) int { return n*o.skip + i*o.stride }

// BinaryForward computes y = op(a, b).
func (be *Backend) BinaryForward(op tensor.BinaryOp, a, b, y *tensor.Tensor) {
	s := y.Shape()
	vol := s.Volume()
	pa, pb, py := newOperand(a, vol), newOperand(b, vol), y.Data()
	for n := range s.Batch() {
		for i := range vol {
			x1, x2 := pa.data[pa.at(n, i)], pb.data[pb.at(n, i)]
			var v float32
			switch op {
			case tensor.Add:
				v = x1 + x2
			case tensor.Subtract:
				v = x1 - x2
			case tensor.Multiply:
				v = x1 * x2
			case tensor.Divide:
				v = x1 / x2
			default:
				panic(fmt.Sprintf("naive: unsupported binary op %d", op))
			}
			py[n*vol+i] = v
		}
	}
}

// BinaryBackward computes ga += gy * dy/da and gb += gy * dy/db.
// Gradients of shared operands accumulate over every batch item they feed.
func (be *Backend) BinaryBackward(op tensor.BinaryOp, a, b, y, gy, ga, gb *tensor.Tensor) {
	s := y.Shape()
	vol := s.Volume()
	pa, pb := newOperand(a, vol), newOperand(b, vol)
	pga, pgb := newOperand(ga, vol), newOperand(gb, vol)
	py, pgy := y.Data(), gy.Data()
	for n := range s.Batch() {
		for i := range vol {
			j := n*vol + i
			g := pgy[j]
			ia, ib := pa.at(n, i), pb.at(n, i)
			switch op {
			case tensor.Add:
				pga.data[ia] += g
				pgb.data[ib] += g
			case tensor.Subtract:
				pga.data[ia] += g
				pgb.data[ib] -= g
			case tensor.Multiply:
				pga.data[ia] += g * pb.data[ib]
				pgb.data[ib] += g * pa.data[ia]
			case tensor.Divide:
				pga.data[ia] += g / pb.data[ib]
				pgb.data[ib] -= g * py[j] / pb.data[ib]
			default:
				panic(fmt.Sprintf("naive: unsupported binary op %d", op))
			}
		}
	}
}

// InplaceMultiplyConst computes x *= k.
func (be *Backend) InplaceMultiplyConst(k float32, x *tensor.Tensor) {
	data := x.Data()
	for i := range data {
		data[i] *= k
	}
}

// InplaceAdd computes y += x, broadcasting or summing over batch as needed.
func (be *Backend) InplaceAdd(x, y *tensor.Tensor) {
	inplace(x, y, 1)
}

// InplaceSubtract computes y -= x, broadcasting or summing over batch as needed.
func (be *Backend) InplaceSubtract(x, y *tensor.Tensor) {
	inplace(x, y, -1)
}

func inplace(x, y *tensor.Tensor, sign float32) {
	sx, sy := x.Shape(), y.Shape()
	vol := sy.Volume()
	px, py := newOperand(x, vol), newOperand(y, vol)
	for n := range max(sx.Batch(), sy.Batch()) {
		for i := range vol {
			py.data[py.at(n, i)] += sign * px.data[px.at(n, i)]
		}
	}
}
