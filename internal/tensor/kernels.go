package tensor

// UnaryOp selects an elementwise function of one argument.
type UnaryOp int

// Elementwise unary operations.
const (
	Negate UnaryOp = iota
	Sqrt
	Exp
	Log
	Tanh
	Sigmoid
	Softplus
	Sin
	Cos
	Tan
)

var unaryNames = [...]string{"negate", "sqrt", "exp", "log", "tanh", "sigmoid", "softplus", "sin", "cos", "tan"}

func (op UnaryOp) String() string {
	if int(op) < len(unaryNames) {
		return unaryNames[op]
	}
	return "unary?"
}

// ConstOp selects an elementwise function of one argument and a constant k.
type ConstOp int

// Elementwise operations with a constant.
const (
	AddConst       ConstOp = iota // x + k
	SubtractConstR                // x - k
	SubtractConstL                // k - x
	MultiplyConst                 // x * k
	DivideConstR                  // x / k
	DivideConstL                  // k / x
	PReLU                         // x if x > 0 else k*x
	ELU                           // x if x > 0 else k*(exp(x)-1)
)

var constNames = [...]string{"add_const", "subtract_const_r", "subtract_const_l", "multiply_const", "divide_const_r", "divide_const_l", "prelu", "elu"}

func (op ConstOp) String() string {
	if int(op) < len(constNames) {
		return constNames[op]
	}
	return "const?"
}

// BinaryOp selects an elementwise function of two arguments.
type BinaryOp int

// Elementwise binary operations.
const (
	Add BinaryOp = iota
	Subtract
	Multiply
	Divide
)

var binaryNames = [...]string{"add", "subtract", "multiply", "divide"}

func (op BinaryOp) String() string {
	if int(op) < len(binaryNames) {
		return binaryNames[op]
	}
	return "binary?"
}

// Kernels is the numeric primitive catalogue a Device dispatches to.
//
// Implementations may assume that every tensor is valid, lives on the
// dispatching device and has a shape already checked by the Device. Outputs
// are preallocated by the caller. Backward kernels add into the gradient
// arguments (gx, ga, gb) instead of overwriting them.
//
// Batch rules: an operand with batch 1 is reused for every batch item of the
// output, and a gradient with batch 1 receives the sum over batch items.
type Kernels interface {
	Name() string

	Fill(x *Tensor, k float32)
	Load(x *Tensor, values []float32)
	Copy(x, y *Tensor)
	Identity(y *Tensor)

	RandomBernoulli(y *Tensor, p float32)
	RandomUniform(y *Tensor, lower, upper float32)
	RandomNormal(y *Tensor, mean, sd float32)
	RandomLogNormal(y *Tensor, mean, sd float32)

	PickForward(x *Tensor, ids []int, dim int, y *Tensor)
	SliceForward(x *Tensor, dim, offset int, y *Tensor)
	ConcatForward(xs []*Tensor, dim int, y *Tensor)
	PickBackward(gy *Tensor, ids []int, dim int, gx *Tensor)
	SliceBackward(gy *Tensor, dim, offset int, gx *Tensor)

	UnaryForward(op UnaryOp, x, y *Tensor)
	UnaryBackward(op UnaryOp, x, y, gy, gx *Tensor)
	ConstForward(op ConstOp, k float32, x, y *Tensor)
	ConstBackward(op ConstOp, k float32, x, y, gy, gx *Tensor)

	// Binary kernels also accept an operand with volume 1 whose value is
	// applied to every element of the matching batch item.
	BinaryForward(op BinaryOp, a, b, y *Tensor)
	BinaryBackward(op BinaryOp, a, b, y, gy, ga, gb *Tensor)

	TransposeForward(x, y *Tensor)
	TransposeBackward(gy, gx *Tensor)
	MatMulForward(a, b, y *Tensor)
	MatMulBackward(a, b, gy, ga, gb *Tensor)

	SumForward(x *Tensor, dim int, y *Tensor)
	LogSumExpForward(x *Tensor, dim int, y *Tensor)
	BroadcastForward(x *Tensor, dim, size int, y *Tensor)
	BatchSumForward(x, y *Tensor)

	ArgMax(x *Tensor, dim int) []int
	ArgMin(x *Tensor, dim int) []int

	InplaceMultiplyConst(k float32, x *Tensor)
	InplaceAdd(x, y *Tensor)
	InplaceSubtract(x, y *Tensor)
}
