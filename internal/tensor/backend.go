package tensor

// Backend defines the interface that all compute backends must implement.
// Backends handle the actual computation for tensor operations.
//
// The composite layer treats the backend as an opaque kernel service: it
// never inspects results, only routes them. Binary elementwise operations
// require operands of equal shape; backends panic on kernel misuse, which
// is a programmer error rather than a recoverable condition.
type Backend interface {
	// Name identifies the backend in logs and error messages.
	Name() string

	// Element-wise binary operations (equal shapes required)
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor

	// Matrix operations
	MatMul(a, b *RawTensor) *RawTensor

	// Shape operations
	Reshape(t *RawTensor, newShape Shape) *RawTensor
	Transpose(t *RawTensor, axes ...int) *RawTensor

	// Scalar operations
	MulScalar(t *RawTensor, scalar float64) *RawTensor

	// Batch-axis operations (used by the vectorizing map)
	//
	// SliceAt selects index i along axis, removing that axis.
	// Stack joins equally shaped tensors along a new axis.
	SliceAt(t *RawTensor, axis, index int) *RawTensor
	Stack(ts []*RawTensor, axis int) *RawTensor
}
