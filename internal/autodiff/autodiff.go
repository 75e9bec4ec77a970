// Package autodiff implements reverse-mode automatic differentiation using
// the decorator pattern.
//
// TracingBackend wraps any Backend implementation (CPU today, device
// backends later) and records every differentiable operation on a
// GradientTape during the forward pass. The eager executor drives the
// tape: it starts recording before invoking a user callable and walks the
// trace backwards to materialize gradients.
package autodiff

import (
	"github.com/keel-ml/keel/internal/autodiff/ops"
	"github.com/keel-ml/keel/internal/tensor"
)

// TracingBackend wraps a Backend and records operations for differentiation.
// It implements the tensor.Backend interface.
//
// Type parameter B must satisfy the tensor.Backend interface.
type TracingBackend[B tensor.Backend] struct {
	inner B             // Wrapped backend
	tape  *GradientTape // Records operations for backpropagation
}

// New creates a new TracingBackend wrapping the given backend.
func New[B tensor.Backend](backend B) *TracingBackend[B] {
	return &TracingBackend[B]{
		inner: backend,
		tape:  NewGradientTape(),
	}
}

// Tape returns the gradient tape for manual control.
func (b *TracingBackend[B]) Tape() *GradientTape {
	return b.tape
}

// Inner returns the wrapped backend for direct access.
func (b *TracingBackend[B]) Inner() B {
	return b.inner
}

// Name returns the backend name.
func (b *TracingBackend[B]) Name() string {
	return "Tracing(" + b.inner.Name() + ")"
}

// Add performs element-wise addition and records the operation.
func (b *TracingBackend[B]) Add(x, y *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Add(x, y)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewAddOp(x, y, result))
	}
	return result
}

// Sub performs element-wise subtraction and records the operation.
func (b *TracingBackend[B]) Sub(x, y *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Sub(x, y)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewSubOp(x, y, result))
	}
	return result
}

// Mul performs element-wise multiplication and records the operation.
func (b *TracingBackend[B]) Mul(x, y *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Mul(x, y)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewMulOp(x, y, result))
	}
	return result
}

// Div performs element-wise division and records the operation.
func (b *TracingBackend[B]) Div(x, y *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Div(x, y)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewDivOp(x, y, result))
	}
	return result
}

// MatMul performs matrix multiplication and records the operation.
func (b *TracingBackend[B]) MatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.MatMul(x, y)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewMatMulOp(x, y, result))
	}
	return result
}

// Reshape reshapes a tensor and records the operation so gradients flow
// back to the original tensor, not the reshaped copy.
func (b *TracingBackend[B]) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	result := b.inner.Reshape(t, newShape)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewReshapeOp(t, result))
	}
	return result
}

// Transpose permutes axes and records the operation. The backend
// allocates a new tensor for the result, so the permutation must be on
// the tape for the gradient to reach the original input.
func (b *TracingBackend[B]) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	ndim := len(t.Shape())
	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}
	result := b.inner.Transpose(t, axes...)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewTransposeOp(t, result, axes))
	}
	return result
}

// MulScalar multiplies by a constant and records the operation.
func (b *TracingBackend[B]) MulScalar(t *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	result := b.inner.MulScalar(t, scalar)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewMulScalarOp(t, result, scalar))
	}
	return result
}

// SliceAt selects along a batch axis. Not differentiated: batch slicing
// is only used by the vectorizing map, which never requests gradients
// through the slice itself.
func (b *TracingBackend[B]) SliceAt(t *tensor.RawTensor, axis, index int) *tensor.RawTensor {
	return b.inner.SliceAt(t, axis, index)
}

// Stack joins tensors along a new axis. Not differentiated, see SliceAt.
func (b *TracingBackend[B]) Stack(ts []*tensor.RawTensor, axis int) *tensor.RawTensor {
	return b.inner.Stack(ts, axis)
}
