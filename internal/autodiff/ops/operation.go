// Package ops defines the differentiable operations recorded on the
// gradient tape during an eager forward pass.
//
// Each operation stores its input and output tensors at record time and
// knows how to turn an incoming output gradient into input gradients
// during the reverse walk.
package ops

import "github.com/keel-ml/keel/internal/tensor"

// Operation represents a differentiable operation in the recorded trace.
type Operation interface {
	// Backward computes gradients for inputs given the output gradient.
	// Returns a slice of gradients corresponding to each input tensor.
	Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor

	// Inputs returns the input tensors for this operation.
	Inputs() []*tensor.RawTensor

	// Output returns the output tensor produced by this operation.
	Output() *tensor.RawTensor
}
