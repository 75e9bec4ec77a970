package graph

import "github.com/keel-ml/keel/internal/tensor"

// Parameter represents a tracked, persistent value (typically a model
// weight) eligible for gradient collection independent of positional call
// arguments.
type Parameter struct {
	name   string
	tensor *tensor.RawTensor
	grad   *tensor.RawTensor // Set by the executor during materialization
}

// NewParameter creates a tracked parameter.
func NewParameter(name string, t *tensor.RawTensor) *Parameter {
	return &Parameter{name: name, tensor: t}
}

// Name returns the parameter name.
func (p *Parameter) Name() string {
	return p.name
}

// Tensor returns the parameter tensor. Gradient identity follows this
// pointer: the executor looks up gradients by the tensor the parameter
// holds, so replacing it invalidates any open trace.
func (p *Parameter) Tensor() *tensor.RawTensor {
	return p.tensor
}

// Grad returns the gradient tensor, or nil before the first backward pass.
func (p *Parameter) Grad() *tensor.RawTensor {
	return p.grad
}

// SetGrad sets the gradient tensor.
func (p *Parameter) SetGrad(grad *tensor.RawTensor) {
	p.grad = grad
}

// ZeroGrad clears the gradient tensor.
func (p *Parameter) ZeroGrad() {
	p.grad = nil
}

// ParameterTuple is an ordered collection of tracked parameters. Operators
// key caches on the tuple's pointer identity, so build one per model and
// reuse it.
type ParameterTuple struct {
	params []*Parameter
}

// NewParameterTuple creates a tuple from the given parameters.
func NewParameterTuple(params ...*Parameter) *ParameterTuple {
	return &ParameterTuple{params: params}
}

// Len returns the number of parameters.
func (pt *ParameterTuple) Len() int {
	return len(pt.params)
}

// At returns the i-th parameter.
func (pt *ParameterTuple) At(i int) *Parameter {
	return pt.params[i]
}

// All returns the underlying parameter slice, in registration order.
func (pt *ParameterTuple) All() []*Parameter {
	return pt.params
}
