package execution

import (
	"fmt"

	"github.com/keel-ml/keel/graph"
	"github.com/keel-ml/keel/internal/tensor"
)

// GradientRequest describes which gradients an operator wants from an
// executor: positional inputs, tracked parameters, or both, plus whether
// the caller supplies an explicit output sensitivity.
type GradientRequest struct {
	GetAll    bool // Gradients w.r.t. every positional input
	GetByList bool // Gradients w.r.t. the tracked parameters in Weights
	SensParam bool // Caller passes an explicit sensitivity seed
	Weights   *graph.ParameterTuple
	Positions []int // Explicit input positions; nil means the default set
}

// positions resolves the requested input positions for nargs arguments.
func (r *GradientRequest) positions(nargs int) []int {
	if r.Positions != nil {
		return r.Positions
	}
	if r.GetAll {
		all := make([]int, nargs)
		for i := range all {
			all[i] = i
		}
		return all
	}
	if nargs == 0 {
		return nil
	}
	return []int{0}
}

// wantsInputs reports whether the request asks for positional gradients.
func (r *GradientRequest) wantsInputs() bool {
	return r.GetAll || r.Positions != nil || !r.GetByList
}

// Key returns a cache-identity string for the request configuration.
// Weights contribute by pointer identity.
func (r *GradientRequest) Key() string {
	return fmt.Sprintf("all=%t list=%t sens=%t weights=%p pos=%v",
		r.GetAll, r.GetByList, r.SensParam, r.Weights, r.Positions)
}

// GradResult carries the outcome of a gradient computation.
//
// InputGrads holds gradients for the requested positions in request
// order; ParamGrads holds gradients for the tracked parameters in tuple
// order. Output is the forward value (populated by the graph executor,
// which computes both in one artifact).
type GradResult struct {
	Output     *tensor.RawTensor
	InputGrads []*tensor.RawTensor
	ParamGrads []*tensor.RawTensor

	getInputs bool // Input gradients explicitly requested (all or positions)
	getByList bool
}

// Unpack reproduces the calling-contract shape of the gradient output:
//
//   - neither group requested: the single gradient (*tensor.RawTensor)
//   - one group requested: that group ([]*tensor.RawTensor)
//   - both requested: a two-element pair ([2][]*tensor.RawTensor of
//     input gradients then parameter gradients)
//
// "Both requested" includes the position-subset form: an explicit
// position set counts as requesting the input group.
func (r *GradResult) Unpack() any {
	switch {
	case r.getInputs && r.getByList:
		return [2][]*tensor.RawTensor{r.InputGrads, r.ParamGrads}
	case r.getByList:
		return r.ParamGrads
	case r.getInputs:
		return r.InputGrads
	default:
		if len(r.InputGrads) == 1 {
			return r.InputGrads[0]
		}
		return r.InputGrads
	}
}

// First returns the first input gradient, or nil.
func (r *GradResult) First() *tensor.RawTensor {
	if len(r.InputGrads) == 0 {
		return nil
	}
	return r.InputGrads[0]
}

// assembleGradResult selects the requested gradients out of the raw
// gradient map. Inputs the output does not depend on materialize as
// zeros; parameter gradients are also assigned onto their Parameter
// slots.
func assembleGradResult(req *GradientRequest, args []*tensor.RawTensor, grads map[*tensor.RawTensor]*tensor.RawTensor, output *tensor.RawTensor) (*GradResult, error) {
	result := &GradResult{
		Output:    output,
		getInputs: req.GetAll || req.Positions != nil,
		getByList: req.GetByList,
	}
	if req.wantsInputs() {
		for _, pos := range req.positions(len(args)) {
			if pos < 0 || pos >= len(args) {
				return nil, fmt.Errorf("grad position %d out of range for %d args", pos, len(args))
			}
			grad, ok := grads[args[pos]]
			if !ok {
				grad = tensor.ZerosLike(args[pos])
			}
			result.InputGrads = append(result.InputGrads, grad)
		}
	}
	if req.GetByList && req.Weights != nil {
		for _, p := range req.Weights.All() {
			grad, ok := grads[p.Tensor()]
			if !ok {
				grad = tensor.ZerosLike(p.Tensor())
			}
			p.SetGrad(grad)
			result.ParamGrads = append(result.ParamGrads, grad)
		}
	}
	return result, nil
}
