package composite

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/keel-ml/keel/execution"
	"github.com/keel-ml/keel/graph"
	"github.com/keel-ml/keel/internal/tensor"
)

// GradFunc is the gradient-computing counterpart of a wrapped callable.
// Invoke it with the original call arguments (plus a trailing sensitivity
// tensor when the operator was built with sensParam).
type GradFunc func(args ...*tensor.RawTensor) (*execution.GradResult, error)

// gradKey is the wrapper-cache identity: callable pointer, tracked
// parameter tuple pointer, and the position subset.
type gradKey struct {
	fn        *graph.Graph
	weights   *graph.ParameterTuple
	positions string
}

// GradOperation is a higher-order operator that generates the gradient
// function for an input callable. Configuration is frozen at
// construction:
//
//   - getAll: return gradients w.r.t. every positional input instead of
//     just the first.
//   - getByList: also return gradients w.r.t. the tracked parameters
//     supplied to Apply.
//   - sensParam: the caller appends an explicit output sensitivity as the
//     final argument of the gradient function; without it an implicit
//     all-ones seed shaped like the output is used.
//
// Apply memoizes the wrapper it builds per (callable, weights) identity:
// calling with the identical pair returns the same GradFunc with no side
// effects. A different pair builds a fresh wrapper in its own cache slot.
// Rebuilding for an identity that already has a wrapper would duplicate
// compiled artifacts or double-trace eager execution.
type GradOperation struct {
	getAll    bool
	getByList bool
	sensParam bool

	id     string // Operator identity for the executor's has-run check
	mu     sync.Mutex
	cache  map[gradKey]GradFunc
	builds int
}

// NewGradOperation creates a differentiation operator with frozen
// configuration.
func NewGradOperation(getAll, getByList, sensParam bool) *GradOperation {
	return &GradOperation{
		getAll:    getAll,
		getByList: getByList,
		sensParam: sensParam,
		id:        uuid.NewString(),
		cache:     make(map[gradKey]GradFunc),
	}
}

// Apply returns the gradient function for fn. weights is the tracked
// parameter set for getByList, or nil. ctx nil falls back to the process
// default context; the execution mode is read once here, not per call of
// the returned wrapper.
func (op *GradOperation) Apply(ctx *execution.Context, fn *graph.Graph, weights *graph.ParameterTuple) GradFunc {
	if ctx == nil {
		ctx = execution.Default()
	}

	op.mu.Lock()
	defer op.mu.Unlock()
	key := gradKey{fn: fn, weights: weights}
	if gf, ok := op.cache[key]; ok {
		return gf
	}

	req := &execution.GradientRequest{
		GetAll:    op.getAll,
		GetByList: op.getByList,
		SensParam: op.sensParam,
		Weights:   weights,
	}
	gf := buildGradFunc(ctx, op.id, fn, req)
	op.builds++
	op.cache[key] = gf
	return gf
}

// Builds returns how many wrappers this operator has built. Cache hits do
// not increment it.
func (op *GradOperation) Builds() int {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.builds
}

// GradByPosition is the position-aware differentiation operator: instead
// of "first input or all inputs" it takes an explicit subset of input
// positions to differentiate.
type GradByPosition struct {
	getByList     bool
	sensParam     bool
	getByPosition bool

	id     string
	mu     sync.Mutex
	cache  map[gradKey]GradFunc
	builds int
}

// NewGradByPosition creates a position-aware differentiation operator.
// With getByPosition false it degenerates to gradients w.r.t. the first
// input, like a default GradOperation.
func NewGradByPosition(getByList, sensParam, getByPosition bool) *GradByPosition {
	return &GradByPosition{
		getByList:     getByList,
		sensParam:     sensParam,
		getByPosition: getByPosition,
		id:            uuid.NewString(),
		cache:         make(map[gradKey]GradFunc),
	}
}

// Apply returns the gradient function for fn differentiating the given
// input positions. The cache identity is (fn, weights, positions); any
// component changing forces a rebuild in an independent slot.
func (op *GradByPosition) Apply(ctx *execution.Context, fn *graph.Graph, weights *graph.ParameterTuple, positions ...int) GradFunc {
	if ctx == nil {
		ctx = execution.Default()
	}

	var reqPositions []int
	if op.getByPosition {
		if len(positions) == 0 {
			positions = []int{0}
		}
		reqPositions = positions
	}

	op.mu.Lock()
	defer op.mu.Unlock()
	key := gradKey{fn: fn, weights: weights, positions: fmt.Sprint(reqPositions)}
	if gf, ok := op.cache[key]; ok {
		return gf
	}

	req := &execution.GradientRequest{
		GetByList: op.getByList,
		SensParam: op.sensParam,
		Weights:   weights,
		Positions: reqPositions,
	}
	gf := buildGradFunc(ctx, op.id, fn, req)
	op.builds++
	op.cache[key] = gf
	return gf
}

// Builds returns how many wrappers this operator has built.
func (op *GradByPosition) Builds() int {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.builds
}

// buildGradFunc produces the mode-specific wrapper. The execution mode is
// read exactly once, here; the wrapper never re-reads it.
func buildGradFunc(ctx *execution.Context, opID string, fn *graph.Graph, req *execution.GradientRequest) GradFunc {
	if ctx.Mode() == execution.ModeGraph {
		exec := ctx.Graph()
		// Compiled path: run and differentiate inside one artifact; the
		// wrapper itself has no eager side effects.
		return func(args ...*tensor.RawTensor) (*execution.GradResult, error) {
			callArgs, sens := splitSens(req.SensParam, args)
			return exec.CompileAndRun(fn, req, callArgs, sens)
		}
	}

	eager := ctx.Eager()
	log := ctx.Logger()
	return func(args ...*tensor.RawTensor) (*execution.GradResult, error) {
		callArgs, sens := splitSens(req.SensParam, args)

		// Best-effort re-entrancy detection: a still-open trace for the
		// same call means a prior gradient step has not finished. That is
		// caller misuse, not an invariant violation, so warn and proceed.
		if eager.GraphOpen(fn, callArgs) {
			log.Warn("another gradient step is running", "graph", fn.Name())
		}
		if !eager.HasRun(opID, fn, callArgs) {
			if err := eager.RunForward(opID, fn, callArgs); err != nil {
				return nil, err
			}
		}
		eager.RequestGradient(fn, req, callArgs)
		result, err := eager.Materialize(fn, req, callArgs, sens)
		// Always drop trace state so nothing leaks into unrelated calls.
		eager.Clear(fn, callArgs)
		return result, err
	}
}

// splitSens strips the trailing sensitivity argument when the operator
// was configured with sensParam.
func splitSens(sensParam bool, args []*tensor.RawTensor) ([]*tensor.RawTensor, *tensor.RawTensor) {
	if !sensParam || len(args) == 0 {
		return args, nil
	}
	return args[:len(args)-1], args[len(args)-1]
}
