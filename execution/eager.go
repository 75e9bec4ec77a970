package execution

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/keel-ml/keel/graph"
	"github.com/keel-ml/keel/internal/autodiff"
	"github.com/keel-ml/keel/internal/tensor"
)

// TraceExecutor is the default EagerExecutor. It owns a tracing backend
// whose gradient tape records the forward pass of the most recent run per
// graph; gradients are materialized by walking that tape backwards.
type TraceExecutor struct {
	backend *autodiff.TracingBackend[tensor.Backend]
	runs    map[*graph.Graph]*forwardRun
	log     *slog.Logger
}

// forwardRun is one recorded forward pass, keyed by graph identity.
type forwardRun struct {
	id     uuid.UUID
	opID   string // Operator that triggered the run
	args   []*tensor.RawTensor
	output *tensor.RawTensor
	req    *GradientRequest
	open   bool // Forward recorded, gradients not yet cleared
}

// NewTraceExecutor creates a trace executor over the given kernel backend.
func NewTraceExecutor(b tensor.Backend, log *slog.Logger) *TraceExecutor {
	if log == nil {
		log = slog.Default()
	}
	return &TraceExecutor{
		backend: autodiff.New(b),
		runs:    make(map[*graph.Graph]*forwardRun),
		log:     log,
	}
}

// HasRun reports whether opID already ran g forward with these arguments.
func (e *TraceExecutor) HasRun(opID string, g *graph.Graph, args []*tensor.RawTensor) bool {
	run, ok := e.runs[g]
	return ok && run.open && run.opID == opID && sameArgs(run.args, args)
}

// GraphOpen reports whether a gradient computation for g is still open.
func (e *TraceExecutor) GraphOpen(g *graph.Graph, args []*tensor.RawTensor) bool {
	run, ok := e.runs[g]
	return ok && run.open && sameArgs(run.args, args)
}

// RunForward records a forward trace for g. Any previously recorded run
// for another call is discarded; the tape holds exactly one trace.
func (e *TraceExecutor) RunForward(opID string, g *graph.Graph, args []*tensor.RawTensor) error {
	tape := e.backend.Tape()
	tape.Clear()
	tape.StartRecording()
	output := g.Call(e.backend, args...)
	tape.StopRecording()

	if output == nil {
		return fmt.Errorf("eager forward: graph %q returned no output", g.Name())
	}

	run := &forwardRun{
		id:     uuid.New(),
		opID:   opID,
		args:   args,
		output: output,
		open:   true,
	}
	e.runs[g] = run
	e.log.Debug("recorded forward trace",
		"graph", g.Name(), "run", run.id, "ops", tape.NumOps())
	return nil
}

// RequestGradient registers the gradient request for the open run of g.
func (e *TraceExecutor) RequestGradient(g *graph.Graph, req *GradientRequest, args []*tensor.RawTensor) {
	if run, ok := e.runs[g]; ok && sameArgs(run.args, args) {
		run.req = req
	}
}

// Materialize walks the recorded trace backwards from the sensitivity
// seed and assembles the requested gradients. Missing gradients (inputs
// the output does not depend on) materialize as zeros.
func (e *TraceExecutor) Materialize(g *graph.Graph, req *GradientRequest, args []*tensor.RawTensor, sens *tensor.RawTensor) (*GradResult, error) {
	run, ok := e.runs[g]
	if !ok || !sameArgs(run.args, args) {
		return nil, fmt.Errorf("eager materialize: no forward trace for graph %q", g.Name())
	}
	if run.req != nil {
		req = run.req
	}

	seed := sens
	if seed == nil {
		seed = tensor.OnesLike(run.output)
	}
	grads := e.backend.Tape().Backward(run.output, seed, e.backend.Inner())
	return assembleGradResult(req, args, grads, run.output)
}

// Clear drops the trace and gradient state for this call.
func (e *TraceExecutor) Clear(g *graph.Graph, args []*tensor.RawTensor) {
	if run, ok := e.runs[g]; ok && sameArgs(run.args, args) {
		delete(e.runs, g)
		e.backend.Tape().Clear()
		e.log.Debug("cleared forward trace", "graph", g.Name(), "run", run.id)
	}
}

// sameArgs compares argument tuples by tensor identity.
func sameArgs(a, b []*tensor.RawTensor) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
