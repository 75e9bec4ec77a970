package execution

import (
	"github.com/keel-ml/keel/graph"
	"github.com/keel-ml/keel/internal/tensor"
)

// EagerExecutor is the eager execution service: it runs callables
// immediately while tracking an operation trace, and materializes
// gradients from that trace on demand.
//
// The trace storage belongs to the executor; composite operators only
// trigger the lifecycle (forward, request, materialize, clear) around a
// wrapped call. Implementations present a synchronous contract and are
// not safe for concurrent calls.
type EagerExecutor interface {
	// HasRun reports whether the operator identified by opID already ran
	// a forward pass for this exact (graph, args) pair.
	HasRun(opID string, g *graph.Graph, args []*tensor.RawTensor) bool

	// GraphOpen reports whether a prior gradient computation for g is
	// still open (forward recorded, not yet cleared). Used as the
	// re-entrancy check.
	GraphOpen(g *graph.Graph, args []*tensor.RawTensor) bool

	// RunForward marks gradient tracking active, opens a trace scope,
	// invokes g, and closes the scope.
	RunForward(opID string, g *graph.Graph, args []*tensor.RawTensor) error

	// RequestGradient registers which inputs and parameters the next
	// materialization should differentiate.
	RequestGradient(g *graph.Graph, req *GradientRequest, args []*tensor.RawTensor)

	// Materialize computes the requested gradients from the recorded
	// trace. sens is the output sensitivity; nil means an implicit
	// all-ones seed shaped like the output.
	Materialize(g *graph.Graph, req *GradientRequest, args []*tensor.RawTensor, sens *tensor.RawTensor) (*GradResult, error)

	// Clear drops the trace and gradient state for this call so nothing
	// leaks into unrelated subsequent calls.
	Clear(g *graph.Graph, args []*tensor.RawTensor)
}

// GraphExecutor is the compiled execution service: it lowers a callable
// (plus an optional gradient request) into a reusable artifact and runs
// it. Artifacts may invoke other artifacts, so nested compilation must
// work.
type GraphExecutor interface {
	// CompileAndRun runs g under compiled-mode semantics, computing the
	// forward value and any requested gradients in one artifact.
	CompileAndRun(g *graph.Graph, req *GradientRequest, args []*tensor.RawTensor, sens *tensor.RawTensor) (*GradResult, error)

	// RunBatched applies g across the batch axis inAxes of every argument
	// and stacks the outputs along outAxes. The caller never iterates the
	// batch dimension itself.
	RunBatched(g *graph.Graph, inAxes, outAxes int, args []*tensor.RawTensor) (*tensor.RawTensor, error)

	// RunSharded runs g under the given sharding annotation. The
	// reference implementation executes on a single device; a
	// distributed runtime would partition along the annotated axes.
	RunSharded(g *graph.Graph, inAxes, outAxes []int, device string, level int, args []*tensor.RawTensor) (*tensor.RawTensor, error)
}
