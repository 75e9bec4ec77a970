package execution

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/keel-ml/keel/graph"
	"github.com/keel-ml/keel/internal/autodiff"
	"github.com/keel-ml/keel/internal/tensor"
)

// CompileExecutor is the default GraphExecutor. It lowers each
// (graph, gradient-request) pair into an artifact exactly once and reuses
// the artifact for subsequent calls.
//
// The reference lowering keeps the kernel work interpreted: an artifact
// pins the routing decisions (which gradients, which backend) and runs
// the callable under a private trace per invocation. A real compiler
// service would replace the artifact body without changing this contract.
type CompileExecutor struct {
	backend   tensor.Backend
	mu        sync.Mutex
	artifacts map[artifactKey]*artifact
	log       *slog.Logger
}

type artifactKey struct {
	g   *graph.Graph
	req string
}

// artifact is one compiled unit. Artifacts are self-contained (each run
// uses a private tape), so an artifact may invoke other artifacts.
type artifact struct {
	id   uuid.UUID
	g    *graph.Graph
	req  *GradientRequest
	runs int
}

// NewCompileExecutor creates a compile executor over the given backend.
func NewCompileExecutor(b tensor.Backend, log *slog.Logger) *CompileExecutor {
	if log == nil {
		log = slog.Default()
	}
	return &CompileExecutor{
		backend:   b,
		artifacts: make(map[artifactKey]*artifact),
		log:       log,
	}
}

// CompileAndRun compiles g (once per gradient request) and runs the
// artifact: forward value plus any requested gradients in a single pass.
func (e *CompileExecutor) CompileAndRun(g *graph.Graph, req *GradientRequest, args []*tensor.RawTensor, sens *tensor.RawTensor) (*GradResult, error) {
	art := e.artifact(g, req)
	art.runs++

	if art.req == nil {
		// Pure forward artifact.
		return &GradResult{Output: g.Call(e.backend, args...)}, nil
	}

	// Forward under a private trace, then reverse walk for gradients.
	trace := autodiff.New(e.backend)
	tape := trace.Tape()
	tape.StartRecording()
	output := g.Call(trace, args...)
	tape.StopRecording()
	if output == nil {
		return nil, fmt.Errorf("compiled run: graph %q returned no output", g.Name())
	}

	seed := sens
	if seed == nil {
		seed = tensor.OnesLike(output)
	}
	grads := tape.Backward(output, seed, e.backend)
	return assembleGradResult(art.req, args, grads, output)
}

// RunBatched applies g across the batch axis inAxes of every argument and
// stacks the per-element outputs along outAxes. The batch loop lives
// here, inside the service, never in the operator.
func (e *CompileExecutor) RunBatched(g *graph.Graph, inAxes, outAxes int, args []*tensor.RawTensor) (*tensor.RawTensor, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("batched run: graph %q called with no arguments", g.Name())
	}
	n := -1
	for i, arg := range args {
		shape := arg.Shape()
		if inAxes < 0 || inAxes >= len(shape) {
			return nil, fmt.Errorf("batched run: in axis %d out of range for argument %d of shape %v", inAxes, i, shape)
		}
		if n == -1 {
			n = shape[inAxes]
		} else if shape[inAxes] != n {
			return nil, fmt.Errorf("batched run: batch size mismatch at argument %d: %d vs %d", i, shape[inAxes], n)
		}
	}

	outputs := make([]*tensor.RawTensor, 0, n)
	for i := 0; i < n; i++ {
		sliced := make([]*tensor.RawTensor, len(args))
		for j, arg := range args {
			sliced[j] = e.backend.SliceAt(arg, inAxes, i)
		}
		out := g.Call(e.backend, sliced...)
		if out == nil {
			return nil, fmt.Errorf("batched run: graph %q returned no output at batch index %d", g.Name(), i)
		}
		outputs = append(outputs, out)
	}

	maxAxis := len(outputs[0].Shape())
	if outAxes < 0 || outAxes > maxAxis {
		return nil, fmt.Errorf("batched run: out axis %d out of range for output shape %v", outAxes, outputs[0].Shape())
	}
	return e.backend.Stack(outputs, outAxes), nil
}

// RunSharded runs g under a sharding annotation. On a single device the
// annotation only selects the artifact; a distributed runtime would
// partition arguments along inAxes and collect along outAxes.
func (e *CompileExecutor) RunSharded(g *graph.Graph, inAxes, outAxes []int, device string, level int, args []*tensor.RawTensor) (*tensor.RawTensor, error) {
	key := artifactKey{g: g, req: fmt.Sprintf("shard in=%v out=%v device=%s level=%d", inAxes, outAxes, device, level)}
	e.mu.Lock()
	art, ok := e.artifacts[key]
	if !ok {
		art = &artifact{id: uuid.New(), g: g}
		e.artifacts[key] = art
		e.log.Debug("compiled sharded artifact",
			"graph", g.Name(), "artifact", art.id, "device", device, "level", level)
	}
	e.mu.Unlock()
	art.runs++

	output := g.Call(e.backend, args...)
	if output == nil {
		return nil, fmt.Errorf("sharded run: graph %q returned no output", g.Name())
	}
	return output, nil
}

// Artifacts returns the number of compiled artifacts. Exposed so tests
// can observe compile-once behavior.
func (e *CompileExecutor) Artifacts() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.artifacts)
}

// artifact returns the compiled artifact for (g, req), compiling at most
// once per key. The lock keeps the check-then-build sequence atomic.
func (e *CompileExecutor) artifact(g *graph.Graph, req *GradientRequest) *artifact {
	key := artifactKey{g: g}
	if req != nil {
		key.req = req.Key()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if art, ok := e.artifacts[key]; ok {
		return art
	}
	art := &artifact{id: uuid.New(), g: g, req: req}
	e.artifacts[key] = art
	e.log.Debug("compiled artifact",
		"graph", g.Name(), "artifact", art.id, "request", key.req)
	return art
}
