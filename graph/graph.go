// Package graph wraps user callables for the composite layer.
//
// A Graph pairs a tensor function with a name, an explicit flag set, and
// the tracked parameters it closes over. Operators key their wrapper
// caches on Graph pointer identity, so a Graph should be created once and
// reused across calls.
package graph

import "github.com/keel-ml/keel/internal/tensor"

// Func is the calling contract for user computations: a function over raw
// tensors that performs its arithmetic through the supplied backend. The
// executor chooses the backend, which is how the same Func runs traced in
// eager mode and lowered in graph mode.
type Func func(b tensor.Backend, args ...*tensor.RawTensor) *tensor.RawTensor

// Graph is an explicit wrapper struct carrying capability flags alongside
// the wrapped callable. Flags live here, never on the callable itself.
type Graph struct {
	name   string
	fn     Func
	flags  map[string]bool
	params *ParameterTuple
}

// New creates a Graph wrapping fn.
func New(name string, fn Func) *Graph {
	return &Graph{
		name:  name,
		fn:    fn,
		flags: make(map[string]bool),
	}
}

// Name returns the graph's name.
func (g *Graph) Name() string {
	return g.name
}

// Call invokes the wrapped function with the given backend and arguments.
func (g *Graph) Call(b tensor.Backend, args ...*tensor.RawTensor) *tensor.RawTensor {
	return g.fn(b, args...)
}

// WithParams attaches the tracked parameters this graph closes over and
// returns the graph for chaining.
func (g *Graph) WithParams(params *ParameterTuple) *Graph {
	g.params = params
	return g
}

// Params returns the tracked parameters, or nil.
func (g *Graph) Params() *ParameterTuple {
	return g.params
}

// Flag reports whether the named flag is set.
func (g *Graph) Flag(name string) bool {
	return g.flags[name]
}

// Flags returns a copy of the flag set.
func (g *Graph) Flags() map[string]bool {
	out := make(map[string]bool, len(g.flags))
	for k, v := range g.flags {
		out[k] = v
	}
	return out
}

// AddFlags sets boolean flags on the graph and returns it.
func AddFlags(g *Graph, flags map[string]bool) *Graph {
	for k, v := range flags {
		g.flags[k] = v
	}
	return g
}

// Core marks the graph as a core function, optionally setting extra flags.
func Core(g *Graph, extra map[string]bool) *Graph {
	g.flags["core"] = true
	return AddFlags(g, extra)
}
