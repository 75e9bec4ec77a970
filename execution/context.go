// Package execution holds the process execution context (evaluation mode,
// parallel mode) and the executor services the composite operators route
// calls to: an eager trace executor and a graph compile executor.
package execution

import (
	"log/slog"
	"sync"

	"github.com/keel-ml/keel/internal/backend/cpu"
)

// Mode selects the evaluation strategy for composite operators.
type Mode int

const (
	// ModeGraph lowers callables to reusable compiled artifacts ahead of
	// repeated invocation.
	ModeGraph Mode = iota
	// ModeEager executes each call immediately, recording an operation
	// trace consumed for gradient computation.
	ModeEager
)

// String returns a human-readable mode name.
func (m Mode) String() string {
	switch m {
	case ModeGraph:
		return "graph"
	case ModeEager:
		return "eager"
	default:
		return "unknown"
	}
}

// ParallelMode describes the active auto-parallel strategy.
type ParallelMode int

const (
	// ParallelNone runs without sharding.
	ParallelNone ParallelMode = iota
	// ParallelSemiAuto shards along user-annotated axes.
	ParallelSemiAuto
	// ParallelAuto derives the sharding strategy automatically.
	ParallelAuto
)

// String returns a human-readable parallel mode name.
func (p ParallelMode) String() string {
	switch p {
	case ParallelNone:
		return "none"
	case ParallelSemiAuto:
		return "semi_auto_parallel"
	case ParallelAuto:
		return "auto_parallel"
	default:
		return "unknown"
	}
}

// Context carries the execution state composite operators consult: the
// current mode, the parallel mode, and the two executor services.
//
// Operators read the mode once per outer call. Changing the mode between
// building a wrapper and invoking it is caller misuse and is not
// validated. The context is not safe for concurrent mutation.
type Context struct {
	mode      Mode
	parallel  ParallelMode
	eager     EagerExecutor
	graphExec GraphExecutor
	log       *slog.Logger
}

// Option configures a Context.
type Option func(*Context)

// WithMode sets the initial evaluation mode.
func WithMode(m Mode) Option {
	return func(c *Context) { c.mode = m }
}

// WithParallelMode sets the initial parallel mode.
func WithParallelMode(p ParallelMode) Option {
	return func(c *Context) { c.parallel = p }
}

// WithEagerExecutor replaces the eager executor service.
func WithEagerExecutor(e EagerExecutor) Option {
	return func(c *Context) { c.eager = e }
}

// WithGraphExecutor replaces the graph executor service.
func WithGraphExecutor(g GraphExecutor) Option {
	return func(c *Context) { c.graphExec = g }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Context) { c.log = l }
}

// NewContext creates an execution context. By default it runs in graph
// mode with both executors backed by the CPU reference backend, matching
// the framework's ahead-of-time default.
func NewContext(opts ...Option) *Context {
	c := &Context{
		mode:     ModeGraph,
		parallel: ParallelNone,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.eager == nil {
		c.eager = NewTraceExecutor(cpu.New(), c.log)
	}
	if c.graphExec == nil {
		c.graphExec = NewCompileExecutor(cpu.New(), c.log)
	}
	return c
}

var (
	defaultCtx  *Context
	defaultOnce sync.Once
)

// Default returns the process-level context singleton. Operators fall
// back to it only when no context is passed explicitly.
func Default() *Context {
	defaultOnce.Do(func() {
		defaultCtx = NewContext()
	})
	return defaultCtx
}

// Mode returns the current evaluation mode.
func (c *Context) Mode() Mode {
	return c.mode
}

// SetMode changes the evaluation mode. Must not be called while a
// composite wrapper built under the previous mode is mid-call.
func (c *Context) SetMode(m Mode) {
	c.mode = m
}

// ParallelMode returns the current parallel mode.
func (c *Context) ParallelMode() ParallelMode {
	return c.parallel
}

// SetParallelMode changes the parallel mode.
func (c *Context) SetParallelMode(p ParallelMode) {
	c.parallel = p
}

// Eager returns the eager executor service.
func (c *Context) Eager() EagerExecutor {
	return c.eager
}

// Graph returns the graph executor service.
func (c *Context) Graph() GraphExecutor {
	return c.graphExec
}

// Logger returns the context logger.
func (c *Context) Logger() *slog.Logger {
	return c.log
}
