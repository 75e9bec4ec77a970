package composite

import (
	"sync"

	"github.com/keel-ml/keel/execution"
	"github.com/keel-ml/keel/graph"
	"github.com/keel-ml/keel/internal/tensor"
)

// BatchFunc is a batched counterpart of a wrapped callable.
type BatchFunc func(args ...*tensor.RawTensor) (*tensor.RawTensor, error)

// vmapKey is the wrapper-cache identity for Vmap.
type vmapKey struct {
	fn      *graph.Graph
	inAxes  int
	outAxes int
}

// Vmap is the vectorizing-map operator: it wraps a callable so it applies
// across a batch axis without the caller writing the loop. Batched
// execution is delegated entirely to the graph executor; the operator
// itself never iterates the batch dimension, which would turn vectorized
// execution into emulated iteration.
//
// Wrappers are cached per (callable, inAxes, outAxes); any change in
// target or axis configuration builds a fresh wrapper.
type Vmap struct {
	mu     sync.Mutex
	cache  map[vmapKey]BatchFunc
	builds int
}

// NewVmap creates a vectorizing-map operator.
func NewVmap() *Vmap {
	return &Vmap{cache: make(map[vmapKey]BatchFunc)}
}

// Apply returns the batched counterpart of fn. inAxes selects the batch
// axis of every input; outAxes selects where the batch axis appears in
// the stacked output.
func (v *Vmap) Apply(ctx *execution.Context, fn *graph.Graph, inAxes, outAxes int) BatchFunc {
	if ctx == nil {
		ctx = execution.Default()
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	key := vmapKey{fn: fn, inAxes: inAxes, outAxes: outAxes}
	if bf, ok := v.cache[key]; ok {
		return bf
	}

	exec := ctx.Graph()
	bf := func(args ...*tensor.RawTensor) (*tensor.RawTensor, error) {
		return exec.RunBatched(fn, inAxes, outAxes, args)
	}
	v.builds++
	v.cache[key] = bf
	return bf
}

// Builds returns how many wrappers this operator has built.
func (v *Vmap) Builds() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.builds
}
