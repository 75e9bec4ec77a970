package composite

import (
	"fmt"
	"sync"

	"github.com/keel-ml/keel/execution"
	"github.com/keel-ml/keel/graph"
	"github.com/keel-ml/keel/internal/tensor"
)

// shardKey is the wrapper-cache identity for Shard.
type shardKey struct {
	fn      *graph.Graph
	inAxes  string
	outAxes string
	device  string
	level   int
}

// Shard wraps a callable with a sharding annotation for the auto-parallel
// runtime. It only operates under eager mode with an auto-parallel or
// semi-auto-parallel context; axis annotations are Tuples of ints.
//
// Wrappers are cached per full identity (callable, axes, device, level).
type Shard struct {
	mu     sync.Mutex
	cache  map[shardKey]BatchFunc
	builds int
}

// NewShard creates a sharding operator.
func NewShard() *Shard {
	return &Shard{cache: make(map[shardKey]BatchFunc)}
}

// Apply returns the sharded counterpart of fn. inAxes and outAxes must be
// Tuple values of integer axis annotations.
func (s *Shard) Apply(ctx *execution.Context, fn *graph.Graph, inAxes, outAxes any, device string, level int) (BatchFunc, error) {
	if ctx == nil {
		ctx = execution.Default()
	}

	if ctx.Mode() != execution.ModeEager ||
		(ctx.ParallelMode() != execution.ParallelSemiAuto && ctx.ParallelMode() != execution.ParallelAuto) {
		return nil, &PreconditionError{
			Op:     "Shard",
			Reason: "only supports semi_auto_parallel/auto_parallel under eager mode",
		}
	}
	in, err := axisTuple("in_axes", inAxes)
	if err != nil {
		return nil, err
	}
	out, err := axisTuple("out_axes", outAxes)
	if err != nil {
		return nil, err
	}
	if device == "" {
		return nil, &InvalidArgumentError{Op: "Shard", Arg: "device", Want: "a non-empty string", Got: device}
	}
	if level < 0 {
		return nil, &InvalidArgumentError{Op: "Shard", Arg: "level", Want: "a non-negative integer", Got: level}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := shardKey{
		fn:      fn,
		inAxes:  fmt.Sprint(in),
		outAxes: fmt.Sprint(out),
		device:  device,
		level:   level,
	}
	if bf, ok := s.cache[key]; ok {
		return bf, nil
	}

	exec := ctx.Graph()
	bf := func(args ...*tensor.RawTensor) (*tensor.RawTensor, error) {
		return exec.RunSharded(fn, in, out, device, level, args)
	}
	s.builds++
	s.cache[key] = bf
	return bf, nil
}

// Builds returns how many wrappers this operator has built.
func (s *Shard) Builds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.builds
}

// axisTuple validates a dynamically typed axis annotation: a Tuple whose
// elements are ints.
func axisTuple(name string, v any) ([]int, error) {
	t, ok := v.(Tuple)
	if !ok {
		return nil, &InvalidArgumentError{Op: "Shard", Arg: name, Want: "a Tuple", Got: v}
	}
	axes := make([]int, len(t))
	for i, e := range t {
		ax, ok := e.(int)
		if !ok {
			return nil, &InvalidArgumentError{Op: "Shard", Arg: name, Want: "a Tuple of ints", Got: e}
		}
		axes[i] = ax
	}
	return axes, nil
}
