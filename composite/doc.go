// Package composite implements the higher-order operators of the
// framework: type-directed multiple dispatch (MultitypeFunc), structural
// mapping over nested sequences (HyperMap, Map), and memoized wrappers for
// differentiation (GradOperation, GradByPosition), vectorized mapping
// (Vmap), and sharding (Shard).
//
// Operators do no tensor arithmetic themselves. They route each call to
// the executor services on an execution.Context: the graph executor in
// compiled mode, the trace executor in eager mode. Both paths preserve one
// external calling contract, and they cache the wrapper they build per
// (callable, configuration) identity so repeated calls reuse the same
// artifact or trace scope.
//
// Operator instances are not safe for concurrent use; callers serialize,
// and an internal mutex only keeps the check-then-build step atomic.
package composite
