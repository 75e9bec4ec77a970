package composite

import (
	"fmt"
	"strings"
)

// NoMatchingOverloadError reports a dispatch failure. It carries the
// attempted argument tags and the table's full candidate list so the
// caller can see every signature that was considered.
type NoMatchingOverloadError struct {
	Table      string
	Args       []TypeTag
	Candidates [][]TypeTag
}

func (e *NoMatchingOverloadError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "multitype func %q: no overload matches argument types %v; candidates:", e.Table, e.Args)
	for _, sig := range e.Candidates {
		fmt.Fprintf(&sb, " %v", sig)
	}
	return sb.String()
}

// ShapeMismatchError reports parallel sequences of unequal length passed
// to a structural map.
type ShapeMismatchError struct {
	Op   string
	Want int
	Got  int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("%s: sequence length mismatch: expected %d elements, got %d", e.Op, e.Want, e.Got)
}

// PreconditionError reports an operator invoked outside its required
// execution state, e.g. Shard outside eager auto-parallel mode.
type PreconditionError struct {
	Op     string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// InvalidArgumentError reports a dynamically typed argument of the wrong
// kind, such as a Shard axis annotation that is not a Tuple.
type InvalidArgumentError struct {
	Op   string
	Arg  string
	Want string
	Got  any
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("%s: %q should be %s, but got %T", e.Op, e.Arg, e.Want, e.Got)
}
