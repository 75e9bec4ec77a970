package composite

import (
	"fmt"

	"github.com/keel-ml/keel/graph"
)

// Handler is a dispatch target: one overload of a MultitypeFunc.
type Handler func(args ...any) any

// Applier is anything HyperMap and Map can apply element-wise. A
// MultitypeFunc is an Applier; ApplierFunc adapts plain functions.
type Applier interface {
	Call(args ...any) (any, error)
}

// ApplierFunc adapts a function to the Applier interface.
type ApplierFunc func(args ...any) (any, error)

// Call invokes the function.
func (f ApplierFunc) Call(args ...any) (any, error) {
	return f(args...)
}

// dispatchEntry is one registered overload: an ordered type signature and
// its handler. Entries are immutable once registered.
type dispatchEntry struct {
	sig      []TypeTag
	rawNames []string
	fn       Handler
}

// MultitypeFunc generates an overloaded function: an append-only table of
// (type signature, handler) entries resolved by structural match at call
// time. Tables are created once at setup time and only grow; entries are
// never removed.
type MultitypeFunc struct {
	name      string
	readValue bool
	entries   []dispatchEntry
}

// MultitypeOption configures a MultitypeFunc.
type MultitypeOption func(*MultitypeFunc)

// WithReadValue marks every input as pass-by-value: registered handlers
// receive the tensor a Parameter holds rather than the Parameter itself.
func WithReadValue() MultitypeOption {
	return func(m *MultitypeFunc) { m.readValue = true }
}

// NewMultitypeFunc creates an empty dispatch table with the given name.
func NewMultitypeFunc(name string, opts ...MultitypeOption) *MultitypeFunc {
	m := &MultitypeFunc{name: name}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the table name.
func (m *MultitypeFunc) Name() string {
	return m.name
}

// NumEntries returns the number of registered overloads.
func (m *MultitypeFunc) NumEntries() int {
	return len(m.entries)
}

// Register appends an overload for the given type signature. Each spec is
// either a registration name ("Number", "Tensor", ...) or a TypeTag.
// Registration order is match order on dispatch.
func (m *MultitypeFunc) Register(fn Handler, specs ...any) error {
	sig := make([]TypeTag, len(specs))
	raw := make([]string, len(specs))
	for i, spec := range specs {
		switch s := spec.(type) {
		case string:
			tag, err := ParseTag(s)
			if err != nil {
				return fmt.Errorf("multitype func %q: %w", m.name, err)
			}
			sig[i] = tag
			raw[i] = s
		case TypeTag:
			sig[i] = s
			raw[i] = s.String()
		default:
			return &InvalidArgumentError{
				Op: "MultitypeFunc.Register", Arg: "specs", Want: "string or TypeTag", Got: spec,
			}
		}
	}
	m.entries = append(m.entries, dispatchEntry{sig: sig, rawNames: raw, fn: fn})
	return nil
}

// Call resolves the arguments to exactly one handler and invokes it.
//
// A table with a single entry short-circuits to it without classifying
// the arguments at all, a compatibility behavior inherited from the
// table's original users; an arity mismatch is then the handler's
// problem. Otherwise entries are scanned in registration order and the
// first entry whose signature length equals the argument count and whose
// every declared tag is a supertag of the argument's tag wins.
func (m *MultitypeFunc) Call(args ...any) (any, error) {
	if len(m.entries) == 1 {
		return m.invoke(m.entries[0], args), nil
	}

	tags := make([]TypeTag, len(args))
	for i, arg := range args {
		tags[i] = TagOf(arg)
	}

	for _, entry := range m.entries {
		if len(entry.sig) != len(tags) {
			continue
		}
		matched := true
		for i, declared := range entry.sig {
			if !IsSubtag(tags[i], declared) {
				matched = false
				break
			}
		}
		if matched {
			return m.invoke(entry, args), nil
		}
	}

	candidates := make([][]TypeTag, len(m.entries))
	for i, entry := range m.entries {
		candidates[i] = entry.sig
	}
	return nil, &NoMatchingOverloadError{Table: m.name, Args: tags, Candidates: candidates}
}

// invoke applies the table's calling convention and runs the handler.
func (m *MultitypeFunc) invoke(entry dispatchEntry, args []any) any {
	if m.readValue {
		unwrapped := make([]any, len(args))
		for i, arg := range args {
			if p, ok := arg.(*graph.Parameter); ok {
				unwrapped[i] = p.Tensor()
			} else {
				unwrapped[i] = arg
			}
		}
		args = unwrapped
	}
	return entry.fn(args...)
}
