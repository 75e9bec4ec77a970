package composite

// HyperMap applies an operation element-wise over nested sequence
// arguments, recursing into arbitrary nesting depth. The result mirrors
// the input nesting structure and order.
//
// Construct with a fixed Applier, or with nil for the curried form where
// the operation is the first call argument:
//
//	square := composite.NewMultitypeFunc("square")
//	_ = square.Register(func(args ...any) any { ... }, "Number")
//
//	hm := composite.NewHyperMap(nil)
//	out, err := hm.Call(square, composite.Tuple{Tuple{1, 2}, Tuple{3, 4}})
type HyperMap struct {
	ops Applier
}

// NewHyperMap creates a HyperMap. ops may be nil for the curried form.
func NewHyperMap(ops Applier) *HyperMap {
	return &HyperMap{ops: ops}
}

// Call maps the operation over the sequence arguments. All sequences at
// each nesting level must have equal length.
func (h *HyperMap) Call(args ...any) (any, error) {
	fn, seqs, err := splitOp("HyperMap", h.ops, args)
	if err != nil {
		return nil, err
	}
	return structMap("HyperMap", fn, seqs, true)
}

// Map applies an operation element-wise over the top level of its
// sequence arguments without recursing into nested elements.
type Map struct {
	ops Applier
}

// NewMap creates a Map. ops may be nil for the curried form.
func NewMap(ops Applier) *Map {
	return &Map{ops: ops}
}

// Call maps the operation over the top level of the sequence arguments.
func (m *Map) Call(args ...any) (any, error) {
	fn, seqs, err := splitOp("Map", m.ops, args)
	if err != nil {
		return nil, err
	}
	return structMap("Map", fn, seqs, false)
}

// splitOp resolves the curried form: with no fixed operation, the first
// argument is the handler and the rest are the sequences.
func splitOp(op string, fixed Applier, args []any) (Applier, []any, error) {
	if fixed != nil {
		return fixed, args, nil
	}
	if len(args) == 0 {
		return nil, nil, &InvalidArgumentError{Op: op, Arg: "args", Want: "an operation followed by sequences", Got: nil}
	}
	fn, ok := toApplier(args[0])
	if !ok {
		return nil, nil, &InvalidArgumentError{Op: op, Arg: "ops", Want: "Applier or handler function", Got: args[0]}
	}
	return fn, args[1:], nil
}

// structMap is the shared element-wise walk. When deep is set it recurses
// while elements are still sequences; otherwise the handler is applied at
// the top level only.
func structMap(op string, fn Applier, seqs []any, deep bool) (any, error) {
	if len(seqs) == 0 {
		return fn.Call()
	}
	first, ok := asSequence(seqs[0])
	if !ok {
		if deep {
			// Leaf reached: apply the handler across the columns.
			return fn.Call(seqs...)
		}
		return nil, &InvalidArgumentError{Op: op, Arg: "args", Want: "sequence", Got: seqs[0]}
	}

	n := len(first)
	columns := make([][]any, len(seqs))
	columns[0] = first
	for i, s := range seqs[1:] {
		elems, ok := asSequence(s)
		if !ok {
			return nil, &InvalidArgumentError{Op: op, Arg: "args", Want: "sequence", Got: s}
		}
		if len(elems) != n {
			return nil, &ShapeMismatchError{Op: op, Want: n, Got: len(elems)}
		}
		columns[i+1] = elems
	}

	out := make(Tuple, n)
	for i := 0; i < n; i++ {
		column := make([]any, len(columns))
		for j := range columns {
			column[j] = columns[j][i]
		}
		var err error
		if deep {
			out[i], err = structMap(op, fn, column, true)
		} else {
			out[i], err = fn.Call(column...)
		}
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// asSequence unwraps the sequence value types.
func asSequence(v any) ([]any, bool) {
	switch s := v.(type) {
	case Tuple:
		return s, true
	case List:
		return s, true
	case []any:
		return s, true
	default:
		return nil, false
	}
}

// toApplier adapts the supported handler forms to Applier.
func toApplier(v any) (Applier, bool) {
	switch f := v.(type) {
	case Applier:
		return f, true
	case func(args ...any) (any, error):
		return ApplierFunc(f), true
	case Handler:
		return ApplierFunc(func(args ...any) (any, error) { return f(args...), nil }), true
	case func(args ...any) any:
		return ApplierFunc(func(args ...any) (any, error) { return f(args...), nil }), true
	default:
		return nil, false
	}
}
