package composite_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keel-ml/keel/composite"
	"github.com/keel-ml/keel/graph"
	"github.com/keel-ml/keel/internal/tensor"
)

func TestMultitypeFunc_DispatchByTag(t *testing.T) {
	add := composite.NewMultitypeFunc("add")
	require.NoError(t, add.Register(func(args ...any) any {
		return args[0].(int) + args[1].(int)
	}, "Number", "Number"))
	require.NoError(t, add.Register(func(args ...any) any {
		return args[0].(string) + args[1].(string)
	}, "String", "String"))

	out, err := add.Call(1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, out)

	out, err = add.Call("a", "b")
	require.NoError(t, err)
	assert.Equal(t, "ab", out)
}

func TestMultitypeFunc_FirstMatchWins(t *testing.T) {
	table := composite.NewMultitypeFunc("resolve")
	require.NoError(t, table.Register(func(args ...any) any {
		return "int"
	}, "Int", "Int"))
	require.NoError(t, table.Register(func(args ...any) any {
		return "number"
	}, "Number", "Number"))

	// (1, 2) matches both entries; registration order decides.
	out, err := table.Call(1, 2)
	require.NoError(t, err)
	assert.Equal(t, "int", out)

	// Floats only match the wider entry.
	out, err = table.Call(1.0, 2.0)
	require.NoError(t, err)
	assert.Equal(t, "number", out)
}

func TestMultitypeFunc_RegistrationOrderRules(t *testing.T) {
	table := composite.NewMultitypeFunc("resolve")
	require.NoError(t, table.Register(func(args ...any) any {
		return "number"
	}, "Number", "Number"))
	require.NoError(t, table.Register(func(args ...any) any {
		return "int"
	}, "Int", "Int"))

	// The wider entry registered first shadows the narrow one.
	out, err := table.Call(1, 2)
	require.NoError(t, err)
	assert.Equal(t, "number", out)
}

func TestMultitypeFunc_SingleEntryFastPath(t *testing.T) {
	table := composite.NewMultitypeFunc("only")
	require.NoError(t, table.Register(func(args ...any) any {
		return len(args)
	}, "Tensor", "Tensor"))

	// One registered entry dispatches unconditionally, even when the
	// arguments do not match its declared signature.
	out, err := table.Call("not", "tensors", "extra")
	require.NoError(t, err)
	assert.Equal(t, 3, out)
}

func TestMultitypeFunc_NoMatch(t *testing.T) {
	table := composite.NewMultitypeFunc("add")
	require.NoError(t, table.Register(func(args ...any) any { return nil }, "Number", "Number"))
	require.NoError(t, table.Register(func(args ...any) any { return nil }, "Tensor", "Tensor"))

	_, err := table.Call("a", "b")
	require.Error(t, err)

	var noMatch *composite.NoMatchingOverloadError
	require.True(t, errors.As(err, &noMatch))
	assert.Equal(t, "add", noMatch.Table)
	assert.Equal(t, []composite.TypeTag{composite.TagString, composite.TagString}, noMatch.Args)
	assert.Len(t, noMatch.Candidates, 2)
}

func TestMultitypeFunc_ArityMismatchSkipsEntry(t *testing.T) {
	table := composite.NewMultitypeFunc("arity")
	require.NoError(t, table.Register(func(args ...any) any { return "one" }, "Number"))
	require.NoError(t, table.Register(func(args ...any) any { return "two" }, "Number", "Number"))

	out, err := table.Call(1, 2)
	require.NoError(t, err)
	assert.Equal(t, "two", out)
}

func TestMultitypeFunc_RegisterRejectsUnknownSpec(t *testing.T) {
	table := composite.NewMultitypeFunc("bad")
	err := table.Register(func(args ...any) any { return nil }, "NotATag")
	require.Error(t, err)

	err = table.Register(func(args ...any) any { return nil }, 42)
	var invalid *composite.InvalidArgumentError
	require.True(t, errors.As(err, &invalid))
}

func TestMultitypeFunc_ReadValueUnwrapsParameters(t *testing.T) {
	w := graph.NewParameter("w", tensor.Scalar(7))

	table := composite.NewMultitypeFunc("ident", composite.WithReadValue())
	require.NoError(t, table.Register(func(args ...any) any {
		return args[0]
	}, "Tensor"))

	out, err := table.Call(w)
	require.NoError(t, err)
	raw, ok := out.(*tensor.RawTensor)
	require.True(t, ok, "handler should receive the held tensor, not the parameter")
	assert.Same(t, w.Tensor(), raw)
}

func TestMultitypeFunc_ParameterDispatchesAsTensor(t *testing.T) {
	w := graph.NewParameter("w", tensor.Scalar(7))

	table := composite.NewMultitypeFunc("ident")
	require.NoError(t, table.Register(func(args ...any) any { return "tensor" }, "Tensor"))
	require.NoError(t, table.Register(func(args ...any) any { return "other" }, "Any"))

	out, err := table.Call(w)
	require.NoError(t, err)
	assert.Equal(t, "tensor", out)
}

func TestMultitypeFunc_TypeTagSpecs(t *testing.T) {
	table := composite.NewMultitypeFunc("tags")
	require.NoError(t, table.Register(func(args ...any) any { return "tuple" }, composite.TagTuple))
	require.NoError(t, table.Register(func(args ...any) any { return "scalar" }, composite.TagNumber))

	out, err := table.Call(composite.Tuple{1})
	require.NoError(t, err)
	assert.Equal(t, "tuple", out)
}
