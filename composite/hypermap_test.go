package composite_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keel-ml/keel/composite"
)

func squareTable(t *testing.T) *composite.MultitypeFunc {
	t.Helper()
	square := composite.NewMultitypeFunc("square")
	require.NoError(t, square.Register(func(args ...any) any {
		n := args[0].(int)
		return n * n
	}, "Number"))
	return square
}

func TestHyperMap_DeepNesting(t *testing.T) {
	hm := composite.NewHyperMap(squareTable(t))

	in := composite.Tuple{
		composite.Tuple{1, 2},
		composite.Tuple{3, 4},
	}
	out, err := hm.Call(in)
	require.NoError(t, err)

	want := composite.Tuple{
		composite.Tuple{1, 4},
		composite.Tuple{9, 16},
	}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestHyperMap_CurriedForm(t *testing.T) {
	hm := composite.NewHyperMap(nil)

	out, err := hm.Call(squareTable(t), composite.Tuple{2, composite.Tuple{3}})
	require.NoError(t, err)

	want := composite.Tuple{4, composite.Tuple{9}}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestHyperMap_MultipleSequences(t *testing.T) {
	add := composite.NewMultitypeFunc("add")
	require.NoError(t, add.Register(func(args ...any) any {
		return args[0].(int) + args[1].(int)
	}, "Number", "Number"))

	hm := composite.NewHyperMap(add)
	out, err := hm.Call(
		composite.Tuple{composite.Tuple{1, 2}, 3},
		composite.Tuple{composite.Tuple{10, 20}, 30},
	)
	require.NoError(t, err)

	want := composite.Tuple{composite.Tuple{11, 22}, 33}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestHyperMap_LengthMismatch(t *testing.T) {
	add := composite.NewMultitypeFunc("add")
	require.NoError(t, add.Register(func(args ...any) any {
		return args[0].(int) + args[1].(int)
	}, "Number", "Number"))

	hm := composite.NewHyperMap(add)
	_, err := hm.Call(composite.Tuple{1, 2}, composite.Tuple{1})
	require.Error(t, err)

	var mismatch *composite.ShapeMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, 2, mismatch.Want)
	assert.Equal(t, 1, mismatch.Got)
}

func TestHyperMap_NestedLengthMismatch(t *testing.T) {
	add := composite.NewMultitypeFunc("add")
	require.NoError(t, add.Register(func(args ...any) any {
		return args[0].(int) + args[1].(int)
	}, "Number", "Number"))

	hm := composite.NewHyperMap(add)
	_, err := hm.Call(
		composite.Tuple{composite.Tuple{1, 2}},
		composite.Tuple{composite.Tuple{1}},
	)
	var mismatch *composite.ShapeMismatchError
	require.True(t, errors.As(err, &mismatch))
}

func TestHyperMap_PropagatesDispatchError(t *testing.T) {
	table := composite.NewMultitypeFunc("strict")
	require.NoError(t, table.Register(func(args ...any) any { return nil }, "Tensor"))
	require.NoError(t, table.Register(func(args ...any) any { return nil }, "Tuple"))

	hm := composite.NewHyperMap(table)
	_, err := hm.Call(composite.Tuple{1})

	var noMatch *composite.NoMatchingOverloadError
	require.True(t, errors.As(err, &noMatch))
}

func TestHyperMap_PlainFunctionHandler(t *testing.T) {
	hm := composite.NewHyperMap(nil)
	double := func(args ...any) any { return args[0].(int) * 2 }

	out, err := hm.Call(double, composite.Tuple{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, composite.Tuple{2, 4, 6}, out)
}

func TestMap_ShallowOnly(t *testing.T) {
	m := composite.NewMap(squareTable(t))

	out, err := m.Call(composite.Tuple{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, composite.Tuple{1, 4, 9}, out)
}

func TestMap_DoesNotRecurse(t *testing.T) {
	typeName := composite.NewMultitypeFunc("typename")
	require.NoError(t, typeName.Register(func(args ...any) any { return "tuple" }, "Tuple"))
	require.NoError(t, typeName.Register(func(args ...any) any { return "number" }, "Number"))

	m := composite.NewMap(typeName)
	out, err := m.Call(composite.Tuple{composite.Tuple{1, 2}, 3})
	require.NoError(t, err)

	// The nested tuple is handed to the handler whole.
	assert.Equal(t, composite.Tuple{"tuple", "number"}, out)
}

func TestMap_TwoSequences(t *testing.T) {
	add := composite.NewMultitypeFunc("add")
	require.NoError(t, add.Register(func(args ...any) any {
		return args[0].(int) + args[1].(int)
	}, "Number", "Number"))

	m := composite.NewMap(add)
	out, err := m.Call(composite.Tuple{1, 2}, composite.Tuple{10, 20})
	require.NoError(t, err)
	assert.Equal(t, composite.Tuple{11, 22}, out)
}

func TestMap_NonSequenceArgument(t *testing.T) {
	m := composite.NewMap(squareTable(t))
	_, err := m.Call(42)

	var invalid *composite.InvalidArgumentError
	require.True(t, errors.As(err, &invalid))
}

func TestHyperMap_CurriedWithoutOperation(t *testing.T) {
	hm := composite.NewHyperMap(nil)
	_, err := hm.Call()

	var invalid *composite.InvalidArgumentError
	require.True(t, errors.As(err, &invalid))
}
