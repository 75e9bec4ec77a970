package execution_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keel-ml/keel/execution"
	"github.com/keel-ml/keel/graph"
	"github.com/keel-ml/keel/internal/backend/cpu"
	"github.com/keel-ml/keel/internal/tensor"
)

func mulGraph() *graph.Graph {
	return graph.New("mul", func(b tensor.Backend, args ...*tensor.RawTensor) *tensor.RawTensor {
		return b.Mul(args[0], args[1])
	})
}

func TestTraceExecutor_ForwardThenMaterialize(t *testing.T) {
	e := execution.NewTraceExecutor(cpu.New(), nil)
	g := mulGraph()
	x, y := tensor.Scalar(2), tensor.Scalar(3)
	args := []*tensor.RawTensor{x, y}
	req := &execution.GradientRequest{}

	require.False(t, e.HasRun("op1", g, args))
	require.NoError(t, e.RunForward("op1", g, args))
	assert.True(t, e.HasRun("op1", g, args))
	assert.True(t, e.GraphOpen(g, args))

	e.RequestGradient(g, req, args)
	res, err := e.Materialize(g, req, args, nil)
	require.NoError(t, err)
	require.NotNil(t, res.First())
	assert.InDelta(t, 3, res.First().Item(), 1e-6)

	e.Clear(g, args)
	assert.False(t, e.HasRun("op1", g, args))
	assert.False(t, e.GraphOpen(g, args))
}

func TestTraceExecutor_HasRunIsPerOperator(t *testing.T) {
	e := execution.NewTraceExecutor(cpu.New(), nil)
	g := mulGraph()
	args := []*tensor.RawTensor{tensor.Scalar(2), tensor.Scalar(3)}

	require.NoError(t, e.RunForward("op1", g, args))
	assert.True(t, e.HasRun("op1", g, args))
	assert.False(t, e.HasRun("op2", g, args))
	// The open run is visible independent of which operator started it.
	assert.True(t, e.GraphOpen(g, args))
}

func TestTraceExecutor_HasRunIsPerArguments(t *testing.T) {
	e := execution.NewTraceExecutor(cpu.New(), nil)
	g := mulGraph()
	args := []*tensor.RawTensor{tensor.Scalar(2), tensor.Scalar(3)}
	other := []*tensor.RawTensor{tensor.Scalar(2), tensor.Scalar(3)}

	require.NoError(t, e.RunForward("op1", g, args))
	// Recognition is by tensor identity, not value.
	assert.False(t, e.HasRun("op1", g, other))
}

func TestTraceExecutor_MaterializeWithoutForward(t *testing.T) {
	e := execution.NewTraceExecutor(cpu.New(), nil)
	g := mulGraph()
	args := []*tensor.RawTensor{tensor.Scalar(2), tensor.Scalar(3)}

	_, err := e.Materialize(g, &execution.GradientRequest{}, args, nil)
	require.Error(t, err)
}

func TestTraceExecutor_ExplicitSensitivity(t *testing.T) {
	e := execution.NewTraceExecutor(cpu.New(), nil)
	g := mulGraph()
	x, y := tensor.Scalar(2), tensor.Scalar(3)
	args := []*tensor.RawTensor{x, y}
	req := &execution.GradientRequest{SensParam: true}

	require.NoError(t, e.RunForward("op1", g, args))
	res, err := e.Materialize(g, req, args, tensor.Scalar(5))
	require.NoError(t, err)
	// Gradients scale linearly with the seed: 5 * dy/dx = 5 * 3.
	assert.InDelta(t, 15, res.First().Item(), 1e-6)
}

func TestGradResult_Unpack(t *testing.T) {
	x, y := tensor.Scalar(2), tensor.Scalar(3)
	w := graph.NewParameter("w", tensor.Scalar(4))
	weights := graph.NewParameterTuple(w)

	e := execution.NewTraceExecutor(cpu.New(), nil)
	g := graph.New("mulw", func(b tensor.Backend, args ...*tensor.RawTensor) *tensor.RawTensor {
		return b.Mul(b.Mul(args[0], args[1]), w.Tensor())
	}).WithParams(weights)
	args := []*tensor.RawTensor{x, y}

	req := &execution.GradientRequest{GetAll: true, GetByList: true, Weights: weights}
	require.NoError(t, e.RunForward("op1", g, args))
	res, err := e.Materialize(g, req, args, nil)
	require.NoError(t, err)

	pair, ok := res.Unpack().([2][]*tensor.RawTensor)
	require.True(t, ok, "both groups requested should unpack to a pair")
	require.Len(t, pair[0], 2)
	require.Len(t, pair[1], 1)
	// f = x*y*w: df/dx = y*w, df/dy = x*w, df/dw = x*y.
	assert.InDelta(t, 12, pair[0][0].Item(), 1e-6)
	assert.InDelta(t, 8, pair[0][1].Item(), 1e-6)
	assert.InDelta(t, 6, pair[1][0].Item(), 1e-6)

	// The parameter slot was assigned too.
	require.NotNil(t, w.Grad())
	assert.InDelta(t, 6, w.Grad().Item(), 1e-6)
}

func TestGradResult_ZerosForUnusedInput(t *testing.T) {
	e := execution.NewTraceExecutor(cpu.New(), nil)
	g := graph.New("first", func(b tensor.Backend, args ...*tensor.RawTensor) *tensor.RawTensor {
		return b.Mul(args[0], args[0])
	})
	x, y := tensor.Scalar(3), tensor.Scalar(7)
	args := []*tensor.RawTensor{x, y}
	req := &execution.GradientRequest{GetAll: true}

	require.NoError(t, e.RunForward("op1", g, args))
	res, err := e.Materialize(g, req, args, nil)
	require.NoError(t, err)

	require.Len(t, res.InputGrads, 2)
	assert.InDelta(t, 6, res.InputGrads[0].Item(), 1e-6)
	assert.InDelta(t, 0, res.InputGrads[1].Item(), 1e-6)
}
