package irio_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zerfoo/batchfuse/ir"
	"github.com/zerfoo/batchfuse/irio"
)

func buildConvGraph() *ir.Graph {
	g := ir.NewGraph()

	in := g.CreateTensor([]int{1, 4, 4, 4}, ir.Float32, ir.Input, nil, nil)

	params := &ir.Conv2DParams{
		KernelH: 3, KernelW: 3,
		StrideH: 1, StrideW: 1,
		DilationH: 1, DilationW: 1,
	}

	out := g.CreateTensor([]int{1, 2, 2, 4}, ir.Float32, ir.Output, nil, nil)
	_, _ = g.CreateOp(ir.Conv2D, 0, params, []*ir.Tensor{in}, []*ir.Tensor{out})

	return g
}

// TestToZMFFromZMFRoundTripsOperatorGraph covers the irio serialization
// boundary: a graph exported to ZMF and reloaded carries the same
// operator kinds, parameters and shapes.
func TestToZMFFromZMFRoundTripsOperatorGraph(t *testing.T) {
	src := buildConvGraph()

	model, err := irio.ToZMF(src)
	require.NoError(t, err)
	require.Equal(t, "1.0.0", model.ZmfVersion)
	require.Len(t, model.Graph.Nodes, 1)
	require.Equal(t, "CONV2D", model.Graph.Nodes[0].OpType)

	reloaded, err := irio.FromZMF(model)
	require.NoError(t, err)

	ops := reloaded.Operators()
	require.Len(t, ops, 1)
	require.Equal(t, ir.Conv2D, ops[0].Kind())

	params, ok := ops[0].Params().(*ir.Conv2DParams)
	require.True(t, ok, "expected *ir.Conv2DParams, got %T", ops[0].Params())
	require.Equal(t, 3, params.KernelH)
	require.Equal(t, 3, params.KernelW)
	require.Equal(t, 1, params.StrideH)
	require.Equal(t, 1, params.StrideW)

	reloadedIn := reloaded.Inputs()
	require.Len(t, reloadedIn, 1)
	require.Equal(t, []int{1, 4, 4, 4}, reloadedIn[0].Shape())

	reloadedOut := reloaded.Outputs()
	require.Len(t, reloadedOut, 1)
	require.Equal(t, []int{1, 2, 2, 4}, reloadedOut[0].Shape(),
		"Conv2D(3x3,stride1,pad0) over a 4-pixel axis yields a 2-pixel axis")
}

// TestToZMFRoundTripsConstantBytes covers that a Constant tensor's
// backing bytes survive the ZMF round trip unchanged.
func TestToZMFRoundTripsConstantBytes(t *testing.T) {
	g := ir.NewGraph()

	bias := g.CreateTensor([]int{1}, ir.Float32, ir.Constant, nil, []byte{1, 2, 3, 4})
	in := g.CreateTensor([]int{1, 2, 2, 4}, ir.Float32, ir.Input, nil, nil)
	out := g.CreateTensor([]int{1, 2, 2, 4}, ir.Float32, ir.Output, nil, nil)

	_, err := g.CreateOp(ir.Add, 0, nil, []*ir.Tensor{in, bias}, []*ir.Tensor{out})
	require.NoError(t, err)

	model, err := irio.ToZMF(g)
	require.NoError(t, err)
	require.Len(t, model.Graph.Parameters, 1)

	for _, p := range model.Graph.Parameters {
		require.Equal(t, []byte{1, 2, 3, 4}, p.Data)
	}

	reloaded, err := irio.FromZMF(model)
	require.NoError(t, err)

	consts := reloaded.Constants()
	require.Len(t, consts, 1)
	require.Equal(t, []byte{1, 2, 3, 4}, consts[0].Bytes())
}
