package fuse_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zerfoo/batchfuse/fuse"
	"github.com/zerfoo/batchfuse/fuse/ops"
	"github.com/zerfoo/batchfuse/ir"
)

func newRegistry() *fuse.Registry {
	r := fuse.NewRegistry()
	ops.RegisterAll(r)

	return r
}

// TestBatchFuseIdentityOnUnitBatch verifies fakeBatch == 1 returns src
// unchanged with an identity io_map.
func TestBatchFuseIdentityOnUnitBatch(t *testing.T) {
	src := ir.NewGraph()
	in := src.CreateTensor([]int{1, 4, 4, 1}, ir.Float32, ir.Input, nil, nil)
	out := src.CreateTensor([]int{1, 4, 4, 1}, ir.Float32, ir.Output, nil, nil)

	_, err := src.CreateOp(ir.Relu, 0, nil, []*ir.Tensor{in}, []*ir.Tensor{out})
	require.NoError(t, err)

	outGraph, ioMap, err := fuse.BatchFuse(src, 1, fuse.WithRegistry(newRegistry()), fuse.WithLogger(fuse.NopLogger{}))
	require.NoError(t, err)
	require.Same(t, src, outGraph, "BatchFuse(src, 1) should return src itself")
	require.Equal(t, in, ioMap[in])
	require.Equal(t, out, ioMap[out])
}

// TestBatchFuseReluPassthrough exercises the clone/gap-infer/fuse pipeline
// end to end on a single pointwise operator, where gap stays zero
// throughout: tiles are packed with no separating strip.
func TestBatchFuseReluPassthrough(t *testing.T) {
	src := ir.NewGraph()
	in := src.CreateTensor([]int{1, 2, 2, 4}, ir.Float32, ir.Input, nil, nil)
	out := src.CreateTensor([]int{1, 2, 2, 4}, ir.Float32, ir.Output, nil, nil)

	_, err := src.CreateOp(ir.Relu, 0, nil, []*ir.Tensor{in}, []*ir.Tensor{out})
	require.NoError(t, err)

	outGraph, ioMap, err := fuse.BatchFuse(src, 4, fuse.WithRegistry(newRegistry()), fuse.WithLogger(fuse.NopLogger{}))
	require.NoError(t, err)

	// Every src input/output must appear in the io_map.
	fusedIn, ok := ioMap[in]
	require.True(t, ok, "io_map missing src input")

	fusedOut, ok := ioMap[out]
	require.True(t, ok, "io_map missing src output")

	wantShape := []int{1, 4, 4, 1}
	require.Equal(t, wantShape, fusedIn.Shape())
	require.Equal(t, wantShape, fusedOut.Shape())

	gotOps := outGraph.Operators()
	require.Len(t, gotOps, 1)
	require.Equal(t, ir.Relu, gotOps[0].Kind())
}

// TestBatchFuseConv2DWidensInputGap exercises the bidirectional
// fixed-point: a lone Conv2D forces a backward sweep that widens its own
// input's gap beyond the zero it was seeded with.
func TestBatchFuseConv2DWidensInputGap(t *testing.T) {
	src := ir.NewGraph()
	in := src.CreateTensor([]int{1, 4, 4, 4}, ir.Float32, ir.Input, nil, nil)
	out := src.CreateTensor([]int{1, 2, 2, 4}, ir.Float32, ir.Output, nil, nil)

	params := &ir.Conv2DParams{KernelH: 3, KernelW: 3, StrideH: 1, StrideW: 1, DilationH: 1, DilationW: 1}

	_, err := src.CreateOp(ir.Conv2D, 0, params, []*ir.Tensor{in}, []*ir.Tensor{out})
	require.NoError(t, err)

	var trace []string

	outGraph, ioMap, err := fuse.BatchFuse(src, 4,
		fuse.WithRegistry(newRegistry()),
		fuse.WithLogger(fuse.NopLogger{}),
		fuse.WithGapTracer(func(tensorID int, opKind string, w, h fuse.Gap, revision int) {
			trace = append(trace, opKind)
		}),
	)
	require.NoError(t, err)
	require.NotEmpty(t, trace, "gap tracer should observe at least one commit")

	fusedIn := ioMap[in]
	fusedOut := ioMap[out]

	// The 3x3 receptive field forces the backward sweep to widen the
	// input's gap from (0,0) to (2,2) on each fused axis before the conv's
	// forward step can resolve, tiling k=2 copies of the 4-pixel sample
	// with a 2-pixel strip between them: 2*4 + 1*2 = 10.
	require.Equal(t, []int{1, 10, 10, 1}, fusedIn.Shape())

	// A 3x3/stride-1/pad-0 conv over a 10-pixel axis yields 10-3+1 = 8.
	require.Equal(t, []int{1, 8, 8, 1}, fusedOut.Shape())

	gotOps := outGraph.Operators()
	require.Len(t, gotOps, 1)
	require.Equal(t, ir.Conv2D, gotOps[0].Kind())
}

// TestBatchFuseNonSquareFakeBatchFails verifies a fake batch that is not
// a perfect square is rejected before any graph is touched.
func TestBatchFuseNonSquareFakeBatchFails(t *testing.T) {
	src := ir.NewGraph()

	_, _, err := fuse.BatchFuse(src, 3, fuse.WithRegistry(newRegistry()), fuse.WithLogger(fuse.NopLogger{}))
	require.Error(t, err)

	var diag *fuse.Diagnostic
	require.ErrorAs(t, err, &diag)
	require.Equal(t, fuse.NonSquareFakeBatch, diag.Kind)
}

// TestBatchFuseIllegalConcatOnFusedAxis verifies concatenating along a
// fused axis is rejected.
func TestBatchFuseIllegalConcatOnFusedAxis(t *testing.T) {
	src := ir.NewGraph()
	a := src.CreateTensor([]int{1, 2, 2, 4}, ir.Float32, ir.Input, nil, nil)
	b := src.CreateTensor([]int{1, 2, 2, 4}, ir.Float32, ir.Input, nil, nil)
	out := src.CreateTensor([]int{1, 4, 2, 4}, ir.Float32, ir.Output, nil, nil)

	params := &ir.ConcatParams{Axis: fuse.AxisW}

	_, err := src.CreateOp(ir.Concat, 0, params, []*ir.Tensor{a, b}, []*ir.Tensor{out})
	require.NoError(t, err)

	_, _, err = fuse.BatchFuse(src, 4, fuse.WithRegistry(newRegistry()), fuse.WithLogger(fuse.NopLogger{}))
	require.Error(t, err)

	var diag *fuse.Diagnostic
	require.ErrorAs(t, err, &diag)
	require.Equal(t, fuse.IllegalAxisTransform, diag.Kind)
}

// TestBatchFuseIllegalTransposeOfChannelAxis verifies swapping the
// channel axis with a fused axis is illegal.
func TestBatchFuseIllegalTransposeOfChannelAxis(t *testing.T) {
	src := ir.NewGraph()
	in := src.CreateTensor([]int{1, 2, 2, 4}, ir.Float32, ir.Input, nil, nil)
	out := src.CreateTensor([]int{2, 1, 2, 4}, ir.Float32, ir.Output, nil, nil)

	params := &ir.TransposeParams{Perm: []int{1, 0, 2, 3}}

	_, err := src.CreateOp(ir.Transpose, 0, params, []*ir.Tensor{in}, []*ir.Tensor{out})
	require.NoError(t, err)

	_, _, err = fuse.BatchFuse(src, 4, fuse.WithRegistry(newRegistry()), fuse.WithLogger(fuse.NopLogger{}))
	require.Error(t, err)

	var diag *fuse.Diagnostic
	require.ErrorAs(t, err, &diag)
	require.Equal(t, fuse.IllegalAxisTransform, diag.Kind)
}

// TestBatchFuseReduceOverFusedAxisInsertsUnfuseReshape verifies reducing
// over a fused axis must unfuse back to the pre-fuse [C, W, H, N] layout
// before the reduction runs.
func TestBatchFuseReduceOverFusedAxisInsertsUnfuseReshape(t *testing.T) {
	src := ir.NewGraph()
	in := src.CreateTensor([]int{1, 2, 2, 4}, ir.Float32, ir.Input, nil, nil)
	out := src.CreateTensor([]int{1, 1, 1, 4}, ir.Float32, ir.Output, nil, nil)

	params := &ir.ReduceParams{Axes: []int{fuse.AxisW, fuse.AxisH}, KeepDims: true}

	_, err := src.CreateOp(ir.Reduce, ir.ReduceMean, params, []*ir.Tensor{in}, []*ir.Tensor{out})
	require.NoError(t, err)

	outGraph, ioMap, err := fuse.BatchFuse(src, 4, fuse.WithRegistry(newRegistry()), fuse.WithLogger(fuse.NopLogger{}))
	require.NoError(t, err)

	emitted := outGraph.Operators()
	require.Len(t, emitted, 2, "expected an unfuse reshape + reduce")
	require.Equal(t, ir.Reshape2, emitted[0].Kind())
	require.Equal(t, []int{1, 2, 2, 4}, emitted[0].Outputs()[0].Shape(),
		"unfuse reshape target shape should be the pre-fuse [C, W, H, N] layout")

	require.Equal(t, ir.Reduce, emitted[1].Kind())
	require.Equal(t, ir.ReduceMean, emitted[1].ReduceKind())

	fusedOut := ioMap[out]
	require.Equal(t, []int{1, 1, 1, 4}, fusedOut.Shape())
}
