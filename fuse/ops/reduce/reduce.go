// Package reduce implements the fuse.Handler shared by every ir.Reduce
// sub-kind (MEAN/MAX/MIN/PROD/ANY/SUM): the reduction arithmetic itself
// is irrelevant to gap inference, only which axes it collapses matters,
// so one Handler instance is registered against every ir.ReduceKind.
//
// Reducing across a fused axis (W or H) requires first undoing the
// tile/gap layout: the fuse phase inserts an explicit Reshape2 back to
// the pre-fuse batched shape [C, W, H, N] ahead of the reduce operator,
// and the result is left in that batched form rather than re-fused,
// mirroring the original's space-to-batch boundary. Reducing without KeepDims is rejected in both
// cases: dropping an axis would shift the fused axes' positions out from
// under every axis-indexed map the rest of the pass relies on.
package reduce

import (
	"github.com/zerfoo/batchfuse/fuse"
	"github.com/zerfoo/batchfuse/fuse/ops/fuseutil"
	"github.com/zerfoo/batchfuse/ir"
)

// Handler implements fuse.Handler for every ir.ReduceKind.
type Handler struct{}

// Clone implements fuse.Handler.
func (Handler) Clone(op *ir.Operator, ctx *fuse.Context) ([]*ir.Tensor, error) {
	return fuseutil.CloneOp(ctx, op, ir.Reduce, op.ReduceKind(), op.Params())
}

func params(op *ir.Operator) (*ir.ReduceParams, error) {
	p, ok := op.Params().(*ir.ReduceParams)
	if !ok {
		return nil, fuse.OpErrorf(fuse.ShapeMismatch, op, "reduce operator missing ReduceParams")
	}

	return p, nil
}

func touchesFusedAxis(axes []int) bool {
	for _, a := range axes {
		if a == fuse.AxisW || a == fuse.AxisH {
			return true
		}
	}

	return false
}

// GapForward implements fuse.Handler.
func (Handler) GapForward(op *ir.Operator, ctx *fuse.Context) ([]*ir.Tensor, bool, error) {
	p, err := params(op)
	if err != nil {
		return nil, false, err
	}

	if !p.KeepDims {
		return nil, false, fuse.IllegalAxisTransformf(op, "reduce without keep_dims would shift the fused axes, axes=%v", p.Axes)
	}

	in := op.Inputs()[0]
	out := op.Outputs()[0]

	if touchesFusedAxis(p.Axes) {
		// Downstream of an unfuse, gap no longer applies: the output is a
		// plain batched tensor shaped like the pre-fuse input with the
		// reduced axes collapsed.
		preShape := in.Shape()

		outShape := make([]int, len(preShape))
		copy(outShape, preShape)

		for _, axis := range p.Axes {
			outShape[axis] = 1
		}

		if err := ctx.SetForwardGap(out, fuse.Gap{}, fuse.Gap{}); err != nil {
			return nil, false, err
		}

		ctx.SetGapInferShape(out, outShape)

		return []*ir.Tensor{out}, false, nil
	}

	w, h, err := ctx.ForwardGap(in)
	if err != nil {
		return nil, false, err
	}

	shape, err := ctx.GapInferShape(in)
	if err != nil {
		return nil, false, err
	}

	outShape := make([]int, len(shape))
	copy(outShape, shape)

	for _, axis := range p.Axes {
		outShape[axis] = 1
	}

	if err := ctx.SetForwardGap(out, w, h); err != nil {
		return nil, false, err
	}

	ctx.SetGapInferShape(out, outShape)

	return []*ir.Tensor{out}, false, nil
}

// GapBackward implements fuse.Handler. Whether or not the reduce touches
// a fused axis, it never asks an upstream producer for more gap: the
// fused-axis case is resolved by an unconditional unfuse at fuse time,
// not by widening context.
func (Handler) GapBackward(*ir.Operator, *fuse.Context) ([]*ir.Tensor, error) {
	return nil, nil
}

// Fuse implements fuse.Handler.
func (Handler) Fuse(op *ir.Operator, ctx *fuse.Context) error {
	p, err := params(op)
	if err != nil {
		return err
	}

	in := op.Inputs()[0]
	out := op.Outputs()[0]

	outShape, err := ctx.GapInferShape(out)
	if err != nil {
		return err
	}

	if !touchesFusedAxis(p.Axes) {
		return fuseutil.FuseOp(ctx, op, ir.Reduce, op.ReduceKind(), op.Params(), [][]int{outShape})
	}

	fusedIn, err := ctx.FusedTensor(in)
	if err != nil {
		return err
	}

	preShape := in.Shape()

	unfused := ctx.OutGraph.CreateTensor(preShape, fusedIn.DType(), ir.Transient, fusedIn.Quant(), nil)
	if _, err := ctx.OutGraph.CreateOp(ir.Reshape2, 0, &ir.ReshapeParams{Shape: preShape}, []*ir.Tensor{fusedIn}, []*ir.Tensor{unfused}); err != nil {
		return err
	}

	reduceOut := ctx.OutGraph.CreateTensor(outShape, fusedIn.DType(), out.Attribute(), out.Quant(), nil)
	if _, err := ctx.OutGraph.CreateOp(ir.Reduce, op.ReduceKind(), op.Params(), []*ir.Tensor{unfused}, []*ir.Tensor{reduceOut}); err != nil {
		return err
	}

	ctx.SetFusedTensor(out, reduceOut)

	return nil
}
