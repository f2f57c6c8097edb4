// Package reshape implements the fuse.Handler shared by ir.Reshape and
// ir.Reshape2: the two kinds carry the identical ReshapeParams contract
// and differ only in how the original graph produced the target shape,
// which is irrelevant once the pass is working from the final shape. A
// reshape is legal only if it leaves the
// fused axes' pre-fuse extents untouched; anything else would require
// redistributing tile/gap data across element boundaries.
package reshape

import (
	"github.com/zerfoo/batchfuse/fuse"
	"github.com/zerfoo/batchfuse/fuse/ops/fuseutil"
	"github.com/zerfoo/batchfuse/ir"
)

// Handler implements fuse.Handler for ir.Reshape and ir.Reshape2.
type Handler struct{}

// Clone implements fuse.Handler.
func (h Handler) Clone(op *ir.Operator, ctx *fuse.Context) ([]*ir.Tensor, error) {
	return fuseutil.CloneOp(ctx, op, op.Kind(), 0, op.Params())
}

func params(op *ir.Operator) (*ir.ReshapeParams, error) {
	p, ok := op.Params().(*ir.ReshapeParams)
	if !ok {
		return nil, fuse.OpErrorf(fuse.ShapeMismatch, op, "reshape operator missing ReshapeParams")
	}

	return p, nil
}

// GapForward implements fuse.Handler.
func (h Handler) GapForward(op *ir.Operator, ctx *fuse.Context) ([]*ir.Tensor, bool, error) {
	p, err := params(op)
	if err != nil {
		return nil, false, err
	}

	in := op.Inputs()[0]
	preFuseShape := in.Shape()

	if len(p.Shape) != len(preFuseShape) || p.Shape[fuse.AxisW] != preFuseShape[fuse.AxisW] || p.Shape[fuse.AxisH] != preFuseShape[fuse.AxisH] {
		return nil, false, fuse.IllegalAxisTransformf(op, "reshape target %v changes the fused axes' pre-fuse extent %v", p.Shape, preFuseShape)
	}

	w, hgap, err := ctx.ForwardGap(in)
	if err != nil {
		return nil, false, err
	}

	curShape, err := ctx.GapInferShape(in)
	if err != nil {
		return nil, false, err
	}

	outShape := make([]int, len(p.Shape))
	copy(outShape, p.Shape)
	outShape[fuse.AxisW] = curShape[fuse.AxisW]
	outShape[fuse.AxisH] = curShape[fuse.AxisH]

	out := op.Outputs()[0]

	if err := ctx.SetForwardGap(out, w, hgap); err != nil {
		return nil, false, err
	}

	ctx.SetGapInferShape(out, outShape)

	return []*ir.Tensor{out}, false, nil
}

// GapBackward implements fuse.Handler. A legal reshape never touches the
// fused axes, so it never needs more context than it already has.
func (h Handler) GapBackward(*ir.Operator, *fuse.Context) ([]*ir.Tensor, error) {
	return nil, nil
}

// Fuse implements fuse.Handler.
func (h Handler) Fuse(op *ir.Operator, ctx *fuse.Context) error {
	out := op.Outputs()[0]

	shape, err := ctx.GapInferShape(out)
	if err != nil {
		return err
	}

	return fuseutil.FuseOp(ctx, op, op.Kind(), 0, op.Params(), [][]int{shape})
}
