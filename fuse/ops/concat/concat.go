// Package concat implements the fuse.Handler for ir.Concat. Concatenating
// along a fused axis (W or H) is rejected: the inputs' tile/gap layouts
// would need to be interleaved rather than simply stacked, which this
// pass does not implement. Concatenation along
// any other axis is gap passthrough, same as the pointwise operators,
// but additionally requires every input to already carry the same gap.
package concat

import (
	"github.com/zerfoo/batchfuse/fuse"
	"github.com/zerfoo/batchfuse/fuse/ops/fuseutil"
	"github.com/zerfoo/batchfuse/ir"
)

// Handler implements fuse.Handler for ir.Concat.
type Handler struct{}

// Clone implements fuse.Handler.
func (Handler) Clone(op *ir.Operator, ctx *fuse.Context) ([]*ir.Tensor, error) {
	return fuseutil.CloneOp(ctx, op, ir.Concat, 0, op.Params())
}

func params(op *ir.Operator) (*ir.ConcatParams, error) {
	p, ok := op.Params().(*ir.ConcatParams)
	if !ok {
		return nil, fuse.OpErrorf(fuse.ShapeMismatch, op, "concat operator missing ConcatParams")
	}

	return p, nil
}

// GapForward implements fuse.Handler.
func (Handler) GapForward(op *ir.Operator, ctx *fuse.Context) ([]*ir.Tensor, bool, error) {
	p, err := params(op)
	if err != nil {
		return nil, false, err
	}

	if p.Axis == fuse.AxisW || p.Axis == fuse.AxisH {
		return nil, false, fuse.IllegalAxisTransformf(op, "concat along a fused axis (%d) is not supported", p.Axis)
	}

	ins := op.Inputs()

	w, h, err := ctx.ForwardGap(ins[0])
	if err != nil {
		return nil, false, err
	}

	shape, err := ctx.GapInferShape(ins[0])
	if err != nil {
		return nil, false, err
	}

	outShape := make([]int, len(shape))
	copy(outShape, shape)

	for _, t := range ins[1:] {
		ow, oh, err := ctx.ForwardGap(t)
		if err != nil {
			return nil, false, err
		}

		if ow != w || oh != h {
			return nil, false, fuse.ShapeMismatchf(op, "concat inputs carry mismatched gaps: %+v/%+v vs %+v/%+v", w, h, ow, oh)
		}

		s, err := ctx.GapInferShape(t)
		if err != nil {
			return nil, false, err
		}

		outShape[p.Axis] += s[p.Axis]
	}

	out := op.Outputs()[0]

	if err := ctx.SetForwardGap(out, w, h); err != nil {
		return nil, false, err
	}

	ctx.SetGapInferShape(out, outShape)

	return []*ir.Tensor{out}, false, nil
}

// GapBackward implements fuse.Handler. A mismatched-gap input set is a
// ShapeMismatch raised eagerly by GapForward, not something backward
// widening can reconcile, so this is always a no-op.
func (Handler) GapBackward(*ir.Operator, *fuse.Context) ([]*ir.Tensor, error) {
	return nil, nil
}

// Fuse implements fuse.Handler.
func (Handler) Fuse(op *ir.Operator, ctx *fuse.Context) error {
	out := op.Outputs()[0]

	shape, err := ctx.GapInferShape(out)
	if err != nil {
		return err
	}

	return fuseutil.FuseOp(ctx, op, ir.Concat, 0, op.Params(), [][]int{shape})
}
