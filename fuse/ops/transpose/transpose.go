// Package transpose implements the fuse.Handler for ir.Transpose. A
// permutation is legal only if it keeps the channel and batch axes fixed
// and permutes the two fused axes (W, H) only among themselves: moving
// either axis in or out of a fused position would require actually
// rearranging tile/gap data, which this pass does not implement.
package transpose

import (
	"github.com/zerfoo/batchfuse/fuse"
	"github.com/zerfoo/batchfuse/fuse/ops/fuseutil"
	"github.com/zerfoo/batchfuse/ir"
)

// Handler implements fuse.Handler for ir.Transpose.
type Handler struct{}

// Clone implements fuse.Handler.
func (Handler) Clone(op *ir.Operator, ctx *fuse.Context) ([]*ir.Tensor, error) {
	return fuseutil.CloneOp(ctx, op, ir.Transpose, 0, op.Params())
}

func params(op *ir.Operator) (*ir.TransposeParams, error) {
	p, ok := op.Params().(*ir.TransposeParams)
	if !ok {
		return nil, fuse.OpErrorf(fuse.ShapeMismatch, op, "transpose operator missing TransposeParams")
	}

	return p, nil
}

func swapsFusedAxesOnly(perm []int) (swapsWH bool, legal bool) {
	if len(perm) != 4 {
		return false, false
	}

	if perm[fuse.ChannelAxis] != fuse.ChannelAxis || perm[fuse.BatchAxis] != fuse.BatchAxis {
		return false, false
	}

	switch {
	case perm[fuse.AxisW] == fuse.AxisW && perm[fuse.AxisH] == fuse.AxisH:
		return false, true
	case perm[fuse.AxisW] == fuse.AxisH && perm[fuse.AxisH] == fuse.AxisW:
		return true, true
	default:
		return false, false
	}
}

// GapForward implements fuse.Handler.
func (Handler) GapForward(op *ir.Operator, ctx *fuse.Context) ([]*ir.Tensor, bool, error) {
	p, err := params(op)
	if err != nil {
		return nil, false, err
	}

	swapsWH, legal := swapsFusedAxesOnly(p.Perm)
	if !legal {
		return nil, false, fuse.IllegalAxisTransformf(op, "transpose permutation %v moves the channel/batch axis or a fused axis out of place", p.Perm)
	}

	in := op.Inputs()[0]

	w, h, err := ctx.ForwardGap(in)
	if err != nil {
		return nil, false, err
	}

	shape, err := ctx.GapInferShape(in)
	if err != nil {
		return nil, false, err
	}

	outShape := make([]int, len(shape))
	for i, src := range p.Perm {
		outShape[i] = shape[src]
	}

	outW, outH := w, h
	if swapsWH {
		outW, outH = h, w
	}

	out := op.Outputs()[0]

	if err := ctx.SetForwardGap(out, outW, outH); err != nil {
		return nil, false, err
	}

	ctx.SetGapInferShape(out, outShape)
	ctx.SetPermAxisMap(out, p.Perm)

	return []*ir.Tensor{out}, false, nil
}

// GapBackward implements fuse.Handler. A legal transpose only swaps the
// fused axes in place; it never needs more context than it already has.
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

	return fuseutil.FuseOp(ctx, op, ir.Transpose, 0, op.Params(), [][]int{shape})
}
