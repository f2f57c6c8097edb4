// Package pad implements the fuse.Handler for ir.Pad. Padding along a
// fused axis is folded into the inter-tile gap instead of being
// materialized: it never needs more context than it already has, so it
// never triggers backward widening. Padding along any other axis (e.g.
// channel) passes through as an ordinary shape change and survives into
// the fused graph as a real Pad operator with those axes' amounts
// unchanged and the fused axes' amounts zeroed.
package pad

import (
	"github.com/zerfoo/batchfuse/fuse"
	"github.com/zerfoo/batchfuse/fuse/ops/fuseutil"
	"github.com/zerfoo/batchfuse/ir"
)

// Handler implements fuse.Handler for ir.Pad.
type Handler struct{}

// Clone implements fuse.Handler.
func (Handler) Clone(op *ir.Operator, ctx *fuse.Context) ([]*ir.Tensor, error) {
	return fuseutil.CloneOp(ctx, op, ir.Pad, 0, op.Params())
}

func params(op *ir.Operator) (*ir.PadParams, error) {
	p, ok := op.Params().(*ir.PadParams)
	if !ok {
		return nil, fuse.OpErrorf(fuse.ShapeMismatch, op, "pad operator missing PadParams")
	}

	return p, nil
}

// GapForward implements fuse.Handler.
func (Handler) GapForward(op *ir.Operator, ctx *fuse.Context) ([]*ir.Tensor, bool, error) {
	p, err := params(op)
	if err != nil {
		return nil, false, err
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

	if len(p.Before) != len(shape) || len(p.After) != len(shape) {
		return nil, false, fuse.ShapeMismatchf(op, "pad amounts have %d/%d axes, shape has %d", len(p.Before), len(p.After), len(shape))
	}

	outShape := make([]int, len(shape))
	copy(outShape, shape)

	for axis := range outShape {
		if axis == fuse.AxisW || axis == fuse.AxisH {
			continue
		}

		outShape[axis] += p.Before[axis] + p.After[axis]
	}

	outW := fuse.Gap{Left: w.Left + p.Before[fuse.AxisW], Right: w.Right + p.After[fuse.AxisW]}
	outH := fuse.Gap{Left: h.Left + p.Before[fuse.AxisH], Right: h.Right + p.After[fuse.AxisH]}

	out := op.Outputs()[0]

	if err := ctx.SetForwardGap(out, outW, outH); err != nil {
		return nil, false, err
	}

	ctx.SetGapInferShape(out, outShape)

	return []*ir.Tensor{out}, false, nil
}

// GapBackward implements fuse.Handler. Pad only ever absorbs context; it
// never asks an upstream producer for more.
func (Handler) GapBackward(*ir.Operator, *fuse.Context) ([]*ir.Tensor, error) {
	return nil, nil
}

// Fuse implements fuse.Handler.
func (Handler) Fuse(op *ir.Operator, ctx *fuse.Context) error {
	p, err := params(op)
	if err != nil {
		return err
	}

	out := op.Outputs()[0]

	shape, err := ctx.GapInferShape(out)
	if err != nil {
		return err
	}

	fusedBefore := make([]int, len(p.Before))
	copy(fusedBefore, p.Before)
	fusedAfter := make([]int, len(p.After))
	copy(fusedAfter, p.After)
	fusedBefore[fuse.AxisW], fusedAfter[fuse.AxisW] = 0, 0
	fusedBefore[fuse.AxisH], fusedAfter[fuse.AxisH] = 0, 0

	fusedParams := &ir.PadParams{Before: fusedBefore, After: fusedAfter}

	return fuseutil.FuseOp(ctx, op, ir.Pad, 0, fusedParams, [][]int{shape})
}
