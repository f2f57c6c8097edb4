// Package conv2d implements the fuse.Handler for ir.Conv2D, the
// canonical "context window" operator that motivates gap inference in
// the first place: a convolution reads pixels beyond its own output's
// footprint, so tiles must carry enough neighboring context, supplied
// either by the operator's own padding or by a gap borrowed from the
// inter-tile margin.
package conv2d

import (
	"github.com/zerfoo/batchfuse/fuse"
	"github.com/zerfoo/batchfuse/fuse/ops/fuseutil"
	"github.com/zerfoo/batchfuse/ir"
)

// Handler implements fuse.Handler for ir.Conv2D.
type Handler struct{}

// Clone implements fuse.Handler.
func (Handler) Clone(op *ir.Operator, ctx *fuse.Context) ([]*ir.Tensor, error) {
	return fuseutil.CloneOp(ctx, op, ir.Conv2D, 0, op.Params())
}

func params(op *ir.Operator) (*ir.Conv2DParams, error) {
	p, ok := op.Params().(*ir.Conv2DParams)
	if !ok {
		return nil, fuse.OpErrorf(fuse.ShapeMismatch, op, "conv2d operator missing Conv2DParams")
	}

	return p, nil
}

// axisForward computes the output gap and logical output extent for one
// fused axis, given the input's gap/extent and the op's parameters along
// that axis. needed is the context beyond the input's own gap and pad
// that conv still requires; a positive needed means GapBackward must ask
// upstream for more.
func axisForward(inGap fuse.Gap, inExtent, kernel, stride, dilation, padLo, padHi int) (outGap fuse.Gap, outExtent int, needed fuse.Gap) {
	rf := fuseutil.ReceptiveField(kernel, dilation)
	context := fuseutil.OwnContext(kernel, dilation, padLo, padHi)

	if inGap.Left < context.Left {
		needed.Left = context.Left - inGap.Left
	}

	if inGap.Right < context.Right {
		needed.Right = context.Right - inGap.Right
	}

	usedLo := inGap.Left + padLo
	if usedLo > rf-1 {
		usedLo = rf - 1
	}

	usedHi := inGap.Right + padHi
	if usedHi > rf-1 {
		usedHi = rf - 1
	}

	outGap = fuse.Gap{Left: usedLo / stride, Right: usedHi / stride}
	outExtent = (inExtent+padLo+padHi-rf)/stride + 1

	return outGap, outExtent, needed
}

// GapForward implements fuse.Handler.
func (Handler) GapForward(op *ir.Operator, ctx *fuse.Context) ([]*ir.Tensor, bool, error) {
	p, err := params(op)
	if err != nil {
		return nil, false, err
	}

	in := op.Inputs()[0]

	inW, inH, err := ctx.ForwardGap(in)
	if err != nil {
		return nil, false, err
	}

	inShape, err := ctx.GapInferShape(in)
	if err != nil {
		return nil, false, err
	}

	outW, extW, needW := axisForward(inW, inShape[fuse.AxisW], p.KernelW, p.StrideW, p.DilationW, p.PadLeft, p.PadRight)
	outH, extH, needH := axisForward(inH, inShape[fuse.AxisH], p.KernelH, p.StrideH, p.DilationH, p.PadTop, p.PadBottom)

	if needW != (fuse.Gap{}) || needH != (fuse.Gap{}) {
		return nil, true, nil
	}

	out := op.Outputs()[0]

	outShape := make([]int, len(inShape))
	copy(outShape, inShape)
	outShape[fuse.AxisW] = extW
	outShape[fuse.AxisH] = extH

	if err := ctx.SetForwardGap(out, outW, outH); err != nil {
		return nil, false, err
	}

	ctx.SetGapInferShape(out, outShape)
	ctx.SetProportion(out, [2]float64{fuseutil.AxisProportion(outW, extW), fuseutil.AxisProportion(outH, extH)})

	return []*ir.Tensor{out}, false, nil
}

// GapBackward implements fuse.Handler. It widens this conv's own input gap
// to at least two things: the context window conv always needs regardless
// of any consumer, and, if a downstream consumer has since pushed this
// conv's own output gap wider than what conv's last forward pass produced,
// whatever input gap is needed to reach that wider output (GapBackward is
// invoked both directly, as the operator that reported needBackward, and
// indirectly, as the producer of a tensor some further-downstream operator
// just widened).
func (Handler) GapBackward(op *ir.Operator, ctx *fuse.Context) ([]*ir.Tensor, error) {
	p, err := params(op)
	if err != nil {
		return nil, err
	}

	in := op.Inputs()[0]

	curW, curH, err := ctx.ForwardGap(in)
	if err != nil {
		return nil, err
	}

	wantW := fuseutil.OwnContext(p.KernelW, p.DilationW, p.PadLeft, p.PadRight)
	wantH := fuseutil.OwnContext(p.KernelH, p.DilationH, p.PadTop, p.PadBottom)

	if outW, outH, err := ctx.ForwardGap(op.Outputs()[0]); err == nil {
		wantW = fuseutil.WiderGap(wantW, fuseutil.InverseContext(outW, p.StrideW, p.KernelW, p.DilationW, p.PadLeft, p.PadRight))
		wantH = fuseutil.WiderGap(wantH, fuseutil.InverseContext(outH, p.StrideH, p.KernelH, p.DilationH, p.PadTop, p.PadBottom))
	}

	widenedW := fuseutil.WiderGap(curW, wantW)
	widenedH := fuseutil.WiderGap(curH, wantH)

	if widenedW == curW && widenedH == curH {
		return nil, nil
	}

	if err := ctx.SetForwardGap(in, widenedW, widenedH); err != nil {
		return nil, err
	}

	return []*ir.Tensor{in}, nil
}

// Fuse implements fuse.Handler.
func (Handler) Fuse(op *ir.Operator, ctx *fuse.Context) error {
	out := op.Outputs()[0]

	shape, err := ctx.GapInferShape(out)
	if err != nil {
		return err
	}

	return fuseutil.FuseOp(ctx, op, ir.Conv2D, 0, op.Params(), [][]int{shape})
}
