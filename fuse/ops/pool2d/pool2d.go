// Package pool2d implements the fuse.Handler for ir.Pool2D, grounded on
// original_source/vsi_nn_op_lppool.c: pooling shares conv2d's context-
// window gap arithmetic with dilation fixed at 1 and no separate padding
// parameters.
package pool2d

import (
	"github.com/zerfoo/batchfuse/fuse"
	"github.com/zerfoo/batchfuse/fuse/ops/fuseutil"
	"github.com/zerfoo/batchfuse/ir"
)

// Handler implements fuse.Handler for ir.Pool2D.
type Handler struct{}

// Clone implements fuse.Handler.
func (Handler) Clone(op *ir.Operator, ctx *fuse.Context) ([]*ir.Tensor, error) {
	return fuseutil.CloneOp(ctx, op, ir.Pool2D, 0, op.Params())
}

func params(op *ir.Operator) (*ir.Pool2DParams, error) {
	p, ok := op.Params().(*ir.Pool2DParams)
	if !ok {
		return nil, fuse.OpErrorf(fuse.ShapeMismatch, op, "pool2d operator missing Pool2DParams")
	}

	return p, nil
}

func axisForward(inGap fuse.Gap, inExtent, kernel, stride int) (outGap fuse.Gap, outExtent int, needed fuse.Gap) {
	context := fuseutil.OwnContext(kernel, 1, 0, 0)

	if inGap.Left < context.Left {
		needed.Left = context.Left - inGap.Left
	}

	if inGap.Right < context.Right {
		needed.Right = context.Right - inGap.Right
	}

	usedLo := inGap.Left
	if usedLo > context.Left {
		usedLo = context.Left
	}

	usedHi := inGap.Right
	if usedHi > context.Right {
		usedHi = context.Right
	}

	outGap = fuse.Gap{Left: usedLo / stride, Right: usedHi / stride}
	outExtent = (inExtent-kernel)/stride + 1

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

	outW, extW, needW := axisForward(inW, inShape[fuse.AxisW], p.KernelW, p.StrideW)
	outH, extH, needH := axisForward(inH, inShape[fuse.AxisH], p.KernelH, p.StrideH)

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

// GapBackward implements fuse.Handler. See conv2d's GapBackward: the same
// two-source widening (pool's own fixed context requirement, plus whatever
// a downstream consumer has since demanded of pool's own output) applies
// here with dilation fixed at 1 and no padding.
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

	wantW := fuseutil.OwnContext(p.KernelW, 1, 0, 0)
	wantH := fuseutil.OwnContext(p.KernelH, 1, 0, 0)

	if outW, outH, err := ctx.ForwardGap(op.Outputs()[0]); err == nil {
		wantW = fuseutil.WiderGap(wantW, fuseutil.InverseContext(outW, p.StrideW, p.KernelW, 1, 0, 0))
		wantH = fuseutil.WiderGap(wantH, fuseutil.InverseContext(outH, p.StrideH, p.KernelH, 1, 0, 0))
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

	return fuseutil.FuseOp(ctx, op, ir.Pool2D, 0, op.Params(), [][]int{shape})
}
