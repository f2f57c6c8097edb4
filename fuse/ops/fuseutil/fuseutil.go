// Package fuseutil holds behavior shared by the per-operator-kind handler
// packages under fuse/ops: cloning an operator structurally unchanged and
// the pointwise gap-passthrough rule most elementwise operators share.
// Each leaf package imports fuseutil and fuse (never each other), and
// fuse/ops.RegisterAll is the only thing that imports every leaf, keeping
// the core fuse package free of a dependency on any specific operator.
package fuseutil

import (
	"github.com/zerfoo/batchfuse/fuse"
	"github.com/zerfoo/batchfuse/ir"
	"github.com/zerfoo/batchfuse/tensor"
)

// CloneOp creates op's structural counterpart in ctx.CloneGraph: its
// inputs are resolved through ctx's clone_tensor_map and its outputs are
// freshly created clone tensors carrying the same shape, dtype,
// attribute and quantization as the originals.
func CloneOp(ctx *fuse.Context, op *ir.Operator, kind ir.OpKind, reduceKind ir.ReduceKind, params any) ([]*ir.Tensor, error) {
	ins := make([]*ir.Tensor, len(op.Inputs()))

	for i, t := range op.Inputs() {
		ct, err := ctx.CloneTensor(t)
		if err != nil {
			return nil, err
		}

		ins[i] = ct
	}

	outs := make([]*ir.Tensor, len(op.Outputs()))
	for i, t := range op.Outputs() {
		outs[i] = ctx.CloneGraph.CreateTensor(t.Shape(), t.DType(), t.Attribute(), t.Quant(), nil)
	}

	if _, err := ctx.CloneGraph.CreateOp(kind, reduceKind, params, ins, outs); err != nil {
		return nil, err
	}

	return outs, nil
}

// FuseOp mirrors CloneOp for the fuse phase: op's inputs are resolved
// through ctx's tensor_map (clone tensor -> fused tensor), one fresh
// output tensor per op output is created in ctx.OutGraph with the
// matching entry of outShapes, the operator is created and registered,
// and each of op's outputs is mapped to its fused counterpart via
// ctx.SetFusedTensor.
func FuseOp(ctx *fuse.Context, op *ir.Operator, kind ir.OpKind, reduceKind ir.ReduceKind, params any, outShapes [][]int) error {
	ins := make([]*ir.Tensor, len(op.Inputs()))

	for i, t := range op.Inputs() {
		ft, err := ctx.FusedTensor(t)
		if err != nil {
			return err
		}

		ins[i] = ft
	}

	srcOuts := op.Outputs()

	outs := make([]*ir.Tensor, len(srcOuts))
	for i, t := range srcOuts {
		outs[i] = ctx.OutGraph.CreateTensor(outShapes[i], t.DType(), t.Attribute(), t.Quant(), nil)
	}

	if _, err := ctx.OutGraph.CreateOp(kind, reduceKind, params, ins, outs); err != nil {
		return err
	}

	for i, t := range srcOuts {
		ctx.SetFusedTensor(t, outs[i])
	}

	return nil
}

// AxisProportion returns the ratio of valid-sample extent to gap+valid
// extent along one fused axis: the fraction
// of outExtent that is not consumed by the axis's own output gap. A
// zero-extent axis reports proportion 1 (no gap to account for).
func AxisProportion(gap fuse.Gap, outExtent int) float64 {
	if outExtent <= 0 {
		return 1
	}

	valid := outExtent - gap.Left - gap.Right
	if valid < 0 {
		valid = 0
	}

	return float64(valid) / float64(outExtent)
}

// ReceptiveField returns (kernel-1)*dilation+1, the number of input pixels
// along one axis a single output pixel of a context-window operator
// (Conv2D, Pool2D) depends on.
func ReceptiveField(kernel, dilation int) int { return (kernel-1)*dilation + 1 }

// WiderGap returns the elementwise max of two gaps.
func WiderGap(a, b fuse.Gap) fuse.Gap {
	w := a

	if b.Left > w.Left {
		w.Left = b.Left
	}

	if b.Right > w.Right {
		w.Right = b.Right
	}

	return w
}

// OwnContext returns the context window a context-window operator always
// requires on one axis of its input, regardless of any downstream demand:
// whatever its receptive field reaches beyond what its own padding already
// supplies.
func OwnContext(kernel, dilation, padLo, padHi int) fuse.Gap {
	rf := ReceptiveField(kernel, dilation)

	lo := rf - 1 - padLo
	if lo < 0 {
		lo = 0
	}

	hi := rf - 1 - padHi
	if hi < 0 {
		hi = 0
	}

	return fuse.Gap{Left: lo, Right: hi}
}

// InverseContext returns the input gap a context-window operator needs on
// one axis for its own forward step to produce at least outGap on its
// output, inverting outGap = min(inGap+pad, rf-1)/stride. The result is
// capped at OwnContext: the operator can never relay more input context
// than its own receptive field admits, no matter how wide its input gap
// grows, so a downstream demand beyond that cap is reported as the most
// this operator can ever supply rather than an ever-growing request.
func InverseContext(outGap fuse.Gap, stride, kernel, dilation, padLo, padHi int) fuse.Gap {
	own := OwnContext(kernel, dilation, padLo, padHi)

	lo := outGap.Left*stride - padLo
	if lo < 0 {
		lo = 0
	}

	if lo > own.Left {
		lo = own.Left
	}

	hi := outGap.Right*stride - padHi
	if hi < 0 {
		hi = 0
	}

	if hi > own.Right {
		hi = own.Right
	}

	return fuse.Gap{Left: lo, Right: hi}
}

// PassthroughGapForward implements the gap-inference forward step shared
// by strictly pointwise operators (activation, elementwise): every output
// inherits the (already merged, for multi-input ops) gap and
// gap_infer_shape of op's non-constant inputs unchanged, and no backward
// widening is ever required.
//
// A constant input (e.g. a bias broadcast on the channel axis) never carries a fused-axis gap of its own — it is
// seeded with gap (0,0) and its own small static shape at the start of
// gap inference — so it is exempted from the gap-agreement check and
// instead checked for broadcast compatibility against the canonical
// (first non-constant) input's shape via tensor.BroadcastShapes.
func PassthroughGapForward(ctx *fuse.Context, op *ir.Operator) ([]*ir.Tensor, bool, error) {
	ins := op.Inputs()

	canonical := ins[0]

	for _, t := range ins {
		if !t.IsConstant() {
			canonical = t

			break
		}
	}

	w, h, err := ctx.ForwardGap(canonical)
	if err != nil {
		return nil, false, err
	}

	shape, err := ctx.GapInferShape(canonical)
	if err != nil {
		return nil, false, err
	}

	for _, t := range ins {
		if t == canonical {
			continue
		}

		if t.IsConstant() {
			otherShape, err := ctx.GapInferShape(t)
			if err != nil {
				return nil, false, err
			}

			if _, _, _, err := tensor.BroadcastShapes(shape, otherShape); err != nil {
				return nil, false, fuse.ShapeMismatchf(op, "constant input shape %v is not broadcast-compatible with %v: %v", otherShape, shape, err)
			}

			continue
		}

		ow, oh, err := ctx.ForwardGap(t)
		if err != nil {
			return nil, false, err
		}

		if ow != w || oh != h {
			return nil, false, fuse.ShapeMismatchf(op, "inputs carry mismatched gaps: %+v/%+v vs %+v/%+v", w, h, ow, oh)
		}
	}

	outs := op.Outputs()
	for _, t := range outs {
		if err := ctx.SetForwardGap(t, w, h); err != nil {
			return nil, false, err
		}

		ctx.SetGapInferShape(t, shape)
	}

	return outs, false, nil
}
