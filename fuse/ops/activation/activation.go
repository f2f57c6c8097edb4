// Package activation implements the fuse.Handler for pointwise
// activation operators (currently ir.Relu): shape, gap and tiling are
// all passthrough, since an activation never reads outside a single
// pixel.
package activation

import (
	"github.com/zerfoo/batchfuse/fuse"
	"github.com/zerfoo/batchfuse/fuse/ops/fuseutil"
	"github.com/zerfoo/batchfuse/ir"
)

// Handler implements fuse.Handler for ir.Relu.
type Handler struct{}

// Clone implements fuse.Handler.
func (Handler) Clone(op *ir.Operator, ctx *fuse.Context) ([]*ir.Tensor, error) {
	return fuseutil.CloneOp(ctx, op, op.Kind(), 0, op.Params())
}

// GapForward implements fuse.Handler.
func (Handler) GapForward(op *ir.Operator, ctx *fuse.Context) ([]*ir.Tensor, bool, error) {
	return fuseutil.PassthroughGapForward(ctx, op)
}

// GapBackward implements fuse.Handler. An activation never needs more
// context than it already has, so it never widens an input gap.
func (Handler) GapBackward(*ir.Operator, *fuse.Context) ([]*ir.Tensor, error) {
	return nil, nil
}

// Fuse implements fuse.Handler.
func (Handler) Fuse(op *ir.Operator, ctx *fuse.Context) error {
	shape, err := ctx.GapInferShape(op.Outputs()[0])
	if err != nil {
		return err
	}

	return fuseutil.FuseOp(ctx, op, op.Kind(), 0, op.Params(), [][]int{shape})
}
