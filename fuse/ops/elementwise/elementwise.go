// Package elementwise implements the fuse.Handler for pointwise binary
// operators (currently ir.Add). Like activations these are shape/gap
// passthrough, but additionally require both inputs to already carry
// matching gaps before they can be fused.
package elementwise

import (
	"github.com/zerfoo/batchfuse/fuse"
	"github.com/zerfoo/batchfuse/fuse/ops/fuseutil"
	"github.com/zerfoo/batchfuse/ir"
)

// Handler implements fuse.Handler for ir.Add.
type Handler struct{}

// Clone implements fuse.Handler.
func (Handler) Clone(op *ir.Operator, ctx *fuse.Context) ([]*ir.Tensor, error) {
	return fuseutil.CloneOp(ctx, op, op.Kind(), 0, op.Params())
}

// GapForward implements fuse.Handler.
func (Handler) GapForward(op *ir.Operator, ctx *fuse.Context) ([]*ir.Tensor, bool, error) {
	return fuseutil.PassthroughGapForward(ctx, op)
}

// GapBackward implements fuse.Handler. A mismatched-gap input pair is a
// ShapeMismatch raised eagerly by GapForward, not something backward
// widening can reconcile, so this is always a no-op.
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
