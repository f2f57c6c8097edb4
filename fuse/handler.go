package fuse

import "github.com/zerfoo/batchfuse/ir"

// Handler implements the per-operator-kind behavior of all three pass
// phases. Each ir.OpKind (and, for Reduce, each
// ir.ReduceKind) is backed by exactly one Handler, looked up through a
// Registry so the core package never imports the per-kind leaf packages
// (see package fuse/ops).
type Handler interface {
	// Clone creates this operator's counterpart in ctx.CloneGraph, wiring
	// it to the already-cloned inputs recorded in ctx's clone_tensor_map,
	// and returns the newly created clone output tensors.
	Clone(op *ir.Operator, ctx *Context) ([]*ir.Tensor, error)

	// GapForward infers each output's gap and gap_infer_shape from op's
	// already-resolved inputs. needBackward reports whether this operator
	// kind must also run a backward pass to propagate gap onto upstream
	// operators that produced cropped context.
	GapForward(op *ir.Operator, ctx *Context) (outputs []*ir.Tensor, needBackward bool, err error)

	// GapBackward widens op's own input gap requirements to accommodate a
	// downstream consumer's receptive field, and returns the input
	// tensors whose producers must now be revisited.
	GapBackward(op *ir.Operator, ctx *Context) (former []*ir.Tensor, err error)

	// Fuse builds this operator's final, tiled-and-gapped counterpart in
	// ctx.OutGraph, consuming the already-fused inputs recorded in ctx's
	// tensor_map.
	Fuse(op *ir.Operator, ctx *Context) error
}
