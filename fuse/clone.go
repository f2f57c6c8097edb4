package fuse

import "github.com/zerfoo/batchfuse/ir"

// bfsDriver runs a breadth-first, data-driven traversal from a seed set
// of already-resolved tensors: each time a tensor is resolved, its
// consumers are enqueued; a queued operator is processed once it is both
// unvisited and ready, and skipped (without being dropped permanently)
// otherwise, since some other seeding event will re-enqueue it once its
// remaining inputs resolve.
func bfsDriver(
	seed []*ir.Tensor,
	consumersOf func(t *ir.Tensor) []*ir.Operator,
	visited func(op *ir.Operator) bool,
	ready func(op *ir.Operator) bool,
	process func(op *ir.Operator) error,
) error {
	queued := make(map[*ir.Operator]bool)

	var queue []*ir.Operator

	enqueue := func(ts []*ir.Tensor) {
		for _, t := range ts {
			for _, op := range consumersOf(t) {
				if !queued[op] {
					queued[op] = true

					queue = append(queue, op)
				}
			}
		}
	}

	enqueue(seed)

	for len(queue) > 0 {
		op := queue[0]
		queue = queue[1:]
		queued[op] = false

		if visited(op) || !ready(op) {
			continue
		}

		if err := process(op); err != nil {
			return err
		}

		enqueue(op.Outputs())
	}

	return nil
}

// cloneGraph builds ctx.CloneGraph as a structural duplicate of src,
// seeded from src's inputs and constants. Constant tensor bytes are
// staged through Tensor.CopyOut per the fixed-size byte staging policy
// this pass uses throughout, rather than reinterpreting the backing
// array directly.
func cloneGraph(src *ir.Graph, ctx *Context) error {
	ctx.CloneGraph = ir.NewGraph()

	var seed []*ir.Tensor

	for _, t := range src.Inputs() {
		ct := ctx.CloneGraph.CreateTensor(t.Shape(), t.DType(), ir.Input, t.Quant(), nil)
		ctx.SetCloneTensor(t, ct)
		seed = append(seed, t)
	}

	for _, t := range src.Constants() {
		buf := make([]byte, t.ByteSize())
		if err := t.CopyOut(buf); err != nil {
			return tensorDiagnostic(ShapeMismatch, t, "staging constant bytes: %v", err)
		}

		ct := ctx.CloneGraph.CreateTensor(t.Shape(), t.DType(), ir.Constant, t.Quant(), buf)
		ctx.SetCloneTensor(t, ct)
		seed = append(seed, t)
	}

	err := bfsDriver(
		seed,
		src.Consumers,
		ctx.isCloneVisited,
		ctx.IsReadyForClone,
		func(op *ir.Operator) error {
			h, err := ctx.Registry.Lookup(op)
			if err != nil {
				return err
			}

			outs, err := h.Clone(op, ctx)
			if err != nil {
				return err
			}

			if len(outs) != len(op.Outputs()) {
				return opDiagnostic(ShapeMismatch, op, "handler returned %d clone outputs, want %d", len(outs), len(op.Outputs()))
			}

			for i, srcOut := range op.Outputs() {
				ctx.SetCloneTensor(srcOut, outs[i])
			}

			ctx.markCloneVisited(op)

			return nil
		},
	)
	if err != nil {
		return err
	}

	for _, t := range src.Outputs() {
		if _, err := ctx.CloneTensor(t); err != nil {
			return tensorDiagnostic(GraphStall, t, "graph output never resolved by the clone driver")
		}
	}

	ctx.SetMaxRevisits(len(ctx.CloneGraph.Operators()) + 1)

	return nil
}
