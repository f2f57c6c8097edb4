package fuse

import "github.com/zerfoo/batchfuse/ir"

// fuseGraph drives the third and final phase: ctx.OutGraph is built by
// walking ctx.CloneGraph breadth-first from seed (the tensors the caller
// already placed directly into OutGraph and recorded in tensor_map),
// dispatching each ready, unvisited operator to its Handler.Fuse. An
// operator is marked visited the instant it is picked up, before Fuse
// runs, matching the original driver's ordering so a handler that fails
// partway through never leaves its operator eligible for reprocessing.
func fuseGraph(seed []*ir.Tensor, ctx *Context) error {
	return bfsDriver(
		seed,
		ctx.CloneGraph.Consumers,
		ctx.IsVisited,
		ctx.IsReadyForFuse,
		func(op *ir.Operator) error {
			ctx.MarkVisited(op)

			h, err := ctx.Registry.Lookup(op)
			if err != nil {
				return err
			}

			return h.Fuse(op, ctx)
		},
	)
}
