package fuse

import "github.com/zerfoo/batchfuse/ir"

// BatchFuse rewrites src so that its fake batch dimension (size
// fakeBatch, which must be a perfect square) is folded into the spatial
// W/H dimensions of every feature-map tensor, via gap-separated tiling.
// Constant tensors (operator parameters such as conv weights) carry no
// batch axis and pass through unchanged. It returns the rewritten graph
// and an io_map recording, for every tensor in src.Inputs() ∪
// src.Outputs(), its counterpart in the returned graph.
//
// BatchFuse is transactional at this boundary: any Diagnostic means no
// partially built graph is returned. Before returning an error it reports
// it through the configured Logger at error level.
func BatchFuse(src *ir.Graph, fakeBatch uint32, opts ...Option) (_ *ir.Graph, _ map[*ir.Tensor]*ir.Tensor, err error) {
	cfg := defaultOptions()
	for _, o := range opts {
		o(&cfg)
	}

	defer func() {
		if err != nil && cfg.logger != nil {
			cfg.logger.Errorf("%v", err)
		}
	}()

	ctx, err := NewContext(cfg.logger, cfg.registry, fakeBatch)
	if err != nil {
		return nil, nil, err
	}

	ctx.SetGapTracer(cfg.tracer)

	if fakeBatch == 1 {
		return identityFuse(src)
	}

	if err := cloneGraph(src, ctx); err != nil {
		return nil, nil, err
	}

	if err := gapInfer(ctx); err != nil {
		return nil, nil, err
	}

	ctx.OutGraph = ir.NewGraph()

	var seed []*ir.Tensor

	for _, t := range ctx.CloneGraph.Inputs() {
		shape, err := ctx.GapInferShape(t)
		if err != nil {
			return nil, nil, err
		}

		ft := ctx.OutGraph.CreateTensor(shape, t.DType(), ir.Input, t.Quant(), nil)
		ctx.SetFusedTensor(t, ft)
		seed = append(seed, t)
	}

	for _, t := range ctx.CloneGraph.Constants() {
		ft := ctx.OutGraph.CreateTensor(t.Shape(), t.DType(), ir.Constant, t.Quant(), t.Bytes())
		ctx.SetFusedTensor(t, ft)
		seed = append(seed, t)
	}

	if err := fuseGraph(seed, ctx); err != nil {
		return nil, nil, err
	}

	ioMap := make(map[*ir.Tensor]*ir.Tensor)

	for _, t := range src.Inputs() {
		fused, err := resolveIOTensor(ctx, t)
		if err != nil {
			return nil, nil, err
		}

		ioMap[t] = fused
	}

	for _, t := range src.Outputs() {
		fused, err := resolveIOTensor(ctx, t)
		if err != nil {
			return nil, nil, err
		}

		ioMap[t] = fused
	}

	return ctx.OutGraph, ioMap, nil
}

func resolveIOTensor(ctx *Context, src *ir.Tensor) (*ir.Tensor, error) {
	clone, err := ctx.CloneTensor(src)
	if err != nil {
		return nil, err
	}

	return ctx.FusedTensor(clone)
}

// identityFuse handles fakeBatch == 1: the pass is a structural no-op, so
// src is returned directly with an identity io_map.
func identityFuse(src *ir.Graph) (*ir.Graph, map[*ir.Tensor]*ir.Tensor, error) {
	ioMap := make(map[*ir.Tensor]*ir.Tensor)

	for _, t := range src.Inputs() {
		ioMap[t] = t
	}

	for _, t := range src.Outputs() {
		ioMap[t] = t
	}

	return src, ioMap, nil
}
