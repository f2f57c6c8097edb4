package fuse

import (
	"github.com/zerfoo/batchfuse/ir"
)

// Fixed axis policy: tensors are laid out [C, W, H, N].
const (
	ChannelAxis = 0
	AxisW       = 1
	AxisH       = 2
	BatchAxis   = 3
)

// FuseAxes lists the spatial axes the fake batch is tiled across, W then H.
var FuseAxes = [2]int{AxisW, AxisH}

// Gap is the pixel strip inserted on one side of a tile along a fused axis.
type Gap struct {
	Left, Right int
}

func (g Gap) grow(o Gap) Gap {
	return Gap{Left: max(g.Left, o.Left), Right: max(g.Right, o.Right)}
}

// axisGap holds one Gap per entry of FuseAxes, in the same order.
type axisGap [2]Gap

func (a axisGap) grow(o axisGap) (axisGap, bool) {
	merged := axisGap{a[0].grow(o[0]), a[1].grow(o[1])}

	return merged, merged != a
}

// Context holds the clone/gap-infer/fuse bookkeeping state for a single
// BatchFuse invocation. It is created per call and
// discarded on return; handlers borrow it by reference and retain no state
// between invocations.
type Context struct {
	Logger   Logger
	Registry *Registry

	FakeBatch uint32
	K         int // sqrt(FakeBatch)

	SrcGraph   *ir.Graph
	CloneGraph *ir.Graph
	OutGraph   *ir.Graph

	tensorMap      map[*ir.Tensor]*ir.Tensor // clone tensor -> fused tensor
	cloneTensorMap map[*ir.Tensor]*ir.Tensor // src tensor -> clone tensor
	gapInferShape  map[*ir.Tensor][]int      // clone tensor -> post-fuse shape
	forwardGap     map[*ir.Tensor]axisGap    // clone tensor -> gap
	proportion     map[*ir.Tensor][2]float64 // clone tensor -> per-fused-axis proportion
	permAxisMap    map[*ir.Tensor][]int      // clone tensor -> current axis permutation

	visited      map[*ir.Operator]bool // fuse phase only
	cloneVisited map[*ir.Operator]bool // clone phase only

	visitCount  map[*ir.Tensor]int // backward revisit counter, bounded by maxRevisits
	maxRevisits int

	tracer GapTracer
}

// NewContext validates fakeBatch and builds an empty Context. Non-square
// fakeBatch is rejected immediately. registry resolves
// each operator's Handler; pass nil to use DefaultRegistry.
func NewContext(logger Logger, registry *Registry, fakeBatch uint32) (*Context, error) {
	if logger == nil {
		logger = NopLogger{}
	}

	if registry == nil {
		registry = DefaultRegistry
	}

	if fakeBatch == 0 {
		return nil, newDiagnostic(NonSquareFakeBatch, "fake_batch must be >= 1, got 0")
	}

	k := isqrt(fakeBatch)
	if uint32(k*k) != fakeBatch {
		return nil, newDiagnostic(NonSquareFakeBatch, "fake_batch %d is not a perfect square", fakeBatch)
	}

	return &Context{
		Logger:         logger,
		Registry:       registry,
		FakeBatch:      fakeBatch,
		K:              k,
		tensorMap:      make(map[*ir.Tensor]*ir.Tensor),
		cloneTensorMap: make(map[*ir.Tensor]*ir.Tensor),
		gapInferShape:  make(map[*ir.Tensor][]int),
		forwardGap:     make(map[*ir.Tensor]axisGap),
		proportion:     make(map[*ir.Tensor][2]float64),
		permAxisMap:    make(map[*ir.Tensor][]int),
		visited:        make(map[*ir.Operator]bool),
		cloneVisited:   make(map[*ir.Operator]bool),
		visitCount:     make(map[*ir.Tensor]int),
		maxRevisits:    1,
	}, nil
}

func isqrt(n uint32) int {
	k := 0
	for (k+1)*(k+1) <= int(n) {
		k++
	}

	return k
}

// SetGapTracer installs the GapTracer every subsequent SetForwardGap call
// reports to. Passing nil (the default) disables tracing.
func (c *Context) SetGapTracer(t GapTracer) { c.tracer = t }

// SetMaxRevisits bounds the per-tensor backward-wave revisit counter;
// the clone driver sets this to the clone graph's operator
// count plus one once cloning completes, a safe upper bound on
// receptive-field depth.
func (c *Context) SetMaxRevisits(n int) {
	if n > c.maxRevisits {
		c.maxRevisits = n
	}
}

// --- readiness ---

func isReady(op *ir.Operator, present func(t *ir.Tensor) bool) bool {
	for _, t := range op.Inputs() {
		if t.IsConstant() || t.IsPlaceholder() {
			continue
		}

		if !present(t) {
			return false
		}
	}

	return true
}

// IsReadyForClone reports whether every non-constant, non-placeholder
// input of op already has a clone-graph counterpart.
func (c *Context) IsReadyForClone(op *ir.Operator) bool {
	return isReady(op, func(t *ir.Tensor) bool {
		_, ok := c.cloneTensorMap[t]

		return ok
	})
}

// IsReadyForGapInfer reports whether every non-constant, non-placeholder
// input of op already has an inferred gap shape.
func (c *Context) IsReadyForGapInfer(op *ir.Operator) bool {
	return isReady(op, func(t *ir.Tensor) bool {
		_, ok := c.gapInferShape[t]

		return ok
	})
}

// IsReadyForFuse reports whether every non-constant, non-placeholder input
// of op already has a fused-graph counterpart.
func (c *Context) IsReadyForFuse(op *ir.Operator) bool {
	return isReady(op, func(t *ir.Tensor) bool {
		_, ok := c.tensorMap[t]

		return ok
	})
}

// OutputsUnresolved reports whether none of op's outputs has a recorded
// gap-infer shape yet, gating the forward gap-inference step against
// reprocessing an already-resolved operator.
func (c *Context) OutputsUnresolved(op *ir.Operator) bool {
	for _, t := range op.Outputs() {
		if _, ok := c.gapInferShape[t]; ok {
			return false
		}
	}

	return true
}

// --- visited marking (fuse phase) ---

// MarkVisited marks op as processed by the fuse driver.
func (c *Context) MarkVisited(op *ir.Operator) {
	if c.visited[op] {
		c.Logger.Warnf("operator %s already marked visited", op)

		return
	}

	c.visited[op] = true
}

// IsVisited reports whether the fuse driver already processed op.
func (c *Context) IsVisited(op *ir.Operator) bool { return c.visited[op] }

// markCloneVisited and isCloneVisited gate the clone driver against
// reprocessing an operator once its output tensors have already been
// produced in the clone graph.
func (c *Context) markCloneVisited(op *ir.Operator) { c.cloneVisited[op] = true }
func (c *Context) isCloneVisited(op *ir.Operator) bool { return c.cloneVisited[op] }

// --- map accessors ---
// Lookup on an absent key is a programming error and
// returns a MapMiss Diagnostic rather than panicking, so the pass can
// surface a structured error at the API boundary.

// CloneTensor returns the clone-graph counterpart of a source tensor.
func (c *Context) CloneTensor(src *ir.Tensor) (*ir.Tensor, error) {
	t, ok := c.cloneTensorMap[src]
	if !ok {
		return nil, mapMissf("tensor %s not present in clone_tensor_map", src)
	}

	return t, nil
}

// SetCloneTensor records the clone-graph counterpart of a source tensor.
func (c *Context) SetCloneTensor(src, clone *ir.Tensor) {
	c.cloneTensorMap[src] = clone
}

// FusedTensor returns the fused-graph counterpart of a clone tensor.
func (c *Context) FusedTensor(clone *ir.Tensor) (*ir.Tensor, error) {
	t, ok := c.tensorMap[clone]
	if !ok {
		return nil, mapMissf("tensor %s not present in tensor_map", clone)
	}

	return t, nil
}

// SetFusedTensor records the fused-graph counterpart of a clone tensor.
func (c *Context) SetFusedTensor(clone, fused *ir.Tensor) {
	c.tensorMap[clone] = fused
}

// GapInferShape returns the post-fuse logical shape inferred for a clone
// tensor.
func (c *Context) GapInferShape(t *ir.Tensor) ([]int, error) {
	s, ok := c.gapInferShape[t]
	if !ok {
		return nil, mapMissf("tensor %s not present in gap_infer_shape", t)
	}

	cp := make([]int, len(s))
	copy(cp, s)

	return cp, nil
}

// SetGapInferShape records the post-fuse logical shape for a clone tensor.
func (c *Context) SetGapInferShape(t *ir.Tensor, shape []int) {
	cp := make([]int, len(shape))
	copy(cp, shape)
	c.gapInferShape[t] = cp
}

// ForwardGap returns the recorded gap for a clone tensor.
func (c *Context) ForwardGap(t *ir.Tensor) (Gap, Gap, error) {
	g, ok := c.forwardGap[t]
	if !ok {
		return Gap{}, Gap{}, mapMissf("tensor %s not present in forward_gap", t)
	}

	return g[0], g[1], nil
}

// SetForwardGap monotonically updates the recorded gap for a clone tensor:
// the merged value is never smaller than what was already recorded. It
// returns a GraphStall Diagnostic if the
// tensor's gap has been revised more times than MaxRevisits allows,
// guarding the bidirectional fixed point against pathological oscillation.
//
// A clone-graph Input tensor additionally has its gap_infer_shape retiled
// after every update (see retileInput): the graph's own input is the one
// tensor whose fused shape is a direct function of k, its per-sample
// shape, and its own gap, rather than something an upstream operator's
// Fuse already computed (the `[C, W·k+gx·(k−1), H·k+gy·(k−1),
// 1]` formula).
func (c *Context) SetForwardGap(t *ir.Tensor, w, h Gap) error {
	next := axisGap{w, h}

	old, existed := c.forwardGap[t]
	if !existed {
		c.forwardGap[t] = next
		c.retileInput(t)
		c.traceGap(t, next, 0)

		return nil
	}

	merged, grew := old.grow(next)
	c.forwardGap[t] = merged
	c.retileInput(t)

	if !grew {
		return nil
	}

	c.visitCount[t]++
	if c.visitCount[t] > c.maxRevisits {
		return tensorDiagnostic(GraphStall, t, "gap revised more than %d times, suspected cycle", c.maxRevisits)
	}

	c.Logger.Warnf("gap for tensor %s grew to %+v after %d revisions", t, merged, c.visitCount[t])
	c.traceGap(t, merged, c.visitCount[t])

	return nil
}

// traceGap reports a committed gap update to the installed GapTracer, if
// any. A tensor's producing operator may be unknown (a clone-graph Input
// has none), in which case the empty op kind is reported.
func (c *Context) traceGap(t *ir.Tensor, g axisGap, revision int) {
	if c.tracer == nil {
		return
	}

	kind := ""

	if c.CloneGraph != nil {
		if op, ok := c.CloneGraph.Producer(t); ok {
			kind = op.Kind().String()
		}
	}

	c.tracer(t.ID(), kind, g[0], g[1], revision)
}

// retileInput recomputes gap_infer_shape for a clone-graph Input tensor
// from its fixed per-sample shape, k, and its current forward_gap: tile
// k copies along each fused axis, separated by (k-1) gap strips as wide
// as the larger of the two one-sided gap requirements recorded for that
// axis (the single physical strip between two tiles must satisfy
// whichever neighbor asks for more). Every other tensor's gap_infer_shape
// is set directly by its producing operator's GapForward/Fuse and is left
// untouched here.
func (c *Context) retileInput(t *ir.Tensor) {
	if t.Attribute() != ir.Input {
		return
	}

	g := c.forwardGap[t]
	sample := t.Shape()

	tiled := make([]int, len(sample))
	copy(tiled, sample)

	gw := g[0].Left
	if g[0].Right > gw {
		gw = g[0].Right
	}

	gh := g[1].Left
	if g[1].Right > gh {
		gh = g[1].Right
	}

	tiled[AxisW] = c.K*sample[AxisW] + (c.K-1)*gw
	tiled[AxisH] = c.K*sample[AxisH] + (c.K-1)*gh
	tiled[BatchAxis] = 1

	c.gapInferShape[t] = tiled
}

// Proportion returns the recorded valid-extent ratio for a clone tensor
// along each fused axis.
func (c *Context) Proportion(t *ir.Tensor) ([2]float64, error) {
	p, ok := c.proportion[t]
	if !ok {
		return [2]float64{}, mapMissf("tensor %s not present in proportion map", t)
	}

	return p, nil
}

// SetProportion records the valid-extent ratio for a clone tensor along
// each fused axis.
func (c *Context) SetProportion(t *ir.Tensor, p [2]float64) {
	c.proportion[t] = p
}

// PermAxisMap returns the current axis permutation recorded for a clone
// tensor (nil if none was recorded).
func (c *Context) PermAxisMap(t *ir.Tensor) []int {
	p, ok := c.permAxisMap[t]
	if !ok {
		return nil
	}

	cp := make([]int, len(p))
	copy(cp, p)

	return cp
}

// SetPermAxisMap records the axis permutation for a clone tensor under a
// transpose.
func (c *Context) SetPermAxisMap(t *ir.Tensor, perm []int) {
	cp := make([]int, len(perm))
	copy(cp, perm)
	c.permAxisMap[t] = cp
}
