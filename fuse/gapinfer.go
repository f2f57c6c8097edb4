package fuse

import "github.com/zerfoo/batchfuse/ir"

// gapInfer runs the bidirectional fixed-point gap inference phase over
// ctx.CloneGraph. It ports the exact control flow of
// original_source/src/tim/fuse/batch_fuse.cc: a FIFO
// forward queue carries the steady-state sweep from inputs toward
// outputs; whenever a forward step needs more context than its inputs
// currently provide, a LIFO backward sub-loop walks upstream widening
// producer gaps until it either reaches a graph input or a producer
// reports nothing left to widen, at which point the sub-loop re-enqueues
// the operator that triggered it so its forward step is retried.
func gapInfer(ctx *Context) error {
	forward := newOpQueue()

	seed := func(t *ir.Tensor) {
		ctx.SetGapInferShape(t, t.Shape())

		if err := ctx.SetForwardGap(t, Gap{}, Gap{}); err != nil {
			// unreachable: the zero gap can never exceed a prior value.
			panic(err)
		}

		for _, op := range ctx.CloneGraph.Consumers(t) {
			forward.push(op)
		}
	}

	for _, t := range ctx.CloneGraph.Inputs() {
		seed(t)
	}

	for _, t := range ctx.CloneGraph.Constants() {
		seed(t)
	}

	for {
		op, ok := forward.pop()
		if !ok {
			break
		}

		if !ctx.OutputsUnresolved(op) || !ctx.IsReadyForGapInfer(op) {
			continue
		}

		h, err := ctx.Registry.Lookup(op)
		if err != nil {
			return err
		}

		outs, needBackward, err := h.GapForward(op, ctx)
		if err != nil {
			return err
		}

		// resume re-enqueues op itself, not its consumers: a backward sub-
		// loop only widens op's own inputs, so op's forward step must be
		// retried with that extra context before anything downstream of it
		// can proceed.
		resume := func() { forward.push(op) }

		if needBackward {
			if err := backwardSweep(op, ctx, resume); err != nil {
				return err
			}

			continue
		}

		for _, t := range outs {
			for _, consumer := range ctx.CloneGraph.Consumers(t) {
				forward.push(consumer)
			}
		}
	}

	for _, t := range ctx.CloneGraph.Outputs() {
		if _, err := ctx.GapInferShape(t); err != nil {
			return tensorDiagnostic(GraphStall, t, "graph output never reached by gap inference")
		}
	}

	return nil
}

// backwardSweep widens triggerOp's own inputs first (it is triggerOp that
// reported needBackward, so it is triggerOp's handler that knows how much
// more context it needs) and then keeps walking upstream in LIFO order,
// asking each further producer's handler to widen its own gap requirement
// in turn. The sub-loop terminates along a branch either when it reaches a
// tensor with no producer (a graph input) or when a producer reports no
// further former tensors to widen; both termination conditions call
// resume, matching the original's behavior of re-enqueuing redundantly
// rather than tracking which branch terminated first.
func backwardSweep(triggerOp *ir.Operator, ctx *Context, resume func()) error {
	h, err := ctx.Registry.Lookup(triggerOp)
	if err != nil {
		return err
	}

	former, err := h.GapBackward(triggerOp, ctx)
	if err != nil {
		return err
	}

	if len(former) == 0 {
		resume()

		return nil
	}

	stack := append([]*ir.Tensor(nil), former...)

	for len(stack) > 0 {
		t := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		producer, ok := ctx.CloneGraph.Producer(t)
		if !ok {
			resume()

			continue
		}

		ph, err := ctx.Registry.Lookup(producer)
		if err != nil {
			return err
		}

		pformer, err := ph.GapBackward(producer, ctx)
		if err != nil {
			return err
		}

		if len(pformer) == 0 {
			resume()

			continue
		}

		stack = append(stack, pformer...)
	}

	return nil
}

// opQueue is a FIFO queue of operators with push-time dedup: an operator
// already waiting in the queue is not added a second time, matching the
// bfsDriver queues used by the clone and fuse phases.
type opQueue struct {
	items  []*ir.Operator
	queued map[*ir.Operator]bool
}

func newOpQueue() *opQueue {
	return &opQueue{queued: make(map[*ir.Operator]bool)}
}

func (q *opQueue) push(op *ir.Operator) {
	if q.queued[op] {
		return
	}

	q.queued[op] = true
	q.items = append(q.items, op)
}

func (q *opQueue) pop() (*ir.Operator, bool) {
	if len(q.items) == 0 {
		return nil, false
	}

	op := q.items[0]
	q.items = q.items[1:]
	q.queued[op] = false

	return op, true
}
