package fuse

import "github.com/zerfoo/batchfuse/ir"

// Registry maps operator kinds to the Handler that implements them.
// Registration is explicit and caller-driven (package fuse/ops's
// RegisterAll), never performed via package init() magic, so this core
// package never needs to import the leaf handler packages.
type Registry struct {
	byKind   map[ir.OpKind]Handler
	byReduce map[ir.ReduceKind]Handler
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byKind:   make(map[ir.OpKind]Handler),
		byReduce: make(map[ir.ReduceKind]Handler),
	}
}

// Register binds kind to h. Registering the same kind twice overwrites
// the previous binding, so callers can override a default registration
// in tests.
func (r *Registry) Register(kind ir.OpKind, h Handler) {
	r.byKind[kind] = h
}

// RegisterReduce binds a specific reduce kind to h. ir.Reduce dispatches
// through this nested table rather than byKind, so each reduce kind can
// be bound separately; fuse/ops.RegisterAll binds the same handler to
// every kind.
func (r *Registry) RegisterReduce(kind ir.ReduceKind, h Handler) {
	r.byReduce[kind] = h
}

// Lookup resolves the Handler for op's kind, following the nested Reduce
// table when op.Kind() == ir.Reduce.
func (r *Registry) Lookup(op *ir.Operator) (Handler, error) {
	if op.Kind() == ir.Reduce {
		h, ok := r.byReduce[op.ReduceKind()]
		if !ok {
			return nil, opDiagnostic(UnsupportedOp, op, "no handler registered for reduce kind %s", op.ReduceKind())
		}

		return h, nil
	}

	h, ok := r.byKind[op.Kind()]
	if !ok {
		return nil, opDiagnostic(UnsupportedOp, op, "no handler registered for operator kind %s", op.Kind())
	}

	return h, nil
}

// DefaultRegistry is populated by fuse/ops.RegisterAll at the call site;
// BatchFuse also accepts an explicit *Registry for tests that need a
// partial or stubbed set of handlers.
var DefaultRegistry = NewRegistry()
