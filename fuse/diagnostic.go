// Package fuse implements the batch-fuse compiler pass: it rewrites a
// graph authored for a fake batch of N independent samples into an
// equivalent graph in which the batch dimension is folded into the
// spatial dimensions of feature-map tensors, separated by inferred gap
// pixels.
package fuse

import (
	"fmt"

	"github.com/zerfoo/batchfuse/ir"
)

// ErrorKind classifies why the pass aborted.
type ErrorKind int

// Error kinds.
const (
	UnsupportedOp ErrorKind = iota
	IllegalAxisTransform
	ShapeMismatch
	NonSquareFakeBatch
	GraphStall
	MapMiss
)

func (k ErrorKind) String() string {
	switch k {
	case UnsupportedOp:
		return "UnsupportedOp"
	case IllegalAxisTransform:
		return "IllegalAxisTransform"
	case ShapeMismatch:
		return "ShapeMismatch"
	case NonSquareFakeBatch:
		return "NonSquareFakeBatch"
	case GraphStall:
		return "GraphStall"
	case MapMiss:
		return "MapMiss"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Diagnostic is the single structured error type BatchFuse ever returns.
// The pass is transactional at the API boundary: any Diagnostic means the
// partially constructed output and clone graphs were discarded.
type Diagnostic struct {
	Kind    ErrorKind
	Op      *ir.Operator
	Tensor  *ir.Tensor
	Message string
}

func (d *Diagnostic) Error() string {
	switch {
	case d.Op != nil:
		return fmt.Sprintf("batchfuse: %s: %s (operator %s)", d.Kind, d.Message, d.Op)
	case d.Tensor != nil:
		return fmt.Sprintf("batchfuse: %s: %s (tensor %s)", d.Kind, d.Message, d.Tensor)
	default:
		return fmt.Sprintf("batchfuse: %s: %s", d.Kind, d.Message)
	}
}

func newDiagnostic(kind ErrorKind, format string, args ...any) *Diagnostic {
	return &Diagnostic{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func opDiagnostic(kind ErrorKind, op *ir.Operator, format string, args ...any) *Diagnostic {
	return &Diagnostic{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

func tensorDiagnostic(kind ErrorKind, t *ir.Tensor, format string, args ...any) *Diagnostic {
	return &Diagnostic{Kind: kind, Tensor: t, Message: fmt.Sprintf(format, args...)}
}

// OpErrorf builds a Diagnostic anchored to op, for handler packages under
// fuse/ops that cannot construct a Diagnostic directly.
func OpErrorf(kind ErrorKind, op *ir.Operator, format string, args ...any) *Diagnostic {
	return opDiagnostic(kind, op, format, args...)
}

// TensorErrorf builds a Diagnostic anchored to t, for handler packages
// under fuse/ops that cannot construct a Diagnostic directly.
func TensorErrorf(kind ErrorKind, t *ir.Tensor, format string, args ...any) *Diagnostic {
	return tensorDiagnostic(kind, t, format, args...)
}

// ShapeMismatchf is a convenience wrapper around OpErrorf for the common
// ShapeMismatch case.
func ShapeMismatchf(op *ir.Operator, format string, args ...any) *Diagnostic {
	return opDiagnostic(ShapeMismatch, op, format, args...)
}

// IllegalAxisTransformf is a convenience wrapper around OpErrorf for the
// common IllegalAxisTransform case.
func IllegalAxisTransformf(op *ir.Operator, format string, args ...any) *Diagnostic {
	return opDiagnostic(IllegalAxisTransform, op, format, args...)
}

// MapMiss is an implementation bug: a lookup missed an invariant the
// driver should have guaranteed. It is always a hard error, matching the
// original's VSILOGE+assert pairing.
func mapMissf(format string, args ...any) *Diagnostic {
	return newDiagnostic(MapMiss, format, args...)
}
