package ir

import "fmt"

// OpKind is the closed set of operator kinds the batch-fuse pass
// understands, modeled as a tagged union so a switch over every kind can
// be checked for exhaustiveness.
type OpKind int

// Supported operator kinds.
const (
	Conv2D OpKind = iota
	Pad
	Relu
	Add
	Pool2D
	Reduce
	Transpose
	Reshape
	Reshape2
	Concat
)

func (k OpKind) String() string {
	switch k {
	case Conv2D:
		return "CONV2D"
	case Pad:
		return "PAD"
	case Relu:
		return "RELU"
	case Add:
		return "ADD"
	case Pool2D:
		return "POOL2D"
	case Reduce:
		return "REDUCE"
	case Transpose:
		return "TRANSPOSE"
	case Reshape:
		return "RESHAPE"
	case Reshape2:
		return "RESHAPE2"
	case Concat:
		return "CONCAT"
	default:
		return fmt.Sprintf("OpKind(%d)", int(k))
	}
}

// ReduceKind is the sub-kind selector for OpKind Reduce.
type ReduceKind int

// Supported reduction sub-kinds.
const (
	ReduceMean ReduceKind = iota
	ReduceMax
	ReduceMin
	ReduceProd
	ReduceAny
	ReduceSum
)

func (k ReduceKind) String() string {
	switch k {
	case ReduceMean:
		return "MEAN"
	case ReduceMax:
		return "MAX"
	case ReduceMin:
		return "MIN"
	case ReduceProd:
		return "PROD"
	case ReduceAny:
		return "ANY"
	case ReduceSum:
		return "SUM"
	default:
		return fmt.Sprintf("ReduceKind(%d)", int(k))
	}
}

// Conv2DParams is the parameter record for OpKind Conv2D.
type Conv2DParams struct {
	KernelH, KernelW     int
	StrideH, StrideW     int
	DilationH, DilationW int
	PadTop, PadBottom    int
	PadLeft, PadRight    int
}

// PadParams is the parameter record for OpKind Pad. Before/After are
// indexed the same as Tensor.Shape().
type PadParams struct {
	Before, After []int
}

// Pool2DParams is the parameter record for OpKind Pool2D.
type Pool2DParams struct {
	KernelH, KernelW int
	StrideH, StrideW int
}

// ReduceParams is the parameter record for OpKind Reduce.
type ReduceParams struct {
	Axes     []int
	KeepDims bool
}

// TransposeParams is the parameter record for OpKind Transpose.
type TransposeParams struct {
	Perm []int
}

// ReshapeParams is the parameter record for OpKind Reshape and Reshape2.
type ReshapeParams struct {
	Shape []int
}

// ConcatParams is the parameter record for OpKind Concat.
type ConcatParams struct {
	Axis int
}

// Operator is an IR node with a kind tag, ordered inputs/outputs, and a
// per-kind parameter record.
type Operator struct {
	id         int
	kind       OpKind
	reduceKind ReduceKind
	params     any
	inputs     []*Tensor
	outputs    []*Tensor
}

// ID returns the operator's stable identifier, unique within its owning
// Graph.
func (o *Operator) ID() int { return o.id }

// Kind returns the operator's kind tag.
func (o *Operator) Kind() OpKind { return o.kind }

// ReduceKind returns the reduction sub-kind. It is only meaningful when
// Kind() == Reduce.
func (o *Operator) ReduceKind() ReduceKind { return o.reduceKind }

// Params returns the operator's per-kind parameter record. Callers type-
// assert to the concrete *Params type matching Kind().
func (o *Operator) Params() any { return o.params }

// Inputs returns the operator's ordered input tensors.
func (o *Operator) Inputs() []*Tensor {
	cp := make([]*Tensor, len(o.inputs))
	copy(cp, o.inputs)

	return cp
}

// Outputs returns the operator's ordered output tensors.
func (o *Operator) Outputs() []*Tensor {
	cp := make([]*Tensor, len(o.outputs))
	copy(cp, o.outputs)

	return cp
}

func (o *Operator) String() string {
	return fmt.Sprintf("Operator(id=%d, kind=%s)", o.id, o.kind)
}
