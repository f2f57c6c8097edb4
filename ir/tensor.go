package ir

import (
	"fmt"

	"github.com/zerfoo/batchfuse/tensor"
)

// TensorAttribute classifies what role a Tensor plays in its owning Graph.
type TensorAttribute int

// Tensor attributes.
const (
	Transient TensorAttribute = iota
	Input
	Output
	Constant
)

func (a TensorAttribute) String() string {
	switch a {
	case Input:
		return "Input"
	case Output:
		return "Output"
	case Constant:
		return "Constant"
	default:
		return "Transient"
	}
}

// PlaceholderTensorID is the sentinel identifier used for tensors that do
// not participate in readiness checks: any tensor carrying this id is
// treated as a placeholder and ignored by the context's readiness
// predicates, mirroring the original implementation's untyped "-1"
// sentinel comparison.
const PlaceholderTensorID = -1

// Tensor is an IR-level value: a node in the bipartite tensor/operator
// graph. Constants additionally carry backing bytes; every other attribute
// leaves Bytes() nil.
type Tensor struct {
	id    int
	shape []int
	dtype ElemType
	quant *QuantParam
	attr  TensorAttribute
	bytes []byte
}

func newTensor(id int, shape []int, dtype ElemType, quant *QuantParam, attr TensorAttribute, bytes []byte) *Tensor {
	shapeCopy := make([]int, len(shape))
	copy(shapeCopy, shape)

	return &Tensor{
		id:    id,
		shape: shapeCopy,
		dtype: dtype,
		quant: quant,
		attr:  attr,
		bytes: bytes,
	}
}

// ID returns the tensor's stable identifier, unique within its owning
// Graph.
func (t *Tensor) ID() int { return t.id }

// Shape returns a copy of the tensor's shape.
func (t *Tensor) Shape() []int {
	shapeCopy := make([]int, len(t.shape))
	copy(shapeCopy, t.shape)

	return shapeCopy
}

// DType returns the tensor's element type.
func (t *Tensor) DType() ElemType { return t.dtype }

// Quant returns the tensor's quantization spec, or nil if unquantized.
func (t *Tensor) Quant() *QuantParam { return t.quant }

// Attribute returns the tensor's role (Input/Output/Constant/Transient).
func (t *Tensor) Attribute() TensorAttribute { return t.attr }

// IsConstant reports whether the tensor carries constant backing data.
func (t *Tensor) IsConstant() bool { return t.attr == Constant }

// IsPlaceholder reports whether the tensor is the readiness sentinel.
func (t *Tensor) IsPlaceholder() bool { return t.id == PlaceholderTensorID }

// ByteSize returns the number of bytes the tensor's data would occupy,
// matching the IR collaborator contract's Tensor.byte_size().
func (t *Tensor) ByteSize() int {
	return tensor.Product(t.shape) * t.dtype.ByteWidth()
}

// Bytes returns the tensor's backing bytes. Only Constant tensors carry
// data; all others return nil.
func (t *Tensor) Bytes() []byte { return t.bytes }

// CopyOut copies the tensor's backing bytes into buf, implementing the IR
// collaborator contract's Tensor.copy_out(buf). buf must be at least
// ByteSize() long; its lifetime is the caller's, per the fixed-size byte
// staging policy this pass uses throughout.
func (t *Tensor) CopyOut(buf []byte) error {
	want := t.ByteSize()
	if len(buf) < want {
		return fmt.Errorf("ir: staging buffer too small for tensor %d: need %d bytes, got %d", t.id, want, len(buf))
	}

	if t.bytes == nil {
		return fmt.Errorf("ir: tensor %d has no backing bytes to copy out", t.id)
	}

	copy(buf, t.bytes[:want])

	return nil
}

func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(id=%d, shape=%v, dtype=%s, attr=%s)", t.id, t.shape, t.dtype, t.attr)
}
