// Package ir implements the bipartite tensor/operator intermediate
// representation the batch-fuse pass rewrites. It models only the IR
// surface the pass needs (shapes, element types, quantization, attributes,
// a closed operator-kind enum) and deliberately excludes kernels,
// execution, and serialization, which live in sibling packages or the
// surrounding host.
package ir

import "fmt"

// ElemType is the element data type of a Tensor. It covers the IEEE types
// plus the narrow dtypes (float16, bfloat16, float8), mirroring the
// numeric surface of github.com/zerfoo/float16 and github.com/zerfoo/float8.
// Of the narrow dtypes, irio maps only float16 to and from ZMF.
type ElemType int

// Supported element types.
const (
	Float32 ElemType = iota
	Float64
	Int8
	Int16
	Int32
	Int64
	UInt8
	Float16
	BFloat16
	Float8E4M3
	Float8E5M2
)

// ByteWidth returns the number of bytes a single element of this type
// occupies.
func (e ElemType) ByteWidth() int {
	switch e {
	case Float32, Int32:
		return 4
	case Float64, Int64:
		return 8
	case Int8, UInt8, Float8E4M3, Float8E5M2:
		return 1
	case Int16, Float16, BFloat16:
		return 2
	default:
		return 0
	}
}

// String implements fmt.Stringer.
func (e ElemType) String() string {
	switch e {
	case Float32:
		return "Float32"
	case Float64:
		return "Float64"
	case Int8:
		return "Int8"
	case Int16:
		return "Int16"
	case Int32:
		return "Int32"
	case Int64:
		return "Int64"
	case UInt8:
		return "UInt8"
	case Float16:
		return "Float16"
	case BFloat16:
		return "BFloat16"
	case Float8E4M3:
		return "Float8E4M3"
	case Float8E5M2:
		return "Float8E5M2"
	default:
		return fmt.Sprintf("ElemType(%d)", int(e))
	}
}

// QuantParam carries the affine quantization parameters attached to a
// Tensor. A nil *QuantParam means the tensor is not quantized.
type QuantParam struct {
	Scale     float64
	ZeroPoint int64
}

// Equal reports whether two quantization specs describe the same mapping.
// Two nil specs are equal; a nil and non-nil spec are not.
func (q *QuantParam) Equal(o *QuantParam) bool {
	if q == nil || o == nil {
		return q == o
	}

	return q.Scale == o.Scale && q.ZeroPoint == o.ZeroPoint
}
