package irio

import (
	"fmt"

	"github.com/zerfoo/batchfuse/ir"
	"github.com/zerfoo/zmf"
)

// ZMF's Attribute oneof (string/int64/float32/bool) has no native
// repeated-int variant, so axis lists (Pad's Before/After, Reduce's
// Axes, Transpose's Perm) are round-tripped as comma-separated strings
// via attrIntList/setIntList.

func toOpType(kind ir.OpKind, reduceKind ir.ReduceKind) string {
	if kind == ir.Reduce {
		return "REDUCE_" + reduceKind.String()
	}

	return kind.String()
}

func fromOpType(opType string) (ir.OpKind, ir.ReduceKind, error) {
	switch opType {
	case "CONV2D":
		return ir.Conv2D, 0, nil
	case "PAD":
		return ir.Pad, 0, nil
	case "RELU":
		return ir.Relu, 0, nil
	case "ADD":
		return ir.Add, 0, nil
	case "POOL2D":
		return ir.Pool2D, 0, nil
	case "TRANSPOSE":
		return ir.Transpose, 0, nil
	case "RESHAPE":
		return ir.Reshape, 0, nil
	case "RESHAPE2":
		return ir.Reshape2, 0, nil
	case "CONCAT":
		return ir.Concat, 0, nil
	case "REDUCE_MEAN":
		return ir.Reduce, ir.ReduceMean, nil
	case "REDUCE_MAX":
		return ir.Reduce, ir.ReduceMax, nil
	case "REDUCE_MIN":
		return ir.Reduce, ir.ReduceMin, nil
	case "REDUCE_PROD":
		return ir.Reduce, ir.ReduceProd, nil
	case "REDUCE_ANY":
		return ir.Reduce, ir.ReduceAny, nil
	case "REDUCE_SUM":
		return ir.Reduce, ir.ReduceSum, nil
	default:
		return 0, 0, fmt.Errorf("unrecognized op_type %q", opType)
	}
}

func encodeParams(node *zmf.Node, kind ir.OpKind, params any) {
	switch kind {
	case ir.Conv2D:
		p := params.(*ir.Conv2DParams)
		setInt(node, "kernel_h", p.KernelH)
		setInt(node, "kernel_w", p.KernelW)
		setInt(node, "stride_h", p.StrideH)
		setInt(node, "stride_w", p.StrideW)
		setInt(node, "dilation_h", p.DilationH)
		setInt(node, "dilation_w", p.DilationW)
		setInt(node, "pad_top", p.PadTop)
		setInt(node, "pad_bottom", p.PadBottom)
		setInt(node, "pad_left", p.PadLeft)
		setInt(node, "pad_right", p.PadRight)
	case ir.Pool2D:
		p := params.(*ir.Pool2DParams)
		setInt(node, "kernel_h", p.KernelH)
		setInt(node, "kernel_w", p.KernelW)
		setInt(node, "stride_h", p.StrideH)
		setInt(node, "stride_w", p.StrideW)
	case ir.Pad:
		p := params.(*ir.PadParams)
		setIntList(node, "before", p.Before)
		setIntList(node, "after", p.After)
	case ir.Reduce:
		p := params.(*ir.ReduceParams)
		setIntList(node, "axes", p.Axes)
		setBool(node, "keep_dims", p.KeepDims)
	case ir.Transpose:
		p := params.(*ir.TransposeParams)
		setIntList(node, "perm", p.Perm)
	case ir.Reshape, ir.Reshape2:
		p := params.(*ir.ReshapeParams)
		setIntList(node, "shape", p.Shape)
	case ir.Concat:
		p := params.(*ir.ConcatParams)
		setInt(node, "axis", p.Axis)
	case ir.Relu, ir.Add:
		// no parameters
	}
}

// decodeParams reconstructs an operator's parameter record and infers its
// single output's shape and dtype from its already-resolved inputs.
// ins[0]'s dtype is always propagated; a node with no inputs (impossible
// for every kind this pass supports) would need an explicit dtype
// attribute instead.
func decodeParams(kind ir.OpKind, node *zmf.Node, ins []*ir.Tensor) (any, []int, ir.ElemType, error) {
	dtype := ins[0].DType()
	shape := ins[0].Shape()

	switch kind {
	case ir.Conv2D:
		kh, _ := attrInt(node, "kernel_h")
		kw, _ := attrInt(node, "kernel_w")
		sh, _ := attrInt(node, "stride_h")
		sw, _ := attrInt(node, "stride_w")
		dh, _ := attrInt(node, "dilation_h")
		dw, _ := attrInt(node, "dilation_w")
		pt, _ := attrInt(node, "pad_top")
		pb, _ := attrInt(node, "pad_bottom")
		pl, _ := attrInt(node, "pad_left")
		pr, _ := attrInt(node, "pad_right")

		if dh == 0 {
			dh = 1
		}

		if dw == 0 {
			dw = 1
		}

		outShape := append([]int(nil), shape...)
		outShape[1] = (shape[1]+pl+pr-((kw-1)*dw+1))/sw + 1
		outShape[2] = (shape[2]+pt+pb-((kh-1)*dh+1))/sh + 1

		return &ir.Conv2DParams{
			KernelH: kh, KernelW: kw,
			StrideH: sh, StrideW: sw,
			DilationH: dh, DilationW: dw,
			PadTop: pt, PadBottom: pb,
			PadLeft: pl, PadRight: pr,
		}, outShape, dtype, nil

	case ir.Pool2D:
		kh, _ := attrInt(node, "kernel_h")
		kw, _ := attrInt(node, "kernel_w")
		sh, _ := attrInt(node, "stride_h")
		sw, _ := attrInt(node, "stride_w")

		outShape := append([]int(nil), shape...)
		outShape[1] = (shape[1]-kw)/sw + 1
		outShape[2] = (shape[2]-kh)/sh + 1

		return &ir.Pool2DParams{KernelH: kh, KernelW: kw, StrideH: sh, StrideW: sw}, outShape, dtype, nil

	case ir.Pad:
		before, err := attrIntList(node, "before")
		if err != nil {
			return nil, nil, 0, err
		}

		after, err := attrIntList(node, "after")
		if err != nil {
			return nil, nil, 0, err
		}

		outShape := make([]int, len(shape))
		for i := range shape {
			outShape[i] = shape[i] + before[i] + after[i]
		}

		return &ir.PadParams{Before: before, After: after}, outShape, dtype, nil

	case ir.Reduce:
		axes, err := attrIntList(node, "axes")
		if err != nil {
			return nil, nil, 0, err
		}

		keepDims := attrBool(node, "keep_dims")

		outShape := append([]int(nil), shape...)

		for _, axis := range axes {
			outShape[axis] = 1
		}

		if !keepDims {
			compacted := outShape[:0]

			for i, s := range append([]int(nil), shape...) {
				if contains(axes, i) {
					continue
				}

				compacted = append(compacted, s)
			}

			outShape = compacted
		}

		return &ir.ReduceParams{Axes: axes, KeepDims: keepDims}, outShape, dtype, nil

	case ir.Transpose:
		perm, err := attrIntList(node, "perm")
		if err != nil {
			return nil, nil, 0, err
		}

		outShape := make([]int, len(perm))
		for i, src := range perm {
			outShape[i] = shape[src]
		}

		return &ir.TransposeParams{Perm: perm}, outShape, dtype, nil

	case ir.Reshape, ir.Reshape2:
		target, err := attrIntList(node, "shape")
		if err != nil {
			return nil, nil, 0, err
		}

		return &ir.ReshapeParams{Shape: target}, target, dtype, nil

	case ir.Concat:
		axis, _ := attrInt(node, "axis")

		outShape := append([]int(nil), ins[0].Shape()...)
		for _, t := range ins[1:] {
			outShape[axis] += t.Shape()[axis]
		}

		return &ir.ConcatParams{Axis: axis}, outShape, dtype, nil

	case ir.Relu, ir.Add:
		return nil, shape, dtype, nil

	default:
		return nil, nil, 0, fmt.Errorf("unsupported op kind %s", kind)
	}
}

func contains(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}

	return false
}

func fromZMFDType(d zmf.Tensor_DataType) (ir.ElemType, error) {
	switch d {
	case zmf.Tensor_FLOAT32:
		return ir.Float32, nil
	case zmf.Tensor_FLOAT64:
		return ir.Float64, nil
	case zmf.Tensor_FLOAT16:
		return ir.Float16, nil
	case zmf.Tensor_INT8:
		return ir.Int8, nil
	case zmf.Tensor_INT16:
		return ir.Int16, nil
	case zmf.Tensor_INT32:
		return ir.Int32, nil
	case zmf.Tensor_INT64:
		return ir.Int64, nil
	case zmf.Tensor_UINT8:
		return ir.UInt8, nil
	default:
		return 0, fmt.Errorf("unsupported ZMF dtype %s", d)
	}
}

func toZMFDType(t ir.ElemType) (zmf.Tensor_DataType, error) {
	switch t {
	case ir.Float32:
		return zmf.Tensor_FLOAT32, nil
	case ir.Float64:
		return zmf.Tensor_FLOAT64, nil
	case ir.Float16:
		return zmf.Tensor_FLOAT16, nil
	case ir.Int8:
		return zmf.Tensor_INT8, nil
	case ir.Int16:
		return zmf.Tensor_INT16, nil
	case ir.Int32:
		return zmf.Tensor_INT32, nil
	case ir.Int64:
		return zmf.Tensor_INT64, nil
	case ir.UInt8:
		return zmf.Tensor_UINT8, nil
	default:
		return 0, fmt.Errorf("ir dtype %s has no ZMF counterpart", t)
	}
}
