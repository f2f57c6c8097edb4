// Package ops aggregates every operator-kind handler package and wires
// them into a fuse.Registry. It is the only package allowed to import
// both fuse and every leaf handler package, keeping fuse itself free of
// any dependency on a specific operator kind; callers invoke RegisterAll
// explicitly rather than relying on package init().
package ops

import (
	"github.com/zerfoo/batchfuse/fuse"
	"github.com/zerfoo/batchfuse/fuse/ops/activation"
	"github.com/zerfoo/batchfuse/fuse/ops/concat"
	"github.com/zerfoo/batchfuse/fuse/ops/conv2d"
	"github.com/zerfoo/batchfuse/fuse/ops/elementwise"
	"github.com/zerfoo/batchfuse/fuse/ops/pad"
	"github.com/zerfoo/batchfuse/fuse/ops/pool2d"
	"github.com/zerfoo/batchfuse/fuse/ops/reduce"
	"github.com/zerfoo/batchfuse/fuse/ops/reshape"
	"github.com/zerfoo/batchfuse/fuse/ops/transpose"
	"github.com/zerfoo/batchfuse/ir"
)

// RegisterAll binds every supported ir.OpKind (and, for ir.Reduce, every
// ir.ReduceKind) to its handler in r.
func RegisterAll(r *fuse.Registry) {
	r.Register(ir.Conv2D, conv2d.Handler{})
	r.Register(ir.Pad, pad.Handler{})
	r.Register(ir.Relu, activation.Handler{})
	r.Register(ir.Add, elementwise.Handler{})
	r.Register(ir.Pool2D, pool2d.Handler{})
	r.Register(ir.Transpose, transpose.Handler{})
	r.Register(ir.Reshape, reshape.Handler{})
	r.Register(ir.Reshape2, reshape.Handler{})
	r.Register(ir.Concat, concat.Handler{})

	reduceHandler := reduce.Handler{}
	r.RegisterReduce(ir.ReduceMean, reduceHandler)
	r.RegisterReduce(ir.ReduceMax, reduceHandler)
	r.RegisterReduce(ir.ReduceMin, reduceHandler)
	r.RegisterReduce(ir.ReduceProd, reduceHandler)
	r.RegisterReduce(ir.ReduceAny, reduceHandler)
	r.RegisterReduce(ir.ReduceSum, reduceHandler)
}
