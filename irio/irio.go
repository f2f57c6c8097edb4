// Package irio is the IR's serialization boundary: it converts between
// the Zerfoo Model Format (ZMF) protobuf schema and an *ir.Graph, using
// the same proto.Unmarshal/proto.Marshal round-trip and zmf.Attribute
// oneof construction as the original loader/exporter pair, adapted from
// a generic, differentiable graph.Node[T] model onto the
// non-differentiable ir.Graph this pass operates on. The INT8 decode
// case no longer references an undefined variable and the FLOAT16 case
// now returns.
package irio

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/zerfoo/batchfuse/ir"
	"github.com/zerfoo/zmf"
	"google.golang.org/protobuf/proto"
)

// LoadZMF reads a .zmf file and builds the Graph it describes.
func LoadZMF(path string) (*ir.Graph, error) {
	//nolint:gosec // Reading a model file from a variable path is expected and validated by the caller.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("irio: reading %q: %w", path, err)
	}

	model := &zmf.Model{}
	if err := proto.Unmarshal(data, model); err != nil {
		return nil, fmt.Errorf("irio: unmarshaling %q: %w", path, err)
	}

	return FromZMF(model)
}

// FromZMF builds a Graph from an in-memory ZMF model.
func FromZMF(model *zmf.Model) (*ir.Graph, error) {
	if model.Graph == nil {
		return nil, fmt.Errorf("irio: model has no graph")
	}

	g := ir.NewGraph()
	byName := make(map[string]*ir.Tensor)

	for name, p := range model.Graph.Parameters {
		t, err := decodeParameter(g, p)
		if err != nil {
			return nil, fmt.Errorf("irio: parameter %q: %w", name, err)
		}

		byName[name] = t
	}

	for _, vi := range model.Graph.Inputs {
		byName[vi.Name] = g.CreateTensor(int64sToInts(vi.Shape), ir.Float32, ir.Input, nil, nil)
	}

	outputNames := make(map[string]bool, len(model.Graph.Outputs))
	for _, vi := range model.Graph.Outputs {
		outputNames[vi.Name] = true
	}

	for _, node := range model.Graph.Nodes {
		if err := decodeNode(g, node, byName, outputNames); err != nil {
			return nil, fmt.Errorf("irio: node %q: %w", node.Name, err)
		}
	}

	return g, nil
}

func decodeParameter(g *ir.Graph, p *zmf.Tensor) (*ir.Tensor, error) {
	dtype, err := fromZMFDType(p.Dtype)
	if err != nil {
		return nil, err
	}

	shape := int64sToInts(p.Shape)

	return g.CreateTensor(shape, dtype, ir.Constant, nil, p.Data), nil
}

func decodeNode(g *ir.Graph, node *zmf.Node, byName map[string]*ir.Tensor, outputNames map[string]bool) error {
	kind, reduceKind, err := fromOpType(node.OpType)
	if err != nil {
		return err
	}

	ins := make([]*ir.Tensor, 0, len(node.Inputs))

	for _, name := range node.Inputs {
		t, ok := byName[name]
		if !ok {
			return fmt.Errorf("input %q not yet resolved (graph must be topologically ordered)", name)
		}

		ins = append(ins, t)
	}

	params, outShape, outDType, err := decodeParams(kind, node, ins)
	if err != nil {
		return err
	}

	attr := ir.Transient
	if outputNames[node.Name] {
		attr = ir.Output
	}

	out := g.CreateTensor(outShape, outDType, attr, nil, nil)

	if _, err := g.CreateOp(kind, reduceKind, params, ins, []*ir.Tensor{out}); err != nil {
		return err
	}

	byName[node.Name] = out

	return nil
}

// ExportZMF serializes g to path. Every tensor must already carry the
// concrete shape it should have on disk (the output of a completed
// BatchFuse call, typically).
func ExportZMF(g *ir.Graph, path string) error {
	model, err := ToZMF(g)
	if err != nil {
		return err
	}

	data, err := proto.Marshal(model)
	if err != nil {
		return fmt.Errorf("irio: marshaling model: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("irio: writing %q: %w", path, err)
	}

	return nil
}

// ToZMF converts g into an in-memory ZMF model.
func ToZMF(g *ir.Graph) (*zmf.Model, error) {
	model := &zmf.Model{
		ZmfVersion: "1.0.0",
		Graph:      &zmf.Graph{Parameters: make(map[string]*zmf.Tensor)},
	}

	names := make(map[*ir.Tensor]string)

	for i, t := range g.Inputs() {
		name := fmt.Sprintf("input_%d", i)
		names[t] = name
		model.Graph.Inputs = append(model.Graph.Inputs, &zmf.ValueInfo{Name: name, Shape: intsToInt64s(t.Shape())})
	}

	for i, t := range g.Constants() {
		name := fmt.Sprintf("param_%d", i)
		names[t] = name

		dtype, err := toZMFDType(t.DType())
		if err != nil {
			return nil, err
		}

		model.Graph.Parameters[name] = &zmf.Tensor{
			Dtype: dtype,
			Shape: intsToInt64s(t.Shape()),
			Data:  t.Bytes(),
		}
	}

	for i, op := range g.Operators() {
		name := fmt.Sprintf("node_%d", i)
		for _, t := range op.Outputs() {
			names[t] = name
		}

		node, err := encodeNode(op, name, names)
		if err != nil {
			return nil, err
		}

		model.Graph.Nodes = append(model.Graph.Nodes, node)
	}

	for _, t := range g.Outputs() {
		name, ok := names[t]
		if !ok {
			return nil, fmt.Errorf("irio: output tensor %s has no producing node", t)
		}

		model.Graph.Outputs = append(model.Graph.Outputs, &zmf.ValueInfo{Name: name, Shape: intsToInt64s(t.Shape())})
	}

	return model, nil
}

func encodeNode(op *ir.Operator, name string, names map[*ir.Tensor]string) (*zmf.Node, error) {
	node := &zmf.Node{
		Name:       name,
		OpType:     toOpType(op.Kind(), op.ReduceKind()),
		Attributes: make(map[string]*zmf.Attribute),
	}

	for _, t := range op.Inputs() {
		in, ok := names[t]
		if !ok {
			return nil, fmt.Errorf("irio: operator %s references an unresolved input tensor", op)
		}

		node.Inputs = append(node.Inputs, in)
	}

	encodeParams(node, op.Kind(), op.Params())

	return node, nil
}

func int64sToInts(s []int64) []int {
	out := make([]int, len(s))
	for i, v := range s {
		out[i] = int(v)
	}

	return out
}

func intsToInt64s(s []int) []int64 {
	out := make([]int64, len(s))
	for i, v := range s {
		out[i] = int64(v)
	}

	return out
}

func intsToAttrString(s []int) string {
	parts := make([]string, len(s))
	for i, v := range s {
		parts[i] = strconv.Itoa(v)
	}

	return strings.Join(parts, ",")
}

func attrStringToInts(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	out := make([]int, len(parts))

	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("irio: malformed int-list attribute %q: %w", s, err)
		}

		out[i] = v
	}

	return out, nil
}

func attrInt(node *zmf.Node, key string) (int, bool) {
	a, ok := node.Attributes[key]
	if !ok {
		return 0, false
	}

	v, ok := a.Value.(*zmf.Attribute_I)
	if !ok {
		return 0, false
	}

	return int(v.I), true
}

func attrIntList(node *zmf.Node, key string) ([]int, error) {
	a, ok := node.Attributes[key]
	if !ok {
		return nil, nil
	}

	v, ok := a.Value.(*zmf.Attribute_S)
	if !ok {
		return nil, fmt.Errorf("attribute %q is not an int-list string", key)
	}

	return attrStringToInts(v.S)
}

func attrBool(node *zmf.Node, key string) bool {
	a, ok := node.Attributes[key]
	if !ok {
		return false
	}

	v, ok := a.Value.(*zmf.Attribute_B)
	if !ok {
		return false
	}

	return v.B
}

func setInt(node *zmf.Node, key string, v int) {
	node.Attributes[key] = &zmf.Attribute{Value: &zmf.Attribute_I{I: int64(v)}}
}

func setIntList(node *zmf.Node, key string, v []int) {
	node.Attributes[key] = &zmf.Attribute{Value: &zmf.Attribute_S{S: intsToAttrString(v)}}
}

func setBool(node *zmf.Node, key string, v bool) {
	node.Attributes[key] = &zmf.Attribute{Value: &zmf.Attribute_B{B: v}}
}
