package ir

import "fmt"

// Graph owns tensors and operators created through it. Each Graph
// exclusively owns the tensor/operator records it created; tensors are
// only shared across graphs via the context's maps (see package fuse).
type Graph struct {
	tensors []*Tensor
	ops     []*Operator

	byTensorID map[int]*Tensor
	byOpID     map[int]*Operator

	// consumers preserves discovery/registration order, giving a stable
	// tie-break order between operators that become ready simultaneously.
	consumers map[int][]*Operator
	producer  map[int]*Operator

	inputs    []*Tensor
	outputs   []*Tensor
	constants []*Tensor

	nextTensorID int
	nextOpID     int
}

// NewGraph creates an empty Graph.
func NewGraph() *Graph {
	return &Graph{
		byTensorID: make(map[int]*Tensor),
		byOpID:     make(map[int]*Operator),
		consumers:  make(map[int][]*Operator),
		producer:   make(map[int]*Operator),
	}
}

// CreateTensor creates and owns a new Tensor. bytes must be non-nil only
// when attr is Constant.
func (g *Graph) CreateTensor(shape []int, dtype ElemType, attr TensorAttribute, quant *QuantParam, bytes []byte) *Tensor {
	id := g.nextTensorID
	g.nextTensorID++

	t := newTensor(id, shape, dtype, quant, attr, bytes)
	g.tensors = append(g.tensors, t)
	g.byTensorID[id] = t

	switch attr {
	case Input:
		g.inputs = append(g.inputs, t)
	case Output:
		g.outputs = append(g.outputs, t)
	case Constant:
		g.constants = append(g.constants, t)
	case Transient:
	}

	return t
}

// CreateOp creates and owns a new Operator connecting ins to outs, and
// registers it as a consumer of each input and the producer of each
// output.
func (g *Graph) CreateOp(kind OpKind, reduceKind ReduceKind, params any, ins, outs []*Tensor) (*Operator, error) {
	for _, t := range outs {
		if p, exists := g.producer[t.id]; exists {
			return nil, fmt.Errorf("tensor %d, producer %d: %w", t.id, p.id, ErrProducerTaken)
		}
	}

	id := g.nextOpID
	g.nextOpID++

	insCopy := make([]*Tensor, len(ins))
	copy(insCopy, ins)
	outsCopy := make([]*Tensor, len(outs))
	copy(outsCopy, outs)

	op := &Operator{
		id:         id,
		kind:       kind,
		reduceKind: reduceKind,
		params:     params,
		inputs:     insCopy,
		outputs:    outsCopy,
	}

	g.ops = append(g.ops, op)
	g.byOpID[id] = op

	for _, t := range ins {
		g.consumers[t.id] = append(g.consumers[t.id], op)
	}

	for _, t := range outs {
		g.producer[t.id] = op
	}

	return op, nil
}

// Consumers returns the operators that read t, in registration order.
func (g *Graph) Consumers(t *Tensor) []*Operator {
	cp := make([]*Operator, len(g.consumers[t.id]))
	copy(cp, g.consumers[t.id])

	return cp
}

// Producer returns the operator that writes t, if any.
func (g *Graph) Producer(t *Tensor) (*Operator, bool) {
	op, ok := g.producer[t.id]

	return op, ok
}

// Inputs returns the graph's input tensors in creation order.
func (g *Graph) Inputs() []*Tensor {
	cp := make([]*Tensor, len(g.inputs))
	copy(cp, g.inputs)

	return cp
}

// Outputs returns the graph's output tensors in creation order.
func (g *Graph) Outputs() []*Tensor {
	cp := make([]*Tensor, len(g.outputs))
	copy(cp, g.outputs)

	return cp
}

// Constants returns the graph's constant tensors in creation order.
func (g *Graph) Constants() []*Tensor {
	cp := make([]*Tensor, len(g.constants))
	copy(cp, g.constants)

	return cp
}

// Tensors returns every tensor the graph owns, in creation order.
func (g *Graph) Tensors() []*Tensor {
	cp := make([]*Tensor, len(g.tensors))
	copy(cp, g.tensors)

	return cp
}

// Operators returns every operator the graph owns, in creation order.
func (g *Graph) Operators() []*Operator {
	cp := make([]*Operator, len(g.ops))
	copy(cp, g.ops)

	return cp
}

// Tensor looks up a tensor owned by this graph by id.
func (g *Graph) Tensor(id int) (*Tensor, bool) {
	t, ok := g.byTensorID[id]

	return t, ok
}
