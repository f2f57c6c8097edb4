package ir

import "testing"

func TestGraphCreateTensorClassifiesByAttribute(t *testing.T) {
	g := NewGraph()

	in := g.CreateTensor([]int{1, 4, 4, 4}, Float32, Input, nil, nil)
	out := g.CreateTensor([]int{1, 4, 4, 4}, Float32, Output, nil, nil)
	c := g.CreateTensor([]int{1}, Float32, Constant, nil, []byte{0, 0, 0, 0})

	if len(g.Inputs()) != 1 || g.Inputs()[0] != in {
		t.Fatalf("expected inputs to contain %v, got %v", in, g.Inputs())
	}

	if len(g.Outputs()) != 1 || g.Outputs()[0] != out {
		t.Fatalf("expected outputs to contain %v, got %v", out, g.Outputs())
	}

	if len(g.Constants()) != 1 || g.Constants()[0] != c {
		t.Fatalf("expected constants to contain %v, got %v", c, g.Constants())
	}

	if !c.IsConstant() {
		t.Fatalf("expected constant tensor to report IsConstant() == true")
	}
}

func TestGraphCreateOpRegistersProducerAndConsumers(t *testing.T) {
	g := NewGraph()

	x := g.CreateTensor([]int{1, 4, 4, 4}, Float32, Input, nil, nil)
	y := g.CreateTensor([]int{1, 2, 2, 4}, Float32, Output, nil, nil)

	op, err := g.CreateOp(Pool2D, 0, &Pool2DParams{KernelH: 2, KernelW: 2, StrideH: 2, StrideW: 2}, []*Tensor{x}, []*Tensor{y})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	consumers := g.Consumers(x)
	if len(consumers) != 1 || consumers[0] != op {
		t.Fatalf("expected x's consumers to be [%v], got %v", op, consumers)
	}

	producer, ok := g.Producer(y)
	if !ok || producer != op {
		t.Fatalf("expected y's producer to be %v, got %v (ok=%v)", op, producer, ok)
	}
}

func TestGraphCreateOpRejectsDoubleProducer(t *testing.T) {
	g := NewGraph()

	x := g.CreateTensor([]int{1}, Float32, Input, nil, nil)
	y := g.CreateTensor([]int{1}, Float32, Transient, nil, nil)

	if _, err := g.CreateOp(Relu, 0, nil, []*Tensor{x}, []*Tensor{y}); err != nil {
		t.Fatalf("unexpected error on first producer: %v", err)
	}

	if _, err := g.CreateOp(Relu, 0, nil, []*Tensor{x}, []*Tensor{y}); err == nil {
		t.Fatalf("expected an error assigning a second producer to the same tensor")
	}
}

func TestTensorPlaceholderSentinel(t *testing.T) {
	g := NewGraph()
	t1 := g.CreateTensor([]int{1}, Float32, Input, nil, nil)

	if t1.IsPlaceholder() {
		t.Fatalf("fresh tensor should not be a placeholder")
	}

	placeholder := newTensor(PlaceholderTensorID, nil, Float32, nil, Transient, nil)
	if !placeholder.IsPlaceholder() {
		t.Fatalf("tensor with sentinel id -1 should report IsPlaceholder() == true")
	}
}

func TestTensorByteSizeAndCopyOut(t *testing.T) {
	g := NewGraph()
	c := g.CreateTensor([]int{2, 2}, Float32, Constant, nil, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16})

	if got := c.ByteSize(); got != 16 {
		t.Fatalf("expected ByteSize() == 16, got %d", got)
	}

	buf := make([]byte, 16)
	if err := c.CopyOut(buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if buf[0] != 1 || buf[15] != 16 {
		t.Fatalf("unexpected staged bytes: %v", buf)
	}

	if err := c.CopyOut(make([]byte, 4)); err == nil {
		t.Fatalf("expected an error staging into a too-small buffer")
	}
}
