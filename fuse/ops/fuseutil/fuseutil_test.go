package fuseutil

import (
	"testing"

	"github.com/zerfoo/batchfuse/fuse"
)

func TestReceptiveField(t *testing.T) {
	cases := []struct {
		kernel, dilation, want int
	}{
		{kernel: 3, dilation: 1, want: 3},
		{kernel: 3, dilation: 2, want: 5},
		{kernel: 1, dilation: 1, want: 1},
	}

	for _, c := range cases {
		if got := ReceptiveField(c.kernel, c.dilation); got != c.want {
			t.Errorf("ReceptiveField(%d, %d) = %d, want %d", c.kernel, c.dilation, got, c.want)
		}
	}
}

func TestOwnContextSubtractsExistingPad(t *testing.T) {
	got := OwnContext(3, 1, 0, 0)
	if got != (fuse.Gap{Left: 2, Right: 2}) {
		t.Fatalf("OwnContext(3,1,0,0) = %+v, want {2 2}", got)
	}

	// Padding already supplies context, so less gap is required.
	got = OwnContext(3, 1, 1, 1)
	if got != (fuse.Gap{Left: 1, Right: 1}) {
		t.Fatalf("OwnContext(3,1,1,1) = %+v, want {1 1}", got)
	}

	// Padding covering the whole receptive field needs no gap at all.
	got = OwnContext(3, 1, 2, 2)
	if got != (fuse.Gap{}) {
		t.Fatalf("OwnContext(3,1,2,2) = %+v, want zero gap", got)
	}
}

func TestWiderGapTakesElementwiseMax(t *testing.T) {
	a := fuse.Gap{Left: 1, Right: 3}
	b := fuse.Gap{Left: 2, Right: 2}

	got := WiderGap(a, b)
	if got != (fuse.Gap{Left: 2, Right: 3}) {
		t.Fatalf("WiderGap(%+v, %+v) = %+v, want {2 3}", a, b, got)
	}
}

func TestAxisProportion(t *testing.T) {
	if got := AxisProportion(fuse.Gap{Left: 1, Right: 1}, 8); got != 0.75 {
		t.Fatalf("AxisProportion = %v, want 0.75", got)
	}

	// A zero-extent axis reports full proportion rather than dividing by zero.
	if got := AxisProportion(fuse.Gap{Left: 1, Right: 1}, 0); got != 1 {
		t.Fatalf("AxisProportion with zero extent = %v, want 1", got)
	}

	// A gap that would consume more than the extent clamps valid to zero.
	if got := AxisProportion(fuse.Gap{Left: 3, Right: 3}, 4); got != 0 {
		t.Fatalf("AxisProportion with oversized gap = %v, want 0", got)
	}
}

func TestInverseContextCapsAtOwnContext(t *testing.T) {
	// Asking for more output gap than the kernel could ever relay clamps
	// to what the operator's own receptive field allows.
	got := InverseContext(fuse.Gap{Left: 10, Right: 10}, 1, 3, 1, 0, 0)
	if got != (fuse.Gap{Left: 2, Right: 2}) {
		t.Fatalf("InverseContext over-demand = %+v, want capped at {2 2}", got)
	}

	// A stride of 2 doubles the input gap needed to relay one output gap unit.
	got = InverseContext(fuse.Gap{Left: 1, Right: 1}, 2, 3, 1, 0, 0)
	if got != (fuse.Gap{Left: 2, Right: 2}) {
		t.Fatalf("InverseContext stride=2 = %+v, want {2 2}", got)
	}

	// Existing padding already supplies some of the requested context.
	got = InverseContext(fuse.Gap{Left: 1, Right: 1}, 1, 3, 1, 1, 1)
	if got != (fuse.Gap{Left: 0, Right: 0}) {
		t.Fatalf("InverseContext with padding = %+v, want {0 0}", got)
	}
}
