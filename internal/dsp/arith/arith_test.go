package arith

import (
	"math"
	"testing"

	"github.com/tonegraph/euphony/internal/dspnode"
)

func TestAddRendersConstants(t *testing.T) {
	p := Add()
	var out [dspnode.BatchSize]float32
	p.Render([]dspnode.Input{dspnode.ConstantInput(2), dspnode.ConstantInput(3)}, dspnode.NoBuffers{}, &out)
	for i, v := range out {
		if v != 5 {
			t.Fatalf("out[%d] = %v, want 5", i, v)
		}
	}
}

func TestDivByZeroProducesInf(t *testing.T) {
	p := Div()
	var out [dspnode.BatchSize]float32
	p.Render([]dspnode.Input{dspnode.ConstantInput(1), dspnode.ConstantInput(0)}, dspnode.NoBuffers{}, &out)
	if !math.IsInf(float64(out[0]), 1) {
		t.Fatalf("out[0] = %v, want +Inf", out[0])
	}
}

func TestClampBounds(t *testing.T) {
	out := make([]float32, 4)
	var buf [dspnode.BatchSize]float32
	buf[0], buf[1], buf[2], buf[3] = -5, 0, 5, 50
	p := NewClamp()
	p.RenderPartial([]dspnode.Input{
		dspnode.DynamicInput(&buf),
		dspnode.ConstantInput(0),
		dspnode.ConstantInput(10),
	}, dspnode.NoBuffers{}, out)
	want := []float32{0, 0, 5, 10}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestMulAddFusedComputation(t *testing.T) {
	p := NewMulAdd()
	var out [dspnode.BatchSize]float32
	p.Render([]dspnode.Input{
		dspnode.ConstantInput(2),
		dspnode.ConstantInput(3),
		dspnode.ConstantInput(1),
	}, dspnode.NoBuffers{}, &out)
	if out[0] != 7 {
		t.Fatalf("out[0] = %v, want 7", out[0])
	}
}

func TestSelectGate(t *testing.T) {
	var gate [dspnode.BatchSize]float32
	gate[0] = -1
	gate[1] = 1
	p := NewSelect()
	out := make([]float32, 2)
	p.RenderPartial([]dspnode.Input{
		dspnode.DynamicInput(&gate),
		dspnode.ConstantInput(10),
		dspnode.ConstantInput(20),
	}, dspnode.NoBuffers{}, out)
	if out[0] != 10 || out[1] != 20 {
		t.Fatalf("got %v, want [10 20]", out)
	}
}
