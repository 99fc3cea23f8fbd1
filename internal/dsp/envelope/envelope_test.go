package envelope

import (
	"testing"

	"github.com/tonegraph/euphony/internal/dspnode"
)

func TestRampReachesTarget(t *testing.T) {
	r := NewRamp()
	out := make([]float32, 20)
	r.RenderPartial([]dspnode.Input{
		dspnode.ConstantInput(1.0),
		dspnode.ConstantInput(10),
	}, dspnode.NoBuffers{}, out)
	if out[0] != 0.1 {
		t.Fatalf("out[0] = %v, want 0.1", out[0])
	}
	if out[10] != 1.0 {
		t.Fatalf("out[10] = %v, want 1.0 (held at target)", out[10])
	}
	if out[19] != 1.0 {
		t.Fatalf("out[19] = %v, want 1.0 (holds after reaching target)", out[19])
	}
}

func TestRampRetargetsMidway(t *testing.T) {
	r := NewRamp()
	first := make([]float32, 5)
	r.RenderPartial([]dspnode.Input{dspnode.ConstantInput(1.0), dspnode.ConstantInput(10)}, dspnode.NoBuffers{}, first)
	second := make([]float32, 1)
	r.RenderPartial([]dspnode.Input{dspnode.ConstantInput(0.0), dspnode.ConstantInput(5)}, dspnode.NoBuffers{}, second)
	if second[0] >= first[len(first)-1] {
		t.Fatalf("ramp should move toward new lower target, got %v from %v", second[0], first[len(first)-1])
	}
}
