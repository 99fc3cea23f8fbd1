package filter

import (
	"testing"

	"github.com/tonegraph/euphony/internal/dspnode"
)

func renderConst(t *testing.T, p dspnode.Processor, signal float64, rest ...float64) [dspnode.BatchSize]float32 {
	t.Helper()
	inputs := []dspnode.Input{dspnode.ConstantInput(signal)}
	for _, v := range rest {
		inputs = append(inputs, dspnode.ConstantInput(v))
	}
	var out [dspnode.BatchSize]float32
	p.Render(inputs, dspnode.NoBuffers{}, &out)
	return out
}

func TestLowpoleSmoothsStep(t *testing.T) {
	p := NewLowpole(48_000)
	out := renderConst(t, p, 1.0, 200)
	if out[0] >= 1 {
		t.Fatalf("one-pole filter should not jump immediately to steady state, got %v", out[0])
	}
	if out[len(out)-1] <= out[0] {
		t.Fatalf("filter should approach the step value over time: out[0]=%v out[last]=%v", out[0], out[len(out)-1])
	}
}

func TestButterpassIsStableUnderDCInput(t *testing.T) {
	p := NewButterpass(48_000)
	out := renderConst(t, p, 1.0, 1000)
	for i, v := range out {
		if v != v { // NaN check
			t.Fatalf("out[%d] is NaN", i)
		}
		if v > 10 || v < -10 {
			t.Fatalf("out[%d] = %v, filter diverged", i, v)
		}
	}
}

func TestMoogRemainsBoundedAtHighResonance(t *testing.T) {
	p := NewMoog(48_000)
	out := renderConst(t, p, 1.0, 800, 4.0)
	for i, v := range out {
		if v > 5 || v < -5 {
			t.Fatalf("out[%d] = %v, ladder diverged at high resonance", i, v)
		}
	}
}

func TestSVFLowpassAttenuatesAboveCutoff(t *testing.T) {
	p := NewLowpass(48_000)
	out := renderConst(t, p, 1.0, 100, 0.707)
	if out[len(out)-1] <= 0 {
		t.Fatalf("lowpass should pass a sub-cutoff DC-like signal positively, got %v", out[len(out)-1])
	}
}

func TestSVFHighpassBlocksDC(t *testing.T) {
	p := NewHighpass(48_000)
	out := renderConst(t, p, 1.0, 1000, 0.707)
	if out[len(out)-1] > 0.1 {
		t.Fatalf("highpass should attenuate sustained DC-like input, got %v", out[len(out)-1])
	}
}
