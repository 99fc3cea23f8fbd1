package shaper

import (
	"testing"

	"github.com/tonegraph/euphony/internal/dspnode"
)

func TestWaveShaperPassesZeroThroughCenter(t *testing.T) {
	p := NewWaveShaper(nil)
	var out [dspnode.BatchSize]float32
	p.Render([]dspnode.Input{dspnode.ConstantInput(0)}, dspnode.NoBuffers{}, &out)
	if out[0] != 0 {
		t.Fatalf("default tanh table should map 0 to 0, got %v", out[0])
	}
}

func TestWaveShaperClampsOutOfRangeInput(t *testing.T) {
	p := NewWaveShaper(nil)
	var out [dspnode.BatchSize]float32
	p.Render([]dspnode.Input{dspnode.ConstantInput(5)}, dspnode.NoBuffers{}, &out)
	if out[0] < 0.9 || out[0] > 1.0001 {
		t.Fatalf("out-of-range input should clamp to the table's upper bound, got %v", out[0])
	}
}

func TestWaveShaperCustomTableInterpolates(t *testing.T) {
	p := NewWaveShaper([]float32{-1, 0, 1})
	var out [dspnode.BatchSize]float32
	p.Render([]dspnode.Input{dspnode.ConstantInput(-0.5)}, dspnode.NoBuffers{}, &out)
	if out[0] != -0.5 {
		t.Fatalf("got %v, want -0.5 (midpoint interpolation)", out[0])
	}
}
