package osc

import (
	"testing"

	"github.com/tonegraph/euphony/internal/dspnode"
)

func TestSineStartsAtZero(t *testing.T) {
	p := NewSine(48_000)
	var out [dspnode.BatchSize]float32
	p.Render([]dspnode.Input{dspnode.ConstantInput(440)}, dspnode.NoBuffers{}, &out)
	if out[0] != 0 {
		t.Fatalf("sine sample 0 = %v, want 0", out[0])
	}
}

func TestSawRampsAcrossCycle(t *testing.T) {
	p := NewSaw(8) // 8 Hz sample rate, 1 Hz tone -> 8-sample period
	var out [dspnode.BatchSize]float32
	p.Render([]dspnode.Input{dspnode.ConstantInput(1)}, dspnode.NoBuffers{}, &out)
	if out[0] != -1 {
		t.Fatalf("saw sample 0 = %v, want -1", out[0])
	}
	if out[4] <= out[0] {
		t.Fatalf("saw should ramp upward: out[0]=%v out[4]=%v", out[0], out[4])
	}
}

func TestPulseAlternatesSign(t *testing.T) {
	p := NewPulse(4) // 4 Hz sample rate, 1 Hz tone -> 4-sample period
	var out [dspnode.BatchSize]float32
	p.Render([]dspnode.Input{dspnode.ConstantInput(1), dspnode.ConstantInput(0.5)}, dspnode.NoBuffers{}, &out)
	if out[0] != 1 {
		t.Fatalf("pulse sample 0 = %v, want 1 (inside duty)", out[0])
	}
	if out[2] != -1 {
		t.Fatalf("pulse sample 2 = %v, want -1 (outside duty)", out[2])
	}
}

func TestWavetableReadsBoundBuffer(t *testing.T) {
	table := []float32{0, 1, 0, -1}
	p := NewWavetable(4, nil)
	buffers := fakeBuffers{0: table}
	var out [dspnode.BatchSize]float32
	p.Render([]dspnode.Input{dspnode.ConstantInput(1)}, buffers, &out)
	if out[0] != 0 {
		t.Fatalf("wavetable sample 0 = %v, want 0", out[0])
	}
}

type fakeBuffers map[int][]float32

func (f fakeBuffers) Channel(idx int) ([]float32, bool) {
	v, ok := f[idx]
	return v, ok
}
