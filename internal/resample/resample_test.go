package resample

import (
	"math"
	"testing"
)

func TestChannelSameRateReturnsInputUnchanged(t *testing.T) {
	in := []float32{1, 2, 3}
	out := Channel(in, 44100, 44100, Linear)
	if len(out) != len(in) {
		t.Fatalf("got %d samples, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("sample %d: got %v, want %v", i, out[i], in[i])
		}
	}
}

func TestLinearUpsampleDoublesLength(t *testing.T) {
	in := []float32{0, 1, 0, -1}
	out := Channel(in, 44100, 88200, Linear)
	if len(out) != 8 {
		t.Fatalf("got %d samples, want 8", len(out))
	}
}

func TestLinearInterpolatesBetweenSamples(t *testing.T) {
	in := []float32{0, 10}
	out := linear(in, 2, 4)
	if len(out) != 4 {
		t.Fatalf("got %d samples, want 4", len(out))
	}
	if out[0] != 0 {
		t.Fatalf("out[0] = %v, want 0", out[0])
	}
	for _, v := range out {
		if v < -0.01 || v > 10.01 {
			t.Fatalf("interpolated sample %v out of source range", v)
		}
	}
}

func TestWindowedSincPreservesDCComponent(t *testing.T) {
	in := make([]float32, 64)
	for i := range in {
		in[i] = 1
	}
	out := Channel(in, 48000, 44100, WindowedSinc)
	for i := 8; i < len(out)-8; i++ {
		if math.Abs(float64(out[i]-1)) > 0.05 {
			t.Fatalf("sample %d = %v, want close to 1", i, out[i])
		}
	}
}

func TestSincZeroIsOne(t *testing.T) {
	if got := sinc(0); got != 1 {
		t.Fatalf("sinc(0) = %v, want 1", got)
	}
}

func TestLanczosZeroOutsideRadius(t *testing.T) {
	if got := lanczos(5, 3); got != 0 {
		t.Fatalf("lanczos(5, 3) = %v, want 0", got)
	}
}

func TestOutputLengthEmptyInput(t *testing.T) {
	if got := outputLength(0, 44100, 48000); got != 0 {
		t.Fatalf("outputLength(0, ...) = %d, want 0", got)
	}
}
