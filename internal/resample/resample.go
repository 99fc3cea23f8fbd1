// Package resample converts decoded PCM from its native sample rate to
// the engine's render rate, the same kind of small numeric transform
// over []float32 the teacher's similarity package applies to embedding
// vectors, just addressed by sample index instead of by dimension.
package resample

import "math"

// Mode selects the interpolation kernel Channel uses.
type Mode int

const (
	// Linear interpolates between the two nearest source samples.
	// Cheap, adequate for short one-shots and sample-rate-matched assets.
	Linear Mode = iota
	// WindowedSinc convolves a Lanczos-windowed sinc kernel around each
	// output sample. Slower, preserves high-frequency content across a
	// rate change better than Linear.
	WindowedSinc
)

// Channel resamples a single channel of PCM from srcRate to dstRate
// using mode. If the rates already match, samples is returned unchanged.
func Channel(samples []float32, srcRate, dstRate uint32, mode Mode) []float32 {
	if srcRate == dstRate || len(samples) == 0 {
		return samples
	}
	switch mode {
	case WindowedSinc:
		return windowedSinc(samples, srcRate, dstRate, 8)
	default:
		return linear(samples, srcRate, dstRate)
	}
}

func outputLength(n int, srcRate, dstRate uint32) int {
	if n == 0 {
		return 0
	}
	return int(math.Ceil(float64(n) * float64(dstRate) / float64(srcRate)))
}

func linear(samples []float32, srcRate, dstRate uint32) []float32 {
	n := outputLength(len(samples), srcRate, dstRate)
	out := make([]float32, n)
	ratio := float64(srcRate) / float64(dstRate)
	last := len(samples) - 1
	for i := range out {
		pos := float64(i) * ratio
		lo := int(math.Floor(pos))
		frac := pos - float64(lo)
		hi := lo + 1
		if hi > last {
			hi = last
		}
		if lo > last {
			lo = last
		}
		out[i] = samples[lo] + float32(frac)*(samples[hi]-samples[lo])
	}
	return out
}

// sinc is the normalized sinc function, sin(pi*x)/(pi*x), with sinc(0)=1.
func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}

// lanczos is the Lanczos window of radius a, zero outside [-a, a].
func lanczos(x float64, a int) float64 {
	fa := float64(a)
	if x <= -fa || x >= fa {
		return 0
	}
	return sinc(x / fa)
}

func windowedSinc(samples []float32, srcRate, dstRate uint32, taps int) []float32 {
	n := outputLength(len(samples), srcRate, dstRate)
	out := make([]float32, n)
	ratio := float64(srcRate) / float64(dstRate)
	last := len(samples) - 1

	for i := range out {
		pos := ratio * float64(i)
		center := int(math.Floor(pos))
		var acc float64
		for k := center - taps + 1; k <= center+taps; k++ {
			if k < 0 || k > last {
				continue
			}
			d := pos - float64(k)
			acc += float64(samples[k]) * sinc(d) * lanczos(d, taps)
		}
		out[i] = float32(acc)
	}
	return out
}
