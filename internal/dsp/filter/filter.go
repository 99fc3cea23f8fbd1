// Package filter implements the processor library's filter family: a
// one-pole lowpass, a Butterworth lowpass, a Moog ladder,
// and the state-variable filter (SVF) family sharing one zero-delay
// feedback core across lowpass/highpass/bandpass/notch/peak/allpass/
// bell/shelf modes.
package filter

import (
	"math"

	"github.com/tonegraph/euphony/internal/dspnode"
)

// Processor IDs occupy the 300-349 block, continuing the original's
// per-module numbering where the filter family starts at 300.
const (
	IDButterpass = 300
	IDLowpole    = 301
	IDMoog       = 305
	IDLowpass    = 308
	IDHighpass   = 309
	IDBandpass   = 310
	IDNotch      = 311
	IDPeak       = 312
	IDAllpass    = 313
	IDBell       = 314
	IDShelf      = 315
)

// Butterpass is a second-order Butterworth lowpass filter implemented as
// a direct-form-II biquad recomputed from cutoff on every sample, since
// cutoff is a dynamic per-sample input rather than a fixed coefficient.
type Butterpass struct {
	sampleRate     float64
	x1, x2, y1, y2 float64
}

// NewButterpass returns a Butterpass filter for the given sample rate.
func NewButterpass(sampleRate float64) dspnode.Processor {
	return &Butterpass{sampleRate: sampleRate}
}

func (f *Butterpass) Inputs() int { return 2 }

func (f *Butterpass) Render(inputs []dspnode.Input, b dspnode.Buffers, output *[dspnode.BatchSize]float32) {
	f.renderN(inputs, output[:])
}

func (f *Butterpass) RenderPartial(inputs []dspnode.Input, b dspnode.Buffers, output []float32) {
	f.renderN(inputs, output)
}

func (f *Butterpass) renderN(inputs []dspnode.Input, output []float32) {
	signal, cutoff := inputs[0], inputs[1]
	for i := range output {
		c := math.Max(1, float64(cutoff.At(i)))
		omega := 2 * math.Pi * c / f.sampleRate
		sinw, cosw := math.Sin(omega), math.Cos(omega)
		alpha := sinw / math.Sqrt2
		b0 := (1 - cosw) / 2
		b1 := 1 - cosw
		b2 := (1 - cosw) / 2
		a0 := 1 + alpha
		a1 := -2 * cosw
		a2 := 1 - alpha

		x0 := float64(signal.At(i))
		y0 := (b0/a0)*x0 + (b1/a0)*f.x1 + (b2/a0)*f.x2 - (a1/a0)*f.y1 - (a2/a0)*f.y2
		f.x2, f.x1 = f.x1, x0
		f.y2, f.y1 = f.y1, y0
		output[i] = float32(y0)
	}
}

// Lowpole is a one-pole lowpass filter, the cheapest smoothing filter in
// the library.
type Lowpole struct {
	sampleRate float64
	state      float64
}

// NewLowpole returns a Lowpole filter for the given sample rate.
func NewLowpole(sampleRate float64) dspnode.Processor { return &Lowpole{sampleRate: sampleRate} }

func (f *Lowpole) Inputs() int { return 2 }

func (f *Lowpole) Render(inputs []dspnode.Input, b dspnode.Buffers, output *[dspnode.BatchSize]float32) {
	f.renderN(inputs, output[:])
}

func (f *Lowpole) RenderPartial(inputs []dspnode.Input, b dspnode.Buffers, output []float32) {
	f.renderN(inputs, output)
}

func (f *Lowpole) renderN(inputs []dspnode.Input, output []float32) {
	signal, cutoff := inputs[0], inputs[1]
	for i := range output {
		c := math.Max(1, float64(cutoff.At(i)))
		a := math.Exp(-2 * math.Pi * c / f.sampleRate)
		f.state = (1-a)*float64(signal.At(i)) + a*f.state
		output[i] = float32(f.state)
	}
}

// Moog is a resonant lowpass filter modeled after the Moog ladder using
// the Stilson-Smith zero-delay approximation: four cascaded one-pole
// stages with resonance feedback from the fourth stage into the input.
type Moog struct {
	sampleRate     float64
	s1, s2, s3, s4 float64
}

// NewMoog returns a Moog ladder filter for the given sample rate.
func NewMoog(sampleRate float64) dspnode.Processor { return &Moog{sampleRate: sampleRate} }

func (f *Moog) Inputs() int { return 3 }

func (f *Moog) Render(inputs []dspnode.Input, b dspnode.Buffers, output *[dspnode.BatchSize]float32) {
	f.renderN(inputs, output[:])
}

func (f *Moog) RenderPartial(inputs []dspnode.Input, b dspnode.Buffers, output []float32) {
	f.renderN(inputs, output)
}

func (f *Moog) renderN(inputs []dspnode.Input, output []float32) {
	signal, cutoff, q := inputs[0], inputs[1], inputs[2]
	for i := range output {
		c := math.Max(1, math.Min(float64(cutoff.At(i)), f.sampleRate*0.45))
		g := 1 - math.Exp(-2*math.Pi*c/f.sampleRate)
		resonance := math.Max(0, math.Min(float64(q.At(i))*4, 4))

		x := float64(signal.At(i)) - resonance*f.s4
		// Denormals are intentionally not flushed here: the ladder's
		// feedback loop relies on exact decay toward zero for
		// self-oscillation at high resonance to behave predictably.
		f.s1 += g * (math.Tanh(x) - math.Tanh(f.s1))
		f.s2 += g * (math.Tanh(f.s1) - math.Tanh(f.s2))
		f.s3 += g * (math.Tanh(f.s2) - math.Tanh(f.s3))
		f.s4 += g * (math.Tanh(f.s3) - math.Tanh(f.s4))
		output[i] = float32(f.s4)
	}
}

// svfMode selects which linear combination of the state-variable
// filter's low/band/high outputs a given mode processor reads, the
// single axis of variation across the SVF family.
type svfMode int

const (
	modeLowpass svfMode = iota
	modeHighpass
	modeBandpass
	modeNotch
	modePeak
	modeAllpass
)

// svfCore is Andrew Simper's trapezoidal (zero-delay feedback) state
// variable filter, computing the low/band/high components every sample;
// each mode in the family is a fixed linear combination of the three.
type svfCore struct {
	sampleRate float64
	ic1, ic2   float64
}

func (s *svfCore) tick(input, cutoff, q float64) (low, band, high float64) {
	cutoff = math.Max(1, math.Min(cutoff, s.sampleRate*0.49))
	q = math.Max(0.01, q)
	g := math.Tan(math.Pi * cutoff / s.sampleRate)
	k := 1 / q
	a1 := 1 / (1 + g*(g+k))
	a2 := g * a1
	a3 := g * a2

	v3 := input - s.ic2
	v1 := a1*s.ic1 + a2*v3
	v2 := s.ic2 + a2*s.ic1 + a3*v3

	s.ic1 = 2*v1 - s.ic1
	s.ic2 = 2*v2 - s.ic2

	return v2, v1, input - k*v1 - v2
}

func svfOutput(mode svfMode, low, band, high, q float64) float64 {
	switch mode {
	case modeLowpass:
		return low
	case modeHighpass:
		return high
	case modeBandpass:
		return band
	case modeNotch:
		return low + high
	case modePeak:
		return low - high
	case modeAllpass:
		return low - band/q + high
	default:
		return low
	}
}

// svf wraps svfCore for a fixed mode, matching the ABI every family
// member shares: Render(signal, cutoff, q) -> output.
type svf struct {
	core svfCore
	mode svfMode
}

func newSVF(sampleRate float64, mode svfMode) dspnode.Processor {
	return &svf{core: svfCore{sampleRate: sampleRate}, mode: mode}
}

// NewLowpass returns an SVF configured as a lowpass.
func NewLowpass(sampleRate float64) dspnode.Processor { return newSVF(sampleRate, modeLowpass) }

// NewHighpass returns an SVF configured as a highpass.
func NewHighpass(sampleRate float64) dspnode.Processor { return newSVF(sampleRate, modeHighpass) }

// NewBandpass returns an SVF configured as a bandpass.
func NewBandpass(sampleRate float64) dspnode.Processor { return newSVF(sampleRate, modeBandpass) }

// NewNotch returns an SVF configured as a notch.
func NewNotch(sampleRate float64) dspnode.Processor { return newSVF(sampleRate, modeNotch) }

// NewPeak returns an SVF configured as a peaking filter.
func NewPeak(sampleRate float64) dspnode.Processor { return newSVF(sampleRate, modePeak) }

// NewAllpass returns an SVF configured as an allpass.
func NewAllpass(sampleRate float64) dspnode.Processor { return newSVF(sampleRate, modeAllpass) }

func (f *svf) Inputs() int { return 3 }

func (f *svf) Render(inputs []dspnode.Input, b dspnode.Buffers, output *[dspnode.BatchSize]float32) {
	f.renderN(inputs, output[:])
}

func (f *svf) RenderPartial(inputs []dspnode.Input, b dspnode.Buffers, output []float32) {
	f.renderN(inputs, output)
}

func (f *svf) renderN(inputs []dspnode.Input, output []float32) {
	signal, cutoff, q := inputs[0], inputs[1], inputs[2]
	for i := range output {
		qv := math.Max(0.01, float64(q.At(i)))
		low, band, high := f.core.tick(float64(signal.At(i)), float64(cutoff.At(i)), qv)
		output[i] = float32(svfOutput(f.mode, low, band, high, qv))
	}
}

// Bell is a peaking EQ bell filter with an explicit gain input in
// addition to the shared SVF cutoff/q parameters.
type Bell struct {
	core svfCore
}

// NewBell returns a Bell (peaking EQ) filter for the given sample rate.
func NewBell(sampleRate float64) dspnode.Processor { return &Bell{core: svfCore{sampleRate: sampleRate}} }

func (f *Bell) Inputs() int { return 4 }

func (f *Bell) Render(inputs []dspnode.Input, b dspnode.Buffers, output *[dspnode.BatchSize]float32) {
	f.renderN(inputs, output[:])
}

func (f *Bell) RenderPartial(inputs []dspnode.Input, b dspnode.Buffers, output []float32) {
	f.renderN(inputs, output)
}

func (f *Bell) renderN(inputs []dspnode.Input, output []float32) {
	signal, cutoff, q, gainDB := inputs[0], inputs[1], inputs[2], inputs[3]
	for i := range output {
		qv := math.Max(0.01, float64(q.At(i)))
		low, band, high := f.core.tick(float64(signal.At(i)), float64(cutoff.At(i)), qv)
		gain := math.Pow(10, float64(gainDB.At(i))/20)
		output[i] = float32(low + high + band*gain/qv)
	}
}

// Shelf is a low-shelf filter with an explicit gain input, built on the
// same SVF core as the rest of the family.
type Shelf struct {
	core svfCore
}

// NewShelf returns a Shelf filter for the given sample rate.
func NewShelf(sampleRate float64) dspnode.Processor { return &Shelf{core: svfCore{sampleRate: sampleRate}} }

func (f *Shelf) Inputs() int { return 3 }

func (f *Shelf) Render(inputs []dspnode.Input, b dspnode.Buffers, output *[dspnode.BatchSize]float32) {
	f.renderN(inputs, output[:])
}

func (f *Shelf) RenderPartial(inputs []dspnode.Input, b dspnode.Buffers, output []float32) {
	f.renderN(inputs, output)
}

func (f *Shelf) renderN(inputs []dspnode.Input, output []float32) {
	signal, cutoff, gainDB := inputs[0], inputs[1], inputs[2]
	for i := range output {
		low, _, high := f.core.tick(float64(signal.At(i)), float64(cutoff.At(i)), 0.707)
		gain := math.Pow(10, float64(gainDB.At(i))/20)
		output[i] = float32(low*gain + high)
	}
}
