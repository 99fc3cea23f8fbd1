// Package osc implements phase-accumulator oscillators, all sharing the
// same frequency-to-phase-increment convention: phase runs in [0, 1) and
// advances by freq/sampleRate each sample.
package osc

import (
	"math"

	"github.com/tonegraph/euphony/internal/dspnode"
)

// Processor IDs occupy the 200-249 block.
const (
	IDSine        = 200
	IDPulse       = 201
	IDSaw         = 202
	IDTriangle    = 203
	IDNESPulse    = 204
	IDNESTriangle = 205
	IDWavetable   = 206
)

const twoPi = 2 * math.Pi

func wrapPhase(p float64) float64 {
	p -= math.Floor(p)
	return p
}

// phaseOsc is the shared state and stepping logic for every phase-driven
// oscillator: a running phase in [0, 1) and the sample rate used to
// convert a frequency input into a phase increment.
type phaseOsc struct {
	phase      float64
	sampleRate float64
}

func newPhaseOsc(sampleRate float64) phaseOsc {
	if sampleRate <= 0 {
		sampleRate = 48_000
	}
	return phaseOsc{sampleRate: sampleRate}
}

func (p *phaseOsc) step(freq float32) float64 {
	cur := p.phase
	p.phase = wrapPhase(p.phase + float64(freq)/p.sampleRate)
	return cur
}

// Sine is a sine-wave oscillator. Input 0 is frequency in Hz.
type Sine struct{ phaseOsc }

// NewSine returns a Sine oscillator running at the given sample rate.
func NewSine(sampleRate float64) dspnode.Processor { return &Sine{newPhaseOsc(sampleRate)} }

func (o *Sine) Inputs() int { return 1 }

func (o *Sine) Render(inputs []dspnode.Input, _ dspnode.Buffers, output *[dspnode.BatchSize]float32) {
	o.renderN(inputs, output[:])
}

func (o *Sine) RenderPartial(inputs []dspnode.Input, _ dspnode.Buffers, output []float32) {
	o.renderN(inputs, output)
}

func (o *Sine) renderN(inputs []dspnode.Input, output []float32) {
	freq := inputs[0]
	for i := range output {
		ph := o.step(freq.At(i))
		output[i] = float32(math.Sin(twoPi * ph))
	}
}

// Pulse is a variable-duty pulse oscillator. Input 0 is frequency in Hz,
// input 1 is duty cycle in [0, 1].
type Pulse struct{ phaseOsc }

// NewPulse returns a Pulse oscillator running at the given sample rate.
func NewPulse(sampleRate float64) dspnode.Processor { return &Pulse{newPhaseOsc(sampleRate)} }

func (o *Pulse) Inputs() int { return 2 }

func (o *Pulse) Render(inputs []dspnode.Input, _ dspnode.Buffers, output *[dspnode.BatchSize]float32) {
	o.renderN(inputs, output[:])
}

func (o *Pulse) RenderPartial(inputs []dspnode.Input, _ dspnode.Buffers, output []float32) {
	o.renderN(inputs, output)
}

func (o *Pulse) renderN(inputs []dspnode.Input, output []float32) {
	freq, duty := inputs[0], inputs[1]
	for i := range output {
		ph := o.step(freq.At(i))
		if ph < float64(duty.At(i)) {
			output[i] = 1
		} else {
			output[i] = -1
		}
	}
}

// Saw is a band-unlimited sawtooth oscillator ramping from -1 to 1 across
// each cycle. Input 0 is frequency in Hz.
type Saw struct{ phaseOsc }

// NewSaw returns a Saw oscillator running at the given sample rate.
func NewSaw(sampleRate float64) dspnode.Processor { return &Saw{newPhaseOsc(sampleRate)} }

func (o *Saw) Inputs() int { return 1 }

func (o *Saw) Render(inputs []dspnode.Input, _ dspnode.Buffers, output *[dspnode.BatchSize]float32) {
	o.renderN(inputs, output[:])
}

func (o *Saw) RenderPartial(inputs []dspnode.Input, _ dspnode.Buffers, output []float32) {
	o.renderN(inputs, output)
}

func (o *Saw) renderN(inputs []dspnode.Input, output []float32) {
	freq := inputs[0]
	for i := range output {
		ph := o.step(freq.At(i))
		output[i] = float32(2*ph - 1)
	}
}

// Triangle is a band-unlimited triangle oscillator. Input 0 is frequency
// in Hz.
type Triangle struct{ phaseOsc }

// NewTriangle returns a Triangle oscillator running at the given sample
// rate.
func NewTriangle(sampleRate float64) dspnode.Processor { return &Triangle{newPhaseOsc(sampleRate)} }

func (o *Triangle) Inputs() int { return 1 }

func (o *Triangle) Render(inputs []dspnode.Input, _ dspnode.Buffers, output *[dspnode.BatchSize]float32) {
	o.renderN(inputs, output[:])
}

func (o *Triangle) RenderPartial(inputs []dspnode.Input, _ dspnode.Buffers, output []float32) {
	o.renderN(inputs, output)
}

func (o *Triangle) renderN(inputs []dspnode.Input, output []float32) {
	freq := inputs[0]
	for i := range output {
		ph := o.step(freq.At(i))
		output[i] = float32(4*math.Abs(ph-0.5) - 1)
	}
}

// nesSteps are the four duty-cycle quantization levels the NES APU's
// pulse channel cycles through, reproduced for NESPulse's stepped
// quantization rather than Pulse's continuous duty parameter.
var nesSteps = [4]float64{0.125, 0.25, 0.5, 0.75}

// NESPulse reproduces the NES APU pulse channel's four quantized duty
// cycles selected by an integer input 1 in [0, 3]. Input 0 is frequency
// in Hz.
type NESPulse struct{ phaseOsc }

// NewNESPulse returns an NESPulse oscillator running at the given sample
// rate.
func NewNESPulse(sampleRate float64) dspnode.Processor { return &NESPulse{newPhaseOsc(sampleRate)} }

func (o *NESPulse) Inputs() int { return 2 }

func (o *NESPulse) Render(inputs []dspnode.Input, _ dspnode.Buffers, output *[dspnode.BatchSize]float32) {
	o.renderN(inputs, output[:])
}

func (o *NESPulse) RenderPartial(inputs []dspnode.Input, _ dspnode.Buffers, output []float32) {
	o.renderN(inputs, output)
}

func (o *NESPulse) renderN(inputs []dspnode.Input, output []float32) {
	freq, dutySel := inputs[0], inputs[1]
	for i := range output {
		ph := o.step(freq.At(i))
		sel := int(dutySel.At(i))
		if sel < 0 || sel > 3 {
			sel = 0
		}
		if ph < nesSteps[sel] {
			output[i] = 1
		} else {
			output[i] = -1
		}
	}
}

// NESTriangle reproduces the NES APU triangle channel's 32-step
// quantized staircase approximation of a triangle wave. Input 0 is
// frequency in Hz.
type NESTriangle struct{ phaseOsc }

// NewNESTriangle returns an NESTriangle oscillator running at the given
// sample rate.
func NewNESTriangle(sampleRate float64) dspnode.Processor {
	return &NESTriangle{newPhaseOsc(sampleRate)}
}

func (o *NESTriangle) Inputs() int { return 1 }

func (o *NESTriangle) Render(inputs []dspnode.Input, _ dspnode.Buffers, output *[dspnode.BatchSize]float32) {
	o.renderN(inputs, output[:])
}

func (o *NESTriangle) RenderPartial(inputs []dspnode.Input, _ dspnode.Buffers, output []float32) {
	o.renderN(inputs, output)
}

func (o *NESTriangle) renderN(inputs []dspnode.Input, output []float32) {
	freq := inputs[0]
	const steps = 32
	for i := range output {
		ph := o.step(freq.At(i))
		step := math.Floor(ph * steps)
		// Fold the 0..31 step count into the NES triangle's
		// 15-down/15-up staircase, mapped to [-1, 1].
		idx := int(step) % steps
		var level int
		if idx < steps/2 {
			level = steps/2 - 1 - idx
		} else {
			level = idx - steps/2
		}
		output[i] = float32(level)/7.5 - 1
	}
}

// Wavetable plays back a fixed, user-supplied single-cycle waveform at a
// controllable frequency, linearly interpolating between table entries.
// Input 0 is frequency in Hz; the waveform itself arrives as a buffer
// binding rather than a parameter input.
type Wavetable struct {
	phaseOsc
	table []float32
}

// NewWavetable returns a Wavetable oscillator reading its single-cycle
// waveform from table (not copied; callers must not mutate it afterward).
func NewWavetable(sampleRate float64, table []float32) dspnode.Processor {
	return &Wavetable{phaseOsc: newPhaseOsc(sampleRate), table: table}
}

func (o *Wavetable) Inputs() int { return 1 }

func (o *Wavetable) Render(inputs []dspnode.Input, buffers dspnode.Buffers, output *[dspnode.BatchSize]float32) {
	o.renderN(inputs, buffers, output[:])
}

func (o *Wavetable) RenderPartial(inputs []dspnode.Input, buffers dspnode.Buffers, output []float32) {
	o.renderN(inputs, buffers, output)
}

func (o *Wavetable) renderN(inputs []dspnode.Input, buffers dspnode.Buffers, output []float32) {
	table := o.table
	if bound, ok := buffers.Channel(0); ok && len(bound) > 0 {
		table = bound
	}
	freq := inputs[0]
	n := len(table)
	for i := range output {
		ph := o.step(freq.At(i))
		if n == 0 {
			output[i] = 0
			continue
		}
		pos := ph * float64(n)
		i0 := int(pos) % n
		i1 := (i0 + 1) % n
		frac := pos - math.Floor(pos)
		output[i] = table[i0] + float32(frac)*(table[i1]-table[i0])
	}
}
