// Package envelope implements time-varying control signal generators.
package envelope

import "github.com/tonegraph/euphony/internal/dspnode"

// IDRamp is the Ramp processor's id, in the 400-449 block.
const IDRamp = 400

// Ramp linearly interpolates its current value towards a target over a
// duration given in samples, holding at the target once reached. Input 0
// is the target value, input 1 is the ramp duration in samples.
type Ramp struct {
	value float64
	// remaining counts down the samples left in the current ramp leg;
	// target/step describe that leg.
	remaining float64
	target    float64
	step      float64
}

// NewRamp returns a Ramp starting at 0.
func NewRamp() dspnode.Processor { return &Ramp{} }

func (r *Ramp) Inputs() int { return 2 }

func (r *Ramp) Render(inputs []dspnode.Input, b dspnode.Buffers, output *[dspnode.BatchSize]float32) {
	r.renderN(inputs, output[:])
}

func (r *Ramp) RenderPartial(inputs []dspnode.Input, b dspnode.Buffers, output []float32) {
	r.renderN(inputs, output)
}

func (r *Ramp) renderN(inputs []dspnode.Input, output []float32) {
	target, duration := inputs[0], inputs[1]
	for i := range output {
		t := float64(target.At(i))
		if t != r.target {
			r.target = t
			d := float64(duration.At(i))
			if d < 1 {
				d = 1
			}
			r.remaining = d
			r.step = (r.target - r.value) / d
		}
		if r.remaining > 0 {
			r.value += r.step
			r.remaining--
			if r.remaining <= 0 {
				r.value = r.target
			}
		}
		output[i] = float32(r.value)
	}
}
