// Package playback implements sample-accurate playback of a loaded
// buffer through the processor ABI's Buffers binding.
package playback

import (
	"math"

	"github.com/tonegraph/euphony/internal/dspnode"
)

// IDBufferPlayback is the BufferPlayback processor's id, in the 500-549
// block.
const IDBufferPlayback = 500

// BufferPlayback reads linearly-interpolated samples from the buffer
// bound at parameter index 0, advancing its read position by a
// per-sample rate input (1.0 is unity speed) and holding silence once
// the end of the buffer is reached.
type BufferPlayback struct {
	pos float64
}

// NewBufferPlayback returns a fresh BufferPlayback processor.
func NewBufferPlayback() dspnode.Processor { return &BufferPlayback{} }

func (p *BufferPlayback) Inputs() int { return 1 }

func (p *BufferPlayback) Render(inputs []dspnode.Input, buffers dspnode.Buffers, output *[dspnode.BatchSize]float32) {
	p.renderN(inputs, buffers, output[:])
}

func (p *BufferPlayback) RenderPartial(inputs []dspnode.Input, buffers dspnode.Buffers, output []float32) {
	p.renderN(inputs, buffers, output)
}

func (p *BufferPlayback) renderN(inputs []dspnode.Input, buffers dspnode.Buffers, output []float32) {
	rate := inputs[0]
	samples, ok := buffers.Channel(0)
	if !ok || len(samples) == 0 {
		for i := range output {
			output[i] = 0
		}
		return
	}
	n := len(samples)
	for i := range output {
		if p.pos >= float64(n-1) {
			output[i] = 0
			continue
		}
		i0 := int(p.pos)
		frac := p.pos - math.Floor(p.pos)
		var s1 float32
		if i0+1 < n {
			s1 = samples[i0+1]
		}
		output[i] = samples[i0] + float32(frac)*(s1-samples[i0])
		p.pos += float64(rate.At(i))
		if p.pos < 0 {
			p.pos = 0
		}
	}
}
