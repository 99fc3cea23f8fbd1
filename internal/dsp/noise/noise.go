// Package noise implements stochastic signal sources: white, pink,
// brown, and a maximum-length-sequence pseudo-random generator.
package noise

import "github.com/tonegraph/euphony/internal/dspnode"

// Processor IDs occupy the 250-299 block.
const (
	IDWhite = 250
	IDPink  = 251
	IDBrown = 252
	IDMLS   = 253
)

// xorshift64 is the shared pseudo-random core: fast, seedable, and
// deterministic across renders given the same seed, which content
// hashing depends on.
type xorshift64 struct{ state uint64 }

func newXorshift64(seed uint64) xorshift64 {
	if seed == 0 {
		seed = 0x9e3779b97f4a7c15
	}
	return xorshift64{state: seed}
}

func (x *xorshift64) next() uint64 {
	s := x.state
	s ^= s << 13
	s ^= s >> 7
	s ^= s << 17
	x.state = s
	return s
}

// unit returns a uniform float32 in [-1, 1) derived from the generator's
// next 64-bit draw.
func (x *xorshift64) unit() float32 {
	v := x.next() >> 40 // top 24 bits, enough precision for float32
	return float32(v)/float32(1<<23) - 1
}

// White is a uniform white-noise source with no parameter inputs.
type White struct{ rng xorshift64 }

// NewWhite returns a White noise source seeded deterministically.
func NewWhite(seed uint64) dspnode.Processor { return &White{rng: newXorshift64(seed)} }

func (w *White) Inputs() int { return 0 }

func (w *White) Render(_ []dspnode.Input, _ dspnode.Buffers, output *[dspnode.BatchSize]float32) {
	w.renderN(output[:])
}

func (w *White) RenderPartial(_ []dspnode.Input, _ dspnode.Buffers, output []float32) {
	w.renderN(output)
}

func (w *White) renderN(output []float32) {
	for i := range output {
		output[i] = w.rng.unit()
	}
}

// Pink is a noise source shaped towards equal energy per octave via the
// Paul Kellet economy three-pole approximation, a compact IIR well suited
// to per-sample streaming.
type Pink struct {
	rng        xorshift64
	b0, b1, b2 float32
}

// NewPink returns a Pink noise source seeded deterministically.
func NewPink(seed uint64) dspnode.Processor { return &Pink{rng: newXorshift64(seed)} }

func (p *Pink) Inputs() int { return 0 }

func (p *Pink) Render(_ []dspnode.Input, _ dspnode.Buffers, output *[dspnode.BatchSize]float32) {
	p.renderN(output[:])
}

func (p *Pink) RenderPartial(_ []dspnode.Input, _ dspnode.Buffers, output []float32) {
	p.renderN(output)
}

func (p *Pink) renderN(output []float32) {
	for i := range output {
		white := p.rng.unit()
		p.b0 = 0.99886*p.b0 + white*0.0555179
		p.b1 = 0.99332*p.b1 + white*0.0750759
		p.b2 = 0.96900*p.b2 + white*0.1538520
		output[i] = (p.b0 + p.b1 + p.b2 + white*0.1848) * 0.2
	}
}

// Brown is a noise source with a -6dB/octave rolloff, produced by
// integrating (running-summing) white noise and leaking the sum back
// towards zero to stay bounded.
type Brown struct {
	rng   xorshift64
	accum float32
}

// NewBrown returns a Brown noise source seeded deterministically.
func NewBrown(seed uint64) dspnode.Processor { return &Brown{rng: newXorshift64(seed)} }

func (b *Brown) Inputs() int { return 0 }

func (b *Brown) Render(_ []dspnode.Input, _ dspnode.Buffers, output *[dspnode.BatchSize]float32) {
	b.renderN(output[:])
}

func (b *Brown) RenderPartial(_ []dspnode.Input, _ dspnode.Buffers, output []float32) {
	b.renderN(output)
}

func (b *Brown) renderN(output []float32) {
	const leak = 0.02
	for i := range output {
		white := b.rng.unit()
		b.accum = (1-leak)*b.accum + white*0.05
		if b.accum > 1 {
			b.accum = 1
		} else if b.accum < -1 {
			b.accum = -1
		}
		output[i] = b.accum
	}
}

// MLS is a maximum-length-sequence generator driven by a Galois linear
// feedback shift register, producing a deterministic pseudo-random
// bitstream mapped to ±1 — useful as a repeatable impulse-response
// excitation signal.
type MLS struct {
	register uint32
	taps     uint32
}

// NewMLS returns an MLS generator. taps is the LFSR feedback polynomial;
// a 0 taps value defaults to the maximal-length 32-bit polynomial
// 0x80200003.
func NewMLS(seed uint32, taps uint32) dspnode.Processor {
	if seed == 0 {
		seed = 1
	}
	if taps == 0 {
		taps = 0x80200003
	}
	return &MLS{register: seed, taps: taps}
}

func (m *MLS) Inputs() int { return 0 }

func (m *MLS) Render(_ []dspnode.Input, _ dspnode.Buffers, output *[dspnode.BatchSize]float32) {
	m.renderN(output[:])
}

func (m *MLS) RenderPartial(_ []dspnode.Input, _ dspnode.Buffers, output []float32) {
	m.renderN(output)
}

func (m *MLS) renderN(output []float32) {
	for i := range output {
		bit := m.register & 1
		if bit != 0 {
			m.register = (m.register >> 1) ^ m.taps
		} else {
			m.register >>= 1
		}
		if bit != 0 {
			output[i] = 1
		} else {
			output[i] = -1
		}
	}
}
