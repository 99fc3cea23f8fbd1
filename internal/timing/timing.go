// Package timing maps musical time — beats, measures, tempo, time
// signatures — onto sample offsets at the engine sample rate, using
// exact rational arithmetic throughout so that long renders never drift.
package timing

import (
	"math/big"

	"github.com/tonegraph/euphony/internal/ratio"
)

// Beat is a fractional beat count in 1/Denom units.
type Beat = ratio.Ratio[uint64]

// Measure is a fractional measure count.
type Measure = ratio.Ratio[uint64]

// Tempo is beats per minute, exact.
type Tempo = ratio.Ratio[uint64]

// Interval is a pitch offset in octave-units of some mode system.
type Interval = ratio.Ratio[int64]

// TimeSignature is a numerator/denominator pair, e.g. 4/4.
type TimeSignature struct {
	Numerator   uint64
	Denominator uint64
}

// SampleOffset is a monotonically increasing count of audio frames since
// the timeline origin, at the engine sample rate.
type SampleOffset uint64

// DefaultRate is the engine sample rate asserted throughout the tested
// paths of the system. The compiler converts ticks to samples at this
// rate unconditionally; it has no per-compile sample-rate setting.
const DefaultRate = 48_000

// Since returns the number of samples between base and t, treating t as
// occurring at or after base.
func (t SampleOffset) Since(base SampleOffset) SampleOffset {
	if t < base {
		return 0
	}
	return t - base
}

// ToBytes renders the offset as 8 big-endian bytes, the representation
// used when a sample offset is folded into a content hash.
func (t SampleOffset) ToBytes() [8]byte {
	var b [8]byte
	v := uint64(t)
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}

// Ratio128 is an exact rational with a big.Int numerator and denominator,
// used for samples_per_tick so that per-tick sample counts never drift
// even over very long timelines or unusual tempi.
type Ratio128 struct {
	Num   *big.Int
	Denom *big.Int
}

func newRatio128(num, denom *big.Int) Ratio128 {
	g := new(big.Int).GCD(nil, nil, new(big.Int).Abs(num), new(big.Int).Abs(denom))
	if g.Sign() == 0 {
		g.SetInt64(1)
	}
	n := new(big.Int).Div(num, g)
	d := new(big.Int).Div(denom, g)
	if d.Sign() < 0 {
		n.Neg(n)
		d.Neg(d)
	}
	return Ratio128{Num: n, Denom: d}
}

// DefaultSamplesPerTick returns the samples-per-tick ratio implied by the
// default engine configuration before any SetTiming command has run.
func DefaultSamplesPerTick() Ratio128 {
	return SamplesPerTick(DefaultRate, 500_000_000, 192)
}

// SamplesPerTick computes samples_per_tick = sampleRate * nanosPerTick /
// (1 second in nanoseconds): a tick's duration converted to samples.
// ticksPerBeat does not enter the result.
func SamplesPerTick(sampleRate uint64, nanosPerTick uint64, ticksPerBeat uint64) Ratio128 {
	_ = ticksPerBeat // ticksPerBeat informs tick resolution upstream; samples-per-tick is purely a function of nanosPerTick and rate.
	num := new(big.Int).Mul(big.NewInt(int64(sampleRate)), big.NewInt(int64(nanosPerTick)))
	den := big.NewInt(1_000_000_000)
	return newRatio128(num, den)
}

// MulTicks computes floor(r * ticks) using exact big-integer arithmetic,
// returning ok=false if the result overflows a uint64.
func (r Ratio128) MulTicks(ticks uint64) (samples uint64, ok bool) {
	prod := new(big.Int).Mul(r.Num, big.NewInt(0).SetUint64(ticks))
	quot := new(big.Int).Div(prod, r.Denom)
	if !quot.IsUint64() {
		return 0, false
	}
	return quot.Uint64(), true
}
