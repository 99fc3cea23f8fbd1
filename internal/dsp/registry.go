// Package dsp assembles the processor family packages into a single
// registry keyed by processor id, the lookup the compiler uses to
// validate SpawnNode commands and the render graph uses to instantiate
// processor state.
package dsp

import (
	"github.com/tonegraph/euphony/internal/dsp/arith"
	"github.com/tonegraph/euphony/internal/dsp/envelope"
	"github.com/tonegraph/euphony/internal/dsp/filter"
	"github.com/tonegraph/euphony/internal/dsp/noise"
	"github.com/tonegraph/euphony/internal/dsp/osc"
	"github.com/tonegraph/euphony/internal/dsp/playback"
	"github.com/tonegraph/euphony/internal/dsp/shaper"
	"github.com/tonegraph/euphony/internal/dsp/trig"
	"github.com/tonegraph/euphony/internal/dspnode"
)

// Registry constructs fresh Processor instances for a given sample rate.
// Oscillators, filters, and playback need the rate at construction time;
// stateless families ignore it.
type Registry struct {
	sampleRate float64
	factories  map[uint64]dspnode.Factory
}

// NewRegistry builds the standard library of processors for sampleRate.
func NewRegistry(sampleRate float64) *Registry {
	r := &Registry{sampleRate: sampleRate, factories: make(map[uint64]dspnode.Factory)}

	r.register(arith.IDAdd, arith.Add)
	r.register(arith.IDSub, arith.Sub)
	r.register(arith.IDMul, arith.Mul)
	r.register(arith.IDDiv, arith.Div)
	r.register(arith.IDRem, arith.Rem)
	r.register(arith.IDClamp, arith.NewClamp)
	r.register(arith.IDMulAdd, arith.NewMulAdd)
	r.register(arith.IDSelect, arith.NewSelect)

	r.register(trig.IDSin, trig.Sin)
	r.register(trig.IDCos, trig.Cos)
	r.register(trig.IDTan, trig.Tan)
	r.register(trig.IDExp, trig.Exp)
	r.register(trig.IDLog, trig.Log)
	r.register(trig.IDSqrt, trig.Sqrt)

	r.register(osc.IDSine, func() dspnode.Processor { return osc.NewSine(sampleRate) })
	r.register(osc.IDPulse, func() dspnode.Processor { return osc.NewPulse(sampleRate) })
	r.register(osc.IDSaw, func() dspnode.Processor { return osc.NewSaw(sampleRate) })
	r.register(osc.IDTriangle, func() dspnode.Processor { return osc.NewTriangle(sampleRate) })
	r.register(osc.IDNESPulse, func() dspnode.Processor { return osc.NewNESPulse(sampleRate) })
	r.register(osc.IDNESTriangle, func() dspnode.Processor { return osc.NewNESTriangle(sampleRate) })
	r.register(osc.IDWavetable, func() dspnode.Processor { return osc.NewWavetable(sampleRate, nil) })

	r.register(noise.IDWhite, func() dspnode.Processor { return noise.NewWhite(0) })
	r.register(noise.IDPink, func() dspnode.Processor { return noise.NewPink(0) })
	r.register(noise.IDBrown, func() dspnode.Processor { return noise.NewBrown(0) })
	r.register(noise.IDMLS, func() dspnode.Processor { return noise.NewMLS(0, 0) })

	r.register(filter.IDButterpass, func() dspnode.Processor { return filter.NewButterpass(sampleRate) })
	r.register(filter.IDLowpole, func() dspnode.Processor { return filter.NewLowpole(sampleRate) })
	r.register(filter.IDMoog, func() dspnode.Processor { return filter.NewMoog(sampleRate) })
	r.register(filter.IDLowpass, func() dspnode.Processor { return filter.NewLowpass(sampleRate) })
	r.register(filter.IDHighpass, func() dspnode.Processor { return filter.NewHighpass(sampleRate) })
	r.register(filter.IDBandpass, func() dspnode.Processor { return filter.NewBandpass(sampleRate) })
	r.register(filter.IDNotch, func() dspnode.Processor { return filter.NewNotch(sampleRate) })
	r.register(filter.IDPeak, func() dspnode.Processor { return filter.NewPeak(sampleRate) })
	r.register(filter.IDAllpass, func() dspnode.Processor { return filter.NewAllpass(sampleRate) })
	r.register(filter.IDBell, func() dspnode.Processor { return filter.NewBell(sampleRate) })
	r.register(filter.IDShelf, func() dspnode.Processor { return filter.NewShelf(sampleRate) })

	r.register(envelope.IDRamp, envelope.NewRamp)

	r.register(playback.IDBufferPlayback, playback.NewBufferPlayback)

	r.register(shaper.IDWaveShaper, func() dspnode.Processor { return shaper.NewWaveShaper(nil) })

	return r
}

func (r *Registry) register(id uint64, f dspnode.Factory) {
	r.factories[id] = f
}

// Lookup returns the factory for processorID, mirroring the original's
// processor-name lookup used to validate a SpawnNode command before the
// node is added to the graph.
func (r *Registry) Lookup(processorID uint64) (dspnode.Factory, bool) {
	f, ok := r.factories[processorID]
	return f, ok
}

// Exists reports whether processorID names a registered processor,
// satisfying compiler.ProcessorLookup.
func (r *Registry) Exists(processorID uint64) bool {
	_, ok := r.factories[processorID]
	return ok
}
