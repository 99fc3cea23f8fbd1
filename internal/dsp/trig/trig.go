// Package trig implements elementwise transcendental processors applied
// to a single dynamic or constant signal input.
package trig

import (
	"math"

	"github.com/tonegraph/euphony/internal/dspnode"
)

// Processor IDs occupy the 150-199 block.
const (
	IDSin  = 150
	IDCos  = 151
	IDTan  = 152
	IDExp  = 153
	IDLog  = 154
	IDSqrt = 155
)

type unary struct {
	apply func(float32) float32
}

func (p *unary) Inputs() int { return 1 }

func (p *unary) Render(inputs []dspnode.Input, _ dspnode.Buffers, output *[dspnode.BatchSize]float32) {
	p.renderN(inputs, output[:])
}

func (p *unary) RenderPartial(inputs []dspnode.Input, _ dspnode.Buffers, output []float32) {
	p.renderN(inputs, output)
}

func (p *unary) renderN(inputs []dspnode.Input, output []float32) {
	in := inputs[0]
	for i := range output {
		output[i] = p.apply(in.At(i))
	}
}

// Sin returns a processor computing sin(x), x in radians.
func Sin() dspnode.Processor {
	return &unary{apply: func(x float32) float32 { return float32(math.Sin(float64(x))) }}
}

// Cos returns a processor computing cos(x), x in radians.
func Cos() dspnode.Processor {
	return &unary{apply: func(x float32) float32 { return float32(math.Cos(float64(x))) }}
}

// Tan returns a processor computing tan(x), x in radians.
func Tan() dspnode.Processor {
	return &unary{apply: func(x float32) float32 { return float32(math.Tan(float64(x))) }}
}

// Exp returns a processor computing e^x.
func Exp() dspnode.Processor {
	return &unary{apply: func(x float32) float32 { return float32(math.Exp(float64(x))) }}
}

// Log returns a processor computing the natural log of x. Non-positive x
// follows math.Log's NaN/-Inf convention, propagated rather than guarded
// against: a silent node should never mask a composer's out-of-range
// input.
func Log() dspnode.Processor {
	return &unary{apply: func(x float32) float32 { return float32(math.Log(float64(x))) }}
}

// Sqrt returns a processor computing the square root of x.
func Sqrt() dspnode.Processor {
	return &unary{apply: func(x float32) float32 { return float32(math.Sqrt(float64(x))) }}
}
