// Package arith implements elementwise arithmetic processors: the
// building blocks composer code uses to combine signals before they
// reach an oscillator or filter's parameter slots.
package arith

import (
	"math"

	"github.com/tonegraph/euphony/internal/dspnode"
)

// Processor IDs occupy the 100-149 block; each family owns its own block
// of ids to mirror the original's per-module numbering.
const (
	IDAdd    = 100
	IDSub    = 101
	IDMul    = 102
	IDDiv    = 103
	IDRem    = 104
	IDClamp  = 105
	IDMulAdd = 106
	IDSelect = 107
)

type binaryOp struct {
	apply func(lhs, rhs float32) float32
}

func (p *binaryOp) Inputs() int { return 2 }

func (p *binaryOp) Render(inputs []dspnode.Input, _ dspnode.Buffers, output *[dspnode.BatchSize]float32) {
	p.renderN(inputs, output[:])
}

func (p *binaryOp) RenderPartial(inputs []dspnode.Input, _ dspnode.Buffers, output []float32) {
	p.renderN(inputs, output)
}

func (p *binaryOp) renderN(inputs []dspnode.Input, output []float32) {
	lhs, rhs := inputs[0], inputs[1]
	for i := range output {
		output[i] = p.apply(lhs.At(i), rhs.At(i))
	}
}

// Add returns a processor computing lhs + rhs.
func Add() dspnode.Processor { return &binaryOp{apply: func(a, b float32) float32 { return a + b }} }

// Sub returns a processor computing lhs - rhs.
func Sub() dspnode.Processor { return &binaryOp{apply: func(a, b float32) float32 { return a - b }} }

// Mul returns a processor computing lhs * rhs.
func Mul() dspnode.Processor { return &binaryOp{apply: func(a, b float32) float32 { return a * b }} }

// Div returns a processor computing lhs / rhs. Division by zero follows
// IEEE 754 float semantics (±Inf or NaN), matching the interior float32
// arithmetic used throughout the graph.
func Div() dspnode.Processor { return &binaryOp{apply: func(a, b float32) float32 { return a / b }} }

// Rem returns a processor computing the floating-point remainder of lhs
// divided by rhs, sign-of-dividend, matching Go's % on floats via Mod.
func Rem() dspnode.Processor {
	return &binaryOp{apply: func(a, b float32) float32 {
		return float32(math.Mod(float64(a), float64(b)))
	}}
}

// Clamp bounds the signal input between lo and hi.
type Clamp struct{}

func (Clamp) Inputs() int { return 3 }

func (c Clamp) Render(inputs []dspnode.Input, _ dspnode.Buffers, output *[dspnode.BatchSize]float32) {
	c.renderN(inputs, output[:])
}

func (c Clamp) RenderPartial(inputs []dspnode.Input, _ dspnode.Buffers, output []float32) {
	c.renderN(inputs, output)
}

func (Clamp) renderN(inputs []dspnode.Input, output []float32) {
	signal, lo, hi := inputs[0], inputs[1], inputs[2]
	for i := range output {
		v, l, h := signal.At(i), lo.At(i), hi.At(i)
		switch {
		case v < l:
			output[i] = l
		case v > h:
			output[i] = h
		default:
			output[i] = v
		}
	}
}

// NewClamp returns a fresh Clamp processor.
func NewClamp() dspnode.Processor { return Clamp{} }

// MulAdd computes a*b + c in a single fused pass, the ABI's dedicated
// multiply-accumulate op for gain-staged mixing chains.
type MulAdd struct{}

func (MulAdd) Inputs() int { return 3 }

func (p MulAdd) Render(inputs []dspnode.Input, _ dspnode.Buffers, output *[dspnode.BatchSize]float32) {
	p.renderN(inputs, output[:])
}

func (p MulAdd) RenderPartial(inputs []dspnode.Input, _ dspnode.Buffers, output []float32) {
	p.renderN(inputs, output)
}

func (MulAdd) renderN(inputs []dspnode.Input, output []float32) {
	a, b, c := inputs[0], inputs[1], inputs[2]
	for i := range output {
		output[i] = a.At(i)*b.At(i) + c.At(i)
	}
}

// NewMulAdd returns a fresh MulAdd processor.
func NewMulAdd() dspnode.Processor { return MulAdd{} }

// Select picks between two signals based on a gate: gate <= 0 selects
// the first signal, gate > 0 selects the second.
type Select struct{}

func (Select) Inputs() int { return 3 }

func (p Select) Render(inputs []dspnode.Input, _ dspnode.Buffers, output *[dspnode.BatchSize]float32) {
	p.renderN(inputs, output[:])
}

func (p Select) RenderPartial(inputs []dspnode.Input, _ dspnode.Buffers, output []float32) {
	p.renderN(inputs, output)
}

func (Select) renderN(inputs []dspnode.Input, output []float32) {
	gate, a, b := inputs[0], inputs[1], inputs[2]
	for i := range output {
		if gate.At(i) > 0 {
			output[i] = b.At(i)
		} else {
			output[i] = a.At(i)
		}
	}
}

// NewSelect returns a fresh Select processor.
func NewSelect() dspnode.Processor { return Select{} }
