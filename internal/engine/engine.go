// Package engine drives a compiler.Result's scheduled instructions
// against a fresh render graph, capturing each sink's full rendered
// timeline. It is the glue between the compiler and the render graph —
// neither package depends on the other, so something has to walk the
// instruction stream and call Spawn/Set/Pipe/BindBuffer/RenderBatch in
// the right order.
package engine

import (
	"context"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/tonegraph/euphony/internal/compiler"
	"github.com/tonegraph/euphony/internal/dsp"
	"github.com/tonegraph/euphony/internal/dspnode"
	"github.com/tonegraph/euphony/internal/graph"
)

// passthrough is the render-graph counterpart of the compiler's reserved
// processor id 0 (a sink/group-bus placeholder, not a real DSP
// processor): it has one input slot and copies it straight to output.
type passthrough struct{}

func (passthrough) Inputs() int { return 1 }

func (passthrough) Render(inputs []dspnode.Input, _ dspnode.Buffers, output *[dspnode.BatchSize]float32) {
	in := inputs[0]
	for i := range output {
		output[i] = in.At(i)
	}
}

func (passthrough) RenderPartial(inputs []dspnode.Input, _ dspnode.Buffers, output []float32) {
	in := inputs[0]
	for i := range output {
		output[i] = in.At(i)
	}
}

// Run renders every instruction in result against a fresh graph and
// returns each sink node's full accumulated output, keyed by sink id.
//
// Instructions are applied in fixed dspnode.BatchSize windows: every
// instruction whose offset falls within the window about to render is
// applied before that batch renders, so an event takes effect from the
// start of the batch its offset falls in, up to BatchSize-1 samples
// before the exact sample the compiler recorded.
// The render graph and compiler are both sample-exact; this
// quantization is a property of this driver alone, which spec.md leaves
// unspecified (§6: "CLI surface ... deliberately unspecified").
func Run(ctx context.Context, result *compiler.Result, registry *dsp.Registry) (map[uint64][]float32, error) {
	g := graph.New()
	sinkIDs := mapset.NewThreadUnsafeSet[uint64]()
	finished := mapset.NewThreadUnsafeSet[uint64]()
	accum := make(map[uint64][]float32)

	instructions := result.Instructions

	var maxEnd uint64
	for _, sink := range result.Sinks {
		if end := uint64(sink.End); end > maxEnd {
			maxEnd = end
		}
	}
	for _, inst := range instructions {
		if end := uint64(inst.Offset); end > maxEnd {
			maxEnd = end
		}
		if inst.Kind == compiler.KindRender && uint64(inst.RenderEnd) > maxEnd {
			maxEnd = uint64(inst.RenderEnd)
		}
	}

	idx := 0
	// applyUpTo applies every instruction due before limit except
	// KindFinish, which it defers and returns instead: a node must keep
	// rendering through the batch its finish offset falls in, so
	// removing it from the graph has to wait until after that batch
	// renders and its output is captured.
	applyUpTo := func(limit uint64) ([]compiler.Instruction, error) {
		var deferredFinishes []compiler.Instruction
		for idx < len(instructions) && uint64(instructions[idx].Offset) < limit {
			inst := instructions[idx]
			if inst.Kind == compiler.KindFinish {
				deferredFinishes = append(deferredFinishes, inst)
				idx++
				continue
			}
			if err := applyInstruction(g, registry, result, inst, sinkIDs, accum, finished); err != nil {
				return nil, err
			}
			idx++
		}
		return deferredFinishes, nil
	}

	pos := uint64(0)
	for pos < maxEnd {
		batchEnd := pos + uint64(dspnode.BatchSize)
		if batchEnd > maxEnd {
			batchEnd = maxEnd
		}
		deferredFinishes, err := applyUpTo(batchEnd)
		if err != nil {
			return nil, err
		}

		n := int(batchEnd - pos)
		if n == dspnode.BatchSize {
			err = g.RenderBatch(ctx)
		} else {
			err = g.RenderPartial(ctx, n)
		}
		if err != nil {
			return nil, fmt.Errorf("engine: render batch at %d: %w", pos, err)
		}

		for _, id := range sinkIDs.ToSlice() {
			if finished.Contains(id) {
				continue
			}
			accum[id] = append(accum[id], g.Output(id)...)
		}

		for _, inst := range deferredFinishes {
			if err := applyInstruction(g, registry, result, inst, sinkIDs, accum, finished); err != nil {
				return nil, err
			}
		}
		pos = batchEnd
	}

	// Trailing instructions scheduled exactly at the render's final
	// sample (a Finish coinciding with maxEnd) never fall inside a
	// render window; flush them now so callers relying on `finished`
	// or node teardown see consistent state.
	deferredFinishes, err := applyUpTo(maxEnd + 1)
	if err != nil {
		return nil, err
	}
	for _, inst := range deferredFinishes {
		if err := applyInstruction(g, registry, result, inst, sinkIDs, accum, finished); err != nil {
			return nil, err
		}
	}

	return accum, nil
}

func applyInstruction(
	g *graph.Graph,
	registry *dsp.Registry,
	result *compiler.Result,
	inst compiler.Instruction,
	sinkIDs mapset.Set[uint64],
	accum map[uint64][]float32,
	finished mapset.Set[uint64],
) error {
	switch inst.Kind {
	case compiler.KindSpawnProcessor:
		if inst.Processor == 0 {
			g.Spawn(inst.Node, passthrough{})
			sinkIDs.Add(inst.Node)
			return nil
		}
		factory, ok := registry.Lookup(inst.Processor)
		if !ok {
			return fmt.Errorf("engine: no processor registered for id %d", inst.Processor)
		}
		g.Spawn(inst.Node, factory())

	case compiler.KindSetParam:
		g.Set(inst.Node, inst.Param, inst.Value)

	case compiler.KindPipe:
		g.Pipe(inst.Node, inst.Param, inst.Source)

	case compiler.KindSetBuffer:
		var samples []float32
		if data, ok := result.Buffers[inst.Buffer]; ok && int(inst.BufferChannel) < len(data.Channels) {
			samples = data.Channels[inst.BufferChannel]
		}
		g.BindBuffer(inst.Node, int(inst.Param), inst.Buffer, samples)

	case compiler.KindFinish:
		g.Finish(inst.Node)
		finished.Add(inst.Node)

	case compiler.KindRender:
		// A scheduling marker recording the node's active span; the
		// batch loop above renders continuously and needs no extra
		// action here.
	}
	return nil
}
