package compiler

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/tonegraph/euphony/internal/command"
	"github.com/tonegraph/euphony/internal/euphash"
)

const sineProcessor = 200

type fakeLookup struct{ known map[uint64]bool }

func (f fakeLookup) Exists(id uint64) bool { return f.known[id] }

func newTestCompiler() *Compiler {
	return New(fakeLookup{known: map[uint64]bool{sineProcessor: true, 300: true}})
}

func u64ptr(v uint64) *uint64 { return &v }

func apply(t *testing.T, c *Compiler, cmds ...command.Command) {
	t.Helper()
	for _, cmd := range cmds {
		if err := c.Apply(cmd); err != nil {
			t.Fatalf("Apply(%#v): %v", cmd, err)
		}
	}
}

func TestSilentSinkRendersAsExpectedEmpty(t *testing.T) {
	c := newTestCompiler()
	apply(t, c,
		command.SetTiming{NanosPerTick: 500_000, TicksPerBeat: 192},
		command.SpawnNode{ID: 1, Processor: 0, Group: u64ptr(0)},
		command.AdvanceTime{Ticks: 192},
	)

	result, err := c.Finalize(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	sink, ok := result.Sinks[1]
	if !ok {
		t.Fatalf("expected sink 1 to exist")
	}
	if sink.Start != 0 {
		t.Fatalf("sink.Start = %d, want 0", sink.Start)
	}
	if sink.End != 48_000 {
		t.Fatalf("sink.End = %d, want 48000", sink.End)
	}
	if sink.Cyclic {
		t.Fatalf("expected an acyclic sink")
	}
	if len(sink.Members) != 1 {
		t.Fatalf("expected exactly the sink's own node as a member, got %d", len(sink.Members))
	}
}

func TestConstantToneWiresPipeAndParameterInstructions(t *testing.T) {
	c := newTestCompiler()
	apply(t, c,
		command.SetTiming{NanosPerTick: 500_000, TicksPerBeat: 192},
		command.SpawnNode{ID: 1, Processor: 0, Group: u64ptr(0)},
		command.SpawnNode{ID: 2, Processor: sineProcessor},
		command.SetParameter{TargetNode: 2, TargetParameter: 0, Value: math.Float64bits(440.0)},
		command.PipeParameter{TargetNode: 1, TargetParameter: 0, SourceNode: 2},
		command.AdvanceTime{Ticks: 192},
	)

	result, err := c.Finalize(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	sink := result.Sinks[1]
	if len(sink.Members) != 2 {
		t.Fatalf("expected sink and sine node as members, got %d", len(sink.Members))
	}

	var sawSpawnSine, sawSetParam, sawPipe bool
	for _, inst := range result.Instructions {
		switch {
		case inst.Kind == KindSpawnProcessor && inst.Node == 2 && inst.Processor == sineProcessor:
			sawSpawnSine = true
		case inst.Kind == KindSetParam && inst.Node == 2 && inst.Value == 440.0:
			sawSetParam = true
		case inst.Kind == KindPipe && inst.Node == 1 && inst.Source == 2:
			sawPipe = true
		}
	}
	if !sawSpawnSine || !sawSetParam || !sawPipe {
		t.Fatalf("missing expected instructions: spawn=%v setparam=%v pipe=%v", sawSpawnSine, sawSetParam, sawPipe)
	}
}

func TestDedupSharesSinkHashAcrossGroups(t *testing.T) {
	c := newTestCompiler()
	build := func(sinkID, nodeID uint64, group uint64) {
		apply(t, c,
			command.SpawnNode{ID: sinkID, Processor: 0, Group: u64ptr(group)},
			command.SpawnNode{ID: nodeID, Processor: sineProcessor},
			command.SetParameter{TargetNode: nodeID, TargetParameter: 0, Value: math.Float64bits(440.0)},
			command.PipeParameter{TargetNode: sinkID, TargetParameter: 0, SourceNode: nodeID},
			command.FinishNode{Node: nodeID},
			command.FinishNode{Node: sinkID},
		)
	}
	build(1, 2, 0)
	build(3, 4, 1)

	result, err := c.Finalize(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if result.Sinks[1].Hash != result.Sinks[3].Hash {
		t.Fatalf("expected identical sinks to share a content hash")
	}
}

func TestCyclicSinkReportedWithoutAbortingOthers(t *testing.T) {
	c := newTestCompiler()
	apply(t, c,
		command.SpawnNode{ID: 1, Processor: 0, Group: u64ptr(0)},
		command.SpawnNode{ID: 2, Processor: 300},
		command.SpawnNode{ID: 3, Processor: 300},
		command.PipeParameter{TargetNode: 2, TargetParameter: 0, SourceNode: 3},
		command.PipeParameter{TargetNode: 3, TargetParameter: 0, SourceNode: 2},
		command.PipeParameter{TargetNode: 1, TargetParameter: 0, SourceNode: 2},

		command.SpawnNode{ID: 10, Processor: 0, Group: u64ptr(0)},
		command.SpawnNode{ID: 11, Processor: sineProcessor},
		command.PipeParameter{TargetNode: 10, TargetParameter: 0, SourceNode: 11},
	)

	result, err := c.Finalize(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	foundCyclic := false
	for _, d := range result.Diagnostics {
		if d.Kind == DiagnosticCyclicSink && d.ID == 1 {
			foundCyclic = true
		}
	}
	if !foundCyclic {
		t.Fatalf("expected a cyclic-sink diagnostic for sink 1")
	}
	if result.Sinks[10].Cyclic {
		t.Fatalf("expected sink 10 to be unaffected by sink 1's cycle")
	}

	var sawPipeIntoAcyclicSink bool
	for _, inst := range result.Instructions {
		if inst.Node == 11 {
			sawPipeIntoAcyclicSink = true
		}
	}
	if !sawPipeIntoAcyclicSink {
		t.Fatalf("expected unrelated sink's node to still emit instructions")
	}
}

func TestMissingNodeError(t *testing.T) {
	c := newTestCompiler()
	err := c.Apply(command.SetParameter{TargetNode: 99, TargetParameter: 0, Value: 0})
	if _, ok := err.(*MissingNodeError); !ok {
		t.Fatalf("got %v (%T), want *MissingNodeError", err, err)
	}
}

func TestNodeIDReusedError(t *testing.T) {
	c := newTestCompiler()
	apply(t, c, command.SpawnNode{ID: 1, Processor: sineProcessor})
	err := c.Apply(command.SpawnNode{ID: 1, Processor: sineProcessor})
	if _, ok := err.(*NodeReusedError); !ok {
		t.Fatalf("got %v (%T), want *NodeReusedError", err, err)
	}
}

func TestUnknownProcessorError(t *testing.T) {
	c := newTestCompiler()
	err := c.Apply(command.SpawnNode{ID: 1, Processor: 999_999})
	if _, ok := err.(*UnknownProcessorError); !ok {
		t.Fatalf("got %v (%T), want *UnknownProcessorError", err, err)
	}
}

func TestPipeFromSinkIsRejected(t *testing.T) {
	c := newTestCompiler()
	apply(t, c,
		command.SpawnNode{ID: 1, Processor: 0, Group: u64ptr(0)},
		command.SpawnNode{ID: 2, Processor: sineProcessor},
	)
	err := c.Apply(command.PipeParameter{TargetNode: 2, TargetParameter: 0, SourceNode: 1})
	if err != ErrSinkSource {
		t.Fatalf("got %v, want ErrSinkSource", err)
	}
}

func TestZeroNanosPerTickRejected(t *testing.T) {
	c := newTestCompiler()
	err := c.Apply(command.SetTiming{NanosPerTick: 0, TicksPerBeat: 192})
	if err != ErrZeroNanosPerTick {
		t.Fatalf("got %v, want ErrZeroNanosPerTick", err)
	}
}

func TestAdvanceTimeZeroTicksIsNoop(t *testing.T) {
	c := newTestCompiler()
	if err := c.Apply(command.AdvanceTime{Ticks: 0}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if c.samples != 0 {
		t.Fatalf("samples = %d, want 0", c.samples)
	}
}

func TestAdvanceTimeOverflowRejected(t *testing.T) {
	c := newTestCompiler()
	c.samples = math.MaxUint64 - 1
	err := c.Apply(command.AdvanceTime{Ticks: math.MaxUint64})
	if err != ErrSampleOverflow {
		t.Fatalf("got %v, want ErrSampleOverflow", err)
	}
}

type failingLoader struct{}

func (failingLoader) Load(_ context.Context, _, _ string) (BufferData, error) {
	return BufferData{}, errDecodeFixture
}

var errDecodeFixture = errors.New("fixture: decode always fails")

func TestBufferDecodeFailureIsNonFatal(t *testing.T) {
	c := newTestCompiler()
	apply(t, c,
		command.SpawnNode{ID: 1, Processor: sineProcessor},
		command.LoadBuffer{ID: 5, Path: "missing.wav", Ext: "wav"},
		command.SetBuffer{TargetNode: 1, TargetParameter: 0, Buffer: 5, BufferChannel: 0},
	)

	result, err := c.Finalize(context.Background(), failingLoader{}, nil)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	found := false
	for _, d := range result.Diagnostics {
		if d.Kind == DiagnosticBufferDecode && d.ID == 5 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a buffer-decode diagnostic")
	}
	if result.Buffers[5].Hash != euphash.Empty {
		t.Fatalf("expected a failed decode to substitute the empty-buffer hash")
	}
}

func TestForkNodeClonesParameterHistory(t *testing.T) {
	c := newTestCompiler()
	apply(t, c,
		command.SpawnNode{ID: 1, Processor: sineProcessor},
		command.SetParameter{TargetNode: 1, TargetParameter: 0, Value: math.Float64bits(220.0)},
		command.ForkNode{Source: 1, Target: 2},
	)
	clone := c.nodes[2]
	if clone.Processor != sineProcessor {
		t.Fatalf("clone.Processor = %d, want %d", clone.Processor, sineProcessor)
	}
	if len(clone.events) != 1 || clone.events[0].value.constant != 220.0 {
		t.Fatalf("expected cloned parameter history, got %+v", clone.events)
	}
}

func TestForkNodeMissingSourceErrors(t *testing.T) {
	c := newTestCompiler()
	err := c.Apply(command.ForkNode{Source: 99, Target: 1})
	if _, ok := err.(*MissingNodeError); !ok {
		t.Fatalf("got %v (%T), want *MissingNodeError", err, err)
	}
}

func TestEmitMidiAccumulatesPerGroup(t *testing.T) {
	c := newTestCompiler()
	apply(t, c,
		command.AdvanceTime{Ticks: 1},
		command.EmitMidi{Data: [3]byte{0x90, 60, 100}, Group: u64ptr(2)},
	)
	events := c.midi[2]
	if len(events) != 1 || events[0].Data != [3]byte{0x90, 60, 100} {
		t.Fatalf("got %+v", events)
	}
}

func TestFinalizeIdempotentOnUnchangedState(t *testing.T) {
	c := newTestCompiler()
	apply(t, c,
		command.SpawnNode{ID: 1, Processor: 0, Group: u64ptr(0)},
		command.SpawnNode{ID: 2, Processor: sineProcessor},
		command.PipeParameter{TargetNode: 1, TargetParameter: 0, SourceNode: 2},
	)
	first, err := c.Finalize(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	second, err := c.Finalize(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if first.Sinks[1].Hash != second.Sinks[1].Hash {
		t.Fatalf("re-finalizing unchanged state produced a different hash")
	}
}

// buildTone spawns a sink and a constant-frequency tone node piped into
// it, under group.
func buildTone(t *testing.T, c *Compiler, group, sinkID, toneID uint64, freq float64, durationTicks uint64) {
	t.Helper()
	apply(t, c,
		command.SpawnNode{ID: sinkID, Processor: 0, Group: u64ptr(group)},
		command.SpawnNode{ID: toneID, Processor: sineProcessor},
		command.SetParameter{TargetNode: toneID, TargetParameter: 0, Value: math.Float64bits(freq)},
		command.PipeParameter{TargetNode: sinkID, TargetParameter: 0, SourceNode: toneID},
		command.AdvanceTime{Ticks: durationTicks},
	)
}

func TestTimelineShiftPreservesSinkHash(t *testing.T) {
	unshifted := newTestCompiler()
	apply(t, unshifted, command.SetTiming{NanosPerTick: 500_000, TicksPerBeat: 192})
	buildTone(t, unshifted, 0, 1, 2, 440, 192)
	unshiftedResult, err := unshifted.Finalize(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	// Same structure, but the whole timeline starts 96 ticks later.
	shifted := newTestCompiler()
	apply(t, shifted,
		command.SetTiming{NanosPerTick: 500_000, TicksPerBeat: 192},
		command.AdvanceTime{Ticks: 96},
	)
	buildTone(t, shifted, 0, 1, 2, 440, 192)
	shiftedResult, err := shifted.Finalize(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	unshiftedSink, shiftedSink := unshiftedResult.Sinks[1], shiftedResult.Sinks[1]
	if unshiftedSink.Hash != shiftedSink.Hash {
		t.Fatalf("shifting the timeline changed the sink hash: %x != %x", unshiftedSink.Hash, shiftedSink.Hash)
	}
	if unshiftedSink.End-unshiftedSink.Start != shiftedSink.End-shiftedSink.Start {
		t.Fatalf("shifting the timeline changed the sink's duration")
	}
}

func TestPermutingIndependentGroupsPreservesSinkHashes(t *testing.T) {
	inOrder := newTestCompiler()
	apply(t, inOrder, command.SetTiming{NanosPerTick: 500_000, TicksPerBeat: 192})
	buildTone(t, inOrder, 1, 1, 2, 440, 192)
	buildTone(t, inOrder, 2, 3, 4, 220, 96)
	inOrderResult, err := inOrder.Finalize(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	reversed := newTestCompiler()
	apply(t, reversed, command.SetTiming{NanosPerTick: 500_000, TicksPerBeat: 192})
	buildTone(t, reversed, 2, 3, 4, 220, 96)
	buildTone(t, reversed, 1, 1, 2, 440, 192)
	reversedResult, err := reversed.Finalize(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if inOrderResult.Sinks[1].Hash != reversedResult.Sinks[1].Hash {
		t.Fatalf("permuting group build order changed sink 1's hash")
	}
	if inOrderResult.Sinks[3].Hash != reversedResult.Sinks[3].Hash {
		t.Fatalf("permuting group build order changed sink 3's hash")
	}
}

func TestResetClearsState(t *testing.T) {
	c := newTestCompiler()
	apply(t, c, command.SpawnNode{ID: 1, Processor: sineProcessor}, command.AdvanceTime{Ticks: 10})
	c.Reset()
	if c.Stats() != (Stats{}) {
		t.Fatalf("Stats() after Reset = %+v, want zero value", c.Stats())
	}
}
