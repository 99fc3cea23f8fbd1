package compiler

import (
	"math"
	"sort"

	"github.com/tonegraph/euphony/internal/euphash"
	"github.com/tonegraph/euphony/internal/timing"
)

// paramEvent is one SetParameter, PipeParameter, or SetBuffer command
// applied to a node, timestamped at the sample offset it occurred at.
// Events accumulate in command-arrival order; nothing here resolves a
// parameter's "current" value, since that job belongs to the render
// graph replaying instructions at playback time.
type paramEvent struct {
	offset timing.SampleOffset
	param  uint64
	value  ParameterValue
}

// Node is one spawned processor instance, identified by id, with a
// lifetime and the ordered history of parameter events applied to it.
// A Node with Processor == 0 additionally has a Sink entry: it marks a
// group-bus placeholder rather than a real DSP processor.
type Node struct {
	ID        uint64
	Index     int
	Processor uint64
	Start     timing.SampleOffset
	End       *timing.SampleOffset

	events []paramEvent
	hash   euphash.Hash
}

func newNode(id uint64, index int, processor uint64, start timing.SampleOffset) *Node {
	return &Node{ID: id, Index: index, Processor: processor, Start: start}
}

func (n *Node) set(param uint64, value float64, at timing.SampleOffset) error {
	if n.End != nil {
		return errNodeFinished
	}
	n.events = append(n.events, paramEvent{offset: at, param: param, value: Constant(value)})
	return nil
}

func (n *Node) connect(param uint64, sourceNode uint64, at timing.SampleOffset) error {
	if n.End != nil {
		return errNodeFinished
	}
	n.events = append(n.events, paramEvent{offset: at, param: param, value: NodeRef(sourceNode)})
	return nil
}

func (n *Node) setBuffer(param, buffer, channel uint64, at timing.SampleOffset) error {
	if n.End != nil {
		return errNodeFinished
	}
	n.events = append(n.events, paramEvent{offset: at, param: param, value: BufferRef(buffer, channel)})
	return nil
}

// finish closes the node at the given offset. It is not an error to
// finish an already-finished node a second time with the same offset
// pending at the call site (Finalize's implicit close checks End first),
// but a direct second FinishNode command on the wire is rejected.
func (n *Node) finish(at timing.SampleOffset) error {
	if n.End != nil {
		return errNodeFinished
	}
	end := at
	n.End = &end
	return nil
}

// end returns the node's closing offset, defaulting to Start if it was
// never explicitly finished (an instantaneous node).
func (n *Node) end() timing.SampleOffset {
	if n.End != nil {
		return *n.End
	}
	return n.Start
}

// localHash folds this node's processor id and every constant-valued
// parameter event into h. Node- and buffer-valued events are deliberately
// excluded here: they fold into the sink's hash instead, keyed by the
// relative offset between the two endpoints, so that two structurally
// identical phrases at different timeline positions still share one
// cache entry.
func (n *Node) localHash(h *euphash.Hasher) {
	var head [8]byte
	putU64LE(head[:], n.Processor)
	h.Update(head[:])

	events := make([]paramEvent, len(n.events))
	copy(events, n.events)
	sort.Slice(events, func(i, j int) bool {
		if events[i].offset != events[j].offset {
			return events[i].offset < events[j].offset
		}
		return events[i].param < events[j].param
	})

	for _, e := range events {
		if !e.value.IsConstant() {
			continue
		}
		rel := e.offset.Since(n.Start)
		var buf [24]byte
		putU64LE(buf[0:8], uint64(rel))
		putU64LE(buf[8:16], e.param)
		putU64LE(buf[16:24], math.Float64bits(e.value.constant))
		h.Update(buf[:])
	}
}

// emitInstructions appends this node's SpawnProcessor, per-event, Render,
// and Finish instructions to h.
func (n *Node) emitInstructions(h *instructionHeap) {
	pushInstruction(h, Instruction{Offset: n.Start, Kind: KindSpawnProcessor, Node: n.ID, Processor: n.Processor})

	for _, e := range n.events {
		switch {
		case e.value.IsConstant():
			pushInstruction(h, Instruction{Offset: e.offset, Kind: KindSetParam, Node: n.ID, Param: e.param, Value: e.value.constant})
		case e.value.IsNode():
			pushInstruction(h, Instruction{Offset: e.offset, Kind: KindPipe, Node: n.ID, Param: e.param, Source: e.value.node})
		case e.value.IsBuffer():
			pushInstruction(h, Instruction{
				Offset: e.offset, Kind: KindSetBuffer, Node: n.ID, Param: e.param,
				Buffer: e.value.buffer, BufferChannel: e.value.bufferChannel,
			})
		}
	}

	pushInstruction(h, Instruction{Offset: n.Start, Kind: KindRender, Node: n.ID, RenderEnd: n.end()})
	if n.End != nil {
		pushInstruction(h, Instruction{Offset: *n.End, Kind: KindFinish, Node: n.ID})
	}
}
