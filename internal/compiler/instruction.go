package compiler

import (
	"container/heap"

	"github.com/tonegraph/euphony/internal/timing"
)

// InstructionKind distinguishes the six instruction shapes finalize can
// emit. Values are ordered so that, at equal sample offsets, a node is
// spawned before its parameters are set or piped, rendered after, and
// finished last.
type InstructionKind uint8

const (
	KindSpawnProcessor InstructionKind = iota
	KindSetParam
	KindPipe
	KindSetBuffer
	KindRender
	KindFinish
)

// Instruction is one scheduled action against the render graph. Only the
// fields relevant to Kind are populated.
type Instruction struct {
	Offset timing.SampleOffset
	Kind   InstructionKind
	Node   uint64

	Processor uint64 // KindSpawnProcessor

	Param uint64  // KindSetParam, KindPipe, KindSetBuffer
	Value float64 // KindSetParam

	Source uint64 // KindPipe

	Buffer        uint64 // KindSetBuffer
	BufferChannel uint64 // KindSetBuffer

	RenderEnd timing.SampleOffset // KindRender
}

// instructionHeap orders instructions by (sample offset, kind, node id),
// the stable ordering finalize's min-heap emission guarantees.
type instructionHeap []Instruction

func (h instructionHeap) Len() int { return len(h) }

func (h instructionHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.Offset != b.Offset {
		return a.Offset < b.Offset
	}
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	return a.Node < b.Node
}

func (h instructionHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *instructionHeap) Push(x any) { *h = append(*h, x.(Instruction)) }

func (h *instructionHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func pushInstruction(h *instructionHeap, inst Instruction) {
	heap.Push(h, inst)
}

// drainSorted empties h into a slice in ascending (offset, kind, node)
// order.
func drainSorted(h *instructionHeap) []Instruction {
	out := make([]Instruction, 0, h.Len())
	for h.Len() > 0 {
		out = append(out, heap.Pop(h).(Instruction))
	}
	return out
}
