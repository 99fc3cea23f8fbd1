package compiler

import (
	"github.com/tonegraph/euphony/internal/euphash"
	"github.com/tonegraph/euphony/internal/timing"
)

// Sink is a render-product root: the node a group's output is read from.
// SpawnNode with processor 0 registers a Sink alongside its Node entry
// instead of looking up a DSP processor.
type Sink struct {
	ID      uint64
	Start   timing.SampleOffset
	End     timing.SampleOffset
	Hash    euphash.Hash
	Cyclic  bool
	Cached  bool
	Members map[uint64]struct{}
}

func newSink(id uint64, start timing.SampleOffset) *Sink {
	return &Sink{ID: id, Start: start, End: start, Members: make(map[uint64]struct{})}
}
