package compiler

import (
	"sort"

	"github.com/tonegraph/euphony/internal/euphash"
	"github.com/tonegraph/euphony/internal/timing"
)

type groupSinkKey struct {
	offset timing.SampleOffset
	sink   uint64
}

// Group is a named collection of sinks forming one output track. Its
// combined hash is derived from its member sinks' hashes, so a group's
// cache identity tracks its content rather than its name.
type Group struct {
	ID   uint64
	Name string
	Hash euphash.Hash

	sinks map[groupSinkKey]struct{}
}

func newGroup(id uint64) *Group {
	return &Group{ID: id, sinks: make(map[groupSinkKey]struct{})}
}

func (g *Group) addSink(offset timing.SampleOffset, sinkID uint64) {
	g.sinks[groupSinkKey{offset: offset, sink: sinkID}] = struct{}{}
}

// Sinks returns the group's (offset, sink id) membership, ordered by
// offset then sink id — the order its manifest is written in.
func (g *Group) Sinks() []struct {
	Offset timing.SampleOffset
	SinkID uint64
} {
	keys := make([]groupSinkKey, 0, len(g.sinks))
	for k := range g.sinks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].offset != keys[j].offset {
			return keys[i].offset < keys[j].offset
		}
		return keys[i].sink < keys[j].sink
	})
	out := make([]struct {
		Offset timing.SampleOffset
		SinkID uint64
	}, len(keys))
	for i, k := range keys {
		out[i].Offset = k.offset
		out[i].SinkID = k.sink
	}
	return out
}

// updateHash recomputes g.Hash from its sinks' current hashes, in
// (offset, sink id) order so the result does not depend on command
// arrival order beyond that.
func (g *Group) updateHash(sinks map[uint64]*Sink) {
	h := euphash.NewHasher()
	for _, entry := range g.Sinks() {
		sink, ok := sinks[entry.SinkID]
		if !ok {
			continue
		}
		off := entry.Offset.ToBytes()
		h.Update(off[:])
		h.Update(sink.Hash[:])
	}
	g.Hash = h.Finalize()
}
