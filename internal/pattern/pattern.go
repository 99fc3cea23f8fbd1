// Package pattern implements the lazy musical pattern combinators: group,
// alternate, euclid, degrade, repeat, replicate, slow, hold, and polymeter,
// operating over beat-indexed arcs. The source tree this engine is
// grounded on (euphony-pattern/src/lib.rs) carries two mutually exclusive
// designs for the same crate — a pull-based Context/read/status model in
// traits.rs, and the push-based Arc/Stream/emit model actually used by
// lib.rs's combinators and tests. This package follows the latter, since
// it is the one the combinator vocabulary (Group, Alternate, Euclid,
// Repeat, Replicate, Slow, Hold, Polymeter) is actually built against.
package pattern

import (
	"sort"

	"github.com/tonegraph/euphony/internal/ratio"
	"github.com/tonegraph/euphony/internal/timing"
)

// Beat is a rational beat position, shared with the rest of the engine's
// timing code.
type Beat = timing.Beat

func beatWhole(n uint64) Beat { return ratio.Whole[uint64](n) }

func beatFrac(num, den uint64) Beat { return ratio.New[uint64](num, den) }

func beatMin(a, b Beat) Beat {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// Arc is a half-open span of beats, [Start, End).
type Arc struct {
	Start Beat
	End   Beat
}

// Len returns the arc's duration.
func (a Arc) Len() Beat { return a.End.Sub(a.Start) }

// EachCycle splits a into consecutive sub-arcs that each lie within a
// single integer-aligned cycle, calling fn with the cycle's index and the
// portion of a that falls inside it.
func (a Arc) EachCycle(fn func(cycle uint64, sub Arc)) {
	cur := a.Start
	for cur.Cmp(a.End) < 0 {
		cycle := cur.WholePart()
		cycleEnd := beatWhole(cycle + 1)
		end := beatMin(cycleEnd, a.End)
		fn(cycle, Arc{Start: cur, End: end})
		cur = end
	}
}

// Event is a value emitted over a span of time.
type Event[T any] struct {
	Arc   Arc
	Value T
}

// Stream receives the events a Pattern emits.
type Stream[T any] interface {
	Emit(arc Arc, value T)
}

// CollectStream accumulates emitted events for later inspection, draining
// them in time order. It is also how combinators (Repeat, Hold, Polymeter)
// query a child pattern's events before re-emitting a transformed version.
type CollectStream[T any] struct {
	events []Event[T]
}

// Emit implements Stream.
func (s *CollectStream[T]) Emit(arc Arc, value T) {
	s.events = append(s.events, Event[T]{Arc: arc, Value: value})
}

// Drain returns the accumulated events, sorted by start then end, and
// resets the stream.
func (s *CollectStream[T]) Drain() []Event[T] {
	events := s.events
	s.events = nil
	sort.SliceStable(events, func(i, j int) bool {
		if c := events[i].Arc.Start.Cmp(events[j].Arc.Start); c != 0 {
			return c < 0
		}
		return events[i].Arc.End.Cmp(events[j].Arc.End) < 0
	})
	return events
}

// affineStream rescales every emitted arc by scale then offset before
// forwarding to inner: out = arc*scale + offset. Slow uses this to stretch
// a child pattern's native-cycle emissions back into real time.
type affineStream[T any] struct {
	inner  Stream[T]
	scale  Beat
	offset Beat
}

func (s *affineStream[T]) Emit(arc Arc, value T) {
	s.inner.Emit(Arc{
		Start: arc.Start.Mul(s.scale).Add(s.offset),
		End:   arc.End.Mul(s.scale).Add(s.offset),
	}, value)
}

// Pattern is a lazy musical combinator: given a query arc, it emits zero
// or more timed values into stream. Cycles reports the pattern's period in
// whole cycles (LCM-based for composites); SpliceLen reports how many
// equal-width layout slots the pattern claims when placed inside a Group.
type Pattern[T any] interface {
	Cycles() int
	SpliceLen(arc Arc) int
	Emit(arc Arc, stream Stream[T])
}

// TimedEvent is one flattened output of Compile.
type TimedEvent[T any] struct {
	Arc   Arc
	Value T
}

// Compile flattens p over the given number of whole cycles into a
// time-ordered slice of events. It gives the pattern engine a direct path
// to producers of timed commands: callers map each TimedEvent's Value into
// whatever command or note representation they need.
func Compile[T any](p Pattern[T], cycles int) []TimedEvent[T] {
	if cycles <= 0 {
		cycles = 1
	}
	var collect CollectStream[T]
	p.Emit(Arc{Start: beatWhole(0), End: beatWhole(uint64(cycles))}, &collect)
	events := collect.Drain()
	out := make([]TimedEvent[T], len(events))
	for i, e := range events {
		out[i] = TimedEvent[T]{Arc: e.Arc, Value: e.Value}
	}
	return out
}

func gcdInt(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	if a < 0 {
		a = -a
	}
	if a == 0 {
		return 1
	}
	return a
}

func lcmInt(a, b int) int {
	if a == 0 || b == 0 {
		return 1
	}
	return a / gcdInt(a, b) * b
}

func lcmAll(values []int) int {
	result := 1
	for _, v := range values {
		if v <= 0 {
			v = 1
		}
		result = lcmInt(result, v)
	}
	return result
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
