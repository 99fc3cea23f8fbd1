package pattern

// Slow stretches its child pattern's cycle across Factor real cycles — the
// Go rendering of the `/` slow-down operator (e.g. `bd/2` plays one cycle
// of bd's content over two real cycles). `Slow<T,A>::emit` in
// euphony-pattern/src/lib.rs calls into a `SlowStream` that is itself
// fully implemented (it multiplies emitted arc times by the factor) but
// the call site wiring it up ends in a literal `todo!()`, and Slow's own
// tests are marked `#[ignore] // TODO`. This finishes that wiring: query
// the child over the corresponding fraction of its own cycle, then scale
// the emitted arcs back up by Factor via affineStream.
type Slow[T any] struct {
	Pattern Pattern[T]
	Factor  int
}

func (s Slow[T]) factor() int {
	if s.Factor <= 0 {
		return 1
	}
	return s.Factor
}

func (s Slow[T]) Cycles() int       { return s.Pattern.Cycles() * s.factor() }
func (s Slow[T]) SpliceLen(a Arc) int { return s.Pattern.SpliceLen(a) }

func (s Slow[T]) Emit(arc Arc, stream Stream[T]) {
	factor := beatWhole(uint64(s.factor()))
	virtual := Arc{
		Start: arc.Start.Div(factor),
		End:   arc.End.Div(factor),
	}
	wrapped := &affineStream[T]{inner: stream, scale: factor, offset: beatWhole(0)}
	s.Pattern.Emit(virtual, wrapped)
}

// Hold sustains each value its child pattern emits until the next value
// starts (or the arc ends), filling in the gaps a sparser pattern would
// otherwise leave as silence. `Hold<T,A>` in euphony-pattern/src/lib.rs
// has no real `Pattern` impl (the struct exists with only
// `type Output = T::Output`, relying on the trait's default `emit`, which
// is `todo!()`); this is a from-scratch implementation of the combinator's
// named behavior, built on the same collect-then-rewrite shape the other
// from-scratch combinators here use.
type Hold[T any] struct {
	Pattern Pattern[T]
}

func (h Hold[T]) Cycles() int         { return h.Pattern.Cycles() }
func (h Hold[T]) SpliceLen(a Arc) int { return h.Pattern.SpliceLen(a) }

func (h Hold[T]) Emit(arc Arc, stream Stream[T]) {
	var collect CollectStream[T]
	h.Pattern.Emit(arc, &collect)
	events := collect.Drain()
	for i, e := range events {
		end := arc.End
		if i+1 < len(events) {
			end = events[i+1].Arc.Start
		}
		stream.Emit(Arc{Start: e.Arc.Start, End: end}, e.Value)
	}
}
