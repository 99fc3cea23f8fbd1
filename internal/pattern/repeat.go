package pattern

// Repeat replays the first value its child pattern emits per cycle Count
// times, evenly spaced across the cycle — the Go rendering of the `*`
// speed-up operator (e.g. `bd*4`). Grounded on `Repeat<T,A>`, whose Rust
// emit is built from a `FirstValueStream` feeding a `GroupStream`; this is
// that same shape without the macro-generated tuple plumbing.
type Repeat[T any] struct {
	Pattern Pattern[T]
	Count   int
}

func (r Repeat[T]) Cycles() int       { return r.Pattern.Cycles() }
func (r Repeat[T]) SpliceLen(Arc) int { return 1 }

func (r Repeat[T]) Emit(arc Arc, stream Stream[T]) {
	n := r.Count
	if n <= 0 {
		n = 1
	}
	arc.EachCycle(func(cycle uint64, sub Arc) {
		var collect CollectStream[T]
		r.Pattern.Emit(Arc{Start: beatWhole(cycle), End: beatWhole(cycle + 1)}, &collect)
		events := collect.Drain()
		if len(events) == 0 {
			return
		}
		value := events[0].Value
		for i := 0; i < n; i++ {
			start := sub.Start.Add(sub.Len().Mul(beatFrac(uint64(i), uint64(n))))
			end := sub.Start.Add(sub.Len().Mul(beatFrac(uint64(i+1), uint64(n))))
			stream.Emit(Arc{Start: start, End: end}, value)
		}
	})
}

// Replicate lays Count full, independent copies of its child pattern side
// by side across the query arc, and reports a SpliceLen of Count*child so
// an enclosing Group gives it Count slots — the Go rendering of `.repl(n)`.
// Grounded on `Replicate<T,A>`, whose Rust emit/splice_len pair this
// mirrors (the macro-tuple `AltStream` plumbing collapses to a loop).
type Replicate[T any] struct {
	Pattern Pattern[T]
	Count   int
}

func (r Replicate[T]) Cycles() int { return r.Pattern.Cycles() }

func (r Replicate[T]) SpliceLen(arc Arc) int {
	n := r.Count
	if n <= 0 {
		n = 1
	}
	return n * maxInt(r.Pattern.SpliceLen(arc), 1)
}

func (r Replicate[T]) Emit(arc Arc, stream Stream[T]) {
	n := r.Count
	if n <= 0 {
		n = 1
	}
	for i := 0; i < n; i++ {
		start := arc.Start.Add(arc.Len().Mul(beatFrac(uint64(i), uint64(n))))
		end := arc.Start.Add(arc.Len().Mul(beatFrac(uint64(i+1), uint64(n))))
		r.Pattern.Emit(Arc{Start: start, End: end}, stream)
	}
}
