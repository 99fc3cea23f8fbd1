package pattern

// Rest never emits a value. Grounded on euphony-pattern/src/lib.rs's
// `Rest<T>`.
type Rest[T any] struct{}

func (Rest[T]) Cycles() int             { return 1 }
func (Rest[T]) SpliceLen(Arc) int       { return 1 }
func (Rest[T]) Emit(Arc, Stream[T])     {}

// Ident emits Value once per cycle that overlaps the query arc, clipped to
// whatever portion of the cycle the arc (or an enclosing combinator)
// grants it. Grounded on `Ident<T>`.
type Ident[T any] struct {
	Value T
}

func (p Ident[T]) Cycles() int       { return 1 }
func (p Ident[T]) SpliceLen(Arc) int { return 1 }

func (p Ident[T]) Emit(arc Arc, stream Stream[T]) {
	arc.EachCycle(func(_ uint64, sub Arc) {
		stream.Emit(sub, p.Value)
	})
}
