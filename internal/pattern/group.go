package pattern

// Group plays its children side by side within whatever arc it is asked
// to fill, each claiming a horizontal slice proportional to its own
// SpliceLen — the Go rendering of the `[a b c]` grouping literal. A plain
// Group of same-width children (the common case) divides time evenly;
// a child that reports a wider SpliceLen (e.g. Replicate) claims more of
// the row. Grounded on the `Group<T>`/`GroupStream` machinery in
// euphony-pattern/src/lib.rs, generalized from the source's fixed-arity
// tuple macros to a slice, which is the natural Go shape for a
// variable-length group.
type Group[T any] struct {
	Patterns []Pattern[T]
}

func (g Group[T]) Cycles() int {
	cycles := make([]int, len(g.Patterns))
	for i, p := range g.Patterns {
		cycles[i] = p.Cycles()
	}
	return lcmAll(cycles)
}

func (g Group[T]) SpliceLen(arc Arc) int {
	total := 0
	for _, p := range g.Patterns {
		total += p.SpliceLen(arc)
	}
	if total == 0 {
		return 1
	}
	return total
}

func (g Group[T]) Emit(arc Arc, stream Stream[T]) {
	widths := make([]int, len(g.Patterns))
	total := 0
	for i, p := range g.Patterns {
		w := p.SpliceLen(arc)
		if w <= 0 {
			w = 1
		}
		widths[i] = w
		total += w
	}
	if total == 0 {
		return
	}

	cum := 0
	for i, p := range g.Patterns {
		w := widths[i]
		start := beatFrac(uint64(cum), uint64(total))
		end := beatFrac(uint64(cum+w), uint64(total))
		cum += w

		childArc := Arc{
			Start: arc.Start.Add(arc.Len().Mul(start)),
			End:   arc.Start.Add(arc.Len().Mul(end)),
		}
		p.Emit(childArc, stream)
	}
}

// Alternate plays one child per cycle, cycling through them in order — the
// Go rendering of the `(a, b, c)` alternation literal. Unlike Group it
// does not subdivide time: the chosen child sees the full cycle's arc.
// Grounded on `Alternate<T>`/`AltStream`.
type Alternate[T any] struct {
	Patterns []Pattern[T]
}

func (a Alternate[T]) Cycles() int {
	cycles := make([]int, 0, len(a.Patterns)+1)
	cycles = append(cycles, len(a.Patterns))
	for _, p := range a.Patterns {
		cycles = append(cycles, p.Cycles())
	}
	return lcmAll(cycles)
}

func (a Alternate[T]) SpliceLen(Arc) int { return 1 }

func (a Alternate[T]) Emit(arc Arc, stream Stream[T]) {
	if len(a.Patterns) == 0 {
		return
	}
	arc.EachCycle(func(cycle uint64, sub Arc) {
		branch := a.Patterns[cycle%uint64(len(a.Patterns))]
		branch.Emit(sub, stream)
	})
}
