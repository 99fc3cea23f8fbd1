package pattern

// Polymeter plays its child pattern at Steps subdivisions per cycle
// regardless of the child's own natural step count, advancing an
// independent cursor through the child's native layout each real cycle so
// the two periods phase against each other — the Go rendering of the `%`
// polymetric operator. `Polym<T,A>` in euphony-pattern/src/lib.rs is,
// like Euclid and Degrade, a struct with no `Pattern` impl body; this
// implements its named behavior from scratch: the child's own one-cycle
// layout is read once into natural-index "slots" (splitting its events by
// which of SpliceLen([0,1)) equal-width slices they fall into), then
// Steps of those slots are replayed per real cycle, starting from a cursor
// that advances by Steps slots every cycle so it walks independently
// through however many natural slots the child has.
type Polymeter[T any] struct {
	Pattern Pattern[T]
	Steps   int
}

func (p Polymeter[T]) Cycles() int {
	return p.Pattern.Cycles() * maxInt(p.Steps, 1)
}

func (p Polymeter[T]) SpliceLen(Arc) int { return 1 }

func (p Polymeter[T]) Emit(arc Arc, stream Stream[T]) {
	steps := p.Steps
	if steps <= 0 {
		steps = 1
	}
	natural := maxInt(p.Pattern.SpliceLen(Arc{Start: beatWhole(0), End: beatWhole(1)}), 1)
	slots := p.naturalSlots(natural)

	arc.EachCycle(func(cycle uint64, sub Arc) {
		offset := (cycle * uint64(steps)) % uint64(natural)
		for i := 0; i < steps; i++ {
			slotIdx := (offset + uint64(i)) % uint64(natural)
			slotStart := sub.Start.Add(sub.Len().Mul(beatFrac(uint64(i), uint64(steps))))
			slotLen := sub.Len().Div(beatWhole(uint64(steps)))

			for _, ev := range slots[slotIdx] {
				stream.Emit(Arc{
					Start: slotStart.Add(slotLen.Mul(ev.relStart)),
					End:   slotStart.Add(slotLen.Mul(ev.relEnd)),
				}, ev.value)
			}
		}
	})
}

type polymeterEvent[T any] struct {
	relStart, relEnd Beat
	value            T
}

// naturalSlots queries the child pattern once over a single unit cycle and
// buckets each emitted event into the natural-width slice its start
// falls in, recording the event's position relative to that slice so it
// can be replayed into any later, differently-sized slot.
func (p Polymeter[T]) naturalSlots(natural int) [][]polymeterEvent[T] {
	var collect CollectStream[T]
	p.Pattern.Emit(Arc{Start: beatWhole(0), End: beatWhole(1)}, &collect)

	slots := make([][]polymeterEvent[T], natural)
	sliceLen := beatFrac(1, uint64(natural))
	for _, ev := range collect.Drain() {
		idx := ev.Arc.Start.Div(sliceLen).WholePart()
		if idx >= uint64(natural) {
			idx = uint64(natural) - 1
		}
		sliceStart := sliceLen.Mul(beatWhole(idx))
		slots[idx] = append(slots[idx], polymeterEvent[T]{
			relStart: ev.Arc.Start.Sub(sliceStart).Div(sliceLen),
			relEnd:   ev.Arc.End.Sub(sliceStart).Div(sliceLen),
			value:    ev.Value,
		})
	}
	return slots
}
