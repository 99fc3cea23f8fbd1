package pattern

// bjorklund computes the standard Euclidean rhythm distribution of pulses
// hits spread as evenly as possible across steps slots, using Bresenham's
// line algorithm (the common closed-form substitute for the recursive
// Bjorklund/Toussaint construction — both produce the same maximally-even
// distribution).
func bjorklund(pulses, steps int) []bool {
	pattern := make([]bool, steps)
	if steps <= 0 {
		return pattern
	}
	if pulses <= 0 {
		return pattern
	}
	if pulses > steps {
		pulses = steps
	}
	bucket := 0
	for i := 0; i < steps; i++ {
		bucket += pulses
		if bucket >= steps {
			bucket -= steps
			pattern[i] = true
		}
	}
	return pattern
}

// Euclid emits Value at the Pulses steps a Euclidean rhythm distributes
// across Steps equal subdivisions of each cycle — the Go rendering of
// `.euc(pulses, steps)`. `Euclid<T,L,R,Off>` in
// euphony-pattern/src/lib.rs is a struct with no `Pattern` impl body
// beyond `type Output`; this implements the combinator's named behavior
// directly, since the source never finishes it.
type Euclid[T any] struct {
	Value  T
	Pulses int
	Steps  int
}

func (e Euclid[T]) Cycles() int { return 1 }

func (e Euclid[T]) SpliceLen(Arc) int { return 1 }

func (e Euclid[T]) Emit(arc Arc, stream Stream[T]) {
	steps := e.Steps
	if steps <= 0 {
		steps = 1
	}
	hits := bjorklund(e.Pulses, steps)
	arc.EachCycle(func(_ uint64, sub Arc) {
		for i, on := range hits {
			if !on {
				continue
			}
			start := sub.Start.Add(sub.Len().Mul(beatFrac(uint64(i), uint64(steps))))
			end := sub.Start.Add(sub.Len().Mul(beatFrac(uint64(i+1), uint64(steps))))
			stream.Emit(Arc{Start: start, End: end}, e.Value)
		}
	})
}

// Degrade randomly drops events from its child pattern: each event
// survives with probability Keep (a value near 1 keeps nearly everything;
// near 0 drops nearly everything). Survival is a deterministic function of
// Seed and the event's position, so the same pattern queried twice over
// the same arc degrades identically — important for a render that must be
// reproducible from its command stream. `Degrade<T>` in
// euphony-pattern/src/lib.rs is, like Euclid, a struct with no `Pattern`
// impl body; this implements its named behavior from scratch.
type Degrade[T any] struct {
	Pattern Pattern[T]
	Keep    float64
	Seed    uint64
}

func (d Degrade[T]) Cycles() int         { return d.Pattern.Cycles() }
func (d Degrade[T]) SpliceLen(a Arc) int { return d.Pattern.SpliceLen(a) }

func (d Degrade[T]) Emit(arc Arc, stream Stream[T]) {
	var collect CollectStream[T]
	d.Pattern.Emit(arc, &collect)
	for i, e := range collect.Drain() {
		if degradeSurvives(d.Seed, e.Arc, i, d.Keep) {
			stream.Emit(e.Arc, e.Value)
		}
	}
}

// degradeSurvives maps (seed, arc, index) through splitmix64 to a value in
// [0, 1) and compares it against keep.
func degradeSurvives(seed uint64, arc Arc, index int, keep float64) bool {
	if keep >= 1 {
		return true
	}
	if keep <= 0 {
		return false
	}
	x := seed
	x ^= arc.Start.Num*1099511628211 + arc.Start.Denom
	x ^= uint64(index) * 2654435761
	x ^= arc.End.Num*0x9E3779B97F4A7C15 + arc.End.Denom
	x = splitmix64(x)
	const mask = uint64(1) << 53
	return float64(x%mask)/float64(mask) < keep
}

func splitmix64(x uint64) uint64 {
	x += 0x9E3779B97F4A7C15
	x = (x ^ (x >> 30)) * 0xBF58476D1CE4E5B9
	x = (x ^ (x >> 27)) * 0x94D049BB133111EB
	x = x ^ (x >> 31)
	return x
}
