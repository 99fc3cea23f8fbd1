package pattern

import (
	"reflect"
	"testing"
)

func cycle01() Arc { return Arc{Start: beatWhole(0), End: beatWhole(1)} }

func values[T any](events []TimedEvent[T]) []T {
	out := make([]T, len(events))
	for i, e := range events {
		out[i] = e.Value
	}
	return out
}

func TestIdentEmitsOncePerCycle(t *testing.T) {
	events := Compile[string](Ident[string]{Value: "bd"}, 3)
	if got := values(events); !reflect.DeepEqual(got, []string{"bd", "bd", "bd"}) {
		t.Fatalf("got %v", got)
	}
	if events[1].Arc.Start != beatWhole(1) || events[1].Arc.End != beatWhole(2) {
		t.Fatalf("cycle 1 arc = %+v", events[1].Arc)
	}
}

func TestGroupSplitsCycleEvenly(t *testing.T) {
	g := Group[string]{Patterns: []Pattern[string]{
		Ident[string]{Value: "bd"},
		Ident[string]{Value: "sd"},
	}}
	events := Compile[string](g, 1)
	if got := values(events); !reflect.DeepEqual(got, []string{"bd", "sd"}) {
		t.Fatalf("got %v", got)
	}
	if events[0].Arc != (Arc{Start: beatWhole(0), End: beatFrac(1, 2)}) {
		t.Fatalf("bd arc = %+v", events[0].Arc)
	}
	if events[1].Arc != (Arc{Start: beatFrac(1, 2), End: beatWhole(1)}) {
		t.Fatalf("sd arc = %+v", events[1].Arc)
	}
}

func TestGroupWeightsByReplicateSpliceLen(t *testing.T) {
	g := Group[string]{Patterns: []Pattern[string]{
		Replicate[string]{Pattern: Ident[string]{Value: "hh"}, Count: 3},
		Ident[string]{Value: "cp"},
	}}
	events := Compile[string](g, 1)
	if got := values(events); !reflect.DeepEqual(got, []string{"hh", "hh", "hh", "cp"}) {
		t.Fatalf("got %v", got)
	}
	// hh claims 3/4 of the cycle, cp the last 1/4.
	if events[3].Arc != (Arc{Start: beatFrac(3, 4), End: beatWhole(1)}) {
		t.Fatalf("cp arc = %+v", events[3].Arc)
	}
}

func TestAlternateCyclesThroughBranches(t *testing.T) {
	alt := Alternate[string]{Patterns: []Pattern[string]{
		Ident[string]{Value: "a"},
		Ident[string]{Value: "b"},
		Ident[string]{Value: "c"},
	}}
	events := Compile[string](alt, 4)
	if got := values(events); !reflect.DeepEqual(got, []string{"a", "b", "c", "a"}) {
		t.Fatalf("got %v", got)
	}
}

func TestRepeatReplaysFirstValueEvenly(t *testing.T) {
	r := Repeat[string]{Pattern: Ident[string]{Value: "hh"}, Count: 4}
	events := Compile[string](r, 1)
	if len(events) != 4 {
		t.Fatalf("got %d events, want 4", len(events))
	}
	for _, e := range events {
		if e.Value != "hh" {
			t.Fatalf("value = %q, want hh", e.Value)
		}
	}
	if events[1].Arc != (Arc{Start: beatFrac(1, 4), End: beatFrac(2, 4)}) {
		t.Fatalf("slot 1 arc = %+v", events[1].Arc)
	}
}

func TestReplicateLaysOutIndependentCopies(t *testing.T) {
	r := Replicate[string]{Pattern: Ident[string]{Value: "bd"}, Count: 2}
	events := Compile[string](r, 1)
	if got := values(events); !reflect.DeepEqual(got, []string{"bd", "bd"}) {
		t.Fatalf("got %v", got)
	}
	if events[0].Arc != (Arc{Start: beatWhole(0), End: beatFrac(1, 2)}) {
		t.Fatalf("copy 0 arc = %+v", events[0].Arc)
	}
}

func TestSlowStretchesOneCycleAcrossFactor(t *testing.T) {
	s := Slow[string]{Pattern: Ident[string]{Value: "bd"}, Factor: 2}
	events := Compile[string](s, 2)
	if len(events) != 1 {
		t.Fatalf("got %d events over 2 slowed cycles, want 1", len(events))
	}
	if events[0].Arc != (Arc{Start: beatWhole(0), End: beatWhole(2)}) {
		t.Fatalf("arc = %+v, want whole stretched span", events[0].Arc)
	}
}

func TestSlowPartialQueryReturnsOverlappingPortion(t *testing.T) {
	s := Slow[string]{Pattern: Ident[string]{Value: "bd"}, Factor: 3}
	// Querying only the first real cycle of a 3x-slowed pattern should
	// surface just the portion of the stretched hit overlapping it.
	var collect CollectStream[string]
	s.Emit(Arc{Start: beatWhole(0), End: beatWhole(1)}, &collect)
	events := collect.Drain()
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Arc != (Arc{Start: beatWhole(0), End: beatWhole(1)}) {
		t.Fatalf("arc = %+v", events[0].Arc)
	}
}

func TestHoldExtendsEachValueToTheNext(t *testing.T) {
	g := Group[int]{Patterns: []Pattern[int]{
		Ident[int]{Value: 1},
		Rest[int]{},
		Ident[int]{Value: 2},
	}}
	h := Hold[int]{Pattern: g}
	events := Compile[int](h, 1)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2 (the rest produces no event of its own)", len(events))
	}
	if events[0].Value != 1 || events[0].Arc != (Arc{Start: beatWhole(0), End: beatFrac(2, 3)}) {
		t.Fatalf("first event = %+v, want value 1 extended through the rest", events[0])
	}
	if events[1].Value != 2 || events[1].Arc != (Arc{Start: beatFrac(2, 3), End: beatWhole(1)}) {
		t.Fatalf("last event = %+v, want value 2 through cycle end", events[1])
	}
}

func TestEuclidDistributesPulsesAcrossSteps(t *testing.T) {
	e := Euclid[string]{Value: "bd", Pulses: 3, Steps: 8}
	events := Compile[string](e, 1)
	if len(events) != 3 {
		t.Fatalf("got %d hits, want 3", len(events))
	}
	want := []Arc{
		{Start: beatFrac(2, 8), End: beatFrac(3, 8)},
		{Start: beatFrac(5, 8), End: beatFrac(6, 8)},
		{Start: beatFrac(7, 8), End: beatWhole(1)},
	}
	for i, w := range want {
		if events[i].Arc != w {
			t.Fatalf("hit %d arc = %+v, want %+v", i, events[i].Arc, w)
		}
	}
}

func TestEuclidZeroPulsesEmitsNothing(t *testing.T) {
	e := Euclid[string]{Value: "bd", Pulses: 0, Steps: 8}
	if events := Compile[string](e, 1); len(events) != 0 {
		t.Fatalf("got %d events, want 0", len(events))
	}
}

func TestDegradeIsDeterministicAcrossCalls(t *testing.T) {
	d := Degrade[int]{Pattern: Repeat[int]{Pattern: Ident[int]{Value: 1}, Count: 16}, Keep: 0.5, Seed: 42}
	first := Compile[int](d, 1)
	second := Compile[int](d, 1)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("degrade output differs across identical queries")
	}
	if len(first) == 0 || len(first) == 16 {
		t.Fatalf("got %d survivors out of 16, want a partial thinning", len(first))
	}
}

func TestDegradeKeepOneKeepsEverything(t *testing.T) {
	d := Degrade[int]{Pattern: Repeat[int]{Pattern: Ident[int]{Value: 1}, Count: 8}, Keep: 1, Seed: 7}
	if events := Compile[int](d, 1); len(events) != 8 {
		t.Fatalf("got %d, want 8", len(events))
	}
}

func TestDegradeKeepZeroDropsEverything(t *testing.T) {
	d := Degrade[int]{Pattern: Repeat[int]{Pattern: Ident[int]{Value: 1}, Count: 8}, Keep: 0, Seed: 7}
	if events := Compile[int](d, 1); len(events) != 0 {
		t.Fatalf("got %d, want 0", len(events))
	}
}

func TestPolymeterAdvancesIndependentlyOfMeter(t *testing.T) {
	p := Polymeter[string]{
		Pattern: Group[string]{Patterns: []Pattern[string]{
			Ident[string]{Value: "a"},
			Ident[string]{Value: "b"},
			Ident[string]{Value: "c"},
		}},
		Steps: 2,
	}
	events := Compile[string](p, 2)
	// cycle 0: slices 0,1 -> a,b. cycle 1: offset=2 -> slices 2,0 -> c,a.
	if got := values(events); !reflect.DeepEqual(got, []string{"a", "b", "c", "a"}) {
		t.Fatalf("got %v", got)
	}
}

func TestRestNeverEmits(t *testing.T) {
	if events := Compile[int](Rest[int]{}, 4); len(events) != 0 {
		t.Fatalf("got %d events from Rest, want 0", len(events))
	}
}
