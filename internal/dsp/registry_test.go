package dsp

import (
	"testing"

	"github.com/tonegraph/euphony/internal/dsp/arith"
	"github.com/tonegraph/euphony/internal/dsp/osc"
)

func TestLookupKnownProcessor(t *testing.T) {
	r := NewRegistry(48_000)
	f, ok := r.Lookup(arith.IDAdd)
	if !ok {
		t.Fatalf("expected Add to be registered")
	}
	p := f()
	if p.Inputs() != 2 {
		t.Fatalf("Add.Inputs() = %d, want 2", p.Inputs())
	}
}

func TestLookupUnknownProcessor(t *testing.T) {
	r := NewRegistry(48_000)
	if _, ok := r.Lookup(999_999); ok {
		t.Fatalf("expected unknown processor id to be absent")
	}
}

func TestOscillatorFactoriesCaptureSampleRate(t *testing.T) {
	r := NewRegistry(8)
	f, ok := r.Lookup(osc.IDSine)
	if !ok {
		t.Fatalf("expected Sine to be registered")
	}
	if p := f(); p == nil {
		t.Fatalf("factory returned nil processor")
	}
}
