package config

import (
	"testing"

	"github.com/tonegraph/euphony/internal/resample"
)

func TestResampleModeDefaultsToSinc(t *testing.T) {
	cfg := &Config{Resample: "sinc"}
	if cfg.ResampleMode() != resample.WindowedSinc {
		t.Fatalf("got %v, want WindowedSinc", cfg.ResampleMode())
	}
	cfg = &Config{Resample: "garbage"}
	if cfg.ResampleMode() != resample.WindowedSinc {
		t.Fatalf("unrecognized mode should default to WindowedSinc")
	}
}

func TestResampleModeLinear(t *testing.T) {
	cfg := &Config{Resample: "linear"}
	if cfg.ResampleMode() != resample.Linear {
		t.Fatalf("got %v, want Linear", cfg.ResampleMode())
	}
}

func TestValidateChannels(t *testing.T) {
	for _, ok := range []string{"stereo", "mono"} {
		if err := (&Config{Channels: ok}).ValidateChannels(); err != nil {
			t.Fatalf("%q should be valid: %v", ok, err)
		}
	}
	if err := (&Config{Channels: "quad"}).ValidateChannels(); err == nil {
		t.Fatalf("expected an error for an unsupported channel layout")
	}
}
