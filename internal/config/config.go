// Package config parses euphonyd's command-line surface: where the
// command stream comes from, where rendered artifacts live, and the
// sample rate and channel layout of the mixed output.
package config

import (
	"flag"
	"fmt"
	"os"

	"github.com/tonegraph/euphony/internal/resample"
)

// Config is the renderer's full command-line surface.
type Config struct {
	// CommandStream is the path to a binary command stream (see package
	// command); "-" reads from stdin.
	CommandStream string
	// StoreDir is the content-addressed store's root directory.
	StoreDir string
	// LogLevel is one of debug, info, warn, error.
	LogLevel string
	// SampleRate is the output render rate in Hz.
	SampleRate int
	// Channels is the output channel layout: "stereo" or "mono".
	Channels string
	// Resample selects the asset resample kernel: "linear" or "sinc".
	Resample string
	// Group is the id of the compiled group to mix to Output.
	Group uint64
	// Output is the mixed render's destination path; "-" writes to
	// stdout.
	Output string
	// WAV wraps Output in a RIFF/WAVE container instead of the engine's
	// raw interleaved f32 format.
	WAV bool
}

// Parse reads euphonyd's flags from os.Args.
func Parse() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.CommandStream, "commands", "-", `path to the binary command stream ("-" for stdin)`)
	flag.StringVar(&cfg.StoreDir, "store", defaultStoreDir(), "content-addressed store root directory")
	flag.StringVar(&cfg.LogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flag.IntVar(&cfg.SampleRate, "sample-rate", 48000, "output sample rate in Hz")
	flag.StringVar(&cfg.Channels, "channels", "stereo", "output channel layout (stereo, mono)")
	flag.StringVar(&cfg.Resample, "resample", "sinc", "asset resample mode (linear, sinc)")
	flag.Uint64Var(&cfg.Group, "group", 0, "id of the group to mix to output")
	flag.StringVar(&cfg.Output, "output", "-", `destination for the mixed render ("-" for stdout)`)
	flag.BoolVar(&cfg.WAV, "wav", false, "wrap the output in a RIFF/WAVE container for inspection")

	flag.Parse()
	return cfg
}

// ResampleMode maps the Resample flag to its resample.Mode value,
// defaulting to WindowedSinc for any value other than "linear".
func (c *Config) ResampleMode() resample.Mode {
	if c.Resample == "linear" {
		return resample.Linear
	}
	return resample.WindowedSinc
}

// ValidateChannels reports an error if Channels is neither "stereo" nor
// "mono".
func (c *Config) ValidateChannels() error {
	switch c.Channels {
	case "stereo", "mono":
		return nil
	default:
		return fmt.Errorf("config: channels must be \"stereo\" or \"mono\", got %q", c.Channels)
	}
}

func defaultStoreDir() string {
	if dir := os.Getenv("EUPHONY_STORE_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".euphony-store"
	}
	return home + "/.euphony/store"
}
