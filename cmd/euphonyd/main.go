// Command euphonyd reads a binary command stream, compiles and renders
// it, and mixes one group down to a single interleaved output file.
package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/tonegraph/euphony/internal/buffer"
	"github.com/tonegraph/euphony/internal/command"
	"github.com/tonegraph/euphony/internal/compiler"
	"github.com/tonegraph/euphony/internal/config"
	"github.com/tonegraph/euphony/internal/dsp"
	"github.com/tonegraph/euphony/internal/engine"
	"github.com/tonegraph/euphony/internal/euphash"
	"github.com/tonegraph/euphony/internal/mixer"
	"github.com/tonegraph/euphony/internal/mixer/wavwriter"
	"github.com/tonegraph/euphony/internal/store"
)

func main() {
	cfg := config.Parse()

	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := cfg.ValidateChannels(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	runID := uuid.New().String()
	logger.Info("starting render", "run_id", runID, "store", cfg.StoreDir, "group", cfg.Group)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("render failed", "run_id", runID, "error", err)
		os.Exit(1)
	}
	logger.Info("render complete", "run_id", runID)
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if err := os.MkdirAll(cfg.StoreDir, 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	dir, err := store.NewDirectory(cfg.StoreDir)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	registry := dsp.NewRegistry(float64(cfg.SampleRate))

	cmds, err := readCommands(cfg.CommandStream)
	if err != nil {
		return fmt.Errorf("read commands: %w", err)
	}

	comp := compiler.New(registry)
	for _, cmd := range cmds {
		if err := comp.Apply(cmd); err != nil {
			return fmt.Errorf("apply command: %w", err)
		}
	}

	loader := buffer.CompilerLoader{
		Provider: buffer.NewFileProvider(),
		Rate:     uint32(cfg.SampleRate),
		Mode:     cfg.ResampleMode(),
	}
	result, err := comp.Finalize(ctx, loader, dir)
	if err != nil {
		return fmt.Errorf("finalize: %w", err)
	}
	for _, d := range result.Diagnostics {
		logger.Warn("compiler diagnostic", "kind", d.Kind, "id", d.ID, "error", d.Err)
	}

	group, ok := result.Groups[cfg.Group]
	if !ok {
		return fmt.Errorf("group %d not found in compiled result", cfg.Group)
	}

	rendered, err := engine.Run(ctx, result, registry)
	if err != nil {
		return fmt.Errorf("render graph: %w", err)
	}

	if err := publishSinks(dir, result, rendered); err != nil {
		return fmt.Errorf("publish rendered sinks: %w", err)
	}

	src := &mixer.StoreSource{Store: dir}
	mix := &mixer.Mixer{Source: src}

	out, closeOut, err := openOutput(cfg.Output)
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}
	defer closeOut()

	if cfg.WAV {
		return mixToWAV(ctx, mix, group, result.Sinks, cfg, out)
	}
	return mixToRaw(ctx, mix, group, result.Sinks, cfg, out)
}

// publishSinks writes every freshly rendered sink's samples into the
// store under its compiler-assigned hash, so mixer.StoreSource can read
// them back uniformly with sinks that were already cached.
func publishSinks(dir *store.Directory, result *compiler.Result, rendered map[uint64][]float32) error {
	for id, samples := range rendered {
		sink := findSinkByNode(result.Sinks, id)
		if sink == nil || sink.Hash == euphash.Empty {
			continue
		}
		if dir.IsCached(sink.Hash) {
			continue
		}
		out, ok, err := dir.Sink(sink.Hash)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := writeFloat32LE(out, samples); err != nil {
			out.Discard()
			return err
		}
		if err := out.Finish(); err != nil {
			return err
		}
	}
	return nil
}

func findSinkByNode(sinks map[uint64]*compiler.Sink, node uint64) *compiler.Sink {
	if sink, ok := sinks[node]; ok {
		return sink
	}
	return nil
}

func writeFloat32LE(w io.Writer, samples []float32) error {
	buf := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(s))
	}
	_, err := w.Write(buf)
	return err
}

// collectingWriter accumulates every WriteFrames batch into full,
// per-channel slices, for callers (the -wav path) that need the whole
// render in memory before handing it to an encoder.
type collectingWriter struct {
	channels [][]float32
}

func (c *collectingWriter) WriteFrames(channels [][]float32) error {
	if c.channels == nil {
		c.channels = make([][]float32, len(channels))
	}
	for i, ch := range channels {
		c.channels[i] = append(c.channels[i], ch...)
	}
	return nil
}

func (c *collectingWriter) Flush() error { return nil }

func mixToRaw(ctx context.Context, mix *mixer.Mixer, group *compiler.Group, sinks map[uint64]*compiler.Sink, cfg *config.Config, out io.Writer) error {
	w := channelWriter(cfg, out)
	return mix.MixGroup(ctx, group, sinks, w)
}

func mixToWAV(ctx context.Context, mix *mixer.Mixer, group *compiler.Group, sinks map[uint64]*compiler.Sink, cfg *config.Config, out io.Writer) error {
	seekable, ok := out.(io.WriteSeeker)
	if !ok {
		return fmt.Errorf("euphonyd: -wav requires a seekable destination, not a pipe")
	}
	collector := &collectingWriter{}
	if err := mix.MixGroup(ctx, group, sinks, collector); err != nil {
		return err
	}
	return wavwriter.WriteWAV(seekable, cfg.SampleRate, collector.channels)
}

func channelWriter(cfg *config.Config, out io.Writer) mixer.Writer {
	if cfg.Channels == "mono" {
		return mixer.NewMono(out)
	}
	return mixer.NewStereo(out)
}

func readCommands(path string) ([]command.Command, error) {
	if path == "-" {
		dec := command.NewDecoder(os.Stdin)
		return dec.All()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec := command.NewDecoder(f)
	return dec.All()
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}
