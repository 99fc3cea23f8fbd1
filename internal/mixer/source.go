// Package mixer sums a group's rendered sinks into a single output
// stream, reading already-rendered frames back from the content store
// where possible and falling back to a caller-supplied render function
// otherwise, then writes the result through a stereo or mono Writer.
package mixer

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/tonegraph/euphony/internal/euphash"
	"github.com/tonegraph/euphony/internal/store"
)

// Source produces a sink's rendered frames, deinterleaved into one
// []float32 per channel. frameCount is the sink's known sample count;
// the raw on-disk format carries no header, so the channel count is
// inferred from the artifact's byte length against it (len(raw) ==
// frameCount * channels * 4). A negative frameCount means the length is
// unknown; a cached artifact is then read as mono.
type Source interface {
	Frames(ctx context.Context, hash store.Hash, frameCount int) (channels [][]float32, err error)
}

// Render produces a sink's frames when they are not already cached. It
// is also responsible for nothing beyond that: StoreSource publishes the
// result back to the store itself, so a render callback never needs to
// know about caching.
type Render func(ctx context.Context, hash store.Hash, frameCount int) ([][]float32, error)

// StoreSource reads sink frames from a content-addressed store, calling
// Render for anything not already present and publishing what it
// returns under the same hash so later lookups hit the cache.
type StoreSource struct {
	Store  *store.Directory
	Render Render
}

// Frames implements Source.
func (s *StoreSource) Frames(ctx context.Context, hash store.Hash, frameCount int) ([][]float32, error) {
	if s.Store.IsCached(hash) {
		return readInterleaved(s.Store, hash, frameCount)
	}
	if s.Render == nil {
		return nil, fmt.Errorf("mixer: sink %s is not cached and no renderer is configured", euphash.EncodePath(hash))
	}
	channels, err := s.Render(ctx, hash, frameCount)
	if err != nil {
		return nil, fmt.Errorf("mixer: render sink %s: %w", euphash.EncodePath(hash), err)
	}
	if err := publishInterleaved(s.Store, hash, channels); err != nil {
		return nil, fmt.Errorf("mixer: publish sink %s: %w", euphash.EncodePath(hash), err)
	}
	return channels, nil
}

func readInterleaved(d *store.Directory, hash store.Hash, frameCount int) ([][]float32, error) {
	r, err := d.OpenRaw(hash)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	if frameCount < 0 {
		// Unknown length: read the artifact as mono.
		frameCount = len(raw) / 4
	}
	channels, err := channelsFromByteLength(len(raw), frameCount)
	if err != nil {
		return nil, fmt.Errorf("mixer: sink %s: %w", euphash.EncodePath(hash), err)
	}
	return deinterleave(raw, frameCount, channels), nil
}

// channelsFromByteLength recovers a sink's channel count from its raw
// byte length and known frame count, the only two quantities the wire
// format makes available. A frame count of zero (an empty sink) has no
// way to disambiguate and is reported as silent mono.
func channelsFromByteLength(byteLen, frameCount int) (int, error) {
	if frameCount <= 0 {
		return 1, nil
	}
	const sampleSize = 4
	if byteLen%(frameCount*sampleSize) != 0 {
		return 0, fmt.Errorf("%d bytes is not a multiple of %d-frame samples", byteLen, frameCount)
	}
	channels := byteLen / (frameCount * sampleSize)
	if channels == 0 {
		return 0, fmt.Errorf("%d bytes is too short for %d frames", byteLen, frameCount)
	}
	return channels, nil
}

func deinterleave(raw []byte, frameCount, channels int) [][]float32 {
	out := make([][]float32, channels)
	for c := range out {
		out[c] = make([]float32, frameCount)
	}
	for i := 0; i < frameCount; i++ {
		base := i * channels * 4
		for c := 0; c < channels; c++ {
			bits := binary.LittleEndian.Uint32(raw[base+c*4:])
			out[c][i] = math.Float32frombits(bits)
		}
	}
	return out
}

func publishInterleaved(d *store.Directory, hash store.Hash, channels [][]float32) error {
	out, ok, err := d.Sink(hash)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	frameCount := 0
	if len(channels) > 0 {
		frameCount = len(channels[0])
	}
	buf := make([]byte, frameCount*len(channels)*4)
	for i := 0; i < frameCount; i++ {
		base := i * len(channels) * 4
		for c, ch := range channels {
			binary.LittleEndian.PutUint32(buf[base+c*4:], math.Float32bits(ch[i]))
		}
	}
	if _, err := out.Write(buf); err != nil {
		return err
	}
	_, err = out.Finish()
	return err
}
