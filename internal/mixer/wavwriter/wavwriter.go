// Package wavwriter wraps the mixer's raw interleaved f32 output in a
// standard RIFF/WAVE container. The engine's on-disk artifacts never
// carry this header; it exists so a rendered group can be opened in an
// ordinary audio tool or fed to a test that wants a self-describing
// file.
package wavwriter

import (
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const bitDepth = 16

// WriteWAV encodes channels (one full float32 sample sequence per
// output channel, all the same length) to dst as a 16-bit PCM WAVE
// file at sampleRate. dst must support Seek because the WAVE header's
// size fields are patched in after the data is written.
func WriteWAV(dst io.WriteSeeker, sampleRate int, channels [][]float32) error {
	if len(channels) == 0 {
		return fmt.Errorf("wavwriter: no channels to write")
	}
	frameCount := len(channels[0])
	for i, ch := range channels {
		if len(ch) != frameCount {
			return fmt.Errorf("wavwriter: channel %d has %d frames, want %d", i, len(ch), frameCount)
		}
	}

	data := make([]int, frameCount*len(channels))
	for i := 0; i < frameCount; i++ {
		base := i * len(channels)
		for c, ch := range channels {
			data[base+c] = floatToInt16(ch[i])
		}
	}

	buf := &audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{SampleRate: sampleRate, NumChannels: len(channels)},
		SourceBitDepth: bitDepth,
	}

	enc := wav.NewEncoder(dst, sampleRate, bitDepth, len(channels), 1)
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("wavwriter: write: %w", err)
	}
	return enc.Close()
}

// floatToInt16 clamps v to [-1, 1] and scales it to the 16-bit PCM
// range.
func floatToInt16(v float32) int {
	switch {
	case v > 1:
		v = 1
	case v < -1:
		v = -1
	}
	return int(v * 32767)
}
