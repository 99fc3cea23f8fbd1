package mixer

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Writer accepts successive batches of mixed frames, one []float32 per
// output channel, all the same length, and encodes them to its
// destination as interleaved little-endian f32 PCM.
type Writer interface {
	WriteFrames(channels [][]float32) error
	Flush() error
}

// Stereo writes two-channel output, duplicating a mono source to both
// channels and passing a stereo source through unchanged.
type Stereo struct {
	w   *bufio.Writer
	buf []byte
}

// NewStereo wraps dst in a buffered stereo Writer.
func NewStereo(dst io.Writer) *Stereo {
	return &Stereo{w: bufio.NewWriter(dst)}
}

func (s *Stereo) WriteFrames(channels [][]float32) error {
	left, right, err := stereoPair(channels)
	if err != nil {
		return err
	}
	n := len(left)
	need := n * 8
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}
	buf := s.buf[:need]
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(buf[i*8:], math.Float32bits(left[i]))
		binary.LittleEndian.PutUint32(buf[i*8+4:], math.Float32bits(right[i]))
	}
	_, err = s.w.Write(buf)
	return err
}

func (s *Stereo) Flush() error { return s.w.Flush() }

func stereoPair(channels [][]float32) (left, right []float32, err error) {
	switch len(channels) {
	case 1:
		return channels[0], channels[0], nil
	case 2:
		return channels[0], channels[1], nil
	default:
		return nil, nil, fmt.Errorf("mixer: stereo writer given %d channels, want 1 or 2", len(channels))
	}
}

// Mono writes single-channel output, averaging a stereo source down and
// passing a mono source through unchanged.
type Mono struct {
	w   *bufio.Writer
	buf []byte
}

// NewMono wraps dst in a buffered mono Writer.
func NewMono(dst io.Writer) *Mono {
	return &Mono{w: bufio.NewWriter(dst)}
}

func (m *Mono) WriteFrames(channels [][]float32) error {
	mono, err := monoDown(channels)
	if err != nil {
		return err
	}
	n := len(mono)
	need := n * 4
	if cap(m.buf) < need {
		m.buf = make([]byte, need)
	}
	buf := m.buf[:need]
	for i, v := range mono {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	_, err = m.w.Write(buf)
	return err
}

func (m *Mono) Flush() error { return m.w.Flush() }

func monoDown(channels [][]float32) ([]float32, error) {
	switch len(channels) {
	case 1:
		return channels[0], nil
	case 2:
		left, right := channels[0], channels[1]
		if len(left) != len(right) {
			return nil, fmt.Errorf("mixer: stereo channels have mismatched lengths %d and %d", len(left), len(right))
		}
		out := make([]float32, len(left))
		for i := range out {
			out[i] = (left[i] + right[i]) / 2
		}
		return out, nil
	default:
		return nil, fmt.Errorf("mixer: mono writer given %d channels, want 1 or 2", len(channels))
	}
}
