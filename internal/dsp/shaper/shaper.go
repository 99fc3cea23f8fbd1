// Package shaper implements waveshaping distortion via a lookup table.
package shaper

import (
	"math"

	"github.com/tonegraph/euphony/internal/dspnode"
)

// IDWaveShaper is the WaveShaper processor's id, in the 600-649 block.
const IDWaveShaper = 600

const tableSize = 2049 // odd so the table has an exact center sample at 0.

// WaveShaper distorts its input signal through a fixed lookup table
// spanning the domain [-1, 1], linearly interpolated between entries.
type WaveShaper struct {
	table []float32
}

// NewWaveShaper returns a WaveShaper using table as its transfer curve.
// table must span [-1, 1] uniformly; a nil table defaults to a smooth
// tanh soft-clip curve.
func NewWaveShaper(table []float32) dspnode.Processor {
	if len(table) == 0 {
		table = defaultTanhTable()
	}
	return &WaveShaper{table: table}
}

func defaultTanhTable() []float32 {
	t := make([]float32, tableSize)
	for i := range t {
		x := float64(i)/float64(tableSize-1)*2 - 1
		t[i] = float32(math.Tanh(3 * x))
	}
	return t
}

func (s *WaveShaper) Inputs() int { return 1 }

func (s *WaveShaper) Render(inputs []dspnode.Input, b dspnode.Buffers, output *[dspnode.BatchSize]float32) {
	s.renderN(inputs, output[:])
}

func (s *WaveShaper) RenderPartial(inputs []dspnode.Input, b dspnode.Buffers, output []float32) {
	s.renderN(inputs, output)
}

func (s *WaveShaper) renderN(inputs []dspnode.Input, output []float32) {
	signal := inputs[0]
	n := len(s.table)
	for i := range output {
		x := float64(signal.At(i))
		if x < -1 {
			x = -1
		} else if x > 1 {
			x = 1
		}
		pos := (x + 1) / 2 * float64(n-1)
		i0 := int(pos)
		if i0 >= n-1 {
			output[i] = s.table[n-1]
			continue
		}
		frac := pos - float64(i0)
		output[i] = s.table[i0] + float32(frac)*(s.table[i0+1]-s.table[i0])
	}
}
