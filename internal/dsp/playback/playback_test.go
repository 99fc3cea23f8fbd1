package playback

import (
	"testing"

	"github.com/tonegraph/euphony/internal/dspnode"
)

type fakeBuffers map[int][]float32

func (f fakeBuffers) Channel(idx int) ([]float32, bool) {
	v, ok := f[idx]
	return v, ok
}

func TestPlaybackAdvancesAtUnityRate(t *testing.T) {
	p := NewBufferPlayback()
	buffers := fakeBuffers{0: {0, 1, 2, 3, 4}}
	out := make([]float32, 3)
	p.RenderPartial([]dspnode.Input{dspnode.ConstantInput(1.0)}, buffers, out)
	if out[0] != 0 || out[1] != 1 || out[2] != 2 {
		t.Fatalf("got %v, want [0 1 2]", out)
	}
}

func TestPlaybackSilentAfterEnd(t *testing.T) {
	p := NewBufferPlayback()
	buffers := fakeBuffers{0: {0, 1}}
	out := make([]float32, 5)
	p.RenderPartial([]dspnode.Input{dspnode.ConstantInput(1.0)}, buffers, out)
	if out[len(out)-1] != 0 {
		t.Fatalf("expected silence after buffer end, got %v", out[len(out)-1])
	}
}

func TestPlaybackNoBufferBoundIsSilent(t *testing.T) {
	p := NewBufferPlayback()
	out := make([]float32, 4)
	p.RenderPartial([]dspnode.Input{dspnode.ConstantInput(1.0)}, dspnode.NoBuffers{}, out)
	for _, v := range out {
		if v != 0 {
			t.Fatalf("expected silence with no buffer bound, got %v", v)
		}
	}
}
