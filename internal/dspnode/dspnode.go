// Package dspnode defines the ABI shared by every processor in package
// dsp and its family subpackages: the Input/Buffers types a processor
// reads and the Processor interface the render graph calls.
package dspnode

// BatchSize is the number of samples a processor renders per call to
// Render. RenderPartial handles the final, possibly shorter, tail batch
// of a render.
const BatchSize = 128

// ChunkSize is an inner-loop unrolling hint. No processor in this module
// structures its loop around it: every family renders one sample per
// iteration.
const ChunkSize = 4

// InputKind distinguishes a constant scalar parameter from one driven by
// an upstream node's output.
type InputKind uint8

const (
	// KindConstant means Value holds the parameter for every sample in
	// the batch.
	KindConstant InputKind = iota
	// KindDynamic means Dynamic holds one sample per batch position,
	// taken from an upstream node's last rendered output.
	KindDynamic
)

// Input is one parameter slot's value for the batch about to render. A
// processor narrows a Constant's value into its working precision on
// first use; Dynamic already arrives as interior-graph float32.
type Input struct {
	Kind     InputKind
	Value    float64 // valid when Kind == KindConstant
	Dynamic  *[BatchSize]float32
	Partial  []float32 // non-nil only inside RenderPartial, overrides Dynamic's length
}

// ConstantInput builds a constant-valued Input.
func ConstantInput(v float64) Input {
	return Input{Kind: KindConstant, Value: v}
}

// DynamicInput builds an Input sourced from an upstream node's batch
// output.
func DynamicInput(out *[BatchSize]float32) Input {
	return Input{Kind: KindDynamic, Dynamic: out}
}

// At returns the sample at position i, materializing a constant input's
// repeated value or a partial tail's shorter slice.
func (in Input) At(i int) float32 {
	switch in.Kind {
	case KindConstant:
		return float32(in.Value)
	default:
		if in.Partial != nil {
			return in.Partial[i]
		}
		return in.Dynamic[i]
	}
}

// Buffers gives a processor read-only access to the sample buffers bound
// to its parameter slots, keyed by the parameter index a BufferRef named
// at compile time.
type Buffers interface {
	// Channel returns the decoded PCM samples for the buffer bound at
	// parameter index idx, or false if nothing is bound there.
	Channel(idx int) (samples []float32, ok bool)
}

// NoBuffers is a Buffers implementation for processors with no buffer
// inputs.
type NoBuffers struct{}

// Channel always reports no binding.
func (NoBuffers) Channel(int) ([]float32, bool) { return nil, false }

// Processor is the interface every node in package dsp and its family
// subpackages implements. A Processor instance is mutable private state
// (filter memory, oscillator phase, envelope position) owned by exactly
// one graph node.
type Processor interface {
	// Inputs reports how many parameter slots this processor reads, the
	// length Render and RenderPartial expect of their inputs slice.
	Inputs() int

	// Render writes exactly BatchSize samples to output, consuming one
	// sample from each entry of inputs per output position.
	Render(inputs []Input, buffers Buffers, output *[BatchSize]float32)

	// RenderPartial writes len(output) samples, used for the final,
	// possibly short, tail of a render. Implementations that hold
	// internal history (filters, envelopes) must leave state consistent
	// with having advanced by len(output) samples, not BatchSize.
	RenderPartial(inputs []Input, buffers Buffers, output []float32)
}

// Factory constructs a fresh Processor instance, the unit the compiler's
// processor registry hands back to the render graph on SpawnNode.
type Factory func() Processor
