// Package command implements the binary wire format for the composer's
// event log: a time-ordered stream of tagged commands that the compiler
// consumes to build its dependency graph.
//
// Every command starts with a single ASCII tag byte identifying its
// variant, sometimes with a second tag value used to elide a
// commonly-zero field. Multi-byte integers are big-endian. Strings are
// length-prefixed, either with a u8 (short names) or u32 (paths).
package command

import "io"

// Command is implemented by every wire-format command. Encode writes the
// tag byte followed by the command's fields; a Command never reads or
// writes anything beyond its own frame.
type Command interface {
	Encode(w io.Writer) error
	// tag returns the byte this command encodes with, used by Decode's
	// dispatch and by tests that check the tag table directly.
	tag() byte
}

// AdvanceTime moves the timeline forward by a number of ticks at the
// current samples-per-tick rate.
type AdvanceTime struct {
	Ticks uint64
}

const tagAdvanceTime = 't'

func (c AdvanceTime) tag() byte { return tagAdvanceTime }

func (c AdvanceTime) Encode(w io.Writer) error {
	if err := writeU8(w, tagAdvanceTime); err != nil {
		return err
	}
	return writeU64(w, c.Ticks)
}

func decodeAdvanceTime(r io.Reader) (AdvanceTime, error) {
	ticks, err := readU64(r)
	return AdvanceTime{Ticks: ticks}, err
}

// SetTiming changes the duration of a tick and the number of ticks per
// beat, taking effect on the next AdvanceTime.
type SetTiming struct {
	NanosPerTick uint64
	TicksPerBeat uint64
}

const tagSetTiming = 'T'

func (c SetTiming) tag() byte { return tagSetTiming }

func (c SetTiming) Encode(w io.Writer) error {
	if err := writeU8(w, tagSetTiming); err != nil {
		return err
	}
	if err := writeU64(w, c.NanosPerTick); err != nil {
		return err
	}
	return writeU64(w, c.TicksPerBeat)
}

func decodeSetTiming(r io.Reader) (SetTiming, error) {
	nanos, err := readU64(r)
	if err != nil {
		return SetTiming{}, err
	}
	ticks, err := readU64(r)
	if err != nil {
		return SetTiming{}, err
	}
	return SetTiming{NanosPerTick: nanos, TicksPerBeat: ticks}, nil
}

// CreateGroup registers a named group that nodes can be parented under.
// Name is truncated to 255 bytes on encode.
type CreateGroup struct {
	ID   uint64
	Name string
}

const tagCreateGroup = 'g'

func (c CreateGroup) tag() byte { return tagCreateGroup }

func (c CreateGroup) Encode(w io.Writer) error {
	if err := writeU8(w, tagCreateGroup); err != nil {
		return err
	}
	if err := writeU64(w, c.ID); err != nil {
		return err
	}
	return writeString8(w, c.Name)
}

func decodeCreateGroup(r io.Reader) (CreateGroup, error) {
	id, err := readU64(r)
	if err != nil {
		return CreateGroup{}, err
	}
	n, err := readU8(r)
	if err != nil {
		return CreateGroup{}, err
	}
	name, err := readString(r, int(n))
	if err != nil {
		return CreateGroup{}, err
	}
	return CreateGroup{ID: id, Name: name}, nil
}

// SpawnNode instantiates a processor node, optionally parented under a
// group. Group is nil when the node belongs to the timeline root.
type SpawnNode struct {
	ID        uint64
	Processor uint64
	Group     *uint64
}

const (
	tagSpawnNodeNoGroup   = 'n'
	tagSpawnNodeWithGroup = 'N'
)

func (c SpawnNode) tag() byte {
	if c.Group != nil {
		return tagSpawnNodeWithGroup
	}
	return tagSpawnNodeNoGroup
}

func (c SpawnNode) Encode(w io.Writer) error {
	if err := writeU8(w, c.tag()); err != nil {
		return err
	}
	if err := writeU64(w, c.ID); err != nil {
		return err
	}
	if err := writeU64(w, c.Processor); err != nil {
		return err
	}
	if c.Group != nil {
		return writeU64(w, *c.Group)
	}
	return nil
}

func decodeSpawnNode(tag byte, r io.Reader) (SpawnNode, error) {
	id, err := readU64(r)
	if err != nil {
		return SpawnNode{}, err
	}
	processor, err := readU64(r)
	if err != nil {
		return SpawnNode{}, err
	}
	var group *uint64
	if tag == tagSpawnNodeWithGroup {
		g, err := readU64(r)
		if err != nil {
			return SpawnNode{}, err
		}
		group = &g
	}
	return SpawnNode{ID: id, Processor: processor, Group: group}, nil
}

// ForkNode creates target as a new node sharing source's processor state,
// the mechanism behind pattern replication without re-running a
// processor's constructor.
type ForkNode struct {
	Source uint64
	Target uint64
}

const tagForkNode = 'k'

func (c ForkNode) tag() byte { return tagForkNode }

func (c ForkNode) Encode(w io.Writer) error {
	if err := writeU8(w, tagForkNode); err != nil {
		return err
	}
	if err := writeU64(w, c.Source); err != nil {
		return err
	}
	return writeU64(w, c.Target)
}

func decodeForkNode(r io.Reader) (ForkNode, error) {
	source, err := readU64(r)
	if err != nil {
		return ForkNode{}, err
	}
	target, err := readU64(r)
	if err != nil {
		return ForkNode{}, err
	}
	return ForkNode{Source: source, Target: target}, nil
}

// EmitMidi records a raw 3-byte MIDI message at the current timeline
// position, optionally scoped to a group's dump rather than the root.
type EmitMidi struct {
	Data  [3]byte
	Group *uint64
}

const (
	tagEmitMidiNoGroup   = 'm'
	tagEmitMidiWithGroup = 'M'
)

func (c EmitMidi) tag() byte {
	if c.Group != nil {
		return tagEmitMidiWithGroup
	}
	return tagEmitMidiNoGroup
}

func (c EmitMidi) Encode(w io.Writer) error {
	if err := writeU8(w, c.tag()); err != nil {
		return err
	}
	if _, err := w.Write(c.Data[:]); err != nil {
		return err
	}
	if c.Group != nil {
		return writeU64(w, *c.Group)
	}
	return nil
}

func decodeEmitMidi(tag byte, r io.Reader) (EmitMidi, error) {
	raw, err := readBytes(r, 3)
	if err != nil {
		return EmitMidi{}, err
	}
	var data [3]byte
	copy(data[:], raw)
	var group *uint64
	if tag == tagEmitMidiWithGroup {
		g, err := readU64(r)
		if err != nil {
			return EmitMidi{}, err
		}
		group = &g
	}
	return EmitMidi{Data: data, Group: group}, nil
}

// SetParameter assigns a constant value, as an f64 bit pattern, to a
// node's parameter. TargetParameter 0 is elided on the wire: the common
// case of a node's sole parameter costs one less u64 than any other.
type SetParameter struct {
	TargetNode      uint64
	TargetParameter uint64
	Value           uint64 // f64 bits, per math.Float64bits
}

const (
	tagSetParameterNone = 's'
	tagSetParameterSome = 'S'
)

func (c SetParameter) tag() byte {
	if c.TargetParameter == 0 {
		return tagSetParameterNone
	}
	return tagSetParameterSome
}

func (c SetParameter) Encode(w io.Writer) error {
	if c.TargetParameter == 0 {
		if err := writeU8(w, tagSetParameterNone); err != nil {
			return err
		}
		if err := writeU64(w, c.TargetNode); err != nil {
			return err
		}
		return writeU64(w, c.Value)
	}
	if err := writeU8(w, tagSetParameterSome); err != nil {
		return err
	}
	if err := writeU64(w, c.TargetNode); err != nil {
		return err
	}
	if err := writeU64(w, c.TargetParameter); err != nil {
		return err
	}
	return writeU64(w, c.Value)
}

func decodeSetParameter(tag byte, r io.Reader) (SetParameter, error) {
	targetNode, err := readU64(r)
	if err != nil {
		return SetParameter{}, err
	}
	var targetParameter uint64
	if tag == tagSetParameterSome {
		targetParameter, err = readU64(r)
		if err != nil {
			return SetParameter{}, err
		}
	}
	value, err := readU64(r)
	if err != nil {
		return SetParameter{}, err
	}
	return SetParameter{TargetNode: targetNode, TargetParameter: targetParameter, Value: value}, nil
}

// PipeParameter routes another node's output into a parameter in place
// of a constant, the mechanism behind modulation. TargetParameter 0 is
// elided the same way SetParameter elides it.
type PipeParameter struct {
	TargetNode      uint64
	TargetParameter uint64
	SourceNode      uint64
}

const (
	tagPipeParameterNone = 'p'
	tagPipeParameterSome = 'P'
)

func (c PipeParameter) tag() byte {
	if c.TargetParameter == 0 {
		return tagPipeParameterNone
	}
	return tagPipeParameterSome
}

func (c PipeParameter) Encode(w io.Writer) error {
	if c.TargetParameter == 0 {
		if err := writeU8(w, tagPipeParameterNone); err != nil {
			return err
		}
		if err := writeU64(w, c.TargetNode); err != nil {
			return err
		}
		return writeU64(w, c.SourceNode)
	}
	if err := writeU8(w, tagPipeParameterSome); err != nil {
		return err
	}
	if err := writeU64(w, c.TargetNode); err != nil {
		return err
	}
	if err := writeU64(w, c.SourceNode); err != nil {
		return err
	}
	return writeU64(w, c.TargetParameter)
}

func decodePipeParameter(tag byte, r io.Reader) (PipeParameter, error) {
	targetNode, err := readU64(r)
	if err != nil {
		return PipeParameter{}, err
	}
	sourceNode, err := readU64(r)
	if err != nil {
		return PipeParameter{}, err
	}
	v := PipeParameter{TargetNode: targetNode, SourceNode: sourceNode}
	switch tag {
	case tagPipeParameterNone:
	case tagPipeParameterSome:
		param, err := readU64(r)
		if err != nil {
			return PipeParameter{}, err
		}
		v.TargetParameter = param
	default:
		return PipeParameter{}, &InvariantViolationError{Reason: "pipe parameter: unknown tag variant"}
	}
	return v, nil
}

// FinishNode marks a node as closed: no further SetParameter, PipeParameter,
// or SetBuffer commands may target it.
type FinishNode struct {
	Node uint64
}

const tagFinishNode = 'f'

func (c FinishNode) tag() byte { return tagFinishNode }

func (c FinishNode) Encode(w io.Writer) error {
	if err := writeU8(w, tagFinishNode); err != nil {
		return err
	}
	return writeU64(w, c.Node)
}

func decodeFinishNode(r io.Reader) (FinishNode, error) {
	node, err := readU64(r)
	return FinishNode{Node: node}, err
}

// LoadBuffer registers an external audio asset at Path, decoded according
// to Ext (a file extension such as "wav" or "flac"; empty defers to
// sniffing the path itself).
type LoadBuffer struct {
	ID   uint64
	Path string
	Ext  string
}

const tagLoadBuffer = 'B'

func (c LoadBuffer) tag() byte { return tagLoadBuffer }

func (c LoadBuffer) Encode(w io.Writer) error {
	if err := writeU8(w, tagLoadBuffer); err != nil {
		return err
	}
	if err := writeU64(w, c.ID); err != nil {
		return err
	}
	if err := writeString32(w, c.Path); err != nil {
		return err
	}
	return writeString8(w, c.Ext)
}

func decodeLoadBuffer(r io.Reader) (LoadBuffer, error) {
	id, err := readU64(r)
	if err != nil {
		return LoadBuffer{}, err
	}
	pathLen, err := readU32(r)
	if err != nil {
		return LoadBuffer{}, err
	}
	path, err := readString(r, int(pathLen))
	if err != nil {
		return LoadBuffer{}, err
	}
	extLen, err := readU8(r)
	if err != nil {
		return LoadBuffer{}, err
	}
	ext, err := readString(r, int(extLen))
	if err != nil {
		return LoadBuffer{}, err
	}
	return LoadBuffer{ID: id, Path: path, Ext: ext}, nil
}

// SetBuffer wires one channel of a loaded buffer into a node's parameter,
// used for sample playback processors. Unlike SetParameter and
// PipeParameter, all four fields are always present: a buffer reference
// has no common-zero field worth eliding.
type SetBuffer struct {
	TargetNode      uint64
	TargetParameter uint64
	Buffer          uint64
	BufferChannel   uint64
}

const tagSetBuffer = 'u'

func (c SetBuffer) tag() byte { return tagSetBuffer }

func (c SetBuffer) Encode(w io.Writer) error {
	if err := writeU8(w, tagSetBuffer); err != nil {
		return err
	}
	if err := writeU64(w, c.TargetNode); err != nil {
		return err
	}
	if err := writeU64(w, c.TargetParameter); err != nil {
		return err
	}
	if err := writeU64(w, c.Buffer); err != nil {
		return err
	}
	return writeU64(w, c.BufferChannel)
}

func decodeSetBuffer(r io.Reader) (SetBuffer, error) {
	targetNode, err := readU64(r)
	if err != nil {
		return SetBuffer{}, err
	}
	targetParameter, err := readU64(r)
	if err != nil {
		return SetBuffer{}, err
	}
	buffer, err := readU64(r)
	if err != nil {
		return SetBuffer{}, err
	}
	channel, err := readU64(r)
	if err != nil {
		return SetBuffer{}, err
	}
	return SetBuffer{TargetNode: targetNode, TargetParameter: targetParameter, Buffer: buffer, BufferChannel: channel}, nil
}
