package command

import (
	"errors"
	"io"
)

// ErrStreamEnded is returned by Decoder.Next once the underlying reader
// is exhausted at a frame boundary — a clean end of stream, distinct
// from a truncated frame.
var ErrStreamEnded = errors.New("command: end of stream")

// Decode reads exactly one tagged command from r.
func Decode(r io.Reader) (Command, error) {
	tag, err := readU8(r)
	if err != nil {
		if errors.Is(err, ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		return nil, err
	}
	return decodeTagged(tag, r)
}

func decodeTagged(tag byte, r io.Reader) (Command, error) {
	switch tag {
	case tagAdvanceTime:
		return decodeAdvanceTime(r)
	case tagSetTiming:
		return decodeSetTiming(r)
	case tagCreateGroup:
		return decodeCreateGroup(r)
	case tagSpawnNodeNoGroup, tagSpawnNodeWithGroup:
		return decodeSpawnNode(tag, r)
	case tagForkNode:
		return decodeForkNode(r)
	case tagEmitMidiNoGroup, tagEmitMidiWithGroup:
		return decodeEmitMidi(tag, r)
	case tagSetParameterNone, tagSetParameterSome:
		return decodeSetParameter(tag, r)
	case tagPipeParameterNone, tagPipeParameterSome:
		return decodePipeParameter(tag, r)
	case tagFinishNode:
		return decodeFinishNode(r)
	case tagLoadBuffer:
		return decodeLoadBuffer(r)
	case tagSetBuffer:
		return decodeSetBuffer(r)
	default:
		return nil, ErrInvalidTag
	}
}

// Decoder streams commands out of r one frame at a time, used by the
// compiler to avoid materializing an entire command log in memory.
type Decoder struct {
	r io.Reader
}

// NewDecoder returns a Decoder reading tagged commands from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Next returns the next command, or ErrStreamEnded once r is exhausted
// exactly at a frame boundary.
func (d *Decoder) Next() (Command, error) {
	tag, err := readU8(d.r)
	if err != nil {
		if errors.Is(err, ErrUnexpectedEOF) {
			return nil, ErrStreamEnded
		}
		return nil, err
	}
	return decodeTagged(tag, d.r)
}

// All drains the decoder, returning every command in order. It stops
// cleanly at ErrStreamEnded and propagates any other error.
func (d *Decoder) All() ([]Command, error) {
	var out []Command
	for {
		cmd, err := d.Next()
		if err != nil {
			if errors.Is(err, ErrStreamEnded) {
				return out, nil
			}
			return out, err
		}
		out = append(out, cmd)
	}
}
