package command

import "io"

// Encoder writes a sequence of commands to w as a single contiguous
// stream, the form persisted as build/<hash>/cmd.osc.
type Encoder struct {
	w io.Writer
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Write encodes a single command.
func (e *Encoder) Write(c Command) error {
	return c.Encode(e.w)
}

// WriteAll encodes cmds in order, stopping at the first error.
func (e *Encoder) WriteAll(cmds []Command) error {
	for _, c := range cmds {
		if err := e.Write(c); err != nil {
			return err
		}
	}
	return nil
}
