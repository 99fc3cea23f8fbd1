package compiler

import (
	"errors"
	"fmt"
)

// MissingNodeError reports a command referencing a node id that the
// compiler has no record of.
type MissingNodeError struct{ ID uint64 }

func (e *MissingNodeError) Error() string { return fmt.Sprintf("compiler: missing node %d", e.ID) }

// NodeReusedError reports a SpawnNode or ForkNode targeting an id that is
// already live.
type NodeReusedError struct{ ID uint64 }

func (e *NodeReusedError) Error() string {
	return fmt.Sprintf("compiler: node id %d was reused", e.ID)
}

// UnknownProcessorError reports a SpawnNode naming a processor id absent
// from the registry it was compiled against.
type UnknownProcessorError struct{ ID uint64 }

func (e *UnknownProcessorError) Error() string {
	return fmt.Sprintf("compiler: non-existant processor %d", e.ID)
}

// ErrCyclicSink reports that a sink's parameter-edge graph contains a
// cycle. The source material's error text called this condition
// "acyclic sink", inverted from what it actually detects; this type is
// named for the defect it reports instead.
type ErrCyclicSink struct{ SinkID uint64 }

func (e *ErrCyclicSink) Error() string { return fmt.Sprintf("compiler: cyclic sink %d", e.SinkID) }

var (
	// ErrSampleOverflow is returned when AdvanceTime would carry the
	// timeline past the range of a uint64 sample count.
	ErrSampleOverflow = errors.New("compiler: sample overflow")

	// ErrZeroNanosPerTick is returned when SetTiming specifies a
	// zero-duration tick.
	ErrZeroNanosPerTick = errors.New("compiler: nanos per tick must be non-zero")

	// ErrSinkSource is returned when PipeParameter names a sink as its
	// source: a sink has no output of its own to pipe from.
	ErrSinkSource = errors.New("compiler: cannot connect sink output to another node")

	// errNodeFinished is returned by a Node's mutating methods once
	// FinishNode has closed it.
	errNodeFinished = errors.New("compiler: node already finished")
)
