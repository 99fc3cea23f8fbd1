// Package compiler turns a command stream into a scheduled instruction
// list the render graph can execute: it tracks node lifetimes and
// parameter histories, resolves the parameter-edge dependency graph into
// per-sink content hashes, and decides which nodes actually need
// rendering against a cache.
package compiler

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tonegraph/euphony/internal/command"
	"github.com/tonegraph/euphony/internal/euphash"
	"github.com/tonegraph/euphony/internal/timing"
)

// ProcessorLookup validates a SpawnNode's processor id against whatever
// DSP registry the caller is compiling against. The compiler package has
// no dependency on dsp itself, so it can be tested without a real
// processor library.
type ProcessorLookup interface {
	Exists(processorID uint64) bool
}

type pendingBuffer struct {
	path string
	ext  string
}

// MidiEvent is one EmitMidi command resolved to an absolute sample
// offset, accumulated per group for the store's MIDI group dump.
type MidiEvent struct {
	Offset timing.SampleOffset
	Data   [3]byte
}

// Compiler applies a sequence of wire-format commands and produces, on
// Finalize, an ordered instruction stream, a decoded buffer map, and the
// group set those instructions feed.
type Compiler struct {
	lookup ProcessorLookup

	samples        timing.SampleOffset
	samplesPerTick timing.Ratio128

	nodes   map[uint64]*Node
	sinks   map[uint64]*Sink
	groups  map[uint64]*Group
	midi    map[uint64][]MidiEvent
	graph   *dag
	nextIdx int

	pending map[uint64]pendingBuffer
	hashes  map[euphash.Hash]uint64 // content hash -> first node id that produced it

	commandCount int
}

// New returns a Compiler that validates processor ids against lookup. A
// nil lookup accepts every non-zero processor id, useful for tests that
// do not exercise the DSP registry.
func New(lookup ProcessorLookup) *Compiler {
	c := &Compiler{lookup: lookup}
	c.Reset()
	return c
}

// Reset discards all compile state (fresh, empty maps, offset zero, and
// the default samples-per-tick) so a Compiler can be reused across runs.
func (c *Compiler) Reset() {
	c.samples = 0
	c.samplesPerTick = timing.DefaultSamplesPerTick()
	c.nodes = make(map[uint64]*Node)
	c.sinks = make(map[uint64]*Sink)
	c.groups = make(map[uint64]*Group)
	c.midi = make(map[uint64][]MidiEvent)
	c.graph = newDAG()
	c.nextIdx = 0
	c.pending = make(map[uint64]pendingBuffer)
	c.hashes = make(map[euphash.Hash]uint64)
	c.commandCount = 0
}

// Stats summarizes the compiler's state for structured logging.
type Stats struct {
	Commands int
	Nodes    int
	Sinks    int
	Groups   int
}

// Stats reports the compiler's current command and entity counts.
func (c *Compiler) Stats() Stats {
	return Stats{Commands: c.commandCount, Nodes: len(c.nodes), Sinks: len(c.sinks), Groups: len(c.groups)}
}

// Apply dispatches cmd to its handler. A per-command error leaves the
// compiler's state consistent; the caller decides whether to keep
// applying the remaining stream.
func (c *Compiler) Apply(cmd command.Command) error {
	c.commandCount++
	switch v := cmd.(type) {
	case command.AdvanceTime:
		return c.advanceTime(v)
	case command.SetTiming:
		return c.setTiming(v)
	case command.CreateGroup:
		return c.createGroup(v)
	case command.SpawnNode:
		return c.spawnNode(v)
	case command.ForkNode:
		return c.forkNode(v)
	case command.EmitMidi:
		return c.emitMidi(v)
	case command.SetParameter:
		return c.setParameter(v)
	case command.PipeParameter:
		return c.pipeParameter(v)
	case command.FinishNode:
		return c.finishNode(v)
	case command.LoadBuffer:
		return c.loadBuffer(v)
	case command.SetBuffer:
		return c.setBuffer(v)
	default:
		return fmt.Errorf("compiler: unhandled command %T", cmd)
	}
}

func (c *Compiler) advanceTime(v command.AdvanceTime) error {
	if v.Ticks == 0 {
		return nil
	}
	delta, ok := c.samplesPerTick.MulTicks(v.Ticks)
	if !ok {
		return ErrSampleOverflow
	}
	next := uint64(c.samples) + delta
	if next < uint64(c.samples) {
		return ErrSampleOverflow
	}
	c.samples = timing.SampleOffset(next)
	return nil
}

func (c *Compiler) setTiming(v command.SetTiming) error {
	if v.NanosPerTick == 0 {
		return ErrZeroNanosPerTick
	}
	c.samplesPerTick = timing.SamplesPerTick(timing.DefaultRate, v.NanosPerTick, v.TicksPerBeat)
	return nil
}

func (c *Compiler) createGroup(v command.CreateGroup) error {
	g, ok := c.groups[v.ID]
	if !ok {
		g = newGroup(v.ID)
		c.groups[v.ID] = g
	}
	g.Name = v.Name
	return nil
}

func (c *Compiler) groupOrDefault(id *uint64) uint64 {
	if id != nil {
		return *id
	}
	return 0
}

func (c *Compiler) groupFor(id uint64) *Group {
	g, ok := c.groups[id]
	if !ok {
		g = newGroup(id)
		c.groups[id] = g
	}
	return g
}

func (c *Compiler) processorExists(id uint64) bool {
	if c.lookup == nil {
		return true
	}
	return c.lookup.Exists(id)
}

func (c *Compiler) spawnNode(v command.SpawnNode) error {
	if _, exists := c.nodes[v.ID]; exists {
		return &NodeReusedError{ID: v.ID}
	}
	if v.Processor != 0 && !c.processorExists(v.Processor) {
		return &UnknownProcessorError{ID: v.Processor}
	}

	idx := c.nextIdx
	c.nextIdx++
	c.graph.addNode(idx)
	c.nodes[v.ID] = newNode(v.ID, idx, v.Processor, c.samples)

	if v.Processor == 0 {
		c.sinks[v.ID] = newSink(v.ID, c.samples)
		c.groupFor(c.groupOrDefault(v.Group)).addSink(c.samples, v.ID)
	}
	return nil
}

// forkNode clones source's processor id and full, unmodified parameter
// history onto target, reusing source's absolute sample offsets rather
// than time-shifting them: a fork is a deferred-realization alias, not a
// timeline copy. See DESIGN.md for why this resolution was chosen over
// rejecting the command outright.
func (c *Compiler) forkNode(v command.ForkNode) error {
	src, ok := c.nodes[v.Source]
	if !ok {
		return &MissingNodeError{ID: v.Source}
	}
	if _, exists := c.nodes[v.Target]; exists {
		return &NodeReusedError{ID: v.Target}
	}

	idx := c.nextIdx
	c.nextIdx++
	c.graph.addNode(idx)

	clone := newNode(v.Target, idx, src.Processor, src.Start)
	clone.events = append(clone.events, src.events...)
	if src.End != nil {
		end := *src.End
		clone.End = &end
	}
	c.nodes[v.Target] = clone

	for _, e := range src.events {
		if e.value.IsNode() {
			if dep, ok := c.nodes[e.value.node]; ok {
				c.graph.addEdge(idx, dep.Index)
			}
		}
	}
	return nil
}

// emitMidi records a raw MIDI message at the current offset under its
// target group's dump, not grounded in a retrieved compiler handler (see
// DESIGN.md); the design here follows spec.md's description of the MIDI
// group dump as a per-group, time-ordered event sequence.
func (c *Compiler) emitMidi(v command.EmitMidi) error {
	groupID := c.groupOrDefault(v.Group)
	c.groupFor(groupID)
	c.midi[groupID] = append(c.midi[groupID], MidiEvent{Offset: c.samples, Data: v.Data})
	return nil
}

func (c *Compiler) setParameter(v command.SetParameter) error {
	n, ok := c.nodes[v.TargetNode]
	if !ok {
		return &MissingNodeError{ID: v.TargetNode}
	}
	return n.set(v.TargetParameter, math.Float64frombits(v.Value), c.samples)
}

func (c *Compiler) pipeParameter(v command.PipeParameter) error {
	if _, isSink := c.sinks[v.SourceNode]; isSink {
		return ErrSinkSource
	}
	source, ok := c.nodes[v.SourceNode]
	if !ok {
		return &MissingNodeError{ID: v.SourceNode}
	}
	target, ok := c.nodes[v.TargetNode]
	if !ok {
		return &MissingNodeError{ID: v.TargetNode}
	}
	if err := target.connect(v.TargetParameter, v.SourceNode, c.samples); err != nil {
		return err
	}
	c.graph.addEdge(target.Index, source.Index)
	return nil
}

func (c *Compiler) finishNode(v command.FinishNode) error {
	n, ok := c.nodes[v.Node]
	if !ok {
		return &MissingNodeError{ID: v.Node}
	}
	return n.finish(c.samples)
}

func (c *Compiler) loadBuffer(v command.LoadBuffer) error {
	c.pending[v.ID] = pendingBuffer{path: v.Path, ext: v.Ext}
	return nil
}

func (c *Compiler) setBuffer(v command.SetBuffer) error {
	n, ok := c.nodes[v.TargetNode]
	if !ok {
		return &MissingNodeError{ID: v.TargetNode}
	}
	return n.setBuffer(v.TargetParameter, v.Buffer, v.BufferChannel, c.samples)
}

// BufferData is a loaded buffer's decoded channels plus its content
// hash, the unit the sink hasher and the render graph both consume.
type BufferData struct {
	Channels [][]float32
	Hash     euphash.Hash
}

// BufferLoader decodes a pending LoadBuffer registration. Decode errors
// are downgraded to a Diagnostic and an empty buffer; Finalize never
// fails because of them.
type BufferLoader interface {
	Load(ctx context.Context, path, ext string) (BufferData, error)
}

// Cache reports whether a sink's content hash already has a stored
// artifact, letting Finalize skip re-activating already-rendered work.
type Cache interface {
	IsCached(h euphash.Hash) bool
}

// DiagnosticKind distinguishes the two non-fatal failure modes Finalize
// can report without aborting the rest of the compile.
type DiagnosticKind uint8

const (
	DiagnosticCyclicSink DiagnosticKind = iota
	DiagnosticBufferDecode
)

// Diagnostic is one non-fatal Finalize failure: a cyclic sink (that sink
// alone does not render) or a buffer decode error (that buffer reads
// back as silence).
type Diagnostic struct {
	Kind DiagnosticKind
	ID   uint64
	Err  error
}

// Result is everything Finalize hands back: the scheduled instruction
// stream, decoded buffers, the group and sink tables those instructions
// reference, any MIDI events recorded per group, and a list of non-fatal
// diagnostics accumulated along the way.
type Result struct {
	Instructions []Instruction
	Buffers      map[uint64]BufferData
	Groups       map[uint64]*Group
	Sinks        map[uint64]*Sink
	Midi         map[uint64][]MidiEvent
	Diagnostics  []Diagnostic
}

// Finalize closes every still-open node, decodes pending buffers, hashes
// every sink over its parameter-edge dependency graph, activates the
// members of uncached and not-yet-seen sinks, and emits the active
// nodes' instructions in (sample_offset, kind, node id) order.
//
// A cyclic sink is reported as a Diagnostic, not a returned error: other
// sinks still render. The returned error is always nil; a nil loader or
// cache is accepted and treated as "none supplied".
func (c *Compiler) Finalize(ctx context.Context, loader BufferLoader, cache Cache) (*Result, error) {
	c.closeAndHashNodes()

	buffers, bufferDiagnostics := c.decodeBuffers(ctx, loader)

	idxToNode := make(map[int]*Node, len(c.nodes))
	for _, n := range c.nodes {
		idxToNode[n.Index] = n
	}
	c.hashSinks(idxToNode, buffers)

	active, diagnostics := c.activateSinks(cache)
	diagnostics = append(diagnostics, bufferDiagnostics...)

	instructions := c.emitInstructions(active)

	for _, g := range c.groups {
		g.updateHash(c.sinks)
	}

	return &Result{
		Instructions: instructions,
		Buffers:      buffers,
		Groups:       c.groups,
		Sinks:        c.sinks,
		Midi:         c.midi,
		Diagnostics:  diagnostics,
	}, nil
}

func (c *Compiler) closeAndHashNodes() {
	var group errgroup.Group
	for _, n := range c.nodes {
		n := n
		group.Go(func() error {
			if n.End == nil {
				_ = n.finish(c.samples)
			}
			h := euphash.NewHasher()
			n.localHash(h)
			n.hash = h.Finalize()
			return nil
		})
	}
	_ = group.Wait()
}

func (c *Compiler) decodeBuffers(ctx context.Context, loader BufferLoader) (map[uint64]BufferData, []Diagnostic) {
	buffers := make(map[uint64]BufferData, len(c.pending))
	if loader == nil {
		for id := range c.pending {
			buffers[id] = BufferData{Hash: euphash.Empty}
		}
		return buffers, nil
	}

	var mu sync.Mutex
	var diagnostics []Diagnostic
	group, gctx := errgroup.WithContext(ctx)
	for id, p := range c.pending {
		id, p := id, p
		group.Go(func() error {
			data, err := loader.Load(gctx, p.path, p.ext)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				diagnostics = append(diagnostics, Diagnostic{Kind: DiagnosticBufferDecode, ID: id, Err: err})
				data = BufferData{Hash: euphash.Empty}
			}
			buffers[id] = data
			return nil
		})
	}
	_ = group.Wait()
	return buffers, diagnostics
}

func (c *Compiler) hashSinks(idxToNode map[int]*Node, buffers map[uint64]BufferData) {
	var group errgroup.Group
	for _, sink := range c.sinks {
		sink := sink
		group.Go(func() error {
			c.hashSink(sink, idxToNode, buffers)
			return nil
		})
	}
	_ = group.Wait()
}

// hashSink runs a DFS over the parameter-edge graph starting from the
// sink's own node, folding every visited node's local hash and every
// inbound node/buffer parameter edge (keyed by relative offset and
// parameter index) into one hasher. A bare sink, whose own node has no
// parameter events, hashes to euphash.SinkDomainHash instead.
func (c *Compiler) hashSink(sink *Sink, idxToNode map[int]*Node, buffers map[uint64]BufferData) {
	root, ok := c.nodes[sink.ID]
	if !ok {
		return
	}
	order, cyclic := c.graph.walk(root.Index)
	sink.Cyclic = cyclic

	h := euphash.NewHasher()
	start := sink.Start
	end := sink.Start

	for _, idx := range order {
		n, ok := idxToNode[idx]
		if !ok {
			continue
		}
		sink.Members[n.ID] = struct{}{}
		if n.Start < start {
			start = n.Start
		}
		if e := n.end(); e > end {
			end = e
		}
		h.Update(n.hash[:])

		for _, e := range n.events {
			switch {
			case e.value.IsNode():
				dep, ok := c.nodes[e.value.node]
				if !ok {
					continue
				}
				base := n.Start
				if dep.Start < base {
					base = dep.Start
				}
				mixEdge(h, e.offset.Since(base), e.param, dep.hash)
			case e.value.IsBuffer():
				data := buffers[e.value.buffer]
				mixEdge(h, e.offset.Since(n.Start), e.param, data.Hash)
			}
		}
	}

	if len(root.events) == 0 {
		// A bare sink: no parameter events, so no members beyond itself.
		sink.Hash = euphash.SinkDomainHash()
	} else {
		sink.Hash = h.Finalize()
	}
	sink.Start = start
	sink.End = end
}

func mixEdge(h *euphash.Hasher, rel timing.SampleOffset, param uint64, sourceHash euphash.Hash) {
	var buf [16]byte
	putU64LE(buf[0:8], uint64(rel))
	putU64LE(buf[8:16], param)
	h.Update(buf[:])
	h.Update(sourceHash[:])
}

// activateSinks decides, for every sink, whether its members need to
// render: a cyclic sink is reported and skipped; a cached sink is
// skipped; the first sink to produce a given content hash activates its
// members, and every later sink sharing that hash rides on the same
// stored artifact.
func (c *Compiler) activateSinks(cache Cache) (map[uint64]struct{}, []Diagnostic) {
	active := make(map[uint64]struct{})
	var diagnostics []Diagnostic

	ids := make([]uint64, 0, len(c.sinks))
	for id := range c.sinks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		sink := c.sinks[id]
		if sink.Cyclic {
			diagnostics = append(diagnostics, Diagnostic{Kind: DiagnosticCyclicSink, ID: id, Err: &ErrCyclicSink{SinkID: id}})
			continue
		}
		if cache != nil {
			sink.Cached = cache.IsCached(sink.Hash)
		}
		if sink.Cached {
			continue
		}
		if _, seen := c.hashes[sink.Hash]; seen {
			continue
		}
		c.hashes[sink.Hash] = id
		for member := range sink.Members {
			active[member] = struct{}{}
		}
	}
	return active, diagnostics
}

func (c *Compiler) emitInstructions(active map[uint64]struct{}) []Instruction {
	ids := make([]uint64, 0, len(active))
	for id := range active {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	h := &instructionHeap{}
	for _, id := range ids {
		c.nodes[id].emitInstructions(h)
	}
	return drainSorted(h)
}
