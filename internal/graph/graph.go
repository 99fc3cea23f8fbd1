// Package graph is the parallel render graph that package engine applies
// the compiler's scheduled instructions to: each node owns a private
// output buffer, and an
// epoch-keyed compare-and-swap protocol ensures a node renders at most
// once per batch even when several dependents race to pull it.
package graph

import (
	"context"
	"math"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/tonegraph/euphony/internal/dspnode"
)

// noSource marks a parameter slot with no piped dependency.
const noSource = math.MaxUint64

// Graph holds every live node plus the decoded buffers nodes may read
// from, and advances a global sample clock one batch at a time.
type Graph struct {
	samples     uint64
	epoch       uint8
	nodes       map[uint64]*node
	buffers     map[uint64][]float32
	currentView int
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{nodes: make(map[uint64]*node), buffers: make(map[uint64][]float32)}
}

// Spawn adds a node running proc, identified by id. The caller must not
// reuse an id still present in the graph; the compiler's own id-reuse
// invariant is what makes this safe.
func (g *Graph) Spawn(id uint64, proc dspnode.Processor) {
	g.nodes[id] = newNode(proc, g.epoch)
}

// Finish removes a node from the graph. Dependents still referencing its
// id by Pipe will simply fail to find it and fall back to silence,
// mirroring the original's defensive "node not found" lookup.
func (g *Graph) Finish(id uint64) {
	delete(g.nodes, id)
}

// Set assigns a constant value to a node's parameter slot, clearing any
// pipe previously bound there.
func (g *Graph) Set(targetNode, targetParameter uint64, value float64) {
	if n, ok := g.nodes[targetNode]; ok {
		n.set(int(targetParameter), value)
	}
}

// Pipe routes sourceNode's output into targetNode's parameter slot,
// clearing any constant previously set there.
func (g *Graph) Pipe(targetNode, targetParameter, sourceNode uint64) {
	if n, ok := g.nodes[targetNode]; ok {
		n.pipe(int(targetParameter), sourceNode)
	}
}

// BindBuffer registers a decoded buffer under bufferID and wires it to
// targetNode's buffer slot at bufferIndex.
func (g *Graph) BindBuffer(targetNode uint64, bufferIndex int, bufferID uint64, samples []float32) {
	g.buffers[bufferID] = samples
	if n, ok := g.nodes[targetNode]; ok {
		n.setBuffer(bufferIndex, bufferID)
	}
}

// Output returns the most recently rendered samples for id, truncated to
// the last batch's partial length if the render ended mid-batch. Returns
// nil if id is not a live node.
func (g *Graph) Output(id uint64) []float32 {
	n, ok := g.nodes[id]
	if !ok {
		return nil
	}
	return n.output[:g.currentView]
}

// Samples reports the total number of samples rendered so far.
func (g *Graph) Samples() uint64 { return g.samples }

// RenderBatch renders one full batch of dspnode.BatchSize samples across
// every live node, in dependency order, using up to the host's available
// parallelism. Independent subtrees render concurrently; a node renders
// at most once regardless of how many dependents reach it.
func (g *Graph) RenderBatch(ctx context.Context) error {
	return g.render(ctx, nil)
}

// RenderPartial renders the final, shorter tail of a timeline: n samples
// instead of a full batch.
func (g *Graph) RenderPartial(ctx context.Context, n int) error {
	return g.render(ctx, &n)
}

func (g *Graph) render(ctx context.Context, partial *int) error {
	b := &batch{
		epoch:   g.epoch,
		nodes:   g.nodes,
		buffers: g.buffers,
		partial: partial,
	}

	group, gctx := errgroup.WithContext(ctx)
	for _, n := range g.nodes {
		n := n
		group.Go(func() error {
			return b.render(gctx, n)
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	g.epoch++
	if partial != nil {
		g.currentView = *partial
	} else {
		g.currentView = dspnode.BatchSize
	}
	g.samples += uint64(g.currentView)
	return nil
}

// batch is the per-render-pass context threaded through the recursive
// dependency-first render walk.
type batch struct {
	epoch   uint8
	nodes   map[uint64]*node
	buffers map[uint64][]float32
	partial *int
}

func (b *batch) render(ctx context.Context, n *node) error {
	if !n.acquire(b.epoch) {
		return nil
	}
	if err := b.renderDependencies(ctx, n.dependencies()); err != nil {
		return err
	}
	return n.render(b.nodes, b.buffers, b.partial)
}

func (b *batch) renderDependencies(ctx context.Context, deps []uint64) error {
	if len(deps) == 0 {
		return nil
	}
	group, gctx := errgroup.WithContext(ctx)
	for _, id := range deps {
		if id == noSource {
			continue
		}
		dep, ok := b.nodes[id]
		if !ok {
			continue
		}
		dep := dep
		group.Go(func() error {
			return b.render(gctx, dep)
		})
	}
	return group.Wait()
}

// node wraps one processor's mutable render state behind an epoch CAS
// gate. Concurrent calls to render on the same node are safe only because
// acquire ensures at most one winner per epoch; losers must not touch the
// node's state at all.
type node struct {
	epoch        atomic.Uint32
	output       [dspnode.BatchSize]float32
	proc         dspnode.Processor
	bufferSlots  []uint64
	constants    []float64
	dependencies []uint64
}

func newNode(proc dspnode.Processor, epoch uint8) *node {
	n := &node{proc: proc}
	n.epoch.Store(uint32(epoch))
	return n
}

func (n *node) acquire(epoch uint8) bool {
	return n.epoch.CompareAndSwap(uint32(epoch), uint32(epoch+1))
}

// dependencies returns the parameter-slot source node ids driving this
// node's render, the set the batch walk must render first.
func (n *node) dependencies() []uint64 { return n.dependencies }

func (n *node) set(parameter int, value float64) {
	if parameter < len(n.dependencies) {
		n.dependencies[parameter] = noSource
	}
	if parameter >= len(n.constants) {
		grown := make([]float64, parameter+1)
		copy(grown, n.constants)
		n.constants = grown
	}
	n.constants[parameter] = value
}

func (n *node) pipe(parameter int, sourceNode uint64) {
	if parameter < len(n.constants) {
		n.constants[parameter] = 0
	}
	if parameter >= len(n.dependencies) {
		grown := make([]uint64, parameter+1)
		for i := len(n.dependencies); i < len(grown); i++ {
			grown[i] = noSource
		}
		copy(grown, n.dependencies)
		n.dependencies = grown
	}
	n.dependencies[parameter] = sourceNode
}

func (n *node) setBuffer(index int, bufferID uint64) {
	if index >= len(n.bufferSlots) {
		grown := make([]uint64, index+1)
		for i := range grown {
			grown[i] = noSource
		}
		copy(grown, n.bufferSlots)
		n.bufferSlots = grown
	}
	n.bufferSlots[index] = bufferID
}

func (n *node) render(nodes map[uint64]*node, buffers map[uint64][]float32, partial *int) error {
	inputCount := n.proc.Inputs()
	inputs := make([]dspnode.Input, inputCount)
	for idx := 0; idx < inputCount; idx++ {
		var sourceID uint64 = noSource
		if idx < len(n.dependencies) {
			sourceID = n.dependencies[idx]
		}
		if sourceID != noSource {
			if dep, ok := nodes[sourceID]; ok {
				out := dep.output
				inputs[idx] = dspnode.DynamicInput(&out)
				continue
			}
		}
		var v float64
		if idx < len(n.constants) {
			v = n.constants[idx]
		}
		inputs[idx] = dspnode.ConstantInput(v)
	}

	bufs := nodeBuffers{slots: n.bufferSlots, store: buffers}

	if partial != nil {
		n.proc.RenderPartial(inputs, bufs, n.output[:*partial])
		return nil
	}
	n.proc.Render(inputs, bufs, &n.output)
	return nil
}

// nodeBuffers adapts a node's bound buffer-id slots into the
// dspnode.Buffers interface a processor reads from.
type nodeBuffers struct {
	slots []uint64
	store map[uint64][]float32
}

func (b nodeBuffers) Channel(idx int) ([]float32, bool) {
	if idx < 0 || idx >= len(b.slots) {
		return nil, false
	}
	id := b.slots[idx]
	if id == noSource {
		return nil, false
	}
	samples, ok := b.store[id]
	return samples, ok
}
