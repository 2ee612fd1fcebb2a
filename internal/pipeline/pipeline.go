// Package pipeline wires a scheduler tick through collection, fusion,
// interpretation heads, and the uplink connector.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/collect"
	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/fuse"
	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/heads"
	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/journal"
	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/window"
)

// #region sink

// Sink receives fused snapshots at the end of a cycle. Implemented by
// *uplink.Connector.
type Sink interface {
	Enqueue(s fuse.FusedState)
}

// #endregion sink

// #region pipeline

// Pipeline runs one fusion cycle per scheduler tick. Cycles for
// different windows run concurrently; a tick for a window whose previous
// cycle is still running is dropped (sampling semantics, the next tick
// supersedes it).
type Pipeline struct {
	collector *collect.Collector
	chain     *heads.Chain
	sink      Sink
	journal   *journal.Journal
	now       func() time.Time

	mu   sync.Mutex
	busy map[window.Type]bool
}

// New wires a pipeline. chain may be nil (no heads); now may be nil
// (time.Now).
func New(collector *collect.Collector, chain *heads.Chain, sink Sink, now func() time.Time) *Pipeline {
	if chain == nil {
		chain = heads.NewChain()
	}
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		collector: collector,
		chain:     chain,
		sink:      sink,
		now:       now,
		busy:      make(map[window.Type]bool),
	}
}

// AttachJournal enables persisted cycle provenance. Journaling is
// best-effort and never fails a cycle.
func (p *Pipeline) AttachJournal(j *journal.Journal) {
	p.journal = j
}

func (p *Pipeline) record(e journal.CycleEntry) {
	if p.journal == nil {
		return
	}
	e.CreatedAt = p.now().UTC()
	if err := p.journal.Log(e); err != nil {
		log.Printf("[PIPE] journal: %v", err)
	}
}

// #endregion pipeline

// #region tick

// Tick runs one cycle for w. Safe to call from the scheduler's
// goroutine: the overlap check is the only synchronized section and the
// cycle itself runs inline.
func (p *Pipeline) Tick(ctx context.Context, w window.Type) {
	p.mu.Lock()
	if p.busy[w] {
		p.mu.Unlock()
		log.Printf("[PIPE] %s cycle still running, tick dropped", w)
		p.record(journal.CycleEntry{Window: w, Decision: journal.DecisionSkippedBusy})
		return
	}
	p.busy[w] = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.busy[w] = false
		p.mu.Unlock()
	}()

	p.cycle(ctx, w)
}

// cycle is one collect → fuse → annotate → enqueue pass. A panic
// anywhere inside is contained to this cycle: the pipeline logs it and
// waits for the next tick.
func (p *Pipeline) cycle(ctx context.Context, w window.Type) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[PIPE] %s cycle panic recovered: %v", w, r)
			p.record(journal.CycleEntry{
				Window:   w,
				Decision: journal.DecisionDroppedError,
				Reason:   fmt.Sprint(r),
			})
		}
	}()

	in, ok := p.collector.Collect(w)
	if !ok {
		log.Printf("[PIPE] %s cycle skipped, no sources present", w)
		p.record(journal.CycleEntry{Window: w, Decision: journal.DecisionSkippedEmpty})
		return
	}

	state := fuse.Fuse(in, p.now().UTC())
	state = p.chain.Run(ctx, state)
	p.sink.Enqueue(state)
	log.Printf("[PIPE] %s snapshot %s: sources=%v", w, state.ID, state.Context.SourcesPresent)
	p.record(journal.CycleEntry{
		Window:     w,
		SnapshotID: state.ID,
		Decision:   journal.DecisionFused,
		Sources:    state.Context.SourcesPresent,
	})
}

// #endregion tick
