// Package schedule drives the per-window tick cadence. Each window gets
// its own cron entry so a slow long-window cycle never delays micro
// ticks.
package schedule

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/window"
)

// #region config

// Handler is invoked each time a window's cadence fires.
type Handler func(w window.Type)

// DefaultIntervals returns the production tick cadence per window.
func DefaultIntervals() map[window.Type]time.Duration {
	return map[window.Type]time.Duration{
		window.Micro:  30 * time.Second,
		window.Short:  5 * time.Minute,
		window.Medium: 30 * time.Minute,
		window.Long:   time.Hour,
	}
}

// #endregion config

// #region scheduler

// Scheduler fires a handler on each window's cadence via cron @every
// entries. Ticks are delivered on cron's goroutine; the handler is
// expected to dispatch its own work and return quickly.
type Scheduler struct {
	mu        sync.Mutex
	intervals map[window.Type]time.Duration
	handler   Handler
	cron      *cron.Cron
	running   bool
}

// New creates a scheduler. intervals may be nil for the defaults; tests
// pass short ones.
func New(intervals map[window.Type]time.Duration, handler Handler) *Scheduler {
	if intervals == nil {
		intervals = DefaultIntervals()
	}
	return &Scheduler{
		intervals: intervals,
		handler:   handler,
	}
}

// Start registers one @every entry per window and starts the ticker.
// Calling Start on a running scheduler is a no-op. A stopped cron keeps
// its entries, so a restart builds a fresh one rather than registering
// every window a second time.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	s.cron = cron.New()
	for _, w := range window.All() {
		interval, ok := s.intervals[w]
		if !ok {
			continue
		}
		w := w
		spec := fmt.Sprintf("@every %s", interval)
		if _, err := s.cron.AddFunc(spec, func() {
			s.handler(w)
		}); err != nil {
			return fmt.Errorf("schedule %s window: %w", w, err)
		}
		log.Printf("[SCHED] %s window every %s", w, interval)
	}

	s.cron.Start()
	s.running = true
	return nil
}

// Stop halts the ticker immediately. A tick already dispatched to the
// handler runs to completion; no new ticks fire after Stop returns.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.cron.Stop()
	s.running = false
}

// #endregion scheduler
