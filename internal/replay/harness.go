// Package replay feeds a recorded fixture of timestamped samples through
// the caches and the fusion engine deterministically. Used offline to
// tune normalization constants against captured sessions.
package replay

import (
	"sort"
	"time"

	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/cache"
	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/collect"
	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/consent"
	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/fuse"
	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/window"
)

// #region types

// CycleResult captures the outcome of one fusion cycle in the replayed
// timeline.
type CycleResult struct {
	Timestamp time.Time
	Window    window.Type
	Skipped   bool // no source contributed anything at this mark
	State     fuse.FusedState
}

// Summary aggregates a replay run.
type Summary struct {
	TotalCycles int
	Produced    int
	Skipped     int
	Samples     int
}

// #endregion types

// #region replay

// Replay runs the fixture: samples are ingested in timestamp order, and
// each cycle mark runs collect → fuse at that point in the recorded
// timeline. The clock is driven entirely by fixture timestamps, so a run
// is deterministic and repeatable.
func Replay(f *Fixture) ([]CycleResult, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	// Fixture time stands in for the wall clock.
	var clock time.Time
	now := func() time.Time { return clock }

	wear := cache.NewWearCache(now)
	phone := cache.NewPhoneCache(now)
	behavior := cache.NewBehaviorCache(now)

	cp := consent.NewMutableProvider(f.Consent.ToSnapshot())
	defer cp.Close()
	capp := consent.StaticCapability{Level: f.Capability}
	collector := collect.NewCollector(wear, phone, behavior, cp, capp)

	events := merge(f)
	results := make([]CycleResult, 0, len(f.Cycles))

	for _, ev := range events {
		clock = ev.at
		if ev.sample != nil {
			ingest(wear, phone, behavior, *ev.sample)
			continue
		}

		in, ok := collector.Collect(ev.cycle.Window)
		res := CycleResult{Timestamp: ev.at, Window: ev.cycle.Window}
		if !ok {
			res.Skipped = true
		} else {
			res.State = fuse.Fuse(in, clock)
		}
		results = append(results, res)
	}
	return results, nil
}

// Summarize computes aggregate stats from a run.
func Summarize(f *Fixture, results []CycleResult) Summary {
	s := Summary{TotalCycles: len(results), Samples: len(f.Samples)}
	for _, r := range results {
		if r.Skipped {
			s.Skipped++
		} else {
			s.Produced++
		}
	}
	return s
}

// #endregion replay

// #region timeline

// event is one point on the merged timeline: either a sample or a cycle
// mark, never both.
type event struct {
	at     time.Time
	sample *FixtureSample
	cycle  *FixtureCycle
}

// merge interleaves samples and cycle marks by timestamp. On a tie the
// sample goes first, so a cycle at time T sees data recorded at T.
func merge(f *Fixture) []event {
	events := make([]event, 0, len(f.Samples)+len(f.Cycles))
	for i := range f.Samples {
		s := f.Samples[i]
		events = append(events, event{at: s.Timestamp, sample: &s})
	}
	for i := range f.Cycles {
		c := f.Cycles[i]
		events = append(events, event{at: c.Timestamp, cycle: &c})
	}
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].at.Equal(events[j].at) {
			return events[i].sample != nil && events[j].sample == nil
		}
		return events[i].at.Before(events[j].at)
	})
	return events
}

func ingest(wear *cache.WearCache, phone *cache.PhoneCache, behavior *cache.BehaviorCache, s FixtureSample) {
	switch s.Source {
	case "wear":
		wear.AddSample(cache.WearSample{
			Timestamp:   s.Timestamp,
			HeartRate:   s.HeartRate,
			RRIntervals: s.RRIntervals,
			Motion:      s.Motion,
		})
	case "phone":
		phone.AddSample(cache.PhoneSample{
			Timestamp:    s.Timestamp,
			ScreenOn:     s.ScreenOn,
			Unlock:       s.Unlock,
			Notification: s.Notification,
			Motion:       s.Motion,
		})
	case "behavior":
		behavior.AddSample(cache.BehaviorSample{
			Timestamp:    s.Timestamp,
			Taps:         s.Taps,
			AppSwitches:  s.AppSwitches,
			SessionBreak: s.SessionBreak,
		})
	}
}

// #endregion timeline
