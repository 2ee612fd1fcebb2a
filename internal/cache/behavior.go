package cache

import (
	"sync"
	"time"

	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/consent"
	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/window"
)

// #region behavior-cache

// BehaviorCache maintains rolling per-window buffers of interaction
// samples. Same single-writer discipline as WearCache.
type BehaviorCache struct {
	mu       sync.RWMutex
	now      func() time.Time
	buffers  map[window.Type]*series[BehaviorSample]
	features map[window.Type]*BehaviorFeatures
}

// NewBehaviorCache creates a cache for all supported windows.
func NewBehaviorCache(now func() time.Time) *BehaviorCache {
	if now == nil {
		now = time.Now
	}
	c := &BehaviorCache{
		now:      now,
		buffers:  make(map[window.Type]*series[BehaviorSample]),
		features: make(map[window.Type]*BehaviorFeatures),
	}
	for _, w := range window.All() {
		c.buffers[w] = &series[BehaviorSample]{}
	}
	return c
}

// AddSample inserts a new observation and recomputes per-window aggregates.
func (c *BehaviorCache) AddSample(p BehaviorSample) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for _, w := range window.All() {
		buf := c.buffers[w]
		buf.add(p, now.Add(-w.Duration()))
		c.features[w] = computeBehavior(w, now, buf.points)
	}
}

// Features returns the capability-filtered aggregate for w.
func (c *BehaviorCache) Features(w window.Type, level consent.CapabilityLevel) (*BehaviorFeatures, bool) {
	c.mu.RLock()
	f := c.features[w]
	c.mu.RUnlock()

	if f == nil || f.SampleCount == 0 {
		return nil, false
	}
	return filterBehavior(f, level)
}

// #endregion behavior-cache

// #region compute

func computeBehavior(w window.Type, now time.Time, points []BehaviorSample) *BehaviorFeatures {
	f := &BehaviorFeatures{
		Window:      w,
		ComputedAt:  now,
		SampleCount: len(points),
	}
	if len(points) == 0 {
		return f
	}

	taps, switches, breaks := 0, 0, 0
	var tapTimes []time.Time
	for _, p := range points {
		taps += p.Taps
		switches += p.AppSwitches
		if p.SessionBreak {
			breaks++
		}
		if p.Taps > 0 {
			tapTimes = append(tapTimes, p.Timestamp)
		}
	}

	f.TapRate = f64(perMinute(taps, w.Duration()))
	f.AppSwitchRate = f64(perMinute(switches, w.Duration()))

	if b, ok := burstiness(tapTimes); ok {
		f.Burstiness = f64(b)
	}

	// Break rate normalized against 2 breaks/min as full fragmentation.
	breakRate := perMinute(breaks, w.Duration())
	f.SessionFragmentation = f64(clamp01(breakRate / 2))

	return f
}

// burstiness maps the Goh-Barabási burstiness coefficient of tap
// inter-arrival gaps, B = (σ-μ)/(σ+μ) in [-1,1], onto [0,1]. Requires at
// least 3 tap-bearing observations (2 gaps).
func burstiness(times []time.Time) (float64, bool) {
	if len(times) < 3 {
		return 0, false
	}
	gaps := make([]float64, 0, len(times)-1)
	for i := 1; i < len(times); i++ {
		gaps = append(gaps, times[i].Sub(times[i-1]).Seconds())
	}
	mean, std := meanStd(gaps)
	if mean+std == 0 {
		return 0.5, true
	}
	b := (std - mean) / (std + mean)
	return clamp01((b + 1) / 2), true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// #endregion compute
