package cache

import (
	"sync"
	"time"

	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/consent"
	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/window"
)

// #region wear-cache

// WearCache maintains rolling per-window buffers of wearable samples and
// the aggregate recomputed from them on every insert. Single writer
// (the ingestion path), concurrent readers (the collector); readers always
// see a complete aggregate because the cached value is replaced as a
// whole, never mutated in place.
type WearCache struct {
	mu       sync.RWMutex
	now      func() time.Time
	buffers  map[window.Type]*series[WearSample]
	features map[window.Type]*WearFeatures
}

// NewWearCache creates a cache for all supported windows. now may be nil,
// in which case time.Now is used; tests inject a synthetic clock.
func NewWearCache(now func() time.Time) *WearCache {
	if now == nil {
		now = time.Now
	}
	c := &WearCache{
		now:      now,
		buffers:  make(map[window.Type]*series[WearSample]),
		features: make(map[window.Type]*WearFeatures),
	}
	for _, w := range window.All() {
		c.buffers[w] = &series[WearSample]{}
	}
	return c
}

// #endregion wear-cache

// #region add-sample

// AddSample inserts a new observation into every window buffer, drops
// aged-out points, and recomputes each window's aggregate.
func (c *WearCache) AddSample(p WearSample) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for _, w := range window.All() {
		buf := c.buffers[w]
		buf.add(p, now.Add(-w.Duration()))
		c.features[w] = computeWear(w, now, buf.points)
	}
}

// #endregion add-sample

// #region features-accessor

// Features returns the current aggregate for w, capability-filtered for
// the caller's tier. Filtering happens after computation: it only affects
// what is exposed, never what is cached. ok is false when the buffer is
// empty or the tier exposes nothing.
func (c *WearCache) Features(w window.Type, level consent.CapabilityLevel) (*WearFeatures, bool) {
	c.mu.RLock()
	f := c.features[w]
	c.mu.RUnlock()

	if f == nil || f.SampleCount == 0 {
		return nil, false
	}
	return filterWear(f, level)
}

// #endregion features-accessor

// #region compute

// computeWear derives the aggregate from the surviving buffer contents.
// Deterministic given points: no hidden state.
func computeWear(w window.Type, now time.Time, points []WearSample) *WearFeatures {
	f := &WearFeatures{
		Window:      w,
		ComputedAt:  now,
		SampleCount: len(points),
	}
	if len(points) == 0 {
		return f
	}

	var hr, motion, rr []float64
	for _, p := range points {
		if p.HeartRate != nil {
			hr = append(hr, *p.HeartRate)
		}
		if p.Motion != nil {
			motion = append(motion, *p.Motion)
		}
		rr = append(rr, p.RRIntervals...)
	}

	if len(hr) > 0 {
		mean, _ := meanStd(hr)
		min, max := hr[0], hr[0]
		for _, v := range hr[1:] {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
		f.HRMean, f.HRMin, f.HRMax = f64(mean), f64(min), f64(max)
	}

	if stats, ok := ComputeHRV(rr); ok {
		f.RRMean = f64(stats.MeanRR)
		f.SDNN = f64(stats.SDNN)
		f.RMSSD = f64(stats.RMSSD)
		f.PNN50 = f64(stats.PNN50)
		f.RRCount = stats.Count
	}

	if len(motion) > 0 {
		mean, std := meanStd(motion)
		f.MotionIndex = f64(mean)
		f.MotionSpread = f64(std)
	}

	return f
}

// #endregion compute
