package cache

import (
	"sync"
	"time"

	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/consent"
	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/window"
)

// #region phone-cache

// PhoneCache maintains rolling per-window buffers of phone platform
// samples. Same single-writer discipline as WearCache.
type PhoneCache struct {
	mu       sync.RWMutex
	now      func() time.Time
	buffers  map[window.Type]*series[PhoneSample]
	features map[window.Type]*PhoneFeatures
}

// NewPhoneCache creates a cache for all supported windows.
func NewPhoneCache(now func() time.Time) *PhoneCache {
	if now == nil {
		now = time.Now
	}
	c := &PhoneCache{
		now:      now,
		buffers:  make(map[window.Type]*series[PhoneSample]),
		features: make(map[window.Type]*PhoneFeatures),
	}
	for _, w := range window.All() {
		c.buffers[w] = &series[PhoneSample]{}
	}
	return c
}

// AddSample inserts a new observation and recomputes per-window aggregates.
func (c *PhoneCache) AddSample(p PhoneSample) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for _, w := range window.All() {
		buf := c.buffers[w]
		buf.add(p, now.Add(-w.Duration()))
		c.features[w] = computePhone(w, now, buf.points)
	}
}

// Features returns the capability-filtered aggregate for w.
func (c *PhoneCache) Features(w window.Type, level consent.CapabilityLevel) (*PhoneFeatures, bool) {
	c.mu.RLock()
	f := c.features[w]
	c.mu.RUnlock()

	if f == nil || f.SampleCount == 0 {
		return nil, false
	}
	return filterPhone(f, level)
}

// #endregion phone-cache

// #region compute

func computePhone(w window.Type, now time.Time, points []PhoneSample) *PhoneFeatures {
	f := &PhoneFeatures{
		Window:      w,
		ComputedAt:  now,
		SampleCount: len(points),
	}
	if len(points) == 0 {
		return f
	}

	screenKnown, screenOn := 0, 0
	unlocks, notifications := 0, 0
	var motion []float64
	for _, p := range points {
		if p.ScreenOn != nil {
			screenKnown++
			if *p.ScreenOn {
				screenOn++
			}
		}
		if p.Unlock {
			unlocks++
		}
		if p.Notification {
			notifications++
		}
		if p.Motion != nil {
			motion = append(motion, *p.Motion)
		}
	}

	if screenKnown > 0 {
		f.ScreenOnRatio = f64(float64(screenOn) / float64(screenKnown))
	}

	// Event rates are legitimately zero when no events occurred; the span
	// covered by the window makes them comparable across window sizes.
	f.UnlockRate = f64(perMinute(unlocks, w.Duration()))
	f.NotificationRate = f64(perMinute(notifications, w.Duration()))

	if len(motion) > 0 {
		mean, _ := meanStd(motion)
		f.MotionIndex = f64(mean)
	}

	return f
}

// #endregion compute
