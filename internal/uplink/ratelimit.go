package uplink

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/consent"
	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/window"
)

// #region intervals

// Minimum time between uploads per window label: the finest window ships
// at most twice a minute, the coarsest once an hour.
var defaultIntervals = map[window.Type]time.Duration{
	window.Micro:  30 * time.Second,
	window.Short:  5 * time.Minute,
	window.Medium: 30 * time.Minute,
	window.Long:   time.Hour,
}

// #endregion intervals

// #region batch-size

// BatchSize returns how many snapshots one upload attempt may carry for
// the given capability tier.
func BatchSize(level consent.CapabilityLevel) int {
	switch level {
	case consent.CapabilityCore:
		return 10
	case consent.CapabilityExtended:
		return 50
	case consent.CapabilityResearch:
		return 200
	default:
		return 0
	}
}

// #endregion batch-size

// #region limiter

// RateLimiter tracks the last confirmed upload per window label.
type RateLimiter struct {
	mu        sync.Mutex
	last      map[window.Type]time.Time
	intervals map[window.Type]time.Duration
	now       func() time.Time
}

// NewRateLimiter creates a limiter with the default per-label intervals.
// now may be nil (time.Now); tests inject a synthetic clock.
func NewRateLimiter(now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{
		last:      make(map[window.Type]time.Time),
		intervals: defaultIntervals,
		now:       now,
	}
}

// Allow reports whether an upload for the label may proceed. The first
// upload for a label is always allowed.
func (r *RateLimiter) Allow(label window.Type) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	last, ok := r.last[label]
	if !ok {
		return true
	}
	return r.now().Sub(last) >= r.intervals[label]
}

// Record stores the upload timestamp for the label. Called only after a
// confirmed upload.
func (r *RateLimiter) Record(label window.Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last[label] = r.now()
}

// #endregion limiter

// #region persistence

// Export serializes the last-upload timestamps for durable storage, so
// per-label throttling stays honest across restarts.
func (r *RateLimiter) Export() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return json.Marshal(r.last)
}

// Restore loads previously exported timestamps.
func (r *RateLimiter) Restore(data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return json.Unmarshal(data, &r.last)
}

// #endregion persistence
