package cache

import (
	"math"
	"time"
)

// #region series

type timed interface {
	when() time.Time
}

// series holds the time-ordered sample buffer for one window. Points are
// appended on insert and everything older than the cutoff is dropped
// before the aggregate is recomputed, so the aggregate is always a pure
// function of the surviving buffer contents.
type series[S timed] struct {
	points []S
}

// add appends p, then drops buffered points strictly before cutoff. The
// window is inclusive on both ends: a point timestamped exactly at the
// cutoff still counts.
func (b *series[S]) add(p S, cutoff time.Time) {
	b.points = append(b.points, p)
	firstLive := 0
	for firstLive < len(b.points) && b.points[firstLive].when().Before(cutoff) {
		firstLive++
	}
	if firstLive > 0 {
		b.points = append(b.points[:0], b.points[firstLive:]...)
	}
}

// #endregion series

// #region stat-helpers

func f64(v float64) *float64 { return &v }

// meanStd returns the mean and population standard deviation of vals.
func meanStd(vals []float64) (mean, std float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	mean = sum / float64(len(vals))
	var variance float64
	for _, v := range vals {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(vals))
	return mean, math.Sqrt(variance)
}

// perMinute converts an event count over a window span to a rate.
func perMinute(count int, span time.Duration) float64 {
	minutes := span.Minutes()
	if minutes <= 0 {
		return 0
	}
	return float64(count) / minutes
}

// #endregion stat-helpers
