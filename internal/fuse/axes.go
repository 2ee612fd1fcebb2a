package fuse

import "github.com/danielpatrickdp/state-fusion/go-pipeline/internal/collect"

// Each axis formula below is a fixed contract: the input range and
// direction (higher-is-more vs inverted) must be reproduced exactly for
// parity across implementations, while the constants themselves are
// tunable. An axis field is set only when every required input is
// present; otherwise it stays nil so "no data" never reads as a measured
// low value.

// #region derive

func deriveAxes(in collect.CollectedFeatures) StateAxes {
	return StateAxes{
		Affect:     deriveAffect(in),
		Engagement: deriveEngagement(in),
		Activity:   deriveActivity(in),
		Context:    deriveContext(in),
	}
}

// #endregion derive

// #region affect

// arousalIndex = clamp(0.6·norm(hrMean, 40..180) + 0.4·(1 − norm(rmssd, 10..100)))
// valenceStability = clamp(1 − norm(hrMax − hrMin, 0..60))
func deriveAffect(in collect.CollectedFeatures) AffectAxis {
	var a AffectAxis
	w := in.Wear
	if w == nil {
		return a
	}
	if w.HRMean != nil && w.RMSSD != nil {
		arousal := 0.6*norm(*w.HRMean, 40, 180) + 0.4*(1-norm(*w.RMSSD, 10, 100))
		a.ArousalIndex = ptr(clamp(arousal))
	}
	if w.HRMin != nil && w.HRMax != nil {
		a.ValenceStability = ptr(clamp(1 - norm(*w.HRMax-*w.HRMin, 0, 60)))
	}
	return a
}

// #endregion affect

// #region engagement

// stability = clamp(1 − burstiness)
// interactionCadence = clamp(norm(tapRate, 0..120 taps/min))
func deriveEngagement(in collect.CollectedFeatures) EngagementAxis {
	var e EngagementAxis
	b := in.Behavior
	if b == nil {
		return e
	}
	if b.Burstiness != nil {
		e.Stability = ptr(clamp(1 - *b.Burstiness))
	}
	if b.TapRate != nil {
		e.InteractionCadence = ptr(clamp(norm(*b.TapRate, 0, 120)))
	}
	return e
}

// #endregion engagement

// #region activity

// motionIndex = 0.6·wearMotion + 0.4·phoneMotion when both present, else
// whichever is present (inputs are already normalized 0..1).
// postureStability = clamp(1 − norm(wearMotionSpread, 0..0.5))
func deriveActivity(in collect.CollectedFeatures) ActivityAxis {
	var a ActivityAxis

	var wearMotion, phoneMotion *float64
	if in.Wear != nil {
		wearMotion = in.Wear.MotionIndex
	}
	if in.Phone != nil {
		phoneMotion = in.Phone.MotionIndex
	}
	switch {
	case wearMotion != nil && phoneMotion != nil:
		a.MotionIndex = ptr(clamp(0.6**wearMotion + 0.4**phoneMotion))
	case wearMotion != nil:
		a.MotionIndex = ptr(clamp(*wearMotion))
	case phoneMotion != nil:
		a.MotionIndex = ptr(clamp(*phoneMotion))
	}

	if in.Wear != nil && in.Wear.MotionSpread != nil {
		a.PostureStability = ptr(clamp(1 - norm(*in.Wear.MotionSpread, 0, 0.5)))
	}
	return a
}

// #endregion activity

// #region context

// screenActiveRatio and sessionFragmentation pass through; both are
// already normalized 0..1 by the source caches.
func deriveContext(in collect.CollectedFeatures) ContextAxis {
	var c ContextAxis
	if in.Phone != nil && in.Phone.ScreenOnRatio != nil {
		c.ScreenActiveRatio = ptr(clamp(*in.Phone.ScreenOnRatio))
	}
	if in.Behavior != nil && in.Behavior.SessionFragmentation != nil {
		c.SessionFragmentation = ptr(clamp(*in.Behavior.SessionFragmentation))
	}
	return c
}

// #endregion context

// #region math

// norm maps v from [lo, hi] onto [0, 1], clamping outside the range.
func norm(v, lo, hi float64) float64 {
	if hi <= lo {
		return 0
	}
	return clamp((v - lo) / (hi - lo))
}

// clamp restricts v to [0, 1].
func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func ptr(v float64) *float64 { return &v }

// #endregion math
