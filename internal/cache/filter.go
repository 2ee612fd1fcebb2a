package cache

import "github.com/danielpatrickdp/state-fusion/go-pipeline/internal/consent"

// Capability filtering strips fields not authorized for the caller's tier.
// It operates on a copy of the computed aggregate, after computation, so
// the tier never affects what is computed or cached.
//
// Tier contract:
//   - none:     nothing is exposed
//   - core:     basic aggregates (HR mean/min/max, motion, screen ratio,
//               tap and app-switch rates)
//   - extended: adds HRV statistics, unlock/notification rates,
//               burstiness, fragmentation, motion spread
//   - research: additionally exposes the raw RR interval count

// #region wear

func filterWear(f *WearFeatures, level consent.CapabilityLevel) (*WearFeatures, bool) {
	if !level.AtLeast(consent.CapabilityCore) {
		return nil, false
	}
	out := *f
	if !level.AtLeast(consent.CapabilityExtended) {
		out.RRMean, out.SDNN, out.RMSSD, out.PNN50 = nil, nil, nil, nil
		out.MotionSpread = nil
	}
	if !level.AtLeast(consent.CapabilityResearch) {
		out.RRCount = 0
	}
	return &out, true
}

// #endregion wear

// #region phone

func filterPhone(f *PhoneFeatures, level consent.CapabilityLevel) (*PhoneFeatures, bool) {
	if !level.AtLeast(consent.CapabilityCore) {
		return nil, false
	}
	out := *f
	if !level.AtLeast(consent.CapabilityExtended) {
		out.UnlockRate, out.NotificationRate = nil, nil
	}
	return &out, true
}

// #endregion phone

// #region behavior

func filterBehavior(f *BehaviorFeatures, level consent.CapabilityLevel) (*BehaviorFeatures, bool) {
	if !level.AtLeast(consent.CapabilityCore) {
		return nil, false
	}
	out := *f
	if !level.AtLeast(consent.CapabilityExtended) {
		out.Burstiness, out.SessionFragmentation = nil, nil
	}
	return &out, true
}

// #endregion behavior
