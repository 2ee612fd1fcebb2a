package collect

import (
	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/cache"
	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/consent"
	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/window"
)

// #region sources

// WearSource exposes wear aggregates to the collector. Implemented by
// *cache.WearCache; an interface so sources owned by other ingestion
// modules can plug in.
type WearSource interface {
	Features(w window.Type, level consent.CapabilityLevel) (*cache.WearFeatures, bool)
}

// PhoneSource exposes phone platform aggregates.
type PhoneSource interface {
	Features(w window.Type, level consent.CapabilityLevel) (*cache.PhoneFeatures, bool)
}

// BehaviorSource exposes interaction aggregates.
type BehaviorSource interface {
	Features(w window.Type, level consent.CapabilityLevel) (*cache.BehaviorFeatures, bool)
}

// #endregion sources

// #region collected

// CollectedFeatures is the per-tick tuple of consent- and capability-
// filtered source aggregates. Any field may be nil: denied consent and
// missing data look the same downstream.
type CollectedFeatures struct {
	Window   window.Type
	Wear     *cache.WearFeatures
	Phone    *cache.PhoneFeatures
	Behavior *cache.BehaviorFeatures
}

// Empty reports whether no source contributed anything this tick.
func (c CollectedFeatures) Empty() bool {
	return c.Wear == nil && c.Phone == nil && c.Behavior == nil
}

// #endregion collected

// #region collector

// Collector pulls the latest aggregates from each registered source on a
// scheduler tick. Consent and capability are re-read on every call so a
// revocation takes effect within one cycle.
type Collector struct {
	wear       WearSource
	phone      PhoneSource
	behavior   BehaviorSource
	consent    consent.Provider
	capability consent.CapabilityProvider
}

// NewCollector wires the collector. Any source may be nil (unregistered).
func NewCollector(
	wear WearSource,
	phone PhoneSource,
	behavior BehaviorSource,
	cp consent.Provider,
	cap consent.CapabilityProvider,
) *Collector {
	return &Collector{
		wear:       wear,
		phone:      phone,
		behavior:   behavior,
		consent:    cp,
		capability: cap,
	}
}

// Collect gathers features for w. A denied consent category makes that
// source absent, not an error; ok is false when every source is absent,
// which callers treat as "skip this cycle".
func (c *Collector) Collect(w window.Type) (CollectedFeatures, bool) {
	snap := c.consent.Current()
	out := CollectedFeatures{Window: w}

	if c.wear != nil && snap.Biosignals {
		if f, ok := c.wear.Features(w, c.capability.Capability("wear")); ok {
			out.Wear = maskWearMotion(f, snap)
		}
	}
	if c.phone != nil && snap.Behavior {
		if f, ok := c.phone.Features(w, c.capability.Capability("phone")); ok {
			out.Phone = maskPhoneMotion(f, snap)
		}
	}
	if c.behavior != nil && snap.Behavior {
		if f, ok := c.behavior.Features(w, c.capability.Capability("behavior")); ok {
			out.Behavior = f
		}
	}

	return out, !out.Empty()
}

// #endregion collector

// #region motion-mask

// Motion consent is its own category: without it, motion-derived fields
// are stripped even when the owning source is consented.

func maskWearMotion(f *cache.WearFeatures, snap consent.Snapshot) *cache.WearFeatures {
	if snap.Motion {
		return f
	}
	out := *f
	out.MotionIndex, out.MotionSpread = nil, nil
	return &out
}

func maskPhoneMotion(f *cache.PhoneFeatures, snap consent.Snapshot) *cache.PhoneFeatures {
	if snap.Motion {
		return f
	}
	out := *f
	out.MotionIndex = nil
	return &out
}

// #endregion motion-mask
