package fuse

import (
	"time"

	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/collect"
	"github.com/google/uuid"
)

// #region fuse

// Fuse combines collected per-source features into a FusedState. Pure:
// identical inputs (plus the generated snapshot ID) produce identical
// output. Steps, in order: fixed-order numeric vector, embedding, state
// axes, assembly with empty emotion/focus slots.
func Fuse(in collect.CollectedFeatures, ts time.Time) FusedState {
	vec := FeatureVector(in)

	return FusedState{
		SchemaVersion: SchemaVersion,
		ID:            uuid.New().String(),
		Timestamp:     ts,
		Window:        in.Window,
		Axes:          deriveAxes(in),
		Embedding: StateEmbedding{
			Vector:    Embed(vec),
			Timestamp: ts,
			Window:    in.Window,
			ModelID:   EmbeddingModelID,
		},
		Behavior: behaviorSummary(in),
		Context:  contextSummary(in),
	}
}

// #endregion fuse

// #region feature-vector

// FeatureVector concatenates each source's numeric features in a stable
// field order: wear (hrMean, hrMin, hrMax, rrMean, sdnn, rmssd, pnn50,
// motionIndex), phone (screenOnRatio, unlockRate, notificationRate,
// motionIndex), behavior (tapRate, appSwitchRate, burstiness,
// sessionFragmentation). Absent fields contribute 0.0: the vector is a
// dense ML input, not a semantic value to be read directly.
func FeatureVector(in collect.CollectedFeatures) []float64 {
	vec := make([]float64, 0, 16)

	if w := in.Wear; w != nil {
		vec = append(vec,
			orZero(w.HRMean), orZero(w.HRMin), orZero(w.HRMax),
			orZero(w.RRMean), orZero(w.SDNN), orZero(w.RMSSD), orZero(w.PNN50),
			orZero(w.MotionIndex),
		)
	} else {
		vec = append(vec, 0, 0, 0, 0, 0, 0, 0, 0)
	}

	if p := in.Phone; p != nil {
		vec = append(vec,
			orZero(p.ScreenOnRatio), orZero(p.UnlockRate),
			orZero(p.NotificationRate), orZero(p.MotionIndex),
		)
	} else {
		vec = append(vec, 0, 0, 0, 0)
	}

	if b := in.Behavior; b != nil {
		vec = append(vec,
			orZero(b.TapRate), orZero(b.AppSwitchRate),
			orZero(b.Burstiness), orZero(b.SessionFragmentation),
		)
	} else {
		vec = append(vec, 0, 0, 0, 0)
	}

	return vec
}

// #endregion feature-vector

// #region embed

// Embed pads or truncates the fused vector to the fixed output dimension.
// A production deployment swaps this for a trained model behind the same
// contract: vector in, fixed-length vector out, deterministic.
func Embed(vec []float64) [EmbeddingDim]float32 {
	var out [EmbeddingDim]float32
	for i := 0; i < len(vec) && i < EmbeddingDim; i++ {
		out[i] = float32(vec[i])
	}
	return out
}

// #endregion embed

// #region summaries

func behaviorSummary(in collect.CollectedFeatures) BehaviorSummary {
	if in.Behavior == nil {
		return BehaviorSummary{}
	}
	return BehaviorSummary{
		TapRate:       in.Behavior.TapRate,
		AppSwitchRate: in.Behavior.AppSwitchRate,
		Burstiness:    in.Behavior.Burstiness,
	}
}

func contextSummary(in collect.CollectedFeatures) ContextSummary {
	var present []string
	if in.Wear != nil {
		present = append(present, "wear")
	}
	if in.Phone != nil {
		present = append(present, "phone")
	}
	if in.Behavior != nil {
		present = append(present, "behavior")
	}

	out := ContextSummary{SourcesPresent: present}
	if in.Phone != nil {
		out.ScreenOnRatio = in.Phone.ScreenOnRatio
	}
	if in.Behavior != nil {
		out.SessionFragmentation = in.Behavior.SessionFragmentation
	}
	return out
}

// #endregion summaries

// #region helpers

func orZero(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// #endregion helpers
