package fuse

import (
	"time"

	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/window"
)

// #region constants

// SchemaVersion is the canonical snapshot schema carried on every FusedState.
const SchemaVersion = 1

// EmbeddingDim is the fixed output dimension of the state embedding.
const EmbeddingDim = 64

// EmbeddingModelID identifies the embedding codec. The pad/truncate codec
// is a placeholder with the same contract a trained model would have:
// deterministic fixed-length vector from a feature vector.
const EmbeddingModelID = "pad-truncate-v1"

// #endregion constants

// #region axes

// AffectAxis holds the normalized affect scalars. nil distinguishes
// "no data" from a measured low value.
type AffectAxis struct {
	ArousalIndex     *float64 `json:"arousal_index,omitempty"`
	ValenceStability *float64 `json:"valence_stability,omitempty"`
}

// EngagementAxis holds the normalized engagement scalars.
type EngagementAxis struct {
	Stability          *float64 `json:"stability,omitempty"`
	InteractionCadence *float64 `json:"interaction_cadence,omitempty"`
}

// ActivityAxis holds the normalized activity scalars.
type ActivityAxis struct {
	MotionIndex      *float64 `json:"motion_index,omitempty"`
	PostureStability *float64 `json:"posture_stability,omitempty"`
}

// ContextAxis holds the normalized context scalars.
type ContextAxis struct {
	ScreenActiveRatio    *float64 `json:"screen_active_ratio,omitempty"`
	SessionFragmentation *float64 `json:"session_fragmentation,omitempty"`
}

// StateAxes groups the four independent axis domains. Each axis is
// computed only when its required source features are present.
type StateAxes struct {
	Affect     AffectAxis     `json:"affect"`
	Engagement EngagementAxis `json:"engagement"`
	Activity   ActivityAxis   `json:"activity"`
	Context    ContextAxis    `json:"context"`
}

// #endregion axes

// #region embedding

// StateEmbedding is the fixed-dimension dense vector produced once per
// fusion cycle. Immutable.
type StateEmbedding struct {
	Vector    [EmbeddingDim]float32 `json:"vector"`
	Timestamp time.Time             `json:"timestamp"`
	Window    window.Type           `json:"window"`
	ModelID   string                `json:"model_id"`
}

// #endregion embedding

// #region summaries

// BehaviorSummary echoes the interaction aggregates that fed the fusion.
type BehaviorSummary struct {
	TapRate       *float64 `json:"tap_rate,omitempty"`
	AppSwitchRate *float64 `json:"app_switch_rate,omitempty"`
	Burstiness    *float64 `json:"burstiness,omitempty"`
}

// ContextSummary echoes the context aggregates plus which sources were
// present this cycle.
type ContextSummary struct {
	ScreenOnRatio        *float64 `json:"screen_on_ratio,omitempty"`
	SessionFragmentation *float64 `json:"session_fragmentation,omitempty"`
	SourcesPresent       []string `json:"sources_present"`
}

// #endregion summaries

// #region estimates

// EmotionEstimate is attached by an interpretation head; opaque to the core.
type EmotionEstimate struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Model      string  `json:"model"`
}

// FocusEstimate is attached by an interpretation head; opaque to the core.
type FocusEstimate struct {
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
	Model      string  `json:"model"`
}

// #endregion estimates

// #region fused-state

// FusedState is the canonical snapshot produced once per fusion cycle.
// Value semantics throughout: the emotion and focus slots start empty and
// are filled by copy-and-replace, so concurrent readers of an in-flight
// snapshot never observe a torn write.
type FusedState struct {
	SchemaVersion int             `json:"schema_version"`
	ID            string          `json:"id"`
	Timestamp     time.Time       `json:"timestamp"`
	Window        window.Type     `json:"window"`
	Axes          StateAxes       `json:"axes"`
	Embedding     StateEmbedding  `json:"embedding"`
	Behavior      BehaviorSummary `json:"behavior"`
	Context       ContextSummary  `json:"context"`

	Emotion *EmotionEstimate `json:"emotion,omitempty"`
	Focus   *FocusEstimate   `json:"focus,omitempty"`
}

// WithEmotion returns a copy of s with the emotion slot filled.
func (s FusedState) WithEmotion(e EmotionEstimate) FusedState {
	s.Emotion = &e
	return s
}

// WithFocus returns a copy of s with the focus slot filled.
func (s FusedState) WithFocus(f FocusEstimate) FusedState {
	s.Focus = &f
	return s
}

// #endregion fused-state
