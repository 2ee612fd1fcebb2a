package cache

import (
	"time"

	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/window"
)

// #region samples

// WearSample is one timestamped reading from a wearable source.
// Immutable once created; the cache discards it when it ages out of the
// longest active window.
type WearSample struct {
	Timestamp   time.Time
	HeartRate   *float64  // bpm, nil when the reading carried no HR
	RRIntervals []float64 // ms, RR intervals observed since the prior sample
	Motion      *float64  // normalized 0..1 wrist motion magnitude
}

// PhoneSample is one timestamped reading from the phone platform source.
type PhoneSample struct {
	Timestamp    time.Time
	ScreenOn     *bool    // screen state at sample time, nil when unknown
	Unlock       bool     // an unlock event was observed
	Notification bool     // a notification event was observed
	Motion       *float64 // normalized 0..1 phone motion magnitude
}

// BehaviorSample is one timestamped interaction observation.
type BehaviorSample struct {
	Timestamp    time.Time
	Taps         int  // tap events in this observation
	AppSwitches  int  // app switch events in this observation
	SessionBreak bool // an interaction session boundary was observed
}

func (s WearSample) when() time.Time     { return s.Timestamp }
func (s PhoneSample) when() time.Time    { return s.Timestamp }
func (s BehaviorSample) when() time.Time { return s.Timestamp }

// #endregion samples

// #region features

// WearFeatures is the per-window aggregate over buffered wear samples.
// Recomputed as a fresh value on every insert; nil fields mean the
// underlying data was missing or insufficient, never a fabricated zero.
type WearFeatures struct {
	Window      window.Type
	ComputedAt  time.Time
	SampleCount int

	HRMean *float64
	HRMin  *float64
	HRMax  *float64

	RRMean  *float64
	SDNN    *float64
	RMSSD   *float64
	PNN50   *float64
	RRCount int // concatenated RR intervals in the window (research tier)

	MotionIndex  *float64 // mean normalized motion, 0..1
	MotionSpread *float64 // population std dev of motion values
}

// PhoneFeatures is the per-window aggregate over buffered phone samples.
type PhoneFeatures struct {
	Window      window.Type
	ComputedAt  time.Time
	SampleCount int

	ScreenOnRatio    *float64 // fraction of known screen states that were on
	UnlockRate       *float64 // events per minute; zero is a valid rate
	NotificationRate *float64 // events per minute; zero is a valid rate
	MotionIndex      *float64
}

// BehaviorFeatures is the per-window aggregate over buffered behavior samples.
type BehaviorFeatures struct {
	Window      window.Type
	ComputedAt  time.Time
	SampleCount int

	TapRate              *float64 // per minute; zero is a valid rate
	AppSwitchRate        *float64 // per minute; zero is a valid rate
	Burstiness           *float64 // 0..1, needs >= 3 tap-bearing samples
	SessionFragmentation *float64 // 0..1 normalized session break rate
}

// #endregion features
