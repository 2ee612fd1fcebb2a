package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/consent"
	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/window"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture: a
// recorded stream of timestamped samples plus the cycle marks at which
// fusion should run.
type Fixture struct {
	Description string                  `json:"description"`
	Capability  consent.CapabilityLevel `json:"capability"`
	Consent     FixtureConsent          `json:"consent"`
	Samples     []FixtureSample         `json:"samples"`
	Cycles      []FixtureCycle          `json:"cycles"`
}

// FixtureConsent mirrors consent.Snapshot with JSON tags.
type FixtureConsent struct {
	Biosignals  bool `json:"biosignals"`
	Behavior    bool `json:"behavior"`
	Motion      bool `json:"motion"`
	CloudUpload bool `json:"cloud_upload"`
	Syni        bool `json:"syni"`
}

// ToSnapshot converts a FixtureConsent to a domain consent.Snapshot.
func (c FixtureConsent) ToSnapshot() consent.Snapshot {
	return consent.Snapshot{
		Biosignals:  c.Biosignals,
		Behavior:    c.Behavior,
		Motion:      c.Motion,
		CloudUpload: c.CloudUpload,
		Syni:        c.Syni,
	}
}

// FixtureSample is one recorded reading. Source selects which payload
// fields apply: "wear", "phone", or "behavior".
type FixtureSample struct {
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`

	// wear
	HeartRate   *float64  `json:"heart_rate,omitempty"`
	RRIntervals []float64 `json:"rr_intervals,omitempty"`
	Motion      *float64  `json:"motion,omitempty"`

	// phone
	ScreenOn     *bool `json:"screen_on,omitempty"`
	Unlock       bool  `json:"unlock,omitempty"`
	Notification bool  `json:"notification,omitempty"`

	// behavior
	Taps         int  `json:"taps,omitempty"`
	AppSwitches  int  `json:"app_switches,omitempty"`
	SessionBreak bool `json:"session_break,omitempty"`
}

// FixtureCycle marks a fusion run for one window at a point in the
// recorded timeline.
type FixtureCycle struct {
	Timestamp time.Time   `json:"timestamp"`
	Window    window.Type `json:"window"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// Validate checks source names and window labels before a run, so a bad
// fixture fails up front instead of half-way through the timeline.
func (f *Fixture) Validate() error {
	for i, s := range f.Samples {
		switch s.Source {
		case "wear", "phone", "behavior":
		default:
			return fmt.Errorf("sample %d: unknown source %q", i, s.Source)
		}
		if s.Timestamp.IsZero() {
			return fmt.Errorf("sample %d: missing timestamp", i)
		}
	}
	for i, c := range f.Cycles {
		if !c.Window.Valid() {
			return fmt.Errorf("cycle %d: unknown window %q", i, c.Window)
		}
		if c.Timestamp.IsZero() {
			return fmt.Errorf("cycle %d: missing timestamp", i)
		}
	}
	return nil
}

// #endregion fixture-loader
