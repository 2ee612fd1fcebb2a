package window

import (
	"fmt"
	"time"
)

// #region window-type

// Type identifies one of the fixed rolling aggregation windows.
// Each window is scheduled and buffered independently of the others.
type Type string

const (
	Micro  Type = "micro"  // 30s
	Short  Type = "short"  // 5m
	Medium Type = "medium" // 1h
	Long   Type = "long"   // 24h
)

// #endregion window-type

// #region durations

var durations = map[Type]time.Duration{
	Micro:  30 * time.Second,
	Short:  5 * time.Minute,
	Medium: time.Hour,
	Long:   24 * time.Hour,
}

// Duration returns the rolling span covered by the window.
func (t Type) Duration() time.Duration {
	return durations[t]
}

// Valid reports whether t is one of the supported windows.
func (t Type) Valid() bool {
	_, ok := durations[t]
	return ok
}

// #endregion durations

// #region all

// All returns the supported windows ordered finest to coarsest.
func All() []Type {
	return []Type{Micro, Short, Medium, Long}
}

// #endregion all

// #region parse

// Parse converts a label ("micro", "short", ...) into a Type.
func Parse(s string) (Type, error) {
	t := Type(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown window type %q", s)
	}
	return t, nil
}

// #endregion parse
