package consent

// #region capability-level

// CapabilityLevel is the authorization tier controlling which fields and
// upload rates a module is granted.
type CapabilityLevel string

const (
	CapabilityNone     CapabilityLevel = "none"
	CapabilityCore     CapabilityLevel = "core"
	CapabilityExtended CapabilityLevel = "extended"
	CapabilityResearch CapabilityLevel = "research"
)

// rank orders tiers for monotone comparisons. Unknown levels rank below none.
func (l CapabilityLevel) rank() int {
	switch l {
	case CapabilityCore:
		return 1
	case CapabilityExtended:
		return 2
	case CapabilityResearch:
		return 3
	default:
		return 0
	}
}

// AtLeast reports whether l grants everything min grants.
func (l CapabilityLevel) AtLeast(min CapabilityLevel) bool {
	return l.rank() >= min.rank()
}

// #endregion capability-level

// #region capability-provider

// CapabilityProvider exposes the externally owned capability authority.
type CapabilityProvider interface {
	// Capability returns the tier granted to the named module.
	Capability(module string) CapabilityLevel
}

// StaticCapability grants the same tier to every module.
type StaticCapability struct {
	Level CapabilityLevel
}

// Capability implements CapabilityProvider.
func (s StaticCapability) Capability(string) CapabilityLevel {
	return s.Level
}

// #endregion capability-provider
