package uplink

import "sync"

// #region connectivity

// Connectivity reports network state and its transitions. Owned by the
// host platform; the pipeline only observes it.
type Connectivity interface {
	Online() bool
	Changes() <-chan bool
}

// #endregion connectivity

// #region manual

// ManualConnectivity is a Connectivity driven by explicit Set calls.
// Hosts bridge their platform reachability callbacks into it; tests flip
// it directly.
type ManualConnectivity struct {
	mu      sync.Mutex
	online  bool
	changes chan bool
}

// NewManualConnectivity creates a watcher in the given initial state.
func NewManualConnectivity(online bool) *ManualConnectivity {
	return &ManualConnectivity{
		online:  online,
		changes: make(chan bool, 8),
	}
}

// Online reports the current state.
func (m *ManualConnectivity) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Changes returns the transition stream.
func (m *ManualConnectivity) Changes() <-chan bool {
	return m.changes
}

// Set records a transition. Same-state sets are dropped; a slow consumer
// loses intermediate transitions rather than blocking the platform
// callback.
func (m *ManualConnectivity) Set(online bool) {
	m.mu.Lock()
	changed := m.online != online
	m.online = online
	m.mu.Unlock()

	if !changed {
		return
	}
	select {
	case m.changes <- online:
	default:
	}
}

// #endregion manual
