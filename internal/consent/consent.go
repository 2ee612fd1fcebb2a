package consent

import "sync"

// #region snapshot

// Snapshot is the current per-category consent state. Read-only from the
// pipeline's perspective; a revoked category must take effect within one
// fusion/upload cycle, so components re-read it per cycle instead of
// caching it.
type Snapshot struct {
	Biosignals  bool
	Behavior    bool
	Motion      bool
	CloudUpload bool
	Syni        bool
}

// #endregion snapshot

// #region provider

// Provider exposes the externally owned consent authority.
type Provider interface {
	// Current returns the consent state as of now.
	Current() Snapshot
	// Observe returns a channel that receives a snapshot on every change.
	// The channel is closed when the provider shuts down.
	Observe() <-chan Snapshot
}

// #endregion provider

// #region mutable-provider

// MutableProvider is an in-memory Provider whose state can be replaced at
// runtime. Used by the host integration and by tests; production hosts
// back it with the platform consent authority.
type MutableProvider struct {
	mu        sync.RWMutex
	current   Snapshot
	observers []chan Snapshot
}

// NewMutableProvider creates a provider with the given initial state.
func NewMutableProvider(initial Snapshot) *MutableProvider {
	return &MutableProvider{current: initial}
}

// Current returns the latest snapshot.
func (p *MutableProvider) Current() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Observe registers a new observer channel.
func (p *MutableProvider) Observe() <-chan Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch := make(chan Snapshot, 4)
	p.observers = append(p.observers, ch)
	return ch
}

// Set replaces the current snapshot and fans it out to observers.
// Observers that have fallen behind are skipped rather than blocked on.
func (p *MutableProvider) Set(s Snapshot) {
	p.mu.Lock()
	p.current = s
	observers := make([]chan Snapshot, len(p.observers))
	copy(observers, p.observers)
	p.mu.Unlock()

	for _, ch := range observers {
		select {
		case ch <- s:
		default:
		}
	}
}

// Close closes all observer channels.
func (p *MutableProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ch := range p.observers {
		close(ch)
	}
	p.observers = nil
}

// #endregion mutable-provider
