// Package lifecycle gives every long-lived component a uniform state
// machine and starts them in dependency order.
package lifecycle

import (
	"context"
	"fmt"
	"log"
	"sort"
)

// #region status

// Status is a module's position in the uninitialized → initialized →
// running → stopped → disposed progression. Transitions only move
// forward, except stopped → running on restart.
type Status int

const (
	StatusUninitialized Status = iota
	StatusInitialized
	StatusRunning
	StatusStopped
	StatusDisposed
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusInitialized:
		return "initialized"
	case StatusRunning:
		return "running"
	case StatusStopped:
		return "stopped"
	case StatusDisposed:
		return "disposed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// #endregion status

// #region module

// Module is a component managed by the lifecycle manager.
type Module interface {
	Name() string
	Init(ctx context.Context) error
	Start(ctx context.Context) error
	Stop() error
	Dispose() error
}

// #endregion module

// #region manager

// Manager tracks registered modules, their declared dependencies, and
// their statuses. Start order is a topological sort of the dependency
// map; stop order is the reverse.
type Manager struct {
	modules map[string]Module
	deps    map[string][]string
	status  map[string]Status
	order   []string // resolved start order, set by Init
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{
		modules: make(map[string]Module),
		deps:    make(map[string][]string),
		status:  make(map[string]Status),
	}
}

// Register adds a module and the names of the modules it depends on.
// Dependencies are initialized and started first.
func (m *Manager) Register(mod Module, deps ...string) {
	name := mod.Name()
	m.modules[name] = mod
	m.deps[name] = deps
	m.status[name] = StatusUninitialized
}

// Status reports a module's current status.
func (m *Manager) Status(name string) Status {
	return m.status[name]
}

// #endregion manager

// #region ordering

// resolveOrder topologically sorts the dependency map. Returns an error
// naming the offending module on a cycle or an unknown dependency.
func (m *Manager) resolveOrder() ([]string, error) {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	mark := make(map[string]int, len(m.modules))
	var order []string

	var visit func(name string) error
	visit = func(name string) error {
		switch mark[name] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("dependency cycle through %q", name)
		}
		mark[name] = visiting
		for _, dep := range m.deps[name] {
			if _, ok := m.modules[dep]; !ok {
				return fmt.Errorf("%q depends on unknown module %q", name, dep)
			}
			if err := visit(dep); err != nil {
				return err
			}
		}
		mark[name] = done
		order = append(order, name)
		return nil
	}

	// Deterministic traversal order keeps failures reproducible.
	names := make([]string, 0, len(m.modules))
	for name := range m.modules {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// #endregion ordering

// #region transitions

// Init resolves the start order and initializes every module in it.
// Fails fast: the first error aborts, leaving later modules untouched.
func (m *Manager) Init(ctx context.Context) error {
	order, err := m.resolveOrder()
	if err != nil {
		return fmt.Errorf("resolve module order: %w", err)
	}
	m.order = order

	for _, name := range m.order {
		if err := m.modules[name].Init(ctx); err != nil {
			return fmt.Errorf("init %s: %w", name, err)
		}
		m.status[name] = StatusInitialized
		log.Printf("[LIFECYCLE] %s initialized", name)
	}
	return nil
}

// Start runs every initialized module in dependency order.
func (m *Manager) Start(ctx context.Context) error {
	for _, name := range m.order {
		if s := m.status[name]; s != StatusInitialized && s != StatusStopped {
			return fmt.Errorf("start %s: module is %s", name, s)
		}
		if err := m.modules[name].Start(ctx); err != nil {
			return fmt.Errorf("start %s: %w", name, err)
		}
		m.status[name] = StatusRunning
		log.Printf("[LIFECYCLE] %s running", name)
	}
	return nil
}

// Stop halts modules in reverse dependency order. All modules are
// attempted even if one fails; the first error is returned.
func (m *Manager) Stop() error {
	var firstErr error
	for i := len(m.order) - 1; i >= 0; i-- {
		name := m.order[i]
		if m.status[name] != StatusRunning {
			continue
		}
		if err := m.modules[name].Stop(); err != nil {
			log.Printf("[LIFECYCLE] stop %s: %v", name, err)
			if firstErr == nil {
				firstErr = fmt.Errorf("stop %s: %w", name, err)
			}
			continue
		}
		m.status[name] = StatusStopped
		log.Printf("[LIFECYCLE] %s stopped", name)
	}
	return firstErr
}

// Dispose releases module resources in reverse dependency order. Running
// modules are stopped first.
func (m *Manager) Dispose() error {
	var firstErr error
	if err := m.Stop(); err != nil && firstErr == nil {
		firstErr = err
	}
	for i := len(m.order) - 1; i >= 0; i-- {
		name := m.order[i]
		if m.status[name] == StatusDisposed {
			continue
		}
		if err := m.modules[name].Dispose(); err != nil {
			log.Printf("[LIFECYCLE] dispose %s: %v", name, err)
			if firstErr == nil {
				firstErr = fmt.Errorf("dispose %s: %w", name, err)
			}
			continue
		}
		m.status[name] = StatusDisposed
	}
	return firstErr
}

// #endregion transitions

// #region funcmodule

// FuncModule adapts plain functions into a Module. Nil hooks are
// no-ops, so components with trivial lifecycles stay terse at the
// wiring site.
type FuncModule struct {
	ModuleName string
	OnInit     func(ctx context.Context) error
	OnStart    func(ctx context.Context) error
	OnStop     func() error
	OnDispose  func() error
}

func (f *FuncModule) Name() string { return f.ModuleName }

func (f *FuncModule) Init(ctx context.Context) error {
	if f.OnInit == nil {
		return nil
	}
	return f.OnInit(ctx)
}

func (f *FuncModule) Start(ctx context.Context) error {
	if f.OnStart == nil {
		return nil
	}
	return f.OnStart(ctx)
}

func (f *FuncModule) Stop() error {
	if f.OnStop == nil {
		return nil
	}
	return f.OnStop()
}

func (f *FuncModule) Dispose() error {
	if f.OnDispose == nil {
		return nil
	}
	return f.OnDispose()
}

// #endregion funcmodule
