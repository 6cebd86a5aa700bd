package pool

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Managed is the type-erased view of a Pool held by a Manager.
type Managed interface {
	Name() string
	Stats() Stats
	SetLimits(cfg Config)
	Prune() int
	Close() error
}

// Manager is a registry of named pools shared by a worker.
type Manager struct {
	pools map[string]Managed
	mu    sync.RWMutex
}

// NewManager creates an empty pool registry.
func NewManager() *Manager {
	return &Manager{
		pools: make(map[string]Managed),
	}
}

// Register adds p to the registry. Names must be unique.
func (m *Manager) Register(p Managed) error {
	if p == nil {
		return fmt.Errorf("pool cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.pools[p.Name()]; exists {
		return fmt.Errorf("pool already registered: %s", p.Name())
	}
	m.pools[p.Name()] = p
	return nil
}

// Get returns the pool registered under name.
func (m *Manager) Get(name string) (Managed, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.pools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPoolNotFound, name)
	}
	return p, nil
}

// Lookup returns the pool registered under name as a *Pool[T].
func Lookup[T comparable](m *Manager, name string) (*Pool[T], error) {
	p, err := m.Get(name)
	if err != nil {
		return nil, err
	}

	typed, ok := p.(*Pool[T])
	if !ok {
		return nil, fmt.Errorf("pool %s holds %T, not the requested type", name, p)
	}
	return typed, nil
}

// Names returns the registered pool names in sorted order.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.pools))
	for name := range m.pools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stats returns statistics for every pool, sorted by name.
func (m *Manager) Stats() []Stats {
	pools := m.snapshot()

	stats := make([]Stats, 0, len(pools))
	for _, p := range pools {
		stats = append(stats, p.Stats())
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats
}

// ApplyLimits sets limits on every pool named in limits. Unknown names are
// ignored and returned.
func (m *Manager) ApplyLimits(limits map[string]Config) []string {
	var unknown []string
	for name, cfg := range limits {
		p, err := m.Get(name)
		if err != nil {
			unknown = append(unknown, name)
			continue
		}
		p.SetLimits(cfg)
	}
	sort.Strings(unknown)
	return unknown
}

// PruneAll prunes expired idle instances in every pool and returns the total
// number discarded.
func (m *Manager) PruneAll() int {
	total := 0
	for _, p := range m.snapshot() {
		total += p.Prune()
	}
	return total
}

// CloseAll closes every pool and empties the registry.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	pools := m.pools
	m.pools = make(map[string]Managed)
	m.mu.Unlock()

	var errs []error
	for _, p := range pools {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pool %s: %w", p.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// snapshot copies the registered pools so callers can work without the lock.
func (m *Manager) snapshot() []Managed {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pools := make([]Managed, 0, len(m.pools))
	for _, p := range m.pools {
		pools = append(pools, p)
	}
	return pools
}
