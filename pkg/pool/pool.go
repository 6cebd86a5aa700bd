package pool

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Default configuration values
const (
	DefaultMaxIdle     = 64              // Idle instances kept per pool
	DefaultIdleTimeout = 5 * time.Minute // Idle instances older than this are pruned
)

// Factory builds a new instance when the pool has none idle.
type Factory[T any] func() (T, error)

// Resetter is implemented by instances that clear their own state when
// released back to a pool.
type Resetter interface {
	Reset()
}

// Config contains pool sizing settings.
type Config struct {
	// MaxIdle is the number of idle instances kept. Instances released
	// beyond this limit are discarded. Default: 64
	MaxIdle int

	// MaxActive bounds the number of borrowed instances. Zero means no bound.
	MaxActive int

	// IdleTimeout is how long an idle instance may wait before Prune
	// discards it. Zero disables expiry. Default: 5m
	IdleTimeout time.Duration
}

// Stats is a point-in-time view of a pool.
type Stats struct {
	Name          string `json:"name"`
	Idle          int    `json:"idle"`
	InUse         int    `json:"in_use"`
	Created       uint64 `json:"created"`
	Acquired      uint64 `json:"acquired"`
	Released      uint64 `json:"released"`
	Discarded     uint64 `json:"discarded"`
	ReleaseErrors uint64 `json:"release_errors"`
	Closed        bool   `json:"closed"`
}

// idleInstance is an instance waiting in the pool.
type idleInstance[T comparable] struct {
	obj   T
	since time.Time
}

// Pool holds reusable instances of T. T is normally a pointer type.
type Pool[T comparable] struct {
	name    string
	factory Factory[T]

	mu          sync.Mutex
	idle        []idleInstance[T]
	inUse       map[T]struct{}
	maxIdle     int
	maxActive   int
	pending     int // instances being built by Acquire
	idleTimeout time.Duration
	owner       any
	closed      bool

	created       uint64
	acquired      uint64
	released      uint64
	discarded     uint64
	releaseErrors uint64

	// now is replaced in tests
	now func() time.Time
}

// New creates a pool named name that builds instances with factory.
func New[T comparable](name string, factory Factory[T], cfg Config) *Pool[T] {
	if cfg.MaxIdle <= 0 {
		cfg.MaxIdle = DefaultMaxIdle
	}
	if cfg.IdleTimeout < 0 {
		cfg.IdleTimeout = 0
	}

	return &Pool[T]{
		name:        name,
		factory:     factory,
		idle:        make([]idleInstance[T], 0, cfg.MaxIdle),
		inUse:       make(map[T]struct{}),
		maxIdle:     cfg.MaxIdle,
		maxActive:   cfg.MaxActive,
		idleTimeout: cfg.IdleTimeout,
		now:         time.Now,
	}
}

// Name returns the pool name.
func (p *Pool[T]) Name() string {
	return p.name
}

// Acquire returns an idle instance, or builds a new one when none is idle.
// The most recently released instance is returned first. Borrowed instances
// plus instances still being built never exceed MaxActive.
func (p *Pool[T]) Acquire() (T, error) {
	var zero T

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return zero, ErrClosed
	}
	if p.maxActive > 0 && len(p.inUse)+p.pending >= p.maxActive {
		p.mu.Unlock()
		return zero, fmt.Errorf("%w: %s has %d instances in use", ErrExhausted, p.name, p.maxActive)
	}

	if n := len(p.idle); n > 0 {
		obj := p.idle[n-1].obj
		p.idle[n-1] = idleInstance[T]{}
		p.idle = p.idle[:n-1]
		p.inUse[obj] = struct{}{}
		p.acquired++
		p.mu.Unlock()
		return obj, nil
	}

	// Reserve a slot, then build outside the lock; factories may be slow.
	p.pending++
	p.mu.Unlock()

	obj, err := p.factory()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending--

	if err != nil {
		return zero, fmt.Errorf("pool %s: factory failed: %w", p.name, err)
	}
	if p.closed {
		closeInstance(obj)
		return zero, ErrClosed
	}
	if _, dup := p.inUse[obj]; dup {
		return zero, fmt.Errorf("pool %s: factory returned an instance that is already borrowed", p.name)
	}

	p.inUse[obj] = struct{}{}
	p.created++
	p.acquired++
	return obj, nil
}

// Release returns obj to the pool. It fails with a *ReleaseError when obj is
// not currently borrowed from this pool, so an instance is never stored twice.
func (p *Pool[T]) Release(obj T) error {
	p.mu.Lock()

	if _, ok := p.inUse[obj]; !ok {
		p.releaseErrors++
		p.mu.Unlock()
		return NewReleaseError(p.name, ErrNotBorrowed)
	}
	delete(p.inUse, obj)
	p.released++

	if p.closed || len(p.idle) >= p.maxIdle {
		p.discarded++
		p.mu.Unlock()
		closeInstance(obj)
		return nil
	}
	p.mu.Unlock()

	// Reset outside the lock. The instance is no longer in inUse and not yet
	// idle, so nobody else can reach it.
	if r, ok := any(obj).(Resetter); ok {
		r.Reset()
	}

	p.mu.Lock()
	if p.closed || len(p.idle) >= p.maxIdle {
		p.discarded++
		p.mu.Unlock()
		closeInstance(obj)
		return nil
	}
	p.idle = append(p.idle, idleInstance[T]{obj: obj, since: p.now()})
	p.mu.Unlock()

	return nil
}

// ReleaseAny releases obj after checking its type. It lets callers that track
// borrowed instances of many types hold pools behind one interface.
func (p *Pool[T]) ReleaseAny(obj any) error {
	typed, ok := obj.(T)
	if !ok {
		p.mu.Lock()
		p.releaseErrors++
		p.mu.Unlock()
		return NewReleaseError(p.name, fmt.Errorf("%w: got %T", ErrWrongType, obj))
	}
	return p.Release(typed)
}

// InUse reports whether obj is currently borrowed from the pool.
func (p *Pool[T]) InUse(obj T) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, ok := p.inUse[obj]
	return ok
}

// SetCurrentOwner records which request context is currently borrowing from
// the pool. It is used for diagnostics only.
func (p *Pool[T]) SetCurrentOwner(owner any) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.owner = owner
}

// ClearCurrentOwner clears the owner association if owner is the current
// owner, leaving an association made by another request untouched.
func (p *Pool[T]) ClearCurrentOwner(owner any) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.owner == owner {
		p.owner = nil
	}
}

// CurrentOwner returns the last owner recorded by SetCurrentOwner.
func (p *Pool[T]) CurrentOwner() any {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.owner
}

// SetLimits replaces the sizing limits. Idle instances beyond the new MaxIdle
// are discarded immediately. A lower MaxActive does not reclaim borrowed
// instances; Acquire fails until enough of them are released.
func (p *Pool[T]) SetLimits(cfg Config) {
	p.mu.Lock()

	if cfg.MaxIdle > 0 {
		p.maxIdle = cfg.MaxIdle
	}
	if cfg.MaxActive >= 0 {
		p.maxActive = cfg.MaxActive
	}
	if cfg.IdleTimeout >= 0 {
		p.idleTimeout = cfg.IdleTimeout
	}

	var excess []T
	for len(p.idle) > p.maxIdle {
		excess = append(excess, p.idle[0].obj)
		p.idle = p.idle[1:]
		p.discarded++
	}
	p.mu.Unlock()

	for _, obj := range excess {
		closeInstance(obj)
	}
}

// Prune discards idle instances that have waited longer than IdleTimeout and
// returns how many were discarded.
func (p *Pool[T]) Prune() int {
	p.mu.Lock()

	if p.idleTimeout <= 0 || len(p.idle) == 0 {
		p.mu.Unlock()
		return 0
	}

	now := p.now()
	kept := make([]idleInstance[T], 0, len(p.idle))
	var expired []T

	for _, in := range p.idle {
		if now.Sub(in.since) > p.idleTimeout {
			expired = append(expired, in.obj)
			continue
		}
		kept = append(kept, in)
	}

	p.idle = kept
	p.discarded += uint64(len(expired))
	p.mu.Unlock()

	for _, obj := range expired {
		closeInstance(obj)
	}
	return len(expired)
}

// Stats returns pool statistics.
func (p *Pool[T]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Stats{
		Name:          p.name,
		Idle:          len(p.idle),
		InUse:         len(p.inUse),
		Created:       p.created,
		Acquired:      p.acquired,
		Released:      p.released,
		Discarded:     p.discarded,
		ReleaseErrors: p.releaseErrors,
		Closed:        p.closed,
	}
}

// Close discards every idle instance and rejects further acquisitions.
// Borrowed instances are discarded as they are released.
func (p *Pool[T]) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.discarded += uint64(len(idle))
	p.mu.Unlock()

	for _, in := range idle {
		closeInstance(in.obj)
	}
	return nil
}

// closeInstance closes obj if it implements io.Closer.
func closeInstance[T any](obj T) {
	if c, ok := any(obj).(io.Closer); ok {
		_ = c.Close()
	}
}
