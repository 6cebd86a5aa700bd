package ledger

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
)

// Key identifies one borrowed object within a request.
type Key uint64

// Releaser takes a borrowed object back. *pool.Pool[T] implements it.
type Releaser interface {
	Name() string
	ReleaseAny(obj any) error
}

// entry is one outstanding borrowed object.
type entry struct {
	key  Key
	obj  any
	pool Releaser
}

// DrainResult summarises one Drain.
type DrainResult struct {
	Released int   // Objects returned successfully
	Failed   int   // Objects whose release failed
	Err      error // Joined release errors, nil when Failed is zero
}

// Ledger records borrowed objects for one request.
type Ledger struct {
	mu      sync.Mutex
	entries []entry
	next    Key
	logger  *slog.Logger
}

// New creates an empty ledger. Release failures during Drain are logged to
// logger; a nil logger uses slog.Default().
func New(logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{logger: logger}
}

// Record appends obj, borrowed from pool, and returns its key.
func (l *Ledger) Record(obj any, pool Releaser) (Key, error) {
	if isNil(obj) {
		return 0, ErrNilObject
	}
	if isNil(pool) {
		return 0, ErrNilPool
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.next++
	l.entries = append(l.entries, entry{key: l.next, obj: obj, pool: pool})
	return l.next, nil
}

// Lookup returns the object recorded under key.
func (l *Ledger) Lookup(key Key) (any, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if i := l.index(key); i >= 0 {
		return l.entries[i].obj, true
	}
	return nil, false
}

// Return releases the object recorded under key ahead of Drain and removes
// its entry. The entry is removed even when the release fails.
func (l *Ledger) Return(key Key) error {
	l.mu.Lock()
	i := l.index(key)
	if i < 0 {
		l.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrUnknownKey, key)
	}
	e := l.entries[i]
	l.entries = append(l.entries[:i], l.entries[i+1:]...)
	l.mu.Unlock()

	if err := e.pool.ReleaseAny(e.obj); err != nil {
		return fmt.Errorf("return key %d to pool %s: %w", key, e.pool.Name(), err)
	}
	return nil
}

// Len returns the number of outstanding entries.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.entries)
}

// Drain releases every outstanding object in insertion order and empties the
// ledger. Draining an empty ledger does nothing. Drain must only be called
// once the request no longer uses the recorded objects.
func (l *Ledger) Drain() DrainResult {
	l.mu.Lock()
	entries := l.entries
	l.entries = nil
	l.mu.Unlock()

	var (
		result DrainResult
		errs   []error
	)
	for _, e := range entries {
		if err := e.pool.ReleaseAny(e.obj); err != nil {
			result.Failed++
			errs = append(errs, err)
			l.logger.Error("failed to release borrowed object",
				"pool", e.pool.Name(),
				"key", uint64(e.key),
				"error", err,
			)
			continue
		}
		result.Released++
	}
	result.Err = errors.Join(errs...)
	return result
}

// Reset empties the ledger without releasing anything and restarts key
// numbering. It is used when the owning request is recycled.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = nil
	l.next = 0
}

func (l *Ledger) index(key Key) int {
	for i, e := range l.entries {
		if e.key == key {
			return i
		}
	}
	return -1
}

// isNil reports whether v is nil or a typed nil pointer.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
