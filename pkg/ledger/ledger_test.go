package ledger

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"mercator-hq/lifecycle/pkg/pool"
)

// recordingPool remembers the release order and can be told to fail.
type recordingPool struct {
	name     string
	released []any
	fail     error
}

func (p *recordingPool) Name() string { return p.name }

func (p *recordingPool) ReleaseAny(obj any) error {
	if p.fail != nil {
		return p.fail
	}
	p.released = append(p.released, obj)
	return nil
}

func testLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, nil))
}

func TestRecordRejectsNil(t *testing.T) {
	l := New(nil)
	p := &recordingPool{name: "p"}

	if _, err := l.Record(nil, p); !errors.Is(err, ErrNilObject) {
		t.Errorf("Record(nil) error = %v, want ErrNilObject", err)
	}
	var typedNil *bytes.Buffer
	if _, err := l.Record(typedNil, p); !errors.Is(err, ErrNilObject) {
		t.Errorf("Record(typed nil) error = %v, want ErrNilObject", err)
	}
	if _, err := l.Record(new(bytes.Buffer), nil); !errors.Is(err, ErrNilPool) {
		t.Errorf("Record(nil pool) error = %v, want ErrNilPool", err)
	}
	var nilPool *recordingPool
	if _, err := l.Record(new(bytes.Buffer), nilPool); !errors.Is(err, ErrNilPool) {
		t.Errorf("Record(typed nil pool) error = %v, want ErrNilPool", err)
	}
	if l.Len() != 0 {
		t.Errorf("Len() = %d, want 0", l.Len())
	}
}

func TestKeysIncrease(t *testing.T) {
	l := New(nil)
	p := &recordingPool{name: "p"}

	var last Key
	for i := 0; i < 5; i++ {
		key, err := l.Record(i+1, p)
		if err != nil {
			t.Fatalf("Record() error = %v", err)
		}
		if key <= last {
			t.Fatalf("key %d not greater than %d", key, last)
		}
		last = key
	}
}

func TestDrainInsertionOrder(t *testing.T) {
	l := New(nil)
	p := &recordingPool{name: "p"}

	for _, v := range []string{"a", "b", "c"} {
		if _, err := l.Record(v, p); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	result := l.Drain()
	if result.Released != 3 || result.Failed != 0 || result.Err != nil {
		t.Errorf("Drain() = %+v", result)
	}
	if got := len(p.released); got != 3 {
		t.Fatalf("released %d objects, want 3", got)
	}
	for i, want := range []string{"a", "b", "c"} {
		if p.released[i] != want {
			t.Errorf("released[%d] = %v, want %s", i, p.released[i], want)
		}
	}
	if l.Len() != 0 {
		t.Errorf("Len() = %d, want 0", l.Len())
	}
}

func TestDrainIsIdempotent(t *testing.T) {
	l := New(nil)
	p := &recordingPool{name: "p"}
	_, _ = l.Record("a", p)

	l.Drain()
	result := l.Drain()

	if result.Released != 0 || result.Failed != 0 {
		t.Errorf("second Drain() = %+v, want no-op", result)
	}
	if len(p.released) != 1 {
		t.Errorf("released %d times, want 1", len(p.released))
	}
}

func TestDrainContinuesAfterFailure(t *testing.T) {
	var logs bytes.Buffer
	l := New(testLogger(&logs))

	good := &recordingPool{name: "good"}
	bad := &recordingPool{name: "bad", fail: errors.New("pool refused")}

	_, _ = l.Record("first", good)
	_, _ = l.Record("broken", bad)
	_, _ = l.Record("last", good)

	result := l.Drain()

	if result.Released != 2 || result.Failed != 1 {
		t.Errorf("Drain() = %+v, want 2 released, 1 failed", result)
	}
	if result.Err == nil || !strings.Contains(result.Err.Error(), "pool refused") {
		t.Errorf("Drain() Err = %v", result.Err)
	}
	if l.Len() != 0 {
		t.Errorf("Len() = %d, want 0", l.Len())
	}
	if !strings.Contains(logs.String(), "pool=bad") {
		t.Errorf("release failure not logged: %s", logs.String())
	}
}

func TestReturnEarly(t *testing.T) {
	l := New(nil)
	p := &recordingPool{name: "p"}

	k1, _ := l.Record("a", p)
	_, _ = l.Record("b", p)

	if err := l.Return(k1); err != nil {
		t.Fatalf("Return() error = %v", err)
	}
	if err := l.Return(k1); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("second Return() error = %v, want ErrUnknownKey", err)
	}
	if _, ok := l.Lookup(k1); ok {
		t.Error("Lookup() found a returned key")
	}

	l.Drain()
	if len(p.released) != 2 {
		t.Errorf("released %d objects, want 2", len(p.released))
	}
}

func TestWithRealPool(t *testing.T) {
	buffers := pool.New("buffers", func() (*bytes.Buffer, error) {
		return new(bytes.Buffer), nil
	}, pool.Config{})
	l := New(nil)

	const n = 5
	for i := 0; i < n; i++ {
		buf, err := buffers.Acquire()
		if err != nil {
			t.Fatalf("Acquire() error = %v", err)
		}
		if _, err := l.Record(buf, buffers); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	result := l.Drain()
	if result.Released != n {
		t.Errorf("Released = %d, want %d", result.Released, n)
	}

	stats := buffers.Stats()
	if stats.InUse != 0 || stats.Idle != n || stats.Released != n {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestReset(t *testing.T) {
	l := New(nil)
	p := &recordingPool{name: "p"}
	_, _ = l.Record("a", p)

	l.Reset()

	if l.Len() != 0 {
		t.Errorf("Len() = %d, want 0", l.Len())
	}
	key, _ := l.Record("b", p)
	if key != 1 {
		t.Errorf("key after Reset = %d, want 1", key)
	}
	if len(p.released) != 0 {
		t.Error("Reset released objects")
	}
}
