package controller

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"mercator-hq/lifecycle/pkg/classify"
	"mercator-hq/lifecycle/pkg/failure"
	"mercator-hq/lifecycle/pkg/pool"
)

// fakeLog records request log lines.
type fakeLog struct {
	mu        sync.Mutex
	warnings  []string
	errors    []string
	flushes   int
	panicking bool
}

func (l *fakeLog) Warning(text string) {
	if l.panicking {
		panic("log sink is down")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnings = append(l.warnings, text)
}

func (l *fakeLog) Error(text string) {
	if l.panicking {
		panic("log sink is down")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, text)
}

func (l *fakeLog) AppendNoticeLog() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.flushes++
}

// response is one OutputJSON call.
type response struct {
	data     any
	message  string
	status   int
	callback string
}

// fakeOutput records responses.
type fakeOutput struct {
	mu        sync.Mutex
	responses []response
	views     []string
	err       error
}

func (o *fakeOutput) OutputJSON(data any, message string, status int, callback string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.responses = append(o.responses, response{data, message, status, callback})
	return o.err
}

func (o *fakeOutput) OutputView(data map[string]any, view string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.views = append(o.views, view)
	return o.err
}

type fixture struct {
	controllers *pool.Pool[*Controller]
	buffers     *pool.Pool[*bytes.Buffer]
	log         *fakeLog
	out         *fakeOutput
	rc          *Context
	workerLog   *bytes.Buffer
	logger      *slog.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	var workerLog bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&workerLog, nil))
	f := &fixture{
		controllers: NewPool(logger, pool.Config{}),
		buffers: pool.New("buffers", func() (*bytes.Buffer, error) {
			return new(bytes.Buffer), nil
		}, pool.Config{}),
		log:       &fakeLog{},
		out:       &fakeOutput{},
		workerLog: &workerLog,
		logger:    logger,
	}
	f.rc = NewContext("req-1", f.log, f.out)
	return f
}

// begin acquires and activates a controller.
func (f *fixture) begin(t *testing.T) *Controller {
	t.Helper()

	c, err := f.controllers.Acquire()
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if err := c.Begin(f.controllers, f.rc, KindRequestResponse); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	return c
}

func TestBeginStampsRequest(t *testing.T) {
	f := newFixture(t)
	c := f.begin(t)

	if c.State() != StateActive {
		t.Errorf("State() = %v, want active", c.State())
	}
	if c.StartTime().IsZero() {
		t.Error("StartTime() not stamped")
	}
	if c.Context() != f.rc {
		t.Error("Context() not bound")
	}
	if err := c.Begin(f.controllers, f.rc, KindRequestResponse); !errors.Is(err, ErrAlreadyActive) {
		t.Errorf("second Begin() error = %v, want ErrAlreadyActive", err)
	}
	if err := New(nil).Begin(nil, nil, KindRequestResponse); !errors.Is(err, ErrNilContext) {
		t.Errorf("Begin(nil) error = %v, want ErrNilContext", err)
	}
}

func TestTeardownReturnsEveryBorrowedObject(t *testing.T) {
	f := newFixture(t)
	c := f.begin(t)

	const n = 4
	for i := 0; i < n; i++ {
		if _, _, err := Borrow(c, f.buffers); err != nil {
			t.Fatalf("Borrow() error = %v", err)
		}
	}
	if c.Borrowed() != n {
		t.Fatalf("Borrowed() = %d, want %d", c.Borrowed(), n)
	}

	c.Teardown()

	if c.Borrowed() != 0 {
		t.Errorf("Borrowed() after teardown = %d, want 0", c.Borrowed())
	}
	stats := f.buffers.Stats()
	if stats.Released != n || stats.ReleaseErrors != 0 || stats.InUse != 0 {
		t.Errorf("buffer stats = %+v, want %d releases and none in use", stats, n)
	}
	if f.buffers.CurrentOwner() != nil {
		t.Error("pool owner not cleared")
	}
	if f.log.flushes != 1 {
		t.Errorf("notice flushes = %d, want 1", f.log.flushes)
	}
}

func TestTeardownReturnsControllerToPool(t *testing.T) {
	f := newFixture(t)
	c := f.begin(t)
	c.Set("user", "alice")

	c.Teardown()

	if c.State() != StatePooled {
		t.Errorf("State() = %v, want pooled", c.State())
	}
	if c.Context() != nil {
		t.Error("context still bound after teardown")
	}
	if _, ok := c.Get("user"); ok {
		t.Error("scratch value survived teardown")
	}
	if f.controllers.InUse(c) {
		t.Error("controller still marked in use")
	}
	if got := f.controllers.Stats().Idle; got != 1 {
		t.Errorf("idle controllers = %d, want 1", got)
	}

	again, _ := f.controllers.Acquire()
	if again != c {
		t.Error("expected the same controller to be reused")
	}
}

func TestDoubleTeardownIsSafe(t *testing.T) {
	f := newFixture(t)
	c := f.begin(t)
	_, _, _ = Borrow(c, f.buffers)

	c.Teardown()
	c.Teardown()

	stats := f.controllers.Stats()
	if stats.Released != 1 || stats.ReleaseErrors != 0 {
		t.Errorf("controller pool stats = %+v, want exactly one release", stats)
	}
	if got := f.buffers.Stats().Released; got != 1 {
		t.Errorf("buffer releases = %d, want 1", got)
	}
	if f.log.flushes != 1 {
		t.Errorf("notice flushes = %d, want 1", f.log.flushes)
	}
}

func TestTeardownWithoutContextIsNoop(t *testing.T) {
	c := New(nil)
	c.Teardown()

	if c.State() != StateConstructed {
		t.Errorf("State() = %v, want constructed", c.State())
	}
}

func TestConcurrentTeardownAndAbort(t *testing.T) {
	for i := 0; i < 50; i++ {
		f := newFixture(t)
		c := f.begin(t)
		for j := 0; j < 3; j++ {
			_, _, _ = Borrow(c, f.buffers)
		}

		var wg sync.WaitGroup
		for j := 0; j < 4; j++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				c.Teardown()
			}()
			go func() {
				defer wg.Done()
				c.Abort("client went away")
			}()
		}
		wg.Wait()

		if got := f.controllers.Stats(); got.Released != 1 || got.ReleaseErrors != 0 {
			t.Fatalf("controller pool stats = %+v, want exactly one release", got)
		}
		if got := f.buffers.Stats(); got.Released != 3 || got.ReleaseErrors != 0 {
			t.Fatalf("buffer stats = %+v, want three releases", got)
		}
	}
}

func TestBorrowAfterTeardownRejected(t *testing.T) {
	f := newFixture(t)
	c := f.begin(t)
	c.Teardown()

	if _, _, err := Borrow(c, f.buffers); !errors.Is(err, ErrNotActive) {
		t.Errorf("Borrow() error = %v, want ErrNotActive", err)
	}
	if got := f.buffers.Stats().Acquired; got != 0 {
		t.Errorf("buffers acquired = %d, want 0", got)
	}
	if err := c.OutputJSON(nil, "", failure.CodeOK); !errors.Is(err, ErrNotActive) {
		t.Errorf("OutputJSON() error = %v, want ErrNotActive", err)
	}
}

func TestReturnEarly(t *testing.T) {
	f := newFixture(t)
	c := f.begin(t)

	_, key, err := Borrow(c, f.buffers)
	if err != nil {
		t.Fatalf("Borrow() error = %v", err)
	}
	if err := c.Return(key); err != nil {
		t.Fatalf("Return() error = %v", err)
	}

	c.Teardown()

	stats := f.buffers.Stats()
	if stats.Released != 1 || stats.ReleaseErrors != 0 {
		t.Errorf("buffer stats = %+v, want one clean release", stats)
	}
}

func TestHandleFailureValidation(t *testing.T) {
	f := newFixture(t)
	c := f.begin(t)

	c.HandleFailure(failure.Validation("field x required"))

	if len(f.log.warnings) != 1 || len(f.log.errors) != 0 {
		t.Fatalf("warnings = %v, errors = %v", f.log.warnings, f.log.errors)
	}
	if want := "field x required with code 4001"; f.log.warnings[0] != want {
		t.Errorf("warning = %q, want %q", f.log.warnings[0], want)
	}
	if len(f.out.responses) != 1 {
		t.Fatalf("responses = %d, want 1", len(f.out.responses))
	}
	r := f.out.responses[0]
	if r.message != "field x required" || r.status != failure.CodeParameterValidationFailed {
		t.Errorf("response = %+v", r)
	}
	if data, ok := r.data.(map[string]any); !ok || len(data) != 0 {
		t.Errorf("response data = %#v, want empty object", r.data)
	}
	if c.State() != StateFailed {
		t.Errorf("State() = %v, want failed", c.State())
	}
}

func TestHandleFailureInfraIsRedacted(t *testing.T) {
	f := newFixture(t)
	c := f.begin(t)

	c.HandleFailure(failure.Infra("db write", errors.New("dial tcp 10.0.0.5:3306: connection refused")))

	r := f.out.responses[0]
	if r.message != classify.NetworkErrorMessage || r.status != failure.CodeFatal {
		t.Errorf("response = %+v", r)
	}
	if len(f.log.errors) != 1 || !strings.Contains(f.log.errors[0], "10.0.0.5") {
		t.Errorf("log should carry the full detail, got %v", f.log.errors)
	}
}

func TestHandleFailureUsesCallback(t *testing.T) {
	f := newFixture(t)
	f.rc.Callback = "cb"
	c := f.begin(t)

	c.HandleFailure(failure.Domain(4002, "quota reached"))

	if got := f.out.responses[0].callback; got != "cb" {
		t.Errorf("callback = %q, want cb", got)
	}
}

func TestHandleFailureSurvivesFailingLog(t *testing.T) {
	f := newFixture(t)
	f.log.panicking = true
	c := f.begin(t)

	c.HandleFailure(failure.Domain(4002, "quota reached"))

	if len(f.out.responses) != 1 {
		t.Errorf("responses = %d, want 1", len(f.out.responses))
	}
	logs := f.workerLog.String()
	if !strings.Contains(logs, "previous exception") || !strings.Contains(logs, "handle exception") {
		t.Errorf("worker log missing secondary failure: %s", logs)
	}
	if !strings.Contains(logs, "log sink is down") {
		t.Errorf("worker log missing panic value: %s", logs)
	}
}

func TestHandleFailureSurvivesOutputError(t *testing.T) {
	f := newFixture(t)
	f.out.err = errors.New("broken pipe")
	c := f.begin(t)

	c.HandleFailure(failure.Validation("bad"))

	if !strings.Contains(f.workerLog.String(), "broken pipe") {
		t.Errorf("output error not logged: %s", f.workerLog.String())
	}
}

func TestHandleFailureAfterTeardown(t *testing.T) {
	f := newFixture(t)
	c := f.begin(t)
	c.Teardown()

	c.HandleFailure(errors.New("late"))

	if len(f.out.responses) != 0 {
		t.Error("response written after teardown")
	}
	if !strings.Contains(f.workerLog.String(), "late") {
		t.Error("late failure not logged to worker log")
	}
}

func TestOutputView(t *testing.T) {
	f := newFixture(t)
	c := f.begin(t)

	if err := c.OutputView(map[string]any{"n": 1}, "index"); err != nil {
		t.Fatalf("OutputView() error = %v", err)
	}
	if len(f.out.views) != 1 || f.out.views[0] != "index" {
		t.Errorf("views = %v", f.out.views)
	}
}

func TestSetGet(t *testing.T) {
	f := newFixture(t)
	c := f.begin(t)

	c.Set("k", 42)
	v, ok := c.Get("k")
	if !ok || v != 42 {
		t.Errorf("Get() = %v, %v", v, ok)
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		StateConstructed: "constructed",
		StateActive:      "active",
		StateFailed:      "failed",
		StateSucceeded:   "succeeded",
		StateTornDown:    "torn_down",
		StatePooled:      "pooled",
		State(99):        "state(99)",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(s), got, want)
		}
	}
}
