package controller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mercator-hq/lifecycle/pkg/classify"
	"mercator-hq/lifecycle/pkg/ledger"
	"mercator-hq/lifecycle/pkg/pool"
)

// PoolName is the name of the controller pool in a pool.Manager.
const PoolName = "controllers"

// Home is the pool a controller returns to after teardown.
// *pool.Pool[*Controller] implements it.
type Home interface {
	Release(c *Controller) error
}

// ownerClearer is the part of a pool the controller touches at teardown.
type ownerClearer interface {
	ClearCurrentOwner(owner any)
}

// Summary describes a finished request.
type Summary struct {
	RequestID       string
	Kind            RequestKind
	StartedAt       time.Time
	Duration        time.Duration
	Borrowed        int
	Released        int
	ReleaseFailures int
	Aborted         bool

	// Failure is the classified failure, nil for a successful request.
	Failure *classify.Classified
}

// Controller serves one request at a time and is reused across requests.
type Controller struct {
	logger *slog.Logger
	ledger *ledger.Ledger

	mu        sync.Mutex
	home      Home
	rc        *Context
	kind      RequestKind
	state     State
	startTime time.Time
	gen       uint64
	values    map[string]any
	failure   *classify.Classified
	owners    map[ownerClearer]struct{}
	borrowed  int
	wrote     bool
	aborted   bool
	onFinish  func(Summary)

	// running is set while a dispatched handler holds the controller. An
	// abort then only cancels the handler; teardown waits for it to return.
	running bool
	cancel  context.CancelFunc
}

// New creates a controller in StateConstructed. Secondary failures and
// release failures are logged to logger.
func New(logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		logger: logger,
		ledger: ledger.New(logger),
		state:  StateConstructed,
	}
}

// NewPool creates the pool controllers are borrowed from.
func NewPool(logger *slog.Logger, cfg pool.Config) *pool.Pool[*Controller] {
	return pool.New(PoolName, func() (*Controller, error) {
		return New(logger), nil
	}, cfg)
}

// Begin activates the controller for the request rc. home is the pool the
// controller returns to at teardown.
func (c *Controller) Begin(home Home, rc *Context, kind RequestKind) error {
	return c.begin(home, rc, kind, nil, nil)
}

// begin activates the controller. A non-nil cancel marks it as held by a
// running handler until teardown.
func (c *Controller) begin(home Home, rc *Context, kind RequestKind, onFinish func(Summary), cancel context.CancelFunc) error {
	if rc == nil {
		return ErrNilContext
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.serving() || c.rc != nil {
		return ErrAlreadyActive
	}
	if n := c.ledger.Len(); n > 0 {
		return fmt.Errorf("%w: %d entries", ErrLedgerNotEmpty, n)
	}

	c.home = home
	c.rc = rc
	c.kind = kind
	c.state = StateActive
	c.startTime = time.Now()
	c.gen++
	c.onFinish = onFinish
	c.running = cancel != nil
	c.cancel = cancel
	return nil
}

// Borrow acquires an object from p and records it in the controller's ledger.
// The object goes back to p at teardown unless returned earlier with Return.
func Borrow[T comparable](c *Controller, p *pool.Pool[T]) (T, ledger.Key, error) {
	var zero T

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.serving() {
		return zero, 0, ErrNotActive
	}
	if c.aborted {
		return zero, 0, ErrAborted
	}

	obj, err := p.Acquire()
	if err != nil {
		return zero, 0, err
	}

	key, err := c.ledger.Record(obj, p)
	if err != nil {
		_ = p.Release(obj)
		return zero, 0, err
	}

	p.SetCurrentOwner(c)
	if c.owners == nil {
		c.owners = make(map[ownerClearer]struct{})
	}
	c.owners[p] = struct{}{}
	c.borrowed++
	return obj, key, nil
}

// Return gives the object recorded under key back to its pool before
// teardown.
func (c *Controller) Return(key ledger.Key) error {
	c.mu.Lock()
	serving := c.state.serving()
	c.mu.Unlock()

	if !serving {
		return ErrNotActive
	}
	return c.ledger.Return(key)
}

// HandleFailure classifies err, logs it through the request Log and writes
// one failure response through the request Output. Failures while logging or
// writing are recovered and logged to the worker logger; nothing propagates
// to the caller.
func (c *Controller) HandleFailure(err error) {
	c.handleFailure(err, 0)
}

// handleFailure is HandleFailure restricted to generation gen; zero matches
// any generation.
func (c *Controller) handleFailure(err error, gen uint64) {
	cl := classify.Classify(err)

	c.mu.Lock()
	rc := c.rc
	if gen != 0 && gen != c.gen {
		rc = nil
	}
	aborted := c.aborted
	if rc != nil && c.state.serving() {
		c.state = StateFailed
		c.failure = &cl
		c.wrote = true
	}
	c.mu.Unlock()

	if rc == nil {
		c.logger.Error("failure outside an active request",
			"error", cl.Detail,
			"code", cl.Code,
		)
		return
	}

	c.guard(cl, "log", func() error {
		log := rc.Log()
		switch cl.Severity {
		case classify.SeverityWarning:
			log.Warning(cl.LogLine())
		case classify.SeverityError:
			log.Error(cl.LogLine())
		}
		return nil
	})

	if aborted {
		return
	}
	c.guard(cl, "output", func() error {
		return rc.Output().OutputJSON(map[string]any{}, cl.Message, cl.Code, rc.Callback)
	})
}

// guard runs fn, logging both the original failure and any error or panic
// fn produces.
func (c *Controller) guard(cl classify.Classified, stage string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("previous exception", "error", cl.Detail, "code", cl.Code)
			c.logger.Error("handle exception", "stage", stage, "panic", fmt.Sprint(r))
		}
	}()

	if err := fn(); err != nil {
		c.logger.Error("previous exception", "error", cl.Detail, "code", cl.Code)
		c.logger.Error("handle exception", "stage", stage, "error", err)
	}
}

// OutputJSON writes data through the request Output.
func (c *Controller) OutputJSON(data any, message string, status int) error {
	rc, err := c.markWritten(0)
	if err != nil {
		return err
	}
	return rc.Output().OutputJSON(data, message, status, rc.Callback)
}

// OutputView renders view with data through the request Output.
func (c *Controller) OutputView(data map[string]any, view string) error {
	rc, err := c.markWritten(0)
	if err != nil {
		return err
	}
	return rc.Output().OutputView(data, view)
}

func (c *Controller) markWritten(gen uint64) (*Context, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.serving() || (gen != 0 && gen != c.gen) {
		return nil, ErrNotActive
	}
	if c.aborted {
		return nil, ErrAborted
	}
	c.wrote = true
	return c.rc, nil
}

// succeed marks generation gen as finished without failure. It returns the
// request context when no response has been written yet, nil otherwise.
func (c *Controller) succeed(gen uint64) *Context {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen || !c.state.serving() {
		return nil
	}
	if c.state == StateActive {
		c.state = StateSucceeded
	}
	if c.wrote || c.aborted {
		return nil
	}
	c.wrote = true
	return c.rc
}

// Set stores a request-scoped value. Values are discarded at teardown and
// Set does nothing outside an active request.
func (c *Controller) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.serving() {
		return
	}
	if c.values == nil {
		c.values = make(map[string]any)
	}
	c.values[key] = value
}

// Get returns a value stored with Set.
func (c *Controller) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.values[key]
	return v, ok
}

// State returns the lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Kind returns the kind of the current request.
func (c *Controller) Kind() RequestKind {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.kind
}

// StartTime returns when the current request was activated.
func (c *Controller) StartTime() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.startTime
}

// Context returns the bound request context, nil when not serving.
func (c *Controller) Context() *Context {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.rc
}

// Borrowed returns the number of objects still recorded in the ledger.
func (c *Controller) Borrowed() int {
	return c.ledger.Len()
}

// Aborted reports whether the current request was aborted.
func (c *Controller) Aborted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.aborted
}

// Abort ends the request from outside the handler, for example when the
// client connection is gone. A controller activated with Begin is torn down
// at once. While a dispatched handler still runs, its context is cancelled
// and teardown happens when it returns; until then Borrow and output calls
// fail with ErrAborted.
func (c *Controller) Abort(reason string) {
	c.abortGeneration(c.generation(), reason)
}

// abortGeneration aborts only if the controller still serves the request
// activated as generation gen.
func (c *Controller) abortGeneration(gen uint64, reason string) {
	c.mu.Lock()
	if c.rc == nil || c.gen != gen {
		c.mu.Unlock()
		return
	}
	first := !c.aborted
	c.aborted = true
	running := c.running
	cancel := c.cancel
	requestID := c.rc.RequestID
	c.mu.Unlock()

	if first {
		c.logger.Warn("request aborted", "request_id", requestID, "reason", reason)
	}
	if cancel != nil {
		cancel()
	}
	if running {
		return
	}
	c.teardown(gen)
}

func (c *Controller) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.gen
}

// Teardown ends the current request and returns the controller to its pool.
// It does nothing when no request is bound, so it is safe to call more than
// once and from several goroutines. A controller held by a dispatched
// handler is torn down by the dispatcher once the handler returns.
func (c *Controller) Teardown() {
	c.mu.Lock()
	running := c.running
	c.mu.Unlock()

	if running {
		return
	}
	c.teardown(0)
}

// teardown is Teardown restricted to generation gen; zero matches any
// generation.
func (c *Controller) teardown(gen uint64) {
	c.mu.Lock()
	if c.rc == nil || (gen != 0 && gen != c.gen) {
		c.mu.Unlock()
		return
	}

	rc := c.rc
	c.rc = nil
	c.state = StateTornDown

	summary := Summary{
		RequestID: rc.RequestID,
		Kind:      c.kind,
		StartedAt: c.startTime,
		Duration:  time.Since(c.startTime),
		Borrowed:  c.borrowed,
		Aborted:   c.aborted,
		Failure:   c.failure,
	}
	owners := c.owners
	onFinish := c.onFinish
	c.mu.Unlock()

	c.flushNotices(rc)

	result := c.ledger.Drain()
	summary.Released = result.Released
	summary.ReleaseFailures = result.Failed

	for p := range owners {
		p.ClearCurrentOwner(c)
	}

	c.mu.Lock()
	c.ledger.Reset()
	c.values = nil
	c.failure = nil
	c.owners = nil
	c.borrowed = 0
	c.wrote = false
	c.aborted = false
	c.onFinish = nil
	c.running = false
	c.cancel = nil
	c.kind = KindRequestResponse
	c.startTime = time.Time{}
	c.state = StatePooled
	home := c.home
	c.home = nil
	c.mu.Unlock()

	if home != nil {
		if err := home.Release(c); err != nil {
			c.logger.Error("failed to return controller to its pool",
				"request_id", summary.RequestID,
				"error", err,
			)
		}
	}

	if onFinish != nil {
		onFinish(summary)
	}
}

func (c *Controller) flushNotices(rc *Context) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("failed to flush notice log",
				"request_id", rc.RequestID,
				"panic", fmt.Sprint(r),
			)
		}
	}()

	if log := rc.Log(); log != nil {
		log.AppendNoticeLog()
	}
}
