package controller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/lifecycle/pkg/classify"
	"mercator-hq/lifecycle/pkg/failure"
	"mercator-hq/lifecycle/pkg/pool"
)

// Handler runs the business logic of one request. The controller belongs to
// the request only until the handler returns; it must not be used after that.
type Handler func(ctx context.Context, c *Controller) error

// Observer is notified after each request is torn down.
type Observer interface {
	RequestFinished(s Summary)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(s Summary)

// RequestFinished calls f(s).
func (f ObserverFunc) RequestFinished(s Summary) {
	f(s)
}

// Dispatcher runs handlers on pooled controllers.
type Dispatcher struct {
	controllers *pool.Pool[*Controller]
	logger      *slog.Logger
	observers   []Observer
}

// NewDispatcher creates a dispatcher that borrows controllers from
// controllers.
func NewDispatcher(controllers *pool.Pool[*Controller], logger *slog.Logger, observers ...Observer) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		controllers: controllers,
		logger:      logger,
		observers:   observers,
	}
}

// Dispatch serves rc with h on a pooled controller. The handler's failure,
// or a panic, is turned into a failure response; a handler that succeeds
// without writing gets an empty success response.
//
// The returned error is the handler's failure, for the caller's logs only.
func (d *Dispatcher) Dispatch(ctx context.Context, rc *Context, kind RequestKind, h Handler) error {
	_, err := d.Serve(ctx, rc, kind, h)
	return err
}

// Serve is Dispatch returning the Summary of the finished request.
//
// The controller stays with h until h returns and is torn down exactly once
// before Serve returns. For a connection-oriented request, cancelling ctx
// aborts the request: the handler's context is cancelled, further Borrow
// and output calls fail with ErrAborted, and no response is written.
func (d *Dispatcher) Serve(ctx context.Context, rc *Context, kind RequestKind, h Handler) (Summary, error) {
	if rc == nil {
		return Summary{}, ErrNilContext
	}

	c, err := d.controllers.Acquire()
	if err != nil {
		return d.reject(rc, kind, err), err
	}

	// A connection-oriented handler sees cancellation only through the abort,
	// which marks the request aborted first.
	parent := ctx
	if kind == KindConnectionOriented {
		parent = context.WithoutCancel(ctx)
	}
	hctx, cancel := context.WithCancel(parent)
	defer cancel()

	var summary Summary
	onFinish := func(s Summary) {
		summary = s
		d.notify(s)
	}
	if err := c.begin(d.controllers, rc, kind, onFinish, cancel); err != nil {
		d.logger.Error("failed to activate controller", "request_id", rc.RequestID, "error", err)
		_ = d.controllers.Release(c)
		return d.reject(rc, kind, err), err
	}

	gen := c.generation()
	herr := func() error {
		defer c.teardown(gen)
		return d.serve(ctx, hctx, c, gen, kind, h)
	}()
	return summary, herr
}

// serve runs h on c, which was activated as generation gen, and writes the
// response.
func (d *Dispatcher) serve(ctx, hctx context.Context, c *Controller, gen uint64, kind RequestKind, h Handler) error {
	if kind == KindConnectionOriented {
		stop := context.AfterFunc(ctx, func() {
			c.abortGeneration(gen, "connection closed")
		})
		defer stop()
	}

	herr := run(hctx, c, h)
	if herr != nil {
		c.handleFailure(herr, gen)
		return herr
	}

	if pending := c.succeed(gen); pending != nil {
		if err := pending.Output().OutputJSON(map[string]any{}, "", failure.CodeOK, pending.Callback); err != nil {
			d.logger.Error("failed to write response", "request_id", pending.RequestID, "error", err)
		}
	}
	return nil
}

// run calls h, turning a panic into an untagged failure.
func run(ctx context.Context, c *Controller, h Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = failure.Unknown(failure.CodeFatal, fmt.Sprintf("handler panic: %v", r))
		}
	}()
	return h(ctx, c)
}

// reject answers a request that never reached a controller.
func (d *Dispatcher) reject(rc *Context, kind RequestKind, err error) Summary {
	cl := classify.Classify(failure.Infra("controller unavailable", err))
	summary := Summary{RequestID: rc.RequestID, Kind: kind, StartedAt: time.Now(), Failure: &cl}
	if rc.Output() == nil {
		return summary
	}
	if werr := rc.Output().OutputJSON(map[string]any{}, cl.Message, cl.Code, rc.Callback); werr != nil {
		d.logger.Error("failed to write response", "request_id", rc.RequestID, "error", werr)
	}
	return summary
}

func (d *Dispatcher) notify(s Summary) {
	for _, o := range d.observers {
		o.RequestFinished(s)
	}
}
