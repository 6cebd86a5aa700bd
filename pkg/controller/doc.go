// Package controller runs one request at a time on a reusable Controller.
//
// Controllers are expensive to build, so a worker keeps them in a
// pool.Pool[*Controller] and hands one to each request. A request goes
// through these states:
//
//	StateConstructed → StateActive → StateFailed | StateSucceeded → StateTornDown → StatePooled
//
// Begin activates a controller for a request: it stamps the start time,
// binds the request Context and records the request kind. While active the
// handler borrows auxiliary objects with Borrow; every borrowed object is
// recorded in the controller's ledger. A failure returned by the handler goes
// through HandleFailure, which classifies it, writes one log line through the
// Context's Log and exactly one response through the Context's Output.
//
// Teardown ends the request. It flushes buffered notice logs, returns every
// borrowed object to its pool, clears pool owner associations, resets
// per-request state and hands the controller back to the pool it came from.
// Teardown is idempotent and may race with Abort from another goroutine;
// exactly one call does the work.
//
// # Dispatching
//
// Dispatcher wraps the whole lifecycle for a Handler:
//
//	controllers := controller.NewPool(logger, pool.Config{MaxIdle: 32})
//	d := controller.NewDispatcher(controllers, logger, observers...)
//
//	err := d.Dispatch(ctx, rc, controller.KindRequestResponse,
//	    func(ctx context.Context, c *controller.Controller) error {
//	        buf, _, err := controller.Borrow(c, buffers)
//	        if err != nil {
//	            return err
//	        }
//	        buf.WriteString("hello")
//	        return c.OutputJSON(buf.String(), "", failure.CodeOK)
//	    })
//
// Observers receive a Summary of each request after teardown; Serve also
// returns it to the caller.
//
// Cancelling ctx of a connection-oriented request aborts it. The handler's
// context is cancelled and its Borrow and output calls fail with ErrAborted,
// but the controller and its borrowed objects stay with the handler until it
// returns. Only then are they released, so an aborted request never shares
// an instance with the next one.
package controller
