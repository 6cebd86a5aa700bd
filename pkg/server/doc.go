// Package server exposes controller handlers over HTTP and websocket
// connections.
//
// Every handler is registered once under a path and serves both request
// kinds: an HTTP request to the path is a request-response exchange, and a
// websocket frame addressed to the path is a connection-oriented request.
// Both run through a controller.Dispatcher, so each request gets a pooled
// controller, a borrow ledger and a single response envelope.
//
// # Basic Usage
//
//	controllers := controller.NewPool(logger, cfg.Controllers)
//	dispatcher := controller.NewDispatcher(controllers, logger, recorder)
//
//	srv := server.NewServer(&cfg.Server, dispatcher,
//	    server.WithLogger(logger),
//	    server.WithTracer(tracer),
//	)
//	_ = srv.Handle("/echo", echoHandler)
//
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Websocket Frames
//
// Clients send text frames of the form
//
//	{"path": "/echo", "data": {...}, "requestId": "optional"}
//
// and receive one frame per request carrying the requestId and the usual
// envelope fields. Frames on one connection are served concurrently. When
// the connection closes, requests still running on it are aborted, and
// everything they borrowed goes back to its pool as each handler returns.
//
// # Middleware
//
// Requests pass through, outermost first: panic recovery, request ID
// assignment (X-Request-ID), access logging and, when tracing is enabled,
// the server span.
//
// # Graceful Shutdown
//
// Start returns when its context is cancelled, on SIGINT or SIGTERM, or when
// Shutdown is called. Shutdown waits for HTTP requests up to the configured
// timeout and closes open websocket connections.
package server
