// Package tracing provides OpenTelemetry distributed tracing for the
// lifecycle server.
//
// Spans are exported over OTLP gRPC. When tracing is disabled New returns a
// noop tracer, so callers never branch on whether tracing is on.
//
// # Trace Context Propagation
//
// Incoming W3C trace context (traceparent, tracestate) is extracted by
// Tracer.HTTPMiddleware, which wraps every HTTP request in a server span.
// Dispatched requests open a child span carrying the request ID, request
// kind, route, borrowed object count and, on failure, the classified
// category and code.
//
// # Sampling Strategies
//
//   - always: sample all traces
//   - never: sample no traces
//   - ratio: sample a fraction of traces by trace ID
//
// All strategies honour the parent's sampling decision.
//
// # Usage
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	ctx, span := tracer.Start(ctx, "dispatch /echo")
//	defer span.End()
package tracing
