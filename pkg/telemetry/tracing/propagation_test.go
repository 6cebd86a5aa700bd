package tracing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const traceparent = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"

func TestExtractInject(t *testing.T) {
	// Installs the W3C propagator globally.
	recordingTracer(t, SamplerAlways)

	headers := http.Header{}
	headers.Set("traceparent", traceparent)

	ctx := Extract(context.Background(), headers)
	sc := trace.SpanContextFromContext(ctx)
	if sc.TraceID().String() != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Fatalf("extracted trace id = %s", sc.TraceID())
	}

	out := http.Header{}
	Inject(ctx, out)
	if out.Get("traceparent") != traceparent {
		t.Errorf("injected traceparent = %q, want %q", out.Get("traceparent"), traceparent)
	}

	carrier := map[string]string{}
	InjectToMap(ctx, carrier)
	back := ExtractFromMap(context.Background(), carrier)
	if trace.SpanContextFromContext(back).TraceID() != sc.TraceID() {
		t.Error("map round trip lost the trace id")
	}
}

func TestHTTPMiddleware(t *testing.T) {
	tracer, rec := recordingTracer(t, SamplerAlways)

	var seen string
	handler := tracer.HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = TraceID(r.Context())
		w.WriteHeader(http.StatusBadGateway)
	}))

	req := httptest.NewRequest(http.MethodPost, "/echo", nil)
	req.Header.Set("traceparent", traceparent)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if seen != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("handler trace id = %q, want the incoming one", seen)
	}
	if w.Header().Get(TraceIDHeader) != seen {
		t.Errorf("%s = %q, want %q", TraceIDHeader, w.Header().Get(TraceIDHeader), seen)
	}

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	span := spans[0]
	if span.Name() != "HTTP POST" {
		t.Errorf("span name = %q", span.Name())
	}
	if span.SpanKind() != trace.SpanKindServer {
		t.Errorf("span kind = %v, want server", span.SpanKind())
	}
	if v, _ := attrValue(span.Attributes(), AttrHTTPStatusCode); v.AsInt64() != http.StatusBadGateway {
		t.Errorf("status code attribute = %d", v.AsInt64())
	}
	if span.Status().Code != codes.Error {
		t.Errorf("span status = %v, want Error for 5xx", span.Status().Code)
	}
}

func TestStatusWriterUnwrap(t *testing.T) {
	w := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
	if sw.Unwrap() != w {
		t.Error("Unwrap() did not return the wrapped writer")
	}
}
