package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/lifecycle/pkg/classify"
)

// Attribute keys. Lifecycle specific keys use the "lifecycle.*" namespace.
const (
	AttrRequestID   = "lifecycle.request_id"
	AttrRequestKind = "lifecycle.request_kind"
	AttrRoute       = "lifecycle.route"
	AttrBorrowed    = "lifecycle.borrowed"

	AttrFailureCategory = "lifecycle.failure.category"
	AttrFailureCode     = "lifecycle.failure.code"
	AttrFailureSeverity = "lifecycle.failure.severity"

	AttrErrorMessage = "error.message"

	AttrHTTPMethod     = "http.request.method"
	AttrHTTPStatusCode = "http.response.status_code"
	AttrURLPath        = "url.path"
)

// SetRequestAttributes sets request identity attributes on a span.
func SetRequestAttributes(span trace.Span, requestID, kind, route string) {
	span.SetAttributes(
		attribute.String(AttrRequestID, requestID),
		attribute.String(AttrRequestKind, kind),
	)
	if route != "" {
		span.SetAttributes(attribute.String(AttrRoute, route))
	}
}

// SetBorrowedAttribute records how many pooled objects the request borrowed.
func SetBorrowedAttribute(span trace.Span, borrowed int) {
	span.SetAttributes(attribute.Int(AttrBorrowed, borrowed))
}

// SetFailureAttributes records a classified failure and marks the span as
// failed. The client-visible message is used, never the detail, so redacted
// infrastructure errors stay redacted in traces.
func SetFailureAttributes(span trace.Span, cl classify.Classified) {
	span.SetAttributes(
		attribute.String(AttrFailureCategory, cl.Category.String()),
		attribute.Int(AttrFailureCode, cl.Code),
		attribute.String(AttrFailureSeverity, cl.Severity.String()),
	)
	span.SetStatus(codes.Error, cl.Message)
}

// AddEvent adds a named event to the span with optional attributes.
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// AttributeBuilder provides a fluent interface for building span attributes.
type AttributeBuilder struct {
	attrs []attribute.KeyValue
}

// NewAttributeBuilder creates a new attribute builder.
func NewAttributeBuilder() *AttributeBuilder {
	return &AttributeBuilder{
		attrs: make([]attribute.KeyValue, 0, 8),
	}
}

// WithRequest adds request identity attributes.
func (ab *AttributeBuilder) WithRequest(requestID, kind string) *AttributeBuilder {
	ab.attrs = append(ab.attrs,
		attribute.String(AttrRequestID, requestID),
		attribute.String(AttrRequestKind, kind),
	)
	return ab
}

// WithRoute adds the dispatched route.
func (ab *AttributeBuilder) WithRoute(route string) *AttributeBuilder {
	ab.attrs = append(ab.attrs, attribute.String(AttrRoute, route))
	return ab
}

// WithHTTP adds the HTTP method and path.
func (ab *AttributeBuilder) WithHTTP(method, path string) *AttributeBuilder {
	ab.attrs = append(ab.attrs,
		attribute.String(AttrHTTPMethod, method),
		attribute.String(AttrURLPath, path),
	)
	return ab
}

// Build returns the built attributes as a trace.SpanStartOption.
func (ab *AttributeBuilder) Build() trace.SpanStartOption {
	return trace.WithAttributes(ab.attrs...)
}

// Apply applies the attributes to a span.
func (ab *AttributeBuilder) Apply(span trace.Span) {
	span.SetAttributes(ab.attrs...)
}

// Attributes returns the raw attribute slice.
func (ab *AttributeBuilder) Attributes() []attribute.KeyValue {
	return ab.attrs
}
