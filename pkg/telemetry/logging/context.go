package logging

import (
	"context"
)

// Context keys for common log fields.
type contextKey string

const (
	// RequestIDKey is the context key for request IDs.
	RequestIDKey contextKey = "request_id"

	// RequestKindKey is the context key for the request kind.
	RequestKindKey contextKey = "request_kind"

	// RemoteAddrKey is the context key for the client address.
	RemoteAddrKey contextKey = "remote_addr"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithRequestKind adds the request kind to the context.
func WithRequestKind(ctx context.Context, kind string) context.Context {
	return context.WithValue(ctx, RequestKindKey, kind)
}

// GetRequestKind retrieves the request kind from the context.
func GetRequestKind(ctx context.Context) string {
	if kind, ok := ctx.Value(RequestKindKey).(string); ok {
		return kind
	}
	return ""
}

// WithRemoteAddr adds the client address to the context.
func WithRemoteAddr(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, RemoteAddrKey, addr)
}

// GetRemoteAddr retrieves the client address from the context.
func GetRemoteAddr(ctx context.Context) string {
	if addr, ok := ctx.Value(RemoteAddrKey).(string); ok {
		return addr
	}
	return ""
}

// extractContextFields returns key/value pairs for the fields set on ctx.
func extractContextFields(ctx context.Context) []any {
	var fields []any

	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, "request_id", requestID)
	}
	if kind := GetRequestKind(ctx); kind != "" {
		fields = append(fields, "request_kind", kind)
	}
	if addr := GetRemoteAddr(ctx); addr != "" {
		fields = append(fields, "remote_addr", addr)
	}

	return fields
}
