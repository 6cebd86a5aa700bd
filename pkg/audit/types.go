package audit

import (
	"context"
	"time"

	"mercator-hq/lifecycle/pkg/controller"
	"mercator-hq/lifecycle/pkg/failure"
)

// CategorySuccess is the category of a request that finished without a
// failure.
const CategorySuccess = "SUCCESS"

// Record is the audit trail entry of one finished request.
type Record struct {
	// Identity
	ID        string `json:"id"`         // UUID v4
	RequestID string `json:"request_id"` // From the request context

	Kind string `json:"kind"` // "request" or "connection"

	// Outcome
	Category string `json:"category"` // SUCCESS or the failure category
	Code     int    `json:"code"`
	Severity string `json:"severity,omitempty"`
	Message  string `json:"message,omitempty"` // Client-visible message only

	// Resources
	Borrowed        int  `json:"borrowed"`
	ReleaseFailures int  `json:"release_failures"`
	Aborted         bool `json:"aborted"`

	Duration  time.Duration `json:"duration_ns"`
	StartedAt time.Time     `json:"started_at"`
}

// Success reports whether the request finished without a failure.
func (r *Record) Success() bool {
	return r.Category == CategorySuccess
}

// FromSummary builds a record from a teardown summary. The record ID is left
// for the caller to assign.
func FromSummary(s controller.Summary) *Record {
	r := &Record{
		RequestID:       s.RequestID,
		Kind:            s.Kind.String(),
		Category:        CategorySuccess,
		Code:            failure.CodeOK,
		Borrowed:        s.Borrowed,
		ReleaseFailures: s.ReleaseFailures,
		Aborted:         s.Aborted,
		Duration:        s.Duration,
		StartedAt:       s.StartedAt,
	}
	if s.Failure != nil {
		r.Category = s.Failure.Category.String()
		r.Code = s.Failure.Code
		r.Severity = s.Failure.Severity.String()
		r.Message = s.Failure.Message
	}
	return r
}

// Storage defines the interface for audit storage backends.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Store persists a record.
	Store(ctx context.Context, record *Record) error

	// List returns up to limit records, newest first. A limit of zero or
	// less returns every record.
	List(ctx context.Context, limit int) ([]*Record, error)

	// DeleteBefore deletes records that started before t and returns how
	// many were deleted.
	DeleteBefore(ctx context.Context, t time.Time) (int64, error)

	// DeleteOldest deletes the oldest records so that keep remain. A backend
	// may also keep records sharing the start time of the oldest kept one.
	DeleteOldest(ctx context.Context, keep int64) (int64, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int64, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend's resources.
	Close() error
}

