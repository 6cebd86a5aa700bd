package audit

import (
	"errors"
	"fmt"
)

// ErrRecorderClosed is returned when a record arrives after the recorder
// was closed.
var ErrRecorderClosed = errors.New("audit recorder closed")

// ErrQueueFull is returned when the recorder queue has no room for a record.
var ErrQueueFull = errors.New("audit queue full")

// StorageError represents an error from the storage backend.
type StorageError struct {
	Backend   string // Storage backend type ("memory", "sqlite", "mysql")
	Operation string // Operation that failed ("store", "list", "delete", etc.)
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}

// RecorderError represents a record that could not be queued.
type RecorderError struct {
	RequestID string
	Cause     error
}

// Error implements the error interface.
func (e *RecorderError) Error() string {
	return fmt.Sprintf("recorder error [request_id=%s]: %v", e.RequestID, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *RecorderError) Unwrap() error {
	return e.Cause
}

// NewRecorderError creates a new RecorderError.
func NewRecorderError(requestID string, cause error) *RecorderError {
	return &RecorderError{
		RequestID: requestID,
		Cause:     cause,
	}
}

// RetentionError represents a failed retention run.
type RetentionError struct {
	RetentionDays int
	MaxRecords    int64
	Cause         error
}

// Error implements the error interface.
func (e *RetentionError) Error() string {
	return fmt.Sprintf("retention error [retention_days=%d, max_records=%d]: %v", e.RetentionDays, e.MaxRecords, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *RetentionError) Unwrap() error {
	return e.Cause
}

// NewRetentionError creates a new RetentionError.
func NewRetentionError(retentionDays int, maxRecords int64, cause error) *RetentionError {
	return &RetentionError{
		RetentionDays: retentionDays,
		MaxRecords:    maxRecords,
		Cause:         cause,
	}
}
