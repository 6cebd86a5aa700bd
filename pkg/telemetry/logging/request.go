package logging

import (
	"log/slog"
	"sync"
	"time"
)

// RequestLog is the log sink of one request. Warnings and errors are written
// immediately; notices are buffered and written together by AppendNoticeLog.
type RequestLog struct {
	logger    *slog.Logger
	requestID string
	start     time.Time

	mu      sync.Mutex
	notices []any

	now func() time.Time
}

// NewRequestLog creates the log of request requestID.
func NewRequestLog(logger *slog.Logger, requestID string) *RequestLog {
	if logger == nil {
		logger = slog.Default()
	}
	return &RequestLog{
		logger:    logger.With("request_id", requestID),
		requestID: requestID,
		start:     time.Now(),
		now:       time.Now,
	}
}

// Notice buffers an informational field.
func (r *RequestLog) Notice(key string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.notices = append(r.notices, key, value)
}

// Warning writes text at warning level.
func (r *RequestLog) Warning(text string) {
	r.logger.Warn(text)
}

// Error writes text at error level.
func (r *RequestLog) Error(text string) {
	r.logger.Error(text)
}

// AppendNoticeLog writes buffered notices as one line and clears the buffer.
// It writes nothing when no notice is buffered.
func (r *RequestLog) AppendNoticeLog() {
	r.mu.Lock()
	notices := r.notices
	r.notices = nil
	r.mu.Unlock()

	if len(notices) == 0 {
		return
	}

	elapsed := r.now().Sub(r.start)
	args := append([]any{"elapsed_ms", elapsed.Milliseconds()}, notices...)
	r.logger.Info("request notices", args...)
}

// Pending returns the number of buffered notices.
func (r *RequestLog) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.notices) / 2
}
