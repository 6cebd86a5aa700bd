package output

import (
	"bytes"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// HTTPOutput writes one response to an http.ResponseWriter.
type HTTPOutput struct {
	w        http.ResponseWriter
	renderer ViewRenderer

	mu      sync.Mutex
	written bool
	now     func() time.Time
}

// NewHTTPOutput creates an output for w. renderer may be nil when the
// handler never renders views.
func NewHTTPOutput(w http.ResponseWriter, renderer ViewRenderer) *HTTPOutput {
	return &HTTPOutput{
		w:        w,
		renderer: renderer,
		now:      time.Now,
	}
}

// OutputJSON writes the envelope with HTTP status 200. The application
// status travels in the envelope. A non-empty callback produces a JSONP
// response.
func (o *HTTPOutput) OutputJSON(data any, message string, status int, callback string) error {
	if callback != "" && !ValidCallback(callback) {
		return fmt.Errorf("%w: %q", ErrInvalidCallback, callback)
	}

	body, err := NewEnvelope(data, message, status, o.now()).Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}

	if err := o.claim(); err != nil {
		return err
	}

	if callback != "" {
		var buf bytes.Buffer
		buf.Grow(len(callback) + len(body) + 3)
		buf.WriteString(callback)
		buf.WriteByte('(')
		buf.Write(body)
		buf.WriteString(");")

		o.w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		o.w.Header().Set("X-Content-Type-Options", "nosniff")
		o.w.WriteHeader(http.StatusOK)
		_, err = o.w.Write(buf.Bytes())
		return err
	}

	o.w.Header().Set("Content-Type", "application/json")
	o.w.WriteHeader(http.StatusOK)
	_, err = o.w.Write(body)
	return err
}

// OutputView renders view with data as HTML.
func (o *HTTPOutput) OutputView(data map[string]any, view string) error {
	if o.renderer == nil {
		return ErrNoRenderer
	}

	// Render fully before writing so a template error can still be answered.
	var buf bytes.Buffer
	if err := o.renderer.Render(&buf, view, data); err != nil {
		return err
	}

	if err := o.claim(); err != nil {
		return err
	}

	o.w.Header().Set("Content-Type", "text/html; charset=utf-8")
	o.w.WriteHeader(http.StatusOK)
	_, err := o.w.Write(buf.Bytes())
	return err
}

// Written reports whether a response was written.
func (o *HTTPOutput) Written() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.written
}

func (o *HTTPOutput) claim() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.written {
		return ErrAlreadyWritten
	}
	o.written = true
	return nil
}
