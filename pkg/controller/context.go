package controller

import (
	"net/http"
)

// RequestKind distinguishes long-lived connections from one-shot requests.
type RequestKind int

const (
	// KindRequestResponse is a single request answered by a single response.
	KindRequestResponse RequestKind = iota

	// KindConnectionOriented is a message received on a persistent
	// connection.
	KindConnectionOriented
)

// String returns the kind name.
func (k RequestKind) String() string {
	if k == KindConnectionOriented {
		return "connection"
	}
	return "request"
}

// Log receives the log lines of one request.
type Log interface {
	Warning(text string)
	Error(text string)

	// AppendNoticeLog flushes buffered informational entries.
	AppendNoticeLog()
}

// Output writes the response of one request.
type Output interface {
	// OutputJSON writes data with a message and status code. A non-empty
	// callback asks for a JSONP response.
	OutputJSON(data any, message string, status int, callback string) error

	// OutputView renders the named view with data.
	OutputView(data map[string]any, view string) error
}

// Context is the per-request environment a Controller is bound to. It owns
// the request's Log and Output.
type Context struct {
	// RequestID identifies the request in logs and audit records.
	RequestID string

	// Request is the HTTP request, nil for connection messages.
	Request *http.Request

	// Payload is the raw message body for connection messages.
	Payload []byte

	// Callback is the JSONP callback name, empty for plain JSON.
	Callback string

	log    Log
	output Output
}

// NewContext creates a request context.
func NewContext(requestID string, log Log, output Output) *Context {
	return &Context{
		RequestID: requestID,
		log:       log,
		output:    output,
	}
}

// Log returns the request log.
func (rc *Context) Log() Log {
	return rc.log
}

// Output returns the response writer.
func (rc *Context) Output() Output {
	return rc.output
}
