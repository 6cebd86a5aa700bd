package output

import (
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

// DefaultWriteTimeout bounds a single frame write.
const DefaultWriteTimeout = 10 * time.Second

// FrameWriter sends one text frame.
type FrameWriter interface {
	WriteText(payload []byte) error
}

// Conn serialises writes to a websocket connection shared by every request
// received on it.
type Conn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration

	mu     sync.Mutex
	closed bool
}

// NewConn wraps ws. A zero writeTimeout uses DefaultWriteTimeout.
func NewConn(ws *websocket.Conn, writeTimeout time.Duration) *Conn {
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	return &Conn{ws: ws, writeTimeout: writeTimeout}
}

// WriteText writes payload as a text frame.
func (c *Conn) WriteText(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return websocket.ErrCloseSent
	}
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

// Ping writes a ping control frame.
func (c *Conn) Ping() error {
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeTimeout))
}

// Close sends a close frame and closes the connection.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return c.ws.Close()
}

// Frame is the envelope of a response sent on a connection.
type Frame struct {
	RequestID string `json:"requestId"`
	Envelope
}

// WebSocketOutput writes one response frame for a request received on a
// connection.
type WebSocketOutput struct {
	conn      FrameWriter
	requestID string

	mu      sync.Mutex
	written bool
	now     func() time.Time
}

// NewWebSocketOutput creates an output for the request requestID.
func NewWebSocketOutput(conn FrameWriter, requestID string) *WebSocketOutput {
	return &WebSocketOutput{
		conn:      conn,
		requestID: requestID,
		now:       time.Now,
	}
}

// OutputJSON writes the envelope as a frame. Callbacks have no meaning on a
// connection and are ignored.
func (o *WebSocketOutput) OutputJSON(data any, message string, status int, _ string) error {
	payload, err := json.Marshal(Frame{
		RequestID: o.requestID,
		Envelope:  NewEnvelope(data, message, status, o.now()),
	})
	if err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}

	o.mu.Lock()
	if o.written {
		o.mu.Unlock()
		return ErrAlreadyWritten
	}
	o.written = true
	o.mu.Unlock()

	return o.conn.WriteText(payload)
}

// OutputView is not supported on connections.
func (o *WebSocketOutput) OutputView(map[string]any, string) error {
	return ErrViewUnsupported
}
