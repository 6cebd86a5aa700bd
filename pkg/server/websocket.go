package server

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"mercator-hq/lifecycle/pkg/controller"
	"mercator-hq/lifecycle/pkg/failure"
	"mercator-hq/lifecycle/pkg/output"
	"mercator-hq/lifecycle/pkg/telemetry/logging"
)

// inboundFrame is a request received on a connection.
type inboundFrame struct {
	Path      string          `json:"path"`
	Data      json.RawMessage `json:"data"`
	RequestID string          `json:"requestId,omitempty"`
}

// websocketHandler upgrades the connection and dispatches every text frame
// to the handler registered for its path. Frames on one connection are
// served concurrently. When the connection ends every request still in
// flight on it is aborted.
func (s *Server) websocketHandler() http.Handler {
	cfg := s.config.WebSocket
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// The upgrader has already answered with an HTTP error.
			s.logger.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
			return
		}

		conn := output.NewConn(ws, cfg.WriteTimeout)
		s.trackConn(conn)
		defer s.untrackConn(conn)
		defer conn.Close()

		// The request context ends with this handler; requests started on
		// the connection must end with the connection instead.
		ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
		defer cancel()

		if cfg.MaxMessageBytes > 0 {
			ws.SetReadLimit(cfg.MaxMessageBytes)
		}
		extendDeadline := func() error {
			if cfg.ReadTimeout <= 0 {
				return nil
			}
			return ws.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
		}
		_ = extendDeadline()
		ws.SetPongHandler(func(string) error { return extendDeadline() })

		go s.keepAlive(ctx, conn, cfg.PingInterval, cancel)

		s.logger.DebugContext(ctx, "websocket connected", "remote_addr", r.RemoteAddr)

		var inflight sync.WaitGroup
		for {
			messageType, data, err := ws.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.logger.WarnContext(ctx, "websocket closed unexpectedly", "error", err)
				}
				break
			}
			_ = extendDeadline()

			if messageType != websocket.TextMessage {
				continue
			}
			s.serveFrame(ctx, conn, data, &inflight)
		}

		// Aborts every controller still serving a frame from this connection.
		cancel()
		inflight.Wait()

		s.logger.DebugContext(ctx, "websocket disconnected", "remote_addr", r.RemoteAddr)
	})
}

// serveFrame decodes one frame and dispatches it in its own goroutine.
func (s *Server) serveFrame(ctx context.Context, conn *output.Conn, data []byte, inflight *sync.WaitGroup) {
	var frame inboundFrame
	decodeErr := json.Unmarshal(data, &frame)

	requestID := frame.RequestID
	if requestID == "" || len(requestID) > maxRequestIDLength {
		requestID = uuid.NewString()
	}
	out := output.NewWebSocketOutput(conn, requestID)

	if decodeErr != nil {
		_ = out.OutputJSON(map[string]any{}, "invalid frame", failure.CodeParameterValidationFailed, "")
		return
	}
	h, ok := s.route(frame.Path)
	if !ok {
		_ = out.OutputJSON(map[string]any{}, "unknown path: "+frame.Path, failure.CodeParameterValidationFailed, "")
		return
	}

	rc := controller.NewContext(requestID, logging.NewRequestLog(s.logger, requestID), out)
	rc.Payload = frame.Data

	inflight.Add(1)
	go func() {
		defer inflight.Done()
		rctx := logging.WithRequestID(ctx, requestID)
		_ = s.dispatch(rctx, rc, controller.KindConnectionOriented, frame.Path, h)
	}()
}

// keepAlive pings the peer every interval until ctx is done. A failed ping
// ends the connection.
func (s *Server) keepAlive(ctx context.Context, conn *output.Conn, interval time.Duration, cancel context.CancelFunc) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.Ping(); err != nil {
				cancel()
				_ = conn.Close()
				return
			}
		}
	}
}

// originChecker accepts origins listed in allowed. An empty list accepts
// same-host origins only and "*" accepts any. Requests without an Origin
// header come from non-browser clients and are accepted.
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if len(allowed) == 0 {
			host := strings.TrimPrefix(strings.TrimPrefix(origin, "https://"), "http://")
			return strings.EqualFold(host, r.Host)
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}
