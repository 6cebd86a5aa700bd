package output

import (
	"errors"
	"html/template"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

var fixedNow = time.Unix(1700000000, 500000000)

func TestHTTPOutputJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	o := NewHTTPOutput(rec, nil)
	o.now = func() time.Time { return fixedNow }

	if err := o.OutputJSON(map[string]any{"id": 7}, "ok", 200, ""); err != nil {
		t.Fatalf("OutputJSON() error = %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var env Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Status != 200 || env.Message != "ok" || env.ServerTime != 1700000000.5 {
		t.Errorf("envelope = %+v", env)
	}
	if data, ok := env.Data.(map[string]any); !ok || data["id"] != float64(7) {
		t.Errorf("data = %#v", env.Data)
	}
}

func TestHTTPOutputEmptyObject(t *testing.T) {
	rec := httptest.NewRecorder()
	o := NewHTTPOutput(rec, nil)

	if err := o.OutputJSON(map[string]any{}, "field x required", 4001, ""); err != nil {
		t.Fatalf("OutputJSON() error = %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"data":{}`) {
		t.Errorf("body = %s, want empty data object", rec.Body.String())
	}
}

func TestHTTPOutputJSONP(t *testing.T) {
	rec := httptest.NewRecorder()
	o := NewHTTPOutput(rec, nil)

	if err := o.OutputJSON("x", "", 200, "handle"); err != nil {
		t.Fatalf("OutputJSON() error = %v", err)
	}

	body := rec.Body.String()
	if !strings.HasPrefix(body, "handle({") || !strings.HasSuffix(body, "});") {
		t.Errorf("body = %s", body)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/javascript") {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestHTTPOutputRejectsBadCallback(t *testing.T) {
	rec := httptest.NewRecorder()
	o := NewHTTPOutput(rec, nil)

	err := o.OutputJSON("x", "", 200, "alert(1)//")
	if !errors.Is(err, ErrInvalidCallback) {
		t.Fatalf("OutputJSON() error = %v, want ErrInvalidCallback", err)
	}
	if o.Written() {
		t.Error("rejected callback should not consume the response")
	}
}

func TestHTTPOutputWritesOnce(t *testing.T) {
	rec := httptest.NewRecorder()
	o := NewHTTPOutput(rec, nil)

	_ = o.OutputJSON("first", "", 200, "")
	if err := o.OutputJSON("second", "", 200, ""); !errors.Is(err, ErrAlreadyWritten) {
		t.Errorf("second OutputJSON() error = %v, want ErrAlreadyWritten", err)
	}
	if strings.Contains(rec.Body.String(), "second") {
		t.Error("second response leaked into the body")
	}
}

func TestHTTPOutputView(t *testing.T) {
	tmpl := template.Must(template.New("hello").Parse(`<p>Hello {{.name}}</p>`))
	rec := httptest.NewRecorder()
	o := NewHTTPOutput(rec, NewTemplateRenderer(tmpl))

	if err := o.OutputView(map[string]any{"name": "<b>"}, "hello"); err != nil {
		t.Fatalf("OutputView() error = %v", err)
	}
	if got := rec.Body.String(); got != "<p>Hello &lt;b&gt;</p>" {
		t.Errorf("body = %q", got)
	}
}

func TestHTTPOutputViewErrors(t *testing.T) {
	if err := NewHTTPOutput(httptest.NewRecorder(), nil).OutputView(nil, "x"); !errors.Is(err, ErrNoRenderer) {
		t.Errorf("OutputView() error = %v, want ErrNoRenderer", err)
	}

	tmpl := template.Must(template.New("hello").Parse(`hi`))
	o := NewHTTPOutput(httptest.NewRecorder(), NewTemplateRenderer(tmpl))
	if err := o.OutputView(nil, "missing"); !errors.Is(err, ErrUnknownView) {
		t.Errorf("OutputView() error = %v, want ErrUnknownView", err)
	}
	if o.Written() {
		t.Error("failed render should not consume the response")
	}
}

// frames records written frames.
type frames struct {
	mu  sync.Mutex
	got [][]byte
}

func (f *frames) WriteText(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, payload)
	return nil
}

func TestWebSocketOutput(t *testing.T) {
	w := &frames{}
	o := NewWebSocketOutput(w, "req-9")

	if err := o.OutputJSON([]int{1, 2}, "", 200, "ignored"); err != nil {
		t.Fatalf("OutputJSON() error = %v", err)
	}
	if err := o.OutputJSON(nil, "", 200, ""); !errors.Is(err, ErrAlreadyWritten) {
		t.Errorf("second OutputJSON() error = %v", err)
	}
	if err := o.OutputView(nil, "x"); !errors.Is(err, ErrViewUnsupported) {
		t.Errorf("OutputView() error = %v", err)
	}

	var frame Frame
	if err := json.Unmarshal(w.got[0], &frame); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if frame.RequestID != "req-9" || frame.Status != 200 {
		t.Errorf("frame = %+v", frame)
	}
}

func TestConnWritesFrames(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn := NewConn(ws, 0)
		defer conn.Close()

		out := NewWebSocketOutput(conn, "req-1")
		_ = out.OutputJSON("pong", "", 200, "")
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer client.Close()

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, payload, err := client.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	if kind != websocket.TextMessage {
		t.Errorf("message type = %d, want text", kind)
	}

	var frame Frame
	if err := json.Unmarshal(payload, &frame); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if frame.RequestID != "req-1" || frame.Data != "pong" {
		t.Errorf("frame = %+v", frame)
	}
}

func TestConnClosedRejectsWrites(t *testing.T) {
	upgrader := websocket.Upgrader{}
	done := make(chan error, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			done <- err
			return
		}
		conn := NewConn(ws, time.Second)
		_ = conn.Close()
		done <- conn.WriteText([]byte("late"))
	}))
	defer srv.Close()

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer client.Close()

	select {
	case err := <-done:
		if !errors.Is(err, websocket.ErrCloseSent) {
			t.Errorf("WriteText() after Close error = %v, want ErrCloseSent", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server handler did not finish")
	}
}

func TestValidCallback(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"cb", true},
		{"jQuery123_456", true},
		{"ns.handler", true},
		{"$cb", true},
		{"1cb", false},
		{"cb()", false},
		{"", false},
		{"a b", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidCallback(tt.name); got != tt.want {
				t.Errorf("ValidCallback(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}
