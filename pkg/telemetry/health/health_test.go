package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mercator-hq/lifecycle/pkg/pool"

	"github.com/goccy/go-json"
)

type stubStats []pool.Stats

func (s stubStats) Stats() []pool.Stats { return s }

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestCheckReadiness(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]CheckFunc
		want   string
	}{
		{
			name: "no checks",
			want: StatusReady,
		},
		{
			name: "all pass",
			checks: map[string]CheckFunc{
				"pools": PoolsCheck(stubStats{{Name: "controllers"}}),
				"audit": PingCheck(stubPinger{}),
			},
			want: StatusReady,
		},
		{
			name: "storage down",
			checks: map[string]CheckFunc{
				"pools": PoolsCheck(stubStats{{Name: "controllers"}}),
				"audit": PingCheck(stubPinger{err: errors.New("database is locked")}),
			},
			want: StatusDegraded,
		},
		{
			name: "pool closed",
			checks: map[string]CheckFunc{
				"pools": PoolsCheck(stubStats{{Name: "controllers", Closed: true}}),
			},
			want: StatusDegraded,
		},
		{
			name: "no pools",
			checks: map[string]CheckFunc{
				"pools": PoolsCheck(stubStats{}),
			},
			want: StatusDegraded,
		},
		{
			name: "panicking check",
			checks: map[string]CheckFunc{
				"bad": func(context.Context) error { panic("boom") },
			},
			want: StatusDegraded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(time.Second)
			for name, check := range tt.checks {
				c.RegisterCheck(name, check)
			}

			got := c.CheckReadiness(context.Background())
			if got.Status != tt.want {
				t.Errorf("Status = %q, want %q (checks %+v)", got.Status, tt.want, got.Checks)
			}
			if len(got.Checks) != len(tt.checks) {
				t.Errorf("Checks = %d, want %d", len(got.Checks), len(tt.checks))
			}
		})
	}
}

func TestCheckTimeout(t *testing.T) {
	c := New(20 * time.Millisecond)
	c.RegisterCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		return nil
	})

	got := c.CheckReadiness(context.Background())
	if got.Checks["slow"].Message != ErrCheckTimeout.Error() {
		t.Errorf("message = %q, want timeout", got.Checks["slow"].Message)
	}
}

func TestRegisterUnregister(t *testing.T) {
	c := New(0)
	if c.checkTimeout != DefaultCheckTimeout {
		t.Errorf("checkTimeout = %v, want default", c.checkTimeout)
	}

	c.RegisterCheck("b", PingCheck(stubPinger{}))
	c.RegisterCheck("a", PingCheck(stubPinger{}))
	if got := strings.Join(c.ListChecks(), ","); got != "a,b" {
		t.Errorf("ListChecks() = %q", got)
	}

	c.UnregisterCheck("a")
	if got := c.ListChecks(); len(got) != 1 || got[0] != "b" {
		t.Errorf("ListChecks() after unregister = %v", got)
	}
}

func TestHandlers(t *testing.T) {
	c := New(time.Second)
	c.RegisterCheck("audit_storage", PingCheck(stubPinger{err: errors.New("gone")}))

	mux := http.NewServeMux()
	c.Register(mux, "/health", "/ready", NewVersionInfo("1.2.3", "abc", "today"))

	tests := []struct {
		name     string
		method   string
		path     string
		wantCode int
		wantBody string
	}{
		{"liveness", http.MethodGet, "/health", http.StatusOK, `"status":"ok"`},
		{"readiness degraded", http.MethodGet, "/ready", http.StatusServiceUnavailable, `"gone"`},
		{"version", http.MethodGet, "/version", http.StatusOK, `"version":"1.2.3"`},
		{"head has no body", http.MethodHead, "/health", http.StatusOK, ""},
		{"post rejected", http.MethodPost, "/health", http.StatusMethodNotAllowed, "Method not allowed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			if rec.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantBody == "" && rec.Body.Len() != 0 {
				t.Errorf("body = %q, want empty", rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestReadinessBodyDecodes(t *testing.T) {
	c := New(time.Second)
	c.RegisterCheck("pools", PoolsCheck(stubStats{{Name: "controllers"}}))

	rec := httptest.NewRecorder()
	c.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	var status HealthStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !status.Ready() || status.Checks["pools"].Status != StatusOK {
		t.Errorf("status = %+v", status)
	}
}

func TestMemoryCheck(t *testing.T) {
	readErr := errors.New("no /proc")
	tests := []struct {
		name    string
		used    float64
		err     error
		wantErr bool
	}{
		{name: "below limit", used: 40},
		{name: "at limit", used: 90},
		{name: "above limit", used: 95.5, wantErr: true},
		{name: "unreadable", err: readErr, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := memoryCheck(90, func(context.Context) (float64, error) { return tt.used, tt.err })
			err := check(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("check() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.err != nil && !errors.Is(err, readErr) {
				t.Errorf("check() error = %v, want wrapped read error", err)
			}
		})
	}

	if err := MemoryCheck(100)(context.Background()); err != nil && !strings.Contains(err.Error(), "memory usage") {
		t.Errorf("MemoryCheck(100) error = %v", err)
	}
}
