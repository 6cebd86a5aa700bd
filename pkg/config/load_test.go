package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  listen_address: "0.0.0.0:9090"
  websocket:
    enabled: false
controllers:
  max_idle: 16
  max_active: 128
pools:
  buffers:
    max_idle: 32
audit:
  backend: memory
  enabled: false
telemetry:
  logging:
    level: debug
    redact_pii: false
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:9090" {
		t.Errorf("listen address = %q", cfg.Server.ListenAddress)
	}
	if cfg.Server.WebSocket.Enabled {
		t.Error("websocket enabled = true, want false")
	}
	if cfg.Server.WebSocket.Path != DefaultWebSocketPath {
		t.Errorf("websocket path = %q, want default", cfg.Server.WebSocket.Path)
	}
	if cfg.Controllers.MaxIdle != 16 || cfg.Controllers.MaxActive != 128 {
		t.Errorf("controllers = %+v", cfg.Controllers)
	}
	if cfg.Controllers.IdleTimeout != DefaultPoolIdleTimeout {
		t.Errorf("controllers idle timeout = %v, want default", cfg.Controllers.IdleTimeout)
	}
	if got := cfg.Pools["buffers"]; got.MaxIdle != 32 || got.IdleTimeout != DefaultPoolIdleTimeout {
		t.Errorf("buffers pool = %+v", got)
	}
	if cfg.Audit.Enabled {
		t.Error("audit enabled = true, want false")
	}
	if cfg.Telemetry.Logging.RedactPII {
		t.Error("redact_pii = true, want false")
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("metrics enabled = false, want default true")
	}
}

func TestLoadConfigErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		if err == nil || !errors.Is(err, os.ErrNotExist) {
			t.Errorf("LoadConfig() error = %v, want not exist", err)
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "server: [unterminated"))
		if err == nil || !strings.Contains(err.Error(), "failed to parse") {
			t.Errorf("LoadConfig() error = %v, want parse error", err)
		}
	})

	t.Run("invalid values", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "audit:\n  backend: redis\n"))
		var verr ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("LoadConfig() error = %v, want ValidationError", err)
		}
		if verr.Errors[0].Field != "audit.backend" {
			t.Errorf("field = %q, want audit.backend", verr.Errors[0].Field)
		}
	})
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
pools:
  buffers:
    max_idle: 4
`)

	t.Setenv("LIFECYCLE_SERVER_LISTEN_ADDRESS", "127.0.0.1:7000")
	t.Setenv("LIFECYCLE_CONTROLLERS_MAX_ACTIVE", "12")
	t.Setenv("LIFECYCLE_AUDIT_BACKEND", "memory")
	t.Setenv("LIFECYCLE_TELEMETRY_TRACING_SAMPLE_RATIO", "0.5")
	t.Setenv("LIFECYCLE_WATCH_ENABLED", "true")
	t.Setenv("LIFECYCLE_WATCH_DEBOUNCE", "1s")
	t.Setenv("LIFECYCLE_POOLS_BUFFERS_MAX_IDLE", "9")
	t.Setenv("LIFECYCLE_SERVER_READ_TIMEOUT", "not-a-duration")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() error = %v", err)
	}

	if cfg.Server.ListenAddress != "127.0.0.1:7000" {
		t.Errorf("listen address = %q", cfg.Server.ListenAddress)
	}
	if cfg.Controllers.MaxActive != 12 {
		t.Errorf("controllers max active = %d, want 12", cfg.Controllers.MaxActive)
	}
	if cfg.Audit.Backend != "memory" {
		t.Errorf("backend = %q, want memory", cfg.Audit.Backend)
	}
	if cfg.Telemetry.Tracing.SampleRatio != 0.5 {
		t.Errorf("sample ratio = %v, want 0.5", cfg.Telemetry.Tracing.SampleRatio)
	}
	if !cfg.Watch.Enabled || cfg.Watch.Debounce != time.Second {
		t.Errorf("watch = %+v", cfg.Watch)
	}
	if cfg.Pools["buffers"].MaxIdle != 9 {
		t.Errorf("buffers max idle = %d, want 9", cfg.Pools["buffers"].MaxIdle)
	}
	if cfg.Server.ReadTimeout != DefaultReadTimeout {
		t.Errorf("read timeout = %v, want default after bad override", cfg.Server.ReadTimeout)
	}
}

func TestLoadConfigWithEnvOverridesRevalidates(t *testing.T) {
	path := writeConfig(t, "")
	t.Setenv("LIFECYCLE_TELEMETRY_LOGGING_LEVEL", "chatty")

	_, err := LoadConfigWithEnvOverrides(path)
	if err == nil || !strings.Contains(err.Error(), "after environment overrides") {
		t.Errorf("error = %v, want validation failure after overrides", err)
	}
}
