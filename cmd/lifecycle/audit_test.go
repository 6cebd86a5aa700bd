package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mercator-hq/lifecycle/pkg/audit"
	"mercator-hq/lifecycle/pkg/audit/retention"
	"mercator-hq/lifecycle/pkg/audit/storage"
	"mercator-hq/lifecycle/pkg/cli"
)

func seededStore(t *testing.T, n int) audit.Storage {
	t.Helper()

	cfg := testConfig().Audit
	cfg.Backend = storage.BackendSQLite
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "audit.db")

	store, err := storage.Open(cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		r := &audit.Record{
			ID:        "rec-" + string(rune('a'+i)),
			RequestID: "req-" + string(rune('a'+i)),
			Kind:      "request",
			Category:  audit.CategorySuccess,
			Code:      200,
			Borrowed:  i,
			Duration:  time.Millisecond,
			StartedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := store.Store(context.Background(), r); err != nil {
			t.Fatalf("Store() error = %v", err)
		}
	}
	return store
}

func TestListAudit(t *testing.T) {
	store := seededStore(t, 3)

	tests := []struct {
		name   string
		format cli.OutputFormat
		limit  int
		check  func(t *testing.T, out string)
	}{
		{
			name:   "text table",
			format: cli.FormatText,
			limit:  2,
			check: func(t *testing.T, out string) {
				lines := strings.Split(strings.TrimSpace(out), "\n")
				if len(lines) != 3 || !strings.HasPrefix(lines[0], "STARTED_AT") {
					t.Errorf("output = %q, want header and 2 rows", out)
				}
				if !strings.Contains(lines[1], "req-c") {
					t.Errorf("first row = %q, want newest record", lines[1])
				}
			},
		},
		{
			name:   "json",
			format: cli.FormatJSON,
			limit:  0,
			check: func(t *testing.T, out string) {
				if strings.Count(out, `"request_id"`) != 3 {
					t.Errorf("output = %q, want 3 records", out)
				}
			},
		},
		{
			name:   "csv",
			format: cli.FormatCSV,
			limit:  1,
			check: func(t *testing.T, out string) {
				lines := strings.Split(strings.TrimSpace(out), "\n")
				if len(lines) != 2 || !strings.Contains(lines[1], "req-c") {
					t.Errorf("output = %q", out)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := listAudit(context.Background(), store, &buf, tt.format, tt.limit); err != nil {
				t.Fatalf("listAudit() error = %v", err)
			}
			tt.check(t, buf.String())
		})
	}
}

func TestListAuditEmpty(t *testing.T) {
	store := seededStore(t, 0)

	var buf bytes.Buffer
	if err := listAudit(context.Background(), store, &buf, cli.FormatText, 10); err != nil {
		t.Fatalf("listAudit() error = %v", err)
	}
	if !strings.Contains(buf.String(), "No audit records found") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestPruneAudit(t *testing.T) {
	store := seededStore(t, 5)

	var buf bytes.Buffer
	if err := pruneAudit(context.Background(), store, &buf, &retention.Config{MaxRecords: 2}); err != nil {
		t.Fatalf("pruneAudit() error = %v", err)
	}
	if !strings.Contains(buf.String(), "Deleted 3 records, 2 remaining") {
		t.Errorf("output = %q", buf.String())
	}

	buf.Reset()
	if err := pruneAudit(context.Background(), store, &buf, &retention.Config{}); err != nil {
		t.Fatalf("pruneAudit() error = %v", err)
	}
	if !strings.Contains(buf.String(), "nothing to prune") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestOpenAudit(t *testing.T) {
	cfg := testConfig()

	var cerr *cli.ConfigError
	if _, err := openAudit(cfg); !errors.As(err, &cerr) || !cerr.HasField("audit.backend") {
		t.Errorf("openAudit(memory) error = %v, want audit.backend config error", err)
	}

	cfg.Audit.Enabled = false
	if _, err := openAudit(cfg); !errors.As(err, &cerr) || !cerr.HasField("audit.enabled") {
		t.Errorf("openAudit(disabled) error = %v, want audit.enabled config error", err)
	}
}
