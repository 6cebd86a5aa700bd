package recorder

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"mercator-hq/lifecycle/pkg/audit"
	"mercator-hq/lifecycle/pkg/audit/storage"
	"mercator-hq/lifecycle/pkg/classify"
	"mercator-hq/lifecycle/pkg/config"
	"mercator-hq/lifecycle/pkg/controller"
)

// blockingStorage holds every Store call until release is closed.
type blockingStorage struct {
	*storage.MemoryStorage
	entered chan struct{}
	release chan struct{}
}

func (s *blockingStorage) Store(ctx context.Context, record *audit.Record) error {
	s.entered <- struct{}{}
	<-s.release
	return s.MemoryStorage.Store(ctx, record)
}

// failingStorage rejects every write.
type failingStorage struct {
	*storage.MemoryStorage
}

func (s *failingStorage) Store(ctx context.Context, record *audit.Record) error {
	return audit.NewStorageError("memory", "store", errors.New("disk full"))
}

func TestRecorder_RequestFinished(t *testing.T) {
	store := storage.NewMemoryStorage(10)
	r := New(store, DefaultConfig())

	started := time.Now().Add(-time.Second)
	r.RequestFinished(controller.Summary{
		RequestID: "req-1",
		Kind:      controller.KindRequestResponse,
		StartedAt: started,
		Duration:  20 * time.Millisecond,
		Borrowed:  2,
	})
	r.RequestFinished(controller.Summary{
		RequestID:       "req-2",
		Kind:            controller.KindConnectionOriented,
		StartedAt:       started.Add(time.Millisecond),
		ReleaseFailures: 1,
		Aborted:         true,
		Failure: &classify.Classified{
			Category: classify.CategoryInfra,
			Code:     5000,
			Message:  classify.NetworkErrorMessage,
			Severity: classify.SeverityError,
			Detail:   "dial tcp: connection refused",
		},
	})

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	records, err := store.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("stored %d records, want 2", len(records))
	}

	failed, ok := records[0], records[1]
	if ok.RequestID != "req-1" || !ok.Success() || ok.Code != 200 || ok.Borrowed != 2 || ok.Kind != "request" {
		t.Errorf("success record = %+v", ok)
	}
	if failed.Category != "INFRA" || failed.Code != 5000 || failed.Severity != "error" || !failed.Aborted || failed.Kind != "connection" {
		t.Errorf("failure record = %+v", failed)
	}
	if failed.Message != classify.NetworkErrorMessage {
		t.Errorf("failure record message = %q, want the client message only", failed.Message)
	}
	if ok.ID == "" || failed.ID == "" || ok.ID == failed.ID {
		t.Errorf("record IDs = %q, %q, want distinct UUIDs", ok.ID, failed.ID)
	}
}

func TestRecorder_DropsWhenQueueFull(t *testing.T) {
	store := &blockingStorage{
		MemoryStorage: storage.NewMemoryStorage(10),
		entered:       make(chan struct{}, 10),
		release:       make(chan struct{}),
	}

	var drops atomic.Int32
	r := New(store, &Config{
		Enabled:      true,
		AsyncBuffer:  1,
		WriteTimeout: time.Second,
		OnDrop:       func() { drops.Add(1) },
	})

	// The worker takes the first record and blocks inside Store.
	if err := r.Record(&audit.Record{RequestID: "first"}); err != nil {
		t.Fatalf("Record(first) error = %v", err)
	}
	<-store.entered

	if err := r.Record(&audit.Record{RequestID: "queued"}); err != nil {
		t.Fatalf("Record(queued) error = %v", err)
	}

	err := r.Record(&audit.Record{RequestID: "dropped"})
	if !errors.Is(err, audit.ErrQueueFull) {
		t.Errorf("Record(dropped) error = %v, want ErrQueueFull", err)
	}
	if drops.Load() != 1 {
		t.Errorf("OnDrop called %d times, want 1", drops.Load())
	}

	close(store.release)
	_ = r.Close()

	count, _ := store.Count(context.Background())
	if count != 2 {
		t.Errorf("stored %d records, want 2", count)
	}
}

func TestRecorder_CloseDrainsQueue(t *testing.T) {
	store := storage.NewMemoryStorage(100)
	r := New(store, &Config{Enabled: true, AsyncBuffer: 50, WriteTimeout: time.Second})

	for i := 0; i < 50; i++ {
		if err := r.Record(&audit.Record{RequestID: "req"}); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}
	_ = r.Close()

	count, _ := store.Count(context.Background())
	if count != 50 {
		t.Errorf("stored %d records after Close, want 50", count)
	}
}

func TestRecorder_AfterClose(t *testing.T) {
	r := New(storage.NewMemoryStorage(10), DefaultConfig())
	_ = r.Close()
	_ = r.Close()

	err := r.Record(&audit.Record{RequestID: "late"})
	if !errors.Is(err, audit.ErrRecorderClosed) {
		t.Errorf("Record() after Close error = %v, want ErrRecorderClosed", err)
	}
	var recErr *audit.RecorderError
	if !errors.As(err, &recErr) || recErr.RequestID != "late" {
		t.Errorf("Record() after Close error = %v, want *RecorderError for late", err)
	}
}

func TestRecorder_Disabled(t *testing.T) {
	store := storage.NewMemoryStorage(10)
	r := New(store, &Config{Enabled: false})

	r.RequestFinished(controller.Summary{RequestID: "ignored"})
	_ = r.Close()

	count, _ := store.Count(context.Background())
	if count != 0 {
		t.Errorf("disabled recorder stored %d records", count)
	}
}

func TestRecorder_StoreFailureIsLogged(t *testing.T) {
	store := &failingStorage{MemoryStorage: storage.NewMemoryStorage(10)}
	r := New(store, DefaultConfig())

	if err := r.Record(&audit.Record{RequestID: "req"}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	// A failed write must not stop the worker or fail Close.
	if err := r.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.AuditConfig{
		Enabled: true,
		Recorder: config.RecorderConfig{
			AsyncBuffer:  7,
			WriteTimeout: 3 * time.Second,
		},
	})
	if !cfg.Enabled || cfg.AsyncBuffer != 7 || cfg.WriteTimeout != 3*time.Second {
		t.Errorf("ConfigFrom() = %+v", cfg)
	}

	defaults := ConfigFrom(config.AuditConfig{})
	if defaults.Enabled || defaults.AsyncBuffer != 1000 || defaults.WriteTimeout != 5*time.Second {
		t.Errorf("ConfigFrom(zero) = %+v", defaults)
	}
}

func TestRecorder_UsesConfiguredLogger(t *testing.T) {
	var logs bytes.Buffer
	r := New(storage.NewMemoryStorage(10), &Config{
		Enabled: true,
		Logger:  slog.New(slog.NewTextHandler(&logs, nil)),
	})
	_ = r.Close()

	out := logs.String()
	if !strings.Contains(out, "audit recorder initialized") || !strings.Contains(out, "component=audit.recorder") {
		t.Errorf("recorder logs = %q, want them on the configured logger", out)
	}
}
