package maintenance

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mercator-hq/lifecycle/pkg/audit"
	"mercator-hq/lifecycle/pkg/audit/retention"
	"mercator-hq/lifecycle/pkg/audit/storage"
	"mercator-hq/lifecycle/pkg/pool"
)

type run struct {
	job    string
	pruned int
	ok     bool
}

type fakeReporter struct {
	mu   sync.Mutex
	runs []run
}

func (r *fakeReporter) RecordMaintenance(job string, pruned int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run{job, pruned, ok})
}

func (r *fakeReporter) all() []run {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]run(nil), r.runs...)
}

func TestScheduler_Add(t *testing.T) {
	noop := func(ctx context.Context) (int, error) { return 0, nil }

	tests := []struct {
		name    string
		job     Job
		wantErr bool
	}{
		{"valid", Job{Name: "a", Schedule: "*/5 * * * *", Run: noop}, false},
		{"descriptor", Job{Name: "b", Schedule: "@every 1m", Run: noop}, false},
		{"bad schedule", Job{Name: "c", Schedule: "every minute", Run: noop}, true},
		{"no name", Job{Schedule: "@hourly", Run: noop}, true},
		{"no run", Job{Name: "d", Schedule: "@hourly"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(nil, nil)
			err := s.Add(tt.job)
			if (err != nil) != tt.wantErr {
				t.Errorf("Add() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	t.Run("duplicate", func(t *testing.T) {
		s := New(nil, nil)
		_ = s.Add(Job{Name: "a", Schedule: "@hourly", Run: noop})
		if err := s.Add(Job{Name: "a", Schedule: "@daily", Run: noop}); err == nil {
			t.Error("Add() should reject a duplicate job name")
		}
	})
}

func TestScheduler_RunNowReports(t *testing.T) {
	reporter := &fakeReporter{}
	s := New(nil, reporter)

	_ = s.Add(Job{Name: "ok", Schedule: "@hourly", Run: func(ctx context.Context) (int, error) { return 3, nil }})
	_ = s.Add(Job{Name: "fail", Schedule: "@hourly", Run: func(ctx context.Context) (int, error) { return 0, errors.New("locked") }})

	if n, err := s.RunNow(context.Background(), "ok"); err != nil || n != 3 {
		t.Errorf("RunNow(ok) = %d, %v; want 3, nil", n, err)
	}
	if _, err := s.RunNow(context.Background(), "fail"); err == nil {
		t.Error("RunNow(fail) should return the job error")
	}
	if _, err := s.RunNow(context.Background(), "missing"); !errors.Is(err, ErrUnknownJob) {
		t.Errorf("RunNow(missing) error = %v, want ErrUnknownJob", err)
	}

	runs := reporter.all()
	want := []run{{"ok", 3, true}, {"fail", 0, false}}
	if fmt.Sprint(runs) != fmt.Sprint(want) {
		t.Errorf("reported runs = %v, want %v", runs, want)
	}
}

func TestScheduler_StartStop(t *testing.T) {
	var calls atomic.Int32
	s := New(nil, nil)
	_ = s.Add(Job{Name: "tick", Schedule: "@every 1s", Run: func(ctx context.Context) (int, error) {
		calls.Add(1)
		return 0, nil
	}})

	if _, ok := s.NextRun("tick"); !ok {
		t.Error("NextRun() before Start should report the schedule")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !s.IsRunning() {
		t.Error("IsRunning() = false after Start")
	}
	if err := s.Start(ctx); !errors.Is(err, ErrSchedulerRunning) {
		t.Errorf("second Start() error = %v, want ErrSchedulerRunning", err)
	}
	if err := s.Add(Job{Name: "late", Schedule: "@hourly", Run: func(ctx context.Context) (int, error) { return 0, nil }}); !errors.Is(err, ErrSchedulerRunning) {
		t.Errorf("Add() while running error = %v, want ErrSchedulerRunning", err)
	}

	next, ok := s.NextRun("tick")
	if !ok || next.IsZero() {
		t.Errorf("NextRun() = %v, %v", next, ok)
	}

	deadline := time.After(3 * time.Second)
	for calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("job never ran")
		case <-time.After(50 * time.Millisecond):
		}
	}

	cancel()
	deadline = time.After(time.Second)
	for s.IsRunning() {
		select {
		case <-deadline:
			t.Fatal("scheduler did not stop when the context was cancelled")
		case <-time.After(10 * time.Millisecond):
		}
	}
	s.Stop()
}

func TestScheduler_StartWithoutJobs(t *testing.T) {
	s := New(nil, nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if s.IsRunning() {
		t.Error("scheduler without jobs should not run")
	}
}

func TestPoolPruneJob(t *testing.T) {
	m := pool.NewManager()
	p := pool.New("buffers", func() (*bytes.Buffer, error) { return new(bytes.Buffer), nil }, pool.Config{IdleTimeout: time.Millisecond})
	if err := m.Register(p); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	var borrowed []*bytes.Buffer
	for i := 0; i < 3; i++ {
		b, _ := p.Acquire()
		borrowed = append(borrowed, b)
	}
	for _, b := range borrowed {
		_ = p.Release(b)
	}
	time.Sleep(5 * time.Millisecond)

	reporter := &fakeReporter{}
	s := New(nil, reporter)
	if err := s.Add(PoolPruneJob("@every 1m", m)); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	n, err := s.RunNow(context.Background(), JobPoolPrune)
	if err != nil || n != 3 {
		t.Errorf("RunNow() = %d, %v; want 3, nil", n, err)
	}
	if p.Stats().Idle != 0 {
		t.Errorf("Idle = %d after prune, want 0", p.Stats().Idle)
	}
	if runs := reporter.all(); len(runs) != 1 || runs[0] != (run{JobPoolPrune, 3, true}) {
		t.Errorf("reported runs = %v", runs)
	}
}

func TestRetentionJob(t *testing.T) {
	store := storage.NewMemoryStorage(100)
	old := time.Now().AddDate(0, 0, -10)
	for i := 0; i < 4; i++ {
		_ = store.Store(context.Background(), &audit.Record{ID: fmt.Sprint(i), StartedAt: old})
	}
	_ = store.Store(context.Background(), &audit.Record{ID: "new", StartedAt: time.Now()})

	s := New(nil, nil)
	pruner := retention.NewPruner(store, &retention.Config{RetentionDays: 7})
	if err := s.Add(RetentionJob("0 3 * * *", pruner)); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	n, err := s.RunNow(context.Background(), JobAuditRetention)
	if err != nil || n != 4 {
		t.Errorf("RunNow() = %d, %v; want 4, nil", n, err)
	}
	if count, _ := store.Count(context.Background()); count != 1 {
		t.Errorf("records left = %d, want 1", count)
	}
}
