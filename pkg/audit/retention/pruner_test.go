package retention

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"mercator-hq/lifecycle/pkg/audit"
	"mercator-hq/lifecycle/pkg/audit/storage"
	"mercator-hq/lifecycle/pkg/config"
)

type brokenStorage struct {
	*storage.MemoryStorage
}

func (s *brokenStorage) DeleteBefore(ctx context.Context, t time.Time) (int64, error) {
	return 0, audit.NewStorageError("memory", "delete", errors.New("locked"))
}

func seed(t *testing.T, s audit.Storage, now time.Time, ages ...int) {
	t.Helper()
	for i, days := range ages {
		r := &audit.Record{
			ID:        fmt.Sprintf("r%d", i),
			RequestID: fmt.Sprintf("req-%d", i),
			Category:  audit.CategorySuccess,
			StartedAt: now.AddDate(0, 0, -days).Add(time.Duration(i) * time.Second),
		}
		if err := s.Store(context.Background(), r); err != nil {
			t.Fatalf("Store() error = %v", err)
		}
	}
}

func TestPruner_Prune(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		config      Config
		ages        []int
		wantDeleted int64
		wantLeft    int64
	}{
		{
			name:        "keep forever",
			config:      Config{},
			ages:        []int{100, 50, 1},
			wantDeleted: 0,
			wantLeft:    3,
		},
		{
			name:        "by age",
			config:      Config{RetentionDays: 30},
			ages:        []int{100, 50, 10, 1},
			wantDeleted: 2,
			wantLeft:    2,
		},
		{
			name:        "by count",
			config:      Config{MaxRecords: 2},
			ages:        []int{5, 4, 3, 2, 1},
			wantDeleted: 3,
			wantLeft:    2,
		},
		{
			name:        "age then count",
			config:      Config{RetentionDays: 30, MaxRecords: 1},
			ages:        []int{60, 3, 2, 1},
			wantDeleted: 3,
			wantLeft:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := storage.NewMemoryStorage(100)
			seed(t, s, now, tt.ages...)

			cfg := tt.config
			p := NewPruner(s, &cfg)
			p.now = func() time.Time { return now }

			deleted, err := p.Prune(context.Background())
			if err != nil {
				t.Fatalf("Prune() error = %v", err)
			}
			if deleted != tt.wantDeleted {
				t.Errorf("Prune() deleted = %d, want %d", deleted, tt.wantDeleted)
			}
			left, _ := s.Count(context.Background())
			if left != tt.wantLeft {
				t.Errorf("records left = %d, want %d", left, tt.wantLeft)
			}
		})
	}
}

func TestPruner_PruneError(t *testing.T) {
	p := NewPruner(&brokenStorage{MemoryStorage: storage.NewMemoryStorage(10)}, &Config{RetentionDays: 1})

	_, err := p.Prune(context.Background())
	var retentionErr *audit.RetentionError
	if !errors.As(err, &retentionErr) {
		t.Fatalf("Prune() error = %v, want *audit.RetentionError", err)
	}
	var storageErr *audit.StorageError
	if !errors.As(err, &storageErr) {
		t.Errorf("Prune() error should wrap the storage error: %v", err)
	}
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.RetentionConfig{RetentionDays: 7, MaxRecords: 500, PruneSchedule: "@daily"})
	if cfg.RetentionDays != 7 || cfg.MaxRecords != 500 {
		t.Errorf("ConfigFrom() = %+v", cfg)
	}
}
