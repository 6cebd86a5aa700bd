package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"mercator-hq/lifecycle/pkg/audit"
)

// DefaultMemoryMaxRecords caps a MemoryStorage created with no limit.
const DefaultMemoryMaxRecords = 10000

// MemoryStorage implements audit.Storage in memory. Records are kept in
// insertion order and the oldest are evicted beyond MaxRecords.
type MemoryStorage struct {
	records    []*audit.Record
	maxRecords int
	closed     bool
	mu         sync.RWMutex
}

var _ audit.Storage = (*MemoryStorage)(nil)

// NewMemoryStorage creates an in-memory backend keeping at most maxRecords
// records.
func NewMemoryStorage(maxRecords int) *MemoryStorage {
	if maxRecords <= 0 {
		maxRecords = DefaultMemoryMaxRecords
	}
	return &MemoryStorage{
		records:    make([]*audit.Record, 0, min(maxRecords, 1024)),
		maxRecords: maxRecords,
	}
}

// Store keeps a copy of record.
func (s *MemoryStorage) Store(ctx context.Context, record *audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return audit.NewStorageError("memory", "store", errClosed)
	}

	recordCopy := *record
	s.records = append(s.records, &recordCopy)

	if over := len(s.records) - s.maxRecords; over > 0 {
		clear(s.records[:over])
		s.records = s.records[over:]
	}
	return nil
}

// List returns up to limit records, newest first.
func (s *MemoryStorage) List(ctx context.Context, limit int) ([]*audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, audit.NewStorageError("memory", "list", errClosed)
	}

	results := make([]*audit.Record, 0, len(s.records))
	for _, record := range s.records {
		recordCopy := *record
		results = append(results, &recordCopy)
	}
	sortNewestFirst(results)

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// DeleteBefore deletes records that started before t.
func (s *MemoryStorage) DeleteBefore(ctx context.Context, t time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, audit.NewStorageError("memory", "delete", errClosed)
	}

	kept := s.records[:0]
	var deleted int64
	for _, record := range s.records {
		if record.StartedAt.Before(t) {
			deleted++
			continue
		}
		kept = append(kept, record)
	}
	clear(s.records[len(kept):])
	s.records = kept
	return deleted, nil
}

// DeleteOldest deletes the oldest records beyond keep.
func (s *MemoryStorage) DeleteOldest(ctx context.Context, keep int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, audit.NewStorageError("memory", "delete", errClosed)
	}
	if keep < 0 {
		keep = 0
	}
	if int64(len(s.records)) <= keep {
		return 0, nil
	}

	sorted := make([]*audit.Record, len(s.records))
	copy(sorted, s.records)
	sortNewestFirst(sorted)

	deleted := int64(len(sorted)) - keep
	s.records = sorted[:keep]
	// Keep insertion order oldest first so eviction on Store stays correct.
	for i, j := 0, len(s.records)-1; i < j; i, j = i+1, j-1 {
		s.records[i], s.records[j] = s.records[j], s.records[i]
	}
	return deleted, nil
}

// Count returns the number of stored records.
func (s *MemoryStorage) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, audit.NewStorageError("memory", "count", errClosed)
	}
	return int64(len(s.records)), nil
}

// Ping fails once the storage is closed.
func (s *MemoryStorage) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return audit.NewStorageError("memory", "ping", errClosed)
	}
	return nil
}

// Close drops every record.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.records = nil
	return nil
}

// sortNewestFirst orders records by start time, newest first, breaking ties
// by ID so the order is stable across backends.
func sortNewestFirst(records []*audit.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].StartedAt.Equal(records[j].StartedAt) {
			return records[i].StartedAt.After(records[j].StartedAt)
		}
		return records[i].ID > records[j].ID
	})
}
