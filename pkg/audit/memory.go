package audit

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStorage implements Storage in memory. It exists for tests and for
// running without a database file.
type MemoryStorage struct {
	mu      sync.RWMutex
	records []*Record
}

// NewMemoryStorage creates an in-memory audit backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Store persists a record.
func (s *MemoryStorage) Store(_ context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *record
	s.records = append(s.records, &copied)
	return nil
}

// Query returns matching records, newest first.
func (s *MemoryStorage) Query(_ context.Context, q *Query) ([]*Record, error) {
	if q == nil {
		q = &Query{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Record
	for _, r := range s.records {
		if q.RunID != "" && r.RunID != q.RunID {
			continue
		}
		if q.PolicyID != "" && r.PolicyID != q.PolicyID {
			continue
		}
		if q.Action != "" && r.Action != q.Action {
			continue
		}
		if !q.Since.IsZero() && r.RecordedAt.Before(q.Since) {
			continue
		}
		if !q.Until.IsZero() && !r.RecordedAt.Before(q.Until) {
			continue
		}
		copied := *r
		out = append(out, &copied)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RecordedAt.After(out[j].RecordedAt)
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}

	return out, nil
}

// DeleteBefore removes records recorded before the cutoff.
func (s *MemoryStorage) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		kept    []*Record
		deleted int64
	)
	for _, r := range s.records {
		if r.RecordedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	s.records = kept

	return deleted, nil
}

// Count returns the total number of stored records.
func (s *MemoryStorage) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.records)), nil
}

// Close is a no-op for memory storage.
func (s *MemoryStorage) Close() error {
	return nil
}
