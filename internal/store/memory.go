package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/i474232898/datacycle/internal/cycle"
)

// ErrNotFound is returned when no value exists for a key or no launch has
// been recorded yet.
var ErrNotFound = cycle.ErrNotFound

// MemoryStore is a concurrency-safe in-memory implementation of cycle.Store.
// It does not survive restarts; tests and ephemeral runs use it.
type MemoryStore struct {
	mu sync.RWMutex

	values   map[string][]byte
	launches []cycle.LaunchRecord
}

var _ cycle.Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[string][]byte),
	}
}

// Get returns a copy of the value stored under key.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set stores a copy of value under key.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = append([]byte(nil), value...)
	return nil
}

// SetBatch stores all entries under a single lock.
func (s *MemoryStore) SetBatch(_ context.Context, entries map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range entries {
		s.values[k] = append([]byte(nil), v...)
	}
	return nil
}

// FirstLaunch returns the earliest launch record.
func (s *MemoryStore) FirstLaunch(_ context.Context) (cycle.LaunchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.launches) == 0 {
		return cycle.LaunchRecord{}, ErrNotFound
	}
	return copyLaunch(s.launches[0]), nil
}

// InsertLaunch appends a record, keeping the log ordered by FirstSeenAt.
func (s *MemoryStore) InsertLaunch(_ context.Context, rec cycle.LaunchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.launches = append(s.launches, copyLaunch(rec))
	sort.SliceStable(s.launches, func(i, j int) bool {
		return s.launches[i].FirstSeenAt.Before(s.launches[j].FirstSeenAt)
	})
	return nil
}

// TouchLaunch updates LastRefreshedAt of the record with the given id.
func (s *MemoryStore) TouchLaunch(_ context.Context, id string, refreshedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.launches {
		if s.launches[i].ID == id {
			ts := refreshedAt.UTC()
			s.launches[i].LastRefreshedAt = &ts
			return nil
		}
	}
	return ErrNotFound
}

// ListLaunches returns every record ordered by FirstSeenAt ascending.
func (s *MemoryStore) ListLaunches(_ context.Context) ([]cycle.LaunchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]cycle.LaunchRecord, 0, len(s.launches))
	for _, rec := range s.launches {
		out = append(out, copyLaunch(rec))
	}
	return out, nil
}

func copyLaunch(rec cycle.LaunchRecord) cycle.LaunchRecord {
	if rec.LastRefreshedAt != nil {
		ts := *rec.LastRefreshedAt
		rec.LastRefreshedAt = &ts
	}
	return rec
}
