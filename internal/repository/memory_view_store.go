package repository

import (
	"context"
	"sync"

	"portfolio-be/internal/domain"
)

// MemoryViewStore is a process-local view store for tests and local runs
// without Redis. Records are copied in and out so callers never share state.
type MemoryViewStore struct {
	mu      sync.RWMutex
	records map[domain.PageKey]*domain.ViewRecord
}

// NewMemoryViewStore creates an empty in-memory store
func NewMemoryViewStore() *MemoryViewStore {
	return &MemoryViewStore{records: make(map[domain.PageKey]*domain.ViewRecord)}
}

func (s *MemoryViewStore) Get(ctx context.Context, key domain.PageKey) (*domain.ViewRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeError("get", key, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	return cloneRecord(record), nil
}

func (s *MemoryViewStore) Put(ctx context.Context, key domain.PageKey, record *domain.ViewRecord) error {
	if err := ctx.Err(); err != nil {
		return storeError("put", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[key] = cloneRecord(record)
	return nil
}

func (s *MemoryViewStore) RecordUnique(ctx context.Context, key domain.PageKey, fp domain.Fingerprint) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, storeError("record", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.records[key]
	switch {
	case !ok:
		s.records[key] = domain.NewViewRecord(fp)
		return 1, nil
	case current.HasSeen(fp):
		return current.Views, nil
	default:
		next := current.WithVisitor(fp)
		s.records[key] = next
		return next.Views, nil
	}
}

func (s *MemoryViewStore) ListRecords(ctx context.Context) (map[domain.PageKey]*domain.ViewRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeError("list", "", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[domain.PageKey]*domain.ViewRecord, len(s.records))
	for k, v := range s.records {
		out[k] = cloneRecord(v)
	}
	return out, nil
}

func (s *MemoryViewStore) HasRecords(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, storeError("list", "", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records) > 0, nil
}

func (s *MemoryViewStore) PutMany(ctx context.Context, records map[domain.PageKey]*domain.ViewRecord) error {
	if err := ctx.Err(); err != nil {
		return storeError("put many", "", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range records {
		s.records[k] = cloneRecord(v)
	}
	return nil
}

func (s *MemoryViewStore) Health(ctx context.Context) error {
	return nil
}

func cloneRecord(r *domain.ViewRecord) *domain.ViewRecord {
	seen := make([]domain.Fingerprint, len(r.SeenFingerprints))
	copy(seen, r.SeenFingerprints)
	return &domain.ViewRecord{Views: r.Views, SeenFingerprints: seen}
}
