package admin

import (
	"context"
	"sync"

	"thakii-backend/internal/domain"
)

// MemoryStore keeps records in process memory. Used when no database is
// configured and in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*domain.AdminRecord
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*domain.AdminRecord)}
}

func (s *MemoryStore) Create(_ context.Context, rec *domain.AdminRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = NewID()
	}
	s.records[rec.ID] = clone(rec)
	return rec.ID, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*domain.AdminRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return clone(rec), nil
}

func (s *MemoryStore) Update(_ context.Context, id string, patch domain.AdminPatch) (*domain.AdminRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	patch.Apply(rec)
	return clone(rec), nil
}

func (s *MemoryStore) List(_ context.Context) ([]*domain.AdminRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.AdminRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, clone(rec))
	}
	return out, nil
}

func (s *MemoryStore) Health(context.Context) error { return nil }

func (s *MemoryStore) Name() string { return "memory" }

func clone(rec *domain.AdminRecord) *domain.AdminRecord {
	c := *rec
	if rec.RemovedAt != nil {
		t := *rec.RemovedAt
		c.RemovedAt = &t
	}
	if rec.LastLogin != nil {
		t := *rec.LastLogin
		c.LastLogin = &t
	}
	return &c
}
