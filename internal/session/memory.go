package session

import (
	"context"
	"sync"

	"cms-admin-gateway/internal/model"
)

// MemoryStore keeps session records in a map. Used in tests and for
// single-instance deployments without a database.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]model.SessionRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]model.SessionRecord{}}
}

func (s *MemoryStore) Save(_ context.Context, record *model.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[record.ID] = *record
	return nil
}

func (s *MemoryStore) Load(_ context.Context, id string) (*model.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, exists := s.records[id]
	if !exists {
		return nil, model.ErrSessionNotFound
	}

	copied := record
	return &copied, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, id)
	return nil
}

func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}
