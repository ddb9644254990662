package metadata

import (
	"sync"

	"pxs/internal/model"
	"pxs/internal/px"
)

// MemoryMetadataStore holds records in memory only. Safe for concurrent use.
type MemoryMetadataStore struct {
	mu      sync.RWMutex
	records []*model.AttachmentRecord
}

// NewMemoryMetadataStore creates an empty store.
func NewMemoryMetadataStore() *MemoryMetadataStore {
	return &MemoryMetadataStore{}
}

func (s *MemoryMetadataStore) Initialize() error {
	return nil
}

func (s *MemoryMetadataStore) Insert(rec *model.AttachmentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, cloneRecord(rec))
	return nil
}

func (s *MemoryMetadataStore) FindOne(q px.Query) (*model.AttachmentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findOne(s.records, q), nil
}

func (s *MemoryMetadataStore) FindMany(q px.Query) ([]*model.AttachmentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findMany(s.records, q), nil
}

func (s *MemoryMetadataStore) Delete(q px.Query) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, removed := without(s.records, q)
	s.records = next
	return removed, nil
}

func (s *MemoryMetadataStore) Close() error {
	return nil
}

// Compile-time check that MemoryMetadataStore implements px.MetadataStore
var _ px.MetadataStore = (*MemoryMetadataStore)(nil)
