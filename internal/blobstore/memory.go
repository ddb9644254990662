package blobstore

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"sync"

	"pxs/internal/px"
)

// MemoryBlobStore keeps blobs in a map. Safe for concurrent use.
type MemoryBlobStore struct {
	name  string
	blobs map[string][]byte
	mu    sync.RWMutex
}

// NewMemoryBlobStore creates an empty store. name only appears in Locate.
func NewMemoryBlobStore(name string) *MemoryBlobStore {
	return &MemoryBlobStore{
		name:  name,
		blobs: make(map[string][]byte),
	}
}

func (m *MemoryBlobStore) Put(name string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[name] = data
	return nil
}

func (m *MemoryBlobStore) Open(name string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.blobs[name]
	if !ok {
		return nil, fmt.Errorf("blob %s: %w", name, px.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MemoryBlobStore) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, name)
	return nil
}

func (m *MemoryBlobStore) List() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.blobs))
	for name := range m.blobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *MemoryBlobStore) Locate(name string) string {
	return "memory://" + m.name + "/" + name
}

// ValidateSetup always succeeds for memory stores.
func (m *MemoryBlobStore) ValidateSetup() error {
	return nil
}

// Bytes returns the stored bytes of a blob, or nil. For tests.
func (m *MemoryBlobStore) Bytes(name string) []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.blobs[name]
}

// Count returns the number of stored blobs.
func (m *MemoryBlobStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}

// Compile-time check that MemoryBlobStore implements px.BlobStore
var _ px.BlobStore = (*MemoryBlobStore)(nil)
