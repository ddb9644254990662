package testutil

import (
	"testing"

	"pxs/internal/blobstore"
	"pxs/internal/metadata"
	"pxs/internal/px"
)

// NewTestMetadataStore creates an initialized in-memory metadata store.
func NewTestMetadataStore(t *testing.T) px.MetadataStore {
	t.Helper()

	store := metadata.NewMemoryMetadataStore()
	if err := store.Initialize(); err != nil {
		t.Fatalf("failed to initialize metadata store: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewTestBlobStore creates a new in-memory blob store for testing.
func NewTestBlobStore() *blobstore.MemoryBlobStore {
	return blobstore.NewMemoryBlobStore("test-blobs")
}
