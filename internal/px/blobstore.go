package px

import "io"

// BlobStore is a flat namespace of attachment blob files.
// Names are opaque to the store; the attachment store derives them.
type BlobStore interface {
	// Put stores size bytes read from r under name, replacing any existing blob.
	Put(name string, r io.Reader, size int64) error

	// Open returns a reader for the named blob.
	Open(name string) (io.ReadCloser, error)

	// Remove deletes the named blob. A missing blob is not an error.
	Remove(name string) error

	// List returns the names of all stored blobs.
	List() ([]string, error)

	// Locate returns the physical location of a blob (a path or URI).
	Locate(name string) string

	// ValidateSetup verifies that the store is accessible.
	ValidateSetup() error
}
