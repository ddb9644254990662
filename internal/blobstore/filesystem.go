package blobstore

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"pxs/internal/px"
)

// FileSystemBlobStore keeps attachment blobs as flat files in one directory:
//
//	<dir>/
//	  <unixMillis>_<id><ext>
//
// Other files in the directory (the JSON metadata document, temp files)
// are tolerated. Names beginning with a dot are never listed.
type FileSystemBlobStore struct {
	dir string
}

// NewFileSystemBlobStore creates the directory if needed.
func NewFileSystemBlobStore(dir string) (*FileSystemBlobStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create attachments directory: %w", err)
	}
	return &FileSystemBlobStore{dir: dir}, nil
}

// Put writes the blob atomically (temp file + rename) and verifies its size.
func (s *FileSystemBlobStore) Put(name string, r io.Reader, size int64) error {
	if err := checkName(name); err != nil {
		return err
	}
	destPath := filepath.Join(s.dir, name)

	tmpFile, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if written != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// Open returns the blob file. A missing blob wraps px.ErrNotFound.
func (s *FileSystemBlobStore) Open(name string) (io.ReadCloser, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("blob %s: %w", name, px.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}
	return f, nil
}

// Remove deletes the blob. A blob that is already gone is not an error.
func (s *FileSystemBlobStore) Remove(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove blob: %w", err)
	}
	return nil
}

// List returns regular, non-hidden files in the directory, sorted.
func (s *FileSystemBlobStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list attachments directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Locate returns the absolute path of the blob.
func (s *FileSystemBlobStore) Locate(name string) string {
	p := filepath.Join(s.dir, name)
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// ValidateSetup verifies that the directory exists and is a directory.
func (s *FileSystemBlobStore) ValidateSetup() error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("attachments directory not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("attachments path is not a directory: %s", s.dir)
	}
	return nil
}

// checkName rejects names that would escape the flat namespace.
func checkName(name string) error {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return fmt.Errorf("invalid blob name: %q", name)
	}
	return nil
}

// Compile-time check that FileSystemBlobStore implements px.BlobStore
var _ px.BlobStore = (*FileSystemBlobStore)(nil)
