package fs

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"pxs/internal/px"
)

// OSFilesystemManager is the real filesystem implementation of
// px.FilesystemManager.
type OSFilesystemManager struct{}

// NewOSFilesystemManager creates a filesystem manager backed by the os package.
func NewOSFilesystemManager() *OSFilesystemManager {
	return &OSFilesystemManager{}
}

// ReadDir lists a directory sorted by name. Devices, pipes and sockets
// are left out; symlinks are kept and resolved by Stat.
func (m *OSFilesystemManager) ReadDir(path string) ([]fs.DirEntry, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	kept := entries[:0]
	for _, e := range entries {
		if e.Type()&(fs.ModeDevice|fs.ModeNamedPipe|fs.ModeSocket|fs.ModeCharDevice) != 0 {
			continue
		}
		kept = append(kept, e)
	}
	return kept, nil
}

// Stat returns fresh file info for a path, following symlinks.
func (m *OSFilesystemManager) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

func (m *OSFilesystemManager) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFile replaces the content of an existing regular file atomically,
// keeping its permissions. A symlink is written through to its target.
func (m *OSFilesystemManager) WriteFile(path string, data []byte) error {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file: %s", path)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".pxs-write-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		tmp.Close()
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replacing file: %w", err)
	}

	success = true
	return nil
}

// Compile-time check that OSFilesystemManager implements px.FilesystemManager
var _ px.FilesystemManager = (*OSFilesystemManager)(nil)
