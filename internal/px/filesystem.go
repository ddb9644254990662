package px

import (
	"io/fs"
	"time"
)

// FilesystemManager provides the filesystem operations the resource indexer
// needs. It abstracts file access to enable testing without touching the
// real filesystem.
type FilesystemManager interface {
	// ReadDir lists the entries of a directory, sorted by name.
	ReadDir(path string) ([]fs.DirEntry, error)

	// Stat returns fresh file info for a path.
	Stat(path string) (fs.FileInfo, error)

	// ReadFile returns the full content of a file.
	ReadFile(path string) ([]byte, error)

	// WriteFile replaces the content of an existing file.
	WriteFile(path string, data []byte) error

	// ExtractTimes returns creation and modification times for info.
	// Filesystems without a birth time report the best approximation.
	ExtractTimes(info fs.FileInfo) FileTimes
}

// FileTimes holds the timestamps a ResourceRecord exposes.
type FileTimes struct {
	CreatedAt time.Time
	UpdatedAt time.Time
}
