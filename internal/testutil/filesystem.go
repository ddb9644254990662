package testutil

import (
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"pxs/internal/px"
)

// MockFile represents a file in the mock filesystem.
type MockFile struct {
	Content     []byte
	Permissions fs.FileMode
	ModTime     time.Time
	IsDirectory bool
	// Birth time, set once when the entry is created.
	Ctime time.Time
}

// MockFilesystemManager is an in-memory filesystem for testing.
// Paths are cleaned; parent directories are created implicitly.
type MockFilesystemManager struct {
	mu    sync.Mutex
	files map[string]*MockFile
	now   func() time.Time

	failStat    map[string]error
	failRead    map[string]error
	failReadDir map[string]error
}

// NewMockFilesystemManager creates a new mock filesystem.
func NewMockFilesystemManager() *MockFilesystemManager {
	return &MockFilesystemManager{
		files:       make(map[string]*MockFile),
		now:         time.Now,
		failStat:    make(map[string]error),
		failRead:    make(map[string]error),
		failReadDir: make(map[string]error),
	}
}

// WithClock makes new entries take their timestamps from clock.
func (m *MockFilesystemManager) WithClock(clock px.Clock) *MockFilesystemManager {
	m.now = clock.Now
	return m
}

// AddFile adds a file and any missing parent directories.
func (m *MockFilesystemManager) AddFile(path string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	path = filepath.Clean(path)
	m.addParents(path)
	now := m.now()
	m.files[path] = &MockFile{
		Content:     content,
		Permissions: 0644,
		ModTime:     now,
		Ctime:       now,
	}
}

// AddDirectory adds a directory and any missing parents.
func (m *MockFilesystemManager) AddDirectory(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	path = filepath.Clean(path)
	m.addParents(path)
	m.addDir(path)
}

// FailStat makes Stat on path return err.
func (m *MockFilesystemManager) FailStat(path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failStat[filepath.Clean(path)] = err
}

// FailRead makes ReadFile on path return err.
func (m *MockFilesystemManager) FailRead(path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failRead[filepath.Clean(path)] = err
}

// FailReadDir makes ReadDir on path return err.
func (m *MockFilesystemManager) FailReadDir(path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failReadDir[filepath.Clean(path)] = err
}

// Content returns the current content of a file, or nil.
func (m *MockFilesystemManager) Content(path string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.files[filepath.Clean(path)]; ok {
		return f.Content
	}
	return nil
}

func (m *MockFilesystemManager) addParents(path string) {
	for dir := filepath.Dir(path); ; dir = filepath.Dir(dir) {
		m.addDir(dir)
		if dir == filepath.Dir(dir) {
			return
		}
	}
}

func (m *MockFilesystemManager) addDir(path string) {
	if _, ok := m.files[path]; ok {
		return
	}
	now := m.now()
	m.files[path] = &MockFile{
		Permissions: 0755 | fs.ModeDir,
		ModTime:     now,
		IsDirectory: true,
		Ctime:       now,
	}
}

func (m *MockFilesystemManager) ReadDir(path string) ([]fs.DirEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	path = filepath.Clean(path)
	if err, ok := m.failReadDir[path]; ok {
		return nil, &fs.PathError{Op: "readdir", Path: path, Err: err}
	}
	dir, ok := m.files[path]
	if !ok {
		return nil, &fs.PathError{Op: "readdir", Path: path, Err: fs.ErrNotExist}
	}
	if !dir.IsDirectory {
		return nil, &fs.PathError{Op: "readdir", Path: path, Err: errors.New("not a directory")}
	}

	var entries []fs.DirEntry
	for p, f := range m.files {
		if p == path || filepath.Dir(p) != path {
			continue
		}
		entries = append(entries, fs.FileInfoToDirEntry(newMockFileInfo(p, f)))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}

func (m *MockFilesystemManager) Stat(path string) (fs.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	path = filepath.Clean(path)
	if err, ok := m.failStat[path]; ok {
		return nil, &fs.PathError{Op: "stat", Path: path, Err: err}
	}
	file, ok := m.files[path]
	if !ok {
		return nil, &fs.PathError{Op: "stat", Path: path, Err: fs.ErrNotExist}
	}
	return newMockFileInfo(path, file), nil
}

func (m *MockFilesystemManager) ReadFile(path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	path = filepath.Clean(path)
	if err, ok := m.failRead[path]; ok {
		return nil, &fs.PathError{Op: "read", Path: path, Err: err}
	}
	file, ok := m.files[path]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	if file.IsDirectory {
		return nil, &fs.PathError{Op: "read", Path: path, Err: errors.New("is a directory")}
	}
	return append([]byte(nil), file.Content...), nil
}

func (m *MockFilesystemManager) WriteFile(path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	path = filepath.Clean(path)
	file, ok := m.files[path]
	if !ok {
		return &fs.PathError{Op: "write", Path: path, Err: fs.ErrNotExist}
	}
	if file.IsDirectory {
		return &fs.PathError{Op: "write", Path: path, Err: errors.New("is a directory")}
	}
	file.Content = append([]byte(nil), data...)
	file.ModTime = m.now()
	return nil
}

func (m *MockFilesystemManager) ExtractTimes(info fs.FileInfo) px.FileTimes {
	if f, ok := info.Sys().(*MockFile); ok {
		return px.FileTimes{CreatedAt: f.Ctime, UpdatedAt: f.ModTime}
	}
	return px.FileTimes{CreatedAt: info.ModTime(), UpdatedAt: info.ModTime()}
}

// mockFileInfo implements fs.FileInfo
type mockFileInfo struct {
	name     string
	size     int64
	mode     fs.FileMode
	modTime  time.Time
	isDir    bool
	mockFile *MockFile
}

func newMockFileInfo(path string, f *MockFile) *mockFileInfo {
	return &mockFileInfo{
		name:     filepath.Base(path),
		size:     int64(len(f.Content)),
		mode:     f.Permissions,
		modTime:  f.ModTime,
		isDir:    f.IsDirectory,
		mockFile: f,
	}
}

func (m *mockFileInfo) Name() string       { return m.name }
func (m *mockFileInfo) Size() int64        { return m.size }
func (m *mockFileInfo) Mode() fs.FileMode  { return m.mode }
func (m *mockFileInfo) ModTime() time.Time { return m.modTime }
func (m *mockFileInfo) IsDir() bool        { return m.isDir }
func (m *mockFileInfo) Sys() any           { return m.mockFile }

// Compile-time check
var _ px.FilesystemManager = (*MockFilesystemManager)(nil)
