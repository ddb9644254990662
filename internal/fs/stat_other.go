//go:build !linux && !darwin

package fs

import (
	"io/fs"

	"pxs/internal/px"
)

// ExtractTimes falls back to the modification time for both fields.
func (m *OSFilesystemManager) ExtractTimes(info fs.FileInfo) px.FileTimes {
	return px.FileTimes{CreatedAt: info.ModTime(), UpdatedAt: info.ModTime()}
}
