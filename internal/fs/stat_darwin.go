//go:build darwin

package fs

import (
	"io/fs"
	"syscall"
	"time"

	"pxs/internal/px"
)

// ExtractTimes uses the birth time recorded by APFS and HFS+.
func (m *OSFilesystemManager) ExtractTimes(info fs.FileInfo) px.FileTimes {
	times := px.FileTimes{CreatedAt: info.ModTime(), UpdatedAt: info.ModTime()}
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return times
	}
	times.CreatedAt = time.Unix(int64(stat.Birthtimespec.Sec), int64(stat.Birthtimespec.Nsec))
	return times
}
