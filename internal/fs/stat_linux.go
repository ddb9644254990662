//go:build linux

package fs

import (
	"io/fs"
	"syscall"
	"time"

	"pxs/internal/px"
)

// ExtractTimes reports ctime as the creation time: Stat_t carries no birth
// time on Linux. Whichever of ctime and mtime is earlier wins.
func (m *OSFilesystemManager) ExtractTimes(info fs.FileInfo) px.FileTimes {
	times := px.FileTimes{CreatedAt: info.ModTime(), UpdatedAt: info.ModTime()}
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return times
	}
	ctime := time.Unix(int64(stat.Ctim.Sec), int64(stat.Ctim.Nsec))
	if ctime.Before(times.CreatedAt) {
		times.CreatedAt = ctime
	}
	return times
}
