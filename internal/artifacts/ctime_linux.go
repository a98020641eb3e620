//go:build linux

package artifacts

import (
	"io/fs"
	"time"

	"golang.org/x/sys/unix"
)

func fileCreatedAt(path string, info fs.FileInfo) time.Time {
	var stx unix.Statx_t
	if err := unix.Statx(unix.AT_FDCWD, path, unix.AT_SYMLINK_NOFOLLOW, unix.STATX_BTIME, &stx); err == nil {
		if stx.Mask&unix.STATX_BTIME != 0 && stx.Btime.Sec != 0 {
			return time.Unix(stx.Btime.Sec, int64(stx.Btime.Nsec))
		}
	}
	return info.ModTime()
}
