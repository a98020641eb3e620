//go:build !linux

package artifacts

import (
	"io/fs"
	"time"
)

func fileCreatedAt(_ string, info fs.FileInfo) time.Time {
	return info.ModTime()
}
