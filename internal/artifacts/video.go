package artifacts

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"commentator/internal/services"
)

// Video is a recording candidate in the working directory.
type Video struct {
	Name      string
	Path      string
	CreatedAt time.Time
}

// createdAtFunc reports when a file was created.
type createdAtFunc func(path string, info fs.FileInfo) time.Time

// LatestVideo returns the most recently created video in dir whose extension
// is one of exts. Creation time is the file birth time where the filesystem
// records one and the modification time otherwise. Equal times resolve to the
// lexicographically greatest name. No candidate is an artifact error.
func LatestVideo(dir string, exts []string) (Video, error) {
	return latestVideo(dir, exts, fileCreatedAt)
}

func latestVideo(dir string, exts []string, createdAt createdAtFunc) (Video, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Video{}, services.Wrap(services.ErrArtifact, "artifacts", "select video", dir, err)
	}
	wanted := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		wanted["."+strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}

	var best Video
	found := false
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || strings.HasPrefix(name, ".") {
			continue
		}
		if _, ok := wanted[strings.ToLower(filepath.Ext(name))]; !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(dir, name)
		candidate := Video{Name: name, Path: path, CreatedAt: createdAt(path, info)}
		if !found || newer(candidate, best) {
			best = candidate
			found = true
		}
	}
	if !found {
		return Video{}, services.Wrap(services.ErrArtifact, "artifacts", "select video",
			fmt.Sprintf("no video with extension %v in %s", exts, dir), nil)
	}
	return best, nil
}

func newer(a, b Video) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.Name > b.Name
	}
	return a.CreatedAt.After(b.CreatedAt)
}
