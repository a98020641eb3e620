package artifacts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"commentator/internal/services"
)

// Clip is a rendered commentary file found in the working directory.
type Clip struct {
	Name     string
	Path     string
	OffsetMs int64
}

// ScanAudio lists clips in dir with the given extension, ordered by offset.
// Files that carry the clip prefix and extension but do not parse are
// reported together as an artifact error; the well-formed clips are still
// returned so cancellation can remove them. Hidden files are ignored.
func ScanAudio(dir, ext string) ([]Clip, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, services.Wrap(services.ErrArtifact, "artifacts", "scan", dir, err)
	}
	ext = strings.TrimPrefix(ext, ".")
	var (
		clips     []Clip
		malformed []error
	)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if !strings.HasPrefix(name, ClipPrefix) || !strings.HasSuffix(name, "."+ext) {
			continue
		}
		offset, err := ParseName(name, ext)
		if err != nil {
			malformed = append(malformed, err)
			continue
		}
		clips = append(clips, Clip{Name: name, Path: filepath.Join(dir, name), OffsetMs: offset})
	}
	sort.Slice(clips, func(i, j int) bool { return clips[i].OffsetMs < clips[j].OffsetMs })
	if len(malformed) > 0 {
		return clips, services.Wrap(services.ErrArtifact, "artifacts", "scan",
			fmt.Sprintf("%d malformed clip name(s) in %s", len(malformed), dir), errors.Join(malformed...))
	}
	return clips, nil
}
