package artifacts

import (
	"errors"
	"path/filepath"

	"commentator/internal/fileutil"
	"commentator/internal/services"
)

// Plan lists the files a cleanup removes.
type Plan struct {
	Clips []Clip
	// Video is the consumed recording path, or empty.
	Video string
	// Frame removes screenshot.png from the directory when set.
	Frame bool
	// Capture is the raw frame the capture tool writes, or empty.
	Capture string
}

// Report is the outcome of a cleanup.
type Report struct {
	Removed []string
	Missing []string
}

// Cleanup deletes everything in plan. Files that are already gone are
// recorded as missing, not failures; other removal errors are joined and
// returned after every file has been attempted.
func Cleanup(dir string, plan Plan) (Report, error) {
	var (
		report Report
		errs   []error
	)
	paths := make([]string, 0, len(plan.Clips)+3)
	for _, clip := range plan.Clips {
		paths = append(paths, clip.Path)
	}
	if plan.Video != "" {
		paths = append(paths, plan.Video)
	}
	frame := filepath.Join(dir, FrameName)
	if plan.Frame {
		paths = append(paths, frame)
	}
	if plan.Capture != "" && !(plan.Frame && filepath.Clean(plan.Capture) == frame) {
		paths = append(paths, plan.Capture)
	}
	for _, path := range paths {
		removed, err := fileutil.RemoveIfExists(path)
		switch {
		case err != nil:
			errs = append(errs, err)
		case removed:
			report.Removed = append(report.Removed, path)
		default:
			report.Missing = append(report.Missing, path)
		}
	}
	if len(errs) > 0 {
		return report, services.Wrap(services.ErrArtifact, "artifacts", "cleanup", dir, errors.Join(errs...))
	}
	return report, nil
}

// SweepPlan builds the cancellation plan for dir: every well-formed clip, the
// newest video if any, the frame, and capture when it is set. Malformed clip
// names are left in place and reported through the returned error.
func SweepPlan(dir, audioExt string, videoExts []string, capture string) (Plan, error) {
	clips, scanErr := ScanAudio(dir, audioExt)
	plan := Plan{Clips: clips, Frame: true, Capture: capture}
	if video, err := LatestVideo(dir, videoExts); err == nil {
		plan.Video = video.Path
	}
	return plan, scanErr
}
