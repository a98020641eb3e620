// Package deps reports whether the external tools commentator shells out to
// are installed and capable.
package deps

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"commentator/internal/config"
)

// Requirement defines an external binary commentator relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// RequiredFilters are the ffmpeg filters timeline assembly builds its graph from.
var RequiredFilters = []string{"loudnorm", "volume", "atrim", "asetpts", "adelay", "amix", "aresample", "anullsrc"}

// Requirements lists the binaries configured for export and duration probing.
func Requirements(cfg *config.Config) []Requirement {
	ffmpeg, ffprobe := "ffmpeg", "ffprobe"
	if cfg != nil {
		ffmpeg, ffprobe = cfg.Export.FFmpegBinary, cfg.Export.FFprobeBinary
	}
	return []Requirement{
		{Name: "FFmpeg", Command: ffmpeg, Description: "Mixes commentary onto the recording"},
		{Name: "FFprobe", Command: ffprobe, Description: "Reads rendered clip durations"},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		status := Status{
			Name:        req.Name,
			Command:     strings.TrimSpace(req.Command),
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		switch {
		case status.Command == "":
			status.Detail = "command not configured"
		default:
			if resolved, err := exec.LookPath(status.Command); err != nil {
				status.Detail = fmt.Sprintf("binary %q not found", status.Command)
			} else {
				status.Available = true
				status.Command = resolved
			}
		}
		results = append(results, status)
	}
	return results
}

// OutputRunner runs a command and returns its stdout.
type OutputRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// CheckFilters asks ffmpeg for its filter list and reports which of the
// wanted filters are missing.
func CheckFilters(ctx context.Context, run OutputRunner, ffmpeg string, wanted []string) (Status, []string) {
	if run == nil {
		run = execOutput
	}
	status := Status{Name: "FFmpeg filters", Command: ffmpeg, Description: "Filters used by the mix graph"}
	out, err := run(ctx, ffmpeg, "-hide_banner", "-filters")
	if err != nil {
		status.Detail = fmt.Sprintf("list filters: %v", err)
		return status, append([]string(nil), wanted...)
	}
	available := parseFilterNames(out)
	var missing []string
	for _, name := range wanted {
		if _, ok := available[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		status.Detail = "missing: " + strings.Join(missing, ", ")
		return status, missing
	}
	status.Available = true
	return status, nil
}

// parseFilterNames reads `ffmpeg -filters` output, whose rows look like
// " TSC amix              N->A       Audio mixing.".
func parseFilterNames(output []byte) map[string]struct{} {
	names := make(map[string]struct{})
	for _, line := range bytes.Split(output, []byte("\n")) {
		fields := strings.Fields(string(line))
		if len(fields) < 3 || !strings.Contains(fields[2], "->") {
			continue
		}
		names[fields[1]] = struct{}{}
	}
	return names
}

func execOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}
