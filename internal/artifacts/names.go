package artifacts

import (
	"fmt"
	"strconv"
	"strings"

	"commentator/internal/services"
)

// ClipPrefix starts every commentary clip name.
const ClipPrefix = "commentary_"

// FrameName is the captured frame kept in the working directory.
const FrameName = "screenshot.png"

// FormatName returns the clip file name for an offset in milliseconds.
func FormatName(offsetMs int64, ext string) string {
	return ClipPrefix + strconv.FormatInt(offsetMs, 10) + "." + strings.TrimPrefix(ext, ".")
}

// ParseName recovers the offset from a clip name. The name must be exactly
// commentary_<digits>.<ext>: no sign, no leading zeros, no extra suffixes.
func ParseName(name, ext string) (int64, error) {
	ext = strings.TrimPrefix(ext, ".")
	fail := func(reason string) (int64, error) {
		return 0, services.Wrap(services.ErrArtifact, "artifacts", "parse name",
			fmt.Sprintf("%q: %s", name, reason), nil)
	}
	rest, ok := strings.CutPrefix(name, ClipPrefix)
	if !ok {
		return fail("missing " + ClipPrefix + " prefix")
	}
	digits, ok := strings.CutSuffix(rest, "."+ext)
	if !ok || ext == "" {
		return fail("extension is not ." + ext)
	}
	if digits == "" {
		return fail("empty offset")
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return fail("offset is not a non-negative decimal integer")
		}
	}
	if len(digits) > 1 && digits[0] == '0' {
		return fail("offset has leading zeros")
	}
	offset, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return fail("offset out of range")
	}
	return offset, nil
}
