package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration = errors.New("configuration error")
	ErrBackend       = errors.New("backend error")
	ErrArtifact      = errors.New("artifact error")
	ErrTimeout       = errors.New("timeout")
	ErrValidation    = errors.New("validation error")
	ErrExternalTool  = errors.New("external tool error")
	ErrBusy          = errors.New("working directory busy")
)

// Kind labels used when surfacing errors to operators and API clients.
const (
	KindConfiguration = "configuration"
	KindBackend       = "backend"
	KindArtifact      = "artifact"
	KindTimeout       = "timeout"
	KindValidation    = "validation"
	KindExternalTool  = "external_tool"
	KindBusy          = "busy"
	KindCancelled     = "cancelled"
	KindInternal      = "internal"
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrBackend
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind maps an error onto its taxonomy label. Timeouts win over the backend
// marker because a timed-out backend call is reported as a timeout.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrBackend):
		return KindBackend
	case errors.Is(err, ErrArtifact):
		return KindArtifact
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrExternalTool):
		return KindExternalTool
	case errors.Is(err, ErrBusy):
		return KindBusy
	case errors.Is(err, errCancelled):
		return KindCancelled
	default:
		return KindInternal
	}
}

// Fatal reports whether the error should stop the session rather than drop the
// current line.
func Fatal(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
