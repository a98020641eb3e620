package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"commentator/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "timeline", "ffmpeg", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"timeline", "ffmpeg", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToBackendMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrBackend) {
		t.Fatalf("expected backend marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %q", err.Error())
	}
}

func TestKindMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"configuration", services.Wrap(services.ErrConfiguration, "prompt", "role", "unknown", nil), services.KindConfiguration},
		{"backend", services.Wrap(services.ErrBackend, "llm", "complete", "", errors.New("502")), services.KindBackend},
		{"timeout beats backend", fmt.Errorf("%w: %w", services.ErrBackend, services.ErrTimeout), services.KindTimeout},
		{"artifact", services.Wrap(services.ErrArtifact, "timeline", "scan", "bad name", nil), services.KindArtifact},
		{"busy", services.ErrBusy, services.KindBusy},
		{"cancelled", fmt.Errorf("wait: %w", context.Canceled), services.KindCancelled},
		{"other", errors.New("mystery"), services.KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := services.Kind(tt.err); got != tt.want {
				t.Fatalf("Kind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFatalOnlyForConfiguration(t *testing.T) {
	if !services.Fatal(services.Wrap(services.ErrConfiguration, "llm", "tier", "unknown", nil)) {
		t.Fatal("expected configuration error to be fatal")
	}
	if services.Fatal(services.Wrap(services.ErrBackend, "llm", "complete", "", nil)) {
		t.Fatal("expected backend error to be non-fatal")
	}
}
