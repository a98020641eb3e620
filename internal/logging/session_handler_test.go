package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestWithSessionStampsRecords(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil)).With("component", "session")
	logger := WithSession(base, "4b1f0c2e").With("extra", "value")
	logger.Info("line generated")

	output := buf.String()
	for _, want := range []string{`"session_id":"4b1f0c2e"`, `"extra":"value"`, `"component":"session"`} {
		if !strings.Contains(output, want) {
			t.Fatalf("expected %s in output, got: %s", want, output)
		}
	}
}

func TestSessionHandlerNilBase(t *testing.T) {
	if _, ok := newSessionHandler(nil, "x").(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when base is nil")
	}
	if WithSession(nil, "x") == nil {
		t.Fatal("expected non-nil logger")
	}
}
