package logging

import (
	"context"
	"log/slog"

	"commentator/internal/services"
)

// Standard structured logging keys.
const (
	FieldComponent  = "component"
	FieldSessionID  = "session_id"
	FieldStage      = "stage"
	FieldOffsetMs   = "offset_ms"
	FieldRequestID  = "request_id"
	FieldRole       = "role"
	FieldArtifact   = "artifact"
	FieldVoice      = "voice"
	FieldEventType  = "event_type"
	FieldErrorHint  = "error_hint"
	FieldErrorKind  = "error_kind"
	FieldImpact     = "impact"
	FieldError      = "error"
	FieldElapsed    = "elapsed"
	FieldWindowSize = "window_turns"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.SessionIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldSessionID, id))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if offset, ok := services.OffsetFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldOffsetMs, offset))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRequestID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
