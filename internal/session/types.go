package session

import (
	"context"
	"time"

	"commentator/internal/commentary"
	"commentator/internal/conversation"
	"commentator/internal/speech"
	"commentator/internal/timeline"
	"commentator/internal/transcript"
)

// Generator produces commentary lines.
type Generator interface {
	Generate(ctx context.Context, req commentary.Request) (commentary.Line, error)
	Window() *conversation.Window
}

// Renderer turns text into a clip on disk.
type Renderer interface {
	Render(ctx context.Context, text string, offsetMs int64, yelling bool, voice string) (speech.Artifact, error)
}

// Pacer blocks the flow until the rendered clip has played out.
type Pacer interface {
	Pace(ctx context.Context, rendered, speechElapsed, textElapsed time.Duration) (time.Duration, error)
}

// Assembler exports the working directory.
type Assembler interface {
	Assemble(ctx context.Context, req timeline.Request) (timeline.Result, error)
}

// Journal records sessions and lines. Journal failures never fail a line.
type Journal interface {
	BeginSession(ctx context.Context, id, workingDir string, recordingStart time.Time) (*transcript.Session, error)
	FinishSession(ctx context.Context, id string, state transcript.State, outputPath, message string) error
	AppendLine(ctx context.Context, line transcript.Line) (int64, error)
}

// Event is one detected race event.
type Event struct {
	commentary.Request
	// RecordingStart is the event source's recording reference. It is adopted
	// when the session has not spoken yet.
	RecordingStart time.Time `json:"recording_start,omitzero"`
}

// Outcome is a spoken line with its timing.
type Outcome struct {
	SessionID string          `json:"session_id"`
	OffsetMs  int64           `json:"offset_ms"`
	Line      commentary.Line `json:"line"`
	Artifact  string          `json:"artifact"`
	Spoken    string          `json:"spoken"`
	// Duration is the rendered clip length.
	Duration       time.Duration `json:"duration"`
	SpeechElapsed  time.Duration `json:"speech_elapsed"`
	Slack          time.Duration `json:"slack"`
	WindowTurns    int           `json:"window_turns"`
	RecordingStart time.Time     `json:"recording_start"`
}

// State is the session lifecycle state.
type State string

const (
	StateActive    State = "active"
	StateExported  State = "exported"
	StateCancelled State = "cancelled"
)

// Status is a point-in-time view of the session.
type Status struct {
	ID             string    `json:"id"`
	State          State     `json:"state"`
	WorkingDir     string    `json:"working_dir"`
	RecordingStart time.Time `json:"recording_start"`
	Lines          int       `json:"lines"`
	WindowTurns    int       `json:"window_turns"`
	PendingClips   int       `json:"pending_clips"`
	LockPath       string    `json:"lock_path"`
	LastError      string    `json:"last_error,omitempty"`
}
