package transcript

import "time"

// State is where a session is in its lifecycle.
type State string

const (
	StateActive    State = "active"
	StateExported  State = "exported"
	StateCancelled State = "cancelled"
	StateFailed    State = "failed"
)

// Session is one recording session.
type Session struct {
	ID             string
	WorkingDir     string
	RecordingStart time.Time
	State          State
	OutputPath     string
	ErrorMessage   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	// LineCount is filled by listing queries.
	LineCount int
}

// Line is one spoken commentary line.
type Line struct {
	ID        int64
	SessionID string
	OffsetMs  int64
	Role      string
	Voice     string
	Text      string
	// Spoken is the text after speech transforms.
	Spoken      string
	Artifact    string
	Duration    time.Duration
	TextElapsed time.Duration
	SpeechTime  time.Duration
	Slack       time.Duration
	Vision      bool
	CreatedAt   time.Time
}
