package api

import (
	"time"

	"commentator/internal/session"
)

// FinishRequest asks for an export. An empty Output cancels the session.
type FinishRequest struct {
	Output string `json:"output"`
}

// FinishResponse reports a completed export or cancellation.
type FinishResponse struct {
	SessionID  string   `json:"session_id"`
	Cancelled  bool     `json:"cancelled"`
	OutputPath string   `json:"output_path,omitempty"`
	Clips      int      `json:"clips"`
	Skipped    []string `json:"skipped,omitempty"`
	Removed    []string `json:"removed"`
	ElapsedMs  int64    `json:"elapsed_ms,omitempty"`
}

// CancelResponse reports a sweep of the working directory.
type CancelResponse struct {
	SessionID string   `json:"session_id"`
	Removed   []string `json:"removed"`
	Missing   []string `json:"missing"`
}

// StatusResponse describes the server and its current session, if any.
type StatusResponse struct {
	Active  bool            `json:"active"`
	Session *session.Status `json:"session,omitempty"`
	Uptime  string          `json:"uptime"`
	Clients int             `json:"stream_clients"`
	Now     time.Time       `json:"now"`
}
