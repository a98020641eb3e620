package transcript

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"commentator/internal/config"
	"commentator/internal/services"
)

// Store is the SQLite-backed journal.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// OpenFromConfig opens the journal at the configured transcript path.
func OpenFromConfig(ctx context.Context, cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return Open(ctx, cfg.TranscriptPath())
}

// Open initializes or connects to the journal at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, services.Wrap(services.ErrArtifact, "transcript", "open", "create directory", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer keeps SQLite from returning SQLITE_BUSY inside this process.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BeginSession records a new active session.
func (s *Store) BeginSession(ctx context.Context, id, workingDir string, recordingStart time.Time) (*Session, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("session id is required")
	}
	now := time.Now().UTC()
	_, err := s.execWithRetry(ctx,
		`INSERT INTO sessions (id, working_dir, recording_start, state, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		id,
		workingDir,
		formatTime(recordingStart),
		StateActive,
		formatTime(now),
		formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return s.Session(ctx, id)
}

// FinishSession moves a session to its terminal state.
func (s *Store) FinishSession(ctx context.Context, id string, state State, outputPath, message string) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE sessions SET state = ?, output_path = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		state,
		nullableString(outputPath),
		nullableString(message),
		formatTime(time.Now().UTC()),
		id,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("session %s not found", id)
	}
	return nil
}

// AppendLine records a spoken line and returns its row id.
func (s *Store) AppendLine(ctx context.Context, line Line) (int64, error) {
	created := line.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	res, err := s.execWithRetry(ctx,
		`INSERT INTO lines (
            session_id, offset_ms, role, voice, text, spoken, artifact,
            duration_ms, text_ms, speech_ms, slack_ms, vision, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		line.SessionID,
		line.OffsetMs,
		line.Role,
		line.Voice,
		line.Text,
		line.Spoken,
		line.Artifact,
		line.Duration.Milliseconds(),
		line.TextElapsed.Milliseconds(),
		line.SpeechTime.Milliseconds(),
		line.Slack.Milliseconds(),
		boolToInt(line.Vision),
		formatTime(created),
	)
	if err != nil {
		return 0, fmt.Errorf("insert line: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

const sessionColumns = "s.id, s.working_dir, s.recording_start, s.state, s.output_path, s.error_message, s.created_at, s.updated_at, (SELECT COUNT(1) FROM lines l WHERE l.session_id = s.id)"

// Session fetches one session, or nil when it does not exist.
func (s *Store) Session(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions s WHERE s.id = ?`, id)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

// Latest returns the most recently created session, or nil.
func (s *Store) Latest(ctx context.Context) (*Session, error) {
	sessions, err := s.Sessions(ctx, 1)
	if err != nil || len(sessions) == 0 {
		return nil, err
	}
	return sessions[0], nil
}

// Sessions lists sessions newest first. limit <= 0 returns all of them.
func (s *Store) Sessions(ctx context.Context, limit int) ([]*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions s ORDER BY s.created_at DESC, s.rowid DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// Lines returns a session's lines ordered by offset.
func (s *Store) Lines(ctx context.Context, sessionID string) ([]Line, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, offset_ms, role, voice, text, spoken, artifact,
                duration_ms, text_ms, speech_ms, slack_ms, vision, created_at
         FROM lines WHERE session_id = ? ORDER BY offset_ms, id`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list lines: %w", err)
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	backoff := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		res, err := s.db.ExecContext(ctx, query, args...)
		if err == nil {
			return res, nil
		}
		if !isSQLiteBusy(err) {
			return nil, err
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, busyRetryMaxBackoff)
	}
	return nil, lastErr
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
