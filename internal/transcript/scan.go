package transcript

import (
	"database/sql"
	"time"
)

func scanSession(scanner interface{ Scan(dest ...any) error }) (*Session, error) {
	var (
		session      Session
		state        string
		startRaw     string
		outputPath   sql.NullString
		errorMessage sql.NullString
		createdRaw   string
		updatedRaw   string
	)
	if err := scanner.Scan(
		&session.ID,
		&session.WorkingDir,
		&startRaw,
		&state,
		&outputPath,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
		&session.LineCount,
	); err != nil {
		return nil, err
	}
	session.State = State(state)
	session.OutputPath = outputPath.String
	session.ErrorMessage = errorMessage.String
	session.RecordingStart = parseTime(startRaw)
	session.CreatedAt = parseTime(createdRaw)
	session.UpdatedAt = parseTime(updatedRaw)
	return &session, nil
}

func scanLine(scanner interface{ Scan(dest ...any) error }) (Line, error) {
	var (
		line       Line
		durationMs int64
		textMs     int64
		speechMs   int64
		slackMs    int64
		vision     int64
		createdRaw string
	)
	if err := scanner.Scan(
		&line.ID,
		&line.SessionID,
		&line.OffsetMs,
		&line.Role,
		&line.Voice,
		&line.Text,
		&line.Spoken,
		&line.Artifact,
		&durationMs,
		&textMs,
		&speechMs,
		&slackMs,
		&vision,
		&createdRaw,
	); err != nil {
		return Line{}, err
	}
	line.Duration = time.Duration(durationMs) * time.Millisecond
	line.TextElapsed = time.Duration(textMs) * time.Millisecond
	line.SpeechTime = time.Duration(speechMs) * time.Millisecond
	line.Slack = time.Duration(slackMs) * time.Millisecond
	line.Vision = vision != 0
	line.CreatedAt = parseTime(createdRaw)
	return line, nil
}

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
