package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"commentator/internal/artifacts"
	"commentator/internal/config"
	"commentator/internal/logging"
	"commentator/internal/pacing"
	"commentator/internal/services"
	"commentator/internal/timeline"
	"commentator/internal/transcript"
)

// Options are the per-session settings.
type Options struct {
	ID         string
	WorkingDir string
	StateDir   string
	AudioExt   string
	VideoExts  []string
	Framerate  int
	Format     string
	// CapturePath is the raw frame removed on cancel, or empty.
	CapturePath string
	// RecordingStart defaults to the clock's current time.
	RecordingStart time.Time
}

// OptionsFromConfig derives session options from cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		WorkingDir: cfg.Paths.WorkingDir,
		StateDir:   cfg.Paths.StateDir,
		AudioExt:   cfg.TTS.AudioExt,
		VideoExts:  append([]string(nil), cfg.Export.VideoExts...),
		Framerate:  cfg.Export.Framerate,
		Format:     cfg.Export.Format,

		CapturePath: cfg.Vision.FramePath,
	}
}

// Deps are the collaborators a session drives.
type Deps struct {
	Generator Generator
	Renderer  Renderer
	Pacer     Pacer
	Assembler Assembler
	// Journal is optional.
	Journal Journal
	Clock   pacing.Clock
}

// Session is one recording session. It is safe for concurrent use; events
// are handled one at a time in arrival order.
type Session struct {
	id     string
	opts   Options
	deps   Deps
	lock   *artifacts.Lock
	logger *slog.Logger

	// flow serializes Handle, Finish, and Cancel.
	flow sync.Mutex

	mu        sync.Mutex
	start     time.Time
	state     State
	lines     int
	lastErr   string
	subs      map[int]chan Outcome
	nextSubID int
}

var errSessionClosed = errors.New("session already finished")

// New acquires the working-directory lock and starts a session.
func New(ctx context.Context, opts Options, deps Deps, logger *slog.Logger) (*Session, error) {
	if deps.Generator == nil || deps.Renderer == nil || deps.Pacer == nil || deps.Assembler == nil {
		return nil, errors.New("session requires generator, renderer, pacer, and assembler")
	}
	if strings.TrimSpace(opts.WorkingDir) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "session", "start", "working directory is empty", nil)
	}
	if deps.Clock == nil {
		deps.Clock = pacing.SystemClock{}
	}
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	start := opts.RecordingStart
	if start.IsZero() {
		start = deps.Clock.Now()
	}

	lock, err := artifacts.Acquire(opts.StateDir, opts.WorkingDir)
	if err != nil {
		return nil, err
	}
	s := &Session{
		id:     opts.ID,
		opts:   opts,
		deps:   deps,
		lock:   lock,
		logger: logging.WithSession(logging.NewComponentLogger(logger, "session"), opts.ID),
		start:  start,
		state:  StateActive,
		subs:   make(map[int]chan Outcome),
	}
	if deps.Journal != nil {
		if _, err := deps.Journal.BeginSession(ctx, s.id, opts.WorkingDir, start); err != nil {
			logging.WarnWithContext(s.logger, "journal unavailable for session", "journal_failed",
				logging.String(logging.FieldImpact, "lines are not recorded in the transcript"),
				logging.Error(err),
			)
			s.deps.Journal = nil
		}
	}
	s.logger.Info("session started",
		logging.String("working_dir", opts.WorkingDir),
		logging.String("recording_start", start.Format(time.RFC3339Nano)),
	)
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Handle runs one event through generate, render, and pace. The offset is
// taken when the call starts, before any backend work.
func (s *Session) Handle(ctx context.Context, ev Event) (Outcome, error) {
	s.flow.Lock()
	defer s.flow.Unlock()

	now := s.deps.Clock.Now()
	start, err := s.beginEvent(ev)
	if err != nil {
		return Outcome{}, err
	}
	offsetMs := now.Sub(start).Milliseconds()
	if offsetMs < 0 {
		return Outcome{}, services.Wrap(services.ErrValidation, "session", "offset",
			fmt.Sprintf("recording starts %s in the future", start.Sub(now)), nil)
	}

	ctx = services.WithOffset(services.WithStage(services.WithSessionID(ctx, s.id), "generate"), offsetMs)
	logger := logging.WithContext(ctx, s.logger)

	line, err := s.deps.Generator.Generate(ctx, ev.Request)
	if err != nil {
		return Outcome{}, s.fail(logger, "generate", err)
	}

	ctx = services.WithStage(ctx, "render")
	art, err := s.deps.Renderer.Render(ctx, line.Text, offsetMs, ev.Yelling, line.Voice)
	if err != nil {
		return Outcome{}, s.fail(logger, "render", err)
	}

	outcome := Outcome{
		SessionID:      s.id,
		OffsetMs:       offsetMs,
		Line:           line,
		Artifact:       art.Name,
		Spoken:         art.Spoken,
		Duration:       art.Duration,
		SpeechElapsed:  art.SynthesisElapsed,
		WindowTurns:    s.deps.Generator.Window().Len(),
		RecordingStart: start,
	}
	s.mu.Lock()
	s.lines++
	s.mu.Unlock()

	// Subscribers hear about the line as soon as the clip exists.
	s.publish(outcome)

	slack, err := s.deps.Pacer.Pace(services.WithStage(ctx, "pace"), art.Duration, art.SynthesisElapsed, line.TextElapsed)
	outcome.Slack = slack
	s.journal(ctx, logger, outcome)
	logger.Info("line spoken",
		logging.String(logging.FieldRole, string(line.Role)),
		logging.String(logging.FieldArtifact, art.Name),
		logging.Duration("clip", art.Duration),
		logging.Duration("slack", slack),
	)
	if err != nil {
		// The clip is on disk; only the wait was cut short.
		return outcome, err
	}
	return outcome, nil
}

func (s *Session) beginEvent(ev Event) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return time.Time{}, services.Wrap(services.ErrValidation, "session", "event", s.id, errSessionClosed)
	}
	if !ev.RecordingStart.IsZero() && !ev.RecordingStart.Equal(s.start) {
		if s.lines == 0 {
			s.start = ev.RecordingStart
		} else {
			s.logger.Warn("ignoring changed recording start after first line",
				logging.String("requested", ev.RecordingStart.Format(time.RFC3339Nano)),
				logging.String("session", s.start.Format(time.RFC3339Nano)),
			)
		}
	}
	return s.start, nil
}

func (s *Session) fail(logger *slog.Logger, stage string, err error) error {
	s.mu.Lock()
	s.lastErr = err.Error()
	s.mu.Unlock()
	if errors.Is(err, context.Canceled) {
		logger.Debug("event interrupted", logging.String(logging.FieldStage, stage))
		return err
	}
	logging.WarnWithContext(logger, "event dropped", "event_dropped",
		logging.String(logging.FieldStage, stage),
		logging.String(logging.FieldErrorKind, services.Kind(err)),
		logging.Error(err),
	)
	return err
}

func (s *Session) journal(ctx context.Context, logger *slog.Logger, o Outcome) {
	if s.deps.Journal == nil {
		return
	}
	// The journal write must land even if the pacing wait was cancelled.
	ctx = context.WithoutCancel(ctx)
	_, err := s.deps.Journal.AppendLine(ctx, transcript.Line{
		SessionID:   s.id,
		OffsetMs:    o.OffsetMs,
		Role:        string(o.Line.Role),
		Voice:       o.Line.Voice,
		Text:        o.Line.Text,
		Spoken:      o.Spoken,
		Artifact:    o.Artifact,
		Duration:    o.Duration,
		TextElapsed: o.Line.TextElapsed,
		SpeechTime:  o.SpeechElapsed,
		Slack:       o.Slack,
		Vision:      o.Line.Vision,
	})
	if err != nil {
		logging.WarnWithContext(logger, "failed to journal line", "journal_failed", logging.Error(err))
	}
}

// Finish exports the session to output. An empty output cancels instead.
// A failed export leaves the session active so the operator can retry.
func (s *Session) Finish(ctx context.Context, output string) (timeline.Result, error) {
	if strings.TrimSpace(output) == "" {
		_, err := s.Cancel(ctx)
		return timeline.Result{}, err
	}
	s.flow.Lock()
	defer s.flow.Unlock()
	if err := s.ensureActive(); err != nil {
		return timeline.Result{}, err
	}

	ctx = services.WithStage(services.WithSessionID(ctx, s.id), "export")
	result, err := s.deps.Assembler.Assemble(ctx, timeline.Request{
		WorkingDir: s.opts.WorkingDir,
		OutputPath: output,
		Framerate:  s.opts.Framerate,
		Format:     s.opts.Format,
	})
	if err != nil {
		s.fail(logging.WithContext(ctx, s.logger), "export", err)
		return timeline.Result{}, err
	}
	s.end(ctx, StateExported, transcript.StateExported, result.OutputPath)
	return result, nil
}

// Cancel deletes the session's clips, the newest recording, and the frame
// without exporting.
func (s *Session) Cancel(ctx context.Context) (artifacts.Report, error) {
	s.flow.Lock()
	defer s.flow.Unlock()
	if err := s.ensureActive(); err != nil {
		return artifacts.Report{}, err
	}

	plan, scanErr := artifacts.SweepPlan(s.opts.WorkingDir, s.opts.AudioExt, s.opts.VideoExts, s.opts.CapturePath)
	report, err := artifacts.Cleanup(s.opts.WorkingDir, plan)
	s.end(ctx, StateCancelled, transcript.StateCancelled, "")
	if err = errors.Join(scanErr, err); err != nil {
		logging.WarnWithContext(s.logger, "cancel left files behind", "cleanup_incomplete", logging.Error(err))
		return report, err
	}
	s.logger.Info("session cancelled", logging.Int("removed", len(report.Removed)))
	return report, nil
}

func (s *Session) ensureActive() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return services.Wrap(services.ErrValidation, "session", string(s.state), s.id, errSessionClosed)
	}
	return nil
}

func (s *Session) end(ctx context.Context, state State, journalState transcript.State, output string) {
	s.mu.Lock()
	s.state = state
	subs := s.subs
	s.subs = make(map[int]chan Outcome)
	s.mu.Unlock()

	for _, ch := range subs {
		close(ch)
	}
	if s.deps.Journal != nil {
		if err := s.deps.Journal.FinishSession(context.WithoutCancel(ctx), s.id, journalState, output, ""); err != nil {
			logging.WarnWithContext(s.logger, "failed to journal session end", "journal_failed", logging.Error(err))
		}
	}
	if err := s.lock.Release(); err != nil {
		s.logger.Warn("failed to release working directory lock", logging.Error(err))
	}
}

// Close releases the lock of a session that never finished. The working
// directory is left as is.
func (s *Session) Close() error {
	s.mu.Lock()
	active := s.state == StateActive
	subs := s.subs
	s.subs = make(map[int]chan Outcome)
	s.mu.Unlock()
	for _, ch := range subs {
		close(ch)
	}
	if !active {
		return nil
	}
	return s.lock.Release()
}

// Status reports the session's current state.
func (s *Session) Status() Status {
	s.mu.Lock()
	status := Status{
		ID:             s.id,
		State:          s.state,
		WorkingDir:     s.opts.WorkingDir,
		RecordingStart: s.start,
		Lines:          s.lines,
		LockPath:       s.lock.Path(),
		LastError:      s.lastErr,
	}
	s.mu.Unlock()
	status.WindowTurns = s.deps.Generator.Window().Len()
	if clips, _ := artifacts.ScanAudio(s.opts.WorkingDir, s.opts.AudioExt); clips != nil {
		status.PendingClips = len(clips)
	}
	return status
}

// Subscribe returns a channel of spoken lines and a function that stops the
// subscription. Slow subscribers miss lines rather than stall the session.
func (s *Session) Subscribe(buffer int) (<-chan Outcome, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Outcome, buffer)
	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if sub, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(sub)
			}
		})
	}
}

func (s *Session) publish(o Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- o:
		default:
		}
	}
}
