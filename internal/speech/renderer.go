package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"commentator/internal/artifacts"
	"commentator/internal/fileutil"
	"commentator/internal/logging"
	"commentator/internal/services"
	"commentator/internal/services/tts"
)

// Synthesizer streams synthesized speech for a request.
type Synthesizer interface {
	Synthesize(ctx context.Context, req tts.Request, dst io.Writer) (int64, error)
}

// DurationReader reports the playback length of an audio file in seconds.
type DurationReader interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Artifact is a rendered clip.
type Artifact struct {
	Name     string
	Path     string
	OffsetMs int64
	// Spoken is the text after transforms, as sent to the synthesizer.
	Spoken   string
	Duration time.Duration
	// SynthesisElapsed covers synthesis, the atomic write, and the duration read-back.
	SynthesisElapsed time.Duration
	Bytes            int64
}

// Renderer writes clips into one working directory.
type Renderer struct {
	synth  Synthesizer
	probe  DurationReader
	dir    string
	ext    string
	now    func() time.Time
	logger *slog.Logger
}

// Option customizes a Renderer.
type Option func(*Renderer)

// WithNow replaces the clock used to measure synthesis time.
func WithNow(now func() time.Time) Option {
	return func(r *Renderer) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRenderer returns a renderer writing <dir>/commentary_<offset>.<ext>.
func NewRenderer(synth Synthesizer, probe DurationReader, dir, ext string, logger *slog.Logger, opts ...Option) *Renderer {
	r := &Renderer{
		synth:  synth,
		probe:  probe,
		dir:    dir,
		ext:    strings.TrimPrefix(ext, "."),
		now:    time.Now,
		logger: logging.NewComponentLogger(logger, "speech"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render synthesizes text with voice and persists it as the clip for offsetMs.
func (r *Renderer) Render(ctx context.Context, text string, offsetMs int64, yelling bool, voice string) (Artifact, error) {
	start := r.now()
	logger := logging.WithContext(ctx, r.logger)

	if strings.TrimSpace(voice) == "" {
		return Artifact{}, services.Wrap(services.ErrConfiguration, "speech", "render", "voice is not configured", nil)
	}
	if offsetMs < 0 {
		return Artifact{}, services.Wrap(services.ErrValidation, "speech", "render", fmt.Sprintf("negative offset %d", offsetMs), nil)
	}
	spoken := Prepare(text, yelling)
	if spoken == "" {
		return Artifact{}, services.Wrap(services.ErrValidation, "speech", "render", "text is empty", nil)
	}

	name := artifacts.FormatName(offsetMs, r.ext)
	path := filepath.Join(r.dir, name)
	if _, err := os.Stat(path); err == nil {
		return Artifact{}, services.Wrap(services.ErrArtifact, "speech", "render", name+" already exists", nil)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return Artifact{}, services.Wrap(services.ErrArtifact, "speech", "render", name, err)
	}

	var written int64
	err := fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		n, err := r.synth.Synthesize(ctx, tts.Request{Text: spoken, VoiceID: voice}, w)
		written = n
		return err
	})
	if err != nil {
		if services.Kind(err) == services.KindInternal {
			err = services.Wrap(services.ErrArtifact, "speech", "write clip", name, err)
		}
		return Artifact{}, err
	}

	seconds, err := r.probe.Duration(ctx, path)
	if err != nil {
		if _, rmErr := fileutil.RemoveIfExists(path); rmErr != nil {
			logging.WarnWithContext(logger, "unreadable clip could not be removed", "speech_clip_cleanup_failed",
				logging.String(logging.FieldArtifact, name),
				logging.Error(rmErr),
				logging.String(logging.FieldImpact, "assembly will reject this clip"),
				logging.String(logging.FieldErrorHint, "delete the file manually"),
			)
		}
		return Artifact{}, err
	}

	artifact := Artifact{
		Name:             name,
		Path:             path,
		OffsetMs:         offsetMs,
		Spoken:           spoken,
		Duration:         time.Duration(seconds * float64(time.Second)),
		SynthesisElapsed: r.now().Sub(start),
		Bytes:            written,
	}
	logger.Info("clip rendered",
		logging.String(logging.FieldArtifact, name),
		logging.String(logging.FieldVoice, voice),
		logging.Duration("duration", artifact.Duration),
		logging.Duration(logging.FieldElapsed, artifact.SynthesisElapsed),
		logging.Int64("bytes", written),
	)
	return artifact, nil
}

// Dir returns the directory clips are written to.
func (r *Renderer) Dir() string {
	return r.dir
}
