package timeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"commentator/internal/artifacts"
	"commentator/internal/config"
	"commentator/internal/fileutil"
	"commentator/internal/logging"
	"commentator/internal/media/ffprobe"
	"commentator/internal/services"
)

// Prober inspects media files.
type Prober interface {
	Inspect(ctx context.Context, path string) (ffprobe.Result, error)
	Duration(ctx context.Context, path string) (float64, error)
}

// Settings controls how the export is rendered.
type Settings struct {
	FFmpeg         string
	BaseVolume     float64
	TailTrim       time.Duration
	LoudnessTarget float64
	SampleRate     int
	VideoCodec     string
	AudioCodec     string
	AudioExt       string
	VideoExts      []string
	// CapturePath is the raw frame removed with the consumed files.
	CapturePath string
}

// SettingsFromConfig extracts export settings from cfg.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		FFmpeg:         cfg.Export.FFmpegBinary,
		BaseVolume:     cfg.Mix.BaseVolume,
		TailTrim:       time.Duration(cfg.Mix.TailTrimMillis) * time.Millisecond,
		LoudnessTarget: cfg.Mix.LoudnessTarget,
		SampleRate:     cfg.Mix.SampleRate,
		VideoCodec:     cfg.Export.VideoCodec,
		AudioCodec:     cfg.Export.AudioCodec,
		AudioExt:       cfg.TTS.AudioExt,
		VideoExts:      append([]string(nil), cfg.Export.VideoExts...),
		CapturePath:    cfg.Vision.FramePath,
	}
}

// Request describes one export.
type Request struct {
	WorkingDir string
	OutputPath string
	Framerate  int
	// Format selects the container; empty derives it from OutputPath.
	Format string
}

// Result summarizes a finished export.
type Result struct {
	OutputPath string
	Video      artifacts.Video
	Clips      []artifacts.Clip
	// Skipped lists clips left out of the mix because they were too short.
	Skipped []artifacts.Clip
	Cleanup artifacts.Report
	Elapsed time.Duration
}

// Assembler renders exports with ffmpeg.
type Assembler struct {
	settings Settings
	probe    Prober
	run      commandRunner
	logger   *slog.Logger
}

// NewAssembler constructs an assembler.
func NewAssembler(settings Settings, probe Prober, logger *slog.Logger) *Assembler {
	if settings.FFmpeg == "" {
		settings.FFmpeg = "ffmpeg"
	}
	if settings.SampleRate <= 0 {
		settings.SampleRate = 44100
	}
	if settings.AudioCodec == "" {
		settings.AudioCodec = "aac"
	}
	return &Assembler{
		settings: settings,
		probe:    probe,
		run:      defaultCommandRunner,
		logger:   logging.NewComponentLogger(logger, "timeline"),
	}
}

// WithCommandRunner overrides the ffmpeg invocation (used in tests).
func (a *Assembler) WithCommandRunner(run func(ctx context.Context, stdout io.Writer, name string, args ...string) error) {
	if a == nil || run == nil {
		return
	}
	a.run = run
}

// Assemble mixes every clip in the working directory onto the newest
// recording and writes the result to OutputPath.
func (a *Assembler) Assemble(ctx context.Context, req Request) (Result, error) {
	started := time.Now()
	if strings.TrimSpace(req.WorkingDir) == "" {
		return Result{}, services.Wrap(services.ErrValidation, "timeline", "request", "working directory is empty", nil)
	}
	if strings.TrimSpace(req.OutputPath) == "" {
		return Result{}, services.Wrap(services.ErrValidation, "timeline", "request", "output path is empty", nil)
	}
	if req.Framerate <= 0 {
		return Result{}, services.Wrap(services.ErrValidation, "timeline", "request", fmt.Sprintf("framerate must be positive, got %d", req.Framerate), nil)
	}
	format := req.Format
	if format == "" {
		format = filepath.Ext(req.OutputPath)
	}
	muxer, ok := muxerFor(format)
	if !ok {
		return Result{}, services.Wrap(services.ErrValidation, "timeline", "request", fmt.Sprintf("unsupported output format %q", format), nil)
	}

	video, err := artifacts.LatestVideo(req.WorkingDir, a.settings.VideoExts)
	if err != nil {
		return Result{}, err
	}
	output, err := filepath.Abs(req.OutputPath)
	if err != nil {
		return Result{}, services.Wrap(services.ErrValidation, "timeline", "request", "resolve output path", err)
	}
	if source, err := filepath.Abs(video.Path); err == nil && source == output {
		return Result{}, services.Wrap(services.ErrValidation, "timeline", "request", "output path would overwrite the recording", nil)
	}

	clips, err := artifacts.ScanAudio(req.WorkingDir, a.settings.AudioExt)
	if err != nil {
		// Nothing is mixed or removed while a clip name cannot be placed.
		logging.WarnWithContext(a.logger, "export refused: malformed clip names", "malformed_clip",
			logging.String(logging.FieldErrorHint, "rename or remove the listed files, then export again"),
			logging.Error(err),
		)
		return Result{}, err
	}

	probe, err := a.probe.Inspect(ctx, video.Path)
	if err != nil {
		return Result{}, services.Wrap(services.ErrArtifact, "timeline", "probe", video.Name, err)
	}
	videoDuration := probe.DurationSeconds()

	spec := graphSpec{
		BaseHasAudio:   probe.HasAudio(),
		VideoDuration:  videoDuration,
		BaseVolume:     a.settings.BaseVolume,
		LoudnessTarget: a.settings.LoudnessTarget,
		SampleRate:     a.settings.SampleRate,
	}
	var used, skipped []artifacts.Clip
	trim := a.settings.TailTrim.Seconds()
	for _, clip := range clips {
		duration, err := a.probe.Duration(ctx, clip.Path)
		if err != nil {
			return Result{}, err
		}
		if duration <= trim {
			logging.WarnWithContext(a.logger, "clip shorter than tail trim; leaving it out", "clip_too_short",
				logging.String(logging.FieldArtifact, clip.Name),
				logging.Float64("duration_seconds", duration),
			)
			skipped = append(skipped, clip)
			continue
		}
		if videoDuration > 0 && float64(clip.OffsetMs)/1000 >= videoDuration {
			logging.WarnWithContext(a.logger, "clip starts after the recording ends", "clip_past_end",
				logging.String(logging.FieldArtifact, clip.Name),
				logging.Int64(logging.FieldOffsetMs, clip.OffsetMs),
			)
		}
		trimEnd := (math.Round(duration*1000) - float64(a.settings.TailTrim.Milliseconds())) / 1000
		spec.Clips = append(spec.Clips, clipInput{Path: clip.Path, OffsetMs: clip.OffsetMs, TrimEnd: trimEnd})
		used = append(used, clip)
	}

	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrArtifact, "timeline", "output", "create output directory", err)
	}
	tmp, err := fileutil.TempSibling(output)
	if err != nil {
		return Result{}, services.Wrap(services.ErrArtifact, "timeline", "output", "reserve temp file", err)
	}

	args := a.buildArgs(video.Path, spec, req.Framerate, muxer, tmp)
	a.logger.Info("export started",
		logging.String(logging.FieldArtifact, video.Name),
		logging.Int("clips", len(spec.Clips)),
		logging.String("output", output),
	)
	a.logger.Debug("ffmpeg command", logging.String("args", strings.Join(args, " ")))

	progress := newProgressWriter(a.logger, videoDuration)
	if err := a.run(ctx, progress, a.settings.FFmpeg, args...); err != nil {
		_ = os.Remove(tmp)
		switch {
		case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
			return Result{}, services.Wrap(services.ErrTimeout, "timeline", "ffmpeg", "export timed out", err)
		case errors.Is(err, context.Canceled) || ctx.Err() != nil:
			return Result{}, fmt.Errorf("timeline: export cancelled: %w", context.Canceled)
		}
		return Result{}, services.Wrap(services.ErrExternalTool, "timeline", "ffmpeg", "export failed", err)
	}
	if info, err := os.Stat(tmp); err != nil || info.Size() == 0 {
		_ = os.Remove(tmp)
		return Result{}, services.Wrap(services.ErrExternalTool, "timeline", "ffmpeg", "ffmpeg produced no output", err)
	}
	if err := os.Rename(tmp, output); err != nil {
		_ = os.Remove(tmp)
		return Result{}, services.Wrap(services.ErrArtifact, "timeline", "output", "move export into place", err)
	}

	result := Result{
		OutputPath: output,
		Video:      video,
		Clips:      used,
		Skipped:    skipped,
	}
	consumed := append(append([]artifacts.Clip(nil), used...), skipped...)
	report, err := artifacts.Cleanup(req.WorkingDir, artifacts.Plan{
		Clips:   consumed,
		Video:   video.Path,
		Frame:   true,
		Capture: a.settings.CapturePath,
	})
	result.Cleanup = report
	if err != nil {
		logging.WarnWithContext(a.logger, "export written but cleanup incomplete", "cleanup_failed",
			logging.String(logging.FieldImpact, "consumed files remain in the working directory"),
			logging.Error(err),
		)
	}
	result.Elapsed = time.Since(started)
	a.logger.Info("export finished",
		logging.String("output", output),
		logging.Int("removed", len(report.Removed)),
		logging.Duration(logging.FieldElapsed, result.Elapsed),
	)
	return result, nil
}

func (a *Assembler) buildArgs(video string, spec graphSpec, framerate int, muxer, dst string) []string {
	args := []string{"-hide_banner", "-nostdin", "-y", "-loglevel", "error", "-progress", "pipe:1", "-i", video}
	for _, clip := range spec.Clips {
		args = append(args, "-i", clip.Path)
	}
	args = append(args,
		"-filter_complex", buildFilterGraph(spec),
		"-map", "0:v:0",
		"-map", "["+mixLabel+"]",
	)
	if a.settings.VideoCodec != "" {
		args = append(args, "-c:v", a.settings.VideoCodec)
	}
	args = append(args,
		"-r", strconv.Itoa(framerate),
		"-c:a", a.settings.AudioCodec,
		"-ar", strconv.Itoa(a.settings.SampleRate),
		"-shortest",
		"-f", muxer,
		dst,
	)
	return args
}
