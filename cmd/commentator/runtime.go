package main

import (
	"context"
	"log/slog"

	"commentator/internal/commentary"
	"commentator/internal/config"
	"commentator/internal/conversation"
	"commentator/internal/logging"
	"commentator/internal/media/ffprobe"
	"commentator/internal/pacing"
	"commentator/internal/services/llm"
	"commentator/internal/services/tts"
	"commentator/internal/session"
	"commentator/internal/speech"
	"commentator/internal/timeline"
	"commentator/internal/transcript"
	"commentator/internal/vision"
)

// runtime holds the long-lived collaborators shared by every session the
// process starts. The generator and its conversation window live as long as
// the process.
type runtime struct {
	cfg       *config.Config
	logger    *slog.Logger
	generator *commentary.Generator
	renderer  *speech.Renderer
	pacer     *pacing.Controller
	assembler *timeline.Assembler
	journal   *transcript.Store
}

func buildRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*runtime, error) {
	settings, err := commentary.SettingsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	tier, err := llm.ResolveTier(cfg.LLM.Tier)
	if err != nil {
		return nil, err
	}

	completer := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          tier.Model,
		MaxTokens:      cfg.LLM.MaxTokens,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})
	synth := tts.NewClient(tts.Config{
		APIKey:         cfg.TTS.APIKey,
		BaseURL:        cfg.TTS.BaseURL,
		Model:          cfg.TTS.Model,
		OutputFormat:   cfg.TTS.OutputFormat,
		TimeoutSeconds: cfg.TTS.TimeoutSeconds,
	})
	prober := ffprobe.NewProber(cfg.Export.FFprobeBinary)

	var opts []commentary.Option
	if settings.Vision {
		frames := vision.NewProcessor(vision.NewFileCapturer(cfg.Vision.FramePath), vision.OptionsFromConfig(cfg), logger)
		opts = append(opts, commentary.WithFrames(frames))
	}

	rt := &runtime{
		cfg:       cfg,
		logger:    logger,
		generator: commentary.NewGenerator(completer, conversation.NewWindow(cfg.Commentary.MemoryLimit), settings, logger, opts...),
		renderer:  speech.NewRenderer(synth, prober, cfg.Paths.WorkingDir, cfg.TTS.AudioExt, logger),
		pacer:     pacing.NewController(nil, logger),
		assembler: timeline.NewAssembler(timeline.SettingsFromConfig(cfg), prober, logger),
	}

	store, err := transcript.OpenFromConfig(ctx, cfg)
	if err != nil {
		logging.WarnWithContext(logger, "transcript journal unavailable", "journal_open_failed",
			logging.String(logging.FieldImpact, "lines are not recorded in the transcript"),
			logging.String(logging.FieldErrorHint, "check state_dir permissions"),
			logging.Error(err),
		)
	} else {
		rt.journal = store
	}

	logger.Info("runtime ready",
		logging.String("tier", tier.Name),
		logging.String("model", tier.Model),
		logging.Bool("vision", settings.Vision),
		logging.Int(logging.FieldWindowSize, cfg.Commentary.MemoryLimit*2),
		logging.String("working_dir", cfg.Paths.WorkingDir),
	)
	return rt, nil
}

// newSession starts a session bound to the runtime's collaborators.
func (rt *runtime) newSession(ctx context.Context) (*session.Session, error) {
	deps := session.Deps{
		Generator: rt.generator,
		Renderer:  rt.renderer,
		Pacer:     rt.pacer,
		Assembler: rt.assembler,
		Clock:     rt.pacer.Clock(),
	}
	if rt.journal != nil {
		deps.Journal = rt.journal
	}
	return session.New(ctx, session.OptionsFromConfig(rt.cfg), deps, rt.logger)
}

func (rt *runtime) Close() error {
	if rt == nil || rt.journal == nil {
		return nil
	}
	return rt.journal.Close()
}
