package commentary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"commentator/internal/config"
	"commentator/internal/conversation"
	"commentator/internal/logging"
	"commentator/internal/prompt"
	"commentator/internal/services"
	"commentator/internal/services/llm"
)

// Completer returns one completion for an ordered message list.
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message) (string, error)
}

// FrameSource supplies the frame attached to vision calls. A nil image with
// a nil error means there is nothing worth attaching.
type FrameSource interface {
	Frame(ctx context.Context) (*prompt.Image, error)
}

// Settings are the session-wide generation parameters.
type Settings struct {
	DefaultTone string
	League      prompt.League
	Voices      map[prompt.Role]string
	// Timeout bounds a whole call, retries included. Zero disables it.
	Timeout time.Duration
	Vision  bool
}

// SettingsFromConfig derives generator settings from cfg.
func SettingsFromConfig(cfg *config.Config) (Settings, error) {
	tier, err := llm.ResolveTier(cfg.LLM.Tier)
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		DefaultTone: cfg.Commentary.DefaultTone,
		League: prompt.League{
			Name:      cfg.Commentary.LeagueName,
			ShortName: cfg.Commentary.LeagueShortName,
		},
		Voices: map[prompt.Role]string{
			prompt.PlayByPlay: cfg.Commentary.PlayByPlayVoice,
			prompt.Color:      cfg.Commentary.ColorVoice,
		},
		Timeout: time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
		Vision:  tier.Vision && cfg.Vision.Enabled,
	}, nil
}

// Generator turns requests into lines.
type Generator struct {
	mu       sync.Mutex
	client   Completer
	window   *conversation.Window
	frames   FrameSource
	settings Settings
	now      func() time.Time
	logger   *slog.Logger
}

// Option customizes a Generator.
type Option func(*Generator)

// WithFrames attaches a frame source; it is only consulted when vision is on.
func WithFrames(frames FrameSource) Option {
	return func(g *Generator) {
		g.frames = frames
	}
}

// WithNow replaces the clock used to time backend calls.
func WithNow(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// NewGenerator constructs a generator remembering exchanges in window.
func NewGenerator(client Completer, window *conversation.Window, settings Settings, logger *slog.Logger, opts ...Option) *Generator {
	if window == nil {
		window = conversation.NewWindow(0)
	}
	g := &Generator{
		client:   client,
		window:   window,
		settings: settings,
		now:      time.Now,
		logger:   logging.NewComponentLogger(logger, "commentary"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Window exposes the remembered conversation.
func (g *Generator) Window() *conversation.Window {
	return g.window
}

// Generate produces one line for req. On any error the window is unchanged.
func (g *Generator) Generate(ctx context.Context, req Request) (Line, error) {
	role, err := prompt.ParseRole(req.Role)
	if err != nil {
		return Line{}, err
	}
	voice := strings.TrimSpace(g.settings.Voices[role])
	if voice == "" {
		return Line{}, services.Wrap(services.ErrConfiguration, "commentary", "voice",
			fmt.Sprintf("no voice configured for %s", role), nil)
	}
	if err := req.Validate(); err != nil {
		return Line{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	// Text time covers frame capture and prompt assembly as well as the call.
	started := g.now()
	logger := logging.WithContext(ctx, g.logger).With(logging.String(logging.FieldRole, string(role)))

	tone := strings.TrimSpace(req.Tone)
	if tone == "" {
		tone = g.settings.DefaultTone
	}
	input := prompt.Input{
		Role:        role,
		Tone:        tone,
		Auxiliary:   req.Auxiliary,
		Event:       req.Event,
		LapFraction: req.LapFraction,
		League:      g.settings.League,
		Race:        req.Race,
		History:     g.window.Turns(),
		Image:       g.frame(ctx, logger),
	}
	built, err := prompt.Build(input)
	if err != nil {
		return Line{}, err
	}

	callCtx := ctx
	if g.settings.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.settings.Timeout)
		defer cancel()
	}
	text, err := g.client.Complete(callCtx, built.Messages)
	elapsed := g.now().Sub(started)
	if err != nil {
		logging.WarnWithContext(logger, "line generation failed", "llm_failed",
			logging.String(logging.FieldErrorKind, services.Kind(err)),
			logging.Duration(logging.FieldElapsed, elapsed),
			logging.Error(err),
		)
		return Line{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Line{}, services.Wrap(services.ErrBackend, "commentary", "complete", "backend returned an empty line", nil)
	}

	assistant := conversation.Turn{Role: conversation.RoleAssistant, Name: role.DisplayName(), Text: text}
	if err := g.window.PushPair(built.UserTurn, assistant); err != nil {
		return Line{}, services.Wrap(services.ErrValidation, "commentary", "remember", "", err)
	}
	logger.Debug("line generated",
		logging.Duration(logging.FieldElapsed, elapsed),
		logging.Int(logging.FieldWindowSize, g.window.Len()),
		logging.Bool("vision", input.Image != nil),
	)
	return Line{
		Text:        text,
		Role:        role,
		Voice:       voice,
		Speaker:     role.DisplayName(),
		Yelling:     req.Yelling,
		Vision:      input.Image != nil,
		TextElapsed: elapsed,
	}, nil
}

func (g *Generator) frame(ctx context.Context, logger *slog.Logger) *prompt.Image {
	if !g.settings.Vision || g.frames == nil {
		return nil
	}
	image, err := g.frames.Frame(ctx)
	if err != nil {
		logging.WarnWithContext(logger, "frame unavailable; generating without it", "frame_unavailable",
			logging.String(logging.FieldImpact, "line is generated from text only"),
			logging.Error(err),
		)
		return nil
	}
	return image
}
