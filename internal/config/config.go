package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"commentator/internal/services"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkingDir string `toml:"working_dir"`
	StateDir   string `toml:"state_dir"`
	LogDir     string `toml:"log_dir"`
}

// LLM contains text-generation backend settings.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Tier           string `toml:"tier"`
	MaxTokens      int    `toml:"max_tokens"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// TTS contains speech-synthesis backend settings.
type TTS struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	OutputFormat   string `toml:"output_format"`
	AudioExt       string `toml:"audio_ext"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Commentary contains persona, voice, and memory settings.
type Commentary struct {
	// MemoryLimit is the number of exchanges kept in the conversation window.
	// The window holds twice as many turns.
	MemoryLimit     int    `toml:"memory_limit"`
	PlayByPlayVoice string `toml:"pbp_voice"`
	ColorVoice      string `toml:"color_voice"`
	DefaultTone     string `toml:"default_tone"`
	LeagueName      string `toml:"league_name"`
	LeagueShortName string `toml:"league_short_name"`
}

// Vision contains frame attachment settings for vision-capable tiers.
type Vision struct {
	Enabled         bool   `toml:"enabled"`
	FramePath       string `toml:"frame_path"`
	SkipSimilar     bool   `toml:"skip_similar"`
	MaxHashDistance int    `toml:"max_hash_distance"`
}

// Mix contains audio mixing settings for timeline assembly.
type Mix struct {
	BaseVolume     float64 `toml:"base_volume"`
	TailTrimMillis int     `toml:"tail_trim_ms"`
	LoudnessTarget float64 `toml:"loudness_target"`
	SampleRate     int     `toml:"sample_rate"`
}

// Export contains output encoding settings.
type Export struct {
	Format        string   `toml:"format"`
	Framerate     int      `toml:"framerate"`
	VideoCodec    string   `toml:"video_codec"`
	AudioCodec    string   `toml:"audio_codec"`
	VideoExts     []string `toml:"video_exts"`
	FFmpegBinary  string   `toml:"ffmpeg_binary"`
	FFprobeBinary string   `toml:"ffprobe_binary"`
}

// API contains HTTP control surface settings.
type API struct {
	Bind  string `toml:"bind"`
	Token string `toml:"token"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for commentator.
//
// Configuration sections by subsystem:
//   - Paths: working directory (recordings and clips) and state directory
//   - LLM: text generation backend and model tier
//   - TTS: speech synthesis backend and audio format
//   - Commentary: memory limit, voices, league facts
//   - Vision: optional frame attachment
//   - Mix: base track volume, clip trim, loudness, sample rate
//   - Export: output container, framerate, codecs, tool binaries
//   - API: HTTP control surface bind address and token
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	LLM        LLM        `toml:"llm"`
	TTS        TTS        `toml:"tts"`
	Commentary Commentary `toml:"commentary"`
	Vision     Vision     `toml:"vision"`
	Mix        Mix        `toml:"mix"`
	Export     Export     `toml:"export"`
	API        API        `toml:"api"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. A .env file beside the config file or in the
// current directory is loaded before environment fallbacks are applied; variables that
// are already set win.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, services.Wrap(services.ErrConfiguration, "config", "parse", resolvedPath, err)
		}
	}

	if err := loadDotEnv(filepath.Dir(resolvedPath), "."); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, services.Wrap(services.ErrConfiguration, "config", "validate", resolvedPath, err)
	}

	return &cfg, resolvedPath, exists, nil
}

func loadDotEnv(dirs ...string) error {
	seen := make(map[string]struct{}, len(dirs))
	for _, dir := range dirs {
		candidate, err := filepath.Abs(filepath.Join(dir, ".env"))
		if err != nil {
			continue
		}
		if _, ok := seen[candidate]; ok {
			continue
		}
		seen[candidate] = struct{}{}
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		if err := godotenv.Load(candidate); err != nil {
			return fmt.Errorf("load %s: %w", candidate, err)
		}
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("commentator.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the working, state, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkingDir, c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// TranscriptPath returns the location of the transcript journal database.
func (c *Config) TranscriptPath() string {
	return filepath.Join(c.Paths.StateDir, "transcript.db")
}

// LogFilePath returns the location of the rolling log file.
func (c *Config) LogFilePath() string {
	return filepath.Join(c.Paths.LogDir, "commentator.log")
}

// VoiceFor returns the configured voice for a role name.
func (c *Config) VoiceFor(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "play-by-play":
		return c.Commentary.PlayByPlayVoice
	case "color":
		return c.Commentary.ColorVoice
	default:
		return ""
	}
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the configuration as TOML. API keys are redacted.
func (c *Config) Encode() (string, error) {
	clone := *c
	clone.LLM.APIKey = redact(clone.LLM.APIKey)
	clone.TTS.APIKey = redact(clone.TTS.APIKey)
	clone.API.Token = redact(clone.API.Token)
	data, err := toml.Marshal(clone)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return string(data), nil
}

func redact(value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	return "********"
}
