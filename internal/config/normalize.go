package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	envOpenAIKey     = "OPENAI_API_KEY"
	envElevenLabsKey = "ELEVENLABS_API_KEY"
	envAPIToken      = "COMMENTATOR_API_TOKEN"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeTTS()
	c.normalizeCommentary()
	if err := c.normalizeVision(); err != nil {
		return err
	}
	c.normalizeExport()
	c.normalizeAPI()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkingDir) == "" {
		c.Paths.WorkingDir = defaultWorkingDir
	}
	if c.Paths.WorkingDir, err = expandPath(c.Paths.WorkingDir); err != nil {
		return fmt.Errorf("paths.working_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.StateDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv(envOpenAIKey); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Tier = strings.TrimSpace(c.LLM.Tier)
	if c.LLM.Tier == "" {
		c.LLM.Tier = defaultLLMTier
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = defaultLLMMaxTokens
	}
	if c.LLM.TimeoutSeconds == 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeTTS() {
	c.TTS.APIKey = strings.TrimSpace(c.TTS.APIKey)
	if c.TTS.APIKey == "" {
		if value, ok := os.LookupEnv(envElevenLabsKey); ok {
			c.TTS.APIKey = strings.TrimSpace(value)
		}
	}
	c.TTS.BaseURL = strings.TrimSpace(c.TTS.BaseURL)
	if c.TTS.BaseURL == "" {
		c.TTS.BaseURL = defaultTTSBaseURL
	}
	c.TTS.Model = strings.TrimSpace(c.TTS.Model)
	if c.TTS.Model == "" {
		c.TTS.Model = defaultTTSModel
	}
	c.TTS.OutputFormat = strings.TrimSpace(c.TTS.OutputFormat)
	c.TTS.AudioExt = normalizeExt(c.TTS.AudioExt)
	if c.TTS.AudioExt == "" {
		c.TTS.AudioExt = defaultTTSAudioExt
	}
	if c.TTS.TimeoutSeconds == 0 {
		c.TTS.TimeoutSeconds = defaultTTSTimeoutSeconds
	}
}

func (c *Config) normalizeCommentary() {
	c.Commentary.PlayByPlayVoice = strings.TrimSpace(c.Commentary.PlayByPlayVoice)
	c.Commentary.ColorVoice = strings.TrimSpace(c.Commentary.ColorVoice)
	c.Commentary.DefaultTone = strings.TrimSpace(c.Commentary.DefaultTone)
	if c.Commentary.DefaultTone == "" {
		c.Commentary.DefaultTone = defaultTone
	}
	c.Commentary.LeagueName = strings.TrimSpace(c.Commentary.LeagueName)
	c.Commentary.LeagueShortName = strings.TrimSpace(c.Commentary.LeagueShortName)
}

func (c *Config) normalizeVision() error {
	var err error
	if strings.TrimSpace(c.Vision.FramePath) == "" {
		c.Vision.FramePath = filepath.Join(c.Paths.WorkingDir, defaultVisionFrameName)
	}
	if c.Vision.FramePath, err = expandPath(c.Vision.FramePath); err != nil {
		return fmt.Errorf("vision.frame_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeExport() {
	c.Export.Format = normalizeExt(c.Export.Format)
	if c.Export.Format == "" {
		c.Export.Format = defaultExportFormat
	}
	c.Export.VideoCodec = strings.TrimSpace(c.Export.VideoCodec)
	if c.Export.VideoCodec == "" {
		c.Export.VideoCodec = defaultExportVideoCodec
	}
	c.Export.AudioCodec = strings.TrimSpace(c.Export.AudioCodec)
	if c.Export.AudioCodec == "" {
		c.Export.AudioCodec = defaultExportAudioCodec
	}
	exts := make([]string, 0, len(c.Export.VideoExts))
	seen := make(map[string]struct{}, len(c.Export.VideoExts))
	for _, ext := range c.Export.VideoExts {
		normalized := normalizeExt(ext)
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		exts = append(exts, normalized)
	}
	if len(exts) == 0 {
		exts = append(exts, defaultVideoExts...)
	}
	c.Export.VideoExts = exts
	c.Export.FFmpegBinary = strings.TrimSpace(c.Export.FFmpegBinary)
	if c.Export.FFmpegBinary == "" {
		c.Export.FFmpegBinary = defaultFFmpegBinary
	}
	c.Export.FFprobeBinary = strings.TrimSpace(c.Export.FFprobeBinary)
	if c.Export.FFprobeBinary == "" {
		c.Export.FFprobeBinary = defaultFFprobeBinary
	}
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	c.API.Token = strings.TrimSpace(c.API.Token)
	if c.API.Token == "" {
		if value, ok := os.LookupEnv(envAPIToken); ok {
			c.API.Token = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func normalizeExt(value string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(value)), ".")
}
