package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"commentator/internal/services/llm"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateTTS(); err != nil {
		return err
	}
	if err := c.validateCommentary(); err != nil {
		return err
	}
	if err := c.validateVision(); err != nil {
		return err
	}
	if err := c.validateMix(); err != nil {
		return err
	}
	if err := c.validateExport(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLLM() error {
	if _, err := llm.ResolveTier(c.LLM.Tier); err != nil {
		return fmt.Errorf("llm.tier: %w", err)
	}
	return ensurePositiveMap(map[string]int{
		"llm.max_tokens":      c.LLM.MaxTokens,
		"llm.timeout_seconds": c.LLM.TimeoutSeconds,
	})
}

func (c *Config) validateTTS() error {
	if c.TTS.TimeoutSeconds <= 0 {
		return errors.New("tts.timeout_seconds must be positive")
	}
	if strings.ContainsAny(c.TTS.AudioExt, `/\ `) {
		return fmt.Errorf("tts.audio_ext %q is not a valid extension", c.TTS.AudioExt)
	}
	return nil
}

func (c *Config) validateCommentary() error {
	if c.Commentary.MemoryLimit < 0 {
		return errors.New("commentary.memory_limit must be >= 0")
	}
	if c.Commentary.PlayByPlayVoice == "" {
		return errors.New("commentary.pbp_voice must be set")
	}
	if c.Commentary.ColorVoice == "" {
		return errors.New("commentary.color_voice must be set")
	}
	return nil
}

func (c *Config) validateVision() error {
	if !c.Vision.Enabled {
		return nil
	}
	tier, err := llm.ResolveTier(c.LLM.Tier)
	if err != nil {
		return fmt.Errorf("llm.tier: %w", err)
	}
	if !tier.Vision {
		return fmt.Errorf("vision.enabled requires a vision-capable llm.tier (got %q)", c.LLM.Tier)
	}
	if c.Vision.MaxHashDistance < 0 {
		return errors.New("vision.max_hash_distance must be >= 0")
	}
	return nil
}

func (c *Config) validateMix() error {
	if c.Mix.BaseVolume < 0 {
		return errors.New("mix.base_volume must be >= 0")
	}
	if c.Mix.TailTrimMillis < 0 {
		return errors.New("mix.tail_trim_ms must be >= 0")
	}
	if c.Mix.SampleRate <= 0 {
		return errors.New("mix.sample_rate must be positive")
	}
	if c.Mix.LoudnessTarget < -70 || c.Mix.LoudnessTarget > -5 {
		return errors.New("mix.loudness_target must be between -70 and -5 LUFS")
	}
	return nil
}

func (c *Config) validateExport() error {
	if c.Export.Framerate <= 0 {
		return errors.New("export.framerate must be positive")
	}
	if slices.Contains(c.Export.VideoExts, c.TTS.AudioExt) {
		return fmt.Errorf("tts.audio_ext %q must not also be listed in export.video_exts", c.TTS.AudioExt)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
