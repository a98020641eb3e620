package config

const (
	defaultConfigPath         = "~/.config/commentator/config.toml"
	defaultWorkingDir         = "."
	defaultStateDir           = "~/.local/share/commentator"
	defaultLLMBaseURL         = "https://api.openai.com/v1/chat/completions"
	defaultLLMTier            = "gpt-3.5-turbo"
	defaultLLMMaxTokens       = 300
	defaultLLMTimeoutSeconds  = 30
	defaultTTSBaseURL         = "https://api.elevenlabs.io"
	defaultTTSModel           = "eleven_monolingual_v1"
	defaultTTSOutputFormat    = "mp3_44100_128"
	defaultTTSAudioExt        = "mp3"
	defaultTTSTimeoutSeconds  = 60
	defaultMemoryLimit        = 10
	defaultPlayByPlayVoice    = "Harry"
	defaultColorVoice         = "Charlie"
	defaultTone               = "excited"
	defaultVisionFrameName    = "frame.png"
	defaultVisionHashDistance = 4
	defaultMixBaseVolume      = 0.3
	defaultMixTailTrimMillis  = 50
	defaultMixLoudnessTarget  = -16.0
	defaultMixSampleRate      = 44100
	defaultExportFormat       = "mp4"
	defaultExportFramerate    = 60
	defaultExportVideoCodec   = "libx264"
	defaultExportAudioCodec   = "aac"
	defaultFFmpegBinary       = "ffmpeg"
	defaultFFprobeBinary      = "ffprobe"
	defaultAPIBind            = "127.0.0.1:7490"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

var defaultVideoExts = []string{"mp4", "mkv", "mov"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkingDir: defaultWorkingDir,
			StateDir:   defaultStateDir,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Tier:           defaultLLMTier,
			MaxTokens:      defaultLLMMaxTokens,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		TTS: TTS{
			BaseURL:        defaultTTSBaseURL,
			Model:          defaultTTSModel,
			OutputFormat:   defaultTTSOutputFormat,
			AudioExt:       defaultTTSAudioExt,
			TimeoutSeconds: defaultTTSTimeoutSeconds,
		},
		Commentary: Commentary{
			MemoryLimit:     defaultMemoryLimit,
			PlayByPlayVoice: defaultPlayByPlayVoice,
			ColorVoice:      defaultColorVoice,
			DefaultTone:     defaultTone,
		},
		Vision: Vision{
			SkipSimilar:     true,
			MaxHashDistance: defaultVisionHashDistance,
		},
		Mix: Mix{
			BaseVolume:     defaultMixBaseVolume,
			TailTrimMillis: defaultMixTailTrimMillis,
			LoudnessTarget: defaultMixLoudnessTarget,
			SampleRate:     defaultMixSampleRate,
		},
		Export: Export{
			Format:        defaultExportFormat,
			Framerate:     defaultExportFramerate,
			VideoCodec:    defaultExportVideoCodec,
			AudioCodec:    defaultExportAudioCodec,
			VideoExts:     append([]string(nil), defaultVideoExts...),
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
