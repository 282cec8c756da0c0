package config

const (
	defaultStagingDir               = "~/.local/share/dreamweave/staging"
	defaultOutputDir                = "~/dreamweave/output"
	defaultLogDir                   = "~/.local/share/dreamweave/logs"
	defaultDistributionDir          = "~/dreamweave/distribution"
	defaultWidth                    = 1920
	defaultHeight                   = 1080
	defaultFPS                      = 30
	defaultWorkers                  = 4
	defaultSampleRate               = 48000
	defaultToneAmplitude            = 0.5
	defaultToneGainDB               = -20
	defaultAmbienceGainDB           = -18
	defaultDurationPolicy           = "longest"
	defaultTransitionPolicy         = "smooth"
	defaultTransitionWindowSeconds  = 10
	defaultDurationToleranceSeconds = 0.5
	defaultVideoCodec               = "libx264"
	defaultAudioCodec               = "aac"
	defaultAudioBitrate             = "256k"
	defaultCRF                      = 18
	defaultTitleFontSize            = 64
	defaultTitleFadeSeconds         = 1.5
	defaultEncoderTimeoutSeconds    = 3600
	defaultLogFormat                = "console"
	defaultLogLevel                 = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			OutputDir:  defaultOutputDir,
			LogDir:     defaultLogDir,
		},
		Render: Render{
			Width:   defaultWidth,
			Height:  defaultHeight,
			FPS:     defaultFPS,
			Workers: defaultWorkers,
		},
		Audio: Audio{
			SampleRate:       defaultSampleRate,
			ToneAmplitude:    defaultToneAmplitude,
			NarrationGainDB:  0,
			ToneGainDB:       defaultToneGainDB,
			AmbienceGainDB:   defaultAmbienceGainDB,
			DurationPolicy:   defaultDurationPolicy,
			PrepareNarration: true,
		},
		Tone: Tone{
			TransitionPolicy:        defaultTransitionPolicy,
			TransitionWindowSeconds: defaultTransitionWindowSeconds,
		},
		Assemble: Assemble{
			DurationToleranceSeconds: defaultDurationToleranceSeconds,
			VideoCodec:               defaultVideoCodec,
			AudioCodec:               defaultAudioCodec,
			AudioBitrate:             defaultAudioBitrate,
			CRF:                      defaultCRF,
			TitleFontSize:            defaultTitleFontSize,
			TitleFadeSeconds:         defaultTitleFadeSeconds,
		},
		Encoder: Encoder{
			FFmpegBinary:   "ffmpeg",
			FFprobeBinary:  "ffprobe",
			TimeoutSeconds: defaultEncoderTimeoutSeconds,
		},
		Distribution: Distribution{
			OutputDir: defaultDistributionDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
