package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRender()
	c.normalizeAudio()
	c.normalizeTone()
	c.normalizeAssemble()
	c.normalizeEncoder()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("DREAMWEAVE_OUTPUT_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.OutputDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		c.Paths.StagingDir = defaultStagingDir
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if strings.TrimSpace(c.Distribution.OutputDir) == "" {
		c.Distribution.OutputDir = defaultDistributionDir
	}
	var err error
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Distribution.OutputDir, err = expandPath(c.Distribution.OutputDir); err != nil {
		return fmt.Errorf("distribution.output_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeRender() {
	if c.Render.Workers <= 0 {
		c.Render.Workers = defaultWorkers
	}
}

func (c *Config) normalizeAudio() {
	c.Audio.DurationPolicy = strings.ToLower(strings.TrimSpace(c.Audio.DurationPolicy))
	if c.Audio.DurationPolicy == "" {
		c.Audio.DurationPolicy = defaultDurationPolicy
	}
}

func (c *Config) normalizeTone() {
	c.Tone.TransitionPolicy = strings.ToLower(strings.TrimSpace(c.Tone.TransitionPolicy))
	if c.Tone.TransitionPolicy == "" {
		c.Tone.TransitionPolicy = defaultTransitionPolicy
	}
}

func (c *Config) normalizeAssemble() {
	c.Assemble.VideoCodec = strings.TrimSpace(c.Assemble.VideoCodec)
	if c.Assemble.VideoCodec == "" {
		c.Assemble.VideoCodec = defaultVideoCodec
	}
	c.Assemble.AudioCodec = strings.TrimSpace(c.Assemble.AudioCodec)
	if c.Assemble.AudioCodec == "" {
		c.Assemble.AudioCodec = defaultAudioCodec
	}
	c.Assemble.AudioBitrate = strings.TrimSpace(c.Assemble.AudioBitrate)
	if c.Assemble.AudioBitrate == "" {
		c.Assemble.AudioBitrate = defaultAudioBitrate
	}
	c.Assemble.TitleFont = strings.TrimSpace(c.Assemble.TitleFont)
	if c.Assemble.TitleFontSize <= 0 {
		c.Assemble.TitleFontSize = defaultTitleFontSize
	}
}

func (c *Config) normalizeEncoder() {
	c.Encoder.FFmpegBinary = strings.TrimSpace(c.Encoder.FFmpegBinary)
	if value, ok := os.LookupEnv("DREAMWEAVE_FFMPEG"); ok && strings.TrimSpace(value) != "" {
		c.Encoder.FFmpegBinary = strings.TrimSpace(value)
	}
	if c.Encoder.FFmpegBinary == "" {
		c.Encoder.FFmpegBinary = "ffmpeg"
	}
	c.Encoder.FFprobeBinary = strings.TrimSpace(c.Encoder.FFprobeBinary)
	if value, ok := os.LookupEnv("DREAMWEAVE_FFPROBE"); ok && strings.TrimSpace(value) != "" {
		c.Encoder.FFprobeBinary = strings.TrimSpace(value)
	}
	if c.Encoder.FFprobeBinary == "" {
		c.Encoder.FFprobeBinary = "ffprobe"
	}
	if c.Encoder.TimeoutSeconds <= 0 {
		c.Encoder.TimeoutSeconds = defaultEncoderTimeoutSeconds
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
