package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	OutputDir  string `toml:"output_dir"`
	LogDir     string `toml:"log_dir"`
}

// Render contains video canvas and frame generation settings.
type Render struct {
	Width             int  `toml:"width"`
	Height            int  `toml:"height"`
	FPS               int  `toml:"fps"`
	Workers           int  `toml:"workers"`
	KeepIntermediates bool `toml:"keep_intermediates"`
}

// Audio contains stem levels and mixing behaviour.
type Audio struct {
	SampleRate       int     `toml:"sample_rate"`
	ToneAmplitude    float64 `toml:"tone_amplitude"`
	NarrationGainDB  float64 `toml:"narration_gain_db"`
	ToneGainDB       float64 `toml:"tone_gain_db"`
	AmbienceGainDB   float64 `toml:"ambience_gain_db"`
	DurationPolicy   string  `toml:"duration_policy"`
	Normalize        bool    `toml:"normalize"`
	PrepareNarration bool    `toml:"prepare_narration"`
}

// Tone contains binaural schedule settings.
type Tone struct {
	// TransitionPolicy is "smooth" (ramp between phase beats) or "abrupt".
	TransitionPolicy        string  `toml:"transition_policy"`
	TransitionWindowSeconds float64 `toml:"transition_window_seconds"`
}

// Assemble contains final mux and title settings.
type Assemble struct {
	DurationToleranceSeconds float64 `toml:"duration_tolerance_seconds"`
	VideoCodec               string  `toml:"video_codec"`
	AudioCodec               string  `toml:"audio_codec"`
	AudioBitrate             string  `toml:"audio_bitrate"`
	CRF                      int     `toml:"crf"`
	TitleFont                string  `toml:"title_font"`
	TitleFontSize            int     `toml:"title_font_size"`
	TitleFadeSeconds         float64 `toml:"title_fade_seconds"`
}

// Encoder contains external media tool settings.
type Encoder struct {
	FFmpegBinary   string `toml:"ffmpeg_binary"`
	FFprobeBinary  string `toml:"ffprobe_binary"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Distribution contains the optional AV1 re-encode of the final artifact.
type Distribution struct {
	Enabled   bool   `toml:"enabled"`
	OutputDir string `toml:"output_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for dreamweave.
//
// Configuration sections by subsystem:
//   - Paths: staging, output, and log directories
//   - Render: canvas size, frame rate, and frame worker count
//   - Audio: stem gains, mix duration policy, narration preparation
//   - Tone: binaural transition smoothing
//   - Assemble: mux codecs, duration tolerance, title styling
//   - Encoder: ffmpeg/ffprobe binaries and call timeout
//   - Distribution: optional Drapto AV1 encode of the deliverable
//   - Logging: log format and level
//
// A loaded Config is treated as immutable and handed to each stage explicitly.
type Config struct {
	Paths        Paths        `toml:"paths"`
	Render       Render       `toml:"render"`
	Audio        Audio        `toml:"audio"`
	Tone         Tone         `toml:"tone"`
	Assemble     Assemble     `toml:"assemble"`
	Encoder      Encoder      `toml:"encoder"`
	Distribution Distribution `toml:"distribution"`
	Logging      Logging      `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/dreamweave/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
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
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
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

	defaultPath, err := expandPath("~/.config/dreamweave/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("dreamweave.toml")
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

// EnsureDirectories creates the directories a render writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.StagingDir, c.Paths.OutputDir, c.Paths.LogDir}
	if c.Distribution.Enabled {
		dirs = append(dirs, c.Distribution.OutputDir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable used for encoding and muxing.
func (c *Config) FFmpegBinary() string {
	if v := strings.TrimSpace(c.Encoder.FFmpegBinary); v != "" {
		return v
	}
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable used for duration inspection.
func (c *Config) FFprobeBinary() string {
	if v := strings.TrimSpace(c.Encoder.FFprobeBinary); v != "" {
		return v
	}
	return "ffprobe"
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

// ExpandPath exposes the repository path expansion rules for other packages.
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
