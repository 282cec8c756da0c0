package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"dreamweave/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantStaging := filepath.Join(tempHome, ".local", "share", "dreamweave", "staging")
	if cfg.Paths.StagingDir != wantStaging {
		t.Fatalf("unexpected staging dir: got %q want %q", cfg.Paths.StagingDir, wantStaging)
	}
	if cfg.Paths.OutputDir != filepath.Join(tempHome, "dreamweave", "output") {
		t.Fatalf("unexpected output dir: %q", cfg.Paths.OutputDir)
	}
	if cfg.Audio.DurationPolicy != "longest" {
		t.Fatalf("expected longest duration policy, got %q", cfg.Audio.DurationPolicy)
	}
	if cfg.Audio.Normalize {
		t.Fatal("expected normalization disabled by default")
	}
	if cfg.Tone.TransitionPolicy != "smooth" {
		t.Fatalf("expected smooth transitions by default, got %q", cfg.Tone.TransitionPolicy)
	}
	if cfg.Assemble.DurationToleranceSeconds != 0.5 {
		t.Fatalf("unexpected duration tolerance: %v", cfg.Assemble.DurationToleranceSeconds)
	}
	if cfg.FFmpegBinary() != "ffmpeg" || cfg.FFprobeBinary() != "ffprobe" {
		t.Fatalf("unexpected tool binaries: %q %q", cfg.FFmpegBinary(), cfg.FFprobeBinary())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StagingDir, cfg.Paths.OutputDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "dreamweave.toml")

	type payload struct {
		Render struct {
			Width  int `toml:"width"`
			Height int `toml:"height"`
			FPS    int `toml:"fps"`
		} `toml:"render"`
		Audio struct {
			ToneGainDB     float64 `toml:"tone_gain_db"`
			DurationPolicy string  `toml:"duration_policy"`
		} `toml:"audio"`
		Tone struct {
			TransitionPolicy string `toml:"transition_policy"`
		} `toml:"tone"`
	}
	custom := payload{}
	custom.Render.Width = 1280
	custom.Render.Height = 720
	custom.Render.FPS = 24
	custom.Audio.ToneGainDB = -25
	custom.Audio.DurationPolicy = " Shortest "
	custom.Tone.TransitionPolicy = "ABRUPT"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Render.Width != 1280 || cfg.Render.Height != 720 || cfg.Render.FPS != 24 {
		t.Fatalf("unexpected render settings: %+v", cfg.Render)
	}
	if cfg.Audio.ToneGainDB != -25 {
		t.Fatalf("expected tone gain -25, got %v", cfg.Audio.ToneGainDB)
	}
	if cfg.Audio.DurationPolicy != "shortest" {
		t.Fatalf("expected normalized duration policy, got %q", cfg.Audio.DurationPolicy)
	}
	if cfg.Tone.TransitionPolicy != "abrupt" {
		t.Fatalf("expected normalized transition policy, got %q", cfg.Tone.TransitionPolicy)
	}
	if cfg.Render.Workers != config.Default().Render.Workers {
		t.Fatalf("expected default workers, got %d", cfg.Render.Workers)
	}
}

func TestEnvOverridesEncoderBinaries(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("DREAMWEAVE_FFMPEG", "/opt/ffmpeg/bin/ffmpeg")
	t.Setenv("DREAMWEAVE_FFPROBE", "/opt/ffmpeg/bin/ffprobe")
	outDir := filepath.Join(t.TempDir(), "out")
	t.Setenv("DREAMWEAVE_OUTPUT_DIR", outDir)

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.FFmpegBinary() != "/opt/ffmpeg/bin/ffmpeg" {
		t.Fatalf("expected ffmpeg override, got %q", cfg.FFmpegBinary())
	}
	if cfg.FFprobeBinary() != "/opt/ffmpeg/bin/ffprobe" {
		t.Fatalf("expected ffprobe override, got %q", cfg.FFprobeBinary())
	}
	if cfg.Paths.OutputDir != outDir {
		t.Fatalf("expected output dir override, got %q", cfg.Paths.OutputDir)
	}
}

func TestCreateSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(target); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[audio]") {
		t.Fatalf("sample config missing audio section: %s", data)
	}

	t.Setenv("HOME", t.TempDir())
	if _, _, exists, err := config.Load(target); err != nil || !exists {
		t.Fatalf("expected sample config to load cleanly, exists=%v err=%v", exists, err)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"odd width", func(c *config.Config) { c.Render.Width = 1921 }, "render.width"},
		{"zero fps", func(c *config.Config) { c.Render.FPS = 0 }, "render.fps"},
		{"narration not reference", func(c *config.Config) { c.Audio.NarrationGainDB = -3 }, "narration_gain_db"},
		{"boosted tone", func(c *config.Config) { c.Audio.ToneGainDB = 3 }, "tone_gain_db"},
		{"bad policy", func(c *config.Config) { c.Audio.DurationPolicy = "average" }, "duration_policy"},
		{"bad transition", func(c *config.Config) { c.Tone.TransitionPolicy = "wobbly" }, "transition_policy"},
		{"negative tolerance", func(c *config.Config) { c.Assemble.DurationToleranceSeconds = -1 }, "duration_tolerance"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in error, got %v", tc.want, err)
			}
		})
	}
}
