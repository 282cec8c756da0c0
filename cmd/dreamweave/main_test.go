package main

import (
	"bytes"
	"encoding/json"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"

	"dreamweave/internal/config"
	"dreamweave/internal/pipeline"
	"dreamweave/internal/testsupport"
)

const filterListing = `Filters:
 T.C drawtext          V->V       Draw text on top of video frames using libfreetype library.
 ... scale             V->V       Scale the input video size and/or convert the image format.
`

const sessionTOML = `
title = "Deep Rest"
narration = "voice.wav"
fade_seconds = 0.5

[[phases]]
name = "intro"
start = 0.0
end = 2.0
color = "#28147a"
carrier = 200.0
beat = 10.0
image = "intro.png"

[[phases]]
name = "deep_rest"
start = 2.0
end = 4.0
color = "#00a08c"
carrier = 200.0
beat = 6.0
`

type cliTestEnv struct {
	cfg         *config.Config
	configPath  string
	sessionPath string
	fake        *testsupport.FakeEncoder
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))
	for _, key := range []string{"DREAMWEAVE_FFMPEG", "DREAMWEAVE_FFPROBE", "DREAMWEAVE_OUTPUT_DIR"} {
		t.Setenv(key, "")
	}

	bin := filepath.Join(base, "bin")
	if err := os.MkdirAll(bin, 0o755); err != nil {
		t.Fatalf("mkdir bin: %v", err)
	}
	listing := filepath.Join(bin, "filters.txt")
	if err := os.WriteFile(listing, []byte(filterListing), 0o644); err != nil {
		t.Fatalf("write listing: %v", err)
	}
	cfg.Encoder.FFmpegBinary = writeScript(t, bin, "ffmpeg", "cat "+listing+"\n")
	cfg.Encoder.FFprobeBinary = writeScript(t, bin, "ffprobe", "exit 0\n")

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	sessionDir := filepath.Join(base, "session")
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		t.Fatalf("mkdir session: %v", err)
	}
	testsupport.WriteSineWAV(t, filepath.Join(sessionDir, "voice.wav"), 4, cfg.Audio.SampleRate)
	testsupport.WritePNG(t, filepath.Join(sessionDir, "intro.png"), 16, 16, color.White)
	sessionPath := filepath.Join(sessionDir, "session.toml")
	if err := os.WriteFile(sessionPath, []byte(sessionTOML), 0o644); err != nil {
		t.Fatalf("write session: %v", err)
	}

	fake := testsupport.NewFakeEncoder(4)
	previous := pipelineDeps
	pipelineDeps = func(*config.Config, *slog.Logger) pipeline.Deps {
		return pipeline.Deps{Encoder: fake}
	}
	t.Cleanup(func() { pipelineDeps = previous })

	return &cliTestEnv{cfg: cfg, configPath: configPath, sessionPath: sessionPath, fake: fake}
}

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected output to contain %q, got:\n%s", substr, output)
	}
}

func TestRenderCommandProducesArtifact(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"render", "--session", env.sessionPath, "--skip-preflight"}, env.configPath)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	artifact := filepath.Join(env.cfg.Paths.OutputDir, "deep-rest.mp4")
	requireContains(t, out, "Rendered "+artifact)
	requireContains(t, out, "Frames:       8")
	if _, err := os.Stat(artifact); err != nil {
		t.Fatalf("expected artifact: %v", err)
	}
	if len(env.fake.Commands()) == 0 {
		t.Fatal("expected encoder commands")
	}
}

func TestRenderCommandJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"--json", "render", "--session", env.sessionPath, "--skip-preflight", "--keep"}, env.configPath)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out)
	}
	if payload["artifact"] != filepath.Join(env.cfg.Paths.OutputDir, "deep-rest.mp4") {
		t.Fatalf("unexpected artifact %v", payload["artifact"])
	}
	workDir, _ := payload["work_dir"].(string)
	if workDir == "" {
		t.Fatal("expected work_dir with --keep")
	}
	if _, err := os.Stat(workDir); err != nil {
		t.Fatalf("expected kept work dir: %v", err)
	}
}

func TestRenderCommandRequiresSession(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"render"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "session") {
		t.Fatalf("expected missing session error, got %v", err)
	}
}

func TestRenderCommandFailsPreflight(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Encoder.FFmpegBinary = filepath.Join(testsupport.BaseDir(env.cfg), "missing-ffmpeg")
	writeTestConfig(t, env.configPath, env.cfg)

	_, _, err := runCLI(t, []string{"render", "--session", env.sessionPath}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "preflight failed") {
		t.Fatalf("expected preflight failure, got %v", err)
	}
	if code := exitCode(err); code != 2 {
		t.Fatalf("preflight failure exit code = %d, want 2", code)
	}
	if len(env.fake.Commands()) != 0 {
		t.Fatal("expected no encoder commands after preflight failure")
	}
}

func TestPlanCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"plan", "--session", env.sessionPath}, env.configPath)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	requireContains(t, out, "Session: Deep Rest")
	requireContains(t, out, "8 frames at 2 fps")
	requireContains(t, out, "Deep Rest")
	requireContains(t, out, "#28147a > #00a08c")
	requireContains(t, out, "intro.png")
	requireContains(t, out, "narration")
	if len(env.fake.Commands()) != 0 {
		t.Fatal("plan must not run media tools")
	}
}

func TestPlanCommandJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"--json", "plan", "--session", env.sessionPath}, env.configPath)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	var payload struct {
		Frames int              `json:"frames"`
		Phases []map[string]any `json:"phases"`
		Stems  []map[string]any `json:"stems"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out)
	}
	if payload.Frames != 8 || len(payload.Phases) != 2 {
		t.Fatalf("unexpected plan: %+v", payload)
	}
	if len(payload.Stems) != 2 || payload.Stems[0]["name"] != "tone" {
		t.Fatalf("unexpected stems: %+v", payload.Stems)
	}
}

func TestDoctorCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"doctor"}, env.configPath)
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	requireContains(t, out, "== Dependencies ==")
	requireContains(t, out, "FFmpeg drawtext")
	requireContains(t, out, "[OK]")
}

func TestDoctorCommandReportsMissingFilter(t *testing.T) {
	env := setupCLITestEnv(t)
	bin := filepath.Dir(env.cfg.Encoder.FFmpegBinary)
	env.cfg.Encoder.FFmpegBinary = writeScript(t, bin, "ffmpeg-plain", "echo 'Filters:'\n")
	writeTestConfig(t, env.configPath, env.cfg)

	out, _, err := runCLI(t, []string{"doctor"}, env.configPath)
	if err == nil {
		t.Fatal("expected doctor to fail without drawtext")
	}
	requireContains(t, out, "[ERROR]")
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "Canvas: 32x18 @ 2 fps")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestStagingListAndClean(t *testing.T) {
	env := setupCLITestEnv(t)
	staging := env.cfg.Paths.StagingDir

	stale := filepath.Join(staging, uuid.NewString())
	fresh := filepath.Join(staging, uuid.NewString())
	other := filepath.Join(staging, "keep-me")
	for _, dir := range []string{stale, fresh, other} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	out, _, err := runCLI(t, []string{"staging", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("staging list: %v", err)
	}
	requireContains(t, out, filepath.Base(stale))
	requireContains(t, strings.ToLower(out), "2 directories")

	out, _, err = runCLI(t, []string{"staging", "clean", "--older-than", "24h"}, env.configPath)
	if err != nil {
		t.Fatalf("staging clean: %v", err)
	}
	requireContains(t, out, "Removed 1 work directories")
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected stale dir removed, stat err = %v", err)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("expected fresh dir kept: %v", err)
	}
	if _, err := os.Stat(other); err != nil {
		t.Fatalf("expected non-run dir kept: %v", err)
	}
}
