package assemble

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"dreamweave/internal/config"
	"dreamweave/internal/encoder"
	"dreamweave/internal/logging"
	"dreamweave/internal/services"
	"dreamweave/internal/testsupport"
)

func newAssembler(enc encoder.MediaEncoder) *Assembler {
	cfg := config.Default()
	return New(enc, OptionsFromConfig(&cfg), logging.NewNop())
}

func newRequest(t *testing.T) Request {
	t.Helper()
	dir := t.TempDir()
	return Request{
		Video:   filepath.Join(dir, "work", "video.mp4"),
		Audio:   filepath.Join(dir, "work", "mix.wav"),
		Output:  filepath.Join(dir, "out", "deep-rest.mp4"),
		Total:   30,
		WorkDir: filepath.Join(dir, "work"),
	}
}

func muxCommand(t *testing.T, fake *testsupport.FakeEncoder) encoder.Command {
	t.Helper()
	for _, cmd := range fake.Commands() {
		if cmd.Tool == encoder.ToolFFmpeg {
			return cmd
		}
	}
	t.Fatal("no ffmpeg command recorded")
	return encoder.Command{}
}

func TestAssembleMatchingDurations(t *testing.T) {
	fake := testsupport.NewFakeEncoder(30)
	req := newRequest(t)
	art, err := newAssembler(fake).Assemble(context.Background(), req)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if art.Path != req.Output || art.Duration != 30 {
		t.Fatalf("unexpected artifact %+v", art)
	}
	if _, err := os.Stat(req.Output); err != nil {
		t.Fatalf("expected final artifact: %v", err)
	}
	if _, err := os.Stat(PartialPath(req.Output)); !os.IsNotExist(err) {
		t.Fatalf("partial file left behind, stat err=%v", err)
	}
	cmd := muxCommand(t, fake)
	if slices.Contains(cmd.Args, "-shortest") {
		t.Fatalf("did not expect -shortest for matching durations: %v", cmd.Args)
	}
	if cmd.Output != PartialPath(req.Output) {
		t.Fatalf("mux should write the partial path, wrote %s", cmd.Output)
	}
}

func TestAssembleSmallDriftTrimsWithShortest(t *testing.T) {
	fake := testsupport.NewFakeEncoder(30)
	fake.SetDuration("mix.wav", 30.3)
	if _, err := newAssembler(fake).Assemble(context.Background(), newRequest(t)); err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if cmd := muxCommand(t, fake); !slices.Contains(cmd.Args, "-shortest") {
		t.Fatalf("expected -shortest for in-tolerance drift: %v", cmd.Args)
	}
}

func TestAssembleLargeDriftFails(t *testing.T) {
	fake := testsupport.NewFakeEncoder(30)
	fake.SetDuration("mix.wav", 31)
	req := newRequest(t)
	_, err := newAssembler(fake).Assemble(context.Background(), req)
	if !errors.Is(err, services.ErrDurationMismatch) {
		t.Fatalf("expected ErrDurationMismatch, got %v", err)
	}
	for _, cmd := range fake.Commands() {
		if cmd.Tool == encoder.ToolFFmpeg {
			t.Fatal("mux must not run when durations mismatch")
		}
	}
}

func TestAssembleRoundTripMismatchRemovesPartial(t *testing.T) {
	fake := testsupport.NewFakeEncoder(30)
	fake.SetDuration("deep-rest.partial.mp4", 12)
	req := newRequest(t)
	_, err := newAssembler(fake).Assemble(context.Background(), req)
	if !errors.Is(err, services.ErrDurationMismatch) {
		t.Fatalf("expected ErrDurationMismatch, got %v", err)
	}
	for _, p := range []string{req.Output, PartialPath(req.Output)} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Fatalf("expected %s to be absent, stat err=%v", p, err)
		}
	}
}

func TestAssembleToolFailureLeavesNothing(t *testing.T) {
	fake := testsupport.NewFakeEncoder(30)
	fake.Fail = func(cmd encoder.Command) error {
		if cmd.Tool == encoder.ToolFFmpeg {
			return &encoder.ToolError{Tool: "ffmpeg", ExitCode: 1, Stderr: "boom"}
		}
		return nil
	}
	req := newRequest(t)
	_, err := newAssembler(fake).Assemble(context.Background(), req)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
	if _, err := os.Stat(req.Output); !os.IsNotExist(err) {
		t.Fatalf("expected no artifact, stat err=%v", err)
	}
}

func TestAssembleBurnsTitle(t *testing.T) {
	fake := testsupport.NewFakeEncoder(30)
	req := newRequest(t)
	req.Title = &Title{Text: "  Deep\tRest ", Start: 0, End: 2}
	if _, err := newAssembler(fake).Assemble(context.Background(), req); err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	cmd := muxCommand(t, fake)
	idx := slices.Index(cmd.Args, "-vf")
	if idx < 0 {
		t.Fatalf("expected drawtext filter in %v", cmd.Args)
	}
	filter := cmd.Args[idx+1]
	// The configured fade is capped at half the 2s window.
	if !strings.Contains(filter, "between(t,0.000,2.000)") || !strings.Contains(filter, "(t-0.000)/1.000") {
		t.Fatalf("unexpected title filter %q", filter)
	}
	text, err := os.ReadFile(filepath.Join(req.WorkDir, "title.txt"))
	if err != nil {
		t.Fatalf("read title text: %v", err)
	}
	if string(text) != "Deep Rest" {
		t.Fatalf("title text = %q", text)
	}
}

func TestPartialPath(t *testing.T) {
	if got := PartialPath("/out/deep-rest.mp4"); got != "/out/deep-rest.partial.mp4" {
		t.Fatalf("PartialPath = %q", got)
	}
}
