package session

import (
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dreamweave/internal/services"
	"dreamweave/internal/testsupport"
	"dreamweave/internal/tone"
)

const sampleSession = `
title = "  Deep   Rest "
narration = "voice.wav"
fade_seconds = 2.0

[title_window]
start = 0.0
end = 6.0

[[phases]]
name = "intro"
start = 0.0
end = 10.0
color = "#28147a"
carrier = 200.0
beat = 10.0
image = "images/intro.png"

[[phases]]
name = "core"
start = 10.0
end = 30.0
color = "#00a08c"
carrier = 200.0
beat = 6.0
beat_to = 4.0
image = "images/core.png"

[[ambience]]
name = "rain"
path = "rain.wav"
gain_db = -20.0
`

func writeSession(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	testsupport.WritePNG(t, filepath.Join(dir, "images", "intro.png"), 4, 4, color.White)
	testsupport.WritePNG(t, filepath.Join(dir, "images", "core.png"), 4, 4, color.White)
	testsupport.WriteFile(t, filepath.Join(dir, "voice.wav"), 16)
	testsupport.WriteFile(t, filepath.Join(dir, "rain.wav"), 16)
	path := filepath.Join(dir, "session.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write session: %v", err)
	}
	return path
}

func TestLoadResolvesAndValidates(t *testing.T) {
	path := writeSession(t, sampleSession)
	sess, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	dir := filepath.Dir(path)
	if sess.Title() != "Deep Rest" {
		t.Fatalf("Title = %q", sess.Title())
	}
	if sess.OutputName() != "deep-rest" {
		t.Fatalf("OutputName = %q", sess.OutputName())
	}
	if sess.Narration() != filepath.Join(dir, "voice.wav") {
		t.Fatalf("Narration = %q", sess.Narration())
	}
	if sess.Timeline().Total() != 30 {
		t.Fatalf("Total = %v", sess.Timeline().Total())
	}
	if got := sess.Assignments(); len(got) != 2 || got[1].Image != filepath.Join(dir, "images", "core.png") {
		t.Fatalf("unexpected assignments %+v", got)
	}
	if amb := sess.Ambience(); len(amb) != 1 || amb[0].GainDB == nil || *amb[0].GainDB != -20 {
		t.Fatalf("unexpected ambience %+v", amb)
	}
	if tw, ok := sess.TitleWindow(); !ok || tw.End != 6 {
		t.Fatalf("unexpected title window %+v", tw)
	}
	placements, err := sess.Placements()
	if err != nil {
		t.Fatalf("Placements: %v", err)
	}
	if placements[1].Alpha(12) != 255 || placements[1].Alpha(8) != 0 {
		t.Fatal("core placement should follow the master timeline")
	}
}

func TestAccessorsReturnCopies(t *testing.T) {
	sess, err := Load(writeSession(t, sampleSession))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	tones := sess.Tones()
	tones[0].Beat = 99
	if sess.Tones()[0].Beat == 99 {
		t.Fatal("Tones exposes internal state")
	}
	palette := sess.Palette()
	delete(palette, "intro")
	if _, ok := sess.Palette()["intro"]; !ok {
		t.Fatal("Palette exposes internal state")
	}
}

func TestPlanOptionsOverrides(t *testing.T) {
	body := strings.Replace(sampleSession, `fade_seconds = 2.0`, "fade_seconds = 2.0\ntransition_policy = \"abrupt\"", 1)
	sess, err := Load(writeSession(t, body))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	opts := sess.PlanOptions("smooth", 10)
	if opts.Policy != tone.TransitionAbrupt || opts.Window != 10 {
		t.Fatalf("unexpected plan options %+v", opts)
	}
}

func TestLoadRejections(t *testing.T) {
	cases := []struct {
		name   string
		edit   func(string) string
		marker error
	}{
		{"out of range beat", func(s string) string { return strings.Replace(s, "beat = 10.0", "beat = 150.0", 1) }, services.ErrInvalidFrequency},
		{"gap in timeline", func(s string) string { return strings.Replace(s, "start = 10.0", "start = 11.0", 1) }, services.ErrInvalidTimeline},
		{"fade too long", func(s string) string { return strings.Replace(s, "fade_seconds = 2.0", "fade_seconds = 6.0", 1) }, services.ErrInvalidFadeWindow},
		{"loud ambience", func(s string) string { return strings.Replace(s, "gain_db = -20.0", "gain_db = 3.0", 1) }, services.ErrValidation},
		{"missing image", func(s string) string { return strings.Replace(s, "images/core.png", "images/nope.png", 1) }, services.ErrValidation},
		{"bad color", func(s string) string { return strings.Replace(s, "#00a08c", "teal", 1) }, services.ErrValidation},
		{"unknown key", func(s string) string { return s + "\nvolume = 11\n" }, services.ErrValidation},
		{"title window past end", func(s string) string { return strings.Replace(s, "end = 6.0", "end = 45.0", 1) }, services.ErrInvalidDuration},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeSession(t, tc.edit(sampleSession)))
			if !errors.Is(err, tc.marker) {
				t.Fatalf("expected %v, got %v", tc.marker, err)
			}
		})
	}
}

func TestLoadRequiresAnImage(t *testing.T) {
	body := strings.ReplaceAll(sampleSession, `image = "images/intro.png"`, "")
	body = strings.ReplaceAll(body, `image = "images/core.png"`, "")
	_, err := Load(writeSession(t, body))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
