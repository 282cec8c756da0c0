package mixer

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"dreamweave/internal/media/pcm"
	"dreamweave/internal/services"
	"dreamweave/internal/testsupport"
)

const testRate = 1000

func constantBuffer(seconds float64, value float32) pcm.Buffer {
	buf := pcm.NewBuffer(pcm.Format{SampleRate: testRate, Channels: 2}, int(seconds*testRate))
	for i := range buf.Data {
		buf.Data[i] = value
	}
	return buf
}

func approx(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-4
}

func TestMixLongestPadsWithSilence(t *testing.T) {
	narration := constantBuffer(100, 0.5)
	tone := constantBuffer(90, 0.5)
	out, report, err := Mix([]Stem{
		{Name: "narration", GainDB: 0, Buffer: narration},
		{Name: "tone", GainDB: -20, Buffer: tone},
	}, Options{})
	if err != nil {
		t.Fatalf("Mix: %v", err)
	}
	if d := out.Duration(); d != 100 {
		t.Fatalf("duration = %v, want 100", d)
	}
	if report.Duration != 100 || report.Frames != 100*testRate {
		t.Fatalf("unexpected report %+v", report)
	}
	// 0.5 + 0.5*10^(-20/20) = 0.55 while both stems play.
	if v := out.At(10*testRate, 0); !approx(v, 0.55) {
		t.Fatalf("mixed sample = %f, want 0.55", v)
	}
	for i := 90 * testRate; i < out.Frames(); i++ {
		if v := out.At(i, 1); !approx(v, 0.5) {
			t.Fatalf("frame %d = %f, expected narration only (0.5)", i, v)
		}
	}
}

func TestMixShortestTruncates(t *testing.T) {
	out, _, err := Mix([]Stem{
		{Name: "a", Buffer: constantBuffer(3, 0.1)},
		{Name: "b", Buffer: constantBuffer(2, 0.1)},
	}, Options{Policy: Shortest})
	if err != nil {
		t.Fatalf("Mix: %v", err)
	}
	if out.Duration() != 2 {
		t.Fatalf("duration = %v, want 2", out.Duration())
	}
}

func TestMixDoesNotMutateInputs(t *testing.T) {
	a := constantBuffer(1, 0.25)
	b := constantBuffer(1, 0.25)
	snapshot := append([]float32(nil), a.Data...)
	if _, _, err := Mix([]Stem{{Name: "a", GainDB: -6, Buffer: a}, {Name: "b", Buffer: b}}, Options{Normalize: true}); err != nil {
		t.Fatalf("Mix: %v", err)
	}
	for i := range a.Data {
		if a.Data[i] != snapshot[i] {
			t.Fatalf("input stem mutated at %d", i)
		}
	}
}

func TestMixRejectsFormatMismatch(t *testing.T) {
	stereo := constantBuffer(1, 0)
	mono := pcm.NewBuffer(pcm.Format{SampleRate: testRate, Channels: 1}, testRate)
	other := pcm.NewBuffer(pcm.Format{SampleRate: 44100, Channels: 2}, 44100)
	for _, stems := range [][]Stem{
		{{Name: "a", Buffer: stereo}, {Name: "b", Buffer: mono}},
		{{Name: "a", Buffer: stereo}, {Name: "b", Buffer: other}},
	} {
		if _, _, err := Mix(stems, Options{}); !errors.Is(err, services.ErrStemFormatMismatch) {
			t.Fatalf("expected ErrStemFormatMismatch, got %v", err)
		}
	}
}

func TestMixDoesNotNormalizeByDefault(t *testing.T) {
	out, report, err := Mix([]Stem{
		{Name: "a", Buffer: constantBuffer(1, 0.8)},
		{Name: "b", Buffer: constantBuffer(1, 0.8)},
	}, Options{})
	if err != nil {
		t.Fatalf("Mix: %v", err)
	}
	if !approx(out.Data[0], 1.6) {
		t.Fatalf("sample = %f, expected raw sum 1.6", out.Data[0])
	}
	if report.ClippedSamples != int64(len(out.Data)) {
		t.Fatalf("ClippedSamples = %d, want %d", report.ClippedSamples, len(out.Data))
	}
	if report.NormalizeGainDB != 0 {
		t.Fatalf("unexpected normalization gain %f", report.NormalizeGainDB)
	}
}

func TestMixExplicitNormalize(t *testing.T) {
	out, report, err := Mix([]Stem{
		{Name: "a", Buffer: constantBuffer(1, 0.8)},
		{Name: "b", Buffer: constantBuffer(1, 0.8)},
	}, Options{Normalize: true})
	if err != nil {
		t.Fatalf("Mix: %v", err)
	}
	want := float32(GainToAmplitude(-1))
	if !approx(out.Peak(), want) {
		t.Fatalf("peak = %f, want %f", out.Peak(), want)
	}
	if report.ClippedSamples != 0 {
		t.Fatalf("expected no clipping after normalization, got %d", report.ClippedSamples)
	}
	if report.NormalizeGainDB >= 0 {
		t.Fatalf("expected attenuation, got %f dB", report.NormalizeGainDB)
	}
}

func TestMixUnknownPolicy(t *testing.T) {
	_, _, err := Mix([]Stem{{Name: "a", Buffer: constantBuffer(1, 0)}}, Options{Policy: "loudest"})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func writeStem(t *testing.T, dir, name string, buf pcm.Buffer) string {
	t.Helper()
	path := filepath.Join(dir, name+".wav")
	if _, err := pcm.WriteFile(path, buf); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestMixFilesMatchesInMemoryMix(t *testing.T) {
	dir := t.TempDir()
	narration := constantBuffer(20, 0.5)
	tone := constantBuffer(18, 0.5)
	stems := []FileStem{
		{Name: "narration", Path: writeStem(t, dir, "narration", narration)},
		{Name: "tone", Path: writeStem(t, dir, "tone", tone), GainDB: -20},
	}
	out := filepath.Join(dir, "mix.wav")
	report, err := MixFiles(context.Background(), stems, out, Options{})
	if err != nil {
		t.Fatalf("MixFiles: %v", err)
	}
	if report.Duration != 20 {
		t.Fatalf("duration = %v, want 20", report.Duration)
	}
	if report.StemDurations["tone"] != 18 {
		t.Fatalf("tone duration = %v, want 18", report.StemDurations["tone"])
	}
	mixed := testsupport.ReadWAV(t, out)
	if mixed.Frames() != 20*testRate {
		t.Fatalf("frames = %d, want %d", mixed.Frames(), 20*testRate)
	}
	if v := mixed.At(5*testRate, 0); math.Abs(float64(v)-0.55) > 1e-3 {
		t.Fatalf("mixed sample = %f, want ~0.55", v)
	}
	if v := mixed.At(19*testRate, 0); math.Abs(float64(v)-0.5) > 1e-3 {
		t.Fatalf("tail sample = %f, want ~0.5 (narration only)", v)
	}
}

func TestMixFilesCountsClipping(t *testing.T) {
	dir := t.TempDir()
	stems := []FileStem{
		{Name: "a", Path: writeStem(t, dir, "a", constantBuffer(1, 0.9))},
		{Name: "b", Path: writeStem(t, dir, "b", constantBuffer(1, 0.9))},
	}
	report, err := MixFiles(context.Background(), stems, filepath.Join(dir, "mix.wav"), Options{})
	if err != nil {
		t.Fatalf("MixFiles: %v", err)
	}
	if report.ClippedSamples != 2*testRate {
		t.Fatalf("ClippedSamples = %d, want %d", report.ClippedSamples, 2*testRate)
	}
}

func TestMixFilesNormalizes(t *testing.T) {
	dir := t.TempDir()
	stems := []FileStem{
		{Name: "a", Path: writeStem(t, dir, "a", constantBuffer(1, 0.9))},
		{Name: "b", Path: writeStem(t, dir, "b", constantBuffer(1, 0.9))},
	}
	out := filepath.Join(dir, "mix.wav")
	report, err := MixFiles(context.Background(), stems, out, Options{Normalize: true})
	if err != nil {
		t.Fatalf("MixFiles: %v", err)
	}
	if report.ClippedSamples != 0 {
		t.Fatalf("expected no clipping, got %d", report.ClippedSamples)
	}
	mixed := testsupport.ReadWAV(t, out)
	if math.Abs(float64(mixed.Peak())-GainToAmplitude(-1)) > 1e-3 {
		t.Fatalf("peak = %f, want %f", mixed.Peak(), GainToAmplitude(-1))
	}
}

func TestMixFilesRejectsFormatMismatch(t *testing.T) {
	dir := t.TempDir()
	mono := pcm.NewBuffer(pcm.Format{SampleRate: testRate, Channels: 1}, testRate)
	stems := []FileStem{
		{Name: "a", Path: writeStem(t, dir, "a", constantBuffer(1, 0.1))},
		{Name: "b", Path: writeStem(t, dir, "b", mono)},
	}
	_, err := MixFiles(context.Background(), stems, filepath.Join(dir, "mix.wav"), Options{})
	if !errors.Is(err, services.ErrStemFormatMismatch) {
		t.Fatalf("expected ErrStemFormatMismatch, got %v", err)
	}
}
