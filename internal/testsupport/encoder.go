package testsupport

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"dreamweave/internal/encoder"
)

// FakeEncoder records commands instead of running media tools. ffmpeg
// commands with an Output get a placeholder file, except PCM conversions,
// which copy their input through unchanged; ffprobe commands answer with
// the duration registered for the inspected path.
type FakeEncoder struct {
	mu        sync.Mutex
	commands  []encoder.Command
	durations map[string]float64

	// DefaultDuration answers lookups for unregistered paths.
	DefaultDuration float64
	// Fail, when set, is consulted before each command runs.
	Fail func(encoder.Command) error
}

// NewFakeEncoder returns a FakeEncoder answering every lookup with duration.
func NewFakeEncoder(duration float64) *FakeEncoder {
	return &FakeEncoder{durations: make(map[string]float64), DefaultDuration: duration}
}

// SetDuration registers the reported duration for a file name (base name match).
func (f *FakeEncoder) SetDuration(name string, seconds float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.durations[filepath.Base(name)] = seconds
}

// Commands returns a copy of the recorded commands.
func (f *FakeEncoder) Commands() []encoder.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]encoder.Command(nil), f.commands...)
}

// Run implements encoder.MediaEncoder.
func (f *FakeEncoder) Run(_ context.Context, cmd encoder.Command) (encoder.Result, error) {
	f.mu.Lock()
	f.commands = append(f.commands, cmd)
	fail := f.Fail
	f.mu.Unlock()

	if fail != nil {
		if err := fail(cmd); err != nil {
			return encoder.Result{}, err
		}
	}
	switch cmd.Tool {
	case encoder.ToolFFprobe:
		path := cmd.Args[len(cmd.Args)-1]
		f.mu.Lock()
		d, ok := f.durations[filepath.Base(path)]
		f.mu.Unlock()
		if !ok {
			d = f.DefaultDuration
		}
		out := fmt.Sprintf(`{"streams":[{"index":0,"codec_type":"video","duration":"%.3f"},{"index":1,"codec_type":"audio","duration":"%.3f"}],"format":{"filename":%q,"duration":"%.3f"}}`, d, d, path, d)
		return encoder.Result{Output: out}, nil
	default:
		if cmd.Output != "" {
			if err := os.MkdirAll(filepath.Dir(cmd.Output), 0o755); err != nil {
				return encoder.Result{}, err
			}
			payload := []byte("fake media")
			if input, ok := pcmConversionInput(cmd.Args); ok {
				data, err := os.ReadFile(input)
				if err != nil {
					return encoder.Result{}, err
				}
				payload = data
			}
			if err := os.WriteFile(cmd.Output, payload, 0o644); err != nil {
				return encoder.Result{}, err
			}
		}
		return encoder.Result{}, nil
	}
}

func pcmConversionInput(args []string) (string, bool) {
	input := ""
	pcm := false
	for i, arg := range args {
		if arg == "-i" && i+1 < len(args) {
			input = args[i+1]
		}
		if arg == "pcm_s16le" {
			pcm = true
		}
	}
	return input, pcm && input != ""
}
