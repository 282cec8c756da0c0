package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"dreamweave/internal/config"
	"dreamweave/internal/encoder"
	"dreamweave/internal/logging"
	"dreamweave/internal/services"
)

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{errors.New("boom"), 1},
		{fmt.Errorf("video: %w", context.Canceled), 130},
		{services.Wrap(services.ErrInvalidFrequency, "tone", "plan", "beat above carrier", nil), 2},
		{services.Wrap(services.ErrConfiguration, "pipeline", "run", "", nil), 2},
		{fmt.Errorf("assemble: %w", services.Wrap(services.ErrExternalTool, "assemble", "mux", "", errors.New("exit 1"))), 3},
		{services.Wrap(services.ErrTimeout, "encoder", "run", "", nil), 3},
	}
	for _, tc := range cases {
		if got := exitCode(tc.err); got != tc.want {
			t.Fatalf("exitCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestExitCodeForInterruptedMediaTool(t *testing.T) {
	stub := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(stub, []byte("#!/bin/sh\nexec sleep 5\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	cfg := config.Default()
	cfg.Encoder.FFmpegBinary = stub
	enc := encoder.New(&cfg, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)
	_, err := enc.Run(ctx, encoder.Command{Tool: encoder.ToolFFmpeg})
	if err == nil {
		t.Fatal("expected interrupted run to fail")
	}
	if got := exitCode(fmt.Errorf("video: %w", err)); got != 130 {
		t.Fatalf("exitCode = %d, want 130 (err %v)", got, err)
	}
}
