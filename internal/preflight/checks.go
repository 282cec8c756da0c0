package preflight

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"dreamweave/internal/config"
	"dreamweave/internal/deps"
)

var commandContext = exec.CommandContext

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFontFile verifies that a configured title font is a readable file.
func CheckFontFile(path string) Result {
	const name = "Title font"
	info, err := os.Stat(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckFFmpegFilter verifies that ffmpeg was built with the named filter.
// Title burn-in needs drawtext, which depends on libfreetype.
func CheckFFmpegFilter(ctx context.Context, binary, filter string) Result {
	name := "FFmpeg " + filter
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cmd := commandContext(checkCtx, binary, "-hide_banner", "-filters") //nolint:gosec
	output, err := cmd.Output()
	if err != nil {
		if errors.Is(checkCtx.Err(), context.DeadlineExceeded) {
			return Result{Name: name, Detail: "filter listing timed out"}
		}
		return Result{Name: name, Detail: fmt.Sprintf("filter listing failed (%v)", err)}
	}
	if hasFilter(output, filter) {
		return Result{Name: name, Passed: true, Detail: "available"}
	}
	return Result{Name: name, Detail: fmt.Sprintf("filter %q not compiled into %s", filter, binary)}
}

// hasFilter scans `ffmpeg -filters` output, whose rows look like
// " T.C drawtext          V->V       Draw text on top of video frames".
func hasFilter(output []byte, filter string) bool {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 2 && fields[1] == filter {
			return true
		}
	}
	return false
}

// CheckSystemDeps evaluates the external binaries needed for the given config.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     deps.ResolveBinary(cfg.FFmpegBinary(), "ffmpeg"),
			Description: "Required for video encoding and final muxing",
			VersionArgs: []string{"-version"},
		},
		{
			Name:        "FFprobe",
			Command:     deps.ResolveBinary(cfg.FFprobeBinary(), "ffprobe"),
			Description: "Required for duration inspection",
			VersionArgs: []string{"-version"},
		},
	}
	return deps.CheckBinaries(ctx, requirements)
}
