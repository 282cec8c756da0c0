package encoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"dreamweave/internal/config"
	"dreamweave/internal/logging"
	"dreamweave/internal/media/ffprobe"
	"dreamweave/internal/services"
)

// Tool names accepted by Command.Tool.
const (
	ToolFFmpeg  = "ffmpeg"
	ToolFFprobe = "ffprobe"
)

const (
	// stderrTailBytes bounds how much tool stderr is kept on failure.
	stderrTailBytes = 2048
	// waitDelay bounds output draining after the tool is killed.
	waitDelay = 2 * time.Second
)

// Command is one external tool invocation.
type Command struct {
	Tool string
	Args []string
	// Output, when set, must exist and be non-empty after a successful run.
	Output string
}

func (c Command) String() string {
	return c.Tool + " " + strings.Join(c.Args, " ")
}

// Result is the outcome of a successful invocation.
type Result struct {
	Output  string
	Stderr  string
	Elapsed time.Duration
}

// MediaEncoder runs external media tool commands.
type MediaEncoder interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// ToolError reports a failed external tool invocation.
type ToolError struct {
	Tool     string
	Args     []string
	ExitCode int
	Stderr   string
	TimedOut bool
	Err      error
}

func (e *ToolError) Error() string {
	var b strings.Builder
	b.WriteString(e.Tool)
	switch {
	case e.TimedOut:
		b.WriteString(" timed out")
	case e.ExitCode != 0:
		fmt.Fprintf(&b, " exited with status %d", e.ExitCode)
	default:
		b.WriteString(" failed")
	}
	if e.Err != nil && !e.TimedOut && e.ExitCode == 0 {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if tail := strings.TrimSpace(e.Stderr); tail != "" {
		b.WriteString(": ")
		b.WriteString(tail)
	}
	return b.String()
}

// Unwrap exposes ErrExternalTool (and ErrTimeout when applicable) to errors.Is.
func (e *ToolError) Unwrap() []error {
	errs := []error{services.ErrExternalTool}
	if e.TimedOut {
		errs = append(errs, services.ErrTimeout)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

var commandContext = exec.CommandContext

// FFmpeg executes ffmpeg and ffprobe binaries.
type FFmpeg struct {
	ffmpeg  string
	ffprobe string
	timeout time.Duration
	logger  *slog.Logger
}

// New constructs an FFmpeg encoder from configuration.
func New(cfg *config.Config, logger *slog.Logger) *FFmpeg {
	timeout := time.Duration(cfg.Encoder.TimeoutSeconds) * time.Second
	return &FFmpeg{
		ffmpeg:  cfg.FFmpegBinary(),
		ffprobe: cfg.FFprobeBinary(),
		timeout: timeout,
		logger:  logging.NewComponentLogger(logger, "encoder"),
	}
}

// Run executes cmd, bounded by the configured timeout.
func (f *FFmpeg) Run(ctx context.Context, cmd Command) (Result, error) {
	binary, err := f.binaryFor(cmd.Tool)
	if err != nil {
		return Result{}, err
	}
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	logger := logging.WithContext(ctx, f.logger)
	logger.Debug("running media tool",
		logging.String("tool", cmd.Tool),
		logging.String("binary", binary),
		logging.String("command", cmd.String()),
	)

	var stdout, stderr bytes.Buffer
	proc := commandContext(ctx, binary, cmd.Args...) //nolint:gosec
	proc.Stdout = &stdout
	proc.Stderr = &stderr
	proc.WaitDelay = waitDelay
	start := time.Now()
	runErr := proc.Run()
	elapsed := time.Since(start)

	if runErr != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			logger.Info("media tool cancelled",
				logging.String("tool", cmd.Tool),
				logging.Duration("elapsed", elapsed),
				logging.String(logging.FieldEventType, "media_tool_cancelled"),
			)
			return Result{}, fmt.Errorf("%s cancelled: %w", cmd.Tool, ctx.Err())
		}
		toolErr := &ToolError{
			Tool:   cmd.Tool,
			Args:   append([]string(nil), cmd.Args...),
			Stderr: tail(stderr.String(), stderrTailBytes),
			Err:    runErr,
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			toolErr.TimedOut = true
		}
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			toolErr.ExitCode = exitErr.ExitCode()
		}
		logging.ErrorWithContext(logger, "media tool failed", "media_tool_failed",
			logging.String("tool", cmd.Tool),
			logging.Int("exit_code", toolErr.ExitCode),
			logging.Bool("timed_out", toolErr.TimedOut),
			logging.Duration("elapsed", elapsed),
			logging.Error(toolErr),
			logging.String(logging.FieldErrorHint, "inspect the stderr tail and the intermediate files in the run work directory"),
		)
		return Result{}, toolErr
	}

	if cmd.Output != "" {
		info, statErr := os.Stat(cmd.Output)
		if statErr != nil || info.Size() == 0 {
			return Result{}, &ToolError{
				Tool:   cmd.Tool,
				Args:   append([]string(nil), cmd.Args...),
				Stderr: tail(stderr.String(), stderrTailBytes),
				Err:    fmt.Errorf("expected output %s was not produced", cmd.Output),
			}
		}
	}

	logger.Debug("media tool finished",
		logging.String("tool", cmd.Tool),
		logging.Duration("elapsed", elapsed),
	)
	return Result{Output: stdout.String(), Stderr: stderr.String(), Elapsed: elapsed}, nil
}

func (f *FFmpeg) binaryFor(tool string) (string, error) {
	switch tool {
	case ToolFFmpeg:
		return f.ffmpeg, nil
	case ToolFFprobe:
		return f.ffprobe, nil
	default:
		return "", services.Wrap(services.ErrConfiguration, "encoder", "run", fmt.Sprintf("unsupported tool %q", tool), nil)
	}
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}

// Inspect reads path with ffprobe through enc.
func Inspect(ctx context.Context, enc MediaEncoder, path string) (ffprobe.Result, error) {
	res, err := enc.Run(ctx, Command{Tool: ToolFFprobe, Args: ffprobe.Args(path)})
	if err != nil {
		return ffprobe.Result{}, err
	}
	parsed, err := ffprobe.Parse([]byte(res.Output))
	if err != nil {
		return ffprobe.Result{}, services.Wrap(services.ErrExternalTool, "encoder", "inspect", path, err)
	}
	return parsed, nil
}
