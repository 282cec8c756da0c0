package stageexec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"dreamweave/internal/logging"
	"dreamweave/internal/services"
)

// Handler is the stage contract used by the execution helper.
type Handler interface {
	Execute(context.Context) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(context.Context) error

// Execute calls f.
func (f HandlerFunc) Execute(ctx context.Context) error { return f(ctx) }

// Options controls a single stage execution.
type Options struct {
	Logger    *slog.Logger
	Handler   Handler
	StageName string
}

// Run executes a stage with start, completion and failure logging. The
// returned error always names the stage and carries a services marker.
func Run(ctx context.Context, opts Options) error {
	if opts.Handler == nil {
		return fmt.Errorf("stage handler unavailable: %s", opts.StageName)
	}

	stageCtx := services.WithStage(ctx, opts.StageName)
	stageLogger := logging.WithContext(stageCtx, opts.Logger)
	started := time.Now()

	stageLogger.Info(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
	)

	if err := ctx.Err(); err != nil {
		return handleFailure(stageLogger, opts.StageName, started, err)
	}
	if err := opts.Handler.Execute(stageCtx); err != nil {
		return handleFailure(stageLogger, opts.StageName, started, err)
	}

	stageLogger.Info(
		"stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}

func handleFailure(logger *slog.Logger, stageName string, started time.Time, stageErr error) error {
	marker := services.Marker(stageErr)
	wrapped := stageErr
	switch {
	case errors.Is(stageErr, context.Canceled), errors.Is(stageErr, context.DeadlineExceeded):
		wrapped = fmt.Errorf("%s: %w", stageName, stageErr)
	case marker == nil:
		wrapped = services.Wrap(services.ErrValidation, stageName, "execute", "", stageErr)
		marker = services.ErrValidation
	default:
		wrapped = fmt.Errorf("%s: %w", stageName, stageErr)
	}

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String("error_message", strings.TrimSpace(stageErr.Error())),
		logging.Duration("elapsed", time.Since(started)),
		logging.Error(stageErr),
	}
	if marker != nil {
		attrs = append(attrs, logging.String("error_kind", marker.Error()))
	}
	logging.ErrorWithContext(logger, "stage failed", "stage_failure", attrs...)
	return wrapped
}
