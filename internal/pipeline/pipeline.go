package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"dreamweave/internal/assemble"
	"dreamweave/internal/config"
	"dreamweave/internal/encoder"
	"dreamweave/internal/logging"
	"dreamweave/internal/mixer"
	"dreamweave/internal/services"
	"dreamweave/internal/services/drapto"
	"dreamweave/internal/session"
	"dreamweave/internal/stageexec"
)

// LockFileName is created in the output directory while a render runs.
const LockFileName = ".dreamweave.lock"

// ErrRenderInProgress reports that another render holds the output lock.
var ErrRenderInProgress = errors.New("render already in progress")

// Deps carries the collaborators a run needs. Nil fields get production
// implementations built from the config.
type Deps struct {
	Encoder     encoder.MediaEncoder
	Distributor drapto.Client
	Logger      *slog.Logger
}

// Result describes a finished render.
type Result struct {
	RunID    string
	Artifact assemble.Artifact
	// Distribution is the AV1 encode path when the distribution stage ran.
	Distribution string
	// WorkDir is set when intermediates were kept.
	WorkDir string
	Mix     mixer.Report
	Frames  int
	Elapsed time.Duration
}

// Run renders sess end to end.
func Run(ctx context.Context, cfg *config.Config, sess *session.Session, deps Deps) (Result, error) {
	if cfg == nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "pipeline", "run", "config is required", nil)
	}
	if sess == nil {
		return Result{}, services.Wrap(services.ErrValidation, "pipeline", "run", "session is required", nil)
	}

	logger := logging.NewComponentLogger(deps.Logger, "pipeline")
	if deps.Encoder == nil {
		deps.Encoder = encoder.New(cfg, deps.Logger)
	}
	if deps.Distributor == nil && cfg.Distribution.Enabled {
		deps.Distributor = drapto.NewLibrary(deps.Logger)
	}

	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	ctx = services.WithSession(ctx, sess.Title())
	logger = logging.WithContext(ctx, logger)

	if err := os.MkdirAll(cfg.Paths.OutputDir, 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "pipeline", "create output dir", cfg.Paths.OutputDir, err)
	}
	lockPath := filepath.Join(cfg.Paths.OutputDir, LockFileName)
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "pipeline", "acquire lock", lockPath, err)
	}
	if !ok {
		return Result{}, services.Wrap(services.ErrValidation, "pipeline", "acquire lock", lockPath, ErrRenderInProgress)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logging.WarnWithContext(logger, "failed to release render lock", "render_lock_release_failed",
				logging.String("lock", lockPath),
				logging.Error(err),
				logging.String(logging.FieldImpact, "next render may need the lock file removed"),
			)
		}
	}()

	workDir := filepath.Join(cfg.Paths.StagingDir, runID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "pipeline", "create work dir", workDir, err)
	}

	started := time.Now()
	logger.Info("render started",
		logging.String(logging.FieldEventType, "render_start"),
		logging.String("session_file", sess.Path()),
		logging.Seconds("total", sess.Timeline().Total()),
		logging.Int("phases", sess.Timeline().Len()),
		logging.String("work_dir", workDir),
	)

	r := &run{
		cfg:     cfg,
		sess:    sess,
		deps:    deps,
		logger:  logger,
		workDir: workDir,
	}
	for _, st := range r.stages() {
		err := stageexec.Run(ctx, stageexec.Options{
			Logger:    logger,
			StageName: st.name,
			Handler:   stageexec.HandlerFunc(st.fn),
		})
		if err != nil {
			logging.ErrorWithContext(logger, "render failed", "render_failure",
				logging.String(logging.FieldStage, st.name),
				logging.String("work_dir", workDir),
				logging.String(logging.FieldErrorHint, "intermediates kept in work_dir for inspection"),
				logging.Error(err),
			)
			return Result{RunID: runID, WorkDir: workDir}, err
		}
	}

	result := Result{
		RunID:        runID,
		Artifact:     r.artifact,
		Distribution: r.distribution,
		Mix:          r.mix,
		Frames:       r.clock.FrameCount(),
		Elapsed:      time.Since(started),
	}
	if cfg.Render.KeepIntermediates {
		result.WorkDir = workDir
	} else if err := os.RemoveAll(workDir); err != nil {
		logging.WarnWithContext(logger, "failed to remove work directory", "work_dir_cleanup_failed",
			logging.String("work_dir", workDir),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check staging_dir permissions"),
			logging.String(logging.FieldImpact, "disk space not reclaimed"),
		)
		result.WorkDir = workDir
	}

	logger.Info("render completed",
		logging.String(logging.FieldEventType, "render_complete"),
		logging.String("artifact", result.Artifact.Path),
		logging.Seconds("duration", result.Artifact.Duration),
		logging.Int("frames", result.Frames),
		logging.Duration("elapsed", result.Elapsed),
	)
	return result, nil
}

// OutputPath returns where a session's artifact lands.
func OutputPath(cfg *config.Config, sess *session.Session) string {
	return filepath.Join(cfg.Paths.OutputDir, fmt.Sprintf("%s.mp4", sess.OutputName()))
}
