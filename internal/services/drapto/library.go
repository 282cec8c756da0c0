package drapto

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	draptolib "github.com/five82/drapto"

	"dreamweave/internal/logging"
	"dreamweave/internal/services"
)

// Client defines the distribution encode behaviour.
type Client interface {
	Encode(ctx context.Context, inputPath, outputDir string) (string, error)
}

// encodeFunc runs a single Drapto encode. Tests override it.
var encodeFunc = func(ctx context.Context, inputPath, outputDir string, rep draptolib.Reporter) error {
	encoder, err := draptolib.New(draptolib.WithResponsive())
	if err != nil {
		return err
	}
	_, err = encoder.EncodeWithReporter(ctx, inputPath, outputDir, rep)
	return err
}

// Library implements Client using the Drapto Go library directly.
type Library struct {
	logger *slog.Logger
}

// NewLibrary constructs a Library client that reports progress to logger.
func NewLibrary(logger *slog.Logger) *Library {
	return &Library{logger: logging.NewComponentLogger(logger, "drapto")}
}

// OutputPath returns where Drapto writes the encode of inputPath.
func OutputPath(inputPath, outputDir string) string {
	base := filepath.Base(inputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = base
	}
	return filepath.Join(strings.TrimSpace(outputDir), stem+".mkv")
}

// Encode re-encodes inputPath into outputDir and returns the encoded path.
func (l *Library) Encode(ctx context.Context, inputPath, outputDir string) (string, error) {
	if inputPath == "" {
		return "", services.Wrap(services.ErrValidation, "distribution", "encode", "input path required", nil)
	}
	if strings.TrimSpace(outputDir) == "" {
		return "", services.Wrap(services.ErrConfiguration, "distribution", "encode", "output directory required", nil)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "distribution", "create output dir", outputDir, err)
	}

	logger := logging.WithContext(ctx, l.logger)
	started := time.Now()
	rep := newLogReporter(logger)
	if err := encodeFunc(ctx, inputPath, outputDir, rep); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", services.Wrap(services.ErrExternalTool, "distribution", "drapto encode", filepath.Base(inputPath), err)
	}

	output := OutputPath(inputPath, outputDir)
	info, err := os.Stat(output)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "distribution", "verify output", output, err)
	}
	if info.Size() == 0 {
		return "", services.Wrap(services.ErrExternalTool, "distribution", "verify output", output+" is empty", nil)
	}
	logger.Info("distribution encode completed",
		logging.String(logging.FieldEventType, "distribution_complete"),
		logging.String("output_path", output),
		logging.Int64("encoded_bytes", info.Size()),
		logging.Duration("elapsed", time.Since(started)),
		logging.Int("warnings", rep.warnings),
	)
	return output, nil
}

var _ Client = (*Library)(nil)
