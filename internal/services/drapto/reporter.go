package drapto

import (
	"log/slog"

	draptolib "github.com/five82/drapto"

	"dreamweave/internal/logging"
)

// logReporter routes Drapto Reporter callbacks into a structured logger.
// Encoding progress is sampled into 10% buckets.
type logReporter struct {
	logger   *slog.Logger
	sampler  *logging.ProgressSampler
	warnings int
}

func newLogReporter(logger *slog.Logger) *logReporter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &logReporter{logger: logger, sampler: logging.NewProgressSampler(10)}
}

func (r *logReporter) Hardware(s draptolib.HardwareSummary) {
	r.logger.Debug("drapto hardware", logging.Any("hostname", s.Hostname))
}

func (r *logReporter) Initialization(s draptolib.InitializationSummary) {
	r.logger.Info("drapto encode initialized",
		logging.String(logging.FieldEventType, "distribution_start"),
		logging.Any("input_file", s.InputFile),
		logging.Any("output_file", s.OutputFile),
		logging.Any("resolution", s.Resolution),
		logging.Any("duration", s.Duration),
	)
}

func (r *logReporter) StageProgress(s draptolib.StageProgress) {
	r.logger.Debug("drapto stage",
		logging.Any("drapto_stage", s.Stage),
		logging.Float64("percent", float64(s.Percent)),
		logging.Any("message", s.Message),
	)
}

func (r *logReporter) CropResult(s draptolib.CropSummary) {
	r.logger.Debug("drapto crop detection",
		logging.Any("crop", s.Crop),
		logging.Any("required", s.Required),
		logging.Any("disabled", s.Disabled),
	)
}

func (r *logReporter) EncodingConfig(s draptolib.EncodingConfigSummary) {
	r.logger.Info("drapto encoding config",
		logging.Any("encoder", s.Encoder),
		logging.Any("preset", s.Preset),
		logging.Any("quality", s.Quality),
		logging.Any("audio_codec", s.AudioCodec),
	)
}

func (r *logReporter) EncodingStarted(totalFrames uint64) {
	r.logger.Info("drapto encoding started", logging.Int64("frames_total", int64(totalFrames)))
}

func (r *logReporter) EncodingProgress(s draptolib.ProgressSnapshot) {
	percent := float64(s.Percent)
	if !r.sampler.ShouldLog(int(percent), 100) {
		return
	}
	r.logger.Info("drapto encoding progress",
		logging.Float64("percent", percent),
		logging.Float64("speed", float64(s.Speed)),
		logging.Float64("fps", float64(s.FPS)),
		logging.Any("eta", s.ETA),
	)
}

func (r *logReporter) ValidationComplete(s draptolib.ValidationSummary) {
	failed := 0
	for _, step := range s.Steps {
		if !step.Passed {
			failed++
			logging.WarnWithContext(r.logger, "drapto validation step failed", "distribution_validation",
				logging.Any("step", step.Name),
				logging.Any("details", step.Details),
			)
		}
	}
	r.logger.Info("drapto validation complete",
		logging.Any("passed", s.Passed),
		logging.Int("failed_steps", failed),
	)
}

func (r *logReporter) EncodingComplete(s draptolib.EncodingOutcome) {
	r.logger.Info("drapto encoding complete",
		logging.Any("output_path", s.OutputPath),
		logging.Int64("original_bytes", int64(s.OriginalSize)),
		logging.Int64("encoded_bytes", int64(s.EncodedSize)),
		logging.Any("total_time", s.TotalTime),
	)
}

func (r *logReporter) Warning(message string) {
	r.warnings++
	logging.WarnWithContext(r.logger, "drapto warning", "distribution_warning",
		logging.String("message", message),
	)
}

func (r *logReporter) Error(e draptolib.ReporterError) {
	logging.ErrorWithContext(r.logger, "drapto error", "distribution_error",
		logging.Any("title", e.Title),
		logging.Any("message", e.Message),
		logging.Any("context", e.Context),
		logging.Any(logging.FieldErrorHint, e.Suggestion),
	)
}

func (r *logReporter) OperationComplete(message string) {
	r.logger.Debug("drapto operation complete", logging.String("message", message))
}

func (r *logReporter) BatchStarted(s draptolib.BatchStartInfo) {
	r.logger.Debug("drapto batch started", logging.Any("files_total", s.TotalFiles))
}

func (r *logReporter) FileProgress(s draptolib.FileProgressContext) {
	r.logger.Debug("drapto file progress",
		logging.Any("current_file", s.CurrentFile),
		logging.Any("files_total", s.TotalFiles),
	)
}

func (r *logReporter) BatchComplete(s draptolib.BatchSummary) {
	r.logger.Debug("drapto batch complete",
		logging.Any("successful", s.SuccessfulCount),
		logging.Any("files_total", s.TotalFiles),
	)
}

var _ draptolib.Reporter = (*logReporter)(nil)
