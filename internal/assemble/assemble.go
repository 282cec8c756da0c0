package assemble

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"dreamweave/internal/config"
	"dreamweave/internal/encoder"
	"dreamweave/internal/fileutil"
	"dreamweave/internal/logging"
	"dreamweave/internal/services"
	"dreamweave/internal/textutil"
)

// driftEpsilon ignores sub-millisecond differences from container duration rounding.
const driftEpsilon = 1e-3

// Options configure the mux.
type Options struct {
	Tolerance     float64
	VideoCodec    string
	AudioCodec    string
	AudioBitrate  string
	CRF           int
	TitleFont     string
	TitleFontSize int
	TitleFade     float64
}

// OptionsFromConfig reads the [assemble] section.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Tolerance:     cfg.Assemble.DurationToleranceSeconds,
		VideoCodec:    cfg.Assemble.VideoCodec,
		AudioCodec:    cfg.Assemble.AudioCodec,
		AudioBitrate:  cfg.Assemble.AudioBitrate,
		CRF:           cfg.Assemble.CRF,
		TitleFont:     cfg.Assemble.TitleFont,
		TitleFontSize: cfg.Assemble.TitleFontSize,
		TitleFade:     cfg.Assemble.TitleFadeSeconds,
	}
}

// Title is the text burned in over [Start, End].
type Title struct {
	Text  string
	Start float64
	End   float64
}

// Request names the inputs and destination of one assembly.
type Request struct {
	Video  string
	Audio  string
	Output string
	// Total is the session length the artifact must match.
	Total float64
	Title *Title
	// WorkDir holds scratch files such as the title text.
	WorkDir string
}

// Artifact is the deliverable handed to downstream packaging.
type Artifact struct {
	Path     string
	Duration float64
}

// Assembler muxes final artifacts through a MediaEncoder.
type Assembler struct {
	enc    encoder.MediaEncoder
	opts   Options
	logger *slog.Logger
}

// New constructs an Assembler.
func New(enc encoder.MediaEncoder, opts Options, logger *slog.Logger) *Assembler {
	return &Assembler{enc: enc, opts: opts, logger: logging.NewComponentLogger(logger, "assembler")}
}

// Assemble muxes req.Video with req.Audio into req.Output.
func (a *Assembler) Assemble(ctx context.Context, req Request) (Artifact, error) {
	logger := logging.WithContext(ctx, a.logger)

	videoDur, err := a.mediaDuration(ctx, req.Video)
	if err != nil {
		return Artifact{}, err
	}
	audioDur, err := a.mediaDuration(ctx, req.Audio)
	if err != nil {
		return Artifact{}, err
	}
	drift := math.Abs(videoDur - audioDur)
	if drift > a.opts.Tolerance {
		return Artifact{}, services.Wrap(services.ErrDurationMismatch, "assemble", "compare durations",
			fmt.Sprintf("video %.3fs vs audio %.3fs differ by %.3fs (tolerance %.3fs)", videoDur, audioDur, drift, a.opts.Tolerance), nil)
	}
	shortest := drift > driftEpsilon
	if shortest {
		logging.WarnWithContext(logger, "audio and video durations differ", "duration_drift",
			logging.Seconds("video", videoDur),
			logging.Seconds("audio", audioDur),
			logging.Seconds("drift", drift),
			logging.String(logging.FieldErrorHint, "an upstream stage produced a short or long stream; inspect the intermediates"),
			logging.String(logging.FieldImpact, "output trimmed to the shorter stream"),
		)
	}

	spec := encoder.MuxSpec{
		Video:        req.Video,
		Audio:        req.Audio,
		VideoCodec:   a.opts.VideoCodec,
		AudioCodec:   a.opts.AudioCodec,
		AudioBitrate: a.opts.AudioBitrate,
		CRF:          a.opts.CRF,
		Shortest:     shortest,
		Format:       muxerFor(req.Output),
	}
	if req.Title != nil {
		title, err := a.titleSpec(req)
		if err != nil {
			return Artifact{}, err
		}
		spec.Title = title
	}

	if err := os.MkdirAll(filepath.Dir(req.Output), 0o755); err != nil {
		return Artifact{}, services.Wrap(services.ErrValidation, "assemble", "create output dir", req.Output, err)
	}
	partial := PartialPath(req.Output)
	spec.Output = partial
	_ = os.Remove(partial)

	if _, err := a.enc.Run(ctx, encoder.TitleAndMux(spec)); err != nil {
		_ = os.Remove(partial)
		return Artifact{}, services.Wrap(services.ErrExternalTool, "assemble", "mux", req.Output, err)
	}

	finalDur, err := a.mediaDuration(ctx, partial)
	if err != nil {
		_ = os.Remove(partial)
		return Artifact{}, err
	}
	if diff := math.Abs(finalDur - req.Total); diff > a.opts.Tolerance {
		_ = os.Remove(partial)
		return Artifact{}, services.Wrap(services.ErrDurationMismatch, "assemble", "verify output",
			fmt.Sprintf("artifact is %.3fs, session is %.3fs", finalDur, req.Total), nil)
	}
	if err := fileutil.MoveFile(partial, req.Output); err != nil {
		_ = os.Remove(partial)
		return Artifact{}, services.Wrap(services.ErrValidation, "assemble", "commit output", req.Output, err)
	}

	logger.Info("final artifact written",
		logging.String(logging.FieldEventType, "artifact_written"),
		logging.String("path", req.Output),
		logging.Seconds("duration", finalDur),
		logging.Bool("trimmed", shortest),
		logging.Bool("title", spec.Title != nil),
	)
	return Artifact{Path: req.Output, Duration: finalDur}, nil
}

func (a *Assembler) titleSpec(req Request) (*encoder.TitleSpec, error) {
	text := textutil.NormalizeTitle(req.Title.Text)
	if text == "" {
		return nil, nil
	}
	window := req.Title.End - req.Title.Start
	if window <= 0 {
		return nil, services.Wrap(services.ErrInvalidDuration, "assemble", "title", "title window is empty", nil)
	}
	if err := os.MkdirAll(req.WorkDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrValidation, "assemble", "title", req.WorkDir, err)
	}
	textFile := filepath.Join(req.WorkDir, "title.txt")
	if err := os.WriteFile(textFile, []byte(text), 0o644); err != nil {
		return nil, services.Wrap(services.ErrValidation, "assemble", "title", textFile, err)
	}
	return &encoder.TitleSpec{
		TextFile: textFile,
		Font:     a.opts.TitleFont,
		FontSize: a.opts.TitleFontSize,
		Start:    req.Title.Start,
		End:      req.Title.End,
		Fade:     math.Min(a.opts.TitleFade, window/2),
	}, nil
}

func (a *Assembler) mediaDuration(ctx context.Context, path string) (float64, error) {
	res, err := encoder.Inspect(ctx, a.enc, path)
	if err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "assemble", "inspect", path, err)
	}
	d := res.MediaDuration()
	if math.IsNaN(d) || d <= 0 {
		return 0, services.Wrap(services.ErrExternalTool, "assemble", "inspect", fmt.Sprintf("%s reports no duration", path), nil)
	}
	return d, nil
}

// PartialPath returns the staging path for output: "x.mp4" -> "x.partial.mp4".
func PartialPath(output string) string {
	ext := filepath.Ext(output)
	return strings.TrimSuffix(output, ext) + ".partial" + ext
}

func muxerFor(output string) string {
	switch strings.ToLower(filepath.Ext(output)) {
	case ".mp4", ".m4v":
		return "mp4"
	case ".mov":
		return "mov"
	case ".mkv":
		return "matroska"
	default:
		return ""
	}
}
