package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dreamweave/internal/assemble"
	"dreamweave/internal/background"
	"dreamweave/internal/config"
	"dreamweave/internal/encoder"
	"dreamweave/internal/logging"
	"dreamweave/internal/mixer"
	"dreamweave/internal/overlay"
	"dreamweave/internal/services"
	"dreamweave/internal/session"
	"dreamweave/internal/textutil"
	"dreamweave/internal/timeline"
	"dreamweave/internal/tone"
)

// Stage names, in run order.
const (
	StageValidate     = "validate"
	StageTone         = "tone"
	StageNarration    = "narration"
	StageMix          = "mix"
	StageBackground   = "background"
	StageComposite    = "composite"
	StageVideo        = "video"
	StageAssemble     = "assemble"
	StageDistribution = "distribution"
)

type stage struct {
	name string
	fn   func(context.Context) error
}

// run holds the state passed between stages of one render.
type run struct {
	cfg     *config.Config
	sess    *session.Session
	deps    Deps
	logger  *slog.Logger
	workDir string

	plan         RenderPlan
	clock        timeline.Clock
	tonePath     string
	stems        []mixer.FileStem
	mixPath      string
	mix          mixer.Report
	bgDir        string
	framesDir    string
	videoPath    string
	artifact     assemble.Artifact
	distribution string
}

func (r *run) stages() []stage {
	stages := []stage{
		{StageValidate, r.validate},
		{StageTone, r.renderTone},
		{StageNarration, r.prepareStems},
		{StageMix, r.mixStems},
		{StageBackground, r.renderBackground},
		{StageComposite, r.composite},
		{StageVideo, r.encodeVideo},
		{StageAssemble, r.assemble},
	}
	if r.cfg.Distribution.Enabled {
		stages = append(stages, stage{StageDistribution, r.distribute})
	}
	return stages
}

func (r *run) validate(context.Context) error {
	plan, err := Plan(r.cfg, r.sess)
	if err != nil {
		return err
	}
	if r.cfg.Render.Width <= 0 || r.cfg.Render.Height <= 0 {
		return services.Wrap(services.ErrConfiguration, StageValidate, "canvas",
			fmt.Sprintf("invalid canvas %dx%d", r.cfg.Render.Width, r.cfg.Render.Height), nil)
	}
	r.plan = plan
	r.clock = plan.Clock
	r.logger.Debug("render plan computed",
		logging.Int("tone_segments", len(plan.Segments)),
		logging.Int("placements", len(plan.Placements)),
		logging.Int("frames", plan.Clock.FrameCount()),
		logging.Int("stems", len(plan.Stems)+1),
	)
	return nil
}

func (r *run) renderTone(ctx context.Context) error {
	gen := tone.Generator{SampleRate: r.cfg.Audio.SampleRate, Amplitude: r.cfg.Audio.ToneAmplitude}
	r.tonePath = filepath.Join(r.workDir, "tone.wav")
	return gen.WriteWAV(ctx, r.tonePath, r.plan.Total, r.plan.Segments)
}

// prepareStems converts narration and ambience to the mix format when
// audio.prepare_narration is set; otherwise the sources are mixed as given.
func (r *run) prepareStems(ctx context.Context) error {
	stems := []mixer.FileStem{{Name: "tone", Path: r.tonePath, GainDB: r.plan.ToneGainDB}}
	for _, sp := range r.plan.Stems {
		path := sp.Source
		if r.cfg.Audio.PrepareNarration {
			path = filepath.Join(r.workDir, "stem-"+textutil.Slug(sp.Name)+".wav")
			cmd := encoder.PrepareNarration(sp.Source, path, r.cfg.Audio.SampleRate)
			if _, err := r.deps.Encoder.Run(ctx, cmd); err != nil {
				return err
			}
		}
		stems = append(stems, mixer.FileStem{Name: sp.Name, Path: path, GainDB: sp.GainDB})
	}
	r.stems = stems
	return nil
}

func (r *run) mixStems(ctx context.Context) error {
	r.mixPath = filepath.Join(r.workDir, "mix.wav")
	report, err := mixer.MixFiles(ctx, r.stems, r.mixPath, mixer.Options{
		Policy:    mixer.DurationPolicy(r.cfg.Audio.DurationPolicy),
		Normalize: r.cfg.Audio.Normalize,
	})
	if err != nil {
		return err
	}
	r.mix = report
	logger := logging.WithContext(ctx, r.logger)
	if report.ClippedSamples > 0 {
		logging.WarnWithContext(logger, "mix clipped", "mix_clipped",
			logging.Int64("clipped_samples", report.ClippedSamples),
			logging.String(logging.FieldErrorHint, "lower tone_gain_db or ambience gain, or enable audio.normalize"),
			logging.String(logging.FieldImpact, "audible distortion at clipped samples"),
		)
	}
	logger.Info("mix written",
		logging.String("path", r.mixPath),
		logging.Seconds("duration", report.Duration),
		logging.Float64("normalize_gain_db", report.NormalizeGainDB),
	)
	return nil
}

func (r *run) renderBackground(ctx context.Context) error {
	r.bgDir = filepath.Join(r.workDir, "background")
	gen := background.Generator{
		Clock:     r.clock,
		Width:     r.cfg.Render.Width,
		Height:    r.cfg.Render.Height,
		Keyframes: r.plan.Keyframes,
		Logger:    logging.WithContext(ctx, r.deps.Logger),
	}
	return gen.RenderFrames(ctx, r.bgDir, r.cfg.Render.Workers)
}

func (r *run) composite(ctx context.Context) error {
	r.framesDir = filepath.Join(r.workDir, "frames")
	comp := overlay.Compositor{
		Clock:  r.clock,
		Width:  r.cfg.Render.Width,
		Height: r.cfg.Render.Height,
		Logger: logging.WithContext(ctx, r.deps.Logger),
	}
	layers, err := comp.Load(r.plan.Placements)
	if err != nil {
		return err
	}
	if err := comp.RenderFrames(ctx, r.bgDir, r.framesDir, layers, r.cfg.Render.Workers); err != nil {
		return err
	}
	if !r.cfg.Render.KeepIntermediates {
		if err := os.RemoveAll(r.bgDir); err != nil {
			r.logger.Debug("background frames not removed", logging.Error(err))
		}
	}
	return nil
}

func (r *run) encodeVideo(ctx context.Context) error {
	r.videoPath = filepath.Join(r.workDir, "video.mp4")
	cmd := encoder.FramesToVideo(encoder.VideoSpec{
		FrameDir: r.framesDir,
		FPS:      r.cfg.Render.FPS,
		Frames:   r.clock.FrameCount(),
		Codec:    r.cfg.Assemble.VideoCodec,
		CRF:      r.cfg.Assemble.CRF,
		Output:   r.videoPath,
	})
	_, err := r.deps.Encoder.Run(ctx, cmd)
	return err
}

func (r *run) assemble(ctx context.Context) error {
	req := assemble.Request{
		Video:   r.videoPath,
		Audio:   r.mixPath,
		Output:  OutputPath(r.cfg, r.sess),
		Total:   r.plan.Total,
		WorkDir: r.workDir,
	}
	if tw, ok := r.sess.TitleWindow(); ok {
		req.Title = &assemble.Title{Text: r.sess.Title(), Start: tw.Start, End: tw.End}
	}
	artifact, err := assemble.New(r.deps.Encoder, assemble.OptionsFromConfig(r.cfg), r.deps.Logger).Assemble(ctx, req)
	if err != nil {
		return err
	}
	r.artifact = artifact
	return nil
}

func (r *run) distribute(ctx context.Context) error {
	path, err := r.deps.Distributor.Encode(ctx, r.artifact.Path, r.cfg.Distribution.OutputDir)
	if err != nil {
		return err
	}
	r.distribution = path
	return nil
}
