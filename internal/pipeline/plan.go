package pipeline

import (
	"dreamweave/internal/background"
	"dreamweave/internal/config"
	"dreamweave/internal/overlay"
	"dreamweave/internal/services"
	"dreamweave/internal/session"
	"dreamweave/internal/timeline"
	"dreamweave/internal/tone"
)

// StemPlan is one mixer input before preparation.
type StemPlan struct {
	Name   string
	Source string
	GainDB float64
}

// RenderPlan is everything a render computes before touching media.
type RenderPlan struct {
	Total      float64
	Clock      timeline.Clock
	Phases     []timeline.Phase
	Segments   []tone.Segment
	Placements []overlay.Placement
	Keyframes  background.Keyframes
	// Stems lists narration and ambience; the tone stem is generated.
	Stems      []StemPlan
	ToneGainDB float64
}

// Plan computes tone segments, placements, color keyframes and stem levels
// for sess under cfg.
func Plan(cfg *config.Config, sess *session.Session) (RenderPlan, error) {
	if cfg == nil || sess == nil {
		return RenderPlan{}, services.Wrap(services.ErrConfiguration, "pipeline", "plan", "config and session are required", nil)
	}
	tl := sess.Timeline()
	total := tl.Total()

	clock, err := timeline.NewClock(cfg.Render.FPS, total)
	if err != nil {
		return RenderPlan{}, err
	}
	segments, err := tone.Plan(tl, sess.Tones(), sess.PlanOptions(cfg.Tone.TransitionPolicy, cfg.Tone.TransitionWindowSeconds))
	if err != nil {
		return RenderPlan{}, err
	}
	if err := tone.ValidateSegments(total, segments); err != nil {
		return RenderPlan{}, err
	}
	placements, err := sess.Placements()
	if err != nil {
		return RenderPlan{}, err
	}
	if err := overlay.ValidatePlacements(placements, total); err != nil {
		return RenderPlan{}, err
	}
	keyframes, err := sess.Keyframes()
	if err != nil {
		return RenderPlan{}, err
	}

	stems := []StemPlan{{Name: "narration", Source: sess.Narration(), GainDB: cfg.Audio.NarrationGainDB}}
	for _, a := range sess.Ambience() {
		gain := cfg.Audio.AmbienceGainDB
		if a.GainDB != nil {
			gain = *a.GainDB
		}
		stems = append(stems, StemPlan{Name: a.Name, Source: a.Path, GainDB: gain})
	}

	return RenderPlan{
		Total:      total,
		Clock:      clock,
		Phases:     tl.Phases(),
		Segments:   segments,
		Placements: placements,
		Keyframes:  keyframes,
		Stems:      stems,
		ToneGainDB: cfg.Audio.ToneGainDB,
	}, nil
}
