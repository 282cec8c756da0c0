package tone

import (
	"fmt"
	"math"
	"strings"

	"dreamweave/internal/services"
	"dreamweave/internal/timeline"
)

// TransitionPolicy selects how the beat moves across phase boundaries.
type TransitionPolicy string

const (
	// TransitionSmooth ramps the beat linearly over a window at the start of
	// the later phase.
	TransitionSmooth TransitionPolicy = "smooth"
	// TransitionAbrupt switches the beat exactly at the boundary.
	TransitionAbrupt TransitionPolicy = "abrupt"
)

// DefaultTransitionWindow is the smooth ramp length in seconds.
const DefaultTransitionWindow = 10.0

// PhaseTone is the tone declared for one phase. When BeatTo is set the beat
// glides linearly from Beat to *BeatTo across the phase.
type PhaseTone struct {
	Phase   string
	Carrier float64
	Beat    float64
	BeatTo  *float64
}

func (p PhaseTone) finalBeat() float64 {
	if p.BeatTo != nil {
		return *p.BeatTo
	}
	return p.Beat
}

// beatAt evaluates the phase's own schedule at t.
func (p PhaseTone) beatAt(phase timeline.Phase, t float64) float64 {
	if p.BeatTo == nil {
		return p.Beat
	}
	return p.Beat + (*p.BeatTo-p.Beat)*timeline.Progress(phase, t)
}

// PlanOptions configure Plan.
type PlanOptions struct {
	Policy TransitionPolicy
	Window float64
}

// Plan expands per-phase tone declarations into contiguous segments covering
// the timeline. Every phase needs exactly one declaration.
func Plan(tl timeline.Timeline, tones []PhaseTone, opts PlanOptions) ([]Segment, error) {
	policy := opts.Policy
	if policy == "" {
		policy = TransitionSmooth
	}
	if policy != TransitionSmooth && policy != TransitionAbrupt {
		return nil, services.Wrap(services.ErrConfiguration, "tone", "plan", fmt.Sprintf("unknown transition policy %q", policy), nil)
	}
	window := opts.Window
	if window < 0 || math.IsNaN(window) {
		return nil, services.Wrap(services.ErrConfiguration, "tone", "plan", "transition window must not be negative", nil)
	}

	byPhase, err := indexTones(tl, tones)
	if err != nil {
		return nil, err
	}

	phases := tl.Phases()
	segments := make([]Segment, 0, len(phases)*2)
	for i, phase := range phases {
		decl := byPhase[phase.Name]
		start := phase.Start
		if i > 0 && policy == TransitionSmooth && window > 0 {
			prev := byPhase[phases[i-1].Name]
			from := prev.finalBeat()
			w := math.Min(window, phase.Duration()/2)
			to := decl.beatAt(phase, phase.Start+w)
			if from != decl.Beat {
				segments = append(segments, Segment{
					Start:     phase.Start,
					End:       phase.Start + w,
					Carrier:   decl.Carrier,
					BeatStart: from,
					BeatEnd:   to,
				})
				start = phase.Start + w
			}
		}
		segments = append(segments, Segment{
			Start:     start,
			End:       phase.End,
			Carrier:   decl.Carrier,
			BeatStart: decl.beatAt(phase, start),
			BeatEnd:   decl.finalBeat(),
		})
	}
	if err := ValidateSegments(tl.Total(), segments); err != nil {
		return nil, err
	}
	return segments, nil
}

func indexTones(tl timeline.Timeline, tones []PhaseTone) (map[string]PhaseTone, error) {
	byPhase := make(map[string]PhaseTone, len(tones))
	for _, decl := range tones {
		name := strings.TrimSpace(decl.Phase)
		if _, ok := tl.Lookup(name); !ok {
			return nil, services.Wrap(services.ErrValidation, "tone", "plan", fmt.Sprintf("tone declared for unknown phase %q", name), nil)
		}
		if _, dup := byPhase[name]; dup {
			return nil, services.Wrap(services.ErrValidation, "tone", "plan", fmt.Sprintf("phase %q has more than one tone", name), nil)
		}
		if err := checkCarrier(decl.Carrier); err != nil {
			return nil, fmt.Errorf("phase %q: %w", name, err)
		}
		if err := checkBeat(decl.Beat); err != nil {
			return nil, fmt.Errorf("phase %q: %w", name, err)
		}
		if decl.BeatTo != nil {
			if err := checkBeat(*decl.BeatTo); err != nil {
				return nil, fmt.Errorf("phase %q: %w", name, err)
			}
		}
		decl.Phase = name
		byPhase[name] = decl
	}
	for _, phase := range tl.Phases() {
		if _, ok := byPhase[phase.Name]; !ok {
			return nil, services.Wrap(services.ErrValidation, "tone", "plan", fmt.Sprintf("phase %q has no tone", phase.Name), nil)
		}
	}
	return byPhase, nil
}
