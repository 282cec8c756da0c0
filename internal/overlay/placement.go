package overlay

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"dreamweave/internal/services"
	"dreamweave/internal/timeline"
)

// ErrOverlappingPlacements reports two placements visible at the same time.
var ErrOverlappingPlacements = errors.New("overlapping placements")

const overlapEpsilon = 1e-9

// Placement is one image's visibility window on the master timeline.
type Placement struct {
	Image string
	Start float64
	End   float64
	Fade  float64
}

// Validate rejects empty windows and fades that would overlap inside the
// window. A fade of exactly half the window is allowed (no plateau).
func (p Placement) Validate() error {
	if math.IsNaN(p.Start) || math.IsNaN(p.End) || p.End <= p.Start {
		return services.Wrap(services.ErrInvalidDuration, "overlay", "validate placement",
			fmt.Sprintf("%s: end %.3f must be after start %.3f", p.label(), p.End, p.Start), nil)
	}
	if math.IsNaN(p.Fade) || p.Fade < 0 || 2*p.Fade > p.End-p.Start {
		return services.Wrap(services.ErrInvalidFadeWindow, "overlay", "validate placement",
			fmt.Sprintf("%s: fade %.3fs does not fit twice in %.3fs window", p.label(), p.Fade, p.End-p.Start), nil)
	}
	return nil
}

func (p Placement) label() string {
	if p.Image == "" {
		return "placement"
	}
	return fmt.Sprintf("placement %q", p.Image)
}

// Alpha returns the placement's opacity at master time t.
func (p Placement) Alpha(t float64) uint8 {
	switch {
	case t < p.Start || t >= p.End:
		return 0
	case p.Fade <= 0:
		return 255
	case t < p.Start+p.Fade:
		return ramp((t - p.Start) / p.Fade)
	case t < p.End-p.Fade:
		return 255
	default:
		return ramp((p.End - t) / p.Fade)
	}
}

func ramp(fraction float64) uint8 {
	v := math.Round(255 * fraction)
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}

// Assignment binds an image to a phase.
type Assignment struct {
	Phase string
	Image string
}

// FromPhases builds one placement per assignment spanning the phase's window.
func FromPhases(tl timeline.Timeline, assignments []Assignment, fade float64) ([]Placement, error) {
	placements := make([]Placement, 0, len(assignments))
	for _, a := range assignments {
		name := strings.TrimSpace(a.Phase)
		phase, ok := tl.Lookup(name)
		if !ok {
			return nil, services.Wrap(services.ErrValidation, "overlay", "place images", fmt.Sprintf("image %q assigned to unknown phase %q", a.Image, name), nil)
		}
		placements = append(placements, Placement{Image: a.Image, Start: phase.Start, End: phase.End, Fade: fade})
	}
	if err := ValidatePlacements(placements, tl.Total()); err != nil {
		return nil, err
	}
	return placements, nil
}

// ValidatePlacements checks every placement, that each lies inside
// [0, total], and that no two overlap.
func ValidatePlacements(placements []Placement, total float64) error {
	for _, p := range placements {
		if err := p.Validate(); err != nil {
			return err
		}
		if p.Start < -overlapEpsilon || p.End > total+overlapEpsilon {
			return services.Wrap(services.ErrValidation, "overlay", "validate placement",
				fmt.Sprintf("%s: window %.3f..%.3f outside timeline 0..%.3f", p.label(), p.Start, p.End, total), nil)
		}
	}
	sorted := append([]Placement(nil), placements...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Start < sorted[i-1].End-overlapEpsilon {
			return services.Wrap(services.ErrValidation, "overlay", "validate placement",
				fmt.Sprintf("%s overlaps %s", sorted[i].label(), sorted[i-1].label()), ErrOverlappingPlacements)
		}
	}
	return nil
}
