package timeline

import (
	"fmt"
	"math"
	"strings"

	"dreamweave/internal/services"
)

// boundaryEpsilon absorbs float noise in phase boundaries read from config.
const boundaryEpsilon = 1e-9

// Phase is a named, contiguous interval [Start, End) of the session in seconds.
type Phase struct {
	Name  string
	Start float64
	End   float64
}

// Duration returns the phase length in seconds.
func (p Phase) Duration() float64 {
	return p.End - p.Start
}

// Contains reports whether t falls inside [Start, End).
func (p Phase) Contains(t float64) bool {
	return t >= p.Start && t < p.End
}

// Timeline is an immutable ordered list of phases covering [0, Total).
type Timeline struct {
	phases []Phase
}

// New validates phases and builds a Timeline. Phases must start at zero, be
// strictly positive in length, abut one another exactly, and carry unique names.
func New(phases []Phase) (Timeline, error) {
	if len(phases) == 0 {
		return Timeline{}, services.Wrap(services.ErrInvalidTimeline, "timeline", "validate", "at least one phase is required", nil)
	}
	seen := make(map[string]struct{}, len(phases))
	cursor := 0.0
	copied := make([]Phase, len(phases))
	for i, phase := range phases {
		name := strings.TrimSpace(phase.Name)
		if name == "" {
			return Timeline{}, services.Wrap(services.ErrInvalidTimeline, "timeline", "validate", fmt.Sprintf("phase %d has no name", i), nil)
		}
		if _, dup := seen[name]; dup {
			return Timeline{}, services.Wrap(services.ErrInvalidTimeline, "timeline", "validate", fmt.Sprintf("duplicate phase name %q", name), nil)
		}
		seen[name] = struct{}{}
		if invalidNumber(phase.Start) || invalidNumber(phase.End) {
			return Timeline{}, services.Wrap(services.ErrInvalidDuration, "timeline", "validate", fmt.Sprintf("phase %q has non-finite bounds", name), nil)
		}
		if phase.End-phase.Start <= 0 {
			return Timeline{}, services.Wrap(services.ErrInvalidDuration, "timeline", "validate",
				fmt.Sprintf("phase %q has non-positive duration (%.3f..%.3f)", name, phase.Start, phase.End), nil)
		}
		if math.Abs(phase.Start-cursor) > boundaryEpsilon {
			kind := "gap"
			if phase.Start < cursor {
				kind = "overlap"
			}
			return Timeline{}, services.Wrap(services.ErrInvalidTimeline, "timeline", "validate",
				fmt.Sprintf("%s before phase %q: expected start %.3f, got %.3f", kind, name, cursor, phase.Start), nil)
		}
		copied[i] = Phase{Name: name, Start: cursor, End: phase.End}
		cursor = phase.End
	}
	return Timeline{phases: copied}, nil
}

func invalidNumber(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

// Total returns the session length in seconds.
func (t Timeline) Total() float64 {
	if len(t.phases) == 0 {
		return 0
	}
	return t.phases[len(t.phases)-1].End
}

// Sum returns the sum of all phase durations. For a valid timeline it equals Total.
func (t Timeline) Sum() float64 {
	sum := 0.0
	for _, p := range t.phases {
		sum += p.Duration()
	}
	return sum
}

// Len returns the phase count.
func (t Timeline) Len() int {
	return len(t.phases)
}

// Phases returns a copy of the ordered phases.
func (t Timeline) Phases() []Phase {
	return append([]Phase(nil), t.phases...)
}

// Lookup finds a phase by name.
func (t Timeline) Lookup(name string) (Phase, bool) {
	name = strings.TrimSpace(name)
	for _, p := range t.phases {
		if p.Name == name {
			return p, true
		}
	}
	return Phase{}, false
}

// PhaseAt returns the phase active at t along with its index. Times outside
// [0, Total) clamp to the first or last phase; exact boundary frames land
// there through float rounding.
func (t Timeline) PhaseAt(at float64) (Phase, int) {
	if len(t.phases) == 0 {
		return Phase{}, -1
	}
	if math.IsNaN(at) || at < 0 {
		return t.phases[0], 0
	}
	last := len(t.phases) - 1
	if at >= t.phases[last].End {
		return t.phases[last], last
	}
	lo, hi := 0, last
	for lo < hi {
		mid := (lo + hi) / 2
		if at < t.phases[mid].End {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return t.phases[lo], lo
}

// Progress returns how far t is through phase p, clamped to [0, 1].
func Progress(p Phase, at float64) float64 {
	d := p.Duration()
	if d <= 0 {
		return 0
	}
	v := (at - p.Start) / d
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
