package session

import (
	"maps"

	"dreamweave/internal/background"
	"dreamweave/internal/overlay"
	"dreamweave/internal/timeline"
	"dreamweave/internal/tone"
)

// Path returns the session file path, empty for parsed sessions.
func (s *Session) Path() string { return s.path }

// Title returns the normalized title.
func (s *Session) Title() string { return s.title }

// OutputName returns the base name (no extension) of the final artifact.
func (s *Session) OutputName() string { return s.outputName }

// Narration returns the narration source path.
func (s *Session) Narration() string { return s.narration }

// Fade returns the image fade duration in seconds.
func (s *Session) Fade() float64 { return s.fade }

// Timeline returns the phase timeline.
func (s *Session) Timeline() timeline.Timeline { return s.timeline }

// Palette returns a copy of the phase colors.
func (s *Session) Palette() background.Palette { return maps.Clone(s.palette) }

// Tones returns a copy of the per-phase tone declarations.
func (s *Session) Tones() []tone.PhaseTone { return append([]tone.PhaseTone(nil), s.tones...) }

// Assignments returns a copy of the phase image assignments.
func (s *Session) Assignments() []overlay.Assignment {
	return append([]overlay.Assignment(nil), s.assignments...)
}

// Ambience returns a copy of the auxiliary stems.
func (s *Session) Ambience() []Ambience { return append([]Ambience(nil), s.ambience...) }

// TitleWindow returns the title overlay window, if any.
func (s *Session) TitleWindow() (TitleWindow, bool) {
	if s.titleWindow == nil {
		return TitleWindow{}, false
	}
	return *s.titleWindow, true
}

// PlanOptions merges the session's transition overrides over defaults.
func (s *Session) PlanOptions(defaultPolicy string, defaultWindow float64) tone.PlanOptions {
	opts := tone.PlanOptions{Policy: tone.TransitionPolicy(defaultPolicy), Window: defaultWindow}
	if s.policy != "" {
		opts.Policy = s.policy
	}
	if s.window != nil {
		opts.Window = *s.window
	}
	return opts
}

// Placements returns the image placements derived from the timeline.
func (s *Session) Placements() ([]overlay.Placement, error) {
	return overlay.FromPhases(s.timeline, s.assignments, s.fade)
}

// Keyframes returns the background color schedule.
func (s *Session) Keyframes() (background.Keyframes, error) {
	return background.NewKeyframes(s.timeline, s.palette)
}
