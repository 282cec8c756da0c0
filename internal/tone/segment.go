package tone

import (
	"fmt"
	"math"

	"dreamweave/internal/services"
)

// Supported frequency ranges in Hz.
const (
	MinBeat    = 0.5
	MaxBeat    = 100.0
	MinCarrier = 20.0
	MaxCarrier = 1000.0
)

const coverageEpsilon = 1e-6

// Segment is a sub-interval of the timeline with a constant carrier and a
// beat that is either constant (BeatStart == BeatEnd) or linear across it.
type Segment struct {
	Start     float64
	End       float64
	Carrier   float64
	BeatStart float64
	BeatEnd   float64
}

// Duration returns the segment length in seconds.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Constant reports whether the beat is fixed across the segment.
func (s Segment) Constant() bool {
	return s.BeatStart == s.BeatEnd
}

// Beat evaluates the beat schedule at absolute time t, clamped to the segment.
func (s Segment) Beat(t float64) float64 {
	if s.Constant() {
		return s.BeatStart
	}
	d := s.Duration()
	if d <= 0 || t <= s.Start {
		return s.BeatStart
	}
	if t >= s.End {
		return s.BeatEnd
	}
	return s.BeatStart + (s.BeatEnd-s.BeatStart)*(t-s.Start)/d
}

// BeatBounds returns the lowest and highest beat the segment produces.
func (s Segment) BeatBounds() (lo, hi float64) {
	return math.Min(s.BeatStart, s.BeatEnd), math.Max(s.BeatStart, s.BeatEnd)
}

// Validate checks the segment's window and frequencies.
func (s Segment) Validate() error {
	if math.IsNaN(s.Start) || math.IsNaN(s.End) || s.End-s.Start <= 0 {
		return services.Wrap(services.ErrInvalidDuration, "tone", "validate segment",
			fmt.Sprintf("segment %.3f..%.3f has non-positive duration", s.Start, s.End), nil)
	}
	if err := checkCarrier(s.Carrier); err != nil {
		return err
	}
	if err := checkBeat(s.BeatStart); err != nil {
		return err
	}
	return checkBeat(s.BeatEnd)
}

func checkCarrier(hz float64) error {
	if math.IsNaN(hz) || hz < MinCarrier || hz > MaxCarrier {
		return services.Wrap(services.ErrInvalidFrequency, "tone", "validate",
			fmt.Sprintf("carrier %.3f Hz outside supported range %.0f-%.0f Hz", hz, MinCarrier, MaxCarrier), nil)
	}
	return nil
}

func checkBeat(hz float64) error {
	if math.IsNaN(hz) || hz < MinBeat || hz > MaxBeat {
		return services.Wrap(services.ErrInvalidFrequency, "tone", "validate",
			fmt.Sprintf("beat %.3f Hz outside supported range %.1f-%.0f Hz", hz, MinBeat, MaxBeat), nil)
	}
	return nil
}

// ValidateSegments checks every segment and that together they cover
// [0, duration] without gaps or overlaps.
func ValidateSegments(duration float64, segments []Segment) error {
	if !(duration > 0) || math.IsInf(duration, 0) {
		return services.Wrap(services.ErrInvalidDuration, "tone", "validate",
			fmt.Sprintf("duration must be positive (got %v)", duration), nil)
	}
	if len(segments) == 0 {
		return services.Wrap(services.ErrInvalidTimeline, "tone", "validate", "no tone segments", nil)
	}
	cursor := 0.0
	for i, seg := range segments {
		if err := seg.Validate(); err != nil {
			return err
		}
		if math.Abs(seg.Start-cursor) > coverageEpsilon {
			return services.Wrap(services.ErrInvalidTimeline, "tone", "validate",
				fmt.Sprintf("segment %d starts at %.6f, expected %.6f", i, seg.Start, cursor), nil)
		}
		cursor = seg.End
	}
	if math.Abs(cursor-duration) > coverageEpsilon {
		return services.Wrap(services.ErrInvalidTimeline, "tone", "validate",
			fmt.Sprintf("segments end at %.6f, duration is %.6f", cursor, duration), nil)
	}
	return nil
}
