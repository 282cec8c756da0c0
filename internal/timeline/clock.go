package timeline

import (
	"fmt"
	"math"

	"dreamweave/internal/services"
)

// Clock maps output frame indices to absolute master-timeline seconds. It is
// shared by every frame-producing stage.
type Clock struct {
	FPS   int
	Total float64
}

// NewClock validates and constructs a Clock.
func NewClock(fps int, total float64) (Clock, error) {
	if fps <= 0 {
		return Clock{}, services.Wrap(services.ErrConfiguration, "timeline", "clock", fmt.Sprintf("fps must be positive (got %d)", fps), nil)
	}
	if !(total > 0) || math.IsInf(total, 0) {
		return Clock{}, services.Wrap(services.ErrInvalidDuration, "timeline", "clock", fmt.Sprintf("total duration must be positive (got %v)", total), nil)
	}
	return Clock{FPS: fps, Total: total}, nil
}

// FrameCount returns the number of frames needed to cover Total.
func (c Clock) FrameCount() int {
	if c.FPS <= 0 || c.Total <= 0 {
		return 0
	}
	return int(math.Ceil(c.Total*float64(c.FPS) - 1e-9))
}

// FrameTime returns the absolute timeline position of frame i in seconds.
func (c Clock) FrameTime(i int) float64 {
	if c.FPS <= 0 {
		return 0
	}
	return float64(i) / float64(c.FPS)
}

// Clamp limits t to [0, Total).
func (c Clock) Clamp(t float64) float64 {
	if math.IsNaN(t) || t < 0 {
		return 0
	}
	if t >= c.Total {
		return math.Nextafter(c.Total, 0)
	}
	return t
}

// Duration returns the exact rendered duration of FrameCount frames.
func (c Clock) Duration() float64 {
	if c.FPS <= 0 {
		return 0
	}
	return float64(c.FrameCount()) / float64(c.FPS)
}
