package background

import (
	"fmt"
	"strconv"
	"strings"

	"dreamweave/internal/services"
	"dreamweave/internal/timeline"
)

// GradientBrightness scales the top color to produce the gradient bottom.
const GradientBrightness = 0.6

// RGB is an 8-bit color.
type RGB struct {
	R, G, B uint8
}

// ParseHex parses "#rrggbb" (the leading # is optional).
func ParseHex(s string) (RGB, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return RGB{}, fmt.Errorf("color %q: expected #rrggbb", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("color %q: %w", s, err)
	}
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// Hex formats the color as #rrggbb.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Scale multiplies every channel by f, clamped to [0, 255].
func (c RGB) Scale(f float64) RGB {
	return RGB{R: scaleChannel(c.R, f), G: scaleChannel(c.G, f), B: scaleChannel(c.B, f)}
}

func scaleChannel(v uint8, f float64) uint8 {
	return clampByte(float64(v) * f)
}

// Lerp interpolates from a to b by p in [0, 1].
func Lerp(a, b RGB, p float64) RGB {
	return RGB{
		R: lerpChannel(a.R, b.R, p),
		G: lerpChannel(a.G, b.G, p),
		B: lerpChannel(a.B, b.B, p),
	}
}

func lerpChannel(a, b uint8, p float64) uint8 {
	return clampByte(float64(a) + (float64(b)-float64(a))*p)
}

func clampByte(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}

// Palette maps phase names to colors.
type Palette map[string]RGB

// ParsePalette converts phase -> "#rrggbb" strings.
func ParsePalette(raw map[string]string) (Palette, error) {
	p := make(Palette, len(raw))
	for name, value := range raw {
		c, err := ParseHex(value)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "background", "parse palette", fmt.Sprintf("phase %q", name), err)
		}
		p[strings.TrimSpace(name)] = c
	}
	return p, nil
}

// Keyframe is the color schedule of one phase.
type Keyframe struct {
	Phase timeline.Phase
	From  RGB
	To    RGB
}

// Keyframes is the color schedule of a whole timeline.
type Keyframes struct {
	tl     timeline.Timeline
	frames []Keyframe
}

// NewKeyframes builds the per-phase color schedule. Every phase needs a
// palette entry.
func NewKeyframes(tl timeline.Timeline, palette Palette) (Keyframes, error) {
	phases := tl.Phases()
	if len(phases) == 0 {
		return Keyframes{}, services.Wrap(services.ErrInvalidTimeline, "background", "keyframes", "timeline has no phases", nil)
	}
	colors := make([]RGB, len(phases))
	for i, phase := range phases {
		c, ok := palette[phase.Name]
		if !ok {
			return Keyframes{}, services.Wrap(services.ErrValidation, "background", "keyframes", fmt.Sprintf("palette has no color for phase %q", phase.Name), nil)
		}
		colors[i] = c
	}
	frames := make([]Keyframe, len(phases))
	for i, phase := range phases {
		to := colors[i]
		if i+1 < len(phases) {
			to = colors[i+1]
		}
		frames[i] = Keyframe{Phase: phase, From: colors[i], To: to}
	}
	return Keyframes{tl: tl, frames: frames}, nil
}

// ColorAt returns the gradient's top and bottom colors at t. Times outside
// the timeline clamp to the nearest phase.
func (k Keyframes) ColorAt(t float64) (top, bottom RGB) {
	phase, idx := k.tl.PhaseAt(t)
	if idx < 0 {
		return RGB{}, RGB{}
	}
	kf := k.frames[idx]
	top = Lerp(kf.From, kf.To, timeline.Progress(phase, t))
	return top, top.Scale(GradientBrightness)
}

// Frames returns a copy of the per-phase schedule.
func (k Keyframes) Frames() []Keyframe {
	return append([]Keyframe(nil), k.frames...)
}
