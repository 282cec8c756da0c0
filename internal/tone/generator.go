package tone

import (
	"context"
	"fmt"
	"math"

	"dreamweave/internal/media/pcm"
	"dreamweave/internal/services"
)

const (
	channels = 2
	twoPi    = 2 * math.Pi
)

// Generator renders stereo binaural audio.
type Generator struct {
	SampleRate int
	Amplitude  float64
}

// Frames returns the exact sample-frame count for duration.
func (g Generator) Frames(duration float64) int {
	return int(math.Round(duration * float64(g.SampleRate)))
}

func (g Generator) validate(duration float64, segments []Segment) error {
	if g.SampleRate <= 0 {
		return services.Wrap(services.ErrConfiguration, "tone", "generate", fmt.Sprintf("sample rate must be positive (got %d)", g.SampleRate), nil)
	}
	if !(g.Amplitude > 0) || g.Amplitude > 1 {
		return services.Wrap(services.ErrConfiguration, "tone", "generate", fmt.Sprintf("amplitude must be in (0, 1] (got %v)", g.Amplitude), nil)
	}
	if err := ValidateSegments(duration, segments); err != nil {
		return err
	}
	nyquist := float64(g.SampleRate) / 2
	for _, seg := range segments {
		_, hi := seg.BeatBounds()
		if seg.Carrier+hi >= nyquist {
			return services.Wrap(services.ErrInvalidFrequency, "tone", "generate",
				fmt.Sprintf("%.1f Hz exceeds Nyquist at %d Hz sample rate", seg.Carrier+hi, g.SampleRate), nil)
		}
	}
	if g.Frames(duration) <= 0 {
		return services.Wrap(services.ErrInvalidDuration, "tone", "generate",
			fmt.Sprintf("duration %v rounds to zero samples", duration), nil)
	}
	return nil
}

// Generate renders the whole track into memory. Validation happens before
// the sample buffer is allocated.
func (g Generator) Generate(duration float64, segments []Segment) (pcm.Buffer, error) {
	if err := g.validate(duration, segments); err != nil {
		return pcm.Buffer{}, err
	}
	buf := pcm.NewBuffer(pcm.Format{SampleRate: g.SampleRate, Channels: channels}, g.Frames(duration))
	osc := newOscillator(g, segments)
	osc.fill(buf.Data)
	return buf, nil
}

// WriteWAV streams the track to a 16-bit stereo WAV at path in one-second
// chunks. Nothing is left at path unless the whole track was written.
func (g Generator) WriteWAV(ctx context.Context, path string, duration float64, segments []Segment) error {
	if err := g.validate(duration, segments); err != nil {
		return err
	}
	w, err := pcm.Create(path, pcm.Format{SampleRate: g.SampleRate, Channels: channels})
	if err != nil {
		return services.Wrap(services.ErrValidation, "tone", "create output", path, err)
	}
	osc := newOscillator(g, segments)
	chunk := make([]float32, g.SampleRate*channels)
	remaining := g.Frames(duration)
	for remaining > 0 {
		if err := ctx.Err(); err != nil {
			w.Abort()
			return err
		}
		n := min(remaining, g.SampleRate)
		osc.fill(chunk[:n*channels])
		if err := w.Write(chunk[:n*channels]); err != nil {
			w.Abort()
			return services.Wrap(services.ErrValidation, "tone", "write output", path, err)
		}
		remaining -= n
	}
	if err := w.Commit(); err != nil {
		return services.Wrap(services.ErrValidation, "tone", "commit output", path, err)
	}
	return nil
}

// oscillator carries phase across chunks so streamed output is identical
// to an in-memory render.
type oscillator struct {
	rate      float64
	amplitude float64
	segments  []Segment
	seg       int
	frame     int
	left      float64
	right     float64
}

func newOscillator(g Generator, segments []Segment) *oscillator {
	return &oscillator{
		rate:      float64(g.SampleRate),
		amplitude: g.Amplitude,
		segments:  segments,
	}
}

func (o *oscillator) fill(dst []float32) {
	for i := 0; i+1 < len(dst); i += channels {
		t := float64(o.frame) / o.rate
		for o.seg < len(o.segments)-1 && t >= o.segments[o.seg].End {
			o.seg++
		}
		seg := o.segments[o.seg]

		dst[i] = float32(o.amplitude * math.Sin(o.left))
		dst[i+1] = float32(o.amplitude * math.Sin(o.right))

		o.left = math.Mod(o.left+twoPi*seg.Carrier/o.rate, twoPi)
		o.right = math.Mod(o.right+twoPi*(seg.Carrier+seg.Beat(t))/o.rate, twoPi)
		o.frame++
	}
}
