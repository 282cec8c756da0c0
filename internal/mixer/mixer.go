package mixer

import (
	"fmt"
	"math"

	"dreamweave/internal/media/pcm"
	"dreamweave/internal/services"
)

// DurationPolicy selects the mixed output length.
type DurationPolicy string

const (
	// Longest pads shorter stems with silence.
	Longest DurationPolicy = "longest"
	// Shortest truncates to the shortest stem.
	Shortest DurationPolicy = "shortest"
)

// normalizeCeilingDB is the peak target for explicit normalization.
const normalizeCeilingDB = -1.0

// Options configure a mix.
type Options struct {
	Policy    DurationPolicy
	Normalize bool
}

func (o Options) policy() (DurationPolicy, error) {
	switch o.Policy {
	case "":
		return Longest, nil
	case Longest, Shortest:
		return o.Policy, nil
	default:
		return "", services.Wrap(services.ErrConfiguration, "mixer", "options", fmt.Sprintf("unknown duration policy %q", o.Policy), nil)
	}
}

// Stem is an in-memory named, leveled buffer.
type Stem struct {
	Name   string
	GainDB float64
	Buffer pcm.Buffer
}

// Report summarizes a mix.
type Report struct {
	Format         pcm.Format
	Frames         int64
	Duration       float64
	ClippedSamples int64
	// NormalizeGainDB is the gain applied by explicit normalization, zero otherwise.
	NormalizeGainDB float64
	StemDurations   map[string]float64
}

// GainToAmplitude converts dB to a linear amplitude scale.
func GainToAmplitude(db float64) float64 {
	return math.Pow(10, db/20)
}

func checkFormats(names []string, formats []pcm.Format) (pcm.Format, error) {
	if len(formats) == 0 {
		return pcm.Format{}, services.Wrap(services.ErrValidation, "mixer", "mix", "no stems to mix", nil)
	}
	ref := formats[0]
	if ref.SampleRate <= 0 || ref.Channels <= 0 {
		return pcm.Format{}, services.Wrap(services.ErrStemFormatMismatch, "mixer", "mix", fmt.Sprintf("stem %q has invalid format %s", names[0], ref), nil)
	}
	for i := 1; i < len(formats); i++ {
		if formats[i] != ref {
			return pcm.Format{}, services.Wrap(services.ErrStemFormatMismatch, "mixer", "mix",
				fmt.Sprintf("stem %q is %s, stem %q is %s", names[i], formats[i], names[0], ref), nil)
		}
	}
	return ref, nil
}

func outputFrames(policy DurationPolicy, lengths []int64) int64 {
	out := lengths[0]
	for _, n := range lengths[1:] {
		if policy == Shortest && n < out || policy == Longest && n > out {
			out = n
		}
	}
	return out
}

// Mix sums stems in memory. Inputs are left untouched.
func Mix(stems []Stem, opts Options) (pcm.Buffer, Report, error) {
	policy, err := opts.policy()
	if err != nil {
		return pcm.Buffer{}, Report{}, err
	}
	names := make([]string, len(stems))
	formats := make([]pcm.Format, len(stems))
	lengths := make([]int64, len(stems))
	for i, s := range stems {
		names[i] = s.Name
		formats[i] = s.Buffer.Format()
		lengths[i] = int64(s.Buffer.Frames())
	}
	format, err := checkFormats(names, formats)
	if err != nil {
		return pcm.Buffer{}, Report{}, err
	}

	frames := outputFrames(policy, lengths)
	out := pcm.NewBuffer(format, int(frames))
	report := Report{Format: format, Frames: frames, StemDurations: make(map[string]float64, len(stems))}
	for _, s := range stems {
		report.StemDurations[s.Name] = s.Buffer.Duration()
		accumulate(out.Data, s.Buffer.Data, GainToAmplitude(s.GainDB))
	}
	if opts.Normalize {
		report.NormalizeGainDB = normalize(out.Data, out.Peak())
	}
	report.ClippedSamples = countClipped(out.Data)
	report.Duration = out.Duration()
	return out, report, nil
}

// accumulate adds src*gain into dst over their common length.
func accumulate(dst, src []float32, gain float64) {
	n := min(len(dst), len(src))
	g := float32(gain)
	for i := 0; i < n; i++ {
		dst[i] += src[i] * g
	}
}

// normalize scales data so its peak sits at the normalization ceiling and
// returns the applied gain in dB.
func normalize(data []float32, peak float32) float64 {
	if peak <= 0 {
		return 0
	}
	target := GainToAmplitude(normalizeCeilingDB)
	scale := target / float64(peak)
	for i := range data {
		data[i] = float32(float64(data[i]) * scale)
	}
	return 20 * math.Log10(scale)
}

func countClipped(data []float32) int64 {
	var n int64
	for _, v := range data {
		if v > 1 || v < -1 {
			n++
		}
	}
	return n
}
