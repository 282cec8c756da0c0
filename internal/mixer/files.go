package mixer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"dreamweave/internal/media/pcm"
	"dreamweave/internal/services"
)

// chunkFrames is the streaming window per read.
const chunkFrames = 1 << 14

// FileStem is a WAV-backed stem.
type FileStem struct {
	Name   string
	Path   string
	GainDB float64
}

// MixFiles streams WAV stems through the same kernel as Mix and writes the
// result to outPath as 16-bit PCM. Explicit normalization costs a second
// read pass to find the peak first.
func MixFiles(ctx context.Context, stems []FileStem, outPath string, opts Options) (Report, error) {
	policy, err := opts.policy()
	if err != nil {
		return Report{}, err
	}
	if len(stems) == 0 {
		return Report{}, services.Wrap(services.ErrValidation, "mixer", "mix", "no stems to mix", nil)
	}

	readers, err := openAll(stems)
	if err != nil {
		return Report{}, err
	}
	names := make([]string, len(stems))
	formats := make([]pcm.Format, len(stems))
	lengths := make([]int64, len(stems))
	report := Report{StemDurations: make(map[string]float64, len(stems))}
	for i, r := range readers {
		names[i] = stems[i].Name
		formats[i] = r.Format()
		lengths[i] = r.Frames()
		report.StemDurations[stems[i].Name] = r.Duration()
	}
	format, err := checkFormats(names, formats)
	if err != nil {
		closeAll(readers)
		return Report{}, err
	}
	frames := outputFrames(policy, lengths)
	report.Format = format
	report.Frames = frames
	report.Duration = float64(frames) / float64(format.SampleRate)

	scale := 1.0
	if opts.Normalize {
		var peak float32
		err := mixPass(ctx, readers, stems, format, frames, func(chunk []float32) error {
			for _, v := range chunk {
				if v < 0 {
					v = -v
				}
				peak = max(peak, v)
			}
			return nil
		})
		closeAll(readers)
		if err != nil {
			return Report{}, err
		}
		if peak > 0 {
			scale = GainToAmplitude(normalizeCeilingDB) / float64(peak)
			report.NormalizeGainDB = 20 * math.Log10(scale)
		}
		if readers, err = openAll(stems); err != nil {
			return Report{}, err
		}
	}
	defer closeAll(readers)

	w, err := pcm.Create(outPath, format)
	if err != nil {
		return Report{}, services.Wrap(services.ErrValidation, "mixer", "create output", outPath, err)
	}
	err = mixPass(ctx, readers, stems, format, frames, func(chunk []float32) error {
		if scale != 1 {
			for i := range chunk {
				chunk[i] = float32(float64(chunk[i]) * scale)
			}
		}
		return w.Write(chunk)
	})
	if err != nil {
		w.Abort()
		return Report{}, err
	}
	if err := w.Commit(); err != nil {
		return Report{}, services.Wrap(services.ErrValidation, "mixer", "commit output", outPath, err)
	}
	report.ClippedSamples = w.Clipped()
	return report, nil
}

// mixPass reads every stem in lockstep and hands each summed chunk to emit.
// Exhausted stems contribute silence.
func mixPass(ctx context.Context, readers []*pcm.Reader, stems []FileStem, format pcm.Format, frames int64, emit func([]float32) error) error {
	gains := make([]float64, len(stems))
	for i, s := range stems {
		gains[i] = GainToAmplitude(s.GainDB)
	}
	done := make([]bool, len(readers))
	sum := make([]float32, chunkFrames*format.Channels)
	scratch := make([]float32, chunkFrames*format.Channels)

	for remaining := frames; remaining > 0; {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := int(min(remaining, chunkFrames)) * format.Channels
		clear(sum[:n])
		for i, r := range readers {
			if done[i] {
				continue
			}
			got, err := readFull(r, scratch[:n])
			if err != nil {
				return services.Wrap(services.ErrValidation, "mixer", "read stem", stems[i].Name, err)
			}
			if got < n {
				done[i] = true
			}
			accumulate(sum[:got], scratch[:got], gains[i])
		}
		if err := emit(sum[:n]); err != nil {
			return services.Wrap(services.ErrValidation, "mixer", "write output", "", err)
		}
		remaining -= int64(n / format.Channels)
	}
	return nil
}

func readFull(r *pcm.Reader, dst []float32) (int, error) {
	total := 0
	for total < len(dst) {
		n, err := r.Read(dst[total:])
		total += n
		if errors.Is(err, io.EOF) {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func openAll(stems []FileStem) ([]*pcm.Reader, error) {
	readers := make([]*pcm.Reader, 0, len(stems))
	for _, s := range stems {
		r, err := pcm.Open(s.Path)
		if err != nil {
			closeAll(readers)
			return nil, services.Wrap(services.ErrValidation, "mixer", "open stem", fmt.Sprintf("%s (%s)", s.Name, s.Path), err)
		}
		readers = append(readers, r)
	}
	return readers, nil
}

func closeAll(readers []*pcm.Reader) {
	for _, r := range readers {
		_ = r.Close()
	}
}
