package pcm

import "fmt"

// Format describes the sample layout of a buffer or file.
type Format struct {
	SampleRate int
	Channels   int
}

func (f Format) String() string {
	return fmt.Sprintf("%d Hz/%dch", f.SampleRate, f.Channels)
}

// Buffer is interleaved float audio in [-1, 1].
type Buffer struct {
	SampleRate int
	Channels   int
	Data       []float32
}

// NewBuffer allocates a silent buffer of frames sample frames.
func NewBuffer(format Format, frames int) Buffer {
	if frames < 0 {
		frames = 0
	}
	return Buffer{
		SampleRate: format.SampleRate,
		Channels:   format.Channels,
		Data:       make([]float32, frames*format.Channels),
	}
}

// Format returns the buffer's sample layout.
func (b Buffer) Format() Format {
	return Format{SampleRate: b.SampleRate, Channels: b.Channels}
}

// Frames returns the number of sample frames (samples per channel).
func (b Buffer) Frames() int {
	if b.Channels <= 0 {
		return 0
	}
	return len(b.Data) / b.Channels
}

// Duration returns the buffer length in seconds.
func (b Buffer) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(b.Frames()) / float64(b.SampleRate)
}

// At returns the sample for channel ch at frame i.
func (b Buffer) At(i, ch int) float32 {
	return b.Data[i*b.Channels+ch]
}

// Peak returns the largest absolute sample value.
func (b Buffer) Peak() float32 {
	var peak float32
	for _, v := range b.Data {
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	return peak
}
