package pcm

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	bitDepth     = 16
	wavFormatPCM = 1
)

// fullScale is the integer value of 1.0 at depth bits. Reads and writes
// share it so a round trip keeps unity gain.
func fullScale(depth int) float32 {
	return float32(int64(1)<<(depth-1) - 1)
}

// Writer streams float frames to a 16-bit PCM WAV file. Output goes to a
// staging file until Commit renames it onto the destination path.
type Writer struct {
	path    string
	tmpPath string
	file    *os.File
	enc     *wav.Encoder
	format  Format
	buf     *audio.IntBuffer
	frames  int64
	clipped int64
	done    bool
}

// Create opens a Writer for path.
func Create(path string, format Format) (*Writer, error) {
	if format.SampleRate <= 0 || format.Channels <= 0 {
		return nil, fmt.Errorf("wav create: invalid format %s", format)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("wav create: %w", err)
	}
	tmpPath := path + ".partial"
	file, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("wav create: %w", err)
	}
	return &Writer{
		path:    path,
		tmpPath: tmpPath,
		file:    file,
		enc:     wav.NewEncoder(file, format.SampleRate, bitDepth, format.Channels, wavFormatPCM),
		format:  format,
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: format.Channels, SampleRate: format.SampleRate},
			SourceBitDepth: bitDepth,
		},
	}, nil
}

// Write appends interleaved samples. Values beyond full scale are hard
// clipped and counted.
func (w *Writer) Write(samples []float32) error {
	if w.done {
		return errors.New("wav write: writer closed")
	}
	if len(samples)%w.format.Channels != 0 {
		return fmt.Errorf("wav write: %d samples is not a whole number of %d-channel frames", len(samples), w.format.Channels)
	}
	if cap(w.buf.Data) < len(samples) {
		w.buf.Data = make([]int, len(samples))
	}
	w.buf.Data = w.buf.Data[:len(samples)]
	for i, v := range samples {
		w.buf.Data[i] = w.quantize(v)
	}
	if err := w.enc.Write(w.buf); err != nil {
		return fmt.Errorf("wav write: %w", err)
	}
	w.frames += int64(len(samples) / w.format.Channels)
	return nil
}

func (w *Writer) quantize(v float32) int {
	switch {
	case v > 1:
		w.clipped++
		v = 1
	case v < -1:
		w.clipped++
		v = -1
	}
	return int(math.Round(float64(v) * float64(fullScale(bitDepth))))
}

// Frames returns the number of frames written so far.
func (w *Writer) Frames() int64 { return w.frames }

// Clipped returns the number of samples hard clipped so far.
func (w *Writer) Clipped() int64 { return w.clipped }

// Commit finalizes the WAV header and moves the file into place.
func (w *Writer) Commit() error {
	if w.done {
		return errors.New("wav commit: writer closed")
	}
	w.done = true
	if err := w.enc.Close(); err != nil {
		_ = w.file.Close()
		_ = os.Remove(w.tmpPath)
		return fmt.Errorf("wav finalize: %w", err)
	}
	if err := w.file.Close(); err != nil {
		_ = os.Remove(w.tmpPath)
		return fmt.Errorf("wav close: %w", err)
	}
	if err := os.Rename(w.tmpPath, w.path); err != nil {
		_ = os.Remove(w.tmpPath)
		return fmt.Errorf("wav commit: %w", err)
	}
	return nil
}

// Abort discards the staged output. It is safe to call after Commit.
func (w *Writer) Abort() {
	if w.done {
		return
	}
	w.done = true
	_ = w.file.Close()
	_ = os.Remove(w.tmpPath)
}

// Reader streams float frames out of a PCM WAV file.
type Reader struct {
	file   *os.File
	dec    *wav.Decoder
	format Format
	scale  float32
	buf    *audio.IntBuffer
	frames int64
	remain int64
}

// Open opens a WAV file for streaming reads.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wav open: %w", err)
	}
	dec := wav.NewDecoder(file)
	if !dec.IsValidFile() {
		_ = file.Close()
		return nil, fmt.Errorf("wav open %s: not a valid WAV file", filepath.Base(path))
	}
	if dec.WavAudioFormat != wavFormatPCM {
		_ = file.Close()
		return nil, fmt.Errorf("wav open %s: unsupported audio format %d (want integer PCM)", filepath.Base(path), dec.WavAudioFormat)
	}
	if err := dec.FwdToPCM(); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("wav open %s: %w", filepath.Base(path), err)
	}
	depth := int(dec.BitDepth)
	if depth <= 0 {
		depth = bitDepth
	}
	var frames int64
	if dec.PCMChunk != nil && dec.NumChans > 0 {
		frames = int64(dec.PCMSize) / int64(dec.NumChans) / int64((depth+7)/8)
	}
	return &Reader{
		file: file,
		dec:  dec,
		format: Format{
			SampleRate: int(dec.SampleRate),
			Channels:   int(dec.NumChans),
		},
		scale:  fullScale(depth),
		frames: frames,
		remain: frames * int64(dec.NumChans),
		buf: &audio.IntBuffer{
			Format: &audio.Format{NumChannels: int(dec.NumChans), SampleRate: int(dec.SampleRate)},
		},
	}, nil
}

// Format returns the file's sample layout.
func (r *Reader) Format() Format { return r.format }

// Frames returns the declared number of sample frames in the file.
func (r *Reader) Frames() int64 { return r.frames }

// Duration returns the declared duration in seconds.
func (r *Reader) Duration() float64 {
	if r.format.SampleRate <= 0 {
		return 0
	}
	return float64(r.frames) / float64(r.format.SampleRate)
}

// Read fills dst with interleaved samples and returns how many were written.
// It returns io.EOF once the data chunk is exhausted.
func (r *Reader) Read(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	if r.remain <= 0 {
		return 0, io.EOF
	}
	if int64(len(dst)) > r.remain {
		dst = dst[:r.remain]
	}
	if cap(r.buf.Data) < len(dst) {
		r.buf.Data = make([]int, len(dst))
	}
	r.buf.Data = r.buf.Data[:len(dst)]
	n, err := r.dec.PCMBuffer(r.buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("wav read: %w", err)
	}
	if n <= 0 {
		r.remain = 0
		return 0, io.EOF
	}
	for i := 0; i < n; i++ {
		// The most negative integer sits one step past -1.0.
		dst[i] = max(float32(r.buf.Data[i])/r.scale, -1)
	}
	r.remain -= int64(n)
	return n, nil
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}

// WriteFile writes an entire buffer to path.
func WriteFile(path string, buf Buffer) (clipped int64, err error) {
	w, err := Create(path, buf.Format())
	if err != nil {
		return 0, err
	}
	const chunk = 1 << 16
	data := buf.Data
	for len(data) > 0 {
		n := min(chunk-chunk%buf.Channels, len(data))
		if err := w.Write(data[:n]); err != nil {
			w.Abort()
			return 0, err
		}
		data = data[n:]
	}
	if err := w.Commit(); err != nil {
		return 0, err
	}
	return w.Clipped(), nil
}
