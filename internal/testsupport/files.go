package testsupport

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"dreamweave/internal/media/pcm"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	const chunkSize = 32 * 1024
	buf := make([]byte, chunkSize)
	for i := range buf {
		buf[i] = 0x42
	}

	remaining := size
	for remaining > 0 {
		toWrite := int64(chunkSize)
		if remaining < toWrite {
			toWrite = remaining
		}
		if _, err := f.Write(buf[:toWrite]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= toWrite
	}
}

// WriteSineWAV writes a stereo 440 Hz sine of the given length.
func WriteSineWAV(t testing.TB, path string, seconds float64, sampleRate int) {
	t.Helper()

	buf := pcm.NewBuffer(pcm.Format{SampleRate: sampleRate, Channels: 2}, int(math.Round(seconds*float64(sampleRate))))
	for i := 0; i < buf.Frames(); i++ {
		v := float32(0.25 * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate)))
		buf.Data[i*2] = v
		buf.Data[i*2+1] = v
	}
	if _, err := pcm.WriteFile(path, buf); err != nil {
		t.Fatalf("write wav %s: %v", path, err)
	}
}

// ReadWAV loads a whole WAV file through the streaming reader.
func ReadWAV(t testing.TB, path string) pcm.Buffer {
	t.Helper()

	r, err := pcm.Open(path)
	if err != nil {
		t.Fatalf("open wav %s: %v", path, err)
	}
	defer r.Close()

	format := r.Format()
	out := pcm.Buffer{SampleRate: format.SampleRate, Channels: format.Channels}
	chunk := make([]float32, 4096*format.Channels)
	for {
		n, err := r.Read(chunk)
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("read wav %s: %v", path, err)
		}
		out.Data = append(out.Data, chunk[:n]...)
	}
}

// WritePNG writes a solid w x h image.
func WritePNG(t testing.TB, path string, w, h int, c color.Color) {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}
