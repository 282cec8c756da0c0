// Package frame names, writes, and reads the numbered PNG frames exchanged
// between the background, overlay, and video encode stages.
package frame

import (
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
)

// Pattern is the printf-style file name of frame i, also handed to ffmpeg.
const Pattern = "frame_%06d.png"

// Name returns the file name of frame i.
func Name(i int) string {
	return fmt.Sprintf(Pattern, i)
}

// Path returns the path of frame i inside dir.
func Path(dir string, i int) string {
	return filepath.Join(dir, Name(i))
}

var encoder = png.Encoder{CompressionLevel: png.BestSpeed}

// Write encodes img as PNG at path.
func Write(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encoder.Encode(f, img); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

// Read decodes the PNG at path into an RGBA image.
func Read(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba, nil
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Rect, img, b.Min, draw.Src)
	return rgba, nil
}
