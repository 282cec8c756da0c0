package overlay

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // decode JPEG phase images
	_ "image/png"  // decode PNG phase images
	"log/slog"
	"os"
	"sync/atomic"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"dreamweave/internal/fileutil"
	"dreamweave/internal/logging"
	"dreamweave/internal/media/frame"
	"dreamweave/internal/services"
	"dreamweave/internal/timeline"
)

// Layer is a decoded, letterboxed placement ready to blend.
type Layer struct {
	Placement Placement
	// Image is canvas-sized; pixels outside Rect are fully transparent.
	Image *image.NRGBA
	// Rect is the region the scaled image occupies on the canvas.
	Rect image.Rectangle
}

// Compositor blends layers over background frames on the shared clock.
type Compositor struct {
	Clock  timeline.Clock
	Width  int
	Height int
	Logger *slog.Logger
}

// Load decodes and letterboxes every placement's image. A missing or
// undecodable image fails the whole load.
func (c Compositor) Load(placements []Placement) ([]Layer, error) {
	if c.Width <= 0 || c.Height <= 0 {
		return nil, services.Wrap(services.ErrConfiguration, "overlay", "load", fmt.Sprintf("invalid canvas %dx%d", c.Width, c.Height), nil)
	}
	if err := ValidatePlacements(placements, c.Clock.Total); err != nil {
		return nil, err
	}
	layers := make([]Layer, 0, len(placements))
	for _, p := range placements {
		src, err := decodeImage(p.Image)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "overlay", "load image", p.Image, err)
		}
		img, rect := Letterbox(src, c.Width, c.Height)
		layers = append(layers, Layer{Placement: p, Image: img, Rect: rect})
	}
	return layers, nil
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// FitRect returns the largest rectangle with src's aspect ratio centered in
// a w x h canvas.
func FitRect(srcW, srcH, w, h int) image.Rectangle {
	if srcW <= 0 || srcH <= 0 {
		return image.Rectangle{}
	}
	dw, dh := w, srcH*w/srcW
	if dh > h {
		dw, dh = srcW*h/srcH, h
	}
	dw, dh = max(dw, 1), max(dh, 1)
	x := (w - dw) / 2
	y := (h - dh) / 2
	return image.Rect(x, y, x+dw, y+dh)
}

// Letterbox scales src to fit a w x h canvas without stretching and centers
// it on a transparent background.
func Letterbox(src image.Image, w, h int) (*image.NRGBA, image.Rectangle) {
	canvas := image.NewNRGBA(image.Rect(0, 0, w, h))
	b := src.Bounds()
	rect := FitRect(b.Dx(), b.Dy(), w, h)
	if rect.Empty() {
		return canvas, rect
	}
	xdraw.CatmullRom.Scale(canvas, rect, src, b, xdraw.Src, nil)
	return canvas, rect
}

// CompositeFrame blends layers, in order, over dst at master time t.
func (c Compositor) CompositeFrame(dst *image.RGBA, layers []Layer, t float64) {
	for _, layer := range layers {
		alpha := layer.Placement.Alpha(t)
		if alpha == 0 {
			continue
		}
		blendOver(dst, layer.Image, layer.Rect.Intersect(dst.Rect), alpha)
	}
}

// Active reports whether any layer is visible at t.
func Active(layers []Layer, t float64) bool {
	for _, layer := range layers {
		if layer.Placement.Alpha(t) > 0 {
			return true
		}
	}
	return false
}

// blendOver applies src over dst inside rect with src alpha scaled by
// opacity/255. dst holds premultiplied color.
func blendOver(dst *image.RGBA, src *image.NRGBA, rect image.Rectangle, opacity uint8) {
	const full = 255 * 255
	op := uint32(opacity)
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		si := src.PixOffset(rect.Min.X, y)
		di := dst.PixOffset(rect.Min.X, y)
		for x := rect.Min.X; x < rect.Max.X; x, si, di = x+1, si+4, di+4 {
			sa := uint32(src.Pix[si+3]) * op
			if sa == 0 {
				continue
			}
			inv := full - sa
			for k := 0; k < 3; k++ {
				v := uint32(src.Pix[si+k])*sa + uint32(dst.Pix[di+k])*inv
				dst.Pix[di+k] = uint8((v + full/2) / full)
			}
			a := 255*sa + uint32(dst.Pix[di+3])*inv
			dst.Pix[di+3] = uint8((a + full/2) / full)
		}
	}
}

// RenderFrames composites every clock frame from srcDir into dstDir. Frames
// with no visible layer are copied through unchanged.
func (c Compositor) RenderFrames(ctx context.Context, srcDir, dstDir string, layers []Layer, workers int) error {
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return services.Wrap(services.ErrValidation, "overlay", "create frame dir", dstDir, err)
	}
	if workers <= 0 {
		workers = 1
	}
	logger := logging.NewComponentLogger(c.Logger, "overlay")
	total := c.Clock.FrameCount()
	sampler := logging.NewProgressSampler(10)
	var done atomic.Int64

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	for i := 0; i < total; i++ {
		if gctx.Err() != nil {
			break
		}
		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := c.renderFrame(srcDir, dstDir, layers, i); err != nil {
				return services.Wrap(services.ErrValidation, "overlay", "composite frame", fmt.Sprintf("frame %d", i), err)
			}
			n := int(done.Add(1))
			if sampler.ShouldLog(n, total) {
				logger.Info("overlay frames composited",
					logging.Int("frames_done", n),
					logging.Int("frames_total", total),
					logging.Float64("percent", logging.Percent(n, total)),
				)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (c Compositor) renderFrame(srcDir, dstDir string, layers []Layer, i int) error {
	t := c.Clock.FrameTime(i)
	src := frame.Path(srcDir, i)
	dst := frame.Path(dstDir, i)
	if !Active(layers, t) {
		return fileutil.LinkOrCopy(src, dst)
	}
	img, err := frame.Read(src)
	if err != nil {
		return err
	}
	if img.Rect.Dx() != c.Width || img.Rect.Dy() != c.Height {
		return fmt.Errorf("background frame is %dx%d, canvas is %dx%d", img.Rect.Dx(), img.Rect.Dy(), c.Width, c.Height)
	}
	c.CompositeFrame(img, layers, t)
	return frame.Write(dst, img)
}
