package background

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"dreamweave/internal/logging"
	"dreamweave/internal/media/frame"
	"dreamweave/internal/services"
	"dreamweave/internal/timeline"
)

// Generator renders background frames on the shared clock.
type Generator struct {
	Clock     timeline.Clock
	Width     int
	Height    int
	Keyframes Keyframes
	Logger    *slog.Logger
}

// Validate checks canvas dimensions.
func (g Generator) Validate() error {
	if g.Width <= 0 || g.Height <= 0 {
		return services.Wrap(services.ErrConfiguration, "background", "validate", fmt.Sprintf("invalid canvas %dx%d", g.Width, g.Height), nil)
	}
	if g.Clock.FrameCount() <= 0 {
		return services.Wrap(services.ErrInvalidDuration, "background", "validate", "clock covers no frames", nil)
	}
	return nil
}

// ColorAt returns the gradient colors at master time t.
func (g Generator) ColorAt(t float64) (top, bottom RGB) {
	return g.Keyframes.ColorAt(g.Clock.Clamp(t))
}

// Frame renders the background at master time t.
func (g Generator) Frame(t float64) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, g.Width, g.Height))
	g.draw(img, t)
	return img
}

func (g Generator) draw(img *image.RGBA, t float64) {
	top, bottom := g.ColorAt(t)
	h := img.Rect.Dy()
	w := img.Rect.Dx()
	for y := 0; y < h; y++ {
		p := 0.0
		if h > 1 {
			p = float64(y) / float64(h-1)
		}
		c := Lerp(top, bottom, p)
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < len(row); x += 4 {
			row[x] = c.R
			row[x+1] = c.G
			row[x+2] = c.B
			row[x+3] = 0xff
		}
	}
}

// RenderFrames writes every clock frame to dir as numbered PNGs, using up to
// workers goroutines. Each frame goes to its own file.
func (g Generator) RenderFrames(ctx context.Context, dir string, workers int) error {
	if err := g.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return services.Wrap(services.ErrValidation, "background", "create frame dir", dir, err)
	}
	if workers <= 0 {
		workers = 1
	}
	logger := logging.NewComponentLogger(g.Logger, "background")
	total := g.Clock.FrameCount()
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
			img := g.Frame(g.Clock.FrameTime(i))
			if err := frame.Write(frame.Path(dir, i), img); err != nil {
				return services.Wrap(services.ErrValidation, "background", "write frame", fmt.Sprintf("frame %d", i), err)
			}
			n := int(done.Add(1))
			if sampler.ShouldLog(n, total) {
				logger.Info("background frames rendered",
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
