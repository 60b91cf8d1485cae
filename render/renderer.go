package render

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"math"
	"time"

	"github.com/EduardoCane/EmpresaAguaLima-sub000/pkg/logger"
)

// Options tunes a Renderer. Zero fields take their DefaultOptions value.
type Options struct {
	// Fidelities are pixel densities tried in order, highest first.
	Fidelities   []int
	ImageTimeout time.Duration
	Blank        BlankDetector
	// MaxPixels bounds a single canvas. Pages that would exceed it are drawn
	// at the largest scale that fits.
	MaxPixels int
}

// DefaultOptions returns the capture settings used when none are configured.
func DefaultOptions() Options {
	return Options{
		Fidelities:   []int{5, 4, 3},
		ImageTimeout: 5 * time.Second,
		Blank:        DefaultBlankDetector(),
		MaxPixels:    60_000_000,
	}
}

// Renderer rasterizes pages. Each attempt draws onto its own canvas, so a
// capture never mutates shared state.
type Renderer struct {
	opts   Options
	fonts  *Fonts
	assets AssetLoader
}

// NewRenderer creates a renderer drawing with fonts. assets may be nil, in
// which case images are left out.
func NewRenderer(opts Options, fonts *Fonts, assets AssetLoader) *Renderer {
	def := DefaultOptions()
	if len(opts.Fidelities) == 0 {
		opts.Fidelities = def.Fidelities
	}
	if opts.ImageTimeout <= 0 {
		opts.ImageTimeout = def.ImageTimeout
	}
	if opts.Blank == (BlankDetector{}) {
		opts.Blank = def.Blank
	}
	if opts.Blank.Threshold == 0 {
		opts.Blank.Threshold = def.Blank.Threshold
	}
	if opts.MaxPixels <= 0 {
		opts.MaxPixels = def.MaxPixels
	}
	return &Renderer{opts: opts, fonts: fonts, assets: assets}
}

// Capture renders p. Images that fail to load are omitted, blank captures are
// retried at the next fidelity, and when every attempt is blank or fails the
// last usable result (or a plain white page) is returned. Only context
// cancellation is reported as an error.
func (r *Renderer) Capture(ctx context.Context, p Page) (image.Image, error) {
	assets := r.loadAssets(ctx, p)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var last image.Image
	for _, fidelity := range r.opts.Fidelities {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		scale := r.fitScale(p, float64(fidelity))
		if scale < float64(fidelity) {
			logger.Debug(ctx, "page too large for fidelity, scaling down", "page", p.Label, "fidelity", fidelity, "scale", scale)
		}
		img, err := r.draw(p, scale, assets)
		if err != nil {
			logger.Warn(ctx, "page capture failed", "page", p.Label, "fidelity", fidelity, "error", err)
			continue
		}
		last = img
		if !r.opts.Blank.IsBlank(img) {
			return img, nil
		}
		logger.Debug(ctx, "capture looks blank, retrying", "page", p.Label, "fidelity", fidelity)
	}

	if last == nil {
		logger.Error(ctx, "no capture produced, emitting blank page", "page", p.Label)
		w, h := p.Size()
		return whiteCanvas(w, h), nil
	}
	logger.Warn(ctx, "all captures look blank, keeping lowest fidelity", "page", p.Label)
	return last, nil
}

// fitScale caps scale so the canvas for p stays within MaxPixels.
func (r *Renderer) fitScale(p Page, scale float64) float64 {
	w, h := p.Size()
	if limit := math.Sqrt(float64(r.opts.MaxPixels) / float64(w*h)); scale > limit {
		return limit
	}
	return scale
}

func (r *Renderer) draw(p Page, scale float64, assets map[string]image.Image) (*image.RGBA, error) {
	w, h := p.Size()
	cw, ch := int(float64(w)*scale), int(float64(h)*scale)
	c := &canvas{img: whiteCanvas(cw, ch), scale: scale, fonts: r.fonts, assets: assets}
	for _, el := range p.Elements {
		if err := el.draw(c); err != nil {
			return nil, fmt.Errorf("failed to draw %s: %w", p.Label, err)
		}
	}
	return c.img, nil
}

type loaded struct {
	img image.Image
	err error
}

// loadAssets waits for each image at most ImageTimeout. Slow or broken images
// are logged and left out.
func (r *Renderer) loadAssets(ctx context.Context, p Page) map[string]image.Image {
	out := make(map[string]image.Image)
	if r.assets == nil {
		return out
	}
	for _, src := range p.Sources() {
		actx, cancel := context.WithTimeout(ctx, r.opts.ImageTimeout)
		done := make(chan loaded, 1)
		go func(src string) {
			img, err := r.assets.Load(actx, src)
			done <- loaded{img: img, err: err}
		}(src)

		select {
		case res := <-done:
			if res.err != nil {
				logger.Warn(ctx, "image failed to load", "page", p.Label, "error", res.err)
			} else {
				out[src] = res.img
			}
		case <-actx.Done():
			logger.WithContext(ctx).Warn("image load timed out",
				slog.String("page", p.Label),
				slog.Duration("timeout", r.opts.ImageTimeout),
			)
		}
		cancel()
	}
	return out
}

func whiteCanvas(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img
}
