package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync/atomic"
	"testing"
	"time"
)

func testFonts(t *testing.T) *Fonts {
	t.Helper()
	f, err := DefaultFonts()
	if err != nil {
		t.Fatalf("Failed to load fonts: %v", err)
	}
	return f
}

func solidPNG(t *testing.T, w, h int, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode PNG: %v", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

// centerBlock covers every default sample point.
func centerBlock() Rect {
	return Rect{X: 100, Y: 150, W: 600, H: 800, Fill: true}
}

func TestCaptureAcceptsFirstNonBlankAttempt(t *testing.T) {
	r := NewRenderer(Options{Fidelities: []int{2, 1}}, testFonts(t), nil)

	img, err := r.Capture(context.Background(), Page{Label: "p1", Elements: []Element{centerBlock()}})
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if got := img.Bounds().Size(); got != image.Pt(2*PageWidth, 2*PageHeight) {
		t.Errorf("Expected first fidelity size, got %v", got)
	}
}

func TestCaptureBlankFallsBackToLowestFidelity(t *testing.T) {
	r := NewRenderer(Options{Fidelities: []int{3, 2, 1}}, testFonts(t), nil)

	img, err := r.Capture(context.Background(), Page{Label: "vacía"})
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if got := img.Bounds().Size(); got != image.Pt(PageWidth, PageHeight) {
		t.Errorf("Expected lowest fidelity size %dx%d, got %v", PageWidth, PageHeight, got)
	}
}

type brokenElement struct{}

func (brokenElement) Bottom() float64 { return 0 }
func (brokenElement) draw(*canvas) error { return errors.New("broken") }

func TestCaptureDrawFailureEmitsWhitePage(t *testing.T) {
	r := NewRenderer(Options{Fidelities: []int{2, 1}}, testFonts(t), nil)

	img, err := r.Capture(context.Background(), Page{Label: "rota", Elements: []Element{centerBlock(), brokenElement{}}})
	if err != nil {
		t.Fatalf("Expected a degraded page, got error %v", err)
	}
	if got := img.Bounds().Size(); got != image.Pt(PageWidth, PageHeight) {
		t.Errorf("Expected white A4 page, got %v", got)
	}
	if !DefaultBlankDetector().IsBlank(img) {
		t.Error("Expected fallback page to be blank")
	}
}

func TestCaptureScalesDownOversizedPage(t *testing.T) {
	r := NewRenderer(Options{Fidelities: []int{10}, MaxPixels: 4 * PageWidth * PageHeight}, testFonts(t), nil)

	img, err := r.Capture(context.Background(), Page{Label: "enorme", Elements: []Element{centerBlock()}})
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	b := img.Bounds()
	if b.Dx()*b.Dy() > 4*PageWidth*PageHeight {
		t.Errorf("Expected canvas within the pixel budget, got %v", b.Size())
	}
	if b.Dx() < 2*PageWidth-1 {
		t.Errorf("Expected roughly double scale, got %v", b.Size())
	}
	if DefaultBlankDetector().IsBlank(img) {
		t.Error("Expected the content to be drawn at the reduced scale")
	}
}

func TestCaptureGrowsToFitContent(t *testing.T) {
	r := NewRenderer(Options{Fidelities: []int{1}}, testFonts(t), nil)

	p := Page{Elements: []Element{centerBlock(), Rect{X: 10, Y: 1500, W: 10, H: 100, Fill: true}}}
	img, err := r.Capture(context.Background(), p)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if got := img.Bounds().Dy(); got != 1500+100+pageMargin {
		t.Errorf("Expected height %d, got %d", 1500+100+pageMargin, got)
	}
	if got := img.Bounds().Dx(); got != PageWidth {
		t.Errorf("Expected width %d, got %d", PageWidth, got)
	}
}

func TestCaptureDrawsImages(t *testing.T) {
	src := solidPNG(t, 10, 10, color.Black)
	r := NewRenderer(Options{Fidelities: []int{1}}, testFonts(t), NewAssets(nil))

	p := Page{Elements: []Element{Image{X: 197, Y: 361, W: 400, H: 400, Src: src}}}
	img, err := r.Capture(context.Background(), p)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if b := pixelBrightness(img, image.Pt(397, 561)); b > 10 {
		t.Errorf("Expected dark pixel at image centre, got brightness %.1f", b)
	}
}

type blockingLoader struct {
	calls atomic.Int32
}

func (l *blockingLoader) Load(ctx context.Context, src string) (image.Image, error) {
	l.calls.Add(1)
	<-ctx.Done()
	return nil, ctx.Err()
}

// A signature that never loads is skipped after the timeout.
func TestCaptureSkipsSlowImages(t *testing.T) {
	loader := &blockingLoader{}
	r := NewRenderer(Options{Fidelities: []int{1}, ImageTimeout: 50 * time.Millisecond}, testFonts(t), loader)

	p := Page{Elements: []Element{
		centerBlock(),
		Image{X: 10, Y: 10, W: 50, H: 50, Src: "https://firmas.example/lenta.png"},
	}}

	start := time.Now()
	img, err := r.Capture(context.Background(), p)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if img == nil {
		t.Fatal("Expected page to be captured")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Expected capture to finish soon after the image timeout, took %v", elapsed)
	}
	if loader.calls.Load() != 1 {
		t.Errorf("Expected one load attempt, got %d", loader.calls.Load())
	}
}

func TestCaptureHonoursCancellation(t *testing.T) {
	r := NewRenderer(Options{Fidelities: []int{1}}, testFonts(t), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.Capture(ctx, Page{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestPageSize(t *testing.T) {
	tests := []struct {
		name  string
		page  Page
		wantW int
		wantH int
	}{
		{"default A4", Page{}, PageWidth, PageHeight},
		{"landscape", Page{Width: PageHeight, Height: PageWidth}, PageHeight, PageWidth},
		{"tall content", Page{Elements: []Element{Rect{Y: 1200, H: 10}}}, PageWidth, 1200 + 10 + pageMargin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := tt.page.Size()
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("Expected %dx%d, got %dx%d", tt.wantW, tt.wantH, w, h)
			}
		})
	}
}

func TestPageSourcesDeduplicates(t *testing.T) {
	p := Page{Elements: []Element{
		Image{Src: "data:a"}, Text{Value: "x"}, Image{Src: "data:a"}, Image{Src: "data:b"}, Image{},
	}}
	got := p.Sources()
	if len(got) != 2 || got[0] != "data:a" || got[1] != "data:b" {
		t.Errorf("Expected [data:a data:b], got %v", got)
	}
}
