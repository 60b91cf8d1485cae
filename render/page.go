package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
)

// A4 at 96 dpi.
const (
	PageWidth  = 794
	PageHeight = 1123

	pageMargin = 56
)

// Page is one physical page of a document. Width and Height are the minimum
// size in CSS pixels; zero means A4 portrait. The rendered height grows to fit
// content that runs past it.
type Page struct {
	Label    string
	Width    int
	Height   int
	Elements []Element
}

// Element is something drawn on a page. Coordinates are CSS pixels.
type Element interface {
	Bottom() float64
	draw(c *canvas) error
}

// Size returns the page size in CSS pixels after fitting content.
func (p Page) Size() (int, int) {
	w, h := p.Width, p.Height
	if w <= 0 {
		w = PageWidth
	}
	if h <= 0 {
		h = PageHeight
	}
	if content := int(math.Ceil(p.ContentHeight())); content > h {
		h = content
	}
	return w, h
}

// ContentHeight is the lowest element edge plus the bottom margin.
func (p Page) ContentHeight() float64 {
	var bottom float64
	for _, el := range p.Elements {
		if b := el.Bottom(); b > bottom {
			bottom = b
		}
	}
	if bottom == 0 {
		return 0
	}
	return bottom + pageMargin
}

// Sources lists the image sources referenced by the page, without duplicates.
func (p Page) Sources() []string {
	seen := make(map[string]bool)
	var out []string
	for _, el := range p.Elements {
		if img, ok := el.(Image); ok && img.Src != "" && !seen[img.Src] {
			seen[img.Src] = true
			out = append(out, img.Src)
		}
	}
	return out
}

type canvas struct {
	img    *image.RGBA
	scale  float64
	fonts  *Fonts
	assets map[string]image.Image
}

func (c *canvas) px(v float64) int { return int(math.Round(v * c.scale)) }

// Text is a single line with its baseline at Y.
type Text struct {
	X, Y  float64
	Value string
	Size  float64
	Bold  bool
}

func (t Text) Bottom() float64 { return t.Y + t.Size*0.3 }

func (t Text) draw(c *canvas) error {
	if t.Value == "" {
		return nil
	}
	return c.fonts.Draw(c.img, t.X*c.scale, t.Y*c.scale, t.Value, t.Size*c.scale, t.Bold, color.Black)
}

// Rect is a filled or outlined rectangle.
type Rect struct {
	X, Y, W, H float64
	Fill       bool
	Stroke     float64
}

func (r Rect) Bottom() float64 { return r.Y + r.H }

func (r Rect) draw(c *canvas) error {
	box := image.Rect(c.px(r.X), c.px(r.Y), c.px(r.X+r.W), c.px(r.Y+r.H))
	ink := image.NewUniform(color.Black)
	if r.Fill {
		draw.Draw(c.img, box, ink, image.Point{}, draw.Src)
		return nil
	}
	t := c.px(r.Stroke)
	if t < 1 {
		t = 1
	}
	for _, edge := range []image.Rectangle{
		image.Rect(box.Min.X, box.Min.Y, box.Max.X, box.Min.Y+t),
		image.Rect(box.Min.X, box.Max.Y-t, box.Max.X, box.Max.Y),
		image.Rect(box.Min.X, box.Min.Y, box.Min.X+t, box.Max.Y),
		image.Rect(box.Max.X-t, box.Min.Y, box.Max.X, box.Max.Y),
	} {
		draw.Draw(c.img, edge, ink, image.Point{}, draw.Src)
	}
	return nil
}

// Image places an asset inside the box, keeping its aspect ratio. Assets that
// failed to load are skipped.
type Image struct {
	X, Y, W, H float64
	Src        string
}

func (i Image) Bottom() float64 { return i.Y + i.H }

func (i Image) draw(c *canvas) error {
	src, ok := c.assets[i.Src]
	if !ok || src == nil {
		return nil
	}
	sb := src.Bounds()
	if sb.Dx() <= 0 || sb.Dy() <= 0 {
		return nil
	}
	w, h := i.W, i.H
	ratio := float64(sb.Dx()) / float64(sb.Dy())
	if w/h > ratio {
		w = h * ratio
	} else {
		h = w / ratio
	}
	x := i.X + (i.W-w)/2
	y := i.Y + (i.H-h)/2
	dst := image.Rect(c.px(x), c.px(y), c.px(x+w), c.px(y+h))
	xdraw.CatmullRom.Scale(c.img, dst, src, sb, xdraw.Over, nil)
	return nil
}
