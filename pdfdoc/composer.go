// Package pdfdoc lays page images out on A4 sheets.
package pdfdoc

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"

	"github.com/phpdave11/gofpdf"
)

type Orientation string

const (
	Portrait  Orientation = "P"
	Landscape Orientation = "L"
)

// A4 in points.
var a4 = gofpdf.SizeType{Wd: 595.28, Ht: 841.89}

// Rect is a placement in points relative to its slot.
type Rect struct {
	X, Y, W, H float64
}

// Fit scales an image into a slot without cropping or distortion and centres
// it on the free axis. Unknown image dimensions fill the slot edge to edge.
func Fit(imgW, imgH, slotW, slotH float64) Rect {
	if imgW <= 0 || imgH <= 0 || slotW <= 0 || slotH <= 0 {
		return Rect{W: slotW, H: slotH}
	}
	ratio := imgW / imgH
	w, h := slotW, slotW/ratio
	if slotW/slotH > ratio {
		h = slotH
		w = slotH * ratio
	}
	return Rect{X: (slotW - w) / 2, Y: (slotH - h) / 2, W: w, H: h}
}

// Raster is an encoded PNG page with its pixel size.
type Raster struct {
	PNG    []byte
	Width  int
	Height int
}

// EncodeRaster encodes img as PNG, favouring speed over size.
func EncodeRaster(img image.Image) (Raster, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		return Raster{}, fmt.Errorf("failed to encode page: %w", err)
	}
	b := img.Bounds()
	return Raster{PNG: buf.Bytes(), Width: b.Dx(), Height: b.Dy()}, nil
}

// Stats counts what was written.
type Stats struct {
	Pages      int
	Images     int
	HalfSheets int
}

// Composer accumulates pages into one PDF. It is not safe for concurrent use.
type Composer struct {
	pdf   *gofpdf.Fpdf
	stats Stats
}

// NewComposer creates an empty PDF titled title.
func NewComposer(title string) *Composer {
	pdf := gofpdf.New(string(Portrait), "pt", "A4", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("aqualima-rrhh", true)
	if title != "" {
		pdf.SetTitle(title, true)
	}
	return &Composer{pdf: pdf}
}

// AddPage puts one raster on its own sheet.
func (c *Composer) AddPage(r Raster, o Orientation) error {
	c.pdf.AddPageFormat(string(orDefault(o)), a4)
	w, h := c.pdf.GetPageSize()
	if err := c.place(r, Rect{W: w, H: h}); err != nil {
		return err
	}
	c.stats.Pages++
	return nil
}

// AddHalfPages splits a portrait sheet into two equal bands and fits one
// raster in each. A nil bottom leaves the lower band empty.
func (c *Composer) AddHalfPages(top, bottom *Raster) error {
	if top == nil {
		return fmt.Errorf("half-page sheet needs a top image")
	}
	c.pdf.AddPageFormat(string(Portrait), a4)
	w, h := c.pdf.GetPageSize()
	if err := c.place(*top, Rect{W: w, H: h / 2}); err != nil {
		return err
	}
	if bottom != nil {
		if err := c.place(*bottom, Rect{Y: h / 2, W: w, H: h / 2}); err != nil {
			return err
		}
	}
	c.stats.Pages++
	c.stats.HalfSheets++
	return nil
}

func (c *Composer) place(r Raster, slot Rect) error {
	name := fmt.Sprintf("p%d", c.stats.Images)
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	c.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(r.PNG))
	if c.pdf.Err() {
		return fmt.Errorf("failed to register page image: %w", c.pdf.Error())
	}
	fit := Fit(float64(r.Width), float64(r.Height), slot.W, slot.H)
	c.pdf.ImageOptions(name, slot.X+fit.X, slot.Y+fit.Y, fit.W, fit.H, false, opts, 0, "")
	if c.pdf.Err() {
		return fmt.Errorf("failed to place page image: %w", c.pdf.Error())
	}
	c.stats.Images++
	return nil
}

func (c *Composer) Stats() Stats { return c.stats }

// WriteTo finishes the document. The composer cannot be used afterwards.
func (c *Composer) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	if err := c.pdf.Output(cw); err != nil {
		return cw.n, fmt.Errorf("failed to write PDF: %w", err)
	}
	return cw.n, nil
}

// Bytes finishes the document and returns it.
func (c *Composer) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := c.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

func orDefault(o Orientation) Orientation {
	if o == Landscape {
		return Landscape
	}
	return Portrait
}
