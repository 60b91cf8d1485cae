package render

import "image"

// BlankDetector decides whether a capture came out empty. By default it scans
// the page for ink; with Stride zero it averages the brightness of a few
// interior samples instead.
type BlankDetector struct {
	// Threshold is the 0-255 brightness above which a sample counts as paper.
	Threshold float64
	// Radius averages a (2r+1)² square around each sample point.
	Radius int
	// Grid, when positive, samples an evenly spaced Grid×Grid lattice instead
	// of the centre and the four quadrant midpoints.
	Grid int
	// Stride, when positive, scans every Stride-th pixel of every Stride-th
	// row. The capture is blank when at most MinInk of the scanned pixels are
	// at or below Threshold.
	Stride int
	MinInk float64
}

// DefaultBlankDetector scans every other pixel and wants more than 0.05% ink.
func DefaultBlankDetector() BlankDetector {
	return BlankDetector{Threshold: 250, Stride: 2, MinInk: 0.0005}
}

// SamplePoints returns the points sampled in an image of the given bounds.
func (d BlankDetector) SamplePoints(b image.Rectangle) []image.Point {
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil
	}
	if d.Grid > 0 {
		pts := make([]image.Point, 0, d.Grid*d.Grid)
		for i := 0; i < d.Grid; i++ {
			for j := 0; j < d.Grid; j++ {
				pts = append(pts, image.Pt(
					b.Min.X+(2*j+1)*w/(2*d.Grid),
					b.Min.Y+(2*i+1)*h/(2*d.Grid),
				))
			}
		}
		return pts
	}
	return []image.Point{
		image.Pt(b.Min.X+w/2, b.Min.Y+h/2),
		image.Pt(b.Min.X+w/4, b.Min.Y+h/4),
		image.Pt(b.Min.X+3*w/4, b.Min.Y+h/4),
		image.Pt(b.Min.X+w/4, b.Min.Y+3*h/4),
		image.Pt(b.Min.X+3*w/4, b.Min.Y+3*h/4),
	}
}

// Brightness is the mean brightness of the samples, composited over white.
func (d BlankDetector) Brightness(img image.Image) float64 {
	b := img.Bounds()
	var sum float64
	var n int
	for _, p := range d.SamplePoints(b) {
		for dy := -d.Radius; dy <= d.Radius; dy++ {
			for dx := -d.Radius; dx <= d.Radius; dx++ {
				q := image.Pt(p.X+dx, p.Y+dy)
				if !q.In(b) {
					continue
				}
				sum += pixelBrightness(img, q)
				n++
			}
		}
	}
	if n == 0 {
		return 255
	}
	return sum / float64(n)
}

// InkRatio is the share of scanned pixels at or below Threshold.
func (d BlankDetector) InkRatio(img image.Image) float64 {
	step := max(d.Stride, 1)
	b := img.Bounds()
	rgba, _ := img.(*image.RGBA)
	var ink, n int
	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			var v float64
			if rgba != nil {
				i := rgba.PixOffset(x, y)
				px := rgba.Pix[i : i+4 : i+4]
				v = float64(int(px[0])+int(px[1])+int(px[2]))/3 + float64(255-int(px[3]))
			} else {
				v = pixelBrightness(img, image.Pt(x, y))
			}
			if v <= d.Threshold {
				ink++
			}
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float64(ink) / float64(n)
}

// IsBlank reports whether img looks like an empty capture.
func (d BlankDetector) IsBlank(img image.Image) bool {
	if d.Stride > 0 {
		return d.InkRatio(img) <= d.MinInk
	}
	return d.Brightness(img) > d.Threshold
}

func pixelBrightness(img image.Image, p image.Point) float64 {
	r, g, b, a := img.At(p.X, p.Y).RGBA()
	white := 0xffff - a
	return float64((r+white)+(g+white)+(b+white)) / 3 / 257
}
