package render

import (
	"image"
	"image/color"
	"image/draw"
)

const (
	trimStride  = 2
	trimWhite   = 245
	trimPadding = 16
	trimMinGain = 2
)

// Trim crops white margins around the content, keeping trimPadding pixels of
// border. The input is returned unchanged when there is no content or when
// the crop would remove at most trimMinGain pixels on both axes. Trimming an
// already trimmed image returns it as is.
func Trim(img image.Image) image.Image {
	b := img.Bounds()
	box, ok := contentBounds(img)
	if !ok {
		return img
	}

	crop := image.Rect(
		box.Min.X-trimPadding, box.Min.Y-trimPadding,
		box.Max.X+trimPadding, box.Max.Y+trimPadding,
	).Intersect(b)
	if crop.Empty() {
		return img
	}
	if b.Dx()-crop.Dx() <= trimMinGain && b.Dy()-crop.Dy() <= trimMinGain {
		return img
	}

	out := image.NewRGBA(image.Rect(0, 0, crop.Dx(), crop.Dy()))
	draw.Draw(out, out.Bounds(), img, crop.Min, draw.Src)
	return out
}

// contentBounds scans a stride grid anchored at the image origin for pixels
// that are visible and darker than trimWhite on any channel.
func contentBounds(img image.Image) (image.Rectangle, bool) {
	b := img.Bounds()
	minX, minY := b.Max.X, b.Max.Y
	maxX, maxY := b.Min.X-1, b.Min.Y-1
	for y := b.Min.Y; y < b.Max.Y; y += trimStride {
		for x := b.Min.X; x < b.Max.X; x += trimStride {
			if !isContent(img.At(x, y)) {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}
	if maxX < minX || maxY < minY {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}

func isContent(c color.Color) bool {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	if n.A == 0 {
		return false
	}
	return n.R < trimWhite || n.G < trimWhite || n.B < trimWhite
}
