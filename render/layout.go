package render

import "strings"

const (
	titleSize = 15
	headSize  = 12
	bodySize  = 10.5
	smallSize = 9
	leading   = 1.45
)

// Layout builds pages top to bottom. Content never breaks onto a new page on
// its own; callers start pages explicitly so every document keeps a fixed
// page count, and a page whose content runs long simply grows taller.
type Layout struct {
	fonts   *Fonts
	label   string
	width   int
	height  int
	pages   []Page
	current *Page
	y       float64
}

// NewLayout starts a layout on A4 portrait, or landscape when requested.
func NewLayout(fonts *Fonts, label string, landscape bool) *Layout {
	l := &Layout{fonts: fonts, label: label, width: PageWidth, height: PageHeight}
	if landscape {
		l.width, l.height = PageHeight, PageWidth
	}
	l.NewPage()
	return l
}

// NewPage starts the next physical page.
func (l *Layout) NewPage() *Layout {
	l.flush()
	l.current = &Page{Label: l.label, Width: l.width, Height: l.height}
	l.y = pageMargin
	return l
}

func (l *Layout) flush() {
	if l.current != nil {
		l.pages = append(l.pages, *l.current)
		l.current = nil
	}
}

// Pages finishes the layout.
func (l *Layout) Pages() []Page {
	l.flush()
	return l.pages
}

func (l *Layout) left() float64  { return pageMargin }
func (l *Layout) inner() float64 { return float64(l.width) - 2*pageMargin }

func (l *Layout) add(el Element) { l.current.Elements = append(l.current.Elements, el) }

// Space moves the cursor down.
func (l *Layout) Space(px float64) *Layout {
	l.y += px
	return l
}

// Title is a centered bold line.
func (l *Layout) Title(text string) *Layout {
	for _, line := range l.fonts.Wrap(text, titleSize, true, l.inner()) {
		l.y += titleSize * leading
		w := l.fonts.Measure(line, titleSize, true)
		l.add(Text{X: l.left() + (l.inner()-w)/2, Y: l.y, Value: line, Size: titleSize, Bold: true})
	}
	l.y += titleSize * 0.6
	return l
}

// Heading is a left-aligned bold line followed by a rule.
func (l *Layout) Heading(text string) *Layout {
	l.y += headSize * leading
	l.add(Text{X: l.left(), Y: l.y, Value: text, Size: headSize, Bold: true})
	l.y += 4
	l.add(Rect{X: l.left(), Y: l.y, W: l.inner(), H: 1, Fill: true})
	l.y += 6
	return l
}

// Paragraph wraps body text to the content width.
func (l *Layout) Paragraph(text string) *Layout {
	return l.wrapped(text, bodySize, false, 0)
}

// Small wraps text at a smaller size.
func (l *Layout) Small(text string) *Layout {
	return l.wrapped(text, smallSize, false, 0)
}

func (l *Layout) wrapped(text string, size float64, bold bool, indent float64) *Layout {
	for _, line := range l.fonts.Wrap(text, size, bold, l.inner()-indent) {
		l.y += size * leading
		l.add(Text{X: l.left() + indent, Y: l.y, Value: line, Size: size, Bold: bold})
	}
	l.y += size * 0.5
	return l
}

// Field writes "label: value". Blank values leave a line to fill by hand.
func (l *Layout) Field(label, value string) *Layout {
	label += ": "
	lw := l.fonts.Measure(label, bodySize, true)
	l.y += bodySize * leading
	l.add(Text{X: l.left(), Y: l.y, Value: label, Size: bodySize, Bold: true})
	value = strings.TrimSpace(value)
	if value == "" {
		l.add(Rect{X: l.left() + lw, Y: l.y + 2, W: l.inner() - lw, H: 1, Fill: true})
		return l
	}
	lines := l.fonts.Wrap(value, bodySize, false, l.inner()-lw)
	for i, line := range lines {
		if i > 0 {
			l.y += bodySize * leading
		}
		l.add(Text{X: l.left() + lw, Y: l.y, Value: line, Size: bodySize})
	}
	return l
}

// Checkbox draws a square, crossed when checked, followed by a label.
func (l *Layout) Checkbox(label string, checked bool) *Layout {
	l.y += bodySize * leading
	box := bodySize
	l.add(Rect{X: l.left(), Y: l.y - box + 1, W: box, H: box, Stroke: 1})
	if checked {
		l.add(Rect{X: l.left() + 2.5, Y: l.y - box + 3.5, W: box - 5, H: box - 5, Fill: true})
	}
	l.add(Text{X: l.left() + box + 6, Y: l.y, Value: label, Size: bodySize})
	return l
}

// Table draws a bordered grid with equal column widths. Cells wrap.
func (l *Layout) Table(headers []string, rows [][]string) *Layout {
	if len(headers) == 0 {
		return l
	}
	colW := l.inner() / float64(len(headers))
	l.y += 6
	l.tableRow(headers, colW, true)
	for _, row := range rows {
		l.tableRow(row, colW, false)
	}
	l.y += 4
	return l
}

func (l *Layout) tableRow(cells []string, colW float64, bold bool) {
	const pad = 4
	wrapped := make([][]string, len(cells))
	lines := 1
	for i, cell := range cells {
		wrapped[i] = l.fonts.Wrap(cell, smallSize, bold, colW-2*pad)
		if len(wrapped[i]) > lines {
			lines = len(wrapped[i])
		}
	}
	rowH := float64(lines)*smallSize*leading + 2*pad
	top := l.y
	for i := range cells {
		x := l.left() + float64(i)*colW
		l.add(Rect{X: x, Y: top, W: colW, H: rowH, Stroke: 0.75})
		for j, line := range wrapped[i] {
			l.add(Text{X: x + pad, Y: top + pad + float64(j+1)*smallSize*leading - 3, Value: line, Size: smallSize, Bold: bold})
		}
	}
	l.y = top + rowH
}

// Signature places the signature image above a line with name and id.
// An empty source leaves the line blank for a wet signature.
func (l *Layout) Signature(src, name, dni string) *Layout {
	const w, h = 220, 90
	l.y += 24
	x := l.left() + (l.inner()-w)/2
	if src != "" {
		l.add(Image{X: x, Y: l.y, W: w, H: h, Src: src})
	}
	l.y += h
	l.add(Rect{X: x, Y: l.y, W: w, H: 1, Fill: true})
	for _, line := range []string{name, "DNI: " + dni} {
		l.y += smallSize * leading
		tw := l.fonts.Measure(line, smallSize, false)
		l.add(Text{X: l.left() + (l.inner()-tw)/2, Y: l.y, Value: line, Size: smallSize})
	}
	return l
}

// Image places an arbitrary asset at the cursor.
func (l *Layout) Image(src string, w, h float64) *Layout {
	l.y += 8
	l.add(Image{X: l.left() + (l.inner()-w)/2, Y: l.y, W: w, H: h, Src: src})
	l.y += h
	return l
}
