// Package pdfdoc reads clinical report PDFs into an in-memory document
// model: plain text per page plus positioned words and drawn rectangles
// for the layout-sensitive extractors.
package pdfdoc

import (
	"math"
	"sort"
	"strings"
)

// Word is a run of text fragments merged into a single token, positioned
// in PDF user space (origin bottom-left).
type Word struct {
	Text     string
	X        float64 // left edge
	Y        float64 // baseline
	Width    float64
	FontSize float64
}

// CenterX returns the horizontal midpoint of the word.
func (w Word) CenterX() float64 {
	return w.X + w.Width/2
}

// Shape is a rectangle drawn on the page, in PDF user space.
type Shape struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// Width returns the horizontal extent of the shape.
func (s Shape) Width() float64 {
	return s.MaxX - s.MinX
}

// Height returns the vertical extent of the shape.
func (s Shape) Height() float64 {
	return s.MaxY - s.MinY
}

// CenterX returns the horizontal midpoint of the shape.
func (s Shape) CenterX() float64 {
	return (s.MinX + s.MaxX) / 2
}

// CenterY returns the vertical midpoint of the shape.
func (s Shape) CenterY() float64 {
	return (s.MinY + s.MaxY) / 2
}

// Page holds the extracted content of a single page.
type Page struct {
	Number int // 1-based
	Width  float64
	Height float64
	Text   string
	Words  []Word
	Shapes []Shape
}

// Lines splits the page text into trimmed, non-empty lines.
func (p *Page) Lines() []string {
	raw := strings.Split(p.Text, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// Contains reports whether the page text contains the marker.
func (p *Page) Contains(marker string) bool {
	return strings.Contains(p.Text, marker)
}

// Document is a fully read PDF.
type Document struct {
	Path  string
	Size  int64
	Pages []Page
}

// Text concatenates the text of every page.
func (d *Document) Text() string {
	var b strings.Builder
	for i := range d.Pages {
		b.WriteString(d.Pages[i].Text)
		b.WriteString("\n")
	}
	return b.String()
}

// FindPage returns the first page whose text contains the marker.
func (d *Document) FindPage(marker string) (*Page, bool) {
	for i := range d.Pages {
		if d.Pages[i].Contains(marker) {
			return &d.Pages[i], true
		}
	}
	return nil, false
}

// fragment is a raw positioned text run before word assembly.
type fragment struct {
	text     string
	x, y     float64
	width    float64
	fontSize float64
}

// Fragments closer together than this fraction of the font size belong
// to the same word.
const wordGapFactor = 0.35

// assembleWords merges raw fragments into words: rows are clustered by
// baseline, sorted left to right, and adjacent fragments joined when the
// horizontal gap is smaller than the font allows between glyphs.
func assembleWords(frags []fragment, rowTolerance float64) []Word {
	if len(frags) == 0 {
		return nil
	}

	sort.Slice(frags, func(i, j int) bool {
		if math.Abs(frags[i].y-frags[j].y) > rowTolerance {
			return frags[i].y > frags[j].y // top of page first
		}
		return frags[i].x < frags[j].x
	})

	var words []Word
	cur := Word{
		Text:     frags[0].text,
		X:        frags[0].x,
		Y:        frags[0].y,
		Width:    frags[0].width,
		FontSize: frags[0].fontSize,
	}

	for _, f := range frags[1:] {
		sameRow := math.Abs(f.y-cur.Y) <= rowTolerance
		gap := f.x - (cur.X + cur.Width)
		maxGap := cur.FontSize * wordGapFactor
		if maxGap == 0 {
			maxGap = 2
		}

		if sameRow && gap <= maxGap {
			cur.Text += f.text
			cur.Width = f.x + f.width - cur.X
			continue
		}

		if t := strings.TrimSpace(cur.Text); t != "" {
			cur.Text = t
			words = append(words, cur)
		}
		cur = Word{Text: f.text, X: f.x, Y: f.y, Width: f.width, FontSize: f.fontSize}
	}

	if t := strings.TrimSpace(cur.Text); t != "" {
		cur.Text = t
		words = append(words, cur)
	}

	return words
}
