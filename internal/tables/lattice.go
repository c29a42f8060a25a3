package tables

import (
	"math"
	"sort"
	"strings"

	"github.com/lucidhealth/cnsextract/internal/pdfdoc"
	"github.com/lucidhealth/cnsextract/internal/report"
)

const (
	// Shapes shorter than this on both axes are checkbox glyphs or
	// decorations, not table rulings.
	minRulingLength = 20.0
	edgeTolerance   = 3.0
)

// LatticeStrategy detects tables from drawn ruling lines: rectangle edges
// are clustered into column and row boundaries and words are binned into
// the resulting cells. Works only on reports whose tables are actually
// ruled; the stream strategy covers the rest.
type LatticeStrategy struct{}

// NewLatticeStrategy creates the ruling-line engine.
func NewLatticeStrategy() *LatticeStrategy {
	return &LatticeStrategy{}
}

func (s *LatticeStrategy) Name() report.Strategy {
	return report.StrategyLattice
}

// Attempt returns at most one grid per page, covering the area spanned by
// the page's rulings.
func (s *LatticeStrategy) Attempt(page *pdfdoc.Page) ([]Grid, error) {
	var xs, ys []float64
	for _, shape := range page.Shapes {
		if shape.Width() < minRulingLength && shape.Height() < minRulingLength {
			continue
		}
		xs = append(xs, shape.MinX, shape.MaxX)
		ys = append(ys, shape.MinY, shape.MaxY)
	}

	cols := clusterEdges(xs, edgeTolerance)
	rows := clusterEdges(ys, edgeTolerance)
	if len(cols) < 3 || len(rows) < 3 {
		return nil, nil
	}

	// rows arrive bottom-up in page space; the grid reads top-down.
	sort.Sort(sort.Reverse(sort.Float64Slice(rows)))

	nRows, nCols := len(rows)-1, len(cols)-1
	cells := make([][][]pdfdoc.Word, nRows)
	for i := range cells {
		cells[i] = make([][]pdfdoc.Word, nCols)
	}

	placed, filled := 0, 0
	for _, w := range page.Words {
		r := binBetween(rows, w.Y, true)
		c := binBetween(cols, w.CenterX(), false)
		if r < 0 || c < 0 {
			continue
		}
		cells[r][c] = append(cells[r][c], w)
		placed++
	}
	if placed == 0 {
		return nil, nil
	}

	grid := Grid{Rows: make([][]string, nRows)}
	for r := range cells {
		grid.Rows[r] = make([]string, nCols)
		for c := range cells[r] {
			if text := joinCell(cells[r][c]); text != "" {
				grid.Rows[r][c] = text
				filled++
			}
		}
	}
	grid.Accuracy = float64(filled) / float64(nRows*nCols)

	return []Grid{grid}, nil
}

// clusterEdges merges near-identical coordinates and returns the sorted
// cluster centers.
func clusterEdges(edges []float64, tolerance float64) []float64 {
	if len(edges) == 0 {
		return nil
	}
	sort.Float64s(edges)

	var out []float64
	start, sum, n := edges[0], edges[0], 1.0
	for _, e := range edges[1:] {
		if e-start <= tolerance {
			sum += e
			n++
			continue
		}
		out = append(out, sum/n)
		start, sum, n = e, e, 1
	}
	out = append(out, sum/n)
	return out
}

// binBetween finds the interval index containing v. descending selects
// top-down row boundaries instead of left-right column boundaries.
func binBetween(bounds []float64, v float64, descending bool) int {
	for i := 0; i+1 < len(bounds); i++ {
		lo, hi := bounds[i], bounds[i+1]
		if descending {
			lo, hi = hi, lo
		}
		if v >= lo && v <= hi {
			return i
		}
	}
	return -1
}

func joinCell(words []pdfdoc.Word) string {
	if len(words) == 0 {
		return ""
	}
	sort.Slice(words, func(i, j int) bool {
		if math.Abs(words[i].Y-words[j].Y) > edgeTolerance {
			return words[i].Y > words[j].Y
		}
		return words[i].X < words[j].X
	})
	parts := make([]string, 0, len(words))
	for _, w := range words {
		parts = append(parts, w.Text)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}
