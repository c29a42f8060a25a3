// Package tables is the table-extraction fallback: when the line parser
// finds nothing on a page expected to carry subtest tables, pluggable
// engine strategies convert the page into grids and grid rows are matched
// against the known metric vocabulary.
package tables

import (
	"strconv"
	"strings"

	"github.com/lucidhealth/cnsextract/internal/pdfdoc"
	"github.com/lucidhealth/cnsextract/internal/report"
)

// Grid is one detected table: rows of cell strings plus a confidence
// score in [0,1] from the engine that produced it.
type Grid struct {
	Rows     [][]string
	Accuracy float64
}

// Cell returns the trimmed cell at (row, col), or "" when out of range.
func (g *Grid) Cell(row, col int) string {
	if row < 0 || row >= len(g.Rows) {
		return ""
	}
	r := g.Rows[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[col])
}

// NumCols returns the widest row's cell count.
func (g *Grid) NumCols() int {
	max := 0
	for _, r := range g.Rows {
		if len(r) > max {
			max = len(r)
		}
	}
	return max
}

// FirstColumnNumeric reports whether the first column reads as numbers.
// Metric tables lead with label text, so a numeric first column means the
// engine misaligned the columns and the grid must be discarded.
func (g *Grid) FirstColumnNumeric() bool {
	numeric, nonEmpty := 0, 0
	for row := range g.Rows {
		cell := g.Cell(row, 0)
		if cell == "" {
			continue
		}
		nonEmpty++
		if _, err := strconv.ParseFloat(strings.ReplaceAll(cell, "*", ""), 64); err == nil {
			numeric++
		}
	}
	return nonEmpty > 0 && numeric*2 > nonEmpty
}

// Strategy is one table-detection engine. Engines are tried in a fixed
// priority order per page; the first grid that yields a (test, metric)
// wins that key.
type Strategy interface {
	Name() report.Strategy
	Attempt(page *pdfdoc.Page) ([]Grid, error)
}

// Engines with accuracy below this are skipped outright.
const minAccuracy = 0.5
