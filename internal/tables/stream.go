package tables

import (
	"math"
	"sort"
	"strings"

	"github.com/lucidhealth/cnsextract/internal/pdfdoc"
	"github.com/lucidhealth/cnsextract/internal/report"
)

const (
	streamRowTolerance = 4.0
	// Horizontal gaps wider than this separate columns; narrower gaps are
	// just word spacing inside one cell.
	streamColumnGap = 14.0
)

// StreamStrategy detects tables from whitespace alone: words are grouped
// into rows by baseline, then split into cells wherever a wide horizontal
// gap occurs. Confidence is the share of rows agreeing on the dominant
// column count.
type StreamStrategy struct{}

// NewStreamStrategy creates the whitespace engine.
func NewStreamStrategy() *StreamStrategy {
	return &StreamStrategy{}
}

func (s *StreamStrategy) Name() report.Strategy {
	return report.StrategyStream
}

func (s *StreamStrategy) Attempt(page *pdfdoc.Page) ([]Grid, error) {
	rows := groupWordsByRow(page.Words, streamRowTolerance)
	if len(rows) < 2 {
		return nil, nil
	}

	grid := Grid{Rows: make([][]string, 0, len(rows))}
	colCounts := make(map[int]int)
	for _, row := range rows {
		cells := splitRowIntoCells(row, streamColumnGap)
		grid.Rows = append(grid.Rows, cells)
		colCounts[len(cells)]++
	}

	// Consistency of the dominant column count stands in for engine
	// accuracy.
	maxCount := 0
	for _, freq := range colCounts {
		if freq > maxCount {
			maxCount = freq
		}
	}
	grid.Accuracy = float64(maxCount) / float64(len(grid.Rows))

	return []Grid{grid}, nil
}

// groupWordsByRow clusters words by baseline, top of page first.
func groupWordsByRow(words []pdfdoc.Word, tolerance float64) [][]pdfdoc.Word {
	if len(words) == 0 {
		return nil
	}

	sorted := make([]pdfdoc.Word, len(words))
	copy(sorted, words)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Y > sorted[j].Y
	})

	var rows [][]pdfdoc.Word
	currentRow := []pdfdoc.Word{sorted[0]}
	currentY := sorted[0].Y

	for _, w := range sorted[1:] {
		if math.Abs(w.Y-currentY) <= tolerance {
			currentRow = append(currentRow, w)
			continue
		}
		rows = append(rows, currentRow)
		currentRow = []pdfdoc.Word{w}
		currentY = w.Y
	}
	rows = append(rows, currentRow)

	for _, row := range rows {
		sort.Slice(row, func(i, j int) bool { return row[i].X < row[j].X })
	}
	return rows
}

// splitRowIntoCells merges adjacent words into one cell until a gap wider
// than colGap appears.
func splitRowIntoCells(row []pdfdoc.Word, colGap float64) []string {
	var cells []string
	var cell []string
	var prevEnd float64

	for i, w := range row {
		if i > 0 && w.X-prevEnd > colGap {
			cells = append(cells, strings.Join(cell, " "))
			cell = cell[:0]
		}
		cell = append(cell, w.Text)
		prevEnd = w.X + w.Width
	}
	if len(cell) > 0 {
		cells = append(cells, strings.Join(cell, " "))
	}
	return cells
}
