package tables

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/lucidhealth/cnsextract/internal/pdfdoc"
	"github.com/lucidhealth/cnsextract/internal/report"
)

var partCellPattern = regexp.MustCompile(`^Part\s+\d+$`)

// columnMap gives the cell index of each logical column within a grid
// row. Vendor tables put the metric label first and the three scores
// after it unless the header row says otherwise.
type columnMap struct {
	metric, raw, standard, percentile int
}

func defaultColumns() columnMap {
	return columnMap{metric: 0, raw: 1, standard: 2, percentile: 3}
}

// Extractor runs the engine strategies against a page and converts
// accepted grids into candidate fields.
type Extractor struct {
	catalog    *report.TestCatalog
	strategies []Strategy
	logger     *slog.Logger
}

// NewExtractor creates an extractor trying the given strategies in order.
// With none given it uses the standard lattice-then-stream order.
func NewExtractor(catalog *report.TestCatalog, logger *slog.Logger, strategies ...Strategy) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if len(strategies) == 0 {
		strategies = []Strategy{NewLatticeStrategy(), NewStreamStrategy()}
	}
	return &Extractor{catalog: catalog, strategies: strategies, logger: logger}
}

// ExtractPage attempts every strategy against the page until all expected
// tests have produced fields. Once a (test, metric, part) key is found by
// one grid, later grids and engines cannot overwrite it.
func (e *Extractor) ExtractPage(page *pdfdoc.Page, expectedTests []string) []report.CandidateField {
	var out []report.CandidateField
	found := make(map[report.MetricKey]bool)
	foundTests := make(map[string]bool)

	for _, strat := range e.strategies {
		remaining := filterTests(expectedTests, foundTests)
		if len(remaining) == 0 {
			break
		}

		grids, err := strat.Attempt(page)
		if err != nil {
			e.logger.Debug("table engine failed", "engine", strat.Name(), "page", page.Number, "error", err)
			continue
		}

		for _, grid := range grids {
			if grid.Accuracy < minAccuracy {
				e.logger.Debug("skipping low-accuracy grid",
					"engine", strat.Name(), "page", page.Number, "accuracy", grid.Accuracy)
				continue
			}
			if grid.FirstColumnNumeric() {
				e.logger.Debug("discarding misaligned grid", "engine", strat.Name(), "page", page.Number)
				continue
			}

			test := e.identifyTest(&grid, remaining)
			if test == "" {
				continue
			}

			fields := e.extractGrid(&grid, test, strat.Name(), page.Number, found)
			if len(fields) > 0 {
				out = append(out, fields...)
				foundTests[test] = true
				remaining = filterTests(remaining, foundTests)
			}
		}
	}

	return out
}

// identifyTest decides which expected test a grid belongs to: a direct
// header match wins outright, a "Part N" cell claims the one multi-part
// test, otherwise the test whose metric vocabulary matches the most cells
// wins with ties broken by declaration order.
func (e *Extractor) identifyTest(grid *Grid, expectedTests []string) string {
	for _, test := range expectedTests {
		spec, ok := e.catalog.Lookup(test)
		if !ok {
			continue
		}
		for _, row := range grid.Rows {
			for _, cell := range row {
				cell = strings.TrimSpace(cell)
				if cell == test {
					return test
				}
				if strings.Contains(cell, spec.Name) && strings.Contains(cell, "("+spec.Abbrev+")") {
					return test
				}
			}
		}
	}

	if partTest := e.partOwner(expectedTests); partTest != "" {
		for _, row := range grid.Rows {
			for _, cell := range row {
				if partCellPattern.MatchString(strings.TrimSpace(cell)) {
					return partTest
				}
			}
		}
	}

	type scored struct {
		test  string
		score int
	}
	scores := make([]scored, 0, len(expectedTests))
	for _, test := range expectedTests {
		metrics := e.catalog.ExpectedMetrics(test)
		score := 0
		for _, metric := range metrics {
			for _, row := range grid.Rows {
				matched := false
				for _, cell := range row {
					cell = report.NormalizeMetric(cell)
					if cell == metric {
						score += 2
						matched = true
						break
					}
					if strings.Contains(cell, metric) {
						score++
						matched = true
						break
					}
				}
				if matched {
					break
				}
			}
		}
		scores = append(scores, scored{test: test, score: score})
	}

	best := scored{}
	runnerUp := scored{}
	for _, s := range scores {
		if s.score > best.score {
			runnerUp = best
			best = s
		} else if s.score > runnerUp.score {
			runnerUp = s
		}
	}
	if best.score == 0 {
		return ""
	}
	if runnerUp.score == best.score {
		e.logger.Debug("ambiguous table identification",
			"chosen", best.test, "runner_up", runnerUp.test, "score", best.score)
	}
	return best.test
}

// extractGrid walks the grid rows for the identified test, honoring any
// header-relocated columns and "Part N" sub-section cells.
func (e *Extractor) extractGrid(
	grid *Grid, test string, strategy report.Strategy, pageNum int, found map[report.MetricKey]bool,
) []report.CandidateField {
	metrics := e.catalog.ExpectedMetrics(test)
	cols := e.locateColumns(grid)
	hasParts := false
	if spec, ok := e.catalog.Lookup(test); ok {
		hasParts = spec.HasParts()
	}

	var out []report.CandidateField
	currentPart := ""
	for r := range grid.Rows {
		first := grid.Cell(r, cols.metric)
		if first == "" {
			continue
		}
		if hasParts && partCellPattern.MatchString(first) {
			currentPart = first
			continue
		}

		metric, ok := report.MatchMetric(first, metrics)
		if !ok {
			continue
		}
		key := report.MetricKey{Test: test, Metric: metric, SubPart: currentPart}
		if found[key] {
			continue
		}
		found[key] = true
		out = append(out, report.CandidateField{
			Test:       test,
			Metric:     metric,
			SubPart:    currentPart,
			Raw:        report.ParseValue(grid.Cell(r, cols.raw)),
			Standard:   report.ParseValue(grid.Cell(r, cols.standard)),
			Percentile: report.ParseValue(grid.Cell(r, cols.percentile)),
			Strategy:   strategy,
			Page:       pageNum,
		})
	}
	return out
}

// locateColumns sniffs the first rows for score column headers and
// relocates the value columns when the vendor shifted them.
func (e *Extractor) locateColumns(grid *Grid) columnMap {
	cols := defaultColumns()
	limit := 3
	if len(grid.Rows) < limit {
		limit = len(grid.Rows)
	}
	for r := 0; r < limit; r++ {
		row := grid.Rows[r]
		sniffed := cols
		matches := 0
		for c, cell := range row {
			switch {
			case strings.EqualFold(strings.TrimSpace(cell), "Score"):
				sniffed.raw = c
				matches++
			case strings.Contains(cell, "Standard"):
				sniffed.standard = c
				matches++
			case strings.Contains(cell, "Percentile"):
				sniffed.percentile = c
				matches++
			}
		}
		if matches >= 2 {
			return sniffed
		}
	}
	return cols
}

// partOwner returns the single expected test that has numbered parts.
func (e *Extractor) partOwner(expectedTests []string) string {
	for _, test := range expectedTests {
		if spec, ok := e.catalog.Lookup(test); ok && spec.HasParts() {
			return spec.Name
		}
	}
	return ""
}

func filterTests(tests []string, found map[string]bool) []string {
	out := tests[:0:0]
	for _, t := range tests {
		if !found[t] {
			out = append(out, t)
		}
	}
	return out
}
