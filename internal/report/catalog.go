package report

import "strings"

// TestSpec describes one cognitive test: its canonical name, the vendor
// abbreviation printed in parentheses, the metric rows the report is
// expected to contain, and the numbered sub-parts for multi-part tests.
type TestSpec struct {
	Name    string
	Abbrev  string
	Metrics []string
	Parts   []string
}

// HasParts reports whether the test splits its metrics across numbered
// sub-parts.
func (t TestSpec) HasParts() bool {
	return len(t.Parts) > 0
}

// TestCatalog is the immutable table of known tests. Declaration order is
// significant: ambiguous table matches are broken in favor of the earlier
// entry.
type TestCatalog struct {
	tests   []TestSpec
	byName  map[string]int
	aliases map[string]string
	pages   map[int][]string
}

// Canonical test names as printed in the reports.
const (
	TestVerbalMemory  = "Verbal Memory Test (VBM)"
	TestVisualMemory  = "Visual Memory Test (VSM)"
	TestFingerTapping = "Finger Tapping Test (FTT)"
	TestSymbolDigit   = "Symbol Digit Coding Test (SDC)"
	TestStroop        = "Stroop Test (ST)"
	TestShifting      = "Shifting Attention Test (SAT)"
	TestContinuous    = "Continuous Performance Test (CPT)"
	TestReasoning     = "Reasoning Test (RT)"
	TestFourPart      = "Four Part Continuous Performance Test (FPCPT)"
)

// DefaultCatalog returns the catalog for the vendor's standard report
// layout. Components receive a catalog rather than consulting package
// state so tests can substitute smaller fixtures.
func DefaultCatalog() *TestCatalog {
	return NewCatalog(
		[]TestSpec{
			{
				Name:   TestVerbalMemory,
				Abbrev: "VBM",
				Metrics: []string{
					"Correct Hits - Immediate", "Correct Passes - Immediate",
					"Correct Hits - Delay", "Correct Passes - Delay",
				},
			},
			{
				Name:   TestVisualMemory,
				Abbrev: "VSM",
				Metrics: []string{
					"Correct Hits - Immediate", "Correct Passes - Immediate",
					"Correct Hits - Delay", "Correct Passes - Delay",
				},
			},
			{
				Name:    TestFingerTapping,
				Abbrev:  "FTT",
				Metrics: []string{"Right Taps Average", "Left Taps Average"},
			},
			{
				Name:    TestSymbolDigit,
				Abbrev:  "SDC",
				Metrics: []string{"Correct Responses", "Errors"},
			},
			{
				Name:   TestStroop,
				Abbrev: "ST",
				Metrics: []string{
					"Simple Reaction Time", "Complex Reaction Time Correct",
					"Stroop Reaction Time Correct", "Stroop Commission Errors",
				},
			},
			{
				Name:    TestShifting,
				Abbrev:  "SAT",
				Metrics: []string{"Correct Responses", "Errors", "Correct Reaction Time"},
			},
			{
				Name:   TestContinuous,
				Abbrev: "CPT",
				Metrics: []string{
					"Correct Responses", "Omission Errors", "Commission Errors",
					"Choice Reaction Time Correct",
				},
			},
			{
				Name:   TestReasoning,
				Abbrev: "RT",
				Metrics: []string{
					"Correct Responses", "Average Correct Reaction Time",
					"Commission Errors", "Omission Errors",
				},
			},
			{
				Name:   TestFourPart,
				Abbrev: "FPCPT",
				Metrics: []string{
					"Average Correct Reaction Time", "Correct Responses",
					"Incorrect Responses", "Average Incorrect Reaction Time",
					"Omission Errors",
				},
				Parts: []string{"Part 1", "Part 2", "Part 3", "Part 4"},
			},
		},
		map[string]string{
			// The vendor drops "Test" from some SDC headers and the
			// abbreviation from some FPCPT headers.
			"Symbol Digit Coding (SDC)":             TestSymbolDigit,
			"Four Part Continuous Performance Test": TestFourPart,
		},
		map[int][]string{
			1: {TestVerbalMemory, TestVisualMemory, TestFingerTapping},
			2: {TestSymbolDigit, TestStroop, TestShifting, TestContinuous, TestReasoning},
			3: {TestFourPart},
		},
	)
}

// NewCatalog builds a catalog from explicit tables. The alias map folds
// header variants into canonical names; the page map lists which tests the
// fallback extractor should expect on each page.
func NewCatalog(tests []TestSpec, aliases map[string]string, pages map[int][]string) *TestCatalog {
	c := &TestCatalog{
		tests:   tests,
		byName:  make(map[string]int, len(tests)),
		aliases: aliases,
		pages:   pages,
	}
	for i, t := range tests {
		c.byName[t.Name] = i
	}
	return c
}

// Tests returns the specs in declaration order.
func (c *TestCatalog) Tests() []TestSpec {
	return c.tests
}

// Lookup resolves a test name, including known aliases, to its spec.
func (c *TestCatalog) Lookup(name string) (TestSpec, bool) {
	name = strings.TrimSpace(name)
	if canonical, ok := c.aliases[name]; ok {
		name = canonical
	}
	if i, ok := c.byName[name]; ok {
		return c.tests[i], true
	}
	return TestSpec{}, false
}

// Canonical folds a test name through the alias table. Names outside the
// catalog pass through unchanged.
func (c *TestCatalog) Canonical(name string) string {
	if spec, ok := c.Lookup(name); ok {
		return spec.Name
	}
	return strings.TrimSpace(name)
}

// ExpectedMetrics returns the metric rows a test should produce, or nil
// for an unknown test.
func (c *TestCatalog) ExpectedMetrics(test string) []string {
	if spec, ok := c.Lookup(test); ok {
		return spec.Metrics
	}
	return nil
}

// TestsOnPage lists the tests expected on the given 1-based page, in
// declaration order.
func (c *TestCatalog) TestsOnPage(page int) []string {
	return c.pages[page]
}

// SubtestPages returns the 1-based pages that carry tabular subtest data,
// in ascending order.
func (c *TestCatalog) SubtestPages() []int {
	pages := make([]int, 0, len(c.pages))
	for p := range c.pages {
		pages = append(pages, p)
	}
	for i := 1; i < len(pages); i++ {
		for j := i; j > 0 && pages[j] < pages[j-1]; j-- {
			pages[j], pages[j-1] = pages[j-1], pages[j]
		}
	}
	return pages
}

// NormalizeMetric strips the vendor's asterisk flag and surrounding
// whitespace from a metric label.
func NormalizeMetric(metric string) string {
	return strings.TrimSpace(strings.ReplaceAll(metric, "*", ""))
}

// MatchMetric finds the catalog metric a raw first-column cell refers to,
// by exact match after normalization or by substring containment.
func MatchMetric(cell string, metrics []string) (string, bool) {
	cell = NormalizeMetric(cell)
	for _, m := range metrics {
		if cell == m {
			return m, true
		}
	}
	for _, m := range metrics {
		if strings.Contains(cell, m) {
			return m, true
		}
	}
	return "", false
}
