// Package lineparser converts the text of score and subtest sections into
// candidate metric fields using a line-oriented state machine. It is the
// primary extraction strategy; the table fallback only runs for pages
// where this parser finds nothing.
package lineparser

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/lucidhealth/cnsextract/internal/report"
)

// state of the row scanner. The machine never re-enters a previous
// test's row set once it has left.
type state int

const (
	stateSeekingTest state = iota
	stateParsingRows
)

const valueToken = `-?\d+(?:\.\d+)?\*?|-|NA`

var (
	// A test header is free text ending in "Test (ABBR)" or "Index (ABBR)",
	// possibly with column headers or a validity flag appended by the text
	// extractor.
	testHeaderPattern = regexp.MustCompile(
		`^(.*?(?:Test|Index)\s*\([A-Z]{2,5}\))(?:\s*Score\s+Standard\s+Percentile)?(?:\s*(?:Possibly Invalid|Invalid))?$`)

	dataRowPattern = regexp.MustCompile(
		`^([^0-9\n]{3,}?)\s+(` + valueToken + `)\s+(` + valueToken + `)\s+(` + valueToken + `)\s*$`)

	// Same shape but with prose glued onto the last value, which happens
	// when the extractor joins the final table row with the narrative text
	// below it. Such a row ends the tabular region.
	mixedRowPattern = regexp.MustCompile(
		`^([^0-9\n]{3,}?)\s+(` + valueToken + `)\s+(` + valueToken + `)\s+(` + valueToken + `)\s*([A-Za-z].*)$`)

	subPartPattern = regexp.MustCompile(`^Part\s+\d+$`)

	prosePattern = regexp.MustCompile(`^(?:The\s+)?[A-Za-z]+\s+(?:test|memory|measures|is a)`)

	validityPattern = regexp.MustCompile(`Possibly Invalid|Invalid`)
)

// Patient demographics as printed in the report banner.
var (
	patientIDPattern = regexp.MustCompile(`Patient ID:\s*(\d+)`)
	testDatePattern  = regexp.MustCompile(`Test Date:\s*([\w:/\\-]+)`)
	agePattern       = regexp.MustCompile(`Age:\s*(\d+)`)
	languagePattern  = regexp.MustCompile(`Language:\s*(\S[^\n]*)`)
)

// Domain score rows carry domain, patient score, standard score,
// percentile, and a Yes/No validity column.
var domainRowPattern = regexp.MustCompile(
	`(?m)^(.*?)\s+(?:NA\s+)?(\d+|NA)\s+(\d+)\s+(\d+)\s+(Yes|No)\s*X?$`)

// FatalError reports that no record of the document can be attributed to
// a patient. It is the only non-recoverable extraction failure.
type FatalError struct {
	Reason string
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("document unusable: %s", e.Reason)
}

// Result is everything one parsing pass produced from a section.
type Result struct {
	Fields []report.CandidateField
	// InvalidTests marks tests whose header carried a validity flag.
	InvalidTests map[string]bool
}

// Parser walks section text line by line.
type Parser struct {
	catalog *report.TestCatalog
	logger  *slog.Logger
}

// New creates a parser over the given test catalog.
func New(catalog *report.TestCatalog, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{catalog: catalog, logger: logger}
}

// ParsePatientInfo extracts the demographics banner from document text.
// A missing patient identifier is fatal; missing date, age, or language
// only degrade the record.
func (p *Parser) ParsePatientInfo(text string) (report.PatientInfo, error) {
	var info report.PatientInfo

	m := patientIDPattern.FindStringSubmatch(text)
	if m == nil {
		return info, &FatalError{Reason: "no patient identifier found in document"}
	}
	info.ID = m[1]

	if m := testDatePattern.FindStringSubmatch(text); m != nil {
		info.TestDate = strings.TrimSpace(m[1])
	}
	if m := agePattern.FindStringSubmatch(text); m != nil {
		info.Age = atoiOrZero(m[1])
	}
	if m := languagePattern.FindStringSubmatch(text); m != nil {
		info.Language = strings.TrimSpace(m[1])
	}

	return info, nil
}

// ParseSection runs the state machine over the section's lines. page is
// the 1-based page number recorded on each emitted field.
func (p *Parser) ParseSection(lines []string, page int) Result {
	res := Result{InvalidTests: make(map[string]bool)}

	st := stateSeekingTest
	currentTest := ""
	currentPart := ""
	inDomainScores := false

	emit := func(label, raw, standard, percentile string) {
		label = report.NormalizeMetric(label)
		if skip := strings.ToLower(label); skip == "score" || skip == "standard" || skip == "percentile" {
			return
		}
		res.Fields = append(res.Fields, report.CandidateField{
			Test:       currentTest,
			Metric:     label,
			SubPart:    currentPart,
			Raw:        report.ParseValue(raw),
			Standard:   report.ParseValue(standard),
			Percentile: report.ParseValue(percentile),
			Strategy:   report.StrategyLines,
			Page:       page,
		})
	}

	for _, line := range lines {
		line = strings.TrimSpace(strings.ReplaceAll(line, "\u00a0", " "))
		if line == "" {
			continue
		}

		// The domain score table sits between the subtest blocks on page
		// one and would otherwise satisfy the row pattern.
		if strings.HasPrefix(line, "Domain ScoresPatient") {
			inDomainScores = true
			continue
		}
		if inDomainScores {
			if strings.HasPrefix(line, "VI** - Validity Indicator:") {
				inDomainScores = false
			}
			continue
		}

		// The SDC header sometimes prints without the word "Test" and so
		// escapes the header pattern.
		if strings.Contains(line, "Symbol Digit Coding") && strings.Contains(line, "(SDC)") {
			currentTest = report.TestSymbolDigit
			currentPart = ""
			st = stateParsingRows
			if validityPattern.MatchString(line) {
				res.InvalidTests[currentTest] = true
			}
			continue
		}

		if m := testHeaderPattern.FindStringSubmatch(line); m != nil {
			// Unknown headers still open a row block so their rows do not
			// leak into the previous test; reconciliation drops them later.
			currentTest = p.catalog.Canonical(m[1])
			currentPart = ""
			st = stateParsingRows
			if validityPattern.MatchString(line) {
				res.InvalidTests[currentTest] = true
				p.logger.Debug("test flagged invalid", "test", currentTest, "page", page)
			}
			continue
		}

		if st != stateParsingRows {
			continue
		}

		if subPartPattern.MatchString(line) && p.testHasParts(currentTest) {
			currentPart = line
			continue
		}

		if m := mixedRowPattern.FindStringSubmatch(line); m != nil {
			emit(m[1], m[2], m[3], m[4])
			st = stateSeekingTest
			currentTest = ""
			currentPart = ""
			continue
		}

		if prosePattern.MatchString(line) {
			st = stateSeekingTest
			currentTest = ""
			currentPart = ""
			continue
		}

		if m := dataRowPattern.FindStringSubmatch(line); m != nil {
			emit(m[1], m[2], m[3], m[4])
		}
	}

	return res
}

// ParseDomainScores extracts the domain score table from its text block.
func (p *Parser) ParseDomainScores(block string) []report.DomainScore {
	var scores []report.DomainScore
	for _, m := range domainRowPattern.FindAllStringSubmatch(block, -1) {
		domain := strings.TrimSpace(m[1])
		if domain == "" || strings.HasPrefix(domain, "Domain") {
			continue
		}
		scores = append(scores, report.DomainScore{
			Domain:        domain,
			Patient:       report.ParseValue(m[2]),
			Standard:      report.ParseValue(m[3]),
			Percentile:    report.ParseValue(m[4]),
			ValidityIndex: m[5],
		})
	}
	return scores
}

func (p *Parser) testHasParts(test string) bool {
	spec, ok := p.catalog.Lookup(test)
	return ok && spec.HasParts()
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
