// Package section finds the report sections inside a parsed document by
// their vendor marker strings, so each extractor only sees the pages it
// understands.
package section

import (
	"strings"

	"github.com/lucidhealth/cnsextract/internal/pdfdoc"
)

// Kind identifies a report section.
type Kind string

const (
	KindDomainScores Kind = "domain_scores"
	KindSubtests     Kind = "subtests"
	KindASRS         Kind = "asrs"
	KindNPQ          Kind = "npq"
	KindEpworth      Kind = "epworth"
)

// Marker strings printed by the report generator. The domain score block
// runs to the validity indicator legend; the rest identify whole pages.
const (
	markerDomainScoresStart = "Domain ScoresPatient"
	markerDomainScoresEnd   = "VI** - Validity Indicator:"
	markerASRS              = "Adult ADHD Self-Report Scale (ASRS-v1.1)"
	markerNPQ               = "NeuroPsych Questionnaire"
	markerNPQDomains        = "Domain Score Severity"
	markerEpworth           = "Epworth Sleepiness Scale"
)

// Map lists the pages carrying each section, in document order.
type Map map[Kind][]*pdfdoc.Page

// Has reports whether at least one page carries the section.
func (m Map) Has(kind Kind) bool {
	return len(m[kind]) > 0
}

// First returns the first page of the section, or nil.
func (m Map) First(kind Kind) *pdfdoc.Page {
	if pages := m[kind]; len(pages) > 0 {
		return pages[0]
	}
	return nil
}

// Locator classifies document pages into sections.
type Locator struct {
	testNames []string
}

// NewLocator creates a locator. testNames are the cognitive test headers
// whose presence marks a page as carrying subtest tables.
func NewLocator(testNames []string) *Locator {
	return &Locator{testNames: testNames}
}

// Locate scans every page once and assigns it to each section whose
// marker it carries. A page can belong to several sections.
func (l *Locator) Locate(doc *pdfdoc.Document) Map {
	m := make(Map)
	for i := range doc.Pages {
		page := &doc.Pages[i]

		if page.Contains(markerDomainScoresStart) {
			m[KindDomainScores] = append(m[KindDomainScores], page)
		}
		if page.Contains(markerASRS) {
			m[KindASRS] = append(m[KindASRS], page)
		}
		if page.Contains(markerNPQ) || page.Contains(markerNPQDomains) {
			m[KindNPQ] = append(m[KindNPQ], page)
		}
		if page.Contains(markerEpworth) {
			m[KindEpworth] = append(m[KindEpworth], page)
		}
		if l.hasSubtestHeader(page) {
			m[KindSubtests] = append(m[KindSubtests], page)
		}
	}
	return m
}

func (l *Locator) hasSubtestHeader(page *pdfdoc.Page) bool {
	for _, name := range l.testNames {
		if page.Contains(name) {
			return true
		}
	}
	return false
}

// DomainScoreBlock cuts the domain score table out of the page text. The
// block starts after the column header run and ends at the validity
// indicator legend; ok is false when either marker is missing.
func DomainScoreBlock(text string) (string, bool) {
	start := strings.Index(text, markerDomainScoresStart)
	if start < 0 {
		return "", false
	}
	block := text[start+len(markerDomainScoresStart):]

	end := strings.Index(block, markerDomainScoresEnd)
	if end < 0 {
		return "", false
	}
	return block[:end], true
}
