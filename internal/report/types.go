// Package report defines the typed records produced by the extraction
// engine: patient demographics, per-test metrics, questionnaire responses
// and the diagnostic criteria derived from them.
package report

import (
	"fmt"
	"strconv"
	"strings"
)

// NotApplicable is the sentinel used for score cells the vendor report
// left blank or that no extraction strategy could recover.
const NotApplicable = "-"

// Value holds one score cell. The original token is always preserved;
// numeric conversion is best-effort and never fails the extraction.
type Value struct {
	Text    string
	Num     float64
	Numeric bool
}

// NA is the "not applicable" value.
var NA = Value{Text: NotApplicable}

// ParseValue converts a raw token into a Value. Asterisk suffixes used by
// the vendor to flag derived metrics are stripped before conversion.
// Placeholder tokens ("-", "NA", empty) become the NA sentinel; anything
// else that fails numeric conversion keeps its original text.
func ParseValue(tok string) Value {
	cleaned := strings.TrimSpace(strings.ReplaceAll(tok, "*", ""))
	switch cleaned {
	case "", NotApplicable, "NA":
		return NA
	}
	if n, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return Value{Text: cleaned, Num: n, Numeric: true}
	}
	return Value{Text: cleaned}
}

// IsNA reports whether the value is the "not applicable" sentinel.
func (v Value) IsNA() bool {
	return !v.Numeric && (v.Text == "" || v.Text == NotApplicable || v.Text == "NA")
}

func (v Value) String() string {
	if v.Text == "" {
		return NotApplicable
	}
	return v.Text
}

// Strategy identifies which extraction path produced a candidate.
type Strategy string

const (
	StrategyLines    Strategy = "lines"
	StrategyLattice  Strategy = "lattice"
	StrategyStream   Strategy = "stream"
	StrategyGeometry Strategy = "geometry"
)

// MetricKey is the deduplication key for one logical metric.
type MetricKey struct {
	Test    string
	Metric  string
	SubPart string
}

func (k MetricKey) String() string {
	if k.SubPart == "" {
		return k.Test + "/" + k.Metric
	}
	return k.Test + "/" + k.Metric + " (" + k.SubPart + ")"
}

// CandidateField is one raw extraction attempt for a single metric.
// Candidates are append-only evidence; reconciliation consumes them but
// never mutates them.
type CandidateField struct {
	Test       string
	Metric     string
	SubPart    string
	Raw        Value
	Standard   Value
	Percentile Value
	Strategy   Strategy
	Page       int
}

// Key returns the deduplication key for this candidate.
func (c CandidateField) Key() MetricKey {
	return MetricKey{Test: c.Test, Metric: c.Metric, SubPart: c.SubPart}
}

// Completeness counts the non-NA values among raw, standard and percentile.
func (c CandidateField) Completeness() int {
	n := 0
	for _, v := range []Value{c.Raw, c.Standard, c.Percentile} {
		if !v.IsNA() {
			n++
		}
	}
	return n
}

// ResolvedMetric is the single reconciled record per metric key. A
// placeholder carries NA in every value slot and marks a metric the
// surrounding test structure expected but no strategy found.
type ResolvedMetric struct {
	Test        string
	Metric      string
	SubPart     string
	Raw         Value
	Standard    Value
	Percentile  Value
	Strategy    Strategy
	Placeholder bool
	Valid       bool
}

// Key returns the metric's deduplication key.
func (m ResolvedMetric) Key() MetricKey {
	return MetricKey{Test: m.Test, Metric: m.Metric, SubPart: m.SubPart}
}

// Placeholder builds a synthesized all-NA metric for an expected row no
// strategy produced.
func Placeholder(test, metric, subPart string) ResolvedMetric {
	return ResolvedMetric{
		Test:        test,
		Metric:      metric,
		SubPart:     subPart,
		Raw:         NA,
		Standard:    NA,
		Percentile:  NA,
		Placeholder: true,
		Valid:       true,
	}
}

// DomainScore is one row of the cognitive domain score table.
type DomainScore struct {
	Domain        string
	Patient       Value
	Standard      Value
	Percentile    Value
	ValidityIndex string
}

// PatientInfo identifies the subject of a report. ID is required; a
// document without one cannot be attributed and fails extraction.
type PatientInfo struct {
	ID       string
	TestDate string
	Age      int
	Language string
}

// Degradation records one section that fell back to placeholder, geometry
// estimation or sentinel handling, so a reviewer can audit confidence.
type Degradation struct {
	Section string
	Mode    string
	Detail  string
}

func (d Degradation) String() string {
	return fmt.Sprintf("%s: %s (%s)", d.Section, d.Mode, d.Detail)
}

// Bundle is the complete structured result for one document, handed to the
// storage collaborator as a unit.
type Bundle struct {
	Patient      PatientInfo
	DomainScores []DomainScore
	Metrics      []ResolvedMetric
	ASRS         []QuestionnaireResponse
	Criteria     []Criterion
	Diagnosis    Diagnosis
	NPQDomains   []NPQDomainScore
	NPQResponses []NPQResponse
	Epworth      []EpworthResponse
	EpworthTotal *EpworthSummary
	Degradations []Degradation
}
