// Package reconcile merges candidate fields from every extraction
// strategy into one resolved metric per (test, metric, sub-part), picking
// the most complete candidate and synthesizing placeholders for expected
// metrics no strategy found.
package reconcile

import (
	"log/slog"

	"github.com/lucidhealth/cnsextract/internal/report"
)

// The vendor suppresses the average incorrect reaction time row when the
// incorrect response count is zero. In that case the companion metric is
// a true zero, not missing data. Hand-curated exception with no general
// rule behind it.
const (
	zeroIncorrectTrigger   = "Incorrect Responses"
	zeroIncorrectCompanion = "Average Incorrect Reaction Time"
)

// Reconciler deduplicates candidates against a test catalog.
type Reconciler struct {
	catalog *report.TestCatalog
	logger  *slog.Logger
}

// New creates a reconciler over the given catalog.
func New(catalog *report.TestCatalog, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{catalog: catalog, logger: logger}
}

// Resolve consumes all candidates for one document and returns the final
// metric set: one entry per key, catalog order, every expected metric
// present either with real values or as a placeholder. invalidTests marks
// tests whose report header carried a validity flag.
func (r *Reconciler) Resolve(candidates []report.CandidateField, invalidTests map[string]bool) []report.ResolvedMetric {
	best := make(map[report.MetricKey]report.CandidateField)
	extraOrder := make([]report.MetricKey, 0)

	for _, c := range candidates {
		c.Test = r.catalog.Canonical(c.Test)
		if _, known := r.catalog.Lookup(c.Test); !known {
			r.logger.Debug("dropping candidate for unknown test", "test", c.Test, "metric", c.Metric)
			continue
		}
		key := c.Key()
		cur, seen := best[key]
		if !seen {
			best[key] = c
			extraOrder = append(extraOrder, key)
			continue
		}
		if betterThan(c, cur) {
			best[key] = c
		}
	}

	resolved := make(map[report.MetricKey]report.ResolvedMetric, len(best))
	for key, c := range best {
		resolved[key] = report.ResolvedMetric{
			Test:       c.Test,
			Metric:     c.Metric,
			SubPart:    c.SubPart,
			Raw:        c.Raw,
			Standard:   c.Standard,
			Percentile: c.Percentile,
			Strategy:   c.Strategy,
			Valid:      !invalidTests[c.Test],
		}
	}

	var out []report.ResolvedMetric
	emitted := make(map[report.MetricKey]bool, len(resolved))

	emit := func(key report.MetricKey) {
		if emitted[key] {
			return
		}
		emitted[key] = true
		if m, ok := resolved[key]; ok {
			out = append(out, m)
			return
		}
		p := report.Placeholder(key.Test, key.Metric, key.SubPart)
		p.Valid = !invalidTests[key.Test]
		out = append(out, p)
	}

	for _, spec := range r.catalog.Tests() {
		subParts := spec.Parts
		if len(subParts) == 0 {
			subParts = []string{""}
		}
		for _, part := range subParts {
			r.applyZeroIncorrect(resolved, spec.Name, part, invalidTests)
			for _, metric := range spec.Metrics {
				emit(report.MetricKey{Test: spec.Name, Metric: metric, SubPart: part})
			}
		}
	}

	// Metrics outside the expected tables still surface, after the
	// catalog-ordered block.
	for _, key := range extraOrder {
		emit(key)
	}

	return out
}

// applyZeroIncorrect fills in the suppressed companion metric with a real
// zero when the trigger metric resolved to zero within the same sub-part.
func (r *Reconciler) applyZeroIncorrect(
	resolved map[report.MetricKey]report.ResolvedMetric, test, part string, invalidTests map[string]bool,
) {
	trigger, ok := resolved[report.MetricKey{Test: test, Metric: zeroIncorrectTrigger, SubPart: part}]
	if !ok || !trigger.Raw.Numeric || trigger.Raw.Num != 0 {
		return
	}
	companionKey := report.MetricKey{Test: test, Metric: zeroIncorrectCompanion, SubPart: part}
	if _, exists := resolved[companionKey]; exists {
		return
	}
	r.logger.Debug("synthesizing suppressed reaction time", "test", test, "part", part)
	resolved[companionKey] = report.ResolvedMetric{
		Test:        test,
		Metric:      zeroIncorrectCompanion,
		SubPart:     part,
		Raw:         report.ParseValue("0"),
		Standard:    report.NA,
		Percentile:  report.NA,
		Placeholder: true,
		Valid:       !invalidTests[test],
	}
}

// betterThan reports whether candidate a should replace the incumbent b.
// Higher completeness wins; ties prefer a present raw score, then
// standard, then percentile; remaining ties keep the incumbent so the
// result is independent of strategy arrival order.
func betterThan(a, b report.CandidateField) bool {
	ca, cb := a.Completeness(), b.Completeness()
	if ca != cb {
		return ca > cb
	}
	prefs := [][2]bool{
		{!a.Raw.IsNA(), !b.Raw.IsNA()},
		{!a.Standard.IsNA(), !b.Standard.IsNA()},
		{!a.Percentile.IsNA(), !b.Percentile.IsNA()},
	}
	for _, p := range prefs {
		if p[0] != p[1] {
			return p[0]
		}
	}
	return false
}
