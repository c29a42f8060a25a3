// Package extract orchestrates the full document pipeline: read the PDF,
// locate sections, run the line parser with the table fallback behind it,
// decode the questionnaires, and reconcile everything into one bundle.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/lucidhealth/cnsextract/internal/checkbox"
	"github.com/lucidhealth/cnsextract/internal/criteria"
	"github.com/lucidhealth/cnsextract/internal/epworth"
	"github.com/lucidhealth/cnsextract/internal/lineparser"
	"github.com/lucidhealth/cnsextract/internal/npq"
	"github.com/lucidhealth/cnsextract/internal/pdfdoc"
	"github.com/lucidhealth/cnsextract/internal/reconcile"
	"github.com/lucidhealth/cnsextract/internal/report"
	"github.com/lucidhealth/cnsextract/internal/section"
	"github.com/lucidhealth/cnsextract/internal/tables"
)

// Service runs the extraction pipeline over single documents. Construct
// it once and share it; all collaborators are stateless across calls.
type Service struct {
	reader     *pdfdoc.Reader
	validator  *pdfdoc.Validator
	catalog    *report.TestCatalog
	locator    *section.Locator
	lines      *lineparser.Parser
	tables     *tables.Extractor
	boxes      *checkbox.Locator
	criteria   *criteria.Mapper
	npq        *npq.Parser
	epworth    *epworth.Parser
	reconciler *reconcile.Reconciler
	logger     *slog.Logger
}

// Options configures a Service.
type Options struct {
	// MaxFileSize caps the PDF size in bytes; zero uses the reader default.
	MaxFileSize int64
	// RecordedResponses backs the ASRS static-table fallback when a scan
	// carries no readable marks. Nil uses checkbox.DefaultRecorded.
	RecordedResponses map[int]report.ResponseCategory
	Logger            *slog.Logger
}

// NewService wires the pipeline with the default test catalog.
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	recorded := opts.RecordedResponses
	if recorded == nil {
		recorded = checkbox.DefaultRecorded()
	}
	catalog := report.DefaultCatalog()

	names := make([]string, 0, len(catalog.Tests()))
	for _, spec := range catalog.Tests() {
		names = append(names, spec.Name)
	}

	return &Service{
		reader:     pdfdoc.NewReader(opts.MaxFileSize),
		validator:  pdfdoc.NewValidator(opts.MaxFileSize),
		catalog:    catalog,
		locator:    section.NewLocator(names),
		lines:      lineparser.New(catalog, logger),
		tables:     tables.NewExtractor(catalog, logger),
		boxes:      checkbox.New(logger, recorded),
		criteria:   criteria.New(logger),
		npq:        npq.New(logger),
		epworth:    epworth.New(logger),
		reconciler: reconcile.New(catalog, logger),
		logger:     logger,
	}
}

// ExtractFile runs the whole pipeline over one document. A document the
// pipeline cannot attribute to a patient fails with an error; every other
// missing section degrades and is recorded in the bundle.
func (s *Service) ExtractFile(ctx context.Context, path string) (*report.Bundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.validator.ValidateFile(path); err != nil {
		return nil, fmt.Errorf("validating %s: %w", path, err)
	}

	doc, err := s.reader.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return s.ExtractDocument(ctx, doc)
}

// ExtractDocument runs the pipeline over an already-parsed document.
func (s *Service) ExtractDocument(ctx context.Context, doc *pdfdoc.Document) (*report.Bundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text := doc.Text()
	info, err := s.lines.ParsePatientInfo(text)
	if err != nil {
		var fatal *lineparser.FatalError
		if errors.As(err, &fatal) {
			return nil, fmt.Errorf("document cannot be attributed: %w", err)
		}
		return nil, err
	}

	bundle := &report.Bundle{Patient: info}
	sections := s.locator.Locate(doc)

	s.extractDomainScores(text, bundle)
	s.extractSubtests(sections, bundle)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.extractASRS(sections, bundle)
	s.extractNPQ(sections, bundle)
	s.extractEpworth(sections, bundle)

	s.logger.Info("document extracted",
		"patient", info.ID,
		"metrics", len(bundle.Metrics),
		"degradations", len(bundle.Degradations))
	return bundle, nil
}

func (s *Service) extractDomainScores(text string, bundle *report.Bundle) {
	block, ok := section.DomainScoreBlock(text)
	if !ok {
		s.degrade(bundle, "domain_scores", "missing", "domain score block markers not found")
		return
	}
	bundle.DomainScores = s.lines.ParseDomainScores(block)
	if len(bundle.DomainScores) == 0 {
		s.degrade(bundle, "domain_scores", "empty", "block present but no rows matched")
	}
}

// extractSubtests runs the line parser over every subtest page, then asks
// the table strategies for any test the line parser produced nothing for.
func (s *Service) extractSubtests(sections section.Map, bundle *report.Bundle) {
	var candidates []report.CandidateField
	invalid := make(map[string]bool)
	covered := make(map[string]bool)

	for _, page := range sections[section.KindSubtests] {
		result := s.lines.ParseSection(page.Lines(), page.Number)
		candidates = append(candidates, result.Fields...)
		for test := range result.InvalidTests {
			invalid[test] = true
		}
		for _, f := range result.Fields {
			covered[s.catalog.Canonical(f.Test)] = true
		}
	}

	for _, page := range sections[section.KindSubtests] {
		missing := s.missingTests(page.Number, covered)
		if len(missing) == 0 {
			continue
		}
		fields := s.tables.ExtractPage(page, missing)
		if len(fields) == 0 {
			continue
		}
		candidates = append(candidates, fields...)
		recovered := make(map[string]bool)
		for _, f := range fields {
			covered[f.Test] = true
			recovered[f.Test] = true
		}
		s.degrade(bundle, "subtests", "table_fallback",
			fmt.Sprintf("page %d recovered %s via table extraction", page.Number, joinKeys(recovered)))
	}

	bundle.Metrics = s.reconciler.Resolve(candidates, invalid)
	if len(sections[section.KindSubtests]) == 0 {
		s.degrade(bundle, "subtests", "missing", "no pages carried subtest headers")
	}
}

// missingTests lists the tests expected on a page that no extractor has
// produced a candidate for yet.
func (s *Service) missingTests(page int, covered map[string]bool) []string {
	var missing []string
	for _, test := range s.catalog.TestsOnPage(page) {
		if !covered[test] {
			missing = append(missing, test)
		}
	}
	return missing
}

func (s *Service) extractASRS(sections section.Map, bundle *report.Bundle) {
	page := sections.First(section.KindASRS)
	if page == nil {
		s.degrade(bundle, "asrs", "missing", "no page carried the ASRS header")
		return
	}
	result := s.boxes.Extract(page)
	bundle.ASRS = result.Responses
	for _, mode := range result.Degraded {
		s.degrade(bundle, "asrs", string(mode), fmt.Sprintf("page %d", page.Number))
	}
	bundle.Criteria, bundle.Diagnosis = s.criteria.Evaluate(result.Responses)
}

func (s *Service) extractNPQ(sections section.Map, bundle *report.Bundle) {
	pages := sections[section.KindNPQ]
	if len(pages) == 0 {
		s.degrade(bundle, "npq", "missing", "no page carried the questionnaire markers")
		return
	}
	var b strings.Builder
	for _, page := range pages {
		b.WriteString(page.Text)
		b.WriteString("\n")
	}
	text := b.String()

	bundle.NPQDomains = s.npq.ParseDomainScores(text)
	bundle.NPQResponses = s.npq.ParseQuestions(text)
	if len(bundle.NPQDomains) == 0 && len(bundle.NPQResponses) == 0 {
		s.degrade(bundle, "npq", "empty", "section pages present but nothing matched")
	}
}

func (s *Service) extractEpworth(sections section.Map, bundle *report.Bundle) {
	page := sections.First(section.KindEpworth)
	if page == nil {
		s.degrade(bundle, "epworth", "missing", "no page carried the scale header")
		return
	}
	bundle.Epworth, bundle.EpworthTotal = s.epworth.Parse(page.Text)
	if bundle.EpworthTotal == nil && len(bundle.Epworth) > 0 {
		s.degrade(bundle, "epworth", "no_total", fmt.Sprintf("page %d has items but no printed total", page.Number))
	}
}

func (s *Service) degrade(bundle *report.Bundle, sectionName, mode, detail string) {
	s.logger.Warn("section degraded", "section", sectionName, "mode", mode, "detail", detail)
	bundle.Degradations = append(bundle.Degradations, report.Degradation{
		Section: sectionName,
		Mode:    mode,
		Detail:  detail,
	})
}

func joinKeys(set map[string]bool) string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}
