// Package epworth parses the Epworth Sleepiness Scale section: eight
// rated situations and a printed total.
package epworth

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/lucidhealth/cnsextract/internal/report"
)

// The scale always has eight situations.
const scaleItems = 8

var (
	totalPattern = regexp.MustCompile(`Epworth Score\s*=\s*(\d+)`)
	itemPattern  = regexp.MustCompile(`(?m)^\s*([1-8])\s+(.+?)\s+(\d)\s*-\s*(.+)$`)
)

// Parser extracts Epworth responses and the scale total.
type Parser struct {
	logger *slog.Logger
}

// New creates an Epworth parser.
func New(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// Parse reads the section text. The summary is nil when no printed
// total is present; responses alone are not summed because a partially
// rendered section would understate the score.
func (p *Parser) Parse(text string) ([]report.EpworthResponse, *report.EpworthSummary) {
	var responses []report.EpworthResponse
	seen := make(map[int]bool)
	for _, m := range itemPattern.FindAllStringSubmatch(text, -1) {
		question := atoi(m[1])
		if seen[question] {
			continue
		}
		seen[question] = true
		responses = append(responses, report.EpworthResponse{
			Question:    question,
			Situation:   strings.TrimSpace(m[2]),
			Score:       atoi(m[3]),
			Description: strings.TrimSpace(m[4]),
		})
	}

	var summary *report.EpworthSummary
	if m := totalPattern.FindStringSubmatch(text); m != nil {
		total := atoi(m[1])
		summary = &report.EpworthSummary{
			Total:          total,
			Interpretation: report.EpworthInterpretation(total),
		}
		// Cross-check the printed total against a full item set.
		if len(responses) == scaleItems {
			sum := 0
			for _, r := range responses {
				sum += r.Score
			}
			if sum != total {
				p.logger.Warn("epworth total disagrees with item sum", "printed", total, "sum", sum)
			}
		}
	} else if len(responses) > 0 {
		p.logger.Warn("epworth items present without a printed total", "items", len(responses))
	}
	return responses, summary
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
