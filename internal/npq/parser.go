// Package npq parses the NeuroPsych Questionnaire section: a per-domain
// severity table followed by per-domain question blocks.
package npq

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/lucidhealth/cnsextract/internal/report"
)

// The questions run after the clinical-examination disclaimer; the
// domain table sits under its own column header.
const (
	questionsMarker    = "clinical examination."
	domainTableMarker  = "Domain Score Severity"
	questionHeaderTail = " Questions"
)

// Domains in report order. Question section headers print as
// "<Domain> Questions".
var domains = []string{
	"Attention", "Impulsive", "Learning", "Memory", "Fatigue", "Sleep",
	"Anxiety", "Panic", "Agoraphobia", "Obsessions & Compulsions",
	"Social Anxiety", "PTSD", "Depression", "Bipolar", "Mood Stability",
	"Mania", "Aggression", "Autism", "Asperger's", "Psychotic", "Somatic",
	"Suicide", "Pain", "Substance Abuse", "MCI", "Concussion", "ADHD",
}

var severityLevels = []string{"Severe", "Moderate", "Mild", "Not a problem"}

var (
	inlineQuestionPattern = regexp.MustCompile(`^(\d{1,2})\s+(.*?)\s+(\d)\s*-\s+(.*)$`)
	answerPattern         = regexp.MustCompile(`^(\d)\s*-\s*(.+)$`)
	numberOnlyPattern     = regexp.MustCompile(`^\d{1,2}$`)
	inlineDomainPattern   = regexp.MustCompile(`^(.+?)\s+(\d+)\s+(.+)$`)
)

// Parser extracts NPQ domain scores and question responses.
type Parser struct {
	logger *slog.Logger
}

// New creates an NPQ parser.
func New(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// ParseDomainScores reads the severity table. Both layouts occur in the
// wild: domain, score, and severity on one line, or spread over three
// consecutive lines.
func (p *Parser) ParseDomainScores(text string) []report.NPQDomainScore {
	if idx := strings.Index(text, domainTableMarker); idx >= 0 {
		text = text[idx+len(domainTableMarker):]
	}
	lines := splitLines(text)

	var scores []report.NPQDomainScore
	seen := make(map[string]bool)

	add := func(domain string, score int, severity string) {
		if seen[domain] {
			return
		}
		seen[domain] = true
		scores = append(scores, report.NPQDomainScore{Domain: domain, Score: score, Severity: severity})
	}

	for i, line := range lines {
		domain, ok := matchDomain(line)
		if !ok {
			continue
		}

		if m := inlineDomainPattern.FindStringSubmatch(line); m != nil && strings.TrimSpace(m[1]) == domain {
			if sev, ok := matchSeverity(m[3]); ok {
				add(domain, atoi(m[2]), sev)
				continue
			}
		}

		// Three-line layout: score then severity under the domain name.
		if line == domain && i+2 < len(lines) {
			if !numberOnlyPattern.MatchString(lines[i+1]) {
				continue
			}
			if sev, ok := matchSeverity(lines[i+2]); ok {
				add(domain, atoi(lines[i+1]), sev)
			}
		}
	}
	return scores
}

// ParseQuestions reads the per-domain question blocks. Questions appear
// either inline ("12 Difficulty concentrating 3 - A moderate problem")
// or as a number line, text line, and "score - severity" line.
func (p *Parser) ParseQuestions(text string) []report.NPQResponse {
	if idx := strings.Index(text, questionsMarker); idx >= 0 {
		text = text[idx+len(questionsMarker):]
	}
	lines := splitLines(text)

	var out []report.NPQResponse
	currentDomain := ""

	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if domain, ok := matchQuestionHeader(line); ok {
			currentDomain = domain
			continue
		}

		if m := inlineQuestionPattern.FindStringSubmatch(line); m != nil {
			out = append(out, report.NPQResponse{
				Domain:   domainOrUnspecified(currentDomain),
				Question: atoi(m[1]),
				Text:     strings.TrimSpace(m[2]),
				Score:    atoi(m[3]),
				Severity: strings.TrimSpace(m[4]),
			})
			continue
		}

		if numberOnlyPattern.MatchString(line) && i+2 < len(lines) {
			if m := answerPattern.FindStringSubmatch(lines[i+2]); m != nil {
				out = append(out, report.NPQResponse{
					Domain:   domainOrUnspecified(currentDomain),
					Question: atoi(line),
					Text:     lines[i+1],
					Score:    atoi(m[1]),
					Severity: strings.TrimSpace(m[2]),
				})
				i += 2
			}
		}
	}

	if len(out) == 0 {
		p.logger.Debug("no NPQ questions found in section")
	}
	return out
}

func matchQuestionHeader(line string) (string, bool) {
	if !strings.HasSuffix(line, questionHeaderTail) {
		return "", false
	}
	name := strings.TrimSuffix(line, questionHeaderTail)
	for _, d := range domains {
		if name == d {
			return d, true
		}
	}
	return "", false
}

func matchDomain(line string) (string, bool) {
	for _, d := range domains {
		if line == d || strings.HasPrefix(line, d+" ") {
			return d, true
		}
	}
	return "", false
}

func matchSeverity(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, level := range severityLevels {
		if strings.HasPrefix(s, level) {
			return s, true
		}
	}
	return "", false
}

func domainOrUnspecified(domain string) string {
	if domain == "" {
		return "Unspecified"
	}
	return domain
}

func splitLines(text string) []string {
	raw := strings.Split(text, "\n")
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
