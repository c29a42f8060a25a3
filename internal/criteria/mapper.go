// Package criteria derives diagnostic criterion states from
// questionnaire responses using the static DSM-5 to ASRS mapping and
// per-question severity thresholds.
package criteria

import (
	"log/slog"

	"github.com/lucidhealth/cnsextract/internal/report"
)

// Criterion groups.
const (
	CategoryInattention   = "Inattention"
	CategoryHyperactivity = "Hyperactivity/Impulsivity"
)

// entry binds one criterion to the question that evidences it.
type entry struct {
	ID       string
	Category string
	Question int
}

// Mapping is ordered: A1-A9 then B1-B9. The question numbers interleave
// because the questionnaire does not present criteria in DSM order.
var Mapping = []entry{
	{"A1", CategoryInattention, 7},
	{"A2", CategoryInattention, 8},
	{"A3", CategoryInattention, 9},
	{"A4", CategoryInattention, 1},
	{"A5", CategoryInattention, 2},
	{"A6", CategoryInattention, 4},
	{"A7", CategoryInattention, 10},
	{"A8", CategoryInattention, 11},
	{"A9", CategoryInattention, 3},
	{"B1", CategoryHyperactivity, 5},
	{"B2", CategoryHyperactivity, 12},
	{"B3", CategoryHyperactivity, 13},
	{"B4", CategoryHyperactivity, 14},
	{"B5", CategoryHyperactivity, 6},
	{"B6", CategoryHyperactivity, 15},
	{"B7", CategoryHyperactivity, 16},
	{"B8", CategoryHyperactivity, 17},
	{"B9", CategoryHyperactivity, 18},
}

// Questions met at "Sometimes" rather than the usual "Often" threshold.
// Hand-curated by the instrument authors; there is no general rule
// behind the membership.
var lowerThresholdQuestions = map[int]bool{
	1: true, 2: true, 3: true, 9: true, 12: true, 16: true, 18: true,
}

// A category needs at least this many of its nine criteria met.
const groupThreshold = 5

// Mapper evaluates responses against the static mapping.
type Mapper struct {
	logger *slog.Logger
}

// New creates a mapper.
func New(logger *slog.Logger) *Mapper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mapper{logger: logger}
}

// Met reports whether one response satisfies its question's criterion.
// Unknown responses never satisfy anything.
func Met(category report.ResponseCategory, question int) bool {
	if !category.Known() {
		return false
	}
	if lowerThresholdQuestions[question] {
		return category >= report.ResponseSometimes
	}
	return category >= report.ResponseOften
}

// Evaluate maps the full response set to criterion states and the
// resulting classification. Questions never answered count as not met.
func (m *Mapper) Evaluate(responses []report.QuestionnaireResponse) ([]report.Criterion, report.Diagnosis) {
	byQuestion := make(map[int]report.ResponseCategory, len(responses))
	for _, r := range responses {
		byQuestion[r.Question] = r.Category
	}

	criteria := make([]report.Criterion, 0, len(Mapping))
	var diag report.Diagnosis

	for _, e := range Mapping {
		cat, answered := byQuestion[e.Question]
		if !answered {
			cat = report.ResponseUnknown
			m.logger.Debug("criterion question unanswered", "criterion", e.ID, "question", e.Question)
		}
		met := Met(cat, e.Question)
		criteria = append(criteria, report.Criterion{
			ID:       e.ID,
			Category: e.Category,
			Question: e.Question,
			Met:      met,
		})
		if met {
			switch e.Category {
			case CategoryInattention:
				diag.InattentiveMet++
			case CategoryHyperactivity:
				diag.HyperactiveMet++
			}
		}
	}

	switch {
	case diag.InattentiveMet >= groupThreshold && diag.HyperactiveMet >= groupThreshold:
		diag.Classification = report.DiagnosisCombined
	case diag.InattentiveMet >= groupThreshold:
		diag.Classification = report.DiagnosisInattentive
	case diag.HyperactiveMet >= groupThreshold:
		diag.Classification = report.DiagnosisHyperactive
	default:
		diag.Classification = report.DiagnosisNone
	}

	return criteria, diag
}
