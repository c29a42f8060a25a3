package report

// ResponseCategory is the ordered ASRS response scale. Ordering is
// significant: threshold checks in the criteria mapper compare categories
// by severity.
type ResponseCategory int

const (
	// ResponseUnknown marks a question with no readable mark on the page.
	ResponseUnknown ResponseCategory = iota - 1
	ResponseNever
	ResponseRarely
	ResponseSometimes
	ResponseOften
	ResponseVeryOften
)

var responseNames = map[ResponseCategory]string{
	ResponseUnknown:   "Unknown",
	ResponseNever:     "Never",
	ResponseRarely:    "Rarely",
	ResponseSometimes: "Sometimes",
	ResponseOften:     "Often",
	ResponseVeryOften: "Very Often",
}

func (r ResponseCategory) String() string {
	if name, ok := responseNames[r]; ok {
		return name
	}
	return "Unknown"
}

// Known reports whether the category is a real response rather than the
// Unknown sentinel.
func (r ResponseCategory) Known() bool {
	return r >= ResponseNever && r <= ResponseVeryOften
}

// ParseResponse maps a response label back to its category. Unrecognized
// labels map to ResponseUnknown, never to an error.
func ParseResponse(label string) ResponseCategory {
	for cat, name := range responseNames {
		if name == label {
			return cat
		}
	}
	return ResponseUnknown
}

// QuestionnaireResponse is one answered ASRS question.
type QuestionnaireResponse struct {
	Question int
	Part     string
	Category ResponseCategory
}

// ASRSPart returns the questionnaire part for a question number: questions
// 1-6 belong to Part A, 7-18 to Part B.
func ASRSPart(question int) string {
	switch {
	case question >= 1 && question <= 6:
		return "A"
	case question >= 7 && question <= 18:
		return "B"
	default:
		return ""
	}
}

// Criterion is a boolean diagnostic indicator derived from one
// questionnaire response via the static threshold table.
type Criterion struct {
	ID       string
	Category string
	Question int
	Met      bool
}

// Classification labels for the combined criterion-group outcome.
const (
	DiagnosisCombined    = "Combined Presentation"
	DiagnosisInattentive = "Predominantly Inattentive Presentation"
	DiagnosisHyperactive = "Predominantly Hyperactive-Impulsive Presentation"
	DiagnosisNone        = "No ADHD Diagnosis Made"
)

// Diagnosis summarizes how many criteria each group met and the resulting
// classification.
type Diagnosis struct {
	InattentiveMet int
	HyperactiveMet int
	Classification string
}

// NPQDomainScore is one row of the NPQ domain summary table.
type NPQDomainScore struct {
	Domain   string
	Score    int
	Severity string
}

// NPQResponse is one answered NPQ question within a domain block.
type NPQResponse struct {
	Domain   string
	Question int
	Text     string
	Score    int
	Severity string
}

// EpworthResponse is one answered Epworth Sleepiness Scale situation.
type EpworthResponse struct {
	Question    int
	Situation   string
	Score       int
	Description string
}

// EpworthSummary carries the scale total and its interpretation band.
type EpworthSummary struct {
	Total          int
	Interpretation string
}

// EpworthInterpretation maps a total score to the standard banding.
func EpworthInterpretation(total int) string {
	switch {
	case total <= 5:
		return "Lower Normal Daytime Sleepiness"
	case total <= 10:
		return "Higher Normal Daytime Sleepiness"
	case total <= 15:
		return "Mild Excessive Daytime Sleepiness"
	case total <= 17:
		return "Moderate Excessive Daytime Sleepiness"
	default:
		return "Severe Excessive Daytime Sleepiness"
	}
}
