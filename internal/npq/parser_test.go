package npq

import (
	"testing"

	"github.com/lucidhealth/cnsextract/internal/report"
)

func TestParseDomainScoresInline(t *testing.T) {
	text := `NeuroPsych Questionnaire
Domain Score Severity
Attention 55 Severe
Memory 12 Mild
Sleep 0 Not a problem
Depression 31 Moderate`

	p := New(nil)
	got := p.ParseDomainScores(text)

	want := []report.NPQDomainScore{
		{Domain: "Attention", Score: 55, Severity: "Severe"},
		{Domain: "Memory", Score: 12, Severity: "Mild"},
		{Domain: "Sleep", Score: 0, Severity: "Not a problem"},
		{Domain: "Depression", Score: 31, Severity: "Moderate"},
	}
	if len(got) != len(want) {
		t.Fatalf("ParseDomainScores returned %d scores, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("score %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestParseDomainScoresThreeLineLayout(t *testing.T) {
	text := `Domain Score Severity
Anxiety
42
Moderate
Pain
3
Not a problem`

	p := New(nil)
	got := p.ParseDomainScores(text)

	if len(got) != 2 {
		t.Fatalf("ParseDomainScores returned %d scores, want 2", len(got))
	}
	if got[0] != (report.NPQDomainScore{Domain: "Anxiety", Score: 42, Severity: "Moderate"}) {
		t.Errorf("unexpected first score %+v", got[0])
	}
	if got[1] != (report.NPQDomainScore{Domain: "Pain", Score: 3, Severity: "Not a problem"}) {
		t.Errorf("unexpected second score %+v", got[1])
	}
}

func TestParseDomainScoresIgnoresUnknownSeverity(t *testing.T) {
	text := `Domain Score Severity
Attention 55 Elevated
Memory 12 Mild`

	got := New(nil).ParseDomainScores(text)
	if len(got) != 1 || got[0].Domain != "Memory" {
		t.Fatalf("ParseDomainScores = %+v, want only Memory", got)
	}
}

func TestParseDomainScoresDedupes(t *testing.T) {
	text := `Domain Score Severity
Attention 55 Severe
Attention 55 Severe`

	got := New(nil).ParseDomainScores(text)
	if len(got) != 1 {
		t.Fatalf("ParseDomainScores returned %d scores, want 1", len(got))
	}
}

func TestParseQuestionsInline(t *testing.T) {
	text := `These results should be reviewed as part of a clinical examination.
Attention Questions
1 Difficulty paying attention 3 - A moderate problem
12 Easily distracted by noise 1 - A mild problem
Memory Questions
5 Forgetting names 2 - A mild problem`

	got := New(nil).ParseQuestions(text)

	want := []report.NPQResponse{
		{Domain: "Attention", Question: 1, Text: "Difficulty paying attention", Score: 3, Severity: "A moderate problem"},
		{Domain: "Attention", Question: 12, Text: "Easily distracted by noise", Score: 1, Severity: "A mild problem"},
		{Domain: "Memory", Question: 5, Text: "Forgetting names", Score: 2, Severity: "A mild problem"},
	}
	if len(got) != len(want) {
		t.Fatalf("ParseQuestions returned %d responses, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("response %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestParseQuestionsThreeLineLayout(t *testing.T) {
	text := `clinical examination.
Sleep Questions
7
Trouble falling asleep
3 - A moderate problem`

	got := New(nil).ParseQuestions(text)

	if len(got) != 1 {
		t.Fatalf("ParseQuestions returned %d responses, want 1", len(got))
	}
	want := report.NPQResponse{Domain: "Sleep", Question: 7, Text: "Trouble falling asleep", Score: 3, Severity: "A moderate problem"}
	if got[0] != want {
		t.Errorf("response = %+v, want %+v", got[0], want)
	}
}

func TestParseQuestionsWithoutHeaderUsesUnspecified(t *testing.T) {
	text := `clinical examination.
4 Losing things 2 - A mild problem`

	got := New(nil).ParseQuestions(text)
	if len(got) != 1 || got[0].Domain != "Unspecified" {
		t.Fatalf("ParseQuestions = %+v, want one Unspecified response", got)
	}
}

func TestParseQuestionsTextBeforeMarkerIgnored(t *testing.T) {
	text := `3 Not a question line 2 - decoy
clinical examination.
Anxiety Questions
9 Feeling nervous 4 - A severe problem`

	got := New(nil).ParseQuestions(text)
	if len(got) != 1 || got[0].Question != 9 {
		t.Fatalf("ParseQuestions = %+v, want only question 9", got)
	}
}
