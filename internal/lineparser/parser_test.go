package lineparser

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/lucidhealth/cnsextract/internal/report"
)

func newTestParser() *Parser {
	return New(report.DefaultCatalog(), nil)
}

func TestParsePatientInfo(t *testing.T) {
	p := newTestParser()

	t.Run("full banner", func(t *testing.T) {
		text := "CNS Vital Signs Report\nPatient ID: 12345\nTest Date: 03/14/2024\nAge: 42\nLanguage: English (US)\n"

		info, err := p.ParsePatientInfo(text)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if info.ID != "12345" {
			t.Errorf("ID = %q, want 12345", info.ID)
		}
		if info.TestDate != "03/14/2024" {
			t.Errorf("TestDate = %q", info.TestDate)
		}
		if info.Age != 42 {
			t.Errorf("Age = %d, want 42", info.Age)
		}
		if info.Language != "English (US)" {
			t.Errorf("Language = %q", info.Language)
		}
	})

	t.Run("missing identifier is fatal", func(t *testing.T) {
		_, err := p.ParsePatientInfo("Test Date: 03/14/2024\nAge: 42\n")

		var fatal *FatalError
		if !errors.As(err, &fatal) {
			t.Fatalf("error = %v, want FatalError", err)
		}
	})

	t.Run("missing demographics degrade only", func(t *testing.T) {
		info, err := p.ParsePatientInfo("Patient ID: 99\n")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if info.Age != 0 || info.TestDate != "" || info.Language != "" {
			t.Errorf("unexpected defaults: %+v", info)
		}
	})
}

func TestParseSection(t *testing.T) {
	p := newTestParser()

	t.Run("recognized test block", func(t *testing.T) {
		lines := []string{
			"Symbol Digit Coding Test (SDC)",
			"Score Standard Percentile",
			"Correct Responses   42   100   55",
			"Errors*   3   95   40",
		}

		res := p.ParseSection(lines, 2)

		if len(res.Fields) != 2 {
			t.Fatalf("got %d fields, want 2: %+v", len(res.Fields), res.Fields)
		}
		f := res.Fields[0]
		if f.Test != report.TestSymbolDigit || f.Metric != "Correct Responses" {
			t.Errorf("field = %+v", f)
		}
		if f.Raw.Num != 42 || f.Standard.Num != 100 || f.Percentile.Num != 55 {
			t.Errorf("values = %v/%v/%v", f.Raw, f.Standard, f.Percentile)
		}
		if f.Strategy != report.StrategyLines || f.Page != 2 {
			t.Errorf("provenance = %s page %d", f.Strategy, f.Page)
		}
		if res.Fields[1].Metric != "Errors" {
			t.Errorf("starred metric not normalized: %q", res.Fields[1].Metric)
		}
	})

	t.Run("sdc header without test word", func(t *testing.T) {
		lines := []string{
			"Symbol Digit Coding (SDC)",
			"Correct Responses 42 100 55",
		}

		res := p.ParseSection(lines, 2)

		if len(res.Fields) != 1 || res.Fields[0].Test != report.TestSymbolDigit {
			t.Fatalf("fields = %+v", res.Fields)
		}
	})

	t.Run("placeholder tokens preserved", func(t *testing.T) {
		lines := []string{
			"Finger Tapping Test (FTT)",
			"Right Taps Average - - -",
			"Left Taps Average 55 NA 60",
		}

		res := p.ParseSection(lines, 1)

		if len(res.Fields) != 2 {
			t.Fatalf("got %d fields: %+v", len(res.Fields), res.Fields)
		}
		if !res.Fields[0].Raw.IsNA() || !res.Fields[0].Standard.IsNA() || !res.Fields[0].Percentile.IsNA() {
			t.Errorf("dashes should stay not-applicable: %+v", res.Fields[0])
		}
		if !res.Fields[1].Standard.IsNA() {
			t.Errorf("NA token should stay not-applicable: %+v", res.Fields[1])
		}
	})

	t.Run("part labels scope fpcpt rows", func(t *testing.T) {
		lines := []string{
			"Four Part Continuous Performance Test (FPCPT)",
			"Part 1",
			"Correct Responses 20 100 50",
			"Part 2",
			"Correct Responses 18 95 42",
		}

		res := p.ParseSection(lines, 3)

		if len(res.Fields) != 2 {
			t.Fatalf("got %d fields: %+v", len(res.Fields), res.Fields)
		}
		if res.Fields[0].SubPart != "Part 1" || res.Fields[1].SubPart != "Part 2" {
			t.Errorf("sub-parts = %q, %q", res.Fields[0].SubPart, res.Fields[1].SubPart)
		}
	})

	t.Run("prose ends the row block", func(t *testing.T) {
		lines := []string{
			"Stroop Test (ST)",
			"Simple Reaction Time* 250 102 55",
			"The Stroop test measures response inhibition.",
			"Complex Reaction Time Correct* 400 98 45",
		}

		res := p.ParseSection(lines, 2)

		if len(res.Fields) != 1 {
			t.Fatalf("rows after prose should be dropped: %+v", res.Fields)
		}
	})

	t.Run("mixed data and prose line emits then ends", func(t *testing.T) {
		lines := []string{
			"Reasoning Test (RT)",
			"Correct Responses 10 100 50",
			"Omission Errors 1 98 45Reasoning is a measure of higher function.",
			"Commission Errors 2 97 44",
		}

		res := p.ParseSection(lines, 2)

		if len(res.Fields) != 2 {
			t.Fatalf("got %d fields: %+v", len(res.Fields), res.Fields)
		}
		if res.Fields[1].Metric != "Omission Errors" {
			t.Errorf("mixed line field = %+v", res.Fields[1])
		}
	})

	t.Run("validity flag recorded", func(t *testing.T) {
		lines := []string{
			"Shifting Attention Test (SAT) Possibly Invalid",
			"Correct Responses 30 80 10",
		}

		res := p.ParseSection(lines, 2)

		if !res.InvalidTests[report.TestShifting] {
			t.Errorf("validity flag not recorded: %+v", res.InvalidTests)
		}
	})

	t.Run("domain score block skipped", func(t *testing.T) {
		lines := []string{
			"Domain ScoresPatient Score Standard Score Percentile",
			"Composite Memory 105 102 55 Yes",
			"VI** - Validity Indicator: Yes",
			"Verbal Memory Test (VBM)",
			"Correct Hits - Immediate 14 102 55",
		}

		res := p.ParseSection(lines, 1)

		if len(res.Fields) != 1 || res.Fields[0].Test != report.TestVerbalMemory {
			t.Fatalf("fields = %+v", res.Fields)
		}
	})

	t.Run("rows before any header are ignored", func(t *testing.T) {
		res := p.ParseSection([]string{"Correct Responses 42 100 55"}, 2)
		if len(res.Fields) != 0 {
			t.Errorf("unexpected fields: %+v", res.Fields)
		}
	})
}

// Rendering fields back to section lines and reparsing must reproduce
// them exactly.
func TestParseSectionRoundTrip(t *testing.T) {
	p := newTestParser()

	want := []report.CandidateField{
		{Test: report.TestVerbalMemory, Metric: "Correct Hits - Immediate", Raw: report.ParseValue("14"), Standard: report.ParseValue("102"), Percentile: report.ParseValue("55")},
		{Test: report.TestVerbalMemory, Metric: "Correct Passes - Immediate", Raw: report.ParseValue("13"), Standard: report.ParseValue("99"), Percentile: report.ParseValue("48")},
		{Test: report.TestFingerTapping, Metric: "Right Taps Average", Raw: report.ParseValue("58"), Standard: report.NA, Percentile: report.ParseValue("61")},
	}

	var lines []string
	lastTest := ""
	for _, f := range want {
		if f.Test != lastTest {
			lines = append(lines, f.Test)
			lastTest = f.Test
		}
		lines = append(lines, fmt.Sprintf("%s %s %s %s", f.Metric, f.Raw.Text, f.Standard.Text, f.Percentile.Text))
	}

	got := p.ParseSection(lines, 1).Fields

	if len(got) != len(want) {
		t.Fatalf("got %d fields, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Test != want[i].Test || got[i].Metric != want[i].Metric {
			t.Errorf("field %d key = %s/%s, want %s/%s", i, got[i].Test, got[i].Metric, want[i].Test, want[i].Metric)
		}
		if got[i].Raw != want[i].Raw || got[i].Standard != want[i].Standard || got[i].Percentile != want[i].Percentile {
			t.Errorf("field %d values = %v/%v/%v", i, got[i].Raw, got[i].Standard, got[i].Percentile)
		}
	}
}

func TestParseDomainScores(t *testing.T) {
	p := newTestParser()

	block := strings.Join([]string{
		"Score Standard Score Percentile VI**",
		"Neurocognition Index (NCI) NA 98 45 Yes",
		"Composite Memory 105 102 55 Yes",
		"Psychomotor Speed 140 88 21 No X",
	}, "\n")

	scores := p.ParseDomainScores(block)

	if len(scores) != 3 {
		t.Fatalf("got %d scores: %+v", len(scores), scores)
	}
	if scores[0].Domain != "Neurocognition Index (NCI)" || !scores[0].Patient.IsNA() {
		t.Errorf("NCI row = %+v", scores[0])
	}
	if scores[1].Patient.Num != 105 || scores[1].Standard.Num != 102 || scores[1].Percentile.Num != 55 {
		t.Errorf("memory row = %+v", scores[1])
	}
	if scores[2].ValidityIndex != "No" {
		t.Errorf("validity = %q, want No", scores[2].ValidityIndex)
	}
}
