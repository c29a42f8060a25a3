package checkbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucidhealth/cnsextract/internal/pdfdoc"
	"github.com/lucidhealth/cnsextract/internal/report"
)

func word(text string, x, y float64) pdfdoc.Word {
	return pdfdoc.Word{Text: text, X: x, Y: y, Width: float64(len(text)) * 5, FontSize: 9}
}

// headerRow lays the five category labels across the top of the page.
func headerRow(y float64) []pdfdoc.Word {
	return []pdfdoc.Word{
		word("Never", 300, y),
		word("Rarely", 360, y),
		word("Sometimes", 420, y),
		word("Often", 490, y),
		word("Very", 540, y),
		word("Often", 565, y),
	}
}

func responseFor(t *testing.T, res Result, question int) report.QuestionnaireResponse {
	t.Helper()
	for _, r := range res.Responses {
		if r.Question == question {
			return r
		}
	}
	t.Fatalf("question %d not in result", question)
	return report.QuestionnaireResponse{}
}

func TestExtractAssignsNearestColumn(t *testing.T) {
	words := append(headerRow(700),
		word("1", 40, 650),
		word("X", 298, 650), // on the Never column
		word("2", 40, 630),
		word("X", 423, 630), // on the Sometimes column
	)
	l := New(nil, nil)

	res := l.Extract(&pdfdoc.Page{Number: 4, Width: 612, Words: words})

	require.Len(t, res.Responses, 2)
	assert.Empty(t, res.Degraded)

	q1 := responseFor(t, res, 1)
	assert.Equal(t, report.ResponseNever, q1.Category)
	assert.Equal(t, "A", q1.Part)

	q2 := responseFor(t, res, 2)
	assert.Equal(t, report.ResponseSometimes, q2.Category)
}

func TestExtractVeryOftenFromSplitHeader(t *testing.T) {
	words := append(headerRow(700),
		word("7", 40, 650),
		word("X", 550, 650),
	)
	l := New(nil, nil)

	res := l.Extract(&pdfdoc.Page{Number: 4, Width: 612, Words: words})

	q7 := responseFor(t, res, 7)
	assert.Equal(t, report.ResponseVeryOften, q7.Category)
	assert.Equal(t, "B", q7.Part)
}

func TestExtractUnalignedQuestionIsUnknown(t *testing.T) {
	words := append(headerRow(700),
		word("1", 40, 650),
		word("X", 300, 650),
		word("2", 40, 600), // no mark anywhere near this row
	)
	l := New(nil, nil)

	res := l.Extract(&pdfdoc.Page{Number: 4, Width: 612, Words: words})

	q2 := responseFor(t, res, 2)
	assert.Equal(t, report.ResponseUnknown, q2.Category)
	assert.False(t, q2.Category.Known())
}

func TestExtractNoMarksFallsBackToRecorded(t *testing.T) {
	words := append(headerRow(700),
		word("1", 40, 650),
		word("2", 40, 630),
	)
	recorded := map[int]report.ResponseCategory{1: report.ResponseRarely}
	l := New(nil, recorded)

	res := l.Extract(&pdfdoc.Page{Number: 4, Width: 612, Words: words})

	require.Contains(t, res.Degraded, DegradedRecordedResponses)
	assert.Equal(t, report.ResponseRarely, responseFor(t, res, 1).Category)
	assert.Equal(t, report.ResponseUnknown, responseFor(t, res, 2).Category)
}

func TestDefaultRecordedCoversAllQuestions(t *testing.T) {
	rec := DefaultRecorded()
	require.Len(t, rec, maxQuestion)
	for q := minQuestion; q <= maxQuestion; q++ {
		assert.NotEqual(t, report.ResponseUnknown, rec[q], "question %d", q)
	}
}

func TestExtractPartialHeadersNotTrusted(t *testing.T) {
	// Four of the five labels read; the missing one is "Very Often", so
	// trusting them would make the top response unreachable.
	words := []pdfdoc.Word{
		word("Never", 300, 700),
		word("Rarely", 360, 700),
		word("Sometimes", 420, 700),
		word("Often", 490, 700),
		word("1", 40, 650),
		word("X", 500, 650),
	}
	l := New(nil, nil)

	res := l.Extract(&pdfdoc.Page{Number: 4, Width: 612, Words: words})

	require.Len(t, res.Responses, 1)
	assert.Contains(t, res.Degraded, DegradedEstimatedColumns)
	assert.Equal(t, report.ResponseVeryOften, responseFor(t, res, 1).Category)
}

func TestExtractEstimatedColumnsWhenHeadersUnreadable(t *testing.T) {
	// No header labels, no checkbox shapes: columns are spread evenly
	// across the width and the degradation is reported.
	words := []pdfdoc.Word{
		word("1", 40, 650),
		word("X", 85, 650), // near 612/7*1, the Never slot
	}
	l := New(nil, nil)

	res := l.Extract(&pdfdoc.Page{Number: 4, Width: 612, Words: words})

	require.Contains(t, res.Degraded, DegradedEstimatedColumns)
	assert.Equal(t, report.ResponseNever, responseFor(t, res, 1).Category)
}

func TestExtractColumnsFromCheckboxRow(t *testing.T) {
	// Header words missing but a complete row of five square boxes gives
	// the column centroids.
	box := func(x, y float64) pdfdoc.Shape {
		return pdfdoc.Shape{MinX: x, MinY: y, MaxX: x + 10, MaxY: y + 10}
	}
	page := &pdfdoc.Page{
		Number: 4,
		Width:  612,
		Words: []pdfdoc.Word{
			word("1", 40, 652),
			word("X", 361, 652), // inside the Rarely box
		},
		Shapes: []pdfdoc.Shape{
			box(300, 648), box(360, 648), box(420, 648), box(480, 648), box(540, 648),
			// a big ruled border that must not count as a checkbox
			{MinX: 30, MinY: 100, MaxX: 580, MaxY: 700},
		},
	}
	l := New(nil, nil)

	res := l.Extract(page)

	assert.Empty(t, res.Degraded)
	assert.Equal(t, report.ResponseRarely, responseFor(t, res, 1).Category)
}

func TestQuestionRowsOrderAndDedupe(t *testing.T) {
	rows := questionRows([]pdfdoc.Word{
		word("12", 40, 500),
		word("3", 40, 640),
		word("3", 200, 640), // duplicate token in the question text
		word("19", 40, 450), // out of range
		word("abc", 40, 400),
	})

	require.Len(t, rows, 2)
	assert.Equal(t, 3, rows[0].number)
	assert.Equal(t, 12, rows[1].number)
}
