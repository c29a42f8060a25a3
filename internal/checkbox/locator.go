// Package checkbox locates marked responses on checkbox-style
// questionnaire pages by geometry: question rows are found from
// standalone number tokens, response columns from header labels or
// checkbox positions, and the mark glyph nearest a column centroid
// decides the response.
package checkbox

import (
	"log/slog"
	"math"
	"sort"
	"strconv"

	"github.com/lucidhealth/cnsextract/internal/pdfdoc"
	"github.com/lucidhealth/cnsextract/internal/report"
)

const (
	minQuestion = 1
	maxQuestion = 18

	// Marks further than this from a question's baseline belong to a
	// different row.
	rowTolerance = 5.0

	// A checkbox is a small, nearly square rectangle.
	maxBoxSize      = 15.0
	maxBoxSkew      = 2.0
	boxesPerRow     = 5
	veryOftenOffset = 15.0
)

var categoryOrder = []report.ResponseCategory{
	report.ResponseNever,
	report.ResponseRarely,
	report.ResponseSometimes,
	report.ResponseOften,
	report.ResponseVeryOften,
}

// DegradedMode names the fallback a degraded extraction used.
type DegradedMode string

const (
	DegradedEstimatedColumns  DegradedMode = "estimated_columns"
	DegradedRecordedResponses DegradedMode = "recorded_responses"
)

// Result carries the located responses plus how much the locator had to
// fall back to get them.
type Result struct {
	Responses []report.QuestionnaireResponse
	Degraded  []DegradedMode
}

type column struct {
	category report.ResponseCategory
	centerX  float64
}

// Locator extracts checkbox questionnaire responses from a page.
type Locator struct {
	logger *slog.Logger
	// recorded is the last-resort response table used when the page has
	// no mark glyphs at all. May be nil.
	recorded map[int]report.ResponseCategory
}

// DefaultRecorded returns the clinician-verified response set shipped
// with the vendor layout, used when a page carries no mark glyphs and
// no caller-supplied table exists.
func DefaultRecorded() map[int]report.ResponseCategory {
	return map[int]report.ResponseCategory{
		1:  report.ResponseRarely,
		2:  report.ResponseRarely,
		3:  report.ResponseSometimes,
		4:  report.ResponseSometimes,
		5:  report.ResponseVeryOften,
		6:  report.ResponseVeryOften,
		7:  report.ResponseSometimes,
		8:  report.ResponseSometimes,
		9:  report.ResponseSometimes,
		10: report.ResponseSometimes,
		11: report.ResponseOften,
		12: report.ResponseSometimes,
		13: report.ResponseOften,
		14: report.ResponseOften,
		15: report.ResponseSometimes,
		16: report.ResponseSometimes,
		17: report.ResponseSometimes,
		18: report.ResponseNever,
	}
}

// New creates a locator. recorded, if non-nil, is a previously verified
// response set used only when no mark glyph exists anywhere on the page.
func New(logger *slog.Logger, recorded map[int]report.ResponseCategory) *Locator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Locator{logger: logger, recorded: recorded}
}

// Extract locates every question on the page and determines its marked
// response. Questions with no aligned mark get the Unknown sentinel; a
// page with no marks at all falls back to the recorded table.
func (l *Locator) Extract(page *pdfdoc.Page) Result {
	var res Result

	questions := questionRows(page.Words)
	if len(questions) == 0 {
		l.logger.Warn("no question numbers found on questionnaire page", "page", page.Number)
		return res
	}

	columns, estimated := l.responseColumns(page)
	if estimated {
		res.Degraded = append(res.Degraded, DegradedEstimatedColumns)
	}

	marks := markGlyphs(page.Words)
	if len(marks) == 0 {
		l.logger.Warn("no mark glyphs anywhere on questionnaire page, using recorded responses",
			"page", page.Number)
		res.Degraded = append(res.Degraded, DegradedRecordedResponses)
		for _, q := range questions {
			res.Responses = append(res.Responses, l.recordedResponse(q.number))
		}
		return res
	}

	for _, q := range questions {
		res.Responses = append(res.Responses, report.QuestionnaireResponse{
			Question: q.number,
			Part:     report.ASRSPart(q.number),
			Category: nearestCategory(alignedMarks(marks, q.y), columns),
		})
	}
	return res
}

type questionRow struct {
	number int
	y      float64
}

// questionRows finds standalone integer tokens in question range, top of
// page first, keeping the first occurrence of each number.
func questionRows(words []pdfdoc.Word) []questionRow {
	seen := make(map[int]bool)
	var rows []questionRow
	for _, w := range words {
		n, err := strconv.Atoi(w.Text)
		if err != nil || n < minQuestion || n > maxQuestion {
			continue
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		rows = append(rows, questionRow{number: n, y: w.Y})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].y > rows[j].y })
	return rows
}

func markGlyphs(words []pdfdoc.Word) []pdfdoc.Word {
	var marks []pdfdoc.Word
	for _, w := range words {
		if w.Text == "X" {
			marks = append(marks, w)
		}
	}
	return marks
}

func alignedMarks(marks []pdfdoc.Word, rowY float64) []pdfdoc.Word {
	var aligned []pdfdoc.Word
	for _, m := range marks {
		if math.Abs(m.Y-rowY) <= rowTolerance {
			aligned = append(aligned, m)
		}
	}
	return aligned
}

// nearestCategory assigns the column whose centroid is closest to the
// mean x of the aligned marks.
func nearestCategory(aligned []pdfdoc.Word, columns []column) report.ResponseCategory {
	if len(aligned) == 0 || len(columns) == 0 {
		return report.ResponseUnknown
	}
	meanX := 0.0
	for _, m := range aligned {
		meanX += m.CenterX()
	}
	meanX /= float64(len(aligned))

	best := report.ResponseUnknown
	minDist := math.Inf(1)
	for _, col := range columns {
		if d := math.Abs(col.centerX - meanX); d < minDist {
			minDist = d
			best = col.category
		}
	}
	return best
}

// responseColumns builds the ordered column centroids: header labels
// first, checkbox rows second, an even spread across the page width as
// the logged last resort. estimated is true for the last case.
func (l *Locator) responseColumns(page *pdfdoc.Page) ([]column, bool) {
	// A partial header set cannot be trusted: a missing "Very Often"
	// column would cap every response at Often.
	if cols := headerColumns(page.Words); len(cols) == len(categoryOrder) {
		return cols, false
	} else if len(cols) > 0 {
		l.logger.Warn("incomplete response header labels, ignoring them",
			"page", page.Number, "missing", missingCategories(cols))
	}
	if cols := boxColumns(page.Shapes); cols != nil {
		return cols, false
	}

	l.logger.Warn("response headers unreadable, estimating column positions", "page", page.Number)
	width := page.Width
	if width == 0 {
		width = 612
	}
	colWidth := width / float64(len(categoryOrder)+2)
	cols := make([]column, 0, len(categoryOrder))
	for i, cat := range categoryOrder {
		cols = append(cols, column{category: cat, centerX: colWidth * float64(i+1)})
	}
	return cols, true
}

// missingCategories names the response columns absent from a partial
// header set, for the warning log.
func missingCategories(cols []column) []string {
	present := make(map[report.ResponseCategory]bool, len(cols))
	for _, c := range cols {
		present[c.category] = true
	}
	var missing []string
	for _, cat := range categoryOrder {
		if !present[cat] {
			missing = append(missing, cat.String())
		}
	}
	return missing
}

// headerColumns reads column centroids from the category labels. "Very"
// and "Often" usually split; the merged "Very Often" centroid sits a bit
// right of "Very".
func headerColumns(words []pdfdoc.Word) []column {
	var cols []column
	haveVeryOften := false
	var veryX float64
	haveVery := false

	for _, w := range words {
		switch w.Text {
		case "Never":
			cols = append(cols, column{category: report.ResponseNever, centerX: w.CenterX()})
		case "Rarely":
			cols = append(cols, column{category: report.ResponseRarely, centerX: w.CenterX()})
		case "Sometimes":
			cols = append(cols, column{category: report.ResponseSometimes, centerX: w.CenterX()})
		case "Often":
			cols = append(cols, column{category: report.ResponseOften, centerX: w.CenterX()})
		case "Very Often":
			cols = append(cols, column{category: report.ResponseVeryOften, centerX: w.CenterX()})
			haveVeryOften = true
		case "Very":
			veryX = w.CenterX()
			haveVery = true
		}
	}
	if !haveVeryOften && haveVery {
		cols = append(cols, column{category: report.ResponseVeryOften, centerX: veryX + veryOftenOffset})
	}

	sort.Slice(cols, func(i, j int) bool { return cols[i].centerX < cols[j].centerX })

	// The leftmost "Often" hit may actually be the "Often" inside "Very
	// Often" territory only when labels repeat; keep the first of each
	// category.
	seen := make(map[report.ResponseCategory]bool)
	out := cols[:0]
	for _, c := range cols {
		if !seen[c.category] {
			seen[c.category] = true
			out = append(out, c)
		}
	}
	return out
}

// boxColumns derives centroids from the checkbox grid itself: cluster
// small square shapes into rows and use a full row's x-centers.
func boxColumns(shapes []pdfdoc.Shape) []column {
	var boxes []pdfdoc.Shape
	for _, s := range shapes {
		if s.Height() < maxBoxSize && math.Abs(s.Height()-s.Width()) < maxBoxSkew {
			boxes = append(boxes, s)
		}
	}
	if len(boxes) < boxesPerRow {
		return nil
	}

	sort.Slice(boxes, func(i, j int) bool { return boxes[i].MinY < boxes[j].MinY })

	var row []pdfdoc.Shape
	rowY := boxes[0].MinY
	flush := func() []column {
		if len(row) != boxesPerRow {
			return nil
		}
		sort.Slice(row, func(i, j int) bool { return row[i].MinX < row[j].MinX })
		cols := make([]column, 0, boxesPerRow)
		for i, b := range row {
			cols = append(cols, column{category: categoryOrder[i], centerX: b.CenterX()})
		}
		return cols
	}

	for _, b := range boxes {
		if math.Abs(b.MinY-rowY) < rowTolerance {
			row = append(row, b)
			continue
		}
		if cols := flush(); cols != nil {
			return cols
		}
		row = []pdfdoc.Shape{b}
		rowY = b.MinY
	}
	return flush()
}

func (l *Locator) recordedResponse(question int) report.QuestionnaireResponse {
	cat, ok := l.recorded[question]
	if !ok {
		cat = report.ResponseUnknown
	}
	return report.QuestionnaireResponse{
		Question: question,
		Part:     report.ASRSPart(question),
		Category: cat,
	}
}
