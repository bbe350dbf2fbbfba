package grading

import (
	"fmt"
	"strconv"
	"strings"

	"gorm.io/datatypes"

	"github.com/scriptgrade/scriptgrade-api/internal/models"
)

// Result is one graded rubric line as returned by the grading service.
// Results are correlated to rubric items purely by position; Label is the
// service's echo of the criterion text and is display-only.
type Result struct {
	Label       string
	Score       float64
	Total       float64
	Explanation string
}

// Detail is a reconciled per-rubric-item outcome, ready to persist.
type Detail struct {
	RubricItemID   uint
	ObtainedMarks  float64
	DetailedResult string
	SerialNumber   int
	Raw            datatypes.JSONMap
}

// Outcome is the result of reconciling one evaluation's grading results
// against its rubric items.
type Outcome struct {
	TotalScore float64
	MaxMarks   float64
	Report     string
	Details    []Detail
	// Skipped counts grading results beyond the rubric length; Ungraded
	// counts rubric items the service returned no result for. Both are
	// data-quality signals, not errors.
	Skipped  int
	Ungraded int
}

// Reconcile aligns grading-service results to rubric items by position,
// normalizes each score to the item's point value and accumulates the final
// score. Items must already be ordered by serial number ascending. A zero
// result total yields zero credit for that item rather than an error. The
// function is pure: identical inputs produce an identical outcome.
func Reconcile(items []models.RubricItem, results []Result) Outcome {
	outcome := Outcome{
		MaxMarks: sumMarks(items),
		Details:  make([]Detail, 0, len(items)),
	}

	var report strings.Builder
	report.WriteString("## Evaluation Results\n\n")

	for i, result := range results {
		if i >= len(items) {
			outcome.Skipped = len(results) - len(items)
			break
		}

		item := items[i]
		normalized := 0.0
		if result.Total > 0 {
			normalized = result.Score / result.Total * item.Marks
		}
		outcome.TotalScore += normalized

		detailText := formatItemDetail(item, result, normalized)
		report.WriteString(detailText)

		outcome.Details = append(outcome.Details, Detail{
			RubricItemID:   item.ID,
			ObtainedMarks:  normalized,
			DetailedResult: detailText,
			SerialNumber:   item.SerialNumber,
			Raw: datatypes.JSONMap{
				"label":       result.Label,
				"score":       result.Score,
				"total":       result.Total,
				"explanation": result.Explanation,
			},
		})
	}

	if len(results) < len(items) {
		outcome.Ungraded = len(items) - len(results)
	}

	report.WriteString(fmt.Sprintf("## Final Score: %.2f/%.2f", outcome.TotalScore, outcome.MaxMarks))
	outcome.Report = report.String()

	return outcome
}

// RenderRubric produces the 1-indexed rubric text sent to the grading
// service: one line per item as "{index}. {criterion} ({marks} marks)".
func RenderRubric(items []models.RubricItem) string {
	lines := make([]string, 0, len(items))
	for i, item := range items {
		lines = append(lines, fmt.Sprintf("%d. %s (%s marks)", i+1, item.CriterionText, formatMarks(item.Marks)))
	}
	return strings.Join(lines, "\n")
}

func formatItemDetail(item models.RubricItem, result Result, normalized float64) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("### %s\n", result.Label))
	b.WriteString(fmt.Sprintf("**Score:** %.2f/%s\n", normalized, formatMarks(item.Marks)))
	b.WriteString(fmt.Sprintf("**Explanation:** %s\n\n", result.Explanation))
	return b.String()
}

func formatMarks(marks float64) string {
	return strconv.FormatFloat(marks, 'g', -1, 64)
}

func sumMarks(items []models.RubricItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Marks
	}
	return total
}
