package dto

// ReportRow summarizes one student's performance across a question set.
type ReportRow struct {
	StudentID uint              `json:"student_id"`
	Scores    map[uint]*float64 `json:"scores"`
	Total     float64           `json:"total"`
	Graded    int               `json:"graded"`
	Pending   int               `json:"pending"`
}

// ReportResponse is the per-set performance report.
type ReportResponse struct {
	QuestionSetID uint        `json:"question_set_id"`
	Name          string      `json:"name"`
	MaxMarks      float64     `json:"max_marks"`
	Rows          []ReportRow `json:"rows"`
}
