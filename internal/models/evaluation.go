package models

import (
	"time"

	"gorm.io/datatypes"
)

// Evaluation status values. Pending means the answer is stored and waiting
// for a grading run; processing means a run has picked it up; completed and
// failed are terminal for that run (a later batch may re-grade).
const (
	EvaluationStatusPending    = "pending"
	EvaluationStatusProcessing = "processing"
	EvaluationStatusCompleted  = "completed"
	EvaluationStatusFailed     = "failed"
)

// Evaluation is one student's submitted answer to a question, together with
// the outcome of grading it.
type Evaluation struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	StudentID     uint      `gorm:"not null;index" json:"student_id"`
	QuestionID    uint      `gorm:"not null;index" json:"question_id"`
	QuestionSetID *uint     `gorm:"index" json:"question_set_id"`
	AnswerPDFURL  string    `gorm:"size:512" json:"answer_pdf_url"`
	AnswerText    string    `gorm:"type:text" json:"answer_text"`
	Status        string    `gorm:"size:32;not null;index" json:"status"`
	TotalScore    *float64  `json:"total_score"`
	Report        string    `gorm:"type:text" json:"report"`
	FailureReason string    `gorm:"type:text" json:"failure_reason"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Question      Question  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"question"`
}

// IsTerminal reports whether the evaluation reached a final status.
func (e Evaluation) IsTerminal() bool {
	return e.Status == EvaluationStatusCompleted || e.Status == EvaluationStatusFailed
}

// EvaluationDetail is the graded outcome for a single rubric item. A
// completed evaluation carries one row per graded rubric item; a failed
// evaluation carries none.
type EvaluationDetail struct {
	ID             uint              `gorm:"primaryKey" json:"id"`
	EvaluationID   uint              `gorm:"not null;index" json:"evaluation_id"`
	RubricItemID   uint              `gorm:"not null" json:"rubric_item_id"`
	ObtainedMarks  float64           `gorm:"not null" json:"obtained_marks"`
	DetailedResult string            `gorm:"type:text" json:"detailed_result"`
	SerialNumber   int               `gorm:"not null" json:"serial_number"`
	Raw            datatypes.JSONMap `json:"raw"`
	CreatedAt      time.Time         `json:"created_at"`
}

// EvaluationTransition records one status change with its reason, so the
// grading history of an evaluation can be audited without re-deriving it
// from side effects.
type EvaluationTransition struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	EvaluationID uint      `gorm:"not null;index" json:"evaluation_id"`
	FromStatus   string    `gorm:"size:32;not null" json:"from_status"`
	ToStatus     string    `gorm:"size:32;not null" json:"to_status"`
	Reason       string    `gorm:"type:text" json:"reason"`
	CreatedAt    time.Time `json:"created_at"`
}
