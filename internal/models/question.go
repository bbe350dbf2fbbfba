package models

import "time"

// Question represents a free-text question authored by a teacher.
type Question struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	SubjectID    uint         `gorm:"not null;index" json:"subject_id"`
	TeacherID    uint         `gorm:"not null" json:"teacher_id"`
	QuestionText string       `gorm:"type:text;not null" json:"question_text"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	Subject      Subject      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"subject"`
	RubricItems  []RubricItem `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"rubric_items"`
}

// TotalMarks sums the point values of the question's rubric items.
func (q Question) TotalMarks() float64 {
	var total float64
	for _, item := range q.RubricItems {
		total += item.Marks
	}
	return total
}

// RubricItem is one criterion of a question's marking scheme. SerialNumber is
// 1-based and unique within a question; the grading service returns results
// positionally, so this ordering decides which result belongs to which item.
type RubricItem struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	QuestionID    uint      `gorm:"not null;uniqueIndex:idx_rubric_question_serial" json:"question_id"`
	CriterionText string    `gorm:"type:text;not null" json:"criterion_text"`
	Marks         float64   `gorm:"not null" json:"marks"`
	SerialNumber  int       `gorm:"not null;uniqueIndex:idx_rubric_question_serial" json:"serial_number"`
	CreatedAt     time.Time `json:"created_at"`
}
