package models

import "time"

// QuestionSet is a named collection of questions. A set with IsTest enabled
// is assignable to students as a timed test; otherwise it is practice
// material.
type QuestionSet struct {
	ID          uint               `gorm:"primaryKey" json:"id"`
	Name        string             `gorm:"size:255;not null" json:"name"`
	Description string             `gorm:"type:text" json:"description"`
	SubjectID   uint               `gorm:"not null;index" json:"subject_id"`
	TeacherID   uint               `gorm:"not null" json:"teacher_id"`
	IsTest      bool               `gorm:"not null;default:false" json:"is_test"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
	Subject     Subject            `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"subject"`
	Entries     []QuestionSetEntry `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"entries"`
}

// QuestionSetEntry maps a question into a set at a given position.
type QuestionSetEntry struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	QuestionSetID uint      `gorm:"not null;uniqueIndex:idx_set_question" json:"question_set_id"`
	QuestionID    uint      `gorm:"not null;uniqueIndex:idx_set_question" json:"question_id"`
	Position      int       `gorm:"not null" json:"position"`
	CreatedAt     time.Time `json:"created_at"`
	Question      Question  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"question"`
}
