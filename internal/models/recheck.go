package models

import "time"

// Recheck is a student's appeal against a completed evaluation, answered
// once by a teacher or moderator.
type Recheck struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	EvaluationID   uint       `gorm:"not null;index" json:"evaluation_id"`
	IssueDetail    string     `gorm:"type:text;not null" json:"issue_detail"`
	ResponderID    *uint      `json:"responder_id"`
	ResponseDetail *string    `gorm:"type:text" json:"response_detail"`
	RespondedAt    *time.Time `json:"responded_at"`
	CreatedAt      time.Time  `json:"created_at"`
	Evaluation     Evaluation `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"evaluation"`
}

// IsResolved reports whether a moderator has already answered the recheck.
func (r Recheck) IsResolved() bool {
	return r.ResponseDetail != nil
}
