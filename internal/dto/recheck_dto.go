package dto

import (
	"time"

	"github.com/scriptgrade/scriptgrade-api/internal/models"
)

// RecheckCreateRequest describes the payload for requesting a recheck.
type RecheckCreateRequest struct {
	EvaluationID uint   `json:"evaluation_id" validate:"required,gt=0"`
	IssueDetail  string `json:"issue_detail" validate:"required,min=10"`
}

// RecheckRespondRequest describes a moderator's answer to a recheck.
type RecheckRespondRequest struct {
	ResponseDetail string `json:"response_detail" validate:"required,min=3"`
}

// RecheckResponse is returned to API clients when viewing rechecks.
type RecheckResponse struct {
	ID             uint      `json:"id"`
	EvaluationID   uint      `json:"evaluation_id"`
	StudentID      uint      `json:"student_id"`
	IssueDetail    string    `json:"issue_detail"`
	ResponderID    *uint     `json:"responder_id"`
	ResponseDetail *string   `json:"response_detail"`
	Resolved       bool      `json:"resolved"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewRecheckResponse converts a Recheck model into a DTO.
func NewRecheckResponse(model models.Recheck) RecheckResponse {
	return RecheckResponse{
		ID:             model.ID,
		EvaluationID:   model.EvaluationID,
		StudentID:      model.Evaluation.StudentID,
		IssueDetail:    model.IssueDetail,
		ResponderID:    model.ResponderID,
		ResponseDetail: model.ResponseDetail,
		Resolved:       model.IsResolved(),
		CreatedAt:      model.CreatedAt,
	}
}

// NewRecheckResponseSlice converts recheck models into DTOs.
func NewRecheckResponseSlice(rechecks []models.Recheck) []RecheckResponse {
	responses := make([]RecheckResponse, 0, len(rechecks))
	for _, recheck := range rechecks {
		responses = append(responses, NewRecheckResponse(recheck))
	}

	return responses
}
