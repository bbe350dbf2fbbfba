package dto

import (
	"time"

	"github.com/scriptgrade/scriptgrade-api/internal/models"
)

// RubricItemPayload describes one rubric criterion in create/update requests.
// Serial numbers are assigned from the payload order, 1-based.
type RubricItemPayload struct {
	CriterionText string  `json:"criterion_text" validate:"required,min=3"`
	Marks         float64 `json:"marks" validate:"gte=0"`
}

// QuestionCreateRequest describes the payload for authoring a question.
type QuestionCreateRequest struct {
	SubjectID    uint                `json:"subject_id" validate:"required,gt=0"`
	QuestionText string              `json:"question_text" validate:"required,min=3"`
	RubricItems  []RubricItemPayload `json:"rubric_items" validate:"required,min=1,dive"`
}

// QuestionUpdateRequest describes the payload for rewriting a question.
type QuestionUpdateRequest struct {
	QuestionText string              `json:"question_text" validate:"required,min=3"`
	RubricItems  []RubricItemPayload `json:"rubric_items" validate:"required,min=1,dive"`
}

// QuestionFilter describes query string filters for listing questions.
type QuestionFilter struct {
	SubjectID *uint `query:"subject_id"`
}

// RubricItemResponse serializes a rubric criterion.
type RubricItemResponse struct {
	ID            uint    `json:"id"`
	CriterionText string  `json:"criterion_text"`
	Marks         float64 `json:"marks"`
	SerialNumber  int     `json:"serial_number"`
}

// QuestionResponse is returned to API clients when viewing questions.
type QuestionResponse struct {
	ID           uint                 `json:"id"`
	SubjectID    uint                 `json:"subject_id"`
	SubjectName  string               `json:"subject_name"`
	TeacherID    uint                 `json:"teacher_id"`
	QuestionText string               `json:"question_text"`
	RubricItems  []RubricItemResponse `json:"rubric_items"`
	TotalMarks   float64              `json:"total_marks"`
	CreatedAt    time.Time            `json:"created_at"`
}

// NewQuestionResponse converts a Question model into a DTO.
func NewQuestionResponse(model models.Question) QuestionResponse {
	items := make([]RubricItemResponse, 0, len(model.RubricItems))
	for _, item := range model.RubricItems {
		items = append(items, RubricItemResponse{
			ID:            item.ID,
			CriterionText: item.CriterionText,
			Marks:         item.Marks,
			SerialNumber:  item.SerialNumber,
		})
	}

	return QuestionResponse{
		ID:           model.ID,
		SubjectID:    model.SubjectID,
		SubjectName:  model.Subject.Name,
		TeacherID:    model.TeacherID,
		QuestionText: model.QuestionText,
		RubricItems:  items,
		TotalMarks:   model.TotalMarks(),
		CreatedAt:    model.CreatedAt,
	}
}

// NewQuestionResponseSlice converts question models into DTOs.
func NewQuestionResponseSlice(questions []models.Question) []QuestionResponse {
	responses := make([]QuestionResponse, 0, len(questions))
	for _, question := range questions {
		responses = append(responses, NewQuestionResponse(question))
	}

	return responses
}
