package dto

import (
	"time"

	"github.com/scriptgrade/scriptgrade-api/internal/models"
)

// QuestionSetCreateRequest describes the payload for creating a set or test.
type QuestionSetCreateRequest struct {
	Name        string `json:"name" validate:"required,min=3"`
	Description string `json:"description"`
	SubjectID   uint   `json:"subject_id" validate:"required,gt=0"`
	IsTest      bool   `json:"is_test"`
}

// QuestionSetUpdateRequest describes the payload for updating a set.
type QuestionSetUpdateRequest struct {
	Name        string `json:"name" validate:"required,min=3"`
	Description string `json:"description"`
	SubjectID   uint   `json:"subject_id" validate:"required,gt=0"`
}

// QuestionSetAddQuestionRequest adds one question at an explicit position.
type QuestionSetAddQuestionRequest struct {
	QuestionID uint `json:"question_id" validate:"required,gt=0"`
	Position   int  `json:"position" validate:"gte=0"`
}

// QuestionSetAddQuestionsRequest appends several questions in order.
type QuestionSetAddQuestionsRequest struct {
	QuestionIDs []uint `json:"question_ids" validate:"required,min=1,dive,gt=0"`
}

// QuestionSetFilter describes query string filters for listing sets.
type QuestionSetFilter struct {
	SubjectID *uint `query:"subject_id"`
	IsTest    *bool `query:"is_test"`
}

// QuestionSetEntryResponse summarizes a question inside a set.
type QuestionSetEntryResponse struct {
	QuestionID   uint    `json:"question_id"`
	QuestionText string  `json:"question_text"`
	Position     int     `json:"position"`
	Marks        float64 `json:"marks"`
}

// QuestionSetResponse is returned to API clients when viewing sets.
type QuestionSetResponse struct {
	ID          uint                       `json:"id"`
	Name        string                     `json:"name"`
	Description string                     `json:"description"`
	SubjectID   uint                       `json:"subject_id"`
	SubjectName string                     `json:"subject_name"`
	TeacherID   uint                       `json:"teacher_id"`
	IsTest      bool                       `json:"is_test"`
	Questions   []QuestionSetEntryResponse `json:"questions"`
	CreatedAt   time.Time                  `json:"created_at"`
}

// NewQuestionSetResponse converts a QuestionSet model into a DTO.
func NewQuestionSetResponse(model models.QuestionSet) QuestionSetResponse {
	questions := make([]QuestionSetEntryResponse, 0, len(model.Entries))
	for _, entry := range model.Entries {
		questions = append(questions, QuestionSetEntryResponse{
			QuestionID:   entry.QuestionID,
			QuestionText: entry.Question.QuestionText,
			Position:     entry.Position,
			Marks:        entry.Question.TotalMarks(),
		})
	}

	return QuestionSetResponse{
		ID:          model.ID,
		Name:        model.Name,
		Description: model.Description,
		SubjectID:   model.SubjectID,
		SubjectName: model.Subject.Name,
		TeacherID:   model.TeacherID,
		IsTest:      model.IsTest,
		Questions:   questions,
		CreatedAt:   model.CreatedAt,
	}
}

// NewQuestionSetResponseSlice converts set models into DTOs.
func NewQuestionSetResponseSlice(sets []models.QuestionSet) []QuestionSetResponse {
	responses := make([]QuestionSetResponse, 0, len(sets))
	for _, set := range sets {
		responses = append(responses, NewQuestionSetResponse(set))
	}

	return responses
}
