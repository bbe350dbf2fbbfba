package dto

import (
	"time"

	"github.com/scriptgrade/scriptgrade-api/internal/models"
)

// EvaluationCreateRequest describes the multipart payload for submitting an
// answer PDF.
type EvaluationCreateRequest struct {
	StudentID     uint  `form:"student_id" validate:"required,gt=0"`
	QuestionID    uint  `form:"question_id" validate:"required,gt=0"`
	QuestionSetID *uint `form:"question_set_id" validate:"omitempty,gt=0"`
}

// BatchEvaluationRequest names the evaluations to grade in one batch.
type BatchEvaluationRequest struct {
	EvaluationIDs []uint `json:"evaluation_ids" validate:"required,min=1,dive,gt=0"`
}

// BatchEvaluationResponse reports the per-evaluation outcome of a batch run.
type BatchEvaluationResponse struct {
	Successful []uint          `json:"successful"`
	Failed     map[uint]string `json:"failed"`
	Message    string          `json:"message"`
}

// EvaluationDetailResponse serializes one graded rubric line.
type EvaluationDetailResponse struct {
	ID             uint    `json:"id"`
	RubricItemID   uint    `json:"rubric_item_id"`
	ObtainedMarks  float64 `json:"obtained_marks"`
	DetailedResult string  `json:"detailed_result"`
	SerialNumber   int     `json:"serial_number"`
}

// EvaluationTransitionResponse serializes one status change.
type EvaluationTransitionResponse struct {
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"created_at"`
}

// EvaluationResponse is returned to API clients when viewing evaluations.
type EvaluationResponse struct {
	ID            uint                           `json:"id"`
	StudentID     uint                           `json:"student_id"`
	QuestionID    uint                           `json:"question_id"`
	QuestionSetID *uint                          `json:"question_set_id"`
	QuestionText  string                         `json:"question_text"`
	AnswerPDFURL  string                         `json:"answer_pdf_url"`
	AnswerText    string                         `json:"answer_text"`
	Status        string                         `json:"status"`
	TotalScore    *float64                       `json:"total_score"`
	MaxMarks      float64                        `json:"max_marks"`
	Report        string                         `json:"report"`
	FailureReason string                         `json:"failure_reason"`
	Details       []EvaluationDetailResponse     `json:"details,omitempty"`
	Transitions   []EvaluationTransitionResponse `json:"transitions,omitempty"`
	CreatedAt     time.Time                      `json:"created_at"`
	UpdatedAt     time.Time                      `json:"updated_at"`
}

// NewEvaluationResponse converts an Evaluation model into a DTO.
func NewEvaluationResponse(model models.Evaluation) EvaluationResponse {
	return EvaluationResponse{
		ID:            model.ID,
		StudentID:     model.StudentID,
		QuestionID:    model.QuestionID,
		QuestionSetID: model.QuestionSetID,
		QuestionText:  model.Question.QuestionText,
		AnswerPDFURL:  model.AnswerPDFURL,
		AnswerText:    model.AnswerText,
		Status:        model.Status,
		TotalScore:    model.TotalScore,
		MaxMarks:      model.Question.TotalMarks(),
		Report:        model.Report,
		FailureReason: model.FailureReason,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
}

// NewEvaluationResponseSlice converts evaluation models into DTOs.
func NewEvaluationResponseSlice(evaluations []models.Evaluation) []EvaluationResponse {
	responses := make([]EvaluationResponse, 0, len(evaluations))
	for _, evaluation := range evaluations {
		responses = append(responses, NewEvaluationResponse(evaluation))
	}

	return responses
}

// NewEvaluationDetailResponseSlice converts detail models into DTOs.
func NewEvaluationDetailResponseSlice(details []models.EvaluationDetail) []EvaluationDetailResponse {
	responses := make([]EvaluationDetailResponse, 0, len(details))
	for _, detail := range details {
		responses = append(responses, EvaluationDetailResponse{
			ID:             detail.ID,
			RubricItemID:   detail.RubricItemID,
			ObtainedMarks:  detail.ObtainedMarks,
			DetailedResult: detail.DetailedResult,
			SerialNumber:   detail.SerialNumber,
		})
	}

	return responses
}

// NewEvaluationTransitionResponseSlice converts transition models into DTOs.
func NewEvaluationTransitionResponseSlice(transitions []models.EvaluationTransition) []EvaluationTransitionResponse {
	responses := make([]EvaluationTransitionResponse, 0, len(transitions))
	for _, transition := range transitions {
		responses = append(responses, EvaluationTransitionResponse{
			FromStatus: transition.FromStatus,
			ToStatus:   transition.ToStatus,
			Reason:     transition.Reason,
			CreatedAt:  transition.CreatedAt,
		})
	}

	return responses
}
