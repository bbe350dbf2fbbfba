package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/scriptgrade/scriptgrade-api/internal/dto"
	"github.com/scriptgrade/scriptgrade-api/internal/models"
	"github.com/scriptgrade/scriptgrade-api/internal/queue"
	"github.com/scriptgrade/scriptgrade-api/internal/repository"
	"github.com/scriptgrade/scriptgrade-api/pkg/extract"
	"github.com/scriptgrade/scriptgrade-api/pkg/storage"
)

var (
	ErrEvaluationNotFound = errors.New("evaluation not found")
	ErrNotPDF             = errors.New("uploaded file is not a PDF")
	ErrQuestionNotFound   = errors.New("question not found")
)

// EvaluationService handles answer-sheet submission and evaluation reads.
type EvaluationService interface {
	Submit(ctx context.Context, req dto.EvaluationCreateRequest, filename string, file io.Reader) (dto.EvaluationResponse, error)
	List(ctx context.Context, filter repository.EvaluationFilter) ([]dto.EvaluationResponse, error)
	Get(ctx context.Context, id uint) (dto.EvaluationResponse, error)
}

type evaluationService struct {
	evaluations repository.EvaluationRepository
	questions   repository.QuestionRepository
	uploader    storage.Uploader
	extractor   extract.Extractor
	publisher   queue.Publisher
	logger      zerolog.Logger
}

// NewEvaluationService constructs the submission intake service.
func NewEvaluationService(evaluations repository.EvaluationRepository, questions repository.QuestionRepository, uploader storage.Uploader, extractor extract.Extractor, publisher queue.Publisher, logger zerolog.Logger) EvaluationService {
	return &evaluationService{
		evaluations: evaluations,
		questions:   questions,
		uploader:    uploader,
		extractor:   extractor,
		publisher:   publisher,
		logger:      logger.With().Str("component", "evaluation_service").Logger(),
	}
}

// Submit stores the answer PDF, extracts its text and records a pending
// evaluation, then enqueues it for grading. The grading itself happens later
// in a batch; callers poll the evaluation for its outcome.
func (s *evaluationService) Submit(ctx context.Context, req dto.EvaluationCreateRequest, filename string, file io.Reader) (dto.EvaluationResponse, error) {
	if _, err := s.questions.GetByID(ctx, req.QuestionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.EvaluationResponse{}, ErrQuestionNotFound
		}
		return dto.EvaluationResponse{}, fmt.Errorf("fetch question: %w", err)
	}

	payload, err := io.ReadAll(file)
	if err != nil {
		return dto.EvaluationResponse{}, fmt.Errorf("read upload: %w", err)
	}

	if !mimetype.Detect(payload).Is("application/pdf") {
		return dto.EvaluationResponse{}, ErrNotPDF
	}

	fileURL, err := s.uploader.Upload(ctx, filename, bytes.NewReader(payload))
	if err != nil {
		return dto.EvaluationResponse{}, fmt.Errorf("store answer pdf: %w", err)
	}

	answerText := s.extractor.ExtractText(ctx, fileURL)

	evaluation := models.Evaluation{
		StudentID:     req.StudentID,
		QuestionID:    req.QuestionID,
		QuestionSetID: req.QuestionSetID,
		AnswerPDFURL:  fileURL,
		AnswerText:    answerText,
		Status:        models.EvaluationStatusPending,
	}

	if err := s.evaluations.Create(ctx, &evaluation); err != nil {
		return dto.EvaluationResponse{}, fmt.Errorf("create evaluation: %w", err)
	}

	if err := s.publisher.PublishEvaluation(ctx, evaluation.ID); err != nil {
		// The evaluation stays pending; a later manual batch run can still
		// pick it up, so the submission itself does not fail.
		s.logger.Error().Err(err).Uint("evaluation_id", evaluation.ID).Msg("failed to enqueue evaluation")
	}

	s.logger.Info().Uint("evaluation_id", evaluation.ID).Uint("student_id", req.StudentID).
		Uint("question_id", req.QuestionID).Msg("evaluation submitted")

	return dto.NewEvaluationResponse(evaluation), nil
}

func (s *evaluationService) List(ctx context.Context, filter repository.EvaluationFilter) ([]dto.EvaluationResponse, error) {
	evaluations, err := s.evaluations.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}

	return dto.NewEvaluationResponseSlice(evaluations), nil
}

// Get returns one evaluation with its graded details and status history.
func (s *evaluationService) Get(ctx context.Context, id uint) (dto.EvaluationResponse, error) {
	evaluation, err := s.evaluations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.EvaluationResponse{}, ErrEvaluationNotFound
		}
		return dto.EvaluationResponse{}, fmt.Errorf("fetch evaluation: %w", err)
	}

	response := dto.NewEvaluationResponse(evaluation)

	details, err := s.evaluations.ListDetails(ctx, id)
	if err != nil {
		return dto.EvaluationResponse{}, fmt.Errorf("fetch evaluation details: %w", err)
	}
	response.Details = dto.NewEvaluationDetailResponseSlice(details)

	transitions, err := s.evaluations.ListTransitions(ctx, id)
	if err != nil {
		return dto.EvaluationResponse{}, fmt.Errorf("fetch evaluation transitions: %w", err)
	}
	response.Transitions = dto.NewEvaluationTransitionResponseSlice(transitions)

	return response, nil
}
