package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/scriptgrade/scriptgrade-api/internal/dto"
	"github.com/scriptgrade/scriptgrade-api/internal/grading"
	"github.com/scriptgrade/scriptgrade-api/internal/models"
	"github.com/scriptgrade/scriptgrade-api/internal/observability"
	"github.com/scriptgrade/scriptgrade-api/internal/repository"
	"github.com/scriptgrade/scriptgrade-api/pkg/grader"
)

// GradingClient sends one batch of grading requests to the external LLM
// grading service. Implemented by pkg/grader.
type GradingClient interface {
	GradeBatch(ctx context.Context, requests []grader.Request) ([][]grader.Tuple, error)
}

// BatchEvaluationService grades many evaluations in one grading-service
// round trip.
type BatchEvaluationService interface {
	EvaluateBatch(ctx context.Context, evaluationIDs []uint) (dto.BatchEvaluationResponse, error)
}

type batchEvaluationService struct {
	evaluations repository.EvaluationRepository
	questions   repository.QuestionRepository
	grader      GradingClient
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// batchEntry tracks one evaluation that made it into the outbound batch,
// keyed by the batch index its results come back under.
type batchEntry struct {
	evaluationID uint
	rubricItems  []models.RubricItem
}

// NewBatchEvaluationService constructs the batch grading orchestrator.
func NewBatchEvaluationService(evaluations repository.EvaluationRepository, questions repository.QuestionRepository, gradingClient GradingClient, logger zerolog.Logger) BatchEvaluationService {
	return &batchEvaluationService{
		evaluations: evaluations,
		questions:   questions,
		grader:      gradingClient,
		logger:      logger.With().Str("component", "batch_evaluation_service").Logger(),
		tracer:      otel.Tracer("github.com/scriptgrade/scriptgrade-api/internal/service/batch_evaluation"),
	}
}

// EvaluateBatch fetches data for every requested evaluation, sends all
// resolvable ones to the grading service in a single request, reconciles the
// combined response back into per-evaluation slices and commits each slice
// independently. One evaluation's failure never aborts its siblings: data
// problems fail an evaluation before the network call, persistence problems
// fail it after, and only a whole-call failure fails everything that was
// sent.
func (s *batchEvaluationService) EvaluateBatch(parent context.Context, evaluationIDs []uint) (dto.BatchEvaluationResponse, error) {
	ctx, span := s.tracer.Start(parent, "evaluation.batch", trace.WithAttributes(
		attribute.Int("batch.requested", len(evaluationIDs)),
	))
	defer span.End()

	observability.BatchSize().Observe(float64(len(evaluationIDs)))
	s.logger.Info().Int("count", len(evaluationIDs)).Msg("processing batch evaluation")

	successful := make([]uint, 0, len(evaluationIDs))
	failed := make(map[uint]string)

	batch := make([]grader.Request, 0, len(evaluationIDs))
	entries := make([]batchEntry, 0, len(evaluationIDs))

	for _, evaluationID := range evaluationIDs {
		request, items, reason := s.fetchEvaluationData(ctx, evaluationID)
		if reason != "" {
			failed[evaluationID] = reason
			observability.EvaluationsProcessed().WithLabelValues("failed").Inc()
			continue
		}

		batch = append(batch, request)
		entries = append(entries, batchEntry{evaluationID: evaluationID, rubricItems: items})
	}

	if len(batch) == 0 {
		s.logger.Warn().Msg("no valid evaluations to process")
		return dto.BatchEvaluationResponse{
			Successful: successful,
			Failed:     failed,
			Message:    "No valid evaluations to process",
		}, nil
	}

	span.SetAttributes(attribute.Int("batch.sent", len(batch)))
	s.logger.Info().Int("count", len(batch)).Msg("sending batch to grading service")

	results, err := s.grader.GradeBatch(ctx, batch)
	if err != nil {
		// The whole round trip failed, so every evaluation that was sent
		// fails together.
		span.RecordError(err)
		span.SetStatus(codes.Error, "grading_call_failed")
		reason := gradingFailureReason(err)
		for _, entry := range entries {
			failed[entry.evaluationID] = reason
			s.markFailed(ctx, entry.evaluationID, reason)
			observability.EvaluationsProcessed().WithLabelValues("failed").Inc()
		}

		return dto.BatchEvaluationResponse{
			Successful: successful,
			Failed:     failed,
			Message:    reason,
		}, nil
	}

	for i, entry := range entries {
		if reason, ok := s.commitEvaluation(ctx, entry, results[i]); !ok {
			failed[entry.evaluationID] = reason
			observability.EvaluationsProcessed().WithLabelValues("failed").Inc()
			continue
		}

		successful = append(successful, entry.evaluationID)
		observability.EvaluationsProcessed().WithLabelValues("succeeded").Inc()
		s.logger.Info().Uint("evaluation_id", entry.evaluationID).Msg("evaluation completed")
	}

	span.SetAttributes(
		attribute.Int("batch.succeeded", len(successful)),
		attribute.Int("batch.failed", len(failed)),
	)

	message := fmt.Sprintf("Batch evaluation completed. Success: %d/%d, Failed: %d/%d",
		len(successful), len(evaluationIDs), len(failed), len(evaluationIDs))

	return dto.BatchEvaluationResponse{
		Successful: successful,
		Failed:     failed,
		Message:    message,
	}, nil
}

// fetchEvaluationData resolves everything one evaluation needs before it can
// be sent for grading. A non-empty reason means the evaluation failed before
// reaching the network call.
func (s *batchEvaluationService) fetchEvaluationData(ctx context.Context, evaluationID uint) (grader.Request, []models.RubricItem, string) {
	evaluation, err := s.evaluations.GetByID(ctx, evaluationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return grader.Request{}, nil, "Evaluation not found"
		}
		s.logger.Error().Err(err).Uint("evaluation_id", evaluationID).Msg("failed to fetch evaluation")
		return grader.Request{}, nil, fmt.Sprintf("Data fetch error: %s", err)
	}

	if evaluation.Question.ID == 0 {
		return grader.Request{}, nil, "Question not found"
	}

	items, err := s.questions.ListRubricItems(ctx, evaluation.QuestionID)
	if err != nil {
		s.logger.Error().Err(err).Uint("evaluation_id", evaluationID).Msg("failed to fetch rubric items")
		return grader.Request{}, nil, fmt.Sprintf("Data fetch error: %s", err)
	}

	if len(items) == 0 {
		return grader.Request{}, nil, "No rubrics found for question"
	}

	if err := s.evaluations.SetProcessing(ctx, evaluationID); err != nil {
		s.logger.Warn().Err(err).Uint("evaluation_id", evaluationID).Msg("failed to mark evaluation processing")
	}

	return grader.Request{
		Question: evaluation.Question.QuestionText,
		Answer:   evaluation.AnswerText,
		Rubric:   grading.RenderRubric(items),
	}, items, ""
}

// commitEvaluation reconciles one evaluation's slice of the batch response
// and persists it. Returns the failure reason when persistence fails.
func (s *batchEvaluationService) commitEvaluation(ctx context.Context, entry batchEntry, tuples []grader.Tuple) (string, bool) {
	results := make([]grading.Result, 0, len(tuples))
	for _, tuple := range tuples {
		results = append(results, grading.Result{
			Label:       tuple.Label,
			Score:       tuple.Score,
			Total:       tuple.Total,
			Explanation: tuple.Explanation,
		})
	}

	outcome := grading.Reconcile(entry.rubricItems, results)
	if outcome.Skipped > 0 {
		observability.AlignmentWarnings().WithLabelValues("extra_results").Add(float64(outcome.Skipped))
		s.logger.Warn().Uint("evaluation_id", entry.evaluationID).Int("skipped", outcome.Skipped).
			Msg("grading service returned more results than rubric items")
	}
	if outcome.Ungraded > 0 {
		observability.AlignmentWarnings().WithLabelValues("ungraded_items").Add(float64(outcome.Ungraded))
		s.logger.Warn().Uint("evaluation_id", entry.evaluationID).Int("ungraded", outcome.Ungraded).
			Msg("grading service returned fewer results than rubric items")
	}

	details := make([]models.EvaluationDetail, 0, len(outcome.Details))
	for _, detail := range outcome.Details {
		details = append(details, models.EvaluationDetail{
			RubricItemID:   detail.RubricItemID,
			ObtainedMarks:  detail.ObtainedMarks,
			DetailedResult: detail.DetailedResult,
			SerialNumber:   detail.SerialNumber,
			Raw:            detail.Raw,
		})
	}

	if err := s.evaluations.CompleteWithDetails(ctx, entry.evaluationID, outcome.TotalScore, outcome.Report, details); err != nil {
		s.logger.Error().Err(err).Uint("evaluation_id", entry.evaluationID).Msg("failed to persist evaluation results")
		reason := fmt.Sprintf("Database update error: %s", err)
		s.markFailed(ctx, entry.evaluationID, reason)
		return reason, false
	}

	return "", true
}

// markFailed is the compensating write after a rollback or a grading-call
// failure. It may itself fail; that is logged and counted, never surfaced.
func (s *batchEvaluationService) markFailed(ctx context.Context, evaluationID uint, reason string) {
	if err := s.evaluations.MarkFailed(ctx, evaluationID, reason); err != nil {
		observability.CompensationFailures().Inc()
		s.logger.Error().Err(err).Uint("evaluation_id", evaluationID).Msg("could not mark evaluation failed")
	}
}

func gradingFailureReason(err error) string {
	var statusErr *grader.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Error()
	}

	var shapeErr *grader.ShapeError
	if errors.As(err, &shapeErr) {
		return shapeErr.Error()
	}

	return fmt.Sprintf("API communication error: %s", err)
}
