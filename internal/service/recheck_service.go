package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/scriptgrade/scriptgrade-api/internal/dto"
	"github.com/scriptgrade/scriptgrade-api/internal/models"
	"github.com/scriptgrade/scriptgrade-api/internal/repository"
)

var (
	ErrRecheckNotFound        = errors.New("recheck not found")
	ErrRecheckAlreadyResolved = errors.New("recheck already resolved")
	ErrEvaluationNotGraded    = errors.New("evaluation has no result to recheck")
	ErrNotEvaluationOwner     = errors.New("evaluation belongs to another student")
)

// RecheckService handles student appeals against completed evaluations.
type RecheckService interface {
	Create(ctx context.Context, studentID uint, req dto.RecheckCreateRequest) (dto.RecheckResponse, error)
	Respond(ctx context.Context, id, responderID uint, req dto.RecheckRespondRequest) (dto.RecheckResponse, error)
	ListPending(ctx context.Context) ([]dto.RecheckResponse, error)
}

type recheckService struct {
	rechecks    repository.RecheckRepository
	evaluations repository.EvaluationRepository
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
}

// NewRecheckService constructs the recheck service. User-entered issue and
// response text is stripped of markup before storage.
func NewRecheckService(rechecks repository.RecheckRepository, evaluations repository.EvaluationRepository, logger zerolog.Logger) RecheckService {
	return &recheckService{
		rechecks:    rechecks,
		evaluations: evaluations,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "recheck_service").Logger(),
	}
}

// Create files an appeal. Only the evaluation's own student may appeal, and
// only once the evaluation reached the completed status.
func (s *recheckService) Create(ctx context.Context, studentID uint, req dto.RecheckCreateRequest) (dto.RecheckResponse, error) {
	evaluation, err := s.evaluations.GetByID(ctx, req.EvaluationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RecheckResponse{}, ErrEvaluationNotFound
		}
		return dto.RecheckResponse{}, fmt.Errorf("fetch evaluation: %w", err)
	}

	if evaluation.StudentID != studentID {
		return dto.RecheckResponse{}, ErrNotEvaluationOwner
	}
	if evaluation.Status != models.EvaluationStatusCompleted {
		return dto.RecheckResponse{}, ErrEvaluationNotGraded
	}

	recheck := models.Recheck{
		EvaluationID: req.EvaluationID,
		IssueDetail:  s.sanitizer.Sanitize(req.IssueDetail),
	}

	if err := s.rechecks.Create(ctx, &recheck); err != nil {
		return dto.RecheckResponse{}, fmt.Errorf("create recheck: %w", err)
	}

	s.logger.Info().Uint("recheck_id", recheck.ID).Uint("evaluation_id", req.EvaluationID).Msg("recheck filed")

	recheck.Evaluation = evaluation
	return dto.NewRecheckResponse(recheck), nil
}

// Respond records a moderator's answer. A recheck accepts exactly one
// response.
func (s *recheckService) Respond(ctx context.Context, id, responderID uint, req dto.RecheckRespondRequest) (dto.RecheckResponse, error) {
	recheck, err := s.rechecks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RecheckResponse{}, ErrRecheckNotFound
		}
		return dto.RecheckResponse{}, fmt.Errorf("fetch recheck: %w", err)
	}

	if recheck.IsResolved() {
		return dto.RecheckResponse{}, ErrRecheckAlreadyResolved
	}

	response := s.sanitizer.Sanitize(req.ResponseDetail)
	now := time.Now()
	recheck.ResponderID = &responderID
	recheck.ResponseDetail = &response
	recheck.RespondedAt = &now

	if err := s.rechecks.Update(ctx, &recheck); err != nil {
		return dto.RecheckResponse{}, fmt.Errorf("update recheck: %w", err)
	}

	s.logger.Info().Uint("recheck_id", id).Uint("responder_id", responderID).Msg("recheck resolved")
	return dto.NewRecheckResponse(recheck), nil
}

func (s *recheckService) ListPending(ctx context.Context) ([]dto.RecheckResponse, error) {
	rechecks, err := s.rechecks.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending rechecks: %w", err)
	}

	return dto.NewRecheckResponseSlice(rechecks), nil
}
