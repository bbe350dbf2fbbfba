package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/scriptgrade/scriptgrade-api/internal/dto"
	"github.com/scriptgrade/scriptgrade-api/internal/models"
	"github.com/scriptgrade/scriptgrade-api/internal/repository"
)

var ErrNotQuestionOwner = errors.New("question belongs to another teacher")

// QuestionService handles question authoring with itemized rubrics.
type QuestionService interface {
	List(ctx context.Context, filter repository.QuestionFilter) ([]dto.QuestionResponse, error)
	Get(ctx context.Context, id uint) (dto.QuestionResponse, error)
	Create(ctx context.Context, teacherID uint, req dto.QuestionCreateRequest) (dto.QuestionResponse, error)
	Update(ctx context.Context, id, teacherID uint, req dto.QuestionUpdateRequest) (dto.QuestionResponse, error)
	Delete(ctx context.Context, id, teacherID uint) error
}

type questionService struct {
	questions repository.QuestionRepository
	subjects  repository.SubjectRepository
	logger    zerolog.Logger
}

// NewQuestionService constructs the question service.
func NewQuestionService(questions repository.QuestionRepository, subjects repository.SubjectRepository, logger zerolog.Logger) QuestionService {
	return &questionService{
		questions: questions,
		subjects:  subjects,
		logger:    logger.With().Str("component", "question_service").Logger(),
	}
}

func (s *questionService) List(ctx context.Context, filter repository.QuestionFilter) ([]dto.QuestionResponse, error) {
	questions, err := s.questions.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	return dto.NewQuestionResponseSlice(questions), nil
}

func (s *questionService) Get(ctx context.Context, id uint) (dto.QuestionResponse, error) {
	question, err := s.fetch(ctx, id)
	if err != nil {
		return dto.QuestionResponse{}, err
	}

	return dto.NewQuestionResponse(question), nil
}

// Create stores a question together with its rubric items. Serial numbers
// come from the payload order so grading results can later be aligned by
// position.
func (s *questionService) Create(ctx context.Context, teacherID uint, req dto.QuestionCreateRequest) (dto.QuestionResponse, error) {
	if _, err := s.subjects.GetByID(ctx, req.SubjectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.QuestionResponse{}, ErrSubjectNotFound
		}
		return dto.QuestionResponse{}, fmt.Errorf("fetch subject: %w", err)
	}

	question := models.Question{
		SubjectID:    req.SubjectID,
		TeacherID:    teacherID,
		QuestionText: req.QuestionText,
		RubricItems:  rubricItemsFromPayload(req.RubricItems),
	}

	if err := s.questions.Create(ctx, &question); err != nil {
		return dto.QuestionResponse{}, fmt.Errorf("create question: %w", err)
	}

	s.logger.Info().Uint("question_id", question.ID).Uint("teacher_id", teacherID).
		Int("rubric_items", len(question.RubricItems)).Msg("question created")

	return s.Get(ctx, question.ID)
}

// Update rewrites the question text and replaces the whole rubric. Partial
// rubric edits are not supported; the client resubmits the full item list.
func (s *questionService) Update(ctx context.Context, id, teacherID uint, req dto.QuestionUpdateRequest) (dto.QuestionResponse, error) {
	question, err := s.fetch(ctx, id)
	if err != nil {
		return dto.QuestionResponse{}, err
	}
	if question.TeacherID != teacherID {
		return dto.QuestionResponse{}, ErrNotQuestionOwner
	}

	question.QuestionText = req.QuestionText
	question.RubricItems = nil
	if err := s.questions.Update(ctx, &question); err != nil {
		return dto.QuestionResponse{}, fmt.Errorf("update question: %w", err)
	}

	if err := s.questions.ReplaceRubricItems(ctx, id, rubricItemsFromPayload(req.RubricItems)); err != nil {
		return dto.QuestionResponse{}, fmt.Errorf("replace rubric items: %w", err)
	}

	return s.Get(ctx, id)
}

func (s *questionService) Delete(ctx context.Context, id, teacherID uint) error {
	question, err := s.fetch(ctx, id)
	if err != nil {
		return err
	}
	if question.TeacherID != teacherID {
		return ErrNotQuestionOwner
	}

	if err := s.questions.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete question: %w", err)
	}

	s.logger.Info().Uint("question_id", id).Msg("question deleted")
	return nil
}

func (s *questionService) fetch(ctx context.Context, id uint) (models.Question, error) {
	question, err := s.questions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Question{}, ErrQuestionNotFound
		}
		return models.Question{}, fmt.Errorf("fetch question: %w", err)
	}

	return question, nil
}

func rubricItemsFromPayload(payload []dto.RubricItemPayload) []models.RubricItem {
	items := make([]models.RubricItem, 0, len(payload))
	for i, item := range payload {
		items = append(items, models.RubricItem{
			CriterionText: item.CriterionText,
			Marks:         item.Marks,
			SerialNumber:  i + 1,
		})
	}

	return items
}
