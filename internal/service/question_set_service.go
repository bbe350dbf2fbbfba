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

var (
	ErrQuestionSetNotFound  = errors.New("question set not found")
	ErrNotSetOwner          = errors.New("question set belongs to another teacher")
	ErrQuestionAlreadyInSet = errors.New("question already in set")
	ErrQuestionNotInSet     = errors.New("question not in set")
)

// QuestionSetService handles question sets and tests.
type QuestionSetService interface {
	List(ctx context.Context, filter repository.QuestionSetFilter) ([]dto.QuestionSetResponse, error)
	Get(ctx context.Context, id uint) (dto.QuestionSetResponse, error)
	Create(ctx context.Context, teacherID uint, req dto.QuestionSetCreateRequest) (dto.QuestionSetResponse, error)
	Update(ctx context.Context, id, teacherID uint, req dto.QuestionSetUpdateRequest) (dto.QuestionSetResponse, error)
	Delete(ctx context.Context, id, teacherID uint) error
	AddQuestion(ctx context.Context, id, teacherID uint, req dto.QuestionSetAddQuestionRequest) (dto.QuestionSetResponse, error)
	AddQuestions(ctx context.Context, id, teacherID uint, req dto.QuestionSetAddQuestionsRequest) (dto.QuestionSetResponse, error)
	RemoveQuestion(ctx context.Context, id, teacherID, questionID uint) (dto.QuestionSetResponse, error)
}

type questionSetService struct {
	sets      repository.QuestionSetRepository
	questions repository.QuestionRepository
	subjects  repository.SubjectRepository
	logger    zerolog.Logger
}

// NewQuestionSetService constructs the question set service.
func NewQuestionSetService(sets repository.QuestionSetRepository, questions repository.QuestionRepository, subjects repository.SubjectRepository, logger zerolog.Logger) QuestionSetService {
	return &questionSetService{
		sets:      sets,
		questions: questions,
		subjects:  subjects,
		logger:    logger.With().Str("component", "question_set_service").Logger(),
	}
}

func (s *questionSetService) List(ctx context.Context, filter repository.QuestionSetFilter) ([]dto.QuestionSetResponse, error) {
	sets, err := s.sets.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list question sets: %w", err)
	}

	return dto.NewQuestionSetResponseSlice(sets), nil
}

func (s *questionSetService) Get(ctx context.Context, id uint) (dto.QuestionSetResponse, error) {
	set, err := s.fetch(ctx, id)
	if err != nil {
		return dto.QuestionSetResponse{}, err
	}

	return dto.NewQuestionSetResponse(set), nil
}

func (s *questionSetService) Create(ctx context.Context, teacherID uint, req dto.QuestionSetCreateRequest) (dto.QuestionSetResponse, error) {
	if _, err := s.subjects.GetByID(ctx, req.SubjectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.QuestionSetResponse{}, ErrSubjectNotFound
		}
		return dto.QuestionSetResponse{}, fmt.Errorf("fetch subject: %w", err)
	}

	set := models.QuestionSet{
		Name:        req.Name,
		Description: req.Description,
		SubjectID:   req.SubjectID,
		TeacherID:   teacherID,
		IsTest:      req.IsTest,
	}

	if err := s.sets.Create(ctx, &set); err != nil {
		return dto.QuestionSetResponse{}, fmt.Errorf("create question set: %w", err)
	}

	s.logger.Info().Uint("question_set_id", set.ID).Bool("is_test", set.IsTest).Msg("question set created")
	return s.Get(ctx, set.ID)
}

func (s *questionSetService) Update(ctx context.Context, id, teacherID uint, req dto.QuestionSetUpdateRequest) (dto.QuestionSetResponse, error) {
	set, err := s.fetchOwned(ctx, id, teacherID)
	if err != nil {
		return dto.QuestionSetResponse{}, err
	}

	set.Name = req.Name
	set.Description = req.Description
	set.SubjectID = req.SubjectID
	set.Entries = nil

	if err := s.sets.Update(ctx, &set); err != nil {
		return dto.QuestionSetResponse{}, fmt.Errorf("update question set: %w", err)
	}

	return s.Get(ctx, id)
}

func (s *questionSetService) Delete(ctx context.Context, id, teacherID uint) error {
	if _, err := s.fetchOwned(ctx, id, teacherID); err != nil {
		return err
	}

	if err := s.sets.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete question set: %w", err)
	}

	s.logger.Info().Uint("question_set_id", id).Msg("question set deleted")
	return nil
}

// AddQuestion inserts one question at the requested position, or appends
// when the position is zero.
func (s *questionSetService) AddQuestion(ctx context.Context, id, teacherID uint, req dto.QuestionSetAddQuestionRequest) (dto.QuestionSetResponse, error) {
	if _, err := s.fetchOwned(ctx, id, teacherID); err != nil {
		return dto.QuestionSetResponse{}, err
	}

	position := req.Position
	if position == 0 {
		max, err := s.sets.MaxPosition(ctx, id)
		if err != nil {
			return dto.QuestionSetResponse{}, fmt.Errorf("resolve position: %w", err)
		}
		position = max + 1
	}

	if err := s.addEntry(ctx, id, req.QuestionID, position); err != nil {
		return dto.QuestionSetResponse{}, err
	}

	return s.Get(ctx, id)
}

// AddQuestions appends several questions after the current last position,
// keeping the payload order.
func (s *questionSetService) AddQuestions(ctx context.Context, id, teacherID uint, req dto.QuestionSetAddQuestionsRequest) (dto.QuestionSetResponse, error) {
	if _, err := s.fetchOwned(ctx, id, teacherID); err != nil {
		return dto.QuestionSetResponse{}, err
	}

	max, err := s.sets.MaxPosition(ctx, id)
	if err != nil {
		return dto.QuestionSetResponse{}, fmt.Errorf("resolve position: %w", err)
	}

	for i, questionID := range req.QuestionIDs {
		if err := s.addEntry(ctx, id, questionID, max+1+i); err != nil {
			return dto.QuestionSetResponse{}, err
		}
	}

	return s.Get(ctx, id)
}

func (s *questionSetService) RemoveQuestion(ctx context.Context, id, teacherID, questionID uint) (dto.QuestionSetResponse, error) {
	if _, err := s.fetchOwned(ctx, id, teacherID); err != nil {
		return dto.QuestionSetResponse{}, err
	}

	present, err := s.sets.HasEntry(ctx, id, questionID)
	if err != nil {
		return dto.QuestionSetResponse{}, fmt.Errorf("check entry: %w", err)
	}
	if !present {
		return dto.QuestionSetResponse{}, ErrQuestionNotInSet
	}

	if err := s.sets.RemoveEntry(ctx, id, questionID); err != nil {
		return dto.QuestionSetResponse{}, fmt.Errorf("remove entry: %w", err)
	}

	return s.Get(ctx, id)
}

func (s *questionSetService) addEntry(ctx context.Context, setID, questionID uint, position int) error {
	if _, err := s.questions.GetByID(ctx, questionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("fetch question: %w", err)
	}

	present, err := s.sets.HasEntry(ctx, setID, questionID)
	if err != nil {
		return fmt.Errorf("check entry: %w", err)
	}
	if present {
		return ErrQuestionAlreadyInSet
	}

	entry := models.QuestionSetEntry{
		QuestionSetID: setID,
		QuestionID:    questionID,
		Position:      position,
	}

	if err := s.sets.AddEntry(ctx, &entry); err != nil {
		return fmt.Errorf("add entry: %w", err)
	}

	return nil
}

func (s *questionSetService) fetch(ctx context.Context, id uint) (models.QuestionSet, error) {
	set, err := s.sets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.QuestionSet{}, ErrQuestionSetNotFound
		}
		return models.QuestionSet{}, fmt.Errorf("fetch question set: %w", err)
	}

	return set, nil
}

func (s *questionSetService) fetchOwned(ctx context.Context, id, teacherID uint) (models.QuestionSet, error) {
	set, err := s.fetch(ctx, id)
	if err != nil {
		return models.QuestionSet{}, err
	}
	if set.TeacherID != teacherID {
		return models.QuestionSet{}, ErrNotSetOwner
	}

	return set, nil
}
