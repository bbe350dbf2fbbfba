package service

import (
	"context"
	"io"
	"sort"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/scriptgrade/scriptgrade-api/internal/models"
	"github.com/scriptgrade/scriptgrade-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// fakeEvaluationRepo is an in-memory EvaluationRepository that records
// status transitions the way the real repository does.
type fakeEvaluationRepo struct {
	evaluations map[uint]*models.Evaluation
	details     map[uint][]models.EvaluationDetail
	transitions map[uint][]models.EvaluationTransition

	completeErr error
	markFailErr error
}

func newFakeEvaluationRepo(evaluations ...models.Evaluation) *fakeEvaluationRepo {
	repo := &fakeEvaluationRepo{
		evaluations: make(map[uint]*models.Evaluation),
		details:     make(map[uint][]models.EvaluationDetail),
		transitions: make(map[uint][]models.EvaluationTransition),
	}
	for i := range evaluations {
		evaluation := evaluations[i]
		repo.evaluations[evaluation.ID] = &evaluation
	}
	return repo
}

func (f *fakeEvaluationRepo) List(_ context.Context, filter repository.EvaluationFilter) ([]models.Evaluation, error) {
	ids := make([]uint, 0, len(f.evaluations))
	for id := range f.evaluations {
		ids = append(ids, id)
	}
	// Newest first, like the real repository.
	sort.Slice(ids, func(i, j int) bool {
		a, b := f.evaluations[ids[i]], f.evaluations[ids[j]]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})

	out := make([]models.Evaluation, 0, len(ids))
	for _, id := range ids {
		evaluation := *f.evaluations[id]
		if filter.StudentID != nil && evaluation.StudentID != *filter.StudentID {
			continue
		}
		if filter.QuestionID != nil && evaluation.QuestionID != *filter.QuestionID {
			continue
		}
		if filter.QuestionSetID != nil && (evaluation.QuestionSetID == nil || *evaluation.QuestionSetID != *filter.QuestionSetID) {
			continue
		}
		if filter.Status != nil && evaluation.Status != *filter.Status {
			continue
		}
		out = append(out, evaluation)
	}
	return out, nil
}

func (f *fakeEvaluationRepo) GetByID(_ context.Context, id uint) (models.Evaluation, error) {
	evaluation, ok := f.evaluations[id]
	if !ok {
		return models.Evaluation{}, gorm.ErrRecordNotFound
	}
	return *evaluation, nil
}

func (f *fakeEvaluationRepo) Create(_ context.Context, evaluation *models.Evaluation) error {
	evaluation.ID = uint(len(f.evaluations) + 1)
	clone := *evaluation
	f.evaluations[evaluation.ID] = &clone
	return nil
}

func (f *fakeEvaluationRepo) SetProcessing(_ context.Context, id uint) error {
	evaluation, ok := f.evaluations[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	f.transitions[id] = append(f.transitions[id], models.EvaluationTransition{
		EvaluationID: id,
		FromStatus:   evaluation.Status,
		ToStatus:     models.EvaluationStatusProcessing,
	})
	evaluation.Status = models.EvaluationStatusProcessing
	return nil
}

func (f *fakeEvaluationRepo) CompleteWithDetails(_ context.Context, id uint, totalScore float64, report string, details []models.EvaluationDetail) error {
	if f.completeErr != nil {
		return f.completeErr
	}
	evaluation, ok := f.evaluations[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	f.transitions[id] = append(f.transitions[id], models.EvaluationTransition{
		EvaluationID: id,
		FromStatus:   evaluation.Status,
		ToStatus:     models.EvaluationStatusCompleted,
	})
	evaluation.Status = models.EvaluationStatusCompleted
	evaluation.TotalScore = &totalScore
	evaluation.Report = report
	evaluation.FailureReason = ""
	f.details[id] = details
	return nil
}

func (f *fakeEvaluationRepo) MarkFailed(_ context.Context, id uint, reason string) error {
	if f.markFailErr != nil {
		return f.markFailErr
	}
	evaluation, ok := f.evaluations[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	f.transitions[id] = append(f.transitions[id], models.EvaluationTransition{
		EvaluationID: id,
		FromStatus:   evaluation.Status,
		ToStatus:     models.EvaluationStatusFailed,
		Reason:       reason,
	})
	evaluation.Status = models.EvaluationStatusFailed
	evaluation.FailureReason = reason
	return nil
}

func (f *fakeEvaluationRepo) ListDetails(_ context.Context, evaluationID uint) ([]models.EvaluationDetail, error) {
	return f.details[evaluationID], nil
}

func (f *fakeEvaluationRepo) ListTransitions(_ context.Context, evaluationID uint) ([]models.EvaluationTransition, error) {
	return f.transitions[evaluationID], nil
}

func (f *fakeEvaluationRepo) ObtainedMarks(_ context.Context, studentID, questionID, questionSetID uint) (float64, error) {
	var latest *models.Evaluation
	for _, evaluation := range f.evaluations {
		if evaluation.StudentID != studentID || evaluation.QuestionID != questionID {
			continue
		}
		if evaluation.QuestionSetID == nil || *evaluation.QuestionSetID != questionSetID {
			continue
		}
		if evaluation.Status != models.EvaluationStatusCompleted {
			continue
		}
		if latest == nil || evaluation.CreatedAt.After(latest.CreatedAt) ||
			(evaluation.CreatedAt.Equal(latest.CreatedAt) && evaluation.ID > latest.ID) {
			latest = evaluation
		}
	}
	if latest == nil {
		return 0, nil
	}

	total := 0.0
	for _, detail := range f.details[latest.ID] {
		total += detail.ObtainedMarks
	}
	return total, nil
}

// fakeQuestionRepo is an in-memory QuestionRepository.
type fakeQuestionRepo struct {
	questions map[uint]models.Question
}

func newFakeQuestionRepo(questions ...models.Question) *fakeQuestionRepo {
	repo := &fakeQuestionRepo{questions: make(map[uint]models.Question)}
	for _, question := range questions {
		repo.questions[question.ID] = question
	}
	return repo
}

func (f *fakeQuestionRepo) List(_ context.Context, _ repository.QuestionFilter) ([]models.Question, error) {
	ids := make([]uint, 0, len(f.questions))
	for id := range f.questions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]models.Question, 0, len(ids))
	for _, id := range ids {
		out = append(out, f.questions[id])
	}
	return out, nil
}

func (f *fakeQuestionRepo) GetByID(_ context.Context, id uint) (models.Question, error) {
	question, ok := f.questions[id]
	if !ok {
		return models.Question{}, gorm.ErrRecordNotFound
	}
	return question, nil
}

func (f *fakeQuestionRepo) Create(_ context.Context, question *models.Question) error {
	question.ID = uint(len(f.questions) + 1)
	for i := range question.RubricItems {
		question.RubricItems[i].ID = uint(i + 1)
		question.RubricItems[i].QuestionID = question.ID
	}
	f.questions[question.ID] = *question
	return nil
}

func (f *fakeQuestionRepo) Update(_ context.Context, question *models.Question) error {
	if _, ok := f.questions[question.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	f.questions[question.ID] = *question
	return nil
}

func (f *fakeQuestionRepo) Delete(_ context.Context, id uint) error {
	delete(f.questions, id)
	return nil
}

func (f *fakeQuestionRepo) ListRubricItems(_ context.Context, questionID uint) ([]models.RubricItem, error) {
	question, ok := f.questions[questionID]
	if !ok {
		return nil, nil
	}
	return question.RubricItems, nil
}

func (f *fakeQuestionRepo) ReplaceRubricItems(_ context.Context, questionID uint, items []models.RubricItem) error {
	question, ok := f.questions[questionID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for i := range items {
		items[i].QuestionID = questionID
	}
	question.RubricItems = items
	f.questions[questionID] = question
	return nil
}
