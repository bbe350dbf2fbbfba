package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/scriptgrade/scriptgrade-api/internal/dto"
	"github.com/scriptgrade/scriptgrade-api/internal/models"
)

type fakeSubjectRepo struct {
	subjects map[uint]models.Subject
}

func newFakeSubjectRepo(subjects ...models.Subject) *fakeSubjectRepo {
	repo := &fakeSubjectRepo{subjects: make(map[uint]models.Subject)}
	for _, subject := range subjects {
		repo.subjects[subject.ID] = subject
	}
	return repo
}

func (f *fakeSubjectRepo) List(_ context.Context) ([]models.Subject, error) {
	out := make([]models.Subject, 0, len(f.subjects))
	for _, subject := range f.subjects {
		out = append(out, subject)
	}
	return out, nil
}

func (f *fakeSubjectRepo) GetByID(_ context.Context, id uint) (models.Subject, error) {
	subject, ok := f.subjects[id]
	if !ok {
		return models.Subject{}, gorm.ErrRecordNotFound
	}
	return subject, nil
}

func (f *fakeSubjectRepo) Create(_ context.Context, subject *models.Subject) error {
	subject.ID = uint(len(f.subjects) + 1)
	f.subjects[subject.ID] = *subject
	return nil
}

func (f *fakeSubjectRepo) Update(_ context.Context, subject *models.Subject) error {
	f.subjects[subject.ID] = *subject
	return nil
}

func (f *fakeSubjectRepo) Delete(_ context.Context, id uint) error {
	delete(f.subjects, id)
	return nil
}

func TestQuestionCreateAssignsSerialNumbers(t *testing.T) {
	subjects := newFakeSubjectRepo(models.Subject{ID: 1, Name: "Biology"})
	questions := newFakeQuestionRepo()
	svc := NewQuestionService(questions, subjects, testLogger())

	resp, err := svc.Create(context.Background(), 5, dto.QuestionCreateRequest{
		SubjectID:    1,
		QuestionText: "Explain photosynthesis.",
		RubricItems: []dto.RubricItemPayload{
			{CriterionText: "Names the inputs", Marks: 2},
			{CriterionText: "Describes the light reactions", Marks: 3},
			{CriterionText: "Mentions the Calvin cycle", Marks: 1},
		},
	})
	require.NoError(t, err)
	require.Equal(t, uint(5), resp.TeacherID)
	require.Len(t, resp.RubricItems, 3)
	for i, item := range resp.RubricItems {
		require.Equal(t, i+1, item.SerialNumber)
	}
	require.InDelta(t, 6.0, resp.TotalMarks, 1e-9)
}

func TestQuestionCreateUnknownSubject(t *testing.T) {
	svc := NewQuestionService(newFakeQuestionRepo(), newFakeSubjectRepo(), testLogger())

	_, err := svc.Create(context.Background(), 5, dto.QuestionCreateRequest{
		SubjectID:    42,
		QuestionText: "Orphan question",
		RubricItems:  []dto.RubricItemPayload{{CriterionText: "Anything", Marks: 1}},
	})
	require.ErrorIs(t, err, ErrSubjectNotFound)
}

func TestQuestionUpdateReplacesRubric(t *testing.T) {
	subjects := newFakeSubjectRepo(models.Subject{ID: 1, Name: "Biology"})
	questions := newFakeQuestionRepo()
	svc := NewQuestionService(questions, subjects, testLogger())

	created, err := svc.Create(context.Background(), 5, dto.QuestionCreateRequest{
		SubjectID:    1,
		QuestionText: "Explain photosynthesis.",
		RubricItems: []dto.RubricItemPayload{
			{CriterionText: "Names the inputs", Marks: 2},
			{CriterionText: "Describes the light reactions", Marks: 3},
		},
	})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), created.ID, 5, dto.QuestionUpdateRequest{
		QuestionText: "Explain photosynthesis in detail.",
		RubricItems: []dto.RubricItemPayload{
			{CriterionText: "Full chemical equation", Marks: 4},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "Explain photosynthesis in detail.", updated.QuestionText)
	require.Len(t, updated.RubricItems, 1)
	require.Equal(t, 1, updated.RubricItems[0].SerialNumber)
	require.InDelta(t, 4.0, updated.TotalMarks, 1e-9)
}

func TestQuestionUpdateEnforcesOwnership(t *testing.T) {
	subjects := newFakeSubjectRepo(models.Subject{ID: 1, Name: "Biology"})
	questions := newFakeQuestionRepo()
	svc := NewQuestionService(questions, subjects, testLogger())

	created, err := svc.Create(context.Background(), 5, dto.QuestionCreateRequest{
		SubjectID:    1,
		QuestionText: "Explain photosynthesis.",
		RubricItems:  []dto.RubricItemPayload{{CriterionText: "Anything", Marks: 1}},
	})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), created.ID, 6, dto.QuestionUpdateRequest{
		QuestionText: "Hijacked",
		RubricItems:  []dto.RubricItemPayload{{CriterionText: "Nope at all", Marks: 1}},
	})
	require.ErrorIs(t, err, ErrNotQuestionOwner)

	err = svc.Delete(context.Background(), created.ID, 6)
	require.ErrorIs(t, err, ErrNotQuestionOwner)
}
