package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scriptgrade/scriptgrade-api/internal/dto"
	"github.com/scriptgrade/scriptgrade-api/internal/models"
)

func questionSetFixture(t *testing.T) (QuestionSetService, *fakeQuestionRepo) {
	t.Helper()
	subjects := newFakeSubjectRepo(models.Subject{ID: 1, Name: "Biology"})
	questions := newFakeQuestionRepo(
		twoItemQuestion(),
		models.Question{ID: 11, QuestionText: "Define osmosis.", RubricItems: []models.RubricItem{
			{ID: 111, QuestionID: 11, CriterionText: "Definition", Marks: 5, SerialNumber: 1},
		}},
	)
	return NewQuestionSetService(newFakeQuestionSetRepo(), questions, subjects, testLogger()), questions
}

func TestQuestionSetAddAndRemoveQuestions(t *testing.T) {
	svc, _ := questionSetFixture(t)

	created, err := svc.Create(context.Background(), 5, dto.QuestionSetCreateRequest{
		Name:      "Biology Midterm",
		SubjectID: 1,
		IsTest:    true,
	})
	require.NoError(t, err)
	require.True(t, created.IsTest)

	withBoth, err := svc.AddQuestions(context.Background(), created.ID, 5, dto.QuestionSetAddQuestionsRequest{
		QuestionIDs: []uint{10, 11},
	})
	require.NoError(t, err)
	require.Len(t, withBoth.Questions, 2)
	require.Equal(t, 1, withBoth.Questions[0].Position)
	require.Equal(t, 2, withBoth.Questions[1].Position)

	_, err = svc.AddQuestion(context.Background(), created.ID, 5, dto.QuestionSetAddQuestionRequest{QuestionID: 10})
	require.ErrorIs(t, err, ErrQuestionAlreadyInSet)

	reduced, err := svc.RemoveQuestion(context.Background(), created.ID, 5, 10)
	require.NoError(t, err)
	require.Len(t, reduced.Questions, 1)
	require.Equal(t, uint(11), reduced.Questions[0].QuestionID)

	_, err = svc.RemoveQuestion(context.Background(), created.ID, 5, 10)
	require.ErrorIs(t, err, ErrQuestionNotInSet)
}

func TestQuestionSetOwnership(t *testing.T) {
	svc, _ := questionSetFixture(t)

	created, err := svc.Create(context.Background(), 5, dto.QuestionSetCreateRequest{
		Name:      "Practice Set",
		SubjectID: 1,
	})
	require.NoError(t, err)

	_, err = svc.AddQuestion(context.Background(), created.ID, 6, dto.QuestionSetAddQuestionRequest{QuestionID: 10})
	require.ErrorIs(t, err, ErrNotSetOwner)

	err = svc.Delete(context.Background(), created.ID, 6)
	require.ErrorIs(t, err, ErrNotSetOwner)

	err = svc.Delete(context.Background(), created.ID, 5)
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), created.ID)
	require.ErrorIs(t, err, ErrQuestionSetNotFound)
}

func TestQuestionSetAddUnknownQuestion(t *testing.T) {
	svc, _ := questionSetFixture(t)

	created, err := svc.Create(context.Background(), 5, dto.QuestionSetCreateRequest{
		Name:      "Practice Set",
		SubjectID: 1,
	})
	require.NoError(t, err)

	_, err = svc.AddQuestion(context.Background(), created.ID, 5, dto.QuestionSetAddQuestionRequest{QuestionID: 99})
	require.ErrorIs(t, err, ErrQuestionNotFound)
}
