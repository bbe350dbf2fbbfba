package service

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scriptgrade/scriptgrade-api/internal/dto"
	"github.com/scriptgrade/scriptgrade-api/internal/models"
)

type stubUploader struct {
	uploads int
	err     error
}

func (s *stubUploader) Upload(_ context.Context, name string, reader io.Reader) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.uploads++
	return "https://files.example.com/" + name, nil
}

type stubExtractor struct {
	text string
}

func (s stubExtractor) ExtractText(_ context.Context, _ string) string {
	return s.text
}

type stubPublisher struct {
	published []uint
	err       error
}

func (s *stubPublisher) PublishEvaluation(_ context.Context, evaluationID uint) error {
	if s.err != nil {
		return s.err
	}
	s.published = append(s.published, evaluationID)
	return nil
}

var pdfPayload = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n%%EOF\n")

func TestSubmitCreatesPendingEvaluation(t *testing.T) {
	question := twoItemQuestion()
	evalRepo := newFakeEvaluationRepo()
	questionRepo := newFakeQuestionRepo(question)
	uploader := &stubUploader{}
	publisher := &stubPublisher{}

	svc := NewEvaluationService(evalRepo, questionRepo, uploader, stubExtractor{text: "extracted answer"}, publisher, testLogger())

	resp, err := svc.Submit(context.Background(), dto.EvaluationCreateRequest{
		StudentID:  7,
		QuestionID: question.ID,
	}, "answer.pdf", bytes.NewReader(pdfPayload))
	require.NoError(t, err)

	require.Equal(t, models.EvaluationStatusPending, resp.Status)
	require.Equal(t, "extracted answer", resp.AnswerText)
	require.Equal(t, "https://files.example.com/answer.pdf", resp.AnswerPDFURL)
	require.Equal(t, 1, uploader.uploads)
	require.Equal(t, []uint{resp.ID}, publisher.published)
}

func TestSubmitRejectsNonPDF(t *testing.T) {
	question := twoItemQuestion()
	evalRepo := newFakeEvaluationRepo()
	uploader := &stubUploader{}

	svc := NewEvaluationService(evalRepo, newFakeQuestionRepo(question), uploader, stubExtractor{}, &stubPublisher{}, testLogger())

	_, err := svc.Submit(context.Background(), dto.EvaluationCreateRequest{
		StudentID:  7,
		QuestionID: question.ID,
	}, "answer.txt", bytes.NewReader([]byte("plain text, not a pdf")))
	require.ErrorIs(t, err, ErrNotPDF)
	require.Equal(t, 0, uploader.uploads)
	require.Empty(t, evalRepo.evaluations)
}

func TestSubmitUnknownQuestion(t *testing.T) {
	svc := NewEvaluationService(newFakeEvaluationRepo(), newFakeQuestionRepo(), &stubUploader{}, stubExtractor{}, &stubPublisher{}, testLogger())

	_, err := svc.Submit(context.Background(), dto.EvaluationCreateRequest{
		StudentID:  7,
		QuestionID: 42,
	}, "answer.pdf", bytes.NewReader(pdfPayload))
	require.ErrorIs(t, err, ErrQuestionNotFound)
}

func TestSubmitSurvivesQueueFailure(t *testing.T) {
	question := twoItemQuestion()
	evalRepo := newFakeEvaluationRepo()
	publisher := &stubPublisher{err: context.DeadlineExceeded}

	svc := NewEvaluationService(evalRepo, newFakeQuestionRepo(question), &stubUploader{}, stubExtractor{}, publisher, testLogger())

	resp, err := svc.Submit(context.Background(), dto.EvaluationCreateRequest{
		StudentID:  7,
		QuestionID: question.ID,
	}, "answer.pdf", bytes.NewReader(pdfPayload))
	require.NoError(t, err)
	require.Equal(t, models.EvaluationStatusPending, resp.Status)
	require.Empty(t, publisher.published)
}

func TestGetIncludesDetailsAndTransitions(t *testing.T) {
	question := twoItemQuestion()
	evaluation := pendingEvaluation(1, question)
	evalRepo := newFakeEvaluationRepo(evaluation)
	require.NoError(t, evalRepo.SetProcessing(context.Background(), 1))
	require.NoError(t, evalRepo.CompleteWithDetails(context.Background(), 1, 4.5, "report", []models.EvaluationDetail{
		{EvaluationID: 1, RubricItemID: 101, ObtainedMarks: 2, SerialNumber: 1},
	}))

	svc := NewEvaluationService(evalRepo, newFakeQuestionRepo(question), &stubUploader{}, stubExtractor{}, &stubPublisher{}, testLogger())

	resp, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, models.EvaluationStatusCompleted, resp.Status)
	require.Len(t, resp.Details, 1)
	require.Len(t, resp.Transitions, 2)

	_, err = svc.Get(context.Background(), 99)
	require.ErrorIs(t, err, ErrEvaluationNotFound)
}
