package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/scriptgrade/scriptgrade-api/internal/models"
	"github.com/scriptgrade/scriptgrade-api/pkg/grader"
)

func testGrader(t *testing.T, handler http.HandlerFunc) (*grader.Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := grader.New(grader.Config{URL: srv.URL, Timeout: 5 * time.Second}, testLogger())
	require.NoError(t, err)
	return client, srv
}

func twoItemQuestion() models.Question {
	return models.Question{
		ID:           10,
		QuestionText: "Explain photosynthesis.",
		RubricItems: []models.RubricItem{
			{ID: 101, QuestionID: 10, CriterionText: "Names the inputs", Marks: 2, SerialNumber: 1},
			{ID: 102, QuestionID: 10, CriterionText: "Describes the light reactions", Marks: 3, SerialNumber: 2},
		},
	}
}

func pendingEvaluation(id uint, question models.Question) models.Evaluation {
	return models.Evaluation{
		ID:         id,
		StudentID:  1,
		QuestionID: question.ID,
		AnswerText: "answer text",
		Status:     models.EvaluationStatusPending,
		Question:   question,
	}
}

func TestEvaluateBatchNormalizesAndPersists(t *testing.T) {
	question := twoItemQuestion()
	evalRepo := newFakeEvaluationRepo(pendingEvaluation(1, question))
	questionRepo := newFakeQuestionRepo(question)

	client, _ := testGrader(t, func(w http.ResponseWriter, r *http.Request) {
		var requests []grader.Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&requests))
		require.Len(t, requests, 1)
		require.Equal(t, "1. Names the inputs (2 marks)\n2. Describes the light reactions (3 marks)", requests[0].Rubric)

		// Raw scores on a 10 and 3 point scale; normalization maps them to
		// the rubric's 2 and 3 marks.
		_, _ = w.Write([]byte(`[[["Names the inputs",5,10,"half right"],["Describes the light reactions",3,3,"complete"]]]`))
	})

	svc := NewBatchEvaluationService(evalRepo, questionRepo, client, testLogger())
	resp, err := svc.EvaluateBatch(context.Background(), []uint{1})
	require.NoError(t, err)
	require.Equal(t, []uint{1}, resp.Successful)
	require.Empty(t, resp.Failed)

	evaluation := evalRepo.evaluations[1]
	require.Equal(t, models.EvaluationStatusCompleted, evaluation.Status)
	require.NotNil(t, evaluation.TotalScore)
	require.InDelta(t, 4.0, *evaluation.TotalScore, 1e-9)
	require.Contains(t, evaluation.Report, "## Evaluation Results")
	require.Contains(t, evaluation.Report, "## Final Score: 4.00/5.00")

	details := evalRepo.details[1]
	require.Len(t, details, 2)
	require.Equal(t, uint(101), details[0].RubricItemID)
	require.InDelta(t, 1.0, details[0].ObtainedMarks, 1e-9)
	require.InDelta(t, 3.0, details[1].ObtainedMarks, 1e-9)

	transitions := evalRepo.transitions[1]
	require.Len(t, transitions, 2)
	require.Equal(t, models.EvaluationStatusProcessing, transitions[0].ToStatus)
	require.Equal(t, models.EvaluationStatusCompleted, transitions[1].ToStatus)
}

func TestEvaluateBatchSkipsUnresolvableEvaluations(t *testing.T) {
	question := twoItemQuestion()
	bare := models.Question{ID: 20, QuestionText: "No rubric yet."}
	evalRepo := newFakeEvaluationRepo(
		pendingEvaluation(1, question),
		pendingEvaluation(2, bare),
		pendingEvaluation(3, question),
	)
	questionRepo := newFakeQuestionRepo(question, bare)

	client, _ := testGrader(t, func(w http.ResponseWriter, r *http.Request) {
		var requests []grader.Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&requests))
		require.Len(t, requests, 2)

		_, _ = w.Write([]byte(`[
			[["Names the inputs",2,2,"ok"],["Describes the light reactions",3,3,"ok"]],
			[["Names the inputs",0,2,"missing"],["Describes the light reactions",1,3,"partial"]]
		]`))
	})

	svc := NewBatchEvaluationService(evalRepo, questionRepo, client, testLogger())
	resp, err := svc.EvaluateBatch(context.Background(), []uint{1, 2, 3, 4})
	require.NoError(t, err)

	require.Equal(t, []uint{1, 3}, resp.Successful)
	require.Equal(t, "No rubrics found for question", resp.Failed[2])
	require.Equal(t, "Evaluation not found", resp.Failed[4])
	require.Equal(t, "Batch evaluation completed. Success: 2/4, Failed: 2/4", resp.Message)

	require.Equal(t, models.EvaluationStatusCompleted, evalRepo.evaluations[1].Status)
	require.Equal(t, models.EvaluationStatusCompleted, evalRepo.evaluations[3].Status)
	// Evaluation 2 never reached the grading call so no failure transition
	// is recorded for it.
	require.Equal(t, models.EvaluationStatusPending, evalRepo.evaluations[2].Status)
}

func TestEvaluateBatchRegradeReplacesDetails(t *testing.T) {
	question := twoItemQuestion()
	evalRepo := newFakeEvaluationRepo(pendingEvaluation(1, question))
	questionRepo := newFakeQuestionRepo(question)

	responses := []string{
		`[[["Names the inputs",0,2,"missing"],["Describes the light reactions",1,3,"partial"]]]`,
		`[[["Names the inputs",2,2,"ok"],["Describes the light reactions",3,3,"ok"]]]`,
	}
	calls := 0
	client, _ := testGrader(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(responses[calls]))
		calls++
	})

	svc := NewBatchEvaluationService(evalRepo, questionRepo, client, testLogger())

	_, err := svc.EvaluateBatch(context.Background(), []uint{1})
	require.NoError(t, err)
	require.InDelta(t, 1.0, *evalRepo.evaluations[1].TotalScore, 1e-9)

	// Grading the completed evaluation again replaces the previous run's
	// detail rows instead of stacking a second set.
	resp, err := svc.EvaluateBatch(context.Background(), []uint{1})
	require.NoError(t, err)
	require.Equal(t, []uint{1}, resp.Successful)

	require.InDelta(t, 5.0, *evalRepo.evaluations[1].TotalScore, 1e-9)
	details := evalRepo.details[1]
	require.Len(t, details, 2)
	require.InDelta(t, 2.0, details[0].ObtainedMarks, 1e-9)
	require.InDelta(t, 3.0, details[1].ObtainedMarks, 1e-9)
}

func TestEvaluateBatchServerErrorFailsWholeBatch(t *testing.T) {
	question := twoItemQuestion()
	evalRepo := newFakeEvaluationRepo(pendingEvaluation(1, question), pendingEvaluation(2, question))
	questionRepo := newFakeQuestionRepo(question)

	client, _ := testGrader(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	svc := NewBatchEvaluationService(evalRepo, questionRepo, client, testLogger())
	resp, err := svc.EvaluateBatch(context.Background(), []uint{1, 2})
	require.NoError(t, err)

	require.Empty(t, resp.Successful)
	require.Len(t, resp.Failed, 2)
	require.Contains(t, resp.Failed[1], "LLM API error: 500")
	require.Contains(t, resp.Failed[2], "LLM API error: 500")

	for _, id := range []uint{1, 2} {
		require.Equal(t, models.EvaluationStatusFailed, evalRepo.evaluations[id].Status)
		require.Contains(t, evalRepo.evaluations[id].FailureReason, "LLM API error: 500")
		require.Empty(t, evalRepo.details[id])
	}
}

func TestEvaluateBatchShortResponseFailsWholeBatch(t *testing.T) {
	question := twoItemQuestion()
	evalRepo := newFakeEvaluationRepo(pendingEvaluation(1, question), pendingEvaluation(2, question))
	questionRepo := newFakeQuestionRepo(question)

	client, _ := testGrader(t, func(w http.ResponseWriter, r *http.Request) {
		// One result array for two requests.
		_, _ = w.Write([]byte(`[[["Names the inputs",2,2,"ok"]]]`))
	})

	svc := NewBatchEvaluationService(evalRepo, questionRepo, client, testLogger())
	resp, err := svc.EvaluateBatch(context.Background(), []uint{1, 2})
	require.NoError(t, err)

	require.Empty(t, resp.Successful)
	require.Contains(t, resp.Failed[1], "invalid response format from LLM API")
	require.Contains(t, resp.Failed[2], "invalid response format from LLM API")
	require.Equal(t, models.EvaluationStatusFailed, evalRepo.evaluations[1].Status)
	require.Equal(t, models.EvaluationStatusFailed, evalRepo.evaluations[2].Status)
}

func TestEvaluateBatchPersistenceFailureCompensates(t *testing.T) {
	question := twoItemQuestion()
	evalRepo := newFakeEvaluationRepo(pendingEvaluation(1, question))
	evalRepo.completeErr = context.DeadlineExceeded
	questionRepo := newFakeQuestionRepo(question)

	client, _ := testGrader(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[[["Names the inputs",2,2,"ok"],["Describes the light reactions",3,3,"ok"]]]`))
	})

	svc := NewBatchEvaluationService(evalRepo, questionRepo, client, testLogger())
	resp, err := svc.EvaluateBatch(context.Background(), []uint{1})
	require.NoError(t, err)

	require.Empty(t, resp.Successful)
	require.Contains(t, resp.Failed[1], "Database update error")
	require.Equal(t, models.EvaluationStatusFailed, evalRepo.evaluations[1].Status)
	require.Empty(t, evalRepo.details[1])
}

func TestEvaluateBatchNothingToSend(t *testing.T) {
	evalRepo := newFakeEvaluationRepo()
	questionRepo := newFakeQuestionRepo()

	client, _ := testGrader(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("grading service should not be called")
	})

	svc := NewBatchEvaluationService(evalRepo, questionRepo, client, testLogger())
	resp, err := svc.EvaluateBatch(context.Background(), []uint{99})
	require.NoError(t, err)
	require.Equal(t, "No valid evaluations to process", resp.Message)
	require.Equal(t, "Evaluation not found", resp.Failed[99])
}
