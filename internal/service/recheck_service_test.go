package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/scriptgrade/scriptgrade-api/internal/dto"
	"github.com/scriptgrade/scriptgrade-api/internal/models"
)

type fakeRecheckRepo struct {
	rechecks map[uint]models.Recheck
}

func newFakeRecheckRepo() *fakeRecheckRepo {
	return &fakeRecheckRepo{rechecks: make(map[uint]models.Recheck)}
}

func (f *fakeRecheckRepo) GetByID(_ context.Context, id uint) (models.Recheck, error) {
	recheck, ok := f.rechecks[id]
	if !ok {
		return models.Recheck{}, gorm.ErrRecordNotFound
	}
	return recheck, nil
}

func (f *fakeRecheckRepo) Create(_ context.Context, recheck *models.Recheck) error {
	recheck.ID = uint(len(f.rechecks) + 1)
	f.rechecks[recheck.ID] = *recheck
	return nil
}

func (f *fakeRecheckRepo) Update(_ context.Context, recheck *models.Recheck) error {
	if _, ok := f.rechecks[recheck.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	f.rechecks[recheck.ID] = *recheck
	return nil
}

func (f *fakeRecheckRepo) ListPending(_ context.Context) ([]models.Recheck, error) {
	out := make([]models.Recheck, 0, len(f.rechecks))
	for _, recheck := range f.rechecks {
		if !recheck.IsResolved() {
			out = append(out, recheck)
		}
	}
	return out, nil
}

func completedEvaluation(id, studentID uint) models.Evaluation {
	score := 4.0
	return models.Evaluation{
		ID:         id,
		StudentID:  studentID,
		QuestionID: 10,
		Status:     models.EvaluationStatusCompleted,
		TotalScore: &score,
	}
}

func TestRecheckCreateSanitizesIssueText(t *testing.T) {
	evalRepo := newFakeEvaluationRepo(completedEvaluation(1, 7))
	rechecks := newFakeRecheckRepo()
	svc := NewRecheckService(rechecks, evalRepo, testLogger())

	resp, err := svc.Create(context.Background(), 7, dto.RecheckCreateRequest{
		EvaluationID: 1,
		IssueDetail:  `<script>alert("x")</script>Second item deserves full marks`,
	})
	require.NoError(t, err)
	require.Equal(t, "Second item deserves full marks", resp.IssueDetail)
	require.False(t, resp.Resolved)
}

func TestRecheckCreateRejectsOtherStudents(t *testing.T) {
	evalRepo := newFakeEvaluationRepo(completedEvaluation(1, 7))
	svc := NewRecheckService(newFakeRecheckRepo(), evalRepo, testLogger())

	_, err := svc.Create(context.Background(), 8, dto.RecheckCreateRequest{
		EvaluationID: 1,
		IssueDetail:  "this evaluation is not mine but I will try anyway",
	})
	require.ErrorIs(t, err, ErrNotEvaluationOwner)
}

func TestRecheckCreateRequiresCompletedEvaluation(t *testing.T) {
	evaluation := completedEvaluation(1, 7)
	evaluation.Status = models.EvaluationStatusPending
	evaluation.TotalScore = nil
	svc := NewRecheckService(newFakeRecheckRepo(), newFakeEvaluationRepo(evaluation), testLogger())

	_, err := svc.Create(context.Background(), 7, dto.RecheckCreateRequest{
		EvaluationID: 1,
		IssueDetail:  "please grade this faster than the queue does",
	})
	require.ErrorIs(t, err, ErrEvaluationNotGraded)
}

func TestRecheckRespondOnce(t *testing.T) {
	evalRepo := newFakeEvaluationRepo(completedEvaluation(1, 7))
	rechecks := newFakeRecheckRepo()
	svc := NewRecheckService(rechecks, evalRepo, testLogger())

	created, err := svc.Create(context.Background(), 7, dto.RecheckCreateRequest{
		EvaluationID: 1,
		IssueDetail:  "the second rubric item was marked too harshly",
	})
	require.NoError(t, err)

	resolved, err := svc.Respond(context.Background(), created.ID, 3, dto.RecheckRespondRequest{
		ResponseDetail: "Reviewed; the grade stands.",
	})
	require.NoError(t, err)
	require.True(t, resolved.Resolved)
	require.NotNil(t, resolved.ResponderID)
	require.Equal(t, uint(3), *resolved.ResponderID)

	_, err = svc.Respond(context.Background(), created.ID, 4, dto.RecheckRespondRequest{
		ResponseDetail: "Second opinion.",
	})
	require.ErrorIs(t, err, ErrRecheckAlreadyResolved)

	pending, err := svc.ListPending(context.Background())
	require.NoError(t, err)
	require.Empty(t, pending)
}
