package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/scriptgrade/scriptgrade-api/internal/models"
)

// EvaluationFilter narrows evaluation queries.
type EvaluationFilter struct {
	StudentID     *uint
	QuestionID    *uint
	QuestionSetID *uint
	Status        *string
}

// EvaluationRepository defines data operations for evaluations and their
// graded details.
type EvaluationRepository interface {
	List(ctx context.Context, filter EvaluationFilter) ([]models.Evaluation, error)
	GetByID(ctx context.Context, id uint) (models.Evaluation, error)
	Create(ctx context.Context, evaluation *models.Evaluation) error
	SetProcessing(ctx context.Context, id uint) error
	CompleteWithDetails(ctx context.Context, id uint, totalScore float64, report string, details []models.EvaluationDetail) error
	MarkFailed(ctx context.Context, id uint, reason string) error
	ListDetails(ctx context.Context, evaluationID uint) ([]models.EvaluationDetail, error)
	ListTransitions(ctx context.Context, evaluationID uint) ([]models.EvaluationTransition, error)
	ObtainedMarks(ctx context.Context, studentID, questionID, questionSetID uint) (float64, error)
}

type evaluationRepository struct {
	db *gorm.DB
}

// NewEvaluationRepository instantiates the repository.
func NewEvaluationRepository(db *gorm.DB) EvaluationRepository {
	return &evaluationRepository{db: db}
}

func (r *evaluationRepository) List(ctx context.Context, filter EvaluationFilter) ([]models.Evaluation, error) {
	query := r.db.WithContext(ctx).Model(&models.Evaluation{}).
		Preload("Question").
		Preload("Question.RubricItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("serial_number ASC")
		})

	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}
	if filter.QuestionID != nil {
		query = query.Where("question_id = ?", *filter.QuestionID)
	}
	if filter.QuestionSetID != nil {
		query = query.Where("question_set_id = ?", *filter.QuestionSetID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var evaluations []models.Evaluation
	if err := query.Order("created_at DESC").Find(&evaluations).Error; err != nil {
		return nil, err
	}

	return evaluations, nil
}

func (r *evaluationRepository) GetByID(ctx context.Context, id uint) (models.Evaluation, error) {
	var evaluation models.Evaluation
	if err := r.db.WithContext(ctx).
		Preload("Question").
		Preload("Question.RubricItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("serial_number ASC")
		}).
		First(&evaluation, id).Error; err != nil {
		return models.Evaluation{}, err
	}

	return evaluation, nil
}

func (r *evaluationRepository) Create(ctx context.Context, evaluation *models.Evaluation) error {
	return r.db.WithContext(ctx).Create(evaluation).Error
}

func (r *evaluationRepository) SetProcessing(ctx context.Context, id uint) error {
	return r.transition(ctx, r.db, id, models.EvaluationStatusProcessing, "picked up for grading")
}

// CompleteWithDetails persists the reconciled outcome for one evaluation
// inside a single transaction: all detail rows, the final score and report,
// the completed status and its transition record. Either everything commits
// or nothing does. A re-grade replaces the previous run's detail rows, so an
// evaluation never carries more than one set.
func (r *evaluationRepository) CompleteWithDetails(ctx context.Context, id uint, totalScore float64, report string, details []models.EvaluationDetail) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var evaluation models.Evaluation
		if err := tx.First(&evaluation, id).Error; err != nil {
			return err
		}

		if err := tx.Where("evaluation_id = ?", id).Delete(&models.EvaluationDetail{}).Error; err != nil {
			return err
		}

		for i := range details {
			details[i].EvaluationID = id
		}
		if len(details) > 0 {
			if err := tx.Create(&details).Error; err != nil {
				return err
			}
		}

		updates := map[string]interface{}{
			"status":         models.EvaluationStatusCompleted,
			"total_score":    totalScore,
			"report":         report,
			"failure_reason": "",
		}
		if err := tx.Model(&models.Evaluation{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}

		transition := models.EvaluationTransition{
			EvaluationID: id,
			FromStatus:   evaluation.Status,
			ToStatus:     models.EvaluationStatusCompleted,
			Reason:       "grading committed",
		}
		return tx.Create(&transition).Error
	})
}

// MarkFailed is the compensating write used after a rollback. It runs in its
// own transaction scope so it cannot be dragged down with the failed commit.
func (r *evaluationRepository) MarkFailed(ctx context.Context, id uint, reason string) error {
	return r.transition(ctx, r.db, id, models.EvaluationStatusFailed, reason)
}

func (r *evaluationRepository) transition(ctx context.Context, db *gorm.DB, id uint, status, reason string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var evaluation models.Evaluation
		if err := tx.First(&evaluation, id).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{"status": status}
		if status == models.EvaluationStatusFailed {
			updates["failure_reason"] = reason
		}
		if err := tx.Model(&models.Evaluation{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}

		transition := models.EvaluationTransition{
			EvaluationID: id,
			FromStatus:   evaluation.Status,
			ToStatus:     status,
			Reason:       reason,
		}
		return tx.Create(&transition).Error
	})
}

func (r *evaluationRepository) ListDetails(ctx context.Context, evaluationID uint) ([]models.EvaluationDetail, error) {
	var details []models.EvaluationDetail
	if err := r.db.WithContext(ctx).
		Where("evaluation_id = ?", evaluationID).
		Order("serial_number ASC").
		Find(&details).Error; err != nil {
		return nil, err
	}

	return details, nil
}

func (r *evaluationRepository) ListTransitions(ctx context.Context, evaluationID uint) ([]models.EvaluationTransition, error) {
	var transitions []models.EvaluationTransition
	if err := r.db.WithContext(ctx).
		Where("evaluation_id = ?", evaluationID).
		Order("created_at ASC").
		Find(&transitions).Error; err != nil {
		return nil, err
	}

	return transitions, nil
}

// ObtainedMarks sums the detail marks of the student's most recent completed
// evaluation for one question within one question set. Earlier completed runs
// are superseded, so a re-graded answer contributes only its latest score.
// Feeds the performance report.
func (r *evaluationRepository) ObtainedMarks(ctx context.Context, studentID, questionID, questionSetID uint) (float64, error) {
	latest := r.db.
		Model(&models.Evaluation{}).
		Select("id").
		Where("student_id = ?", studentID).
		Where("question_id = ?", questionID).
		Where("question_set_id = ?", questionSetID).
		Where("status = ?", models.EvaluationStatusCompleted).
		Order("created_at DESC, id DESC").
		Limit(1)

	var total float64
	err := r.db.WithContext(ctx).
		Model(&models.EvaluationDetail{}).
		Select("COALESCE(SUM(obtained_marks), 0)").
		Where("evaluation_id = (?)", latest).
		Scan(&total).Error
	return total, err
}
