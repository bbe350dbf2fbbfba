package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/scriptgrade/scriptgrade-api/internal/models"
)

// QuestionFilter narrows question queries.
type QuestionFilter struct {
	SubjectID *uint
	TeacherID *uint
}

// QuestionRepository defines data operations for questions and rubric items.
type QuestionRepository interface {
	List(ctx context.Context, filter QuestionFilter) ([]models.Question, error)
	GetByID(ctx context.Context, id uint) (models.Question, error)
	Create(ctx context.Context, question *models.Question) error
	Update(ctx context.Context, question *models.Question) error
	Delete(ctx context.Context, id uint) error
	ListRubricItems(ctx context.Context, questionID uint) ([]models.RubricItem, error)
	ReplaceRubricItems(ctx context.Context, questionID uint, items []models.RubricItem) error
}

type questionRepository struct {
	db *gorm.DB
}

// NewQuestionRepository instantiates the repository.
func NewQuestionRepository(db *gorm.DB) QuestionRepository {
	return &questionRepository{db: db}
}

func (r *questionRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Question{}).
		Preload("Subject").
		Preload("RubricItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("serial_number ASC")
		})
}

func (r *questionRepository) List(ctx context.Context, filter QuestionFilter) ([]models.Question, error) {
	query := r.baseQuery(ctx)

	if filter.SubjectID != nil {
		query = query.Where("subject_id = ?", *filter.SubjectID)
	}
	if filter.TeacherID != nil {
		query = query.Where("teacher_id = ?", *filter.TeacherID)
	}

	var questions []models.Question
	if err := query.Order("created_at DESC").Find(&questions).Error; err != nil {
		return nil, err
	}

	return questions, nil
}

func (r *questionRepository) GetByID(ctx context.Context, id uint) (models.Question, error) {
	var question models.Question
	if err := r.baseQuery(ctx).First(&question, id).Error; err != nil {
		return models.Question{}, err
	}

	return question, nil
}

func (r *questionRepository) Create(ctx context.Context, question *models.Question) error {
	return r.db.WithContext(ctx).Create(question).Error
}

func (r *questionRepository) Update(ctx context.Context, question *models.Question) error {
	return r.db.WithContext(ctx).Save(question).Error
}

func (r *questionRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Question{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListRubricItems returns the question's rubric ordered by serial number
// ascending. The order is what the grading pipeline aligns results against.
func (r *questionRepository) ListRubricItems(ctx context.Context, questionID uint) ([]models.RubricItem, error) {
	var items []models.RubricItem
	if err := r.db.WithContext(ctx).
		Where("question_id = ?", questionID).
		Order("serial_number ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}

	return items, nil
}

// ReplaceRubricItems swaps the question's rubric for a new ordered set in one
// transaction. Used by question update; existing evaluation details keep
// referencing the old item ids.
func (r *questionRepository) ReplaceRubricItems(ctx context.Context, questionID uint, items []models.RubricItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_id = ?", questionID).Delete(&models.RubricItem{}).Error; err != nil {
			return err
		}

		for i := range items {
			items[i].QuestionID = questionID
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Create(&items).Error
	})
}
