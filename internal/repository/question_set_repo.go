package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/scriptgrade/scriptgrade-api/internal/models"
)

// QuestionSetFilter narrows question-set queries.
type QuestionSetFilter struct {
	SubjectID *uint
	IsTest    *bool
}

// QuestionSetRepository defines data operations for question sets and their
// question entries.
type QuestionSetRepository interface {
	List(ctx context.Context, filter QuestionSetFilter) ([]models.QuestionSet, error)
	GetByID(ctx context.Context, id uint) (models.QuestionSet, error)
	Create(ctx context.Context, set *models.QuestionSet) error
	Update(ctx context.Context, set *models.QuestionSet) error
	Delete(ctx context.Context, id uint) error
	AddEntry(ctx context.Context, entry *models.QuestionSetEntry) error
	RemoveEntry(ctx context.Context, setID, questionID uint) error
	HasEntry(ctx context.Context, setID, questionID uint) (bool, error)
	MaxPosition(ctx context.Context, setID uint) (int, error)
}

type questionSetRepository struct {
	db *gorm.DB
}

// NewQuestionSetRepository instantiates the repository.
func NewQuestionSetRepository(db *gorm.DB) QuestionSetRepository {
	return &questionSetRepository{db: db}
}

func (r *questionSetRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.QuestionSet{}).
		Preload("Subject").
		Preload("Entries", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Entries.Question").
		Preload("Entries.Question.RubricItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("serial_number ASC")
		})
}

func (r *questionSetRepository) List(ctx context.Context, filter QuestionSetFilter) ([]models.QuestionSet, error) {
	query := r.baseQuery(ctx)

	if filter.SubjectID != nil {
		query = query.Where("subject_id = ?", *filter.SubjectID)
	}
	if filter.IsTest != nil {
		query = query.Where("is_test = ?", *filter.IsTest)
	}

	var sets []models.QuestionSet
	if err := query.Order("created_at DESC").Find(&sets).Error; err != nil {
		return nil, err
	}

	return sets, nil
}

func (r *questionSetRepository) GetByID(ctx context.Context, id uint) (models.QuestionSet, error) {
	var set models.QuestionSet
	if err := r.baseQuery(ctx).First(&set, id).Error; err != nil {
		return models.QuestionSet{}, err
	}

	return set, nil
}

func (r *questionSetRepository) Create(ctx context.Context, set *models.QuestionSet) error {
	return r.db.WithContext(ctx).Create(set).Error
}

func (r *questionSetRepository) Update(ctx context.Context, set *models.QuestionSet) error {
	return r.db.WithContext(ctx).Save(set).Error
}

func (r *questionSetRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_set_id = ?", id).Delete(&models.QuestionSetEntry{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.QuestionSet{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *questionSetRepository) AddEntry(ctx context.Context, entry *models.QuestionSetEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *questionSetRepository) RemoveEntry(ctx context.Context, setID, questionID uint) error {
	result := r.db.WithContext(ctx).
		Where("question_set_id = ?", setID).
		Where("question_id = ?", questionID).
		Delete(&models.QuestionSetEntry{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *questionSetRepository) HasEntry(ctx context.Context, setID, questionID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.QuestionSetEntry{}).
		Where("question_set_id = ?", setID).
		Where("question_id = ?", questionID).
		Count(&count).Error
	return count > 0, err
}

func (r *questionSetRepository) MaxPosition(ctx context.Context, setID uint) (int, error) {
	var max int
	err := r.db.WithContext(ctx).
		Model(&models.QuestionSetEntry{}).
		Select("COALESCE(MAX(position), 0)").
		Where("question_set_id = ?", setID).
		Scan(&max).Error
	return max, err
}
