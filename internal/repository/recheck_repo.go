package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/scriptgrade/scriptgrade-api/internal/models"
)

// RecheckRepository defines data operations for recheck requests.
type RecheckRepository interface {
	GetByID(ctx context.Context, id uint) (models.Recheck, error)
	Create(ctx context.Context, recheck *models.Recheck) error
	Update(ctx context.Context, recheck *models.Recheck) error
	ListPending(ctx context.Context) ([]models.Recheck, error)
}

type recheckRepository struct {
	db *gorm.DB
}

// NewRecheckRepository instantiates the repository.
func NewRecheckRepository(db *gorm.DB) RecheckRepository {
	return &recheckRepository{db: db}
}

func (r *recheckRepository) GetByID(ctx context.Context, id uint) (models.Recheck, error) {
	var recheck models.Recheck
	if err := r.db.WithContext(ctx).
		Preload("Evaluation").
		First(&recheck, id).Error; err != nil {
		return models.Recheck{}, err
	}
	return recheck, nil
}

func (r *recheckRepository) Create(ctx context.Context, recheck *models.Recheck) error {
	return r.db.WithContext(ctx).Create(recheck).Error
}

func (r *recheckRepository) Update(ctx context.Context, recheck *models.Recheck) error {
	return r.db.WithContext(ctx).Save(recheck).Error
}

func (r *recheckRepository) ListPending(ctx context.Context) ([]models.Recheck, error) {
	var rechecks []models.Recheck
	if err := r.db.WithContext(ctx).
		Preload("Evaluation").
		Where("response_detail IS NULL").
		Order("created_at DESC").
		Find(&rechecks).Error; err != nil {
		return nil, err
	}
	return rechecks, nil
}
