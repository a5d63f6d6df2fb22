package repository

import (
	"context"

	"github.com/trash2cash/backend/internal/model"
	"gorm.io/gorm"
)

type SubmissionRepository interface {
	Create(ctx context.Context, s *model.RecyclingSubmission) error
	ListByUser(ctx context.Context, userID string, limit int) ([]model.RecyclingSubmission, error)
	SetDB(db *gorm.DB)
}

type submissionRepository struct {
	db *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) Create(ctx context.Context, s *model.RecyclingSubmission) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *submissionRepository) ListByUser(ctx context.Context, userID string, limit int) ([]model.RecyclingSubmission, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var list []model.RecyclingSubmission
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *submissionRepository) SetDB(db *gorm.DB) {
	r.db = db
}
