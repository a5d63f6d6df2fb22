package repository

import (
	"context"
	"errors"
	"time"

	"github.com/trash2cash/backend/internal/model"
	"gorm.io/gorm"
)

var (
	// ErrClaimNotPending means the claim already reached a terminal state;
	// duplicate confirmations hit this and must be treated as no-ops.
	ErrClaimNotPending = errors.New("claim is not pending")
	// ErrOverdraw means completing the claim would push the user's available
	// balance below zero.
	ErrOverdraw = errors.New("claim would overdraw earned tokens")
)

type ClaimRepository interface {
	CreatePending(ctx context.Context, c *model.TokenClaim) error
	SetTxHash(ctx context.Context, id, txHash string) error
	FindByID(ctx context.Context, id string) (*model.TokenClaim, error)
	// Complete transitions pending -> completed and advances the user's
	// claimed counter in one transaction. It fails with ErrClaimNotPending
	// when the claim is already terminal and ErrOverdraw when the balance
	// guard rejects the counter update.
	Complete(ctx context.Context, id, txHash string) error
	MarkFailedIfPending(ctx context.Context, id, reason string) error
	ListByUser(ctx context.Context, userID string, limit int) ([]model.TokenClaim, error)
	SumCompleted(ctx context.Context, userID string) (int64, error)
	ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]model.TokenClaim, error)
	CompletedTxExists(ctx context.Context, txHash string) (bool, error)
	SetDB(db *gorm.DB)
}

type claimRepository struct {
	db *gorm.DB
}

func NewClaimRepository(db *gorm.DB) ClaimRepository {
	return &claimRepository{db: db}
}

func (r *claimRepository) CreatePending(ctx context.Context, c *model.TokenClaim) error {
	c.Status = model.ClaimStatusPending
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *claimRepository) SetTxHash(ctx context.Context, id, txHash string) error {
	return r.db.WithContext(ctx).
		Model(&model.TokenClaim{}).
		Where("id = ?", id).
		Update("tx_hash", txHash).Error
}

func (r *claimRepository) FindByID(ctx context.Context, id string) (*model.TokenClaim, error) {
	var c model.TokenClaim
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *claimRepository) Complete(ctx context.Context, id, txHash string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c model.TokenClaim
		if err := tx.First(&c, "id = ?", id).Error; err != nil {
			return err
		}

		res := tx.Model(&model.TokenClaim{}).
			Where("id = ? AND status = ?", id, model.ClaimStatusPending).
			Updates(map[string]interface{}{
				"status":  model.ClaimStatusCompleted,
				"tx_hash": txHash,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrClaimNotPending
		}

		return addClaimedTokens(tx, c.UserID, c.Amount)
	})
}

func (r *claimRepository) MarkFailedIfPending(ctx context.Context, id, reason string) error {
	return r.db.WithContext(ctx).
		Model(&model.TokenClaim{}).
		Where("id = ? AND status = ?", id, model.ClaimStatusPending).
		Updates(map[string]interface{}{
			"status":      model.ClaimStatusFailed,
			"fail_reason": reason,
		}).Error
}

func (r *claimRepository) ListByUser(ctx context.Context, userID string, limit int) ([]model.TokenClaim, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var list []model.TokenClaim
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *claimRepository) SumCompleted(ctx context.Context, userID string) (int64, error) {
	var sum int64
	if err := r.db.WithContext(ctx).
		Model(&model.TokenClaim{}).
		Where("user_id = ? AND status = ?", userID, model.ClaimStatusCompleted).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error; err != nil {
		return 0, err
	}
	return sum, nil
}

func (r *claimRepository) ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]model.TokenClaim, error) {
	var list []model.TokenClaim
	if err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", model.ClaimStatusPending, cutoff).
		Order("created_at ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *claimRepository) CompletedTxExists(ctx context.Context, txHash string) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.TokenClaim{}).
		Where("tx_hash = ? AND status = ?", txHash, model.ClaimStatusCompleted).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (r *claimRepository) SetDB(db *gorm.DB) {
	r.db = db
}
