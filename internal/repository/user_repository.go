package repository

import (
	"context"
	"time"

	"github.com/trash2cash/backend/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LeaderboardRow struct {
	UserID           string  `gorm:"column:user_id"`
	Name             string  `gorm:"column:name"`
	AvatarURL        *string `gorm:"column:avatar_url"`
	TotalTokens      int64   `gorm:"column:total_tokens"`
	TotalItems       int64   `gorm:"column:total_items"`
	TotalSubmissions int64   `gorm:"column:total_submissions"`
}

type UserRepository interface {
	Get(ctx context.Context, id string) (*model.User, error)
	Ensure(ctx context.Context, id, name, email string) (*model.User, error)
	UpdateProfile(ctx context.Context, id string, name *string, avatarURL *string) error
	SetWalletAddress(ctx context.Context, id, address string) error
	AddEarnedTokens(ctx context.Context, id string, tokens int64) error
	AcquireClaimLock(ctx context.Context, id string, ttl time.Duration) (bool, error)
	ReleaseClaimLock(ctx context.Context, id string) error
	Leaderboard(ctx context.Context, since *time.Time, limit int) ([]LeaderboardRow, error)
	SetDB(db *gorm.DB)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Get(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) Ensure(ctx context.Context, id, name, email string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		FirstOrCreate(&u, &model.User{ID: id, Name: name, Email: email}).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, id string, name *string, avatarURL *string) error {
	updates := map[string]interface{}{}
	if name != nil {
		updates["name"] = *name
	}
	if avatarURL != nil {
		updates["avatar_url"] = *avatarURL
	}
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(updates).Error
}

func (r *userRepository) SetWalletAddress(ctx context.Context, id, address string) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).
		Update("wallet_address", address).Error
}

func (r *userRepository) AddEarnedTokens(ctx context.Context, id string, tokens int64) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"total_tokens": gorm.Expr("total_tokens + ?", tokens)}),
	}).Create(&model.User{ID: id, TotalTokens: tokens}).Error
}

// addClaimedTokens advances the claimed counter only when the resulting
// available balance stays non-negative. It runs on whatever handle it is
// given so claim completion can call it inside its transaction.
// RowsAffected == 0 means the claim would overdraw the user's earned total.
func addClaimedTokens(tx *gorm.DB, id string, amount int64) error {
	res := tx.Model(&model.User{}).
		Where("id = ? AND total_tokens - claimed_tokens >= ?", id, amount).
		Update("claimed_tokens", gorm.Expr("claimed_tokens + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrOverdraw
	}
	return nil
}

// AcquireClaimLock takes the per-user claim marker when it is free or
// expired. The lock is ledger-side so concurrent sessions on other devices
// observe it too.
func (r *userRepository) AcquireClaimLock(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	now := time.Now()
	until := now.Add(ttl)
	res := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ? AND (claim_locked_until IS NULL OR claim_locked_until < ?)", id, now).
		Update("claim_locked_until", until)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *userRepository) ReleaseClaimLock(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Update("claim_locked_until", nil).Error
}

func (r *userRepository) Leaderboard(ctx context.Context, since *time.Time, limit int) ([]LeaderboardRow, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var rows []LeaderboardRow
	q := r.db.WithContext(ctx).
		Table("users u").
		Joins("JOIN recycling_submissions s ON s.user_id = u.id").
		Select("u.id AS user_id, u.name AS name, u.avatar_url AS avatar_url, " +
			"SUM(s.tokens_awarded) AS total_tokens, SUM(s.item_count) AS total_items, COUNT(s.id) AS total_submissions").
		Group("u.id, u.name, u.avatar_url").
		Order("total_tokens DESC").
		Limit(limit)
	if since != nil {
		q = q.Where("s.created_at >= ?", *since)
	}
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *userRepository) SetDB(db *gorm.DB) {
	r.db = db
}
