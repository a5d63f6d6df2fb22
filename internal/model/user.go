package model

import "time"

// User mirrors the auth provider identity plus cumulative token counters.
// TotalTokens only ever grows (recycling submissions); ClaimedTokens only
// grows through completed claims, so available = TotalTokens - ClaimedTokens.
type User struct {
	ID               string     `gorm:"column:id;primaryKey;size:128"`
	Name             string     `gorm:"size:120"`
	Email            string     `gorm:"size:255;index"`
	AvatarURL        *string    `gorm:"column:avatar_url;size:512"`
	WalletAddress    *string    `gorm:"column:wallet_address;size:42"`
	TotalTokens      int64      `gorm:"column:total_tokens;not null;default:0"`
	ClaimedTokens    int64      `gorm:"column:claimed_tokens;not null;default:0"`
	ClaimLockedUntil *time.Time `gorm:"column:claim_locked_until"`
	CreatedAt        time.Time  `gorm:"autoCreateTime"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}
