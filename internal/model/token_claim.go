package model

import "time"

type ClaimStatus string

const (
	ClaimStatusPending   ClaimStatus = "pending"
	ClaimStatusCompleted ClaimStatus = "completed"
	ClaimStatusFailed    ClaimStatus = "failed"
)

// TokenClaim is one attempted transfer of earned tokens to a wallet.
// TxHash is set as soon as a transaction is observed on submission; a claim
// only becomes completed once that transaction confirms and the user's
// claimed counter has been advanced.
type TokenClaim struct {
	ID            string      `gorm:"column:id;primaryKey;size:36"`
	UserID        string      `gorm:"column:user_id;size:128;index;not null"`
	WalletAddress string      `gorm:"column:wallet_address;size:42;not null"`
	Amount        int64       `gorm:"column:amount;not null"`
	Status        ClaimStatus `gorm:"column:status;size:16;index;not null"`
	TxHash        *string     `gorm:"column:tx_hash;size:66;index"`
	FailReason    string      `gorm:"column:fail_reason;size:255"`
	CreatedAt     time.Time   `gorm:"autoCreateTime"`
	UpdatedAt     time.Time   `gorm:"autoUpdateTime"`
}

func (TokenClaim) TableName() string {
	return "token_claims"
}
