package model

import "time"

// RecyclingSubmission records one scanned batch of recyclables and the
// tokens it earned.
type RecyclingSubmission struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement"`
	UserID        string    `gorm:"column:user_id;size:128;index;not null"`
	ItemCount     int       `gorm:"column:item_count;not null"`
	TokensAwarded int64     `gorm:"column:tokens_awarded;not null"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`

	Items []SubmissionItem `gorm:"foreignKey:SubmissionID"`
}

func (RecyclingSubmission) TableName() string {
	return "recycling_submissions"
}

type SubmissionItem struct {
	ID           uint64  `gorm:"primaryKey;autoIncrement"`
	SubmissionID uint64  `gorm:"column:submission_id;index;not null"`
	Name         string  `gorm:"size:120;not null"`
	Category     string  `gorm:"size:32;not null"`
	Confidence   float64 `gorm:"not null"`
	TokenValue   int64   `gorm:"column:token_value;not null"`
}

func (SubmissionItem) TableName() string {
	return "submission_items"
}
