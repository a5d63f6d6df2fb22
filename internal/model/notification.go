package model

import "time"

type Notification struct {
	ID           uint64     `gorm:"primaryKey;autoIncrement"`
	UserID       string     `gorm:"column:user_id;size:128;index;not null"`
	Type         string     `gorm:"column:type;size:64;not null"`
	Title        string     `gorm:"column:title;size:255"`
	Body         string     `gorm:"column:body;type:text"`
	ClaimID      *string    `gorm:"column:claim_id;size:36;index"`
	SubmissionID *uint64    `gorm:"column:submission_id;index"`
	ReadAt       *time.Time `gorm:"column:read_at"`
	CreatedAt    time.Time  `gorm:"autoCreateTime"`
}

func (Notification) TableName() string {
	return "notifications"
}
