package service

import (
	"context"

	"github.com/trash2cash/backend/internal/model"
	"github.com/trash2cash/backend/internal/repository"
)

type NotificationService interface {
	Notify(ctx context.Context, userID, typ, title, body string, claimID *string, submissionID *uint64)
	List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]model.Notification, int64, error)
	MarkAllRead(ctx context.Context, userID string) error
}

type notificationService struct {
	repo repository.NotificationRepository
}

func NewNotificationService(repo repository.NotificationRepository) NotificationService {
	return &notificationService{repo: repo}
}

// Notify is best-effort; it logs nothing and returns nothing so claim and
// scan flows never fail on a missed notification.
func (s *notificationService) Notify(ctx context.Context, userID, typ, title, body string, claimID *string, submissionID *uint64) {
	if userID == "" || typ == "" {
		return
	}
	n := &model.Notification{
		UserID:       userID,
		Type:         typ,
		Title:        title,
		Body:         body,
		ClaimID:      claimID,
		SubmissionID: submissionID,
	}
	_ = s.repo.Create(ctx, n)
}

func (s *notificationService) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]model.Notification, int64, error) {
	if userID == "" {
		return nil, 0, nil
	}
	list, err := s.repo.ListByUser(ctx, userID, unreadOnly, limit)
	if err != nil {
		return nil, 0, err
	}
	cnt, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return list, 0, err
	}
	return list, cnt, nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	return s.repo.MarkAllRead(ctx, userID)
}
