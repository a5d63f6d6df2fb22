package service

import (
	"context"
	"fmt"

	"github.com/trash2cash/backend/internal/ai"
	"github.com/trash2cash/backend/internal/model"
	"github.com/trash2cash/backend/internal/repository"
)

// minConfidence drops low-certainty detections before any tokens are
// awarded; the model is asked for the same cutoff but is not trusted on it.
const minConfidence = 0.6

type ScanService interface {
	SubmitScan(ctx context.Context, userID string, image []byte, mimeType string) (*model.RecyclingSubmission, error)
	ListByUser(ctx context.Context, userID string) ([]model.RecyclingSubmission, error)
}

type scanService struct {
	classifier  ai.Classifier
	submissions repository.SubmissionRepository
	users       repository.UserRepository
	notify      NotificationService
}

func NewScanService(
	classifier ai.Classifier,
	submissions repository.SubmissionRepository,
	users repository.UserRepository,
	notify NotificationService,
) ScanService {
	return &scanService{
		classifier:  classifier,
		submissions: submissions,
		users:       users,
		notify:      notify,
	}
}

func (s *scanService) SubmitScan(ctx context.Context, userID string, image []byte, mimeType string) (*model.RecyclingSubmission, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user is required", ErrValidation)
	}
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: image is required", ErrValidation)
	}

	detected, err := s.classifier.Classify(ctx, image, mimeType)
	if err != nil {
		return nil, err
	}

	items := make([]model.SubmissionItem, 0, len(detected))
	var tokens int64
	for _, d := range detected {
		if d.Confidence < minConfidence {
			continue
		}
		items = append(items, model.SubmissionItem{
			Name:       d.Name,
			Category:   d.Category,
			Confidence: d.Confidence,
			TokenValue: d.TokenValue,
		})
		tokens += d.TokenValue
	}
	if len(items) == 0 {
		return nil, ErrNoItemsDetected
	}

	sub := &model.RecyclingSubmission{
		UserID:        userID,
		ItemCount:     len(items),
		TokensAwarded: tokens,
		Items:         items,
	}
	if err := s.submissions.Create(ctx, sub); err != nil {
		return nil, err
	}
	if err := s.users.AddEarnedTokens(ctx, userID, tokens); err != nil {
		return nil, err
	}

	s.notify.Notify(ctx, userID, "scan_rewarded", "Tokens earned",
		fmt.Sprintf("You earned %d T2C for recycling %d items.", tokens, len(items)), nil, &sub.ID)
	return sub, nil
}

func (s *scanService) ListByUser(ctx context.Context, userID string) ([]model.RecyclingSubmission, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user is required", ErrValidation)
	}
	return s.submissions.ListByUser(ctx, userID, 20)
}
