package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trash2cash/backend/internal/ai"
	"github.com/trash2cash/backend/internal/model"
	"gorm.io/gorm"
)

type fakeClassifier struct {
	items []ai.DetectedItem
	err   error
	calls int
}

func (c *fakeClassifier) Classify(ctx context.Context, image []byte, mimeType string) ([]ai.DetectedItem, error) {
	c.calls++
	return c.items, c.err
}

type memSubmissionRepo struct {
	mu   sync.Mutex
	subs []model.RecyclingSubmission
}

func (r *memSubmissionRepo) Create(ctx context.Context, s *model.RecyclingSubmission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.ID = uint64(len(r.subs) + 1)
	r.subs = append(r.subs, *s)
	return nil
}

func (r *memSubmissionRepo) ListByUser(ctx context.Context, userID string, limit int) ([]model.RecyclingSubmission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.RecyclingSubmission
	for _, s := range r.subs {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memSubmissionRepo) SetDB(db *gorm.DB) {}

func TestSubmitScanAwardsTokens(t *testing.T) {
	classifier := &fakeClassifier{items: []ai.DetectedItem{
		{Name: "plastic bottle", Category: "plastic", Confidence: 0.95, TokenValue: 5},
		{Name: "aluminum can", Category: "metal", Confidence: 0.9, TokenValue: 6},
		{Name: "maybe a bag", Category: "plastic", Confidence: 0.4, TokenValue: 2},
	}}
	subs := &memSubmissionRepo{}
	users := newMemUserRepo()
	users.put(&model.User{ID: "u1", TotalTokens: 10})
	notify := &fakeNotifier{}
	svc := NewScanService(classifier, subs, users, notify)

	sub, err := svc.SubmitScan(context.Background(), "u1", []byte("jpegbytes"), "image/jpeg")
	require.NoError(t, err)

	// The 0.4-confidence detection is dropped before scoring.
	assert.Equal(t, 2, sub.ItemCount)
	assert.Equal(t, int64(11), sub.TokensAwarded)
	assert.Equal(t, int64(21), users.snapshot("u1").TotalTokens)
	assert.Contains(t, notify.typesSent(), "scan_rewarded")
}

func TestSubmitScanNoConfidentItems(t *testing.T) {
	classifier := &fakeClassifier{items: []ai.DetectedItem{
		{Name: "blur", Category: "other", Confidence: 0.2, TokenValue: 1},
	}}
	subs := &memSubmissionRepo{}
	users := newMemUserRepo()
	users.put(&model.User{ID: "u1"})
	svc := NewScanService(classifier, subs, users, &fakeNotifier{})

	_, err := svc.SubmitScan(context.Background(), "u1", []byte("jpegbytes"), "image/jpeg")
	assert.ErrorIs(t, err, ErrNoItemsDetected)
	assert.Empty(t, subs.subs)
	assert.Equal(t, int64(0), users.snapshot("u1").TotalTokens)
}

func TestSubmitScanClassifierError(t *testing.T) {
	classifier := &fakeClassifier{err: errGatewayDown}
	users := newMemUserRepo()
	users.put(&model.User{ID: "u1"})
	svc := NewScanService(classifier, &memSubmissionRepo{}, users, &fakeNotifier{})

	_, err := svc.SubmitScan(context.Background(), "u1", []byte("jpegbytes"), "image/jpeg")
	assert.Error(t, err)
	assert.Equal(t, int64(0), users.snapshot("u1").TotalTokens)
}

func TestSubmitScanValidation(t *testing.T) {
	classifier := &fakeClassifier{}
	svc := NewScanService(classifier, &memSubmissionRepo{}, newMemUserRepo(), &fakeNotifier{})

	_, err := svc.SubmitScan(context.Background(), "", []byte("x"), "image/jpeg")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.SubmitScan(context.Background(), "u1", nil, "image/jpeg")
	assert.ErrorIs(t, err, ErrValidation)

	assert.Zero(t, classifier.calls)
}
