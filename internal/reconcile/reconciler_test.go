package reconcile

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trash2cash/backend/internal/model"
	"github.com/trash2cash/backend/internal/repository"
	"github.com/trash2cash/backend/internal/wallet"
	"gorm.io/gorm"
)

type stubClaimRepo struct {
	mu     sync.Mutex
	claims map[string]*model.TokenClaim

	completeErr   error
	completeCalls int
}

func newStubClaimRepo(claims ...*model.TokenClaim) *stubClaimRepo {
	r := &stubClaimRepo{claims: map[string]*model.TokenClaim{}}
	for _, c := range claims {
		cp := *c
		r.claims[c.ID] = &cp
	}
	return r
}

func (r *stubClaimRepo) status(id string) model.ClaimStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.claims[id].Status
}

func (r *stubClaimRepo) CreatePending(ctx context.Context, c *model.TokenClaim) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.claims[c.ID] = &cp
	return nil
}

func (r *stubClaimRepo) SetTxHash(ctx context.Context, id, txHash string) error { return nil }

func (r *stubClaimRepo) FindByID(ctx context.Context, id string) (*model.TokenClaim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.claims[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *stubClaimRepo) Complete(ctx context.Context, id, txHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completeCalls++
	if r.completeErr != nil {
		return r.completeErr
	}
	c, ok := r.claims[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if c.Status != model.ClaimStatusPending {
		return repository.ErrClaimNotPending
	}
	c.Status = model.ClaimStatusCompleted
	return nil
}

func (r *stubClaimRepo) MarkFailedIfPending(ctx context.Context, id, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.claims[id]
	if !ok || c.Status != model.ClaimStatusPending {
		return nil
	}
	c.Status = model.ClaimStatusFailed
	c.FailReason = reason
	return nil
}

func (r *stubClaimRepo) ListByUser(ctx context.Context, userID string, limit int) ([]model.TokenClaim, error) {
	return nil, nil
}

func (r *stubClaimRepo) SumCompleted(ctx context.Context, userID string) (int64, error) {
	return 0, nil
}

func (r *stubClaimRepo) ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]model.TokenClaim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var list []model.TokenClaim
	for _, c := range r.claims {
		if c.Status == model.ClaimStatusPending && c.CreatedAt.Before(cutoff) {
			list = append(list, *c)
		}
	}
	return list, nil
}

func (r *stubClaimRepo) CompletedTxExists(ctx context.Context, txHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.claims {
		if c.Status == model.ClaimStatusCompleted && c.TxHash != nil && *c.TxHash == txHash {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubClaimRepo) SetDB(db *gorm.DB) {}

type stubGateway struct {
	outcomes   map[string]wallet.Outcome
	mintEvents []wallet.MintEvent
	head       uint64
}

func (g *stubGateway) SubmitMint(ctx context.Context, userID, walletAddress string, amount int64) (string, error) {
	return "", nil
}

func (g *stubGateway) AwaitOutcome(ctx context.Context, txHash string) (wallet.Outcome, error) {
	return g.TxOutcome(ctx, txHash)
}

func (g *stubGateway) TxOutcome(ctx context.Context, txHash string) (wallet.Outcome, error) {
	if out, ok := g.outcomes[txHash]; ok {
		return out, nil
	}
	return wallet.Outcome{Status: wallet.StatusPending, TxHash: txHash}, nil
}

func (g *stubGateway) MintEvents(ctx context.Context, fromBlock, toBlock uint64) ([]wallet.MintEvent, error) {
	return g.mintEvents, nil
}

func (g *stubGateway) LatestBlock(ctx context.Context) (uint64, error) {
	return g.head, nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	types []string
}

func (n *recordingNotifier) Notify(ctx context.Context, userID, typ, title, body string, claimID *string, submissionID *uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.types = append(n.types, typ)
}

func (n *recordingNotifier) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]model.Notification, int64, error) {
	return nil, 0, nil
}

func (n *recordingNotifier) MarkAllRead(ctx context.Context, userID string) error { return nil }

func pendingClaim(id, txHash string, age time.Duration) *model.TokenClaim {
	c := &model.TokenClaim{
		ID:        id,
		UserID:    "u1",
		Amount:    40,
		Status:    model.ClaimStatusPending,
		CreatedAt: time.Now().Add(-age),
	}
	if txHash != "" {
		c.TxHash = &txHash
	}
	return c
}

func TestSweepRepairsConfirmedClaim(t *testing.T) {
	claims := newStubClaimRepo(pendingClaim("c1", "0xaaa", time.Hour))
	gateway := &stubGateway{outcomes: map[string]wallet.Outcome{
		"0xaaa": {Status: wallet.StatusConfirmed, TxHash: "0xaaa"},
	}}
	notify := &recordingNotifier{}
	r := New(claims, gateway, notify, time.Minute, 5*time.Minute, 24*time.Hour)

	r.Sweep(context.Background())
	assert.Equal(t, model.ClaimStatusCompleted, claims.status("c1"))
	assert.Contains(t, notify.types, "claim_completed")

	// A second pass hits the pending-only transition and changes nothing.
	r.Sweep(context.Background())
	assert.Equal(t, model.ClaimStatusCompleted, claims.status("c1"))
	assert.Equal(t, 1, claims.completeCalls, "settled claims must not be listed again")
}

func TestSweepFailsRejectedClaim(t *testing.T) {
	claims := newStubClaimRepo(pendingClaim("c1", "0xbbb", time.Hour))
	gateway := &stubGateway{outcomes: map[string]wallet.Outcome{
		"0xbbb": {Status: wallet.StatusRejected, TxHash: "0xbbb", Reason: "transaction reverted"},
	}}
	notify := &recordingNotifier{}
	r := New(claims, gateway, notify, time.Minute, 5*time.Minute, 24*time.Hour)

	r.Sweep(context.Background())
	assert.Equal(t, model.ClaimStatusFailed, claims.status("c1"))
	assert.Contains(t, notify.types, "claim_failed")
}

func TestSweepLeavesUnconfirmedClaimPending(t *testing.T) {
	claims := newStubClaimRepo(pendingClaim("c1", "0xccc", time.Hour))
	gateway := &stubGateway{outcomes: map[string]wallet.Outcome{}}
	r := New(claims, gateway, &recordingNotifier{}, time.Minute, 5*time.Minute, 24*time.Hour)

	r.Sweep(context.Background())
	assert.Equal(t, model.ClaimStatusPending, claims.status("c1"))
}

func TestSweepAbandonsOldClaimWithoutTx(t *testing.T) {
	claims := newStubClaimRepo(
		pendingClaim("old", "", 25*time.Hour),
		pendingClaim("recent", "", time.Hour),
	)
	r := New(claims, &stubGateway{}, &recordingNotifier{}, time.Minute, 5*time.Minute, 24*time.Hour)

	r.Sweep(context.Background())
	assert.Equal(t, model.ClaimStatusFailed, claims.status("old"))
	abandoned, err := claims.FindByID(context.Background(), "old")
	require.NoError(t, err)
	assert.Equal(t, "abandoned before submission", abandoned.FailReason)
	assert.Equal(t, model.ClaimStatusPending, claims.status("recent"))
}

func TestSweepAuditLeavesLedgerUntouched(t *testing.T) {
	recorded := pendingClaim("done", "0xeee", time.Hour)
	recorded.Status = model.ClaimStatusCompleted
	claims := newStubClaimRepo(recorded)
	gateway := &stubGateway{
		head: 10000,
		mintEvents: []wallet.MintEvent{
			{TxHash: "0xeee", BlockNumber: 9990}, // matched by a completed claim
			{TxHash: "0xfff", BlockNumber: 9991}, // orphan, flagged but never written
		},
	}
	r := New(claims, gateway, &recordingNotifier{}, time.Minute, 5*time.Minute, 24*time.Hour)

	r.Sweep(context.Background())
	assert.Equal(t, model.ClaimStatusCompleted, claims.status("done"))
	assert.Zero(t, claims.completeCalls)
}

func TestSweepSkipsClaimsInsideGrace(t *testing.T) {
	claims := newStubClaimRepo(pendingClaim("fresh", "0xddd", time.Minute))
	gateway := &stubGateway{outcomes: map[string]wallet.Outcome{
		"0xddd": {Status: wallet.StatusConfirmed, TxHash: "0xddd"},
	}}
	r := New(claims, gateway, &recordingNotifier{}, time.Minute, 5*time.Minute, 24*time.Hour)

	r.Sweep(context.Background())
	assert.Equal(t, model.ClaimStatusPending, claims.status("fresh"))
	assert.Zero(t, claims.completeCalls)
}
