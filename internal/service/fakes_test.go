package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/trash2cash/backend/internal/model"
	"github.com/trash2cash/backend/internal/repository"
	"github.com/trash2cash/backend/internal/wallet"
	"gorm.io/gorm"
)

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User

	leaderboardRows  []repository.LeaderboardRow
	lastSince        *time.Time
	leaderboardCalls int
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[string]*model.User{}}
}

func (r *memUserRepo) put(u *model.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.users[u.ID] = &cp
}

func (r *memUserRepo) snapshot(id string) model.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.users[id]
}

func (r *memUserRepo) Get(ctx context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) Ensure(ctx context.Context, id, name, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	u := &model.User{ID: id, Name: name, Email: email}
	r.users[id] = u
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) UpdateProfile(ctx context.Context, id string, name *string, avatarURL *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if name != nil {
		u.Name = *name
	}
	if avatarURL != nil {
		u.AvatarURL = avatarURL
	}
	return nil
}

func (r *memUserRepo) SetWalletAddress(ctx context.Context, id, address string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.WalletAddress = &address
	}
	return nil
}

func (r *memUserRepo) AddEarnedTokens(ctx context.Context, id string, tokens int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		u = &model.User{ID: id}
		r.users[id] = u
	}
	u.TotalTokens += tokens
	return nil
}

func (r *memUserRepo) AddClaimedIfAvailable(ctx context.Context, id string, amount int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || u.TotalTokens-u.ClaimedTokens < amount {
		return gorm.ErrRecordNotFound
	}
	u.ClaimedTokens += amount
	return nil
}

func (r *memUserRepo) AcquireClaimLock(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return false, nil
	}
	now := time.Now()
	if u.ClaimLockedUntil != nil && u.ClaimLockedUntil.After(now) {
		return false, nil
	}
	until := now.Add(ttl)
	u.ClaimLockedUntil = &until
	return true, nil
}

func (r *memUserRepo) ReleaseClaimLock(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.ClaimLockedUntil = nil
	}
	return nil
}

func (r *memUserRepo) Leaderboard(ctx context.Context, since *time.Time, limit int) ([]repository.LeaderboardRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaderboardCalls++
	r.lastSince = since
	return r.leaderboardRows, nil
}

func (r *memUserRepo) SetDB(db *gorm.DB) {}

// memClaimRepo shares user state with memUserRepo so Complete can emulate
// the one-transaction claim update plus counter guard.
type memClaimRepo struct {
	mu     sync.Mutex
	claims map[string]*model.TokenClaim
	users  *memUserRepo

	completeErr   error // when set, Complete fails with this before any write
	completeCalls int
}

func newMemClaimRepo(users *memUserRepo) *memClaimRepo {
	return &memClaimRepo{claims: map[string]*model.TokenClaim{}, users: users}
}

func (r *memClaimRepo) snapshot(id string) model.TokenClaim {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.claims[id]
}

func (r *memClaimRepo) CreatePending(ctx context.Context, c *model.TokenClaim) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.Status = model.ClaimStatusPending
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	cp := *c
	r.claims[c.ID] = &cp
	return nil
}

func (r *memClaimRepo) SetTxHash(ctx context.Context, id, txHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.claims[id]; ok {
		h := txHash
		c.TxHash = &h
	}
	return nil
}

func (r *memClaimRepo) FindByID(ctx context.Context, id string) (*model.TokenClaim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.claims[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *memClaimRepo) Complete(ctx context.Context, id, txHash string) error {
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
	if err := r.users.AddClaimedIfAvailable(ctx, c.UserID, c.Amount); err != nil {
		return repository.ErrOverdraw
	}
	c.Status = model.ClaimStatusCompleted
	h := txHash
	c.TxHash = &h
	return nil
}

func (r *memClaimRepo) MarkFailedIfPending(ctx context.Context, id, reason string) error {
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

func (r *memClaimRepo) ListByUser(ctx context.Context, userID string, limit int) ([]model.TokenClaim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var list []model.TokenClaim
	for _, c := range r.claims {
		if c.UserID == userID {
			list = append(list, *c)
		}
	}
	return list, nil
}

func (r *memClaimRepo) SumCompleted(ctx context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum int64
	for _, c := range r.claims {
		if c.UserID == userID && c.Status == model.ClaimStatusCompleted {
			sum += c.Amount
		}
	}
	return sum, nil
}

func (r *memClaimRepo) ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]model.TokenClaim, error) {
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

func (r *memClaimRepo) CompletedTxExists(ctx context.Context, txHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.claims {
		if c.Status == model.ClaimStatusCompleted && c.TxHash != nil && *c.TxHash == txHash {
			return true, nil
		}
	}
	return false, nil
}

func (r *memClaimRepo) SetDB(db *gorm.DB) {}

// fakeGateway scripts the wallet's answers for one claim attempt.
type fakeGateway struct {
	mu sync.Mutex

	submitErr   error
	submitCalls int
	txHash      string

	outcome    wallet.Outcome
	awaitErr   error
	awaitCalls int
}

func (g *fakeGateway) SubmitMint(ctx context.Context, userID, walletAddress string, amount int64) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.submitCalls++
	if g.submitErr != nil {
		return "", g.submitErr
	}
	if g.txHash == "" {
		g.txHash = "0xabc123"
	}
	return g.txHash, nil
}

func (g *fakeGateway) AwaitOutcome(ctx context.Context, txHash string) (wallet.Outcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.awaitCalls++
	if g.awaitErr != nil {
		return wallet.Outcome{}, g.awaitErr
	}
	out := g.outcome
	if out.TxHash == "" {
		out.TxHash = txHash
	}
	return out, nil
}

func (g *fakeGateway) TxOutcome(ctx context.Context, txHash string) (wallet.Outcome, error) {
	return g.AwaitOutcome(ctx, txHash)
}

func (g *fakeGateway) MintEvents(ctx context.Context, fromBlock, toBlock uint64) ([]wallet.MintEvent, error) {
	return nil, nil
}

func (g *fakeGateway) LatestBlock(ctx context.Context) (uint64, error) {
	return 0, nil
}

type sentNotification struct {
	UserID string
	Type   string
}

// fakeNotifier records notifications; List and MarkAllRead are unused in
// claim flow tests.
type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (n *fakeNotifier) Notify(ctx context.Context, userID, typ, title, body string, claimID *string, submissionID *uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{UserID: userID, Type: typ})
}

func (n *fakeNotifier) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]model.Notification, int64, error) {
	return nil, 0, nil
}

func (n *fakeNotifier) MarkAllRead(ctx context.Context, userID string) error {
	return nil
}

func (n *fakeNotifier) typesSent() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.sent))
	for _, s := range n.sent {
		out = append(out, s.Type)
	}
	return out
}

var errGatewayDown = errors.New("rpc unreachable")
