package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/trash2cash/backend/internal/model"
	"github.com/trash2cash/backend/internal/repository"
	"github.com/trash2cash/backend/internal/wallet"
	"github.com/trash2cash/backend/pkg/logger"
	"gorm.io/gorm"
)

// ClaimService drives one claim attempt from request to terminal state. It
// guarantees at most one completion write per confirmed transaction: the
// claim row transition and the user counter move in one conditional ledger
// transaction, with an in-process guard keyed by tx hash in front of it to
// absorb duplicate confirmation deliveries cheaply.
type ClaimService interface {
	SubmitClaim(ctx context.Context, userID, walletAddress string, amount int64) (*model.TokenClaim, error)
	ListByUser(ctx context.Context, userID string) ([]model.TokenClaim, error)
	Stats(ctx context.Context, userID string) (TokenStats, error)
}

type claimService struct {
	claims  repository.ClaimRepository
	users   repository.UserRepository
	gateway wallet.Gateway
	notify  NotificationService

	confirmTimeout time.Duration
	lockTTL        time.Duration

	mu       sync.Mutex
	recorded map[string]bool // tx hash -> completion already written
}

// recordedGuardCap bounds the duplicate-confirmation guard. The conditional
// ledger transition stays authoritative, so dropping old entries only costs
// one redundant no-op Complete per replayed hash.
const recordedGuardCap = 1024

func NewClaimService(
	claims repository.ClaimRepository,
	users repository.UserRepository,
	gateway wallet.Gateway,
	notify NotificationService,
	confirmTimeout, lockTTL time.Duration,
) ClaimService {
	if confirmTimeout <= 0 {
		confirmTimeout = 3 * time.Minute
	}
	if lockTTL <= 0 {
		lockTTL = 5 * time.Minute
	}
	return &claimService{
		claims:         claims,
		users:          users,
		gateway:        gateway,
		notify:         notify,
		confirmTimeout: confirmTimeout,
		lockTTL:        lockTTL,
		recorded:       make(map[string]bool),
	}
}

func (s *claimService) SubmitClaim(ctx context.Context, userID, walletAddress string, amount int64) (*model.TokenClaim, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user is required", ErrValidation)
	}
	// IsHexAddress alone also accepts bare 40-hex strings; the claim contract
	// requires the 0x prefix.
	if !strings.HasPrefix(walletAddress, "0x") || !common.IsHexAddress(walletAddress) {
		return nil, fmt.Errorf("%w: invalid wallet address", ErrValidation)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if s.gateway == nil {
		return nil, errors.New("wallet gateway is not configured")
	}

	// The lock lives in the ledger so a second session on another device is
	// rejected too, not just a double click in this one.
	ok, err := s.users.AcquireClaimLock(ctx, userID, s.lockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrClaimInFlight
	}
	defer func() {
		if err := s.users.ReleaseClaimLock(context.WithoutCancel(ctx), userID); err != nil {
			logger.WithFields(logrus.Fields{"user_id": userID}).Error("release claim lock: ", err)
		}
	}()

	u, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if amount > Available(u.TotalTokens, u.ClaimedTokens) {
		return nil, ErrInsufficientBalance
	}

	claim := &model.TokenClaim{
		ID:            uuid.NewString(),
		UserID:        userID,
		WalletAddress: walletAddress,
		Amount:        amount,
	}
	if err := s.claims.CreatePending(ctx, claim); err != nil {
		return nil, err
	}
	if err := s.users.SetWalletAddress(ctx, userID, walletAddress); err != nil {
		logger.WithFields(logrus.Fields{"user_id": userID}).Warn("remember wallet address: ", err)
	}

	txHash, err := s.gateway.SubmitMint(ctx, userID, walletAddress, amount)
	if err != nil {
		// Never reached the chain: safe to fail the claim outright.
		if ferr := s.claims.MarkFailedIfPending(context.WithoutCancel(ctx), claim.ID, err.Error()); ferr != nil {
			logger.WithFields(logrus.Fields{"claim_id": claim.ID}).Error("mark claim failed: ", ferr)
		}
		return nil, fmt.Errorf("%w: %v", ErrWalletRejected, err)
	}
	claim.TxHash = &txHash
	if err := s.claims.SetTxHash(ctx, claim.ID, txHash); err != nil {
		// The reconciler depends on this hash; without it a lost completion
		// cannot be repaired automatically.
		logger.WithFields(logrus.Fields{"claim_id": claim.ID, "tx_hash": txHash}).Error("record tx hash: ", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.confirmTimeout)
	defer cancel()
	out, err := s.gateway.AwaitOutcome(waitCtx, txHash)
	if err != nil {
		// Chain state unknown; leave the claim pending for the reconciler.
		logger.WithFields(logrus.Fields{"claim_id": claim.ID, "tx_hash": txHash}).Error("await outcome: ", err)
		return claim, nil
	}

	switch out.Status {
	case wallet.StatusRejected:
		if ferr := s.claims.MarkFailedIfPending(context.WithoutCancel(ctx), claim.ID, out.Reason); ferr != nil {
			logger.WithFields(logrus.Fields{"claim_id": claim.ID}).Error("mark claim failed: ", ferr)
		}
		claim.Status = model.ClaimStatusFailed
		claim.FailReason = out.Reason
		s.notify.Notify(ctx, userID, "claim_failed", "Claim failed",
			fmt.Sprintf("Your claim of %d T2C was rejected by the network.", amount), &claim.ID, nil)
		return nil, fmt.Errorf("%w: %s", ErrWalletRejected, out.Reason)

	case wallet.StatusPending:
		// Still unconfirmed after the deadline. Not a failure: the
		// reconciler settles it once the chain decides.
		logger.WithFields(logrus.Fields{"claim_id": claim.ID, "tx_hash": txHash}).Info("claim still pending after confirm timeout")
		return claim, nil

	default: // confirmed
		if err := s.recordCompletion(context.WithoutCancel(ctx), claim, out.TxHash); err != nil {
			return nil, err
		}
		claim.Status = model.ClaimStatusCompleted
		s.notify.Notify(ctx, userID, "claim_completed", "Tokens claimed",
			fmt.Sprintf("%d T2C sent to %s.", amount, walletAddress), &claim.ID, nil)
		return claim, nil
	}
}

// recordCompletion writes the completed state exactly once for a confirmed
// transaction. Replays of the same confirmation are no-ops at both guards.
func (s *claimService) recordCompletion(ctx context.Context, claim *model.TokenClaim, txHash string) error {
	s.mu.Lock()
	if s.recorded[txHash] {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	err := s.claims.Complete(ctx, claim.ID, txHash)
	switch {
	case err == nil, errors.Is(err, repository.ErrClaimNotPending):
		s.mu.Lock()
		if len(s.recorded) >= recordedGuardCap {
			s.recorded = make(map[string]bool, recordedGuardCap)
		}
		s.recorded[txHash] = true
		s.mu.Unlock()
		return nil
	case errors.Is(err, repository.ErrOverdraw):
		// The mint landed but recording it would break the balance
		// invariant. Leave the claim pending and flag it for support.
		logger.WithFields(logrus.Fields{"claim_id": claim.ID, "tx_hash": txHash}).Error("confirmed claim would overdraw balance")
		s.notifyDivergence(ctx, claim)
		return fmt.Errorf("%w: completion would overdraw balance", ErrLedgerWrite)
	default:
		logger.WithFields(logrus.Fields{"claim_id": claim.ID, "tx_hash": txHash}).Error("completion write failed: ", err)
		s.notifyDivergence(ctx, claim)
		return fmt.Errorf("%w: %v", ErrLedgerWrite, err)
	}
}

func (s *claimService) notifyDivergence(ctx context.Context, claim *model.TokenClaim) {
	s.notify.Notify(ctx, claim.UserID, "claim_unrecorded", "Tokens sent, history pending",
		"Your tokens were sent to your wallet but we couldn't update your claim history yet. "+
			"It will be corrected automatically; contact support if it persists.", &claim.ID, nil)
}

func (s *claimService) ListByUser(ctx context.Context, userID string) ([]model.TokenClaim, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user is required", ErrValidation)
	}
	return s.claims.ListByUser(ctx, userID, 50)
}

func (s *claimService) Stats(ctx context.Context, userID string) (TokenStats, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return TokenStats{}, ErrNotFound
		}
		return TokenStats{}, err
	}

	// The claimed counter and the claim history are written in the same
	// transaction; a mismatch here means a completion repair is still owed.
	if sum, err := s.claims.SumCompleted(ctx, userID); err == nil && sum != u.ClaimedTokens {
		logger.WithFields(logrus.Fields{
			"user_id":     userID,
			"counter":     u.ClaimedTokens,
			"history_sum": sum,
		}).Warn("claimed counter diverges from claim history")
	}

	return TokenStats{
		TotalEarned: u.TotalTokens,
		Available:   Available(u.TotalTokens, u.ClaimedTokens),
		Claimed:     u.ClaimedTokens,
	}, nil
}
