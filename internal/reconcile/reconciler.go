package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"
	"github.com/trash2cash/backend/internal/model"
	"github.com/trash2cash/backend/internal/repository"
	"github.com/trash2cash/backend/internal/service"
	"github.com/trash2cash/backend/internal/wallet"
	"github.com/trash2cash/backend/pkg/logger"
)

// Reconciler sweeps pending claims whose outcome the request path never
// recorded: confirmed mints whose completion write failed, reverted mints
// never marked failed, and abandoned submissions that never produced a
// transaction. It is the repair loop for the on-chain/ledger divergence the
// claim flow cannot rule out on its own.
type Reconciler struct {
	claims  repository.ClaimRepository
	gateway wallet.Gateway
	notify  service.NotificationService

	interval   time.Duration
	grace      time.Duration
	abandonAge time.Duration

	scheduler gocron.Scheduler
}

func New(
	claims repository.ClaimRepository,
	gateway wallet.Gateway,
	notify service.NotificationService,
	interval, grace, abandonAge time.Duration,
) *Reconciler {
	if interval <= 0 {
		interval = 2 * time.Minute
	}
	if grace <= 0 {
		grace = 5 * time.Minute
	}
	if abandonAge <= 0 {
		abandonAge = 24 * time.Hour
	}
	return &Reconciler{
		claims:     claims,
		gateway:    gateway,
		notify:     notify,
		interval:   interval,
		grace:      grace,
		abandonAge: abandonAge,
	}
}

func (r *Reconciler) Start() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	if _, err := sched.NewJob(
		gocron.DurationJob(r.interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), r.interval)
			defer cancel()
			r.Sweep(ctx)
		}),
	); err != nil {
		return err
	}
	sched.Start()
	r.scheduler = sched
	logger.Info("claim reconciler started")
	return nil
}

func (r *Reconciler) Stop() {
	if r.scheduler != nil {
		if err := r.scheduler.Shutdown(); err != nil {
			logger.Error("reconciler shutdown: ", err)
		}
	}
}

// auditBlockWindow bounds how far back each sweep scans TokensMinted logs.
const auditBlockWindow = 5000

// Sweep settles every pending claim older than the grace period and then
// audits recent mint events against the ledger. Exported so operators can
// trigger a pass out of band.
func (r *Reconciler) Sweep(ctx context.Context) {
	cutoff := time.Now().Add(-r.grace)
	pending, err := r.claims.ListPendingOlderThan(ctx, cutoff)
	if err != nil {
		logger.Error("list pending claims: ", err)
		return
	}
	if len(pending) > 0 {
		logger.WithFields(logrus.Fields{"count": len(pending)}).Info("reconciling pending claims")
		for i := range pending {
			r.settle(ctx, &pending[i])
		}
	}

	r.auditMints(ctx)
}

// auditMints flags confirmed on-chain mints with no completed claim. These
// are orphans: the transaction landed after the request path stopped waiting
// and the pending row it belonged to was lost or never stored its hash.
func (r *Reconciler) auditMints(ctx context.Context) {
	head, err := r.gateway.LatestBlock(ctx)
	if err != nil {
		logger.Error("fetch latest block: ", err)
		return
	}
	from := uint64(0)
	if head > auditBlockWindow {
		from = head - auditBlockWindow
	}
	events, err := r.gateway.MintEvents(ctx, from, head)
	if err != nil {
		logger.Error("list mint events: ", err)
		return
	}
	for _, ev := range events {
		ok, err := r.claims.CompletedTxExists(ctx, ev.TxHash)
		if err != nil {
			logger.WithFields(logrus.Fields{"tx_hash": ev.TxHash}).Error("check mint against ledger: ", err)
			continue
		}
		if !ok {
			logger.WithFields(logrus.Fields{"tx_hash": ev.TxHash, "block": ev.BlockNumber}).
				Error("on-chain mint has no completed claim; manual review needed")
		}
	}
}

func (r *Reconciler) settle(ctx context.Context, claim *model.TokenClaim) {
	if claim.TxHash == nil || *claim.TxHash == "" {
		// Never reached the chain. Give the wallet prompt a day before
		// declaring the claim abandoned.
		if time.Since(claim.CreatedAt) > r.abandonAge {
			if err := r.claims.MarkFailedIfPending(ctx, claim.ID, "abandoned before submission"); err != nil {
				logger.WithFields(logrus.Fields{"claim_id": claim.ID}).Error("mark abandoned claim failed: ", err)
			}
		}
		return
	}

	out, err := r.gateway.TxOutcome(ctx, *claim.TxHash)
	if err != nil {
		logger.WithFields(logrus.Fields{"claim_id": claim.ID, "tx_hash": *claim.TxHash}).Error("check tx outcome: ", err)
		return
	}

	switch out.Status {
	case wallet.StatusConfirmed:
		err := r.claims.Complete(ctx, claim.ID, *claim.TxHash)
		switch {
		case err == nil:
			logger.WithFields(logrus.Fields{"claim_id": claim.ID, "tx_hash": *claim.TxHash}).Info("repaired unrecorded completion")
			r.notify.Notify(ctx, claim.UserID, "claim_completed", "Tokens claimed",
				"Your claim has been confirmed and recorded.", &claim.ID, nil)
		case errors.Is(err, repository.ErrClaimNotPending):
			// Settled by a concurrent path; nothing to repair.
		case errors.Is(err, repository.ErrOverdraw):
			logger.WithFields(logrus.Fields{"claim_id": claim.ID}).Error("confirmed claim would overdraw balance; manual review needed")
		default:
			logger.WithFields(logrus.Fields{"claim_id": claim.ID}).Error("repair completion: ", err)
		}
	case wallet.StatusRejected:
		if err := r.claims.MarkFailedIfPending(ctx, claim.ID, out.Reason); err != nil {
			logger.WithFields(logrus.Fields{"claim_id": claim.ID}).Error("mark rejected claim failed: ", err)
			return
		}
		r.notify.Notify(ctx, claim.UserID, "claim_failed", "Claim failed",
			"Your claim transaction was rejected by the network. Your balance is unchanged.", &claim.ID, nil)
	default:
		// Still pending on-chain; check again next sweep.
	}
}
