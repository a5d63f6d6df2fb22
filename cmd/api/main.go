package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/trash2cash/backend/internal/config"
	"github.com/trash2cash/backend/internal/db"
	"github.com/trash2cash/backend/internal/model"
	"github.com/trash2cash/backend/internal/reconcile"
	"github.com/trash2cash/backend/internal/repository"
	"github.com/trash2cash/backend/internal/server"
	"github.com/trash2cash/backend/internal/service"
	"github.com/trash2cash/backend/internal/storage"
	"github.com/trash2cash/backend/internal/wallet"
	"github.com/trash2cash/backend/pkg/logger"
)

// Set via -ldflags at build time.
var (
	gitSHA    = "dev"
	buildTime = "unknown"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	conn, err := db.Connect(cfg)
	if err != nil {
		log.Fatalf("db connect error: %v", err)
	}
	if err := conn.AutoMigrate(
		&model.User{},
		&model.TokenClaim{},
		&model.RecyclingSubmission{},
		&model.SubmissionItem{},
		&model.Notification{},
	); err != nil {
		log.Fatalf("auto migrate error: %v", err)
	}

	var gateway wallet.Gateway
	ethGateway, err := wallet.NewEthGateway(cfg)
	if err != nil {
		logger.Warn("wallet gateway disabled: ", err)
	} else {
		gateway = ethGateway
		defer ethGateway.Close()
	}

	ctx := context.Background()
	var avatars storage.AvatarStore
	if cfg.AvatarBucket != "" {
		store, err := storage.NewGCSAvatarStore(ctx, cfg.AvatarBucket)
		if err != nil {
			logger.Warn("avatar storage disabled: ", err)
		} else {
			avatars = store
			defer store.Close()
		}
	}

	srv := server.New(conn, cfg, gateway, avatars, gitSHA, buildTime)

	if gateway != nil {
		claimRepo := repository.NewClaimRepository(conn)
		notifySvc := service.NewNotificationService(repository.NewNotificationRepository(conn))
		reconciler := reconcile.New(claimRepo, gateway, notifySvc,
			cfg.ReconcileInterval, cfg.ReconcileGrace, cfg.ReconcileAbandonAge)
		if err := reconciler.Start(); err != nil {
			log.Fatalf("reconciler start error: %v", err)
		}
		defer reconciler.Stop()
	} else {
		logger.Warn("reconciler disabled: no wallet gateway")
	}

	addr := ":" + cfg.Port
	log.Printf("starting server on %s", addr)
	if err := srv.Start(addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
