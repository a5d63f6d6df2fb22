package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/trash2cash/backend/internal/ai"
	"github.com/trash2cash/backend/internal/config"
	"github.com/trash2cash/backend/internal/handler"
	appmw "github.com/trash2cash/backend/internal/middleware"
	"github.com/trash2cash/backend/internal/repository"
	"github.com/trash2cash/backend/internal/service"
	"github.com/trash2cash/backend/internal/storage"
	"github.com/trash2cash/backend/internal/wallet"
	"github.com/trash2cash/backend/pkg/logger"
	"gorm.io/gorm"
)

type Server struct {
	e     *echo.Echo
	sha   string
	build string
}

func New(db *gorm.DB, cfg *config.Config, gateway wallet.Gateway, avatars storage.AvatarStore, sha, buildTime string) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		AllowOriginFunc: func(origin string) (bool, error) {
			low := strings.ToLower(origin)
			if strings.HasPrefix(low, "http://localhost:") || strings.HasPrefix(low, "http://127.0.0.1:") ||
				strings.HasPrefix(low, "https://localhost:") || strings.HasPrefix(low, "https://127.0.0.1:") {
				return true, nil
			}
			u, err := url.Parse(origin)
			if err != nil {
				return false, nil
			}
			if u.Scheme != "http" && u.Scheme != "https" {
				return false, nil
			}
			host := u.Hostname()
			if strings.HasSuffix(host, "vercel.app") || strings.HasSuffix(host, "trash2cash.io") {
				return true, nil
			}
			return false, nil
		},
	}))

	userRepo := repository.NewUserRepository(db)
	claimRepo := repository.NewClaimRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	notifySvc := service.NewNotificationService(notificationRepo)
	claimSvc := service.NewClaimService(claimRepo, userRepo, gateway, notifySvc, cfg.ClaimConfirmTimeout, cfg.ClaimLockTTL)
	classifier := ai.NewOpenRouterClassifier(cfg.OpenRouterAPIKey, cfg.OpenRouterModel, nil)
	scanSvc := service.NewScanService(classifier, submissionRepo, userRepo, notifySvc)
	leaderboardSvc := service.NewLeaderboardService(userRepo)
	userSvc := service.NewUserService(userRepo, avatars)

	claimHandler := handler.NewClaimHandler(claimSvc)
	scanHandler := handler.NewScanHandler(scanSvc)
	leaderboardHandler := handler.NewLeaderboardHandler(leaderboardSvc)
	userHandler := handler.NewUserHandler(userSvc)
	notificationHandler := handler.NewNotificationHandler(notifySvc)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"ok":         "true",
			"git_sha":    sha,
			"build_time": buildTime,
		})
	})

	api := e.Group("/api")
	api.GET("/leaderboard", leaderboardHandler.Top)

	authed := api.Group("")
	authMw, err := appmw.NewAuthMiddleware(context.Background(), cfg.FirebaseProjectID)
	if err != nil {
		logger.Warn("firebase auth disabled: ", err)
	} else {
		authed.Use(authMw.RequireAuth)
	}

	authed.GET("/me", userHandler.Me)
	authed.PUT("/me", userHandler.UpdateMe)
	authed.POST("/me/avatar", userHandler.UploadAvatar)
	authed.GET("/me/tokens", claimHandler.Stats)
	authed.GET("/me/submissions", scanHandler.ListMine)
	authed.POST("/claims", claimHandler.Submit)
	authed.GET("/claims", claimHandler.ListMine)
	authed.POST("/scan", scanHandler.Submit)
	authed.GET("/notifications", notificationHandler.List)
	authed.POST("/notifications/read", notificationHandler.MarkAllRead)

	return &Server{e: e, sha: sha, build: buildTime}
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}
