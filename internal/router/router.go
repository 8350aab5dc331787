package router

import (
	"context"
	"errors"
	"net/http"
	"time"

	"viewearn/config"
	"viewearn/internal/clock"
	"viewearn/internal/handler"
	"viewearn/internal/middleware"
	"viewearn/internal/repository"
	"viewearn/internal/service"
	"viewearn/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Setup wires repositories, services and handlers onto a gin engine.
// Background work started here stops when ctx is cancelled.
func Setup(ctx context.Context, cfg *config.Config, db *gorm.DB, log *zap.Logger) (*gin.Engine, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	clk, err := clock.NewZone(cfg.Rewards.Timezone)
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogging(log))
	if cfg.Metrics.Enabled {
		r.Use(middleware.Metrics())
	}

	// Repositories
	store := repository.NewLedgerStore(db)
	referralRepo := repository.NewReferralRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	adminRepo := repository.NewAdminRepository(db)

	walletHub := ws.NewHub()

	// Services
	var pusher service.Pusher
	switch fcm, err := service.NewFCMService(ctx, cfg.Firebase.ServiceAccountPath, log); {
	case err == nil:
		log.Info("[FCM] push notifications enabled")
		pusher = fcm
	case errors.Is(err, service.ErrFCMNotConfigured):
		log.Info("[FCM] push notifications disabled: set FIREBASE_SERVICE_ACCOUNT_PATH to enable")
	default:
		log.Warn("[FCM] push notifications disabled", zap.Error(err))
	}
	notifSvc := service.NewNotificationService(notificationRepo, pusher, log)
	ledger := service.NewLedgerService(store, clk, log)
	ledger.SetNotifier(notifSvc)
	ledger.SetPublisher(walletHub)
	referralSvc := service.NewReferralService(referralRepo, ledger, log)

	// Handlers
	walletHandler := handler.NewWalletHandler(ledger)
	earnHandler := handler.NewEarnHandler(ledger)
	taskHandler := handler.NewTaskHandler(ledger)
	streakHandler := handler.NewStreakHandler(ledger)
	rewardHandler := handler.NewRewardHandler(ledger)
	withdrawalHandler := handler.NewWithdrawalHandler(ledger)
	referralHandler := handler.NewReferralHandler(referralSvc)
	notificationHandler := handler.NewNotificationHandler(notifSvc)
	adminHandler := handler.NewAdminHandler(adminRepo, ledger, clk)

	authMw := middleware.AuthRequired(&cfg.JWT)
	limitMw := func(c *gin.Context) { c.Next() }
	if cfg.RateLimit.RPS > 0 {
		limitMw = middleware.RateLimit(middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, 3*time.Minute, ctx.Done()))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	api := r.Group("/api/v1")
	api.Use(authMw, limitMw)
	{
		me := api.Group("/me")
		{
			me.GET("/wallet", walletHandler.GetWallet)
			me.GET("/wallet/transactions", walletHandler.Transactions)
			me.GET("/earnings", walletHandler.Earnings)
			me.GET("/convert/preview", walletHandler.ConvertPreview)
			me.POST("/convert", walletHandler.Convert)
			me.GET("/streak", streakHandler.Get)
			me.POST("/streak/check-in", streakHandler.CheckIn)
			me.GET("/rewards", rewardHandler.Owned)
			me.POST("/withdrawals", withdrawalHandler.Create)
			me.GET("/withdrawals", withdrawalHandler.List)
			me.GET("/referral-code", referralHandler.GetMyReferralCode)
			me.GET("/referrals", referralHandler.GetMyReferrals)
			me.POST("/referral", referralHandler.Redeem)
			me.GET("/notifications", notificationHandler.List)
			me.PUT("/notifications/:id/read", notificationHandler.MarkRead)
			me.POST("/device-token", notificationHandler.RegisterDevice)
		}

		api.POST("/videos/:id/view", earnHandler.VideoView)
		api.POST("/ads/:id/view", earnHandler.AdView)
		api.GET("/tasks", taskHandler.List)
		api.POST("/tasks/:id/claim", taskHandler.Claim)
		api.GET("/rewards", rewardHandler.Catalog)
		api.POST("/rewards/:id/purchase", rewardHandler.Purchase)

		admin := api.Group("/admin")
		admin.Use(middleware.AdminRequired())
		{
			admin.GET("/dashboard", adminHandler.Dashboard)
			admin.GET("/analytics", adminHandler.Analytics)
			admin.GET("/transactions", adminHandler.ListTransactions)
			admin.GET("/referrals", adminHandler.ListReferrals)
			admin.GET("/withdrawals", adminHandler.ListWithdrawals)
			admin.POST("/withdrawals/:id/approve", adminHandler.ApproveWithdrawal)
			admin.POST("/withdrawals/:id/reject", adminHandler.RejectWithdrawal)
			admin.GET("/users/:id/reconcile", adminHandler.Reconcile)
		}
	}

	r.GET("/ws/wallet", ws.UpgradeWalletWS(&cfg.JWT, walletHub, ledger))

	return r, nil
}
