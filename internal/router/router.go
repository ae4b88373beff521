package router

import (
	"time"

	"droply/config"
	"droply/internal/bot"
	"droply/internal/handler"
	"droply/internal/middleware"
	"droply/internal/repository"
	"droply/internal/service"
	"droply/internal/ws"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Setup(cfg *config.Config, db *gorm.DB, gw bot.Gateway, membership service.MembershipChecker) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	// Repositories
	userRepo := repository.NewUserRepository(db)
	codeRepo := repository.NewCodeRepository(db)
	fileRepo := repository.NewFileRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	withdrawalRepo := repository.NewWithdrawalRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	activityHub := ws.NewHub()

	// Services
	ledgerSvc := service.NewLedgerService(userRepo, withdrawalRepo, settingRepo, fileRepo, membership, cfg.Telegram.RequiredChannels, cfg.Telegram.OracleTimeout)
	redemptionSvc := service.NewRedemptionService(codeRepo, settingRepo)

	b := bot.New(bot.Deps{
		Gateway:     gw,
		Ledger:      ledgerSvc,
		Redemption:  redemptionSvc,
		Users:       userRepo,
		Files:       fileRepo,
		Settings:    settingRepo,
		Codes:       codeRepo,
		Audit:       auditRepo,
		Activity:    activityHub,
		OwnerID:     cfg.Telegram.OwnerID,
		BotUsername: cfg.Telegram.BotUsername,
		Channels:    cfg.Telegram.RequiredChannels,
	})

	// Handlers
	webhookHandler := handler.NewWebhookHandler(b, cfg.Telegram.BotToken)
	adminHandler := handler.NewAdminHandler(cfg, redemptionSvc, userRepo, codeRepo, settingRepo, fileRepo)

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.POST("/webhook/:token", webhookHandler.Receive)

	api := r.Group("/api/v1")
	api.Use(middleware.RateLimit(middleware.NewRateLimiter(100, 60*time.Second)))
	{
		admin := api.Group("/admin")
		admin.POST("/login", adminHandler.Login)
		guarded := admin.Group("")
		guarded.Use(middleware.AdminRequired(&cfg.JWT))
		{
			guarded.GET("/stats", adminHandler.Stats)
			guarded.GET("/codes", adminHandler.ListCodes)
			guarded.POST("/codes", adminHandler.CreateCode)
		}
	}

	r.GET("/ws/activity", ws.UpgradeActivityWS(&cfg.JWT, activityHub))

	return r
}
