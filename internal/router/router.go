// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/javajoker/edumarket-backend/internal/config"
	"github.com/javajoker/edumarket-backend/internal/handlers"
	"github.com/javajoker/edumarket-backend/internal/middleware"
	"github.com/javajoker/edumarket-backend/internal/services"
	"github.com/javajoker/edumarket-backend/internal/utils"
)

// Services bundles the wired service layer so main can reuse it for the
// background sweeper.
type Services struct {
	Notification   *services.NotificationService
	Storage        *services.StorageService
	Ledger         *services.LedgerService
	Payment        *services.PaymentService
	Payout         *services.PayoutService
	Reconciliation *services.ReconciliationService
}

func BuildServices(db *gorm.DB, cfg *config.Config) *Services {
	notificationService := services.NewNotificationService(db, cfg)
	storageService, _ := services.NewStorageService(cfg)
	ledgerService := services.NewLedgerService(db, cfg, notificationService)
	paymentService := services.NewPaymentService(db, cfg, ledgerService)
	payoutService := services.NewPayoutService(db, cfg, notificationService)
	reconciliationService := services.NewReconciliationService(db, ledgerService)

	return &Services{
		Notification:   notificationService,
		Storage:        storageService,
		Ledger:         ledgerService,
		Payment:        paymentService,
		Payout:         payoutService,
		Reconciliation: reconciliationService,
	}
}

func Initialize(db *gorm.DB, cfg *config.Config, svc *Services) *gin.Engine {
	// Initialize handlers
	orderHandler := handlers.NewOrderHandler(svc.Ledger)
	paymentHandler := handlers.NewPaymentHandler(svc.Payment, svc.Ledger, svc.Payout)
	webhookHandler := handlers.NewWebhookHandler(svc.Reconciliation, cfg)
	reconciliationHandler := handlers.NewReconciliationHandler(svc.Reconciliation)
	adminHandler := handlers.NewAdminHandler(svc.Ledger, svc.Payout, svc.Storage)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(cfg))
	r.Use(middleware.I18nMiddleware())
	r.Use(middleware.GeneralRateLimit())
	r.Use(middleware.AuditLogMiddleware(db))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Order routes
		orders := v1.Group("/orders")
		{
			orders.POST("", middleware.OptionalAuth(), orderHandler.CreateOrder)
			orders.GET("/:id", middleware.AuthRequired(), orderHandler.GetOrder)
		}

		// Payment routes
		payments := v1.Group("/payments")
		payments.Use(middleware.AuthRequired())
		{
			payments.POST("/intent", paymentHandler.CreatePaymentIntent)
			payments.POST("/confirm", paymentHandler.ConfirmPayment)
			payments.POST("/crypto/invoice", paymentHandler.CreateCryptoInvoice)
			payments.GET("/balance", paymentHandler.GetBalance)
			payments.POST("/payout", paymentHandler.RequestPayout)
		}

		// Webhook routes (unauthenticated, rate limited)
		webhooks := v1.Group("/webhooks")
		webhooks.Use(middleware.WebhookRateLimit())
		{
			webhooks.POST("/crypto", webhookHandler.CryptoWebhook)
			webhooks.POST("/sms", webhookHandler.SMSWebhook)
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			admin.POST("/reconciliation", reconciliationHandler.Reconcile)
			admin.GET("/reconciliation/logs", reconciliationHandler.GetLogs)

			adminPayouts := admin.Group("/payouts")
			{
				adminPayouts.GET("", adminHandler.GetPayouts)
				adminPayouts.POST("/:id/decision", adminHandler.DecidePayout)
			}

			adminOrders := admin.Group("/orders")
			{
				adminOrders.POST("/:id/verify", middleware.UploadRateLimit(), adminHandler.VerifyOrder)
				adminOrders.POST("/:id/cancel", adminHandler.CancelOrder)
			}

			admin.POST("/sweep", adminHandler.TriggerSweep)
		}
	}

	// Static file serving (for development)
	if cfg.Environment == "development" {
		r.Static("/uploads", "./uploads")
	}

	return r
}
