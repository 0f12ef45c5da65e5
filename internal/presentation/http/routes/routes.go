package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/finveo/invoiceflow-api/internal/config"
	"github.com/finveo/invoiceflow-api/internal/domain/repository"
	"github.com/finveo/invoiceflow-api/internal/presentation/http/handler"
	"github.com/finveo/invoiceflow-api/internal/presentation/http/middleware"
	"github.com/finveo/invoiceflow-api/pkg/utils"
)

// Handlers groups all HTTP handlers for route registration
type Handlers struct {
	Auth         *handler.AuthHandler
	Receipt      *handler.ReceiptHandler
	Download     *handler.DownloadHandler
	Notification *handler.NotificationHandler
	Audit        *handler.AuditHandler
	Webhook      *handler.WebhookHandler
}

// Deps carries the cross-cutting dependencies the router wires up
type Deps struct {
	Cfg             *config.Config
	JWTManager      *utils.JWTManager
	IdempotencyRepo repository.IdempotencyRepository
}

// Setup configures the Gin engine with all application routes
func Setup(h *Handlers, deps *Deps) *gin.Engine {
	if !deps.Cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.LoggerMiddleware())
	router.Use(middleware.CORSMiddleware(&deps.Cfg.CORS))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": deps.Cfg.App.Name})
	})

	// The public download endpoint is the only unauthenticated surface
	// that touches receipt data, so it gets its own rate limiter.
	downloadLimiter := middleware.NewClientRateLimiter(middleware.DefaultRateLimiterConfig())

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
		}

		v1.GET("/receipts/download/:token", downloadLimiter.Middleware(), h.Download.Download)

		v1.POST("/webhooks/payment", h.Webhook.PaymentConfirmed)

		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(deps.JWTManager))
		{
			receipts := protected.Group("/receipts")
			{
				receipts.GET("", h.Receipt.List)
				receipts.POST("", middleware.IdempotencyRequired(middleware.IdempotencyConfig{
					Repo: deps.IdempotencyRepo,
				}), h.Receipt.Create)
				receipts.GET("/:id", h.Receipt.Get)
				receipts.PUT("/:id", h.Receipt.Update)
				receipts.DELETE("/:id", h.Receipt.Delete)
				receipts.POST("/:id/generate-pdf", h.Receipt.GeneratePDF)
				receipts.POST("/:id/send", h.Receipt.Send)
				receipts.POST("/:id/download-token", h.Receipt.IssueToken)
			}

			notifications := protected.Group("/notifications")
			{
				notifications.GET("", h.Notification.List)
				notifications.POST("/:id/read", h.Notification.MarkRead)
			}

			admin := protected.Group("/admin")
			admin.Use(middleware.RequireRole("admin"))
			{
				admin.GET("/receipts/stats", h.Receipt.Stats)
				admin.POST("/receipts/:id/review", h.Receipt.Review)
				admin.POST("/tokens/:id/revoke", h.Receipt.RevokeToken)
				admin.GET("/audit-logs", h.Audit.List)
			}
		}
	}

	return router
}
