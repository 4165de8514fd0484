package router

import (
	"github.com/gin-gonic/gin"
	libredis "github.com/redis/go-redis/v9"

	"github.com/skillmarket/escrow-backend/internal/config"
	"github.com/skillmarket/escrow-backend/internal/http/handlers"
	"github.com/skillmarket/escrow-backend/internal/http/middleware"
	"github.com/skillmarket/escrow-backend/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	orderHandler *handlers.OrderHandler,
	milestoneHandler *handlers.MilestoneHandler,
	disputeHandler *handlers.DisputeHandler,
	refundHandler *handlers.RefundHandler,
	adminHandler *handlers.AdminHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
	redisClient *libredis.Client,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")
	api.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod, redisClient))

	// Маршруты участников сделки
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.POST("/orders", orderHandler.Create)
		protected.GET("/orders", orderHandler.List)
		protected.GET("/orders/:id", middleware.UUIDValidator("id"), orderHandler.Get)
		protected.POST("/orders/:id/submit", middleware.UUIDValidator("id"), orderHandler.SubmitWork)
		protected.POST("/orders/:id/revision", middleware.UUIDValidator("id"), orderHandler.RequestRevision)
		protected.POST("/orders/:id/approve", middleware.UUIDValidator("id"), orderHandler.Approve)
		protected.POST("/orders/:id/release", middleware.UUIDValidator("id"), orderHandler.Release)

		// Этапы
		protected.POST("/orders/:id/milestones/:milestoneId/start", middleware.UUIDValidator("id"), middleware.UUIDValidator("milestoneId"), milestoneHandler.Start)
		protected.POST("/orders/:id/milestones/:milestoneId/submit", middleware.UUIDValidator("id"), middleware.UUIDValidator("milestoneId"), milestoneHandler.Submit)
		protected.POST("/orders/:id/milestones/:milestoneId/approve", middleware.UUIDValidator("id"), middleware.UUIDValidator("milestoneId"), milestoneHandler.Approve)
		protected.POST("/orders/:id/milestones/:milestoneId/pay", middleware.UUIDValidator("id"), middleware.UUIDValidator("milestoneId"), milestoneHandler.Pay)

		// Споры
		protected.POST("/orders/:id/dispute", middleware.UUIDValidator("id"), disputeHandler.Open)
		protected.POST("/orders/:id/dispute/evidence", middleware.UUIDValidator("id"), disputeHandler.AddEvidence)
		protected.GET("/orders/:id/dispute/evidence", middleware.UUIDValidator("id"), disputeHandler.ListEvidence)

		// Возвраты
		protected.POST("/orders/:id/refund", middleware.UUIDValidator("id"), refundHandler.Request)
		protected.GET("/orders/:id/refunds", middleware.UUIDValidator("id"), refundHandler.ListByOrder)
		protected.GET("/refunds/:refundId", middleware.UUIDValidator("refundId"), refundHandler.Get)
	}

	// Админский шлюз
	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(tokenManager), middleware.RequireAdmin())
	{
		admin.GET("/orders/:id", middleware.UUIDValidator("id"), adminHandler.GetOrder)
		admin.POST("/orders/:id/force-status", middleware.UUIDValidator("id"), adminHandler.ForceStatus)
		admin.POST("/orders/:id/refund", middleware.UUIDValidator("id"), adminHandler.DirectRefund)
		admin.GET("/orders/:id/audit", middleware.UUIDValidator("id"), adminHandler.AuditTrail)

		admin.POST("/orders/:id/dispute/review", middleware.UUIDValidator("id"), disputeHandler.StartReview)
		admin.POST("/orders/:id/dispute/resolve", middleware.UUIDValidator("id"), disputeHandler.Resolve)

		admin.GET("/refunds", refundHandler.List)
		admin.POST("/refunds/:refundId/process", middleware.UUIDValidator("refundId"), refundHandler.Process)
	}

	return r
}
