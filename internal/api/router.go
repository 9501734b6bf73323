package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/liliang-cn/beacon/internal/api/dashboard"
	"github.com/liliang-cn/beacon/internal/api/middleware"
	"github.com/liliang-cn/beacon/internal/api/webhook"
	"github.com/liliang-cn/beacon/internal/config"
	"github.com/liliang-cn/beacon/internal/realtime"
	"github.com/liliang-cn/beacon/internal/service"
)

// RouterConfig holds configuration for the router
type RouterConfig struct {
	APIKey       string
	AllowOrigins []string
	Stream       config.StreamConfig
}

// Services are the application services behind the HTTP API
type Services struct {
	Orchestrator *service.Orchestrator
	Summary      *service.SummaryService
	Dashboard    *service.DashboardService
	Hub          *realtime.Hub
}

// SetupRouter sets up the Gin router
func SetupRouter(svc Services, cfg RouterConfig, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.AllowOrigins))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Provider webhooks (public)
	webhookHandler := webhook.NewHandler(svc.Orchestrator, logger)
	webhookHandler.RegisterRoutes(r.Group("/api/webhook"))

	// Dashboard API (requires API key)
	dashboardHandler := dashboard.NewHandler(svc.Summary, svc.Dashboard, svc.Hub, cfg.Stream, logger)
	dashboardGroup := r.Group("/api")
	dashboardGroup.Use(middleware.Auth(cfg.APIKey))
	dashboardHandler.RegisterRoutes(dashboardGroup)

	return r
}
