package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/liliang-cn/beacon/internal/api"
	"github.com/liliang-cn/beacon/internal/config"
	"github.com/liliang-cn/beacon/internal/realtime"
	"github.com/liliang-cn/beacon/internal/repository"
	"github.com/liliang-cn/beacon/internal/service"
	"github.com/liliang-cn/beacon/internal/wordware"
)

var (
	configPath = flag.String("config", "", "Path to config file")
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := newLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := repository.NewDB(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	logRepo := repository.NewLogRepository(db)

	// Changefeed: redis when configured so every replica sees every write
	hub := realtime.NewHub(logger)
	bus, err := newBus(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Fatal("Failed to initialize changefeed", zap.Error(err))
	}
	defer bus.Close()
	if err := bus.Start(ctx, hub.Broadcast); err != nil {
		logger.Fatal("Failed to start changefeed", zap.Error(err))
	}

	// Initialize services
	generator := wordware.New(cfg.Wordware.BaseURL, cfg.Wordware.APIKey, wordware.WithTimeout(cfg.Wordware.Timeout))
	if cfg.Wordware.APIKey == "" {
		logger.Warn("Wordware API key not set; sentiment analysis and summaries will fail")
	}

	writer := service.NewLogWriter(logRepo, bus, logger)
	analysisService := service.NewAnalysisService(cfg.Wordware, generator, logger)
	orchestrator := service.NewOrchestrator(writer, analysisService, logger)
	summaryService := service.NewSummaryService(cfg.Wordware, logRepo, writer, generator, logger)
	dashboardService := service.NewDashboardService(logRepo, logger)

	// Setup router
	router := api.SetupRouter(api.Services{
		Orchestrator: orchestrator,
		Summary:      summaryService,
		Dashboard:    dashboardService,
		Hub:          hub,
	}, api.RouterConfig{
		APIKey:       cfg.Admin.APIKey,
		AllowOrigins: cfg.CORS.AllowOrigins,
		Stream:       cfg.Stream,
	}, logger)

	// Create HTTP server. No write timeout: /api/logs/stream stays open.
	srv := &http.Server{
		Addr:              cfg.Address(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	// Shutdown waits for open connections; end the log streams so it can finish
	srv.RegisterOnShutdown(hub.Close)

	// Start server in goroutine
	go func() {
		logger.Info("Starting Beacon server",
			zap.String("address", cfg.Address()),
			zap.String("database", cfg.Database.Driver),
			zap.Bool("redis", cfg.Redis.Addr != ""),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()

	logger.Info("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log.level: %w", err)
	}

	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

func newBus(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (realtime.Bus, error) {
	if cfg.Addr == "" {
		return realtime.NewLocalBus(), nil
	}
	return realtime.NewRedisBus(ctx, cfg.Addr, cfg.Channel, logger)
}
