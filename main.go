package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/migralog/backend/internal/audit"
	"github.com/migralog/backend/internal/cache"
	"github.com/migralog/backend/internal/config"
	"github.com/migralog/backend/internal/handler"
	"github.com/migralog/backend/internal/middleware"
	"github.com/migralog/backend/internal/repository"
	"github.com/migralog/backend/internal/service"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize Zap logger
	var logger *zap.Logger
	if cfg.Server.Environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("Configuration loaded successfully",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
	)

	// Initialize database connection pool with pgx
	pool, err := pgxpool.New(context.Background(), cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	// Test database connection
	if err := pool.Ping(context.Background()); err != nil {
		logger.Fatal("Failed to ping database", zap.Error(err))
	}
	logger.Info("Successfully connected to database")

	// Initialize the optional Redis analytics cache. A missing address
	// disables caching; analyses then always recompute.
	cacheClient := cache.New(cfg.Redis, logger)
	var analyticsCache service.AnalyticsCache
	if cacheClient != nil {
		analyticsCache = cacheClient
		defer cacheClient.Close()
		logger.Info("Analytics cache enabled", zap.String("address", cfg.Redis.Address))
	}

	// Initialize repositories
	episodeRepo := repository.NewEpisodeRepository(pool, logger)
	redFlagRepo := repository.NewRedFlagRepository(pool, logger)
	userRepo := repository.NewUserRepository(pool, logger)

	// Initialize services
	episodeService := service.NewEpisodeService(episodeRepo, logger)
	analyticsService := service.NewAnalyticsService(episodeRepo, analyticsCache, cfg.Analytics, logger)
	screeningService := service.NewScreeningService(redFlagRepo, userRepo, logger)

	// Initialize audit logging for clinically sensitive operations
	auditLogger := audit.NewLogger(pool, logger)

	// Initialize handlers
	handlers := handler.Handlers{
		Episode:   handler.NewEpisodeHandler(episodeService, auditLogger, logger),
		Analytics: handler.NewAnalyticsHandler(analyticsService, logger),
		Screening: handler.NewScreeningHandler(screeningService, auditLogger, logger),
		Status:    handler.NewStatusHandler(pool, logger),
	}

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize Gin router
	r := gin.New()

	// Add recovery middleware (must be first)
	r.Use(middleware.RecoveryMiddleware(logger))

	// Add CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"}, // Configure appropriately for production
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID", "X-Trace-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Add request ID middleware
	r.Use(middleware.RequestIDMiddleware())

	// Add request logging middleware
	r.Use(middleware.RequestLoggingMiddleware(logger))

	// Add error logging middleware
	r.Use(middleware.ErrorLoggingMiddleware(logger))

	// Add slow request logging middleware
	r.Use(middleware.SlowRequestLoggingMiddleware(logger, 1*time.Second))

	// Register API routes
	handler.RegisterRoutes(r, handlers)

	// Start server with graceful shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
