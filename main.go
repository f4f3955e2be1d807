package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/config"
	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/handler"
	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/middleware"
	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/pkg/logger"
	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("configuration loaded successfully", "reference_source", cfg.Reference.Source)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize services
	minioSvc, err := service.NewMinioService(&cfg.Minio)
	if err != nil {
		slog.Error("failed to initialize MINIO service", "error", err)
		os.Exit(1)
	}
	if err := minioSvc.EnsureBucket(ctx); err != nil {
		slog.Error("failed to ensure MINIO bucket", "error", err)
		os.Exit(1)
	}

	source, err := service.NewSource(ctx, &cfg.Reference)
	if err != nil {
		slog.Error("failed to initialize reference source", "error", err)
		os.Exit(1)
	}
	references := service.NewReferenceService(source, cfg.Reference.Sheets, cfg.Accounting.VendorFix)

	service.InitRunStore(&cfg.Store)
	store := service.GetRunStore()
	runner := service.NewRunner(store, minioSvc, references, cfg.Rules, cfg.Accounting)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(cfg)
	runHandler := handler.NewRunHandler(runner, store)
	referenceHandler := handler.NewReferenceHandler(references, source)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Accept-Encoding", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(gzip.Gzip(gzip.DefaultCompression))
	router.Use(noStoreMiddleware())
	router.Use(middleware.RateLimit(cfg.Server.RequestsPerMinute))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	// Public routes
	api := router.Group("/api")
	{
		api.POST("/auth/login", authHandler.Login)
		if cfg.Reference.Source == config.SourceSmartsheet {
			webhookHandler := handler.NewWebhookHandler(service.NewSmartsheetService(&cfg.Reference.Smartsheet), source)
			api.POST("/webhooks/smartsheet", webhookHandler.Smartsheet)
		}
	}

	// Protected routes
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(&cfg.Auth))
	{
		protected.GET("/auth/me", authHandler.GetCurrentUser)
		protected.POST("/runs", runHandler.Create)
		protected.GET("/runs", runHandler.List)
		protected.GET("/runs/:id", runHandler.Get)
		protected.DELETE("/runs/:id", runHandler.Delete)
		protected.GET("/runs/:id/issues", runHandler.Issues)
		protected.GET("/runs/:id/artifacts/:kind", runHandler.Artifact)
		protected.POST("/runs/:id/accounting", runHandler.Accounting)
		protected.GET("/references/clean-types", referenceHandler.CleanTypes)
		protected.POST("/references/refresh", referenceHandler.Refresh)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
		// Audits run inside the request, so uploads get a generous write timeout.
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
}

// noStoreMiddleware keeps API responses out of shared caches; run listings
// and presigned links are per operator.
func noStoreMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
		}
		c.Next()
	}
}
