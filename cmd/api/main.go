package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/planpocket/planpocket/planpocket-backend/internal/auth"
	"github.com/planpocket/planpocket/planpocket-backend/internal/config"
	"github.com/planpocket/planpocket/planpocket-backend/internal/handler"
	"github.com/planpocket/planpocket/planpocket-backend/internal/middleware"
	"github.com/planpocket/planpocket/planpocket-backend/internal/repository/postgres"
	"github.com/planpocket/planpocket/planpocket-backend/internal/repository/storage"
	"github.com/planpocket/planpocket/planpocket-backend/internal/service"
	"github.com/planpocket/planpocket/planpocket-backend/internal/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	echoSwagger "github.com/swaggo/echo-swagger"
)

// @title PlanPocket API
// @version 1.0
// @description Personal finance backend: income and expense tracking, loans with amortization, and financial summaries.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.
func main() {
	// Initialize zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Apply migrations before the pool starts serving queries
	if cfg.AutoMigrate {
		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}
		log.Info().Str("dir", cfg.MigrationsDir).Msg("Migrations applied")
	}

	// Connect to database
	pool, err := postgres.NewPool(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()
	log.Info().Msg("Connected to database")

	// Initialize repositories
	userRepo := postgres.NewUserRepository(pool)
	transactionRepo := postgres.NewTransactionRepository(pool)
	loanRepo := postgres.NewLoanRepository(pool)

	// Object storage is optional; avatars and exports report 503 without it
	var objects storage.ObjectRepository
	if cfg.S3.Enabled() {
		s3Repo, err := storage.NewS3ObjectRepository(context.Background(), cfg.S3)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize S3 storage")
		}
		objects = s3Repo
		log.Info().Str("bucket", cfg.S3.Bucket).Msg("S3 storage enabled")
	} else {
		log.Warn().Msg("S3 storage not configured, avatar uploads and exports are disabled")
	}

	// Token handling
	issuer := auth.NewTokenIssuer(cfg.JWT)
	validator, err := auth.NewValidator(cfg.JWT)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create token validator")
	}

	// Live updates
	hub := websocket.NewHub()

	// Initialize services
	avatarService := service.NewAvatarService(objects, userRepo, hub)
	authService := service.NewAuthService(userRepo, issuer, avatarService)
	profileService := service.NewProfileService(userRepo, avatarService, hub)
	transactionService := service.NewTransactionService(transactionRepo, hub)
	loanService := service.NewLoanService(loanRepo, hub)
	summaryService := service.NewSummaryService(userRepo, transactionRepo, loanRepo)
	exportService := service.NewExportService(objects, transactionRepo, hub)

	// Background loan activation
	activationWorker, err := service.NewLoanActivationWorker(loanService, log.Logger, service.LoanActivationWorkerConfig{
		Schedule: cfg.LoanActivationSchedule,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create loan activation worker")
	}

	// Initialize auth middleware
	authMiddleware := middleware.NewAuthMiddleware(validator)

	// Initialize handlers
	handlers := handler.Handlers{
		Auth:        handler.NewAuthHandler(authService),
		Profile:     handler.NewProfileHandler(profileService, avatarService, summaryService),
		Transaction: handler.NewTransactionHandler(transactionService),
		Loan:        handler.NewLoanHandler(loanService),
		Summary:     handler.NewSummaryHandler(summaryService, exportService),
	}
	wsHandler := handler.NewWebSocketHandler(hub, validator, cfg.CORSOrigins)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Request ID middleware
	e.Use(echomiddleware.RequestID())

	// Prometheus metrics
	var metrics *middleware.Metrics
	if cfg.MetricsEnabled {
		metrics = middleware.NewMetrics("planpocket")
		metrics.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "planpocket",
			Name:      "websocket_clients",
			Help:      "Connected WebSocket clients.",
		}, func() float64 { return float64(hub.TotalClientCount()) }))
		e.Use(metrics.Middleware())
	}

	// CORS middleware
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Security headers middleware (helmet-like)
	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))

	// Request logging middleware with zerolog
	e.Use(zerologMiddleware())

	// Recovery middleware
	e.Use(echomiddleware.Recover())

	// Health check endpoint
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	}

	// API documentation
	e.GET("/swagger/*", echoSwagger.WrapHandler)
	e.GET("/openapi.json", handler.ServeOpenAPI3Spec)

	// WebSocket endpoint authenticates with the token query parameter
	e.GET("/ws", wsHandler.HandleWS)

	// Register API routes behind the per-client rate limiter
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst)
	handler.RegisterRoutes(e, authMiddleware, handlers, middleware.RateLimitMiddleware(rateLimiter))

	workerCtx, stopWorker := context.WithCancel(context.Background())
	if err := activationWorker.Start(workerCtx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start loan activation worker")
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stopWorker()
	activationWorker.Stop()
	hub.CloseAll()
	rateLimiter.Stop()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// zerologMiddleware returns a middleware that logs requests using zerolog
func zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			event := log.Info()
			if res.Status >= http.StatusInternalServerError {
				event = log.Error()
			}
			event.
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Msg("request")

			return nil
		}
	}
}
