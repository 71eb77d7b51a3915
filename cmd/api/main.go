package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/nyumba/nyumba-api/docs" // Swagger docs
	"github.com/nyumba/nyumba-api/internal/config"
	"github.com/nyumba/nyumba-api/internal/database"
	"github.com/nyumba/nyumba-api/internal/gateway"
	"github.com/nyumba/nyumba-api/internal/handlers"
	"github.com/nyumba/nyumba-api/internal/jobs"
	"github.com/nyumba/nyumba-api/internal/metrics"
	"github.com/nyumba/nyumba-api/internal/middleware"
	"github.com/nyumba/nyumba-api/internal/repository"
	"github.com/nyumba/nyumba-api/internal/services"
	"github.com/nyumba/nyumba-api/internal/storage"
	"github.com/nyumba/nyumba-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// @title Nyumba API
// @version 1.0
// @description REST API for the Nyumba lease billing and payments platform
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@nyumba.app

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Setup(cfg.Environment)

	// Initialize Sentry when DSN is configured
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			TracesSampleRate: 0.2,
			Environment:      cfg.Environment,
		}); err != nil {
			logger.Error("Sentry initialization failed", "error", err)
		} else {
			logger.Info("Sentry initialized")
		}
	}

	// Warn if Resend email is not configured (API loads .env, not .production.env)
	if cfg.ResendAPIKey == "" {
		logger.Warn("Resend email disabled: RESEND_API_KEY not set. Tenant receipts and reminders will be logged but not delivered.")
	}

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to database")

	if err := database.Migrate(db); err != nil {
		logger.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Initialize storage
	store, err := storage.NewLocalStorage(cfg.StoragePath)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	logger.Info("Initialized local storage")

	// Initialize repositories
	repos := repository.NewRepositories(db)

	// Initialize background worker
	worker := jobs.NewWorker(cfg.WorkerCount)
	logger.Info("Started background worker", "max_concurrent", cfg.WorkerCount)

	// Mobile money gateway client
	momo := gateway.NewMoMoClient(gateway.MoMoConfig{
		BaseURL:           cfg.MoMoBaseURL,
		SubscriptionKey:   cfg.MoMoSubscriptionKey,
		TargetEnvironment: cfg.MoMoTargetEnvironment,
		CallbackURL:       cfg.MoMoCallbackURL,
		RefundCallbackURL: cfg.MoMoRefundCallbackURL,
	})

	// Initialize services
	svcs := services.NewServices(repos, worker, store, cfg, momo)

	// Schedule recurring jobs
	scheduleJobs(worker, svcs, cfg.BillingSweepHour)

	// Initialize handlers
	h := handlers.NewHandlers(svcs)

	// Setup router
	router := setupRouter(h, cfg)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Create context with timeout for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// Shutdown background worker
	worker.Shutdown()
	logger.Info("Background worker stopped")

	// Flush Sentry events before exit
	if cfg.SentryDSN != "" {
		sentry.Flush(5 * time.Second)
	}

	logger.Info("Server exited gracefully")
}

func setupRouter(h *handlers.Handlers, cfg *config.Config) *gin.Engine {
	router := gin.New()

	// Global middleware
	if cfg.SentryDSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(metrics.Middleware())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// Redirect root to swagger
	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Health check (public)
		v1.GET("/health", h.Health.Index)

		// Gateway callbacks (public, signature-verified when a secret is configured)
		webhooks := v1.Group("/payments/momo")
		webhooks.Use(middleware.VerifyWebhookSignature(cfg.WebhookSecret))
		{
			webhooks.POST("/webhook", h.Webhook.PaymentWebhook)
			webhooks.POST("/refund-webhook", h.Webhook.RefundWebhook)
		}

		// Payment status polling (public so payer-facing apps can poll without a staff token)
		v1.GET("/payments/:id/status", h.Payment.Status)

		// Protected routes (requires authentication)
		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTSecret))
		{
			// Lease management (admin or landlord)
			leases := protected.Group("/leases")
			leases.Use(middleware.RequireRole("admin", "landlord"))
			{
				leases.GET("", h.Lease.Index)
				leases.POST("", h.Lease.Create)
				leases.GET("/:id", h.Lease.Show)
				leases.POST("/:id/terminate", h.Lease.Terminate)
				leases.POST("/:id/renew", h.Lease.Renew)
				leases.POST("/:id/rent_increase", h.Lease.RentIncrease)
				leases.POST("/:id/deposit/deduct", h.Lease.DeductDeposit)
				leases.POST("/:id/deposit/refund", h.Lease.RefundDeposit)
				leases.GET("/:id/deposit/history", h.Lease.DepositHistory)
			}

			// Invoice viewing and documents
			invoices := protected.Group("/invoices")
			{
				invoices.GET("", h.Invoice.Index)
				invoices.GET("/export", h.Invoice.Export)
				invoices.GET("/:id", h.Invoice.Show)
				invoices.GET("/:id/document", h.Invoice.Document)
			}

			// Payments
			payments := protected.Group("/payments")
			{
				payments.GET("", h.Payment.Index)
				payments.GET("/export", h.Payment.Export)
				payments.POST("", h.Payment.Create)
				payments.POST("/momo/initiate", h.Payment.Initiate)
				payments.GET("/:id", h.Payment.Show)
				payments.GET("/:id/receipt", h.Payment.Receipt)
				payments.POST("/:id/refund", middleware.RequireAdmin(), h.Payment.Refund)
			}

			// Job control (admin only)
			admin := protected.Group("/jobs")
			admin.Use(middleware.RequireAdmin())
			{
				admin.GET("/status", h.Job.Status)
				admin.POST("/billing/run", h.Job.RunBillingSweep)
			}
		}
	}

	return router
}

func scheduleJobs(worker *jobs.Worker, svcs *services.Services, sweepHour int) {
	// Daily billing sweep at the configured hour. The first run is scheduled for the next
	// occurrence of that hour, then repeats every 24h.
	runSweep := func(ctx context.Context) error {
		logger.Info("[Job] Running daily billing sweep...")
		summary, err := svcs.Job.RunBillingSweep(ctx)
		if err != nil {
			return err
		}
		logger.Info("[Job] Billing sweep finished",
			"invoices_created", summary.InvoicesCreated,
			"marked_overdue", summary.MarkedOverdue,
			"reminders_sent", summary.RemindersSent,
			"errors", summary.Errors,
		)
		return nil
	}

	first := nextSweepTime(time.Now(), sweepHour)
	worker.ScheduleAt(first, func(ctx context.Context) error {
		worker.ScheduleEvery(24*time.Hour, runSweep)
		return runSweep(ctx)
	})

	logger.Info("Scheduled recurring jobs", "first_billing_sweep", first.Format(time.RFC3339))
}

// nextSweepTime returns the next occurrence of hour (local time) strictly after now.
func nextSweepTime(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}
