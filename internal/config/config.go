package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port        string
	Environment string
	AppURL      string

	// Database
	DatabaseURL string

	// JWT
	JWTSecret          string
	JWTExpirationHours int

	// Storage
	StoragePath string

	// Background Workers
	WorkerCount int

	// Billing
	BillingSweepHour int

	// CORS
	AllowedOrigins []string

	// Mobile money gateway (MTN MoMo)
	MoMoBaseURL           string
	MoMoSubscriptionKey   string
	MoMoTargetEnvironment string
	MoMoCallbackURL       string
	MoMoRefundCallbackURL string

	// Webhook signature verification
	WebhookSecret string

	// SMS
	SMSBaseURL  string
	SMSAPIKey   string
	SMSSenderID string

	// Email (Resend)
	ResendAPIKey string
	FromEmail    string

	// Sentry
	SentryDSN string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		Environment:        getEnv("ENVIRONMENT", "development"),
		AppURL:             getEnv("APP_URL", "http://localhost:8080"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		JWTExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 24),
		StoragePath:        getEnv("STORAGE_PATH", "./storage"),
		WorkerCount:        getEnvAsInt("WORKER_COUNT", 5),
		BillingSweepHour:   getEnvAsInt("BILLING_SWEEP_HOUR", 6),
		AllowedOrigins:     getEnvAsSlice("ALLOWED_ORIGINS", []string{"*"}),

		MoMoBaseURL:           getEnv("MOMO_BASE_URL", "https://sandbox.momodeveloper.mtn.com"),
		MoMoSubscriptionKey:   getEnv("MOMO_SUBSCRIPTION_KEY", ""),
		MoMoTargetEnvironment: getEnv("MOMO_TARGET_ENVIRONMENT", "sandbox"),
		MoMoCallbackURL:       getEnv("MOMO_CALLBACK_URL", ""),
		MoMoRefundCallbackURL: getEnv("MOMO_REFUND_CALLBACK_URL", ""),

		WebhookSecret: getEnv("WEBHOOK_SECRET", ""),

		SMSBaseURL:  getEnv("SMS_BASE_URL", ""),
		SMSAPIKey:   getEnv("SMS_API_KEY", ""),
		SMSSenderID: getEnv("SMS_SENDER_ID", "Nyumba"),

		ResendAPIKey: getEnv("RESEND_API_KEY", ""),
		FromEmail:    getEnv("FROM_EMAIL", "noreply@nyumba.app"),
		SentryDSN:    getEnv("SENTRY_DSN", ""),
	}

	// Validate required configuration
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" && cfg.Environment == "production" {
		return nil, fmt.Errorf("JWT_SECRET is required in production")
	}

	// Set default JWT secret for development
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-secret-change-in-production"
	}

	if cfg.WebhookSecret == "" && cfg.Environment == "production" {
		return nil, fmt.Errorf("WEBHOOK_SECRET is required in production")
	}

	if cfg.BillingSweepHour < 0 || cfg.BillingSweepHour > 23 {
		return nil, fmt.Errorf("BILLING_SWEEP_HOUR must be between 0 and 23")
	}

	return cfg, nil
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt reads an environment variable as integer
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsSlice reads an environment variable as comma-separated slice
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	return strings.Split(valueStr, ",")
}
