package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// MinJWTSecretLength is the shortest HS256 signing key accepted.
const MinJWTSecretLength = 32

// Config holds all configuration for the application
type Config struct {
	// Database
	DatabaseURL   string
	MigrationsDir string
	AutoMigrate   bool

	// Auth
	JWT JWTConfig

	// Server
	Port        string
	CORSOrigins []string
	Env         string
	RateLimit   RateLimitConfig

	// Background jobs
	LoanActivationSchedule string

	// Observability
	MetricsEnabled bool

	// S3 Storage
	S3 S3Config
}

// JWTConfig holds token signing settings
type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience string
	Expiry   time.Duration
}

// RateLimitConfig bounds requests per client IP
type RateLimitConfig struct {
	PerMinute float64
	Burst     int
}

// S3Config holds AWS S3 configuration
type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // Optional: for MinIO/LocalStack local dev
	PresignExpiry   time.Duration
}

// Enabled reports whether object storage was configured.
func (s S3Config) Enabled() bool {
	return s.Bucket != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	var errs []string
	cfg := &Config{
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		MigrationsDir: getEnv("MIGRATIONS_DIR", "file://db/migrations"),
		AutoMigrate:   getBool("AUTO_MIGRATE", true, &errs),
		JWT: JWTConfig{
			Secret:   getEnv("JWT_SECRET", ""),
			Issuer:   getEnv("JWT_ISSUER", "planpocket"),
			Audience: getEnv("JWT_AUDIENCE", "planpocket-api"),
			Expiry:   getDuration("TOKEN_EXPIRY", 30*24*time.Hour, &errs),
		},
		Port:        getEnv("PORT", "8080"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:5173"), ","),
		Env:         getEnv("ENV", "development"),
		RateLimit: RateLimitConfig{
			// 100 requests per 15 minutes
			PerMinute: getFloat("RATE_LIMIT_PER_MINUTE", 100.0/15.0, &errs),
			Burst:     getInt("RATE_LIMIT_BURST", 100, &errs),
		},
		LoanActivationSchedule: getEnv("LOAN_ACTIVATION_CRON", "@every 12h"),
		MetricsEnabled:         getBool("METRICS_ENABLED", true, &errs),
		S3: S3Config{
			Region:          getEnv("S3_REGION", "us-east-1"),
			Bucket:          getEnv("S3_BUCKET", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Endpoint:        getEnv("S3_ENDPOINT", ""), // Empty = use AWS, set for MinIO/LocalStack
			PresignExpiry:   getDuration("S3_PRESIGN_EXPIRY", 15*time.Minute, &errs),
		},
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsProduction reports whether ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.JWT.Secret) < MinJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d bytes", MinJWTSecretLength)
	}
	if c.JWT.Expiry <= 0 {
		return fmt.Errorf("TOKEN_EXPIRY must be positive")
	}
	if c.RateLimit.PerMinute <= 0 || c.RateLimit.Burst < 1 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE and RATE_LIMIT_BURST must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool, errs *[]string) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: %q is not a boolean", key, raw))
		return defaultValue
	}
	return v
}

func getInt(key string, defaultValue int, errs *[]string) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: %q is not an integer", key, raw))
		return defaultValue
	}
	return v
}

func getFloat(key string, defaultValue float64, errs *[]string) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: %q is not a number", key, raw))
		return defaultValue
	}
	return v
}

func getDuration(key string, defaultValue time.Duration, errs *[]string) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: %q is not a duration", key, raw))
		return defaultValue
	}
	return v
}
