package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	AdminToken  string

	DBType     string
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	Stripe    StripeConfig
	Instagram InstagramConfig
	Capacity  CapacityConfig
	Cache     CacheConfig
	Sync      SyncConfig
	Email     EmailConfig
	Logger    LoggerConfig
}

type StripeConfig struct {
	SecretKey        string
	WebhookSecret    string
	PriceID          string
	WebhookTolerance time.Duration
}

type InstagramConfig struct {
	BaseURL     string
	AccessToken string
}

type CapacityConfig struct {
	MaxTenants int64
}

type CacheConfig struct {
	MaxAge         time.Duration
	RetentionLimit int
}

type SyncConfig struct {
	Enabled  bool
	Interval time.Duration
	Timezone string
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

type LoggerConfig struct {
	Level string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "renolink"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		AdminToken:  strings.TrimSpace(getenv("ADMIN_TOKEN", "")),

		DBType:     getenv("DATABASE_TYPE", "postgres"),
		DBHost:     getenv("DATABASE_HOST", "localhost"),
		DBPort:     getenv("DATABASE_PORT", "5432"),
		DBName:     getenv("DATABASE_NAME", "renolink"),
		DBUser:     getenv("DATABASE_USER", "postgres"),
		DBPassword: getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:  getenv("DATABASE_SSLMODE", "disable"),

		Stripe: StripeConfig{
			SecretKey:        strings.TrimSpace(getenv("STRIPE_SECRET_KEY", "")),
			WebhookSecret:    strings.TrimSpace(getenv("STRIPE_WEBHOOK_SECRET", "")),
			PriceID:          getenv("STRIPE_PRICE_ID_MONTHLY", "price_instagram_monthly_100000"),
			WebhookTolerance: getenvDuration("STRIPE_WEBHOOK_TOLERANCE", 5*time.Minute),
		},
		Instagram: InstagramConfig{
			BaseURL:     getenv("INSTAGRAM_API_BASE_URL", "https://graph.instagram.com"),
			AccessToken: strings.TrimSpace(getenv("INSTAGRAM_ACCESS_TOKEN", "")),
		},
		Capacity: CapacityConfig{
			MaxTenants: getenvInt64("MAX_TENANTS", 300),
		},
		Cache: CacheConfig{
			MaxAge:         getenvDuration("CONTENT_CACHE_MAX_AGE", time.Hour),
			RetentionLimit: int(getenvInt64("CONTENT_CACHE_RETENTION", 50)),
		},
		Sync: SyncConfig{
			Enabled:  getenvBool("CONTENT_SYNC_ENABLED", true),
			Interval: getenvDuration("CONTENT_SYNC_INTERVAL", time.Hour),
			Timezone: getenv("CONTENT_SYNC_TIMEZONE", "Asia/Tokyo"),
		},
		Email: EmailConfig{
			SMTPHost:     getenv("SMTP_HOST", ""),
			SMTPPort:     int(getenvInt64("SMTP_PORT", 587)),
			SMTPUsername: getenv("SMTP_USERNAME", ""),
			SMTPPassword: getenv("SMTP_PASSWORD", ""),
			SMTPFrom:     getenv("SMTP_FROM", "noreply@renolink.jp"),
		},
		Logger: LoggerConfig{
			Level: getenv("LOG_LEVEL", "info"),
		},
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
