package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Session cache backend constants
const (
	SessionCacheMemory = "memory"
	SessionCacheRedis  = "redis"
)

type Config struct {
	// Server settings
	ServerAddr   string
	BaseURL      string
	IsProduction bool

	// Database
	DatabaseDriver string // "sqlite" or "postgres"
	DatabaseDSN    string // Database connection string (DSN or path)

	// X API credentials
	XClientID     string
	XClientSecret string

	// X API endpoints (overridable for testing)
	XAPIBaseURL  string
	XAuthURL     string
	XTokenURL    string
	XUserInfoURL string

	// OAuth settings
	CallbackPath string        // Appended to BaseURL to build the redirect URI
	SessionCache string        // "memory" or "redis"
	SessionTTL   time.Duration // PKCE session lifetime

	// Redis (session cache and rate limiter store)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Upload settings
	UploadTimeout        time.Duration // Per-call timeout for X API requests
	MaxUploadSize        int64         // Maximum accepted video size in bytes
	MaxConcurrentUploads int           // Background task concurrency cap

	// Publish retry settings
	PublishMaxRetries int
	PublishBaseDelay  time.Duration

	// Rate limiting
	EnableRateLimit  bool
	UploadRateLimit  int    // requests per minute on POST /api/upload
	RateLimitStore   string // "memory" or "redis"
	ShutdownDrainTimeout time.Duration

	// Metrics
	MetricsEnabled bool
	MetricsToken   string
}

func Load() *Config {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	// Determine database driver and DSN
	driver := getEnv("DATABASE_DRIVER", "sqlite")
	var dsn string
	if driver == "sqlite" {
		dsn = getEnv("DATABASE_DSN", getEnv("DATABASE_PATH", "xpost.db"))
	} else {
		dsn = getEnv("DATABASE_DSN", "")
	}

	return &Config{
		ServerAddr:   getEnv("SERVER_ADDR", ":8080"),
		BaseURL:      getEnv("BASE_URL", "http://localhost:8080"),
		IsProduction: getEnv("ENV", "development") == "production",

		DatabaseDriver: driver,
		DatabaseDSN:    dsn,

		XClientID:     getEnv("X_CLIENT_ID", ""),
		XClientSecret: getEnv("X_CLIENT_SECRET", ""),

		XAPIBaseURL: getEnv("X_API_BASE_URL", "https://api.x.com/2"),
		XAuthURL:    getEnv("X_AUTH_URL", "https://twitter.com/i/oauth2/authorize"),
		XTokenURL:    getEnv("X_TOKEN_URL", "https://api.twitter.com/2/oauth2/token"),
		XUserInfoURL: getEnv("X_USER_INFO_URL", "https://api.twitter.com/2/users/me"),

		CallbackPath: getEnv("OAUTH_CALLBACK_PATH", "/api/auth/callback"),
		SessionCache: getEnv("SESSION_CACHE", SessionCacheMemory),
		SessionTTL:   getEnvDuration("SESSION_TTL", 10*time.Minute),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		UploadTimeout:        getEnvDuration("UPLOAD_TIMEOUT", 60*time.Second),
		MaxUploadSize:        getEnvInt64("MAX_UPLOAD_SIZE", 512*1024*1024), // 512MB
		MaxConcurrentUploads: getEnvInt("MAX_CONCURRENT_UPLOADS", 4),

		PublishMaxRetries: getEnvInt("PUBLISH_MAX_RETRIES", 3),
		PublishBaseDelay:  getEnvDuration("PUBLISH_BASE_DELAY", 15*time.Second),

		EnableRateLimit:      getEnvBool("ENABLE_RATE_LIMIT", false),
		UploadRateLimit:      getEnvInt("UPLOAD_RATE_LIMIT", 10),
		RateLimitStore:       getEnv("RATE_LIMIT_STORE", "memory"),
		ShutdownDrainTimeout: getEnvDuration("SHUTDOWN_DRAIN_TIMEOUT", 2*time.Minute),

		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
		MetricsToken:   getEnv("METRICS_TOKEN", ""),
	}
}

// Validate checks settings that have no usable default.
func (c *Config) Validate() error {
	if c.DatabaseDriver != "sqlite" && c.DatabaseDriver != "postgres" {
		return fmt.Errorf("invalid DATABASE_DRIVER: %s (must be: sqlite, postgres)", c.DatabaseDriver)
	}
	if c.DatabaseDriver == "postgres" && c.DatabaseDSN == "" {
		return errors.New("DATABASE_DSN is required when DATABASE_DRIVER=postgres")
	}
	switch c.SessionCache {
	case SessionCacheMemory:
	case SessionCacheRedis:
		if c.RedisAddr == "" {
			return errors.New("REDIS_ADDR is required when SESSION_CACHE=redis")
		}
	default:
		return fmt.Errorf("invalid SESSION_CACHE: %s (must be: memory, redis)", c.SessionCache)
	}
	if c.MaxConcurrentUploads <= 0 {
		return errors.New("MAX_CONCURRENT_UPLOADS must be positive")
	}
	if c.PublishMaxRetries < 0 {
		return errors.New("PUBLISH_MAX_RETRIES must not be negative")
	}
	return nil
}

// RedirectURL returns the absolute OAuth callback URL.
func (c *Config) RedirectURL() string {
	return strings.TrimSuffix(c.BaseURL, "/") + c.CallbackPath
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		var i int64
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
