package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration
type Config struct {
	Environment string
	ServerPort  int
	LogLevel    string

	// Webhook authentication. WebhookSecret has no default: Load fails when
	// WEBHOOK_SECRET is absent so a misconfigured process never accepts
	// unauthenticated payloads.
	WebhookSecret string
	WebhookSkew   time.Duration

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	RedisURL string

	MaxTransactionsPerStatement int
	MaxBodyBytes                int64
	ReplayCacheTTL              time.Duration

	RollupQueueSize       int
	RollupRefreshInterval time.Duration

	RateLimitPerMinute int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	secret := os.Getenv("WEBHOOK_SECRET")
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("WEBHOOK_SECRET is required")
	}

	port, err := strconv.Atoi(getEnv("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	skewMinutes, err := strconv.Atoi(getEnv("WEBHOOK_SKEW_MINUTES", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid WEBHOOK_SKEW_MINUTES: %w", err)
	}

	maxTxns, err := strconv.Atoi(getEnv("MAX_TRANSACTIONS_PER_STATEMENT", "10000"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_TRANSACTIONS_PER_STATEMENT: %w", err)
	}

	maxBodyMiB, err := strconv.Atoi(getEnv("MAX_BODY_MIB", "8"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_BODY_MIB: %w", err)
	}

	replayTTLHours, err := strconv.Atoi(getEnv("REPLAY_CACHE_TTL_HOURS", "24"))
	if err != nil {
		return nil, fmt.Errorf("invalid REPLAY_CACHE_TTL_HOURS: %w", err)
	}

	rollupQueueSize, err := strconv.Atoi(getEnv("ROLLUP_QUEUE_SIZE", "256"))
	if err != nil {
		return nil, fmt.Errorf("invalid ROLLUP_QUEUE_SIZE: %w", err)
	}

	rollupInterval, err := strconv.Atoi(getEnv("ROLLUP_REFRESH_INTERVAL_MINUTES", "15"))
	if err != nil {
		return nil, fmt.Errorf("invalid ROLLUP_REFRESH_INTERVAL_MINUTES: %w", err)
	}

	rateLimit, err := strconv.Atoi(getEnv("RATE_LIMIT_PER_MINUTE", "120"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE: %w", err)
	}

	return &Config{
		Environment:   getEnv("ENVIRONMENT", "development"),
		ServerPort:    port,
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		WebhookSecret: secret,
		WebhookSkew:   time.Duration(skewMinutes) * time.Minute,

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "clearscrub"),
		DBPassword: getEnv("DB_PASSWORD", "dev"),
		DBName:     getEnv("DB_NAME", "clearscrub"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379"),

		MaxTransactionsPerStatement: maxTxns,
		MaxBodyBytes:                int64(maxBodyMiB) << 20,
		ReplayCacheTTL:              time.Duration(replayTTLHours) * time.Hour,

		RollupQueueSize:       rollupQueueSize,
		RollupRefreshInterval: time.Duration(rollupInterval) * time.Minute,

		RateLimitPerMinute: rateLimit,
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
