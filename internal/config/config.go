package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the application
type Config struct {
	Port        string
	LogLevel    string
	Environment string

	// Telegram bot settings
	BotToken      string
	WebhookSecret string

	// Who the group votes on, and where celebrations go
	TargetName         string
	PingUser           string
	NotificationChatID int64

	// Storage backends
	DatabaseURL string
	RedisURL    string

	// Admin stats API
	AdminJWTSecret string

	Security SecurityConfig
}

// SecurityConfig holds the request-rate admission control policy.
// It is read once at startup and treated as immutable afterwards.
type SecurityConfig struct {
	RequestLimit          int
	Window                time.Duration
	DDoSProtectionEnabled bool
	Whitelist             []int64
	Blacklist             []int64
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port:               getEnv("PORT", "8080"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		Environment:        getEnv("ENVIRONMENT", "production"),
		BotToken:           getEnv("TELEGRAM_BOT_TOKEN", ""),
		WebhookSecret:      getEnv("TELEGRAM_WEBHOOK_SECRET", ""),
		TargetName:         getEnv("LATE_TARGET_NAME", "Not specified"),
		PingUser:           getEnv("PING_USER", "@Test"),
		NotificationChatID: getInt64Env("NOTIFICATION_CHAT_ID", 0),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisURL:           getEnv("REDIS_URL", ""),
		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		Security: SecurityConfig{
			RequestLimit:          getIntEnv("RATE_REQUEST_LIMIT", 30),
			Window:                time.Duration(getIntEnv("RATE_WINDOW_SECONDS", 60)) * time.Second,
			DDoSProtectionEnabled: getBoolEnv("DDOS_PROTECTION_ENABLED", true),
			Whitelist:             parseIDList(getEnv("RATE_WHITELIST", "")),
			Blacklist:             parseIDList(getEnv("RATE_BLACKLIST", "")),
		},
	}, nil
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getIntEnv gets an integer environment variable with a fallback value
func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

// getInt64Env gets an int64 environment variable with a fallback value
func getInt64Env(key string, fallback int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

// getBoolEnv gets a boolean environment variable with a fallback value
func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// parseIDList parses comma-separated user IDs into a slice
func parseIDList(raw string) []int64 {
	if raw == "" {
		return []int64{}
	}

	parts := strings.Split(raw, ",")
	result := make([]int64, 0, len(parts))

	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		if id, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			result = append(result, id)
		}
	}

	return result
}
