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
	// Application
	AppEnv   string
	LogLevel string
	UserID   string

	// Storage
	DatabaseURL string
	SQLitePath  string

	// Redis
	RedisURL string

	// RabbitMQ
	RabbitMQURL string

	// Due-date monitor
	MonitorScanInterval time.Duration
	MonitorTickInterval time.Duration
	UrgencyWindowDays   int

	// Settlement
	SettlementLatency time.Duration

	// Advisory text service
	AdvisoryAPIKey        string
	AdvisoryEndpoint      string
	AdvisoryAdviceModel   string
	AdvisoryBriefingModel string
	AdvisoryTimeout       time.Duration

	// HTTP API
	APIAddr      string
	CORSOrigins  []string
	APIRateLimit float64
	APIRateBurst int

	// MCP
	MCPAddr      string
	MCPAuthToken string

	// Reminder worker
	WorkerHealthAddr    string
	WorkerStatsInterval time.Duration

	// Metrics
	MetricsEnabled bool
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		UserID:   getEnv("PAYSMALL_USER_ID", "user_001"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		SQLitePath:  getEnv("SQLITE_PATH", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		RabbitMQURL: getEnv("RABBITMQ_URL", ""),

		MonitorScanInterval: getDurationEnv("MONITOR_SCAN_INTERVAL", 5*time.Second),
		MonitorTickInterval: getDurationEnv("MONITOR_TICK_INTERVAL", time.Second),
		UrgencyWindowDays:   getIntEnv("URGENCY_WINDOW_DAYS", 3),

		SettlementLatency: getDurationEnv("SETTLEMENT_LATENCY", 2500*time.Millisecond),

		AdvisoryAPIKey:        getEnv("ADVISORY_API_KEY", ""),
		AdvisoryEndpoint:      getEnv("ADVISORY_ENDPOINT", "https://generativelanguage.googleapis.com/v1beta"),
		AdvisoryAdviceModel:   getEnv("ADVISORY_ADVICE_MODEL", "gemini-3-flash-preview"),
		AdvisoryBriefingModel: getEnv("ADVISORY_BRIEFING_MODEL", "gemini-3-pro-preview"),
		AdvisoryTimeout:       getDurationEnv("ADVISORY_TIMEOUT", 10*time.Second),

		APIAddr:      getEnv("API_ADDR", "0.0.0.0:8080"),
		CORSOrigins:  getListEnv("CORS_ORIGINS", []string{"http://localhost:3000"}),
		APIRateLimit: getFloatEnv("API_RATE_LIMIT", 20),
		APIRateBurst: getIntEnv("API_RATE_BURST", 40),

		MCPAddr:      getEnv("MCP_ADDR", "0.0.0.0:8082"),
		MCPAuthToken: getEnv("MCP_AUTH_TOKEN", ""),

		WorkerHealthAddr:    getEnv("WORKER_HEALTH_ADDR", "0.0.0.0:8081"),
		WorkerStatsInterval: getDurationEnv("WORKER_STATS_INTERVAL", time.Minute),

		MetricsEnabled: getBoolEnv("METRICS_ENABLED", true),
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getListEnv splits a comma-separated value, dropping empty entries.
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	items := []string{}
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
