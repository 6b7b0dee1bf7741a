package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port    string
	GinMode string

	// Database. Empty means the in-memory conversation store
	// (useful for local development and tests).
	DatabaseURL string

	// OpenRouter
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	DefaultModel      string

	// External auth collaborator. Empty disables session lookup and
	// every caller is treated as a guest.
	AuthBaseURL string

	// Rate Limiting (unauthenticated callers only)
	RateLimitPerDay    int
	RateLimitSweepSize int
	RedisURL           string // empty means the in-process store

	// Model catalog file (yaml). Optional; built-in catalog is used
	// when unset.
	ModelCatalogFile string

	// Request handling
	RequestDeadlineSeconds       int
	ServerShutdownTimeoutSeconds int

	// Title generation worker pool
	TitleWorkerPoolSize int
	TitleBufferSize     int
	TitleTimeoutSeconds int

	// Database Connection Pool
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxIdleTime int // in minutes
	DBConnMaxLifetime int // in minutes

	// CORS
	CORSAllowedOrigins string

	// Logging
	LogLevel  string
	LogFormat string
}

var AppConfig *Config

func LoadConfig() {
	// Load .env file if it exists
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	AppConfig = &Config{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "release"),

		DatabaseURL: getEnvOrDefault("DATABASE_URL", ""),

		OpenRouterAPIKey:  getEnvOrDefault("OPENROUTER_API_KEY", ""),
		OpenRouterBaseURL: getEnvOrDefault("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		DefaultModel:      getEnvOrDefault("DEFAULT_MODEL", "xiaomi/mimo-v2-flash:free"),

		AuthBaseURL: getEnvOrDefault("AUTH_BASE_URL", ""),

		RateLimitPerDay:    getEnvAsInt("RATE_LIMIT_PER_DAY", 10),
		RateLimitSweepSize: getEnvAsInt("RATE_LIMIT_SWEEP_SIZE", 10000),
		RedisURL:           getEnvOrDefault("REDIS_URL", ""),

		ModelCatalogFile: getEnvOrDefault("MODEL_CATALOG_FILE", ""),

		RequestDeadlineSeconds:       getEnvAsInt("REQUEST_DEADLINE_SECONDS", 60),
		ServerShutdownTimeoutSeconds: getEnvAsInt("SERVER_SHUTDOWN_TIMEOUT_SECONDS", 30),

		TitleWorkerPoolSize: getEnvAsInt("TITLE_WORKER_POOL_SIZE", 2),
		TitleBufferSize:     getEnvAsInt("TITLE_BUFFER_SIZE", 100),
		TitleTimeoutSeconds: getEnvAsInt("TITLE_TIMEOUT_SECONDS", 30),

		DBMaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 15),
		DBMaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		DBConnMaxIdleTime: getEnvAsInt("DB_CONN_MAX_IDLE_TIME_MINUTES", 1),
		DBConnMaxLifetime: getEnvAsInt("DB_CONN_MAX_LIFETIME_MINUTES", 30),

		CORSAllowedOrigins: getEnvOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "text"),
	}

	if AppConfig.OpenRouterAPIKey == "" {
		log.Println("Warning: OpenRouter API key is missing. Please set OPENROUTER_API_KEY environment variable.")
	}

	if AppConfig.AuthBaseURL == "" {
		log.Println("Warning: AUTH_BASE_URL is not set. Session lookup disabled, all callers are guests.")
	}

	if AppConfig.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL is not set. Using the in-memory conversation store.")
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		} else {
			log.Printf("Warning: Failed to parse environment variable %s='%s' as int, using default %d: %v", key, value, defaultValue, err)
		}
	}
	return defaultValue
}
