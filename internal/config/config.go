package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Config holds all configuration for the application.
type Config struct {
	AppEnv         string
	HTTPPort       int
	DBDriver       string
	DBPath         string
	RedisAddr      string
	RubricPath     string
	CacheTTL       time.Duration
	CORSOrigins    []string
	RequestLogging bool
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() *Config {
	port, err := strconv.Atoi(getEnv("HTTP_PORT", "8080"))
	if err != nil {
		port = 8080
	}

	ttlMinutes, err := strconv.Atoi(getEnv("CACHE_TTL_MINUTES", "10"))
	if err != nil || ttlMinutes <= 0 {
		ttlMinutes = 10
	}

	logging, err := strconv.ParseBool(getEnv("REQUEST_LOGGING", "true"))
	if err != nil {
		logging = true
	}

	var origins []string
	for _, o := range strings.Split(getEnv("CORS_ORIGINS", ""), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	return &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		HTTPPort:       port,
		DBDriver:       getEnv("DB_DRIVER", "sqlite3"),
		DBPath:         getEnv("DB_PATH", "./data/ata_audit_log.db"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RubricPath:     getEnv("RUBRIC_PATH", "./data/parameters.json"),
		CacheTTL:       time.Duration(ttlMinutes) * time.Minute,
		CORSOrigins:    origins,
		RequestLogging: logging,
	}
}

// NewLogger creates a new Zap logger based on the config.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	if cfg.AppEnv == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
