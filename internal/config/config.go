// Package config manages application configuration
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Addr        string
	Environment string // "development" or "production"

	// Database
	DatabasePath string

	// Security
	SecretKey string // For JWT signing

	// Session settings
	SessionDuration time.Duration
	CleanupInterval time.Duration // how often expired sessions are purged

	// AI insight generation
	GeminiAPIKey string
	GeminiModel  string
}

// Load reads configuration from the environment with sensible defaults.
// A .env file in the working directory is applied first, without
// overriding variables already set.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Addr:            getEnv("FINTRACK_ADDR", ":8080"),
		Environment:     getEnv("FINTRACK_ENV", "development"),
		DatabasePath:    getEnv("FINTRACK_DATABASE_PATH", "fintrack.db"),
		SecretKey:       getEnv("FINTRACK_SECRET_KEY", "dev-secret-key-change-in-production"),
		SessionDuration: getDurationEnv("FINTRACK_SESSION_DURATION", 24*time.Hour),
		CleanupInterval: getDurationEnv("FINTRACK_CLEANUP_INTERVAL", time.Hour),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModel:     getEnv("FINTRACK_GEMINI_MODEL", "gemini-2.5-flash"),
	}
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
