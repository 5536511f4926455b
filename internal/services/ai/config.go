// Package ai generates a short textual financial analysis of the current
// snapshot using Gemini
package ai

import (
	"time"
)

// Config holds AI service configuration
type Config struct {
	APIKey  string
	Model   string
	Timeout time.Duration

	CacheEnabled bool
	CacheTTL     time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Model:        "gemini-2.5-flash",
		Timeout:      30 * time.Second,
		CacheEnabled: true,
		CacheTTL:     10 * time.Minute,
	}
}
