// This file contains the lightweight configuration for the standalone MCP
// binary, which runs without Postgres, Redis or a config file.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// LiteConfig is the simplified configuration for standalone operation. It
// requires no external services: the analysis pipeline runs fully local and
// the audit trail lives in an embedded SQLite database.
type LiteConfig struct {
	// Data storage
	DataDir string // Base directory for data files

	// Analysis settings
	MaxConcurrency   int           // Concurrent batch units
	GeneratorTimeout time.Duration // Per-unit generation budget

	// Generator settings
	GeneratorBaseURL string // Optional: explanation service endpoint
	GeneratorAPIKey  string // Optional: explanation service credential

	// Logging
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: json, text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".pharmagenie")

	return &LiteConfig{
		DataDir:          dataDir,
		MaxConcurrency:   4,
		GeneratorTimeout: 20 * time.Second,
		LogLevel:         "info",
		LogFormat:        "json",
	}
}

// LoadLiteConfig loads configuration from environment variables, falling
// back to defaults when unset.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	if v := os.Getenv("PHARMAGENIE_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	if v := os.Getenv("PHARMAGENIE_MAX_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxConcurrency = n
		}
	}
	if v := os.Getenv("PHARMAGENIE_GENERATOR_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.GeneratorTimeout = d
		}
	}

	cfg.GeneratorBaseURL = os.Getenv("PHARMAGENIE_GENERATOR_URL")
	cfg.GeneratorAPIKey = os.Getenv("PHARMAGENIE_GENERATOR_API_KEY")

	if v := os.Getenv("PHARMAGENIE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("PHARMAGENIE_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// AuditDBPath returns the path to the audit SQLite database.
func (c *LiteConfig) AuditDBPath() string {
	return filepath.Join(c.DataDir, "audit.db")
}

// ExportDir returns the directory for JSON exports.
func (c *LiteConfig) ExportDir() string {
	return filepath.Join(c.DataDir, "exports")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return err
	}
	return os.MkdirAll(c.ExportDir(), 0755)
}
