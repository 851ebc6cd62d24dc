// Package config holds safedocx's two configuration surfaces: small
// environment-derived runtime settings for the docxctl CLI, and the YAML
// edit plan that CLI executes against an opened document.
package config

import (
	"os"
	"strconv"
)

// Config holds docxctl's runtime settings, loaded from environment
// variables with sensible defaults.
type Config struct {
	LogLevel     string
	LogFormat    string
	MaxSaltTries int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		LogLevel:     envString("SAFEDOCX_LOG_LEVEL", "info"),
		LogFormat:    envString("SAFEDOCX_LOG_FORMAT", "json"),
		MaxSaltTries: envInt("SAFEDOCX_MAX_SALT_TRIES", 10000),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
