// Package cli provides common CLI initialization utilities shared by
// cmd/ledgerly and cmd/ledgerly-worker.
package cli

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/Vedant6800/ledgerly/internal/config"
	"github.com/Vedant6800/ledgerly/internal/log"
)

// SetupLogger initializes structured logging with default settings and a
// component name for the binary. Sets the result as the default logger.
func SetupLogger(component string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Component = component
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}
