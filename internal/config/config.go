// Package config loads application configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	// HTTP Server
	Port string `koanf:"PORT"`

	// Backend selection
	DataBackend string `koanf:"DATA_BACKEND"`

	// GitHub remote store
	GitHubToken  string `koanf:"GITHUB_TOKEN"`
	GitHubOwner  string `koanf:"GITHUB_OWNER"`
	GitHubRepo   string `koanf:"GITHUB_REPO"`
	GitHubBranch string `koanf:"GITHUB_BRANCH"`
	GitHubAPIURL string `koanf:"GITHUB_API_URL"`

	// SQLite backend / worker mirror
	SQLiteDBPath string `koanf:"SQLITE_DB_PATH"`

	// AMQP
	AMQPURL      string `koanf:"AMQP_URL"`
	AMQPExchange string `koanf:"AMQP_EXCHANGE"`
	AMQPQueue    string `koanf:"AMQP_QUEUE"`
}

// Load reads configuration from environment variables and fills in
// defaults for anything unset.
func Load() (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", nil), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf", FlatPaths: true}); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if cfg.Port == "" {
		cfg.Port = "8081"
	}
	if cfg.DataBackend == "" {
		cfg.DataBackend = "memory"
	}
	if cfg.GitHubBranch == "" {
		cfg.GitHubBranch = "main"
	}
	if cfg.SQLiteDBPath == "" {
		cfg.SQLiteDBPath = "./data/ledgerly.db"
	}
	if cfg.AMQPExchange == "" {
		cfg.AMQPExchange = "ledgerly"
	}
	if cfg.AMQPQueue == "" {
		cfg.AMQPQueue = "ledger_events"
	}

	return &cfg, nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	validBackends := []string{"memory", "github", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Validate GitHub configuration if backend is github
	if c.DataBackend == "github" {
		if c.GitHubToken == "" {
			errors = append(errors, "GitHub token is required when using github backend")
		}
		if c.GitHubOwner == "" {
			errors = append(errors, "GitHub repository owner is required when using github backend")
		}
		if c.GitHubRepo == "" {
			errors = append(errors, "GitHub repository name is required when using github backend")
		}
		if c.GitHubAPIURL != "" {
			if _, err := url.Parse(c.GitHubAPIURL); err != nil {
				errors = append(errors, fmt.Sprintf("invalid GitHub API URL '%s': %v", c.GitHubAPIURL, err))
			}
		}
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}

		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}
