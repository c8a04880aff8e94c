// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Workspace string
	Addr      string
	LogLevel  string
	LogFormat string
	AuditDB   string // overrides <workspace>/audit/audit.sqlite when set
}

// Load reads an optional .env file and then configuration from environment
// variables. Overrides run before validation so command-line flags can
// replace environment values.
func Load(overrides ...func(*Config)) (*Config, error) {
	// a missing .env is not an error
	_ = godotenv.Load()
	cfg := fromEnv()
	for _, apply := range overrides {
		apply(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func fromEnv() *Config {
	return &Config{
		Workspace: getEnv("AGENTPLAN_WORKSPACE", "~/.agentplan"),
		Addr:      getEnv("AGENTPLAN_ADDR", "127.0.0.1:8787"),
		LogLevel:  strings.ToLower(getEnv("AGENTPLAN_LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("AGENTPLAN_LOG_FORMAT", "text")),
		AuditDB:   getEnv("AGENTPLAN_AUDIT_DB", ""),
	}
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Workspace) == "" {
		return fmt.Errorf("AGENTPLAN_WORKSPACE cannot be empty")
	}
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("AGENTPLAN_ADDR cannot be empty")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("AGENTPLAN_LOG_LEVEL must be debug, info, warn or error, got %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("AGENTPLAN_LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}
