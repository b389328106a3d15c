/*
Package config loads process configuration for the payroll server.

SOURCES (highest precedence first):
  1. Command-line flags (applied by cmd/server after Load)
  2. Environment variables
  3. .env file(s), read without modifying the process environment
  4. Built-in defaults

VARIABLES:
  PAYROLL_PORT                HTTP port (8080)
  PAYROLL_DB                  SQLite path, ":memory:" allowed (payroll.db)
  PAYROLL_ENGINE_CONFIG       JSON/YAML engine config file, empty = built-in tables
  PAYROLL_WORKERS             Bulk run concurrency (4)
  PAYROLL_SCHEDULER_ENABLED   Monthly scheduler on/off (true)
  PAYROLL_SCHEDULER_INTERVAL  Scheduler check interval (1h)
  PAYROLL_DEFAULT_TAX_YEAR    Tax year when a request omits one, 0 = period year
  APP_ENV                     development | production
  LOG_LEVEL                   debug | info | warn | error

SEE ALSO:
  - cmd/server/main.go: Flag overrides and wiring
  - factory/config.go: Engine configuration file format
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the server configuration.
type Config struct {
	Port             int
	DBPath           string
	EngineConfigPath string
	Workers          int
	DefaultTaxYear   int
	Scheduler        SchedulerConfig

	Env      string
	LogLevel string
}

// SchedulerConfig controls the monthly payroll scheduler.
type SchedulerConfig struct {
	Enabled  bool
	Interval time.Duration
}

// Load reads configuration from the environment and the given .env files.
// With no files it tries ".env". Missing files are skipped.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	file := map[string]string{}
	for _, path := range envFiles {
		values, err := godotenv.Read(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		for k, v := range values {
			if _, seen := file[k]; !seen {
				file[k] = v
			}
		}
	}
	env := source{file: file}

	cfg := &Config{
		DBPath:           env.get("PAYROLL_DB", "payroll.db"),
		EngineConfigPath: env.get("PAYROLL_ENGINE_CONFIG", ""),
		Env:              env.get("APP_ENV", "development"),
		LogLevel:         strings.ToLower(env.get("LOG_LEVEL", "info")),
	}

	var err error
	if cfg.Port, err = env.getInt("PAYROLL_PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.Workers, err = env.getInt("PAYROLL_WORKERS", 4); err != nil {
		return nil, err
	}
	if cfg.DefaultTaxYear, err = env.getInt("PAYROLL_DEFAULT_TAX_YEAR", 0); err != nil {
		return nil, err
	}
	if cfg.Scheduler.Enabled, err = env.getBool("PAYROLL_SCHEDULER_ENABLED", true); err != nil {
		return nil, err
	}
	if cfg.Scheduler.Interval, err = env.getDuration("PAYROLL_SCHEDULER_INTERVAL", time.Hour); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PAYROLL_PORT must be 1..65535, got %d", c.Port)
	}
	if c.DBPath == "" {
		return fmt.Errorf("PAYROLL_DB is required")
	}
	if c.Workers < 1 {
		return fmt.Errorf("PAYROLL_WORKERS must be at least 1, got %d", c.Workers)
	}
	if c.DefaultTaxYear < 0 {
		return fmt.Errorf("PAYROLL_DEFAULT_TAX_YEAR must not be negative")
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("PAYROLL_SCHEDULER_INTERVAL must be positive")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got %q", c.LogLevel)
	}
	return nil
}

// IsProduction reports whether APP_ENV selects production behavior.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// =============================================================================
// LOOKUP HELPERS
// =============================================================================

// source resolves a key from the environment first, then the .env values.
type source struct {
	file map[string]string
}

func (s source) get(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	if v, ok := s.file[key]; ok && v != "" {
		return v
	}
	return defaultValue
}

func (s source) getInt(key string, defaultValue int) (int, error) {
	raw := s.get(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func (s source) getBool(key string, defaultValue bool) (bool, error) {
	raw := s.get(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func (s source) getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := s.get(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
