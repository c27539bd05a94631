// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Database drivers accepted in DATABASE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverDuckDB   = "duckdb"
)

// Config holds the configuration for the analytics server and CLI.
type Config struct {
	ListenAddr string // HTTP listen address (default ":8080")
	Env        string // environment: "development" (default) or "production"
	LogLevel   string // log level: debug, info, warn, error (default "info")

	DatabaseDriver string // analytics database driver: postgres (default) or duckdb
	DatabaseURL    string // analytics database DSN
	MetaDBPath     string // path to SQLite metadata file

	// Execution plan store
	PlanEvictionDelay   time.Duration // grace window before explained plans are evicted (default 3s)
	PlanEvictionWorkers int           // eviction worker pool size (default 4)
	PlanMaxAge          time.Duration // janitor drops keys idle for longer (default 30m)
	PlanJanitorSchedule string        // cron spec for the janitor (default "@every 5m")
	ExplainRateLimit    float64       // EXPLAIN ANALYZE calls per second, 0 disables

	// Compiler
	CTEOptimizerEnabled bool   // rewrite correlated subqueries into CTEs (default true)
	OffsetOrdering      string // "desc" (default) or "sign"

	// Rate limiting
	RateLimitRPS   float64 // sustained requests per second (default 50)
	RateLimitBurst int     // burst capacity (default 100)

	// CORS
	CORSAllowedOrigins []string // allowed origins for CORS (default: ["*"])

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when the server is running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		ListenAddr:          os.Getenv("LISTEN_ADDR"),
		Env:                 os.Getenv("ENV"),
		LogLevel:            os.Getenv("LOG_LEVEL"),
		DatabaseDriver:      strings.ToLower(strings.TrimSpace(os.Getenv("DATABASE_DRIVER"))),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		MetaDBPath:          os.Getenv("META_DB_PATH"),
		PlanJanitorSchedule: os.Getenv("PLAN_JANITOR_SCHEDULE"),
		OffsetOrdering:      strings.ToLower(strings.TrimSpace(os.Getenv("OFFSET_ORDERING"))),
		CTEOptimizerEnabled: parseBoolEnvDefault("CTE_OPTIMIZER_ENABLED", true),
	}

	var err error
	if cfg.PlanEvictionDelay, err = parseDurationEnv("PLAN_EVICTION_DELAY"); err != nil {
		return nil, err
	}
	if cfg.PlanMaxAge, err = parseDurationEnv("PLAN_MAX_AGE"); err != nil {
		return nil, err
	}
	if v := os.Getenv("PLAN_EVICTION_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("PLAN_EVICTION_WORKERS must be a positive integer, got %q", v)
		}
		cfg.PlanEvictionWorkers = n
	}
	if v := os.Getenv("EXPLAIN_RATE_LIMIT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return nil, fmt.Errorf("EXPLAIN_RATE_LIMIT must be a non-negative number, got %q", v)
		}
		cfg.ExplainRateLimit = f
	}

	// Rate limiting
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitBurst = n
		}
	}

	// CORS
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSAllowedOrigins = compactNonEmpty(origins)
	}

	// Defaults
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	switch cfg.DatabaseDriver {
	case "":
		cfg.DatabaseDriver = DriverPostgres
	case DriverPostgres, DriverDuckDB:
	default:
		return nil, fmt.Errorf("DATABASE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverDuckDB, cfg.DatabaseDriver)
	}
	if cfg.DatabaseURL == "" {
		cfg.Warnings = append(cfg.Warnings, "DATABASE_URL not set; queries can be compiled but not executed")
	}
	if cfg.MetaDBPath == "" {
		cfg.MetaDBPath = "trackerql_meta.sqlite"
	}
	if cfg.PlanEvictionDelay == 0 {
		cfg.PlanEvictionDelay = 3 * time.Second
	}
	if cfg.PlanEvictionWorkers == 0 {
		cfg.PlanEvictionWorkers = 4
	}
	if cfg.PlanMaxAge == 0 {
		cfg.PlanMaxAge = 30 * time.Minute
	}
	if cfg.PlanJanitorSchedule == "" {
		cfg.PlanJanitorSchedule = "@every 5m"
	}
	switch cfg.OffsetOrdering {
	case "":
		cfg.OffsetOrdering = "desc"
	case "desc", "sign":
	default:
		return nil, fmt.Errorf("OFFSET_ORDERING must be \"desc\" or \"sign\", got %q", cfg.OffsetOrdering)
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 50
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 100
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}

	// Production mode: insecure defaults are fatal errors.
	if cfg.IsProduction() {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL must be set in production (ENV=production)")
		}
		if len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*" {
			return nil, fmt.Errorf("CORS wildcard (*) is not allowed in production (ENV=production)")
		}
	}

	return cfg, nil
}

func parseDurationEnv(key string) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%s must be a non-negative duration, got %q", key, v)
	}
	return d, nil
}

func parseBoolEnvDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return defaultVal
	}
	if v == "0" || v == "false" || v == "no" || v == "off" {
		return false
	}
	if v == "1" || v == "true" || v == "yes" || v == "on" {
		return true
	}
	return defaultVal
}

func compactNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(strings.TrimPrefix(key, "export "))
		value = stripQuotes(strings.TrimSpace(value))
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
