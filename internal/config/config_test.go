package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configVars = []string{
	"LISTEN_ADDR", "ENV", "LOG_LEVEL", "DATABASE_DRIVER", "DATABASE_URL", "META_DB_PATH",
	"PLAN_EVICTION_DELAY", "PLAN_EVICTION_WORKERS", "PLAN_MAX_AGE", "PLAN_JANITOR_SCHEDULE",
	"EXPLAIN_RATE_LIMIT", "CTE_OPTIMIZER_ENABLED", "OFFSET_ORDERING", "CORS_ALLOWED_ORIGINS",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configVars {
		t.Setenv(k, "")
	}
}

// === LoadFromEnv ===

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, DriverPostgres, cfg.DatabaseDriver)
	assert.Equal(t, "trackerql_meta.sqlite", cfg.MetaDBPath)
	assert.Equal(t, 3*time.Second, cfg.PlanEvictionDelay)
	assert.Equal(t, 4, cfg.PlanEvictionWorkers)
	assert.Equal(t, 30*time.Minute, cfg.PlanMaxAge)
	assert.Equal(t, "@every 5m", cfg.PlanJanitorSchedule)
	assert.Zero(t, cfg.ExplainRateLimit)
	assert.True(t, cfg.CTEOptimizerEnabled)
	assert.Equal(t, "desc", cfg.OffsetOrdering)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.InDelta(t, 50.0, cfg.RateLimitRPS, 0)
	assert.Equal(t, 100, cfg.RateLimitBurst)
	assert.Len(t, cfg.Warnings, 1)
	assert.Contains(t, cfg.Warnings[0], "DATABASE_URL")
}

func TestLoadFromEnv_AllVarsSet(t *testing.T) {
	clearEnv(t)
	t.Setenv("LISTEN_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATABASE_DRIVER", "DuckDB")
	t.Setenv("DATABASE_URL", "/tmp/analytics.duckdb")
	t.Setenv("META_DB_PATH", "/tmp/meta.sqlite")
	t.Setenv("PLAN_EVICTION_DELAY", "500ms")
	t.Setenv("PLAN_EVICTION_WORKERS", "2")
	t.Setenv("PLAN_MAX_AGE", "1h")
	t.Setenv("PLAN_JANITOR_SCHEDULE", "*/10 * * * *")
	t.Setenv("EXPLAIN_RATE_LIMIT", "2.5")
	t.Setenv("CTE_OPTIMIZER_ENABLED", "off")
	t.Setenv("OFFSET_ORDERING", "sign")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("RATE_LIMIT_RPS", "10")
	t.Setenv("RATE_LIMIT_BURST", "20")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, DriverDuckDB, cfg.DatabaseDriver)
	assert.Equal(t, "/tmp/analytics.duckdb", cfg.DatabaseURL)
	assert.Equal(t, "/tmp/meta.sqlite", cfg.MetaDBPath)
	assert.Equal(t, 500*time.Millisecond, cfg.PlanEvictionDelay)
	assert.Equal(t, 2, cfg.PlanEvictionWorkers)
	assert.Equal(t, time.Hour, cfg.PlanMaxAge)
	assert.Equal(t, "*/10 * * * *", cfg.PlanJanitorSchedule)
	assert.InDelta(t, 2.5, cfg.ExplainRateLimit, 0)
	assert.False(t, cfg.CTEOptimizerEnabled)
	assert.Equal(t, "sign", cfg.OffsetOrdering)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.InDelta(t, 10.0, cfg.RateLimitRPS, 0)
	assert.Equal(t, 20, cfg.RateLimitBurst)
	assert.Empty(t, cfg.Warnings)
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"driver", "DATABASE_DRIVER", "mysql", "DATABASE_DRIVER"},
		{"eviction delay", "PLAN_EVICTION_DELAY", "soon", "PLAN_EVICTION_DELAY"},
		{"negative max age", "PLAN_MAX_AGE", "-1m", "PLAN_MAX_AGE"},
		{"workers", "PLAN_EVICTION_WORKERS", "0", "PLAN_EVICTION_WORKERS"},
		{"explain rate", "EXPLAIN_RATE_LIMIT", "-1", "EXPLAIN_RATE_LIMIT"},
		{"ordering", "OFFSET_ORDERING", "asc", "OFFSET_ORDERING"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := LoadFromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromEnv_Production(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"missing database", map[string]string{"CORS_ALLOWED_ORIGINS": "https://a.example"}, "DATABASE_URL"},
		{"wildcard cors", map[string]string{"DATABASE_URL": "postgres://x"}, "CORS wildcard"},
		{"valid", map[string]string{"DATABASE_URL": "postgres://x", "CORS_ALLOWED_ORIGINS": "https://a.example"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("ENV", "production")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := LoadFromEnv()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, cfg.IsProduction())
		})
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := &Config{LogLevel: tt.level}
			assert.Equal(t, tt.want, cfg.SlogLevel())
		})
	}
}

// === LoadDotEnv ===

func TestLoadDotEnv_FileNotFound(t *testing.T) {
	assert.NoError(t, LoadDotEnv("/nonexistent/.env"))
}

func TestLoadDotEnv_ParsesKeyValue(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	content := "# comment\n\nTQL_PLAIN=value\nexport TQL_EXPORTED=1\nTQL_QUOTED=\"quoted value\"\nnot a pair\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o644))
	t.Cleanup(func() {
		_ = os.Unsetenv("TQL_PLAIN")
		_ = os.Unsetenv("TQL_EXPORTED")
		_ = os.Unsetenv("TQL_QUOTED")
	})

	require.NoError(t, LoadDotEnv(envFile))

	assert.Equal(t, "value", os.Getenv("TQL_PLAIN"))
	assert.Equal(t, "1", os.Getenv("TQL_EXPORTED"))
	assert.Equal(t, "quoted value", os.Getenv("TQL_QUOTED"))
}

func TestLoadDotEnv_EnvVarPrecedence(t *testing.T) {
	t.Setenv("TQL_PRECEDENCE", "from_env")

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("TQL_PRECEDENCE=from_file\n"), 0o644))

	require.NoError(t, LoadDotEnv(envFile))
	assert.Equal(t, "from_env", os.Getenv("TQL_PRECEDENCE"))
}
