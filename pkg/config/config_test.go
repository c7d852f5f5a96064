package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/gesdoc-gq/core/pkg/config"
)

// TestLoad_Defaults verifies that Load() returns sensible defaults
// when no environment variables are set.
// Invariant: System must boot with safe defaults in dev mode.
func TestLoad_Defaults(t *testing.T) {
	// Ensure clean env
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SWEEP_INTERVAL", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("SMTP_HOST", "")
	t.Setenv("SMTP_PORT", "")
	t.Setenv("CALENDAR_PROFILE", "")

	cfg := config.Load()

	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Contains(t, cfg.DatabaseURL, "localhost") // Default is local
	assert.Equal(t, time.Hour, cfg.SweepInterval)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.Equal(t, 30, cfg.SMTPPerMinute)
	assert.False(t, cfg.OTelEnabled)
	assert.Equal(t, "localhost:4317", cfg.OTLPEndpoint)
}

// TestLoad_Overrides verifies that environment variables correctly
// override default values.
// Invariant: Ops can control config via standard 12-factor env vars.
func TestLoad_Overrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("DATABASE_URL", "sqlite:///var/lib/gesdoc/gesdoc.db")
	t.Setenv("SWEEP_INTERVAL", "30m")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("SMTP_HOST", "smtp.ministerio.test")
	t.Setenv("SMTP_PORT", "25")
	t.Setenv("CALENDAR_PROFILE", "/etc/gesdoc/calendar.yaml")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")

	cfg := config.Load()

	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, "sqlite:///var/lib/gesdoc/gesdoc.db", cfg.DatabaseURL)
	assert.Equal(t, 30*time.Minute, cfg.SweepInterval)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, "smtp.ministerio.test", cfg.SMTPHost)
	assert.Equal(t, 25, cfg.SMTPPort)
	assert.Equal(t, "/etc/gesdoc/calendar.yaml", cfg.CalendarProfile)
	assert.True(t, cfg.OTelEnabled)
	assert.Equal(t, "collector:4317", cfg.OTLPEndpoint)
}

// TestLoad_InvalidValuesFallBack verifies malformed numeric or duration
// values fall back to defaults instead of failing startup.
func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("SWEEP_INTERVAL", "often")
	t.Setenv("SMTP_PORT", "not-a-port")
	t.Setenv("REDIS_DB", "")

	cfg := config.Load()

	assert.Equal(t, time.Hour, cfg.SweepInterval)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.Equal(t, 0, cfg.RedisDB)
}
