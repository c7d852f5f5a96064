// Package config loads the daemon configuration from environment
// variables, 12-factor style.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds daemon configuration.
type Config struct {
	LogLevel    string
	DatabaseURL string

	// Sweep cadence; the business-hours gate is applied per sweep.
	SweepInterval time.Duration

	// Optional Redis lease for multi-replica deployments. Empty means
	// in-process single-flight only.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Optional SMTP relay. Empty host disables email.
	SMTPHost      string
	SMTPPort      int
	SMTPUser      string
	SMTPPassword  string
	SMTPFrom      string
	SMTPPerMinute int

	// Optional calendar profile YAML; empty means the built-in
	// Equatorial Guinea defaults.
	CalendarProfile string

	// Optional OpenTelemetry export.
	OTelEnabled  bool
	OTLPEndpoint string
	OTelInsecure bool
}

// Load loads configuration from environment variables.
func Load() *Config {
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		// Default to local generic postgres
		dbURL = "postgres://gesdoc@localhost:5432/gesdoc?sslmode=disable"
	}

	interval := time.Hour
	if raw := os.Getenv("SWEEP_INTERVAL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			interval = d
		}
	}

	return &Config{
		LogLevel:        logLevel,
		DatabaseURL:     dbURL,
		SweepInterval:   interval,
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         envInt("REDIS_DB", 0),
		SMTPHost:        os.Getenv("SMTP_HOST"),
		SMTPPort:        envInt("SMTP_PORT", 587),
		SMTPUser:        os.Getenv("SMTP_USER"),
		SMTPPassword:    os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:        os.Getenv("SMTP_FROM"),
		SMTPPerMinute:   envInt("SMTP_PER_MINUTE", 30),
		CalendarProfile: os.Getenv("CALENDAR_PROFILE"),
		OTelEnabled:     envBool("OTEL_ENABLED", false),
		OTLPEndpoint:    envDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTelInsecure:    envBool("OTEL_INSECURE", false),
	}
}

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
