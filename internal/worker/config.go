// Package worker runs the harvester as a long-lived process: a cron
// schedule drives periodic ingest runs, and a small HTTP server answers
// liveness/readiness probes and exposes metrics.
package worker

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"content-harvest/internal/pkg/config"
)

// Config holds the worker's operational parameters. Every field has a
// default and is loaded with fail-open fallback: a bad environment value
// never stops the worker from starting, it just logs a warning and keeps
// the default.
type Config struct {
	// CronSchedule is the standard 5-field cron expression driving ingest
	// runs. Default: every 30 minutes.
	CronSchedule string

	// Timezone is the IANA timezone the cron schedule is evaluated in.
	Timezone string

	// Parallelism bounds how many sources are fetched concurrently per run.
	Parallelism int

	// RatePerSecond bounds how many source fetches start per second.
	RatePerSecond float64

	// RunTimeout bounds a single ingest run's total duration.
	RunTimeout time.Duration

	// HealthPort is the port the health/metrics HTTP server listens on.
	HealthPort int

	// UpdateIndex mirrors ingest.Options.UpdateIndex for every scheduled run.
	UpdateIndex bool
}

// DefaultConfig returns the worker's out-of-the-box configuration.
func DefaultConfig() Config {
	return Config{
		CronSchedule:  "*/30 * * * *",
		Timezone:      "UTC",
		Parallelism:   4,
		RatePerSecond: 2,
		RunTimeout:    30 * time.Minute,
		HealthPort:    9091,
		UpdateIndex:   true,
	}
}

// Validate checks the configuration's invariants.
func (c *Config) Validate() error {
	var errs []error

	if err := config.ValidateCronSchedule(c.CronSchedule); err != nil {
		errs = append(errs, fmt.Errorf("cron schedule: %w", err))
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if err := config.ValidateIntRange(c.Parallelism, 1, 64); err != nil {
		errs = append(errs, fmt.Errorf("parallelism: %w", err))
	}
	if err := config.ValidatePositiveDuration(c.RunTimeout); err != nil {
		errs = append(errs, fmt.Errorf("run timeout: %w", err))
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}
	return nil
}

// LoadConfigFromEnv loads the worker configuration from environment
// variables on top of DefaultConfig, falling back to the default for any
// field that's missing or fails validation. It never returns an error: a
// misconfigured worker still starts, with every fallback logged and
// counted in metrics so the bad value isn't silently lost. The one
// exception is HARVEST_RATE_PER_SECOND: an unparsable value is logged and
// replaced by the default, but not counted in metrics.
//
// Recognized variables: HARVEST_CRON_SCHEDULE, HARVEST_WORKER_TIMEZONE,
// HARVEST_RUN_CONCURRENCY, HARVEST_RUN_TIMEOUT, HARVEST_HEALTH_PORT,
// HARVEST_RATE_PER_SECOND, HARVEST_UPDATE_INDEX.
func LoadConfigFromEnv(logger *slog.Logger, metrics *Metrics) Config {
	cfg := DefaultConfig()

	warn := func(field, envKey string, warnings []string) {
		metrics.RecordValidationError(field)
		metrics.RecordFallback(field, "default")
		for _, w := range warnings {
			logger.Warn("worker configuration fallback applied",
				slog.String("field", field),
				slog.String("env_key", envKey),
				slog.String("warning", w))
		}
	}

	result := config.LoadEnvWithFallback("HARVEST_CRON_SCHEDULE", cfg.CronSchedule, config.ValidateCronSchedule)
	cfg.CronSchedule = result.Value.(string)
	if result.FallbackApplied {
		warn("cron_schedule", "HARVEST_CRON_SCHEDULE", result.Warnings)
	}

	result = config.LoadEnvWithFallback("HARVEST_WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone)
	cfg.Timezone = result.Value.(string)
	if result.FallbackApplied {
		warn("timezone", "HARVEST_WORKER_TIMEZONE", result.Warnings)
	}

	result = config.LoadEnvInt("HARVEST_RUN_CONCURRENCY", cfg.Parallelism, func(v int) error {
		return config.ValidateIntRange(v, 1, 64)
	})
	cfg.Parallelism = result.Value.(int)
	if result.FallbackApplied {
		warn("parallelism", "HARVEST_RUN_CONCURRENCY", result.Warnings)
	}

	result = config.LoadEnvDuration("HARVEST_RUN_TIMEOUT", cfg.RunTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, time.Minute, 4*time.Hour)
	})
	cfg.RunTimeout = result.Value.(time.Duration)
	if result.FallbackApplied {
		warn("run_timeout", "HARVEST_RUN_TIMEOUT", result.Warnings)
	}

	result = config.LoadEnvInt("HARVEST_HEALTH_PORT", cfg.HealthPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	})
	cfg.HealthPort = result.Value.(int)
	if result.FallbackApplied {
		warn("health_port", "HARVEST_HEALTH_PORT", result.Warnings)
	}

	boolResult := config.LoadEnvBool("HARVEST_UPDATE_INDEX", cfg.UpdateIndex)
	cfg.UpdateIndex = boolResult.Value.(bool)
	if boolResult.FallbackApplied {
		warn("update_index", "HARVEST_UPDATE_INDEX", boolResult.Warnings)
	}

	cfg.RatePerSecond = loadEnvFloat("HARVEST_RATE_PER_SECOND", cfg.RatePerSecond, logger)

	metrics.RecordLoadTimestamp()
	return cfg
}

// loadEnvFloat is a narrow helper for the one float field the shared loader
// doesn't cover; it falls back to defaultValue on any parse error.
func loadEnvFloat(envKey string, defaultValue float64, logger *slog.Logger) float64 {
	raw := os.Getenv(envKey)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		logger.Warn("invalid float value for environment variable, using default",
			slog.String("key", envKey), slog.String("value", raw))
		return defaultValue
	}
	return v
}
