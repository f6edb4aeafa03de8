package worker

import (
	"bytes"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "*/30 * * * *", cfg.CronSchedule)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, 4, cfg.Parallelism)
	assert.Equal(t, 9091, cfg.HealthPort)
	assert.True(t, cfg.UpdateIndex)
}

func TestConfig_Validate_Defaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate_InvalidFields(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CronSchedule = "not a cron schedule"
	cfg.HealthPort = 80
	cfg.RunTimeout = 0

	err := cfg.Validate()
	assert.Error(t, err)
}

func TestLoadConfigFromEnv_FallsBackOnInvalidValue(t *testing.T) {
	os.Setenv("HARVEST_CRON_SCHEDULE", "garbage")
	os.Setenv("HARVEST_HEALTH_PORT", "80")
	defer os.Unsetenv("HARVEST_CRON_SCHEDULE")
	defer os.Unsetenv("HARVEST_HEALTH_PORT")

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	cfg := LoadConfigFromEnv(logger, testMetrics)

	assert.Equal(t, DefaultConfig().CronSchedule, cfg.CronSchedule)
	assert.Equal(t, DefaultConfig().HealthPort, cfg.HealthPort)
	assert.Contains(t, buf.String(), "fallback applied")
}

func TestLoadConfigFromEnv_AcceptsValidOverrides(t *testing.T) {
	os.Setenv("HARVEST_WORKER_TIMEZONE", "America/New_York")
	os.Setenv("HARVEST_RUN_CONCURRENCY", "8")
	os.Setenv("HARVEST_RATE_PER_SECOND", "5.5")
	os.Setenv("HARVEST_UPDATE_INDEX", "false")
	defer os.Unsetenv("HARVEST_WORKER_TIMEZONE")
	defer os.Unsetenv("HARVEST_RUN_CONCURRENCY")
	defer os.Unsetenv("HARVEST_RATE_PER_SECOND")
	defer os.Unsetenv("HARVEST_UPDATE_INDEX")

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	cfg := LoadConfigFromEnv(logger, testMetrics)

	assert.Equal(t, "America/New_York", cfg.Timezone)
	assert.Equal(t, 8, cfg.Parallelism)
	assert.Equal(t, 5.5, cfg.RatePerSecond)
	assert.False(t, cfg.UpdateIndex)
}

func TestLoadConfigFromEnv_NeverErrors(t *testing.T) {
	os.Setenv("HARVEST_RUN_TIMEOUT", "not-a-duration")
	defer os.Unsetenv("HARVEST_RUN_TIMEOUT")

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	cfg := LoadConfigFromEnv(logger, testMetrics)
	assert.Equal(t, 30*time.Minute, cfg.RunTimeout)
}

// testMetrics is shared across this package's tests: NewMetrics registers
// Prometheus collectors process-wide, so each test constructing its own
// instance would panic on duplicate registration.
var testMetrics = NewMetrics()
