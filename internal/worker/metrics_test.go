package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewMetrics_AllCallable(t *testing.T) {
	m := testMetrics
	assert.NotPanics(t, func() {
		m.RecordJobRun("success")
		m.RecordJobDuration(1.5)
		m.RecordSourcesProcessed(3)
		m.RecordLastSuccess()
		m.RecordValidationError("cron_schedule")
		m.RecordFallback("timezone", "default")
		m.RecordLoadTimestamp()
	})
}
