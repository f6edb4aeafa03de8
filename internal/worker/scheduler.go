package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"content-harvest/internal/entity"
	"content-harvest/internal/ingest"
)

// Scheduler drives periodic ingest runs on a cron schedule and reports
// their outcome to Metrics and HealthServer.
type Scheduler struct {
	orchestrator *ingest.Orchestrator
	cfg          Config
	metrics      *Metrics
	health       *HealthServer
	logger       *slog.Logger
	cron         *cron.Cron
}

// NewScheduler builds a Scheduler. It does not start anything yet.
func NewScheduler(o *ingest.Orchestrator, cfg Config, metrics *Metrics, health *HealthServer, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{orchestrator: o, cfg: cfg, metrics: metrics, health: health, logger: logger}
}

// Start registers the cron job and begins the scheduler's own goroutine. It
// marks the health server ready once the job is registered, not once a run
// has completed: a worker with no run yet is still a live, correctly
// configured process.
func (s *Scheduler) Start() error {
	loc, err := time.LoadLocation(s.cfg.Timezone)
	if err != nil {
		s.logger.Error("invalid timezone, using UTC", slog.String("timezone", s.cfg.Timezone), slog.Any("error", err))
		loc = time.UTC
	}

	s.cron = cron.New(cron.WithLocation(loc))
	if _, err := s.cron.AddFunc(s.cfg.CronSchedule, s.runOnce); err != nil {
		return err
	}
	s.cron.Start()

	if s.health != nil {
		s.health.SetReady(true)
	}
	s.logger.Info("worker scheduler started",
		slog.String("schedule", s.cfg.CronSchedule),
		slog.String("timezone", s.cfg.Timezone))
	return nil
}

// Stop drains the cron scheduler, waiting for any in-flight run to finish.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// runOnce executes a single ingest run with the worker's configured timeout,
// recording its outcome in metrics regardless of success or failure.
func (s *Scheduler) runOnce() {
	start := time.Now()
	s.metrics.RecordJobRun("started")

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RunTimeout)
	defer cancel()

	runID := uuid.NewString()
	report, err := s.orchestrator.Run(ctx, runID, ingest.Options{
		Parallelism:   s.cfg.Parallelism,
		RatePerSecond: s.cfg.RatePerSecond,
		UpdateIndex:   s.cfg.UpdateIndex,
	})
	duration := time.Since(start)
	s.metrics.RecordJobDuration(duration.Seconds())

	if err != nil {
		s.metrics.RecordJobRun("failure")
		s.logger.Error("scheduled ingest run failed", slog.String("run_id", runID), slog.Any("error", err))
		return
	}

	s.metrics.RecordSourcesProcessed(len(report.Successes) + len(report.Failures))
	status := "success"
	if len(report.Failures) > 0 {
		status = "partial"
	} else {
		s.metrics.RecordLastSuccess()
	}
	s.metrics.RecordJobRun(status)

	s.logger.Info("scheduled ingest run completed",
		slog.String("run_id", runID),
		slog.Int("successes", len(report.Successes)),
		slog.Int("failures", len(report.Failures)),
		slog.Duration("duration", duration))
}

// RunOnceSynchronously executes one ingest run immediately, outside the cron
// schedule, and returns its report. This backs the CLI's "ingest" command so
// a manual run shares the exact same path a scheduled run takes.
func RunOnceSynchronously(ctx context.Context, o *ingest.Orchestrator, opts ingest.Options) (entity.RunReport, error) {
	runID := uuid.NewString()
	return o.Run(ctx, runID, opts)
}
