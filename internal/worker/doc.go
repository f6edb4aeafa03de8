// Package worker turns the ingest orchestrator into a long-running
// service: Config/LoadConfigFromEnv load its operational knobs with
// fail-open fallback, Scheduler drives periodic runs on a robfig/cron
// schedule, and HealthServer answers liveness/readiness probes and serves
// Prometheus metrics.
//
// Example usage:
//
//	metrics := worker.NewMetrics()
//	cfg := worker.LoadConfigFromEnv(logger, metrics)
//	health := worker.NewHealthServer(fmt.Sprintf(":%d", cfg.HealthPort), logger)
//	go health.Start(ctx)
//
//	sched := worker.NewScheduler(orchestrator, cfg, metrics, health, logger)
//	sched.Start()
package worker
