// Command worker runs the harvester as a long-lived process: a cron
// schedule drives periodic ingest runs, and a health/metrics server answers
// liveness probes, matching the teacher's worker entry point but driving
// ingest.Orchestrator.Run instead of a crawl-and-notify service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"content-harvest/internal/config"
	"content-harvest/internal/extract"
	"content-harvest/internal/index"
	"content-harvest/internal/ingest"
	"content-harvest/internal/observability/logging"
	"content-harvest/internal/sources"
	"content-harvest/internal/sources/agent"
	"content-harvest/internal/sources/commentsite"
	"content-harvest/internal/sources/feed"
	"content-harvest/internal/sources/htmllist"
	"content-harvest/internal/sources/jsonapi"
	"content-harvest/internal/storage"
	"content-harvest/internal/transport"
	"content-harvest/internal/worker"

	"content-harvest/internal/entity"
)

const (
	defaultDataRoot    = "data"
	defaultSourcesYAML = "config/sources.yaml"
	defaultHTTPTimeout = 20 * time.Second
)

func main() {
	logger := logging.NewLogger()

	dataRoot := os.Getenv("HARVEST_DATA_ROOT")
	if dataRoot == "" {
		dataRoot = defaultDataRoot
	}

	metrics := worker.NewMetrics()
	cfg := worker.LoadConfigFromEnv(logger, metrics)
	logger.Info("worker configuration loaded",
		slog.String("cron_schedule", cfg.CronSchedule),
		slog.String("timezone", cfg.Timezone),
		slog.Int("parallelism", cfg.Parallelism),
		slog.Duration("run_timeout", cfg.RunTimeout),
		slog.Int("health_port", cfg.HealthPort))

	store := storage.New(dataRoot)
	idx := index.New(dataRoot)
	session := transport.NewSession(defaultHTTPTimeout, true)
	defer session.Close()

	srcs, err := config.LoadSources(defaultSourcesYAML)
	if err != nil {
		logger.Warn("failed to load source configuration, continuing with no sources", slog.Any("error", err))
	}
	registry := sources.NewRegistry(srcs, buildFetchers(session, extract.New(session), srcs))
	orchestrator := ingest.New(registry, store, idx, logger)

	healthAddr := fmt.Sprintf(":%d", cfg.HealthPort)
	healthServer := worker.NewHealthServer(healthAddr, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := healthServer.Start(ctx); err != nil {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()

	sched := worker.NewScheduler(orchestrator, cfg, metrics, healthServer, logger)
	if err := sched.Start(); err != nil {
		logger.Error("failed to start scheduler", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker started", slog.String("schedule", cfg.CronSchedule), slog.String("timezone", cfg.Timezone))

	<-ctx.Done()
	logger.Info("shutting down")
	sched.Stop()
}

// buildFetchers mirrors cmd/harvester's wiring so the worker and the CLI
// bind sources to adapters identically.
func buildFetchers(session *transport.Session, extractor *extract.Extractor, srcs []entity.Source) map[entity.Transport]sources.Fetcher {
	fetchers := map[entity.Transport]sources.Fetcher{
		entity.TransportRSS:   feed.New(session),
		entity.TransportHTML:  htmllist.New(session, extractor),
		entity.TransportAPI:   jsonapi.New(session),
		entity.TransportAgent: agent.New(&agent.ProcessDriver{}),
	}

	strategies := map[string]commentsite.Strategy{}
	for _, src := range srcs {
		if src.Transport != entity.TransportCommentAPI || src.Config == nil {
			continue
		}
		strategies[src.ID] = commentsite.Strategy{
			ListURL:               src.URL,
			ItemURLTemplate:       src.Config.DetailURLTemplate,
			DiscussionURLTemplate: src.Config.DetailURLTemplate,
			SeedCount:             src.Config.SeedCount,
			FinalCount:            src.Config.FinalCount,
			QueueLimit:            src.Config.QueueLimit,
		}
	}
	if len(strategies) > 0 {
		fetchers[entity.TransportCommentAPI] = commentsite.New(session, strategies)
	}
	return fetchers
}
