// Package ingest is the orchestrator: it fans a run out across every
// enabled source with bounded concurrency, extracts and stores whatever
// each adapter returns, and assembles the run's audit report, mirroring the
// original implementation's ingest_all/ingest_source pair and the
// concurrency pattern of a bounded errgroup over a rate limiter.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"content-harvest/internal/entity"
	"content-harvest/internal/index"
	"content-harvest/internal/observability/logging"
	"content-harvest/internal/observability/metrics"
	"content-harvest/internal/observability/tracing"
	"content-harvest/internal/sources"
	"content-harvest/internal/storage"
)

// StaleRunThreshold is how long a run's heartbeat can go untouched before
// it's considered abandoned (process killed mid-run, no report ever
// written) rather than merely slow.
const StaleRunThreshold = 10 * time.Minute

const heartbeatInterval = 5 * time.Second

// Options configures one orchestrator run.
type Options struct {
	// Parallelism bounds how many sources are fetched concurrently.
	Parallelism int
	// RatePerSecond bounds how many source fetches start per second across
	// the whole run, independent of Parallelism, so a burst of fast sources
	// doesn't hammer every origin at once.
	RatePerSecond float64
	// SourceIDs restricts the run to these sources; empty means every
	// enabled source in the registry.
	SourceIDs []string
	// UpdateIndex upserts every record of each successfully ingested source
	// (read back from storage) into the sqlite index as the run progresses,
	// but only if the index file already exists (Rebuild is how it's
	// created in the first place).
	UpdateIndex bool
}

// DefaultOptions mirrors the original's default concurrency knobs.
func DefaultOptions() Options {
	return Options{Parallelism: 4, RatePerSecond: 2, UpdateIndex: true}
}

// Orchestrator drives one run at a time across the registry, storing into
// store and, when Options.UpdateIndex is set, keeping idx in sync.
type Orchestrator struct {
	registry *sources.Registry
	store    *storage.Storage
	idx      *index.Index
	logger   *slog.Logger
}

// New builds an Orchestrator.
func New(registry *sources.Registry, store *storage.Storage, idx *index.Index, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{registry: registry, store: store, idx: idx, logger: logger}
}

// Run executes one ingest pass and returns its RunReport. It never returns
// an error for a single source's failure; those are captured as
// SourceFailure entries in the report. It returns an error only if the
// report itself can't be persisted, or if listing the sources to run fails.
func (o *Orchestrator) Run(ctx context.Context, runID string, opts Options) (entity.RunReport, error) {
	if opts.Parallelism <= 0 {
		opts.Parallelism = DefaultOptions().Parallelism
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = DefaultOptions().RatePerSecond
	}

	ctx = logging.WithRunIDValue(ctx, runID)
	logger := logging.WithRunID(ctx, o.logger)

	srcList, err := o.selectSources(opts.SourceIDs)
	if err != nil {
		return entity.RunReport{}, err
	}
	metrics.RecordSourcesTotal(len(srcList))

	sourceIDs := make([]string, len(srcList))
	for i, src := range srcList {
		sourceIDs[i] = src.ID
	}
	sort.Strings(sourceIDs)

	report := entity.RunReport{RunID: runID, StartedAt: time.Now(), Sources: sourceIDs}
	var mu sync.Mutex

	stopHeartbeat := o.startHeartbeat(runID)
	defer stopHeartbeat()

	limiter := rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1)
	eg, egCtx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, opts.Parallelism)

	for _, src := range srcList {
		src := src
		eg.Go(func() error {
			if err := limiter.Wait(egCtx); err != nil {
				return nil
			}
			sem <- struct{}{}
			defer func() { <-sem }()

			outcome, failure := o.runSource(egCtx, runID, src, opts)

			mu.Lock()
			if failure != nil {
				report.Failures = append(report.Failures, *failure)
				o.appendFailureLog(runID, *failure)
			} else {
				report.Successes = append(report.Successes, *outcome)
			}
			mu.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return entity.RunReport{}, err
	}

	// Sort so the report is deterministic regardless of goroutine
	// completion order.
	sort.Slice(report.Successes, func(i, j int) bool { return report.Successes[i].SourceID < report.Successes[j].SourceID })
	sort.Slice(report.Failures, func(i, j int) bool { return report.Failures[i].SourceID < report.Failures[j].SourceID })

	report.FinishedAt = time.Now()
	if _, err := o.store.RecordRun(report); err != nil {
		return report, err
	}

	logger.Info("ingest run completed",
		slog.Int("sources", len(srcList)),
		slog.Int("successes", len(report.Successes)),
		slog.Int("failures", len(report.Failures)),
		slog.Duration("duration", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report, nil
}

func (o *Orchestrator) selectSources(ids []string) ([]entity.Source, error) {
	if len(ids) == 0 {
		return o.registry.List(false), nil
	}
	out := make([]entity.Source, 0, len(ids))
	for _, id := range ids {
		src, err := o.registry.Get(id)
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, nil
}

// runSource fetches, extracts, and stores one source, wrapping the step in
// a trace span and recording its outcome as exactly one of (SourceOutcome,
// SourceFailure). A source's failure never aborts the run.
func (o *Orchestrator) runSource(ctx context.Context, runID string, src entity.Source, opts Options) (*entity.SourceOutcome, *entity.SourceFailure) {
	ctx, span := tracing.StartSourceSpan(ctx, "fetch", src.ID, runID)
	defer span.End()

	start := time.Now()
	logger := logging.WithRunID(ctx, o.logger).With("source_id", src.ID)

	fetcher, err := o.registry.FetcherFor(src)
	if err != nil {
		return nil, o.fail(src.ID, err)
	}

	fctx := entity.FetchContext{RunID: runID, Now: start}
	items, err := fetcher.Fetch(ctx, fctx, src)
	if err != nil {
		if _, ok := err.(*entity.BlockedContent); ok {
			metrics.RecordSourceError(src.ID, "blocked")
		} else {
			metrics.RecordSourceError(src.ID, "fetch")
		}
		logger.Warn("source fetch failed", slog.Any("error", err))
		return nil, o.fail(src.ID, err)
	}

	stored, duplicates, err := o.persist(src, items)
	if err != nil {
		metrics.RecordSourceError(src.ID, "store")
		logger.Warn("source store failed", slog.Any("error", err))
		return nil, o.fail(src.ID, err)
	}

	duration := time.Since(start)
	metrics.RecordSourceRun(src.ID, len(items), stored, duplicates, duration)
	logger.Info("source ingested",
		slog.Int("items_found", len(items)),
		slog.Int("items_stored", stored),
		slog.Int("duplicates", duplicates),
		slog.Duration("duration", duration),
	)

	if opts.UpdateIndex && o.idx != nil && o.idx.Exists() {
		records, rerr := o.store.RecordsForSource(src)
		if rerr == nil {
			idxStart := time.Now()
			if _, uerr := o.idx.UpsertRecords(records); uerr != nil {
				logger.Warn("index upsert failed", slog.Any("error", uerr))
			}
			metrics.RecordIndexOperation("upsert", time.Since(idxStart))
		}
	}

	return &entity.SourceOutcome{
		SourceID:    src.ID,
		ItemsFound:  len(items),
		ItemsStored: stored,
		Duplicates:  duplicates,
	}, nil
}

// persist writes a source's fetched items through the storage layer
// appropriate to its kind, returning how many were newly stored versus
// already archived.
func (o *Orchestrator) persist(src entity.Source, items []entity.Item) (stored, duplicates int, err error) {
	switch src.Kind {
	case entity.KindBlog:
		blogItems := make([]entity.BlogItem, 0, len(items))
		for _, it := range items {
			if b, ok := it.(entity.BlogItem); ok {
				blogItems = append(blogItems, b)
			}
		}
		existing, err := o.store.ExistingURLs(src.ID)
		if err != nil {
			return 0, 0, err
		}
		records, err := o.store.SaveBlogItems(src, blogItems)
		if err != nil {
			return 0, 0, err
		}
		dup := 0
		for _, b := range blogItems {
			if existing[b.URL] {
				dup++
			}
		}
		return len(records), dup, nil

	case entity.KindAggregation:
		aggItems := make([]entity.AggregationItem, 0, len(items))
		for _, it := range items {
			if a, ok := it.(entity.AggregationItem); ok {
				aggItems = append(aggItems, a)
			}
		}
		if _, err := o.store.SaveSnapshot(src, aggItems); err != nil {
			return 0, 0, err
		}
		return len(aggItems), 0, nil

	default:
		return 0, 0, &entity.ValueError{Message: "unsupported source kind " + string(src.Kind)}
	}
}

func (o *Orchestrator) fail(sourceID string, cause error) *entity.SourceFailure {
	return &entity.SourceFailure{SourceID: sourceID, OccurredAt: time.Now(), Error: cause.Error()}
}

// appendFailureLog mirrors a failure into runs/run-<run_id>-failures.jsonl,
// one line per failure, as the run progresses: a crash mid-run still
// leaves a readable partial trail even before the run report is written.
func (o *Orchestrator) appendFailureLog(runID string, failure entity.SourceFailure) {
	path := filepath.Join(o.store.RunsDir(), "run-"+runID+"-failures.jsonl")
	if err := os.MkdirAll(o.store.RunsDir(), 0o755); err != nil {
		return
	}
	line, err := json.Marshal(failure)
	if err != nil {
		return
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	f.Write(line)
	f.Write([]byte("\n"))
	f.Sync()
}

// startHeartbeat touches runs/run-<run_id>.heartbeat every few seconds for
// as long as the run is in flight, and returns a func that stops it. A
// heartbeat that goes stale without a matching run-<run_id>.json tells a
// later run (or the CLI, via IsRunStale) that the process died mid-run
// rather than that it's merely slow.
func (o *Orchestrator) startHeartbeat(runID string) func() {
	path := o.heartbeatPath(runID)
	touch := func() {
		_ = os.MkdirAll(o.store.RunsDir(), 0o755)
		_ = os.WriteFile(path, []byte(time.Now().Format(time.RFC3339)), 0o644)
	}
	touch()

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				touch()
			case <-done:
				return
			}
		}
	}()
	return func() { close(done) }
}

func (o *Orchestrator) heartbeatPath(runID string) string {
	return filepath.Join(o.store.RunsDir(), fmt.Sprintf("run-%s.heartbeat", runID))
}

// IsRunStale reports whether runID's heartbeat exists, is older than
// StaleRunThreshold, and no run report was ever written for it — i.e. the
// process that owned it died mid-run. It never errors on a missing
// heartbeat; that just means the run either never started or already
// finished cleanly.
func IsRunStale(store *storage.Storage, runID string) (bool, error) {
	hbPath := filepath.Join(store.RunsDir(), fmt.Sprintf("run-%s.heartbeat", runID))
	info, err := os.Stat(hbPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	reportPath := filepath.Join(store.RunsDir(), fmt.Sprintf("run-%s.json", runID))
	if _, err := os.Stat(reportPath); err == nil {
		return false, nil
	}

	return time.Since(info.ModTime()) > StaleRunThreshold, nil
}

