package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"content-harvest/internal/ingest"
)

func runIngest(env *env, args []string) error {
	defer env.close()

	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	sourceID := fs.String("source", "", "restrict the run to this source id")
	updateIndex := fs.Bool("update-index", true, "upsert stored records into the sqlite index as they're stored")
	if err := fs.Parse(args); err != nil {
		return err
	}

	opts := ingest.DefaultOptions()
	opts.UpdateIndex = *updateIndex
	if *sourceID != "" {
		opts.SourceIDs = []string{*sourceID}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runID := uuid.NewString()
	orchestrator := ingest.New(env.registry, env.store, env.idx, env.logger)

	report, err := orchestrator.Run(ctx, runID, opts)
	if err != nil {
		return fmt.Errorf("ingest run %s: %w", runID, err)
	}

	fmt.Printf("run %s: %d source(s) succeeded, %d failed\n", report.RunID, len(report.Successes), len(report.Failures))
	for _, f := range report.Failures {
		fmt.Printf("  failed: %s: %s\n", f.SourceID, f.Error)
	}
	return nil
}
