// Package tracing provides OpenTelemetry tracing for the harvester. The
// orchestrator opens one "ingest.fetch" span per source, covering that
// source's fetch, store and index steps.
//
// Example usage:
//
//	ctx, span := tracing.StartSourceSpan(ctx, "fetch", src.ID, runID)
//	defer span.End()
package tracing
