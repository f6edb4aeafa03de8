package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// tracer is the global tracer instance for the content harvester.
var tracer = otel.Tracer("content-harvest")

// GetTracer returns the global tracer for creating spans.
// This tracer can be used throughout the application to create new spans.
//
// Example usage:
//
//	ctx, span := tracing.GetTracer().Start(ctx, "operation-name")
//	defer span.End()
func GetTracer() trace.Tracer {
	return tracer
}

// StartSourceSpan starts a span for one source's step (fetch, extract,
// store) within an ingest run, tagging it with the source and run id so a
// slow or failing source is identifiable in a trace without instrumenting
// every adapter by hand.
func StartSourceSpan(ctx context.Context, step, sourceID, runID string) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "ingest."+step, trace.WithAttributes(
		attribute.String("source_id", sourceID),
		attribute.String("run_id", runID),
	))
	return ctx, span
}
