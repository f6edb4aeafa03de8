// Package logging provides structured logging utilities with context propagation.
//
// This package wraps the standard library's log/slog package with helper functions
// for common logging patterns used throughout the application.
//
// Key features:
//   - JSON and text output formats
//   - Ingest run id propagation
//   - Context-aware logging
//   - Configurable log levels
//
// Example usage:
//
//	import "content-harvest/internal/observability/logging"
//
//	func main() {
//	    logger := logging.NewLogger()
//	    logger.Info("application started", slog.String("version", "1.0"))
//	}
//
//	func runIngest(ctx context.Context, runID string) {
//	    ctx = logging.WithRunIDValue(ctx, runID)
//	    logger := logging.WithRunID(ctx, slog.Default())
//	    logger.Info("ingest run started")
//	}
package logging
