// Package logging provides structured, context-aware logging for meetextract.
//
// Loggers wrap zap and pull correlation data (OTel trace/span ids, the
// extraction run id, the HTTP request id) out of the context on every call:
//
//	logger, err := logging.NewLogger(cfg, nil)
//	ctx = logging.WithRunID(ctx, runID)
//	logger.Info(ctx, "extraction complete", zap.Int("decisions", n))
//
// Output goes to stdout through a redacting encoder and, when enabled, to the
// OpenTelemetry log bridge. Info and below are sampled; errors never are.
//
// Library packages take a plain *zap.Logger. Use Underlying to hand one over.
package logging
