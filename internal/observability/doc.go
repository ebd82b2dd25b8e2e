// Package observability provides logging and metrics support for the
// article search service.
//
// # Overview
//
// The observability package provides:
//
//   - Structured logging with zerolog
//   - Prometheus metrics for searches, sources, and the local store
//   - Context helpers for propagating request data
//
// # Logging
//
// Create a logger from configuration:
//
//	cfg := observability.LoggingConfig{
//	    Level:     "info",
//	    Format:    "json",
//	    Output:    "stdout",
//	    AddSource: true,
//	}
//
//	logger := observability.NewLogger(cfg)
//	logger.Info().Str("request_id", reqID).Msg("search started")
//
// # Metrics
//
// Initialize metrics once at process start:
//
//	metrics := observability.NewMetrics("artsearch")
//
// Record metrics:
//
//	metrics.RecordSearchStarted()
//	metrics.RecordSourceSearch("pubmed", 25, 0.7)
//
// # Standard Fields
//
// Common fields used across the service:
//
//   - request_id: Search request identifier
//   - query: User's search query
//   - source: Upstream source (pubmed, europepmc, etc.)
//   - article_id: Article identifier
//
// # Thread Safety
//
// All components are safe for concurrent use from multiple goroutines.
package observability
