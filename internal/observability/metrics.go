package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the article search service.
// Metrics are organized by subsystem: searches, sources, the local store,
// and AI enrichment. All counters and histograms are registered via
// promauto for automatic registration with the default Prometheus registry.
type Metrics struct {
	// SearchesStarted counts federated searches initiated.
	SearchesStarted prometheus.Counter

	// SearchesCompleted counts federated searches that finished.
	SearchesCompleted prometheus.Counter

	// SearchDuration observes end-to-end search duration in seconds.
	SearchDuration prometheus.Histogram

	// ArticlesDelivered observes the number of articles delivered per search.
	ArticlesDelivered prometheus.Histogram

	// SourceSearches counts upstream source queries, labeled by source.
	SourceSearches *prometheus.CounterVec

	// SourceSearchesFailed counts failed upstream queries, labeled by source.
	SourceSearchesFailed *prometheus.CounterVec

	// SourceSearchDuration observes upstream query duration in seconds, labeled by source.
	SourceSearchDuration *prometheus.HistogramVec

	// ArticlesPerSourceSearch observes articles returned per upstream query, labeled by source.
	ArticlesPerSourceSearch *prometheus.HistogramVec

	// DuplicatesDropped counts articles rejected by session dedup, labeled by source.
	DuplicatesDropped *prometheus.CounterVec

	// LocalStoreHits counts articles served from the local store.
	LocalStoreHits prometheus.Counter

	// StoreCommitsFailed counts failed end-of-search batch persists.
	StoreCommitsFailed prometheus.Counter

	// EnrichmentRequests counts AI enrichment calls, labeled by operation and model.
	EnrichmentRequests *prometheus.CounterVec

	// EnrichmentRequestsFailed counts failed AI enrichment calls, labeled by operation, model, and error type.
	EnrichmentRequestsFailed *prometheus.CounterVec

	// EnrichmentDuration observes AI enrichment call duration in seconds, labeled by operation and model.
	EnrichmentDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// Searches
		SearchesStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_started_total",
			Help:      "Total number of federated searches started",
		}),
		SearchesCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_completed_total",
			Help:      "Total number of federated searches completed",
		}),
		SearchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "End-to-end duration of federated searches in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		ArticlesDelivered: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "articles_delivered",
			Help:      "Number of articles delivered per search",
			Buckets:   []float64{0, 1, 5, 10, 25, 50},
		}),

		// Sources
		SourceSearches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_searches_total",
			Help:      "Total number of upstream source queries",
		}, []string{"source"}),
		SourceSearchesFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_searches_failed_total",
			Help:      "Total number of failed upstream source queries",
		}, []string{"source"}),
		SourceSearchDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_search_duration_seconds",
			Help:      "Duration of upstream source queries in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source"}),
		ArticlesPerSourceSearch: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "articles_per_source_search",
			Help:      "Number of articles returned per upstream source query",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100},
		}, []string{"source"}),
		DuplicatesDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_dropped_total",
			Help:      "Total number of articles dropped by session deduplication",
		}, []string{"source"}),

		// Local store
		LocalStoreHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "local_store_hits_total",
			Help:      "Total number of articles served from the local store",
		}),
		StoreCommitsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_commits_failed_total",
			Help:      "Total number of failed end-of-search batch persists",
		}),

		// AI enrichment
		EnrichmentRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_requests_total",
			Help:      "Total number of AI enrichment requests by operation",
		}, []string{"operation", "model"}),
		EnrichmentRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_requests_failed_total",
			Help:      "Total number of failed AI enrichment requests by operation",
		}, []string{"operation", "model", "error_type"}),
		EnrichmentDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "enrichment_duration_seconds",
			Help:      "Duration of AI enrichment requests in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"operation", "model"}),
	}
}

// RecordSearchStarted records that a federated search has started.
func (m *Metrics) RecordSearchStarted() {
	m.SearchesStarted.Inc()
}

// RecordSearchCompleted records a finished search with its outcome.
func (m *Metrics) RecordSearchCompleted(durationSeconds float64, delivered int) {
	m.SearchesCompleted.Inc()
	m.SearchDuration.Observe(durationSeconds)
	m.ArticlesDelivered.Observe(float64(delivered))
}

// RecordSourceSearch records a completed upstream source query.
func (m *Metrics) RecordSourceSearch(source string, articleCount int, durationSeconds float64) {
	m.SourceSearches.WithLabelValues(source).Inc()
	m.SourceSearchDuration.WithLabelValues(source).Observe(durationSeconds)
	m.ArticlesPerSourceSearch.WithLabelValues(source).Observe(float64(articleCount))
}

// RecordSourceSearchFailed records a failed upstream source query.
func (m *Metrics) RecordSourceSearchFailed(source string, durationSeconds float64) {
	m.SourceSearches.WithLabelValues(source).Inc()
	m.SourceSearchesFailed.WithLabelValues(source).Inc()
	m.SourceSearchDuration.WithLabelValues(source).Observe(durationSeconds)
}

// RecordDuplicateDropped records an article rejected by session dedup.
func (m *Metrics) RecordDuplicateDropped(source string) {
	m.DuplicatesDropped.WithLabelValues(source).Inc()
}

// RecordLocalHits records articles served from the local store.
func (m *Metrics) RecordLocalHits(count int) {
	m.LocalStoreHits.Add(float64(count))
}

// RecordStoreCommitFailed records a failed end-of-search batch persist.
func (m *Metrics) RecordStoreCommitFailed() {
	m.StoreCommitsFailed.Inc()
}

// RecordEnrichment records an AI enrichment request.
func (m *Metrics) RecordEnrichment(operation, model string, durationSeconds float64) {
	m.EnrichmentRequests.WithLabelValues(operation, model).Inc()
	m.EnrichmentDuration.WithLabelValues(operation, model).Observe(durationSeconds)
}

// RecordEnrichmentFailed records a failed AI enrichment request.
func (m *Metrics) RecordEnrichmentFailed(operation, model, errorType string) {
	m.EnrichmentRequestsFailed.WithLabelValues(operation, model, errorType).Inc()
}
