// Package search implements the federated search core: query
// categorization, source routing, the paced external fetch loop,
// cross-source deduplication, and quality-based ranking.
package search

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/article-search-service/internal/domain"
	"github.com/helixir/article-search-service/internal/observability"
	"github.com/helixir/article-search-service/internal/sources"
)

const (
	// DefaultMaxAttempts bounds the external fetch loop.
	DefaultMaxAttempts = 2

	// DefaultLimit is the target count when the request leaves it unset.
	DefaultLimit = 10

	// shortfallLimit is how many consecutive short returns mark a
	// source as exhausted for the rest of the session.
	shortfallLimit = 2
)

// Store is the persistence collaborator the orchestrator talks to.
// The store is the sole keeper of durable identity; the orchestrator
// never assigns row IDs itself.
type Store interface {
	// FindByText returns stored articles matching the free-text term,
	// title matches first, then abstract, then journal and author.
	FindByText(ctx context.Context, term string, limit int, requireAbstract bool) ([]*domain.Article, error)

	// BulkUpsert persists the batch, reusing existing rows on natural
	// key collisions. The whole batch succeeds or fails together.
	BulkUpsert(ctx context.Context, articles []*domain.Article) ([]*domain.Article, error)
}

// Request describes one search.
type Request struct {
	Query            string
	Limit            int
	RequireAbstract  bool
	SearchLocalStore bool
}

// Metadata reports how a result set was assembled.
type Metadata struct {
	RequestedCount int  `json:"requestedCount"`
	DeliveredCount int  `json:"deliveredCount"`
	LocalCount     int  `json:"localCount"`
	ExternalCount  int  `json:"externalCount"`
	FilteredCount  int  `json:"filteredCount"`
	AttemptsUsed   int  `json:"attemptsUsed"`
	SearchComplete bool `json:"searchComplete"`

	// SourceErrors names the sources that failed at least once during
	// the fetch loop.
	SourceErrors []string `json:"sourceErrors,omitempty"`
}

// Result is the outcome of one search.
type Result struct {
	Articles []*domain.Article
	Metadata Metadata
}

// Config holds the orchestrator's tunables.
type Config struct {
	// MaxAttempts is the hard bound on external fetch passes.
	// Defaults to DefaultMaxAttempts if zero.
	MaxAttempts int
}

// Orchestrator drives the end-to-end search flow: local lookup, the
// ranked external fetch loop, deduplication, scoring, and the final
// store commit. It holds no cross-request state; every Search call
// gets its own dedup session.
type Orchestrator struct {
	registry    *sources.Registry
	store       Store
	categorizer *Categorizer
	router      *Router
	scorer      *Scorer
	metrics     *observability.Metrics
	logger      zerolog.Logger
	maxAttempts int
}

// NewOrchestrator creates an orchestrator over the configured source
// registry and store. Metrics may be nil.
func NewOrchestrator(registry *sources.Registry, store Store, metrics *observability.Metrics, logger zerolog.Logger, cfg Config) *Orchestrator {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	return &Orchestrator{
		registry:    registry,
		store:       store,
		categorizer: NewCategorizer(),
		router:      NewRouter(),
		scorer:      NewScorer(),
		metrics:     metrics,
		logger:      logger,
		maxAttempts: maxAttempts,
	}
}

// Search runs one federated search. Every failure mode is absorbed
// into the result rather than returned: a broken source contributes
// zero records, a failed store commit is logged, and cancellation
// yields whatever was collected so far. The returned error is always
// nil and exists for interface symmetry.
func (o *Orchestrator) Search(ctx context.Context, req Request) (*Result, error) {
	if req.Limit <= 0 {
		req.Limit = DefaultLimit
	}

	start := time.Now()
	if o.metrics != nil {
		o.metrics.RecordSearchStarted()
	}

	categories := o.categorizer.Categorize(req.Query)
	o.logger.Debug().
		Str("query", req.Query).
		Int("limit", req.Limit).
		Interface("categories", categories).
		Msg("starting search")

	session := NewSession()
	meta := Metadata{RequestedCount: req.Limit}

	var collected, external []*domain.Article

	if req.SearchLocalStore {
		collected = o.localLookup(ctx, req, session, &meta)
	}

	if len(collected) < req.Limit {
		external = o.fetchExternal(ctx, req, categories, session, &meta)
		collected = append(collected, external...)
	}

	for _, a := range collected {
		a.QualityScore = o.scorer.Score(a)
	}
	sort.SliceStable(collected, func(i, j int) bool {
		return collected[i].QualityScore > collected[j].QualityScore
	})
	if len(collected) > req.Limit {
		collected = collected[:req.Limit]
	}

	meta.DeliveredCount = len(collected)
	meta.SearchComplete = meta.DeliveredCount >= meta.RequestedCount

	o.commit(ctx, external)

	if o.metrics != nil {
		o.metrics.RecordSearchCompleted(time.Since(start).Seconds(), meta.DeliveredCount)
	}
	o.logger.Info().
		Str("query", req.Query).
		Int("delivered", meta.DeliveredCount).
		Int("local", meta.LocalCount).
		Int("external", meta.ExternalCount).
		Int("attempts", meta.AttemptsUsed).
		Bool("complete", meta.SearchComplete).
		Msg("search finished")

	return &Result{Articles: collected, Metadata: meta}, nil
}

// localLookup pulls candidates from the store and seeds the dedup
// session with them so externally fetched repeats are dropped later.
func (o *Orchestrator) localLookup(ctx context.Context, req Request, session *Session, meta *Metadata) []*domain.Article {
	if o.store == nil {
		return nil
	}

	candidates, err := o.store.FindByText(ctx, req.Query, 2*req.Limit, req.RequireAbstract)
	if err != nil {
		o.logger.Warn().Err(err).Msg("local store lookup failed, continuing with external sources")
		return nil
	}

	admitted := make([]*domain.Article, 0, len(candidates))
	for _, a := range candidates {
		if req.RequireAbstract && !a.HasAbstract() {
			meta.FilteredCount++
			continue
		}
		if !session.Admit(a) {
			continue
		}
		admitted = append(admitted, a)
		meta.LocalCount++
	}

	if o.metrics != nil {
		o.metrics.RecordLocalHits(len(admitted))
	}
	return admitted
}

// fetchExternal runs the bounded attempt loop over ranked sources and
// returns the admitted external articles.
func (o *Orchestrator) fetchExternal(ctx context.Context, req Request, categories []domain.QueryCategory, session *Session, meta *Metadata) []*domain.Article {
	// Collect past the target so scoring has something to choose from,
	// then stop; the final truncation happens after ranking.
	stopAt := req.Limit * 3 / 2

	shortfalls := make(map[domain.SourceType]int)
	offsets := make(map[domain.SourceType]int)

	var admitted []*domain.Article
	collected := meta.LocalCount

	for attempt := 1; attempt <= o.maxAttempts && collected < req.Limit; attempt++ {
		meta.AttemptsUsed = attempt

		ranked := o.router.Rank(categories, o.registry.Adapters())
		for _, rs := range ranked {
			// Cancellation is honored between source calls, never
			// mid-flight.
			if ctx.Err() != nil {
				o.logger.Warn().Msg("search cancelled, returning partial results")
				return admitted
			}
			if collected >= stopAt {
				return admitted
			}

			name := rs.Adapter.Descriptor().Name
			if shortfalls[name] >= shortfallLimit {
				continue
			}

			quota := o.router.Quota(req.Limit, len(ranked), rs.Score)
			fetchSize := quota * attempt
			if req.RequireAbstract {
				// Filtering discards a fraction of every batch, so ask
				// for more up front.
				fetchSize *= 2
			}

			records := o.callSource(ctx, rs.Adapter, req.Query, fetchSize, offsets[name], meta)
			// Advance by what actually came back so a failed call is
			// retried from the same position next attempt.
			offsets[name] += len(records)

			if len(records)*3 < fetchSize {
				shortfalls[name]++
				if shortfalls[name] >= shortfallLimit {
					o.logger.Debug().Str("source", string(name)).Msg("source exhausted for this session")
				}
			} else {
				shortfalls[name] = 0
			}

			for _, a := range records {
				if req.RequireAbstract && !a.HasAbstract() {
					meta.FilteredCount++
					continue
				}
				if !session.Admit(a) {
					if o.metrics != nil {
						o.metrics.RecordDuplicateDropped(string(name))
					}
					continue
				}
				admitted = append(admitted, a)
				meta.ExternalCount++
				collected++
			}
		}
	}

	return admitted
}

// callSource queries one adapter, folding any failure into an empty
// result so a broken upstream never aborts the session.
func (o *Orchestrator) callSource(ctx context.Context, adapter sources.Adapter, term string, limit, offset int, meta *Metadata) []*domain.Article {
	name := string(adapter.Descriptor().Name)
	start := time.Now()

	records, err := adapter.Search(ctx, term, limit, offset)
	if err != nil {
		if o.metrics != nil {
			o.metrics.RecordSourceSearchFailed(name, time.Since(start).Seconds())
		}
		if !containsString(meta.SourceErrors, name) {
			meta.SourceErrors = append(meta.SourceErrors, name)
		}
		o.logger.Warn().Err(err).Str("source", name).Msg("source search failed, skipping for this attempt")
		return nil
	}

	if o.metrics != nil {
		o.metrics.RecordSourceSearch(name, len(records), time.Since(start).Seconds())
	}
	o.logger.Debug().
		Str("source", name).
		Int("requested", limit).
		Int("returned", len(records)).
		Msg("source search completed")
	return records
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// commit persists externally fetched articles in one batch. A store
// failure is logged but does not defeat the search.
func (o *Orchestrator) commit(ctx context.Context, external []*domain.Article) {
	if o.store == nil || len(external) == 0 {
		return
	}

	if _, err := o.store.BulkUpsert(ctx, external); err != nil {
		if o.metrics != nil {
			o.metrics.RecordStoreCommitFailed()
		}
		o.logger.Error().Err(err).Int("count", len(external)).Msg("persisting search results failed")
	}
}
