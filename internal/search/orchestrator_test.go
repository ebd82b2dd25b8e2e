package search

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/article-search-service/internal/domain"
	"github.com/helixir/article-search-service/internal/sources"
)

// stubStore implements Store with canned responses.
type stubStore struct {
	findResults []*domain.Article
	findErr     error
	upserted    []*domain.Article
	upsertErr   error
	findCalls   int
}

func (s *stubStore) FindByText(_ context.Context, _ string, _ int, _ bool) ([]*domain.Article, error) {
	s.findCalls++
	return s.findResults, s.findErr
}

func (s *stubStore) BulkUpsert(_ context.Context, articles []*domain.Article) ([]*domain.Article, error) {
	if s.upsertErr != nil {
		return nil, s.upsertErr
	}
	s.upserted = append(s.upserted, articles...)
	return articles, nil
}

func newOrchestrator(store Store, adapters ...sources.Adapter) *Orchestrator {
	registry := sources.NewRegistry()
	for _, a := range adapters {
		registry.Register(a)
	}
	return NewOrchestrator(registry, store, nil, zerolog.Nop(), Config{})
}

func makeArticles(prefix string, source domain.SourceType, n int) []*domain.Article {
	articles := make([]*domain.Article, 0, n)
	for i := 0; i < n; i++ {
		articles = append(articles, &domain.Article{
			Title:    fmt.Sprintf("%s article %d", prefix, i),
			Abstract: fmt.Sprintf("A sufficiently long abstract describing %s result number %d in detail.", prefix, i),
			Source:   source,
		})
	}
	return articles
}

func TestOrchestrator_LocalStoreSatisfiesRequest(t *testing.T) {
	store := &stubStore{findResults: makeArticles("local", domain.SourceTypeLocal, 12)}
	adapter := newStub(domain.SourceTypePubMed, 1, domain.CategoryMedical)
	adapter.results = makeArticles("pubmed", domain.SourceTypePubMed, 20)

	o := newOrchestrator(store, adapter)
	result, err := o.Search(context.Background(), Request{
		Query:            "cancer treatment",
		Limit:            10,
		SearchLocalStore: true,
	})
	require.NoError(t, err)

	assert.Len(t, result.Articles, 10, "truncated to the requested limit")
	assert.Empty(t, adapter.calls, "external fetch skipped when the store satisfies the target")
	assert.Equal(t, 12, result.Metadata.LocalCount)
	assert.Equal(t, 0, result.Metadata.ExternalCount)
	assert.Equal(t, 0, result.Metadata.AttemptsUsed)
	assert.True(t, result.Metadata.SearchComplete)
	assert.Empty(t, store.upserted, "nothing external to persist")
}

func TestOrchestrator_ExternalFetchFillsShortfall(t *testing.T) {
	store := &stubStore{findResults: makeArticles("local", domain.SourceTypeLocal, 2)}
	adapter := newStub(domain.SourceTypePubMed, 1, domain.CategoryMedical)
	adapter.results = makeArticles("pubmed", domain.SourceTypePubMed, 30)

	o := newOrchestrator(store, adapter)
	result, err := o.Search(context.Background(), Request{
		Query:            "cancer treatment",
		Limit:            10,
		SearchLocalStore: true,
	})
	require.NoError(t, err)

	assert.Len(t, result.Articles, 10)
	assert.Equal(t, 2, result.Metadata.LocalCount)
	assert.GreaterOrEqual(t, result.Metadata.ExternalCount, 8)
	assert.True(t, result.Metadata.SearchComplete)
	assert.NotEmpty(t, store.upserted, "external articles persisted at commit")
}

func TestOrchestrator_DeduplicatesAcrossSources(t *testing.T) {
	shared := domain.Article{
		Title:    "The one shared study",
		DOI:      "10.1/x",
		Abstract: "A long enough abstract about the single shared study both sources index.",
	}

	a := newStub(domain.SourceTypePubMed, 1, domain.CategoryMedical)
	copyA := shared
	copyA.Source = domain.SourceTypePubMed
	a.results = []*domain.Article{&copyA}

	b := newStub(domain.SourceTypeEuropePMC, 2, domain.CategoryMedical)
	copyB := shared
	copyB.Source = domain.SourceTypeEuropePMC
	b.results = []*domain.Article{&copyB}

	o := newOrchestrator(&stubStore{}, a, b)
	result, err := o.Search(context.Background(), Request{Query: "cancer", Limit: 10})
	require.NoError(t, err)

	require.Len(t, result.Articles, 1, "identical DOI from two sources survives once")
	assert.Equal(t, domain.SourceTypePubMed, result.Articles[0].Source,
		"higher-ranked source wins the race for the shared record")

	seen := make(map[string]bool)
	for _, article := range result.Articles {
		key := domain.IdentityKey(article)
		assert.False(t, seen[key], "duplicate identity key in result set")
		seen[key] = true
	}
}

func TestOrchestrator_RequireAbstractFilters(t *testing.T) {
	adapter := newStub(domain.SourceTypePubMed, 1, domain.CategoryMedical)
	adapter.results = []*domain.Article{
		{Title: "With abstract", Abstract: "An abstract of a reasonable length that survives the filter easily."},
		{Title: "Without abstract"},
		{Title: "Also without"},
	}

	o := newOrchestrator(&stubStore{}, adapter)
	result, err := o.Search(context.Background(), Request{
		Query:           "cancer",
		Limit:           10,
		RequireAbstract: true,
	})
	require.NoError(t, err)

	require.Len(t, result.Articles, 1)
	assert.Equal(t, "With abstract", result.Articles[0].Title)
	assert.Positive(t, result.Metadata.FilteredCount)
	assert.False(t, result.Metadata.SearchComplete)
}

func TestOrchestrator_SourceFailureDegradesToEmpty(t *testing.T) {
	broken := newStub(domain.SourceTypePubMed, 1, domain.CategoryMedical)
	broken.err = errors.New("upstream down")

	healthy := newStub(domain.SourceTypeEuropePMC, 2, domain.CategoryMedical)
	healthy.results = makeArticles("epmc", domain.SourceTypeEuropePMC, 20)

	o := newOrchestrator(&stubStore{}, broken, healthy)
	result, err := o.Search(context.Background(), Request{Query: "cancer", Limit: 5})
	require.NoError(t, err, "a failing source never fails the search")

	assert.Len(t, result.Articles, 5)
	assert.NotEmpty(t, broken.calls, "failing source was attempted")
	assert.True(t, result.Metadata.SearchComplete)
	assert.Equal(t, []string{string(domain.SourceTypePubMed)}, result.Metadata.SourceErrors)
}

func TestOrchestrator_FailedCallDoesNotAdvanceOffset(t *testing.T) {
	flaky := newStub(domain.SourceTypePubMed, 1, domain.CategoryMedical)
	flaky.err = errors.New("upstream down")
	flaky.failuresRemaining = 1
	flaky.results = makeArticles("pubmed", domain.SourceTypePubMed, 20)

	o := newOrchestrator(&stubStore{}, flaky)
	result, err := o.Search(context.Background(), Request{Query: "cancer", Limit: 10})
	require.NoError(t, err)

	require.Len(t, flaky.calls, 2, "failed first attempt retried on the second")
	assert.Equal(t, 0, flaky.calls[0].offset)
	assert.Equal(t, 0, flaky.calls[1].offset, "nothing was fetched, so the retry starts over")
	assert.NotEmpty(t, result.Articles)
	assert.Equal(t, 2, result.Metadata.AttemptsUsed)
}

func TestOrchestrator_StoreCommitFailureStillReturnsResults(t *testing.T) {
	store := &stubStore{upsertErr: errors.New("connection refused")}
	adapter := newStub(domain.SourceTypePubMed, 1, domain.CategoryMedical)
	adapter.results = makeArticles("pubmed", domain.SourceTypePubMed, 10)

	o := newOrchestrator(store, adapter)
	result, err := o.Search(context.Background(), Request{Query: "cancer", Limit: 5})
	require.NoError(t, err)

	assert.Len(t, result.Articles, 5, "durability failure does not defeat the search")
}

func TestOrchestrator_LocalLookupFailureFallsThrough(t *testing.T) {
	store := &stubStore{findErr: errors.New("relation does not exist")}
	adapter := newStub(domain.SourceTypePubMed, 1, domain.CategoryMedical)
	adapter.results = makeArticles("pubmed", domain.SourceTypePubMed, 10)

	o := newOrchestrator(store, adapter)
	result, err := o.Search(context.Background(), Request{
		Query:            "cancer",
		Limit:            5,
		SearchLocalStore: true,
	})
	require.NoError(t, err)

	assert.Len(t, result.Articles, 5)
	assert.Equal(t, 0, result.Metadata.LocalCount)
}

func TestOrchestrator_AttemptLoopIsBounded(t *testing.T) {
	empty := newStub(domain.SourceTypePubMed, 1, domain.CategoryMedical)

	o := newOrchestrator(&stubStore{}, empty)
	result, err := o.Search(context.Background(), Request{Query: "cancer", Limit: 10})
	require.NoError(t, err)

	assert.Empty(t, result.Articles)
	assert.Equal(t, DefaultMaxAttempts, result.Metadata.AttemptsUsed)
	assert.LessOrEqual(t, len(empty.calls), DefaultMaxAttempts)
	assert.False(t, result.Metadata.SearchComplete)
}

func TestOrchestrator_OffsetAdvancesBetweenAttempts(t *testing.T) {
	// Returns enough per call to avoid the exhaustion heuristic but
	// never enough to reach the target, forcing a second attempt.
	adapter := newStub(domain.SourceTypePubMed, 1, domain.CategoryMedical)
	adapter.results = makeArticles("pubmed", domain.SourceTypePubMed, 25)

	o := newOrchestrator(&stubStore{}, adapter)
	_, err := o.Search(context.Background(), Request{Query: "cancer", Limit: 40})
	require.NoError(t, err)

	require.Len(t, adapter.calls, 2)
	assert.Equal(t, 0, adapter.calls[0].offset)
	assert.Greater(t, adapter.calls[1].offset, 0,
		"later attempts page past already fetched records")
}

func TestOrchestrator_ResultsOrderedByQualityScore(t *testing.T) {
	adapter := newStub(domain.SourceTypePubMed, 1, domain.CategoryMedical)
	adapter.results = []*domain.Article{
		{Title: "Sparse record"},
		{
			Title:    "Rich record",
			Abstract: makeArticles("filler", domain.SourceTypePubMed, 1)[0].Abstract,
			DOI:      "10.1/rich",
			Authors:  []string{"A"},
			Journal:  "Nature",
		},
	}

	o := newOrchestrator(&stubStore{}, adapter)
	result, err := o.Search(context.Background(), Request{Query: "cancer", Limit: 10})
	require.NoError(t, err)

	require.Len(t, result.Articles, 2)
	assert.Equal(t, "Rich record", result.Articles[0].Title)
	assert.GreaterOrEqual(t, result.Articles[0].QualityScore, result.Articles[1].QualityScore)
}

func TestOrchestrator_CancelledContextReturnsPartial(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	adapter := newStub(domain.SourceTypePubMed, 1, domain.CategoryMedical)
	adapter.results = makeArticles("pubmed", domain.SourceTypePubMed, 20)

	o := newOrchestrator(&stubStore{}, adapter)
	result, err := o.Search(ctx, Request{Query: "cancer", Limit: 10})
	require.NoError(t, err)

	assert.Empty(t, result.Articles, "no source calls issued after cancellation")
	assert.Empty(t, adapter.calls)
}

func TestOrchestrator_DefaultLimitApplied(t *testing.T) {
	adapter := newStub(domain.SourceTypePubMed, 1, domain.CategoryMedical)
	adapter.results = makeArticles("pubmed", domain.SourceTypePubMed, 30)

	o := newOrchestrator(&stubStore{}, adapter)
	result, err := o.Search(context.Background(), Request{Query: "cancer"})
	require.NoError(t, err)

	assert.Equal(t, DefaultLimit, result.Metadata.RequestedCount)
	assert.Len(t, result.Articles, DefaultLimit)
}
