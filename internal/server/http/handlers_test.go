package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/article-search-service/internal/domain"
	"github.com/helixir/article-search-service/internal/llm"
	"github.com/helixir/article-search-service/internal/search"
)

// stubSearcher implements Searcher with a canned result.
type stubSearcher struct {
	gotReq search.Request
	result *search.Result
	err    error
}

func (s *stubSearcher) Search(_ context.Context, req search.Request) (*search.Result, error) {
	s.gotReq = req
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

// stubArticleRepo implements repository.ArticleRepository for handler tests.
type stubArticleRepo struct {
	article *domain.Article
	err     error
}

func (r *stubArticleRepo) UpsertByNaturalKey(_ context.Context, a *domain.Article) (*domain.Article, error) {
	return a, nil
}

func (r *stubArticleRepo) BulkUpsert(_ context.Context, articles []*domain.Article) ([]*domain.Article, error) {
	return articles, nil
}

func (r *stubArticleRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Article, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.article, nil
}

func (r *stubArticleRepo) FindByText(_ context.Context, _ string, _ int, _ bool) ([]*domain.Article, error) {
	return nil, nil
}

// stubEnricher implements llm.Enricher with fixed outputs.
type stubEnricher struct {
	summary    string
	enrichment *llm.Enrichment
	err        error
}

func (e *stubEnricher) Categorize(_ context.Context, _ *domain.Article) (*llm.Enrichment, error) {
	if e.enrichment == nil {
		return nil, llm.ErrEnrichmentDisabled
	}
	return e.enrichment, nil
}

func (e *stubEnricher) Summarize(_ context.Context, _ *domain.Article) (string, error) {
	return e.summary, e.err
}

func newTestServer(searcher Searcher, repo *stubArticleRepo, enricher llm.Enricher) *Server {
	if enricher == nil {
		enricher = llm.NewNoopEnricher()
	}
	return NewServer(Config{Address: "127.0.0.1:0"}, searcher, repo, enricher, nil, zerolog.Nop())
}

func storedArticle() *domain.Article {
	return &domain.Article{
		ID:              uuid.MustParse("7d9287d5-3b72-4a36-8a15-9b0f62c53b1a"),
		ExternalID:      "34735427",
		DOI:             "10.1056/NEJMoa2034577",
		Title:           "Safety and efficacy of the BNT162b2 vaccine",
		Abstract:        "A multinational placebo-controlled trial of a two-dose vaccine regimen.",
		Authors:         []string{"F. Polack", "S. Thomas"},
		Journal:         "New England Journal of Medicine",
		PublicationYear: "2020",
		URL:             "https://doi.org/10.1056/NEJMoa2034577",
		Source:          domain.SourceTypePubMed,
		QualityScore:    60,
	}
}

func TestHandleSearch(t *testing.T) {
	searcher := &stubSearcher{result: &search.Result{
		Articles: []*domain.Article{storedArticle()},
		Metadata: search.Metadata{
			RequestedCount: 10,
			DeliveredCount: 1,
			ExternalCount:  1,
			AttemptsUsed:   1,
		},
	}}
	server := newTestServer(searcher, &stubArticleRepo{}, nil)

	body := `{"query": "vaccine efficacy", "limit": 10}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader(body))
	rec := httptest.NewRecorder()
	server.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
	require.Len(t, resp.Records, 1)
	assert.Equal(t, "Safety and efficacy of the BNT162b2 vaccine", resp.Records[0].Title)
	assert.Equal(t, 60, resp.Records[0].QualityScore)
	assert.Equal(t, 1, resp.Metadata.DeliveredCount)

	assert.Equal(t, "vaccine efficacy", searcher.gotReq.Query)
	assert.Equal(t, 10, searcher.gotReq.Limit)
	assert.True(t, searcher.gotReq.SearchLocalStore, "local store lookup defaults on")
}

func TestHandleSearch_LocalStoreOptOut(t *testing.T) {
	searcher := &stubSearcher{result: &search.Result{}}
	server := newTestServer(searcher, &stubArticleRepo{}, nil)

	body := `{"query": "vaccine", "searchLocalStore": false}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader(body))
	rec := httptest.NewRecorder()
	server.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, searcher.gotReq.SearchLocalStore)
}

func TestHandleSearch_Validation(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		errContains string
	}{
		{
			name:        "missing query",
			body:        `{"limit": 10}`,
			errContains: "query is required",
		},
		{
			name:        "blank query",
			body:        `{"query": "   "}`,
			errContains: "query is required",
		},
		{
			name:        "query too long",
			body:        `{"query": "` + strings.Repeat("q", 501) + `"}`,
			errContains: "query must be at most 500",
		},
		{
			name:        "limit too large",
			body:        `{"query": "cancer", "limit": 51}`,
			errContains: "limit must be at most 50",
		},
		{
			name:        "invalid JSON",
			body:        `{"query": `,
			errContains: "invalid JSON",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newTestServer(&stubSearcher{result: &search.Result{}}, &stubArticleRepo{}, nil)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			server.router.ServeHTTP(rec, req)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.errContains)
		})
	}
}

func TestHandleSearch_SearcherFailure(t *testing.T) {
	searcher := &stubSearcher{err: domain.ErrServiceUnavailable}
	server := newTestServer(searcher, &stubArticleRepo{}, nil)

	body := `{"query": "cancer"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewReader([]byte(body)))
	rec := httptest.NewRecorder()
	server.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleGetArticle(t *testing.T) {
	article := storedArticle()
	server := newTestServer(&stubSearcher{}, &stubArticleRepo{article: article}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/articles/"+article.ID.String(), nil)
	rec := httptest.NewRecorder()
	server.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp articleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, article.ID.String(), resp.ID)
	assert.Equal(t, article.Title, resp.Title)
	assert.Equal(t, "pubmed", resp.Source)
}

func TestHandleGetArticle_InvalidID(t *testing.T) {
	server := newTestServer(&stubSearcher{}, &stubArticleRepo{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/articles/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	server.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "article_id must be a valid UUID")
}

func TestHandleGetArticle_NotFound(t *testing.T) {
	repo := &stubArticleRepo{err: domain.NewNotFoundError("article", uuid.NewString())}
	server := newTestServer(&stubSearcher{}, repo, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/articles/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	server.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "resource not found")
}

func TestHandleSummarizeArticle(t *testing.T) {
	article := storedArticle()
	enricher := &stubEnricher{summary: "A concise summary of the trial."}
	server := newTestServer(&stubSearcher{}, &stubArticleRepo{article: article}, enricher)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/articles/"+article.ID.String()+"/summarize", nil)
	rec := httptest.NewRecorder()
	server.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp summarizeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, article.ID.String(), resp.ArticleID)
	assert.Equal(t, "A concise summary of the trial.", resp.Summary)
}

func TestHandleSummarizeArticle_NoopFallback(t *testing.T) {
	article := storedArticle()
	server := newTestServer(&stubSearcher{}, &stubArticleRepo{article: article}, llm.NewNoopEnricher())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/articles/"+article.ID.String()+"/summarize", nil)
	rec := httptest.NewRecorder()
	server.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp summarizeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, article.Abstract, resp.Summary, "disabled AI degrades to the abstract")
}

func TestHandleCategorizeArticle(t *testing.T) {
	article := storedArticle()
	enricher := &stubEnricher{enrichment: &llm.Enrichment{
		PrimaryArea:    "oncology",
		SecondaryAreas: []string{"immunology"},
		Keywords:       []string{"vaccine", "efficacy"},
	}}
	server := newTestServer(&stubSearcher{}, &stubArticleRepo{article: article}, enricher)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/articles/"+article.ID.String()+"/categorize", nil)
	rec := httptest.NewRecorder()
	server.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp categorizeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, article.ID.String(), resp.ArticleID)
	assert.Equal(t, "oncology", resp.PrimaryArea)
	assert.Equal(t, []string{"immunology"}, resp.SecondaryAreas)
}

func TestHandleCategorizeArticle_Disabled(t *testing.T) {
	article := storedArticle()
	server := newTestServer(&stubSearcher{}, &stubArticleRepo{article: article}, llm.NewNoopEnricher())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/articles/"+article.ID.String()+"/categorize", nil)
	rec := httptest.NewRecorder()
	server.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "ai enrichment is disabled")
}

func TestHealthz_NoDatabase(t *testing.T) {
	server := newTestServer(&stubSearcher{}, &stubArticleRepo{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	server.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
