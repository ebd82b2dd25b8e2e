package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/helixir/article-search-service/internal/domain"
	"github.com/helixir/article-search-service/internal/llm"
	"github.com/helixir/article-search-service/internal/search"
)

// maxRequestBodySize caps inbound JSON bodies at 1 MB.
const maxRequestBodySize = 1 << 20

// searchRequest is the JSON request body for a federated search.
type searchRequest struct {
	Query            string `json:"query" validate:"required,min=1,max=500"`
	Limit            int    `json:"limit" validate:"omitempty,min=1,max=50"`
	RequireAbstract  bool   `json:"requireAbstract"`
	SearchLocalStore *bool  `json:"searchLocalStore"`
}

// handleSearch handles POST /api/v1/search.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req searchRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	req.Query = strings.TrimSpace(req.Query)
	if err := s.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	// The local store is consulted unless explicitly opted out.
	searchLocalStore := true
	if req.SearchLocalStore != nil {
		searchLocalStore = *req.SearchLocalStore
	}

	result, err := s.searcher.Search(ctx, search.Request{
		Query:            req.Query,
		Limit:            req.Limit,
		RequireAbstract:  req.RequireAbstract,
		SearchLocalStore: searchLocalStore,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResultToResponse(result))
}

// handleGetArticle handles GET /api/v1/articles/{articleID}.
func (s *Server) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	articleID, ok := parseUUID(w, chi.URLParam(r, "articleID"), "article_id")
	if !ok {
		return
	}

	article, err := s.articleRepo.GetByID(r.Context(), articleID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, domainArticleToResponse(article))
}

// handleSummarizeArticle handles POST /api/v1/articles/{articleID}/summarize.
// The enricher degrades to extractive text on its own, so a broken AI
// upstream surfaces as a summary, not an error.
func (s *Server) handleSummarizeArticle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	articleID, ok := parseUUID(w, chi.URLParam(r, "articleID"), "article_id")
	if !ok {
		return
	}

	article, err := s.articleRepo.GetByID(ctx, articleID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	summary, err := s.enricher.Summarize(ctx, article)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summarizeResponse{
		ArticleID: articleID.String(),
		Summary:   summary,
	})
}

// handleCategorizeArticle handles POST /api/v1/articles/{articleID}/categorize.
// Unlike summarize, categorization has no extractive fallback, so a
// disabled AI collaborator surfaces as 503.
func (s *Server) handleCategorizeArticle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	articleID, ok := parseUUID(w, chi.URLParam(r, "articleID"), "article_id")
	if !ok {
		return
	}

	article, err := s.articleRepo.GetByID(ctx, articleID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	enrichment, err := s.enricher.Categorize(ctx, article)
	if err != nil {
		if errors.Is(err, llm.ErrEnrichmentDisabled) {
			writeError(w, http.StatusServiceUnavailable, "ai enrichment is disabled")
			return
		}
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, categorizeResponse{
		ArticleID:      articleID.String(),
		PrimaryArea:    enrichment.PrimaryArea,
		SecondaryAreas: enrichment.SecondaryAreas,
		Keywords:       enrichment.Keywords,
	})
}

// validationMessage renders validator failures as a field-level detail string.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}

	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// writeDomainError maps domain errors to appropriate HTTP status codes
// and writes a JSON error response. Internal error details are not leaked to clients.
func writeDomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, domain.ErrInvalidInput):
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
		} else {
			writeError(w, http.StatusBadRequest, "invalid input")
		}
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "resource already exists")
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate limited")
	case errors.Is(err, domain.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
	case errors.Is(err, domain.ErrCancelled):
		writeError(w, http.StatusConflict, "operation cancelled")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// parseUUID parses a UUID from a string, writing a 400 error response if invalid.
// The parse error details are not included to avoid echoing potentially malicious input.
func parseUUID(w http.ResponseWriter, s, fieldName string) (uuid.UUID, bool) {
	id, err := uuid.Parse(s)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%s must be a valid UUID", fieldName))
		return uuid.Nil, false
	}
	return id, true
}
