package semanticscholar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/helixir/article-search-service/internal/domain"
	"github.com/helixir/article-search-service/internal/sources"
)

const (
	// DefaultBaseURL is the default base URL for the Semantic Scholar Graph API.
	DefaultBaseURL = "https://api.semanticscholar.org/graph/v1"

	// DefaultCallsPerSecond is conservative for unauthenticated use.
	// With an API key the allowance is higher.
	DefaultCallsPerSecond = 1.0

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// apiKeyHeader is the header name for the Semantic Scholar API key.
	apiKeyHeader = "x-api-key"

	// paperFields is the field selection sent with every request; the
	// API omits everything not asked for.
	paperFields = "paperId,externalIds,title,abstract,year,venue,journal,authors,url"

	// sourceName is the human-readable name for this source.
	sourceName = "Semantic Scholar"
)

// Config contains configuration options for the Semantic Scholar client.
type Config struct {
	// BaseURL is the base URL for the API.
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// APIKey is the optional API key for authenticated requests.
	// Authenticated requests have higher rate limits.
	APIKey string

	// Timeout is the HTTP request timeout.
	// Defaults to DefaultTimeout if zero.
	Timeout time.Duration

	// CallsPerSecond caps outbound calls against the API.
	// Defaults to DefaultCallsPerSecond if zero.
	CallsPerSecond float64

	// Priority is this source's routing preference, 1 being highest.
	Priority int

	// Affinities lists the query categories this source specializes in.
	// Defaults to technology and biology plus the general catch-all.
	Affinities []domain.QueryCategory
}

// applyDefaults applies default values to the config.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.CallsPerSecond == 0 {
		c.CallsPerSecond = DefaultCallsPerSecond
	}
	if c.Priority == 0 {
		c.Priority = 4
	}
	if len(c.Affinities) == 0 {
		c.Affinities = []domain.QueryCategory{
			domain.CategoryTechnology,
			domain.CategoryBiology,
			domain.CategoryGeneral,
		}
	}
}

// Client implements the sources.Adapter interface for Semantic Scholar.
type Client struct {
	httpClient *sources.HTTPClient
	config     Config
}

// Compile-time check that Client implements Adapter.
var _ sources.Adapter = (*Client)(nil)

// New creates a new Semantic Scholar client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpClient := sources.NewHTTPClient(sources.NewPacer(cfg.CallsPerSecond), sources.HTTPClientConfig{
		Timeout:      cfg.Timeout,
		APIKey:       cfg.APIKey,
		APIKeyHeader: apiKeyHeader,
	})

	return &Client{
		httpClient: httpClient,
		config:     cfg,
	}
}

// NewWithHTTPClient creates a client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *sources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{
		httpClient: httpClient,
		config:     cfg,
	}
}

// Descriptor returns the routing characteristics of this source.
func (c *Client) Descriptor() domain.SourceDescriptor {
	return domain.SourceDescriptor{
		Name:           domain.SourceTypeSemanticScholar,
		CallsPerSecond: c.config.CallsPerSecond,
		Priority:       c.config.Priority,
		Affinities:     c.config.Affinities,
	}
}

// Search queries Semantic Scholar for papers matching the term.
func (c *Client) Search(ctx context.Context, term string, limit, offset int) ([]*domain.Article, error) {
	searchURL, err := c.buildSearchURL(term, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if err := c.handleErrorResponse(resp); err != nil {
		return nil, err
	}

	var searchResp SearchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	articles := make([]*domain.Article, 0, len(searchResp.Data))
	for _, result := range searchResp.Data {
		if a := c.toArticle(result); a != nil {
			articles = append(articles, a)
		}
	}

	return articles, nil
}

// buildSearchURL constructs the search API URL with query parameters.
func (c *Client) buildSearchURL(term string, limit, offset int) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	searchURL := baseURL.JoinPath("paper", "search")

	q := searchURL.Query()
	q.Set("query", term)
	q.Set("fields", paperFields)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}

	searchURL.RawQuery = q.Encode()
	return searchURL.String(), nil
}

// handleErrorResponse checks for API errors and returns appropriate error types.
func (c *Client) handleErrorResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.NewExternalAPIError(sourceName, resp.StatusCode, "failed to read error response", err)
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		message := errResp.Error
		if message == "" {
			message = errResp.Message
		}
		if message == "" {
			message = string(body)
		}
		return domain.NewExternalAPIError(sourceName, resp.StatusCode, message, nil)
	}

	return domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
}

// toArticle converts a single API paper result to a domain article.
// Results without a title are dropped.
func (c *Client) toArticle(result PaperResult) *domain.Article {
	title := sources.NormalizeWhitespace(result.Title)
	if title == "" {
		return nil
	}

	journal := result.Venue
	if result.Journal != nil && result.Journal.Name != "" {
		journal = result.Journal.Name
	}

	var year string
	if result.Year > 0 {
		year = strconv.Itoa(result.Year)
	}

	var doi string
	if result.ExternalIDs != nil {
		doi = result.ExternalIDs.DOI
	}

	pageURL := result.URL
	if pageURL == "" && result.PaperID != "" {
		pageURL = "https://www.semanticscholar.org/paper/" + result.PaperID
	}

	authors := make([]string, 0, len(result.Authors))
	for _, a := range result.Authors {
		if a.Name != "" {
			authors = append(authors, a.Name)
		}
	}

	return &domain.Article{
		ExternalID:      result.PaperID,
		DOI:             doi,
		Title:           title,
		Abstract:        sources.CleanAbstract(result.Abstract),
		Authors:         authors,
		Journal:         journal,
		PublicationYear: year,
		URL:             pageURL,
		Source:          domain.SourceTypeSemanticScholar,
	}
}
