package europepmc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/article-search-service/internal/domain"
	"github.com/helixir/article-search-service/internal/sources"
)

const (
	// DefaultBaseURL is the default base URL for the Europe PMC REST API.
	DefaultBaseURL = "https://www.ebi.ac.uk/europepmc/webservices/rest"

	// DefaultCallsPerSecond keeps well inside the published fair-use limit.
	DefaultCallsPerSecond = 5.0

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// sourceName is the human-readable name for this source.
	sourceName = "Europe PMC"
)

// Config contains configuration options for the Europe PMC client.
type Config struct {
	// BaseURL is the base URL for the API.
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// Timeout is the HTTP request timeout.
	// Defaults to DefaultTimeout if zero.
	Timeout time.Duration

	// CallsPerSecond caps outbound calls against the API.
	// Defaults to DefaultCallsPerSecond if zero.
	CallsPerSecond float64

	// Priority is this source's routing preference, 1 being highest.
	Priority int

	// Affinities lists the query categories this source specializes in.
	// Defaults to medical and biology.
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
		c.Priority = 2
	}
	if len(c.Affinities) == 0 {
		c.Affinities = []domain.QueryCategory{domain.CategoryMedical, domain.CategoryBiology}
	}
}

// Client implements the sources.Adapter interface for Europe PMC.
type Client struct {
	config     Config
	httpClient *sources.HTTPClient
}

// Compile-time check that Client implements Adapter.
var _ sources.Adapter = (*Client)(nil)

// New creates a new Europe PMC client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpClient := sources.NewHTTPClient(sources.NewPacer(cfg.CallsPerSecond), sources.HTTPClientConfig{
		Timeout: cfg.Timeout,
	})

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// NewWithHTTPClient creates a client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *sources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Descriptor returns the routing characteristics of this source.
func (c *Client) Descriptor() domain.SourceDescriptor {
	return domain.SourceDescriptor{
		Name:           domain.SourceTypeEuropePMC,
		CallsPerSecond: c.config.CallsPerSecond,
		Priority:       c.config.Priority,
		Affinities:     c.config.Affinities,
	}
}

// Search queries Europe PMC for records matching the term. A single
// call with resultType=core returns complete records including
// abstracts.
func (c *Client) Search(ctx context.Context, term string, limit, offset int) ([]*domain.Article, error) {
	u, err := url.Parse(c.config.BaseURL + "/search")
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}

	q := u.Query()
	q.Set("query", term)
	q.Set("format", "json")
	q.Set("resultType", "core")
	if limit > 0 {
		q.Set("pageSize", strconv.Itoa(limit))
	}
	if limit > 0 && offset > 0 {
		// The API pages 1-based; offsets that do not align to a page
		// boundary round down to the containing page.
		q.Set("page", strconv.Itoa(offset/limit+1))
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	var searchResp SearchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	articles := make([]*domain.Article, 0, len(searchResp.ResultList.Results))
	for _, result := range searchResp.ResultList.Results {
		if a := c.toArticle(result); a != nil {
			articles = append(articles, a)
		}
	}

	return articles, nil
}

// toArticle converts a core record to a domain article.
// Records without a title are dropped.
func (c *Client) toArticle(result Result) *domain.Article {
	title := sources.NormalizeWhitespace(result.Title)
	if title == "" {
		return nil
	}

	var journal string
	if result.JournalInfo != nil {
		journal = result.JournalInfo.Journal.Title
	}

	externalID := result.PMID
	if externalID == "" {
		externalID = result.ID
	}

	return &domain.Article{
		ExternalID:      externalID,
		DOI:             result.DOI,
		Title:           strings.TrimSuffix(title, "."),
		Abstract:        sources.CleanAbstract(result.AbstractText),
		Authors:         extractAuthors(result),
		Journal:         journal,
		PublicationYear: sources.ExtractYear(result.PubYear),
		URL:             recordURL(result),
		Source:          domain.SourceTypeEuropePMC,
	}
}

// extractAuthors prefers the structured author list and falls back to
// splitting the citation-style author string.
func extractAuthors(result Result) []string {
	if result.AuthorList != nil && len(result.AuthorList.Authors) > 0 {
		authors := make([]string, 0, len(result.AuthorList.Authors))
		for _, a := range result.AuthorList.Authors {
			name := a.FullName
			if name == "" && a.LastName != "" {
				name = strings.TrimSpace(a.LastName + " " + a.Initials)
			}
			if name != "" {
				authors = append(authors, name)
			}
		}
		return authors
	}

	raw := strings.TrimSuffix(strings.TrimSpace(result.AuthorString), ".")
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ", ")
	authors := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			authors = append(authors, p)
		}
	}
	return authors
}

// recordURL builds the Europe PMC landing page for a record.
func recordURL(result Result) string {
	if result.Source == "" || result.ID == "" {
		return ""
	}
	return "https://europepmc.org/article/" + result.Source + "/" + result.ID
}
