package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/article-search-service/internal/domain"
	"github.com/helixir/article-search-service/internal/sources"
)

const (
	// DefaultBaseURL is the default arXiv API base URL.
	DefaultBaseURL = "https://export.arxiv.org/api"

	// DefaultCallsPerSecond matches the arXiv API etiquette.
	DefaultCallsPerSecond = 3.0

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// sourceName is the human-readable name for this source.
	sourceName = "arXiv"
)

// arxivIDRegex extracts the arXiv ID from the full entry URL.
// Matches "http://arxiv.org/abs/2301.12345v1" and legacy IDs like
// "http://arxiv.org/abs/hep-th/9901001v1".
var arxivIDRegex = regexp.MustCompile(`arxiv\.org/abs/(.+?)(?:v\d+)?$`)

// Config holds configuration for the arXiv client.
type Config struct {
	// BaseURL is the arXiv API base URL.
	BaseURL string

	// Timeout is the request timeout.
	Timeout time.Duration

	// CallsPerSecond caps outbound calls against the API.
	CallsPerSecond float64

	// Priority is this source's routing preference, 1 being highest.
	Priority int

	// Affinities lists the query categories this source specializes in.
	// Defaults to technology.
	Affinities []domain.QueryCategory
}

// applyDefaults sets default values for unset configuration fields.
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
		c.Priority = 5
	}
	if len(c.Affinities) == 0 {
		c.Affinities = []domain.QueryCategory{domain.CategoryTechnology}
	}
}

// Client implements the sources.Adapter interface for arXiv.
type Client struct {
	config     Config
	httpClient *sources.HTTPClient
}

// Ensure Client implements the Adapter interface.
var _ sources.Adapter = (*Client)(nil)

// New creates a new arXiv client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpClient := sources.NewHTTPClient(sources.NewPacer(cfg.CallsPerSecond), sources.HTTPClientConfig{
		Timeout:   cfg.Timeout,
		UserAgent: "Helixir-ArticleSearch/1.0",
	})

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// NewWithHTTPClient creates a new arXiv client with a custom HTTP client.
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
		Name:           domain.SourceTypeArXiv,
		CallsPerSecond: c.config.CallsPerSecond,
		Priority:       c.config.Priority,
		Affinities:     c.config.Affinities,
	}
}

// Search queries arXiv for preprints matching the term, sorted by
// relevance.
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

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	var feed Feed
	if err := xml.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	articles := make([]*domain.Article, 0, len(feed.Entries))
	for i := range feed.Entries {
		if a := c.entryToArticle(&feed.Entries[i]); a != nil {
			articles = append(articles, a)
		}
	}

	return articles, nil
}

// buildSearchURL constructs the arXiv search API URL.
func (c *Client) buildSearchURL(term string, limit, offset int) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	baseURL.Path = strings.TrimRight(baseURL.Path, "/") + "/query"

	query := url.Values{}
	query.Set("search_query", "all:"+term)
	if limit > 0 {
		query.Set("max_results", strconv.Itoa(limit))
	}
	if offset > 0 {
		query.Set("start", strconv.Itoa(offset))
	}
	query.Set("sortBy", "relevance")
	query.Set("sortOrder", "descending")

	baseURL.RawQuery = query.Encode()
	return baseURL.String(), nil
}

// entryToArticle converts an arXiv Atom entry to a domain Article.
// Entries without a resolvable ID or title are dropped.
func (c *Client) entryToArticle(entry *Entry) *domain.Article {
	if entry == nil {
		return nil
	}

	arxivID := extractArXivID(entry.ID)
	if arxivID == "" {
		return nil
	}

	title := sources.NormalizeWhitespace(entry.Title)
	if title == "" {
		return nil
	}

	authors := make([]string, 0, len(entry.Authors))
	for _, a := range entry.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			authors = append(authors, name)
		}
	}

	var year string
	if entry.Published != "" {
		if t, err := time.Parse(time.RFC3339, entry.Published); err == nil {
			year = strconv.Itoa(t.Year())
		}
	}

	journal := sources.NormalizeWhitespace(entry.JournalRef)
	if journal == "" {
		journal = "arXiv"
	}

	return &domain.Article{
		ExternalID:      arxivID,
		DOI:             strings.TrimSpace(entry.DOI),
		Title:           title,
		Abstract:        sources.CleanAbstract(entry.Summary),
		Authors:         authors,
		Journal:         journal,
		PublicationYear: year,
		URL:             "https://arxiv.org/abs/" + arxivID,
		Source:          domain.SourceTypeArXiv,
	}
}

// extractArXivID extracts the arXiv ID from the full entry URL.
// "http://arxiv.org/abs/2301.12345v1" becomes "2301.12345".
func extractArXivID(entryURL string) string {
	matches := arxivIDRegex.FindStringSubmatch(entryURL)
	if len(matches) < 2 {
		return ""
	}
	return matches[1]
}
