package pubmed

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/article-search-service/internal/domain"
	"github.com/helixir/article-search-service/internal/sources"
)

const (
	// DefaultBaseURL is the base URL for NCBI E-utilities API.
	DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

	// DefaultCallsPerSecond is the rate limit without an API key.
	// With an API key, NCBI allows 10 calls per second.
	DefaultCallsPerSecond = 3.0

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// articleURLPrefix builds the landing page for a PMID.
	articleURLPrefix = "https://pubmed.ncbi.nlm.nih.gov/"

	// sourceName is the human-readable name for this source.
	sourceName = "PubMed"
)

// Config holds the configuration for the PubMed client.
type Config struct {
	// BaseURL is the base URL for the E-utilities API.
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// APIKey is the NCBI API key for higher rate limits.
	// Optional but recommended for production use.
	APIKey string

	// Timeout is the request timeout.
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
		c.Priority = 1
	}
	if len(c.Affinities) == 0 {
		c.Affinities = []domain.QueryCategory{domain.CategoryMedical, domain.CategoryBiology}
	}
}

// Client implements the sources.Adapter interface for PubMed.
type Client struct {
	config     Config
	httpClient *sources.HTTPClient
}

// Compile-time check that Client implements Adapter.
var _ sources.Adapter = (*Client)(nil)

// New creates a new PubMed client with the given configuration. The
// pacer covers both protocol phases, so an esearch immediately followed
// by an efetch still observes the NCBI call spacing.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpCfg := sources.HTTPClientConfig{
		Timeout:   cfg.Timeout,
		UserAgent: "Helixir-ArticleSearch/1.0 (mailto:support@helixir.io)",
	}

	return &Client{
		config:     cfg,
		httpClient: sources.NewHTTPClient(sources.NewPacer(cfg.CallsPerSecond), httpCfg),
	}
}

// NewWithHTTPClient creates a new PubMed client with a custom HTTP
// client. This is useful for testing with mock servers.
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
		Name:           domain.SourceTypePubMed,
		CallsPerSecond: c.config.CallsPerSecond,
		Priority:       c.config.Priority,
		Affinities:     c.config.Affinities,
	}
}

// Search queries PubMed for articles matching the term. It performs a
// two-step search: esearch.fcgi retrieves PMIDs matching the query,
// then efetch.fcgi retrieves full article metadata for those PMIDs.
func (c *Client) Search(ctx context.Context, term string, limit, offset int) ([]*domain.Article, error) {
	searchResult, err := c.esearch(ctx, term, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("esearch failed: %w", err)
	}

	// Phrases the index does not know yield an empty result, not an error.
	if searchResult.ErrorList != nil && len(searchResult.ErrorList.PhraseNotFound) > 0 {
		return []*domain.Article{}, nil
	}

	if len(searchResult.IDList.IDs) == 0 {
		return []*domain.Article{}, nil
	}

	articleSet, err := c.efetch(ctx, searchResult.IDList.IDs)
	if err != nil {
		return nil, fmt.Errorf("efetch failed: %w", err)
	}

	articles := make([]*domain.Article, 0, len(articleSet.Articles))
	for _, rec := range articleSet.Articles {
		if a := c.toArticle(rec); a != nil {
			articles = append(articles, a)
		}
	}

	return articles, nil
}

// esearch performs a search query and returns matching PMIDs.
func (c *Client) esearch(ctx context.Context, term string, limit, offset int) (*ESearchResult, error) {
	u, err := url.Parse(c.config.BaseURL + "/esearch.fcgi")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	q := u.Query()
	q.Set("db", "pubmed")
	q.Set("term", term)
	q.Set("retmode", "xml")
	q.Set("usehistory", "n")
	if limit > 0 {
		q.Set("retmax", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("retstart", strconv.Itoa(offset))
	}
	if c.config.APIKey != "" {
		q.Set("api_key", c.config.APIKey)
	}
	u.RawQuery = q.Encode()

	body, err := c.get(ctx, u.String())
	if err != nil {
		return nil, err
	}

	var result ESearchResult
	if err := xml.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse XML response: %w", err)
	}

	return &result, nil
}

// efetch retrieves full article metadata for the given PMIDs.
func (c *Client) efetch(ctx context.Context, pmids []string) (*PubmedArticleSet, error) {
	if len(pmids) == 0 {
		return &PubmedArticleSet{}, nil
	}

	u, err := url.Parse(c.config.BaseURL + "/efetch.fcgi")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	q := u.Query()
	q.Set("db", "pubmed")
	q.Set("id", strings.Join(pmids, ","))
	q.Set("retmode", "xml")
	q.Set("rettype", "abstract")
	if c.config.APIKey != "" {
		q.Set("api_key", c.config.APIKey)
	}
	u.RawQuery = q.Encode()

	body, err := c.get(ctx, u.String())
	if err != nil {
		return nil, err
	}

	var result PubmedArticleSet
	if err := xml.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse XML response: %w", err)
	}

	return &result, nil
}

// get executes a paced GET and returns the response body.
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := sources.ReadBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	return body, nil
}

// toArticle converts a PubmedArticle to a domain.Article.
// Records without a title are dropped.
func (c *Client) toArticle(rec PubmedArticle) *domain.Article {
	citation := rec.MedlineCitation

	title := sources.NormalizeWhitespace(citation.Article.ArticleTitle)
	if title == "" {
		return nil
	}

	journal := citation.Article.Journal.Title
	if journal == "" {
		journal = citation.Article.Journal.ISOAbbreviation
	}

	return &domain.Article{
		ExternalID:      citation.PMID.Value,
		DOI:             extractDOI(citation.Article, rec.PubmedData),
		Title:           title,
		Abstract:        sources.CleanAbstract(extractAbstract(citation.Article.Abstract)),
		Authors:         extractAuthors(citation.Article.AuthorList),
		Journal:         journal,
		PublicationYear: extractPublicationYear(citation.Article),
		URL:             articleURLPrefix + citation.PMID.Value + "/",
		Source:          domain.SourceTypePubMed,
	}
}

// extractDOI extracts the DOI from article metadata.
// It checks ELocationID first (more reliable), then ArticleIdList.
func extractDOI(article MedlineRecord, pubmedData PubmedData) string {
	for _, eloc := range article.ELocationID {
		if eloc.EIdType == "doi" && (eloc.Valid == "" || eloc.Valid == "Y") {
			return eloc.Value
		}
	}

	for _, aid := range pubmedData.ArticleIdList.ArticleIds {
		if aid.IdType == "doi" {
			return aid.Value
		}
	}

	return ""
}

// extractPublicationYear pulls a four-digit year out of the article's
// dates. ArticleDate is preferred, then the journal issue PubDate,
// then the MedlineDate free-form string.
func extractPublicationYear(article MedlineRecord) string {
	for _, ad := range article.ArticleDate {
		if y := sources.ExtractYear(ad.Year); y != "" {
			return y
		}
	}

	pubDate := article.Journal.JournalIssue.PubDate
	if y := sources.ExtractYear(pubDate.Year); y != "" {
		return y
	}
	if pubDate.MedlineDate != "" {
		return sources.ExtractYear(pubDate.MedlineDate)
	}

	return ""
}

// extractAbstract concatenates multiple abstract sections into a single string.
func extractAbstract(abstract *Abstract) string {
	if abstract == nil || len(abstract.AbstractTexts) == 0 {
		return ""
	}

	if len(abstract.AbstractTexts) == 1 && abstract.AbstractTexts[0].Label == "" {
		return strings.TrimSpace(abstract.AbstractTexts[0].Value)
	}

	var parts []string
	for _, at := range abstract.AbstractTexts {
		text := strings.TrimSpace(at.Value)
		if text == "" {
			continue
		}
		if at.Label != "" {
			parts = append(parts, at.Label+": "+text)
		} else {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, " ")
}

// extractAuthors converts PubMed authors to display names.
func extractAuthors(authorList *AuthorList) []string {
	if authorList == nil || len(authorList.Authors) == 0 {
		return nil
	}

	authors := make([]string, 0, len(authorList.Authors))
	for _, a := range authorList.Authors {
		if a.ValidYN == "N" {
			continue
		}

		var name string
		if a.CollectiveName != "" {
			name = a.CollectiveName
		} else {
			nameParts := make([]string, 0, 2)
			if a.ForeName != "" {
				nameParts = append(nameParts, a.ForeName)
			}
			if a.LastName != "" {
				nameParts = append(nameParts, a.LastName)
			}
			name = strings.Join(nameParts, " ")
		}

		if name == "" {
			continue
		}

		authors = append(authors, name)
	}

	return authors
}
