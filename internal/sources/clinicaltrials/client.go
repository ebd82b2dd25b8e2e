package clinicaltrials

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
	// DefaultBaseURL is the default base URL for the ClinicalTrials.gov API v2.
	DefaultBaseURL = "https://clinicaltrials.gov/api/v2"

	// DefaultCallsPerSecond keeps requests well under the advertised limit.
	DefaultCallsPerSecond = 2.0

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// maxPageSize is the largest page the studies endpoint accepts.
	maxPageSize = 1000

	// studyURLPrefix is the prefix for study landing pages.
	studyURLPrefix = "https://clinicaltrials.gov/study/"

	// sourceName is the human-readable name for this source.
	sourceName = "ClinicalTrials.gov"
)

// Config contains configuration options for the ClinicalTrials.gov client.
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
	// Defaults to clinical and medical.
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
		c.Priority = 3
	}
	if len(c.Affinities) == 0 {
		c.Affinities = []domain.QueryCategory{domain.CategoryClinical, domain.CategoryMedical}
	}
}

// Client implements the sources.Adapter interface for ClinicalTrials.gov.
type Client struct {
	config     Config
	httpClient *sources.HTTPClient
}

// Compile-time check that Client implements Adapter.
var _ sources.Adapter = (*Client)(nil)

// New creates a new ClinicalTrials.gov client with the given configuration.
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
		Name:           domain.SourceTypeClinicalTrials,
		CallsPerSecond: c.config.CallsPerSecond,
		Priority:       c.config.Priority,
		Affinities:     c.config.Affinities,
	}
}

// Search queries ClinicalTrials.gov for studies matching the term.
//
// The API pages by opaque token rather than offset, so a non-zero
// offset is handled by fetching limit+offset records from the first
// page and discarding the leading ones.
func (c *Client) Search(ctx context.Context, term string, limit, offset int) ([]*domain.Article, error) {
	u, err := url.Parse(c.config.BaseURL + "/studies")
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}

	pageSize := limit + offset
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	q := u.Query()
	q.Set("query.term", term)
	q.Set("format", "json")
	if pageSize > 0 {
		q.Set("pageSize", strconv.Itoa(pageSize))
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

	var studiesResp StudiesResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&studiesResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	studies := studiesResp.Studies
	if offset >= len(studies) {
		return []*domain.Article{}, nil
	}
	studies = studies[offset:]
	if len(studies) > limit {
		studies = studies[:limit]
	}

	articles := make([]*domain.Article, 0, len(studies))
	for _, study := range studies {
		if a := c.toArticle(study); a != nil {
			articles = append(articles, a)
		}
	}

	return articles, nil
}

// toArticle converts a study to a domain article.
// Studies without an NCT number or title are dropped.
func (c *Client) toArticle(study Study) *domain.Article {
	ident := study.ProtocolSection.IdentificationModule
	if ident.NCTID == "" {
		return nil
	}

	title := sources.NormalizeWhitespace(ident.OfficialTitle)
	if title == "" {
		title = sources.NormalizeWhitespace(ident.BriefTitle)
	}
	if title == "" {
		return nil
	}

	return &domain.Article{
		ExternalID:      ident.NCTID,
		Title:           title,
		Abstract:        extractAbstract(study.ProtocolSection.DescriptionModule),
		Authors:         extractOfficials(study.ProtocolSection.ContactsLocationsModule),
		Journal:         sourceName,
		PublicationYear: extractStartYear(study.ProtocolSection.StatusModule),
		URL:             studyURLPrefix + ident.NCTID,
		Source:          domain.SourceTypeClinicalTrials,
	}
}

// extractAbstract joins the brief summary and detailed description.
// Studies carry no abstract proper, so the summaries stand in for one.
func extractAbstract(desc *DescriptionModule) string {
	if desc == nil {
		return ""
	}

	parts := make([]string, 0, 2)
	if s := strings.TrimSpace(desc.BriefSummary); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(desc.DetailedDescription); s != "" {
		parts = append(parts, s)
	}

	return sources.CleanAbstract(strings.Join(parts, " "))
}

// extractOfficials lists the overall officials as the study's authors.
func extractOfficials(contacts *ContactsLocationsModule) []string {
	if contacts == nil || len(contacts.OverallOfficials) == 0 {
		return nil
	}

	authors := make([]string, 0, len(contacts.OverallOfficials))
	for _, official := range contacts.OverallOfficials {
		if name := strings.TrimSpace(official.Name); name != "" {
			authors = append(authors, name)
		}
	}
	return authors
}

// extractStartYear pulls the year out of the study start date, which
// may be a full date or just a year-month.
func extractStartYear(status *StatusModule) string {
	if status == nil || status.StartDateStruct == nil {
		return ""
	}
	return sources.ExtractYear(status.StartDateStruct.Date)
}
