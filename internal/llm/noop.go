package llm

import (
	"context"

	"github.com/helixir/article-search-service/internal/domain"
)

// Compile-time interface verification.
var _ Enricher = (*NoopEnricher)(nil)

// NoopEnricher stands in when AI enrichment is disabled. Summaries
// degrade to extractive text from the abstract; categorization is
// unavailable.
type NoopEnricher struct{}

// NewNoopEnricher creates a disabled enricher.
func NewNoopEnricher() *NoopEnricher {
	return &NoopEnricher{}
}

// Categorize reports that enrichment is disabled.
func (n *NoopEnricher) Categorize(_ context.Context, _ *domain.Article) (*Enrichment, error) {
	return nil, ErrEnrichmentDisabled
}

// Summarize returns the extractive fallback summary.
func (n *NoopEnricher) Summarize(_ context.Context, article *domain.Article) (string, error) {
	return FallbackSummary(article), nil
}
