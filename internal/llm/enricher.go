// Package llm provides optional AI enrichment for stored articles:
// subject-area categorization and short summaries. Enrichment runs
// after a search completes, never inside the fetch loop, and a failed
// enrichment never fails the request that asked for it.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/helixir/article-search-service/internal/domain"
)

// ErrEnrichmentDisabled is returned by the noop enricher for
// operations that have no meaningful fallback.
var ErrEnrichmentDisabled = errors.New("ai enrichment is disabled")

// Enrichment is the structured categorization of one article.
type Enrichment struct {
	// PrimaryArea is the dominant subject area (e.g., "oncology").
	PrimaryArea string `json:"primaryArea"`
	// SecondaryAreas are additional relevant subject areas.
	SecondaryAreas []string `json:"secondaryAreas"`
	// Keywords are salient terms extracted from the article.
	Keywords []string `json:"keywords"`
}

// Enricher produces AI-derived metadata for articles.
type Enricher interface {
	// Categorize assigns subject areas and keywords to the article.
	Categorize(ctx context.Context, article *domain.Article) (*Enrichment, error)

	// Summarize produces a short plain-text summary of the article.
	Summarize(ctx context.Context, article *domain.Article) (string, error)
}

// fallbackSummaryLimit caps the extractive fallback summary length.
const fallbackSummaryLimit = 500

// FallbackSummary returns an extractive summary built from the
// article's own abstract, used when AI enrichment is disabled or
// fails. The abstract is cut at a sentence boundary where possible.
func FallbackSummary(article *domain.Article) string {
	abstract := strings.TrimSpace(article.Abstract)
	if abstract == "" {
		return "No abstract available for this article."
	}
	if len(abstract) <= fallbackSummaryLimit {
		return abstract
	}

	cut := abstract[:fallbackSummaryLimit]
	if idx := strings.LastIndex(cut, ". "); idx > fallbackSummaryLimit/2 {
		return cut[:idx+1]
	}
	return cut + "..."
}

// buildCategorizePrompt builds the system and user prompts for the
// categorization call. The model is instructed to answer with a JSON
// object matching the Enrichment shape.
func buildCategorizePrompt(article *domain.Article) (string, string) {
	system := `You are a scholarly article classifier. Given an article's title and abstract, respond with a JSON object:
{"primaryArea": "<dominant subject area>", "secondaryAreas": ["<area>", ...], "keywords": ["<term>", ...]}
Use lowercase subject areas. Return at most 3 secondary areas and at most 8 keywords.`

	var sb strings.Builder
	fmt.Fprintf(&sb, "Title: %s\n", article.Title)
	if article.Journal != "" {
		fmt.Fprintf(&sb, "Journal: %s\n", article.Journal)
	}
	if article.Abstract != "" {
		fmt.Fprintf(&sb, "Abstract: %s\n", article.Abstract)
	}
	return system, sb.String()
}

// buildSummarizePrompt builds the system and user prompts for the
// summary call.
func buildSummarizePrompt(article *domain.Article) (string, string) {
	system := `You are a scholarly article summarizer. Respond with a JSON object:
{"summary": "<2-3 sentence plain-language summary of the article>"}`

	var sb strings.Builder
	fmt.Fprintf(&sb, "Title: %s\n", article.Title)
	if article.Abstract != "" {
		fmt.Fprintf(&sb, "Abstract: %s\n", article.Abstract)
	}
	return system, sb.String()
}
