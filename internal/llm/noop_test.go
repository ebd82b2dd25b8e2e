package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/article-search-service/internal/domain"
)

func TestNoopEnricher_Categorize(t *testing.T) {
	enricher := NewNoopEnricher()

	_, err := enricher.Categorize(context.Background(), testArticle())
	assert.ErrorIs(t, err, ErrEnrichmentDisabled)
}

func TestNoopEnricher_Summarize(t *testing.T) {
	enricher := NewNoopEnricher()

	summary, err := enricher.Summarize(context.Background(), testArticle())
	require.NoError(t, err)
	assert.Equal(t, testArticle().Abstract, summary)
}

func TestFallbackSummary(t *testing.T) {
	t.Run("empty abstract", func(t *testing.T) {
		summary := FallbackSummary(&domain.Article{Title: "No abstract here"})
		assert.Equal(t, "No abstract available for this article.", summary)
	})

	t.Run("short abstract returned verbatim", func(t *testing.T) {
		article := &domain.Article{Abstract: "A short abstract."}
		assert.Equal(t, "A short abstract.", FallbackSummary(article))
	})

	t.Run("long abstract cut at sentence boundary", func(t *testing.T) {
		sentence := "This sentence pads the abstract out to a meaningful length. "
		article := &domain.Article{Abstract: strings.Repeat(sentence, 20)}

		summary := FallbackSummary(article)
		assert.LessOrEqual(t, len(summary), fallbackSummaryLimit)
		assert.True(t, strings.HasSuffix(summary, "."), "cut lands on a sentence boundary")
	})
}
