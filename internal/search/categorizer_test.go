package search

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/helixir/article-search-service/internal/domain"
)

func TestCategorizer_Categorize(t *testing.T) {
	c := NewCategorizer()

	tests := []struct {
		name     string
		query    string
		expected []domain.QueryCategory
	}{
		{
			name:     "medical query",
			query:    "cancer treatment outcomes",
			expected: []domain.QueryCategory{domain.CategoryMedical},
		},
		{
			name:     "clinical query",
			query:    "randomized placebo controlled study",
			expected: []domain.QueryCategory{domain.CategoryClinical},
		},
		{
			name:     "biology query",
			query:    "CRISPR gene editing",
			expected: []domain.QueryCategory{domain.CategoryBiology},
		},
		{
			name:     "technology query",
			query:    "deep learning for image segmentation",
			expected: []domain.QueryCategory{domain.CategoryTechnology},
		},
		{
			name:  "query spanning categories",
			query: "machine learning for tumor detection",
			expected: []domain.QueryCategory{
				domain.CategoryMedical,
				domain.CategoryTechnology,
			},
		},
		{
			name:     "unmatched query falls back to general",
			query:    "history of renaissance painting",
			expected: []domain.QueryCategory{domain.CategoryGeneral},
		},
		{
			name:     "matching is case insensitive",
			query:    "CANCER Immunotherapy",
			expected: []domain.QueryCategory{domain.CategoryMedical},
		},
		{
			name:     "empty query is general",
			query:    "",
			expected: []domain.QueryCategory{domain.CategoryGeneral},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, c.Categorize(tt.query))
		})
	}
}

func TestCategorizer_Deterministic(t *testing.T) {
	c := NewCategorizer()

	first := c.Categorize("gene therapy clinical trial")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, c.Categorize("gene therapy clinical trial"))
	}
}
