package search

import (
	"strings"

	"github.com/helixir/article-search-service/internal/domain"
)

// categoryOrder fixes the iteration order over lexicons so that the
// returned category list is deterministic for a given query.
var categoryOrder = []domain.QueryCategory{
	domain.CategoryMedical,
	domain.CategoryClinical,
	domain.CategoryBiology,
	domain.CategoryTechnology,
}

// defaultLexicons maps each category to the keywords that signal it.
// Matching is case-insensitive substring match, so multi-word phrases
// such as "machine learning" work without tokenization.
var defaultLexicons = map[domain.QueryCategory][]string{
	domain.CategoryMedical: {
		"cancer", "tumor", "tumour", "disease", "treatment", "therapy",
		"drug", "vaccine", "diagnosis", "patient", "symptom", "syndrome",
		"infection", "epidemiology", "oncology", "cardiology", "diabetes",
		"pathology", "immunology", "pharmacology",
	},
	domain.CategoryClinical: {
		"clinical trial", "randomized", "randomised", "placebo", "cohort",
		"double-blind", "phase 1", "phase 2", "phase 3", "phase i",
		"phase ii", "phase iii", "enrollment", "intervention", "efficacy",
		"adverse event", "outcome measure",
	},
	domain.CategoryBiology: {
		"gene", "genome", "protein", "enzyme", "cell", "molecular",
		"dna", "mrna", "crispr", "microbiome", "organism", "evolution",
		"sequencing", "transcriptome", "mutation",
	},
	domain.CategoryTechnology: {
		"algorithm", "machine learning", "deep learning", "neural network",
		"artificial intelligence", "software", "computing", "robot",
		"data mining", "computer vision", "natural language", "blockchain",
	},
}

// Categorizer classifies a free-text query into topical categories
// using static keyword lexicons. It is a pure function over its
// lexicons and performs no I/O.
type Categorizer struct {
	lexicons map[domain.QueryCategory][]string
}

// NewCategorizer creates a categorizer with the built-in lexicons.
func NewCategorizer() *Categorizer {
	return &Categorizer{lexicons: defaultLexicons}
}

// Categorize returns the categories whose lexicon matches the query.
// Queries that match no lexicon fall back to the general category so
// that routing always has something to work with.
func (c *Categorizer) Categorize(query string) []domain.QueryCategory {
	lowered := strings.ToLower(query)

	var categories []domain.QueryCategory
	for _, category := range categoryOrder {
		for _, keyword := range c.lexicons[category] {
			if strings.Contains(lowered, keyword) {
				categories = append(categories, category)
				break
			}
		}
	}

	if len(categories) == 0 {
		categories = []domain.QueryCategory{domain.CategoryGeneral}
	}
	return categories
}
