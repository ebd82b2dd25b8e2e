package domain

// QueryCategory is a coarse topical classification of a search query,
// used to route the query toward the sources most likely to hold
// relevant records.
type QueryCategory string

const (
	CategoryMedical    QueryCategory = "medical"
	CategoryClinical   QueryCategory = "clinical"
	CategoryBiology    QueryCategory = "biology"
	CategoryTechnology QueryCategory = "technology"

	// CategoryGeneral is the fallback when no lexicon matches. Every
	// query resolves to at least this category.
	CategoryGeneral QueryCategory = "general"
)
