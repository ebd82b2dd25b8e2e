package domain

// SourceType identifies the origin of an article record.
// These values must match the database enum source_type.
type SourceType string

const (
	SourceTypePubMed          SourceType = "pubmed"
	SourceTypeEuropePMC       SourceType = "europepmc"
	SourceTypeClinicalTrials  SourceType = "clinicaltrials"
	SourceTypeSemanticScholar SourceType = "semantic_scholar"
	SourceTypeArXiv           SourceType = "arxiv"

	// SourceTypeLocal marks records served from the local store rather
	// than fetched during the current request.
	SourceTypeLocal SourceType = "local"
)

// SourceDescriptor declares a source's routing characteristics. The
// router ranks sources by these fields; the paced client derives its
// minimum call interval from CallsPerSecond.
type SourceDescriptor struct {
	Name SourceType

	// CallsPerSecond caps the request rate against the provider.
	// Successive call starts are spaced at least 1/CallsPerSecond apart.
	CallsPerSecond float64

	// Priority orders sources within a relevance tier. 1 is the most
	// preferred.
	Priority int

	// Affinities lists the query categories this source specializes in.
	Affinities []QueryCategory
}

// HasAffinity reports whether the descriptor declares an affinity for
// the given category.
func (d SourceDescriptor) HasAffinity(c QueryCategory) bool {
	for _, a := range d.Affinities {
		if a == c {
			return true
		}
	}
	return false
}
