package search

import (
	"sort"

	"github.com/helixir/article-search-service/internal/domain"
	"github.com/helixir/article-search-service/internal/sources"
)

const (
	// affinityWeight is the score contribution per matching category.
	affinityWeight = 10

	// generalBonus is added for sources carrying the general catch-all
	// affinity so they rank above complete mismatches.
	generalBonus = 1

	// priorityCeiling converts a priority (lower is better) into a
	// score contribution of priorityCeiling - priority.
	priorityCeiling = 10

	// highRelevanceThreshold marks sources that get a boosted quota.
	highRelevanceThreshold = 15

	// minQuota is the smallest per-source fetch quota.
	minQuota = 5
)

// RankedSource pairs an adapter with its relevance score for one query.
type RankedSource struct {
	Adapter sources.Adapter
	Score   int
}

// Router orders adapters by relevance to a categorized query and
// derives per-source fetch quotas. It holds no state; ranking is
// deterministic for a given query and adapter configuration.
type Router struct{}

// NewRouter creates a new router.
func NewRouter() *Router {
	return &Router{}
}

// Rank scores every adapter against the query categories and returns
// them ordered best first. Ties break on ascending priority, then on
// configuration order.
func (r *Router) Rank(categories []domain.QueryCategory, adapters []sources.Adapter) []RankedSource {
	ranked := make([]RankedSource, 0, len(adapters))
	for _, adapter := range adapters {
		ranked = append(ranked, RankedSource{
			Adapter: adapter,
			Score:   relevanceScore(categories, adapter.Descriptor()),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Adapter.Descriptor().Priority < ranked[j].Adapter.Descriptor().Priority
	})

	return ranked
}

// Quota derives the fetch quota for one source. The base quota splits
// the target across active sources with a floor of minQuota; sources
// scoring above the relevance threshold get half again as much.
func (r *Router) Quota(targetCount, activeSources, score int) int {
	if activeSources < 1 {
		activeSources = 1
	}

	quota := targetCount / activeSources
	if quota < minQuota {
		quota = minQuota
	}
	if score > highRelevanceThreshold {
		quota = quota * 3 / 2
	}
	return quota
}

// relevanceScore computes the per-query score for one source.
func relevanceScore(categories []domain.QueryCategory, desc domain.SourceDescriptor) int {
	score := 0
	for _, category := range categories {
		if desc.HasAffinity(category) {
			score += affinityWeight
		}
	}
	if desc.HasAffinity(domain.CategoryGeneral) {
		score += generalBonus
	}
	return score + priorityCeiling - desc.Priority
}
