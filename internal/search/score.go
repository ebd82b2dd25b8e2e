package search

import (
	"strconv"
	"time"

	"github.com/helixir/article-search-service/internal/domain"
)

// Scorer assigns a quality score to an article for final ranking.
// Scoring is purely additive, so an article never loses points for
// having more metadata.
type Scorer struct {
	now func() time.Time
}

// NewScorer creates a scorer using the wall clock for recency scoring.
func NewScorer() *Scorer {
	return &Scorer{now: time.Now}
}

// NewScorerAt creates a scorer with a fixed clock. Used in tests to
// pin the recency buckets.
func NewScorerAt(now func() time.Time) *Scorer {
	return &Scorer{now: now}
}

// Score computes the quality score for one article:
//
//   - abstract length: >=500 chars +50, >=200 +30, >=100 +15, non-empty +5
//   - DOI present +10
//   - at least one author +5
//   - journal present +5
//   - published within 5 years +10, within 10 years +5
func (s *Scorer) Score(a *domain.Article) int {
	score := abstractScore(len(a.Abstract))

	if a.DOI != "" {
		score += 10
	}
	if len(a.Authors) > 0 {
		score += 5
	}
	if a.Journal != "" {
		score += 5
	}

	score += s.recencyScore(a.PublicationYear)
	return score
}

func abstractScore(length int) int {
	switch {
	case length >= 500:
		return 50
	case length >= 200:
		return 30
	case length >= 100:
		return 15
	case length > 0:
		return 5
	default:
		return 0
	}
}

func (s *Scorer) recencyScore(publicationYear string) int {
	year, err := strconv.Atoi(publicationYear)
	if err != nil {
		return 0
	}

	currentYear := s.now().Year()
	switch {
	case year >= currentYear-5:
		return 10
	case year >= currentYear-10:
		return 5
	default:
		return 0
	}
}
