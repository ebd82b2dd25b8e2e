package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/helixir/article-search-service/internal/domain"
)

// ArticleRepository handles article persistence and natural-key
// deduplication. The natural key is the identity key derived from DOI
// or normalized title, so concurrent searches inserting the same
// article converge on one row.
type ArticleRepository interface {
	// UpsertByNaturalKey inserts the article or merges it into the
	// existing row sharing its natural key. Metadata merging keeps the
	// richer value per column. Returns the article with its durable ID
	// and timestamps populated.
	// Returns domain.ErrInvalidInput if the article is nil or untitled.
	UpsertByNaturalKey(ctx context.Context, article *domain.Article) (*domain.Article, error)

	// BulkUpsert upserts multiple articles in a single batch.
	//
	// Return contract:
	//   - Returned articles are in the same order as the input slice.
	//   - Database-generated fields (ID, CreatedAt, UpdatedAt) are
	//     populated on all returned articles.
	//   - A failure anywhere fails the whole batch.
	BulkUpsert(ctx context.Context, articles []*domain.Article) ([]*domain.Article, error)

	// GetByID retrieves an article by its internal UUID.
	// Returns domain.ErrNotFound if no matching article exists.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Article, error)

	// FindByText returns stored articles matching the free-text term.
	// Candidates are gathered in stages, title matches first, then
	// abstract matches, then journal and author matches, until the
	// limit is reached. When requireAbstract is set, rows without an
	// abstract are excluded in every stage.
	FindByText(ctx context.Context, term string, limit int, requireAbstract bool) ([]*domain.Article, error)
}
