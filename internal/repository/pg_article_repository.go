package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/helixir/article-search-service/internal/domain"
)

// Compile-time interface verification.
var _ ArticleRepository = (*PgArticleRepository)(nil)

// PgArticleRepository is a PostgreSQL implementation of ArticleRepository.
type PgArticleRepository struct {
	db DBTX
}

// NewPgArticleRepository creates a new PostgreSQL article repository.
func NewPgArticleRepository(db DBTX) *PgArticleRepository {
	return &PgArticleRepository{db: db}
}

// upsertQuery merges a fetched article into the row sharing its
// natural key. Empty incoming values never overwrite stored ones; the
// quality score keeps its maximum.
const upsertQuery = `
	INSERT INTO articles (
		id, natural_key, external_id, doi, title, abstract, authors,
		journal, publication_year, url, source, quality_score,
		created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
	)
	ON CONFLICT (natural_key) DO UPDATE SET
		external_id = COALESCE(NULLIF(EXCLUDED.external_id, ''), articles.external_id),
		doi = COALESCE(NULLIF(EXCLUDED.doi, ''), articles.doi),
		title = EXCLUDED.title,
		abstract = COALESCE(NULLIF(EXCLUDED.abstract, ''), articles.abstract),
		authors = EXCLUDED.authors,
		journal = COALESCE(NULLIF(EXCLUDED.journal, ''), articles.journal),
		publication_year = COALESCE(NULLIF(EXCLUDED.publication_year, ''), articles.publication_year),
		url = COALESCE(NULLIF(EXCLUDED.url, ''), articles.url),
		quality_score = GREATEST(EXCLUDED.quality_score, articles.quality_score),
		updated_at = NOW()
	RETURNING id, created_at, updated_at`

const selectColumns = `
	id, external_id, doi, title, abstract, authors,
	journal, publication_year, url, source, quality_score,
	created_at, updated_at`

// UpsertByNaturalKey inserts the article or merges it into the
// existing row sharing its natural key.
func (r *PgArticleRepository) UpsertByNaturalKey(ctx context.Context, article *domain.Article) (*domain.Article, error) {
	if article == nil {
		return nil, domain.NewValidationError("article", "article cannot be nil")
	}
	if article.Title == "" {
		return nil, domain.NewValidationError("title", "title is required")
	}

	authorsJSON, err := json.Marshal(article.Authors)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal authors: %w", err)
	}

	if article.ID == uuid.Nil {
		article.ID = uuid.New()
	}

	now := time.Now().UTC()
	err = r.db.QueryRow(ctx, upsertQuery,
		article.ID,
		domain.IdentityKey(article),
		article.ExternalID,
		article.DOI,
		article.Title,
		article.Abstract,
		authorsJSON,
		article.Journal,
		article.PublicationYear,
		article.URL,
		article.Source,
		article.QualityScore,
		now,
		now,
	).Scan(&article.ID, &article.CreatedAt, &article.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to upsert article: %w", err)
	}

	return article, nil
}

// BulkUpsert upserts multiple articles in one batch. Uses pgx.Batch to
// send all upserts in a single network roundtrip.
func (r *PgArticleRepository) BulkUpsert(ctx context.Context, articles []*domain.Article) ([]*domain.Article, error) {
	if len(articles) == 0 {
		return []*domain.Article{}, nil
	}

	for i, article := range articles {
		if article == nil {
			return nil, domain.NewValidationError("article", fmt.Sprintf("article at index %d is nil", i))
		}
		if article.Title == "" {
			return nil, domain.NewValidationError("title", fmt.Sprintf("article at index %d has no title", i))
		}
	}

	now := time.Now().UTC()
	batch := &pgx.Batch{}

	for _, article := range articles {
		authorsJSON, err := json.Marshal(article.Authors)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal authors: %w", err)
		}

		if article.ID == uuid.Nil {
			article.ID = uuid.New()
		}

		batch.Queue(upsertQuery,
			article.ID,
			domain.IdentityKey(article),
			article.ExternalID,
			article.DOI,
			article.Title,
			article.Abstract,
			authorsJSON,
			article.Journal,
			article.PublicationYear,
			article.URL,
			article.Source,
			article.QualityScore,
			now,
			now,
		)
	}

	br := r.db.SendBatch(ctx, batch)
	defer br.Close()

	results := make([]*domain.Article, len(articles))
	for i, article := range articles {
		err := br.QueryRow().Scan(&article.ID, &article.CreatedAt, &article.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to upsert article at index %d: %w", i, err)
		}
		results[i] = article
	}

	return results, nil
}

// GetByID retrieves an article by its UUID.
func (r *PgArticleRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Article, error) {
	query := `SELECT` + selectColumns + `
		FROM articles
		WHERE id = $1`

	row := r.db.QueryRow(ctx, query, id)
	article, err := scanArticle(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("article", id.String())
		}
		return nil, fmt.Errorf("failed to get article by ID: %w", err)
	}

	return article, nil
}

// likeEscaper neutralizes ILIKE metacharacters so a search term is
// always matched literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLikeTerm(term string) string {
	return likeEscaper.Replace(term)
}

// FindByText gathers candidates in three stages: title matches, then
// abstract matches, then journal and author matches. Each stage only
// fills the room the previous ones left, so title matches always rank
// first in the returned slice.
func (r *PgArticleRepository) FindByText(ctx context.Context, term string, limit int, requireAbstract bool) ([]*domain.Article, error) {
	if term == "" {
		return []*domain.Article{}, nil
	}
	limit = clampSearchLimit(limit)

	abstractClause := ""
	if requireAbstract {
		abstractClause = " AND abstract <> ''"
	}

	stages := []string{
		`title ILIKE $1` + abstractClause,
		`abstract ILIKE $1` + abstractClause,
		`(journal ILIKE $1 OR authors::text ILIKE $1)` + abstractClause,
	}

	pattern := "%" + escapeLikeTerm(term) + "%"
	seen := make(map[uuid.UUID]struct{}, limit)
	found := make([]*domain.Article, 0, limit)

	for _, condition := range stages {
		remaining := limit - len(found)
		if remaining <= 0 {
			break
		}

		query := fmt.Sprintf(`SELECT %s
			FROM articles
			WHERE %s
			ORDER BY quality_score DESC, created_at DESC
			LIMIT $2`, selectColumns, condition)

		rows, err := r.db.Query(ctx, query, pattern, remaining)
		if err != nil {
			return nil, fmt.Errorf("failed to search articles: %w", err)
		}

		for rows.Next() {
			article, err := scanArticleFromRows(rows)
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan article: %w", err)
			}
			if _, ok := seen[article.ID]; ok {
				continue
			}
			seen[article.ID] = struct{}{}
			found = append(found, article)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("error iterating articles: %w", err)
		}
		rows.Close()
	}

	return found, nil
}

// articleScanDest holds the destination pointers for scanning an article row.
type articleScanDest struct {
	article     domain.Article
	authorsJSON []byte
}

// destinations returns the slice of pointers for Scan operations.
func (d *articleScanDest) destinations() []interface{} {
	return []interface{}{
		&d.article.ID, &d.article.ExternalID, &d.article.DOI, &d.article.Title,
		&d.article.Abstract, &d.authorsJSON,
		&d.article.Journal, &d.article.PublicationYear, &d.article.URL,
		&d.article.Source, &d.article.QualityScore,
		&d.article.CreatedAt, &d.article.UpdatedAt,
	}
}

// finalize performs post-scan processing: unmarshals JSON fields.
func (d *articleScanDest) finalize() (*domain.Article, error) {
	if len(d.authorsJSON) > 0 {
		if err := json.Unmarshal(d.authorsJSON, &d.article.Authors); err != nil {
			return nil, fmt.Errorf("failed to unmarshal authors: %w", err)
		}
	}
	return &d.article, nil
}

// scanArticle scans a single row into an Article.
func scanArticle(row pgx.Row) (*domain.Article, error) {
	var dest articleScanDest
	if err := row.Scan(dest.destinations()...); err != nil {
		return nil, err
	}
	return dest.finalize()
}

// scanArticleFromRows scans the current row from pgx.Rows into an Article.
func scanArticleFromRows(rows pgx.Rows) (*domain.Article, error) {
	var dest articleScanDest
	if err := rows.Scan(dest.destinations()...); err != nil {
		return nil, err
	}
	return dest.finalize()
}
