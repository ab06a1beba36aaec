// Package storage caches scraped article content in Postgres so matching
// can be re-run against the same corpus without re-fetching thousands of
// pages.
//
// Expected table:
//
//	CREATE TABLE article_content (
//	    url        TEXT PRIMARY KEY,
//	    content    TEXT NOT NULL,
//	    scraped_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/rgdonohue/latin-america-fishing-crime-reporting/internal/domain"
	"github.com/rgdonohue/latin-america-fishing-crime-reporting/internal/ports"
)

// PostgresStore persists article content keyed by URL.
type PostgresStore struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.ContentStore = (*PostgresStore)(nil)

// NewPostgresStore wires a sql.DB implementation.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// LoadArticles returns every cached article ordered by URL.
func (s *PostgresStore) LoadArticles(ctx context.Context) ([]domain.Article, error) {
	if s.db == nil {
		return nil, nil
	}

	query, args, err := s.builder.
		Select("url", "content").
		From("article_content").
		OrderBy("url").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query content: %w", err)
	}
	defer rows.Close()

	var articles []domain.Article
	for rows.Next() {
		var a domain.Article
		if err := rows.Scan(&a.URL, &a.RawText); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return articles, nil
}

// SaveArticles upserts scraped content, replacing stale text for re-scraped
// URLs.
func (s *PostgresStore) SaveArticles(ctx context.Context, articles []domain.Article) error {
	if s.db == nil || len(articles) == 0 {
		return nil
	}

	for _, a := range articles {
		query, args, err := s.builder.
			Insert("article_content").
			Columns("url", "content").
			Values(a.URL, a.RawText).
			Suffix("ON CONFLICT (url) DO UPDATE SET content = EXCLUDED.content, scraped_at = NOW()").
			ToSql()
		if err != nil {
			return fmt.Errorf("build upsert: %w", err)
		}
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert article %s: %w", a.URL, err)
		}
	}
	return nil
}
