package ports

import (
	"context"

	"github.com/rgdonohue/latin-america-fishing-crime-reporting/internal/domain"
)

// RegistrySource loads the curated entity registry.
type RegistrySource interface {
	Load(ctx context.Context) ([]domain.Entity, error)
}

// LinkSource supplies the article URLs extracted from the crime-report PDFs.
type LinkSource interface {
	URLs(ctx context.Context) ([]string, error)
}

// ArticleSource turns article URLs into extracted page text.
type ArticleSource interface {
	Fetch(ctx context.Context, urls []string) ([]domain.Article, error)
}

// ContentStore caches scraped article content between runs so matching can
// be re-run without re-fetching thousands of pages.
type ContentStore interface {
	LoadArticles(ctx context.Context) ([]domain.Article, error)
	SaveArticles(ctx context.Context, articles []domain.Article) error
}

// ReportWriter emits the final per-entity tables.
type ReportWriter interface {
	Write(ctx context.Context, results []domain.MatchResult) error
}
