package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/rgdonohue/latin-america-fishing-crime-reporting/internal/aggregate"
	"github.com/rgdonohue/latin-america-fishing-crime-reporting/internal/domain"
	"github.com/rgdonohue/latin-america-fishing-crime-reporting/internal/index"
	"github.com/rgdonohue/latin-america-fishing-crime-reporting/internal/match"
	"github.com/rgdonohue/latin-america-fishing-crime-reporting/internal/ports"
)

// PipelineDeps wires all driven adapters into the batch pipeline.
type PipelineDeps struct {
	Registry ports.RegistrySource
	Links    ports.LinkSource
	Source   ports.ArticleSource
	Store    ports.ContentStore
	Writer   ports.ReportWriter
	Matching match.Config
	Workers  int
	Logger   *slog.Logger
}

// Pipeline runs one batch: registry in, per-entity report out.
type Pipeline struct {
	registry ports.RegistrySource
	links    ports.LinkSource
	source   ports.ArticleSource
	store    ports.ContentStore
	writer   ports.ReportWriter
	matching match.Config
	workers  int
	logger   *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	workers := deps.Workers
	if workers < 1 {
		workers = 1
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		registry: deps.Registry,
		links:    deps.Links,
		source:   deps.Source,
		store:    deps.Store,
		writer:   deps.Writer,
		matching: deps.Matching,
		workers:  workers,
		logger:   logger,
	}
}

// Run loads the registry, builds the index, matches the corpus across the
// worker pool, aggregates, and hands the tables to the report writer.
func (p *Pipeline) Run(ctx context.Context) error {
	if p.registry == nil {
		return fmt.Errorf("registry source is not configured")
	}

	entities, err := p.registry.Load(ctx)
	if err != nil {
		return fmt.Errorf("load registry: %w", err)
	}

	idx, warnings, buildErr := index.Build(entities)
	if buildErr != nil {
		// Invalid entities are excluded, not fatal: the operator must see
		// them, the run must go on.
		p.logger.Warn("registry entities excluded", "error", buildErr)
	}
	for _, w := range warnings {
		p.logger.Warn("ambiguous identifier", "value", w.Value, "entities", w.EntityIDs)
	}
	if len(idx.Entities()) == 0 {
		return fmt.Errorf("registry has no usable entities")
	}

	articles, err := p.loadArticles(ctx)
	if err != nil {
		return fmt.Errorf("load articles: %w", err)
	}
	p.logger.Info("corpus ready", "articles", len(articles), "entities", len(idx.Entities()))

	matcher := match.New(idx, p.matching)
	candidates, err := p.matchAll(ctx, matcher, articles)
	if err != nil {
		return fmt.Errorf("match corpus: %w", err)
	}

	results, err := aggregate.Aggregate(idx.Entities(), candidates)
	if err != nil {
		return fmt.Errorf("aggregate candidates: %w", err)
	}

	matched := 0
	for _, r := range results {
		if r.MatchCount > 0 {
			matched++
		}
	}
	p.logger.Info("matching done", "candidates", len(candidates), "entities_matched", matched)

	if p.writer == nil {
		return nil
	}
	if err := p.writer.Write(ctx, results); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// loadArticles prefers previously scraped content from the store; otherwise
// it fetches the report links and caches the result for the next run.
func (p *Pipeline) loadArticles(ctx context.Context) ([]domain.Article, error) {
	if p.store != nil {
		articles, err := p.store.LoadArticles(ctx)
		if err != nil {
			return nil, fmt.Errorf("load cached content: %w", err)
		}
		if len(articles) > 0 {
			p.logger.Debug("using cached article content", "articles", len(articles))
			return articles, nil
		}
	}

	if p.links == nil || p.source == nil {
		return nil, fmt.Errorf("no cached content and no article source configured")
	}

	urls, err := p.links.URLs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load report links: %w", err)
	}
	articles, err := p.source.Fetch(ctx, urls)
	if err != nil {
		return nil, fmt.Errorf("fetch articles: %w", err)
	}

	if p.store != nil {
		if err := p.store.SaveArticles(ctx, articles); err != nil {
			p.logger.Warn("cannot cache article content", "error", err)
		}
	}
	return articles, nil
}

// matchAll fans articles out across the worker pool. The index is read-only,
// so workers share it freely; a single collector goroutine is the only
// writer of the combined candidate list. Cancellation stops dispatching new
// articles and lets in-flight ones finish.
func (p *Pipeline) matchAll(ctx context.Context, matcher *match.Matcher, articles []domain.Article) ([]domain.MatchCandidate, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	out := make(chan []domain.MatchCandidate)
	var all []domain.MatchCandidate
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for batch := range out {
			all = append(all, batch...)
		}
	}()

	for _, article := range articles {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			batch := matcher.Match(article)
			if len(batch) == 0 {
				return nil
			}
			select {
			case out <- batch:
			case <-gctx.Done():
			}
			return nil
		})
	}

	err := g.Wait()
	close(out)
	<-collected

	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return all, nil
}
