package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"github.com/rgdonohue/latin-america-fishing-crime-reporting/internal/config"
	"github.com/rgdonohue/latin-america-fishing-crime-reporting/internal/infrastructure/fetcher"
	"github.com/rgdonohue/latin-america-fishing-crime-reporting/internal/infrastructure/registryfs"
	"github.com/rgdonohue/latin-america-fishing-crime-reporting/internal/infrastructure/report"
	"github.com/rgdonohue/latin-america-fishing-crime-reporting/internal/infrastructure/storage"
	"github.com/rgdonohue/latin-america-fishing-crime-reporting/internal/logging"
	"github.com/rgdonohue/latin-america-fishing-crime-reporting/internal/match"
	"github.com/rgdonohue/latin-america-fishing-crime-reporting/internal/ports"
	"github.com/rgdonohue/latin-america-fishing-crime-reporting/internal/usecase"
)

// Application wires configuration to the batch pipeline.
type Application struct {
	pipeline *usecase.Pipeline
	db       *sql.DB
	logger   *slog.Logger
}

// New builds a runnable application instance. The Postgres content cache is
// optional: without a DSN every run fetches the corpus afresh.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	var (
		db    *sql.DB
		store ports.ContentStore
	)
	if cfg.Database.DSN != "" {
		opened, err := sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		db = opened
		store = storage.NewPostgresStore(db)
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Registry: registryfs.NewLoader(cfg.Registry, logging.Component(baseLogger, "registry")),
		Links:    registryfs.NewLinkFile(cfg.Links.Path),
		Source: fetcher.New(nil, fetcher.Options{
			Timeout:      time.Duration(cfg.Fetcher.TimeoutSeconds) * time.Second,
			MaxTextRunes: cfg.Fetcher.MaxTextRunes,
			Workers:      cfg.Fetcher.Workers,
		}, logging.Component(baseLogger, "fetcher")),
		Store:  store,
		Writer: report.NewExcelWriter(cfg.Output.Path, logging.Component(baseLogger, "report")),
		Matching: match.Config{
			StrongThreshold:    cfg.Matching.StrongThreshold,
			WeakThreshold:      cfg.Matching.WeakThreshold,
			TokenPairThreshold: cfg.Matching.TokenPairThreshold,
			ContextCues:        cfg.Matching.ContextCues,
		},
		Workers: cfg.Workers,
		Logger:  logging.Component(baseLogger, "pipeline"),
	})

	return &Application{pipeline: pipeline, db: db, logger: baseLogger}, nil
}

// Run executes one batch pass.
func (a *Application) Run(ctx context.Context) error {
	defer a.close()
	return a.pipeline.Run(ctx)
}

func (a *Application) close() {
	if a.db == nil {
		return
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("close database", "error", err)
	}
}
