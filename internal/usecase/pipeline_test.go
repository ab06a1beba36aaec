package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/rgdonohue/latin-america-fishing-crime-reporting/internal/domain"
	"github.com/rgdonohue/latin-america-fishing-crime-reporting/internal/match"
)

type fakeRegistry struct {
	entities []domain.Entity
}

func (f *fakeRegistry) Load(_ context.Context) ([]domain.Entity, error) {
	return f.entities, nil
}

type fakeStore struct {
	articles []domain.Article
	saved    []domain.Article
}

func (f *fakeStore) LoadArticles(_ context.Context) ([]domain.Article, error) {
	return f.articles, nil
}

func (f *fakeStore) SaveArticles(_ context.Context, articles []domain.Article) error {
	f.saved = append(f.saved, articles...)
	return nil
}

type captureWriter struct {
	results []domain.MatchResult
}

func (w *captureWriter) Write(_ context.Context, results []domain.MatchResult) error {
	w.results = results
	return nil
}

func testEntities() []domain.Entity {
	return []domain.Entity{
		{
			ID:          "topic-1",
			Category:    domain.CategoryTopic,
			DisplayName: "fishmeal",
			Identifiers: []domain.Identifier{
				{Kind: domain.KindKeyword, Raw: "fishmeal"},
				{Kind: domain.KindKeyword, Raw: "harina de pescado"},
			},
		},
		{
			ID:          "vessel-peru-1",
			Category:    domain.CategoryVesselPeru,
			DisplayName: "Pesquera del Sur S.A.",
			Identifiers: []domain.Identifier{
				{Kind: domain.KindLegalName, Raw: "Pesquera del Sur S.A."},
				{Kind: domain.KindIMO, Raw: "9123456"},
			},
		},
		{
			ID:          "plant-1",
			Category:    domain.CategoryPlant,
			DisplayName: "Harinera del Norte S.A.",
			Identifiers: []domain.Identifier{
				{Kind: domain.KindLegalName, Raw: "Harinera del Norte S.A."},
			},
		},
	}
}

func testArticles() []domain.Article {
	return []domain.Article{
		{URL: "https://news.example.com/a", RawText: "Exportaciones de harina de pescado cayeron este mes."},
		{URL: "https://news.example.com/b", RawText: "El buque con matrícula 9123456 fue detenido."},
		{URL: "https://news.example.com/c", RawText: "La embarcación Pesquera del Sur zarpó del puerto."},
		{URL: "https://news.example.com/d", RawText: "Nada relevante en esta nota."},
		{URL: "https://news.example.com/e", RawText: ""},
	}
}

func newTestPipeline(workers int, writer *captureWriter) *Pipeline {
	return NewPipeline(PipelineDeps{
		Registry: &fakeRegistry{entities: testEntities()},
		Store:    &fakeStore{articles: testArticles()},
		Writer:   writer,
		Matching: match.DefaultConfig(),
		Workers:  workers,
		Logger:   slog.New(slog.DiscardHandler),
	})
}

func TestPipelineRunProducesTotalResults(t *testing.T) {
	t.Parallel()

	writer := &captureWriter{}
	if err := newTestPipeline(4, writer).Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(writer.results) != len(testEntities()) {
		t.Fatalf("expected %d result rows, got %d", len(testEntities()), len(writer.results))
	}

	byID := map[string]domain.MatchResult{}
	for _, r := range writer.results {
		byID[r.EntityID] = r
	}

	wantVessel := []string{"https://news.example.com/b", "https://news.example.com/c"}
	if diff := cmp.Diff(wantVessel, byID["vessel-peru-1"].URLs); diff != "" {
		t.Fatalf("vessel URLs mismatch (-want +got):\n%s", diff)
	}
	wantTopic := []string{"https://news.example.com/a"}
	if diff := cmp.Diff(wantTopic, byID["topic-1"].URLs); diff != "" {
		t.Fatalf("topic URLs mismatch (-want +got):\n%s", diff)
	}
	if got := byID["plant-1"]; got.MatchCount != 0 || len(got.URLs) != 0 {
		t.Fatalf("plant should be unmatched, got %+v", got)
	}
}

func TestPipelineIsDeterministicAcrossWorkerCounts(t *testing.T) {
	t.Parallel()

	var baseline []domain.MatchResult
	for _, workers := range []int{1, 4, 16} {
		writer := &captureWriter{}
		if err := newTestPipeline(workers, writer).Run(context.Background()); err != nil {
			t.Fatalf("Run with %d workers returned error: %v", workers, err)
		}
		if baseline == nil {
			baseline = writer.results
			continue
		}
		if diff := cmp.Diff(baseline, writer.results); diff != "" {
			t.Fatalf("results differ with %d workers:\n%s", workers, diff)
		}
	}
}

func TestPipelineLargeCorpusAcrossManyWorkers(t *testing.T) {
	t.Parallel()

	// A corpus large enough that every worker handles many articles while
	// all of them share the one index.
	texts := []string{
		"El buque con matrícula 9123456 fue detenido.",
		"Exportaciones de harina de pescado cayeron este mes.",
		"La embarcación Pesquera del Sur zarpó del puerto.",
		"Harinera del Norte S.A. amplió su planta.",
		"Nada relevante en esta nota.",
	}
	articles := make([]domain.Article, 200)
	for i := range articles {
		articles[i] = domain.Article{
			URL:     fmt.Sprintf("https://news.example.com/n%03d", i),
			RawText: texts[i%len(texts)],
		}
	}

	run := func(workers int) []domain.MatchResult {
		t.Helper()
		writer := &captureWriter{}
		pipeline := NewPipeline(PipelineDeps{
			Registry: &fakeRegistry{entities: testEntities()},
			Store:    &fakeStore{articles: articles},
			Writer:   writer,
			Matching: match.DefaultConfig(),
			Workers:  workers,
			Logger:   slog.New(slog.DiscardHandler),
		})
		if err := pipeline.Run(context.Background()); err != nil {
			t.Fatalf("Run with %d workers returned error: %v", workers, err)
		}
		return writer.results
	}

	baseline := run(1)

	byID := map[string]domain.MatchResult{}
	for _, r := range baseline {
		byID[r.EntityID] = r
	}
	// Two of the five rotating texts mention the vessel, one the topic, one
	// the plant; no hit may be dropped or fabricated.
	if got := byID["vessel-peru-1"].MatchCount; got != 80 {
		t.Fatalf("expected 80 vessel matches, got %d", got)
	}
	if got := byID["topic-1"].MatchCount; got != 40 {
		t.Fatalf("expected 40 topic matches, got %d", got)
	}
	if got := byID["plant-1"].MatchCount; got != 40 {
		t.Fatalf("expected 40 plant matches, got %d", got)
	}

	for _, workers := range []int{8, 32} {
		if diff := cmp.Diff(baseline, run(workers)); diff != "" {
			t.Fatalf("results differ with %d workers:\n%s", workers, diff)
		}
	}
}

func TestPipelineExcludesInvalidEntityButRuns(t *testing.T) {
	t.Parallel()

	entities := append(testEntities(), domain.Entity{
		ID:          "broken-1",
		Category:    domain.CategoryPlant,
		DisplayName: "Sin Identificadores",
	})

	writer := &captureWriter{}
	pipeline := NewPipeline(PipelineDeps{
		Registry: &fakeRegistry{entities: entities},
		Store:    &fakeStore{articles: testArticles()},
		Writer:   writer,
		Matching: match.DefaultConfig(),
		Workers:  2,
		Logger:   slog.New(slog.DiscardHandler),
	})
	if err := pipeline.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	for _, r := range writer.results {
		if r.EntityID == "broken-1" {
			t.Fatal("invalid entity must be excluded from results")
		}
	}
	if len(writer.results) != len(testEntities()) {
		t.Fatalf("expected %d result rows, got %d", len(testEntities()), len(writer.results))
	}
}

func TestPipelineHonorsCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	writer := &captureWriter{}
	if err := newTestPipeline(2, writer).Run(ctx); err == nil {
		t.Fatal("expected error from cancelled context")
	}
	if writer.results != nil {
		t.Fatal("no report should be written for an aborted batch")
	}
}
