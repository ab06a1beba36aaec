package index

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/rgdonohue/latin-america-fishing-crime-reporting/internal/domain"
	"github.com/rgdonohue/latin-america-fishing-crime-reporting/internal/normalize"
)

func vessel(id, name, imo string) domain.Entity {
	ids := []domain.Identifier{{Kind: domain.KindLegalName, Raw: name}}
	if imo != "" {
		ids = append(ids, domain.Identifier{Kind: domain.KindIMO, Raw: imo})
	}
	return domain.Entity{
		ID:          id,
		Category:    domain.CategoryVesselPeru,
		DisplayName: name,
		Identifiers: ids,
	}
}

func TestBuildRejectsEntityWithoutIdentifiers(t *testing.T) {
	t.Parallel()

	entities := []domain.Entity{
		vessel("v1", "Pesquera del Sur S.A.", "9123456"),
		{ID: "v2", Category: domain.CategoryVesselPeru, DisplayName: "Sin Identificadores"},
	}

	idx, _, err := Build(entities)
	if err == nil {
		t.Fatal("expected InvalidEntityError, got nil")
	}
	var invalid *InvalidEntityError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidEntityError, got %v", err)
	}
	if invalid.EntityID != "v2" {
		t.Fatalf("unexpected entity in error: %s", invalid.EntityID)
	}

	// The bad row is excluded; the run goes on with the rest.
	if got := len(idx.Entities()); got != 1 {
		t.Fatalf("expected 1 usable entity, got %d", got)
	}
}

func TestBuildWarnsOnAmbiguousIdentifier(t *testing.T) {
	t.Parallel()

	entities := []domain.Entity{
		vessel("v1", "Don Lucho I", "9123456"),
		vessel("v2", "Don Lucho II", "9123456"),
	}

	idx, warnings, err := Build(entities)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(warnings))
	}
	if warnings[0].Value != "9123456" {
		t.Fatalf("unexpected warning value: %s", warnings[0].Value)
	}
	if len(warnings[0].EntityIDs) != 2 {
		t.Fatalf("expected both entities flagged, got %v", warnings[0].EntityIDs)
	}

	// Both stay eligible candidates.
	ids := idx.LookupExact("9123456")
	if len(ids) != 2 {
		t.Fatalf("expected 2 candidate entities, got %v", ids)
	}
}

func TestHitsInRespectsWordBoundaries(t *testing.T) {
	t.Parallel()

	idx, _, err := Build([]domain.Entity{vessel("v1", "Pesquera del Sur S.A.", "9123456")})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	hits := idx.HitsIn(normalize.Text("el buque con matrícula 9123456 fue detenido"))
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	if hits[0].EntityID != "v1" || hits[0].Kind != domain.KindIMO {
		t.Fatalf("unexpected hit: %+v", hits[0])
	}

	// Embedded in a longer number, the IMO must not hit.
	if hits := idx.HitsIn(normalize.Text("expediente 991234567 registrado")); len(hits) != 0 {
		t.Fatalf("expected no hits, got %+v", hits)
	}
}

func TestHitsInFindsNormalizedLegalName(t *testing.T) {
	t.Parallel()

	idx, _, err := Build([]domain.Entity{vessel("v1", "Pesquera del Sur S.A.", "")})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	hits := idx.HitsIn(normalize.Text("la embarcación Pesquera del Sur zarpó del puerto"))
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	if hits[0].Value != "pesquera del sur" || hits[0].Kind != domain.KindLegalName {
		t.Fatalf("unexpected hit: %+v", hits[0])
	}
}

func TestHitsInReportsTokenPositions(t *testing.T) {
	t.Parallel()

	idx, _, err := Build([]domain.Entity{vessel("v1", "Pesquera del Sur S.A.", "9123456")})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	// la(0) embarcacion(1) pesquera(2) del(3) sur(4) con(5) matricula(6)
	// 9123456(7) zarpo(8)
	hits := idx.HitsIn(normalize.Text("la embarcación Pesquera del Sur con matrícula 9123456 zarpó"))
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %+v", hits)
	}
	if hits[0].Kind != domain.KindLegalName || hits[0].Pos != 2 {
		t.Fatalf("expected legal name at token 2, got %+v", hits[0])
	}
	if hits[1].Kind != domain.KindIMO || hits[1].Pos != 7 {
		t.Fatalf("expected IMO at token 7, got %+v", hits[1])
	}
}

func TestHitsInIsSafeForConcurrentUse(t *testing.T) {
	t.Parallel()

	idx, _, err := Build([]domain.Entity{
		vessel("v1", "Pesquera del Sur S.A.", "9123456"),
		vessel("v2", "Don Lucho I", "9234567"),
	})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	texts := []string{
		normalize.Text("el buque con matrícula 9123456 fue detenido"),
		normalize.Text("la embarcación Don Lucho I zarpó junto a Pesquera del Sur"),
		normalize.Text("nada relevante en esta nota"),
	}
	want := make([][]Hit, len(texts))
	for i, text := range texts {
		want[i] = idx.HitsIn(text)
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				k := j % len(texts)
				if diff := cmp.Diff(want[k], idx.HitsIn(texts[k])); diff != "" {
					t.Errorf("concurrent HitsIn diverged (-want +got):\n%s", diff)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestShortSingleTokenNamesSkipFuzzy(t *testing.T) {
	t.Parallel()

	entities := []domain.Entity{
		{
			ID:          "t1",
			Category:    domain.CategoryTopic,
			DisplayName: "AI",
			Identifiers: []domain.Identifier{{Kind: domain.KindKeyword, Raw: "AI"}},
		},
		{
			ID:          "t2",
			Category:    domain.CategoryTopic,
			DisplayName: "IUU",
			Identifiers: []domain.Identifier{{Kind: domain.KindKeyword, Raw: "IUU"}},
		},
	}

	idx, _, err := Build(entities)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	for _, cand := range idx.NameCandidates() {
		if cand.EntityID == "t1" {
			t.Fatal("two-rune name must not be a fuzzy candidate")
		}
	}

	// Still matchable exactly.
	if hits := idx.HitsIn("research on ai policy"); len(hits) != 1 || hits[0].EntityID != "t1" {
		t.Fatalf("expected exact hit for t1, got %+v", hits)
	}
}
