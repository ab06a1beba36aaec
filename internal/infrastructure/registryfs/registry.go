// Package registryfs loads the curated entity registry and the crime-report
// link list from the CSV exports the research team maintains.
package registryfs

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/rgdonohue/latin-america-fishing-crime-reporting/internal/config"
	"github.com/rgdonohue/latin-america-fishing-crime-reporting/internal/domain"
	"github.com/rgdonohue/latin-america-fishing-crime-reporting/internal/ports"
)

// Loader reads the six category files. Missing files are skipped with a
// warning so a partial registry still produces a run, matching how the
// spreadsheets are curated in practice.
type Loader struct {
	cfg    config.RegistryConfig
	logger *slog.Logger
}

var _ ports.RegistrySource = (*Loader)(nil)

// NewLoader wires registry file paths.
func NewLoader(cfg config.RegistryConfig, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{cfg: cfg, logger: logger}
}

// Load reads every configured category file and returns entities in file
// order, categories in output-sheet order.
func (l *Loader) Load(ctx context.Context) ([]domain.Entity, error) {
	files := []struct {
		path     string
		category domain.Category
	}{
		{l.cfg.Plants, domain.CategoryPlant},
		{l.cfg.Topics, domain.CategoryTopic},
		{l.cfg.VesselOwners, domain.CategoryVesselOwner},
		{l.cfg.VesselsEcuador, domain.CategoryVesselEcuador},
		{l.cfg.VesselsPeru, domain.CategoryVesselPeru},
		{l.cfg.VesselsChile, domain.CategoryVesselChile},
	}

	var entities []domain.Entity
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f.path == "" {
			continue
		}
		loaded, err := loadFile(f.path, f.category)
		if err != nil {
			if os.IsNotExist(err) {
				l.logger.Warn("registry file missing, skipping", "path", f.path, "category", f.category)
				continue
			}
			return nil, fmt.Errorf("registry file %s: %w", f.path, err)
		}
		l.logger.Debug("registry file loaded", "path", f.path, "entities", len(loaded))
		entities = append(entities, loaded...)
	}
	return entities, nil
}

func loadFile(path string, category domain.Category) ([]domain.Entity, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) < 2 {
		return nil, nil
	}

	cols := headerIndex(records[0])
	nameCol, ok := findNameColumn(cols, category)
	if !ok {
		return nil, fmt.Errorf("no name column in header %v", records[0])
	}

	var entities []domain.Entity
	for i, rec := range records[1:] {
		name := field(rec, nameCol)
		if name == "" {
			continue
		}
		entity := domain.Entity{
			ID:          fmt.Sprintf("%s-%d", category, i+1),
			Category:    category,
			DisplayName: name,
			Identifiers: identifiers(category, name, cols, rec),
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

// identifiers builds the tagged identifier list for one row. Topics carry
// keyword identifiers (the name plus any aliases, covering Spanish
// translations); everything else carries a legal name plus whatever exact
// identifiers the row holds.
func identifiers(category domain.Category, name string, cols map[string]int, rec []string) []domain.Identifier {
	var ids []domain.Identifier
	if category == domain.CategoryTopic {
		ids = append(ids, domain.Identifier{Kind: domain.KindKeyword, Raw: name})
		if c, ok := cols["aliases"]; ok {
			for _, alias := range strings.Split(field(rec, c), ";") {
				if alias = strings.TrimSpace(alias); alias != "" {
					ids = append(ids, domain.Identifier{Kind: domain.KindKeyword, Raw: alias})
				}
			}
		}
		return ids
	}

	ids = append(ids, domain.Identifier{Kind: domain.KindLegalName, Raw: name})
	if c, ok := cols["imo"]; ok {
		if v := field(rec, c); v != "" {
			ids = append(ids, domain.Identifier{Kind: domain.KindIMO, Raw: v})
		}
	}
	for _, key := range []string{"registration number", "registration"} {
		if c, ok := cols[key]; ok {
			if v := field(rec, c); v != "" {
				ids = append(ids, domain.Identifier{Kind: domain.KindRegistration, Raw: v})
				break
			}
		}
	}
	return ids
}

func headerIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return cols
}

func findNameColumn(cols map[string]int, category domain.Category) (int, bool) {
	var keys []string
	switch category {
	case domain.CategoryPlant:
		keys = []string{"company name", "name"}
	case domain.CategoryTopic:
		keys = []string{"topic", "name"}
	case domain.CategoryVesselOwner:
		keys = []string{"owner name", "name"}
	default:
		keys = []string{"vessel name", "name"}
	}
	for _, k := range keys {
		if c, ok := cols[k]; ok {
			return c, true
		}
	}
	return 0, false
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
