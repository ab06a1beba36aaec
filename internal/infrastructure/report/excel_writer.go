// Package report emits the final per-entity tables as one xlsx workbook,
// one sheet per entity category, the same layout the research spreadsheets
// use downstream.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/rgdonohue/latin-america-fishing-crime-reporting/internal/aggregate"
	"github.com/rgdonohue/latin-america-fishing-crime-reporting/internal/domain"
	"github.com/rgdonohue/latin-america-fishing-crime-reporting/internal/ports"
)

var sheetNames = map[domain.Category]string{
	domain.CategoryPlant:         "Plants",
	domain.CategoryTopic:         "Topics",
	domain.CategoryVesselOwner:   "Vessel Owners",
	domain.CategoryVesselEcuador: "Ecuador Vessels",
	domain.CategoryVesselPeru:    "Peru Vessels",
	domain.CategoryVesselChile:   "Chile Vessels",
}

var headers = []string{"Name", "Matches", "Crime Report Links"}

// ExcelWriter writes the workbook to a fixed path.
type ExcelWriter struct {
	path   string
	logger *slog.Logger
}

var _ ports.ReportWriter = (*ExcelWriter)(nil)

// NewExcelWriter wires the output path.
func NewExcelWriter(path string, logger *slog.Logger) *ExcelWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExcelWriter{path: path, logger: logger}
}

// Write emits one sheet per category. Entities without matches keep their
// row with an empty link cell: "searched but not found" must stay auditable.
func (w *ExcelWriter) Write(ctx context.Context, results []domain.MatchResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tables := aggregate.ByCategory(results)

	f := excelize.NewFile()
	defer f.Close()

	for i, category := range domain.Categories {
		name := sheetNames[category]
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}

		if err := writeSheet(f, name, tables[category]); err != nil {
			return fmt.Errorf("sheet %s: %w", name, err)
		}
	}

	if dir := filepath.Dir(w.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := f.SaveAs(w.path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}

	w.logger.Info("report written", "path", w.path, "rows", len(results))
	return nil
}

func writeSheet(f *excelize.File, sheet string, rows []domain.MatchResult) error {
	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}

	for i, r := range rows {
		values := []any{r.DisplayName, r.MatchCount, strings.Join(r.URLs, ", ")}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}
