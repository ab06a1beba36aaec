package registryfs

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/rgdonohue/latin-america-fishing-crime-reporting/internal/ports"
)

// LinkFile reads the article URLs extracted from the crime-report PDFs, one
// CSV produced per report batch upstream.
type LinkFile struct {
	path string
}

var _ ports.LinkSource = (*LinkFile)(nil)

// NewLinkFile wires the link CSV path.
func NewLinkFile(path string) *LinkFile {
	return &LinkFile{path: path}
}

// URLs returns the distinct article URLs in file order. A header row naming
// a "url" column is honored; otherwise the first column is taken.
func (l *LinkFile) URLs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open link file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse link file: %w", err)
	}

	col := 0
	start := 0
	if len(records) > 0 {
		for i, h := range records[0] {
			if strings.EqualFold(strings.TrimSpace(h), "url") {
				col, start = i, 1
				break
			}
		}
	}

	seen := map[string]struct{}{}
	var urls []string
	for _, rec := range records[start:] {
		u := field(rec, col)
		if !strings.HasPrefix(u, "http") {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}
	return urls, nil
}
