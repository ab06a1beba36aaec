// Package aggregate merges per-article match candidates into one result per
// registry entity, deduplicating article URLs and fixing a deterministic
// order regardless of how the matching work was scheduled.
package aggregate

import (
	"fmt"
	"sort"

	"github.com/rgdonohue/latin-america-fishing-crime-reporting/internal/domain"
)

// Aggregate produces one MatchResult per entity, in registry order, for all
// entities, unmatched ones included, with empty URL lists. URLs are
// deduplicated and sorted lexicographically so two runs over the same corpus
// emit identical tables. A candidate referencing an entity outside the
// registry is a programmer error and is returned as such.
func Aggregate(entities []domain.Entity, candidates []domain.MatchCandidate) ([]domain.MatchResult, error) {
	position := make(map[string]int, len(entities))
	urls := make([]map[string]struct{}, len(entities))
	for i, e := range entities {
		position[e.ID] = i
		urls[i] = map[string]struct{}{}
	}

	for _, c := range candidates {
		i, ok := position[c.EntityID]
		if !ok {
			return nil, fmt.Errorf("candidate for article %s references unknown entity %q", c.ArticleURL, c.EntityID)
		}
		urls[i][c.ArticleURL] = struct{}{}
	}

	results := make([]domain.MatchResult, len(entities))
	for i, e := range entities {
		list := make([]string, 0, len(urls[i]))
		for u := range urls[i] {
			list = append(list, u)
		}
		sort.Strings(list)
		results[i] = domain.MatchResult{
			EntityID:    e.ID,
			DisplayName: e.DisplayName,
			Category:    e.Category,
			URLs:        list,
			MatchCount:  len(list),
		}
	}
	return results, nil
}

// ByCategory splits results into per-category tables, preserving registry
// order inside each table. Every category is present even when empty, since
// every output sheet must exist.
func ByCategory(results []domain.MatchResult) map[domain.Category][]domain.MatchResult {
	tables := make(map[domain.Category][]domain.MatchResult, len(domain.Categories))
	for _, c := range domain.Categories {
		tables[c] = []domain.MatchResult{}
	}
	for _, r := range results {
		tables[r.Category] = append(tables[r.Category], r)
	}
	return tables
}
