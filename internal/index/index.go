// Package index builds the immutable lookup structures the matcher consults:
// an Aho-Corasick automaton over every exact-comparison string and a list of
// token-set candidates for fuzzy name comparison.
package index

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/cloudflare/ahocorasick"

	"github.com/rgdonohue/latin-america-fishing-crime-reporting/internal/domain"
	"github.com/rgdonohue/latin-america-fishing-crime-reporting/internal/normalize"
)

// MinFuzzyNameLength is the shortest single-token name still eligible for
// fuzzy matching. Shorter names stay in the exact automaton only.
const MinFuzzyNameLength = 3

// InvalidEntityError reports a registry entity that can never match and is
// therefore excluded from the run.
type InvalidEntityError struct {
	EntityID string
	Reason   string
}

func (e *InvalidEntityError) Error() string {
	return fmt.Sprintf("invalid entity %s: %s", e.EntityID, e.Reason)
}

// Warning flags a registry oddity that does not stop the run.
type Warning struct {
	Value     string
	EntityIDs []string
}

func (w Warning) String() string {
	return fmt.Sprintf("ambiguous identifier %q shared by %s", w.Value, strings.Join(w.EntityIDs, ", "))
}

// NameCandidate is one fuzzy-comparable entity name.
type NameCandidate struct {
	EntityID string
	Category domain.Category
	Kind     domain.IdentifierKind
	Tokens   []string
	Longest  string
}

// Hit is one exact occurrence of an indexed value inside normalized text.
// Pos is the token index of the value's first occurrence, the same unit the
// matcher's fuzzy windows use.
type Hit struct {
	EntityID string
	Kind     domain.IdentifierKind
	Value    string
	Pos      int
}

type owner struct {
	entityID string
	kind     domain.IdentifierKind
}

// Index is built once per run and read-only afterwards. Scans go through the
// automaton's thread-safe mode, so concurrent matchers share one Index.
type Index struct {
	matcher  *ahocorasick.Matcher
	patterns []string
	owners   [][]owner
	byValue  map[string][]owner
	names    []NameCandidate
	entities []domain.Entity
}

// Build constructs the index from the registry. Entities without a single
// usable identifier are excluded and reported through the returned error
// (joined InvalidEntityError values); the index itself stays usable, so a
// bad row never kills the whole run. Duplicate exact values are kept for
// every owning entity and surfaced as warnings, never dropped.
func Build(entities []domain.Entity) (*Index, []Warning, error) {
	idx := &Index{byValue: map[string][]owner{}}

	var (
		invalid  []error
		patterns []string
		patOwner = map[string][]owner{}
	)

	for _, entity := range entities {
		usable := 0
		for _, id := range entity.Identifiers {
			value := normalize.Identifier(id.Kind, id.Raw)
			if value == "" {
				continue
			}
			usable++

			// Every value, exact-kind or name-kind, participates in the
			// word-boundary exact pass. Patterns are space-padded because
			// normalized text is fully space-delimited.
			padded := " " + value + " "
			if len(patOwner[padded]) == 0 {
				patterns = append(patterns, padded)
			}
			patOwner[padded] = append(patOwner[padded], owner{entity.ID, id.Kind})
			idx.byValue[value] = append(idx.byValue[value], owner{entity.ID, id.Kind})

			if !id.Kind.ExactOnly() {
				if cand, ok := nameCandidate(entity, id.Kind, value); ok {
					idx.names = append(idx.names, cand)
				}
			}
		}

		if usable == 0 {
			invalid = append(invalid, &InvalidEntityError{
				EntityID: entity.ID,
				Reason:   "no usable identifiers",
			})
			continue
		}
		idx.entities = append(idx.entities, entity)
	}

	idx.patterns = patterns
	idx.owners = make([][]owner, len(patterns))
	for i, p := range patterns {
		idx.owners[i] = patOwner[p]
	}
	if len(patterns) > 0 {
		idx.matcher = ahocorasick.NewStringMatcher(patterns)
	}

	return idx, idx.ambiguities(), errors.Join(invalid...)
}

func nameCandidate(entity domain.Entity, kind domain.IdentifierKind, value string) (NameCandidate, bool) {
	tokens := strings.Fields(value)
	if len(tokens) == 1 && len([]rune(tokens[0])) < MinFuzzyNameLength {
		return NameCandidate{}, false
	}

	longest := ""
	for _, t := range tokens {
		if len(t) > len(longest) {
			longest = t
		}
	}

	return NameCandidate{
		EntityID: entity.ID,
		Category: entity.Category,
		Kind:     kind,
		Tokens:   tokens,
		Longest:  longest,
	}, true
}

func (x *Index) ambiguities() []Warning {
	var warnings []Warning
	values := make([]string, 0, len(x.byValue))
	for v := range x.byValue {
		values = append(values, v)
	}
	sort.Strings(values)

	for _, v := range values {
		owners := x.byValue[v]
		if len(owners) < 2 {
			continue
		}
		ids := make([]string, 0, len(owners))
		seen := map[string]bool{}
		for _, o := range owners {
			if !seen[o.entityID] {
				seen[o.entityID] = true
				ids = append(ids, o.entityID)
			}
		}
		if len(ids) > 1 {
			warnings = append(warnings, Warning{Value: v, EntityIDs: ids})
		}
	}
	return warnings
}

// LookupExact returns the IDs of entities owning the given normalized value.
func (x *Index) LookupExact(value string) []string {
	owners := x.byValue[value]
	ids := make([]string, 0, len(owners))
	for _, o := range owners {
		ids = append(ids, o.entityID)
	}
	return ids
}

// HitsIn scans normalized text for every indexed value in one automaton
// pass, respecting word boundaries. Hits come back ordered by token
// position, then entity ID, for deterministic downstream processing.
func (x *Index) HitsIn(text string) []Hit {
	if x.matcher == nil || text == "" {
		return nil
	}

	padded := " " + text + " "
	var hits []Hit
	for _, pi := range x.matcher.MatchThreadSafe([]byte(padded)) {
		pattern := x.patterns[pi]
		// Patterns start with the boundary space, so counting spaces up to
		// the match start yields the token index.
		pos := strings.Count(padded[:strings.Index(padded, pattern)], " ")
		for _, o := range x.owners[pi] {
			hits = append(hits, Hit{
				EntityID: o.entityID,
				Kind:     o.kind,
				Value:    strings.TrimSpace(pattern),
				Pos:      pos,
			})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Pos != hits[j].Pos {
			return hits[i].Pos < hits[j].Pos
		}
		return hits[i].EntityID < hits[j].EntityID
	})
	return hits
}

// NameCandidates returns every fuzzy-comparable entity name.
func (x *Index) NameCandidates() []NameCandidate {
	return x.names
}

// Entities returns the included registry entities in registry order.
func (x *Index) Entities() []domain.Entity {
	return x.entities
}
