package domain

// Tier ranks how certain a match is.
type Tier string

const (
	TierExact       Tier = "exact"
	TierStrongFuzzy Tier = "strong-fuzzy"
	TierWeakFuzzy   Tier = "weak-fuzzy"
)

// Rank orders tiers so the matcher can keep the most confident candidate.
func (t Tier) Rank() int {
	switch t {
	case TierExact:
		return 3
	case TierStrongFuzzy:
		return 2
	case TierWeakFuzzy:
		return 1
	}
	return 0
}

// Span locates a match inside the article's normalized token sequence.
type Span struct {
	Start int
	End   int
}

// MatchCandidate is one surviving (entity, article) match after filtering.
type MatchCandidate struct {
	EntityID   string
	ArticleURL string
	Kind       IdentifierKind
	Tier       Tier
	Span       Span
}

// MatchResult is the aggregated outcome for one registry entity. URLs are
// deduplicated and sorted; an empty URL list is a valid "searched but not
// found" row and still appears in output.
type MatchResult struct {
	EntityID    string
	DisplayName string
	Category    Category
	URLs        []string
	MatchCount  int
}
