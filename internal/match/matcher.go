// Package match finds candidate entity mentions inside one article: an
// exact automaton pass first, then windowed fuzzy comparison of name token
// sets, followed by context filtering and per-entity collapse.
package match

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/rgdonohue/latin-america-fishing-crime-reporting/internal/domain"
	"github.com/rgdonohue/latin-america-fishing-crime-reporting/internal/index"
	"github.com/rgdonohue/latin-america-fishing-crime-reporting/internal/normalize"
)

// Config carries the heuristic knobs. Thresholds and the cue vocabulary are
// deliberately configuration, not constants: they need empirical tuning per
// corpus.
type Config struct {
	// StrongThreshold is the window similarity at which a fuzzy match is
	// accepted outright.
	StrongThreshold float64
	// WeakThreshold is the floor below which windows are discarded. Between
	// the two thresholds additional guards apply (window size, longest
	// token) and the candidate lands in the weak tier.
	WeakThreshold float64
	// TokenPairThreshold is the per-token similarity above which two tokens
	// count as the same word for the overlap score.
	TokenPairThreshold float64
	// ContextCues are tokens whose presence anywhere in an article confirms
	// maritime context for weak vessel matches.
	ContextCues []string
}

// DefaultConfig mirrors the vocabulary the source reports actually use:
// Spanish and English maritime terms. Thresholds were picked against a
// labeled sample of the 2024 report corpus.
func DefaultConfig() Config {
	return Config{
		StrongThreshold:    0.84,
		WeakThreshold:      0.66,
		TokenPairThreshold: 0.75,
		ContextCues: []string{
			"ship", "vessel", "boat", "fleet",
			"barco", "embarcacion", "navio", "buque", "nave", "flota",
		},
	}
}

// Matcher scans articles against an immutable index. Safe for concurrent
// use; it holds no mutable state between calls.
type Matcher struct {
	index *index.Index
	cfg   Config
	cues  map[string]struct{}
}

// New builds a matcher. Cue tokens are normalized so config files may carry
// accented forms ("embarcación").
func New(idx *index.Index, cfg Config) *Matcher {
	cues := make(map[string]struct{}, len(cfg.ContextCues))
	for _, cue := range cfg.ContextCues {
		for _, tok := range normalize.Tokens(cue) {
			cues[tok] = struct{}{}
		}
	}
	return &Matcher{index: idx, cfg: cfg, cues: cues}
}

// Match returns at most one candidate per entity for the given article.
// Malformed or empty text yields zero candidates, never an error.
func (m *Matcher) Match(article domain.Article) []domain.MatchCandidate {
	text := normalize.Text(article.RawText)
	if text == "" {
		return nil
	}
	tokens := strings.Fields(text)

	best := map[string]domain.MatchCandidate{}

	// Exact pass: one automaton sweep finds every identifier value present
	// at word boundaries. Hit positions are token indices, the same unit
	// fuzzy windows produce, so spans from both passes compare directly.
	for _, hit := range m.index.HitsIn(text) {
		width := len(strings.Fields(hit.Value))
		keep(best, domain.MatchCandidate{
			EntityID:   hit.EntityID,
			ArticleURL: article.URL,
			Kind:       hit.Kind,
			Tier:       domain.TierExact,
			Span:       domain.Span{Start: hit.Pos, End: hit.Pos + width},
		})
	}

	// Fuzzy pass over name candidates not already matched exactly.
	hasCue := m.hasContextCue(tokens)
	for _, cand := range m.index.NameCandidates() {
		if prev, ok := best[cand.EntityID]; ok && prev.Tier == domain.TierExact {
			continue
		}

		tier, span, found := m.scanWindows(cand, tokens)
		if !found {
			continue
		}
		if tier == domain.TierWeakFuzzy && !m.acceptWeak(cand, hasCue) {
			continue
		}

		keep(best, domain.MatchCandidate{
			EntityID:   cand.EntityID,
			ArticleURL: article.URL,
			Kind:       cand.Kind,
			Tier:       tier,
			Span:       span,
		})
	}

	out := make([]domain.MatchCandidate, 0, len(best))
	for _, c := range best {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Span.Start != out[j].Span.Start {
			return out[i].Span.Start < out[j].Span.Start
		}
		return out[i].EntityID < out[j].EntityID
	})
	return out
}

// acceptWeak applies the false-positive filter for the weak tier. Maritime
// entities need a context cue somewhere in the article; plants and topics
// have no reliable cue vocabulary, so their weak matches are dropped
// entirely and only exact/strong tiers survive.
func (m *Matcher) acceptWeak(cand index.NameCandidate, hasCue bool) bool {
	if cand.Category.Maritime() {
		return hasCue
	}
	return false
}

func (m *Matcher) hasContextCue(tokens []string) bool {
	for _, tok := range tokens {
		if _, ok := m.cues[tok]; ok {
			return true
		}
	}
	return false
}

// scanWindows slides windows of the entity's token count ±1 over the
// article, tolerating one inserted or dropped token. The earliest window of
// the best surviving tier wins, keeping results independent of scan order.
func (m *Matcher) scanWindows(cand index.NameCandidate, tokens []string) (domain.Tier, domain.Span, bool) {
	var (
		bestTier  domain.Tier
		bestSpan  domain.Span
		bestFound bool
	)

	n := len(cand.Tokens)
	for width := n - 1; width <= n+1; width++ {
		if width < 1 || width > len(tokens) {
			continue
		}
		for start := 0; start+width <= len(tokens); start++ {
			window := tokens[start : start+width]
			score := m.windowScore(cand.Tokens, window)
			if score < m.cfg.WeakThreshold {
				continue
			}

			tier := domain.TierWeakFuzzy
			if score >= m.cfg.StrongThreshold {
				tier = domain.TierStrongFuzzy
			} else if !longestTokenPresent(cand.Longest, window) {
				continue
			}

			span := domain.Span{Start: start, End: start + width}
			if !bestFound || tier.Rank() > bestTier.Rank() ||
				(tier.Rank() == bestTier.Rank() && span.Start < bestSpan.Start) {
				bestTier, bestSpan, bestFound = tier, span, true
			}
		}
	}

	return bestTier, bestSpan, bestFound
}

// windowScore combines mean per-token edit similarity with a Jaccard-style
// overlap where near-identical token pairs count as shared members.
func (m *Matcher) windowScore(entityTokens, window []string) float64 {
	if len(entityTokens) == 0 || len(window) == 0 {
		return 0
	}

	used := make([]bool, len(window))
	var simSum float64
	shared := 0

	for _, et := range entityTokens {
		bestSim := 0.0
		bestJ := -1
		for j, wt := range window {
			if used[j] {
				continue
			}
			if sim := tokenSimilarity(et, wt); sim > bestSim {
				bestSim, bestJ = sim, j
			}
		}
		simSum += bestSim
		if bestJ >= 0 && bestSim >= m.cfg.TokenPairThreshold {
			used[bestJ] = true
			shared++
		}
	}

	meanSim := simSum / float64(len(entityTokens))
	union := len(entityTokens) + len(window) - shared
	jaccard := float64(shared) / float64(union)

	return 0.5*meanSim + 0.5*jaccard
}

// tokenSimilarity is 1 minus the normalized edit distance of two tokens.
func tokenSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(maxLen)
}

func longestTokenPresent(longest string, window []string) bool {
	for _, wt := range window {
		if levenshtein.ComputeDistance(longest, wt) <= 1 {
			return true
		}
	}
	return false
}

// keep enforces the per-entity collapse: highest tier wins, ties keep the
// earliest span.
func keep(best map[string]domain.MatchCandidate, c domain.MatchCandidate) {
	prev, ok := best[c.EntityID]
	if !ok || c.Tier.Rank() > prev.Tier.Rank() ||
		(c.Tier.Rank() == prev.Tier.Rank() && c.Span.Start < prev.Span.Start) {
		best[c.EntityID] = c
	}
}
