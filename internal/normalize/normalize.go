// Package normalize canonicalizes article text and registry identifiers
// into a comparable form: diacritics folded, case lowered, punctuation
// collapsed, corporate suffixes stripped at token boundaries.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/rgdonohue/latin-america-fishing-crime-reporting/internal/domain"
)

// Legal-entity suffixes seen in Latin American company registries, as token
// sequences after punctuation collapse ("s.a.c." tokenizes to "s a c").
// Longer sequences are listed first so "s a de c v" strips before "s a".
var corporateSuffixes = [][]string{
	{"s", "de", "r", "l", "de", "c", "v"},
	{"s", "a", "p", "i", "de", "c", "v"},
	{"s", "a", "de", "c", "v"},
	{"sa", "de", "cv"},
	{"cia", "ltda"},
	{"s", "a", "c"},
	{"s", "r", "l"},
	{"s", "a"},
	{"sac"},
	{"srl"},
	{"ltda"},
	{"inc"},
	{"corp"},
	{"sa"},
}

// Text canonicalizes free article text: diacritics folded, lower-cased,
// punctuation collapsed to spaces, corporate-suffix token runs removed.
// Empty or whitespace-only input yields "".
func Text(s string) string {
	tokens := stripSuffixRuns(tokenize(fold(s)), false)
	return strings.Join(tokens, " ")
}

// Tokens returns the normalized token sequence of free text, used by the
// matcher for windowed fuzzy search.
func Tokens(s string) []string {
	return stripSuffixRuns(tokenize(fold(s)), false)
}

// Name canonicalizes a legal name or keyword: folding and collapsing as for
// free text, plus removal of parenthesized qualifiers and quotes before
// trailing corporate suffixes are stripped. Never strips a name down to
// nothing. Idempotent.
func Name(s string) string {
	s = dropParenthesized(fold(s))
	s = strings.NewReplacer(`"`, "", "'", "").Replace(s)
	tokens := stripSuffixRuns(tokenize(s), true)
	return strings.Join(tokens, " ")
}

// Identifier normalizes one registry identifier according to its kind.
// Exact kinds (IMO, registration number) keep alphanumerics only so that
// formatting variance never causes a false negative; name kinds go through
// Name.
func Identifier(kind domain.IdentifierKind, raw string) string {
	if kind.ExactOnly() {
		return alphanumeric(fold(raw))
	}
	return Name(raw)
}

// fold removes combining marks after NFD decomposition and lower-cases. The
// transform chain is stateful, so it is built per call rather than shared;
// every matcher worker folds text concurrently.
func fold(s string) string {
	foldMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(foldMarks, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// tokenize collapses every non-alphanumeric rune to a separator.
func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func alphanumeric(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func dropParenthesized(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch {
		case r == '(':
			depth++
		case r == ')':
			if depth > 0 {
				depth--
			}
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// stripSuffixRuns removes corporate-suffix token sequences. In trailingOnly
// mode (names) only suffixes at the end of the token list are stripped,
// repeatedly, but at least one token always survives. Otherwise (free text)
// suffix runs are removed wherever they follow another token, which is where
// a company name inside running text ends.
func stripSuffixRuns(tokens []string, trailingOnly bool) []string {
	if trailingOnly {
		for {
			trimmed, ok := trimTrailingSuffix(tokens)
			if !ok {
				return tokens
			}
			tokens = trimmed
		}
	}

	out := make([]string, 0, len(tokens))
	for i := 0; i < len(tokens); {
		if n := suffixRunAt(tokens, i); n > 0 && len(out) > 0 {
			i += n
			continue
		}
		out = append(out, tokens[i])
		i++
	}
	return out
}

func trimTrailingSuffix(tokens []string) ([]string, bool) {
	for _, suffix := range corporateSuffixes {
		cut := len(tokens) - len(suffix)
		if cut < 1 {
			continue
		}
		if equalTokens(tokens[cut:], suffix) {
			return tokens[:cut], true
		}
	}
	return tokens, false
}

func suffixRunAt(tokens []string, i int) int {
	for _, suffix := range corporateSuffixes {
		if i+len(suffix) <= len(tokens) && equalTokens(tokens[i:i+len(suffix)], suffix) {
			return len(suffix)
		}
	}
	return 0
}

func equalTokens(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
