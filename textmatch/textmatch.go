// Package textmatch compares extracted text loosely enough to survive
// ligatures, whitespace reflow and typographic punctuation.
package textmatch

import (
	"strings"
	"unicode"

	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

const (
	DefaultThreshold      = 0.5
	DefaultMaxLengthRatio = 3.0
)

var typographic = strings.NewReplacer(
	"‘", "'", "’", "'", "‚", "'", "‛", "'",
	"“", `"`, "”", `"`, "„", `"`, "«", `"`, "»", `"`,
	"‐", "-", "‑", "-", "‒", "-", "–", "-", "—", "-", "−", "-",
	"•", "*", "…", "...",
)

// Normalize folds s for comparison: compatibility characters and
// ligatures are expanded, quotes and dashes reduced to ASCII, case folded
// and all whitespace and invisible characters removed.
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	s = typographic.Replace(s)
	s = cases.Fold().String(s)
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.Is(unicode.Cf, r) || unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

// Ratio is the sequence similarity of a and b in [0, 1], computed over
// runes without junk heuristics. Inputs are compared as given.
func Ratio(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	m := difflib.NewMatcherWithJunk(runes(a), runes(b), false, nil)
	return m.Ratio()
}

func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// Contains reports whether the normalized needle occurs in the normalized
// haystack. An empty needle is never contained.
func Contains(haystack, needle string) bool {
	n := Normalize(needle)
	return n != "" && strings.Contains(Normalize(haystack), n)
}

// Similarity scores how well found reproduces want: 1 when the normalized
// want occurs inside the normalized found, the sequence ratio otherwise.
func Similarity(want, found string) float64 {
	w, f := Normalize(want), Normalize(found)
	if w == "" {
		if f == "" {
			return 1
		}
		return 0
	}
	if strings.Contains(f, w) {
		return 1
	}
	return Ratio(w, f)
}

// Matcher picks the candidate text closest to a query.
type Matcher struct {
	// Threshold a score must exceed to count as a match.
	Threshold float64
	// MaxLengthRatio rejects pairs whose normalized lengths differ more.
	MaxLengthRatio float64
}

func NewMatcher() Matcher {
	return Matcher{Threshold: DefaultThreshold, MaxLengthRatio: DefaultMaxLengthRatio}
}

// Score compares query and candidate. It returns false when the pair is
// rejected by the length pre-filter or either side is empty.
func (m Matcher) Score(query, candidate string) (float64, bool) {
	return m.score(Normalize(query), Normalize(candidate))
}

func (m Matcher) score(q, c string) (float64, bool) {
	lq, lc := len([]rune(q)), len([]rune(c))
	if lq == 0 || lc == 0 {
		return 0, false
	}
	if m.MaxLengthRatio > 0 {
		long, short := float64(max(lq, lc)), float64(min(lq, lc))
		if long/short > m.MaxLengthRatio {
			return 0, false
		}
	}
	if strings.Contains(q, c) || strings.Contains(c, q) {
		return 1, true
	}
	return Ratio(q, c), true
}

// Best returns the index of the highest scoring candidate strictly above
// the threshold, or -1. Ties keep the earlier candidate.
func (m Matcher) Best(query string, candidates []string) (int, float64) {
	q := Normalize(query)
	best, bestScore := -1, 0.0
	for i, c := range candidates {
		s, ok := m.score(q, Normalize(c))
		if !ok || s <= m.Threshold {
			continue
		}
		if best < 0 || s > bestScore {
			best, bestScore = i, s
		}
	}
	return best, bestScore
}
