// Package similarity detects near-duplicate names with Levenshtein distance.
package similarity

import (
	"cmp"
	"slices"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Matching thresholds
const (
	MinQueryLength = 2
	MinScore       = 0.3
	MaxSuggestions = 5
)

// Candidate is an existing record that a query may duplicate
type Candidate struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Suggestion is a candidate with its similarity to the query
type Suggestion struct {
	Candidate
	Score float64 `json:"score"`
}

// Result is the outcome of checking a query against existing names.
// When Exact is set Suggestions is empty.
type Result struct {
	Exact       *Candidate   `json:"exact"`
	Suggestions []Suggestion `json:"suggestions"`
}

// fold composes s to NFC and case folds it one rune at a time, so the
// result has exactly one rune per character of the composed input.
func fold(s string) []rune {
	runes := []rune(norm.NFC.String(s))
	for i, r := range runes {
		runes[i] = foldRune(r)
	}
	return runes
}

// foldRune maps every rune of a simple case folding orbit to its smallest
// member. Full folding is avoided since it can expand a rune (ß to ss).
func foldRune(r rune) rune {
	folded := r
	for f := unicode.SimpleFold(r); f != r; f = unicode.SimpleFold(f) {
		folded = min(folded, f)
	}
	return folded
}

// Distance returns the case-insensitive edit distance between a and b
func Distance(a, b string) int {
	return distance(fold(a), fold(b))
}

func distance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	// Two rows of the (len(a)+1) x (len(b)+1) table are enough.
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1]
				continue
			}
			curr[j] = 1 + min(prev[j], curr[j-1], prev[j-1])
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// Score returns a similarity in [0,1]; identical strings score 1
func Score(a, b string) float64 {
	return score(fold(a), fold(b))
}

func score(a, b []rune) float64 {
	longest := max(len(a), len(b))
	if longest == 0 {
		return 1
	}
	return 1 - float64(distance(a, b))/float64(longest)
}

// Suggest ranks candidates by similarity to query. Queries shorter than
// MinQueryLength return nothing. Ties keep their input order.
func Suggest(query string, candidates []Candidate) []Suggestion {
	q := fold(query)
	if len(q) < MinQueryLength {
		return []Suggestion{}
	}

	suggestions := make([]Suggestion, 0, len(candidates))
	for _, c := range candidates {
		s := score(q, fold(c.Name))
		if s > MinScore {
			suggestions = append(suggestions, Suggestion{Candidate: c, Score: s})
		}
	}

	slices.SortStableFunc(suggestions, func(x, y Suggestion) int {
		return cmp.Compare(y.Score, x.Score)
	})

	if len(suggestions) > MaxSuggestions {
		suggestions = suggestions[:MaxSuggestions]
	}
	return suggestions
}

// FindExact returns the first candidate whose name equals query ignoring case
func FindExact(query string, candidates []Candidate) (Candidate, bool) {
	q := fold(query)
	for _, c := range candidates {
		if slices.Equal(fold(c.Name), q) {
			return c, true
		}
	}
	return Candidate{}, false
}

// Check looks for an exact duplicate first and only ranks suggestions
// when none exists.
func Check(query string, candidates []Candidate) Result {
	if c, ok := FindExact(query, candidates); ok {
		return Result{Exact: &c, Suggestions: []Suggestion{}}
	}
	return Result{Suggestions: Suggest(query, candidates)}
}
