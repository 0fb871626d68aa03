// Package similarity scores titles against each other for typo and
// duplicate detection. Scores are integers in [0, 100]; 100 means the two
// titles are equal after case folding.
package similarity

import (
	"sort"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

type Match struct {
	Title string
	Score int
}

func fold(s string) string {
	return norm.NFC.String(cases.Fold().String(strings.TrimSpace(s)))
}

// Ratio is the indel similarity of a and b: 2*LCS / (len(a)+len(b)) over
// runes, scaled to 100 and rounded half up.
func Ratio(a, b string) int {
	fa, fb := fold(a), fold(b)
	if fa == fb {
		return 100
	}
	return fuzzy.Ratio(fa, fb)
}

// TokenSortRatio compares a and b with punctuation dropped and words sorted,
// so "Part II: The Return" and "The Return: Part II" score 100. Non-ASCII
// letters are kept.
func TokenSortRatio(a, b string) int {
	return fuzzy.TokenSortRatio(fold(a), fold(b), false, true)
}

func Score(a, b string) int {
	return max(Ratio(a, b), TokenSortRatio(a, b))
}

// Rank scores every candidate against query and keeps those with
// threshold <= score < 100, best first. Equal scores keep candidate order.
func Rank(candidates []string, query string, threshold int) []Match {
	out := make([]Match, 0)
	for _, c := range candidates {
		s := Score(query, c)
		if s >= threshold && s < 100 {
			out = append(out, Match{Title: c, Score: s})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func FindSimilar(candidates []string, query string, threshold int) []string {
	matches := Rank(candidates, query, threshold)
	titles := make([]string, 0, len(matches))
	for _, m := range matches {
		titles = append(titles, m.Title)
	}
	return titles
}
