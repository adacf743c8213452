// Package similarity scores how alike two terms are and finds the closest
// vocabulary entries for a misspelled or partial query term. Every model
// that expands a query approximately, and the suggestion engine, share it.
package similarity

import (
	"context"
	"sort"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// checkEvery is how many candidates are scanned between cancellation checks.
const checkEvery = 256

// Match is a candidate term and its similarity to the query word.
type Match struct {
	Term  string
	Score float64
}

// Ratio is 1 - editDistance/max(len(a), len(b)) over runes: 1 for equal
// strings, 0 for strings with nothing in common. Two empty strings are
// equal.
func Ratio(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := max(la, lb)
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

// upperBound is the best ratio two strings of these lengths can reach,
// since the edit distance is at least the length difference.
func upperBound(la, lb int) float64 {
	longest := max(la, lb)
	if longest == 0 {
		return 1
	}
	diff := la - lb
	if diff < 0 {
		diff = -diff
	}
	return 1 - float64(diff)/float64(longest)
}

// Matcher scans candidate lists. Limit caps how many edit distances a
// single scan computes; zero means no cap. Candidates pruned by length do
// not count. When the list is longer than Limit it is visited in strides,
// so a capped scan samples every region of a sorted vocabulary rather
// than only its head.
type Matcher struct {
	Limit int
}

// Matches returns every candidate whose ratio to word is at least
// threshold, ordered by descending score then term.
func (m Matcher) Matches(ctx context.Context, word string, candidates []string, threshold float64) ([]Match, error) {
	wl := utf8.RuneCountInString(word)
	n := len(candidates)
	step := 1
	if m.Limit > 0 && n > m.Limit {
		step = (n + m.Limit - 1) / m.Limit
	}

	out := make([]Match, 0)
	visited, computed := 0, 0
scan:
	for offset := 0; offset < step; offset++ {
		for i := offset; i < n; i += step {
			if visited%checkEvery == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}
			visited++
			c := candidates[i]
			if upperBound(wl, utf8.RuneCountInString(c)) < threshold {
				continue
			}
			if m.Limit > 0 && computed >= m.Limit {
				break scan
			}
			computed++
			if s := Ratio(word, c); s >= threshold {
				out = append(out, Match{Term: c, Score: s})
			}
		}
	}
	sortMatches(out)
	return out, nil
}

// CloseMatches returns at most n candidates whose ratio to word is at
// least cutoff, best first.
func (m Matcher) CloseMatches(ctx context.Context, word string, candidates []string, n int, cutoff float64) ([]Match, error) {
	if n <= 0 {
		return nil, nil
	}
	out, err := m.Matches(ctx, word, candidates, cutoff)
	if err != nil {
		return nil, err
	}
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func sortMatches(ms []Match) {
	sort.SliceStable(ms, func(i, j int) bool {
		if ms[i].Score != ms[j].Score {
			return ms[i].Score > ms[j].Score
		}
		return ms[i].Term < ms[j].Term
	})
}
