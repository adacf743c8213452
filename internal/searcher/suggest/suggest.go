// Package suggest completes partial queries from the corpus term and
// phrase frequency table.
package suggest

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/searcher/similarity"
)

// Source is the frequency table suggestions are drawn from.
type Source interface {
	Phrases() []index.Phrase
	PhraseCount(phrase string) int
}

// Suggester answers completion requests.
type Suggester struct {
	Max     int
	Cutoff  float64
	TopN    int
	Matcher similarity.Matcher
}

// Request describes one completion.
type Request struct {
	Prefix string
	// Max caps the result size; zero selects the Suggester default.
	Max int
	// Approximate adds close matches when prefix matches are fewer than Max.
	Approximate bool
}

// Suggest returns terms and phrases starting with the lower-cased prefix,
// most frequent first with ties in lexical order, truncated to Max. Leading
// space in the prefix is ignored.
func (s Suggester) Suggest(ctx context.Context, src Source, req Request) ([]string, error) {
	limit := req.Max
	if limit <= 0 {
		limit = s.Max
	}
	// Trailing space is kept: "graph " completes to phrases only.
	prefix := strings.ToLower(strings.TrimLeftFunc(req.Prefix, unicode.IsSpace))
	if strings.TrimSpace(prefix) == "" || limit <= 0 {
		return []string{}, nil
	}

	phrases := src.Phrases()
	seen := make(map[string]struct{})
	candidates := make([]index.Phrase, 0, limit)
	for _, p := range phrases {
		if strings.HasPrefix(p.Term, prefix) {
			seen[p.Term] = struct{}{}
			candidates = append(candidates, p)
		}
	}

	if req.Approximate && len(candidates) < limit {
		terms := make([]string, len(phrases))
		for i, p := range phrases {
			terms[i] = p.Term
		}
		near, err := s.Matcher.CloseMatches(ctx, prefix, terms, s.TopN, s.Cutoff)
		if err != nil {
			return nil, err
		}
		for _, m := range near {
			if _, dup := seen[m.Term]; dup {
				continue
			}
			seen[m.Term] = struct{}{}
			candidates = append(candidates, index.Phrase{Term: m.Term, Count: src.PhraseCount(m.Term)})
		}
		sort.SliceStable(candidates, func(i, j int) bool {
			if candidates[i].Count != candidates[j].Count {
				return candidates[i].Count > candidates[j].Count
			}
			return candidates[i].Term < candidates[j].Term
		})
	}

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.Term
	}
	return out, nil
}
