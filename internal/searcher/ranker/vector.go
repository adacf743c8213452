package ranker

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/indexer/tokenizer"
)

// VectorSpace is the TF-IDF / cosine model. The two match policies produce
// scores on different scales and must not be mixed in one ranking.
type VectorSpace struct {
	DefaultMatch MatchPolicy
}

func (VectorSpace) Model() Model { return ModelVectorSpace }

func (v VectorSpace) Rank(ctx context.Context, snap *indexer.Snapshot, req Request) ([]Result, error) {
	fi, err := fieldIndex(snap, req.Field)
	if err != nil {
		return nil, err
	}
	terms := tokenizer.Normalize(req.Query)
	if len(terms) == 0 || fi.Index.NumDocuments() == 0 {
		return []Result{}, nil
	}

	policy := req.Match
	if policy == "" {
		policy = v.DefaultMatch
	}
	if policy == "" {
		policy = MatchPrefix
	}

	var scores map[int]float64
	switch policy {
	case MatchSubstring:
		scores, err = substringScores(ctx, fi.Index, terms)
	default:
		scores, err = prefixScores(ctx, fi.Index, terms)
	}
	if err != nil {
		return nil, err
	}
	return rank(scores), nil
}

// substringScores adds idf(q) * tfidf(t, d) for every vocabulary term t
// that contains the query term q.
func substringScores(ctx context.Context, x *index.InvertedIndex, terms []string) (map[int]float64, error) {
	scores := make(map[int]float64)
	vocab := x.Vocabulary()
	for _, q := range terms {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		idf := x.IDF(q)
		for _, t := range vocab {
			if !strings.Contains(t, q) {
				continue
			}
			p, _ := x.Posting(t)
			for _, id := range p.DocIDs {
				scores[id] += idf * x.TFIDF(t, id)
			}
		}
	}
	return scores, nil
}

// prefixScores compares a binary query vector against a single-term
// document vector {t: tf} for every vocabulary term t starting with a
// query term. The cosine is nonzero only when t is itself a query term,
// but every document reached through a prefix match is retained.
func prefixScores(ctx context.Context, x *index.InvertedIndex, terms []string) (map[int]float64, error) {
	query := distinct(terms)
	inQuery := make(map[string]struct{}, len(query))
	for _, q := range query {
		inQuery[q] = struct{}{}
	}
	queryNorm := math.Sqrt(float64(len(query)))

	scores := make(map[int]float64)
	vocab := x.Vocabulary()
	for _, q := range query {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, t := range prefixRange(vocab, q) {
			p, _ := x.Posting(t)
			_, exact := inQuery[t]
			for _, id := range p.DocIDs {
				tf := float64(p.TermFrequency[id])
				dot := 0.0
				if exact {
					dot = tf
				}
				scores[id] += cosine(dot, queryNorm, tf)
			}
		}
	}
	return scores, nil
}

// prefixRange returns the contiguous run of sorted vocab starting with p.
func prefixRange(vocab []string, p string) []string {
	lo := sort.SearchStrings(vocab, p)
	end := lo
	for end < len(vocab) && strings.HasPrefix(vocab[end], p) {
		end++
	}
	return vocab[lo:end]
}

func cosine(dot, queryNorm, docNorm float64) float64 {
	if queryNorm == 0 || docNorm == 0 {
		return 0
	}
	return dot / (queryNorm * docNorm)
}
