package ranker

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/indexer/tokenizer"
)

// NonOverlappingLists merges the document lists of every query term into
// one set, counting each document once, and scores it by the summed
// TF-IDF of the query terms it contains.
type NonOverlappingLists struct{}

func (NonOverlappingLists) Model() Model { return ModelNonOverlappingLists }

func (NonOverlappingLists) Rank(ctx context.Context, snap *indexer.Snapshot, req Request) ([]Result, error) {
	fi, err := fieldIndex(snap, req.Field)
	if err != nil {
		return nil, err
	}
	x := fi.Index
	terms := tokenizer.Normalize(req.Query)

	candidates := make(map[int]struct{})
	for _, t := range distinct(terms) {
		if p, ok := x.Posting(t); ok {
			for _, id := range p.DocIDs {
				candidates[id] = struct{}{}
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scores := make(map[int]float64, len(candidates))
	for id := range candidates {
		score := 0.0
		for _, t := range terms {
			score += x.TFIDF(t, id)
		}
		scores[id] = score
	}
	return rank(scores), nil
}
