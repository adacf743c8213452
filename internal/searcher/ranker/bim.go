package ranker

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/indexer/tokenizer"
)

// BinaryIndependence ranks by the Dice coefficient between binary term
// presence vectors of the query and each candidate document.
type BinaryIndependence struct{}

func (BinaryIndependence) Model() Model { return ModelBinaryIndependence }

func (BinaryIndependence) Rank(ctx context.Context, snap *indexer.Snapshot, req Request) ([]Result, error) {
	fi, err := fieldIndex(snap, req.Field)
	if err != nil {
		return nil, err
	}
	x := fi.Index

	// The query vector has a 1 for every distinct query term in the
	// vocabulary; terms outside it cannot intersect any document.
	query := make([]string, 0)
	for _, t := range distinct(tokenizer.Normalize(req.Query)) {
		if _, ok := x.Posting(t); ok {
			query = append(query, t)
		}
	}
	if len(query) == 0 {
		return []Result{}, nil
	}

	overlap := make(map[int]int)
	for _, t := range query {
		p, _ := x.Posting(t)
		for _, id := range p.DocIDs {
			overlap[id]++
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scores := make(map[int]float64, len(overlap))
	for id, common := range overlap {
		if s := Dice(common, len(query), x.DistinctTerms(id)); s > 0 {
			scores[id] = s
		}
	}
	return rank(scores), nil
}

// Dice is 2|q∩d| / (|q| + |d|) over binary vectors, zero when both are
// empty.
func Dice(intersection, querySize, docSize int) float64 {
	total := querySize + docSize
	if total == 0 {
		return 0
	}
	return 2 * float64(intersection) / float64(total)
}
