package ranker

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/searcher/similarity"
	apperrors "github.com/Adithya-Monish-Kumar-K/retrieval-models/pkg/errors"
)

// FuzzySet scores documents by their membership degree in each query term,
// expanding unknown terms to similar vocabulary entries. Scores are
// normalized so that the best document scores exactly 1.
type FuzzySet struct {
	DefaultThreshold float64
	Matcher          similarity.Matcher
}

func (FuzzySet) Model() Model { return ModelFuzzySet }

func (f FuzzySet) Rank(ctx context.Context, snap *indexer.Snapshot, req Request) ([]Result, error) {
	fi, err := fieldIndex(snap, req.Field)
	if err != nil {
		return nil, err
	}
	threshold := f.DefaultThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	if threshold < 0 || threshold > 1 {
		return nil, apperrors.Invalid("threshold must be in [0,1], got %v", threshold)
	}

	terms := tokenizer.Normalize(req.Query)
	weights := make(map[string]float64, len(terms))
	for _, t := range terms {
		weights[t]++
	}

	// Every occurrence of a term adds its weighted degree, so a repeated
	// term contributes in proportion to the square of its count.
	m := fi.Membership
	scores := make(map[int]float64)
	expansions := make(map[string][]similarity.Match)
	for _, t := range terms {
		weight := weights[t]
		if row, ok := m.Degrees(t); ok {
			for id, degree := range row {
				if degree >= threshold {
					scores[id] += degree * weight
				}
			}
			continue
		}

		matches, seen := expansions[t]
		if !seen {
			var err error
			if matches, err = f.Matcher.Matches(ctx, t, m.Terms(), threshold); err != nil {
				return nil, err
			}
			expansions[t] = matches
		}
		for _, match := range matches {
			row, _ := m.Degrees(match.Term)
			for id, degree := range row {
				if degree*match.Score >= threshold {
					scores[id] += degree * weight * match.Score
				}
			}
		}
	}

	normalize(scores)
	return rank(scores), nil
}

// normalize divides every score by the maximum.
func normalize(scores map[int]float64) {
	best := 0.0
	for _, s := range scores {
		if s > best {
			best = s
		}
	}
	if best <= 0 {
		return
	}
	for id, s := range scores {
		scores[id] = s / best
	}
}
