// Package evaluator scores a retrieval model's answer to a query against
// the relevance judgements stored for that query.
package evaluator

import (
	"context"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/document"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/retrieval-models/pkg/errors"
)

// Judgements yields the doc ids marked relevant for a keyword.
type Judgements interface {
	Relevant(keyword string) map[string]struct{}
}

// Report is the outcome of one evaluation.
type Report struct {
	Query     string       `json:"query"`
	Model     ranker.Model `json:"model"`
	Precision float64      `json:"precision"`
	Recall    float64      `json:"recall"`
	F1        float64      `json:"f1"`
	Retrieved int          `json:"retrieved"`
	Relevant  int          `json:"relevant"`
	Hits      int          `json:"hits"`
}

type Evaluator struct {
	registry   *ranker.Registry
	judgements Judgements
}

func New(registry *ranker.Registry, judgements Judgements) *Evaluator {
	return &Evaluator{registry: registry, judgements: judgements}
}

// Evaluate runs the query through model over the full result list, with no
// limit applied, and compares the retrieved doc ids with the relevant set
// stored under the query text.
func (e *Evaluator) Evaluate(ctx context.Context, snap *indexer.Snapshot, query string, model ranker.Model, field document.Field) (Report, error) {
	if query == "" {
		return Report{}, apperrors.Invalid("query parameter is required")
	}
	strategy, err := e.registry.Get(model)
	if err != nil {
		return Report{}, err
	}
	results, err := strategy.Rank(ctx, snap, ranker.Request{Query: query, Field: field})
	if err != nil {
		return Report{}, err
	}

	retrieved := make(map[string]struct{}, len(results))
	for _, r := range results {
		retrieved[strconv.Itoa(r.DocID)] = struct{}{}
	}
	rep := Score(retrieved, e.judgements.Relevant(query))
	rep.Query = query
	rep.Model = model
	return rep, nil
}

// Score computes precision, recall and F1 of retrieved against relevant.
// Empty sets give zero rather than NaN.
func Score(retrieved, relevant map[string]struct{}) Report {
	hits := 0
	for id := range retrieved {
		if _, ok := relevant[id]; ok {
			hits++
		}
	}
	rep := Report{Retrieved: len(retrieved), Relevant: len(relevant), Hits: hits}
	if rep.Retrieved > 0 {
		rep.Precision = float64(hits) / float64(rep.Retrieved)
	}
	if rep.Relevant > 0 {
		rep.Recall = float64(hits) / float64(rep.Relevant)
	}
	if rep.Precision+rep.Recall > 0 {
		rep.F1 = 2 * rep.Precision * rep.Recall / (rep.Precision + rep.Recall)
	}
	return rep
}
