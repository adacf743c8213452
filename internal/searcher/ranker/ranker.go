// Package ranker implements the interchangeable retrieval models. Every
// model satisfies Strategy and reads only the immutable snapshot, so a
// single Strategy value serves concurrent queries.
package ranker

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/document"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/searcher/similarity"
	apperrors "github.com/Adithya-Monish-Kumar-K/retrieval-models/pkg/errors"
)

// Model names a retrieval model.
type Model string

const (
	ModelVectorSpace         Model = "vector"
	ModelBinaryIndependence  Model = "bim"
	ModelFuzzySet            Model = "fuzzy"
	ModelProximalNodes       Model = "proximal"
	ModelNonOverlappingLists Model = "nolm"
)

// Models lists every model in a stable order.
var Models = []Model{
	ModelVectorSpace,
	ModelBinaryIndependence,
	ModelFuzzySet,
	ModelProximalNodes,
	ModelNonOverlappingLists,
}

// ParseModel maps a request value onto a Model.
func ParseModel(s string) (Model, error) {
	m := Model(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Models {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", apperrors.ErrUnknownModel, s)
}

// MatchPolicy selects how the vector-space model matches query terms
// against the vocabulary.
type MatchPolicy string

const (
	// MatchPrefix accumulates cosine similarity over every vocabulary term
	// starting with the query term.
	MatchPrefix MatchPolicy = "prefix"
	// MatchSubstring accumulates idf-weighted TF-IDF over every vocabulary
	// term containing the query term.
	MatchSubstring MatchPolicy = "substring"
)

// ParseMatchPolicy maps a request value onto a MatchPolicy. The empty
// string yields the zero value, which lets the strategy pick its default.
func ParseMatchPolicy(s string) (MatchPolicy, error) {
	switch p := MatchPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", MatchPrefix, MatchSubstring:
		return p, nil
	default:
		return "", apperrors.Invalid("unknown match policy %q", s)
	}
}

// Request carries a query and the per-model knobs.
type Request struct {
	Query string
	// Field selects the index. Proximal-nodes ignores it.
	Field document.Field
	// Threshold is the fuzzy-set cutoff; nil selects the configured default.
	Threshold *float64
	// Match is the vector-space matching policy; empty selects the default.
	Match MatchPolicy
}

// Result is one ranked document. Rank is 1-based. Scored is false for
// models that only decide membership.
type Result struct {
	DocID  int
	Score  float64
	Rank   int
	Scored bool
}

// Strategy ranks documents of a snapshot against a query.
type Strategy interface {
	Model() Model
	Rank(ctx context.Context, snap *indexer.Snapshot, req Request) ([]Result, error)
}

// Options carries the defaults shared by the strategies.
type Options struct {
	FuzzyThreshold    float64
	ApproximateCutoff float64
	ApproximateTopN   int
	MaxVocabularyScan int
	DefaultMatch      MatchPolicy
}

// DefaultOptions mirrors the stock configuration.
func DefaultOptions() Options {
	return Options{
		FuzzyThreshold:    0.30,
		ApproximateCutoff: 0.6,
		ApproximateTopN:   5,
		DefaultMatch:      MatchPrefix,
	}
}

// Registry dispatches a Model to its Strategy.
type Registry struct {
	strategies map[Model]Strategy
}

// NewRegistry builds every strategy with opts.
func NewRegistry(opts Options) *Registry {
	matcher := similarity.Matcher{Limit: opts.MaxVocabularyScan}
	r := &Registry{strategies: make(map[Model]Strategy, len(Models))}
	for _, s := range []Strategy{
		VectorSpace{DefaultMatch: opts.DefaultMatch},
		BinaryIndependence{},
		FuzzySet{DefaultThreshold: opts.FuzzyThreshold, Matcher: matcher},
		ProximalNodes{Cutoff: opts.ApproximateCutoff, TopN: opts.ApproximateTopN, Matcher: matcher},
		NonOverlappingLists{},
	} {
		r.strategies[s.Model()] = s
	}
	return r
}

// Get returns the strategy for m.
func (r *Registry) Get(m Model) (Strategy, error) {
	s, ok := r.strategies[m]
	if !ok {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownModel, m)
	}
	return s, nil
}

func fieldIndex(snap *indexer.Snapshot, f document.Field) (*indexer.FieldIndex, error) {
	if f == "" {
		f = document.FieldFullText
	}
	fi, ok := snap.Field(f)
	if !ok {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownField, f)
	}
	return fi, nil
}

// distinct drops repeated terms, keeping first-seen order.
func distinct(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// rank orders scores by descending score then ascending doc id and
// assigns 1-based ranks.
func rank(scores map[int]float64) []Result {
	out := make([]Result, 0, len(scores))
	for id, s := range scores {
		out = append(out, Result{DocID: id, Score: s, Scored: true})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].DocID < out[j].DocID
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
