// Package feedback keeps the relevance judgements users submit for
// keyword/document pairs and persists them through a pluggable Store.
package feedback

import (
	"context"
	"sort"
)

// Relevance labels understood by the evaluator. Other labels are stored
// verbatim but never count as relevant.
const (
	LabelRelevant    = "relevant"
	LabelNotRelevant = "not relevant"
)

// Table maps keyword -> doc id -> relevance label.
type Table map[string]map[string]string

// Judgement is one stored label for a keyword.
type Judgement struct {
	DocID     string `json:"doc_id" db:"doc_id"`
	Relevance string `json:"relevance" db:"relevance"`
}

//go:generate mockgen -source=store.go -destination=mock_store_test.go -package=feedback

// Store persists the whole Table. Save replaces the stored copy.
type Store interface {
	Load(ctx context.Context) (Table, error)
	Save(ctx context.Context, t Table) error
	Close() error
}

// Clone returns a deep copy of t.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	for kw, docs := range t {
		m := make(map[string]string, len(docs))
		for id, label := range docs {
			m[id] = label
		}
		out[kw] = m
	}
	return out
}

// Judgements lists the labels stored for keyword sorted by doc id.
func (t Table) Judgements(keyword string) []Judgement {
	docs := t[keyword]
	out := make([]Judgement, 0, len(docs))
	for id, label := range docs {
		out = append(out, Judgement{DocID: id, Relevance: label})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DocID < out[j].DocID })
	return out
}
