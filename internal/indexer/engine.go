// Package indexer builds the read-only search snapshot at startup: one
// inverted index and fuzzy membership table per document field, plus the
// stemmed proximity graph over whole documents.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/document"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/indexer/graph"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/pkg/tracing"
)

// cancelCheckEvery is how many documents are indexed between context checks.
const cancelCheckEvery = 512

// FieldIndex is the per-field slice of a snapshot.
type FieldIndex struct {
	Index      *index.InvertedIndex
	Membership *index.Membership
}

// Snapshot is the immutable state every query reads. It is safe for
// concurrent use without locking.
type Snapshot struct {
	documents []document.Document
	fields    map[document.Field]*FieldIndex
	graph     *graph.Graph
	builtAt   time.Time
	took      time.Duration
}

// Stats summarises a snapshot.
type Stats struct {
	Documents     int                    `json:"documents"`
	Terms         map[document.Field]int `json:"terms"`
	Phrases       int                    `json:"phrases"`
	GraphTerms    int                    `json:"graph_terms"`
	GraphEdges    int                    `json:"graph_edges"`
	BuiltAt       time.Time              `json:"built_at"`
	BuildDuration string                 `json:"build_duration"`
}

// Documents returns the corpus in id order. Callers must not modify it.
func (s *Snapshot) Documents() []document.Document {
	return s.documents
}

// Document returns the document with id.
func (s *Snapshot) Document(id int) (document.Document, bool) {
	if id < 0 || id >= len(s.documents) {
		return document.Document{}, false
	}
	return s.documents[id], true
}

// NumDocuments is the corpus size.
func (s *Snapshot) NumDocuments() int {
	return len(s.documents)
}

// Field returns the index built for f.
func (s *Snapshot) Field(f document.Field) (*FieldIndex, bool) {
	fi, ok := s.fields[f]
	return fi, ok
}

// Graph returns the proximity graph.
func (s *Snapshot) Graph() *graph.Graph {
	return s.graph
}

// Phrases returns the full-text term/phrase frequency table.
func (s *Snapshot) Phrases() []index.Phrase {
	return s.fields[document.FieldFullText].Index.Phrases()
}

// PhraseCount returns the full-text frequency of a term or phrase.
func (s *Snapshot) PhraseCount(phrase string) int {
	return s.fields[document.FieldFullText].Index.PhraseCount(phrase)
}

func (s *Snapshot) Stats() Stats {
	terms := make(map[document.Field]int, len(s.fields))
	for f, fi := range s.fields {
		terms[f] = len(fi.Index.Vocabulary())
	}
	return Stats{
		Documents:     len(s.documents),
		Terms:         terms,
		Phrases:       len(s.Phrases()),
		GraphTerms:    len(s.graph.TermNodes()),
		GraphEdges:    s.graph.NumEdges(),
		BuiltAt:       s.builtAt,
		BuildDuration: s.took.String(),
	}
}

// Engine builds snapshots.
type Engine struct {
	logger  *slog.Logger
	tracing bool
}

func NewEngine(cfg config.TracingConfig) *Engine {
	return &Engine{
		logger:  slog.Default().With("component", "indexer"),
		tracing: cfg.Enabled,
	}
}

// Load reads the corpus directory and builds a snapshot from it.
func (e *Engine) Load(ctx context.Context, cfg config.CorpusConfig) (*Snapshot, error) {
	docs, err := document.LoadDir(ctx, cfg.Dir, cfg.Extensions)
	if err != nil {
		return nil, fmt.Errorf("loading corpus: %w", err)
	}
	return e.Build(ctx, docs)
}

// Build indexes docs. Document ids must equal their position in docs. Each
// field and the graph are built concurrently; the result is never mutated
// afterwards.
func (e *Engine) Build(ctx context.Context, docs []document.Document) (*Snapshot, error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "index.build", uuid.NewString())
	span.SetAttr("documents", len(docs))
	defer func() {
		span.End()
		if e.tracing {
			span.Log(e.logger)
		}
	}()

	for i, d := range docs {
		if d.ID != i {
			return nil, fmt.Errorf("document at position %d has id %d", i, d.ID)
		}
	}

	results := make([]*FieldIndex, len(document.Fields))
	var proximity *graph.Graph

	g, gctx := errgroup.WithContext(ctx)
	for i, field := range document.Fields {
		g.Go(func() error {
			_, child := tracing.StartChildSpan(gctx, "index.field."+string(field))
			defer child.End()
			x, err := buildField(gctx, docs, field)
			if err != nil {
				return fmt.Errorf("building %s index: %w", field, err)
			}
			child.SetAttr("terms", len(x.Vocabulary()))
			results[i] = &FieldIndex{Index: x, Membership: index.NewMembership(x)}
			return nil
		})
	}
	g.Go(func() error {
		_, child := tracing.StartChildSpan(gctx, "index.graph")
		defer child.End()
		gr, err := buildGraph(gctx, docs)
		if err != nil {
			return fmt.Errorf("building proximity graph: %w", err)
		}
		child.SetAttr("edges", gr.NumEdges())
		proximity = gr
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fields := make(map[document.Field]*FieldIndex, len(results))
	for i, field := range document.Fields {
		fields[field] = results[i]
	}
	snap := &Snapshot{
		documents: docs,
		fields:    fields,
		graph:     proximity,
		builtAt:   time.Now().UTC(),
		took:      time.Since(start),
	}
	e.logger.Info("snapshot built",
		"documents", len(docs),
		"fulltext_terms", len(fields[document.FieldFullText].Index.Vocabulary()),
		"phrases", len(snap.Phrases()),
		"graph_edges", proximity.NumEdges(),
		"duration", snap.took,
	)
	return snap, nil
}

func buildField(ctx context.Context, docs []document.Document, field document.Field) (*index.InvertedIndex, error) {
	b := index.NewBuilder(tokenizer.Plain)
	for i, d := range docs {
		if i%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		b.AddDocument(d.Text(field))
	}
	return b.Build(), nil
}

// buildGraph draws term nodes from title, author and content separately so
// that no term straddles a field boundary.
func buildGraph(ctx context.Context, docs []document.Document) (*graph.Graph, error) {
	b := graph.NewBuilder()
	for i, d := range docs {
		if i%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		terms := tokenizer.Stemmed.Normalize(d.Title)
		terms = append(terms, tokenizer.Stemmed.Normalize(d.Author)...)
		terms = append(terms, tokenizer.Stemmed.Normalize(d.Content)...)
		b.AddDocument(terms)
	}
	return b.Build(), nil
}
