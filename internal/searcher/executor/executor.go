// Package executor runs a retrieval model against the snapshot and shapes
// the ranked documents for presentation.
package executor

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/document"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/retrieval-models/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/pkg/tracing"
)

// Query is one search request after parameter parsing.
type Query struct {
	Text      string             `cbor:"1,keyasint"`
	Model     ranker.Model       `cbor:"2,keyasint"`
	Field     document.Field     `cbor:"3,keyasint"`
	Match     ranker.MatchPolicy `cbor:"4,keyasint"`
	Threshold *float64           `cbor:"5,keyasint,omitempty"`
	Limit     int                `cbor:"6,keyasint"`
}

// Hit is a ranked document as rendered to clients. Score is omitted for
// models that do not score.
type Hit struct {
	DocID    int      `json:"doc_id" cbor:"1,keyasint"`
	Rank     int      `json:"rank" cbor:"2,keyasint"`
	Title    string   `json:"title" cbor:"3,keyasint"`
	Author   string   `json:"author" cbor:"4,keyasint"`
	Snippet  string   `json:"snippet" cbor:"5,keyasint"`
	Score    *float64 `json:"score,omitempty" cbor:"6,keyasint,omitempty"`
	FilePath string   `json:"file_path" cbor:"7,keyasint"`
}

type SearchResult struct {
	Query     string       `json:"query" cbor:"1,keyasint"`
	Model     ranker.Model `json:"model" cbor:"2,keyasint"`
	TotalHits int          `json:"total_hits" cbor:"3,keyasint"`
	Results   []Hit        `json:"results" cbor:"4,keyasint"`
	TookMs    float64      `json:"took_ms" cbor:"5,keyasint"`
	CacheHit  bool         `json:"cache_hit" cbor:"-"`
}

// Config bounds a query.
type Config struct {
	DefaultLimit  int
	MaxResults    int
	SnippetLength int
	Timeout       time.Duration
}

type Executor struct {
	registry *ranker.Registry
	cfg      Config
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New returns an Executor. m may be nil.
func New(registry *ranker.Registry, cfg Config, m *metrics.Metrics) *Executor {
	if cfg.SnippetLength <= 0 {
		cfg.SnippetLength = 180
	}
	return &Executor{
		registry: registry,
		cfg:      cfg,
		metrics:  m,
		logger:   slog.Default().With("component", "query-executor"),
	}
}

// Normalize validates q and fills in the limit. The returned query is the
// one results are cached under.
func (e *Executor) Normalize(q Query) (Query, error) {
	q.Text = strings.TrimSpace(q.Text)
	if q.Text == "" {
		return q, apperrors.Invalid("query parameter is required")
	}
	if q.Limit <= 0 {
		q.Limit = e.cfg.DefaultLimit
	}
	if e.cfg.MaxResults > 0 && (q.Limit <= 0 || q.Limit > e.cfg.MaxResults) {
		q.Limit = e.cfg.MaxResults
	}
	if q.Field == "" {
		q.Field = document.FieldFullText
	}
	if _, err := e.registry.Get(q.Model); err != nil {
		return q, err
	}
	return q, nil
}

// Execute ranks the snapshot for q under the configured query timeout and
// truncates the ranking to q.Limit.
func (e *Executor) Execute(ctx context.Context, snap *indexer.Snapshot, q Query) (*SearchResult, error) {
	q, err := e.Normalize(q)
	if err != nil {
		return nil, err
	}
	strategy, err := e.registry.Get(q.Model)
	if err != nil {
		return nil, err
	}

	ctx, span := tracing.StartChildSpan(ctx, "search."+string(q.Model))
	defer span.End()
	span.SetAttr("query", q.Text)

	start := time.Now()
	var ranked []ranker.Result
	err = resilience.WithTimeout(ctx, e.cfg.Timeout, "search."+string(q.Model), func(ctx context.Context) error {
		var rerr error
		ranked, rerr = strategy.Rank(ctx, snap, ranker.Request{
			Query:     q.Text,
			Field:     q.Field,
			Threshold: q.Threshold,
			Match:     q.Match,
		})
		return rerr
	})
	took := time.Since(start)
	if err != nil {
		e.observe(q.Model, "error", took, 0)
		return nil, err
	}

	total := len(ranked)
	if q.Limit > 0 && len(ranked) > q.Limit {
		ranked = ranked[:q.Limit]
	}
	hits := make([]Hit, 0, len(ranked))
	for _, r := range ranked {
		doc, ok := snap.Document(r.DocID)
		if !ok {
			continue
		}
		h := Hit{
			DocID:    r.DocID,
			Rank:     r.Rank,
			Title:    doc.Title,
			Author:   doc.Author,
			Snippet:  Snippet(doc.Content, e.cfg.SnippetLength),
			FilePath: doc.SourceRef,
		}
		if r.Scored {
			score := r.Score
			h.Score = &score
		}
		hits = append(hits, h)
	}

	resultType := "hit"
	if total == 0 {
		resultType = "zero_result"
	}
	e.observe(q.Model, resultType, took, total)
	span.SetAttr("total_hits", total)
	e.logger.Debug("query executed", "query", q.Text, "model", q.Model, "field", q.Field, "total_hits", total, "took", took)

	return &SearchResult{
		Query:     q.Text,
		Model:     q.Model,
		TotalHits: total,
		Results:   hits,
		TookMs:    float64(took.Microseconds()) / 1000,
	}, nil
}

func (e *Executor) observe(model ranker.Model, resultType string, took time.Duration, total int) {
	if e.metrics == nil {
		return
	}
	e.metrics.SearchQueriesTotal.WithLabelValues(string(model), resultType).Inc()
	e.metrics.SearchLatency.WithLabelValues(string(model), "miss").Observe(took.Seconds())
	if resultType != "error" {
		e.metrics.SearchResultsCount.WithLabelValues(string(model)).Observe(float64(total))
	}
}

// Snippet returns content when it is at most 100 characters long.
// Otherwise it takes the first n characters, drops a trailing partial
// word when the cut landed inside one, and appends "...". The literal
// "Abstract" heading marker is removed.
func Snippet(content string, n int) string {
	content = strings.TrimSpace(strings.ReplaceAll(content, "Abstract", ""))
	if utf8.RuneCountInString(content) <= 100 {
		return content
	}
	runes := []rune(content)
	if len(runes) > n {
		cut := string(runes[:n])
		if runes[n] != ' ' {
			if i := strings.LastIndexByte(cut, ' '); i > 0 {
				cut = cut[:i]
			}
		}
		content = cut
	}
	return strings.TrimRight(content, " ") + "..."
}
