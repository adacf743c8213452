// Package handler exposes the retrieval engine over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/document"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/feedback"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/searcher/evaluator"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/searcher/suggest"
	apperrors "github.com/Adithya-Monish-Kumar-K/retrieval-models/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/pkg/metrics"
)

type SearchExecutor interface {
	Normalize(q executor.Query) (executor.Query, error)
	Execute(ctx context.Context, snap *indexer.Snapshot, q executor.Query) (*executor.SearchResult, error)
}

// Deps are the collaborators a Handler serves from. Cache, Tracker and
// Metrics are optional.
type Deps struct {
	Snapshot     *indexer.Snapshot
	Executor     SearchExecutor
	Cache        *cache.QueryCache
	Suggester    suggest.Suggester
	Feedback     *feedback.Service
	Evaluator    *evaluator.Evaluator
	Tracker      analytics.Tracker
	Metrics      *metrics.Metrics
	DefaultModel ranker.Model
}

type Handler struct {
	Deps
	links     map[string][]string
	linksOnce sync.Once
	logger    *slog.Logger
}

func New(deps Deps) *Handler {
	if deps.DefaultModel == "" {
		deps.DefaultModel = ranker.ModelVectorSpace
	}
	return &Handler{
		Deps:   deps,
		logger: slog.Default().With("component", "search-handler"),
	}
}

// Register mounts every API route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/suggestions", h.Suggestions)
	mux.HandleFunc("POST /api/v1/feedback", h.RecordFeedback)
	mux.HandleFunc("GET /api/v1/feedback", h.ListFeedback)
	mux.HandleFunc("GET /api/v1/evaluate", h.Evaluate)
	mux.HandleFunc("GET /api/v1/documents/{id}", h.Document)
	mux.HandleFunc("GET /api/v1/articles/{id}", h.Article)
	mux.HandleFunc("GET /api/v1/links", h.Links)
	mux.HandleFunc("GET /api/v1/stats", h.IndexStats)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	q, err := h.parseQuery(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	q, err = h.Executor.Normalize(q)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var result *executor.SearchResult
	cacheHit := false
	if h.Cache != nil {
		result, cacheHit, err = h.Cache.GetOrCompute(ctx, q, func() (*executor.SearchResult, error) {
			return h.Executor.Execute(ctx, h.Snapshot, q)
		})
	} else {
		result, err = h.Executor.Execute(ctx, h.Snapshot, q)
	}
	if err != nil {
		log.Error("search execution failed", "query", q.Text, "model", q.Model, "error", err)
		h.writeError(w, err)
		return
	}

	out := *result
	out.Query = q.Text
	out.CacheHit = cacheHit
	latency := time.Since(start)
	if h.Metrics != nil && cacheHit {
		h.Metrics.SearchLatency.WithLabelValues(string(q.Model), "hit").Observe(latency.Seconds())
	}

	log.Info("search completed",
		"query", q.Text,
		"model", q.Model,
		"total_hits", out.TotalHits,
		"returned", len(out.Results),
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)
	eventType := analytics.EventSearch
	if out.TotalHits == 0 {
		eventType = analytics.EventZeroResult
	}
	h.track(ctx, analytics.Event{
		Type:      eventType,
		Query:     q.Text,
		Model:     string(q.Model),
		Field:     string(q.Field),
		TotalHits: out.TotalHits,
		Returned:  len(out.Results),
		LatencyMs: float64(latency.Microseconds()) / 1000,
		CacheHit:  cacheHit,
	})
	h.writeJSON(w, http.StatusOK, &out)
}

func (h *Handler) parseQuery(r *http.Request) (executor.Query, error) {
	params := r.URL.Query()
	q := executor.Query{Text: params.Get("query")}
	if q.Text == "" {
		q.Text = params.Get("q")
	}
	if strings.TrimSpace(q.Text) == "" {
		return q, apperrors.Invalid("query parameter is required")
	}

	q.Model = h.DefaultModel
	if v := params.Get("model"); v != "" {
		m, err := ranker.ParseModel(v)
		if err != nil {
			return q, err
		}
		q.Model = m
	}
	field, ok := document.ParseField(params.Get("field"))
	if !ok {
		return q, fmt.Errorf("%w: %q", apperrors.ErrUnknownField, params.Get("field"))
	}
	q.Field = field
	match, err := ranker.ParseMatchPolicy(params.Get("match"))
	if err != nil {
		return q, err
	}
	q.Match = match
	if v := params.Get("threshold"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return q, apperrors.Invalid("threshold must be a number")
		}
		q.Threshold = &t
	}
	if v := params.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return q, apperrors.Invalid("limit must be a positive integer")
		}
		q.Limit = n
	}
	return q, nil
}

func (h *Handler) Suggestions(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	prefix := params.Get("query")
	if prefix == "" {
		prefix = params.Get("q")
	}
	req := suggest.Request{Prefix: prefix}
	if v := params.Get("max"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			h.writeError(w, apperrors.Invalid("max must be a positive integer"))
			return
		}
		req.Max = n
	}
	if v := params.Get("approximate"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			h.writeError(w, apperrors.Invalid("approximate must be a boolean"))
			return
		}
		req.Approximate = b
	}

	suggestions, err := h.Suggester.Suggest(r.Context(), h.Snapshot, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if h.Metrics != nil {
		mode := "prefix"
		if req.Approximate {
			mode = "approximate"
		}
		h.Metrics.SuggestionsTotal.WithLabelValues(mode).Inc()
	}
	h.track(r.Context(), analytics.Event{Type: analytics.EventSuggest, Query: prefix, Returned: len(suggestions)})
	h.writeJSON(w, http.StatusOK, map[string]any{"query": prefix, "suggestions": suggestions})
}

// docID accepts a JSON string or number.
type docID string

func (d *docID) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*d = docID(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("doc_id must be a string or number")
	}
	*d = docID(s)
	return nil
}

type feedbackRequest struct {
	DocID     docID  `json:"doc_id"`
	Keyword   string `json:"keyword"`
	Relevance string `json:"relevance"`
}

// RecordFeedback accepts a JSON body or form fields doc_id, keyword and
// relevance.
func (h *Handler) RecordFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
		if err := dec.Decode(&req); err != nil {
			h.writeError(w, apperrors.Invalid("invalid JSON body: %v", err))
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			h.writeError(w, apperrors.Invalid("invalid form body"))
			return
		}
		req = feedbackRequest{
			DocID:     docID(r.PostForm.Get("doc_id")),
			Keyword:   r.PostForm.Get("keyword"),
			Relevance: r.PostForm.Get("relevance"),
		}
	}

	if err := h.Feedback.Record(r.Context(), string(req.DocID), req.Keyword, req.Relevance); err != nil {
		h.writeError(w, err)
		return
	}
	h.track(r.Context(), analytics.Event{
		Type:      analytics.EventFeedback,
		Query:     req.Keyword,
		DocID:     string(req.DocID),
		Relevance: req.Relevance,
	})
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Feedback recorded successfully"})
}

func (h *Handler) ListFeedback(w http.ResponseWriter, r *http.Request) {
	keyword := r.URL.Query().Get("keyword")
	if strings.TrimSpace(keyword) == "" {
		h.writeError(w, apperrors.Invalid("keyword parameter is required"))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"keyword":  keyword,
		"feedback": h.Feedback.ForKeyword(keyword),
	})
}

func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	query := strings.TrimSpace(params.Get("query"))
	model := h.DefaultModel
	if v := params.Get("model"); v != "" {
		m, err := ranker.ParseModel(v)
		if err != nil {
			h.writeError(w, err)
			return
		}
		model = m
	}
	field, ok := document.ParseField(params.Get("field"))
	if !ok {
		h.writeError(w, fmt.Errorf("%w: %q", apperrors.ErrUnknownField, params.Get("field")))
		return
	}

	report, err := h.Evaluator.Evaluate(r.Context(), h.Snapshot, query, model, field)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.track(r.Context(), analytics.Event{Type: analytics.EventEvaluate, Query: query, Model: string(model), F1: report.F1})
	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handler) document(w http.ResponseWriter, r *http.Request) (document.Document, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		h.writeError(w, apperrors.Invalid("document id must be an integer"))
		return document.Document{}, false
	}
	doc, ok := h.Snapshot.Document(id)
	if !ok {
		h.writeError(w, apperrors.Newf(apperrors.ErrDocumentNotFound, http.StatusNotFound, "document %d not found", id))
		return document.Document{}, false
	}
	return doc, true
}

func (h *Handler) Document(w http.ResponseWriter, r *http.Request) {
	if doc, ok := h.document(w, r); ok {
		h.writeJSON(w, http.StatusOK, doc)
	}
}

// Article serves the section tree of a Markdown document.
func (h *Handler) Article(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.document(w, r)
	if !ok {
		return
	}
	if doc.Sections == nil {
		h.writeError(w, apperrors.Newf(apperrors.ErrDocumentNotFound, http.StatusNotFound, "document %d has no sections", doc.ID))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"id":        doc.ID,
		"title":     doc.Title,
		"author":    doc.Author,
		"file_path": doc.SourceRef,
		"sections":  doc.Sections,
	})
}

// Links serves the title-mention graph, computed on first use.
func (h *Handler) Links(w http.ResponseWriter, r *http.Request) {
	h.linksOnce.Do(func() {
		h.links = document.Links(h.Snapshot.Documents())
	})
	h.writeJSON(w, http.StatusOK, h.links)
}

func (h *Handler) IndexStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.Snapshot.Stats())
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.Cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	stats := h.Cache.Stats()
	total := stats.Hits + stats.Misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(stats.Hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     stats.Hits,
		"misses":   stats.Misses,
		"errors":   stats.Errors,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
		"circuit":  stats.Circuit,
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.Cache == nil {
		h.writeError(w, apperrors.New(apperrors.ErrCacheUnavailable, http.StatusServiceUnavailable, "caching is disabled"))
		return
	}
	deleted, err := h.Cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, apperrors.New(apperrors.ErrCacheUnavailable, http.StatusServiceUnavailable, "cache invalidation failed"))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) track(ctx context.Context, event analytics.Event) {
	if h.Tracker == nil {
		return
	}
	event.Timestamp = time.Now().UTC()
	event.RequestID = logger.RequestID(ctx)
	h.Tracker.Track(event)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

// writeError maps err onto its HTTP status. Server-side failures are not
// described to the client.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	message := apperrors.Message(err)
	if errors.Is(err, context.Canceled) {
		status = 499
	}
	if status >= http.StatusInternalServerError && !errors.Is(err, apperrors.ErrTimeout) {
		message = http.StatusText(status)
	}
	h.writeJSON(w, status, map[string]string{"error": message})
}
