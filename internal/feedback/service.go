package feedback

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/retrieval-models/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/retrieval-models/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/pkg/sqldb"
)

// Service owns the in-memory table and serializes every write through
// the Store.
type Service struct {
	mu      sync.Mutex
	table   Table
	store   Store
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewService loads the current table from store. m may be nil.
func NewService(ctx context.Context, store Store, m *metrics.Metrics) (*Service, error) {
	t, err := store.Load(ctx)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrStorage, http.StatusInternalServerError, "loading feedback: %v", err)
	}
	if t == nil {
		t = Table{}
	}
	s := &Service{
		table:   t,
		store:   store,
		metrics: m,
		logger:  slog.Default().With("component", "feedback"),
	}
	s.logger.Info("feedback loaded", "keywords", len(t))
	return s, nil
}

// OpenStore builds the Store selected by cfg.Driver. For the SQL drivers
// it also returns the underlying client, which the store owns and closes;
// the file driver returns a nil client.
func OpenStore(ctx context.Context, cfg config.FeedbackConfig) (Store, *sqldb.Client, error) {
	switch cfg.Driver {
	case "", "file":
		return NewFileStore(cfg.Path), nil, nil
	case "postgres", "mysql", "sqlite":
		client, err := sqldb.New(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		store, err := NewSQLStore(ctx, client)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		return store, client, nil
	default:
		return nil, nil, fmt.Errorf("unknown feedback driver %q", cfg.Driver)
	}
}

// Record upserts the label for docID under keyword and persists the whole
// table before returning. On a failed write the in-memory table is rolled
// back so it never runs ahead of the stored copy.
func (s *Service) Record(ctx context.Context, docID, keyword, relevance string) error {
	docID, keyword, relevance = strings.TrimSpace(docID), strings.TrimSpace(keyword), strings.TrimSpace(relevance)
	var missing []string
	if docID == "" {
		missing = append(missing, "doc_id")
	}
	if keyword == "" {
		missing = append(missing, "keyword")
	}
	if relevance == "" {
		missing = append(missing, "relevance")
	}
	if len(missing) > 0 {
		return apperrors.Invalid("missing required fields: %s", strings.Join(missing, ", "))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs, existed := s.table[keyword]
	prev, hadPrev := docs[docID]
	if !existed {
		docs = make(map[string]string)
		s.table[keyword] = docs
	}
	docs[docID] = relevance

	if err := s.store.Save(ctx, s.table); err != nil {
		if hadPrev {
			docs[docID] = prev
		} else {
			delete(docs, docID)
		}
		if !existed {
			delete(s.table, keyword)
		}
		s.count("error")
		s.logger.Error("persisting feedback failed", "keyword", keyword, "doc_id", docID, "error", err)
		return apperrors.Newf(apperrors.ErrStorage, http.StatusInternalServerError, "saving feedback: %v", err)
	}
	s.count("ok")
	s.logger.Debug("feedback recorded", "keyword", keyword, "doc_id", docID, "relevance", relevance)
	return nil
}

// ForKeyword lists the judgements stored for keyword, sorted by doc id.
func (s *Service) ForKeyword(keyword string) []Judgement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Judgements(strings.TrimSpace(keyword))
}

// Relevant returns the doc ids labelled relevant for keyword.
func (s *Service) Relevant(keyword string) map[string]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]struct{})
	for id, label := range s.table[keyword] {
		if label == LabelRelevant {
			out[id] = struct{}{}
		}
	}
	return out
}

// Snapshot returns a copy of the current table.
func (s *Service) Snapshot() Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Clone()
}

func (s *Service) Close() error {
	return s.store.Close()
}

func (s *Service) count(status string) {
	if s.metrics != nil {
		s.metrics.FeedbackWritesTotal.WithLabelValues(status).Inc()
	}
}
