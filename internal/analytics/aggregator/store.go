// Package aggregator periodically persists aggregated analytics stats to
// the SQL database that also holds feedback.
package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/pkg/sqldb"
)

const createTable = `CREATE TABLE IF NOT EXISTS analytics_snapshots (
	captured_at TIMESTAMP NOT NULL,
	data        TEXT      NOT NULL
)`

// Snapshot is one stored row.
type Snapshot struct {
	CapturedAt time.Time `db:"captured_at"`
	Data       string    `db:"data"`
}

// Store persists aggregated analytics snapshots.
type Store struct {
	db     *sqldb.Client
	logger *slog.Logger
}

// NewStore creates the snapshot table if needed.
func NewStore(ctx context.Context, db *sqldb.Client) (*Store, error) {
	if _, err := db.DB.ExecContext(ctx, createTable); err != nil {
		return nil, fmt.Errorf("creating analytics_snapshots: %w", err)
	}
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "analytics-store"),
	}, nil
}

// SaveSnapshot persists a stats snapshot to the database.
func (s *Store) SaveSnapshot(ctx context.Context, stats analytics.AggregatedStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshaling stats: %w", err)
	}
	_, err = s.db.DB.ExecContext(ctx,
		s.db.DB.Rebind(`INSERT INTO analytics_snapshots (captured_at, data) VALUES (?, ?)`),
		time.Now().UTC(), string(data),
	)
	if err != nil {
		return fmt.Errorf("saving analytics snapshot: %w", err)
	}
	s.logger.Info("analytics snapshot saved", "total_searches", stats.TotalSearches)
	return nil
}

// Latest returns the most recent snapshots, newest first.
func (s *Store) Latest(ctx context.Context, limit int) ([]analytics.AggregatedStats, error) {
	var rows []Snapshot
	err := s.db.DB.SelectContext(ctx, &rows,
		s.db.DB.Rebind(`SELECT captured_at, data FROM analytics_snapshots ORDER BY captured_at DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("selecting snapshots: %w", err)
	}
	out := make([]analytics.AggregatedStats, 0, len(rows))
	for _, r := range rows {
		var st analytics.AggregatedStats
		if err := json.Unmarshal([]byte(r.Data), &st); err != nil {
			s.logger.Warn("skipping unreadable snapshot", "captured_at", r.CapturedAt, "error", err)
			continue
		}
		out = append(out, st)
	}
	return out, nil
}

// Run saves agg's stats every interval until ctx is cancelled.
func (s *Store) Run(ctx context.Context, agg *analytics.Aggregator, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.SaveSnapshot(ctx, agg.Stats()); err != nil {
				s.logger.Error("snapshot failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
