package feedback

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/Adithya-Monish-Kumar-K/retrieval-models/pkg/sqldb"
)

const createTable = `CREATE TABLE IF NOT EXISTS feedback (
	keyword   VARCHAR(255) NOT NULL,
	doc_id    VARCHAR(64)  NOT NULL,
	relevance VARCHAR(64)  NOT NULL,
	PRIMARY KEY (keyword, doc_id)
)`

type row struct {
	Keyword   string `db:"keyword"`
	DocID     string `db:"doc_id"`
	Relevance string `db:"relevance"`
}

// SQLStore keeps one row per keyword/doc pair in a relational database.
type SQLStore struct {
	client *sqldb.Client
	logger *slog.Logger
}

// NewSQLStore creates the feedback table if it does not exist.
func NewSQLStore(ctx context.Context, client *sqldb.Client) (*SQLStore, error) {
	if _, err := client.DB.ExecContext(ctx, createTable); err != nil {
		return nil, fmt.Errorf("creating feedback table: %w", err)
	}
	return &SQLStore{
		client: client,
		logger: slog.Default().With("component", "feedback-sql", "driver", client.Driver()),
	}, nil
}

func (s *SQLStore) Load(ctx context.Context) (Table, error) {
	var rows []row
	if err := s.client.DB.SelectContext(ctx, &rows, `SELECT keyword, doc_id, relevance FROM feedback`); err != nil {
		return nil, fmt.Errorf("selecting feedback: %w", err)
	}
	t := Table{}
	for _, r := range rows {
		if t[r.Keyword] == nil {
			t[r.Keyword] = make(map[string]string)
		}
		t[r.Keyword][r.DocID] = r.Relevance
	}
	s.logger.Debug("feedback loaded", "rows", len(rows))
	return t, nil
}

// Save replaces every stored row with the contents of t in one transaction.
func (s *SQLStore) Save(ctx context.Context, t Table) error {
	rows := make([]row, 0, len(t))
	for kw, docs := range t {
		for id, label := range docs {
			rows = append(rows, row{Keyword: kw, DocID: id, Relevance: label})
		}
	}
	return s.client.InTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM feedback`); err != nil {
			return fmt.Errorf("clearing feedback: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		_, err := tx.NamedExecContext(ctx,
			`INSERT INTO feedback (keyword, doc_id, relevance) VALUES (:keyword, :doc_id, :relevance)`, rows)
		if err != nil {
			return fmt.Errorf("inserting feedback: %w", err)
		}
		return nil
	})
}

func (s *SQLStore) Close() error {
	return s.client.Close()
}
