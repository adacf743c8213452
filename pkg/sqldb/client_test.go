package sqldb

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/retrieval-models/pkg/config"
)

func openSQLite(t *testing.T) *Client {
	t.Helper()
	c, err := New(context.Background(), config.FeedbackConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNewUnsupportedDriver(t *testing.T) {
	if _, err := New(context.Background(), config.FeedbackConfig{Driver: "oracle"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestRetryable(t *testing.T) {
	tests := map[string]struct {
		err  error
		want bool
	}{
		"postgres bad password": {err: &pq.Error{Code: "28P01"}, want: false},
		"postgres unknown db":   {err: &pq.Error{Code: "3D000"}, want: false},
		"postgres starting up":  {err: &pq.Error{Code: "57P03"}, want: true},
		"mysql access denied":   {err: &mysql.MySQLError{Number: 1045}, want: false},
		"mysql unknown db":      {err: &mysql.MySQLError{Number: 1049}, want: false},
		"refused":               {err: errors.New("dial tcp: connection refused"), want: true},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if got := retryable(tc.err); got != tc.want {
				t.Errorf("retryable(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestInTxCommitAndRollback(t *testing.T) {
	c := openSQLite(t)
	ctx := context.Background()
	if _, err := c.DB.ExecContext(ctx, `CREATE TABLE kv (k TEXT PRIMARY KEY, v TEXT)`); err != nil {
		t.Fatal(err)
	}

	err := c.InTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO kv (k, v) VALUES (?, ?)`, "a", "1")
		return err
	})
	if err != nil {
		t.Fatalf("InTx commit: %v", err)
	}

	boom := errors.New("boom")
	err = c.InTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO kv (k, v) VALUES (?, ?)`, "b", "2"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	var keys []string
	if err := c.DB.SelectContext(ctx, &keys, `SELECT k FROM kv ORDER BY k`); err != nil {
		t.Fatal(err)
	}
	if len(keys) != 1 || keys[0] != "a" {
		t.Errorf("keys = %v, want [a]", keys)
	}
	if c.Driver() != "sqlite" {
		t.Errorf("Driver() = %q", c.Driver())
	}
	if err := c.Ping(ctx); err != nil {
		t.Errorf("Ping: %v", err)
	}
}
