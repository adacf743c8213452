// Package sqldb opens a pooled sqlx handle for one of the supported SQL
// drivers and runs work inside transactions.
package sqldb

import (
	"context"
	"errors"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/retrieval-models/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/pkg/resilience"
)

// driverNames maps the configured driver onto its database/sql name.
var driverNames = map[string]string{
	"postgres": "postgres",
	"mysql":    "mysql",
	"sqlite":   "sqlite",
}

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

type Client struct {
	DB     *sqlx.DB
	driver string
}

// New opens the database described by cfg and waits for it to answer a
// ping, retrying with backoff.
func New(ctx context.Context, cfg config.FeedbackConfig) (*Client, error) {
	name, ok := driverNames[cfg.Driver]
	if !ok {
		return nil, fmt.Errorf("unsupported sql driver %q", cfg.Driver)
	}
	db, err := sqlx.Open(name, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening %s connection: %w", cfg.Driver, err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	if cfg.Driver == "sqlite" {
		// A single writer avoids SQLITE_BUSY under concurrent saves.
		db.SetMaxOpenConns(1)
	}

	err = resilience.Retry(ctx, "sqldb-ping", resilience.RetryConfig{MaxAttempts: 3, Retryable: retryable}, func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return db.PingContext(pingCtx)
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging %s: %w", cfg.Driver, err)
	}
	return &Client{DB: db, driver: cfg.Driver}, nil
}

// retryable reports whether a failed ping may succeed on a later attempt.
// Bad credentials and unknown databases never will.
func retryable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "28", "3D":
			return false
		}
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1044, 1045, 1049, 1698:
			return false
		}
	}
	return true
}

// Driver returns the configured driver name.
func (c *Client) Driver() string {
	return c.driver
}

func (c *Client) Close() error {
	return c.DB.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *Client) InTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := c.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rolling back transaction after error %v: %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}
