// Package store is the SQL-backed host: project metadata, record data,
// DET settings and the DET event log.
//
// Record data is stored entity-attribute-value style, one row per
// (project, record, event, field). A blank value is represented by the
// absence of a row.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/bcchr/detbuilder/internal/core/db"
	"github.com/bcchr/detbuilder/internal/types"
)

// Store implements routing.Host on top of sqlx.
type Store struct {
	db           *sqlx.DB
	q            *db.Queries
	defaultEvent string
	now          func() time.Time
}

// New creates a store. defaultEvent is used for projects without events.
func New(conn *sqlx.DB, defaultEvent string) (*Store, error) {
	if conn == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	q, err := db.LoadQueries(conn)
	if err != nil {
		return nil, err
	}
	if defaultEvent == "" {
		defaultEvent = types.DefaultEventName
	}
	return &Store{
		db:           conn,
		q:            q,
		defaultEvent: defaultEvent,
		now:          func() time.Time { return time.Now().UTC() },
	}, nil
}

// DB returns the underlying connection pool.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// withTx runs fn in a transaction, committing when fn returns nil.
func (s *Store) withTx(ctx context.Context, fn func(q *db.Queries) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(s.q.WithTx(tx)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) timestamp() string {
	return s.now().Format(time.RFC3339)
}
