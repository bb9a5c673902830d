// Package store holds the SQLite queries. Functions take a DBTX so the same
// query runs against the pool or inside a transaction.
package store

import (
	"context"
	"database/sql"

	"github.com/sevakendra/mel/internal/model"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Errors shared with the in-memory backend.
var (
	ErrRecordNotFound     = model.ErrRecordNotFound
	ErrQuantityOutOfRange = model.ErrQuantityOutOfRange
)
