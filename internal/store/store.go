// Package store persists users, chat sessions, chat messages and orders in
// sqlite.
package store

import (
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by updates and deletes that match no row.
// Lookups return nil, nil instead.
var ErrNotFound = errors.New("not found")

func newID() string {
	return uuid.NewString()
}

// now is the store clock, truncated to microseconds so values survive a
// round trip through sqlite unchanged.
var now = func() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		slog.Error("failed to close rows", "error", err)
	}
}

// rollback is deferred after BeginTx; it is a no-op once the tx committed.
func rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		slog.Error("failed to roll back transaction", "error", err)
	}
}

func checkAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
