// Package sqlite provides a SQLite implementation of db.DB backed by
// database/sql and the CGo-free modernc.org/sqlite driver. Useful for
// local reconciliation work and integration tests.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	_ "modernc.org/sqlite" // register "sqlite" driver

	"github.com/framesync/framesync/internal/db"
	"github.com/framesync/framesync/internal/errs"
)

// Driver is a SQLite implementation of db.DB.
type Driver struct {
	*db.SQLDB
}

// New opens (or creates) the SQLite database at cfg.DSN.
// SQLite serialises writers, so the pool is capped at a single connection
// to avoid SQLITE_BUSY churn during batched DML.
func New(ctx context.Context, cfg *db.Config) (*Driver, error) {
	sqldb, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, errs.Wrap(errs.KindConnectionFailed, "invalid DSN", err)
	}

	sqldb.SetMaxOpenConns(1)

	d := &Driver{SQLDB: db.WrapSQL(sqldb, mapError)}

	if err := d.Ping(ctx); err != nil {
		d.Close()
		return nil, err
	}

	return d, nil
}

// mapError translates sqlite driver errors into *errs.Error. The modernc
// driver exposes errors as strings, so classification is by message.
func mapError(err error, msg string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.KindTimeout, msg, err)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return errs.Wrap(errs.KindNotFound, msg, err)
	}

	text := err.Error()
	switch {
	case strings.Contains(text, "no such table"), strings.Contains(text, "no such column"):
		return errs.Wrap(errs.KindNotFound, msg, err)
	case strings.Contains(text, "database is locked"), strings.Contains(text, "busy"):
		return errs.Wrap(errs.KindTimeout, msg, err)
	case strings.Contains(text, "unable to open database"):
		return errs.Wrap(errs.KindConnectionFailed, msg, err)
	}

	return errs.Wrap(errs.KindBatchExecution, msg, err)
}
