// Package mysql provides a MySQL implementation of db.DB backed by
// database/sql and go-sql-driver/mysql.
package mysql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/framesync/framesync/internal/db"
	"github.com/framesync/framesync/internal/errs"
)

// MySQL server error numbers the engine cares about.
// Full list: https://dev.mysql.com/doc/mysql-errors/8.0/en/server-error-reference.html
const (
	errNoSuchTable     = 1146
	errBadFieldError   = 1054
	errAccessDenied    = 1045
	errLockWaitTimeout = 1205
)

// Driver is a MySQL implementation of db.DB.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	*db.SQLDB
}

// New opens a MySQL connection pool using the provided Config and returns
// a Driver. It calls Ping to validate the connection before returning.
// The DSN must carry parseTime=true so temporal columns scan as time.Time.
func New(ctx context.Context, cfg *db.Config) (*Driver, error) {
	sqldb, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, errs.Wrap(errs.KindConnectionFailed, "invalid DSN", err)
	}

	sqldb.SetMaxOpenConns(int(cfg.MaxConns))
	sqldb.SetMaxIdleConns(int(cfg.MinConns))
	sqldb.SetConnMaxLifetime(cfg.MaxConnLifetime)
	sqldb.SetConnMaxIdleTime(cfg.MaxConnIdleTime)

	d := &Driver{SQLDB: db.WrapSQL(sqldb, mapError)}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	if err := d.Ping(pingCtx); err != nil {
		d.Close()
		return nil, err
	}

	return d, nil
}

// mapError translates go-sql-driver native errors into *errs.Error.
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

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case errNoSuchTable, errBadFieldError:
			return errs.Wrap(errs.KindNotFound, msg, err)
		case errAccessDenied:
			return errs.Wrap(errs.KindConnectionFailed, msg, err)
		case errLockWaitTimeout:
			return errs.Wrap(errs.KindTimeout, msg, err)
		}
		return errs.Wrap(errs.KindBatchExecution, msg, err)
	}

	if errors.Is(err, mysql.ErrInvalidConn) || errors.Is(err, sql.ErrConnDone) {
		return errs.Wrap(errs.KindConnectionFailed, msg, err)
	}

	return errs.Wrap(errs.KindBatchExecution, msg, err)
}
