package db

import (
	"context"
	"database/sql"
)

// ErrorMapper translates a driver-native error into a *errs.Error. Each
// driver package supplies its own (SQLSTATE-aware, errno-aware, …).
type ErrorMapper func(err error, msg string) error

// SQLDB adapts a *sql.DB to the DB interface. The mysql and sqlite
// drivers build on it; tests construct it directly around go-sqlmock.
type SQLDB struct {
	db     *sql.DB
	mapErr ErrorMapper
}

// WrapSQL wraps an already-open *sql.DB. mapErr may be nil, in which case
// native errors pass through unchanged.
func WrapSQL(db *sql.DB, mapErr ErrorMapper) *SQLDB {
	if mapErr == nil {
		mapErr = func(err error, _ string) error { return err }
	}
	return &SQLDB{db: db, mapErr: mapErr}
}

// --- DB implementation ---

func (d *SQLDB) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return d.mapErr(err, "ping failed")
	}
	return nil
}

func (d *SQLDB) Close() {
	_ = d.db.Close()
}

func (d *SQLDB) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, d.mapErr(err, "query failed")
	}
	return &sqlRows{rows: rows}, nil
}

func (d *SQLDB) QueryRow(ctx context.Context, query string, args ...any) (Row, error) {
	return d.db.QueryRowContext(ctx, query, args...), nil
}

func (d *SQLDB) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, d.mapErr(err, "exec failed")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		// Some drivers cannot report affected rows for every statement.
		return 0, nil
	}
	return affected, nil
}

func (d *SQLDB) Begin(ctx context.Context) (Tx, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, d.mapErr(err, "begin transaction failed")
	}
	return &sqlTx{tx: tx, mapErr: d.mapErr}, nil
}

// ExecWithInsertID executes query and additionally returns the
// driver-reported last insert id (MySQL identity write-back).
func (d *SQLDB) ExecWithInsertID(ctx context.Context, query string, args ...any) (lastID, affected int64, err error) {
	res, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, 0, d.mapErr(err, "exec failed")
	}
	lastID, _ = res.LastInsertId()
	affected, _ = res.RowsAffected()
	return lastID, affected, nil
}

// --- Tx implementation ---

type sqlTx struct {
	tx     *sql.Tx
	mapErr ErrorMapper
}

func (t *sqlTx) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, t.mapErr(err, "query failed")
	}
	return &sqlRows{rows: rows}, nil
}

func (t *sqlTx) QueryRow(ctx context.Context, query string, args ...any) (Row, error) {
	return t.tx.QueryRowContext(ctx, query, args...), nil
}

func (t *sqlTx) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, t.mapErr(err, "exec failed")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return affected, nil
}

// ExecWithInsertID mirrors SQLDB.ExecWithInsertID inside a transaction.
func (t *sqlTx) ExecWithInsertID(ctx context.Context, query string, args ...any) (lastID, affected int64, err error) {
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, 0, t.mapErr(err, "exec failed")
	}
	lastID, _ = res.LastInsertId()
	affected, _ = res.RowsAffected()
	return lastID, affected, nil
}

func (t *sqlTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(); err != nil {
		return t.mapErr(err, "commit failed")
	}
	return nil
}

func (t *sqlTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(); err != nil {
		return t.mapErr(err, "rollback failed")
	}
	return nil
}

// --- Rows wrapper ---

type sqlRows struct {
	rows *sql.Rows
}

func (r *sqlRows) Next() bool                { return r.rows.Next() }
func (r *sqlRows) Scan(dest ...any) error    { return r.rows.Scan(dest...) }
func (r *sqlRows) Columns() ([]string, error) { return r.rows.Columns() }
func (r *sqlRows) Close()                    { _ = r.rows.Close() }
func (r *sqlRows) Err() error                { return r.rows.Err() }
