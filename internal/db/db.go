// Package db defines the connection capability the sync engine consumes.
// All layers above this package talk only to these interfaces — they never
// import the postgres, mysql, or sqlite packages directly, and the engine
// never opens sockets itself.
package db

import "context"

// DB is the central contract for all database operations.
type DB interface {
	Executor

	// Ping verifies the database is reachable.
	Ping(ctx context.Context) error

	// Close releases all resources held by the connection pool.
	Close()

	// Begin starts a transaction. The caller must Commit or Rollback.
	Begin(ctx context.Context) (Tx, error)
}

// Executor executes statements. Both DB and Tx satisfy it, so the engine
// can run against a caller-supplied transaction scope transparently.
type Executor interface {
	// Query executes a SQL statement that returns multiple rows.
	Query(ctx context.Context, sql string, args ...any) (Rows, error)

	// QueryRow executes a SQL statement that returns at most one row.
	QueryRow(ctx context.Context, sql string, args ...any) (Row, error)

	// Exec executes a statement that returns no rows and reports the
	// number of rows affected.
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
}

// Tx is a transaction handle with guaranteed commit-or-rollback semantics.
type Tx interface {
	Executor

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Rows iterates a result set. Close it when done, even after an error;
// check Err once Next returns false.
type Rows interface {
	Next() bool
	Scan(dest ...any) error

	// Columns returns the result set's column names in select order.
	Columns() ([]string, error)

	Close()
	Err() error
}

// Row is a single-row result.
type Row interface {
	Scan(dest ...any) error
}
