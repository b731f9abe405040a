package engine

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framesync/framesync/internal/db"
	"github.com/framesync/framesync/internal/errs"
	"github.com/framesync/framesync/internal/frame"
	"github.com/framesync/framesync/internal/logger"
	"github.com/framesync/framesync/internal/schema"
	"github.com/framesync/framesync/internal/sqltype"
	"github.com/framesync/framesync/internal/stmt"
)

// stubReader serves a fixed catalog state without SQL.
type stubReader struct {
	table *schema.Table
}

func (r *stubReader) Read(ctx context.Context, table string) (*schema.Table, error) {
	if r.table == nil {
		return nil, errs.Newf(errs.KindNotFound, "table %q does not exist", table)
	}
	return r.table, nil
}

func newMockEngine(t *testing.T, dialect stmt.Dialect, reader schema.Reader) (*Engine, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	wrapped := db.WrapSQL(sqlDB, func(err error, msg string) error {
		return errs.Wrap(errs.KindBatchExecution, msg, err)
	})
	return New(wrapped, dialect, reader, logger.Nop()), mock
}

func ordersTable() *schema.Table {
	return &schema.Table{
		Name: "orders",
		Columns: []schema.Column{
			{Name: "id", Type: sqltype.Type{Kind: sqltype.KindInt64}, IsKey: true},
			{Name: "customer", Type: sqltype.Type{Kind: sqltype.KindString, Size: 255}, Nullable: true},
			{Name: "total", Type: sqltype.Type{Kind: sqltype.KindFloat64}, Nullable: true},
		},
		Keys: []string{"id"},
	}
}

func ordersFrame(t *testing.T, ids ...int64) *frame.Frame {
	t.Helper()
	idVals := make([]any, len(ids))
	custVals := make([]any, len(ids))
	totalVals := make([]any, len(ids))
	for i, id := range ids {
		idVals[i] = id
		custVals[i] = "customer"
		totalVals[i] = 9.99
	}
	f, err := frame.New(
		frame.Column{Name: "id", Values: idVals},
		frame.Column{Name: "customer", Values: custVals},
		frame.Column{Name: "total", Values: totalVals},
	)
	require.NoError(t, err)
	return f
}

func TestApplyValidation(t *testing.T) {
	e, _ := newMockEngine(t, stmt.SQLite{}, &stubReader{table: ordersTable()})
	ctx := context.Background()

	t.Run("nil frame", func(t *testing.T) {
		_, err := e.Apply(ctx, ModeInsert, nil, "orders", nil, Options{})
		assert.True(t, errs.IsInvalidInput(err))
	})

	t.Run("update without keys fails fast", func(t *testing.T) {
		_, err := e.Apply(ctx, ModeUpdate, ordersFrame(t, 1), "orders", nil, Options{})
		assert.True(t, errs.IsMissingKey(err))
	})

	t.Run("bad table name fails fast", func(t *testing.T) {
		_, err := e.Apply(ctx, ModeInsert, ordersFrame(t, 1), "bad\nname", nil, Options{})
		assert.True(t, errs.IsInvalidIdentifier(err))
	})

	t.Run("key column missing from dataset", func(t *testing.T) {
		_, err := e.Apply(ctx, ModeMerge, ordersFrame(t, 1), "orders", []string{"sku"}, Options{})
		assert.True(t, errs.IsInvalidInput(err))
	})

	t.Run("null in key column", func(t *testing.T) {
		f, err := frame.New(frame.Column{Name: "id", Values: []any{int64(1), nil}})
		require.NoError(t, err)
		_, err = e.Apply(ctx, ModeMerge, f, "orders", []string{"id"}, Options{})
		assert.True(t, errs.IsMissingKey(err))
	})
}

func TestApplyMissingTableWithoutAutoCreate(t *testing.T) {
	e, _ := newMockEngine(t, stmt.SQLite{}, &stubReader{})

	_, err := e.Apply(context.Background(), ModeInsert, ordersFrame(t, 1), "orders", nil, Options{})
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}

func TestApplySchemaChangeWithoutWiden(t *testing.T) {
	existing := ordersTable()
	existing.Columns = existing.Columns[:2] // live table lacks "total"
	e, _ := newMockEngine(t, stmt.SQLite{}, &stubReader{table: existing})

	_, err := e.Apply(context.Background(), ModeInsert, ordersFrame(t, 1), "orders", nil, Options{})
	require.Error(t, err)
	assert.True(t, errs.IsSchemaConflict(err))
}

func TestInsertCreatesTable(t *testing.T) {
	e, mock := newMockEngine(t, stmt.SQLite{}, &stubReader{})

	mock.ExpectBegin()
	mock.ExpectExec(`^CREATE TABLE "orders"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectExec(`^INSERT INTO "orders"`).WillReturnResult(sqlmock.NewResult(0, 2))

	result, err := e.Apply(context.Background(), ModeInsert, ordersFrame(t, 1, 2), "orders",
		[]string{"id"}, Options{AutoCreateTable: true})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Inserted())
	require.Len(t, result.SchemaChanges, 1)
	assert.Equal(t, "create_table", result.SchemaChanges[0].Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// The canonical merge: key 1 exists and changes, key 2 exists only live
// and is deleted, key 3 is new. SQLite has a native upsert, and the match
// keys are the primary key, so update+insert collapse into one ON
// CONFLICT statement after the delete round.
func TestMergeUpdatesInsertsAndDeletes(t *testing.T) {
	e, mock := newMockEngine(t, stmt.SQLite{}, &stubReader{table: ordersTable()})

	probe := regexp.QuoteMeta(`SELECT "id" FROM "orders" WHERE "id" IN (?, ?)`)
	mock.ExpectQuery(probe).
		WithArgs(int64(1), int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	allKeys := regexp.QuoteMeta(`SELECT "id" FROM "orders"`)
	mock.ExpectQuery(allKeys).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)).AddRow(int64(2)))

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "orders" WHERE "id" IN (?)`)).
		WithArgs(int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectExec(`ON CONFLICT \("id"\) DO UPDATE SET`).
		WillReturnResult(sqlmock.NewResult(0, 2))

	result, err := e.Apply(context.Background(), ModeMerge, ordersFrame(t, 1, 3), "orders",
		[]string{"id"}, Options{AllowDelete: true})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Updated())
	assert.Equal(t, 1, result.Inserted())
	assert.Equal(t, int64(1), result.RowsDeleted)
	assert.Equal(t, ActionUpdate, result.Rows[0].Action)
	assert.Equal(t, ActionInsert, result.Rows[1].Action)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Match keys that are not the primary key force the emulated
// Delete → Update → Insert path even on stores with a native upsert.
func TestMergeEmulatedWhenKeysAreNotPrimary(t *testing.T) {
	table := ordersTable()
	table.Keys = nil
	table.Columns[0].IsKey = false
	e, mock := newMockEngine(t, stmt.SQLite{}, &stubReader{table: table})

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "customer" FROM "orders" WHERE "customer" IN (?)`)).
		WillReturnRows(sqlmock.NewRows([]string{"customer"}).AddRow("customer"))

	// Both dataset rows share the customer key, so both are updates.
	update := regexp.QuoteMeta(`UPDATE "orders" SET "id" = ?, "total" = ? WHERE "customer" = ?`)
	mock.ExpectExec(update).WithArgs(int64(1), 9.99, "customer").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(update).WithArgs(int64(2), 9.99, "customer").WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := e.Apply(context.Background(), ModeMerge, ordersFrame(t, 1, 2), "orders",
		[]string{"customer"}, Options{})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Updated())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateReportsUnmatchedRows(t *testing.T) {
	e, mock := newMockEngine(t, stmt.SQLite{}, &stubReader{table: ordersTable()})

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id" FROM "orders" WHERE "id" IN (?, ?)`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	mock.ExpectExec(`^UPDATE "orders" SET`).
		WithArgs("customer", 9.99, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := e.Apply(context.Background(), ModeUpdate, ordersFrame(t, 1, 99), "orders",
		[]string{"id"}, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Updated())
	require.Len(t, result.FailedRows(), 1)

	failed := result.FailedRows()[0]
	assert.Equal(t, 1, failed.Index)
	assert.True(t, errs.IsNotFound(failed.Err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertBatchesBySize(t *testing.T) {
	e, mock := newMockEngine(t, stmt.SQLite{}, &stubReader{table: ordersTable()})

	ids := make([]int64, 2500)
	for i := range ids {
		ids[i] = int64(i + 1)
	}

	// 2500 rows at batch size 1000 is three rounds. SQLite's 999-param
	// ceiling over 3 columns allows 333 rows per statement, so the clamp
	// wins: ceil(2500/333) = 8 statements.
	for i := 0; i < 8; i++ {
		mock.ExpectExec(`^INSERT INTO "orders"`).WillReturnResult(sqlmock.NewResult(0, 333))
	}

	result, err := e.Apply(context.Background(), ModeInsert, ordersFrame(t, ids...), "orders",
		nil, Options{BatchSize: 1000})
	require.NoError(t, err)
	assert.Equal(t, 2500, result.Inserted())
	assert.NoError(t, mock.ExpectationsWereMet())
}

// With Postgres's 65535-parameter ceiling the configured batch size is
// the binding constraint: 2500 rows at batch size 1000 is exactly three
// rounds of 1000, 1000, 500.
func TestInsertThreeRounds(t *testing.T) {
	e, mock := newMockEngine(t, stmt.Postgres{}, &stubReader{table: ordersTable()})

	ids := make([]int64, 2500)
	for i := range ids {
		ids[i] = int64(i + 1)
	}

	mock.ExpectExec(`^INSERT INTO "orders"`).WillReturnResult(sqlmock.NewResult(0, 1000))
	mock.ExpectExec(`^INSERT INTO "orders"`).WillReturnResult(sqlmock.NewResult(0, 1000))
	mock.ExpectExec(`^INSERT INTO "orders"`).WillReturnResult(sqlmock.NewResult(0, 500))

	result, err := e.Apply(context.Background(), ModeInsert, ordersFrame(t, ids...), "orders",
		nil, Options{BatchSize: 1000})
	require.NoError(t, err)
	assert.Equal(t, 2500, result.Inserted())
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A failing batch takes down exactly its own rows; earlier batches stay
// committed and later batches still run.
func TestInsertBatchFailureIsIsolated(t *testing.T) {
	e, mock := newMockEngine(t, stmt.SQLite{}, &stubReader{table: ordersTable()})

	ids := make([]int64, 600)
	for i := range ids {
		ids[i] = int64(i + 1)
	}

	// 600 rows over 333-row statements: 333 + 267.
	mock.ExpectExec(`^INSERT INTO "orders"`).WillReturnResult(sqlmock.NewResult(0, 333))
	mock.ExpectExec(`^INSERT INTO "orders"`).WillReturnError(errors.New("unique constraint violated"))

	result, err := e.Apply(context.Background(), ModeInsert, ordersFrame(t, ids...), "orders",
		nil, Options{})
	require.NoError(t, err)

	assert.Equal(t, 333, result.Inserted())
	assert.Len(t, result.FailedRows(), 267)
	for _, row := range result.FailedRows() {
		assert.GreaterOrEqual(t, row.Index, 333)
		assert.True(t, errs.IsBatchExecution(row.Err))
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyHonorsCancellation(t *testing.T) {
	e, _ := newMockEngine(t, stmt.SQLite{}, &stubReader{table: ordersTable()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Apply(ctx, ModeInsert, ordersFrame(t, 1), "orders", nil, Options{})
	require.Error(t, err)
	assert.True(t, errs.IsTimeout(err))
}

// MySQL has no RETURNING: generated keys come from the driver's last
// insert id and are written back into the dataset in batch order.
func TestInsertIdentityWriteBackMySQL(t *testing.T) {
	table := &schema.Table{
		Name: "events",
		Columns: []schema.Column{
			{Name: "event_id", Type: sqltype.Type{Kind: sqltype.KindInt64}, IsKey: true, Identity: true},
			{Name: "payload", Type: sqltype.Type{Kind: sqltype.KindString, Size: 255}, Nullable: true},
		},
		Keys: []string{"event_id"},
	}
	e, mock := newMockEngine(t, stmt.MySQL{}, &stubReader{table: table})

	f, err := frame.New(frame.Column{Name: "payload", Values: []any{"a", "b"}})
	require.NoError(t, err)

	mock.ExpectExec(`^INSERT INTO "events"`).
		WithArgs("a", "b").
		WillReturnResult(sqlmock.NewResult(41, 2))

	result, err := e.Apply(context.Background(), ModeInsert, f, "events", nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Inserted())

	require.True(t, f.HasColumn("event_id"))
	v, _ := f.Value("event_id", 0)
	assert.Equal(t, int64(41), v)
	v, _ = f.Value("event_id", 1)
	assert.Equal(t, int64(42), v)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Postgres and SQLite write generated keys back via RETURNING.
func TestInsertIdentityWriteBackReturning(t *testing.T) {
	table := &schema.Table{
		Name: "events",
		Columns: []schema.Column{
			{Name: "event_id", Type: sqltype.Type{Kind: sqltype.KindInt64}, IsKey: true, Identity: true},
			{Name: "payload", Type: sqltype.Type{Kind: sqltype.KindString, Size: 255}, Nullable: true},
		},
		Keys: []string{"event_id"},
	}
	e, mock := newMockEngine(t, stmt.SQLite{}, &stubReader{table: table})

	f, err := frame.New(frame.Column{Name: "payload", Values: []any{"a", "b"}})
	require.NoError(t, err)

	mock.ExpectQuery(`^INSERT INTO "events" \("payload"\) VALUES \(\?\), \(\?\) RETURNING "event_id"`).
		WithArgs("a", "b").
		WillReturnRows(sqlmock.NewRows([]string{"event_id"}).AddRow(int64(7)).AddRow(int64(8)))

	result, err := e.Apply(context.Background(), ModeInsert, f, "events", nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Inserted())

	v, _ := f.Value("event_id", 1)
	assert.Equal(t, int64(8), v)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMergeAddsColumnBeforeData(t *testing.T) {
	existing := ordersTable()
	existing.Columns = existing.Columns[:2] // no "total" yet
	e, mock := newMockEngine(t, stmt.SQLite{}, &stubReader{table: existing})

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`ALTER TABLE "orders" ADD COLUMN "total" REAL`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	mock.ExpectQuery(`^SELECT "id" FROM "orders" WHERE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(`ON CONFLICT \("id"\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := e.Apply(context.Background(), ModeMerge, ordersFrame(t, 1), "orders",
		[]string{"id"}, Options{AllowSchemaWiden: true})
	require.NoError(t, err)

	require.Len(t, result.SchemaChanges, 1)
	assert.Equal(t, "add_column", result.SchemaChanges[0].Kind)
	assert.Equal(t, "total", result.SchemaChanges[0].Column)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// CSV frames arrive as strings; classification and binding must parse
// them so key probes compare typed values.
func TestMergeCSVFrameParsesKeys(t *testing.T) {
	e, mock := newMockEngine(t, stmt.SQLite{}, &stubReader{table: ordersTable()})

	f, err := frame.FromCSV(strings.NewReader("id,customer,total\n1,ada,9.99\n"))
	require.NoError(t, err)

	mock.ExpectQuery(`^SELECT "id" FROM "orders" WHERE`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectExec(`ON CONFLICT \("id"\)`).
		WithArgs(int64(1), "ada", 9.99).
		WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := e.Apply(context.Background(), ModeMerge, f, "orders", []string{"id"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated())
	assert.NoError(t, mock.ExpectationsWereMet())
}
