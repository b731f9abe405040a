package schema

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framesync/framesync/internal/db"
	"github.com/framesync/framesync/internal/errs"
	"github.com/framesync/framesync/internal/sqltype"
)

func newCatalogMock(t *testing.T) (db.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	wrapped := db.WrapSQL(sqlDB, func(err error, msg string) error {
		return errs.Wrap(errs.KindCatalogRead, msg, err)
	})
	return wrapped, mock
}

// A column that is neither identity nor serial has a NULL column_default,
// and a bare `is_identity = 'YES' OR column_default LIKE …` expression
// yields SQL NULL for it, which cannot scan into a bool. The catalog
// query must fold that NULL to false so ordinary columns read cleanly.
func TestPgReaderReadsOrdinaryColumns(t *testing.T) {
	conn, mock := newCatalogMock(t)
	r := NewPgReader(conn, "public")

	rows := sqlmock.NewRows([]string{
		"column_name", "data_type", "is_nullable", "max_length", "is_primary_key", "is_identity",
	}).
		AddRow("id", "bigint", false, 0, true, true).
		AddRow("customer", "character varying", true, 255, false, false).
		AddRow("total", "double precision", true, 0, false, false)
	mock.ExpectQuery(`COALESCE\(c\.is_identity = 'YES'`).
		WithArgs("public", "orders").
		WillReturnRows(rows)

	tab, err := r.Read(context.Background(), "orders")
	require.NoError(t, err)
	require.Len(t, tab.Columns, 3)
	assert.Equal(t, []string{"id"}, tab.Keys)

	id, ok := tab.IdentityColumn()
	require.True(t, ok)
	assert.Equal(t, "id", id.Name)
	assert.Equal(t, sqltype.KindInt64, id.Type.Kind)

	cust, ok := tab.Column("customer")
	require.True(t, ok)
	assert.False(t, cust.Identity)
	assert.True(t, cust.Nullable)
	assert.Equal(t, 255, cust.Type.Size)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgReaderMissingTable(t *testing.T) {
	conn, mock := newCatalogMock(t)
	r := NewPgReader(conn, "public")

	mock.ExpectQuery(`FROM information_schema\.columns`).
		WithArgs("public", "ghost").
		WillReturnRows(sqlmock.NewRows([]string{
			"column_name", "data_type", "is_nullable", "max_length", "is_primary_key", "is_identity",
		}))

	_, err := r.Read(context.Background(), "ghost")
	assert.True(t, errs.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
