package stmt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framesync/framesync/internal/schema"
	"github.com/framesync/framesync/internal/sqltype"
)

func TestBuildCreateTable(t *testing.T) {
	table := &schema.Table{
		Name: "orders",
		Columns: []schema.Column{
			{Name: "id", Type: sqltype.Type{Kind: sqltype.KindInt64}, Identity: true},
			{Name: "customer", Type: sqltype.Type{Kind: sqltype.KindString, Size: 255}, Nullable: true},
			{Name: "total", Type: sqltype.Type{Kind: sqltype.KindDecimal, Precision: 10, Scale: 2}},
		},
		Keys: []string{"id"},
	}

	tests := []struct {
		name    string
		dialect Dialect
		want    string
	}{
		{
			name:    "postgres",
			dialect: Postgres{},
			want: `CREATE TABLE "orders" ("id" BIGINT GENERATED BY DEFAULT AS IDENTITY NOT NULL, ` +
				`"customer" VARCHAR(255), "total" NUMERIC(10,2) NOT NULL, PRIMARY KEY ("id"))`,
		},
		{
			name:    "mysql",
			dialect: MySQL{},
			want: `CREATE TABLE "orders" ("id" BIGINT AUTO_INCREMENT NOT NULL, ` +
				`"customer" VARCHAR(255), "total" NUMERIC(10,2) NOT NULL, PRIMARY KEY ("id"))`,
		},
		{
			name:    "sqlite",
			dialect: SQLite{},
			want: `CREATE TABLE "orders" ("id" INTEGER NOT NULL, ` +
				`"customer" VARCHAR(255), "total" NUMERIC(10,2) NOT NULL, PRIMARY KEY ("id"))`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildCreateTable(tt.dialect, table)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildInsert(t *testing.T) {
	s, err := BuildInsert(Postgres{}, "orders", []string{"id", "total"}, nil, 2, "")
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "orders" ("id", "total") VALUES ($1, $2), ($3, $4)`, s.SQL)
	assert.Equal(t, []string{"id", "total"}, s.Params)
	assert.Equal(t, 2, s.Rows)
}

func TestBuildInsertReturning(t *testing.T) {
	s, err := BuildInsert(Postgres{}, "orders", []string{"total"}, nil, 1, "id")
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "orders" ("total") VALUES ($1) RETURNING "id"`, s.SQL)

	// MySQL has no RETURNING; the clause is silently dropped.
	s, err = BuildInsert(MySQL{}, "orders", []string{"total"}, nil, 1, "id")
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "orders" ("total") VALUES (?)`, s.SQL)
}

func TestBuildInsertWithTimestamp(t *testing.T) {
	s, err := BuildInsert(MySQL{}, "orders", []string{"id"}, []string{"_time_insert"}, 2, "")
	require.NoError(t, err)
	assert.Equal(t,
		`INSERT INTO "orders" ("id", "_time_insert") VALUES (?, NOW()), (?, NOW())`, s.SQL)
	// The timestamp is SQL text, not a bound parameter.
	assert.Equal(t, []string{"id"}, s.Params)
}

func TestBuildUpdate(t *testing.T) {
	s, err := BuildUpdate(Postgres{}, "orders", []string{"customer", "total"}, []string{"_time_update"}, []string{"id"})
	require.NoError(t, err)
	assert.Equal(t,
		`UPDATE "orders" SET "customer" = $1, "total" = $2, "_time_update" = now() WHERE "id" = $3`,
		s.SQL)
	assert.Equal(t, []string{"customer", "total", "id"}, s.Params)
}

func TestBuildDelete(t *testing.T) {
	s, err := BuildDelete(SQLite{}, "orders", []string{"id"}, 3)
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "orders" WHERE "id" IN (?, ?, ?)`, s.SQL)

	s, err = BuildDelete(Postgres{}, "orders", []string{"region", "id"}, 2)
	require.NoError(t, err)
	assert.Equal(t,
		`DELETE FROM "orders" WHERE ("region", "id") IN (($1, $2), ($3, $4))`, s.SQL)
}

func TestBuildSelectKeys(t *testing.T) {
	s, err := BuildSelectKeys(Postgres{}, "orders", []string{"id"}, 2)
	require.NoError(t, err)
	assert.Equal(t, `SELECT "id" FROM "orders" WHERE "id" IN ($1, $2)`, s.SQL)

	s, err = BuildSelectAllKeys(Postgres{}, "orders", []string{"id"})
	require.NoError(t, err)
	assert.Equal(t, `SELECT "id" FROM "orders"`, s.SQL)

	s, err = BuildSelectColumns(Postgres{}, "orders", []string{"id", "total"})
	require.NoError(t, err)
	assert.Equal(t, `SELECT "id", "total" FROM "orders"`, s.SQL)
}

func TestBuildWidenColumn(t *testing.T) {
	col := schema.Column{Name: "qty", Type: sqltype.Type{Kind: sqltype.KindInt64}, Nullable: true}

	got, err := BuildWidenColumn(Postgres{}, "orders", col)
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "orders" ALTER COLUMN "qty" TYPE BIGINT`, got)

	got, err = BuildWidenColumn(MySQL{}, "orders", col)
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "orders" MODIFY COLUMN "qty" BIGINT NULL`, got)

	// SQLite's type affinity makes widening a no-op.
	got, err = BuildWidenColumn(SQLite{}, "orders", col)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBuildRejectsBadIdentifiers(t *testing.T) {
	_, err := BuildInsert(Postgres{}, "", []string{"a"}, nil, 1, "")
	assert.Error(t, err)

	_, err = BuildDelete(Postgres{}, "orders", []string{"bad\nname"}, 1)
	assert.Error(t, err)
}

// Builders are pure: identical input must render identical SQL so
// prepared statements can be reused across batches.
func TestBuildersAreDeterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		s, err := BuildInsert(Postgres{}, "orders", []string{"a", "b"}, []string{"_time_insert"}, 4, "id")
		require.NoError(t, err)
		first, _ := BuildInsert(Postgres{}, "orders", []string{"a", "b"}, []string{"_time_insert"}, 4, "id")
		assert.Equal(t, first.SQL, s.SQL)
	}
}
