package stmt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOnConflictUpsert(t *testing.T) {
	s, err := Postgres{}.Merge().BuildUpsert("orders",
		[]string{"id", "customer", "total"},
		[]string{"id"},
		[]string{"customer", "total"},
		nil, nil, 2)
	require.NoError(t, err)
	assert.Equal(t,
		`INSERT INTO "orders" ("id", "customer", "total") VALUES ($1, $2, $3), ($4, $5, $6)`+
			` ON CONFLICT ("id") DO UPDATE SET "customer" = EXCLUDED."customer", "total" = EXCLUDED."total"`,
		s.SQL)
	assert.Equal(t, []string{"id", "customer", "total"}, s.Params)
	assert.Equal(t, 2, s.Rows)
}

func TestOnConflictUpsertKeyOnly(t *testing.T) {
	s, err := SQLite{}.Merge().BuildUpsert("seen",
		[]string{"id"}, []string{"id"}, nil, nil, nil, 1)
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "seen" ("id") VALUES (?) ON CONFLICT ("id") DO NOTHING`, s.SQL)
}

func TestOnConflictUpsertWithTimestamps(t *testing.T) {
	s, err := Postgres{}.Merge().BuildUpsert("orders",
		[]string{"id", "total"},
		[]string{"id"},
		[]string{"total"},
		[]string{"_time_insert"},
		[]string{"_time_update"},
		1)
	require.NoError(t, err)
	assert.Equal(t,
		`INSERT INTO "orders" ("id", "total", "_time_insert") VALUES ($1, $2, now())`+
			` ON CONFLICT ("id") DO UPDATE SET "total" = EXCLUDED."total", "_time_update" = now()`,
		s.SQL)
}

func TestOnDuplicateKeyUpsert(t *testing.T) {
	s, err := MySQL{}.Merge().BuildUpsert("orders",
		[]string{"id", "total"},
		[]string{"id"},
		[]string{"total"},
		nil, nil, 2)
	require.NoError(t, err)
	assert.Equal(t,
		`INSERT INTO "orders" ("id", "total") VALUES (?, ?), (?, ?)`+
			` ON DUPLICATE KEY UPDATE "total" = VALUES("total")`,
		s.SQL)
}

func TestOnDuplicateKeyUpsertKeyOnly(t *testing.T) {
	s, err := MySQL{}.Merge().BuildUpsert("seen",
		[]string{"id"}, []string{"id"}, nil, nil, nil, 1)
	require.NoError(t, err)
	assert.Equal(t,
		`INSERT INTO "seen" ("id") VALUES (?) ON DUPLICATE KEY UPDATE "id" = "id"`, s.SQL)
}

func TestEmulatedMergeHasNoUpsert(t *testing.T) {
	var m EmulatedMerge
	assert.False(t, m.Native())
	_, err := m.BuildUpsert("t", []string{"a"}, []string{"a"}, nil, nil, nil, 1)
	assert.Error(t, err)
}

func TestDialectPlaceholders(t *testing.T) {
	assert.Equal(t, "$3", Postgres{}.Placeholder(3))
	assert.Equal(t, "?", MySQL{}.Placeholder(3))
	assert.Equal(t, "?", SQLite{}.Placeholder(3))
}
