package schema

import (
	"context"

	"github.com/framesync/framesync/internal/db"
	"github.com/framesync/framesync/internal/errs"
)

// PgReader implements Reader for PostgreSQL using information_schema.
type PgReader struct {
	db     db.Executor
	schema string
}

// NewPgReader creates a Postgres catalog reader scoped to schemaName
// ("public" when empty).
func NewPgReader(exec db.Executor, schemaName string) *PgReader {
	if schemaName == "" {
		schemaName = "public"
	}
	return &PgReader{db: exec, schema: schemaName}
}

// Read returns the live definition of table.
func (r *PgReader) Read(ctx context.Context, table string) (*Table, error) {
	const q = `
		SELECT
			c.column_name,
			c.data_type,
			c.is_nullable = 'YES'                     AS is_nullable,
			COALESCE(c.character_maximum_length, 0)   AS max_length,
			COALESCE(pk.is_pk, false)                 AS is_primary_key,
			COALESCE(c.is_identity = 'YES'
				OR c.column_default LIKE 'nextval(%', false) AS is_identity
		FROM information_schema.columns c
		LEFT JOIN (
			SELECT kcu.column_name, true AS is_pk
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
				ON tc.constraint_name = kcu.constraint_name
				AND tc.table_schema = kcu.table_schema
			WHERE tc.constraint_type = 'PRIMARY KEY'
				AND tc.table_schema = $1
				AND tc.table_name = $2
		) pk ON pk.column_name = c.column_name
		WHERE c.table_schema = $1
			AND c.table_name = $2
		ORDER BY c.ordinal_position`

	rows, err := r.db.Query(ctx, q, r.schema, table)
	if err != nil {
		return nil, errs.Wrap(errs.KindCatalogRead, "querying column catalog", err)
	}
	defer rows.Close()

	t := &Table{Name: table}
	for rows.Next() {
		var (
			name, dataType               string
			nullable, isPK, isIdentity   bool
			maxLen                       int
		)
		if err := rows.Scan(&name, &dataType, &nullable, &maxLen, &isPK, &isIdentity); err != nil {
			return nil, errs.Wrap(errs.KindCatalogRead, "scanning column row", err)
		}
		t.Columns = append(t.Columns, Column{
			Name:     name,
			Type:     parseDeclaredType(dataType, maxLen),
			Nullable: nullable,
			IsKey:    isPK,
			Identity: isIdentity,
		})
		if isPK {
			t.Keys = append(t.Keys, name)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.KindCatalogRead, "iterating column catalog", err)
	}

	// information_schema returns zero rows for an absent table.
	if len(t.Columns) == 0 {
		return nil, errs.Newf(errs.KindNotFound, "table %q does not exist", table)
	}
	return t, nil
}
