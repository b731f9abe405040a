package schema

import (
	"context"

	"github.com/framesync/framesync/internal/db"
	"github.com/framesync/framesync/internal/errs"
)

// MySQLReader implements Reader for MySQL using information_schema.
type MySQLReader struct {
	db db.Executor
}

// NewMySQLReader creates a MySQL catalog reader scoped to the connected
// database (DATABASE()).
func NewMySQLReader(exec db.Executor) *MySQLReader {
	return &MySQLReader{db: exec}
}

// Read returns the live definition of table.
func (r *MySQLReader) Read(ctx context.Context, table string) (*Table, error) {
	const q = `
		SELECT
			column_name,
			data_type,
			is_nullable = 'YES',
			COALESCE(character_maximum_length, 0),
			column_key = 'PRI',
			extra LIKE '%auto_increment%'
		FROM information_schema.columns
		WHERE table_schema = DATABASE()
		  AND table_name   = ?
		ORDER BY ordinal_position`

	rows, err := r.db.Query(ctx, q, table)
	if err != nil {
		return nil, errs.Wrap(errs.KindCatalogRead, "querying column catalog", err)
	}
	defer rows.Close()

	t := &Table{Name: table}
	for rows.Next() {
		var (
			name, dataType             string
			nullable, isPK, isIdentity bool
			maxLen                     int
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

	if len(t.Columns) == 0 {
		return nil, errs.Newf(errs.KindNotFound, "table %q does not exist", table)
	}
	return t, nil
}
