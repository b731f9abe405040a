package schema

import (
	"context"
	"strings"

	"github.com/framesync/framesync/internal/db"
	"github.com/framesync/framesync/internal/errs"
	"github.com/framesync/framesync/internal/ident"
)

// SQLiteReader implements Reader for SQLite using PRAGMA table_info.
type SQLiteReader struct {
	db db.Executor
}

// NewSQLiteReader creates a SQLite catalog reader.
func NewSQLiteReader(exec db.Executor) *SQLiteReader {
	return &SQLiteReader{db: exec}
}

// Read returns the live definition of table.
func (r *SQLiteReader) Read(ctx context.Context, table string) (*Table, error) {
	// PRAGMA does not take bind parameters; the name goes through the
	// sanitizer like every other identifier.
	quoted, err := ident.Quote(table)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, "PRAGMA table_info("+quoted.String()+")")
	if err != nil {
		return nil, errs.Wrap(errs.KindCatalogRead, "querying table_info pragma", err)
	}
	defer rows.Close()

	t := &Table{Name: table}
	type pkCol struct {
		name    string
		ord     int
		integer bool
	}
	var pks []pkCol

	for rows.Next() {
		var (
			cid, notNull, pk int
			name, declared   string
			dflt             any
		)
		if err := rows.Scan(&cid, &name, &declared, &notNull, &dflt, &pk); err != nil {
			return nil, errs.Wrap(errs.KindCatalogRead, "scanning table_info row", err)
		}
		col := Column{
			Name:     name,
			Type:     parseDeclaredType(declared, 0),
			Nullable: notNull == 0,
			IsKey:    pk > 0,
		}
		// A single INTEGER PRIMARY KEY column is SQLite's rowid alias and
		// behaves as auto-increment.
		t.Columns = append(t.Columns, col)
		if pk > 0 {
			// The alias test is on the declared name: "INTEGER" aliases
			// rowid, "INT" and friends do not.
			pks = append(pks, pkCol{
				name:    name,
				ord:     pk,
				integer: strings.EqualFold(strings.TrimSpace(declared), "integer"),
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.KindCatalogRead, "iterating table_info rows", err)
	}

	if len(t.Columns) == 0 {
		return nil, errs.Newf(errs.KindNotFound, "table %q does not exist", table)
	}

	// pk ordinals give composite key order.
	for ord := 1; ord <= len(pks); ord++ {
		for _, p := range pks {
			if p.ord == ord {
				t.Keys = append(t.Keys, p.name)
			}
		}
	}
	if len(pks) == 1 && pks[0].integer {
		for i := range t.Columns {
			if t.Columns[i].Name == pks[0].name {
				t.Columns[i].Identity = true
			}
		}
	}

	return t, nil
}
