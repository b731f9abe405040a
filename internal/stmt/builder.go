package stmt

import (
	"strings"

	"github.com/framesync/framesync/internal/ident"
	"github.com/framesync/framesync/internal/schema"
)

// BuildCreateTable renders CREATE TABLE with columns in declaration order
// and a PRIMARY KEY clause when the definition declares keys.
func BuildCreateTable(d Dialect, t *schema.Table) (string, error) {
	table, err := ident.Quote(t.Name)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("CREATE TABLE ")
	sb.WriteString(table.String())
	sb.WriteString(" (")

	for i, c := range t.Columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		col, err := ident.Quote(c.Name)
		if err != nil {
			return "", err
		}
		sb.WriteString(col.String())
		sb.WriteByte(' ')
		sb.WriteString(d.TypeName(c.Type))
		if c.Identity {
			if clause := d.IdentityClause(); clause != "" {
				sb.WriteByte(' ')
				sb.WriteString(clause)
			}
		}
		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
	}

	if len(t.Keys) > 0 {
		keys, err := ident.QuoteAll(t.Keys)
		if err != nil {
			return "", err
		}
		sb.WriteString(", PRIMARY KEY (")
		sb.WriteString(joinQuoted(keys))
		sb.WriteByte(')')
	}

	sb.WriteByte(')')
	return sb.String(), nil
}

// BuildAddColumn renders ALTER TABLE ... ADD COLUMN. Added columns are
// always nullable: rows already in the table hold no value for them.
func BuildAddColumn(d Dialect, tableName string, c schema.Column) (string, error) {
	table, err := ident.Quote(tableName)
	if err != nil {
		return "", err
	}
	col, err := ident.Quote(c.Name)
	if err != nil {
		return "", err
	}
	return "ALTER TABLE " + table.String() + " ADD COLUMN " + col.String() + " " + d.TypeName(c.Type), nil
}

// BuildWidenColumn renders the dialect's column-type change. The empty
// string means the store needs no DDL for this widening (type affinity).
func BuildWidenColumn(d Dialect, tableName string, c schema.Column) (string, error) {
	table, err := ident.Quote(tableName)
	if err != nil {
		return "", err
	}
	col, err := ident.Quote(c.Name)
	if err != nil {
		return "", err
	}

	switch d.WidenSyntax() {
	case WidenAlterColumnType:
		return "ALTER TABLE " + table.String() + " ALTER COLUMN " + col.String() + " TYPE " + d.TypeName(c.Type), nil
	case WidenModifyColumn:
		null := " NOT NULL"
		if c.Nullable {
			null = " NULL"
		}
		return "ALTER TABLE " + table.String() + " MODIFY COLUMN " + col.String() + " " + d.TypeName(c.Type) + null, nil
	default:
		return "", nil
	}
}

// BuildDropNotNull renders the nullability relaxation for stores where a
// type change statement does not carry it (Postgres).
func BuildDropNotNull(d Dialect, tableName, colName string) (string, error) {
	table, err := ident.Quote(tableName)
	if err != nil {
		return "", err
	}
	col, err := ident.Quote(colName)
	if err != nil {
		return "", err
	}
	return "ALTER TABLE " + table.String() + " ALTER COLUMN " + col.String() + " DROP NOT NULL", nil
}

// BuildInsert renders a multi-row INSERT for n rows. exprCols are columns
// whose value is the server-side timestamp expression rather than a
// placeholder (metadata timestamps). returning, when non-empty and
// supported, appends RETURNING for identity write-back.
func BuildInsert(d Dialect, tableName string, cols []string, exprCols []string, n int, returning string) (Statement, error) {
	table, err := ident.Quote(tableName)
	if err != nil {
		return Statement{}, err
	}
	quoted, err := ident.QuoteAll(cols)
	if err != nil {
		return Statement{}, err
	}
	exprQuoted, err := ident.QuoteAll(exprCols)
	if err != nil {
		return Statement{}, err
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(table.String())
	sb.WriteString(" (")
	sb.WriteString(joinQuoted(quoted))
	for _, e := range exprQuoted {
		sb.WriteString(", ")
		sb.WriteString(e.String())
	}
	sb.WriteString(") VALUES ")

	width := len(cols)
	p := 1
	for r := 0; r < n; r++ {
		if r > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		sb.WriteString(placeholderList(d, p, width))
		for range exprQuoted {
			sb.WriteString(", ")
			sb.WriteString(d.CurrentTimestamp())
		}
		sb.WriteByte(')')
		p += width
	}

	if returning != "" && d.SupportsReturning() {
		ret, err := ident.Quote(returning)
		if err != nil {
			return Statement{}, err
		}
		sb.WriteString(" RETURNING ")
		sb.WriteString(ret.String())
	}

	return Statement{SQL: sb.String(), Params: cols, Rows: n}, nil
}

// BuildUpdate renders a single-row UPDATE by key equality. Parameter
// order is set columns then key columns; the statement is prepared once
// and executed per row.
func BuildUpdate(d Dialect, tableName string, setCols, exprCols, keyCols []string) (Statement, error) {
	table, err := ident.Quote(tableName)
	if err != nil {
		return Statement{}, err
	}
	set, err := ident.QuoteAll(setCols)
	if err != nil {
		return Statement{}, err
	}
	expr, err := ident.QuoteAll(exprCols)
	if err != nil {
		return Statement{}, err
	}
	keys, err := ident.QuoteAll(keyCols)
	if err != nil {
		return Statement{}, err
	}

	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(table.String())
	sb.WriteString(" SET ")

	p := 1
	for i, c := range set {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(c.String())
		sb.WriteString(" = ")
		sb.WriteString(d.Placeholder(p))
		p++
	}
	for _, e := range expr {
		sb.WriteString(", ")
		sb.WriteString(e.String())
		sb.WriteString(" = ")
		sb.WriteString(d.CurrentTimestamp())
	}

	sb.WriteString(" WHERE ")
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(" AND ")
		}
		sb.WriteString(k.String())
		sb.WriteString(" = ")
		sb.WriteString(d.Placeholder(p))
		p++
	}

	return Statement{SQL: sb.String(), Params: append(append([]string{}, setCols...), keyCols...), Rows: 1}, nil
}

// BuildDelete renders DELETE for n key tuples using an IN list
// ((k) IN (…) for single keys, row-value tuples for composite keys).
func BuildDelete(d Dialect, tableName string, keyCols []string, n int) (Statement, error) {
	table, err := ident.Quote(tableName)
	if err != nil {
		return Statement{}, err
	}
	where, err := keyInList(d, keyCols, n)
	if err != nil {
		return Statement{}, err
	}
	return Statement{
		SQL:    "DELETE FROM " + table.String() + " WHERE " + where,
		Params: keyCols,
		Rows:   n,
	}, nil
}

// BuildSelectKeys renders the classification lookup: select the key
// columns of every live row whose key tuple appears in the n-tuple list.
func BuildSelectKeys(d Dialect, tableName string, keyCols []string, n int) (Statement, error) {
	table, err := ident.Quote(tableName)
	if err != nil {
		return Statement{}, err
	}
	keys, err := ident.QuoteAll(keyCols)
	if err != nil {
		return Statement{}, err
	}
	where, err := keyInList(d, keyCols, n)
	if err != nil {
		return Statement{}, err
	}
	return Statement{
		SQL:    "SELECT " + joinQuoted(keys) + " FROM " + table.String() + " WHERE " + where,
		Params: keyCols,
		Rows:   n,
	}, nil
}

// BuildSelectColumns renders a full-table read of the named columns in
// order. There is deliberately no SELECT *: the column list comes from
// the catalog so results line up with a known definition.
func BuildSelectColumns(d Dialect, tableName string, cols []string) (Statement, error) {
	table, err := ident.Quote(tableName)
	if err != nil {
		return Statement{}, err
	}
	quoted, err := ident.QuoteAll(cols)
	if err != nil {
		return Statement{}, err
	}
	return Statement{
		SQL: "SELECT " + joinQuoted(quoted) + " FROM " + table.String(),
	}, nil
}

// BuildSelectAllKeys renders the full key scan used to find rows absent
// from the dataset (merge with delete enabled).
func BuildSelectAllKeys(d Dialect, tableName string, keyCols []string) (Statement, error) {
	table, err := ident.Quote(tableName)
	if err != nil {
		return Statement{}, err
	}
	keys, err := ident.QuoteAll(keyCols)
	if err != nil {
		return Statement{}, err
	}
	return Statement{
		SQL: "SELECT " + joinQuoted(keys) + " FROM " + table.String(),
	}, nil
}

func keyInList(d Dialect, keyCols []string, n int) (string, error) {
	keys, err := ident.QuoteAll(keyCols)
	if err != nil {
		return "", err
	}
	if len(keys) == 1 {
		return keys[0].String() + " IN (" + placeholderList(d, 1, n) + ")", nil
	}
	return "(" + joinQuoted(keys) + ") IN (" + tupleList(d, len(keys), n) + ")", nil
}

func joinQuoted(qs []ident.Quoted) string {
	parts := make([]string, len(qs))
	for i, q := range qs {
		parts[i] = q.String()
	}
	return strings.Join(parts, ", ")
}
