package schema

import (
	"context"
	"strconv"
	"strings"

	"github.com/framesync/framesync/internal/sqltype"
)

// Reader reads the live definition of a single table from the store's
// catalog. Implementations never cache: the schema can change between
// calls (e.g. by another engine instance), so every Read hits the store.
type Reader interface {
	// Read returns the current table definition, or an error of kind
	// NotFound when the table does not exist, or kind CatalogRead when
	// the catalog query itself fails.
	Read(ctx context.Context, table string) (*Table, error)
}

// parseDeclaredType maps a catalog type string like "VARCHAR(255)" or
// "decimal(10,2)" onto the type lattice. Size/precision in the
// parenthesised suffix override maxLen. Unknown names map to unbounded
// text, which is always safe to widen into.
func parseDeclaredType(declared string, maxLen int) sqltype.Type {
	name := strings.ToLower(strings.TrimSpace(declared))
	var p, s int
	if i := strings.IndexByte(name, '('); i >= 0 {
		spec := strings.TrimSuffix(name[i+1:], ")")
		name = strings.TrimSpace(name[:i])
		parts := strings.SplitN(spec, ",", 2)
		p, _ = strconv.Atoi(strings.TrimSpace(parts[0]))
		if len(parts) == 2 {
			s, _ = strconv.Atoi(strings.TrimSpace(parts[1]))
		}
	}
	if p == 0 {
		p = maxLen
	}

	switch name {
	case "bool", "boolean", "bit":
		return sqltype.Type{Kind: sqltype.KindBool}
	case "tinyint":
		return sqltype.Type{Kind: sqltype.KindInt8}
	case "smallint", "int2":
		return sqltype.Type{Kind: sqltype.KindInt16}
	case "int", "integer", "mediumint", "int4":
		return sqltype.Type{Kind: sqltype.KindInt32}
	case "bigint", "int8":
		return sqltype.Type{Kind: sqltype.KindInt64}
	case "decimal", "numeric":
		return sqltype.Type{Kind: sqltype.KindDecimal, Precision: p, Scale: s}
	case "real", "float", "float4", "double", "double precision", "float8":
		return sqltype.Type{Kind: sqltype.KindFloat64}
	case "date":
		return sqltype.Type{Kind: sqltype.KindDate}
	case "datetime", "datetime2", "timestamp", "timestamp without time zone", "timestamp with time zone", "timestamptz":
		return sqltype.Type{Kind: sqltype.KindDateTime, Precision: p}
	case "varchar", "character varying", "char", "character":
		return sqltype.Type{Kind: sqltype.KindString, Size: p}
	case "nvarchar", "nchar":
		return sqltype.Type{Kind: sqltype.KindString, Size: p, Unicode: true}
	case "text", "mediumtext", "longtext", "clob":
		return sqltype.Type{Kind: sqltype.KindString}
	case "binary", "varbinary":
		return sqltype.Type{Kind: sqltype.KindBinary, Size: p}
	case "blob", "bytea", "longblob", "mediumblob":
		return sqltype.Type{Kind: sqltype.KindBinary}
	default:
		return sqltype.Text()
	}
}
