package stmt

import (
	"fmt"

	"github.com/framesync/framesync/internal/sqltype"
)

// SQLite is the SQLite dialect: ? placeholders, native upsert via
// INSERT ... ON CONFLICT, RETURNING for identity write-back.
type SQLite struct{}

func (SQLite) Name() string { return "sqlite" }

func (SQLite) Placeholder(int) string { return "?" }

func (SQLite) TypeName(t sqltype.Type) string {
	switch t.Kind {
	case sqltype.KindBool:
		return "BOOLEAN"
	case sqltype.KindInt8, sqltype.KindInt16, sqltype.KindInt32, sqltype.KindInt64:
		return "INTEGER"
	case sqltype.KindDecimal:
		return renderDecimal(t)
	case sqltype.KindFloat64:
		return "REAL"
	case sqltype.KindDate:
		return "DATE"
	case sqltype.KindDateTime:
		return "DATETIME"
	case sqltype.KindString:
		if t.Size == 0 {
			return "TEXT"
		}
		return fmt.Sprintf("VARCHAR(%d)", t.Size)
	case sqltype.KindBinary:
		return "BLOB"
	default:
		return "TEXT"
	}
}

// IdentityClause is empty: a lone INTEGER PRIMARY KEY column is already
// the rowid alias and auto-assigns.
func (SQLite) IdentityClause() string { return "" }

// MaxParams matches SQLITE_MAX_VARIABLE_NUMBER on stock builds.
func (SQLite) MaxParams() int { return 999 }

func (SQLite) CurrentTimestamp() string { return "CURRENT_TIMESTAMP" }

func (SQLite) SupportsReturning() bool { return true }

func (SQLite) WidenSyntax() WidenSyntax { return WidenNoOp }

func (d SQLite) Merge() MergeStrategy { return onConflictMerge{dialect: d} }
