package stmt

import (
	"fmt"

	"github.com/framesync/framesync/internal/sqltype"
)

// Postgres is the PostgreSQL dialect: $n placeholders, native upsert via
// INSERT ... ON CONFLICT, RETURNING for identity write-back.
type Postgres struct{}

func (Postgres) Name() string { return "postgres" }

func (Postgres) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (Postgres) TypeName(t sqltype.Type) string {
	switch t.Kind {
	case sqltype.KindBool:
		return "BOOLEAN"
	case sqltype.KindInt8, sqltype.KindInt16:
		return "SMALLINT"
	case sqltype.KindInt32:
		return "INTEGER"
	case sqltype.KindInt64:
		return "BIGINT"
	case sqltype.KindDecimal:
		return renderDecimal(t)
	case sqltype.KindFloat64:
		return "DOUBLE PRECISION"
	case sqltype.KindDate:
		return "DATE"
	case sqltype.KindDateTime:
		return "TIMESTAMP"
	case sqltype.KindString:
		if t.Size == 0 {
			return "TEXT"
		}
		return fmt.Sprintf("VARCHAR(%d)", t.Size)
	case sqltype.KindBinary:
		return "BYTEA"
	default:
		return "TEXT"
	}
}

func (Postgres) IdentityClause() string { return "GENERATED BY DEFAULT AS IDENTITY" }

// MaxParams is the extended-protocol Bind limit (uint16 parameter count).
func (Postgres) MaxParams() int { return 65535 }

func (Postgres) CurrentTimestamp() string { return "now()" }

func (Postgres) SupportsReturning() bool { return true }

func (Postgres) WidenSyntax() WidenSyntax { return WidenAlterColumnType }

func (d Postgres) Merge() MergeStrategy { return onConflictMerge{dialect: d} }
