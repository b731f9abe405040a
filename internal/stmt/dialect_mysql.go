package stmt

import (
	"fmt"

	"github.com/framesync/framesync/internal/sqltype"
)

// MySQL is the MySQL dialect: ? placeholders, native upsert via
// INSERT ... ON DUPLICATE KEY UPDATE, LastInsertId for identity write-back.
type MySQL struct{}

func (MySQL) Name() string { return "mysql" }

func (MySQL) Placeholder(int) string { return "?" }

func (MySQL) TypeName(t sqltype.Type) string {
	switch t.Kind {
	case sqltype.KindBool:
		return "BOOLEAN"
	case sqltype.KindInt8:
		return "TINYINT"
	case sqltype.KindInt16:
		return "SMALLINT"
	case sqltype.KindInt32:
		return "INT"
	case sqltype.KindInt64:
		return "BIGINT"
	case sqltype.KindDecimal:
		return renderDecimal(t)
	case sqltype.KindFloat64:
		return "DOUBLE"
	case sqltype.KindDate:
		return "DATE"
	case sqltype.KindDateTime:
		return "DATETIME"
	case sqltype.KindString:
		if t.Size == 0 {
			return "TEXT"
		}
		if t.Unicode {
			return fmt.Sprintf("NVARCHAR(%d)", t.Size)
		}
		return fmt.Sprintf("VARCHAR(%d)", t.Size)
	case sqltype.KindBinary:
		if t.Size == 0 {
			return "BLOB"
		}
		return fmt.Sprintf("VARBINARY(%d)", t.Size)
	default:
		return "TEXT"
	}
}

func (MySQL) IdentityClause() string { return "AUTO_INCREMENT" }

// MaxParams is the prepared-statement placeholder ceiling (uint16).
func (MySQL) MaxParams() int { return 65535 }

func (MySQL) CurrentTimestamp() string { return "NOW()" }

func (MySQL) SupportsReturning() bool { return false }

func (MySQL) WidenSyntax() WidenSyntax { return WidenModifyColumn }

func (d MySQL) Merge() MergeStrategy { return onDuplicateKeyMerge{dialect: d} }
