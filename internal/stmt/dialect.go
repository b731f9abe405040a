// Package stmt builds parameterized SQL statements for the sync engine.
// All identifiers enter statements as ident.Quoted values produced by the
// sanitizer; all data values are placeholders bound separately. Builders
// are pure: the same inputs always yield byte-identical statement text,
// so prepared statements can be reused across batches.
package stmt

import (
	"fmt"
	"strings"

	"github.com/framesync/framesync/internal/sqltype"
)

// Dialect captures the SQL surface that differs between stores.
// One Dialect is selected at setup time and reused for every call.
type Dialect interface {
	// Name identifies the dialect ("postgres", "mysql", "sqlite").
	Name() string

	// Placeholder returns the parameter marker for 1-based position n.
	Placeholder(n int) string

	// TypeName renders a lattice type as this store's DDL type.
	TypeName(t sqltype.Type) string

	// IdentityClause renders the column suffix for a store-generated key,
	// or "" when TypeName already encodes it.
	IdentityClause() string

	// MaxParams is the protocol's bound-parameter ceiling per statement.
	MaxParams() int

	// CurrentTimestamp is the server-side now() expression used for
	// metadata timestamp columns. It is fixed SQL text, never data.
	CurrentTimestamp() string

	// SupportsReturning reports whether INSERT ... RETURNING is available
	// for identity write-back.
	SupportsReturning() bool

	// WidenSyntax reports how this store alters a column's type.
	WidenSyntax() WidenSyntax

	// Merge returns the merge strategy for this store: native upsert
	// where the store has one, emulation otherwise.
	Merge() MergeStrategy
}

// WidenSyntax enumerates per-store ALTER COLUMN forms.
type WidenSyntax int

const (
	// WidenAlterColumnType — ALTER TABLE t ALTER COLUMN c TYPE x (Postgres).
	WidenAlterColumnType WidenSyntax = iota
	// WidenModifyColumn — ALTER TABLE t MODIFY COLUMN c x (MySQL).
	WidenModifyColumn
	// WidenNoOp — store uses type affinity; declared sizes do not
	// constrain stored values, so widening needs no DDL (SQLite).
	WidenNoOp
)

// Statement is built SQL plus the column order its placeholders bind in.
// For multi-row statements the order repeats per row.
type Statement struct {
	SQL string

	// Params is the per-row parameter column order.
	Params []string

	// Rows is how many rows one execution of SQL covers.
	Rows int
}

// placeholderList renders count placeholders starting at 1-based start.
func placeholderList(d Dialect, start, count int) string {
	parts := make([]string, count)
	for i := 0; i < count; i++ {
		parts[i] = d.Placeholder(start + i)
	}
	return strings.Join(parts, ", ")
}

// tupleList renders n parenthesised tuples of width placeholders:
// (?, ?), (?, ?), … numbering continuously from 1.
func tupleList(d Dialect, width, n int) string {
	var sb strings.Builder
	p := 1
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		sb.WriteString(placeholderList(d, p, width))
		sb.WriteByte(')')
		p += width
	}
	return sb.String()
}

func renderDecimal(t sqltype.Type) string {
	p := t.Precision
	if p == 0 {
		p = 38
	}
	return fmt.Sprintf("NUMERIC(%d,%d)", p, t.Scale)
}
