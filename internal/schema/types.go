// Package schema models table definitions and reconciles an inferred
// definition against the live catalog. Reconciliation is additive and
// widening only — it never emits an action that could lose stored data.
package schema

import (
	"github.com/framesync/framesync/internal/errs"
	"github.com/framesync/framesync/internal/sqltype"
)

// Column describes a single column in a table definition.
type Column struct {
	Name     string
	Type     sqltype.Type
	Nullable bool
	IsKey    bool

	// Identity marks store-generated columns (serial / auto-increment).
	// Their values are written back into the dataset after insert.
	Identity bool
}

// Table is an ordered table definition: columns keyed by unique name plus
// the ordered key-column list (empty = no natural key, insert-only).
type Table struct {
	Name    string
	Columns []Column
	Keys    []string
}

// Column returns the named column.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// HasColumn reports whether the table defines name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.Column(name)
	return ok
}

// ColumnNames returns column names in declaration order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// NonKeyColumns returns the columns not in the key set, in order.
func (t *Table) NonKeyColumns() []Column {
	keys := make(map[string]bool, len(t.Keys))
	for _, k := range t.Keys {
		keys[k] = true
	}
	var out []Column
	for _, c := range t.Columns {
		if !keys[c.Name] {
			out = append(out, c)
		}
	}
	return out
}

// IdentityColumn returns the store-generated column, if any.
func (t *Table) IdentityColumn() (Column, bool) {
	for _, c := range t.Columns {
		if c.Identity {
			return c, true
		}
	}
	return Column{}, false
}

// Validate checks structural invariants: unique non-empty column names and
// every declared key present as a column.
func (t *Table) Validate() error {
	if t.Name == "" {
		return errs.New(errs.KindInvalidInput, "table name is empty")
	}
	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if c.Name == "" {
			return errs.Newf(errs.KindInvalidInput, "table %q has an unnamed column", t.Name)
		}
		if seen[c.Name] {
			return errs.Newf(errs.KindInvalidInput, "table %q declares column %q twice", t.Name, c.Name)
		}
		seen[c.Name] = true
	}
	for _, k := range t.Keys {
		if !seen[k] {
			return errs.Newf(errs.KindInvalidInput, "key column %q is not a column of table %q", k, t.Name)
		}
	}
	return nil
}
