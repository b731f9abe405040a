package stmt

import (
	"strings"

	"github.com/framesync/framesync/internal/errs"
	"github.com/framesync/framesync/internal/ident"
)

// MergeStrategy is the store's way of expressing "update on match, insert
// on no match" for one batch of rows. The variant is fixed per dialect at
// setup time; the engine falls back to the emulated three-statement path
// when the native construct cannot express a call (match keys that are
// not the table's unique key, or delete semantics).
type MergeStrategy interface {
	// Native reports whether a single-statement upsert is available.
	Native() bool

	// BuildUpsert renders the upsert for n rows. cols is every bound
	// column (keys included), keyCols the match columns (must be the
	// table's primary/unique key), updateCols the non-key columns set on
	// match. insertTS/updateTS are metadata timestamp columns filled with
	// the server-side now() expression on the respective branch.
	BuildUpsert(tableName string, cols, keyCols, updateCols, insertTS, updateTS []string, n int) (Statement, error)
}

// onConflictMerge implements the ANSI-ish INSERT ... ON CONFLICT upsert
// shared by Postgres and SQLite.
type onConflictMerge struct {
	dialect Dialect
}

func (onConflictMerge) Native() bool { return true }

func (m onConflictMerge) BuildUpsert(tableName string, cols, keyCols, updateCols, insertTS, updateTS []string, n int) (Statement, error) {
	base, err := BuildInsert(m.dialect, tableName, cols, insertTS, n, "")
	if err != nil {
		return Statement{}, err
	}
	keys, err := ident.QuoteAll(keyCols)
	if err != nil {
		return Statement{}, err
	}
	update, err := ident.QuoteAll(updateCols)
	if err != nil {
		return Statement{}, err
	}
	updTS, err := ident.QuoteAll(updateTS)
	if err != nil {
		return Statement{}, err
	}

	var sb strings.Builder
	sb.WriteString(base.SQL)
	sb.WriteString(" ON CONFLICT (")
	sb.WriteString(joinQuoted(keys))
	sb.WriteString(")")

	if len(update) == 0 && len(updTS) == 0 {
		sb.WriteString(" DO NOTHING")
		return Statement{SQL: sb.String(), Params: base.Params, Rows: n}, nil
	}

	sb.WriteString(" DO UPDATE SET ")
	for i, c := range update {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(c.String())
		sb.WriteString(" = EXCLUDED.")
		sb.WriteString(c.String())
	}
	for i, e := range updTS {
		if i > 0 || len(update) > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(e.String())
		sb.WriteString(" = ")
		sb.WriteString(m.dialect.CurrentTimestamp())
	}

	return Statement{SQL: sb.String(), Params: base.Params, Rows: n}, nil
}

// onDuplicateKeyMerge implements MySQL's INSERT ... ON DUPLICATE KEY
// UPDATE. The matched key is whatever unique key the inserted row
// collides with, so the engine only selects it when the match columns are
// the table's primary key.
type onDuplicateKeyMerge struct {
	dialect Dialect
}

func (onDuplicateKeyMerge) Native() bool { return true }

func (m onDuplicateKeyMerge) BuildUpsert(tableName string, cols, keyCols, updateCols, insertTS, updateTS []string, n int) (Statement, error) {
	base, err := BuildInsert(m.dialect, tableName, cols, insertTS, n, "")
	if err != nil {
		return Statement{}, err
	}
	update, err := ident.QuoteAll(updateCols)
	if err != nil {
		return Statement{}, err
	}
	updTS, err := ident.QuoteAll(updateTS)
	if err != nil {
		return Statement{}, err
	}

	var sb strings.Builder
	sb.WriteString(base.SQL)
	sb.WriteString(" ON DUPLICATE KEY UPDATE ")

	if len(update) == 0 && len(updTS) == 0 {
		// MySQL has no DO NOTHING; assigning a key column to itself is
		// the conventional no-op.
		key, err := ident.Quote(keyCols[0])
		if err != nil {
			return Statement{}, err
		}
		sb.WriteString(key.String())
		sb.WriteString(" = ")
		sb.WriteString(key.String())
		return Statement{SQL: sb.String(), Params: base.Params, Rows: n}, nil
	}

	for i, c := range update {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(c.String())
		sb.WriteString(" = VALUES(")
		sb.WriteString(c.String())
		sb.WriteString(")")
	}
	for i, e := range updTS {
		if i > 0 || len(update) > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(e.String())
		sb.WriteString(" = ")
		sb.WriteString(m.dialect.CurrentTimestamp())
	}

	return Statement{SQL: sb.String(), Params: base.Params, Rows: n}, nil
}

// EmulatedMerge is the fallback for stores (or calls) where no native
// upsert applies. Native() is false, which routes the engine through the
// Delete → Update → Insert sequence as one logical unit.
type EmulatedMerge struct{}

func (EmulatedMerge) Native() bool { return false }

func (EmulatedMerge) BuildUpsert(string, []string, []string, []string, []string, []string, int) (Statement, error) {
	return Statement{}, errs.New(errs.KindInvalidInput, "emulated merge has no single-statement upsert")
}
