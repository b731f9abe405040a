package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/framesync/framesync/internal/db"
	"github.com/framesync/framesync/internal/errs"
	"github.com/framesync/framesync/internal/frame"
	"github.com/framesync/framesync/internal/schema"
	"github.com/framesync/framesync/internal/sqltype"
	"github.com/framesync/framesync/internal/stmt"
)

// classification is the partition of one call's rows. Index slices keep
// dataset row order, so batches built from them are ordered subsequences
// of the input.
type classification struct {
	toInsert []int
	toUpdate []int

	// noMatch holds update-mode rows with no live counterpart. They are
	// reported, never inserted.
	noMatch []int

	// toDelete holds the key tuples of live rows absent from the dataset
	// (merge with delete enabled). Tuples are already coerced for binding.
	toDelete [][]any
}

// classify partitions dataset rows by probing the live key set with
// batched IN-list lookups. Insert mode skips the probe entirely.
func (e *Engine) classify(ctx context.Context, mode Mode, fr *frame.Frame, table *schema.Table, keyCols []string, opts Options) (*classification, error) {
	cls := &classification{}

	if mode == ModeInsert {
		for i := 0; i < fr.NumRows(); i++ {
			cls.toInsert = append(cls.toInsert, i)
		}
		return cls, nil
	}

	keyTypes, err := columnTypes(table, keyCols)
	if err != nil {
		return nil, err
	}

	// Key tuple per dataset row. NULL in a key column makes the row
	// unmatchable, which is a caller mistake, not a data outcome.
	tuples := make([][]any, fr.NumRows())
	rowKeys := make([]string, fr.NumRows())
	for i := 0; i < fr.NumRows(); i++ {
		tuple := make([]any, len(keyCols))
		for k, col := range keyCols {
			v, _ := fr.Value(col, i)
			if v == nil {
				return nil, errs.Newf(errs.KindMissingKey,
					"row %d has NULL in key column %q", i, col)
			}
			coerced, err := sqltype.Coerce(v, keyTypes[k])
			if err != nil {
				return nil, err
			}
			tuple[k] = coerced
		}
		tuples[i] = tuple
		rowKeys[i] = keyOf(tuple)
	}

	live, err := e.probeLiveKeys(ctx, table, keyCols, keyTypes, tuples, opts)
	if err != nil {
		return nil, err
	}

	for i := range tuples {
		switch {
		case live[rowKeys[i]]:
			cls.toUpdate = append(cls.toUpdate, i)
		case mode == ModeUpdate:
			cls.noMatch = append(cls.noMatch, i)
		default:
			cls.toInsert = append(cls.toInsert, i)
		}
	}

	if mode == ModeMerge && opts.AllowDelete {
		datasetKeys := make(map[string]bool, len(rowKeys))
		for _, k := range rowKeys {
			datasetKeys[k] = true
		}
		cls.toDelete, err = e.findOrphanKeys(ctx, table, keyCols, keyTypes, datasetKeys, opts)
		if err != nil {
			return nil, err
		}
	}

	return cls, nil
}

// probeLiveKeys returns the set of dataset key tuples that already exist
// in the table. Lookups batch distinct tuples into IN lists sized by the
// batch limit and the parameter ceiling.
func (e *Engine) probeLiveKeys(ctx context.Context, table *schema.Table, keyCols []string, keyTypes []sqltype.Type, tuples [][]any, opts Options) (map[string]bool, error) {
	var distinct [][]any
	seen := make(map[string]bool, len(tuples))
	for _, t := range tuples {
		k := keyOf(t)
		if !seen[k] {
			seen[k] = true
			distinct = append(distinct, t)
		}
	}

	exec := e.executor(opts)
	live := make(map[string]bool)
	per := e.rowsPerBatch(opts, len(keyCols))

	for start := 0; start < len(distinct); start += per {
		if err := checkCtx(ctx); err != nil {
			return nil, err
		}
		chunk := distinct[start:min(start+per, len(distinct))]

		s, err := stmt.BuildSelectKeys(e.dialect, table.Name, keyCols, len(chunk))
		if err != nil {
			return nil, err
		}
		args := make([]any, 0, len(chunk)*len(keyCols))
		for _, t := range chunk {
			args = append(args, t...)
		}

		rows, err := exec.Query(ctx, s.SQL, args...)
		if err != nil {
			return nil, errs.Wrap(errs.KindBatchExecution, "probing live keys", err)
		}
		if err := scanKeys(rows, keyTypes, func(tuple []any) {
			live[keyOf(tuple)] = true
		}); err != nil {
			return nil, err
		}
	}

	return live, nil
}

// findOrphanKeys scans every live key and keeps the ones the dataset does
// not carry.
func (e *Engine) findOrphanKeys(ctx context.Context, table *schema.Table, keyCols []string, keyTypes []sqltype.Type, datasetKeys map[string]bool, opts Options) ([][]any, error) {
	s, err := stmt.BuildSelectAllKeys(e.dialect, table.Name, keyCols)
	if err != nil {
		return nil, err
	}
	rows, err := e.executor(opts).Query(ctx, s.SQL)
	if err != nil {
		return nil, errs.Wrap(errs.KindBatchExecution, "scanning live keys", err)
	}

	var orphans [][]any
	if err := scanKeys(rows, keyTypes, func(tuple []any) {
		if !datasetKeys[keyOf(tuple)] {
			orphans = append(orphans, append([]any{}, tuple...))
		}
	}); err != nil {
		return nil, err
	}
	return orphans, nil
}

// scanKeys drains a key result set, normalising each tuple to the same
// canonical representation the dataset tuples use so set membership
// compares equal values, not driver-native ones.
func scanKeys(rows db.Rows, keyTypes []sqltype.Type, fn func(tuple []any)) error {
	defer rows.Close()

	for rows.Next() {
		raw := make([]any, len(keyTypes))
		dest := make([]any, len(keyTypes))
		for i := range raw {
			dest[i] = &raw[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return errs.Wrap(errs.KindBatchExecution, "scanning key row", err)
		}
		tuple := make([]any, len(keyTypes))
		for i, v := range raw {
			coerced, err := sqltype.Coerce(v, keyTypes[i])
			if err != nil {
				return err
			}
			tuple[i] = coerced
		}
		fn(tuple)
	}
	if err := rows.Err(); err != nil {
		return errs.Wrap(errs.KindBatchExecution, "reading key rows", err)
	}
	return nil
}

// keyOf encodes a coerced key tuple as a map key. Values are already in
// canonical form, so textual encoding is stable across dataset and store.
// Every segment is length-prefixed, so byte or string values containing
// the delimiter cannot collide with a neighbouring column's encoding.
func keyOf(tuple []any) string {
	var sb strings.Builder
	for _, v := range tuple {
		var seg string
		switch x := v.(type) {
		case time.Time:
			seg = x.UTC().Format(time.RFC3339Nano)
		case []byte:
			seg = string(x)
		default:
			seg = fmt.Sprintf("%v", x)
		}
		sb.WriteString(strconv.Itoa(len(seg)))
		sb.WriteByte(0x1f)
		sb.WriteString(seg)
	}
	return sb.String()
}

func columnTypes(table *schema.Table, cols []string) ([]sqltype.Type, error) {
	types := make([]sqltype.Type, len(cols))
	for i, name := range cols {
		c, ok := table.Column(name)
		if !ok {
			return nil, errs.Newf(errs.KindInvalidInput, "table %q has no column %q", table.Name, name)
		}
		types[i] = c.Type
	}
	return types, nil
}

// rowsPerBatch clamps the configured batch size so one statement's bound
// parameters stay under the dialect's ceiling.
func (e *Engine) rowsPerBatch(opts Options, width int) int {
	n := opts.batchSize()
	if width > 0 {
		if max := e.dialect.MaxParams() / width; max < n {
			n = max
		}
	}
	if n < 1 {
		n = 1
	}
	return n
}

func checkCtx(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errs.Wrap(errs.KindTimeout, "call cancelled between batches", err)
	}
	return nil
}
