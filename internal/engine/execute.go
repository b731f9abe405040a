package engine

import (
	"context"

	"github.com/framesync/framesync/internal/db"
	"github.com/framesync/framesync/internal/errs"
	"github.com/framesync/framesync/internal/frame"
	"github.com/framesync/framesync/internal/logger"
	"github.com/framesync/framesync/internal/schema"
	"github.com/framesync/framesync/internal/sqltype"
	"github.com/framesync/framesync/internal/stmt"
)

// insertIDExecutor is the extra capability MySQL-style connections expose
// for identity write-back without RETURNING.
type insertIDExecutor interface {
	ExecWithInsertID(ctx context.Context, query string, args ...any) (lastID, affected int64, err error)
}

// execute runs the classified sets in Delete → Update → Insert order.
// Each completed batch stays committed even when a later batch fails;
// failures land in per-row outcomes unless they are structural (broken
// connection, cancellation, vanished table), which abort the call.
func (e *Engine) execute(ctx context.Context, mode Mode, fr *frame.Frame, table *schema.Table, keyCols []string, cls *classification, opts Options, result *Result, log *logger.Logger) error {
	exec := e.executor(opts)

	dataCols := fr.Names()
	setCols := excludeAll(dataCols, keyCols)

	var insertTS, updateTS []string
	if opts.IncludeTimestamps {
		if !fr.HasColumn(tsInsertColumn) {
			insertTS = []string{tsInsertColumn}
		}
		if !fr.HasColumn(tsUpdateColumn) {
			updateTS = []string{tsUpdateColumn}
		}
	}

	// Store-generated keys flow back into the dataset when the table has
	// an identity column the dataset does not carry.
	var idCol string
	if id, ok := table.IdentityColumn(); ok && !fr.HasColumn(id.Name) {
		idCol = id.Name
	}
	var idVals []any
	if idCol != "" {
		idVals = make([]any, fr.NumRows())
	}

	// Update-mode rows with no live counterpart are reported, never
	// silently inserted.
	for _, i := range cls.noMatch {
		result.Rows[i].Failed = true
		result.Rows[i].Err = errs.Newf(errs.KindNotFound, "row %d has no matching row to update", i)
	}

	if err := e.execDeletes(ctx, exec, table, keyCols, cls.toDelete, opts, result); err != nil {
		return err
	}

	// One native upsert statement can replace the update+insert rounds
	// when the match keys are exactly the table's primary key and no
	// generated key has to flow back.
	if mode == ModeMerge && idCol == "" && e.dialect.Merge().Native() && sameKeySet(table.Keys, keyCols) {
		combined := mergeOrdered(cls.toUpdate, cls.toInsert)
		updateSet := make(map[int]bool, len(cls.toUpdate))
		for _, i := range cls.toUpdate {
			updateSet[i] = true
		}
		return e.execUpsert(ctx, exec, fr, table, dataCols, keyCols, setCols, insertTS, updateTS, combined, updateSet, opts, result, log)
	}

	if err := e.execUpdates(ctx, exec, fr, table, keyCols, setCols, updateTS, cls.toUpdate, opts, result, log); err != nil {
		return err
	}
	if err := e.execInserts(ctx, exec, fr, table, dataCols, insertTS, cls.toInsert, idCol, idVals, opts, result, log); err != nil {
		return err
	}

	if idCol != "" && anySet(idVals) {
		if err := fr.AddColumn(idCol, idVals); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) execDeletes(ctx context.Context, exec db.Executor, table *schema.Table, keyCols []string, tuples [][]any, opts Options, result *Result) error {
	per := e.rowsPerBatch(opts, len(keyCols))

	for start := 0; start < len(tuples); start += per {
		if err := checkCtx(ctx); err != nil {
			return err
		}
		chunk := tuples[start:min(start+per, len(tuples))]

		s, err := stmt.BuildDelete(e.dialect, table.Name, keyCols, len(chunk))
		if err != nil {
			return err
		}
		args := make([]any, 0, len(chunk)*len(keyCols))
		for _, t := range chunk {
			args = append(args, t...)
		}

		affected, err := exec.Exec(ctx, s.SQL, args...)
		if err != nil {
			// Deleted rows have no dataset index to report on, so a
			// failing delete batch always fails the call.
			return errs.Wrap(errs.KindBatchExecution, "deleting rows absent from dataset", err)
		}
		result.RowsDeleted += affected
	}
	return nil
}

// execUpdates runs one prepared UPDATE per row in batch-sized rounds.
// Row failures are recorded and the round continues; rows of committed
// rounds stay updated.
func (e *Engine) execUpdates(ctx context.Context, exec db.Executor, fr *frame.Frame, table *schema.Table, keyCols, setCols, updateTS []string, rows []int, opts Options, result *Result, log *logger.Logger) error {
	if len(rows) == 0 {
		return nil
	}
	if len(setCols) == 0 && len(updateTS) == 0 {
		// Key-only dataset: a match means there is nothing to change.
		return nil
	}

	s, err := stmt.BuildUpdate(e.dialect, table.Name, setCols, updateTS, keyCols)
	if err != nil {
		return err
	}
	types, err := columnTypes(table, s.Params)
	if err != nil {
		return err
	}

	per := opts.batchSize()
	for start := 0; start < len(rows); start += per {
		if err := checkCtx(ctx); err != nil {
			return err
		}
		chunk := rows[start:min(start+per, len(rows))]

		failed := 0
		for _, i := range chunk {
			args, err := bindRow(fr, i, s.Params, types)
			if err != nil {
				return err
			}
			if _, err := exec.Exec(ctx, s.SQL, args...); err != nil {
				if structural(err) {
					return err
				}
				result.Rows[i] = RowOutcome{Index: i, Action: ActionUpdate, Failed: true, Err: err}
				failed++
				continue
			}
			result.Rows[i] = RowOutcome{Index: i, Action: ActionUpdate}
		}
		if failed > 0 {
			log.With().Int("failed", failed).Int("batch", len(chunk)).Logger().Warn("update batch had row failures")
		}
	}
	return nil
}

// execInserts runs multi-row INSERTs. A failing batch marks exactly its
// rows failed and later batches still run; batches already executed are
// not revisited.
func (e *Engine) execInserts(ctx context.Context, exec db.Executor, fr *frame.Frame, table *schema.Table, dataCols, insertTS []string, rows []int, idCol string, idVals []any, opts Options, result *Result, log *logger.Logger) error {
	if len(rows) == 0 {
		return nil
	}

	types, err := columnTypes(table, dataCols)
	if err != nil {
		return err
	}

	useReturning := idCol != "" && e.dialect.SupportsReturning()
	idExec, useInsertID := exec.(insertIDExecutor)
	useInsertID = useInsertID && idCol != "" && !useReturning

	per := e.rowsPerBatch(opts, len(dataCols))
	for start := 0; start < len(rows); start += per {
		if err := checkCtx(ctx); err != nil {
			return err
		}
		chunk := rows[start:min(start+per, len(rows))]

		returning := ""
		if useReturning {
			returning = idCol
		}
		s, err := stmt.BuildInsert(e.dialect, table.Name, dataCols, insertTS, len(chunk), returning)
		if err != nil {
			return err
		}

		args := make([]any, 0, len(chunk)*len(dataCols))
		for _, i := range chunk {
			rowArgs, err := bindRow(fr, i, dataCols, types)
			if err != nil {
				return err
			}
			args = append(args, rowArgs...)
		}

		switch {
		case useReturning:
			err = e.insertReturning(ctx, exec, s.SQL, args, chunk, idVals)
		case useInsertID:
			var firstID int64
			firstID, _, err = idExec.ExecWithInsertID(ctx, s.SQL, args...)
			if err == nil {
				// Generated keys of one multi-row INSERT are contiguous
				// from the first reported id.
				for j, i := range chunk {
					idVals[i] = firstID + int64(j)
				}
			}
		default:
			_, err = exec.Exec(ctx, s.SQL, args...)
		}

		if err != nil {
			if structural(err) {
				return err
			}
			for _, i := range chunk {
				result.Rows[i] = RowOutcome{Index: i, Action: ActionInsert, Failed: true, Err: err}
			}
			log.With().Int("batch", len(chunk)).Err(err).Logger().Warn("insert batch failed")
			continue
		}
		for _, i := range chunk {
			result.Rows[i] = RowOutcome{Index: i, Action: ActionInsert}
		}
	}
	return nil
}

// insertReturning executes an INSERT ... RETURNING and stores the
// generated keys at the dataset indexes of the batch, in insertion order.
func (e *Engine) insertReturning(ctx context.Context, exec db.Executor, sql string, args []any, chunk []int, idVals []any) error {
	rows, err := exec.Query(ctx, sql, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	j := 0
	for rows.Next() {
		var id any
		if err := rows.Scan(&id); err != nil {
			return errs.Wrap(errs.KindBatchExecution, "scanning generated key", err)
		}
		if j < len(chunk) {
			idVals[chunk[j]] = id
		}
		j++
	}
	if err := rows.Err(); err != nil {
		return errs.Wrap(errs.KindBatchExecution, "reading generated keys", err)
	}
	return nil
}

// execUpsert drives the native single-statement merge path.
func (e *Engine) execUpsert(ctx context.Context, exec db.Executor, fr *frame.Frame, table *schema.Table, dataCols, keyCols, setCols, insertTS, updateTS []string, rows []int, updateSet map[int]bool, opts Options, result *Result, log *logger.Logger) error {
	if len(rows) == 0 {
		return nil
	}

	types, err := columnTypes(table, dataCols)
	if err != nil {
		return err
	}
	strategy := e.dialect.Merge()

	per := e.rowsPerBatch(opts, len(dataCols))
	for start := 0; start < len(rows); start += per {
		if err := checkCtx(ctx); err != nil {
			return err
		}
		chunk := rows[start:min(start+per, len(rows))]

		s, err := strategy.BuildUpsert(table.Name, dataCols, keyCols, setCols, insertTS, updateTS, len(chunk))
		if err != nil {
			return err
		}
		args := make([]any, 0, len(chunk)*len(dataCols))
		for _, i := range chunk {
			rowArgs, err := bindRow(fr, i, dataCols, types)
			if err != nil {
				return err
			}
			args = append(args, rowArgs...)
		}

		if _, err := exec.Exec(ctx, s.SQL, args...); err != nil {
			if structural(err) {
				return err
			}
			for _, i := range chunk {
				result.Rows[i] = RowOutcome{Index: i, Action: actionFor(i, updateSet), Failed: true, Err: err}
			}
			log.With().Int("batch", len(chunk)).Err(err).Logger().Warn("merge batch failed")
			continue
		}
		for _, i := range chunk {
			result.Rows[i] = RowOutcome{Index: i, Action: actionFor(i, updateSet)}
		}
	}
	return nil
}

func actionFor(i int, updateSet map[int]bool) Action {
	if updateSet[i] {
		return ActionUpdate
	}
	return ActionInsert
}

// bindRow coerces one dataset row's values for cols into canonical
// binding form.
func bindRow(fr *frame.Frame, row int, cols []string, types []sqltype.Type) ([]any, error) {
	args := make([]any, len(cols))
	for k, col := range cols {
		v, _ := fr.Value(col, row)
		coerced, err := sqltype.Coerce(v, types[k])
		if err != nil {
			return nil, err
		}
		args[k] = coerced
	}
	return args, nil
}

// structural reports whether an error invalidates the rest of the call
// rather than just the rows of one batch.
func structural(err error) bool {
	switch errs.KindOf(err) {
	case errs.KindConnectionFailed, errs.KindTimeout, errs.KindNotFound,
		errs.KindInvalidIdentifier, errs.KindInvalidInput, errs.KindSchemaApply:
		return true
	}
	return false
}

func excludeAll(all, drop []string) []string {
	dropSet := make(map[string]bool, len(drop))
	for _, d := range drop {
		dropSet[d] = true
	}
	var kept []string
	for _, s := range all {
		if !dropSet[s] {
			kept = append(kept, s)
		}
	}
	return kept
}

func sameKeySet(a, b []string) bool {
	if len(a) == 0 || len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, s := range a {
		set[s] = true
	}
	for _, s := range b {
		if !set[s] {
			return false
		}
	}
	return true
}

// mergeOrdered interleaves two ascending index slices back into dataset
// order, keeping batches ordered subsequences of the input.
func mergeOrdered(a, b []int) []int {
	out := make([]int, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i] < b[j] {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}

func anySet(vals []any) bool {
	for _, v := range vals {
		if v != nil {
			return true
		}
	}
	return false
}
