package engine

import (
	"context"

	"github.com/framesync/framesync/internal/db"
	"github.com/framesync/framesync/internal/errs"
	"github.com/framesync/framesync/internal/logger"
	"github.com/framesync/framesync/internal/schema"
	"github.com/framesync/framesync/internal/stmt"
)

// evolveSchema reads the live definition, diffs it against the inferred
// one, applies the resulting plan, and returns the definition that is in
// effect afterwards. The plan is applied on one transaction: either every
// action lands or none does. When the caller supplied a transaction the
// DDL joins it and commit stays with the caller.
func (e *Engine) evolveSchema(ctx context.Context, inferred *schema.Table, opts Options, result *Result, log *logger.Logger) (*schema.Table, error) {
	existing, err := e.reader.Read(ctx, inferred.Name)
	if err != nil {
		if !errs.IsNotFound(err) {
			return nil, err
		}
		existing = nil
	}

	plan, err := schema.Diff(inferred, existing)
	if err != nil {
		return nil, err
	}
	if plan.Empty() {
		return existing, nil
	}

	if existing == nil && !opts.AutoCreateTable {
		return nil, errs.Newf(errs.KindNotFound,
			"table %q does not exist and table creation is disabled", inferred.Name)
	}
	if existing != nil && !opts.AllowSchemaWiden {
		return nil, errs.Newf(errs.KindSchemaConflict,
			"table %q needs %d schema change(s) and widening is disabled",
			inferred.Name, len(plan.Actions))
	}

	statements, changes, err := e.renderPlan(plan, existing)
	if err != nil {
		return nil, err
	}

	if len(statements) > 0 {
		if err := e.applyDDL(ctx, statements, opts); err != nil {
			return nil, err
		}
		result.SchemaChanges = append(result.SchemaChanges, changes...)
		for _, c := range changes {
			log.With().Str("action", c.Kind).Str("column", c.Column).Logger().Info("schema changed")
		}
	}

	return effectiveTable(inferred, existing, plan), nil
}

// renderPlan turns plan actions into DDL text plus the change report.
// Widenings that the store absorbs without DDL (type affinity) render to
// nothing and are not reported.
func (e *Engine) renderPlan(plan *schema.Plan, existing *schema.Table) ([]string, []SchemaChange, error) {
	var statements []string
	var changes []SchemaChange

	for _, a := range plan.Actions {
		switch a.Kind {
		case schema.ActionCreateTable:
			sql, err := stmt.BuildCreateTable(e.dialect, a.Table)
			if err != nil {
				return nil, nil, err
			}
			statements = append(statements, sql)
			changes = append(changes, SchemaChange{Kind: a.Kind.String()})

		case schema.ActionAddColumn:
			sql, err := stmt.BuildAddColumn(e.dialect, plan.TableName, a.Column)
			if err != nil {
				return nil, nil, err
			}
			statements = append(statements, sql)
			changes = append(changes, SchemaChange{
				Kind:   a.Kind.String(),
				Column: a.Column.Name,
				To:     a.Column.Type,
			})

		case schema.ActionWidenColumn:
			n := len(statements)
			if a.Column.Type != a.From {
				sql, err := stmt.BuildWidenColumn(e.dialect, plan.TableName, a.Column)
				if err != nil {
					return nil, nil, err
				}
				if sql != "" {
					statements = append(statements, sql)
				}
			}
			if relaxed := nullableRelaxed(existing, a.Column); relaxed && e.dialect.WidenSyntax() == stmt.WidenAlterColumnType {
				// MODIFY COLUMN carries nullability inline; the ALTER
				// TYPE form needs a separate DROP NOT NULL.
				sql, err := stmt.BuildDropNotNull(e.dialect, plan.TableName, a.Column.Name)
				if err != nil {
					return nil, nil, err
				}
				statements = append(statements, sql)
			}
			if len(statements) > n {
				changes = append(changes, SchemaChange{
					Kind:   a.Kind.String(),
					Column: a.Column.Name,
					From:   a.From,
					To:     a.Column.Type,
				})
			}
		}
	}

	return statements, changes, nil
}

func nullableRelaxed(existing *schema.Table, want schema.Column) bool {
	if existing == nil {
		return false
	}
	have, ok := existing.Column(want.Name)
	return ok && !have.Nullable && want.Nullable
}

// applyDDL executes the plan's statements in order on one transaction.
func (e *Engine) applyDDL(ctx context.Context, statements []string, opts Options) error {
	if opts.Tx != nil {
		for _, sql := range statements {
			if _, err := opts.Tx.Exec(ctx, sql); err != nil {
				return errs.Wrap(errs.KindSchemaApply, "applying schema change", err)
			}
		}
		return nil
	}

	tx, err := e.db.Begin(ctx)
	if err != nil {
		return errs.Wrap(errs.KindSchemaApply, "starting schema transaction", err)
	}
	for _, sql := range statements {
		if _, err := tx.Exec(ctx, sql); err != nil {
			_ = tx.Rollback(ctx)
			return errs.Wrap(errs.KindSchemaApply, "applying schema change", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return errs.Wrap(errs.KindSchemaApply, "committing schema changes", err)
	}
	return nil
}

// effectiveTable is the definition in effect after the plan: the catalog
// copy with the plan's additions folded in, or the inferred definition
// for a freshly created table.
func effectiveTable(inferred, existing *schema.Table, plan *schema.Plan) *schema.Table {
	if existing == nil {
		return inferred
	}

	t := &schema.Table{
		Name:    existing.Name,
		Columns: append([]schema.Column{}, existing.Columns...),
		Keys:    append([]string{}, existing.Keys...),
	}
	for _, a := range plan.Actions {
		switch a.Kind {
		case schema.ActionAddColumn:
			t.Columns = append(t.Columns, a.Column)
		case schema.ActionWidenColumn:
			for i := range t.Columns {
				if t.Columns[i].Name == a.Column.Name {
					t.Columns[i].Type = a.Column.Type
					t.Columns[i].Nullable = a.Column.Nullable
				}
			}
		}
	}
	return t
}

// executor resolves where this call's statements run: the caller's
// transaction when one was supplied, the pool otherwise.
func (e *Engine) executor(opts Options) db.Executor {
	if opts.Tx != nil {
		return opts.Tx
	}
	return e.db
}
