package schema

import (
	"github.com/framesync/framesync/internal/errs"
	"github.com/framesync/framesync/internal/sqltype"
)

// ActionKind enumerates the DDL actions reconciliation may emit.
// There is deliberately no narrow or drop action: shrinking a type or
// removing a column requires explicit caller intent outside this engine.
type ActionKind int

const (
	ActionCreateTable ActionKind = iota
	ActionAddColumn
	ActionWidenColumn
)

func (k ActionKind) String() string {
	switch k {
	case ActionCreateTable:
		return "create_table"
	case ActionAddColumn:
		return "add_column"
	case ActionWidenColumn:
		return "widen_column"
	default:
		return "unknown"
	}
}

// Action is one step of an evolution plan.
type Action struct {
	Kind ActionKind

	// Table is set for ActionCreateTable.
	Table *Table

	// Column is set for ActionAddColumn and ActionWidenColumn; for widen
	// it carries the new (wider) type.
	Column Column

	// From is the existing type being widened (ActionWidenColumn only),
	// kept for the schema-change report.
	From sqltype.Type
}

// Plan is an ordered list of DDL actions. An empty plan means the live
// table already accommodates the inferred definition.
type Plan struct {
	TableName string
	Actions   []Action
}

// Empty reports whether the plan has no actions.
func (p *Plan) Empty() bool { return len(p.Actions) == 0 }

// Diff compares the inferred definition against the existing one and
// produces the minimal additive plan. existing == nil means the table is
// absent and must be created (column order = inferred order).
//
// Diff is idempotent: running it again after the plan has been applied
// yields an empty plan.
func Diff(inferred, existing *Table) (*Plan, error) {
	if err := inferred.Validate(); err != nil {
		return nil, err
	}

	plan := &Plan{TableName: inferred.Name}

	if existing == nil {
		plan.Actions = append(plan.Actions, Action{Kind: ActionCreateTable, Table: inferred})
		return plan, nil
	}

	for _, want := range inferred.Columns {
		have, ok := existing.Column(want.Name)
		if !ok {
			// New columns must admit NULL: existing rows have no value.
			want.Nullable = true
			plan.Actions = append(plan.Actions, Action{Kind: ActionAddColumn, Column: want})
			continue
		}

		if have.Type.Includes(want.Type) {
			if want.Nullable && !have.Nullable {
				// Same type, but the dataset carries NULLs the live
				// column rejects. Relaxing NOT NULL is widening too.
				relaxed := have
				relaxed.Nullable = true
				plan.Actions = append(plan.Actions, Action{Kind: ActionWidenColumn, Column: relaxed, From: have.Type})
			}
			continue
		}

		wider, ok := sqltype.Widen(have.Type, want.Type)
		if !ok {
			return nil, errs.Newf(errs.KindSchemaConflict,
				"column %q: existing type %s cannot be widened to hold %s",
				want.Name, have.Type, want.Type)
		}
		// The join must still include the existing type, otherwise the
		// change would narrow what is already stored.
		if !wider.Includes(have.Type) {
			return nil, errs.Newf(errs.KindSchemaConflict,
				"column %q: widening %s to %s would narrow stored values",
				want.Name, have.Type, wider)
		}
		widened := have
		widened.Type = wider
		widened.Nullable = have.Nullable || want.Nullable
		plan.Actions = append(plan.Actions, Action{Kind: ActionWidenColumn, Column: widened, From: have.Type})
	}

	return plan, nil
}
