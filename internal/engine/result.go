package engine

import "github.com/framesync/framesync/internal/sqltype"

// Action is the outcome category assigned to one dataset row.
type Action int

const (
	// ActionNone means nothing was executed for the row (insert-only
	// calls leave matched semantics aside; update calls leave unmatched
	// rows untouched).
	ActionNone Action = iota
	ActionInsert
	ActionUpdate
)

func (a Action) String() string {
	switch a {
	case ActionInsert:
		return "insert"
	case ActionUpdate:
		return "update"
	default:
		return "none"
	}
}

// RowOutcome reports what happened to one dataset row. Outcomes are
// returned in dataset row order regardless of batching.
type RowOutcome struct {
	// Index is the row's position in the input dataset.
	Index int

	// Action is what the engine executed (or attempted) for the row.
	Action Action

	// Failed marks rows whose batch failed or that had no match in an
	// update call. Failed rows were not written.
	Failed bool

	// Err carries the failure cause for failed rows.
	Err error
}

// SchemaChange records one DDL action that was applied.
type SchemaChange struct {
	// Kind is "create_table", "add_column", or "widen_column".
	Kind string

	Column string

	// From/To describe a widening; From is zero for create/add.
	From sqltype.Type
	To   sqltype.Type
}

// Result is the full report of one Apply call.
type Result struct {
	// CallID correlates log lines with this result.
	CallID string

	// Rows holds one outcome per dataset row, in input order.
	Rows []RowOutcome

	// SchemaChanges lists DDL applied before data movement, in order.
	SchemaChanges []SchemaChange

	// RowsDeleted counts live rows removed because they were absent from
	// the dataset (merge with delete enabled). Deleted rows have no
	// dataset index, so they are reported as a count, not per row.
	RowsDeleted int64
}

// Inserted counts rows successfully inserted.
func (r *Result) Inserted() int { return r.count(ActionInsert) }

// Updated counts rows successfully updated.
func (r *Result) Updated() int { return r.count(ActionUpdate) }

// FailedRows returns the outcomes of rows that were not written.
func (r *Result) FailedRows() []RowOutcome {
	var failed []RowOutcome
	for _, o := range r.Rows {
		if o.Failed {
			failed = append(failed, o)
		}
	}
	return failed
}

func (r *Result) count(a Action) int {
	n := 0
	for _, o := range r.Rows {
		if o.Action == a && !o.Failed {
			n++
		}
	}
	return n
}
