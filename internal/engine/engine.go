// Package engine implements the match/merge algorithm: it infers a
// schema from the dataset, reconciles it against the live catalog,
// classifies dataset rows into insert/update/delete sets by key, and
// drives the statement builders and the connection to execute them in
// bounded batches. Schema evolution always completes before any data
// moves; DML executes in Delete → Update → Insert order.
package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/framesync/framesync/internal/db"
	"github.com/framesync/framesync/internal/errs"
	"github.com/framesync/framesync/internal/frame"
	"github.com/framesync/framesync/internal/ident"
	"github.com/framesync/framesync/internal/logger"
	"github.com/framesync/framesync/internal/schema"
	"github.com/framesync/framesync/internal/sqltype"
	"github.com/framesync/framesync/internal/stmt"
)

// Mode selects the reconciliation behaviour of one Apply call.
type Mode int

const (
	// ModeInsert appends every dataset row; no matching happens.
	ModeInsert Mode = iota

	// ModeUpdate updates matched rows; unmatched dataset rows are
	// reported as failed, never inserted.
	ModeUpdate

	// ModeMerge updates matched rows, inserts unmatched ones, and — when
	// the caller opts in — deletes live rows absent from the dataset.
	ModeMerge
)

func (m Mode) String() string {
	switch m {
	case ModeInsert:
		return "insert"
	case ModeUpdate:
		return "update"
	case ModeMerge:
		return "merge"
	default:
		return "unknown"
	}
}

// Metadata timestamp column names, matching the convention of the source
// system this engine feeds.
const (
	tsInsertColumn = "_time_insert"
	tsUpdateColumn = "_time_update"
)

const defaultBatchSize = 1000

// Options tune one Apply call.
type Options struct {
	// BatchSize caps rows per execution round (default 1000). The
	// effective batch is additionally clamped so rows × columns stays
	// under the dialect's bound-parameter ceiling.
	BatchSize int

	// AutoCreateTable creates the target table when it does not exist.
	AutoCreateTable bool

	// AllowSchemaWiden permits ADD COLUMN / widening ALTERs. There is no
	// default: schema evolution changes stored data shape, so the caller
	// must decide explicitly.
	AllowSchemaWiden bool

	// AllowDelete permits merge to delete live rows absent from the
	// dataset.
	AllowDelete bool

	// IncludeTimestamps maintains _time_insert / _time_update metadata
	// columns with the server-side clock.
	IncludeTimestamps bool

	// Strict fails type inference instead of falling back to text when a
	// column's values have no common supertype.
	Strict bool

	// DefaultStringSize is the declared width for all-null columns.
	DefaultStringSize int

	// Tx, when set, runs every statement of the call on this caller-owned
	// transaction. The engine never commits or rolls it back.
	Tx db.Tx
}

func (o Options) batchSize() int {
	if o.BatchSize <= 0 {
		return defaultBatchSize
	}
	return o.BatchSize
}

// Engine reconciles frames against tables through one store connection.
// A single Engine value is safe for concurrent use, but each in-flight
// Apply call owns the session semantics the store's isolation provides —
// the engine does not coordinate across callers.
type Engine struct {
	db      db.DB
	dialect stmt.Dialect
	reader  schema.Reader
	log     *logger.Logger
}

// New builds an Engine. log may be nil.
func New(database db.DB, dialect stmt.Dialect, reader schema.Reader, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{db: database, dialect: dialect, reader: reader, log: log}
}

// Apply runs one reconciliation call and returns per-row outcomes aligned
// to the dataset's row order plus the schema changes actually applied.
//
// Local validation (identifiers, keys, inference) is fail-fast and happens
// before any store contact. Batch-level data errors are collected into the
// result rather than raised; structural failures escalate to a call error.
func (e *Engine) Apply(ctx context.Context, mode Mode, fr *frame.Frame, tableName string, keyCols []string, opts Options) (*Result, error) {
	callID := uuid.NewString()
	log := e.log.With().
		Str("call_id", callID).
		Str("mode", mode.String()).
		Str("table", tableName).
		Logger()

	if fr == nil || fr.NumColumns() == 0 {
		return nil, errs.New(errs.KindInvalidInput, "dataset has no columns")
	}
	if mode != ModeInsert && len(keyCols) == 0 {
		return nil, errs.New(errs.KindMissingKey, "update/merge requires key columns")
	}

	// Identifier safety is a purely local check; reject before touching
	// the store.
	if _, err := ident.Quote(tableName); err != nil {
		return nil, err
	}
	for _, name := range fr.Names() {
		if _, err := ident.Quote(name); err != nil {
			return nil, err
		}
	}
	for _, k := range keyCols {
		if !fr.HasColumn(k) {
			return nil, errs.Newf(errs.KindInvalidInput, "key column %q is not in the dataset", k)
		}
	}

	result := &Result{CallID: callID, Rows: make([]RowOutcome, fr.NumRows())}
	for i := range result.Rows {
		result.Rows[i] = RowOutcome{Index: i, Action: ActionNone}
	}

	// 1. Inference, then reconcile and apply — evolution precedes DML.
	inferred, err := e.inferTable(fr, tableName, keyCols, opts)
	if err != nil {
		return nil, err
	}

	table, err := e.evolveSchema(ctx, inferred, opts, result, log)
	if err != nil {
		return nil, err
	}

	// 2–3. Partition rows by key against the live key set.
	cls, err := e.classify(ctx, mode, fr, table, keyCols, opts)
	if err != nil {
		return nil, err
	}
	log.With().
		Int("insert", len(cls.toInsert)).
		Int("update", len(cls.toUpdate)).
		Int("delete", len(cls.toDelete)).
		Logger().
		Debug("rows classified")

	// 4–5. Execute per kind in Delete → Update → Insert order.
	if err := e.execute(ctx, mode, fr, table, keyCols, cls, opts, result, log); err != nil {
		return result, err
	}

	log.With().Int("rows", fr.NumRows()).Logger().Info("apply complete")
	return result, nil
}

// inferTable builds the candidate definition from the dataset: one column
// per frame column, key columns non-nullable, plus the metadata timestamp
// columns when enabled.
func (e *Engine) inferTable(fr *frame.Frame, tableName string, keyCols []string, opts Options) (*schema.Table, error) {
	cfg := sqltype.InferConfig{
		ParseStrings:      fr.StringSource(),
		Strict:            opts.Strict,
		DefaultStringSize: opts.DefaultStringSize,
	}

	keySet := make(map[string]bool, len(keyCols))
	for _, k := range keyCols {
		keySet[k] = true
	}

	t := &schema.Table{Name: tableName, Keys: append([]string{}, keyCols...)}
	for _, col := range fr.Columns() {
		typ, nullable, err := sqltype.Infer(col.Values, cfg)
		if err != nil {
			return nil, errs.Wrap(errs.KindTypeInference, "column "+col.Name, err)
		}
		if keySet[col.Name] {
			nullable = false
		}
		t.Columns = append(t.Columns, schema.Column{
			Name:     col.Name,
			Type:     typ,
			Nullable: nullable,
			IsKey:    keySet[col.Name],
		})
	}

	if opts.IncludeTimestamps {
		for _, name := range []string{tsInsertColumn, tsUpdateColumn} {
			if !fr.HasColumn(name) {
				t.Columns = append(t.Columns, schema.Column{
					Name:     name,
					Type:     sqltype.Type{Kind: sqltype.KindDateTime},
					Nullable: true,
				})
			}
		}
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}
