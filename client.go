package framesync

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/framesync/framesync/internal/config"
	"github.com/framesync/framesync/internal/db"
	"github.com/framesync/framesync/internal/db/mysql"
	"github.com/framesync/framesync/internal/db/postgres"
	"github.com/framesync/framesync/internal/db/sqlite"
	"github.com/framesync/framesync/internal/engine"
	"github.com/framesync/framesync/internal/errs"
	"github.com/framesync/framesync/internal/filestore"
	fsminio "github.com/framesync/framesync/internal/filestore/minio"
	"github.com/framesync/framesync/internal/frame"
	"github.com/framesync/framesync/internal/logger"
	"github.com/framesync/framesync/internal/schema"
	"github.com/framesync/framesync/internal/stmt"
)

// Re-exported types so callers never import internal packages.
type (
	// Config is the full client configuration.
	Config = config.Config
	// DatabaseConfig selects and tunes the SQL backend.
	DatabaseConfig = config.Database
	// SyncConfig holds per-call reconciliation defaults.
	SyncConfig = config.Sync
	// StoreConfig configures the optional object store.
	StoreConfig = config.Store
	// LogConfig configures structured logging.
	LogConfig = config.Log

	// Frame is the in-memory dataset one call reconciles.
	Frame = frame.Frame
	// Column is one named column of a Frame.
	Column = frame.Column

	// Options overrides the configured defaults for one call.
	Options = engine.Options
	// Result reports one call: per-row outcomes, schema changes, deletes.
	Result = engine.Result
	// RowOutcome is what happened to one dataset row.
	RowOutcome = engine.RowOutcome
	// SchemaChange records one applied DDL action.
	SchemaChange = engine.SchemaChange

	// Table is a live table definition read from the catalog.
	Table = schema.Table

	// ObjectInfo describes one object in the configured store.
	ObjectInfo = filestore.ObjectInfo
)

// DefaultConfig returns the configuration used when no file is loaded.
func DefaultConfig() *Config { return config.Default() }

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(path string) (*Config, error) { return config.Load(path) }

// NewFrame builds a Frame from columns.
func NewFrame(cols ...Column) (*Frame, error) { return frame.New(cols...) }

// FromCSV reads a header-first CSV stream into a Frame. Values stay raw
// strings; type inference parses them during reconciliation.
func FromCSV(r io.Reader) (*Frame, error) { return frame.FromCSV(r) }

// Client is a connected framesync instance bound to one database.
// It is safe for concurrent use.
type Client struct {
	cfg     *config.Config
	conn    db.DB
	dialect stmt.Dialect
	reader  schema.Reader
	engine  *engine.Engine
	store   filestore.Store
	log     *logger.Logger
}

// Open connects to the configured database and, when an object store
// endpoint is configured, to the store as well.
func Open(ctx context.Context, cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logger.New(&logger.Config{Level: cfg.Log.Level, Format: logFormat(cfg.Log)})

	dbc := db.DefaultConfig(db.Driver(cfg.Database.Driver), dsn(cfg.Database))
	if cfg.Database.MaxOpenConns > 0 {
		dbc.MaxConns = int32(cfg.Database.MaxOpenConns)
	}
	if cfg.Database.MaxIdleConns > 0 {
		dbc.MinConns = int32(cfg.Database.MaxIdleConns)
	}
	if cfg.Database.ConnMaxLifetime > 0 {
		dbc.MaxConnLifetime = cfg.Database.ConnMaxLifetime.Std()
	}
	if cfg.Database.ConnectTimeout > 0 {
		dbc.ConnectTimeout = cfg.Database.ConnectTimeout.Std()
	}

	var (
		conn    db.DB
		dialect stmt.Dialect
		reader  schema.Reader
		err     error
	)
	switch dbc.Driver {
	case db.DriverPostgres:
		var d *postgres.Driver
		if d, err = postgres.New(ctx, dbc); err == nil {
			conn, dialect, reader = d, stmt.Postgres{}, schema.NewPgReader(d, "public")
		}
	case db.DriverMySQL:
		var d *mysql.Driver
		if d, err = mysql.New(ctx, dbc); err == nil {
			conn, dialect, reader = d, stmt.MySQL{}, schema.NewMySQLReader(d)
		}
	case db.DriverSQLite:
		var d *sqlite.Driver
		if d, err = sqlite.New(ctx, dbc); err == nil {
			conn, dialect, reader = d, stmt.SQLite{}, schema.NewSQLiteReader(d)
		}
	default:
		err = errs.Newf(errs.KindInvalidInput, "unknown database driver %q", cfg.Database.Driver)
	}
	if err != nil {
		return nil, err
	}

	c := &Client{
		cfg:     cfg,
		conn:    conn,
		dialect: dialect,
		reader:  reader,
		engine:  engine.New(conn, dialect, reader, log),
		log:     log,
	}

	if cfg.Store.Endpoint != "" {
		c.store, err = fsminio.New(ctx, &filestore.Config{
			Endpoint:  cfg.Store.Endpoint,
			AccessKey: cfg.Store.AccessKey,
			SecretKey: cfg.Store.SecretKey,
			UseSSL:    cfg.Store.UseSSL,
			Region:    cfg.Store.Region,
		})
		if err != nil {
			conn.Close()
			return nil, err
		}
	}

	return c, nil
}

// Ping verifies the database connection.
func (c *Client) Ping(ctx context.Context) error { return c.conn.Ping(ctx) }

// Close releases the database and store connections.
func (c *Client) Close() {
	c.conn.Close()
	if c.store != nil {
		_ = c.store.Close()
	}
}

// Insert appends every dataset row to table. No matching happens; key
// collisions surface as per-row failures.
func (c *Client) Insert(ctx context.Context, table string, fr *Frame, opts *Options) (*Result, error) {
	return c.engine.Apply(ctx, engine.ModeInsert, fr, table, nil, c.options(opts))
}

// Update updates live rows matched by keys. Dataset rows with no live
// counterpart are reported in the result, never inserted.
func (c *Client) Update(ctx context.Context, table string, fr *Frame, keys []string, opts *Options) (*Result, error) {
	return c.engine.Apply(ctx, engine.ModeUpdate, fr, table, keys, c.options(opts))
}

// Merge reconciles table with the dataset: matched rows are updated,
// unmatched dataset rows inserted, and — when deletes are enabled — live
// rows absent from the dataset deleted.
func (c *Client) Merge(ctx context.Context, table string, fr *Frame, keys []string, opts *Options) (*Result, error) {
	return c.engine.Apply(ctx, engine.ModeMerge, fr, table, keys, c.options(opts))
}

// Definition reads the live definition of table from the catalog.
func (c *Client) Definition(ctx context.Context, table string) (*Table, error) {
	return c.reader.Read(ctx, table)
}

// ReadTable loads the current contents of table into a Frame, columns in
// catalog order. The inverse of Insert: merge results can be read back
// for verification or further processing.
func (c *Client) ReadTable(ctx context.Context, table string) (*Frame, error) {
	def, err := c.reader.Read(ctx, table)
	if err != nil {
		return nil, err
	}

	q, err := stmt.BuildSelectColumns(c.dialect, table, def.ColumnNames())
	if err != nil {
		return nil, err
	}
	rows, err := c.conn.Query(ctx, q.SQL)
	if err != nil {
		return nil, err
	}
	records, err := db.ScanRows(rows)
	if err != nil {
		return nil, err
	}

	cols := make([]Column, len(def.Columns))
	for i, col := range def.Columns {
		values := make([]any, len(records))
		for r, rec := range records {
			values[r] = rec[col.Name]
		}
		cols[i] = Column{Name: col.Name, Values: values}
	}
	return frame.New(cols...)
}

// FromObject loads a CSV object from the configured object store.
func (c *Client) FromObject(ctx context.Context, bucket, key string) (*Frame, error) {
	if c.store == nil {
		return nil, errs.New(errs.KindInvalidInput, "no object store configured")
	}
	return frame.FromStore(ctx, c.store, bucket, key)
}

// ListObjects lists the dataset objects in bucket under prefix, so a
// caller can discover exports before feeding them to FromObject.
func (c *Client) ListObjects(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	if c.store == nil {
		return nil, errs.New(errs.KindInvalidInput, "no object store configured")
	}
	return c.store.List(ctx, bucket, prefix)
}

// options folds the configured sync defaults under any per-call override.
func (c *Client) options(opts *Options) Options {
	if opts != nil {
		return *opts
	}
	s := c.cfg.Sync
	return Options{
		BatchSize:         s.BatchSize,
		AutoCreateTable:   s.AutoCreateTable,
		AllowSchemaWiden:  s.AllowSchemaWiden,
		AllowDelete:       s.AllowDelete,
		IncludeTimestamps: s.IncludeTimestamps,
		Strict:            s.Strict,
	}
}

func logFormat(l config.Log) string {
	if l.Pretty {
		return "console"
	}
	return "json"
}

// dsn renders the driver-specific connection string.
func dsn(d config.Database) string {
	switch d.Driver {
	case "mysql":
		// parseTime makes the driver scan temporal columns as time.Time.
		// ANSI_QUOTES is appended to the session sql_mode so the server
		// parses the double-quoted identifiers the builders emit; the
		// driver runs DSN system variables as SET on every connection.
		params := url.Values{}
		params.Set("parseTime", "true")
		params.Set("sql_mode", "CONCAT(@@sql_mode,',ANSI_QUOTES')")
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
			d.User, d.Password, d.Host, d.Port, d.Name, params.Encode())
	case "sqlite":
		return d.Path
	default:
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(d.User, d.Password),
			Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
			Path:   d.Name,
		}
		q := u.Query()
		if d.SSLMode != "" {
			q.Set("sslmode", d.SSLMode)
		}
		u.RawQuery = q.Encode()
		return u.String()
	}
}
