package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framesync/framesync/internal/errs"
)

func TestParse(t *testing.T) {
	raw := []byte(`
database:
  driver: postgres
  host: db.internal
  port: 5433
  user: sync
  password: secret
  name: warehouse
  conn_max_lifetime: 30m
sync:
  batch_size: 500
  auto_create_table: true
  allow_schema_widen: true
log:
  level: debug
  pretty: true
`)

	cfg, err := Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, 30*time.Minute, cfg.Database.ConnMaxLifetime.Std())
	assert.Equal(t, 500, cfg.Sync.BatchSize)
	assert.True(t, cfg.Sync.AutoCreateTable)
	assert.True(t, cfg.Sync.AllowSchemaWiden)
	assert.False(t, cfg.Sync.AllowDelete)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Pretty)

	// Unset fields keep the defaults.
	assert.Equal(t, 10, cfg.Database.MaxOpenConns)
}

func TestParseExpandsEnv(t *testing.T) {
	t.Setenv("FRAMESYNC_TEST_PW", "hunter2")

	cfg, err := Parse([]byte(`
database:
  driver: sqlite
  path: /tmp/test.db
  password: ${FRAMESYNC_TEST_PW}
`))
	require.NoError(t, err)
	assert.Equal(t, "hunter2", cfg.Database.Password)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte(`
database:
  driver: sqlite
  path: /tmp/test.db
  prot: 5432
`))
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "defaults plus name are valid",
			mutate: func(c *Config) { c.Database.Name = "db" },
		},
		{
			name:    "defaults alone lack a database name",
			mutate:  func(c *Config) {},
			wantErr: true,
		},
		{
			name: "unknown driver",
			mutate: func(c *Config) {
				c.Database.Driver = "oracle"
				c.Database.Name = "db"
			},
			wantErr: true,
		},
		{
			name: "sqlite needs a path",
			mutate: func(c *Config) {
				c.Database.Driver = "sqlite"
				c.Database.Path = ""
			},
			wantErr: true,
		},
		{
			name: "sqlite with path",
			mutate: func(c *Config) {
				c.Database.Driver = "sqlite"
				c.Database.Path = "/tmp/x.db"
			},
		},
		{
			name: "negative batch size",
			mutate: func(c *Config) {
				c.Database.Name = "db"
				c.Sync.BatchSize = -1
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
