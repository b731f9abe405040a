// Package config loads the YAML configuration file. Environment
// references of the form ${VAR} are expanded before parsing, so
// credentials never have to live in the file itself.
package config

import (
	"bytes"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/framesync/framesync/internal/errs"
)

// Config is the full file layout.
type Config struct {
	Database Database `yaml:"database"`
	Sync     Sync     `yaml:"sync"`
	Store    Store    `yaml:"store"`
	Log      Log      `yaml:"log"`
}

// Database selects the backend and its connection settings.
type Database struct {
	// Driver is "postgres", "mysql", or "sqlite".
	Driver string `yaml:"driver"`

	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`

	// Path is the database file for sqlite.
	Path string `yaml:"path"`

	MaxOpenConns    int      `yaml:"max_open_conns"`
	MaxIdleConns    int      `yaml:"max_idle_conns"`
	ConnMaxLifetime Duration `yaml:"conn_max_lifetime"`
	ConnectTimeout  Duration `yaml:"connect_timeout"`
}

// Duration parses Go duration strings ("30m", "10s") from YAML, which
// the yaml package does not do for time.Duration itself.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Sync holds the reconciliation defaults applied to every call unless
// overridden per call.
type Sync struct {
	BatchSize         int  `yaml:"batch_size"`
	AutoCreateTable   bool `yaml:"auto_create_table"`
	AllowSchemaWiden  bool `yaml:"allow_schema_widen"`
	AllowDelete       bool `yaml:"allow_delete"`
	IncludeTimestamps bool `yaml:"include_timestamps"`
	Strict            bool `yaml:"strict"`
}

// Store configures the optional object store datasets are loaded from.
type Store struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
	Region    string `yaml:"region"`
}

// Log configures structured logging.
type Log struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `yaml:"level"`

	// Pretty switches to human-readable console output.
	Pretty bool `yaml:"pretty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Database: Database{
			Driver:          "postgres",
			Host:            "localhost",
			Port:            5432,
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: Duration(time.Hour),
			ConnectTimeout:  Duration(10 * time.Second),
		},
		Sync: Sync{BatchSize: 1000},
		Log:  Log{Level: "info"},
	}
}

// Load reads path, expands ${VAR} references from the environment, and
// parses it over the defaults. Unknown fields are an error: a typo in a
// key should fail loudly, not silently fall back to a default.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.KindInvalidInput, "reading config file", err)
	}
	return Parse(raw)
}

// Parse parses raw YAML over the defaults.
func Parse(raw []byte) (*Config, error) {
	expanded := []byte(os.ExpandEnv(string(raw)))

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, errs.Wrap(errs.KindInvalidInput, "parsing config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the parts every setup needs.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "mysql":
		if c.Database.Host == "" {
			return errs.New(errs.KindInvalidInput, "database.host is required")
		}
		if c.Database.Name == "" {
			return errs.New(errs.KindInvalidInput, "database.name is required")
		}
	case "sqlite":
		if c.Database.Path == "" {
			return errs.New(errs.KindInvalidInput, "database.path is required for sqlite")
		}
	default:
		return errs.Newf(errs.KindInvalidInput, "unknown database driver %q", c.Database.Driver)
	}
	if c.Sync.BatchSize < 0 {
		return errs.New(errs.KindInvalidInput, "sync.batch_size must not be negative")
	}
	return nil
}
