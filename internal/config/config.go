// Package config loads the schemascope YAML configuration file.
//
//	version: 1
//	database:
//	  driver: postgres
//	  dsn: postgres://scope:${ENV:PGPASSWORD}@localhost:5432/shop
//	  schema: public
//	logging:
//	  level: info
//	  format: json
//	server:
//	  addr: 127.0.0.1:8420
//	snapshot:
//	  endpoint: localhost:9000
//	  access_key: minioadmin
//	  secret_key: ${ENV:MINIO_SECRET_KEY}
//	  bucket: schemascope
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"go.yaml.in/yaml/v3"

	"github.com/koustreak/schemascope/internal/database"
	"github.com/koustreak/schemascope/internal/filestore"
	"github.com/koustreak/schemascope/internal/logger"
)

const (
	CurrentVersion = 1
	DefaultPath    = "schemascope.yaml"
)

// Config is the top-level configuration.
type Config struct {
	Version  int            `yaml:"version"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LogConfig      `yaml:"logging,omitempty"`
	Server   ServerConfig   `yaml:"server,omitempty"`
	Snapshot SnapshotConfig `yaml:"snapshot,omitempty"`
}

// DatabaseConfig selects the engine and connection to introspect.
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	Schema          string        `yaml:"schema,omitempty"`
	MaxConns        int32         `yaml:"max_conns,omitempty"`
	MinConns        int32         `yaml:"min_conns,omitempty"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime,omitempty"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time,omitempty"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout,omitempty"`
	QueryTimeout    time.Duration `yaml:"query_timeout,omitempty"`
}

// LogConfig defines logging settings.
type LogConfig struct {
	Level      string `yaml:"level,omitempty"`  // debug, info, warn, error
	Format     string `yaml:"format,omitempty"` // json or console
	TimeFormat string `yaml:"time_format,omitempty"`
}

// ServerConfig configures the read-only HTTP API.
type ServerConfig struct {
	Addr            string        `yaml:"addr,omitempty"`
	ReadTimeout     time.Duration `yaml:"read_timeout,omitempty"`
	WriteTimeout    time.Duration `yaml:"write_timeout,omitempty"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout,omitempty"`
	MaxRows         int           `yaml:"max_rows,omitempty"` // cap for /rows previews
}

// SnapshotConfig points at the object store holding snapshots.
type SnapshotConfig struct {
	Endpoint  string `yaml:"endpoint,omitempty"`
	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`
	UseSSL    bool   `yaml:"use_ssl,omitempty"`
	Region    string `yaml:"region,omitempty"`
	Bucket    string `yaml:"bucket,omitempty"`
	Prefix    string `yaml:"prefix,omitempty"`
}

// Load reads, resolves and validates the config file at path. ${ENV:NAME}
// references fall back to a .env file next to the config when NAME is not
// set in the environment.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	dotenv, err := readDotEnv(filepath.Join(filepath.Dir(path), ".env"))
	if err != nil {
		return nil, err
	}
	return parse(data, dotenv)
}

// Parse decodes a YAML document into a validated Config.
func Parse(data []byte) (*Config, error) {
	return parse(data, nil)
}

func parse(data []byte, dotenv map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentVersion)
	}

	if err := cfg.resolveSecrets(dotenv); err != nil {
		return nil, fmt.Errorf("resolving secrets: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readDotEnv returns the variables in path without exporting them. A missing
// file is not an error.
func readDotEnv(path string) (map[string]string, error) {
	vars, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return vars, nil
}

// ForDatabase builds a config for a single connection without a file,
// as used when the connection comes from command-line flags.
func ForDatabase(driver, dsn, schema string) (*Config, error) {
	cfg := &Config{
		Version:  CurrentVersion,
		Database: DatabaseConfig{Driver: driver, DSN: dsn, Schema: schema},
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := database.DefaultConfig("")
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = def.MaxConns
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = def.MinConns
	}
	if c.Database.MaxConnLifetime == 0 {
		c.Database.MaxConnLifetime = def.MaxConnLifetime
	}
	if c.Database.MaxConnIdleTime == 0 {
		c.Database.MaxConnIdleTime = def.MaxConnIdleTime
	}
	if c.Database.ConnectTimeout == 0 {
		c.Database.ConnectTimeout = def.ConnectTimeout
	}
	if c.Database.QueryTimeout == 0 {
		c.Database.QueryTimeout = def.QueryTimeout
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	if c.Server.Addr == "" {
		c.Server.Addr = "127.0.0.1:8420"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 60 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Server.MaxRows == 0 {
		c.Server.MaxRows = 100
	}

	if c.Snapshot.Bucket == "" {
		c.Snapshot.Bucket = filestore.DefaultBucket
	}
	if c.Snapshot.Prefix == "" {
		c.Snapshot.Prefix = "snapshots/"
	}
}

// Validate checks fields that have no usable default.
func (c *Config) Validate() error {
	if _, err := database.ParseDriver(c.Database.Driver); err != nil {
		return fmt.Errorf("database.driver: %w", err)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("database.min_conns (%d) exceeds max_conns (%d)", c.Database.MinConns, c.Database.MaxConns)
	}
	if err := logger.ValidateLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	if c.Server.MaxRows < 0 {
		return fmt.Errorf("server.max_rows must not be negative")
	}
	return nil
}

// ConnConfig converts the database section into a connection config.
func (c *Config) ConnConfig() *database.Config {
	driver, _ := database.ParseDriver(c.Database.Driver)
	return &database.Config{
		Driver:          driver,
		DSN:             c.Database.DSN,
		Schema:          c.Database.Schema,
		MaxConns:        c.Database.MaxConns,
		MinConns:        c.Database.MinConns,
		MaxConnLifetime: c.Database.MaxConnLifetime,
		MaxConnIdleTime: c.Database.MaxConnIdleTime,
		ConnectTimeout:  c.Database.ConnectTimeout,
		QueryTimeout:    c.Database.QueryTimeout,
	}
}

// LoggerConfig converts the logging section. Output stays on stderr.
func (c *Config) LoggerConfig() *logger.Config {
	lc := logger.DefaultConfig()
	lc.Level = c.Logging.Level
	lc.Format = c.Logging.Format
	if c.Logging.TimeFormat != "" {
		lc.TimeFormat = c.Logging.TimeFormat
	}
	return lc
}

// SnapshotsEnabled reports whether an object store is configured.
func (c *Config) SnapshotsEnabled() bool {
	return c.Snapshot.Endpoint != ""
}

// FilestoreConfig converts the snapshot section into a store config.
func (c *Config) FilestoreConfig() *filestore.Config {
	fc := filestore.DefaultConfig(c.Snapshot.Endpoint, c.Snapshot.AccessKey, c.Snapshot.SecretKey)
	fc.UseSSL = c.Snapshot.UseSSL
	fc.Region = c.Snapshot.Region
	fc.Bucket = c.Snapshot.Bucket
	return fc
}

var secretPattern = regexp.MustCompile(`\$\{ENV:([^}]+)\}`)

func (c *Config) resolveSecrets(dotenv map[string]string) error {
	fields := []struct {
		name string
		val  *string
	}{
		{"database.dsn", &c.Database.DSN},
		{"snapshot.access_key", &c.Snapshot.AccessKey},
		{"snapshot.secret_key", &c.Snapshot.SecretKey},
		{"snapshot.endpoint", &c.Snapshot.Endpoint},
	}
	for _, f := range fields {
		v, err := resolveValue(*f.val, dotenv)
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.val = v
	}
	return nil
}

// ResolveValue replaces every ${ENV:NAME} reference in val with the value of
// the environment variable NAME. An unset variable is an error.
func ResolveValue(val string) (string, error) {
	return resolveValue(val, nil)
}

func resolveValue(val string, fallback map[string]string) (string, error) {
	var missing string
	out := secretPattern.ReplaceAllStringFunc(val, func(m string) string {
		name := secretPattern.FindStringSubmatch(m)[1]
		v, ok := os.LookupEnv(name)
		if !ok {
			v, ok = fallback[name]
		}
		if !ok && missing == "" {
			missing = name
		}
		return v
	})
	if missing != "" {
		return "", fmt.Errorf("environment variable %s not set", missing)
	}
	return out, nil
}
