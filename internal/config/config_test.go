package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/schemascope/internal/database"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schemascope.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `version: 1
database:
  driver: postgresql
  dsn: postgres://scope@localhost/shop
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "127.0.0.1:8420", cfg.Server.Addr)
	assert.Equal(t, 100, cfg.Server.MaxRows)
	assert.Equal(t, "schemascope", cfg.Snapshot.Bucket)
	assert.Equal(t, "snapshots/", cfg.Snapshot.Prefix)
	assert.False(t, cfg.SnapshotsEnabled())

	conn := cfg.ConnConfig()
	assert.Equal(t, database.DriverPostgres, conn.Driver)
	assert.Equal(t, int32(5), conn.MaxConns)
	assert.Equal(t, 10*time.Second, conn.ConnectTimeout)
}

func TestLoad_FullDocument(t *testing.T) {
	t.Setenv("SCOPE_DB_PASSWORD", "s3cret")
	t.Setenv("SCOPE_MINIO_SECRET", "minio-secret")

	path := writeConfig(t, `version: 1
database:
  driver: mssql
  dsn: sqlserver://scope:${ENV:SCOPE_DB_PASSWORD}@db:1433?database=shop
  schema: sales
  max_conns: 8
  connect_timeout: 3s
logging:
  level: debug
  format: console
server:
  addr: ":9000"
  max_rows: 25
snapshot:
  endpoint: minio:9000
  access_key: scope
  secret_key: ${ENV:SCOPE_MINIO_SECRET}
  bucket: schemas
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlserver://scope:s3cret@db:1433?database=shop", cfg.Database.DSN)
	assert.Equal(t, 3*time.Second, cfg.Database.ConnectTimeout)
	assert.Equal(t, int32(8), cfg.ConnConfig().MaxConns)
	assert.Equal(t, "sales", cfg.ConnConfig().Schema)
	assert.Equal(t, database.DriverMSSQL, cfg.ConnConfig().Driver)

	lc := cfg.LoggerConfig()
	assert.Equal(t, "debug", lc.Level)
	assert.Equal(t, "console", lc.Format)

	require.True(t, cfg.SnapshotsEnabled())
	fc := cfg.FilestoreConfig()
	assert.Equal(t, "minio-secret", fc.SecretKey)
	assert.Equal(t, "schemas", fc.Bucket)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "wrong version",
			content: "version: 2\ndatabase:\n  driver: mysql\n  dsn: x\n",
			wantErr: "unsupported config version",
		},
		{
			name:    "unknown driver",
			content: "version: 1\ndatabase:\n  driver: oracle\n  dsn: x\n",
			wantErr: "database.driver",
		},
		{
			name:    "missing dsn",
			content: "version: 1\ndatabase:\n  driver: sqlite\n",
			wantErr: "database.dsn is required",
		},
		{
			name:    "bad log level",
			content: "version: 1\ndatabase:\n  driver: sqlite\n  dsn: shop.db\nlogging:\n  level: loud\n",
			wantErr: "logging.level",
		},
		{
			name:    "bad log format",
			content: "version: 1\ndatabase:\n  driver: sqlite\n  dsn: shop.db\nlogging:\n  format: xml\n",
			wantErr: "logging.format",
		},
		{
			name:    "pool bounds",
			content: "version: 1\ndatabase:\n  driver: sqlite\n  dsn: shop.db\n  max_conns: 2\n  min_conns: 4\n",
			wantErr: "min_conns",
		},
		{
			name:    "unset secret",
			content: "version: 1\ndatabase:\n  driver: mysql\n  dsn: u:${ENV:SCHEMASCOPE_TEST_UNSET}@tcp(h)/d\n",
			wantErr: "SCHEMASCOPE_TEST_UNSET",
		},
		{
			name:    "not yaml",
			content: "version: [",
			wantErr: "parsing config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "reading config")
}

func TestResolveValue(t *testing.T) {
	t.Setenv("SCOPE_A", "alpha")
	t.Setenv("SCOPE_EMPTY", "")

	v, err := ResolveValue("plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", v)

	v, err = ResolveValue("${ENV:SCOPE_A}-${ENV:SCOPE_A}")
	require.NoError(t, err)
	assert.Equal(t, "alpha-alpha", v)

	v, err = ResolveValue("x${ENV:SCOPE_EMPTY}y")
	require.NoError(t, err)
	assert.Equal(t, "xy", v)
}

func TestForDatabase(t *testing.T) {
	cfg, err := ForDatabase("pg", "postgres://localhost/shop", "sales")
	require.NoError(t, err)
	assert.Equal(t, database.DriverPostgres, cfg.ConnConfig().Driver)
	assert.Equal(t, "sales", cfg.ConnConfig().Schema)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.SnapshotsEnabled())

	_, err = ForDatabase("oracle", "x", "")
	assert.Error(t, err)

	_, err = ForDatabase("sqlite", "", "")
	assert.Error(t, err)
}

func TestLoad_DotEnvFallback(t *testing.T) {
	path := writeConfig(t, `version: 1
database:
  driver: mysql
  dsn: scope:${ENV:SCHEMASCOPE_TEST_DOTENV_PW}@tcp(localhost:3306)/shop
`)
	dotenv := filepath.Join(filepath.Dir(path), ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("SCHEMASCOPE_TEST_DOTENV_PW=from-file\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "scope:from-file@tcp(localhost:3306)/shop", cfg.Database.DSN)

	t.Setenv("SCHEMASCOPE_TEST_DOTENV_PW", "from-env")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "scope:from-env@tcp(localhost:3306)/shop", cfg.Database.DSN, "the environment wins over .env")
}
