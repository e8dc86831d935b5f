package database

import (
	"path/filepath"
	"testing"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSNDefaults(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{User: "themanager", Name: "themanager"})
	require.NoError(t, err)
	require.Equal(t, "postgres://themanager@localhost:5432/themanager?sslmode=disable", dsn)
}

func TestBuildPostgresDSNEscapesCredentials(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{
		User:     "app",
		Name:     "db",
		Host:     "db.example.com",
		Port:     6543,
		Password: "p@ss word/'x",
		Options:  map[string]string{"sslmode": "require", "search_path": "public"},
	})
	require.NoError(t, err)

	parsed, err := pgconn.ParseConfig(dsn)
	require.NoError(t, err)
	require.Equal(t, "db.example.com", parsed.Host)
	require.Equal(t, uint16(6543), parsed.Port)
	require.Equal(t, "app", parsed.User)
	require.Equal(t, "p@ss word/'x", parsed.Password)
	require.Equal(t, "db", parsed.Database)
	require.Equal(t, "public", parsed.RuntimeParams["search_path"])
}

func TestBuildPostgresDSNRequiresUserAndName(t *testing.T) {
	_, err := buildPostgresDSN(Config{})
	require.Error(t, err)

	dsn, err := buildPostgresDSN(Config{DSN: "postgres://override"})
	require.NoError(t, err)
	require.Equal(t, "postgres://override", dsn)
}

func TestBuildMySQLDSNRoundTrips(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{
		User:     "user",
		Password: "se:cr@t/",
		Name:     "db",
		Host:     "db.example.com",
		Port:     3307,
		Options:  map[string]string{"tls": "skip-verify", "charset": "utf8"},
	})
	require.NoError(t, err)

	parsed, err := mysqldriver.ParseDSN(dsn)
	require.NoError(t, err)
	require.Equal(t, "user", parsed.User)
	require.Equal(t, "se:cr@t/", parsed.Passwd)
	require.Equal(t, "db.example.com:3307", parsed.Addr)
	require.Equal(t, "db", parsed.DBName)
	require.True(t, parsed.ParseTime)
	require.Equal(t, time.UTC, parsed.Loc)
	require.Equal(t, "skip-verify", parsed.TLSConfig)
	require.Contains(t, dsn, "charset=utf8")
}

func TestBuildMySQLDSNDefaults(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{User: "themanager", Name: "themanager"})
	require.NoError(t, err)
	require.Contains(t, dsn, "themanager@tcp(127.0.0.1:3306)/themanager?")
	require.Contains(t, dsn, "charset=utf8mb4")
	require.Contains(t, dsn, "parseTime=true")

	_, err = buildMySQLDSN(Config{Host: "localhost"})
	require.Error(t, err)
}

func TestSQLiteDSN(t *testing.T) {
	mem, err := sqliteDSN(Config{Path: ":memory:"})
	require.NoError(t, err)
	require.Contains(t, mem, "mode=memory")
	require.Contains(t, mem, "cache=shared")

	other, err := sqliteDSN(Config{})
	require.NoError(t, err)
	require.NotEqual(t, mem, other)

	path := filepath.Join(t.TempDir(), "nested", "app.db")
	file, err := sqliteDSN(Config{Path: path, Options: map[string]string{"_busy_timeout": "100"}})
	require.NoError(t, err)
	require.Contains(t, file, "_journal_mode=WAL")
	require.Contains(t, file, "_busy_timeout=100")
	require.DirExists(t, filepath.Dir(path))

	raw, err := sqliteDSN(Config{DSN: "file:custom.db", Path: path})
	require.NoError(t, err)
	require.Equal(t, "file:custom.db", raw)
}
