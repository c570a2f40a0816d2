package database

import (
	"context"
	"errors"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/escape-room-reservation/internal/database/migrations"
)

func TestOpenSQLiteAppliesMigrationsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "escape.db")
	cfg := Config{Driver: DriverSQLite, Path: path}

	db, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, Migrate(context.Background(), db, DriverSQLite))

	var applied int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied))
	assert.Equal(t, 3, applied)

	var tables int
	require.NoError(t, db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('member', 'theme', 'reservation_time', 'reservation', 'refresh_token')",
	).Scan(&tables))
	assert.Equal(t, 5, tables)

	var indexes int
	require.NoError(t, db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name IN ('uq_reservation_success_slot', 'uq_reservation_active_claim')",
	).Scan(&indexes))
	assert.Equal(t, 2, indexes)
	require.NoError(t, db.Close())
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	assert.Error(t, err)
}

func TestOpenSQLiteRequiresPath(t *testing.T) {
	_, err := Open(Config{Driver: DriverSQLite})
	assert.Error(t, err)
}

func TestParseMigration(t *testing.T) {
	content := `
-- +migrate Up
-- leading comment; with semicolon
CREATE TABLE a (
    id INTEGER
);

CREATE INDEX idx_a ON a (id);
-- +migrate Down
DROP TABLE a;
`
	assert.Equal(t, []string{
		"CREATE TABLE a (\n    id INTEGER\n)",
		"CREATE INDEX idx_a ON a (id)",
	}, parseMigration(content))

	assert.Equal(t, []string{"CREATE TABLE b (id INTEGER)"}, parseMigration("CREATE TABLE b (id INTEGER)\n"))
}

func TestTolerableDependsOnDialect(t *testing.T) {
	assert.True(t, tolerable(DriverMySQL, &mysql.MySQLError{Number: 1061, Message: "Duplicate key name"}))
	assert.False(t, tolerable(DriverMySQL, &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}))
	assert.False(t, tolerable(DriverMySQL, errors.New("table already exists")))
	assert.True(t, tolerable(DriverSQLite, errors.New("SQL logic error: index uq_x already exists (1)")))
	assert.False(t, tolerable(DriverSQLite, errors.New("no such table: reservation")))
}

// The MySQL scripts never run in the default test suite, so check that they
// parse and declare the keys the repository relies on for duplicate detection.
func TestEmbeddedMigrationsDeclareSlotKeys(t *testing.T) {
	for _, dialect := range []string{DriverMySQL, DriverSQLite} {
		entries, err := fs.ReadDir(migrations.FS, dialect)
		require.NoError(t, err)
		require.Len(t, entries, 3, dialect)

		var ddl []string
		for _, entry := range entries {
			content, err := fs.ReadFile(migrations.FS, path.Join(dialect, entry.Name()))
			require.NoError(t, err)
			stmts := parseMigration(string(content))
			require.NotEmpty(t, stmts, entry.Name())
			for _, stmt := range stmts {
				assert.NotContains(t, stmt, "DROP ", "%s runs Down statements", entry.Name())
			}
			ddl = append(ddl, stmts...)
		}
		joined := strings.Join(ddl, "\n")
		assert.Contains(t, joined, "uq_reservation_success_slot", dialect)
		assert.Contains(t, joined, "uq_reservation_active_claim", dialect)
	}

	mysqlInit, err := fs.ReadFile(migrations.FS, "mysql/001_init.sql")
	require.NoError(t, err)
	assert.Contains(t, string(mysqlInit), "IF(status = 'SUCCESS'")
	mysqlClaim, err := fs.ReadFile(migrations.FS, "mysql/003_active_claim.sql")
	require.NoError(t, err)
	assert.Contains(t, string(mysqlClaim), "IF(status IN ('SUCCESS', 'WAIT')")
}

func TestDialectDefaultsToMySQL(t *testing.T) {
	assert.Equal(t, DriverMySQL, Dialect(""))
	assert.Equal(t, DriverSQLite, Dialect("SQLite"))
}
