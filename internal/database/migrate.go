package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/escape-room-reservation/internal/database/migrations"
)

const migrationTable = "schema_migrations"

// Migrate executes the embedded migrations of dialect at most once per
// file.  Each file may hold several statements separated by semicolons.
func Migrate(ctx context.Context, db *sql.DB, dialect string) error {
	if db == nil {
		return fmt.Errorf("sql db is required")
	}
	root := Dialect(dialect)

	entries, err := fs.ReadDir(migrations.FS, root)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	createSQL := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    name VARCHAR(255) NOT NULL PRIMARY KEY,
    applied_at BIGINT NOT NULL
)`, migrationTable)
	if _, err := db.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, file := range files {
		name := path.Join(root, file)
		applied, err := isApplied(ctx, db, name)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if applied {
			continue
		}
		content, err := fs.ReadFile(migrations.FS, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		for i, stmt := range parseMigration(string(content)) {
			if _, err := db.ExecContext(ctx, stmt); err != nil && !tolerable(root, err) {
				return fmt.Errorf("exec migration %s statement %d: %w", name, i+1, err)
			}
		}
		if _, err := db.ExecContext(ctx,
			"INSERT INTO "+migrationTable+" (name, applied_at) VALUES (?, ?)",
			name, time.Now().UTC().UnixMilli(),
		); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}
	return nil
}

const (
	markUp   = "-- +migrate Up"
	markDown = "-- +migrate Down"
)

// parseMigration returns the statements of a migration file's Up section in
// order.  A file without an Up marker is all Up.  Full-line comments are
// dropped and a statement ends at a line whose last character is ';'.
func parseMigration(content string) []string {
	up := !strings.Contains(content, markUp)
	var (
		out []string
		cur strings.Builder
	)
	flush := func() {
		if stmt := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(cur.String()), ";")); stmt != "" {
			out = append(out, stmt)
		}
		cur.Reset()
	}
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, markUp):
			up = true
			continue
		case strings.HasPrefix(trimmed, markDown):
			flush()
			return out
		case !up, strings.HasPrefix(trimmed, "--"):
			continue
		}
		cur.WriteString(line)
		cur.WriteByte('\n')
		if strings.HasSuffix(trimmed, ";") {
			flush()
		}
	}
	flush()
	return out
}

// MySQL errors raised by DDL that already took effect.
const (
	mysqlTableExists   = 1050
	mysqlDupColumnName = 1060
	mysqlDupKeyName    = 1061
)

// tolerable reports whether err only says that a statement's object already
// exists, which happens when a migration is replayed after a partial run.
func tolerable(dialect string, err error) bool {
	if dialect == DriverMySQL {
		var myErr *mysql.MySQLError
		if !errors.As(err, &myErr) {
			return false
		}
		switch myErr.Number {
		case mysqlTableExists, mysqlDupColumnName, mysqlDupKeyName:
			return true
		}
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "duplicate column name")
}

func isApplied(ctx context.Context, db *sql.DB, name string) (bool, error) {
	var found int
	err := db.QueryRowContext(ctx, "SELECT 1 FROM "+migrationTable+" WHERE name = ?", name).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
