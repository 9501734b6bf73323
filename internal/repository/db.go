package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/liliang-cn/beacon/internal/config"
)

// Dialect names the SQL flavour behind a DB
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// DB wraps the database connection
type DB struct {
	*sql.DB
	dialect Dialect
}

// NewDB opens the configured store and runs migrations
func NewDB(cfg config.DatabaseConfig) (*DB, error) {
	switch Dialect(cfg.Driver) {
	case DialectSQLite:
		return NewSQLiteDB(cfg.Path)
	case DialectPostgres:
		return NewPostgresDB(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// NewSQLiteDB opens (creating if needed) a sqlite database file
func NewSQLiteDB(dbPath string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Concurrent webhook writers would otherwise hit SQLITE_BUSY
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	return open(db, DialectSQLite)
}

// NewPostgresDB opens a postgres database through pgx
func NewPostgresDB(dsn string) (*DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return open(db, DialectPostgres)
}

func open(db *sql.DB, dialect Dialect) (*DB, error) {
	d := &DB{DB: db, dialect: dialect}
	if err := d.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return d, nil
}

// rebind rewrites ? placeholders into $n for postgres
func (d *DB) rebind(query string) string {
	if d.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d *DB) migrate(ctx context.Context) error {
	payloadType := "TEXT"
	if d.dialect == DialectPostgres {
		payloadType = "JSONB"
	}

	// timestamp_us holds unix microseconds so ordering is numeric on both dialects
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS logs (
			id TEXT PRIMARY KEY,
			timestamp_us BIGINT NOT NULL,
			source TEXT NOT NULL,
			event_type TEXT NOT NULL,
			session_id TEXT,
			user_id TEXT,
			user_nickname TEXT,
			message_type TEXT,
			message_content TEXT,
			website_id TEXT,
			payload ` + payloadType + ` NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_logs_timestamp ON logs(timestamp_us)`,
		`CREATE INDEX IF NOT EXISTS idx_logs_source_event ON logs(source, event_type, timestamp_us)`,
		`CREATE INDEX IF NOT EXISTS idx_logs_website ON logs(website_id, timestamp_us)`,
	}

	for _, m := range migrations {
		if _, err := d.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}

	return nil
}
