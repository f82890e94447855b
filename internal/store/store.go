// Package store persists cases and their summaries in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a case or summary does not exist.
var ErrNotFound = errors.New("not found")

// sqliteTime is the layout produced by CURRENT_TIMESTAMP.
const sqliteTime = "2006-01-02 15:04:05"

// Store wraps the SQLite database holding cases and summaries.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// New opens (or creates) the database at dbPath and brings the schema up
// to date. Databases written by older releases gain the columns they lack.
func New(ctx context.Context, dbPath string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(30000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db, log: log}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS cases (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	filename      TEXT NOT NULL,
	stored_path   TEXT NOT NULL,
	text_content  TEXT NOT NULL,
	customer_name TEXT,
	system_name   TEXT,
	content_hash  TEXT,
	created_at    DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS summaries (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	case_id    INTEGER NOT NULL,
	problem    TEXT,
	solution   TEXT,
	outcome    TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY(case_id) REFERENCES cases(id)
);

CREATE INDEX IF NOT EXISTS idx_summaries_case ON summaries(case_id);
`

// caseColumns are added to cases tables created before they existed.
// SQLite rejects non-constant defaults in ALTER TABLE, so created_at is
// added without one; old rows keep a NULL timestamp.
var caseColumns = []struct {
	name string
	ddl  string
}{
	{"customer_name", "ALTER TABLE cases ADD COLUMN customer_name TEXT"},
	{"system_name", "ALTER TABLE cases ADD COLUMN system_name TEXT"},
	{"content_hash", "ALTER TABLE cases ADD COLUMN content_hash TEXT"},
	{"created_at", "ALTER TABLE cases ADD COLUMN created_at DATETIME"},
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	existing, err := s.columns(ctx, "cases")
	if err != nil {
		return err
	}
	for _, col := range caseColumns {
		if existing[col.name] {
			continue
		}
		s.log.Info("adding column", "table", "cases", "column", col.name)
		if _, err := s.db.ExecContext(ctx, col.ddl); err != nil {
			return fmt.Errorf("add column %s: %w", col.name, err)
		}
	}

	if _, err := s.db.ExecContext(ctx,
		"CREATE INDEX IF NOT EXISTS idx_cases_content_hash ON cases(content_hash)"); err != nil {
		return fmt.Errorf("create hash index: %w", err)
	}
	return nil
}

func (s *Store) columns(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// parseTime converts a strftime-formatted column to UTC; NULL becomes zero.
func parseTime(ns sql.NullString) time.Time {
	if !ns.Valid || ns.String == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation(sqliteTime, ns.String, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}
