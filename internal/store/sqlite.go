package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"github.com/crimson-sun/rcwatch/internal/project"
)

// schema holds each record in its TOML form, so a row reads the same as
// a file store entry.
const schema = `
CREATE TABLE IF NOT EXISTS projects (
    key        TEXT PRIMARY KEY,
    record     TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SQLite stores project records in a local SQLite database in WAL mode.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) a SQLite database at dbPath, enables WAL
// mode and busy timeout, and creates the schema if it does not exist.
func NewSQLite(ctx context.Context, dbPath string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	// SQLite has a single writer; one connection keeps the pragmas in force.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: set busy timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Load(ctx context.Context, key string) (project.Record, error) {
	var text string
	err := s.db.QueryRowContext(ctx, `SELECT record FROM projects WHERE key = ?`, key).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return project.Record{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return project.Record{}, fmt.Errorf("store: load %s: %w", key, err)
	}
	r, err := project.UnmarshalRecord([]byte(text))
	if err != nil {
		return project.Record{}, fmt.Errorf("store: load %s: %w", key, err)
	}
	return r, nil
}

func (s *SQLite) Save(ctx context.Context, r project.Record) error {
	if r.Key == "" {
		return fmt.Errorf("store: invalid key %q", r.Key)
	}
	data, err := project.MarshalRecord(r)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO projects (key, record) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET record = excluded.record, updated_at = CURRENT_TIMESTAMP`,
		r.Key, string(data))
	if err != nil {
		return fmt.Errorf("store: save %s: %w", r.Key, err)
	}
	return nil
}

func (s *SQLite) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM projects ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("store: list: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *SQLite) Delete(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("store: delete %s: %w", key, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}
