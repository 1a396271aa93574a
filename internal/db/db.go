package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

const (
	// DriverCGO is the mattn/go-sqlite3 driver and the default
	DriverCGO = "sqlite3"
	// DriverPure is the modernc.org/sqlite driver, for builds without cgo
	DriverPure = "sqlite"
)

// ErrNotFound is returned by single-row lookups that match nothing
var ErrNotFound = errors.New("not found")

// DB represents the database connection
type DB struct {
	*sql.DB
}

// Tx is a write transaction. All mirror writes go through one.
type Tx struct {
	tx *sql.Tx
}

// New opens the database at dbPath with the default driver
func New(dbPath string) (*DB, error) {
	return Open(DriverCGO, dbPath)
}

// Open opens the database at dbPath with the named driver. ":memory:" gives a
// private in-memory store.
func Open(driver, dbPath string) (*DB, error) {
	switch driver {
	case "":
		driver = DriverCGO
	case DriverCGO, DriverPure:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer, and an in-memory database lives only as long
	// as its connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

// Initialize creates the database schema if it doesn't exist
func (db *DB) Initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS items (
		id INTEGER PRIMARY KEY,
		org TEXT NOT NULL,
		repo TEXT NOT NULL,
		item_number INTEGER NOT NULL,
		assignee_login TEXT,
		user_login TEXT,
		state TEXT,
		title TEXT,
		body TEXT,
		created_at TEXT,
		updated_at TEXT,
		comment_count INTEGER,
		pull_request_url TEXT,
		merged_at TEXT,
		closed_at TEXT
	);

	CREATE TABLE IF NOT EXISTS item_comments (
		id INTEGER PRIMARY KEY,
		org TEXT NOT NULL,
		repo TEXT NOT NULL,
		item_number INTEGER NOT NULL,
		user_login TEXT,
		body TEXT,
		created_at TEXT,
		updated_at TEXT
	);

	CREATE TABLE IF NOT EXISTS pull_request_files (
		pull_request_id INTEGER NOT NULL,
		filename TEXT NOT NULL,
		additions INTEGER,
		deletions INTEGER,
		changes INTEGER,
		status TEXT,
		PRIMARY KEY (pull_request_id, filename)
	);

	CREATE TABLE IF NOT EXISTS item_to_label (
		item_id INTEGER NOT NULL,
		url TEXT NOT NULL,
		PRIMARY KEY (item_id, url)
	);

	-- kept for readers of older databases; nothing writes it
	CREATE TABLE IF NOT EXISTS item_to_milestone (
		item_id INTEGER NOT NULL,
		milestone_id INTEGER NOT NULL,
		PRIMARY KEY (item_id, milestone_id)
	);

	CREATE INDEX IF NOT EXISTS idx_items_scope ON items(org, repo, updated_at);
	CREATE INDEX IF NOT EXISTS idx_items_number ON items(org, repo, item_number);
	CREATE INDEX IF NOT EXISTS idx_item_comments_scope ON item_comments(org, repo, updated_at);
	`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// WithTx runs fn in a transaction, committing if fn returns nil and rolling
// back otherwise (including on panic).
func (db *DB) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = sqlTx.Rollback()
		}
	}()

	if err := fn(&Tx{tx: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
